package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"indialaw-go/internal/repository"
	"indialaw-go/pkg/log"
	"indialaw-go/pkg/report"
	"indialaw-go/pkg/storage"
)

// ReportResult 是生成的报告位置。
type ReportResult struct {
	ReportURL  string `json:"reportUrl"`
	ReportPath string `json:"reportPath"`
}

// ReportService 生成分析报告 PDF。
type ReportService interface {
	Generate(ctx context.Context, analysisID string, userID uint) (*ReportResult, error)
}

type reportService struct {
	docs      repository.DocumentRepository
	analyses  repository.AnalysisRepository
	store     storage.Store
	urlExpiry time.Duration
}

// NewReportService 创建一个新的 ReportService 实例。
func NewReportService(docs repository.DocumentRepository, analyses repository.AnalysisRepository, store storage.Store, urlExpiry time.Duration) ReportService {
	return &reportService{docs: docs, analyses: analyses, store: store, urlExpiry: urlExpiry}
}

// Generate 渲染 PDF、上传到用户的 reports 目录并返回临时下载链接。
func (s *reportService) Generate(ctx context.Context, analysisID string, userID uint) (*ReportResult, error) {
	analysis, err := s.analyses.GetOwned(ctx, analysisID, userID)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.GetOwned(ctx, analysis.DocumentID, userID)
	if err != nil {
		return nil, err
	}

	pdf, err := report.Render(analysis, doc, time.Now())
	if err != nil {
		return nil, err
	}

	objectName := storage.UserObjectPath(userID, storage.FolderReports, fmt.Sprintf("report-%s.pdf", analysisID))
	if err := s.store.Put(ctx, objectName, bytes.NewReader(pdf), int64(len(pdf)), "application/pdf"); err != nil {
		return nil, fmt.Errorf("upload report: %w", err)
	}
	url, err := s.store.PresignedURL(ctx, objectName, s.urlExpiry)
	if err != nil {
		return nil, err
	}
	log.Infof("[ReportService] 报告已生成, AnalysisID: %s, Object: %s, Size: %d", analysisID, objectName, len(pdf))
	return &ReportResult{ReportURL: url, ReportPath: objectName}, nil
}
