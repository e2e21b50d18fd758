package service

import (
	"context"
	"errors"
	"fmt"

	"indialaw-go/internal/model"
	"indialaw-go/internal/repository"
	"indialaw-go/pkg/log"
	"indialaw-go/pkg/tasks"
)

// AnalysisService 定义了分析结果查询与重新分析操作。
type AnalysisService interface {
	GetLatest(ctx context.Context, documentID string, userID uint) (*model.Analysis, error)
	History(ctx context.Context, documentID string, userID uint) ([]model.Analysis, error)
	TriggerReanalysis(ctx context.Context, documentID string, userID uint) error
}

type analysisService struct {
	docs     repository.DocumentRepository
	analyses repository.AnalysisRepository
	queue    tasks.Queue
	guard    ReanalysisGuard
}

// NewAnalysisService 创建一个新的 AnalysisService 实例。
func NewAnalysisService(docs repository.DocumentRepository, analyses repository.AnalysisRepository, queue tasks.Queue, guard ReanalysisGuard) AnalysisService {
	return &analysisService{docs: docs, analyses: analyses, queue: queue, guard: guard}
}

// GetLatest 返回文档最近一次的分析。
func (s *analysisService) GetLatest(ctx context.Context, documentID string, userID uint) (*model.Analysis, error) {
	if _, err := s.docs.GetOwned(ctx, documentID, userID); err != nil {
		return nil, err
	}
	a, err := s.analyses.Latest(ctx, documentID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("analysis not found: %w", err)
		}
		return nil, err
	}
	return a, nil
}

func (s *analysisService) History(ctx context.Context, documentID string, userID uint) ([]model.Analysis, error) {
	if _, err := s.docs.GetOwned(ctx, documentID, userID); err != nil {
		return nil, err
	}
	return s.analyses.ListByDocument(ctx, documentID)
}

// TriggerReanalysis 投递重新分析任务并立即返回。同一文档已有进行中的任务时返回 model.ErrConflict。
func (s *analysisService) TriggerReanalysis(ctx context.Context, documentID string, userID uint) error {
	doc, err := s.docs.GetOwned(ctx, documentID, userID)
	if err != nil {
		return err
	}
	if _, err := s.docs.FindText(ctx, documentID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotReady
		}
		return err
	}

	acquired, err := s.guard.Acquire(ctx, documentID)
	if err != nil {
		return fmt.Errorf("acquire reanalysis guard: %w", err)
	}
	if !acquired {
		return fmt.Errorf("reanalysis already in progress: %w", model.ErrConflict)
	}

	job := tasks.DocumentJob{
		Kind:        tasks.KindReanalyze,
		DocumentID:  doc.ID,
		UserID:      userID,
		StoragePath: doc.StoragePath,
		FileName:    doc.OriginalName,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		if rerr := s.guard.Release(ctx, documentID); rerr != nil {
			log.Warnf("[AnalysisService] 释放重新分析标记失败, DocumentID: %s, Error: %v", documentID, rerr)
		}
		return fmt.Errorf("enqueue reanalysis: %w", err)
	}
	log.Infof("[AnalysisService] 已投递重新分析任务, DocumentID: %s", documentID)
	return nil
}
