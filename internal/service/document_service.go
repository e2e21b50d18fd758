package service

import (
	"context"
	"time"

	"indialaw-go/internal/model"
	"indialaw-go/internal/repository"
	"indialaw-go/pkg/log"
	"indialaw-go/pkg/storage"
)

// DownloadURLExpiry 是原始文件下载链接的有效期。
const DownloadURLExpiry = time.Hour

// DownloadInfo 是下载链接信息。
type DownloadInfo struct {
	DownloadURL string `json:"downloadUrl"`
	FileName    string `json:"fileName"`
}

// DocumentService 定义了文档查询与管理操作，所有操作都校验归属。
type DocumentService interface {
	Get(ctx context.Context, documentID string, userID uint) (*model.Document, error)
	List(ctx context.Context, userID uint) ([]model.Document, error)
	Delete(ctx context.Context, documentID string, userID uint) error
	DownloadURL(ctx context.Context, documentID string, userID uint) (*DownloadInfo, error)
}

type documentService struct {
	docs  repository.DocumentRepository
	store storage.Store
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(docs repository.DocumentRepository, store storage.Store) DocumentService {
	return &documentService{docs: docs, store: store}
}

// Get 只读查询，终态文档多次调用返回相同结果。
func (s *documentService) Get(ctx context.Context, documentID string, userID uint) (*model.Document, error) {
	return s.docs.GetOwned(ctx, documentID, userID)
}

func (s *documentService) List(ctx context.Context, userID uint) ([]model.Document, error) {
	return s.docs.ListByUser(ctx, userID)
}

// Delete 删除数据库记录后尽力删除对象存储中的原始文件。
func (s *documentService) Delete(ctx context.Context, documentID string, userID uint) error {
	doc, err := s.docs.DeleteCascade(ctx, documentID, userID)
	if err != nil {
		return err
	}
	if err := s.store.Remove(ctx, doc.StoragePath); err != nil {
		log.Warnf("[DocumentService] 删除对象存储文件失败, Object: %s, Error: %v", doc.StoragePath, err)
	}
	log.Infof("[DocumentService] 文档已删除, DocumentID: %s, UserID: %d", documentID, userID)
	return nil
}

func (s *documentService) DownloadURL(ctx context.Context, documentID string, userID uint) (*DownloadInfo, error) {
	doc, err := s.docs.GetOwned(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	url, err := s.store.PresignedURL(ctx, doc.StoragePath, DownloadURLExpiry)
	if err != nil {
		return nil, err
	}
	return &DownloadInfo{DownloadURL: url, FileName: doc.OriginalName}, nil
}
