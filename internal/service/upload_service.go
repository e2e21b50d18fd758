package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"indialaw-go/internal/model"
	"indialaw-go/internal/repository"
	"indialaw-go/pkg/log"
	"indialaw-go/pkg/metrics"
	"indialaw-go/pkg/storage"
	"indialaw-go/pkg/tasks"

	"github.com/google/uuid"
)

// 支持上传的文件类型（扩展名含 "."）。
var supportedExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".md", ".jpg", ".jpeg", ".png"}

// UploadRequest 是一次上传的文件信息。
type UploadRequest struct {
	FileName    string
	ContentType string
	Data        []byte
}

// UploadService 接口定义了文件上传相关的业务操作。
type UploadService interface {
	Submit(ctx context.Context, req UploadRequest, userID uint) (*model.Document, error)
	SupportedFileTypes() map[string]interface{}
	// MaxFileBytes 返回单个文件的大小上限。
	MaxFileBytes() int64
}

// ErrFileTooLarge 返回超过大小上限时的校验错误。
func ErrFileTooLarge(maxBytes int64) error {
	return fmt.Errorf("file size exceeds %dMB limit: %w", maxBytes/(1024*1024), model.ErrValidation)
}

type uploadService struct {
	docs     repository.DocumentRepository
	store    storage.Store
	queue    tasks.Queue
	maxBytes int64
}

// NewUploadService 创建一个新的 UploadService 实例。
func NewUploadService(docs repository.DocumentRepository, store storage.Store, queue tasks.Queue, maxBytes int64) UploadService {
	return &uploadService{docs: docs, store: store, queue: queue, maxBytes: maxBytes}
}

// Submit 保存原始文件、创建 processing 状态的文档并投递处理任务，不等待处理完成。
func (s *uploadService) Submit(ctx context.Context, req UploadRequest, userID uint) (*model.Document, error) {
	name := filepath.Base(strings.TrimSpace(req.FileName))
	size := int64(len(req.Data))
	log.Infof("[UploadService] 收到上传, FileName: %s, Size: %d, UserID: %d", name, size, userID)

	if name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("no file provided: %w", model.ErrValidation)
	}
	if size == 0 {
		return nil, fmt.Errorf("file is empty: %w", model.ErrValidation)
	}
	if size > s.maxBytes {
		return nil, ErrFileTooLarge(s.maxBytes)
	}
	if !isSupported(name) {
		return nil, fmt.Errorf("unsupported file type for %s: %w", name, model.ErrValidation)
	}

	// 1. 写入对象存储
	objectName := storage.UserObjectPath(userID, storage.FolderUploads, fmt.Sprintf("%d-%s", time.Now().UnixMilli(), name))
	if err := s.store.Put(ctx, objectName, bytes.NewReader(req.Data), size, req.ContentType); err != nil {
		log.Errorf("[UploadService] 上传到对象存储失败, Object: %s, Error: %v", objectName, err)
		return nil, fmt.Errorf("store upload: %w", err)
	}

	// 2. 创建文档记录
	doc := &model.Document{
		ID:           uuid.NewString(),
		UserID:       userID,
		OriginalName: name,
		FileSize:     size,
		ContentType:  req.ContentType,
		StoragePath:  objectName,
		Status:       model.StatusProcessing,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	// 3. 投递处理任务
	job := tasks.DocumentJob{
		Kind:        tasks.KindProcess,
		DocumentID:  doc.ID,
		UserID:      userID,
		StoragePath: objectName,
		FileName:    name,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		log.Errorf("[UploadService] 投递处理任务失败, DocumentID: %s, Error: %v", doc.ID, err)
		msg := "failed to schedule processing"
		if uerr := s.docs.TransitionStatus(ctx, doc.ID, []model.DocumentStatus{model.StatusProcessing}, model.StatusError,
			map[string]interface{}{"error_message": msg}); uerr != nil {
			log.Warnf("[UploadService] 标记文档失败状态出错, DocumentID: %s, Error: %v", doc.ID, uerr)
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	metrics.DocumentsSubmitted.Inc()
	log.Infof("[UploadService] 文档已提交处理, DocumentID: %s", doc.ID)
	return doc, nil
}

// SupportedFileTypes 返回允许上传的文件类型及大小限制。
func (s *uploadService) SupportedFileTypes() map[string]interface{} {
	return map[string]interface{}{
		"supportedExtensions": supportedExtensions,
		"maxSizeBytes":        s.maxBytes,
	}
}

func (s *uploadService) MaxFileBytes() int64 {
	return s.maxBytes
}

func isSupported(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, e := range supportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
