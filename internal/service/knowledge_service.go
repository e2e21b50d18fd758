package service

import (
	"context"
	"fmt"

	"indialaw-go/internal/model"
	"indialaw-go/pkg/embedding"
	"indialaw-go/pkg/log"
)

// KnowledgeSearcher 检索知识库。
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]model.KnowledgeHit, error)
}

// VectorIndex 是混合检索的底层索引。
type VectorIndex interface {
	Search(ctx context.Context, query string, vector []float32, topK int) ([]model.KnowledgeHit, error)
}

// KnowledgeIngester 导入一个参考文件。
type KnowledgeIngester interface {
	IndexFile(ctx context.Context, fileName string, data []byte) (int, error)
}

// KnowledgeService 组合向量化与索引检索，并提供参考资料导入。
type KnowledgeService interface {
	KnowledgeSearcher
	Ingest(ctx context.Context, fileName string, data []byte) (int, error)
}

type knowledgeService struct {
	embedder embedding.Client
	index    VectorIndex
	ingester KnowledgeIngester
}

// NewKnowledgeService 创建一个新的 KnowledgeService 实例。
func NewKnowledgeService(embedder embedding.Client, index VectorIndex, ingester KnowledgeIngester) KnowledgeService {
	return &knowledgeService{embedder: embedder, index: index, ingester: ingester}
}

// Search 执行混合检索；向量化失败时退化为纯关键词检索。
func (s *knowledgeService) Search(ctx context.Context, query string, topK int) ([]model.KnowledgeHit, error) {
	if query == "" || topK <= 0 {
		return nil, nil
	}
	vector, err := s.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		log.Warnf("[KnowledgeService] 查询向量化失败, 仅使用关键词检索: %v", err)
		vector = nil
	}
	hits, err := s.index.Search(ctx, query, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("knowledge search: %w", err)
	}
	return hits, nil
}

func (s *knowledgeService) Ingest(ctx context.Context, fileName string, data []byte) (int, error) {
	return s.ingester.IndexFile(ctx, fileName, data)
}
