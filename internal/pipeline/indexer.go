package pipeline

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"indialaw-go/internal/config"
	"indialaw-go/internal/model"
	"indialaw-go/internal/repository"
	"indialaw-go/pkg/embedding"
	"indialaw-go/pkg/log"
)

// TextSource 抽取参考文件的纯文本。
type TextSource interface {
	ExtractText(ctx context.Context, fileReader io.Reader, fileName string) (string, error)
}

// ChunkIndexer 把分块写入检索索引。
type ChunkIndexer interface {
	IndexChunk(ctx context.Context, chunk model.KnowledgeChunk) error
}

// KnowledgeIndexer 把法律参考资料切块、向量化并写入知识库索引。
type KnowledgeIndexer struct {
	source    TextSource
	embedder  embedding.Client
	index     ChunkIndexer
	sources   repository.KnowledgeSourceRepository
	modelName string
	cfg       config.KnowledgeConfig
}

// NewKnowledgeIndexer 创建 KnowledgeIndexer。
func NewKnowledgeIndexer(
	source TextSource,
	embedder embedding.Client,
	index ChunkIndexer,
	sources repository.KnowledgeSourceRepository,
	modelName string,
	cfg config.KnowledgeConfig,
) *KnowledgeIndexer {
	return &KnowledgeIndexer{
		source:    source,
		embedder:  embedder,
		index:     index,
		sources:   sources,
		modelName: modelName,
		cfg:       cfg,
	}
}

// IndexFile 导入一个参考文件并返回写入的分块数。按内容 MD5 幂等，已导入的文件返回已有分块数。
func (k *KnowledgeIndexer) IndexFile(ctx context.Context, fileName string, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("knowledge file %s is empty: %w", fileName, model.ErrValidation)
	}
	fileMD5 := fmt.Sprintf("%x", md5.Sum(data))

	existing, err := k.sources.FindByMD5(ctx, fileMD5)
	if err == nil {
		log.Infof("[KnowledgeIndexer] 已导入, 跳过: %s (md5=%s)", fileName, fileMD5)
		return existing.ChunkCount, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return 0, err
	}

	log.Infof("[KnowledgeIndexer] 步骤1: 抽取文本, FileName: %s", fileName)
	text, err := k.source.ExtractText(ctx, bytes.NewReader(data), fileName)
	if err != nil {
		return 0, fmt.Errorf("抽取参考文件文本失败: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("knowledge file %s has no text: %w", fileName, model.ErrValidation)
	}

	chunks := splitText(text, k.cfg.ChunkSize, k.cfg.ChunkOverlap)
	log.Infof("[KnowledgeIndexer] 步骤2: 文本分块完成, chunkSize: %d, chunkOverlap: %d, 共 %d 块",
		k.cfg.ChunkSize, k.cfg.ChunkOverlap, len(chunks))

	for i, chunk := range chunks {
		vector, err := k.embedder.CreateEmbedding(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("块 %d 向量化失败: %w", i, err)
		}
		err = k.index.IndexChunk(ctx, model.KnowledgeChunk{
			ChunkID:      fmt.Sprintf("%s_%d", fileMD5, i),
			SourceMD5:    fileMD5,
			SourceName:   fileName,
			ChunkIndex:   i,
			TextContent:  chunk,
			Vector:       vector,
			ModelVersion: k.modelName,
		})
		if err != nil {
			return 0, fmt.Errorf("索引块 %d 失败: %w", i, err)
		}
	}

	if err := k.sources.Create(ctx, &model.KnowledgeSource{FileMD5: fileMD5, FileName: fileName, ChunkCount: len(chunks)}); err != nil {
		return 0, fmt.Errorf("记录知识库来源失败: %w", err)
	}
	log.Infof("[KnowledgeIndexer] 导入完成: %s, 分块数: %d", fileName, len(chunks))
	return len(chunks), nil
}

// SeedDirectory 导入目录下的所有文件，单个文件失败只记录日志。
func (k *KnowledgeIndexer) SeedDirectory(ctx context.Context, dir string) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Infof("[KnowledgeIndexer] 目录 '%s' 不存在或不可用，跳过知识库初始化", dir)
		return
	}

	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warnf("[KnowledgeIndexer] 读取文件失败: %s, err=%v", path, err)
			return nil
		}
		if _, err := k.IndexFile(ctx, info.Name(), data); err != nil {
			log.Warnf("[KnowledgeIndexer] 导入失败: %s, err=%v", path, err)
		}
		return nil
	})
	if walkErr != nil {
		log.Warnf("[KnowledgeIndexer] 遍历目录中止: %v", walkErr)
	}
}

// splitText 将长文本按指定大小和重叠进行切分。
func splitText(text string, chunkSize, chunkOverlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 || chunkSize <= 0 {
		return nil
	}
	step := chunkSize - chunkOverlap
	if chunkOverlap < 0 || step <= 0 {
		step = chunkSize
	}

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
