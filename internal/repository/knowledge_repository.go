package repository

import (
	"context"

	"indialaw-go/internal/model"

	"gorm.io/gorm"
)

// KnowledgeSourceRepository 记录已导入知识库的文件。
type KnowledgeSourceRepository interface {
	FindByMD5(ctx context.Context, fileMD5 string) (*model.KnowledgeSource, error)
	Create(ctx context.Context, source *model.KnowledgeSource) error
}

type knowledgeSourceRepository struct {
	db *gorm.DB
}

// NewKnowledgeSourceRepository 创建一个新的 KnowledgeSourceRepository 实例。
func NewKnowledgeSourceRepository(db *gorm.DB) KnowledgeSourceRepository {
	return &knowledgeSourceRepository{db: db}
}

func (r *knowledgeSourceRepository) FindByMD5(ctx context.Context, fileMD5 string) (*model.KnowledgeSource, error) {
	var src model.KnowledgeSource
	if err := r.db.WithContext(ctx).Where("file_md5 = ?", fileMD5).First(&src).Error; err != nil {
		return nil, translateErr(err)
	}
	return &src, nil
}

func (r *knowledgeSourceRepository) Create(ctx context.Context, source *model.KnowledgeSource) error {
	return r.db.WithContext(ctx).Create(source).Error
}
