package repository

import (
	"context"

	"indialaw-go/internal/model"

	"gorm.io/gorm"
)

// AnalysisRepository 定义了分析结果的持久化操作。分析记录只增不改。
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *model.Analysis) error
	Latest(ctx context.Context, documentID string) (*model.Analysis, error)
	ListByDocument(ctx context.Context, documentID string) ([]model.Analysis, error)
	GetOwned(ctx context.Context, id string, userID uint) (*model.Analysis, error)
}

type analysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository 创建一个新的 AnalysisRepository 实例。
func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

// Create 连同风险、建议、分类得分一起写入。
func (r *analysisRepository) Create(ctx context.Context, analysis *model.Analysis) error {
	return r.db.WithContext(ctx).Create(analysis).Error
}

func (r *analysisRepository) withChildren(ctx context.Context) *gorm.DB {
	byPosition := func(db *gorm.DB) *gorm.DB { return db.Order("position") }
	return r.db.WithContext(ctx).
		Preload("Risks", byPosition).
		Preload("Recommendations", byPosition).
		Preload("CategoryScores", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

func (r *analysisRepository) Latest(ctx context.Context, documentID string) (*model.Analysis, error) {
	var a model.Analysis
	err := r.withChildren(ctx).Where("document_id = ?", documentID).Order("created_at DESC").First(&a).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &a, nil
}

// ListByDocument 按创建时间倒序返回文档的全部分析。
func (r *analysisRepository) ListByDocument(ctx context.Context, documentID string) ([]model.Analysis, error) {
	list := make([]model.Analysis, 0)
	err := r.withChildren(ctx).Where("document_id = ?", documentID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *analysisRepository) GetOwned(ctx context.Context, id string, userID uint) (*model.Analysis, error) {
	var a model.Analysis
	if err := r.withChildren(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translateErr(err)
	}
	if err := checkOwner(a.UserID, userID); err != nil {
		return nil, err
	}
	return &a, nil
}
