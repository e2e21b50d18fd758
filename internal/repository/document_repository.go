package repository

import (
	"context"
	"fmt"

	"indialaw-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRepository 定义了 documents 与 document_texts 的持久化操作。
// 带 userID 参数的方法都会做归属校验。
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id string) (*model.Document, error)
	GetOwned(ctx context.Context, id string, userID uint) (*model.Document, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Document, error)
	// TransitionStatus 仅当当前状态属于 from 时才写入 to 及附带字段，
	// 否则返回 model.ErrConflict。
	TransitionStatus(ctx context.Context, id string, from []model.DocumentStatus, to model.DocumentStatus, fields map[string]interface{}) error
	DeleteCascade(ctx context.Context, id string, userID uint) (*model.Document, error)

	// SaveText 写入抽取结果，已存在时覆盖，重复投递的任务可以重新抽取。
	SaveText(ctx context.Context, text *model.DocumentText) error
	FindText(ctx context.Context, documentID string) (*model.DocumentText, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// FindByID 不做归属校验，仅供流水线内部使用。
func (r *documentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, translateErr(err)
	}
	return &doc, nil
}

func (r *documentRepository) GetOwned(ctx context.Context, id string, userID uint) (*model.Document, error) {
	doc, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(doc.UserID, userID); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListByUser 按上传时间倒序返回用户的全部文档。
func (r *documentRepository) ListByUser(ctx context.Context, userID uint) ([]model.Document, error) {
	docs := make([]model.Document, 0)
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&docs).Error
	return docs, err
}

func (r *documentRepository) TransitionStatus(ctx context.Context, id string, from []model.DocumentStatus, to model.DocumentStatus, fields map[string]interface{}) error {
	res := transitionQuery(r.db.WithContext(ctx), id, from, to, fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("document %s not in %v: %w", id, from, model.ErrConflict)
	}
	return nil
}

// transitionQuery 构造带状态条件的 UPDATE，单独拆出便于 DryRun 校验 SQL。
func transitionQuery(db *gorm.DB, id string, from []model.DocumentStatus, to model.DocumentStatus, fields map[string]interface{}) *gorm.DB {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = to
	return db.Model(&model.Document{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
}

// DeleteCascade 在一个事务中删除文档及其正文、分析、问答记录，返回被删除的文档以便清理对象存储。
func (r *documentRepository) DeleteCascade(ctx context.Context, id string, userID uint) (*model.Document, error) {
	var deleted *model.Document
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc model.Document
		if err := tx.Where("id = ?", id).First(&doc).Error; err != nil {
			return translateErr(err)
		}
		if err := checkOwner(doc.UserID, userID); err != nil {
			return err
		}

		sessions := tx.Model(&model.QASession{}).Select("id").Where("document_id = ?", id)
		if err := tx.Where("session_id IN (?)", sessions).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&model.QASession{}).Error; err != nil {
			return err
		}

		analyses := tx.Model(&model.Analysis{}).Select("id").Where("document_id = ?", id)
		for _, child := range []interface{}{&model.Risk{}, &model.Recommendation{}, &model.CategoryScore{}} {
			if err := tx.Where("analysis_id IN (?)", analyses).Delete(child).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("document_id = ?", id).Delete(&model.Analysis{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&model.DocumentText{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&doc).Error; err != nil {
			return err
		}
		deleted = &doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *documentRepository) SaveText(ctx context.Context, text *model.DocumentText) error {
	return saveTextQuery(r.db.WithContext(ctx), text).Error
}

func saveTextQuery(db *gorm.DB, text *model.DocumentText) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "language", "page_count", "referenced_documents"}),
	}).Create(text)
}

func (r *documentRepository) FindText(ctx context.Context, documentID string) (*model.DocumentText, error) {
	var text model.DocumentText
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).First(&text).Error; err != nil {
		return nil, translateErr(err)
	}
	return &text, nil
}
