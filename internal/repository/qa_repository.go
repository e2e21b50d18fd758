package repository

import (
	"context"
	"errors"
	"time"

	"indialaw-go/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QARepository 定义了问答会话与消息的持久化操作。
type QARepository interface {
	// GetOrCreate 返回 (文档, 用户) 对应的会话，不存在时创建，消息按 seq 排序。
	GetOrCreate(ctx context.Context, documentID string, userID uint) (*model.QASession, error)
	// FindSession 查找会话并校验其属于给定的文档与用户，否则返回 model.ErrNotFound。
	FindSession(ctx context.Context, sessionID, documentID string, userID uint) (*model.QASession, error)
	// AppendExchange 在一个事务中按顺序追加消息。
	AppendExchange(ctx context.Context, sessionID string, messages ...model.ChatMessage) error
}

type qaRepository struct {
	db *gorm.DB
}

// NewQARepository 创建一个新的 QARepository 实例。
func NewQARepository(db *gorm.DB) QARepository {
	return &qaRepository{db: db}
}

func bySeq(db *gorm.DB) *gorm.DB { return db.Order("seq") }

func (r *qaRepository) GetOrCreate(ctx context.Context, documentID string, userID uint) (*model.QASession, error) {
	var session model.QASession
	err := r.db.WithContext(ctx).Preload("Messages", bySeq).
		Where("document_id = ? AND user_id = ?", documentID, userID).First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	session = model.QASession{ID: uuid.NewString(), DocumentID: documentID, UserID: userID, Messages: []model.ChatMessage{}}
	// 并发创建时唯一索引冲突，忽略后重新读取
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&session)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var existing model.QASession
		if err := r.db.WithContext(ctx).Preload("Messages", bySeq).
			Where("document_id = ? AND user_id = ?", documentID, userID).First(&existing).Error; err != nil {
			return nil, translateErr(err)
		}
		return &existing, nil
	}
	return &session, nil
}

func (r *qaRepository) FindSession(ctx context.Context, sessionID, documentID string, userID uint) (*model.QASession, error) {
	var session model.QASession
	err := r.db.WithContext(ctx).Preload("Messages", bySeq).
		Where("id = ? AND document_id = ? AND user_id = ?", sessionID, documentID, userID).First(&session).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &session, nil
}

func (r *qaRepository) AppendExchange(ctx context.Context, sessionID string, messages ...model.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁住会话行，保证 seq 连续
		var session model.QASession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", sessionID).First(&session).Error; err != nil {
			return translateErr(err)
		}
		var maxSeq int
		if err := tx.Model(&model.ChatMessage{}).Where("session_id = ?", sessionID).
			Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq).Error; err != nil {
			return err
		}
		for i := range messages {
			if messages[i].ID == "" {
				messages[i].ID = uuid.NewString()
			}
			messages[i].SessionID = sessionID
			messages[i].Seq = maxSeq + i + 1
		}
		if err := tx.Create(&messages).Error; err != nil {
			return err
		}
		return tx.Model(&session).Update("updated_at", time.Now()).Error
	})
}
