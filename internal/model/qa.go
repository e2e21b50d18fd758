package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleUserMessage      = "user"
	RoleAssistantMessage = "assistant"
)

// QASession 对应 qa_sessions 表，每个 (文档, 用户) 只有一个会话。
type QASession struct {
	ID         string        `gorm:"type:char(36);primaryKey" json:"id"`
	DocumentID string        `gorm:"type:char(36);not null;uniqueIndex:uk_session_doc_user,priority:1" json:"documentId"`
	UserID     uint          `gorm:"not null;uniqueIndex:uk_session_doc_user,priority:2" json:"userId"`
	Messages   []ChatMessage `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"messages"`
	CreatedAt  time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (QASession) TableName() string {
	return "qa_sessions"
}

// ChatMessage 对应 qa_messages 表，只追加不修改。
type ChatMessage struct {
	ID        string         `gorm:"type:char(36);primaryKey" json:"id"`
	SessionID string         `gorm:"type:char(36);not null;uniqueIndex:uk_message_session_seq,priority:1" json:"-"`
	Seq       int            `gorm:"not null;uniqueIndex:uk_message_session_seq,priority:2" json:"-"`
	Role      string         `gorm:"type:varchar(16);not null" json:"role"`
	Content   string         `gorm:"type:longtext;not null" json:"content"`
	Language  string         `gorm:"type:varchar(16)" json:"language"`
	Citations datatypes.JSON `json:"citations,omitempty"`
	CreatedAt time.Time      `json:"timestamp"`
}

func (ChatMessage) TableName() string {
	return "qa_messages"
}
