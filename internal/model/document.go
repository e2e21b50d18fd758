package model

import (
	"time"

	"gorm.io/datatypes"
)

// DocumentStatus 是文档处理生命周期的状态。
type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusExtracted  DocumentStatus = "extracted"
	StatusCompleted  DocumentStatus = "completed"
	StatusError      DocumentStatus = "error"
)

// IsTerminal 判断状态是否为终态。
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Document 对应 documents 表，记录一次上传及其处理状态。
type Document struct {
	ID           string         `gorm:"type:char(36);primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index:idx_documents_user_created,priority:1" json:"userId"`
	OriginalName string         `gorm:"type:varchar(255);not null" json:"originalFileName"`
	FileSize     int64          `gorm:"not null" json:"size"`
	ContentType  string         `gorm:"type:varchar(128)" json:"contentType"`
	StoragePath  string         `gorm:"type:varchar(512);not null" json:"storagePath"`
	Status       DocumentStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Language     string         `gorm:"type:varchar(16)" json:"language,omitempty"`
	PageCount    int            `json:"pageCount,omitempty"`
	AnalysisID   string         `gorm:"type:char(36)" json:"analysisId,omitempty"`
	ErrorMessage string         `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index:idx_documents_user_created,priority:2" json:"uploadedAt"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Document) TableName() string {
	return "documents"
}

// DocumentText 对应 document_texts 表，抽取成功后写入一次，之后不再修改。
type DocumentText struct {
	DocumentID          string         `gorm:"type:char(36);primaryKey" json:"documentId"`
	UserID              uint           `gorm:"not null;index" json:"userId"`
	Text                string         `gorm:"type:longtext;not null" json:"extractedText"`
	Language            string         `gorm:"type:varchar(16)" json:"language"`
	PageCount           int            `json:"pageCount"`
	ReferencedDocuments datatypes.JSON `json:"referencedDocuments"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"extractedAt"`
}

func (DocumentText) TableName() string {
	return "document_texts"
}
