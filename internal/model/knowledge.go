package model

import "time"

// KnowledgeSource 对应 knowledge_sources 表，记录已导入知识库的参考文件，用于幂等导入。
type KnowledgeSource struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FileMD5    string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"fileMd5"`
	FileName   string    `gorm:"type:varchar(255);not null" json:"fileName"`
	ChunkCount int       `gorm:"not null" json:"chunkCount"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (KnowledgeSource) TableName() string {
	return "knowledge_sources"
}

// KnowledgeChunk 是存储在 Elasticsearch 中的知识库分块。
type KnowledgeChunk struct {
	ChunkID      string    `json:"chunk_id"` // source_md5 + chunk_index
	SourceMD5    string    `json:"source_md5"`
	SourceName   string    `json:"source_name"`
	ChunkIndex   int       `json:"chunk_index"`
	TextContent  string    `json:"text_content"`
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
}

// KnowledgeHit 是一条知识库检索结果。
type KnowledgeHit struct {
	SourceName string  `json:"sourceName"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}
