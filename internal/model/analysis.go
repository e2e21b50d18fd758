package model

import (
	"time"

	"gorm.io/datatypes"
)

// 风险等级
const (
	LevelHigh   = "HIGH"
	LevelMedium = "MEDIUM"
	LevelLow    = "LOW"
)

// Categories 是合规评分固定的四个类别，顺序即报告中的展示顺序。
var Categories = []string{"GST", "Labor", "Contract Validity", "Data Protection"}

// RiskSummary 是各风险等级的计数。
type RiskSummary struct {
	High   int `gorm:"not null;default:0" json:"high"`
	Medium int `gorm:"not null;default:0" json:"medium"`
	Low    int `gorm:"not null;default:0" json:"low"`
}

// Total 返回风险总数。
func (r RiskSummary) Total() int {
	return r.High + r.Medium + r.Low
}

// Analysis 对应 analyses 表。每次分析生成一条新记录，不做更新。
type Analysis struct {
	ID                     string           `gorm:"type:char(36);primaryKey" json:"id"`
	DocumentID             string           `gorm:"type:char(36);not null;index:idx_analyses_doc_created,priority:1" json:"documentId"`
	UserID                 uint             `gorm:"not null;index" json:"userId"`
	IndiaLawScore          int              `gorm:"not null" json:"indiaLawScore"`
	RiskSummary            RiskSummary      `gorm:"embedded;embeddedPrefix:risk_" json:"riskSummary"`
	CategoryScores         []CategoryScore  `gorm:"foreignKey:AnalysisID;constraint:OnDelete:CASCADE" json:"categoryScores"`
	Risks                  []Risk           `gorm:"foreignKey:AnalysisID;constraint:OnDelete:CASCADE" json:"risks"`
	Recommendations        []Recommendation `gorm:"foreignKey:AnalysisID;constraint:OnDelete:CASCADE" json:"recommendations"`
	KnowledgeBaseCitations datatypes.JSON   `json:"knowledgeBaseCitations"`
	ProcessingTimeMs       int64            `json:"processingTime"`
	CreatedAt              time.Time        `gorm:"autoCreateTime;index:idx_analyses_doc_created,priority:2" json:"createdAt"`
}

func (Analysis) TableName() string {
	return "analyses"
}

// CategoryScore 对应 analysis_category_scores 表。
type CategoryScore struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	AnalysisID string `gorm:"type:char(36);not null;index" json:"-"`
	Category   string `gorm:"type:varchar(64);not null" json:"category"`
	Score      int    `gorm:"not null" json:"score"`
}

func (CategoryScore) TableName() string {
	return "analysis_category_scores"
}

// Risk 对应 analysis_risks 表，入库时分配新的 ID，之后不可变。
type Risk struct {
	ID                    string `gorm:"type:char(36);primaryKey" json:"id"`
	AnalysisID            string `gorm:"type:char(36);not null;index" json:"-"`
	Position              int    `gorm:"not null" json:"-"`
	Level                 string `gorm:"type:varchar(8);not null" json:"level"`
	Category              string `gorm:"type:varchar(64);not null" json:"category"`
	Description           string `gorm:"type:text" json:"description"`
	Citation              string `gorm:"type:text" json:"citation"`
	Recommendation        string `gorm:"type:text" json:"recommendation"`
	Confidence            string `gorm:"type:varchar(8)" json:"confidence,omitempty"`
	ContextReasoning      string `gorm:"type:text" json:"contextReasoning,omitempty"`
	FoundInReferencedDocs bool   `json:"foundInReferencedDocs"`
}

func (Risk) TableName() string {
	return "analysis_risks"
}

// Recommendation 对应 analysis_recommendations 表。
type Recommendation struct {
	ID                uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	AnalysisID        string `gorm:"type:char(36);not null;index" json:"-"`
	Position          int    `gorm:"not null" json:"-"`
	Priority          string `gorm:"type:varchar(8)" json:"priority"`
	ClauseTitle       string `gorm:"type:varchar(255)" json:"clauseTitle"`
	CurrentClause     string `gorm:"type:text" json:"currentClause,omitempty"`
	RecommendedClause string `gorm:"type:text" json:"recommendedClause"`
	LegalBasis        string `gorm:"type:text" json:"legalBasis"`
}

func (Recommendation) TableName() string {
	return "analysis_recommendations"
}
