package compliance

import (
	"encoding/json"
	"fmt"
	"strings"

	"indialaw-go/internal/model"

	"github.com/google/uuid"
)

// ParseError 表示模型输出不符合约定的结构。
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid model output: %s: %v", e.Reason, e.Err)
	}
	return "invalid model output: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Result 是校验和归一化之后的分析结果。
type Result struct {
	IndiaLawScore   int
	RiskSummary     model.RiskSummary
	CategoryScores  []model.CategoryScore
	Risks           []model.Risk
	Recommendations []model.Recommendation
	Citations       []string
}

type rawAnalysis struct {
	IndiaLawScore          *float64             `json:"indiaLawScore"`
	RiskSummary            *rawRiskSummary      `json:"riskSummary"`
	CategoryScores         *[]rawCategoryScore  `json:"categoryScores"`
	Risks                  *[]rawRisk           `json:"risks"`
	Recommendations        *[]rawRecommendation `json:"recommendations"`
	KnowledgeBaseCitations []string             `json:"knowledgeBaseCitations"`
}

type rawRiskSummary struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type rawCategoryScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

type rawRisk struct {
	Level                 string `json:"level"`
	Category              string `json:"category"`
	Description           string `json:"description"`
	Citation              string `json:"citation"`
	Recommendation        string `json:"recommendation"`
	Confidence            string `json:"confidence"`
	FoundInReferencedDocs bool   `json:"foundInReferencedDocs"`
	ContextReasoning      string `json:"contextReasoning"`
}

type rawRecommendation struct {
	Priority          string  `json:"priority"`
	ClauseTitle       string  `json:"clauseTitle"`
	CurrentClause     *string `json:"currentClause"`
	RecommendedClause string  `json:"recommendedClause"`
	LegalBasis        string  `json:"legalBasis"`
}

// ExtractJSON 截取从第一个 '{' 到最后一个 '}' 的片段，模型常在 JSON 前后附带说明文字。
func ExtractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// Parse 校验模型输出并转换为 Result。风险 ID 每次重新生成，风险计数与总分按风险列表重新计算。
func Parse(raw string) (*Result, error) {
	body, ok := ExtractJSON(raw)
	if !ok {
		return nil, &ParseError{Reason: "no JSON object found in response"}
	}

	var ra rawAnalysis
	if err := json.Unmarshal([]byte(body), &ra); err != nil {
		return nil, &ParseError{Reason: "malformed JSON", Err: err}
	}
	switch {
	case ra.IndiaLawScore == nil:
		return nil, &ParseError{Reason: "missing indiaLawScore"}
	case ra.RiskSummary == nil:
		return nil, &ParseError{Reason: "missing riskSummary"}
	case ra.CategoryScores == nil:
		return nil, &ParseError{Reason: "missing categoryScores"}
	case ra.Risks == nil:
		return nil, &ParseError{Reason: "missing risks"}
	case ra.Recommendations == nil:
		return nil, &ParseError{Reason: "missing recommendations"}
	}

	risks := make([]model.Risk, 0, len(*ra.Risks))
	for i, r := range *ra.Risks {
		level := normalizeLevel(r.Level)
		if level == "" {
			return nil, &ParseError{Reason: fmt.Sprintf("risk %d has invalid level %q", i, r.Level)}
		}
		if strings.TrimSpace(r.Category) == "" || strings.TrimSpace(r.Description) == "" {
			return nil, &ParseError{Reason: fmt.Sprintf("risk %d is missing category or description", i)}
		}
		risks = append(risks, model.Risk{
			ID:                    uuid.NewString(),
			Position:              i,
			Level:                 level,
			Category:              strings.TrimSpace(r.Category),
			Description:           strings.TrimSpace(r.Description),
			Citation:              strings.TrimSpace(r.Citation),
			Recommendation:        strings.TrimSpace(r.Recommendation),
			Confidence:            normalizeLevel(r.Confidence),
			ContextReasoning:      strings.TrimSpace(r.ContextReasoning),
			FoundInReferencedDocs: r.FoundInReferencedDocs,
		})
	}

	recs := make([]model.Recommendation, 0, len(*ra.Recommendations))
	for i, r := range *ra.Recommendations {
		if strings.TrimSpace(r.ClauseTitle) == "" || strings.TrimSpace(r.RecommendedClause) == "" {
			return nil, &ParseError{Reason: fmt.Sprintf("recommendation %d is missing clauseTitle or recommendedClause", i)}
		}
		priority := normalizeLevel(r.Priority)
		if priority == "" {
			priority = model.LevelMedium
		}
		rec := model.Recommendation{
			Position:          i,
			Priority:          priority,
			ClauseTitle:       strings.TrimSpace(r.ClauseTitle),
			RecommendedClause: strings.TrimSpace(r.RecommendedClause),
			LegalBasis:        strings.TrimSpace(r.LegalBasis),
		}
		if r.CurrentClause != nil {
			rec.CurrentClause = strings.TrimSpace(*r.CurrentClause)
		}
		recs = append(recs, rec)
	}

	citations := make([]string, 0, len(ra.KnowledgeBaseCitations))
	for _, c := range ra.KnowledgeBaseCitations {
		if c = strings.TrimSpace(c); c != "" {
			citations = append(citations, c)
		}
	}

	return &Result{
		IndiaLawScore:   Score(risks),
		RiskSummary:     Summarize(risks),
		CategoryScores:  normalizeCategoryScores(*ra.CategoryScores, risks),
		Risks:           risks,
		Recommendations: recs,
		Citations:       citations,
	}, nil
}

func normalizeLevel(s string) string {
	switch l := strings.ToUpper(strings.TrimSpace(s)); l {
	case model.LevelHigh, model.LevelMedium, model.LevelLow:
		return l
	default:
		return ""
	}
}

// normalizeCategoryScores 保证四个固定类别各有一项：模型给出的分数截断到 [0,100]，
// 缺失的类别按该类别下的风险本地计算，未知类别丢弃。
func normalizeCategoryScores(raw []rawCategoryScore, risks []model.Risk) []model.CategoryScore {
	given := make(map[string]int)
	for _, cs := range raw {
		cat := CanonicalCategory(cs.Category)
		if cat == "" {
			continue
		}
		if _, dup := given[cat]; dup {
			continue
		}
		given[cat] = roundScore(cs.Score)
	}

	out := make([]model.CategoryScore, 0, len(model.Categories))
	for _, cat := range model.Categories {
		score, ok := given[cat]
		if !ok {
			var inCategory []model.Risk
			for _, r := range risks {
				if CanonicalCategory(r.Category) == cat {
					inCategory = append(inCategory, r)
				}
			}
			score = Score(inCategory)
		}
		out = append(out, model.CategoryScore{Category: cat, Score: score})
	}
	return out
}

// CanonicalCategory 把模型给出的类别名映射到固定类别，无法识别时返回空串。
func CanonicalCategory(s string) string {
	l := strings.ToLower(strings.TrimSpace(s))
	switch {
	case l == "":
		return ""
	case strings.Contains(l, "gst") || strings.Contains(l, "tax"):
		return "GST"
	case strings.Contains(l, "labo"):
		return "Labor"
	case strings.Contains(l, "data") || strings.Contains(l, "privacy") || strings.Contains(l, "dpdp"):
		return "Data Protection"
	case strings.Contains(l, "contract"):
		return "Contract Validity"
	default:
		return ""
	}
}
