// Package report 将分析结果渲染为 PDF 报告。
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"indialaw-go/internal/model"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth  = 180.0
	lineHeight = 6.0
)

// Render 生成一份包含评分、风险与整改建议的 PDF。
func Render(analysis *model.Analysis, doc *model.Document, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("India Law Compliance Report", false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(pageWidth, 10, "India Law Compliance Report", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(pageWidth, lineHeight, tr("Document: "+doc.OriginalName), "", 1, "L", false, 0, "")
	pdf.CellFormat(pageWidth, lineHeight, "Analysis ID: "+analysis.ID, "", 1, "L", false, 0, "")
	pdf.CellFormat(pageWidth, lineHeight, "Generated: "+generatedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(pageWidth, 8, fmt.Sprintf("India Law Score: %d / 100", analysis.IndiaLawScore), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(pageWidth, lineHeight, fmt.Sprintf("Risks - High: %d   Medium: %d   Low: %d",
		analysis.RiskSummary.High, analysis.RiskSummary.Medium, analysis.RiskSummary.Low), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	section(pdf, "Category Scores")
	pdf.SetFont("Helvetica", "", 11)
	for _, cs := range analysis.CategoryScores {
		pdf.CellFormat(120, lineHeight, tr(cs.Category), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, lineHeight, fmt.Sprintf("%d", cs.Score), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	section(pdf, "Risks")
	if len(analysis.Risks) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(pageWidth, lineHeight, "No risks identified.", "", 1, "L", false, 0, "")
	}
	for i, r := range analysis.Risks {
		setLevelColor(pdf, r.Level)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(pageWidth, lineHeight, tr(fmt.Sprintf("%d. [%s] %s", i+1, r.Level, r.Category)), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(pageWidth, lineHeight, tr(r.Description), "", "L", false)
		if r.Citation != "" {
			pdf.MultiCell(pageWidth, lineHeight, tr("Citation: "+r.Citation), "", "L", false)
		}
		if r.Recommendation != "" {
			pdf.MultiCell(pageWidth, lineHeight, tr("Recommendation: "+r.Recommendation), "", "L", false)
		}
		pdf.Ln(2)
	}

	if len(analysis.Recommendations) > 0 {
		section(pdf, "Recommended Clauses")
		for i, rec := range analysis.Recommendations {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.MultiCell(pageWidth, lineHeight, tr(fmt.Sprintf("%d. %s (%s)", i+1, rec.ClauseTitle, rec.Priority)), "", "L", false)
			pdf.SetFont("Helvetica", "", 10)
			if rec.CurrentClause != "" {
				pdf.MultiCell(pageWidth, lineHeight, tr("Current: "+rec.CurrentClause), "", "L", false)
			}
			pdf.MultiCell(pageWidth, lineHeight, tr("Recommended: "+rec.RecommendedClause), "", "L", false)
			if rec.LegalBasis != "" {
				pdf.MultiCell(pageWidth, lineHeight, tr("Legal basis: "+rec.LegalBasis), "", "L", false)
			}
			pdf.Ln(2)
		}
	}

	if citations := decodeCitations(analysis); len(citations) > 0 {
		section(pdf, "Knowledge Base Citations")
		pdf.SetFont("Helvetica", "", 10)
		for _, c := range citations {
			pdf.MultiCell(pageWidth, lineHeight, tr("- "+c), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(pageWidth, 8, title, "B", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func setLevelColor(pdf *fpdf.Fpdf, level string) {
	switch level {
	case model.LevelHigh:
		pdf.SetTextColor(192, 0, 0)
	case model.LevelMedium:
		pdf.SetTextColor(204, 122, 0)
	default:
		pdf.SetTextColor(0, 128, 0)
	}
}

// 引用字段损坏时忽略，不影响报告生成
func decodeCitations(a *model.Analysis) []string {
	if len(a.KnowledgeBaseCitations) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(a.KnowledgeBaseCitations, &out); err != nil {
		return nil
	}
	return out
}
