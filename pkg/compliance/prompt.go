// Package compliance 负责合规分析的提示词构造、模型输出解析与本地评分。
package compliance

import (
	"fmt"
	"strings"

	"indialaw-go/pkg/extraction"
)

// TruncationMarker 追加在被截断的正文之后。
const TruncationMarker = "\n[... document truncated]"

// Input 是一次合规分析的输入。
type Input struct {
	Text                string
	ReferencedDocuments []string
	KnowledgeContext    []string
}

// TruncateText 只保留前 maxChars 个字符，超出部分直接丢弃并追加截断标记。
func TruncateText(text string, maxChars int) string {
	prefix := extraction.Prefix(text, maxChars)
	if len(prefix) == len(text) {
		return text
	}
	return prefix + TruncationMarker
}

const analysisInstructions = `INSTRUCTIONS:
1. First, check whether a clause exists in the main document OR in the referenced documents.
2. Only flag a risk if the clause is missing from BOTH the main document and the incorporated documents.
3. For the Reverse Charge Mechanism (RCM), check Notification 13/2017 carefully. Works contracts are NOT generally under RCM; only flag RCM for notified categories.
4. Context-dependent analysis: data processing present means a DPDP risk (HIGH if missing); no data processing means no DPDP risk (or LOW).
5. Give a confidence (HIGH/MEDIUM/LOW) for each risk.
6. For missing clauses, give the EXACT recommended clause text.

You MUST return valid JSON with this structure:
{
  "indiaLawScore": number (0-100),
  "riskSummary": { "high": number, "medium": number, "low": number },
  "categoryScores": [
    { "category": "GST" | "Labor" | "Contract Validity" | "Data Protection", "score": number }
  ],
  "risks": [
    {
      "level": "HIGH" | "MEDIUM" | "LOW",
      "category": string,
      "description": string,
      "citation": string (specific section number),
      "recommendation": string,
      "confidence": "HIGH" | "MEDIUM" | "LOW",
      "foundInReferencedDocs": boolean,
      "contextReasoning": string
    }
  ],
  "recommendations": [
    {
      "priority": "HIGH" | "MEDIUM" | "LOW",
      "clauseTitle": string,
      "currentClause": string | null,
      "recommendedClause": string,
      "legalBasis": string
    }
  ],
  "knowledgeBaseCitations": ["Section X of Act Y"]
}

Return ONLY the JSON object, no other text.`

// BuildPrompt 生成合规分析提示词，调用方负责先截断正文。
func BuildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("You are IndiaLawAI, a legal compliance analysis agent specialised in Indian law ")
	b.WriteString("(GST, labour codes, the Indian Contract Act and the Digital Personal Data Protection Act).\n\n")
	b.WriteString("CONTEXT PROVIDED:\n1. Main Document Text:\n---\n")
	b.WriteString(in.Text)
	b.WriteString("\n---\n\n2. Referenced Documents Mentioned:\n")
	if len(in.ReferencedDocuments) == 0 {
		b.WriteString("None detected\n")
	}
	for _, doc := range in.ReferencedDocuments {
		fmt.Fprintf(&b, "- %s\n", doc)
	}
	b.WriteString("\n3. Relevant Legal Knowledge Base Context:\n")
	if len(in.KnowledgeContext) == 0 {
		b.WriteString("No additional context available\n")
	} else {
		b.WriteString(strings.Join(in.KnowledgeContext, "\n\n---\n\n"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(analysisInstructions)
	return b.String()
}
