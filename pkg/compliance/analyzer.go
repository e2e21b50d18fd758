package compliance

import (
	"context"
	"fmt"

	"indialaw-go/pkg/llm"
	"indialaw-go/pkg/log"
)

// Analyzer 调用大模型完成一次合规分析。
type Analyzer struct {
	llm      llm.Client
	gen      llm.GenerationParams
	maxChars int
}

// NewAnalyzer 创建 Analyzer，maxChars 为送入模型的正文字符上限。
func NewAnalyzer(llmClient llm.Client, gen llm.GenerationParams, maxChars int) *Analyzer {
	return &Analyzer{llm: llmClient, gen: gen, maxChars: maxChars}
}

// Analyze 截断正文、构造提示词、调用模型并解析结果。
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Result, error) {
	in.Text = TruncateText(in.Text, a.maxChars)
	prompt := BuildPrompt(in)

	raw, err := a.llm.Generate(ctx, []llm.Message{{Role: "user", Content: prompt}}, a.gen)
	if err != nil {
		return nil, fmt.Errorf("compliance model call failed: %w", err)
	}
	result, err := Parse(raw)
	if err != nil {
		log.Warnf("[Analyzer] 模型输出解析失败: %v", err)
		return nil, err
	}
	return result, nil
}
