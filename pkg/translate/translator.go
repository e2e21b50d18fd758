// Package translate 提供语言检测与基于大模型的翻译，并在译文上替换固定的法律术语。
package translate

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"indialaw-go/pkg/llm"
	"indialaw-go/pkg/log"
)

// DefaultLanguage 是系统默认语言，模型以该语言作答。
const DefaultLanguage = "en"

// Detector 是外部语言检测服务，*tika.Client 实现了该接口。
type Detector interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
}

var languageNames = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"ta": "Tamil",
	"bn": "Bengali",
	"te": "Telugu",
	"mr": "Marathi",
	"gu": "Gujarati",
	"kn": "Kannada",
	"ml": "Malayalam",
	"pa": "Punjabi",
}

// glossary 把英文法律术语映射为目标语言的规范译法。
var glossary = map[string][]term{
	"hi": {
		{english: "Reverse Charge Mechanism", localized: "रिवर्स चार्ज मैकेनिज्म"},
		{english: "GST", localized: "जीएसटी"},
	},
	"ta": {
		{english: "GST", localized: "ஜி.எஸ்.டி"},
	},
}

type term struct {
	english   string
	localized string
}

// Translator 组合语言检测与大模型翻译。
type Translator struct {
	detector Detector
	llm      llm.Client
	gen      llm.GenerationParams
}

// NewTranslator 创建 Translator，detector 可以为 nil（仅使用字符集判断）。
func NewTranslator(detector Detector, llmClient llm.Client, gen llm.GenerationParams) *Translator {
	return &Translator{detector: detector, llm: llmClient, gen: gen}
}

// DetectLanguage 先按印度文字的 Unicode 区段判断，再询问检测服务，都无结果时返回默认语言。
func (t *Translator) DetectLanguage(ctx context.Context, text string) string {
	if lang := ScriptLanguage(text); lang != "" {
		return lang
	}
	if t.detector == nil || strings.TrimSpace(text) == "" {
		return DefaultLanguage
	}
	lang, err := t.detector.DetectLanguage(ctx, text)
	if err != nil || lang == "" {
		if err != nil {
			log.Warnf("[Translator] 语言检测失败, 使用默认语言: %v", err)
		}
		return DefaultLanguage
	}
	return strings.ToLower(lang)
}

// Translate 将文本翻译为目标语言并应用术语表。目标为默认语言或文本为空时原样返回。
func (t *Translator) Translate(ctx context.Context, text, target string) (string, error) {
	if strings.TrimSpace(text) == "" || target == "" || target == DefaultLanguage {
		return text, nil
	}
	name, ok := languageNames[target]
	if !ok {
		name = target
	}
	messages := []llm.Message{
		{
			Role: "system",
			Content: fmt.Sprintf("You are a professional legal translator. Translate the user's text into %s. "+
				"Preserve statute names, section numbers, citations and formatting. Return only the translation.", name),
		},
		{Role: "user", Content: text},
	}
	translated, err := t.llm.Generate(ctx, messages, t.gen)
	if err != nil {
		return "", fmt.Errorf("translation to %s failed: %w", target, err)
	}
	return ApplyGlossary(strings.TrimSpace(translated), target), nil
}

// ApplyGlossary 把译文中残留的英文术语替换为目标语言的规范译法（大小写不敏感）。
func ApplyGlossary(text, lang string) string {
	for _, tm := range glossary[lang] {
		text = replaceFold(text, tm.english, tm.localized)
	}
	return text
}

func replaceFold(s, old, replacement string) string {
	lowerOld := strings.ToLower(old)
	var b strings.Builder
	for {
		idx := indexFold(s, lowerOld)
		if idx < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:idx])
		b.WriteString(replacement)
		s = s[idx+len(old):]
	}
}

// indexFold 仅用于 ASCII 术语，保证字节偏移与原串一致。
func indexFold(s, lowerOld string) int {
	n := len(lowerOld)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], lowerOld) {
			return i
		}
	}
	return -1
}

// ScriptLanguage 根据文本中出现的印度文字判断语言，未识别时返回空串。
func ScriptLanguage(text string) string {
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Devanagari, r):
			return "hi"
		case unicode.Is(unicode.Tamil, r):
			return "ta"
		case unicode.Is(unicode.Bengali, r):
			return "bn"
		case unicode.Is(unicode.Telugu, r):
			return "te"
		}
	}
	return ""
}
