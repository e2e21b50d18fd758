// Package extraction 在 Tika 文本抽取之上补充页数、语言和引用文档识别。
package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"indialaw-go/pkg/log"
)

// ErrEmptyText 表示文件可以解析但没有任何可用文本。
var ErrEmptyText = errors.New("no text could be extracted from the document")

// Backend 是底层文本抽取服务，*tika.Client 实现了该接口。
type Backend interface {
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
	Metadata(ctx context.Context, r io.Reader, fileName string) (map[string]interface{}, error)
}

// LanguageDetector 检测文本语言，失败时应返回默认语言而不是错误。
type LanguageDetector interface {
	DetectLanguage(ctx context.Context, text string) string
}

// Result 是一次抽取的结果。
type Result struct {
	Text                string
	Language            string
	PageCount           int
	ReferencedDocuments []string
}

// Extractor 组合 Backend 与 LanguageDetector。
type Extractor struct {
	backend  Backend
	detector LanguageDetector
}

// NewExtractor 创建 Extractor。
func NewExtractor(backend Backend, detector LanguageDetector) *Extractor {
	return &Extractor{backend: backend, detector: detector}
}

// 语言检测只取文本开头
const languageSampleRunes = 1000

var pageCountKeys = []string{"xmpTPg:NPages", "meta:page-count", "Page-Count"}

// Extract 抽取文本及其附属信息。
func (e *Extractor) Extract(ctx context.Context, data []byte, fileName string) (*Result, error) {
	text, err := e.backend.ExtractText(ctx, bytes.NewReader(data), fileName)
	if err != nil {
		return nil, fmt.Errorf("文本抽取失败: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	pageCount := 0
	meta, err := e.backend.Metadata(ctx, bytes.NewReader(data), fileName)
	if err != nil {
		log.Warnf("[Extractor] 获取文档元数据失败, fileName: %s, error: %v", fileName, err)
	} else {
		pageCount = pageCountFromMeta(meta)
	}
	if pageCount <= 0 {
		pageCount = 1
	}

	return &Result{
		Text:                text,
		Language:            e.detector.DetectLanguage(ctx, Prefix(text, languageSampleRunes)),
		PageCount:           pageCount,
		ReferencedDocuments: ReferencedDocuments(text),
	}, nil
}

// pageCountFromMeta 兼容 Tika 返回字符串、数字或数组形式的页数。
func pageCountFromMeta(meta map[string]interface{}) int {
	for _, key := range pageCountKeys {
		v, ok := meta[key]
		if !ok {
			continue
		}
		if arr, ok := v.([]interface{}); ok && len(arr) > 0 {
			v = arr[0]
		}
		switch n := v.(type) {
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return i
			}
		case float64:
			return int(n)
		}
	}
	return 0
}

// Prefix 返回文本的前 n 个字符（按 rune 计）。
func Prefix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}
