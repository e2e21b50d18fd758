// Package pipeline 定义了文档处理的后台流程：抽取正文、合规分析、重新分析。
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"indialaw-go/internal/config"
	"indialaw-go/internal/model"
	"indialaw-go/internal/repository"
	"indialaw-go/pkg/compliance"
	"indialaw-go/pkg/extraction"
	"indialaw-go/pkg/log"
	"indialaw-go/pkg/metrics"
	"indialaw-go/pkg/storage"
	"indialaw-go/pkg/tasks"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TextExtractor 从文件内容中抽取正文。
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, fileName string) (*extraction.Result, error)
}

// ComplianceAnalyzer 对正文执行合规分析。
type ComplianceAnalyzer interface {
	Analyze(ctx context.Context, in compliance.Input) (*compliance.Result, error)
}

// KnowledgeSearcher 检索知识库。
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]model.KnowledgeHit, error)
}

// GuardReleaser 在重新分析结束后释放互斥标记。
type GuardReleaser interface {
	Release(ctx context.Context, documentID string) error
}

// Processor 封装了文档处理的所有依赖和逻辑。
type Processor struct {
	docs      repository.DocumentRepository
	analyses  repository.AnalysisRepository
	store     storage.Store
	extractor TextExtractor
	analyzer  ComplianceAnalyzer
	knowledge KnowledgeSearcher
	guard     GuardReleaser
	cfg       config.AnalysisConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	docs repository.DocumentRepository,
	analyses repository.AnalysisRepository,
	store storage.Store,
	extractor TextExtractor,
	analyzer ComplianceAnalyzer,
	knowledge KnowledgeSearcher,
	guard GuardReleaser,
	cfg config.AnalysisConfig,
) *Processor {
	return &Processor{
		docs:      docs,
		analyses:  analyses,
		store:     store,
		extractor: extractor,
		analyzer:  analyzer,
		knowledge: knowledge,
		guard:     guard,
		cfg:       cfg,
	}
}

// Process 根据任务类型执行完整处理或重新分析。
func (p *Processor) Process(ctx context.Context, job tasks.DocumentJob) error {
	switch job.Kind {
	case tasks.KindProcess, "":
		return p.process(ctx, job)
	case tasks.KindReanalyze:
		return p.reanalyze(ctx, job)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (p *Processor) process(ctx context.Context, job tasks.DocumentJob) error {
	log.Infof("[Processor] 开始处理文档, DocumentID: %s, FileName: %s, UserID: %d", job.DocumentID, job.FileName, job.UserID)

	doc, err := p.docs.FindByID(ctx, job.DocumentID)
	if err != nil {
		log.Errorf("[Processor] 读取文档记录失败, DocumentID: %s, Error: %v", job.DocumentID, err)
		return err
	}
	var text *model.DocumentText
	switch doc.Status {
	case model.StatusProcessing:
		text, err = p.extract(ctx, doc)
		if err != nil {
			p.fail(ctx, doc.ID, err)
			return err
		}
	case model.StatusExtracted:
		// 抽取后进程中断，消息被重新投递时从分析步骤继续
		log.Infof("[Processor] 文档已抽取, 从分析步骤继续, DocumentID: %s", doc.ID)
		text, err = p.docs.FindText(ctx, doc.ID)
		if err != nil {
			p.fail(ctx, doc.ID, err)
			return err
		}
	default:
		log.Warnf("[Processor] 文档状态为 %s, 跳过处理, DocumentID: %s", doc.Status, doc.ID)
		return nil
	}

	analysis, err := p.analyze(ctx, doc, text)
	if err != nil {
		p.fail(ctx, doc.ID, err)
		return err
	}

	err = p.docs.TransitionStatus(ctx, doc.ID, []model.DocumentStatus{model.StatusExtracted}, model.StatusCompleted,
		map[string]interface{}{"analysis_id": analysis.ID, "error_message": ""})
	if err != nil {
		log.Errorf("[Processor] 更新文档为 completed 失败, DocumentID: %s, Error: %v", doc.ID, err)
		return err
	}
	log.Infof("[Processor] 文档处理成功完成, DocumentID: %s, AnalysisID: %s, Score: %d", doc.ID, analysis.ID, analysis.IndiaLawScore)
	return nil
}

// extract 下载原始文件、抽取正文并写入 document_texts，然后进入 extracted 状态。
func (p *Processor) extract(ctx context.Context, doc *model.Document) (text *model.DocumentText, err error) {
	start := time.Now()
	defer func() {
		metrics.PipelineStepDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())
		metrics.PipelineResults.WithLabelValues("extract", metrics.Result(err)).Inc()
	}()

	log.Infof("[Processor] 步骤1: 从对象存储下载文件, Object: %s", doc.StoragePath)
	object, err := p.store.Get(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	if size == 0 {
		return nil, errors.New("uploaded file is empty")
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d 字节", size)

	log.Info("[Processor] 步骤2: 抽取文本内容")
	result, err := p.extractor.Extract(ctx, buf.Bytes(), doc.OriginalName)
	if err != nil {
		return nil, fmt.Errorf("text extraction failed: %w", err)
	}

	refs, err := json.Marshal(result.ReferencedDocuments)
	if err != nil {
		return nil, err
	}
	text = &model.DocumentText{
		DocumentID:          doc.ID,
		UserID:              doc.UserID,
		Text:                result.Text,
		Language:            result.Language,
		PageCount:           result.PageCount,
		ReferencedDocuments: datatypes.JSON(refs),
	}
	if err := p.docs.SaveText(ctx, text); err != nil {
		return nil, fmt.Errorf("saving extracted text failed: %w", err)
	}

	err = p.docs.TransitionStatus(ctx, doc.ID, []model.DocumentStatus{model.StatusProcessing}, model.StatusExtracted,
		map[string]interface{}{"language": result.Language, "page_count": result.PageCount})
	if err != nil {
		return nil, err
	}
	log.Infof("[Processor] 步骤2: 文本抽取成功, 语言: %s, 页数: %d, 引用文件: %d",
		result.Language, result.PageCount, len(result.ReferencedDocuments))
	return text, nil
}

// analyze 查询知识库、调用合规分析并写入一条新的 Analysis。
func (p *Processor) analyze(ctx context.Context, doc *model.Document, text *model.DocumentText) (analysis *model.Analysis, err error) {
	start := time.Now()
	defer func() {
		metrics.PipelineStepDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
		metrics.PipelineResults.WithLabelValues("analyze", metrics.Result(err)).Inc()
	}()

	var referenced []string
	if len(text.ReferencedDocuments) > 0 {
		if err := json.Unmarshal(text.ReferencedDocuments, &referenced); err != nil {
			log.Warnf("[Processor] 解析引用文件列表失败, DocumentID: %s, Error: %v", doc.ID, err)
		}
	}

	log.Info("[Processor] 步骤3: 查询知识库")
	knowledgeContext := p.searchKnowledge(ctx, extraction.Prefix(text.Text, p.cfg.KBQueryChars))

	log.Info("[Processor] 步骤4: 调用模型进行合规分析")
	result, err := p.analyzer.Analyze(ctx, compliance.Input{
		Text:                text.Text,
		ReferencedDocuments: referenced,
		KnowledgeContext:    knowledgeContext,
	})
	if err != nil {
		return nil, fmt.Errorf("compliance analysis failed: %w", err)
	}

	citations, err := json.Marshal(result.Citations)
	if err != nil {
		return nil, err
	}
	analysis = &model.Analysis{
		ID:                     uuid.NewString(),
		DocumentID:             doc.ID,
		UserID:                 doc.UserID,
		IndiaLawScore:          result.IndiaLawScore,
		RiskSummary:            result.RiskSummary,
		CategoryScores:         result.CategoryScores,
		Risks:                  result.Risks,
		Recommendations:        result.Recommendations,
		KnowledgeBaseCitations: datatypes.JSON(citations),
		ProcessingTimeMs:       time.Since(start).Milliseconds(),
	}
	if err := p.analyses.Create(ctx, analysis); err != nil {
		return nil, fmt.Errorf("saving analysis failed: %w", err)
	}
	log.Infof("[Processor] 步骤4: 分析结果已保存, AnalysisID: %s, 风险数: %d", analysis.ID, analysis.RiskSummary.Total())
	return analysis, nil
}

// searchKnowledge 知识库不可用时返回空上下文，不影响分析。
func (p *Processor) searchKnowledge(ctx context.Context, query string) []string {
	if p.knowledge == nil || query == "" {
		return nil
	}
	hits, err := p.knowledge.Search(ctx, query, p.cfg.KBTopK)
	if err != nil {
		log.Warnf("[Processor] 知识库查询失败, 继续分析: %v", err)
		return nil
	}
	snippets := make([]string, 0, len(hits))
	for _, h := range hits {
		snippets = append(snippets, h.Text)
	}
	return snippets
}

// reanalyze 只重新执行分析步骤，不会把文档退回 processing。
func (p *Processor) reanalyze(ctx context.Context, job tasks.DocumentJob) error {
	log.Infof("[Processor] 开始重新分析, DocumentID: %s", job.DocumentID)
	defer func() {
		if p.guard == nil {
			return
		}
		if err := p.guard.Release(context.Background(), job.DocumentID); err != nil {
			log.Warnf("[Processor] 释放重新分析标记失败, DocumentID: %s, Error: %v", job.DocumentID, err)
		}
	}()

	doc, err := p.docs.FindByID(ctx, job.DocumentID)
	if err != nil {
		return err
	}
	text, err := p.docs.FindText(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("document text unavailable: %w", err)
	}

	previous := doc.Status
	analysis, err := p.analyze(ctx, doc, text)
	if err != nil {
		log.Errorf("[Processor] 重新分析失败, DocumentID: %s, Error: %v", doc.ID, err)
		// completed 文档保留原有分析，error 文档只更新错误信息
		if previous == model.StatusError {
			if uerr := p.docs.TransitionStatus(context.WithoutCancel(ctx), doc.ID, []model.DocumentStatus{model.StatusError}, model.StatusError,
				map[string]interface{}{"error_message": err.Error()}); uerr != nil {
				log.Warnf("[Processor] 更新错误信息失败, DocumentID: %s, Error: %v", doc.ID, uerr)
			}
		}
		return err
	}

	from := []model.DocumentStatus{model.StatusCompleted, model.StatusError, model.StatusExtracted}
	err = p.docs.TransitionStatus(ctx, doc.ID, from, model.StatusCompleted,
		map[string]interface{}{"analysis_id": analysis.ID, "error_message": ""})
	if err != nil {
		log.Errorf("[Processor] 重新分析后更新文档失败, DocumentID: %s, Error: %v", doc.ID, err)
		return err
	}
	log.Infof("[Processor] 重新分析完成, DocumentID: %s, AnalysisID: %s", doc.ID, analysis.ID)
	return nil
}

// fail 把非终态文档置为 error 并记录原因。停机取消 ctx 时仍需写入，否则文档会停在中间状态。
func (p *Processor) fail(ctx context.Context, documentID string, cause error) {
	from := []model.DocumentStatus{model.StatusProcessing, model.StatusExtracted}
	err := p.docs.TransitionStatus(context.WithoutCancel(ctx), documentID, from, model.StatusError,
		map[string]interface{}{"error_message": cause.Error()})
	if err != nil {
		log.Errorf("[Processor] 标记文档失败状态时出错, DocumentID: %s, Error: %v", documentID, err)
		return
	}
	log.Warnf("[Processor] 文档处理失败, DocumentID: %s, Error: %v", documentID, cause)
}
