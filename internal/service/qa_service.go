package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"indialaw-go/internal/config"
	"indialaw-go/internal/model"
	"indialaw-go/internal/repository"
	"indialaw-go/pkg/extraction"
	"indialaw-go/pkg/llm"
	"indialaw-go/pkg/log"
	"indialaw-go/pkg/metrics"
	"indialaw-go/pkg/translate"

	"gorm.io/datatypes"
)

// AskRequest 是一次提问。
type AskRequest struct {
	DocumentID string `json:"documentId"`
	Question   string `json:"question"`
	SessionID  string `json:"sessionId"`
}

// StreamSink 接收流式回答。Content 按模型产出顺序调用，Complete 只调用一次。
type StreamSink interface {
	Content(chunk string) error
	Complete(answer string) error
}

// LanguageTranslator 检测语言并翻译回答。
type LanguageTranslator interface {
	DetectLanguage(ctx context.Context, text string) string
	Translate(ctx context.Context, text, target string) (string, error)
}

// QAService 定义了基于文档的问答操作。
type QAService interface {
	GetOrCreateSession(ctx context.Context, documentID string, userID uint) (*model.QASession, error)
	Ask(ctx context.Context, req AskRequest, userID uint, sink StreamSink) error
}

type qaService struct {
	docs       repository.DocumentRepository
	analyses   repository.AnalysisRepository
	qa         repository.QARepository
	knowledge  KnowledgeSearcher
	llmClient  llm.Client
	translator LanguageTranslator
	gen        llm.GenerationParams
	cfg        config.QAConfig
}

// NewQAService 创建一个新的 QAService 实例。
func NewQAService(
	docs repository.DocumentRepository,
	analyses repository.AnalysisRepository,
	qa repository.QARepository,
	knowledge KnowledgeSearcher,
	llmClient llm.Client,
	translator LanguageTranslator,
	gen llm.GenerationParams,
	cfg config.QAConfig,
) QAService {
	return &qaService{
		docs:       docs,
		analyses:   analyses,
		qa:         qa,
		knowledge:  knowledge,
		llmClient:  llmClient,
		translator: translator,
		gen:        gen,
		cfg:        cfg,
	}
}

// GetOrCreateSession 返回 (文档, 用户) 的会话，不存在时创建。
func (s *qaService) GetOrCreateSession(ctx context.Context, documentID string, userID uint) (*model.QASession, error) {
	if _, err := s.docs.GetOwned(ctx, documentID, userID); err != nil {
		return nil, err
	}
	return s.qa.GetOrCreate(ctx, documentID, userID)
}

// Ask 流式回答问题。只有回答完整送达后才会写入会话历史。
func (s *qaService) Ask(ctx context.Context, req AskRequest, userID uint, sink StreamSink) (err error) {
	defer func() { metrics.QARequests.WithLabelValues(metrics.Result(err)).Inc() }()

	question := strings.TrimSpace(req.Question)
	if req.DocumentID == "" || question == "" {
		return fmt.Errorf("question and documentId required: %w", model.ErrValidation)
	}

	// 1. 加载文档、正文、最近一次分析
	doc, err := s.docs.GetOwned(ctx, req.DocumentID, userID)
	if err != nil {
		return err
	}
	text, err := s.docs.FindText(ctx, doc.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotReady
		}
		return err
	}
	analysis, err := s.analyses.Latest(ctx, doc.ID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}

	// 2. 会话与历史
	var session *model.QASession
	var history []model.ChatMessage
	if req.SessionID != "" {
		session, err = s.qa.FindSession(ctx, req.SessionID, doc.ID, userID)
		if err != nil {
			return err
		}
		history = session.Messages
	}

	// 3. 语言检测与知识库检索
	language := s.translator.DetectLanguage(ctx, question)
	hits := s.searchKnowledge(ctx, question)
	log.Infof("[QAService] 开始回答, DocumentID: %s, 语言: %s, 历史消息: %d, 知识片段: %d", doc.ID, language, len(history), len(hits))

	// 4. 流式生成
	messages := composeMessages(buildSystemPrompt(extraction.Prefix(text.Text, s.cfg.ContextChars), analysis, hits), history, question)
	var answer strings.Builder
	err = s.llmClient.StreamChatMessages(ctx, messages, s.gen, func(chunk string) error {
		answer.WriteString(chunk)
		return sink.Content(chunk)
	})
	if err != nil {
		log.Warnf("[QAService] 流式回答中止, DocumentID: %s, Error: %v", doc.ID, err)
		return err
	}

	// 5. 按需翻译
	full := answer.String()
	if language != translate.DefaultLanguage && full != "" {
		full, err = s.translator.Translate(ctx, full, language)
		if err != nil {
			return fmt.Errorf("translate answer: %w", err)
		}
	}

	if err := sink.Complete(full); err != nil {
		return err
	}
	if full == "" {
		return nil
	}

	// 6. 回答已送达，写入会话
	if session == nil {
		session, err = s.qa.GetOrCreate(ctx, doc.ID, userID)
		if err != nil {
			log.Errorf("[QAService] 获取会话失败, DocumentID: %s, Error: %v", doc.ID, err)
			return nil
		}
	}
	now := time.Now()
	userMsg := model.ChatMessage{Role: model.RoleUserMessage, Content: question, Language: language, CreatedAt: now}
	assistantMsg := model.ChatMessage{Role: model.RoleAssistantMessage, Content: full, Language: language, Citations: citationsJSON(hits), CreatedAt: now}
	// 请求上下文可能已结束，使用独立上下文保存已送达的回答
	if err := s.qa.AppendExchange(context.WithoutCancel(ctx), session.ID, userMsg, assistantMsg); err != nil {
		log.Errorf("[QAService] 保存会话失败, SessionID: %s, Error: %v", session.ID, err)
	}
	return nil
}

func (s *qaService) searchKnowledge(ctx context.Context, question string) []model.KnowledgeHit {
	if s.knowledge == nil {
		return nil
	}
	hits, err := s.knowledge.Search(ctx, question, s.cfg.KBTopK)
	if err != nil {
		log.Warnf("[QAService] 知识库检索失败, 继续回答: %v", err)
		return nil
	}
	return hits
}

func buildSystemPrompt(documentText string, analysis *model.Analysis, hits []model.KnowledgeHit) string {
	var sb strings.Builder
	sb.WriteString("You are a grounded legal Q&A assistant for Indian law. Answer only from the context below, cite laws when relevant, and say so when the context does not contain the answer. Always answer in English.\n\n")
	sb.WriteString("CONTEXT:\n1. Document text:\n---\n")
	sb.WriteString(documentText)
	sb.WriteString("\n---\n\n2. Document analysis:\n")
	if analysis != nil {
		fmt.Fprintf(&sb, "- IndiaLaw Score: %d\n- %d risks identified (high %d, medium %d, low %d)\n",
			analysis.IndiaLawScore, len(analysis.Risks), analysis.RiskSummary.High, analysis.RiskSummary.Medium, analysis.RiskSummary.Low)
	} else {
		sb.WriteString("- Not analyzed yet\n")
	}
	sb.WriteString("\n3. Legal knowledge:\n")
	if len(hits) == 0 {
		sb.WriteString("None\n")
	}
	for i, h := range hits {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		fmt.Fprintf(&sb, "[%s] %s\n", h.SourceName, h.Text)
	}
	return sb.String()
}

func composeMessages(systemPrompt string, history []model.ChatMessage, question string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: systemPrompt})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: question})
	return msgs
}

func citationsJSON(hits []model.KnowledgeHit) datatypes.JSON {
	if len(hits) == 0 {
		return nil
	}
	names := make([]string, 0, len(hits))
	seen := make(map[string]bool)
	for _, h := range hits {
		if !seen[h.SourceName] {
			seen[h.SourceName] = true
			names = append(names, h.SourceName)
		}
	}
	b, _ := json.Marshal(names)
	return datatypes.JSON(b)
}
