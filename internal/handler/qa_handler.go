package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"indialaw-go/internal/service"
	"indialaw-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// QAHandler 负责文档问答相关的 API 请求。
type QAHandler struct {
	qaService service.QAService
}

// NewQAHandler 创建一个新的 QAHandler 实例。
func NewQAHandler(qaService service.QAService) *QAHandler {
	return &QAHandler{qaService: qaService}
}

// GetSession 返回 (文档, 当前用户) 的问答会话，不存在时创建。
func (h *QAHandler) GetSession(c *gin.Context) {
	session, err := h.qaService.GetOrCreateSession(c.Request.Context(), c.Param("documentId"), currentUserID(c))
	if err != nil {
		respondError(c, "GetQASession", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Ask 以 SSE 流式返回回答。首个字节发出之前的错误按普通 JSON 错误响应返回。
func (h *QAHandler) Ask(c *gin.Context) {
	var req service.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question and documentId required"})
		return
	}

	sink := &sseSink{c: c}
	err := h.qaService.Ask(c.Request.Context(), req, currentUserID(c), sink)
	if err == nil {
		return
	}
	if !sink.started {
		respondError(c, "Ask", err)
		return
	}
	if c.Request.Context().Err() != nil {
		log.Infof("Ask: 客户端已断开, DocumentID: %s", req.DocumentID)
		return
	}
	log.Errorf("Ask: 流式回答失败, DocumentID: %s, Error: %v", req.DocumentID, err)
	msg := err.Error()
	if statusFor(err) == http.StatusInternalServerError {
		msg = "AI service temporarily unavailable"
	}
	_ = sink.send(sseEvent{Type: "error", Error: msg})
}

type sseEvent struct {
	Chunk  *string `json:"chunk,omitempty"`
	Type   string  `json:"type"`
	Answer *string `json:"answer,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// sseSink 把回答片段写成 "data: <json>\n\n" 事件。
type sseSink struct {
	c       *gin.Context
	started bool
}

func (s *sseSink) Content(chunk string) error {
	return s.send(sseEvent{Chunk: &chunk, Type: "content"})
}

func (s *sseSink) Complete(answer string) error {
	empty := ""
	return s.send(sseEvent{Chunk: &empty, Type: "complete", Answer: &answer})
}

func (s *sseSink) send(ev sseEvent) error {
	if err := s.c.Request.Context().Err(); err != nil {
		return err
	}
	if !s.started {
		h := s.c.Writer.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.c.Status(http.StatusOK)
		s.started = true
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.c.Writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.c.Writer.Flush()
	return nil
}
