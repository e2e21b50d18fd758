package handler

import (
	"net/http"

	"indialaw-go/internal/service"

	"github.com/gin-gonic/gin"
)

// AnalysisHandler 负责处理合规分析相关的 API 请求。
type AnalysisHandler struct {
	analysisService service.AnalysisService
}

// NewAnalysisHandler 创建一个新的 AnalysisHandler 实例。
func NewAnalysisHandler(analysisService service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// GetLatest 返回文档最近一次的分析结果。
func (h *AnalysisHandler) GetLatest(c *gin.Context) {
	analysis, err := h.analysisService.GetLatest(c.Request.Context(), c.Param("documentId"), currentUserID(c))
	if err != nil {
		respondError(c, "GetAnalysis", err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// History 返回文档的全部分析，最新的在前。
func (h *AnalysisHandler) History(c *gin.Context) {
	analyses, err := h.analysisService.History(c.Request.Context(), c.Param("documentId"), currentUserID(c))
	if err != nil {
		respondError(c, "AnalysisHistory", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": analyses})
}

// Analyze 触发重新分析并立即返回 202。
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	documentID := c.Param("documentId")
	if err := h.analysisService.TriggerReanalysis(c.Request.Context(), documentID, currentUserID(c)); err != nil {
		respondError(c, "TriggerAnalysis", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Analysis triggered", "documentId": documentID})
}
