package handler

import (
	"net/http"

	"indialaw-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ReportHandler 负责生成 PDF 报告。
type ReportHandler struct {
	reportService service.ReportService
}

// NewReportHandler 创建一个新的 ReportHandler 实例。
func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GeneratePDF 渲染分析报告并返回临时下载链接。
func (h *ReportHandler) GeneratePDF(c *gin.Context) {
	res, err := h.reportService.Generate(c.Request.Context(), c.Param("analysisId"), currentUserID(c))
	if err != nil {
		respondError(c, "GenerateReport", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
