package handler

import (
	"io"
	"net/http"

	"indialaw-go/internal/service"
	"indialaw-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理管理员的 API 请求。
type AdminHandler struct {
	knowledgeService service.KnowledgeService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(knowledgeService service.KnowledgeService) *AdminHandler {
	return &AdminHandler{knowledgeService: knowledgeService}
}

// UploadKnowledge 把一个法律参考文件导入知识库。
func (h *AdminHandler) UploadKnowledge(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "缺少文件", "data": nil})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, "UploadKnowledge: open multipart file", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, "UploadKnowledge: read multipart file", err)
		return
	}

	chunks, err := h.knowledgeService.Ingest(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		log.Warnf("UploadKnowledge: 导入失败, file: %s, error: %v", fileHeader.Filename, err)
		status := statusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			msg = "知识库导入失败"
		}
		c.JSON(status, gin.H{"code": status, "message": msg, "data": nil})
		return
	}
	log.Infof("UploadKnowledge: 已导入 %s, 分块数: %d", fileHeader.Filename, chunks)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"chunks": chunks}})
}
