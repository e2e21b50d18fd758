package handler

import (
	"errors"
	"io"
	"net/http"

	"indialaw-go/internal/service"
	"indialaw-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UploadHandler 负责处理文档上传相关的 API 请求。
type UploadHandler struct {
	uploadService service.UploadService
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(uploadService service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Upload 接收 multipart 字段 "file"，保存后立即返回，处理在后台进行。
func (h *UploadHandler) Upload(c *gin.Context) {
	maxBytes := h.uploadService.MaxFileBytes()
	// 额外预留 1MB 给 multipart 边界和其他表单字段
	limit := maxBytes + 1<<20
	if c.Request.ContentLength > limit {
		respondError(c, "Upload", service.ErrFileTooLarge(maxBytes))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, "Upload", service.ErrFileTooLarge(maxBytes))
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	if fileHeader.Size > maxBytes {
		respondError(c, "Upload", service.ErrFileTooLarge(maxBytes))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, "Upload: open multipart file", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, "Upload: read multipart file", err)
		return
	}

	userID := currentUserID(c)
	log.Infof("Upload: 收到文件 %s, 大小: %d, 用户: %d", fileHeader.Filename, len(data), userID)
	doc, err := h.uploadService.Submit(c.Request.Context(), service.UploadRequest{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, userID)
	if err != nil {
		respondError(c, "Upload", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documentId": doc.ID,
		"status":     doc.Status,
		"message":    "Document uploaded successfully. Processing started.",
	})
}

// SupportedTypes 返回允许上传的文件类型。
func (h *UploadHandler) SupportedTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    h.uploadService.SupportedFileTypes(),
	})
}
