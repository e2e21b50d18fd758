package handler

import (
	"net/http"

	"indialaw-go/internal/service"
	"indialaw-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 负责处理所有与文档管理相关的 API 请求。
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// List 返回当前用户的文档，按上传时间倒序。
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docService.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, "ListDocuments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// Get 返回单个文档及其处理状态，客户端轮询该接口。
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.docService.Get(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		respondError(c, "GetDocument", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Download 返回原始文件的临时下载链接。
func (h *DocumentHandler) Download(c *gin.Context) {
	info, err := h.docService.DownloadURL(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		respondError(c, "DownloadDocument", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Delete 删除文档及其全部派生数据。
func (h *DocumentHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.docService.Delete(c.Request.Context(), id, currentUserID(c)); err != nil {
		respondError(c, "DeleteDocument", err)
		return
	}
	log.Infof("DeleteDocument: 文档 %s 已删除", id)
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}
