package handler

import (
	"errors"
	"net/http"

	"indialaw-go/internal/model"
	"indialaw-go/pkg/log"
	"indialaw-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// statusFor 将业务错误映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrNotReady):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError 写出统一的错误响应。500 只在非 release 模式下附带原始错误信息。
func respondError(c *gin.Context, action string, err error) {
	status := statusFor(err)
	if status != http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	log.Errorf("%s: %v", action, err)
	body := gin.H{"error": "Internal server error"}
	if gin.Mode() != gin.ReleaseMode {
		body["details"] = err.Error()
	}
	c.JSON(status, body)
}

// currentUserID 读取 AuthMiddleware 注入的用户 ID。
func currentUserID(c *gin.Context) uint {
	if v, ok := c.Get("user"); ok {
		if u, ok := v.(*model.User); ok && u != nil {
			return u.ID
		}
	}
	if v, ok := c.Get("claims"); ok {
		if claims, ok := v.(*token.CustomClaims); ok {
			return claims.UserID
		}
	}
	return 0
}
