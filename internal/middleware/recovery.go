package middleware

import (
	"fmt"
	"net/http"

	"indialaw-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// Recovery 把 panic 转换为与 handler 一致的 500 JSON 响应。
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Errorf("panic recovered: %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		body := gin.H{"error": "Internal server error"}
		if gin.Mode() != gin.ReleaseMode {
			body["details"] = fmt.Sprint(recovered)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}
