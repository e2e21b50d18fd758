package handler

import (
	"context"
	"net/http"
	"time"

	"indialaw-go/internal/model"
	"indialaw-go/internal/service"
	"indialaw-go/pkg/log"
	"indialaw-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// WatchHandler 通过 WebSocket 推送文档状态变化。
type WatchHandler struct {
	docService  service.DocumentService
	userService service.UserService
	jwtManager  *token.JWTManager
	interval    time.Duration
}

// NewWatchHandler 创建一个新的 WatchHandler。
func NewWatchHandler(docService service.DocumentService, userService service.UserService, jwtManager *token.JWTManager, interval time.Duration) *WatchHandler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &WatchHandler{
		docService:  docService,
		userService: userService,
		jwtManager:  jwtManager,
		interval:    interval,
	}
}

// Handle 升级连接后定期检查文档状态，状态变化时推送整条文档记录，进入终态后关闭。
func (h *WatchHandler) Handle(c *gin.Context) {
	claims, err := h.jwtManager.VerifyToken(c.Param("token"), token.TypeAccess)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}
	if revoked, err := h.userService.IsRevoked(c.Request.Context(), claims); err != nil || revoked {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	documentID := c.Param("documentId")
	doc, err := h.docService.Get(c.Request.Context(), documentID, claims.UserID)
	if err != nil {
		respondError(c, "WatchDocument", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("WebSocket 状态订阅已建立，用户: %s, 文档: %s", claims.Username, documentID)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	// 客户端关闭连接时结束推送
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.watch(ctx, conn, doc, claims.UserID)
}

func (h *WatchHandler) watch(ctx context.Context, conn *websocket.Conn, doc *model.Document, userID uint) {
	if err := conn.WriteJSON(doc); err != nil {
		return
	}
	last := doc
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for !last.Status.IsTerminal() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		current, err := h.docService.Get(ctx, last.ID, userID)
		if err != nil {
			log.Warnf("WebSocket 查询文档失败, 文档: %s, error: %v", last.ID, err)
			_ = conn.WriteJSON(gin.H{"type": "error", "error": err.Error()})
			return
		}
		if current.Status == last.Status && current.UpdatedAt.Equal(last.UpdatedAt) {
			continue
		}
		if err := conn.WriteJSON(current); err != nil {
			return
		}
		last = current
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(last.Status)))
}
