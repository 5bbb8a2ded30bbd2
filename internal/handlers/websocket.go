package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/thereayou/zylo/internal/middleware"
	ws "github.com/thereayou/zylo/internal/websocket"
)

type WebSocketHandler struct {
	hub            *ws.Hub
	upgrader       websocket.Upgrader
	maxMessageSize int64
	log            *slog.Logger
}

func NewWebSocketHandler(hub *ws.Hub, maxMessageSize int, log *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		maxMessageSize: int64(maxMessageSize),
		log:            log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// TODO: restrict origins once the web client has a fixed host
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket upgrades the request and starts the connection pumps. The
// username set by WSAuthMiddleware is empty for anonymous connections.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := ws.NewClient(h.hub, conn, middleware.Username(c))
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.maxMessageSize)
}
