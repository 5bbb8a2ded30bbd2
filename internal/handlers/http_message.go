package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/zylo/internal/middleware"
	"github.com/thereayou/zylo/internal/rooms"
	"github.com/thereayou/zylo/internal/store"
	ws "github.com/thereayou/zylo/internal/websocket"
	"github.com/thereayou/zylo/pkg/apperrors"
)

// HTTPMessageHandler serves the read side of the logs, newest entry last.
type HTTPMessageHandler struct {
	store    *store.Store
	rooms    *rooms.Directory
	hub      *ws.Hub
	accounts Accounts
}

func NewHTTPMessageHandler(s *store.Store, directory *rooms.Directory, hub *ws.Hub, accounts Accounts) *HTTPMessageHandler {
	return &HTTPMessageHandler{store: s, rooms: directory, hub: hub, accounts: accounts}
}

// tail keeps the last limit entries when a positive ?limit= is given.
func tail[T any](c *gin.Context, items []T) []T {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 || limit >= len(items) {
		return items
	}
	return items[len(items)-limit:]
}

func (h *HTTPMessageHandler) GetPublicMessages(c *gin.Context) {
	c.JSON(http.StatusOK, tail(c, h.store.PublicMessages()))
}

// GetGroupMessages answers not found for rooms the caller is not part of,
// whether or not they exist.
func (h *HTTPMessageHandler) GetGroupMessages(c *gin.Context) {
	roomID := c.Param("id")
	if !h.rooms.IsMember(roomID, middleware.Username(c)) {
		respondError(c, apperrors.ErrRoomNotFound)
		return
	}

	messages, err := h.store.RoomMessages(roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tail(c, messages))
}

// GetConversation returns the direct messages between user1 and user2. Only
// the two participants may read it.
func (h *HTTPMessageHandler) GetConversation(c *gin.Context) {
	user1, user2 := c.Query("user1"), c.Query("user2")
	if user1 == "" || user2 == "" {
		respondError(c, apperrors.InvalidArg("user1 and user2 are required"))
		return
	}
	caller := middleware.Username(c)
	if caller != user1 && caller != user2 {
		respondError(c, apperrors.ErrNotParticipant)
		return
	}

	c.JSON(http.StatusOK, tail(c, h.store.Conversation(user1, user2)))
}

func (h *HTTPMessageHandler) GetStats(c *gin.Context) {
	users, err := h.accounts.CountUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":    users,
		"messages": h.store.MessageCount(),
		"rooms":    h.rooms.Count(),
		"online":   len(h.hub.GetOnlineUsers()),
	})
}
