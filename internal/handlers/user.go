package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/thereayou/zylo/internal/handlers/dto"
	"github.com/thereayou/zylo/internal/middleware"
	"github.com/thereayou/zylo/internal/models"
	ws "github.com/thereayou/zylo/internal/websocket"
)

type UserHandler struct {
	accounts Accounts
	hub      *ws.Hub
}

func NewUserHandler(accounts Accounts, hub *ws.Hub) *UserHandler {
	return &UserHandler{accounts: accounts, hub: hub}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.accounts.FindUser(c.Request.Context(), middleware.Username(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"avatar_url":   user.AvatarURL,
		"created_at":   user.CreatedAt,
		"last_seen_at": user.LastSeenAt,
	})
}

// GetUser returns the public profile of a user, used by clients to check a
// DM recipient before writing to them.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.accounts.FindUser(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.userInfo(user))
}

func (h *UserHandler) GetOnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.hub.GetOnlineUsers()})
}

func (h *UserHandler) userInfo(user *models.User) dto.UserInfo {
	return dto.UserInfo{
		Username:   user.Username,
		AvatarURL:  user.AvatarURL,
		LastSeenAt: user.LastSeenAt,
		Online:     lo.Contains(h.hub.GetOnlineUsers(), user.Username),
	}
}
