package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/thereayou/zylo/internal/handlers/dto"
	"github.com/thereayou/zylo/internal/middleware"
	"github.com/thereayou/zylo/internal/models"
	"github.com/thereayou/zylo/internal/rooms"
	ws "github.com/thereayou/zylo/internal/websocket"
	"github.com/thereayou/zylo/pkg/apperrors"
)

type RoomHandler struct {
	rooms *rooms.Directory
	hub   *ws.Hub
}

func NewRoomHandler(directory *rooms.Directory, hub *ws.Hub) *RoomHandler {
	return &RoomHandler{rooms: directory, hub: hub}
}

// CreateRoom creates a group room owned by the caller.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.CreateRoom(middleware.Username(c), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.formatRoomResponse(room))
}

// GetMyRooms lists the rooms the caller belongs to.
func (h *RoomHandler) GetMyRooms(c *gin.Context) {
	rooms := h.rooms.RoomsOf(middleware.Username(c))
	c.JSON(http.StatusOK, gin.H{"rooms": lo.Map(rooms, func(r models.Room, _ int) gin.H {
		return h.formatRoomResponse(r)
	})})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, ok := h.memberRoom(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.formatRoomResponse(room))
}

// JoinRoom only changes membership. Connections start receiving the room
// once they send join_group.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	room, err := h.rooms.Join(c.Param("id"), middleware.Username(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.formatRoomResponse(room))
}

func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	roomID, user := c.Param("id"), middleware.Username(c)
	if err := h.rooms.Leave(roomID, user); err != nil {
		respondError(c, err)
		return
	}
	h.hub.UnsubscribeUser(roomID, user)
	c.JSON(http.StatusOK, gin.H{"message": "left room successfully"})
}

func (h *RoomHandler) GetRoomMembers(c *gin.Context) {
	room, ok := h.memberRoom(c)
	if !ok {
		return
	}

	online := h.hub.GetRoomUsers(room.ID)
	members := lo.Map(room.Members, func(member string, _ int) gin.H {
		return gin.H{
			"username":  member,
			"is_online": lo.Contains(online, member),
			"is_owner":  member == room.Owner,
		}
	})
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// memberRoom loads the room in the path for a member. Non members get the
// same answer as for an unknown room.
func (h *RoomHandler) memberRoom(c *gin.Context) (models.Room, bool) {
	roomID := c.Param("id")
	if !h.rooms.IsMember(roomID, middleware.Username(c)) {
		respondError(c, apperrors.ErrRoomNotFound)
		return models.Room{}, false
	}
	room, err := h.rooms.Room(roomID)
	if err != nil {
		respondError(c, err)
		return models.Room{}, false
	}
	return room, true
}

func (h *RoomHandler) formatRoomResponse(room models.Room) gin.H {
	return gin.H{
		"id":           room.ID,
		"name":         room.Name,
		"description":  room.Description,
		"owner":        room.Owner,
		"members":      room.Members,
		"created_at":   room.CreatedAt,
		"online_count": len(h.hub.GetRoomUsers(room.ID)),
	}
}
