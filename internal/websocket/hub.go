// Package websocket is the connection registry: it tracks live sockets, the
// users behind them and the group rooms each socket listens to.
package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/thereayou/zylo/pkg/apperrors"
)

const (
	defaultQueueSize   = 256
	inboundChannelSize = 1024
)

// Authorizer answers the room membership question for subscriptions.
type Authorizer interface {
	IsMember(roomID, user string) bool
}

type Inbound struct {
	Client  *Client
	Message *Message
}

type Hub struct {
	clients map[uuid.UUID]*Client

	// one user may hold several connections
	userClients map[string]map[uuid.UUID]*Client

	// subscribed connections per group room
	rooms map[string]map[uuid.UUID]*Client

	inbound chan Inbound

	authz     Authorizer
	log       *slog.Logger
	queueSize int

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(authz Authorizer, log *slog.Logger, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[string]map[uuid.UUID]*Client),
		rooms:       make(map[string]map[uuid.UUID]*Client),
		inbound:     make(chan Inbound, inboundChannelSize),
		authz:       authz,
		log:         log,
		queueSize:   queueSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run processes inbound events one at a time until Stop is called. Every
// dispatcher operation therefore runs on this single goroutine.
func (h *Hub) Run(handler ClientMessageHandler) {
	for {
		select {
		case <-h.ctx.Done():
			return
		case in := <-h.inbound:
			h.handle(handler, in)
		}
	}
}

func (h *Hub) handle(handler ClientMessageHandler, in Inbound) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Recovered while handling event", "type", in.Message.Type, "client_id", in.Client.ID, "panic", r)
		}
	}()
	if err := handler.HandleMessage(in.Client, in.Message); err != nil {
		h.log.Info("Event declined", "type", in.Message.Type, "client_id", in.Client.ID, "error", err)
		in.Client.SendError(apperrors.PublicMessage(err))
	}
}

// Dispatch queues an inbound event for the hub loop. It returns false once
// the hub is stopped.
func (h *Hub) Dispatch(client *Client, msg *Message) bool {
	select {
	case h.inbound <- Inbound{Client: client, Message: msg}:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.close()
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
}

// Register adds a live connection. The first connection of a user announces
// the user as online.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if !client.Authenticated() {
		h.log.Debug("Anonymous client registered", "client_id", client.ID)
		return
	}

	first := false
	if _, ok := h.userClients[client.Username]; !ok {
		h.userClients[client.Username] = make(map[uuid.UUID]*Client)
		first = true
	}
	h.userClients[client.Username][client.ID] = client
	h.log.Info("Client registered", "client_id", client.ID, "user", client.Username)

	if first {
		h.notifyUserStatus(client.Username, TypeUserOnline)
	}
}

// Unregister drops every subscription of the connection and closes its
// queue. Events already queued are not recalled.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	for _, roomID := range client.GetRooms() {
		h.removeFromRoomUnsafe(client, roomID)
	}

	if userClients, ok := h.userClients[client.Username]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.Username)
			h.notifyUserStatus(client.Username, TypeUserOffline)
		}
	}

	delete(h.clients, client.ID)
	client.close()
	h.log.Info("Client unregistered", "client_id", client.ID, "user", client.Username)
}

// Subscribe makes the connection listen to a group room. It only happens
// when the connection's user is a member; otherwise nothing changes and the
// caller learns nothing about the room.
func (h *Hub) Subscribe(client *Client, roomID string) bool {
	if !h.authz.IsMember(roomID, client.Username) {
		h.log.Debug("Subscription ignored", "client_id", client.ID, "room_id", roomID)
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return false
	}
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[uuid.UUID]*Client)
	}
	h.rooms[roomID][client.ID] = client
	client.mu.Lock()
	client.Rooms[roomID] = true
	client.mu.Unlock()
	return true
}

// Unsubscribe stops delivery of room traffic to one connection. Membership
// and the user's other connections are untouched.
func (h *Hub) Unsubscribe(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomUnsafe(client, roomID)
}

// UnsubscribeUser removes every connection of user from the room, used once
// the user stopped being a member.
func (h *Hub) UnsubscribeUser(roomID, user string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.userClients[user] {
		h.removeFromRoomUnsafe(client, roomID)
	}
}

func (h *Hub) removeFromRoomUnsafe(client *Client, roomID string) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(room, client.ID)
	client.mu.Lock()
	delete(client.Rooms, roomID)
	client.mu.Unlock()

	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
}

// Clients returns every live connection.
func (h *Hub) Clients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Values(h.clients)
}

// RoomClients returns the connections subscribed to roomID.
func (h *Hub) RoomClients(roomID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Values(h.rooms[roomID])
}

// UserClients returns the connections authenticated as user.
func (h *Hub) UserClients(user string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Values(h.userClients[user])
}

func (h *Hub) notifyUserStatus(user string, status MessageType) {
	data, err := Encode(status, "", user, nil)
	if err != nil {
		return
	}
	for _, client := range h.clients {
		if err := client.Deliver(data); err != nil {
			h.log.Debug("Presence event not delivered", "client_id", client.ID, "error", err)
		}
	}
}

func (h *Hub) GetOnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Keys(h.userClients)
}

func (h *Hub) GetRoomUsers(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := lo.FilterMap(lo.Values(h.rooms[roomID]), func(c *Client, _ int) (string, bool) {
		return c.Username, c.Authenticated()
	})
	return lo.Uniq(users)
}
