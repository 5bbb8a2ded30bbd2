package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ClientMessageHandler handles one inbound event. It is only ever called from
// the hub loop, one event at a time.
type ClientMessageHandler interface {
	HandleMessage(client *Client, msg *Message) error
}

// Client is one live connection. Username is empty for anonymous sockets.
type Client struct {
	ID       uuid.UUID
	Username string
	Conn     *websocket.Conn
	Send     chan []byte
	Rooms    map[string]bool
	Hub      *Hub

	mu     sync.RWMutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, username string) *Client {
	return &Client{
		ID:       uuid.New(),
		Username: username,
		Conn:     conn,
		Send:     make(chan []byte, hub.queueSize),
		Rooms:    make(map[string]bool),
		Hub:      hub,
	}
}

func (c *Client) Authenticated() bool {
	return c.Username != ""
}

// Deliver queues data without blocking. A full queue drops the event for
// this client only.
func (c *Client) Deliver(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Client) SendError(errorMsg string) {
	data, err := Encode(TypeError, "", "", map[string]string{"error": errorMsg})
	if err != nil {
		return
	}
	if err := c.Deliver(data); err != nil {
		c.Hub.log.Debug("Error event not delivered", "client_id", c.ID, "error", err)
	}
}

func (c *Client) IsInRoom(roomID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Rooms[roomID]
}

func (c *Client) GetRooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]string, 0, len(c.Rooms))
	for roomID := range c.Rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// ReadPump reads events from the socket and hands them to the hub loop.
func (c *Client) ReadPump(maxMessageSize int64) {
	defer func() {
		if r := recover(); r != nil {
			c.Hub.log.Error("Recovered in ReadPump", "client_id", c.ID, "panic", r)
		}
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warn("WebSocket read error", "client_id", c.ID, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.SendError(ErrInvalidMessage.Error())
			continue
		}
		if msg.Type == TypePong {
			continue
		}
		if !c.Hub.Dispatch(c, &msg) {
			return
		}
	}
}

// WritePump pushes queued events to the socket and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		if r := recover(); r != nil {
			c.Hub.log.Error("Recovered in WritePump", "client_id", c.ID, "panic", r)
		}
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.log.Debug("WebSocket write failed", "client_id", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
