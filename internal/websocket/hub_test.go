package websocket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/zylo/pkg/apperrors"
)

type members map[string][]string

func (m members) IsMember(roomID, user string) bool {
	for _, u := range m[roomID] {
		if u == user {
			return true
		}
	}
	return false
}

func newHub(authz Authorizer) *Hub {
	return NewHub(authz, logs.GetLoggerFromLevel(slog.LevelDebug), 4)
}

func drain(c *Client) []Message {
	var out []Message
	for {
		select {
		case raw, ok := <-c.Send:
			if !ok {
				return out
			}
			var msg Message
			if err := json.Unmarshal(raw, &msg); err == nil {
				out = append(out, msg)
			}
		default:
			return out
		}
	}
}

func TestHub_RegisterAnnouncesFirstConnection(t *testing.T) {
	req := require.New(t)
	hub := newHub(members{})

	watcher := NewClient(hub, nil, "")
	hub.Register(watcher)

	alice1 := NewClient(hub, nil, "alice")
	alice2 := NewClient(hub, nil, "alice")
	hub.Register(alice1)
	hub.Register(alice2)

	events := drain(watcher)
	req.Len(events, 1)
	req.Equal(TypeUserOnline, events[0].Type)
	req.Equal("alice", events[0].Username)
	req.Len(hub.UserClients("alice"), 2)
	req.Len(hub.Clients(), 3)
	req.ElementsMatch([]string{"alice"}, hub.GetOnlineUsers())

	hub.Unregister(alice1)
	req.Empty(drain(watcher))
	hub.Unregister(alice2)
	events = drain(watcher)
	req.Len(events, 1)
	req.Equal(TypeUserOffline, events[0].Type)
}

func TestHub_SubscribeRequiresMembership(t *testing.T) {
	req := require.New(t)
	hub := newHub(members{"g1": {"alice"}})

	alice := NewClient(hub, nil, "alice")
	bob := NewClient(hub, nil, "bob")
	anon := NewClient(hub, nil, "")
	hub.Register(alice)
	hub.Register(bob)
	hub.Register(anon)

	req.True(hub.Subscribe(alice, "g1"))
	req.False(hub.Subscribe(bob, "g1"))
	req.False(hub.Subscribe(anon, "g1"))
	req.False(hub.Subscribe(alice, "unknown"))

	req.Equal([]*Client{alice}, hub.RoomClients("g1"))
	req.True(alice.IsInRoom("g1"))
	req.False(bob.IsInRoom("g1"))
	req.Equal([]string{"alice"}, hub.GetRoomUsers("g1"))
}

func TestHub_SubscribeIsIdempotent(t *testing.T) {
	hub := newHub(members{"g1": {"alice"}})
	alice := NewClient(hub, nil, "alice")
	hub.Register(alice)

	require.True(t, hub.Subscribe(alice, "g1"))
	require.True(t, hub.Subscribe(alice, "g1"))
	require.Len(t, hub.RoomClients("g1"), 1)
}

func TestHub_UnsubscribeAndDisconnect(t *testing.T) {
	req := require.New(t)
	hub := newHub(members{"g1": {"alice", "bob"}, "g2": {"alice"}})

	alice := NewClient(hub, nil, "alice")
	bob := NewClient(hub, nil, "bob")
	hub.Register(alice)
	hub.Register(bob)
	hub.Subscribe(alice, "g1")
	hub.Subscribe(alice, "g2")
	hub.Subscribe(bob, "g1")

	hub.Unsubscribe(bob, "g1")
	req.Equal([]*Client{alice}, hub.RoomClients("g1"))

	hub.Unregister(alice)
	req.Empty(hub.RoomClients("g1"))
	req.Empty(hub.RoomClients("g2"))
	req.Empty(alice.GetRooms())
	req.ErrorIs(alice.Deliver([]byte("late")), ErrClientClosed)

	// a second unregister is harmless
	hub.Unregister(alice)
}

func TestHub_UnsubscribeUser(t *testing.T) {
	hub := newHub(members{"g1": {"bob"}})
	bob1 := NewClient(hub, nil, "bob")
	bob2 := NewClient(hub, nil, "bob")
	hub.Register(bob1)
	hub.Register(bob2)
	hub.Subscribe(bob1, "g1")
	hub.Subscribe(bob2, "g1")

	hub.UnsubscribeUser("g1", "bob")
	require.Empty(t, hub.RoomClients("g1"))
}

func TestClient_DeliverDoesNotBlock(t *testing.T) {
	req := require.New(t)
	hub := newHub(members{})
	c := NewClient(hub, nil, "alice")

	for i := 0; i < 4; i++ {
		req.NoError(c.Deliver([]byte("x")))
	}
	req.ErrorIs(c.Deliver([]byte("x")), ErrClientQueueFull)
}

type handlerFunc func(client *Client, msg *Message) error

func (f handlerFunc) HandleMessage(client *Client, msg *Message) error { return f(client, msg) }

func TestHub_RunProcessesEventsInOrder(t *testing.T) {
	req := require.New(t)
	hub := newHub(members{})
	client := NewClient(hub, nil, "")
	hub.Register(client)

	seen := make(chan MessageType, 3)
	go hub.Run(handlerFunc(func(_ *Client, msg *Message) error {
		if msg.Type == TypeTyping {
			panic("boom")
		}
		seen <- msg.Type
		if msg.Type == TypeJoinGroup {
			return apperrors.ErrRoomNotFound
		}
		return nil
	}))
	defer hub.Stop()

	req.True(hub.Dispatch(client, &Message{Type: TypeSendMessage}))
	req.True(hub.Dispatch(client, &Message{Type: TypeTyping}))
	req.True(hub.Dispatch(client, &Message{Type: TypeJoinGroup}))

	for _, want := range []MessageType{TypeSendMessage, TypeJoinGroup} {
		select {
		case got := <-seen:
			req.Equal(want, got)
		case <-time.After(time.Second):
			req.Fail("event was not handled in time")
		}
	}

	req.Eventually(func() bool { return len(client.Send) == 1 }, time.Second, 5*time.Millisecond)
	events := drain(client)
	req.Equal(TypeError, events[0].Type)
	req.JSONEq(`{"error":"room not found"}`, string(events[0].Data))
}

func TestHub_DispatchAfterStop(t *testing.T) {
	hub := NewHub(members{}, logs.GetLoggerFromLevel(slog.LevelDebug), 1)
	client := NewClient(hub, nil, "alice")
	hub.Register(client)
	hub.Stop()

	// fill the inbound buffer so only the stopped context can be selected
	for i := 0; i < inboundChannelSize; i++ {
		hub.inbound <- Inbound{Client: client, Message: &Message{}}
	}
	require.False(t, hub.Dispatch(client, &Message{Type: TypeSendMessage}))
	require.ErrorIs(t, client.Deliver([]byte("x")), ErrClientClosed)
}

func TestHub_ErrorEventHidesServerDetails(t *testing.T) {
	req := require.New(t)
	hub := newHub(members{})
	client := NewClient(hub, nil, "")
	hub.Register(client)

	go hub.Run(handlerFunc(func(_ *Client, msg *Message) error {
		if msg.Type == TypeSendGroupMessage {
			return apperrors.StoreWrite("./data/groups.json", errors.New("no space left on device"))
		}
		return errors.New("pq: connection refused")
	}))
	defer hub.Stop()

	req.True(hub.Dispatch(client, &Message{Type: TypeSendGroupMessage}))
	req.True(hub.Dispatch(client, &Message{Type: TypeSendDM}))

	req.Eventually(func() bool { return len(client.Send) == 2 }, time.Second, 5*time.Millisecond)
	for _, event := range drain(client) {
		req.Equal(TypeError, event.Type)
		req.JSONEq(`{"error":"internal error"}`, string(event.Data))
		req.NotContains(string(event.Data), "groups.json")
	}
}
