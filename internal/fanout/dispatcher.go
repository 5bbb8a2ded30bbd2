// Package fanout persists chat events and delivers them to the live
// connections entitled to see them.
//
// Every persisted event is appended to the durable log before any delivery,
// under one dispatch lock, so two listeners of the same channel observe the
// same order as the log. Nothing is promised across channels.
package fanout

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/zylo/internal/models"
	ws "github.com/thereayou/zylo/internal/websocket"
	"github.com/thereayou/zylo/pkg/apperrors"
)

type LogStore interface {
	AppendPublic(msg models.Message) error
	AppendRoom(roomID string, msg models.Message) error
	AppendDirect(dm models.DirectMessage) error
}

type Membership interface {
	IsMember(roomID, user string) bool
}

// Identity resolves user names for direct messages.
type Identity interface {
	UserExists(ctx context.Context, username string) (bool, error)
}

type Registry interface {
	Clients() []*ws.Client
	RoomClients(roomID string) []*ws.Client
	UserClients(user string) []*ws.Client
}

// Result describes what happened to one event. Dropped is set when the event
// was silently refused, which callers must not report back to the sender.
type Result struct {
	Dropped   bool
	Delivered int
	Failed    int
}

type Dispatcher struct {
	mu       sync.Mutex
	store    LogStore
	rooms    Membership
	identity Identity
	registry Registry
	log      *slog.Logger
	now      func() time.Time
}

func NewDispatcher(store LogStore, rooms Membership, identity Identity, registry Registry, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		rooms:    rooms,
		identity: identity,
		registry: registry,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func validate(sender string, content models.Content) error {
	if strings.TrimSpace(sender) == "" {
		return apperrors.InvalidArg("sender is required")
	}
	if content.IsEmpty() {
		return apperrors.ErrEmptyMessage
	}
	return nil
}

// SendPublic appends to the public feed then delivers to every live
// connection, the sender's own included.
func (d *Dispatcher) SendPublic(_ context.Context, sender string, content models.Content) (Result, error) {
	if err := validate(sender, content); err != nil {
		return Result{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	msg := models.NewMessage(sender, content, d.now())
	if err := d.store.AppendPublic(msg); err != nil {
		d.log.Error("Public message not persisted", "sender", sender, "error", err)
		return Result{}, err
	}

	eventType := ws.TypeReceiveMessage
	if msg.IsFile() {
		eventType = ws.TypeReceiveFile
	}
	data, err := ws.Encode(eventType, "", sender, msg)
	if err != nil {
		return Result{}, err
	}
	return d.deliverGlobal(data, uuid.Nil), nil
}

// SendGroup appends to a room log then delivers to the connections
// subscribed to the room. A sender outside the room is dropped without
// persistence, delivery or error.
func (d *Dispatcher) SendGroup(_ context.Context, roomID, sender string, content models.Content) (Result, error) {
	if err := validate(sender, content); err != nil {
		return Result{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.rooms.IsMember(roomID, sender) {
		d.log.Debug("Group message dropped, sender is not a member", "room_id", roomID, "sender", sender)
		return Result{Dropped: true}, nil
	}

	msg := models.NewMessage(sender, content, d.now())
	if err := d.store.AppendRoom(roomID, msg); err != nil {
		d.log.Error("Group message not persisted", "room_id", roomID, "sender", sender, "error", err)
		return Result{}, err
	}

	eventType := ws.TypeReceiveGroupMessage
	if msg.IsFile() {
		eventType = ws.TypeReceiveGroupFile
	}
	data, err := ws.Encode(eventType, roomID, sender, msg)
	if err != nil {
		return Result{}, err
	}
	return d.deliverScoped(roomID, data, uuid.Nil), nil
}

// SendDirect appends to the DM ledger then delivers to every connection of
// the recipient and of the sender, so the sender's other sessions stay in
// sync.
func (d *Dispatcher) SendDirect(ctx context.Context, from, to string, content models.Content) (Result, error) {
	if err := validate(from, content); err != nil {
		return Result{}, err
	}
	if from == to {
		return Result{}, apperrors.ErrSelfMessage
	}
	for _, user := range []string{from, to} {
		exists, err := d.identity.UserExists(ctx, user)
		if err != nil {
			return Result{}, apperrors.Wrap(apperrors.CodeInternal, "identity lookup failed", err)
		}
		if !exists {
			return Result{}, apperrors.ErrUserNotFound
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	dm := models.NewDirectMessage(from, to, content, d.now())
	if err := d.store.AppendDirect(dm); err != nil {
		d.log.Error("Direct message not persisted", "from", from, "to", to, "error", err)
		return Result{}, err
	}

	data, err := ws.Encode(ws.TypeReceiveDM, "", from, dm)
	if err != nil {
		return Result{}, err
	}
	return d.deliverToUsers([]string{to, from}, data, uuid.Nil), nil
}

// TypingSignal is ephemeral. GroupID scopes it to a room, To to a direct
// conversation; neither means the public channel.
type TypingSignal struct {
	Username string `json:"username"`
	GroupID  string `json:"groupId,omitempty"`
	To       string `json:"to,omitempty"`
}

// Typing relays a typing signal to the other connections of its channel.
// The originating connection never receives its own signal and nothing is
// persisted.
func (d *Dispatcher) Typing(origin uuid.UUID, signal TypingSignal) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := ws.Encode(ws.TypeTyping, signal.GroupID, signal.Username, signal)
	if err != nil {
		return Result{}
	}

	switch {
	case signal.GroupID != "":
		if !d.rooms.IsMember(signal.GroupID, signal.Username) {
			return Result{Dropped: true}
		}
		return d.deliverScoped(signal.GroupID, data, origin)
	case signal.To != "":
		if signal.Username == "" || signal.To == signal.Username {
			return Result{Dropped: true}
		}
		return d.deliverToUsers([]string{signal.To, signal.Username}, data, origin)
	default:
		return d.deliverGlobal(data, origin)
	}
}
