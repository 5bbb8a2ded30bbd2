// Package rooms keeps the registry of group rooms and their members. It is
// the authority for every membership check made by the dispatcher and the
// connection hub.
package rooms

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/thereayou/zylo/internal/models"
	"github.com/thereayou/zylo/pkg/apperrors"
)

const maxIDAttempts = 3

// Persister is the part of the durable store the directory writes through.
type Persister interface {
	CreateRoom(room models.Room) error
	SetMembers(roomID string, members []string) error
	Rooms() []models.Room
}

type Directory struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room
	store Persister
	log   *slog.Logger
	newID func() string
	now   func() time.Time
}

type Option func(*Directory)

// WithIDGenerator replaces the uuid based room id generator.
func WithIDGenerator(gen func() string) Option {
	return func(d *Directory) { d.newID = gen }
}

func NewDirectory(store Persister, log *slog.Logger, opts ...Option) *Directory {
	d := &Directory{
		rooms: make(map[string]*models.Room),
		store: store,
		log:   log,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, room := range store.Rooms() {
		r := room.Summary()
		d.rooms[r.ID] = &r
	}
	return d
}

// CreateRoom registers a room owned by owner, who becomes its first member.
// A generated id that is already taken is retried a few times before
// ErrRoomIDCollision is returned.
func (d *Directory) CreateRoom(owner, name, description string) (models.Room, error) {
	owner = strings.TrimSpace(owner)
	name = strings.TrimSpace(name)
	if owner == "" || name == "" {
		return models.Room{}, apperrors.InvalidArg("room owner and name are required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := d.newID()
		if _, taken := d.rooms[id]; taken {
			d.log.Warn("Room id collision, retrying", "room_id", id, "attempt", attempt+1)
			continue
		}
		room := models.Room{
			ID:          id,
			Name:        name,
			Description: description,
			Owner:       owner,
			Members:     []string{owner},
			CreatedAt:   d.now(),
		}
		err := d.store.CreateRoom(room)
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			d.log.Warn("Room id collision in store, retrying", "room_id", id, "attempt", attempt+1)
			continue
		}
		if err != nil && !apperrors.HasCode(err, apperrors.CodeStoreWrite) {
			return models.Room{}, err
		}
		d.rooms[id] = &room
		d.log.Info("Room created", "room_id", id, "owner", owner, "name", name)
		return room.Summary(), err
	}
	return models.Room{}, apperrors.ErrRoomIDCollision
}

// Join adds user to the room. Joining a room twice is not an error.
func (d *Directory) Join(roomID, user string) (models.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return models.Room{}, apperrors.ErrRoomNotFound
	}
	if room.HasMember(user) {
		return room.Summary(), nil
	}
	room.Members = append(room.Members, user)
	err := d.persistMembers(room)
	return room.Summary(), err
}

// Leave removes user from the room. The owner cannot leave; leaving a room
// one is not part of is a no-op.
func (d *Directory) Leave(roomID, user string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return apperrors.ErrRoomNotFound
	}
	if room.Owner == user {
		return apperrors.ErrOwnerCannotLeave
	}
	if !room.HasMember(user) {
		return nil
	}
	room.Members = lo.Without(room.Members, user)
	return d.persistMembers(room)
}

func (d *Directory) persistMembers(room *models.Room) error {
	if err := d.store.SetMembers(room.ID, room.Members); err != nil {
		d.log.Error("Failed to persist room members", "room_id", room.ID, "error", err)
		return err
	}
	return nil
}

func (d *Directory) IsMember(roomID, user string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.rooms[roomID]
	return ok && user != "" && room.HasMember(user)
}

func (d *Directory) Room(roomID string) (models.Room, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return models.Room{}, apperrors.ErrRoomNotFound
	}
	return room.Summary(), nil
}

// RoomsOf lists the rooms user belongs to, oldest first.
func (d *Directory) RoomsOf(user string) []models.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []models.Room
	for _, room := range d.rooms {
		if room.HasMember(user) {
			result = append(result, room.Summary())
		}
	}
	slices.SortFunc(result, func(a, b models.Room) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
