package store

import (
	"slices"

	"github.com/samber/lo"
	"github.com/thereayou/zylo/internal/models"
	"github.com/thereayou/zylo/pkg/apperrors"
)

func (s *Store) roomIndex(id string) int {
	return slices.IndexFunc(s.rooms.items, func(r models.Room) bool { return r.ID == id })
}

// CreateRoom persists a new room. An existing id is never overwritten.
func (s *Store) CreateRoom(room models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roomIndex(room.ID) >= 0 {
		return apperrors.ErrRoomIDCollision
	}
	if !room.HasMember(room.Owner) {
		room.Members = append([]string{room.Owner}, room.Members...)
	}
	if room.Messages == nil {
		room.Messages = []models.Message{}
	}
	s.rooms.items = append(s.rooms.items, room)
	return s.rooms.flush()
}

// SetMembers replaces the member list of a room and flushes the rooms file.
func (s *Store) SetMembers(roomID string, members []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.roomIndex(roomID)
	if i < 0 {
		return apperrors.ErrRoomNotFound
	}
	s.rooms.items[i].Members = slices.Clone(members)
	return s.rooms.flush()
}

// AppendRoom appends to the log embedded in a room and flushes the rooms file.
func (s *Store) AppendRoom(roomID string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.roomIndex(roomID)
	if i < 0 {
		return apperrors.ErrRoomNotFound
	}
	s.rooms.items[i].Messages = append(s.rooms.items[i].Messages, msg)
	return s.rooms.flush()
}

func (s *Store) RoomMessages(roomID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.roomIndex(roomID)
	if i < 0 {
		return nil, apperrors.ErrRoomNotFound
	}
	return slices.Clone(s.rooms.items[i].Messages), nil
}

// Rooms returns every room without its log.
func (s *Store) Rooms() []models.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Map(s.rooms.items, func(r models.Room, _ int) models.Room { return r.Summary() })
}

func (s *Store) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms.items)
}
