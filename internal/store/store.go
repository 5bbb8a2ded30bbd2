// Package store is the durable log: the public feed, the group rooms with
// their embedded logs, the direct-message ledger and the fallback account
// list, each held in memory and rewritten as a whole JSON array on every
// mutation.
//
// A Store expects to be the only writer of its directory. Two processes
// sharing the same files race, and the last whole-collection rewrite wins.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/thereayou/zylo/internal/models"
	"github.com/thereayou/zylo/pkg/apperrors"
)

const (
	PublicFile = "messages.json"
	RoomsFile  = "groups.json"
	DirectFile = "dms.json"
	UsersFile  = "users.json"
)

type Options struct {
	Dir string
	// PublicCap bounds the public feed, oldest entries are dropped first.
	// Zero keeps everything.
	PublicCap int
}

type Store struct {
	mu        sync.RWMutex
	public    *collection[models.Message]
	rooms     *collection[models.Room]
	direct    *collection[models.DirectMessage]
	users     *collection[models.User]
	publicCap int
}

// Open loads every collection from opts.Dir, creating missing files.
//
// Corrupted collections do not prevent startup: they are replaced by empty
// ones and Open returns a usable Store together with an error matching
// apperrors.CodeStoreCorrupt. Any other error comes with a nil Store.
func Open(opts Options) (*Store, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{publicCap: opts.PublicCap}
	var err error
	if s.public, err = openCollection[models.Message](filepath.Join(opts.Dir, PublicFile)); err != nil {
		return nil, err
	}
	if s.rooms, err = openCollection[models.Room](filepath.Join(opts.Dir, RoomsFile)); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	if s.direct, err = openCollection[models.DirectMessage](filepath.Join(opts.Dir, DirectFile)); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	if s.users, err = openCollection[models.User](filepath.Join(opts.Dir, UsersFile)); err != nil {
		return nil, errors.Join(err, s.Close())
	}

	var corrupt []error
	for _, load := range []func() error{s.public.load, s.rooms.load, s.direct.load, s.users.load} {
		if err := load(); err != nil {
			if !apperrors.HasCode(err, apperrors.CodeStoreCorrupt) {
				return nil, errors.Join(err, s.Close())
			}
			corrupt = append(corrupt, err)
		}
	}
	s.normalizeRooms()
	if err := s.migrateLegacyPasswords(); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, errors.Join(corrupt...)
}

// normalizeRooms restores owner ∈ members on rooms written by older versions.
func (s *Store) normalizeRooms() {
	for i := range s.rooms.items {
		room := &s.rooms.items[i]
		if room.Owner != "" && !room.HasMember(room.Owner) {
			room.Members = append([]string{room.Owner}, room.Members...)
		}
		room.Members = lo.Uniq(room.Members)
		if room.Messages == nil {
			room.Messages = []models.Message{}
		}
	}
}

func (s *Store) Close() error {
	var errs []error
	if s.public != nil {
		errs = append(errs, s.public.close())
	}
	if s.rooms != nil {
		errs = append(errs, s.rooms.close())
	}
	if s.direct != nil {
		errs = append(errs, s.direct.close())
	}
	if s.users != nil {
		errs = append(errs, s.users.close())
	}
	return errors.Join(errs...)
}

// AppendPublic appends to the public feed and flushes it. On a write failure
// the entry stays in memory and is served by queries until the next restart.
func (s *Store) AppendPublic(msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.public.items = append(s.public.items, msg)
	if s.publicCap > 0 && len(s.public.items) > s.publicCap {
		s.public.items = slices.Clone(s.public.items[len(s.public.items)-s.publicCap:])
	}
	return s.public.flush()
}

func (s *Store) PublicMessages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.public.items)
}

// AppendDirect appends to the DM ledger and flushes it.
func (s *Store) AppendDirect(dm models.DirectMessage) error {
	if dm.From == dm.To {
		return apperrors.ErrSelfMessage
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.direct.items = append(s.direct.items, dm)
	return s.direct.flush()
}

// Conversation returns the ledger entries exchanged between a and b, oldest
// first. The result does not depend on argument order.
func (s *Store) Conversation(a, b string) []models.DirectMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.direct.items, func(dm models.DirectMessage, _ int) bool {
		return dm.Between(a, b)
	})
}

// MessageCount is the number of persisted entries across every channel kind.
func (s *Store) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := len(s.public.items) + len(s.direct.items)
	for _, room := range s.rooms.items {
		total += len(room.Messages)
	}
	return total
}
