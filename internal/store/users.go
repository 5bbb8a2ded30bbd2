package store

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/zylo/internal/models"
	"github.com/thereayou/zylo/pkg/apperrors"
	"golang.org/x/crypto/bcrypt"
)

// The account methods let the store stand in for the identity database when
// no DATABASE_URL is configured.

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := slices.ContainsFunc(s.users.items, func(u models.User) bool {
		return strings.EqualFold(u.Username, user.Username) ||
			(user.Email != "" && strings.EqualFold(u.Email, user.Email))
	})
	if taken {
		return apperrors.ErrUsernameTaken
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users.items = append(s.users.items, *user)
	return s.users.flush()
}

// FindUser looks an account up by username or email.
func (s *Store) FindUser(_ context.Context, identifier string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := slices.IndexFunc(s.users.items, func(u models.User) bool {
		return u.Username == identifier || (u.Email != "" && strings.EqualFold(u.Email, identifier))
	})
	if i < 0 {
		return nil, apperrors.ErrUserNotFound
	}
	user := s.users.items[i]
	return &user, nil
}

func (s *Store) UserExists(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(s.users.items, func(u models.User) bool { return u.Username == username }), nil
}

func (s *Store) CountUsers(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users.items)), nil
}

func (s *Store) TouchUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.users.items, func(u models.User) bool { return u.Username == username })
	if i < 0 {
		return apperrors.ErrUserNotFound
	}
	s.users.items[i].LastSeenAt = time.Now().UTC()
	return s.users.flush()
}

// migrateLegacyPasswords hashes cleartext passwords left by older versions
// and rewrites users.json without them.
func (s *Store) migrateLegacyPasswords() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	migrated := false
	for i := range s.users.items {
		user := &s.users.items[i]
		if user.LegacyPassword == "" {
			continue
		}
		if user.PasswordHash == "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(user.LegacyPassword), bcrypt.DefaultCost)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, "hash legacy password", err)
			}
			user.PasswordHash = string(hash)
		}
		user.LegacyPassword = ""
		migrated = true
	}
	if !migrated {
		return nil
	}
	return s.users.flush()
}
