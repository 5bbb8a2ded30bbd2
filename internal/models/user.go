package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"passwordHash"`
	// LegacyPassword is the cleartext field of older users.json files. It is
	// hashed into PasswordHash on load and never written back.
	LegacyPassword string `gorm:"-" json:"password,omitempty"`
	AvatarURL    string    `json:"avatar,omitempty"`
	LastSeenAt   time.Time `json:"lastSeenAt"`
	CreatedAt    time.Time `json:"createdAt"`
}
