package models

import (
	"slices"
	"time"
)

// Room is a named group room. Owner is always part of Members.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       string    `json:"owner"`
	Members     []string  `json:"members"`
	Messages    []Message `json:"messages"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (r *Room) HasMember(username string) bool {
	return slices.Contains(r.Members, username)
}

// Summary returns a copy of the room without its message log.
func (r *Room) Summary() Room {
	return Room{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Owner:       r.Owner,
		Members:     slices.Clone(r.Members),
		CreatedAt:   r.CreatedAt,
	}
}
