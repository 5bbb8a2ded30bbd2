package dto

import "time"

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type TokenResponse struct {
	Username       string    `json:"username"`
	Token          string    `json:"token"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt"`
}

// LoginRequest accepts either the username or the email as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type UserInfo struct {
	Username   string    `json:"username"`
	AvatarURL  string    `json:"avatar,omitempty"`
	LastSeenAt time.Time `json:"lastSeenAt"`
	Online     bool      `json:"online"`
}
