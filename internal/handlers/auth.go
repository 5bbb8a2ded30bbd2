package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/zylo/internal/handlers/dto"
	"github.com/thereayou/zylo/internal/middleware"
	"github.com/thereayou/zylo/internal/models"
	"github.com/thereayou/zylo/pkg/apperrors"
	"github.com/thereayou/zylo/pkg/auth"
)

// Accounts is the identity directory: postgres when configured, the
// users.json collection otherwise.
type Accounts interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, identifier string) (*models.User, error)
	UserExists(ctx context.Context, username string) (bool, error)
	CountUsers(ctx context.Context) (int64, error)
	TouchUser(ctx context.Context, username string) error
}

type AuthHandler struct {
	accounts   Accounts
	jwtManager *auth.JWTManager
	blacklist  middleware.TokenBlacklist
	log        *slog.Logger
}

func NewAuthHandler(accounts Accounts, jwtMgr *auth.JWTManager, blacklist middleware.TokenBlacklist, log *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, jwtManager: jwtMgr, blacklist: blacklist, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot hash password"})
		return
	}

	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.accounts.CreateUser(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}
	h.log.Info("User registered", "user", user.Username)

	h.issueToken(c, http.StatusCreated, user.Username)
}

// Login issues a token and records the user as seen.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.accounts.FindUser(ctx, strings.TrimSpace(req.Identifier))
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		respondError(c, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := h.accounts.TouchUser(ctx, user.Username); err != nil {
		h.log.Warn("Could not update last seen", "user", user.Username, "error", err)
	}

	h.issueToken(c, http.StatusOK, user.Username)
}

// Logout revokes the presented token until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	rawToken := c.GetString(middleware.TokenKey)

	exp, err := h.jwtManager.Expiry(rawToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if err := h.blacklist.Revoke(c.Request.Context(), rawToken, time.Until(exp)); err != nil {
		h.log.Error("Token revocation failed", "user", middleware.Username(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not revoke token"})
		return
	}

	c.Status(http.StatusOK)
}

func (h *AuthHandler) issueToken(c *gin.Context, status int, username string) {
	token, expiresAt, err := h.jwtManager.Generate(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}
	c.JSON(status, dto.TokenResponse{Username: username, Token: token, TokenExpiresAt: expiresAt})
}
