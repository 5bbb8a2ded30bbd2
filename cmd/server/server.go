package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/zylo/internal/config"
	"github.com/thereayou/zylo/internal/database"
	"github.com/thereayou/zylo/internal/fanout"
	"github.com/thereayou/zylo/internal/filestore"
	"github.com/thereayou/zylo/internal/handlers"
	"github.com/thereayou/zylo/internal/middleware"
	"github.com/thereayou/zylo/internal/rooms"
	"github.com/thereayou/zylo/internal/store"
	ws "github.com/thereayou/zylo/internal/websocket"
	"github.com/thereayou/zylo/pkg/apperrors"
	"github.com/thereayou/zylo/pkg/auth"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Config     config.Config
	Router     *gin.Engine
	Store      *store.Store
	DB         *database.Database
	Redis      *redis.Client
	Hub        *ws.Hub
	JWTManager *auth.JWTManager

	memoryBlacklist *middleware.MemoryBlacklist
	log             *slog.Logger
}

func NewServer(ctx context.Context, cfg config.Config, log *slog.Logger) (*Server, error) {
	s := &Server{Config: cfg, log: log}

	logStore, err := store.Open(store.Options{Dir: cfg.DataDir, PublicCap: cfg.PublicLogCap})
	switch {
	case apperrors.HasCode(err, apperrors.CodeStoreCorrupt):
		log.Warn("Corrupted collections replaced by empty ones", "error", err)
	case err != nil:
		return nil, fmt.Errorf("open store: %w", err)
	}
	s.Store = logStore

	var accounts handlers.Accounts = logStore
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres connect failed: %w", err)
		}
		s.DB = db
		accounts = db
		log.Info("Using postgres identity directory")
	}

	var blacklist middleware.TokenBlacklist
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			s.Close()
			return nil, fmt.Errorf("redis connect failed: %w", err)
		}
		s.Redis = rdb
		blacklist = middleware.NewRedisBlacklist(rdb)
	} else {
		memory, err := middleware.NewMemoryBlacklist()
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("token blacklist: %w", err)
		}
		s.memoryBlacklist = memory
		blacklist = memory
		log.Info("REDIS_URL not set, revoked tokens are kept in process memory")
	}

	files, err := filestore.New(cfg.UploadDir, int64(cfg.MaxUploadSize), log)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.JWTManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	directory := rooms.NewDirectory(logStore, log)
	s.Hub = ws.NewHub(directory, log, cfg.ClientQueue)
	dispatcher := fanout.NewDispatcher(logStore, directory, accounts, s.Hub, log)
	messageH := handlers.NewMessageHandler(dispatcher, directory, s.Hub, cfg.AllowAnonymous, log)
	go s.Hub.Run(messageH)

	h := Handlers{
		Auth:      handlers.NewAuthHandler(accounts, s.JWTManager, blacklist, log),
		Messages:  handlers.NewHTTPMessageHandler(logStore, directory, s.Hub, accounts),
		Rooms:     handlers.NewRoomHandler(directory, s.Hub),
		Users:     handlers.NewUserHandler(accounts, s.Hub),
		Files:     handlers.NewFileHandler(files, cfg.MaxUploadSize),
		WebSocket: handlers.NewWebSocketHandler(s.Hub, cfg.MaxMessageSize, log),
	}

	s.Router = gin.Default()
	APIEndpoints(s.Router, h,
		middleware.AuthMiddleware(s.JWTManager, blacklist),
		middleware.WSAuthMiddleware(s.JWTManager, blacklist, cfg.AllowAnonymous),
	)

	log.Info("Server initialized",
		"rooms", directory.Count(),
		"messages", logStore.MessageCount(),
		"anonymous", cfg.AllowAnonymous,
	)
	return s, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.Config.Addr(), Handler: s.Router}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server run error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down")
	s.Hub.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) Close() {
	if s.memoryBlacklist != nil {
		s.memoryBlacklist.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.DB != nil {
		_ = s.DB.Close()
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			s.log.Error("Closing store", "error", err)
		}
	}
}
