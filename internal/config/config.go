// Package config reads the server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	Host           string        `env:"HOST,default=0.0.0.0"`
	Port           int           `env:"PORT,default=8080"`
	DataDir        string        `env:"DATA_DIR,default=./data"`
	UploadDir      string        `env:"UPLOAD_DIR,default=./data/uploads"`
	LogLevel       string        `env:"LOG_LEVEL,default=INFO"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	RedisURL       string        `env:"REDIS_URL"`
	JWTSecret      string        `env:"JWT_SECRET"`
	JWTTTL         time.Duration `env:"JWT_TTL,default=24h"`
	AllowAnonymous bool          `env:"ALLOW_ANONYMOUS,default=true"`
	ClientQueue    int           `env:"CLIENT_QUEUE_SIZE,default=256"`
	MaxMessageSize int           `env:"MAX_MESSAGE_SIZE,default=8388608"`
	MaxUploadSize  int           `env:"MAX_UPLOAD_SIZE,default=16777216"`
	PublicLogCap   int           `env:"PUBLIC_LOG_CAP,default=0"`
}

// Load reads .env.local then .env when present, and the process environment.
// Variables already set in the environment win over the files.
func Load() (Config, error) {
	for _, file := range []string{".env.local", ".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.PublicLogCap < 0 {
		return errors.New("PUBLIC_LOG_CAP must not be negative")
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
