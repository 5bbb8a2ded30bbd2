package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
	require.Equal(t, "./data", cfg.DataDir)
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
	require.True(t, cfg.AllowAnonymous)
	require.Equal(t, 256, cfg.ClientQueue)
	require.Equal(t, 8<<20, cfg.MaxMessageSize)
	require.Zero(t, cfg.PublicLogCap)
	require.Empty(t, cfg.DatabaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOW_ANONYMOUS", "false")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("PUBLIC_LOG_CAP", "500")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Port)
	require.False(t, cfg.AllowAnonymous)
	require.Equal(t, 90*time.Minute, cfg.JWTTTL)
	require.Equal(t, 500, cfg.PublicLogCap)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.ErrorContains(t, err, "JWT_SECRET")
}
