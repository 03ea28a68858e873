package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nrebei2/lunarhaze/game/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesGameplayDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 50*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, 5*time.Minute, cfg.Game.SessionIdleTimeout)
	assert.Equal(t, world.DefaultSettings(), cfg.Settings())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 9090
  admin_key: secret
game:
  tick_ms: 100
  stealth_ticks: 30
ai:
  detect_dist: 7
  recompute_interval: 5
collision:
  grid_parameter: 12
security:
  jwt_secret: s3cret
  jwt_ttl: 2h
  allowed_origins: ["http://localhost:3000"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.AdminKey)
	assert.Equal(t, 2*time.Hour, cfg.Security.JWTTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Security.AllowedOrigins)

	s := cfg.Settings()
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval())
	assert.InDelta(t, world.DefaultSettings().TickSeconds, s.TickSeconds, 1e-9, "tick_ms does not change the simulated step")
	assert.Equal(t, 30, s.StealthTicks)
	assert.Equal(t, 100, s.TransitionTicks)
	assert.Equal(t, 7.0, s.AI.DetectDist)
	assert.Equal(t, 8.0, s.AI.DetectDistMoonlight)
	assert.Equal(t, 5, s.AI.RecomputeInterval)
	assert.Equal(t, 12, s.Collision.GridParameter)
}

func TestSettings_TickSecondsIndependentOfTickMs(t *testing.T) {
	cfg := Default()
	cfg.Game.TickMs = int(time.Hour / time.Millisecond)
	assert.InDelta(t, 0.05, cfg.Settings().TickSeconds, 1e-9)

	cfg.Game.TickSeconds = 0.02
	assert.InDelta(t, 0.02, cfg.Settings().TickSeconds, 1e-9)

	cfg.Game.TickSeconds = 0
	assert.InDelta(t, world.DefaultSettings().TickSeconds, cfg.Settings().TickSeconds, 1e-9)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
