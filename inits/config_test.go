package inits_test

import (
	"testing"
	"time"

	"github.com/CorrelAid/sbv2_web/inits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SBV2_ALLOWED_HOSTS", " , ")

	cfg, err := inits.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 2*time.Minute, cfg.EngineTimeout)
	assert.Equal(t, int64(1<<30), cfg.MaxFileSize)
	assert.Equal(t, 500, cfg.MaxTextRunes)
	assert.Equal(t, time.Hour, cfg.ClipTTL)
	assert.InEpsilon(t, 30.0, cfg.RateLimit, 0.001)
	assert.Empty(t, cfg.AllowedHosts)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SBV2_ADDR", ":9090")
	t.Setenv("SBV2_ENGINE_URL", "http://engine:3000")
	t.Setenv("SBV2_ENGINE_TIMEOUT", "45s")
	t.Setenv("SBV2_ALLOWED_HOSTS", "tts.example.org,localhost")
	t.Setenv("SBV2_CLIP_TTL", "15m")
	t.Setenv("GIN_MODE", "release")

	cfg, err := inits.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "http://engine:3000", cfg.EngineURL)
	assert.Equal(t, 45*time.Second, cfg.EngineTimeout)
	assert.Equal(t, []string{"tts.example.org", "localhost"}, cfg.AllowedHosts)
	assert.Equal(t, 15*time.Minute, cfg.ClipTTL)
	assert.True(t, cfg.Release())
}

func TestLoadConfig_Rejects(t *testing.T) {
	t.Setenv("SBV2_MAX_TEXT_RUNES", "0")

	_, err := inits.LoadConfig()
	require.Error(t, err)

	t.Setenv("SBV2_MAX_TEXT_RUNES", "100")
	t.Setenv("SBV2_ENGINE_TIMEOUT", "soon")

	_, err = inits.LoadConfig()
	require.Error(t, err)
}

func TestConfig_MaxRequestBytes(t *testing.T) {
	cfg := inits.Config{MaxFileSize: 1000}
	assert.Equal(t, int64(3000+1<<20), cfg.MaxRequestBytes())
}
