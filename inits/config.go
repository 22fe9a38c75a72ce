package inits

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr            string        `env:"SBV2_ADDR" envDefault:":8080"`
	EngineURL       string        `env:"SBV2_ENGINE_URL" envDefault:"http://127.0.0.1:3000"`
	EngineTimeout   time.Duration `env:"SBV2_ENGINE_TIMEOUT" envDefault:"2m"`
	OnnxRuntimeLib  string        `env:"SBV2_ONNXRUNTIME_LIB"`
	MaxFileSize     int64         `env:"SBV2_MAX_FILE_BYTES" envDefault:"1073741824"`
	MaxTextRunes    int           `env:"SBV2_MAX_TEXT_RUNES" envDefault:"500"`
	MultipartMemory int64         `env:"SBV2_MULTIPART_MEMORY" envDefault:"33554432"`
	ClipTTL         time.Duration `env:"SBV2_CLIP_TTL" envDefault:"1h"`
	CleanupInterval time.Duration `env:"SBV2_CLEANUP_INTERVAL" envDefault:"10m"`
	RateLimit       float64       `env:"SBV2_RATE_LIMIT" envDefault:"30"`
	AllowedHosts    []string      `env:"SBV2_ALLOWED_HOSTS" envSeparator:","`

	TurnstileSecret  string `env:"TURNSTILE_SECRET_KEY"`
	TurnstileSiteKey string `env:"TURNSTILE_SITE_KEY"`
	TestToken        string `env:"TEST_TOKEN"`
	GinMode          string `env:"GIN_MODE" envDefault:"debug"`
}

// LoadConfig reads the process environment. Call godotenv first if a .env
// file should be taken into account.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	hosts := cfg.AllowedHosts[:0]
	for _, h := range cfg.AllowedHosts {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	cfg.AllowedHosts = hosts

	if cfg.MaxFileSize <= 0 {
		return Config{}, fmt.Errorf("SBV2_MAX_FILE_BYTES must be positive, got %d", cfg.MaxFileSize)
	}
	if cfg.MaxTextRunes <= 0 {
		return Config{}, fmt.Errorf("SBV2_MAX_TEXT_RUNES must be positive, got %d", cfg.MaxTextRunes)
	}
	if cfg.CleanupInterval <= 0 {
		return Config{}, fmt.Errorf("SBV2_CLEANUP_INTERVAL must be positive, got %s", cfg.CleanupInterval)
	}
	return cfg, nil
}

func (c Config) Release() bool {
	return c.GinMode == "release"
}

// MaxRequestBytes bounds a whole submission: three files plus room for the
// text field and multipart framing.
func (c Config) MaxRequestBytes() int64 {
	return 3*c.MaxFileSize + 1<<20
}
