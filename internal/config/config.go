package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// PostgresConfig holds connection details for the caption review store.
type PostgresConfig struct {
	Host     string `env:"TRAITS_PG_HOST"     envDefault:"localhost"`
	Port     string `env:"TRAITS_PG_PORT"     envDefault:"5432"`
	User     string `env:"TRAITS_PG_USER"     envDefault:"postgres"`
	Password string `env:"TRAITS_PG_PASSWORD"`
	DBName   string `env:"TRAITS_PG_DBNAME"   envDefault:"traits"`
}

// ConnString builds a postgres:// URL.
func (c PostgresConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.User, c.Password, c.Host, c.Port, c.DBName)
}

// OllamaConfig points at the local vision model used for review notes.
type OllamaConfig struct {
	BaseURL string `env:"TRAITS_OLLAMA_URL"   envDefault:"http://localhost"`
	Port    int    `env:"TRAITS_OLLAMA_PORT"  envDefault:"11434"`
	Model   string `env:"TRAITS_OLLAMA_MODEL" envDefault:"llama3.2-vision:11b"`
}

// Config is the batch driver configuration.
type Config struct {
	SpriteDir    string   `env:"TRAITS_SPRITE_DIR"`
	CaptionDir   string   `env:"TRAITS_CAPTION_DIR"`
	OutputDir    string   `env:"TRAITS_OUTPUT_DIR"    envDefault:"output"`
	RegionsFile  string   `env:"TRAITS_REGIONS_FILE"`
	Workers      int      `env:"TRAITS_WORKERS"       envDefault:"4"`
	TopK         int      `env:"TRAITS_TOP_K"         envDefault:"10"`
	LogLevel     string   `env:"TRAITS_LOG_LEVEL"     envDefault:"info"`
	SyncCaptions bool     `env:"TRAITS_SYNC_CAPTIONS"`
	RewriteEyes  bool     `env:"TRAITS_REWRITE_EYES"`
	MirrorDirs   []string `env:"TRAITS_MIRROR_DIRS"   envSeparator:","`
	Review       bool     `env:"TRAITS_REVIEW"`
	UsePostgres  bool     `env:"TRAITS_POSTGRES"`

	Postgres PostgresConfig
	Ollama   OllamaConfig
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields the batch driver depends on.
func (c Config) Validate() error {
	var errs []error
	if c.SpriteDir == "" {
		errs = append(errs, errors.New("sprite directory is required"))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive, got %d", c.TopK))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Captions returns the caption directory, defaulting to the sprite directory.
func (c Config) Captions() string {
	if c.CaptionDir != "" {
		return c.CaptionDir
	}
	return c.SpriteDir
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
