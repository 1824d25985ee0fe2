// ABOUTME: Application configuration loaded from YAML, .env, and environment variables
// ABOUTME: Applies defaults, ${VAR} substitution, env overrides, and struct validation
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	LockLocal = "local"
	LockRedis = "redis"
)

// Config is the full application configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Google   GoogleConfig   `yaml:"google"`
	Database DatabaseConfig `yaml:"database"`
	Sync     SyncConfig     `yaml:"sync"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type TelegramConfig struct {
	Token          string  `yaml:"token" validate:"required"`
	AdminIDs       []int64 `yaml:"admin_ids"`
	WelcomeMessage string  `yaml:"welcome_message"`
}

type GoogleConfig struct {
	ClientID     string   `yaml:"client_id" validate:"required"`
	ClientSecret string   `yaml:"client_secret" validate:"required"`
	RedirectURL  string   `yaml:"redirect_url" validate:"required,url"`
	Scopes       []string `yaml:"scopes"`
	PageSize     int      `yaml:"page_size" validate:"min=1,max=1000"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite3 postgres"`
	DSN    string `yaml:"dsn" validate:"required"`
}

type SyncConfig struct {
	Schedule      string        `yaml:"schedule"`
	MaxParallel   int           `yaml:"max_parallel" validate:"min=1"`
	Lock          string        `yaml:"lock" validate:"oneof=local redis"`
	RedisAddr     string        `yaml:"redis_addr" validate:"required_if=Lock redis"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
}

type OAuthConfig struct {
	CallbackAddr string        `yaml:"callback_addr" validate:"required"`
	StateSecret  string        `yaml:"state_secret" validate:"required,min=16"`
	StateTTL     time.Duration `yaml:"state_ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DefaultDatabasePath returns the XDG-compliant SQLite database location.
func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, "networkgpt", "networkgpt.db")
}

// Default returns a configuration with every optional value filled in.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			WelcomeMessage: "Hi! I keep your Google contacts in sync. Use /auth to connect your Google account, then /sync.",
		},
		Google: GoogleConfig{
			RedirectURL: "http://localhost:8080/oauth/callback",
			Scopes:      []string{"https://www.googleapis.com/auth/contacts.readonly"},
			PageSize:    100,
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    DefaultDatabasePath(),
		},
		Sync: SyncConfig{
			MaxParallel: 2,
			Lock:        LockLocal,
			LockTTL:     10 * time.Minute,
		},
		OAuth: OAuthConfig{
			CallbackAddr: ":8080",
			StateTTL:     15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration with Read and validates all of it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads the config file at path (optional when empty) and applies
// environment overrides without validating. A .env file in the working
// directory is loaded first if present.
func Read(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(ExpandEnv(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	return cfg, nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv replaces ${VAR} references with environment values. Unset
// variables expand to the empty string so required fields fail validation.
func ExpandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString(&cfg.Telegram.Token, "TELEGRAM_TOKEN")
	setString(&cfg.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&cfg.Google.RedirectURL, "GOOGLE_REDIRECT_URL")
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.DSN, "DATABASE_DSN")
	setString(&cfg.Sync.Schedule, "SYNC_SCHEDULE")
	setString(&cfg.Sync.Lock, "SYNC_LOCK")
	setString(&cfg.Sync.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Sync.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.OAuth.CallbackAddr, "OAUTH_CALLBACK_ADDR")
	setString(&cfg.OAuth.StateSecret, "OAUTH_STATE_SECRET")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	if v := os.Getenv("TELEGRAM_ADMIN_IDS"); v != "" {
		var ids []int64
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err == nil {
				ids = append(ids, id)
			}
		}
		cfg.Telegram.AdminIDs = ids
	}
}

// Validate checks the configuration against its field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateSync checks only what a sync needs, so terminal commands work
// without a Telegram token.
func (c *Config) ValidateSync() error {
	v := validator.New()
	for _, section := range []interface{}{c.Google, c.Database, c.Sync, c.OAuth, c.Logging} {
		if err := v.Struct(section); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return nil
}

// Sample returns an example config file with ${VAR} placeholders for secrets.
func Sample() string {
	return `telegram:
  token: ${TELEGRAM_TOKEN}
  admin_ids: []
google:
  client_id: ${GOOGLE_CLIENT_ID}
  client_secret: ${GOOGLE_CLIENT_SECRET}
  redirect_url: http://localhost:8080/oauth/callback
  page_size: 100
database:
  driver: sqlite3
  dsn: ` + DefaultDatabasePath() + `
sync:
  schedule: "@every 6h"
  max_parallel: 2
  lock: local
oauth:
  callback_addr: ":8080"
  state_secret: ${OAUTH_STATE_SECRET}
  state_ttl: 15m
logging:
  level: info
  format: text
`
}
