package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	AppPort  string `env:"APP_PORT" envDefault:"8888"`
	AppEnv   string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DiscordClientID     string   `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string   `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURI  string   `env:"DISCORD_REDIRECT_URI"`
	DiscordScopes       []string `env:"DISCORD_SCOPES" envDefault:"identify" envSeparator:","`
	DiscordAPIBaseURL   string   `env:"DISCORD_API_BASE_URL" envDefault:"https://discord.com/api"`

	SessionSecret     string        `env:"SESSION_SECRET"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"sid"`
	CookieSecure      bool          `env:"COOKIE_SECURE" envDefault:"false"`
	SessionStore      string        `env:"SESSION_STORE" envDefault:"memory"`

	ProfileStore string `env:"PROFILE_STORE" envDefault:"memory"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	DatabaseDSN string `env:"DATABASE_DSN"`

	WebAppOrigins []string `env:"WEB_APP_ORIGIN" envSeparator:","`
	WidgetDir     string   `env:"WIDGET_DIR"`

	RoleWebhookURL    string  `env:"ROLE_WEBHOOK_URL"`
	RoleWebhookSecret string  `env:"ROLE_WEBHOOK_SECRET"`
	DiscordBotToken   string  `env:"DISCORD_BOT_TOKEN"`
	DiscordGuildID    string  `env:"DISCORD_GUILD_ID"`
	DiscordRoleEVM    string  `env:"DISCORD_ROLE_EVM"`
	DiscordRoleBTC    string  `env:"DISCORD_ROLE_BTC"`
	DiscordRoleADA    string  `env:"DISCORD_ROLE_ADA"`
	RoleAssignRPS     float64 `env:"ROLE_ASSIGN_RPS" envDefault:"5"`
}

// Load reads .env (when present) and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.WebAppOrigins = trimList(cfg.WebAppOrigins)
	cfg.DiscordScopes = trimList(cfg.DiscordScopes)
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.DiscordClientID == "" || c.DiscordClientSecret == "" || c.DiscordRedirectURI == "" {
		errs = append(errs, errors.New("DISCORD_CLIENT_ID, DISCORD_CLIENT_SECRET and DISCORD_REDIRECT_URI are required"))
	}
	if _, err := url.ParseRequestURI(c.DiscordRedirectURI); c.DiscordRedirectURI != "" && err != nil {
		errs = append(errs, fmt.Errorf("DISCORD_REDIRECT_URI: %w", err))
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	switch c.SessionStore {
	case StoreMemory, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE: unsupported value %q", c.SessionStore))
	}
	switch c.ProfileStore {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required when PROFILE_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("PROFILE_STORE: unsupported value %q", c.ProfileStore))
	}

	if !c.DiscordBotEnabled() && c.RoleWebhookURL == "" {
		errs = append(errs, errors.New("either DISCORD_BOT_TOKEN with DISCORD_GUILD_ID or ROLE_WEBHOOK_URL must be set"))
	}
	if c.DiscordBotToken != "" && c.DiscordGuildID == "" {
		errs = append(errs, errors.New("DISCORD_GUILD_ID is required with DISCORD_BOT_TOKEN"))
	}

	return errors.Join(errs...)
}

// DiscordBotEnabled reports whether roles are granted directly through the bot API.
func (c Config) DiscordBotEnabled() bool {
	return c.DiscordBotToken != "" && c.DiscordGuildID != ""
}

// UsesRedis reports whether any store needs a redis connection.
func (c Config) UsesRedis() bool {
	return c.SessionStore == StoreRedis || c.ProfileStore == StoreRedis
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
