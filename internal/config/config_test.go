package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_CLIENT_ID", "client")
	t.Setenv("DISCORD_CLIENT_SECRET", "secret")
	t.Setenv("DISCORD_REDIRECT_URI", "https://api.example.com/auth/discord/callback")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("ROLE_WEBHOOK_URL", "https://bot.example.com/assign")
}

func TestParse_Defaults(t *testing.T) {
	validEnv(t)

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.AppPort)
	assert.Equal(t, "sid", cfg.SessionCookieName)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"identify"}, cfg.DiscordScopes)
	assert.Equal(t, StoreMemory, cfg.SessionStore)
	assert.Equal(t, StoreMemory, cfg.ProfileStore)
	assert.False(t, cfg.CookieSecure)
	assert.NoError(t, cfg.Validate())
}

func TestParse_OriginsAreTrimmed(t *testing.T) {
	validEnv(t)
	t.Setenv("WEB_APP_ORIGIN", " https://app.example.com, ,https://staging.example.com ")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.WebAppOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "short session secret",
			env:     map[string]string{"SESSION_SECRET": "change-me"},
			wantErr: "SESSION_SECRET",
		},
		{
			name:    "missing oauth credentials",
			env:     map[string]string{"DISCORD_CLIENT_SECRET": ""},
			wantErr: "DISCORD_CLIENT_ID",
		},
		{
			name:    "unknown profile store",
			env:     map[string]string{"PROFILE_STORE": "mongo"},
			wantErr: "PROFILE_STORE",
		},
		{
			name:    "postgres without dsn",
			env:     map[string]string{"PROFILE_STORE": "postgres"},
			wantErr: "DATABASE_DSN",
		},
		{
			name:    "no role capability",
			env:     map[string]string{"ROLE_WEBHOOK_URL": ""},
			wantErr: "ROLE_WEBHOOK_URL",
		},
		{
			name:    "bot token without guild",
			env:     map[string]string{"DISCORD_BOT_TOKEN": "bot"},
			wantErr: "DISCORD_GUILD_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Parse()
			require.NoError(t, err)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDiscordBotEnabled(t *testing.T) {
	validEnv(t)
	t.Setenv("DISCORD_BOT_TOKEN", "bot")
	t.Setenv("DISCORD_GUILD_ID", "guild")
	t.Setenv("ROLE_WEBHOOK_URL", "")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.True(t, cfg.DiscordBotEnabled())
	assert.NoError(t, cfg.Validate())
}
