package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 0.6, cfg.Match.MinScore)
	assert.Equal(t, 0.8, cfg.Match.NotifyScore)
	assert.Equal(t, int64(1000), cfg.DefaultPaymentAmount)
	assert.Equal(t, SenderLog, cfg.Notify.Sender)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.RunMigrations)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MATCH_MIN_SCORE", "0.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 0.5, cfg.Match.MinScore)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestLoad_RejectsOutOfRangeScore(t *testing.T) {
	t.Setenv("MATCH_NOTIFY_SCORE", "1.5")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_WebhookSenderNeedsURL(t *testing.T) {
	t.Setenv("NOTIFY_SENDER", SenderWebhook)
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("NOTIFY_WEBHOOK_URL", "http://hooks.local/notify")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://hooks.local/notify", cfg.Notify.WebhookURL)
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		c := &Config{LogLevel: in}
		assert.Equal(t, want, c.SlogLevel(), "level %q", in)
	}
}
