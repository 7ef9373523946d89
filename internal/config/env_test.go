package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_ADDR", "")
	t.Setenv("RATE_MESSAGE_LIMIT", "")

	cfg := Load()

	assert.Equal(t, ":5000", cfg.Service.Add)
	assert.Equal(t, 5, cfg.RateLimit.MessageLimit)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.MessageWindow)
	assert.Equal(t, 3, cfg.RateLimit.TypingLimit)
	assert.Equal(t, time.Second, cfg.RateLimit.TypingWindow)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVICE_ADDR", ":9000")
	t.Setenv("RATE_MESSAGE_WINDOW", "30")
	t.Setenv("PRESENCE_TTL", "2m")
	t.Setenv("OTEL_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.Service.Add)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.MessageWindow)
	assert.Equal(t, 2*time.Minute, cfg.Presence.TTL)
	assert.True(t, cfg.Tracer.Enabled)
}

func TestGetEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_DUR", "-5s")
	t.Setenv("X_BOOL", "maybe")

	assert.Equal(t, 7, getEnvInt("X_INT", 7))
	assert.Equal(t, time.Minute, getEnvDuration("X_DUR", time.Minute))
	assert.True(t, getEnvBool("X_BOOL", true))
}
