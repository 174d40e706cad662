package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file:config_test?mode=memory")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("REDIS_ENABLED", "false")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "overlap", c.SkillMatchPolicy)
	assert.Equal(t, 15*time.Second, c.ShutdownTimeout)
	assert.Equal(t, 5*time.Second, c.DBRetryDelay)
	assert.Equal(t, 10080, c.JWTExpiresMin)
	assert.False(t, c.RedisEnabled)
	assert.Equal(t, []string{"http://127.0.0.1:3000", "http://localhost:3000"}, c.Origins())
}

func TestLoadRejectsUnknownMatchPolicy(t *testing.T) {
	setRequired(t)
	t.Setenv("SKILL_MATCH_POLICY", "fuzzy")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SkillMatchPolicy")
}

func TestLoadRequiresSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
}
