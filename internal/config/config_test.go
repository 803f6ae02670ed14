package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CONFIG_PATH", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("HTTP_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "default", cfg.JWT.KeyID)
	assert.Equal(t, "appointment_events", cfg.Kafka.Topic)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
env: production
http:
  port: "9000"
jwt:
  secret: from-file
  key_id: k2
  previous:
    k1: old-secret
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("HTTP_PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "9100", cfg.HTTP.Port)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, "k2", cfg.JWT.KeyID)
	assert.Equal(t, map[string]string{"k1": "old-secret"}, cfg.JWT.Previous)
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("TOKEN_TTL", "a week")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseKeys(t *testing.T) {
	keys, err := ParseKeys("a:1, b:2,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, keys)

	_, err = ParseKeys("nocolon")
	assert.Error(t, err)

	_, err = ParseKeys("kid:")
	assert.Error(t, err)
}

func TestValidateRejectsActiveKidInPrevious(t *testing.T) {
	cfg := defaults()
	cfg.JWT.Secret = "x"
	cfg.JWT.Previous = map[string]string{"default": "y"}
	assert.Error(t, cfg.Validate())
}

func TestLocationFallback(t *testing.T) {
	cfg := defaults()
	cfg.Timezone = "Nowhere/Atlantis"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadCORSAndProxies(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Empty(t, cfg.HTTP.TrustedProxies)

	t.Setenv("CORS_ORIGINS", "https://portal.example.fr, http://localhost:3000")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.0.2.1")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://portal.example.fr", "http://localhost:3000"}, cfg.CORS.Origins)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.HTTP.TrustedProxies)
}

func TestValidateRejectsBadCORSAndProxies(t *testing.T) {
	cfg := defaults()
	cfg.JWT.Secret = "x"
	cfg.HTTP.TrustedProxies = []string{"lb.internal"}
	assert.Error(t, cfg.Validate())

	cfg = defaults()
	cfg.JWT.Secret = "x"
	cfg.CORS.Origins = []string{"portal.example.fr"}
	assert.Error(t, cfg.Validate())
}
