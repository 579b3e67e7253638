package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
server:
  name: bakery-test
  port: 8181
mongodb:
  uri: mongodb://db:27017
  database: bakery_test
auth:
  jwt_secret: from-file
store:
  timezone: Europe/London
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadReadsFileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "bakery-test", cfg.Server.Name)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoDB.URI)
	assert.Equal(t, "audit_logs", cfg.MongoDB.AuditLog)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 30, cfg.Store.MaxAdvanceDays)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("BAKERY_AUTH_JWT_SECRET", "from-env")
	t.Setenv("BAKERY_REDIS_ENABLED", "true")

	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("BAKERY_MONGODB_URI", "mongodb://env:27017")
	t.Setenv("BAKERY_AUTH_JWT_SECRET", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "mongodb://env:27017", cfg.MongoDB.URI)
}

func TestValidateRejectsMissingRequired(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  port: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongodb.uri is required")
	assert.Contains(t, err.Error(), "auth.jwt_secret is required")
}

func TestStoreLocationFallsBackToUTC(t *testing.T) {
	sc := StoreConfig{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, sc.Location())

	sc.Timezone = "Asia/Kolkata"
	assert.Equal(t, "Asia/Kolkata", sc.Location().String())
}

func TestMySQLDSN(t *testing.T) {
	c := MySQLConfig{Host: "h", Port: 3306, Username: "u", Password: "p", Database: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=UTC", c.DSN())
}
