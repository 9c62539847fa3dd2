package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadFile(t *testing.T) {
	dir := writeConfig(t, `
running:
  port: 4000
database:
  driver: postgres
  dsn: postgres://localhost/community
redis:
  addrs: ["10.0.0.1:6379", "10.0.0.2:6379"]
kafka:
  brokers: ["k1:9092"]
  topic: interactions
cache:
  catalogTTL: 30m
`)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Running.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"10.0.0.1:6379", "10.0.0.2:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, 30*time.Minute, cfg.Cache.CatalogTTL)
	// untouched keys keep their defaults
	assert.Equal(t, 5*time.Minute, cfg.Cache.UserStoreTTL)
	assert.Equal(t, "community-notifications", cfg.Kafka.GroupID)
	assert.Equal(t, 4, cfg.Kafka.Workers)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := writeConfig(t, `
database:
  dsn: from-file
`)
	t.Setenv("COMMUNITY_DATABASE_DSN", "from-env")
	t.Setenv("COMMUNITY_RUNNING_PORT", "5050")
	t.Setenv("COMMUNITY_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.DSN)
	assert.Equal(t, 5050, cfg.Running.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("COMMUNITY_DATABASE_DSN", "dsn")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 3003, cfg.Running.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "database:\n  driver: oracle\n  dsn: x\n"))
	assert.ErrorContains(t, err, "database.driver")

	_, err = Load(writeConfig(t, "database:\n  dsn: \"\"\n"))
	assert.ErrorContains(t, err, "database.dsn")

	_, err = Load(writeConfig(t, "database:\n  dsn: x\nkafka:\n  brokers: [k1]\n  topic: \"\"\n"))
	assert.ErrorContains(t, err, "kafka.topic")

	_, err = Load(writeConfig(t, "running: [broken"))
	assert.ErrorContains(t, err, "read config")
}

func TestSampleConfigIsValid(t *testing.T) {
	cfg, err := Load(".")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3001", cfg.Auth.Path)
	assert.Len(t, cfg.Redis.Addrs, 3)
}
