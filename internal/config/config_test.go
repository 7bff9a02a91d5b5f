package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerscope/sellerscope/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
database:
  host: localhost
  name: sellerscope
  user: sellerscope
provider:
  base_url: http://localhost:8089
  api_key: test-key
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 10, cfg.Database.PoolSize)

	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 50, cfg.Provider.MaxListings)
	assert.InDelta(t, 2.0, cfg.Provider.RateLimit.PerSecond, 0.001)
	assert.Equal(t, int64(2000), cfg.Provider.RateLimit.DailyLimit)

	assert.Equal(t, 10, cfg.Worker.BatchSize)
	assert.Equal(t, 3, cfg.Worker.Concurrency)
	assert.Equal(t, 3, cfg.Worker.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Worker.ReclaimAfter)

	assert.Equal(t, 10, cfg.Quota.DailyManualLimit)

	assert.Equal(t, time.Minute, cfg.Schedule.CycleInterval)
	assert.Equal(t, 15*time.Minute, cfg.Schedule.SweepInterval)
	assert.Equal(t, 200, cfg.Schedule.SweepBudget)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_ExplicitValues(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
server:
  port: 9090
database:
  host: db.internal
  name: sellerscope
  user: app
  password: hunter2
  pool_size: 25
provider:
  base_url: https://provider.example.com
  api_key: prod-key
  max_listings: 100
worker:
  batch_size: 20
  concurrency: 5
quota:
  daily_manual_limit: 3
schedule:
  cycle_interval: 30s
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Database.PoolSize)
	assert.Equal(t, 100, cfg.Provider.MaxListings)
	assert.Equal(t, 20, cfg.Worker.BatchSize)
	assert.Equal(t, 5, cfg.Worker.Concurrency)
	assert.Equal(t, 3, cfg.Quota.DailyManualLimit)
	assert.Equal(t, 30*time.Second, cfg.Schedule.CycleInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret-from-env")

	cfg, err := config.Load(writeConfig(t, `
database:
  host: localhost
  name: sellerscope
  user: app
  password: ${TEST_DB_PASSWORD}
provider:
  base_url: http://localhost:8089
  api_key: test-key
`))
	require.NoError(t, err)
	assert.Equal(t, "secret-from-env", cfg.Database.Password)
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
database:
  host: localhost
provider:
  base_url: http://localhost:8089
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.name is required")
	assert.Contains(t, err.Error(), "database.user is required")
	assert.Contains(t, err.Error(), "provider.api_key is required")
}

func TestLoad_ConcurrencyExceedsBatchSize(t *testing.T) {
	_, err := config.Load(writeConfig(t, minimalConfig+`
worker:
  batch_size: 2
  concurrency: 8
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not exceed worker.batch_size")
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		Name:     "sellerscope",
		User:     "app",
		Password: "hunter2",
		SSLMode:  "require",
		PoolSize: 25,
	}
	assert.Equal(t,
		"host=db.internal port=5433 dbname=sellerscope user=app password=hunter2 sslmode=require pool_max_conns=25",
		d.DSN(),
	)
}
