package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "salesops", cfg.Database.Database)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, 5000, cfg.Database.StatementTimeoutMS)
	assert.Equal(t, 300*time.Second, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "development", cfg.Log.Env)
	assert.Equal(t, "marketer", cfg.Stats.Role)
	assert.Equal(t, 200, cfg.Stats.TargetPerPerson)
	assert.False(t, cfg.CPI.SchedulerEnabled)
	assert.Equal(t, "@every 1m", cfg.CPI.Schedule)
	assert.Equal(t, 6, cfg.CPI.WindowHours)
	assert.Equal(t, 32400, cfg.TimezoneOffset)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DB_STATEMENT_TIMEOUT_MS", "1500")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STATS_ROLE", "sales")
	t.Setenv("ENABLE_CPI_SCHEDULER", "true")
	t.Setenv("CPI_WINDOW_HOURS", "12")

	cfg := Load()

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, 1500, cfg.Database.StatementTimeoutMS)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "production", cfg.Log.Env)
	assert.Equal(t, "sales", cfg.Stats.Role)
	assert.True(t, cfg.CPI.SchedulerEnabled)
	assert.Equal(t, 12, cfg.CPI.WindowHours)
}

func TestLoad_InvalidIntegerFallsBack(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("CPI_PAGE_SIZE", "")

	cfg := Load()

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 100, cfg.CPI.PageSize)
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "h", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable",
	}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", c.GetDSN())

	c.StatementTimeoutMS = 5000
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable statement_timeout=5000", c.GetDSN())
}

func TestConfig_Location(t *testing.T) {
	cfg := &Config{TimezoneOffset: 32400}
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, cfg.Location()).Zone()
	assert.Equal(t, 32400, offset)
}
