package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config salesops-data (HTTP API + call import) configuration
type Config struct {
	HTTP struct {
		Addr string
	}
	// DBEnabled=false runs the API on the in-memory store (local dev only).
	DBEnabled bool
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       struct {
		Level  string
		Format string
		Env    string
	}
	Auth  AuthConfig
	Stats StatsConfig
	CPI   CPIConfig
	// TimezoneOffset is the business-day offset from UTC in seconds (JST by default).
	TimezoneOffset int
}

// DatabaseConfig PostgreSQL connection and pool settings
type DatabaseConfig struct {
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConns           int
	MaxIdle            int
	ConnMaxLifetime    time.Duration
	StatementTimeoutMS int
}

// RedisConfig Redis settings
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// AuthConfig bearer token settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// StatsConfig controls which users appear in the monthly rollup
type StatsConfig struct {
	Role            string
	TargetPerPerson int
}

// CPIConfig call-tracking provider import
type CPIConfig struct {
	BaseURL          string
	Token            string
	SchedulerEnabled bool
	Schedule         string
	WindowHours      int
	PageSize         int
	Timeout          time.Duration
}

// GetDSN builds a lib/pq key=value DSN. statement_timeout is sent as a startup parameter.
func (c *DatabaseConfig) GetDSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
	if c.StatementTimeoutMS > 0 {
		dsn += fmt.Sprintf(" statement_timeout=%d", c.StatementTimeoutMS)
	}
	return dsn
}

// Location returns the fixed zone used for business dates.
func (c *Config) Location() *time.Location {
	if c.TimezoneOffset == 32400 {
		return time.FixedZone("JST", c.TimezoneOffset)
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.TimezoneOffset/3600), c.TimezoneOffset)
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "salesops")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)
	cfg.Database.ConnMaxLifetime = time.Duration(parseInt(getEnv("DB_CONN_MAX_LIFETIME_SEC", "300"), 300)) * time.Second
	cfg.Database.StatementTimeoutMS = parseInt(getEnv("DB_STATEMENT_TIMEOUT_MS", "5000"), 5000)

	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	cfg.Log.Env = getEnv("APP_ENV", "development")

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "dev-secret-change-me")
	cfg.Auth.TokenTTL = time.Duration(parseInt(getEnv("JWT_TTL_HOURS", "24"), 24)) * time.Hour

	cfg.Stats.Role = getEnv("STATS_ROLE", "marketer")
	cfg.Stats.TargetPerPerson = parseInt(getEnv("STATS_TARGET_PER_PERSON", "200"), 200)

	cfg.CPI.BaseURL = getEnv("CPI_API_BASE", "https://api.cpi.example.com")
	cfg.CPI.Token = getEnv("CPI_API_TOKEN", "")
	cfg.CPI.SchedulerEnabled = getEnv("ENABLE_CPI_SCHEDULER", "false") == "true"
	cfg.CPI.Schedule = getEnv("CPI_SCHEDULE", "@every 1m")
	cfg.CPI.WindowHours = parseInt(getEnv("CPI_WINDOW_HOURS", "6"), 6)
	cfg.CPI.PageSize = parseInt(getEnv("CPI_PAGE_SIZE", "100"), 100)
	cfg.CPI.Timeout = time.Duration(parseInt(getEnv("CPI_TIMEOUT_SEC", "30"), 30)) * time.Second

	cfg.TimezoneOffset = parseInt(getEnv("TIMEZONE_OFFSET", "32400"), 32400) // UTC+9

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
