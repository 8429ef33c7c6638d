package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"salesops-data/internal/config"
	"salesops-data/internal/database"
	"salesops-data/internal/logger"
	"salesops-data/internal/store"
)

var (
	verbose bool
	timeout time.Duration

	cfg *config.Config
	log *zap.Logger
)

// rootCmd operator commands against the same config as the API server.
var rootCmd = &cobra.Command{
	Use:           "salesops-ctl",
	Short:         "Operator tooling for salesops-data",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg = config.Load()
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		l, err := logger.NewLogger(level, "console", "salesops-ctl")
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importCallsCmd)
	rootCmd.AddCommand(exportMonthlyCmd)
	rootCmd.AddCommand(issueTokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDB every command except issue-token needs PostgreSQL.
func openDB() (*sql.DB, error) {
	if !cfg.DBEnabled {
		return nil, fmt.Errorf("DB_ENABLED=false: this command needs PostgreSQL")
	}
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// openKV falls back to an in-process KV when Redis is disabled or unreachable.
func openKV(ctx context.Context) (store.KV, func()) {
	if !cfg.Redis.Enabled {
		return store.NewMemoryKV(), func() {}
	}
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable, import lock is local only", zap.Error(err))
		_ = c.Close()
		return store.NewMemoryKV(), func() {}
	}
	return store.NewRedisKV(c), func() { _ = c.Close() }
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}
