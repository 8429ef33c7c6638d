package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"salesops-data/internal/database"
	"salesops-data/internal/domain"
	httpapi "salesops-data/internal/http"
	"salesops-data/internal/repository"
	"salesops-data/internal/service"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		ctx, cancel := commandContext(cmd)
		defer cancel()
		return database.Migrate(ctx, db, log)
	},
}

var (
	importSince string
	importUntil string
)

// importCallsCmd one-off CPI import. Shares the scheduler's lock, so it
// refuses to run while a scheduled import holds it.
var importCallsCmd = &cobra.Command{
	Use:   "import-calls",
	Short: "Import outbound calls from CPI for a date window",
	Long: `Import outbound calls from the CPI call-tracking API.

Dates are YYYY-MM-DD in the business timezone. --until is inclusive and
defaults to today; --since defaults to the configured window before now.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.CPI.Token == "" {
			return fmt.Errorf("CPI_API_TOKEN is not set")
		}
		loc := cfg.Location()
		window := time.Duration(cfg.CPI.WindowHours) * time.Hour
		until := time.Now()
		since := until.Add(-window)
		if importSince != "" {
			d, err := time.ParseInLocation(service.DateLayout, importSince, loc)
			if err != nil {
				return fmt.Errorf("invalid --since: %w", err)
			}
			since = d
		}
		if importUntil != "" {
			d, err := time.ParseInLocation(service.DateLayout, importUntil, loc)
			if err != nil {
				return fmt.Errorf("invalid --until: %w", err)
			}
			until = d.AddDate(0, 0, 1)
		}
		if !since.Before(until) {
			return fmt.Errorf("--since must be before --until")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		ctx, cancel := commandContext(cmd)
		defer cancel()
		kv, closeKV := openKV(ctx)
		defer closeKV()

		st := repository.NewPostgresStore(db)
		client := service.NewCPIClient(cfg.CPI.BaseURL, cfg.CPI.Token, cfg.CPI.Timeout, log)
		importer := service.NewCPIImportService(st, client, cfg.CPI.PageSize, loc, log)
		runner := service.NewImportScheduler(importer, kv, cfg.CPI.Schedule, window, loc, log)

		res, err := runner.Run(ctx, since, until, "cli")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.String())
		return nil
	},
}

var (
	exportYear  int
	exportMonth int
	exportOut   string
)

var exportMonthlyCmd = &cobra.Command{
	Use:   "export-monthly",
	Short: "Write the monthly contact statistics workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportYear == 0 || exportMonth == 0 {
			now := time.Now().In(cfg.Location())
			if exportYear == 0 {
				exportYear = now.Year()
			}
			if exportMonth == 0 {
				exportMonth = int(now.Month())
			}
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		ctx, cancel := commandContext(cmd)
		defer cancel()

		stats := service.NewStatsService(repository.NewPostgresStore(db), cfg.Stats.Role, log)
		rows, err := stats.Monthly(ctx, exportYear, exportMonth)
		if err != nil {
			return err
		}
		data, err := httpapi.GenerateMonthlyStatsExcel(exportYear, exportMonth, rows)
		if err != nil {
			return err
		}
		out := exportOut
		if out == "" {
			out = fmt.Sprintf("monthly-stats-%04d-%02d.xlsx", exportYear, exportMonth)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		log.Info("Monthly stats exported", zap.String("file", out), zap.Int("managers", len(rows)))
		return nil
	},
}

var (
	tokenID    string
	tokenName  string
	tokenEmail string
	tokenRole  string
	tokenTeam  string
	tokenTTL   time.Duration
)

// issueTokenCmd signs a bearer token with JWT_SECRET, for local testing and
// service accounts.
var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Sign an API bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenID == "" || tokenName == "" {
			return fmt.Errorf("--id and --name are required")
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}
		token, err := httpapi.IssueToken(cfg.Auth.JWTSecret, domain.Actor{
			ID:    tokenID,
			Email: tokenEmail,
			Name:  tokenName,
			Role:  tokenRole,
			Team:  tokenTeam,
		}, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	importCallsCmd.Flags().StringVar(&importSince, "since", "", "First day to import (YYYY-MM-DD)")
	importCallsCmd.Flags().StringVar(&importUntil, "until", "", "Last day to import, inclusive (YYYY-MM-DD)")

	exportMonthlyCmd.Flags().IntVar(&exportYear, "year", 0, "Year (default: current)")
	exportMonthlyCmd.Flags().IntVar(&exportMonth, "month", 0, "Month 1-12 (default: current)")
	exportMonthlyCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file")

	issueTokenCmd.Flags().StringVar(&tokenID, "id", "", "User id")
	issueTokenCmd.Flags().StringVar(&tokenName, "name", "", "User name (matches manager names)")
	issueTokenCmd.Flags().StringVar(&tokenEmail, "email", "", "User email")
	issueTokenCmd.Flags().StringVar(&tokenRole, "role", domain.RoleMarketer, "Role (admin|marketer)")
	issueTokenCmd.Flags().StringVar(&tokenTeam, "team", "", "Team")
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default: JWT_TTL_HOURS)")
}
