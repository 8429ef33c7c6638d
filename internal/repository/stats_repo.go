package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StatsRepository grouped counts for the aggregators. Classification of the
// grouped values happens in the service layer.
type StatsRepository interface {
	// ContactActivity ContactRecords dated in [from, to) whose manager holds role,
	// grouped by (manager, day, contact method, status).
	ContactActivity(ctx context.Context, from, to time.Time, role string) ([]ActivityRow, error)
	// PipelineAcquisitions distinct PipelineCustomers referencing a ContactRecord
	// dated in [from, to), grouped by the record's manager and day.
	PipelineAcquisitions(ctx context.Context, from, to time.Time, role string) ([]AcquisitionRow, error)
	// StageCounts PipelineCustomers grouped by (manager, stored status). manager "" means all.
	StageCounts(ctx context.Context, manager string) ([]StageCountRow, error)
}

type ActivityRow struct {
	Manager       string
	Day           time.Time
	ContactMethod string
	Status        string
	Count         int
}

type AcquisitionRow struct {
	Manager string
	Day     time.Time
	Count   int
}

type StageCountRow struct {
	Manager string
	Status  string
	Count   int
}

// SalesRepository read access to accounting sales rows
type SalesRepository interface {
	// Total sums amounts with contract_date in [from, to). userName "" means all users.
	Total(ctx context.Context, from, to time.Time, userName string) (decimal.Decimal, error)
	// CountByType counts sales of salesType with contract_date in [from, to).
	CountByType(ctx context.Context, from, to time.Time, salesType, userName string) (int, error)
	// MonthlyTotals sums per calendar month in [from, to).
	MonthlyTotals(ctx context.Context, from, to time.Time, userName string) ([]MonthTotalRow, error)
}

type MonthTotalRow struct {
	Month time.Time
	Total decimal.Decimal
}
