package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salesops-data/internal/domain"
)

// PostgresStatsRepository StatsRepository over sales_tracking / retargeting_customers
type PostgresStatsRepository struct {
	db DBTX
}

func NewPostgresStatsRepository(db DBTX) *PostgresStatsRepository {
	return &PostgresStatsRepository{db: db}
}

var _ StatsRepository = (*PostgresStatsRepository)(nil)

func (r *PostgresStatsRepository) ContactActivity(ctx context.Context, from, to time.Time, role string) ([]ActivityRow, error) {
	query := `
		SELECT
			st.manager_name,
			st.date,
			COALESCE(st.contact_method, ''),
			st.status,
			COUNT(*)
		FROM sales_tracking st
		WHERE st.date >= $1 AND st.date < $2
		  AND EXISTS (SELECT 1 FROM users u WHERE u.name = st.manager_name AND u.role = $3)
		GROUP BY st.manager_name, st.date, st.contact_method, st.status
		ORDER BY st.manager_name, st.date
	`
	rows, err := r.db.QueryContext(ctx, query, from, to, role)
	if err != nil {
		return nil, translateError("contact activity", err)
	}
	defer rows.Close()

	var out []ActivityRow
	for rows.Next() {
		var row ActivityRow
		if err := rows.Scan(&row.Manager, &row.Day, &row.ContactMethod, &row.Status, &row.Count); err != nil {
			return nil, translateError("scan contact activity", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("contact activity", err)
	}
	return out, nil
}

func (r *PostgresStatsRepository) PipelineAcquisitions(ctx context.Context, from, to time.Time, role string) ([]AcquisitionRow, error) {
	query := `
		SELECT
			st.manager_name,
			st.date,
			COUNT(DISTINCT rc.id)
		FROM sales_tracking st
		INNER JOIN retargeting_customers rc ON rc.sales_tracking_id = st.id
		WHERE st.date >= $1 AND st.date < $2
		  AND EXISTS (SELECT 1 FROM users u WHERE u.name = st.manager_name AND u.role = $3)
		GROUP BY st.manager_name, st.date
		ORDER BY st.manager_name, st.date
	`
	rows, err := r.db.QueryContext(ctx, query, from, to, role)
	if err != nil {
		return nil, translateError("pipeline acquisitions", err)
	}
	defer rows.Close()

	var out []AcquisitionRow
	for rows.Next() {
		var row AcquisitionRow
		if err := rows.Scan(&row.Manager, &row.Day, &row.Count); err != nil {
			return nil, translateError("scan pipeline acquisitions", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("pipeline acquisitions", err)
	}
	return out, nil
}

func (r *PostgresStatsRepository) StageCounts(ctx context.Context, manager string) ([]StageCountRow, error) {
	query := `
		SELECT TRIM(manager), status, COUNT(*)
		FROM retargeting_customers
		WHERE ($1::text = '' OR ` + foldedManagerColumn + ` = $1::text)
		GROUP BY TRIM(manager), status
		ORDER BY TRIM(manager)
	`
	rows, err := r.db.QueryContext(ctx, query, domain.NormalizeManagerName(manager))
	if err != nil {
		return nil, translateError("stage counts", err)
	}
	defer rows.Close()

	var out []StageCountRow
	for rows.Next() {
		var row StageCountRow
		if err := rows.Scan(&row.Manager, &row.Status, &row.Count); err != nil {
			return nil, translateError("scan stage counts", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("stage counts", err)
	}
	return out, nil
}

// ============================================
// Sales
// ============================================

type PostgresSalesRepository struct {
	db DBTX
}

func NewPostgresSalesRepository(db DBTX) *PostgresSalesRepository {
	return &PostgresSalesRepository{db: db}
}

var _ SalesRepository = (*PostgresSalesRepository)(nil)

// salesUserFilter restricts to the named user; an empty name matches every row.
const salesUserFilter = `($3::text = '' OR EXISTS (SELECT 1 FROM users u WHERE u.id = s.user_id AND u.name = $3::text))`

func (r *PostgresSalesRepository) Total(ctx context.Context, from, to time.Time, userName string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(s.amount), 0)
		FROM sales s
		WHERE s.contract_date >= $1 AND s.contract_date < $2 AND ` + salesUserFilter
	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, from, to, strings.TrimSpace(userName)).Scan(&total); err != nil {
		return decimal.Zero, translateError("sales total", err)
	}
	return total, nil
}

func (r *PostgresSalesRepository) CountByType(ctx context.Context, from, to time.Time, salesType, userName string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM sales s
		WHERE s.contract_date >= $1 AND s.contract_date < $2 AND ` + salesUserFilter + `
		  AND s.sales_type = $4`
	var n int
	if err := r.db.QueryRowContext(ctx, query, from, to, strings.TrimSpace(userName), salesType).Scan(&n); err != nil {
		return 0, translateError("sales count", err)
	}
	return n, nil
}

func (r *PostgresSalesRepository) MonthlyTotals(ctx context.Context, from, to time.Time, userName string) ([]MonthTotalRow, error) {
	query := `
		SELECT date_trunc('month', s.contract_date)::date AS month, COALESCE(SUM(s.amount), 0)
		FROM sales s
		WHERE s.contract_date >= $1 AND s.contract_date < $2 AND ` + salesUserFilter + `
		GROUP BY month
		ORDER BY month`
	rows, err := r.db.QueryContext(ctx, query, from, to, strings.TrimSpace(userName))
	if err != nil {
		return nil, translateError("monthly sales", err)
	}
	defer rows.Close()

	var out []MonthTotalRow
	for rows.Next() {
		var row MonthTotalRow
		if err := rows.Scan(&row.Month, &row.Total); err != nil {
			return nil, translateError("scan monthly sales", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("monthly sales", err)
	}
	return out, nil
}
