package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"salesops-data/internal/domain"
)

// PostgresRetargetingRepository RetargetingRepository over retargeting_customers
type PostgresRetargetingRepository struct {
	db DBTX
}

func NewPostgresRetargetingRepository(db DBTX) *PostgresRetargetingRepository {
	return &PostgresRetargetingRepository{db: db}
}

var _ RetargetingRepository = (*PostgresRetargetingRepository)(nil)

const pipelineCustomerColumns = `
	id::text,
	company_name,
	customer_name,
	phone,
	industry,
	region,
	inflow_path,
	manager,
	manager_team,
	status,
	contract_history_category,
	registered_at,
	last_contact_date,
	memo,
	homepage,
	instagram,
	main_keywords,
	sales_tracking_id::text,
	created_at`

func scanPipelineCustomer(row scanner) (*domain.PipelineCustomer, error) {
	var c domain.PipelineCustomer
	var status string
	err := row.Scan(
		&c.ID,
		&c.CompanyName,
		&c.CustomerName,
		&c.Phone,
		&c.Industry,
		&c.Region,
		&c.InflowPath,
		&c.Manager,
		&c.ManagerTeam,
		&status,
		&c.ContractHistoryCategory,
		&c.RegisteredAt,
		&c.LastContactDate,
		&c.Memo,
		&c.Homepage,
		&c.Instagram,
		&c.MainKeywords,
		&c.SalesTrackingID,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	// legacy rows carry Japanese/Korean labels
	if st, ok := domain.ParseFunnelStage(status); ok {
		c.Status = st
	} else {
		c.Status = domain.FunnelStage(status)
	}
	return &c, nil
}

func (r *PostgresRetargetingRepository) Get(ctx context.Context, id string) (*domain.PipelineCustomer, error) {
	query := `SELECT ` + pipelineCustomerColumns + ` FROM retargeting_customers WHERE id = $1`
	c, err := scanPipelineCustomer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError("get retargeting customer", err)
	}
	return c, nil
}

func (r *PostgresRetargetingRepository) List(ctx context.Context, filter RetargetingFilter) ([]*domain.PipelineCustomer, int, error) {
	where := []string{}
	args := []any{}
	argIdx := 1

	if filter.Stage != "" {
		where = append(where, fmt.Sprintf("status = ANY($%d)", argIdx))
		args = append(args, pq.Array(domain.FunnelStageLabels(filter.Stage)))
	} else {
		where = append(where, fmt.Sprintf("status <> ALL($%d)", argIdx))
		args = append(args, pq.Array(domain.FunnelStageLabels(domain.StageTrash)))
	}
	argIdx++

	if filter.Manager != "" {
		where = append(where, fmt.Sprintf("%s = $%d", foldedManagerColumn, argIdx))
		args = append(args, domain.NormalizeManagerName(filter.Manager))
		argIdx++
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, fmt.Sprintf(
			"(company_name ILIKE $%[1]d OR customer_name ILIKE $%[1]d OR phone ILIKE $%[1]d OR industry ILIKE $%[1]d)", argIdx))
		args = append(args, "%"+s+"%")
		argIdx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM retargeting_customers WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, translateError("count retargeting customers", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM retargeting_customers WHERE %s
		ORDER BY registered_at DESC, created_at DESC
		LIMIT $%d OFFSET $%d`, pipelineCustomerColumns, whereClause, argIdx, argIdx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translateError("list retargeting customers", err)
	}
	defer rows.Close()

	var out []*domain.PipelineCustomer
	for rows.Next() {
		c, err := scanPipelineCustomer(rows)
		if err != nil {
			return nil, 0, translateError("scan retargeting customer", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translateError("list retargeting customers", err)
	}
	return out, total, nil
}

func (r *PostgresRetargetingRepository) Create(ctx context.Context, c *domain.PipelineCustomer) (string, error) {
	query := `
		INSERT INTO retargeting_customers (
			company_name, customer_name, phone, industry, region, inflow_path,
			manager, manager_team, status, contract_history_category, registered_at,
			last_contact_date, memo, homepage, instagram, main_keywords, sales_tracking_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17::uuid
		)
		RETURNING id::text
	`
	keywords := c.MainKeywords
	if keywords == nil {
		keywords = []string{}
	}
	var id string
	err := r.db.QueryRowContext(ctx, query,
		c.CompanyName,
		c.CustomerName,
		c.Phone,
		c.Industry,
		c.Region,
		c.InflowPath,
		c.Manager,
		c.ManagerTeam,
		string(c.Status),
		c.ContractHistoryCategory,
		c.RegisteredAt,
		c.LastContactDate,
		c.Memo,
		c.Homepage,
		c.Instagram,
		keywords,
		c.SalesTrackingID,
	).Scan(&id)
	if err != nil {
		return "", translateError("create retargeting customer", err)
	}
	return id, nil
}

func (r *PostgresRetargetingRepository) Update(ctx context.Context, c *domain.PipelineCustomer) error {
	query := `
		UPDATE retargeting_customers SET
			company_name = $2, customer_name = $3, phone = $4, industry = $5, region = $6,
			inflow_path = $7, manager = $8, manager_team = $9, status = $10,
			contract_history_category = $11, last_contact_date = $12, memo = $13,
			homepage = $14, instagram = $15, main_keywords = $16
		WHERE id = $1
	`
	keywords := c.MainKeywords
	if keywords == nil {
		keywords = []string{}
	}
	res, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.CompanyName,
		c.CustomerName,
		c.Phone,
		c.Industry,
		c.Region,
		c.InflowPath,
		c.Manager,
		c.ManagerTeam,
		string(c.Status),
		c.ContractHistoryCategory,
		c.LastContactDate,
		c.Memo,
		c.Homepage,
		c.Instagram,
		keywords,
	)
	if err != nil {
		return translateError("update retargeting customer", err)
	}
	return affectedOrNotFound("update retargeting customer", res)
}

func (r *PostgresRetargetingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM retargeting_customers WHERE id = $1`, id)
	if err != nil {
		return translateError("delete retargeting customer", err)
	}
	return affectedOrNotFound("delete retargeting customer", res)
}

func (r *PostgresRetargetingRepository) FindBySalesTrackingID(ctx context.Context, salesTrackingID string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id::text FROM retargeting_customers WHERE sales_tracking_id = $1`, salesTrackingID).Scan(&id)
	if err != nil {
		return "", translateError("find by sales tracking id", err)
	}
	return id, nil
}

func (r *PostgresRetargetingRepository) DetachSalesTracking(ctx context.Context, salesTrackingID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE retargeting_customers SET sales_tracking_id = NULL WHERE sales_tracking_id = $1`, salesTrackingID)
	if err != nil {
		return 0, translateError("detach sales tracking", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, translateError("detach sales tracking", err)
	}
	return n, nil
}
