package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salesops-data/internal/domain"
)

// PostgresCustomersRepository CustomersRepository over customers
type PostgresCustomersRepository struct {
	db DBTX
}

func NewPostgresCustomersRepository(db DBTX) *PostgresCustomersRepository {
	return &PostgresCustomersRepository{db: db}
}

var _ CustomersRepository = (*PostgresCustomersRepository)(nil)

const customerColumns = `
	id::text,
	company_name,
	industry,
	customer_name,
	phone1,
	region,
	inflow_path,
	manager,
	manager_team,
	monthly_budget,
	contract_start_date,
	contract_expiration_date,
	status,
	homepage,
	instagram,
	main_keywords,
	memo,
	registration_date,
	created_at`

func scanCustomer(row scanner) (*domain.Customer, error) {
	var c domain.Customer
	var status string
	err := row.Scan(
		&c.ID,
		&c.CompanyName,
		&c.Industry,
		&c.CustomerName,
		&c.Phone1,
		&c.Region,
		&c.InflowPath,
		&c.Manager,
		&c.ManagerTeam,
		&c.MonthlyBudget,
		&c.ContractStartDate,
		&c.ContractExpirationDate,
		&status,
		&c.Homepage,
		&c.Instagram,
		&c.MainKeywords,
		&c.Memo,
		&c.RegistrationDate,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = domain.ParseCustomerStatus(status)
	return &c, nil
}

func (r *PostgresCustomersRepository) Get(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return nil, translateError("get customer", err)
	}
	return c, nil
}

func (r *PostgresCustomersRepository) List(ctx context.Context, filter CustomersFilter) ([]*domain.Customer, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argIdx := 1

	if filter.Manager != "" {
		where = append(where, fmt.Sprintf("%s = $%d", foldedManagerColumn, argIdx))
		args = append(args, domain.NormalizeManagerName(filter.Manager))
		argIdx++
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(filter.Status))
		argIdx++
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, fmt.Sprintf(
			"(company_name ILIKE $%[1]d OR customer_name ILIKE $%[1]d OR phone1 ILIKE $%[1]d)", argIdx))
		args = append(args, "%"+s+"%")
		argIdx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, translateError("count customers", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE %s
		ORDER BY registration_date DESC, created_at DESC
		LIMIT $%d OFFSET $%d`, customerColumns, whereClause, argIdx, argIdx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translateError("list customers", err)
	}
	defer rows.Close()

	var out []*domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, translateError("scan customer", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translateError("list customers", err)
	}
	return out, total, nil
}

func (r *PostgresCustomersRepository) Create(ctx context.Context, c *domain.Customer) (string, error) {
	query := `
		INSERT INTO customers (
			company_name, industry, customer_name, phone1, region, inflow_path,
			manager, manager_team, monthly_budget, contract_start_date,
			contract_expiration_date, status, homepage, instagram, main_keywords,
			memo, registration_date
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
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
		c.Industry,
		c.CustomerName,
		c.Phone1,
		c.Region,
		c.InflowPath,
		c.Manager,
		c.ManagerTeam,
		c.MonthlyBudget,
		c.ContractStartDate,
		c.ContractExpirationDate,
		string(c.Status),
		c.Homepage,
		c.Instagram,
		keywords,
		c.Memo,
		c.RegistrationDate,
	).Scan(&id)
	if err != nil {
		return "", translateError("create customer", err)
	}
	return id, nil
}

func (r *PostgresCustomersRepository) Update(ctx context.Context, c *domain.Customer) error {
	query := `
		UPDATE customers SET
			company_name = $2, industry = $3, customer_name = $4, phone1 = $5, region = $6,
			inflow_path = $7, manager = $8, manager_team = $9, monthly_budget = $10,
			contract_start_date = $11, contract_expiration_date = $12, status = $13,
			homepage = $14, instagram = $15, main_keywords = $16, memo = $17
		WHERE id = $1
	`
	keywords := c.MainKeywords
	if keywords == nil {
		keywords = []string{}
	}
	res, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.CompanyName,
		c.Industry,
		c.CustomerName,
		c.Phone1,
		c.Region,
		c.InflowPath,
		c.Manager,
		c.ManagerTeam,
		c.MonthlyBudget,
		c.ContractStartDate,
		c.ContractExpirationDate,
		string(c.Status),
		c.Homepage,
		c.Instagram,
		keywords,
		c.Memo,
	)
	if err != nil {
		return translateError("update customer", err)
	}
	return affectedOrNotFound("update customer", res)
}

func (r *PostgresCustomersRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return translateError("delete customer", err)
	}
	return affectedOrNotFound("delete customer", res)
}

func (r *PostgresCustomersRepository) SetContractExpiration(ctx context.Context, id string, expiration time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE customers SET contract_expiration_date = $2 WHERE id = $1`, id, expiration)
	if err != nil {
		return translateError("set contract expiration", err)
	}
	return affectedOrNotFound("set contract expiration", res)
}

func (r *PostgresCustomersRepository) CountByStatus(ctx context.Context, status domain.CustomerStatus, manager string) (int, error) {
	query := `SELECT COUNT(*) FROM customers WHERE status = $1 AND ($2::text = '' OR ` + foldedManagerColumn + ` = $2::text)`
	var n int
	if err := r.db.QueryRowContext(ctx, query, string(status), domain.NormalizeManagerName(manager)).Scan(&n); err != nil {
		return 0, translateError("count customers by status", err)
	}
	return n, nil
}
