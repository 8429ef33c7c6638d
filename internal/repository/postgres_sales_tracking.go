package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salesops-data/internal/domain"
)

// PostgresSalesTrackingRepository SalesTrackingRepository over sales_tracking
type PostgresSalesTrackingRepository struct {
	db DBTX
}

func NewPostgresSalesTrackingRepository(db DBTX) *PostgresSalesTrackingRepository {
	return &PostgresSalesTrackingRepository{db: db}
}

var _ SalesTrackingRepository = (*PostgresSalesTrackingRepository)(nil)

const contactRecordColumns = `
	st.id::text,
	st.date,
	st.manager_name,
	st.company_name,
	st.customer_name,
	st.account_id,
	st.industry,
	st.contact_method,
	st.status,
	st.contact_person,
	st.phone,
	st.memo,
	st.memo_note,
	st.user_id::text,
	st.external_call_id,
	st.external_source,
	st.last_contact_at,
	st.created_at,
	st.updated_at,
	EXISTS (SELECT 1 FROM retargeting_customers rc WHERE rc.sales_tracking_id = st.id)`

func scanContactRecord(row scanner) (*domain.ContactRecord, error) {
	var r domain.ContactRecord
	err := row.Scan(
		&r.ID,
		&r.Date,
		&r.ManagerName,
		&r.CompanyName,
		&r.CustomerName,
		&r.AccountID,
		&r.Industry,
		&r.ContactMethod,
		&r.Status,
		&r.ContactPerson,
		&r.Phone,
		&r.Memo,
		&r.MemoNote,
		&r.UserID,
		&r.ExternalCallID,
		&r.ExternalSource,
		&r.LastContactAt,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.MovedToRetargeting,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *PostgresSalesTrackingRepository) Get(ctx context.Context, id string) (*domain.ContactRecord, error) {
	query := `SELECT ` + contactRecordColumns + ` FROM sales_tracking st WHERE st.id = $1`
	rec, err := scanContactRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError("get sales tracking", err)
	}
	return rec, nil
}

func (r *PostgresSalesTrackingRepository) List(ctx context.Context, filter SalesTrackingFilter) ([]*domain.ContactRecord, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argIdx := 1

	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, fmt.Sprintf(`(
			st.manager_name ILIKE $%[1]d OR st.account_id ILIKE $%[1]d OR st.customer_name ILIKE $%[1]d
			OR st.company_name ILIKE $%[1]d OR st.industry ILIKE $%[1]d OR st.phone ILIKE $%[1]d)`, argIdx))
		args = append(args, "%"+s+"%")
		argIdx++
	}
	if filter.Manager != "" {
		where = append(where, fmt.Sprintf("st.manager_name = $%d", argIdx))
		args = append(args, filter.Manager)
		argIdx++
	}
	if !filter.From.IsZero() {
		where = append(where, fmt.Sprintf("st.date >= $%d", argIdx))
		args = append(args, filter.From)
		argIdx++
	}
	if !filter.To.IsZero() {
		where = append(where, fmt.Sprintf("st.date < $%d", argIdx))
		args = append(args, filter.To)
		argIdx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM sales_tracking st WHERE ` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, translateError("count sales tracking", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM sales_tracking st WHERE %s
		ORDER BY st.date DESC, st.created_at DESC
		LIMIT $%d OFFSET $%d`, contactRecordColumns, whereClause, argIdx, argIdx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translateError("list sales tracking", err)
	}
	defer rows.Close()

	var out []*domain.ContactRecord
	for rows.Next() {
		rec, err := scanContactRecord(rows)
		if err != nil {
			return nil, 0, translateError("scan sales tracking", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translateError("list sales tracking", err)
	}
	return out, total, nil
}

func (r *PostgresSalesTrackingRepository) Create(ctx context.Context, rec *domain.ContactRecord) (string, error) {
	query := `
		INSERT INTO sales_tracking (
			date, manager_name, company_name, customer_name, account_id, industry,
			contact_method, status, contact_person, phone, memo, memo_note, user_id,
			external_call_id, external_source, last_contact_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::uuid, $14, $15, $16, NOW(), NOW()
		)
		RETURNING id::text
	`
	var id string
	err := r.db.QueryRowContext(ctx, query,
		rec.Date,
		rec.ManagerName,
		rec.CompanyName,
		rec.CustomerName,
		rec.AccountID,
		rec.Industry,
		rec.ContactMethod,
		rec.Status,
		rec.ContactPerson,
		rec.Phone,
		rec.Memo,
		rec.MemoNote,
		rec.UserID,
		rec.ExternalCallID,
		rec.ExternalSource,
		rec.LastContactAt,
	).Scan(&id)
	if err != nil {
		return "", translateError("create sales tracking", err)
	}
	return id, nil
}

func (r *PostgresSalesTrackingRepository) Update(ctx context.Context, rec *domain.ContactRecord) error {
	query := `
		UPDATE sales_tracking SET
			date = $2, manager_name = $3, company_name = $4, customer_name = $5,
			account_id = $6, industry = $7, contact_method = $8, status = $9,
			contact_person = $10, phone = $11, memo = $12, memo_note = $13,
			updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Date,
		rec.ManagerName,
		rec.CompanyName,
		rec.CustomerName,
		rec.AccountID,
		rec.Industry,
		rec.ContactMethod,
		rec.Status,
		rec.ContactPerson,
		rec.Phone,
		rec.Memo,
		rec.MemoNote,
	)
	if err != nil {
		return translateError("update sales tracking", err)
	}
	return affectedOrNotFound("update sales tracking", res)
}

func (r *PostgresSalesTrackingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sales_tracking WHERE id = $1`, id)
	if err != nil {
		return translateError("delete sales tracking", err)
	}
	return affectedOrNotFound("delete sales tracking", res)
}

func (r *PostgresSalesTrackingRepository) SetLastContact(ctx context.Context, id string, at *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sales_tracking SET last_contact_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return translateError("set last contact", err)
	}
	return affectedOrNotFound("set last contact", res)
}

func (r *PostgresSalesTrackingRepository) FindByExternalCallID(ctx context.Context, externalCallID string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id::text FROM sales_tracking WHERE external_call_id = $1`, externalCallID).Scan(&id)
	if err != nil {
		return "", translateError("find by external call id", err)
	}
	return id, nil
}

func (r *PostgresSalesTrackingRepository) UpdateFromExternal(ctx context.Context, rec *domain.ContactRecord) error {
	query := `
		UPDATE sales_tracking SET
			date = $2, manager_name = $3, company_name = $4, phone = $5,
			user_id = $6::uuid, contact_method = $7, status = $8, updated_at = NOW()
		WHERE external_call_id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.ExternalCallID,
		rec.Date,
		rec.ManagerName,
		rec.CompanyName,
		rec.Phone,
		rec.UserID,
		rec.ContactMethod,
		rec.Status,
	)
	if err != nil {
		return translateError("update from external", err)
	}
	return affectedOrNotFound("update from external", res)
}

func (r *PostgresSalesTrackingRepository) ExistsExternalPhone(ctx context.Context, source, phoneDigits string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM sales_tracking
			WHERE external_source = $1
			  AND regexp_replace(COALESCE(phone, ''), '[^0-9]', '', 'g') = $2
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, source, phoneDigits).Scan(&exists); err != nil {
		return false, translateError("exists external phone", err)
	}
	return exists, nil
}
