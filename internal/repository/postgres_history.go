package repository

import (
	"context"
	"database/sql"
	"fmt"

	"salesops-data/internal/domain"
)

// PostgresHistoryRepository HistoryRepository over customer_history / retargeting_history.
// Table and column names come from domain.HistoryStream, never from input.
type PostgresHistoryRepository struct {
	db DBTX
}

func NewPostgresHistoryRepository(db DBTX) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

var _ HistoryRepository = (*PostgresHistoryRepository)(nil)

func historyColumns(s domain.HistoryStream) string {
	return fmt.Sprintf(`id::text, %s::text, user_id::text, user_name, type, content, is_pinned, created_at`, s.OwnerColumn())
}

func scanHistoryEntry(row scanner) (*domain.HistoryEntry, error) {
	var e domain.HistoryEntry
	var typ string
	err := row.Scan(
		&e.ID,
		&e.OwnerID,
		&e.UserID,
		&e.UserName,
		&typ,
		&e.Content,
		&e.IsPinned,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Type = domain.HistoryType(typ)
	return &e, nil
}

func (r *PostgresHistoryRepository) List(ctx context.Context, stream domain.HistoryStream, ownerID string) ([]*domain.HistoryEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY is_pinned DESC, created_at DESC`,
		historyColumns(stream), stream.Table(), stream.OwnerColumn())
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, translateError("list "+stream.Table(), err)
	}
	defer rows.Close()

	var out []*domain.HistoryEntry
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, translateError("scan "+stream.Table(), err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("list "+stream.Table(), err)
	}
	return out, nil
}

func (r *PostgresHistoryRepository) Get(ctx context.Context, stream domain.HistoryStream, historyID string) (*domain.HistoryEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, historyColumns(stream), stream.Table())
	e, err := scanHistoryEntry(r.db.QueryRowContext(ctx, query, historyID))
	if err != nil {
		return nil, translateError("get "+stream.Table(), err)
	}
	return e, nil
}

func (r *PostgresHistoryRepository) Add(ctx context.Context, stream domain.HistoryStream, e *domain.HistoryEntry) (string, error) {
	createdAt := sql.NullTime{Time: e.CreatedAt, Valid: !e.CreatedAt.IsZero()}
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, user_id, user_name, type, content, is_pinned, created_at)
		VALUES ($1, $2::uuid, $3, $4, $5, $6, COALESCE($7, NOW()))
		RETURNING id::text
	`, stream.Table(), stream.OwnerColumn())

	var id string
	err := r.db.QueryRowContext(ctx, query,
		e.OwnerID,
		e.UserID,
		e.UserName,
		string(e.Type),
		e.Content,
		e.IsPinned,
		createdAt,
	).Scan(&id)
	if err != nil {
		return "", translateError("add "+stream.Table(), err)
	}
	return id, nil
}

func (r *PostgresHistoryRepository) Delete(ctx context.Context, stream domain.HistoryStream, historyID string) error {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, stream.Table()), historyID)
	if err != nil {
		return translateError("delete "+stream.Table(), err)
	}
	return affectedOrNotFound("delete "+stream.Table(), res)
}

func (r *PostgresHistoryRepository) SetPinned(ctx context.Context, stream domain.HistoryStream, historyID string, pinned bool) error {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET is_pinned = $2 WHERE id = $1`, stream.Table()), historyID, pinned)
	if err != nil {
		return translateError("pin "+stream.Table(), err)
	}
	return affectedOrNotFound("pin "+stream.Table(), res)
}

func (r *PostgresHistoryRepository) DeleteByOwner(ctx context.Context, stream domain.HistoryStream, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, stream.Table(), stream.OwnerColumn()), ownerID)
	if err != nil {
		return 0, translateError("delete "+stream.Table(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, translateError("delete "+stream.Table(), err)
	}
	return n, nil
}
