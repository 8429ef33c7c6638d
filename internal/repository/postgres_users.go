package repository

import (
	"context"
	"strings"

	"salesops-data/internal/domain"
)

type PostgresUsersRepository struct {
	db DBTX
}

func NewPostgresUsersRepository(db DBTX) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `id::text, name, email, role, team`

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Team); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUsersRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, translateError("get user", err)
	}
	return u, nil
}

func (r *PostgresUsersRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE name = $1 ORDER BY created_at LIMIT 1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, strings.TrimSpace(name)))
	if err != nil {
		return nil, translateError("get user by name", err)
	}
	return u, nil
}

func (r *PostgresUsersRepository) ListByRole(ctx context.Context, role string) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY name`, role)
	if err != nil {
		return nil, translateError("list users by role", err)
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translateError("scan user", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("list users by role", err)
	}
	return out, nil
}
