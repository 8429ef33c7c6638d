package repository

import (
	"context"
	"database/sql"

	"salesops-data/internal/database"
)

// PostgresStore Store backed by a *sql.DB pool
type PostgresStore struct {
	db   *sql.DB
	q    DBTX
	inTx bool
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) SalesTracking() SalesTrackingRepository {
	return NewPostgresSalesTrackingRepository(s.q)
}

func (s *PostgresStore) Retargeting() RetargetingRepository {
	return NewPostgresRetargetingRepository(s.q)
}

func (s *PostgresStore) Customers() CustomersRepository {
	return NewPostgresCustomersRepository(s.q)
}

func (s *PostgresStore) History() HistoryRepository {
	return NewPostgresHistoryRepository(s.q)
}

func (s *PostgresStore) Users() UsersRepository {
	return NewPostgresUsersRepository(s.q)
}

func (s *PostgresStore) Stats() StatsRepository {
	return NewPostgresStatsRepository(s.q)
}

func (s *PostgresStore) Sales() SalesRepository {
	return NewPostgresSalesRepository(s.q)
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&PostgresStore{db: s.db, q: tx, inTx: true})
	})
	return translateError("transaction", err)
}
