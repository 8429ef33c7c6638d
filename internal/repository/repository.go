package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/lib/pq"
)

// DBTX is satisfied by *sql.DB and *sql.Tx, so every Postgres repository can
// run either standalone or inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store groups the repositories and owns transaction boundaries.
type Store interface {
	SalesTracking() SalesTrackingRepository
	Retargeting() RetargetingRepository
	Customers() CustomersRepository
	History() HistoryRepository
	Users() UsersRepository
	Stats() StatsRepository
	Sales() SalesRepository

	// InTx runs fn against a Store bound to a single transaction. It commits
	// when fn returns nil and rolls back otherwise. Nested calls join the
	// enclosing transaction.
	InTx(ctx context.Context, fn func(Store) error) error
}

// foldedManagerColumn manager as compared by filters: trimmed, 﨑 folded into 崎.
// Bind the argument through domain.NormalizeManagerName.
const foldedManagerColumn = "REPLACE(TRIM(manager), '﨑', '崎')"

// ============================================
// Errors
// ============================================

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
	// ErrTransient timeouts, dropped connections, serialization failures. Safe to retry.
	ErrTransient = errors.New("transient database error")
)

// DBError database failure with its SQLSTATE details. Kind is one of the
// sentinels above, or nil for failures that are not classified.
type DBError struct {
	Op         string
	Kind       error
	Code       string
	Constraint string
	Err        error
}

func (e *DBError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DBError) Unwrap() []error {
	if e.Kind != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Err}
}

// translateError classifies driver errors. Errors it does not recognize are
// returned unchanged.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &DBError{Op: op, Kind: ErrNotFound, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return &DBError{Op: op, Kind: ErrTransient, Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		out := &DBError{Op: op, Code: code, Constraint: pqErr.Constraint, Err: err}
		switch {
		case code == "23505":
			out.Kind = ErrDuplicate
		case isTransientCode(code):
			out.Kind = ErrTransient
		}
		return out
	}
	return err
}

func isTransientCode(code string) bool {
	switch code {
	case "57014", // query_canceled (statement_timeout)
		"57P01", "57P02", "57P03", // admin / crash shutdown, cannot connect now
		"40001", "40P01": // serialization failure, deadlock
		return true
	}
	// connection exceptions, insufficient resources
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "53")
}

// scanner *sql.Row or *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// affectedOrNotFound maps a zero-row write to ErrNotFound.
func affectedOrNotFound(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return translateError(op, err)
	}
	if n == 0 {
		return &DBError{Op: op, Kind: ErrNotFound, Err: sql.ErrNoRows}
	}
	return nil
}
