package domain

import (
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User staff account (users table, read only here)
type User struct {
	ID    string         `db:"id"`
	Name  string         `db:"name"`
	Email string         `db:"email"`
	Role  string         `db:"role"`
	Team  sql.NullString `db:"team"`
}

// Role names
const (
	RoleAdmin    = "admin"
	RoleMarketer = "marketer"
)

// Actor the authenticated caller of an operation.
type Actor struct {
	ID    string
	Email string
	Name  string
	Role  string
	Team  string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SameManager compares manager names the way users type them: trimmed, with the
// variant 﨑 folded into 崎.
func SameManager(a, b string) bool {
	na, nb := NormalizeManagerName(a), NormalizeManagerName(b)
	return na != "" && na == nb
}

// NormalizeManagerName trims and folds 﨑 → 崎.
func NormalizeManagerName(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "﨑", "崎")
}

// Sale accounting row (sales table, read only here)
type Sale struct {
	ID           string          `db:"id"`
	UserID       sql.NullString  `db:"user_id"`
	Amount       decimal.Decimal `db:"amount"`
	ContractDate time.Time       `db:"contract_date"`
	SalesType    sql.NullString  `db:"sales_type"`
}

// SalesTypeNew marks a first-time sale.
const SalesTypeNew = "신규매출"
