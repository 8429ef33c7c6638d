package domain

import (
	"database/sql"
	"time"
)

// HistoryEntry one interaction logged against a Customer or PipelineCustomer
// (customer_history / retargeting_history tables)
type HistoryEntry struct {
	ID        string         `db:"id"`
	OwnerID   string         `db:"customer_id|retargeting_customer_id"`
	UserID    sql.NullString `db:"user_id"`
	UserName  sql.NullString `db:"user_name"`
	Type      HistoryType    `db:"type"`
	Content   string         `db:"content"`
	IsPinned  bool           `db:"is_pinned"`
	CreatedAt time.Time      `db:"created_at"` // zero means "now" on insert
}

// HistoryStream selects which history table an entry lives in.
type HistoryStream int

const (
	RetargetingHistory HistoryStream = iota
	CustomerHistory
)

// Table returns the backing table name.
func (s HistoryStream) Table() string {
	if s == CustomerHistory {
		return "customer_history"
	}
	return "retargeting_history"
}

// OwnerColumn returns the foreign key column of the stream.
func (s HistoryStream) OwnerColumn() string {
	if s == CustomerHistory {
		return "customer_id"
	}
	return "retargeting_customer_id"
}

func (s HistoryStream) String() string {
	return s.Table()
}
