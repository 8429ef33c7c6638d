package domain

import (
	"database/sql"
	"time"
)

// ContactRecord one outreach attempt (sales_tracking table)
type ContactRecord struct {
	ID            string         `db:"id"`
	Date          time.Time      `db:"date"`           // DATE, business day in JST
	ManagerName   string         `db:"manager_name"`   // NOT NULL
	CompanyName   sql.NullString `db:"company_name"`   // nullable
	CustomerName  sql.NullString `db:"customer_name"`  // nullable
	AccountID     sql.NullString `db:"account_id"`     // nullable, SNS account handle
	Industry      sql.NullString `db:"industry"`       // nullable
	ContactMethod sql.NullString `db:"contact_method"` // nullable, see ParseContactMethod
	Status        string         `db:"status"`         // NOT NULL, free text, see ParseReplyState
	ContactPerson sql.NullString `db:"contact_person"` // nullable
	Phone         sql.NullString `db:"phone"`          // nullable
	Memo          sql.NullString `db:"memo"`           // nullable
	MemoNote      sql.NullString `db:"memo_note"`      // nullable
	UserID        sql.NullString `db:"user_id"`        // owner

	ExternalCallID sql.NullString `db:"external_call_id"` // unique when not null
	ExternalSource sql.NullString `db:"external_source"`  // e.g. "cpi"
	LastContactAt  sql.NullTime   `db:"last_contact_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	// MovedToRetargeting is derived on read: a PipelineCustomer references this record.
	MovedToRetargeting bool `db:"-"`
}

// IsOwnedBy reports whether userID created the record.
func (r *ContactRecord) IsOwnedBy(userID string) bool {
	return r.UserID.Valid && userID != "" && r.UserID.String == userID
}
