package domain

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// PipelineCustomer prospect in the retargeting funnel (retargeting_customers table)
type PipelineCustomer struct {
	ID                      string         `db:"id"`
	CompanyName             string         `db:"company_name"`  // NOT NULL, <=255
	CustomerName            string         `db:"customer_name"` // NOT NULL, <=100
	Phone                   string         `db:"phone"`         // NOT NULL, <=20
	Industry                sql.NullString `db:"industry"`
	Region                  sql.NullString `db:"region"`
	InflowPath              sql.NullString `db:"inflow_path"`
	Manager                 string         `db:"manager"` // NOT NULL
	ManagerTeam             sql.NullString `db:"manager_team"`
	Status                  FunnelStage    `db:"status"`
	ContractHistoryCategory sql.NullString `db:"contract_history_category"`
	RegisteredAt            time.Time      `db:"registered_at"` // DATE
	LastContactDate         sql.NullTime   `db:"last_contact_date"`
	Memo                    sql.NullString `db:"memo"`
	Homepage                sql.NullString `db:"homepage"`
	Instagram               sql.NullString `db:"instagram"`
	MainKeywords            pq.StringArray `db:"main_keywords"`

	// SalesTrackingID provenance link; unique when not null, cleared when the source is deleted.
	SalesTrackingID sql.NullString `db:"sales_tracking_id"`

	CreatedAt time.Time `db:"created_at"`
}

// IsManagedBy compares the trimmed manager name.
func (c *PipelineCustomer) IsManagedBy(name string) bool {
	return SameManager(c.Manager, name)
}

// PipelineCustomer column limits
const (
	MaxCompanyNameLen  = 255
	MaxCustomerNameLen = 100
	MaxPhoneLen        = 20
)
