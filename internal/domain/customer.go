package domain

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Customer contracted (paying) customer (customers table)
type Customer struct {
	ID                     string          `db:"id"`
	CompanyName            string          `db:"company_name"`
	Industry               sql.NullString  `db:"industry"`
	CustomerName           string          `db:"customer_name"`
	Phone1                 string          `db:"phone1"`
	Region                 sql.NullString  `db:"region"`
	InflowPath             sql.NullString  `db:"inflow_path"`
	Manager                string          `db:"manager"`
	ManagerTeam            sql.NullString  `db:"manager_team"`
	MonthlyBudget          decimal.Decimal `db:"monthly_budget"` // NUMERIC(14,2)
	ContractStartDate      sql.NullTime    `db:"contract_start_date"`
	ContractExpirationDate sql.NullTime    `db:"contract_expiration_date"`
	Status                 CustomerStatus  `db:"status"`
	Homepage               sql.NullString  `db:"homepage"`
	Instagram              sql.NullString  `db:"instagram"`
	MainKeywords           pq.StringArray  `db:"main_keywords"`
	Memo                   sql.NullString  `db:"memo"`
	RegistrationDate       time.Time       `db:"registration_date"`
	CreatedAt              time.Time       `db:"created_at"`
}

func (c *Customer) IsManagedBy(name string) bool {
	return SameManager(c.Manager, name)
}

// ContractTerms supplied by the caller when converting a PipelineCustomer.
type ContractTerms struct {
	MonthlyBudget          decimal.Decimal
	ContractStartDate      sql.NullTime
	ContractExpirationDate sql.NullTime
}
