package httpapi

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"salesops-data/internal/domain"
	"salesops-data/internal/service"
)

// All JSON crosses this file. Storage names stay snake_case in the
// repositories; the API is camelCase.

const dateLayout = service.DateLayout

type dtoMapper struct {
	loc *time.Location
}

// NewDTOMapper renders dates and timestamps in loc.
func NewDTOMapper(loc *time.Location) dtoMapper {
	return dtoMapper{loc: loc}
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func (m dtoMapper) date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func (m dtoMapper) nullDate(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := t.Time.Format(dateLayout)
	return &s
}

func (m dtoMapper) timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(m.loc).Format(time.RFC3339)
}

func (m dtoMapper) nullTimestamp(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := m.timestamp(t.Time)
	return &s
}

// parseOptionalDate "" and null mean no date.
func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ============================================
// Sales tracking
// ============================================

type contactRecordDTO struct {
	ID                 string  `json:"id"`
	Date               string  `json:"date"`
	ManagerName        string  `json:"managerName"`
	CompanyName        *string `json:"companyName"`
	CustomerName       *string `json:"customerName"`
	AccountID          *string `json:"accountId"`
	Industry           *string `json:"industry"`
	ContactMethod      *string `json:"contactMethod"`
	Status             string  `json:"status"`
	ContactPerson      *string `json:"contactPerson"`
	Phone              *string `json:"phone"`
	Memo               *string `json:"memo"`
	MemoNote           *string `json:"memoNote"`
	UserID             *string `json:"userId"`
	ExternalCallID     *string `json:"externalCallId,omitempty"`
	ExternalSource     *string `json:"externalSource,omitempty"`
	LastContactAt      *string `json:"lastContactAt"`
	MovedToRetargeting bool    `json:"movedToRetargeting"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

func (m dtoMapper) contactRecord(rec *domain.ContactRecord) contactRecordDTO {
	return contactRecordDTO{
		ID:                 rec.ID,
		Date:               m.date(rec.Date),
		ManagerName:        rec.ManagerName,
		CompanyName:        nullString(rec.CompanyName),
		CustomerName:       nullString(rec.CustomerName),
		AccountID:          nullString(rec.AccountID),
		Industry:           nullString(rec.Industry),
		ContactMethod:      nullString(rec.ContactMethod),
		Status:             rec.Status,
		ContactPerson:      nullString(rec.ContactPerson),
		Phone:              nullString(rec.Phone),
		Memo:               nullString(rec.Memo),
		MemoNote:           nullString(rec.MemoNote),
		UserID:             nullString(rec.UserID),
		ExternalCallID:     nullString(rec.ExternalCallID),
		ExternalSource:     nullString(rec.ExternalSource),
		LastContactAt:      m.nullTimestamp(rec.LastContactAt),
		MovedToRetargeting: rec.MovedToRetargeting,
		CreatedAt:          m.timestamp(rec.CreatedAt),
		UpdatedAt:          m.timestamp(rec.UpdatedAt),
	}
}

type contactRecordRequest struct {
	Date          string  `json:"date" validate:"required,datetime=2006-01-02"`
	ManagerName   string  `json:"managerName" validate:"required,max=100"`
	CompanyName   *string `json:"companyName" validate:"omitempty,max=255"`
	CustomerName  *string `json:"customerName" validate:"omitempty,max=255"`
	AccountID     *string `json:"accountId" validate:"omitempty,max=255"`
	Industry      *string `json:"industry"`
	ContactMethod *string `json:"contactMethod"`
	Status        string  `json:"status" validate:"required,max=50"`
	ContactPerson *string `json:"contactPerson"`
	Phone         *string `json:"phone" validate:"omitempty,max=50"`
	Memo          *string `json:"memo"`
	MemoNote      *string `json:"memoNote"`
}

func (req contactRecordRequest) input() service.ContactRecordInput {
	d, _ := time.Parse(dateLayout, req.Date)
	return service.ContactRecordInput{
		Date:          d,
		ManagerName:   req.ManagerName,
		CompanyName:   deref(req.CompanyName),
		CustomerName:  deref(req.CustomerName),
		AccountID:     deref(req.AccountID),
		Industry:      deref(req.Industry),
		ContactMethod: deref(req.ContactMethod),
		Status:        req.Status,
		ContactPerson: deref(req.ContactPerson),
		Phone:         deref(req.Phone),
		Memo:          deref(req.Memo),
		MemoNote:      deref(req.MemoNote),
	}
}

type bulkMoveRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,uuid"`
}

// ============================================
// Retargeting
// ============================================

type pipelineCustomerDTO struct {
	ID                      string   `json:"id"`
	CompanyName             string   `json:"companyName"`
	CustomerName            string   `json:"customerName"`
	Phone                   string   `json:"phone"`
	Industry                *string  `json:"industry"`
	Region                  *string  `json:"region"`
	InflowPath              *string  `json:"inflowPath"`
	Manager                 string   `json:"manager"`
	ManagerTeam             *string  `json:"managerTeam"`
	Status                  string   `json:"status"`
	ContractHistoryCategory *string  `json:"contractHistoryCategory"`
	RegisteredAt            string   `json:"registeredAt"`
	LastContactDate         *string  `json:"lastContactDate"`
	Memo                    *string  `json:"memo"`
	Homepage                *string  `json:"homepage"`
	Instagram               *string  `json:"instagram"`
	MainKeywords            []string `json:"mainKeywords"`
	SalesTrackingID         *string  `json:"salesTrackingId"`
	CreatedAt               string   `json:"createdAt"`
}

func (m dtoMapper) pipelineCustomer(pc *domain.PipelineCustomer) pipelineCustomerDTO {
	keywords := []string(pc.MainKeywords)
	if keywords == nil {
		keywords = []string{}
	}
	return pipelineCustomerDTO{
		ID:                      pc.ID,
		CompanyName:             pc.CompanyName,
		CustomerName:            pc.CustomerName,
		Phone:                   pc.Phone,
		Industry:                nullString(pc.Industry),
		Region:                  nullString(pc.Region),
		InflowPath:              nullString(pc.InflowPath),
		Manager:                 pc.Manager,
		ManagerTeam:             nullString(pc.ManagerTeam),
		Status:                  string(pc.Status),
		ContractHistoryCategory: nullString(pc.ContractHistoryCategory),
		RegisteredAt:            m.date(pc.RegisteredAt),
		LastContactDate:         m.nullDate(pc.LastContactDate),
		Memo:                    nullString(pc.Memo),
		Homepage:                nullString(pc.Homepage),
		Instagram:               nullString(pc.Instagram),
		MainKeywords:            keywords,
		SalesTrackingID:         nullString(pc.SalesTrackingID),
		CreatedAt:               m.timestamp(pc.CreatedAt),
	}
}

type pipelineCustomerRequest struct {
	CompanyName             string   `json:"companyName" validate:"max=255"`
	CustomerName            string   `json:"customerName" validate:"max=100"`
	Phone                   string   `json:"phone" validate:"max=50"`
	Industry                *string  `json:"industry"`
	Region                  *string  `json:"region"`
	InflowPath              *string  `json:"inflowPath"`
	Manager                 string   `json:"manager" validate:"max=100"`
	ManagerTeam             *string  `json:"managerTeam"`
	Status                  string   `json:"status"`
	ContractHistoryCategory *string  `json:"contractHistoryCategory"`
	RegisteredAt            *string  `json:"registeredAt" validate:"omitempty,datetime=2006-01-02"`
	LastContactDate         *string  `json:"lastContactDate" validate:"omitempty,datetime=2006-01-02"`
	Memo                    *string  `json:"memo"`
	Homepage                *string  `json:"homepage" validate:"omitempty,max=500"`
	Instagram               *string  `json:"instagram" validate:"omitempty,max=255"`
	MainKeywords            []string `json:"mainKeywords" validate:"max=50"`
}

func (req pipelineCustomerRequest) input() (service.PipelineCustomerInput, error) {
	registered, err := parseOptionalDate(req.RegisteredAt)
	if err != nil {
		return service.PipelineCustomerInput{}, err
	}
	lastContact, err := parseOptionalDate(req.LastContactDate)
	if err != nil {
		return service.PipelineCustomerInput{}, err
	}
	return service.PipelineCustomerInput{
		CompanyName:             req.CompanyName,
		CustomerName:            req.CustomerName,
		Phone:                   req.Phone,
		Industry:                deref(req.Industry),
		Region:                  deref(req.Region),
		InflowPath:              deref(req.InflowPath),
		Manager:                 req.Manager,
		ManagerTeam:             deref(req.ManagerTeam),
		Status:                  req.Status,
		ContractHistoryCategory: deref(req.ContractHistoryCategory),
		RegisteredAt:            registered,
		LastContactDate:         lastContact,
		Memo:                    deref(req.Memo),
		Homepage:                deref(req.Homepage),
		Instagram:               deref(req.Instagram),
		MainKeywords:            req.MainKeywords,
	}, nil
}

type convertRequest struct {
	MonthlyBudget          decimal.Decimal `json:"monthlyBudget"`
	ContractStartDate      *string         `json:"contractStartDate" validate:"omitempty,datetime=2006-01-02"`
	ContractExpirationDate *string         `json:"contractExpirationDate" validate:"omitempty,datetime=2006-01-02"`
}

// ============================================
// Customers
// ============================================

type customerDTO struct {
	ID                     string          `json:"id"`
	CompanyName            string          `json:"companyName"`
	Industry               *string         `json:"industry"`
	CustomerName           string          `json:"customerName"`
	Phone1                 string          `json:"phone1"`
	Region                 *string         `json:"region"`
	InflowPath             *string         `json:"inflowPath"`
	Manager                string          `json:"manager"`
	ManagerTeam            *string         `json:"managerTeam"`
	MonthlyBudget          decimal.Decimal `json:"monthlyBudget"`
	ContractStartDate      *string         `json:"contractStartDate"`
	ContractExpirationDate *string         `json:"contractExpirationDate"`
	Status                 string          `json:"status"`
	Homepage               *string         `json:"homepage"`
	Instagram              *string         `json:"instagram"`
	MainKeywords           []string        `json:"mainKeywords"`
	Memo                   *string         `json:"memo"`
	RegistrationDate       string          `json:"registrationDate"`
	CreatedAt              string          `json:"createdAt"`
}

func (m dtoMapper) customer(c *domain.Customer) customerDTO {
	keywords := []string(c.MainKeywords)
	if keywords == nil {
		keywords = []string{}
	}
	return customerDTO{
		ID:                     c.ID,
		CompanyName:            c.CompanyName,
		Industry:               nullString(c.Industry),
		CustomerName:           c.CustomerName,
		Phone1:                 c.Phone1,
		Region:                 nullString(c.Region),
		InflowPath:             nullString(c.InflowPath),
		Manager:                c.Manager,
		ManagerTeam:            nullString(c.ManagerTeam),
		MonthlyBudget:          c.MonthlyBudget,
		ContractStartDate:      m.nullDate(c.ContractStartDate),
		ContractExpirationDate: m.nullDate(c.ContractExpirationDate),
		Status:                 string(c.Status),
		Homepage:               nullString(c.Homepage),
		Instagram:              nullString(c.Instagram),
		MainKeywords:           keywords,
		Memo:                   nullString(c.Memo),
		RegistrationDate:       m.date(c.RegistrationDate),
		CreatedAt:              m.timestamp(c.CreatedAt),
	}
}

type customerRequest struct {
	CompanyName            string          `json:"companyName" validate:"required,max=255"`
	Industry               *string         `json:"industry"`
	CustomerName           string          `json:"customerName" validate:"required,max=100"`
	Phone1                 string          `json:"phone1" validate:"max=50"`
	Region                 *string         `json:"region"`
	InflowPath             *string         `json:"inflowPath"`
	Manager                string          `json:"manager" validate:"max=100"`
	ManagerTeam            *string         `json:"managerTeam"`
	MonthlyBudget          decimal.Decimal `json:"monthlyBudget"`
	ContractStartDate      *string         `json:"contractStartDate" validate:"omitempty,datetime=2006-01-02"`
	ContractExpirationDate *string         `json:"contractExpirationDate" validate:"omitempty,datetime=2006-01-02"`
	Status                 string          `json:"status"`
	Homepage               *string         `json:"homepage" validate:"omitempty,max=500"`
	Instagram              *string         `json:"instagram" validate:"omitempty,max=255"`
	MainKeywords           []string        `json:"mainKeywords" validate:"max=50"`
	Memo                   *string         `json:"memo"`
}

func (req customerRequest) input() (service.CustomerInput, error) {
	start, err := parseOptionalDate(req.ContractStartDate)
	if err != nil {
		return service.CustomerInput{}, err
	}
	end, err := parseOptionalDate(req.ContractExpirationDate)
	if err != nil {
		return service.CustomerInput{}, err
	}
	return service.CustomerInput{
		CompanyName:            req.CompanyName,
		Industry:               deref(req.Industry),
		CustomerName:           req.CustomerName,
		Phone1:                 req.Phone1,
		Region:                 deref(req.Region),
		InflowPath:             deref(req.InflowPath),
		Manager:                req.Manager,
		ManagerTeam:            deref(req.ManagerTeam),
		MonthlyBudget:          req.MonthlyBudget,
		ContractStartDate:      start,
		ContractExpirationDate: end,
		Status:                 req.Status,
		Homepage:               deref(req.Homepage),
		Instagram:              deref(req.Instagram),
		MainKeywords:           req.MainKeywords,
		Memo:                   deref(req.Memo),
	}, nil
}

// ============================================
// History
// ============================================

type historyDTO struct {
	ID        string  `json:"id"`
	UserID    *string `json:"userId"`
	UserName  *string `json:"userName"`
	Type      string  `json:"type"`
	Content   string  `json:"content"`
	IsPinned  bool    `json:"isPinned"`
	CreatedAt string  `json:"createdAt"`
}

func (m dtoMapper) history(e *domain.HistoryEntry) historyDTO {
	return historyDTO{
		ID:        e.ID,
		UserID:    nullString(e.UserID),
		UserName:  nullString(e.UserName),
		Type:      string(e.Type),
		Content:   e.Content,
		IsPinned:  e.IsPinned,
		CreatedAt: m.timestamp(e.CreatedAt),
	}
}

func (m dtoMapper) historyList(entries []*domain.HistoryEntry) []historyDTO {
	out := make([]historyDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, m.history(e))
	}
	return out
}

type historyRequest struct {
	Type    string `json:"type" validate:"max=50"`
	Content string `json:"content" validate:"required,max=10000"`
}

type pinRequest struct {
	IsPinned *bool `json:"isPinned" validate:"required"`
}
