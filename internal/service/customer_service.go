package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"salesops-data/internal/domain"
	"salesops-data/internal/repository"
	"salesops-data/internal/sanitize"
)

// CustomerService Customer CRUD, history and contract extension
type CustomerService struct {
	store  repository.Store
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

func NewCustomerService(store repository.Store, loc *time.Location, logger *zap.Logger) *CustomerService {
	return &CustomerService{store: store, loc: loc, logger: logger, now: time.Now}
}

type ListCustomersRequest struct {
	Manager string
	Status  string
	Search  string
	Page    int
	Size    int
}

type ListCustomersResponse struct {
	Items []*domain.Customer
	Total int
}

func (s *CustomerService) List(ctx context.Context, req ListCustomersRequest) (*ListCustomersResponse, error) {
	page, size := normalizePage(req.Page, req.Size)
	filter := repository.CustomersFilter{
		Manager: strings.TrimSpace(req.Manager),
		Search:  strings.TrimSpace(req.Search),
		Limit:   size,
		Offset:  (page - 1) * size,
	}
	if filter.Manager == "all" {
		filter.Manager = ""
	}
	if st := strings.TrimSpace(req.Status); st != "" && st != "all" {
		filter.Status = domain.ParseCustomerStatus(st)
	}
	items, total, err := s.store.Customers().List(ctx, filter)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to list customers", "")
	}
	return &ListCustomersResponse{Items: items, Total: total}, nil
}

func (s *CustomerService) Get(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := s.store.Customers().Get(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load customer", "Customer not found")
	}
	return c, nil
}

// CustomerInput editable Customer fields.
type CustomerInput struct {
	CompanyName            string
	Industry               string
	CustomerName           string
	Phone1                 string
	Region                 string
	InflowPath             string
	Manager                string
	ManagerTeam            string
	MonthlyBudget          decimal.Decimal
	ContractStartDate      *time.Time
	ContractExpirationDate *time.Time
	Status                 string
	Homepage               string
	Instagram              string
	MainKeywords           []string
	Memo                   string
}

func (in CustomerInput) apply(c *domain.Customer) error {
	company, err := sanitize.Required("companyName", in.CompanyName)
	if err != nil {
		return wrapRepoError(err, "", "")
	}
	customer, err := sanitize.Required("customerName", in.CustomerName)
	if err != nil {
		return wrapRepoError(err, "", "")
	}
	if in.MonthlyBudget.IsNegative() {
		return validation("monthlyBudget must not be negative")
	}
	if in.ContractStartDate != nil && in.ContractExpirationDate != nil &&
		in.ContractExpirationDate.Before(*in.ContractStartDate) {
		return validation("contractExpirationDate must not be before contractStartDate")
	}

	c.CompanyName = sanitize.Truncate(company, 255)
	c.CustomerName = sanitize.Truncate(customer, 100)
	c.Phone1 = sanitize.PhoneMax(in.Phone1, 20)
	c.Industry = sanitize.OptionalMax(in.Industry, 100)
	c.Region = sanitize.OptionalMax(in.Region, 100)
	c.InflowPath = sanitize.OptionalMax(in.InflowPath, 100)
	c.ManagerTeam = sanitize.OptionalMax(in.ManagerTeam, 100)
	c.MonthlyBudget = in.MonthlyBudget.Round(2)
	c.ContractStartDate = nullDate(in.ContractStartDate)
	c.ContractExpirationDate = nullDate(in.ContractExpirationDate)
	c.Homepage = sanitize.OptionalMax(in.Homepage, 500)
	c.Instagram = sanitize.OptionalMax(in.Instagram, 255)
	c.MainKeywords = cleanKeywords(in.MainKeywords)
	c.Memo = sanitize.Optional(in.Memo)
	if strings.TrimSpace(in.Status) != "" || c.Status == "" {
		c.Status = domain.ParseCustomerStatus(in.Status)
	}
	if m := domain.NormalizeManagerName(in.Manager); m != "" {
		c.Manager = m
	}
	if c.Manager == "" {
		return invalidState("Manager name is required")
	}
	return nil
}

func (s *CustomerService) Create(ctx context.Context, in CustomerInput, actor domain.Actor) (*domain.Customer, error) {
	c := &domain.Customer{Manager: domain.NormalizeManagerName(actor.Name)}
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !c.IsManagedBy(actor.Name) {
		return nil, forbidden("You can only create customers for yourself")
	}
	c.RegistrationDate = today(s.now(), s.loc)

	id, err := s.store.Customers().Create(ctx, c)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to create customer", "")
	}
	return s.Get(ctx, id)
}

func (s *CustomerService) Update(ctx context.Context, id string, in CustomerInput, actor domain.Actor) (*domain.Customer, error) {
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		c, err := tx.Customers().Get(ctx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !c.IsManagedBy(actor.Name) {
			return forbidden("You do not have permission to update this customer")
		}
		if err := in.apply(c); err != nil {
			return err
		}
		return tx.Customers().Update(ctx, c)
	})
	if err != nil {
		return nil, wrapRepoError(err, "Failed to update customer", "Customer not found")
	}
	return s.Get(ctx, id)
}

// Delete admin only. History rows go with the customer.
func (s *CustomerService) Delete(ctx context.Context, id string, actor domain.Actor) error {
	if !actor.IsAdmin() {
		return forbidden("Only admins can delete customers")
	}
	err := s.store.Customers().Delete(ctx, id)
	return wrapRepoError(err, "Failed to delete customer", "Customer not found")
}

// ExtendContract pushes the contract expiration out by one calendar month and
// logs a contract_extended entry in the same transaction. A customer without
// an expiration date is extended from today.
func (s *CustomerService) ExtendContract(ctx context.Context, id string, actor domain.Actor) (*domain.Customer, error) {
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		c, err := tx.Customers().Get(ctx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !c.IsManagedBy(actor.Name) {
			return forbidden("You do not have permission to extend this contract")
		}
		if c.Status == domain.CustomerTerminated {
			return invalidState("Cannot extend a terminated contract")
		}

		base := today(s.now(), s.loc)
		prev := "-"
		if c.ContractExpirationDate.Valid {
			base = calendarDate(c.ContractExpirationDate.Time)
			prev = base.Format(DateLayout)
		}
		next := addMonths(base, 1)
		if err := tx.Customers().SetContractExpiration(ctx, id, next); err != nil {
			return err
		}
		_, err = tx.History().Add(ctx, domain.CustomerHistory, &domain.HistoryEntry{
			OwnerID:  id,
			UserID:   sql.NullString{String: actor.ID, Valid: actor.ID != ""},
			UserName: sql.NullString{String: actor.Name, Valid: actor.Name != ""},
			Type:     domain.HistoryContractExtended,
			Content:  fmt.Sprintf("契約延長: %s → %s", prev, next.Format(DateLayout)),
		})
		return err
	})
	if err != nil {
		return nil, wrapRepoError(err, "Failed to extend contract", "Customer not found")
	}
	s.logger.Info("Extended customer contract", zap.String("customer_id", id), zap.String("actor", actor.Name))
	return s.Get(ctx, id)
}

// ========== history ==========

func (s *CustomerService) ListHistory(ctx context.Context, id string) ([]*domain.HistoryEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.store.History().List(ctx, domain.CustomerHistory, id)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load history", "")
	}
	return entries, nil
}

func (s *CustomerService) AddHistory(ctx context.Context, id string, in HistoryInput, actor domain.Actor) (*domain.HistoryEntry, error) {
	e, err := historyEntry(domain.CustomerHistory, id, in, actor)
	if err != nil {
		return nil, err
	}
	var created *domain.HistoryEntry
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Customers().Get(ctx, id); err != nil {
			return err
		}
		hid, err := tx.History().Add(ctx, domain.CustomerHistory, e)
		if err != nil {
			return err
		}
		created, err = tx.History().Get(ctx, domain.CustomerHistory, hid)
		return err
	})
	if err != nil {
		return nil, wrapRepoError(err, "Failed to add history", "Customer not found")
	}
	return created, nil
}

func (s *CustomerService) PinHistory(ctx context.Context, id, historyID string, pinned bool) (*domain.HistoryEntry, error) {
	e, err := ownedHistoryEntry(ctx, s.store.History(), domain.CustomerHistory, id, historyID)
	if err != nil {
		return nil, err
	}
	if err := s.store.History().SetPinned(ctx, domain.CustomerHistory, historyID, pinned); err != nil {
		return nil, wrapRepoError(err, "Failed to pin history", "History not found")
	}
	e.IsPinned = pinned
	return e, nil
}
