package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"salesops-data/internal/domain"
	"salesops-data/internal/repository"
	"salesops-data/internal/sanitize"
)

// SalesTrackingService ContactRecord CRUD
type SalesTrackingService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewSalesTrackingService(store repository.Store, logger *zap.Logger) *SalesTrackingService {
	return &SalesTrackingService{store: store, logger: logger, now: time.Now}
}

// ListSalesTrackingRequest To is inclusive.
type ListSalesTrackingRequest struct {
	Search  string
	Manager string
	From    time.Time
	To      time.Time
	Page    int
	Size    int
}

type ListSalesTrackingResponse struct {
	Items []*domain.ContactRecord
	Total int
}

func (s *SalesTrackingService) List(ctx context.Context, req ListSalesTrackingRequest) (*ListSalesTrackingResponse, error) {
	page, size := normalizePage(req.Page, req.Size)
	filter := repository.SalesTrackingFilter{
		Search:  strings.TrimSpace(req.Search),
		Manager: strings.TrimSpace(req.Manager),
		From:    req.From,
		Limit:   size,
		Offset:  (page - 1) * size,
	}
	if filter.Manager == "all" {
		filter.Manager = ""
	}
	if !req.To.IsZero() {
		filter.To = calendarDate(req.To).AddDate(0, 0, 1)
	}
	items, total, err := s.store.SalesTracking().List(ctx, filter)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to list sales tracking records", "")
	}
	return &ListSalesTrackingResponse{Items: items, Total: total}, nil
}

func (s *SalesTrackingService) Get(ctx context.Context, id string) (*domain.ContactRecord, error) {
	rec, err := s.store.SalesTracking().Get(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load sales tracking record", "Sales tracking record not found")
	}
	return rec, nil
}

// ContactRecordInput editable ContactRecord fields. Blank optional fields are stored as NULL.
type ContactRecordInput struct {
	Date          time.Time
	ManagerName   string
	CompanyName   string
	CustomerName  string
	AccountID     string
	Industry      string
	ContactMethod string
	Status        string
	ContactPerson string
	Phone         string
	Memo          string
	MemoNote      string
}

func (in ContactRecordInput) apply(rec *domain.ContactRecord) error {
	if in.Date.IsZero() {
		return validation("date is required")
	}
	manager, err := sanitize.Required("managerName", in.ManagerName)
	if err != nil {
		return wrapRepoError(err, "", "")
	}
	status, err := sanitize.Required("status", in.Status)
	if err != nil {
		return wrapRepoError(err, "", "")
	}

	rec.Date = calendarDate(in.Date)
	rec.ManagerName = domain.NormalizeManagerName(manager)
	rec.Status = status
	rec.CompanyName = sanitize.OptionalMax(in.CompanyName, 255)
	rec.CustomerName = sanitize.OptionalMax(in.CustomerName, 255)
	rec.AccountID = sanitize.OptionalMax(in.AccountID, 255)
	rec.Industry = sanitize.OptionalMax(in.Industry, 100)
	rec.ContactPerson = sanitize.OptionalMax(in.ContactPerson, 100)
	rec.Memo = sanitize.Optional(in.Memo)
	rec.MemoNote = sanitize.Optional(in.MemoNote)

	rec.ContactMethod = sql.NullString{}
	if m := domain.ParseContactMethod(in.ContactMethod); m == domain.ContactMethodOther {
		rec.ContactMethod = sanitize.OptionalMax(in.ContactMethod, 50)
	} else if m != domain.ContactMethodNone {
		rec.ContactMethod = sql.NullString{String: string(m), Valid: true}
	}

	rec.Phone = sql.NullString{}
	if strings.TrimSpace(in.Phone) != "" {
		rec.Phone = sql.NullString{String: sanitize.PhoneMax(in.Phone, 50), Valid: true}
	}
	return nil
}

func (s *SalesTrackingService) Create(ctx context.Context, in ContactRecordInput, actor domain.Actor) (*domain.ContactRecord, error) {
	rec := &domain.ContactRecord{UserID: sql.NullString{String: actor.ID, Valid: actor.ID != ""}}
	if err := in.apply(rec); err != nil {
		return nil, err
	}
	id, err := s.store.SalesTracking().Create(ctx, rec)
	if err != nil {
		s.logger.Error("Failed to create sales tracking record", zap.String("manager", rec.ManagerName), zap.Error(err))
		return nil, wrapRepoError(err, "Failed to create sales tracking record", "")
	}
	return s.Get(ctx, id)
}

func (s *SalesTrackingService) Update(ctx context.Context, id string, in ContactRecordInput, actor domain.Actor) (*domain.ContactRecord, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModifyContactRecord(actor, rec) {
		return nil, forbidden("You do not have permission to update this record")
	}
	if err := in.apply(rec); err != nil {
		return nil, err
	}
	if err := s.store.SalesTracking().Update(ctx, rec); err != nil {
		return nil, wrapRepoError(err, "Failed to update sales tracking record", "Sales tracking record not found")
	}
	return s.Get(ctx, id)
}

// Delete clears provenance links from PipelineCustomers and removes the record
// in one transaction. The PipelineCustomers themselves stay.
func (s *SalesTrackingService) Delete(ctx context.Context, id string, actor domain.Actor) error {
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		rec, err := tx.SalesTracking().Get(ctx, id)
		if err != nil {
			return err
		}
		if !canModifyContactRecord(actor, rec) {
			return forbidden("You do not have permission to delete this record")
		}
		detached, err := tx.Retargeting().DetachSalesTracking(ctx, id)
		if err != nil {
			return err
		}
		if detached > 0 {
			s.logger.Info("Detached retargeting customers from deleted record",
				zap.String("sales_tracking_id", id), zap.Int64("count", detached))
		}
		return tx.SalesTracking().Delete(ctx, id)
	})
	return wrapRepoError(err, "Failed to delete sales tracking record", "Sales tracking record not found")
}

// TouchContact stamps the last contact time with now, or clears it when reset is set.
func (s *SalesTrackingService) TouchContact(ctx context.Context, id string, reset bool, actor domain.Actor) (*domain.ContactRecord, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModifyContactRecord(actor, rec) {
		return nil, forbidden("You do not have permission to update this record")
	}
	var at *time.Time
	if !reset {
		now := s.now()
		at = &now
	}
	if err := s.store.SalesTracking().SetLastContact(ctx, id, at); err != nil {
		return nil, wrapRepoError(err, "Failed to update last contact time", "Sales tracking record not found")
	}
	return s.Get(ctx, id)
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
