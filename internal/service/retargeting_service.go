package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"salesops-data/internal/domain"
	"salesops-data/internal/repository"
	"salesops-data/internal/sanitize"
)

// RetargetingService PipelineCustomer CRUD and interaction history
type RetargetingService struct {
	store  repository.Store
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

func NewRetargetingService(store repository.Store, loc *time.Location, logger *zap.Logger) *RetargetingService {
	return &RetargetingService{store: store, loc: loc, logger: logger, now: time.Now}
}

type ListRetargetingRequest struct {
	Stage   string
	Manager string
	Search  string
	Page    int
	Size    int
}

type ListRetargetingResponse struct {
	Items []*domain.PipelineCustomer
	Total int
}

func (s *RetargetingService) List(ctx context.Context, req ListRetargetingRequest) (*ListRetargetingResponse, error) {
	page, size := normalizePage(req.Page, req.Size)
	filter := repository.RetargetingFilter{
		Manager: strings.TrimSpace(req.Manager),
		Search:  strings.TrimSpace(req.Search),
		Limit:   size,
		Offset:  (page - 1) * size,
	}
	if filter.Manager == "all" {
		filter.Manager = ""
	}
	if raw := strings.TrimSpace(req.Stage); raw != "" && raw != "all" {
		st, ok := domain.ParseFunnelStage(raw)
		if !ok {
			return nil, validation(fmt.Sprintf("invalid status: %s", req.Stage))
		}
		filter.Stage = st
	}
	items, total, err := s.store.Retargeting().List(ctx, filter)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to list retargeting customers", "")
	}
	return &ListRetargetingResponse{Items: items, Total: total}, nil
}

func (s *RetargetingService) Get(ctx context.Context, id string) (*domain.PipelineCustomer, error) {
	pc, err := s.store.Retargeting().Get(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load retargeting customer", "Retargeting customer not found")
	}
	return pc, nil
}

// PipelineCustomerInput editable PipelineCustomer fields.
type PipelineCustomerInput struct {
	CompanyName             string
	CustomerName            string
	Phone                   string
	Industry                string
	Region                  string
	InflowPath              string
	Manager                 string
	ManagerTeam             string
	Status                  string
	ContractHistoryCategory string
	RegisteredAt            *time.Time
	LastContactDate         *time.Time
	Memo                    string
	Homepage                string
	Instagram               string
	MainKeywords            []string
}

func (in PipelineCustomerInput) apply(pc *domain.PipelineCustomer) error {
	pc.CompanyName = sanitize.StringMax(in.CompanyName, sanitize.NotSet, domain.MaxCompanyNameLen)
	pc.CustomerName = sanitize.StringMax(in.CustomerName, sanitize.NotSet, domain.MaxCustomerNameLen)
	pc.Phone = sanitize.PhoneMax(in.Phone, domain.MaxPhoneLen)
	pc.Industry = sanitize.OptionalMax(in.Industry, 100)
	pc.Region = sanitize.OptionalMax(in.Region, 100)
	pc.InflowPath = sanitize.OptionalMax(in.InflowPath, 100)
	pc.ManagerTeam = sanitize.OptionalMax(in.ManagerTeam, 100)
	pc.ContractHistoryCategory = sanitize.OptionalMax(in.ContractHistoryCategory, 100)
	pc.Memo = sanitize.Optional(in.Memo)
	pc.Homepage = sanitize.OptionalMax(in.Homepage, 500)
	pc.Instagram = sanitize.OptionalMax(in.Instagram, 255)
	pc.LastContactDate = nullDate(in.LastContactDate)
	pc.MainKeywords = cleanKeywords(in.MainKeywords)

	if m := domain.NormalizeManagerName(in.Manager); m != "" {
		pc.Manager = m
	}
	if pc.Manager == "" {
		return invalidState("Manager name is required")
	}

	if raw := strings.TrimSpace(in.Status); raw != "" {
		st, ok := domain.ParseFunnelStage(raw)
		if !ok {
			return validation(fmt.Sprintf("invalid status: %s", in.Status))
		}
		pc.Status = st
	}
	if pc.Status == "" {
		pc.Status = domain.StageStart
	}
	return nil
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Create direct entry. The result has no source ContactRecord and so never
// counts as a pipeline acquisition. The manager defaults to the actor.
func (s *RetargetingService) Create(ctx context.Context, in PipelineCustomerInput, actor domain.Actor) (*domain.PipelineCustomer, error) {
	pc := &domain.PipelineCustomer{Manager: domain.NormalizeManagerName(actor.Name)}
	if err := in.apply(pc); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !pc.IsManagedBy(actor.Name) {
		return nil, forbidden("You can only create retargeting customers for yourself")
	}
	if in.ManagerTeam == "" && actor.Team != "" && pc.IsManagedBy(actor.Name) {
		pc.ManagerTeam = sql.NullString{String: actor.Team, Valid: true}
	}
	pc.RegisteredAt = today(s.now(), s.loc)
	if in.RegisteredAt != nil && !in.RegisteredAt.IsZero() {
		pc.RegisteredAt = calendarDate(*in.RegisteredAt)
	}

	id, err := s.store.Retargeting().Create(ctx, pc)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to create retargeting customer", "")
	}
	return s.Get(ctx, id)
}

// Update rewrites the editable fields. A stage change is recorded as a
// status_change history entry in the same transaction.
func (s *RetargetingService) Update(ctx context.Context, id string, in PipelineCustomerInput, actor domain.Actor) (*domain.PipelineCustomer, error) {
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		pc, err := tx.Retargeting().Get(ctx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !pc.IsManagedBy(actor.Name) {
			return forbidden("You do not have permission to update this customer")
		}
		before := pc.Status
		if err := in.apply(pc); err != nil {
			return err
		}
		if err := tx.Retargeting().Update(ctx, pc); err != nil {
			return err
		}
		if pc.Status == before {
			return nil
		}
		e, err := historyEntry(domain.RetargetingHistory, id, HistoryInput{
			Type:    string(domain.HistoryStatusChange),
			Content: fmt.Sprintf("%s → %s", before, pc.Status),
		}, actor)
		if err != nil {
			return err
		}
		_, err = tx.History().Add(ctx, domain.RetargetingHistory, e)
		return err
	})
	if err != nil {
		return nil, wrapRepoError(err, "Failed to update retargeting customer", "Retargeting customer not found")
	}
	return s.Get(ctx, id)
}

func (s *RetargetingService) Delete(ctx context.Context, id string, actor domain.Actor) error {
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		pc, err := tx.Retargeting().Get(ctx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !pc.IsManagedBy(actor.Name) {
			return forbidden("You do not have permission to delete this customer")
		}
		return tx.Retargeting().Delete(ctx, id)
	})
	return wrapRepoError(err, "Failed to delete retargeting customer", "Retargeting customer not found")
}

// ========== history ==========

func (s *RetargetingService) ListHistory(ctx context.Context, id string) ([]*domain.HistoryEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.store.History().List(ctx, domain.RetargetingHistory, id)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load history", "")
	}
	return entries, nil
}

// AddHistory any authenticated user may log an interaction.
func (s *RetargetingService) AddHistory(ctx context.Context, id string, in HistoryInput, actor domain.Actor) (*domain.HistoryEntry, error) {
	e, err := historyEntry(domain.RetargetingHistory, id, in, actor)
	if err != nil {
		return nil, err
	}
	var created *domain.HistoryEntry
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Retargeting().Get(ctx, id); err != nil {
			return err
		}
		hid, err := tx.History().Add(ctx, domain.RetargetingHistory, e)
		if err != nil {
			return err
		}
		created, err = tx.History().Get(ctx, domain.RetargetingHistory, hid)
		return err
	})
	if err != nil {
		return nil, wrapRepoError(err, "Failed to add history", "Retargeting customer not found")
	}
	return created, nil
}

// DeleteHistory admin only.
func (s *RetargetingService) DeleteHistory(ctx context.Context, id, historyID string, actor domain.Actor) error {
	if !actor.IsAdmin() {
		return forbidden("Only admins can delete history")
	}
	if _, err := ownedHistoryEntry(ctx, s.store.History(), domain.RetargetingHistory, id, historyID); err != nil {
		return err
	}
	err := s.store.History().Delete(ctx, domain.RetargetingHistory, historyID)
	return wrapRepoError(err, "Failed to delete history", "History not found")
}

func (s *RetargetingService) PinHistory(ctx context.Context, id, historyID string, pinned bool) (*domain.HistoryEntry, error) {
	e, err := ownedHistoryEntry(ctx, s.store.History(), domain.RetargetingHistory, id, historyID)
	if err != nil {
		return nil, err
	}
	if err := s.store.History().SetPinned(ctx, domain.RetargetingHistory, historyID, pinned); err != nil {
		return nil, wrapRepoError(err, "Failed to pin history", "History not found")
	}
	e.IsPinned = pinned
	return e, nil
}
