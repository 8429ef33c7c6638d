package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"salesops-data/internal/domain"
	"salesops-data/internal/repository"
	"salesops-data/internal/sanitize"
)

// PromotionService moves ContactRecords into the retargeting pipeline.
// Promotion is one-way and idempotent: the source record is never modified
// and a record can back at most one PipelineCustomer.
type PromotionService struct {
	store  repository.Store
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

func NewPromotionService(store repository.Store, loc *time.Location, logger *zap.Logger) *PromotionService {
	return &PromotionService{store: store, loc: loc, logger: logger, now: time.Now}
}

// canModifyContactRecord admin, owner id, or manager name for legacy rows without an owner.
func canModifyContactRecord(actor domain.Actor, rec *domain.ContactRecord) bool {
	if actor.IsAdmin() {
		return true
	}
	if rec.IsOwnedBy(actor.ID) {
		return true
	}
	return domain.SameManager(rec.ManagerName, actor.Name)
}

// DerivePipelineCustomer builds the PipelineCustomer for rec. It is total over
// every field except the manager, which has no safe default.
func DerivePipelineCustomer(rec *domain.ContactRecord, now time.Time, loc *time.Location) (*domain.PipelineCustomer, error) {
	manager := strings.TrimSpace(rec.ManagerName)
	if manager == "" {
		return nil, invalidState("Manager name is required")
	}

	registeredAt := today(now, loc)
	if !rec.Date.IsZero() {
		registeredAt = calendarDate(rec.Date)
	}

	pc := &domain.PipelineCustomer{
		CompanyName: sanitize.Truncate(
			sanitize.FirstNonEmpty(sanitize.NotSet, rec.CompanyName, rec.CustomerName, rec.AccountID),
			domain.MaxCompanyNameLen),
		CustomerName: sanitize.Truncate(
			sanitize.FirstNonEmpty(sanitize.NotSet, rec.CustomerName, rec.AccountID),
			domain.MaxCustomerNameLen),
		Phone:           sanitize.StringMax(rec.Phone, sanitize.PhoneSentinel, domain.MaxPhoneLen),
		Manager:         manager,
		Status:          domain.StageStart,
		RegisteredAt:    registeredAt,
		Industry:        sanitize.OptionalMax(rec.Industry, 100),
		Memo:            sanitize.Optional(rec.Memo),
		Instagram:       sanitize.OptionalMax(rec.AccountID, 255),
		LastContactDate: sql.NullTime{Time: today(now, loc), Valid: true},
		MainKeywords:    []string{},
		SalesTrackingID: sql.NullString{String: rec.ID, Valid: rec.ID != ""},
	}
	if path := domain.InflowPathFor(rec.ContactMethod.String); path != "" {
		pc.InflowPath = sql.NullString{String: sanitize.Truncate(path, 100), Valid: true}
	}
	return pc, nil
}

// Promote creates a PipelineCustomer from the ContactRecord and returns its id.
// A record that was already promoted yields a KindConflict error carrying the
// existing id.
func (s *PromotionService) Promote(ctx context.Context, contactRecordID string, actor domain.Actor) (string, error) {
	rec, err := s.store.SalesTracking().Get(ctx, contactRecordID)
	if err != nil {
		return "", wrapRepoError(err, "Failed to load sales tracking record", "Sales tracking record not found")
	}

	if !canModifyContactRecord(actor, rec) {
		return "", forbidden("You do not have permission to move this record")
	}

	existingID, err := s.store.Retargeting().FindBySalesTrackingID(ctx, contactRecordID)
	switch {
	case err == nil:
		return "", conflict("Already moved to retargeting", existingID)
	case !errors.Is(err, repository.ErrNotFound):
		return "", wrapRepoError(err, "Failed to check existing retargeting customer", "")
	}

	pc, err := DerivePipelineCustomer(rec, s.now(), s.loc)
	if err != nil {
		return "", err
	}

	var newID string
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		id, err := tx.Retargeting().Create(ctx, pc)
		if err != nil {
			return err
		}
		newID = id
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost the race against a concurrent promotion of the same record
			winner, lookupErr := s.store.Retargeting().FindBySalesTrackingID(ctx, contactRecordID)
			if lookupErr != nil {
				s.logger.Warn("Failed to look up concurrent promotion",
					zap.String("sales_tracking_id", contactRecordID), zap.Error(lookupErr))
			}
			return "", conflict("Already moved to retargeting", winner)
		}
		s.logger.Error("Failed to promote sales tracking record",
			zap.String("sales_tracking_id", contactRecordID), zap.Error(err))
		return "", wrapRepoError(err, "Failed to move to retargeting", "Sales tracking record not found")
	}

	s.logger.Info("Moved sales tracking record to retargeting",
		zap.String("sales_tracking_id", contactRecordID),
		zap.String("retargeting_id", newID),
		zap.String("manager", pc.Manager),
		zap.String("actor", actor.Name),
	)
	return newID, nil
}

// BulkPromoteResult per-batch outcome
type BulkPromoteResult struct {
	SuccessCount int               `json:"successCount"`
	FailCount    int               `json:"failCount"`
	Results      []BulkPromoteItem `json:"results"`
}

type BulkPromoteItem struct {
	ID            string `json:"id"`
	Success       bool   `json:"success"`
	RetargetingID string `json:"retargetingId,omitempty"`
	Message       string `json:"message,omitempty"`
}

// BulkPromote promotes each id independently; one failure does not stop the batch.
func (s *PromotionService) BulkPromote(ctx context.Context, ids []string, actor domain.Actor) (*BulkPromoteResult, error) {
	if len(ids) == 0 {
		return nil, validation("ids must not be empty")
	}
	res := &BulkPromoteResult{Results: make([]BulkPromoteItem, 0, len(ids))}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		if err := ctx.Err(); err != nil {
			return res, &Error{Kind: KindTransient, Message: "Request cancelled", Err: err}
		}

		newID, err := s.Promote(ctx, id, actor)
		if err != nil {
			item := BulkPromoteItem{ID: id, Message: err.Error()}
			var se *Error
			if errors.As(err, &se) {
				item.Message = se.Message
				item.RetargetingID = se.ExistingID
			}
			res.FailCount++
			res.Results = append(res.Results, item)
			continue
		}
		res.SuccessCount++
		res.Results = append(res.Results, BulkPromoteItem{ID: id, Success: true, RetargetingID: newID})
	}
	return res, nil
}
