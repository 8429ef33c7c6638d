package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"salesops-data/internal/domain"
	"salesops-data/internal/repository"
)

// ConversionService turns a PipelineCustomer into a paying Customer.
type ConversionService struct {
	store  repository.Store
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

func NewConversionService(store repository.Store, loc *time.Location, logger *zap.Logger) *ConversionService {
	return &ConversionService{store: store, loc: loc, logger: logger, now: time.Now}
}

// ConvertRequest contract terms for the new Customer.
type ConvertRequest struct {
	PipelineCustomerID     string
	MonthlyBudget          decimal.Decimal
	ContractStartDate      *time.Time
	ContractExpirationDate *time.Time
}

// Convert runs as one transaction: create the Customer, copy the interaction
// history, then remove the history rows and the PipelineCustomer. On any
// failure nothing changes.
func (s *ConversionService) Convert(ctx context.Context, req ConvertRequest, actor domain.Actor) (*domain.Customer, error) {
	if req.MonthlyBudget.IsNegative() {
		return nil, validation("monthlyBudget must not be negative")
	}
	if req.ContractStartDate != nil && req.ContractExpirationDate != nil &&
		req.ContractExpirationDate.Before(*req.ContractStartDate) {
		return nil, validation("contractExpirationDate must not be before contractStartDate")
	}

	var created *domain.Customer
	var copied int
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		pc, err := tx.Retargeting().Get(ctx, req.PipelineCustomerID)
		if err != nil {
			return wrapRepoError(err, "Failed to load retargeting customer", "Retargeting customer not found")
		}
		if !actor.IsAdmin() && !pc.IsManagedBy(actor.Name) {
			return forbidden("You do not have permission to convert this customer")
		}

		c := customerFromPipeline(pc, s.now(), s.loc)
		c.MonthlyBudget = req.MonthlyBudget.Round(2)
		c.ContractStartDate = nullDate(req.ContractStartDate)
		c.ContractExpirationDate = nullDate(req.ContractExpirationDate)

		id, err := tx.Customers().Create(ctx, c)
		if err != nil {
			return err
		}
		c.ID = id

		entries, err := tx.History().List(ctx, domain.RetargetingHistory, pc.ID)
		if err != nil {
			return err
		}
		// List is pinned-first/newest-first; insert oldest first so ids follow time
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			cp := &domain.HistoryEntry{
				OwnerID:   id,
				UserID:    e.UserID,
				UserName:  e.UserName,
				Type:      e.Type.ToCustomerHistory(),
				Content:   e.Content,
				IsPinned:  e.IsPinned,
				CreatedAt: e.CreatedAt,
			}
			if !cp.UserID.Valid && !cp.UserName.Valid {
				cp.UserID = sql.NullString{String: actor.ID, Valid: actor.ID != ""}
				cp.UserName = sql.NullString{String: actor.Name, Valid: actor.Name != ""}
			}
			if _, err := tx.History().Add(ctx, domain.CustomerHistory, cp); err != nil {
				return err
			}
			copied++
		}

		if _, err := tx.History().DeleteByOwner(ctx, domain.RetargetingHistory, pc.ID); err != nil {
			return err
		}
		if err := tx.Retargeting().Delete(ctx, pc.ID); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			s.logger.Error("Failed to convert retargeting customer",
				zap.String("retargeting_id", req.PipelineCustomerID), zap.Error(err))
		}
		return nil, wrapRepoError(err, "Failed to convert to customer", "Retargeting customer not found")
	}

	s.logger.Info("Converted retargeting customer",
		zap.String("retargeting_id", req.PipelineCustomerID),
		zap.String("customer_id", created.ID),
		zap.Int("history_copied", copied),
		zap.String("actor", actor.Name),
	)
	return created, nil
}

func customerFromPipeline(pc *domain.PipelineCustomer, now time.Time, loc *time.Location) *domain.Customer {
	return &domain.Customer{
		CompanyName:      pc.CompanyName,
		Industry:         pc.Industry,
		CustomerName:     pc.CustomerName,
		Phone1:           pc.Phone,
		Region:           pc.Region,
		InflowPath:       pc.InflowPath,
		Manager:          pc.Manager,
		ManagerTeam:      pc.ManagerTeam,
		Status:           domain.CustomerActive,
		Homepage:         pc.Homepage,
		Instagram:        pc.Instagram,
		MainKeywords:     append([]string{}, pc.MainKeywords...),
		Memo:             pc.Memo,
		RegistrationDate: today(now, loc),
	}
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: calendarDate(*t), Valid: true}
}
