package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"salesops-data/internal/domain"
	"salesops-data/internal/repository"
	"salesops-data/internal/sanitize"
)

// CPISource external_source value of imported ContactRecords.
const CPISource = "cpi"

// CPIFetcher source of call log pages. *CPIClient implements it.
type CPIFetcher interface {
	FetchOutboundCalls(ctx context.Context, params CPIFetchParams) (*CPIRecordPage, error)
}

var _ CPIFetcher = (*CPIClient)(nil)

// ImportResult counts for one import run.
type ImportResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// CPIImportService copies outbound calls into sales tracking.
type CPIImportService struct {
	store    repository.Store
	fetcher  CPIFetcher
	pageSize int
	loc      *time.Location
	logger   *zap.Logger
}

func NewCPIImportService(store repository.Store, fetcher CPIFetcher, pageSize int, loc *time.Location, logger *zap.Logger) *CPIImportService {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &CPIImportService{store: store, fetcher: fetcher, pageSize: pageSize, loc: loc, logger: logger}
}

// maxImportPages bounds a run if the provider keeps reporting a larger total.
const maxImportPages = 1000

// Import pulls calls dated between since and until. Calls already imported
// (same record id) are refreshed. New calls are taken when they are first
// outbound calls, or unclassified calls to a number never imported before.
// Calls without a known manager are skipped.
func (s *CPIImportService) Import(ctx context.Context, since, until time.Time) (*ImportResult, error) {
	if until.Before(since) {
		return nil, validation("since must not be after until")
	}
	params := CPIFetchParams{
		StartDate: since.In(s.loc).Format(DateLayout),
		EndDate:   until.In(s.loc).Format(DateLayout),
		Rows:      s.pageSize,
	}

	res := &ImportResult{}
	users := map[string]*domain.User{}
	for page := 1; page <= maxImportPages; page++ {
		params.Page = page
		batch, err := s.fetcher.FetchOutboundCalls(ctx, params)
		if err != nil {
			return res, &Error{Kind: KindTransient, Message: "Failed to fetch CPI calls", Err: err}
		}
		if len(batch.Data) == 0 {
			break
		}
		for i := range batch.Data {
			if err := ctx.Err(); err != nil {
				return res, &Error{Kind: KindTransient, Message: "Import cancelled", Err: err}
			}
			s.importOne(ctx, &batch.Data[i], users, res)
		}
		if page*s.pageSize >= batch.Total {
			break
		}
	}

	s.logger.Info("CPI import finished",
		zap.String("start_date", params.StartDate),
		zap.String("end_date", params.EndDate),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (s *CPIImportService) importOne(ctx context.Context, r *CPIRecord, users map[string]*domain.User, res *ImportResult) {
	externalID := strconv.FormatInt(r.RecordID, 10)
	digits := ""
	if r.PhoneNumber != nil {
		digits = sanitize.Digits(*r.PhoneNumber)
	}

	_, err := s.store.SalesTracking().FindByExternalCallID(ctx, externalID)
	exists := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("CPI dedup lookup failed", zap.String("record_id", externalID), zap.Error(err))
		res.Skipped++
		return
	}

	if !exists && r.Type != CPICallTypeFirstOut {
		if r.Type != CPICallTypeUnclassified || digits == "" {
			res.Skipped++
			return
		}
		seen, err := s.store.SalesTracking().ExistsExternalPhone(ctx, CPISource, digits)
		if err != nil || seen {
			if err != nil {
				s.logger.Warn("CPI phone lookup failed", zap.String("record_id", externalID), zap.Error(err))
			}
			res.Skipped++
			return
		}
	}

	manager := strings.TrimSpace(r.Username)
	if manager == "" {
		res.Skipped++
		return
	}
	user, ok := users[manager]
	if !ok {
		user, err = s.store.Users().GetByName(ctx, manager)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("CPI manager lookup failed", zap.String("manager", manager), zap.Error(err))
			res.Skipped++
			return
		}
		users[manager] = user
	}
	if user == nil {
		s.logger.Debug("CPI call for unknown manager skipped", zap.String("manager", manager))
		res.Skipped++
		return
	}

	rec := &domain.ContactRecord{
		Date:           cpiDate(r.CreatedAt, s.loc),
		ManagerName:    manager,
		CompanyName:    sanitize.OptionalMax(r.Company, 255),
		ContactMethod:  sql.NullString{String: string(domain.ContactMethodPhone), Valid: true},
		Status:         domain.StatusNotReplied,
		UserID:         sql.NullString{String: user.ID, Valid: true},
		ExternalCallID: sql.NullString{String: externalID, Valid: true},
		ExternalSource: sql.NullString{String: CPISource, Valid: true},
	}
	if digits != "" {
		rec.Phone = sql.NullString{String: sanitize.PhoneMax(r.PhoneNumber, 50), Valid: true}
	}

	if exists {
		err = s.store.SalesTracking().UpdateFromExternal(ctx, rec)
		if err == nil {
			res.Updated++
			return
		}
	} else {
		_, err = s.store.SalesTracking().Create(ctx, rec)
		if err == nil {
			res.Inserted++
			return
		}
	}
	s.logger.Error("CPI record write failed", zap.String("record_id", externalID), zap.Bool("update", exists), zap.Error(err))
	res.Skipped++
}

// cpiDate takes the date part of the provider's local timestamp as is.
func cpiDate(createdAt string, loc *time.Location) time.Time {
	s := strings.TrimSpace(createdAt)
	if i := strings.IndexByte(s, 'T'); i > 0 {
		s = s[:i]
	} else if len(s) > 10 {
		s = s[:10]
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t
	}
	return today(time.Now(), loc)
}

// String for logs.
func (r ImportResult) String() string {
	return fmt.Sprintf("inserted=%d updated=%d skipped=%d", r.Inserted, r.Updated, r.Skipped)
}
