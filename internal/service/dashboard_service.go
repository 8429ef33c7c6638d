package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"salesops-data/internal/domain"
	"salesops-data/internal/repository"
)

// DashboardService read-only rollups for the dashboard.
type DashboardService struct {
	store           repository.Store
	role            string
	targetPerPerson int
	loc             *time.Location
	logger          *zap.Logger
	now             func() time.Time
}

func NewDashboardService(store repository.Store, role string, targetPerPerson int, loc *time.Location, logger *zap.Logger) *DashboardService {
	if role == "" {
		role = domain.RoleMarketer
	}
	return &DashboardService{
		store:           store,
		role:            role,
		targetPerPerson: targetPerPerson,
		loc:             loc,
		logger:          logger,
		now:             time.Now,
	}
}

// SummaryRequest [From, To] inclusive. Zero dates default to the current month.
// Manager "" or "all" means every manager.
type SummaryRequest struct {
	From    time.Time
	To      time.Time
	Manager string
}

type Progress struct {
	Total      int    `json:"total"`
	Target     int    `json:"target"`
	Percentage string `json:"percentage"`
}

type Summary struct {
	TotalSales           decimal.Decimal `json:"totalSales"`
	ContractCustomers    int             `json:"contractCustomers"`
	NewCustomers         int             `json:"newCustomers"`
	RetargetingCustomers int             `json:"retargetingCustomers"`
	Funnel               StageCounts     `json:"funnel"`
	Progress             Progress        `json:"progress"`
}

func (s *DashboardService) Summary(ctx context.Context, req SummaryRequest) (*Summary, error) {
	from, to := req.From, req.To
	if from.IsZero() || to.IsZero() {
		t := today(s.now(), s.loc)
		from = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, -1)
	}
	from, to = calendarDate(from), calendarDate(to).AddDate(0, 0, 1)
	if !from.Before(to) {
		return nil, validation("startDate must not be after endDate")
	}
	manager := strings.TrimSpace(req.Manager)
	if manager == "all" {
		manager = ""
	}

	total, err := s.store.Sales().Total(ctx, from, to, manager)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load sales total", "")
	}
	contracts, err := s.store.Customers().CountByStatus(ctx, domain.CustomerActive, manager)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to count customers", "")
	}
	newCustomers, err := s.store.Sales().CountByType(ctx, from, to, domain.SalesTypeNew, manager)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to count new sales", "")
	}

	// all managers, filtered here so 﨑/崎 spellings match
	rows, err := s.store.Stats().StageCounts(ctx, "")
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load funnel counts", "")
	}
	funnel := newStageCounts()
	delete(funnel, domain.StageTrash)
	for _, row := range rows {
		if manager != "" && !domain.SameManager(row.Manager, manager) {
			continue
		}
		st, ok := domain.ParseFunnelStage(row.Status)
		if !ok {
			st = domain.StageStart
		}
		if st == domain.StageTrash {
			continue
		}
		funnel[st] += row.Count
	}
	retargeting := funnel.Total()

	people := 1
	if manager == "" {
		users, err := s.store.Users().ListByRole(ctx, s.role)
		if err != nil {
			return nil, wrapRepoError(err, "Failed to load managers", "")
		}
		people = len(users)
	}
	target := s.targetPerPerson * people

	return &Summary{
		TotalSales:           total,
		ContractCustomers:    contracts,
		NewCustomers:         newCustomers,
		RetargetingCustomers: retargeting,
		Funnel:               funnel,
		Progress: Progress{
			Total:      retargeting,
			Target:     target,
			Percentage: FormatRate(retargeting, target),
		},
	}, nil
}

// MonthSales one month of the trend, personal and company-wide.
type MonthSales struct {
	Month    string          `json:"month"` // YYYY-MM
	Personal decimal.Decimal `json:"personal"`
	Total    decimal.Decimal `json:"total"`
}

const trendMonths = 12

// MonthlySalesTrend the last twelve months up to and including the current one,
// oldest first. Months without sales are zero.
func (s *DashboardService) MonthlySalesTrend(ctx context.Context, userName string) ([]MonthSales, error) {
	t := today(s.now(), s.loc)
	end := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	start := end.AddDate(0, -trendMonths, 0)

	totals, err := s.store.Sales().MonthlyTotals(ctx, start, end, "")
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load monthly sales", "")
	}
	var personal []repository.MonthTotalRow
	if strings.TrimSpace(userName) != "" {
		personal, err = s.store.Sales().MonthlyTotals(ctx, start, end, userName)
		if err != nil {
			return nil, wrapRepoError(err, "Failed to load personal monthly sales", "")
		}
	}

	out := make([]MonthSales, trendMonths)
	index := make(map[string]int, trendMonths)
	for i := 0; i < trendMonths; i++ {
		m := start.AddDate(0, i, 0).Format("2006-01")
		out[i] = MonthSales{Month: m, Personal: decimal.Zero, Total: decimal.Zero}
		index[m] = i
	}
	for _, row := range totals {
		if i, ok := index[row.Month.Format("2006-01")]; ok {
			out[i].Total = out[i].Total.Add(row.Total)
		}
	}
	for _, row := range personal {
		if i, ok := index[row.Month.Format("2006-01")]; ok {
			out[i].Personal = out[i].Personal.Add(row.Total)
		}
	}
	return out, nil
}
