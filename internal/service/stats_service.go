package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"salesops-data/internal/domain"
	"salesops-data/internal/repository"
)

// StatsService per-manager contact statistics. SQL only groups; every
// classification of contact method and status happens here through the
// domain mapping tables.
type StatsService struct {
	store  repository.Store
	role   string
	logger *zap.Logger
}

func NewStatsService(store repository.Store, role string, logger *zap.Logger) *StatsService {
	if role == "" {
		role = domain.RoleMarketer
	}
	return &StatsService{store: store, role: role, logger: logger}
}

// ContactCounters counters shared by the monthly and daily rollups.
type ContactCounters struct {
	PhoneCount       int    `json:"phoneCount"`
	SendCount        int    `json:"sendCount"`
	TotalCount       int    `json:"totalCount"`
	ReplyCount       int    `json:"replyCount"`
	ReplyRate        string `json:"replyRate"`
	RetargetingCount int    `json:"retargetingCount"`
	NegotiationCount int    `json:"negotiationCount"`
	ContractCount    int    `json:"contractCount"`
}

func (c *ContactCounters) addActivity(row repository.ActivityRow) {
	method := domain.ParseContactMethod(row.ContactMethod)
	switch {
	case method.IsPhone():
		c.PhoneCount += row.Count
	case method.IsSend():
		c.SendCount += row.Count
	}
	c.TotalCount += row.Count

	switch domain.ParseReplyState(row.Status) {
	case domain.Replied:
		c.ReplyCount += row.Count
	case domain.Negotiating:
		c.NegotiationCount += row.Count
	case domain.Contracted:
		c.ContractCount += row.Count
	}
}

func (c *ContactCounters) finish() {
	c.ReplyRate = FormatRate(c.ReplyCount, c.TotalCount)
}

// FormatRate renders part/total as a one-decimal percentage, "0.0%" for an empty total.
func FormatRate(part, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
}

// MonthlyStat one manager's month.
type MonthlyStat struct {
	Manager string `json:"manager"`
	ContactCounters
}

// Monthly returns one row per user holding the statistics role, ordered by
// name. Managers without activity get zero rows.
func (s *StatsService) Monthly(ctx context.Context, year, month int) ([]MonthlyStat, error) {
	from, to, err := monthRange(year, month)
	if err != nil {
		return nil, err
	}

	users, err := s.store.Users().ListByRole(ctx, s.role)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load managers", "")
	}
	activity, err := s.store.Stats().ContactActivity(ctx, from, to, s.role)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load contact activity", "")
	}
	acquired, err := s.store.Stats().PipelineAcquisitions(ctx, from, to, s.role)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load retargeting acquisitions", "")
	}

	byManager := make(map[string]*MonthlyStat, len(users))
	out := make([]*MonthlyStat, 0, len(users))
	for _, u := range users {
		if _, ok := byManager[u.Name]; ok {
			continue
		}
		st := &MonthlyStat{Manager: u.Name}
		byManager[u.Name] = st
		out = append(out, st)
	}
	for _, row := range activity {
		if st, ok := byManager[row.Manager]; ok {
			st.addActivity(row)
		}
	}
	for _, row := range acquired {
		if st, ok := byManager[row.Manager]; ok {
			st.RetargetingCount += row.Count
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Manager < out[j].Manager })
	stats := make([]MonthlyStat, 0, len(out))
	for _, st := range out {
		st.finish()
		stats = append(stats, *st)
	}

	s.logger.Debug("Computed monthly stats",
		zap.Int("year", year), zap.Int("month", month), zap.Int("managers", len(stats)))
	return stats, nil
}

// Daily scopes
const (
	ScopeOverall   = "overall"
	ScopeByManager = "by_manager"
)

// DailyRequest [From, To] inclusive calendar dates.
type DailyRequest struct {
	From    time.Time
	To      time.Time
	Scope   string
	Manager string
}

// DailyStat one day, for one manager or for everyone.
type DailyStat struct {
	Date    string `json:"date"`
	Manager string `json:"manager,omitempty"`
	ContactCounters
}

const maxDailyRangeDays = 366

// Daily per-day counters over an inclusive date range. Scope overall sums all
// managers; by_manager keeps one row per manager and day.
func (s *StatsService) Daily(ctx context.Context, req DailyRequest) ([]DailyStat, error) {
	if req.From.IsZero() || req.To.IsZero() {
		return nil, validation("startDate and endDate are required")
	}
	from, to := calendarDate(req.From), calendarDate(req.To).AddDate(0, 0, 1)
	if !from.Before(to) {
		return nil, validation("startDate must not be after endDate")
	}
	if to.Sub(from) > maxDailyRangeDays*24*time.Hour {
		return nil, validation(fmt.Sprintf("date range must not exceed %d days", maxDailyRangeDays))
	}
	scope := req.Scope
	if scope == "" {
		scope = ScopeOverall
	}
	if scope != ScopeOverall && scope != ScopeByManager {
		return nil, validation(fmt.Sprintf("invalid scope: %s", req.Scope))
	}
	manager := strings.TrimSpace(req.Manager)
	if manager == "all" {
		manager = ""
	}

	activity, err := s.store.Stats().ContactActivity(ctx, from, to, s.role)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load contact activity", "")
	}
	acquired, err := s.store.Stats().PipelineAcquisitions(ctx, from, to, s.role)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load retargeting acquisitions", "")
	}

	type key struct {
		day     time.Time
		manager string
	}
	keyOf := func(m string, day time.Time) (key, bool) {
		if manager != "" && !domain.SameManager(m, manager) {
			return key{}, false
		}
		k := key{day: calendarDate(day)}
		if scope == ScopeByManager {
			k.manager = m
		}
		return k, true
	}

	rows := map[key]*DailyStat{}
	get := func(k key) *DailyStat {
		st, ok := rows[k]
		if !ok {
			st = &DailyStat{Date: k.day.Format(DateLayout), Manager: k.manager}
			rows[k] = st
		}
		return st
	}
	if scope == ScopeOverall {
		// every day in range appears, even without activity
		for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
			get(key{day: d})
		}
	}
	for _, row := range activity {
		if k, ok := keyOf(row.Manager, row.Day); ok {
			get(k).addActivity(row)
		}
	}
	for _, row := range acquired {
		if k, ok := keyOf(row.Manager, row.Day); ok {
			get(k).RetargetingCount += row.Count
		}
	}

	out := make([]DailyStat, 0, len(rows))
	for _, st := range rows {
		st.finish()
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Manager < out[j].Manager
	})
	return out, nil
}

// StageCounts PipelineCustomer counts per funnel stage.
type StageCounts map[domain.FunnelStage]int

// Total sums every stage except trash.
func (c StageCounts) Total() int {
	n := 0
	for st, v := range c {
		if st != domain.StageTrash {
			n += v
		}
	}
	return n
}

func newStageCounts() StageCounts {
	out := make(StageCounts, len(domain.FunnelStages))
	for _, st := range domain.FunnelStages {
		out[st] = 0
	}
	return out
}

// ManagerFunnel one manager's PipelineCustomers by stage.
type ManagerFunnel struct {
	Manager string      `json:"manager"`
	Stages  StageCounts `json:"stages"`
	Total   int         `json:"total"`
}

// Funnel per-manager stage counts. manager "" or "all" returns every manager.
// Rows whose stored status is not a known stage or legacy label are counted
// as start and logged.
func (s *StatsService) Funnel(ctx context.Context, manager string) ([]ManagerFunnel, error) {
	manager = strings.TrimSpace(manager)
	if manager == "all" {
		manager = ""
	}
	rows, err := s.store.Stats().StageCounts(ctx, manager)
	if err != nil {
		return nil, wrapRepoError(err, "Failed to load funnel counts", "")
	}

	byManager := map[string]*ManagerFunnel{}
	var order []string
	for _, row := range rows {
		m := domain.NormalizeManagerName(row.Manager)
		mf, ok := byManager[m]
		if !ok {
			mf = &ManagerFunnel{Manager: m, Stages: newStageCounts()}
			byManager[m] = mf
			order = append(order, m)
		}
		st, ok := domain.ParseFunnelStage(row.Status)
		if !ok {
			s.logger.Warn("Unknown funnel stage, counting as start",
				zap.String("manager", row.Manager), zap.String("status", row.Status))
			st = domain.StageStart
		}
		mf.Stages[st] += row.Count
	}

	sort.Strings(order)
	out := make([]ManagerFunnel, 0, len(order))
	for _, m := range order {
		mf := byManager[m]
		mf.Total = mf.Stages.Total()
		out = append(out, *mf)
	}
	return out, nil
}

// PersonalFunnel stage counts for one manager; zero-filled when they have none.
func (s *StatsService) PersonalFunnel(ctx context.Context, manager string) (*ManagerFunnel, error) {
	manager = domain.NormalizeManagerName(manager)
	if manager == "" {
		return nil, validation("manager is required")
	}
	all, err := s.Funnel(ctx, manager)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if domain.SameManager(all[i].Manager, manager) {
			return &all[i], nil
		}
	}
	return &ManagerFunnel{Manager: manager, Stages: newStageCounts()}, nil
}
