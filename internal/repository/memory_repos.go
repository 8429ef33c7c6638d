package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salesops-data/internal/domain"
	"salesops-data/internal/sanitize"
)

var (
	errNoRows          = sql.ErrNoRows
	errUniqueViolation = errors.New("unique violation")
)

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// ============================================
// Sales tracking
// ============================================

type memorySalesTracking struct{ s *MemoryStore }

func (r *memorySalesTracking) moved(id string) bool {
	for _, c := range r.s.data.retargeting {
		if c.SalesTrackingID.Valid && c.SalesTrackingID.String == id {
			return true
		}
	}
	return false
}

func (r *memorySalesTracking) Get(_ context.Context, id string) (*domain.ContactRecord, error) {
	r.s.lock()
	defer r.s.unlock()
	rec, ok := r.s.data.salesTracking[id]
	if !ok {
		return nil, notFound("get sales tracking")
	}
	rec.MovedToRetargeting = r.moved(id)
	return &rec, nil
}

func (r *memorySalesTracking) List(_ context.Context, f SalesTrackingFilter) ([]*domain.ContactRecord, int, error) {
	r.s.lock()
	defer r.s.unlock()

	var all []*domain.ContactRecord
	for _, rec := range r.s.data.salesTracking {
		if f.Manager != "" && rec.ManagerName != f.Manager {
			continue
		}
		if !f.From.IsZero() && rec.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !rec.Date.Before(f.To) {
			continue
		}
		if q := strings.TrimSpace(f.Search); q != "" {
			hay := strings.Join([]string{rec.ManagerName, rec.AccountID.String, rec.CustomerName.String,
				rec.CompanyName.String, rec.Industry.String, rec.Phone.String}, "\x00")
			if !containsFold(hay, q) {
				continue
			}
		}
		rec := rec
		rec.MovedToRetargeting = r.moved(rec.ID)
		all = append(all, &rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.After(all[j].Date)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return page(all, f.Limit, f.Offset), len(all), nil
}

func (r *memorySalesTracking) Create(_ context.Context, rec *domain.ContactRecord) (string, error) {
	r.s.lock()
	defer r.s.unlock()
	if rec.ExternalCallID.Valid {
		for _, other := range r.s.data.salesTracking {
			if other.ExternalCallID.Valid && other.ExternalCallID.String == rec.ExternalCallID.String {
				return "", duplicate("create sales tracking", "idx_sales_tracking_external_call_id")
			}
		}
	}
	cp := *rec
	cp.ID = uuid.NewString()
	cp.CreatedAt = r.s.now()
	cp.UpdatedAt = cp.CreatedAt
	cp.MovedToRetargeting = false
	r.s.data.salesTracking[cp.ID] = cp
	return cp.ID, nil
}

func (r *memorySalesTracking) Update(_ context.Context, rec *domain.ContactRecord) error {
	r.s.lock()
	defer r.s.unlock()
	cur, ok := r.s.data.salesTracking[rec.ID]
	if !ok {
		return notFound("update sales tracking")
	}
	cur.Date = rec.Date
	cur.ManagerName = rec.ManagerName
	cur.CompanyName = rec.CompanyName
	cur.CustomerName = rec.CustomerName
	cur.AccountID = rec.AccountID
	cur.Industry = rec.Industry
	cur.ContactMethod = rec.ContactMethod
	cur.Status = rec.Status
	cur.ContactPerson = rec.ContactPerson
	cur.Phone = rec.Phone
	cur.Memo = rec.Memo
	cur.MemoNote = rec.MemoNote
	cur.UpdatedAt = r.s.now()
	r.s.data.salesTracking[rec.ID] = cur
	return nil
}

func (r *memorySalesTracking) Delete(_ context.Context, id string) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.data.salesTracking[id]; !ok {
		return notFound("delete sales tracking")
	}
	// ON DELETE SET NULL
	for k, c := range r.s.data.retargeting {
		if c.SalesTrackingID.Valid && c.SalesTrackingID.String == id {
			c.SalesTrackingID = sql.NullString{}
			r.s.data.retargeting[k] = c
		}
	}
	delete(r.s.data.salesTracking, id)
	return nil
}

func (r *memorySalesTracking) SetLastContact(_ context.Context, id string, at *time.Time) error {
	r.s.lock()
	defer r.s.unlock()
	cur, ok := r.s.data.salesTracking[id]
	if !ok {
		return notFound("set last contact")
	}
	if at == nil {
		cur.LastContactAt = sql.NullTime{}
	} else {
		cur.LastContactAt = sql.NullTime{Time: *at, Valid: true}
	}
	cur.UpdatedAt = r.s.now()
	r.s.data.salesTracking[id] = cur
	return nil
}

func (r *memorySalesTracking) FindByExternalCallID(_ context.Context, externalCallID string) (string, error) {
	r.s.lock()
	defer r.s.unlock()
	for id, rec := range r.s.data.salesTracking {
		if rec.ExternalCallID.Valid && rec.ExternalCallID.String == externalCallID {
			return id, nil
		}
	}
	return "", notFound("find by external call id")
}

func (r *memorySalesTracking) UpdateFromExternal(_ context.Context, rec *domain.ContactRecord) error {
	r.s.lock()
	defer r.s.unlock()
	for id, cur := range r.s.data.salesTracking {
		if cur.ExternalCallID.Valid && cur.ExternalCallID.String == rec.ExternalCallID.String {
			cur.Date = rec.Date
			cur.ManagerName = rec.ManagerName
			cur.CompanyName = rec.CompanyName
			cur.Phone = rec.Phone
			cur.UserID = rec.UserID
			cur.ContactMethod = rec.ContactMethod
			cur.Status = rec.Status
			cur.UpdatedAt = r.s.now()
			r.s.data.salesTracking[id] = cur
			return nil
		}
	}
	return notFound("update from external")
}

func (r *memorySalesTracking) ExistsExternalPhone(_ context.Context, source, phoneDigits string) (bool, error) {
	r.s.lock()
	defer r.s.unlock()
	for _, rec := range r.s.data.salesTracking {
		if rec.ExternalSource.String == source && sanitize.Digits(rec.Phone.String) == phoneDigits {
			return true, nil
		}
	}
	return false, nil
}

// ============================================
// Retargeting
// ============================================

type memoryRetargeting struct{ s *MemoryStore }

func (r *memoryRetargeting) Get(_ context.Context, id string) (*domain.PipelineCustomer, error) {
	r.s.lock()
	defer r.s.unlock()
	c, ok := r.s.data.retargeting[id]
	if !ok {
		return nil, notFound("get retargeting customer")
	}
	return &c, nil
}

func (r *memoryRetargeting) List(_ context.Context, f RetargetingFilter) ([]*domain.PipelineCustomer, int, error) {
	r.s.lock()
	defer r.s.unlock()

	var all []*domain.PipelineCustomer
	for _, c := range r.s.data.retargeting {
		st, _ := domain.ParseFunnelStage(string(c.Status))
		if f.Stage != "" && st != f.Stage {
			continue
		}
		if f.Stage == "" && st == domain.StageTrash {
			continue
		}
		if f.Manager != "" && !domain.SameManager(c.Manager, f.Manager) {
			continue
		}
		if q := strings.TrimSpace(f.Search); q != "" {
			hay := strings.Join([]string{c.CompanyName, c.CustomerName, c.Phone, c.Industry.String}, "\x00")
			if !containsFold(hay, q) {
				continue
			}
		}
		c := c
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].RegisteredAt.Equal(all[j].RegisteredAt) {
			return all[i].RegisteredAt.After(all[j].RegisteredAt)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return page(all, f.Limit, f.Offset), len(all), nil
}

func (r *memoryRetargeting) Create(_ context.Context, c *domain.PipelineCustomer) (string, error) {
	r.s.lock()
	defer r.s.unlock()
	if c.SalesTrackingID.Valid {
		for _, other := range r.s.data.retargeting {
			if other.SalesTrackingID.Valid && other.SalesTrackingID.String == c.SalesTrackingID.String {
				return "", duplicate("create retargeting customer", "idx_retargeting_customers_sales_tracking_id")
			}
		}
		if _, ok := r.s.data.salesTracking[c.SalesTrackingID.String]; !ok {
			return "", &DBError{Op: "create retargeting customer", Code: "23503",
				Constraint: "retargeting_customers_sales_tracking_id_fkey", Err: errors.New("foreign key violation")}
		}
	}
	cp := *c
	cp.ID = uuid.NewString()
	cp.CreatedAt = r.s.now()
	cp.MainKeywords = append([]string{}, c.MainKeywords...)
	r.s.data.retargeting[cp.ID] = cp
	return cp.ID, nil
}

func (r *memoryRetargeting) Update(_ context.Context, c *domain.PipelineCustomer) error {
	r.s.lock()
	defer r.s.unlock()
	cur, ok := r.s.data.retargeting[c.ID]
	if !ok {
		return notFound("update retargeting customer")
	}
	cp := *c
	cp.SalesTrackingID = cur.SalesTrackingID
	cp.RegisteredAt = cur.RegisteredAt
	cp.CreatedAt = cur.CreatedAt
	cp.MainKeywords = append([]string{}, c.MainKeywords...)
	r.s.data.retargeting[c.ID] = cp
	return nil
}

func (r *memoryRetargeting) Delete(_ context.Context, id string) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.data.retargeting[id]; !ok {
		return notFound("delete retargeting customer")
	}
	delete(r.s.data.retargeting, id)
	// ON DELETE CASCADE
	for hid, e := range r.s.data.history[domain.RetargetingHistory] {
		if e.OwnerID == id {
			delete(r.s.data.history[domain.RetargetingHistory], hid)
		}
	}
	return nil
}

func (r *memoryRetargeting) FindBySalesTrackingID(_ context.Context, salesTrackingID string) (string, error) {
	r.s.lock()
	defer r.s.unlock()
	for id, c := range r.s.data.retargeting {
		if c.SalesTrackingID.Valid && c.SalesTrackingID.String == salesTrackingID {
			return id, nil
		}
	}
	return "", notFound("find by sales tracking id")
}

func (r *memoryRetargeting) DetachSalesTracking(_ context.Context, salesTrackingID string) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	var n int64
	for id, c := range r.s.data.retargeting {
		if c.SalesTrackingID.Valid && c.SalesTrackingID.String == salesTrackingID {
			c.SalesTrackingID = sql.NullString{}
			r.s.data.retargeting[id] = c
			n++
		}
	}
	return n, nil
}

// ============================================
// Customers
// ============================================

type memoryCustomers struct{ s *MemoryStore }

func (r *memoryCustomers) Get(_ context.Context, id string) (*domain.Customer, error) {
	r.s.lock()
	defer r.s.unlock()
	c, ok := r.s.data.customers[id]
	if !ok {
		return nil, notFound("get customer")
	}
	return &c, nil
}

func (r *memoryCustomers) List(_ context.Context, f CustomersFilter) ([]*domain.Customer, int, error) {
	r.s.lock()
	defer r.s.unlock()
	var all []*domain.Customer
	for _, c := range r.s.data.customers {
		if f.Manager != "" && !domain.SameManager(c.Manager, f.Manager) {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if q := strings.TrimSpace(f.Search); q != "" {
			if !containsFold(c.CompanyName+"\x00"+c.CustomerName+"\x00"+c.Phone1, q) {
				continue
			}
		}
		c := c
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].RegistrationDate.Equal(all[j].RegistrationDate) {
			return all[i].RegistrationDate.After(all[j].RegistrationDate)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return page(all, f.Limit, f.Offset), len(all), nil
}

func (r *memoryCustomers) Create(_ context.Context, c *domain.Customer) (string, error) {
	r.s.lock()
	defer r.s.unlock()
	cp := *c
	cp.ID = uuid.NewString()
	cp.CreatedAt = r.s.now()
	cp.MainKeywords = append([]string{}, c.MainKeywords...)
	r.s.data.customers[cp.ID] = cp
	return cp.ID, nil
}

func (r *memoryCustomers) Update(_ context.Context, c *domain.Customer) error {
	r.s.lock()
	defer r.s.unlock()
	cur, ok := r.s.data.customers[c.ID]
	if !ok {
		return notFound("update customer")
	}
	cp := *c
	cp.RegistrationDate = cur.RegistrationDate
	cp.CreatedAt = cur.CreatedAt
	cp.MainKeywords = append([]string{}, c.MainKeywords...)
	r.s.data.customers[c.ID] = cp
	return nil
}

func (r *memoryCustomers) Delete(_ context.Context, id string) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.data.customers[id]; !ok {
		return notFound("delete customer")
	}
	delete(r.s.data.customers, id)
	for hid, e := range r.s.data.history[domain.CustomerHistory] {
		if e.OwnerID == id {
			delete(r.s.data.history[domain.CustomerHistory], hid)
		}
	}
	return nil
}

func (r *memoryCustomers) SetContractExpiration(_ context.Context, id string, expiration time.Time) error {
	r.s.lock()
	defer r.s.unlock()
	cur, ok := r.s.data.customers[id]
	if !ok {
		return notFound("set contract expiration")
	}
	cur.ContractExpirationDate = sql.NullTime{Time: expiration, Valid: true}
	r.s.data.customers[id] = cur
	return nil
}

func (r *memoryCustomers) CountByStatus(_ context.Context, status domain.CustomerStatus, manager string) (int, error) {
	r.s.lock()
	defer r.s.unlock()
	n := 0
	for _, c := range r.s.data.customers {
		if c.Status != status {
			continue
		}
		if strings.TrimSpace(manager) != "" && !domain.SameManager(c.Manager, manager) {
			continue
		}
		n++
	}
	return n, nil
}

// ============================================
// History
// ============================================

type memoryHistory struct{ s *MemoryStore }

func (r *memoryHistory) ownerExists(stream domain.HistoryStream, ownerID string) bool {
	if stream == domain.CustomerHistory {
		_, ok := r.s.data.customers[ownerID]
		return ok
	}
	_, ok := r.s.data.retargeting[ownerID]
	return ok
}

func (r *memoryHistory) List(_ context.Context, stream domain.HistoryStream, ownerID string) ([]*domain.HistoryEntry, error) {
	r.s.lock()
	defer r.s.unlock()
	var out []*domain.HistoryEntry
	for _, e := range r.s.data.history[stream] {
		if e.OwnerID != ownerID {
			continue
		}
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryHistory) Get(_ context.Context, stream domain.HistoryStream, historyID string) (*domain.HistoryEntry, error) {
	r.s.lock()
	defer r.s.unlock()
	e, ok := r.s.data.history[stream][historyID]
	if !ok {
		return nil, notFound("get " + stream.Table())
	}
	return &e, nil
}

func (r *memoryHistory) Add(_ context.Context, stream domain.HistoryStream, e *domain.HistoryEntry) (string, error) {
	r.s.lock()
	defer r.s.unlock()
	if !r.ownerExists(stream, e.OwnerID) {
		return "", &DBError{Op: "add " + stream.Table(), Code: "23503",
			Constraint: stream.Table() + "_" + stream.OwnerColumn() + "_fkey", Err: errors.New("foreign key violation")}
	}
	cp := *e
	cp.ID = uuid.NewString()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = r.s.now()
	}
	r.s.data.history[stream][cp.ID] = cp
	return cp.ID, nil
}

func (r *memoryHistory) Delete(_ context.Context, stream domain.HistoryStream, historyID string) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.data.history[stream][historyID]; !ok {
		return notFound("delete " + stream.Table())
	}
	delete(r.s.data.history[stream], historyID)
	return nil
}

func (r *memoryHistory) SetPinned(_ context.Context, stream domain.HistoryStream, historyID string, pinned bool) error {
	r.s.lock()
	defer r.s.unlock()
	e, ok := r.s.data.history[stream][historyID]
	if !ok {
		return notFound("pin " + stream.Table())
	}
	e.IsPinned = pinned
	r.s.data.history[stream][historyID] = e
	return nil
}

func (r *memoryHistory) DeleteByOwner(_ context.Context, stream domain.HistoryStream, ownerID string) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	var n int64
	for id, e := range r.s.data.history[stream] {
		if e.OwnerID == ownerID {
			delete(r.s.data.history[stream], id)
			n++
		}
	}
	return n, nil
}

// ============================================
// Users
// ============================================

type memoryUsers struct{ s *MemoryStore }

func (r *memoryUsers) Get(_ context.Context, id string) (*domain.User, error) {
	r.s.lock()
	defer r.s.unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, notFound("get user")
	}
	return &u, nil
}

func (r *memoryUsers) GetByName(_ context.Context, name string) (*domain.User, error) {
	r.s.lock()
	defer r.s.unlock()
	name = strings.TrimSpace(name)
	for _, u := range r.s.data.users {
		if u.Name == name {
			u := u
			return &u, nil
		}
	}
	return nil, notFound("get user by name")
}

func (r *memoryUsers) ListByRole(_ context.Context, role string) ([]*domain.User, error) {
	r.s.lock()
	defer r.s.unlock()
	var out []*domain.User
	for _, u := range r.s.data.users {
		if u.Role == role {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ============================================
// Stats
// ============================================

type memoryStats struct{ s *MemoryStore }

func (r *memoryStats) hasRole(name, role string) bool {
	for _, u := range r.s.data.users {
		if u.Name == name && u.Role == role {
			return true
		}
	}
	return false
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (r *memoryStats) ContactActivity(_ context.Context, from, to time.Time, role string) ([]ActivityRow, error) {
	r.s.lock()
	defer r.s.unlock()
	type key struct {
		manager, method, status string
		day                     time.Time
	}
	counts := map[key]int{}
	for _, rec := range r.s.data.salesTracking {
		if !inRange(rec.Date, from, to) || !r.hasRole(rec.ManagerName, role) {
			continue
		}
		counts[key{rec.ManagerName, rec.ContactMethod.String, rec.Status, rec.Date}]++
	}
	out := make([]ActivityRow, 0, len(counts))
	for k, n := range counts {
		out = append(out, ActivityRow{Manager: k.manager, Day: k.day, ContactMethod: k.method, Status: k.status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Manager != out[j].Manager {
			return out[i].Manager < out[j].Manager
		}
		return out[i].Day.Before(out[j].Day)
	})
	return out, nil
}

func (r *memoryStats) PipelineAcquisitions(_ context.Context, from, to time.Time, role string) ([]AcquisitionRow, error) {
	r.s.lock()
	defer r.s.unlock()
	type key struct {
		manager string
		day     time.Time
	}
	counts := map[key]int{}
	for _, c := range r.s.data.retargeting {
		if !c.SalesTrackingID.Valid {
			continue
		}
		rec, ok := r.s.data.salesTracking[c.SalesTrackingID.String]
		if !ok || !inRange(rec.Date, from, to) || !r.hasRole(rec.ManagerName, role) {
			continue
		}
		counts[key{rec.ManagerName, rec.Date}]++
	}
	out := make([]AcquisitionRow, 0, len(counts))
	for k, n := range counts {
		out = append(out, AcquisitionRow{Manager: k.manager, Day: k.day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Manager != out[j].Manager {
			return out[i].Manager < out[j].Manager
		}
		return out[i].Day.Before(out[j].Day)
	})
	return out, nil
}

func (r *memoryStats) StageCounts(_ context.Context, manager string) ([]StageCountRow, error) {
	r.s.lock()
	defer r.s.unlock()
	type key struct{ manager, status string }
	counts := map[key]int{}
	manager = domain.NormalizeManagerName(manager)
	for _, c := range r.s.data.retargeting {
		m := strings.TrimSpace(c.Manager)
		if manager != "" && domain.NormalizeManagerName(m) != manager {
			continue
		}
		counts[key{m, string(c.Status)}]++
	}
	out := make([]StageCountRow, 0, len(counts))
	for k, n := range counts {
		out = append(out, StageCountRow{Manager: k.manager, Status: k.status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Manager != out[j].Manager {
			return out[i].Manager < out[j].Manager
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

// ============================================
// Sales
// ============================================

type memorySales struct{ s *MemoryStore }

func (r *memorySales) matches(sale domain.Sale, from, to time.Time, userName string) bool {
	if !inRange(sale.ContractDate, from, to) {
		return false
	}
	if userName = strings.TrimSpace(userName); userName == "" {
		return true
	}
	u, ok := r.s.data.users[sale.UserID.String]
	return ok && u.Name == userName
}

func (r *memorySales) Total(_ context.Context, from, to time.Time, userName string) (decimal.Decimal, error) {
	r.s.lock()
	defer r.s.unlock()
	total := decimal.Zero
	for _, sale := range r.s.data.sales {
		if r.matches(sale, from, to, userName) {
			total = total.Add(sale.Amount)
		}
	}
	return total, nil
}

func (r *memorySales) CountByType(_ context.Context, from, to time.Time, salesType, userName string) (int, error) {
	r.s.lock()
	defer r.s.unlock()
	n := 0
	for _, sale := range r.s.data.sales {
		if r.matches(sale, from, to, userName) && sale.SalesType.String == salesType {
			n++
		}
	}
	return n, nil
}

func (r *memorySales) MonthlyTotals(_ context.Context, from, to time.Time, userName string) ([]MonthTotalRow, error) {
	r.s.lock()
	defer r.s.unlock()
	totals := map[time.Time]decimal.Decimal{}
	for _, sale := range r.s.data.sales {
		if !r.matches(sale, from, to, userName) {
			continue
		}
		d := sale.ContractDate
		month := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
		totals[month] = totals[month].Add(sale.Amount)
	}
	out := make([]MonthTotalRow, 0, len(totals))
	for m, t := range totals {
		out = append(out, MonthTotalRow{Month: m, Total: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}
