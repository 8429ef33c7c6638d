package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"salesops-data/internal/domain"
)

// MemoryStore Store used when the DB is disabled (local dev) and in service tests.
// A single mutex serializes access; InTx holds it for the whole callback and
// restores a snapshot when the callback fails.
type MemoryStore struct {
	mu   *sync.Mutex
	data *memoryData
	inTx bool
	now  func() time.Time
}

type memoryData struct {
	salesTracking map[string]domain.ContactRecord
	retargeting   map[string]domain.PipelineCustomer
	customers     map[string]domain.Customer
	history       map[domain.HistoryStream]map[string]domain.HistoryEntry
	users         map[string]domain.User
	sales         map[string]domain.Sale
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		data: &memoryData{
			salesTracking: map[string]domain.ContactRecord{},
			retargeting:   map[string]domain.PipelineCustomer{},
			customers:     map[string]domain.Customer{},
			history: map[domain.HistoryStream]map[string]domain.HistoryEntry{
				domain.RetargetingHistory: {},
				domain.CustomerHistory:    {},
			},
			users: map[string]domain.User{},
			sales: map[string]domain.Sale{},
		},
		now: time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

func (d *memoryData) clone() *memoryData {
	out := &memoryData{
		salesTracking: make(map[string]domain.ContactRecord, len(d.salesTracking)),
		retargeting:   make(map[string]domain.PipelineCustomer, len(d.retargeting)),
		customers:     make(map[string]domain.Customer, len(d.customers)),
		history:       map[domain.HistoryStream]map[string]domain.HistoryEntry{},
		users:         make(map[string]domain.User, len(d.users)),
		sales:         make(map[string]domain.Sale, len(d.sales)),
	}
	for k, v := range d.salesTracking {
		out.salesTracking[k] = v
	}
	for k, v := range d.retargeting {
		v.MainKeywords = append([]string(nil), v.MainKeywords...)
		out.retargeting[k] = v
	}
	for k, v := range d.customers {
		v.MainKeywords = append([]string(nil), v.MainKeywords...)
		out.customers[k] = v
	}
	for stream, entries := range d.history {
		m := make(map[string]domain.HistoryEntry, len(entries))
		for k, v := range entries {
			m[k] = v
		}
		out.history[stream] = m
	}
	for k, v := range d.users {
		out.users[k] = v
	}
	for k, v := range d.sales {
		out.sales[k] = v
	}
	return out
}

func (s *MemoryStore) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *MemoryStore) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return &DBError{Op: "begin transaction", Kind: ErrTransient, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &MemoryStore{mu: s.mu, data: s.data, inTx: true, now: s.now}

	defer func() {
		if p := recover(); p != nil {
			*s.data = *snapshot
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) SalesTracking() SalesTrackingRepository { return &memorySalesTracking{s} }
func (s *MemoryStore) Retargeting() RetargetingRepository     { return &memoryRetargeting{s} }
func (s *MemoryStore) Customers() CustomersRepository         { return &memoryCustomers{s} }
func (s *MemoryStore) History() HistoryRepository             { return &memoryHistory{s} }
func (s *MemoryStore) Users() UsersRepository                 { return &memoryUsers{s} }
func (s *MemoryStore) Stats() StatsRepository                 { return &memoryStats{s} }
func (s *MemoryStore) Sales() SalesRepository                 { return &memorySales{s} }

// AddUser seeds a user. Returns the id.
func (s *MemoryStore) AddUser(u domain.User) string {
	s.lock()
	defer s.unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.data.users[u.ID] = u
	return u.ID
}

// AddSale seeds an accounting sale. Returns the id.
func (s *MemoryStore) AddSale(sale domain.Sale) string {
	s.lock()
	defer s.unlock()
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	s.data.sales[sale.ID] = sale
	return sale.ID
}

func notFound(op string) error {
	return &DBError{Op: op, Kind: ErrNotFound, Err: errNoRows}
}

func duplicate(op, constraint string) error {
	return &DBError{Op: op, Kind: ErrDuplicate, Code: "23505", Constraint: constraint, Err: errUniqueViolation}
}

func page[T any](all []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 100
	}
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
