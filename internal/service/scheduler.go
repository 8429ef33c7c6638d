package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"salesops-data/internal/store"
)

// KV keys shared by every replica.
const (
	importLockKey   = "salesops:cpi-import:lock"
	importStatusKey = "salesops:cpi-import:last"
)

// Importer runs one import over a time window.
type Importer interface {
	Import(ctx context.Context, since, until time.Time) (*ImportResult, error)
}

var _ Importer = (*CPIImportService)(nil)

// ImportStatus outcome of the most recent run, kept in the KV store.
type ImportStatus struct {
	Trigger    string        `json:"trigger"` // schedule | manual | cli
	Since      time.Time     `json:"since"`
	Until      time.Time     `json:"until"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Result     *ImportResult `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// ImportScheduler runs the import on a cron schedule. A KV lock keeps ticks
// from overlapping, across replicas too. A failed run is logged and the next
// tick tries again.
type ImportScheduler struct {
	importer Importer
	kv       store.KV
	spec     string
	window   time.Duration
	lockTTL  time.Duration
	owner    string
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewImportScheduler(importer Importer, kv store.KV, spec string, window time.Duration, loc *time.Location, logger *zap.Logger) *ImportScheduler {
	if window <= 0 {
		window = 6 * time.Hour
	}
	return &ImportScheduler{
		importer: importer,
		kv:       kv,
		spec:     spec,
		window:   window,
		lockTTL:  5 * time.Minute,
		owner:    uuid.NewString(),
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the schedule and starts the cron runner.
func (s *ImportScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(
			cron.Recover(cronLogger{s.logger}),
			cron.SkipIfStillRunning(cronLogger{s.logger}),
		),
	)
	if _, err := c.AddFunc(s.spec, s.tick); err != nil {
		return fmt.Errorf("invalid cpi schedule %q: %w", s.spec, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("CPI import scheduler started", zap.String("schedule", s.spec), zap.Duration("window", s.window))
	return nil
}

// Stop stops scheduling and waits for a running import until ctx is done.
func (s *ImportScheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("CPI import still running at shutdown")
	}
}

func (s *ImportScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL)
	defer cancel()

	until := s.now()
	res, err := s.Run(ctx, until.Add(-s.window), until, "schedule")
	switch {
	case KindOf(err) == KindConflict:
		s.logger.Debug("CPI import skipped, another run holds the lock")
	case err != nil:
		s.logger.Error("Scheduled CPI import failed", zap.Error(err))
	case res.Inserted > 0 || res.Updated > 0 || res.Skipped > 0:
		s.logger.Info("Scheduled CPI import", zap.Stringer("result", res))
	}
}

// Run imports [since, until] under the shared lock. It fails with a
// KindConflict error while another run holds the lock.
func (s *ImportScheduler) Run(ctx context.Context, since, until time.Time, trigger string) (*ImportResult, error) {
	ok, err := s.kv.SetNX(ctx, importLockKey, s.owner, s.lockTTL)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Message: "Failed to acquire import lock", Err: err}
	}
	if !ok {
		return nil, conflict("Import already running", "")
	}
	defer func() {
		if _, err := s.kv.DeleteIfEqual(context.Background(), importLockKey, s.owner); err != nil {
			s.logger.Warn("Failed to release import lock", zap.Error(err))
		}
	}()

	status := ImportStatus{Trigger: trigger, Since: since, Until: until, StartedAt: s.now()}
	res, err := s.importer.Import(ctx, since, until)
	status.FinishedAt = s.now()
	status.Result = res
	if err != nil {
		status.Error = err.Error()
	}
	s.saveStatus(ctx, &status)
	return res, err
}

func (s *ImportScheduler) saveStatus(ctx context.Context, status *ImportStatus) {
	b, err := json.Marshal(status)
	if err != nil {
		s.logger.Warn("Failed to encode import status", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, importStatusKey, string(b), 0); err != nil {
		s.logger.Warn("Failed to store import status", zap.Error(err))
	}
}

// LastStatus nil when no run has been recorded yet.
func (s *ImportScheduler) LastStatus(ctx context.Context) (*ImportStatus, error) {
	v, err := s.kv.Get(ctx, importStatusKey)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, nil
		}
		return nil, &Error{Kind: KindTransient, Message: "Failed to load import status", Err: err}
	}
	var status ImportStatus
	if err := json.Unmarshal([]byte(v), &status); err != nil {
		return nil, &Error{Kind: KindInternal, Message: "Failed to decode import status", Err: err}
	}
	return &status, nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
