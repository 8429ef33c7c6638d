package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"salesops-data/internal/service"
)

// ImportRunner is the part of the scheduler the HTTP layer needs.
type ImportRunner interface {
	Run(ctx context.Context, since, until time.Time, trigger string) (*service.ImportResult, error)
	LastStatus(ctx context.Context) (*service.ImportStatus, error)
}

// IntegrationsHandler /api/integrations
type IntegrationsHandler struct {
	runner        ImportRunner
	defaultWindow time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

func NewIntegrationsHandler(runner ImportRunner, defaultWindow time.Duration, logger *zap.Logger) *IntegrationsHandler {
	if defaultWindow <= 0 {
		defaultWindow = 2 * time.Hour
	}
	return &IntegrationsHandler{runner: runner, defaultWindow: defaultWindow, logger: logger, now: time.Now}
}

// CPIStatus GET /api/integrations/cpi/status
func (h *IntegrationsHandler) CPIStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	st, err := h.runner.LastStatus(r.Context())
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "CPI import status", err)
		return
	}
	if st == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": st})
}

// CPIImport POST /api/integrations/cpi/import?since=YYYY-MM-DD
// Admin only. Without since the last two hours are pulled.
func (h *IntegrationsHandler) CPIImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	actor, _ := actorFrom(r)
	if !actor.IsAdmin() {
		writeJSON(w, http.StatusForbidden, errorBody{Message: "Admin only"})
		return
	}
	until := h.now()
	since := until.Add(-h.defaultWindow)
	if d, ok, err := queryDate(r, "since"); err != nil {
		writeBadRequest(w, "Invalid since")
		return
	} else if ok {
		since = d
	}
	if !since.Before(until) {
		writeBadRequest(w, "since must be in the past")
		return
	}

	res, err := h.runner.Run(r.Context(), since, until, "manual")
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "CPI import", err)
		return
	}
	requestLogger(r, h.logger).Info("Manual CPI import finished",
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"inserted": res.Inserted,
		"updated":  res.Updated,
		"skipped":  res.Skipped,
	})
}
