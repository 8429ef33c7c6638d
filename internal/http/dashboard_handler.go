package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"salesops-data/internal/service"
)

// DashboardHandler /api/dashboard
type DashboardHandler struct {
	dashboard *service.DashboardService
	logger    *zap.Logger
}

func NewDashboardHandler(dashboard *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

// Stats GET /api/dashboard/stats?startDate=&endDate=&manager=
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	from, _, err := queryDate(r, "startDate")
	if err != nil {
		writeBadRequest(w, "Invalid startDate")
		return
	}
	to, _, err := queryDate(r, "endDate")
	if err != nil {
		writeBadRequest(w, "Invalid endDate")
		return
	}
	summary, err := h.dashboard.Summary(r.Context(), service.SummaryRequest{
		From:    from,
		To:      to,
		Manager: r.URL.Query().Get("manager"),
	})
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Dashboard stats", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// MonthlySales GET /api/dashboard/monthly-sales
func (h *DashboardHandler) MonthlySales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	actor, _ := actorFrom(r)
	trend, err := h.dashboard.MonthlySalesTrend(r.Context(), actor.Name)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Monthly sales", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": trend})
}
