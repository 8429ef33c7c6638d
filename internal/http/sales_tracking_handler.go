package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"salesops-data/internal/service"
)

// SalesTrackingHandler /api/sales-tracking
type SalesTrackingHandler struct {
	records   *service.SalesTrackingService
	promotion *service.PromotionService
	stats     *service.StatsService
	m         dtoMapper
	logger    *zap.Logger
}

func NewSalesTrackingHandler(records *service.SalesTrackingService, promotion *service.PromotionService, stats *service.StatsService, m dtoMapper, logger *zap.Logger) *SalesTrackingHandler {
	return &SalesTrackingHandler{records: records, promotion: promotion, stats: stats, m: m, logger: logger}
}

const salesTrackingPrefix = "/api/sales-tracking"

// ServeHTTP
//   - GET|POST   /api/sales-tracking
//   - POST       /api/sales-tracking/bulk-move-to-retargeting
//   - GET        /api/sales-tracking/stats/daily
//   - GET        /api/sales-tracking/stats/monthly[/export]
//   - GET|PUT|DELETE /api/sales-tracking/:id
//   - PATCH|DELETE   /api/sales-tracking/:id/contact
//   - POST       /api/sales-tracking/:id/move-to-retargeting
func (h *SalesTrackingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, salesTrackingPrefix)
	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			h.List(w, r)
		case http.MethodPost:
			h.Create(w, r)
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 1 && parts[0] == "bulk-move-to-retargeting":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.BulkMove(w, r)
	case parts[0] == "stats":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		switch strings.Join(parts[1:], "/") {
		case "daily":
			h.DailyStats(w, r)
		case "monthly":
			h.MonthlyStats(w, r)
		case "monthly/export":
			h.ExportMonthlyStats(w, r)
		default:
			writeJSON(w, http.StatusNotFound, errorBody{Message: "Not found"})
		}
	default:
		id := parts[0]
		if !validID(id) {
			writeJSON(w, http.StatusNotFound, errorBody{Message: "Sales tracking record not found"})
			return
		}
		h.serveRecord(w, r, id, parts[1:])
	}
}

func (h *SalesTrackingHandler) serveRecord(w http.ResponseWriter, r *http.Request, id string, rest []string) {
	switch {
	case len(rest) == 0:
		switch r.Method {
		case http.MethodGet:
			h.Get(w, r, id)
		case http.MethodPut:
			h.Update(w, r, id)
		case http.MethodDelete:
			h.Delete(w, r, id)
		default:
			methodNotAllowed(w)
		}
	case len(rest) == 1 && rest[0] == "contact":
		switch r.Method {
		case http.MethodPatch:
			h.touchContact(w, r, id, false)
		case http.MethodDelete:
			h.touchContact(w, r, id, true)
		default:
			methodNotAllowed(w)
		}
	case len(rest) == 1 && rest[0] == "move-to-retargeting":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.MoveToRetargeting(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Not found"})
	}
}

// List GET /api/sales-tracking?search=&manager=&startDate=&endDate=&page=&size=
func (h *SalesTrackingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
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
	resp, err := h.records.List(r.Context(), service.ListSalesTrackingRequest{
		Search:  q.Get("search"),
		Manager: q.Get("manager"),
		From:    from,
		To:      to,
		Page:    parseInt(q.Get("page"), 1),
		Size:    parseInt(q.Get("size"), 0),
	})
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "List sales tracking", err)
		return
	}
	items := make([]contactRecordDTO, 0, len(resp.Items))
	for _, rec := range resp.Items {
		items = append(items, h.m.contactRecord(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": resp.Total})
}

func (h *SalesTrackingHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.records.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Get sales tracking", err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.contactRecord(rec))
}

func (h *SalesTrackingHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req contactRecordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	rec, err := h.records.Create(r.Context(), req.input(), actor)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Create sales tracking", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.m.contactRecord(rec))
}

func (h *SalesTrackingHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := actorFrom(r)
	var req contactRecordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	rec, err := h.records.Update(r.Context(), id, req.input(), actor)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Update sales tracking", err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.contactRecord(rec))
}

func (h *SalesTrackingHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := actorFrom(r)
	if err := h.records.Delete(r.Context(), id, actor); err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Delete sales tracking", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SalesTrackingHandler) touchContact(w http.ResponseWriter, r *http.Request, id string, reset bool) {
	actor, _ := actorFrom(r)
	rec, err := h.records.TouchContact(r.Context(), id, reset, actor)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Update last contact", err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.contactRecord(rec))
}

// MoveToRetargeting POST /api/sales-tracking/:id/move-to-retargeting
func (h *SalesTrackingHandler) MoveToRetargeting(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := actorFrom(r)
	newID, err := h.promotion.Promote(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Move to retargeting", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"retargetingId": newID,
		"message":       "Moved to retargeting",
	})
}

// BulkMove POST /api/sales-tracking/bulk-move-to-retargeting {ids: [...]}
func (h *SalesTrackingHandler) BulkMove(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req bulkMoveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.promotion.BulkPromote(r.Context(), req.IDs, actor)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Bulk move to retargeting", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// monthParams year and month are both required.
func monthParams(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	ys, ms := q.Get("year"), q.Get("month")
	if ys == "" || ms == "" {
		return 0, 0, fmt.Errorf("year and month are required")
	}
	year, err := strconv.Atoi(ys)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year: %s", ys)
	}
	month, err := strconv.Atoi(ms)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month: %s", ms)
	}
	return year, month, nil
}

// MonthlyStats GET /api/sales-tracking/stats/monthly?year=&month=
func (h *SalesTrackingHandler) MonthlyStats(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	stats, err := h.stats.Monthly(r.Context(), year, month)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Monthly stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

// ExportMonthlyStats GET /api/sales-tracking/stats/monthly/export?year=&month=
func (h *SalesTrackingHandler) ExportMonthlyStats(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	stats, err := h.stats.Monthly(r.Context(), year, month)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Monthly stats export", err)
		return
	}
	data, err := GenerateMonthlyStatsExcel(year, month, stats)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Monthly stats export", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="monthly-stats-%04d-%02d.xlsx"`, year, month))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DailyStats GET /api/sales-tracking/stats/daily?startDate=&endDate=&scope=&manager=
func (h *SalesTrackingHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	from, ok, err := queryDate(r, "startDate")
	if err != nil || !ok {
		writeBadRequest(w, "startDate is required (YYYY-MM-DD)")
		return
	}
	to, ok, err := queryDate(r, "endDate")
	if err != nil || !ok {
		writeBadRequest(w, "endDate is required (YYYY-MM-DD)")
		return
	}
	q := r.URL.Query()
	stats, err := h.stats.Daily(r.Context(), service.DailyRequest{
		From:    from,
		To:      to,
		Scope:   q.Get("scope"),
		Manager: q.Get("manager"),
	})
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Daily stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}
