package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"salesops-data/internal/service"
)

// RetargetingHandler /api/retargeting
type RetargetingHandler struct {
	customers  *service.RetargetingService
	conversion *service.ConversionService
	stats      *service.StatsService
	m          dtoMapper
	logger     *zap.Logger
}

func NewRetargetingHandler(customers *service.RetargetingService, conversion *service.ConversionService, stats *service.StatsService, m dtoMapper, logger *zap.Logger) *RetargetingHandler {
	return &RetargetingHandler{customers: customers, conversion: conversion, stats: stats, m: m, logger: logger}
}

const retargetingPrefix = "/api/retargeting"

// ServeHTTP
//   - GET|POST        /api/retargeting
//   - GET             /api/retargeting/stats/personal
//   - GET|PUT|DELETE  /api/retargeting/:id
//   - POST            /api/retargeting/:id/convert
//   - GET|POST        /api/retargeting/:id/history
//   - DELETE          /api/retargeting/:id/history/:hid
//   - PATCH           /api/retargeting/:id/history/:hid/pin
func (h *RetargetingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, retargetingPrefix)
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			h.List(w, r)
		case http.MethodPost:
			h.Create(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}
	if len(parts) == 2 && parts[0] == "stats" && parts[1] == "personal" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.PersonalStats(w, r)
		return
	}

	id := parts[0]
	if !validID(id) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Retargeting customer not found"})
		return
	}
	rest := parts[1:]
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
	case len(rest) == 1 && rest[0] == "convert":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Convert(w, r, id)
	case len(rest) == 1 && rest[0] == "history":
		switch r.Method {
		case http.MethodGet:
			h.ListHistory(w, r, id)
		case http.MethodPost:
			h.AddHistory(w, r, id)
		default:
			methodNotAllowed(w)
		}
	case len(rest) == 2 && rest[0] == "history" && validID(rest[1]):
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		h.DeleteHistory(w, r, id, rest[1])
	case len(rest) == 3 && rest[0] == "history" && rest[2] == "pin" && validID(rest[1]):
		if r.Method != http.MethodPatch {
			methodNotAllowed(w)
			return
		}
		h.PinHistory(w, r, id, rest[1])
	default:
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Not found"})
	}
}

// List GET /api/retargeting?status=&manager=&search=&page=&size=
func (h *RetargetingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.customers.List(r.Context(), service.ListRetargetingRequest{
		Stage:   q.Get("status"),
		Manager: q.Get("manager"),
		Search:  q.Get("search"),
		Page:    parseInt(q.Get("page"), 1),
		Size:    parseInt(q.Get("size"), 0),
	})
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "List retargeting", err)
		return
	}
	items := make([]pipelineCustomerDTO, 0, len(resp.Items))
	for _, pc := range resp.Items {
		items = append(items, h.m.pipelineCustomer(pc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": resp.Total})
}

func (h *RetargetingHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	pc, err := h.customers.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Get retargeting", err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.pipelineCustomer(pc))
}

func (h *RetargetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req pipelineCustomerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeBadRequest(w, "Invalid date")
		return
	}
	pc, err := h.customers.Create(r.Context(), in, actor)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Create retargeting", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.m.pipelineCustomer(pc))
}

func (h *RetargetingHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := actorFrom(r)
	var req pipelineCustomerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeBadRequest(w, "Invalid date")
		return
	}
	pc, err := h.customers.Update(r.Context(), id, in, actor)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Update retargeting", err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.pipelineCustomer(pc))
}

func (h *RetargetingHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := actorFrom(r)
	if err := h.customers.Delete(r.Context(), id, actor); err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Delete retargeting", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Convert POST /api/retargeting/:id/convert
func (h *RetargetingHandler) Convert(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := actorFrom(r)
	var req convertRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	start, err := parseOptionalDate(req.ContractStartDate)
	if err != nil {
		writeBadRequest(w, "Invalid contractStartDate")
		return
	}
	end, err := parseOptionalDate(req.ContractExpirationDate)
	if err != nil {
		writeBadRequest(w, "Invalid contractExpirationDate")
		return
	}
	c, err := h.conversion.Convert(r.Context(), service.ConvertRequest{
		PipelineCustomerID:     id,
		MonthlyBudget:          req.MonthlyBudget,
		ContractStartDate:      start,
		ContractExpirationDate: end,
	}, actor)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Convert retargeting", err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.customer(c))
}

// PersonalStats GET /api/retargeting/stats/personal?manager=
// Non-admins always get their own counts.
func (h *RetargetingHandler) PersonalStats(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	manager := actor.Name
	if actor.IsAdmin() {
		if m := r.URL.Query().Get("manager"); m != "" {
			manager = m
		}
	}
	if actor.IsAdmin() && manager == "all" {
		funnels, err := h.stats.Funnel(r.Context(), "")
		if err != nil {
			writeServiceError(w, requestLogger(r, h.logger), "Retargeting stats", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stats": funnels})
		return
	}
	funnel, err := h.stats.PersonalFunnel(r.Context(), manager)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Retargeting stats", err)
		return
	}
	writeJSON(w, http.StatusOK, funnel)
}

func (h *RetargetingHandler) ListHistory(w http.ResponseWriter, r *http.Request, id string) {
	entries, err := h.customers.ListHistory(r.Context(), id)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "List retargeting history", err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.historyList(entries))
}

func (h *RetargetingHandler) AddHistory(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := actorFrom(r)
	var req historyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	e, err := h.customers.AddHistory(r.Context(), id, service.HistoryInput{Type: req.Type, Content: req.Content}, actor)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Add retargeting history", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.m.history(e))
}

func (h *RetargetingHandler) DeleteHistory(w http.ResponseWriter, r *http.Request, id, historyID string) {
	actor, _ := actorFrom(r)
	if err := h.customers.DeleteHistory(r.Context(), id, historyID, actor); err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Delete retargeting history", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RetargetingHandler) PinHistory(w http.ResponseWriter, r *http.Request, id, historyID string) {
	var req pinRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	e, err := h.customers.PinHistory(r.Context(), id, historyID, *req.IsPinned)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Pin retargeting history", err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.history(e))
}
