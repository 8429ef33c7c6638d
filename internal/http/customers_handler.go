package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"salesops-data/internal/service"
)

// CustomersHandler /api/customers
type CustomersHandler struct {
	customers *service.CustomerService
	m         dtoMapper
	logger    *zap.Logger
}

func NewCustomersHandler(customers *service.CustomerService, m dtoMapper, logger *zap.Logger) *CustomersHandler {
	return &CustomersHandler{customers: customers, m: m, logger: logger}
}

const customersPrefix = "/api/customers"

func (h *CustomersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, customersPrefix)
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

	id := parts[0]
	if !validID(id) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Customer not found"})
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
	case len(rest) == 1 && rest[0] == "extend":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Extend(w, r, id)
	case len(rest) == 1 && rest[0] == "history":
		switch r.Method {
		case http.MethodGet:
			h.ListHistory(w, r, id)
		case http.MethodPost:
			h.AddHistory(w, r, id)
		default:
			methodNotAllowed(w)
		}
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

func (h *CustomersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.customers.List(r.Context(), service.ListCustomersRequest{
		Manager: q.Get("manager"),
		Status:  q.Get("status"),
		Search:  q.Get("search"),
		Page:    parseInt(q.Get("page"), 1),
		Size:    parseInt(q.Get("size"), 0),
	})
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "List customers", err)
		return
	}
	items := make([]customerDTO, 0, len(resp.Items))
	for _, c := range resp.Items {
		items = append(items, h.m.customer(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": resp.Total})
}

func (h *CustomersHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	c, err := h.customers.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.customer(c))
}

func (h *CustomersHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req customerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeBadRequest(w, "Invalid date")
		return
	}
	c, err := h.customers.Create(r.Context(), in, actor)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.m.customer(c))
}

func (h *CustomersHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := actorFrom(r)
	var req customerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeBadRequest(w, "Invalid date")
		return
	}
	c, err := h.customers.Update(r.Context(), id, in, actor)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Update customer", err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.customer(c))
}

func (h *CustomersHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := actorFrom(r)
	if err := h.customers.Delete(r.Context(), id, actor); err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Extend POST /api/customers/:id/extend
func (h *CustomersHandler) Extend(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := actorFrom(r)
	c, err := h.customers.ExtendContract(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Extend contract", err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.customer(c))
}

func (h *CustomersHandler) ListHistory(w http.ResponseWriter, r *http.Request, id string) {
	entries, err := h.customers.ListHistory(r.Context(), id)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "List customer history", err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.historyList(entries))
}

func (h *CustomersHandler) AddHistory(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := actorFrom(r)
	var req historyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	e, err := h.customers.AddHistory(r.Context(), id, service.HistoryInput{Type: req.Type, Content: req.Content}, actor)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Add customer history", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.m.history(e))
}

func (h *CustomersHandler) PinHistory(w http.ResponseWriter, r *http.Request, id, historyID string) {
	var req pinRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	e, err := h.customers.PinHistory(r.Context(), id, historyID, *req.IsPinned)
	if err != nil {
		writeServiceError(w, requestLogger(r, h.logger), "Pin customer history", err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.history(e))
}
