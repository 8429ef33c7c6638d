package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router stdlib http.ServeMux; subtrees dispatch on path inside each handler.
type Router struct {
	mux      *http.ServeMux
	verifier *TokenVerifier
	logger   *zap.Logger
}

func NewRouter(verifier *TokenVerifier, logger *zap.Logger) *Router {
	return &Router{
		mux:      http.NewServeMux(),
		verifier: verifier,
		logger:   logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

// authed registers h behind bearer token auth.
func (r *Router) authed(pattern string, h http.Handler) {
	r.mux.Handle(pattern, RequireAuth(r.verifier, r.logger, h))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes /health is unauthenticated for load balancer probes.
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
}

func (r *Router) RegisterSalesTrackingRoutes(h *SalesTrackingHandler) {
	r.authed(salesTrackingPrefix, h)
	r.authed(salesTrackingPrefix+"/", h)
}

func (r *Router) RegisterRetargetingRoutes(h *RetargetingHandler) {
	r.authed(retargetingPrefix, h)
	r.authed(retargetingPrefix+"/", h)
}

func (r *Router) RegisterCustomerRoutes(h *CustomersHandler) {
	r.authed(customersPrefix, h)
	r.authed(customersPrefix+"/", h)
}

func (r *Router) RegisterDashboardRoutes(h *DashboardHandler) {
	r.authed("/api/dashboard/stats", http.HandlerFunc(h.Stats))
	r.authed("/api/dashboard/monthly-sales", http.HandlerFunc(h.MonthlySales))
}

func (r *Router) RegisterIntegrationRoutes(h *IntegrationsHandler) {
	r.authed("/api/integrations/cpi/status", http.HandlerFunc(h.CPIStatus))
	r.authed("/api/integrations/cpi/import", http.HandlerFunc(h.CPIImport))
}
