package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router wraps the standard library http.ServeMux; the API surface is
// small enough that a third-party router buys nothing.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterStructureRoutes wires the tree synchronization endpoints.
func (r *Router) RegisterStructureRoutes(h *StructureHandler) {
	r.Handle("/api/config/customers/tree/", func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimPrefix(req.URL.Path, "/api/config/customers/tree/")
		if id == "" || strings.Contains(id, "/") {
			writeError(w, http.StatusBadRequest, "Customer ID is required", "")
			return
		}
		switch req.Method {
		case http.MethodPost:
			h.SyncTree(w, req, id)
		case http.MethodGet:
			h.GetTree(w, req, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		}
	})
}

// RegisterDashboardRoutes wires the device-sensor aggregation endpoint.
func (r *Router) RegisterDashboardRoutes(h *DashboardHandler) {
	r.Handle("/api/dashboard/devices/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
			return
		}
		nodeID := strings.TrimPrefix(req.URL.Path, "/api/dashboard/devices/")
		if nodeID == "" || strings.Contains(nodeID, "/") {
			writeError(w, http.StatusBadRequest, "Node ID is required", "")
			return
		}
		h.NodeDevices(w, req, nodeID)
	})
}

// RegisterHealthRoutes wires the liveness probe.
func (r *Router) RegisterHealthRoutes(h *HealthHandler) {
	r.Handle("/healthz", h.Health)
}
