package httpapi

import (
	"context"
	"errors"
	"net/http"

	"heatmanager-data/internal/repository"
	"heatmanager-data/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NodeDeviceAggregator answers subtree device-sensor queries.
type NodeDeviceAggregator interface {
	NodeDevices(ctx context.Context, customerID, nodeID string, includeTemperature bool) (*service.NodeDevicesReport, error)
}

// DashboardHandler serves the device aggregation endpoint used by the
// dashboard views.
type DashboardHandler struct {
	dashboard NodeDeviceAggregator
	logger    *zap.Logger
}

func NewDashboardHandler(dashboard NodeDeviceAggregator, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

// NodeDevices handles
// GET /api/dashboard/devices/{nodeId}?customerId=&includeTemperature=.
func (h *DashboardHandler) NodeDevices(w http.ResponseWriter, r *http.Request, nodeID string) {
	if _, err := uuid.Parse(nodeID); err != nil {
		writeError(w, http.StatusBadRequest, "Node ID must be a valid UUID", "")
		return
	}
	customerID := r.URL.Query().Get("customerId")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "customerId is required", "")
		return
	}
	includeTemperature := r.URL.Query().Get("includeTemperature") == "true"

	report, err := h.dashboard.NodeDevices(r.Context(), customerID, nodeID, includeTemperature)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "Tree not found for customer", "")
		case errors.Is(err, service.ErrNodeNotFound):
			writeError(w, http.StatusNotFound, "Node not found", err.Error())
		default:
			h.logger.Error("node devices aggregation failed",
				zap.String("customer_id", customerID), zap.String("node_id", nodeID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, report)
}
