package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"heatmanager-data/internal/domain"
	"heatmanager-data/internal/repository"
	"heatmanager-data/internal/service"

	"go.uber.org/zap"
)

// StructureSyncer runs one tree synchronization for a customer.
type StructureSyncer interface {
	Sync(ctx context.Context, customerID, token string) (*service.SyncResult, error)
}

// StructureHandler serves the tree synchronization endpoints.
type StructureHandler struct {
	syncer        StructureSyncer
	settings      repository.CustomerSettingsRepository
	fallbackToken string
	logger        *zap.Logger
}

func NewStructureHandler(
	syncer StructureSyncer,
	settings repository.CustomerSettingsRepository,
	fallbackToken string,
	logger *zap.Logger,
) *StructureHandler {
	return &StructureHandler{
		syncer:        syncer,
		settings:      settings,
		fallbackToken: fallbackToken,
		logger:        logger,
	}
}

type syncDebug struct {
	SessionID string `json:"sessionId"`
	service.SyncSummary
}

type syncResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Tree    []*domain.TreeNode `json:"tree"`
	Debug   syncDebug          `json:"debug"`
}

// resolveToken picks the ThingsBoard token for the run: an explicit
// bearer header wins; backend-flagged calls fall back to the stored
// per-customer token and then to the configured fallback.
func (h *StructureHandler) resolveToken(r *http.Request, customerID string) (string, bool) {
	if token := bearerToken(r); token != "" {
		return token, true
	}
	if !isBackendCall(r) {
		return "", false
	}
	if h.settings != nil {
		token, err := h.settings.GetToken(r.Context(), customerID)
		if err == nil {
			return token, true
		}
		if !errors.Is(err, repository.ErrNotFound) {
			h.logger.Warn("stored token lookup failed",
				zap.String("customer_id", customerID), zap.Error(err))
		}
	}
	if h.fallbackToken != "" {
		return h.fallbackToken, true
	}
	return "", false
}

// SyncTree handles POST /api/config/customers/tree/{id}.
func (h *StructureHandler) SyncTree(w http.ResponseWriter, r *http.Request, customerID string) {
	token, ok := h.resolveToken(r, customerID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated", "")
		return
	}

	result, err := h.syncer.Sync(r.Context(), customerID, token)
	if err != nil {
		h.logger.Error("tree synchronization failed",
			zap.String("customer_id", customerID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error synchronizing asset tree", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		Success: true,
		Message: "Asset tree synchronized successfully",
		Tree:    result.Tree,
		Debug: syncDebug{
			SessionID:   result.SessionID,
			SyncSummary: result.Summary,
		},
	})
}

type treeResponse struct {
	Success     bool       `json:"success"`
	Tree        any        `json:"tree"`
	TreeUpdated *time.Time `json:"tree_updated,omitempty"`
}

// GetTree handles GET /api/config/customers/tree/{id}: it returns the
// last persisted snapshot without touching ThingsBoard.
func (h *StructureHandler) GetTree(w http.ResponseWriter, r *http.Request, customerID string) {
	snapshot, err := h.settings.GetTree(r.Context(), customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Tree not found for customer", "")
			return
		}
		h.logger.Error("tree lookup failed",
			zap.String("customer_id", customerID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error loading asset tree", err.Error())
		return
	}

	resp := treeResponse{Success: true, Tree: snapshot.Tree}
	if !snapshot.UpdatedAt.IsZero() {
		resp.TreeUpdated = &snapshot.UpdatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}
