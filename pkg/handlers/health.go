package handlers

import (
	"net/http"
	"runtime"

	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/config"
	"github.com/kaladesignco/site-engine/pkg/store"
)

// StatusResponse contains service status, version, and the active
// backing-store mode.
type StatusResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Service   string `json:"service"`
	GoVersion string `json:"go_version"`
	StoreMode string `json:"store_mode"`
}

// HealthHandler handles health check and status endpoints.
type HealthHandler struct {
	cfg    *config.Config
	store  *store.Store
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg *config.Config, st *store.Store, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, store: st, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /status", h.Status)
}

// Health returns a simple "ok" for load balancer checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Status returns service information including which backing store answers.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		Status:    "ok",
		Version:   h.cfg.Version,
		Service:   "site-engine",
		GoVersion: runtime.Version(),
		StoreMode: h.store.Mode().String(),
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode status response", zap.Error(err))
	}
}
