package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/models"
	"github.com/kaladesignco/site-engine/pkg/store"
)

// PublicHandler serves the unauthenticated visitor endpoints: contact form
// submission and analytics beacons.
type PublicHandler struct {
	store  *store.Store
	logger *zap.Logger
}

func NewPublicHandler(st *store.Store, logger *zap.Logger) *PublicHandler {
	return &PublicHandler{store: st, logger: logger}
}

// RegisterRoutes registers the public endpoints on the given mux.
func (h *PublicHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/contact", h.SubmitContact)
	mux.HandleFunc("POST /api/events", h.TrackEvent)
}

// SubmitContact records a contact form submission, stamping the request's
// source address and user agent.
func (h *PublicHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var submission models.ContactSubmission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed contact payload")
		return
	}
	if strings.TrimSpace(submission.Name) == "" ||
		strings.TrimSpace(submission.Email) == "" ||
		strings.TrimSpace(submission.Message) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_fields", "name, email, and message are required")
		return
	}

	submission.IPAddress = clientIP(r)
	submission.UserAgent = r.UserAgent()

	created, err := h.store.AddContact(r.Context(), submission)
	if err != nil {
		h.logger.Error("failed to record contact submission", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "submit_failed", "could not record submission")
		return
	}
	_ = WriteJSON(w, http.StatusCreated, created)
}

// TrackEvent records an analytics beacon. Always responds 202: beacons are
// best-effort and callers never need the outcome.
func (h *PublicHandler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	var event models.AnalyticsEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed event payload")
		return
	}
	if event.EventName == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_fields", "event_name is required")
		return
	}

	if event.UserAgent == "" {
		event.UserAgent = r.UserAgent()
	}

	if err := h.store.LogEvent(r.Context(), event); err != nil {
		h.logger.Debug("analytics event not recorded", zap.Error(err))
	}
	w.WriteHeader(http.StatusAccepted)
}

// clientIP extracts the caller's address, preferring the first
// X-Forwarded-For hop when a proxy is in front.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
