package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/apperrors"
	"github.com/kaladesignco/site-engine/pkg/models"
	"github.com/kaladesignco/site-engine/pkg/store"
)

// maxImageUpload caps image uploads at 10 MiB.
const maxImageUpload = 10 << 20

// Publisher pushes sync envelopes to listening page contexts after an
// admin mutation.
type Publisher interface {
	Publish(ctx context.Context, envType, page string, data any) error
}

// ContentHandler serves the public content endpoints and the admin CRUD
// surface for works, contacts, settings, and page content.
type ContentHandler struct {
	store     *store.Store
	publisher Publisher
	auth      *AuthHandler
	logger    *zap.Logger
}

// NewContentHandler creates a ContentHandler. publisher may be nil when no
// sync fan-out is configured.
func NewContentHandler(st *store.Store, publisher Publisher, auth *AuthHandler, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{store: st, publisher: publisher, auth: auth, logger: logger}
}

// RegisterRoutes registers content endpoints on the given mux. Mutating
// routes require an admin session.
func (h *ContentHandler) RegisterRoutes(mux *http.ServeMux) {
	admin := h.auth.RequireAdmin

	mux.HandleFunc("GET /api/works", h.ListWorks)
	mux.HandleFunc("GET /api/works/{id}", h.GetWork)
	mux.HandleFunc("POST /api/works", admin(h.CreateWork))
	mux.HandleFunc("PUT /api/works/{id}", admin(h.UpdateWork))
	mux.HandleFunc("DELETE /api/works/{id}", admin(h.DeleteWork))

	mux.HandleFunc("GET /api/contacts", admin(h.ListContacts))
	mux.HandleFunc("PUT /api/contacts/{id}/status", admin(h.UpdateContactStatus))
	mux.HandleFunc("DELETE /api/contacts/{id}", admin(h.DeleteContact))

	mux.HandleFunc("GET /api/settings/site", h.GetSiteSettings)
	mux.HandleFunc("PUT /api/settings/site", admin(h.UpdateSiteSettings))
	mux.HandleFunc("GET /api/settings/seo", h.GetSEOSettings)
	mux.HandleFunc("PUT /api/settings/seo", admin(h.UpdateSEOSettings))

	mux.HandleFunc("GET /api/pages/{page}", h.GetPageContent)
	mux.HandleFunc("PUT /api/pages/{page}", admin(h.UpdatePageContent))

	mux.HandleFunc("POST /api/images", admin(h.UploadImage))
	mux.HandleFunc("DELETE /api/images", admin(h.DeleteImage))
}

func (h *ContentHandler) publish(ctx context.Context, envType, page string, data any) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, envType, page, data); err != nil {
		h.logger.Warn("failed to publish sync envelope",
			zap.String("type", envType),
			zap.Error(err))
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// ListWorks returns all portfolio projects, newest first.
func (h *ContentHandler) ListWorks(w http.ResponseWriter, r *http.Request) {
	works, err := h.store.Works(r.Context())
	if err != nil {
		h.logger.Error("failed to list works", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "list_failed", "could not load works")
		return
	}
	_ = WriteJSON(w, http.StatusOK, works)
}

// GetWork returns a single portfolio project.
func (h *ContentHandler) GetWork(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "invalid work id")
		return
	}

	work, err := h.store.Work(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "not_found", "work not found")
			return
		}
		h.logger.Error("failed to get work", zap.Int64("id", id), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "get_failed", "could not load work")
		return
	}
	_ = WriteJSON(w, http.StatusOK, work)
}

// CreateWork adds a portfolio project.
func (h *ContentHandler) CreateWork(w http.ResponseWriter, r *http.Request) {
	var work models.WorkProject
	if err := json.NewDecoder(r.Body).Decode(&work); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed work payload")
		return
	}

	created, err := h.store.AddWork(r.Context(), work)
	if err != nil {
		h.logger.Error("failed to create work", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "create_failed", "could not create work")
		return
	}
	_ = WriteJSON(w, http.StatusCreated, created)
}

// UpdateWork applies a partial update to a portfolio project.
func (h *ContentHandler) UpdateWork(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "invalid work id")
		return
	}

	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed work payload")
		return
	}

	updated, err := h.store.UpdateWork(r.Context(), id, partial)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "not_found", "work not found")
			return
		}
		h.logger.Error("failed to update work", zap.Int64("id", id), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "update_failed", "could not update work")
		return
	}
	_ = WriteJSON(w, http.StatusOK, updated)
}

// DeleteWork removes a portfolio project.
func (h *ContentHandler) DeleteWork(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "invalid work id")
		return
	}

	deleted, err := h.store.DeleteWork(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete work", zap.Int64("id", id), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "delete_failed", "could not delete work")
		return
	}
	if !deleted {
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "work not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListContacts returns all contact submissions, newest first.
func (h *ContentHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.store.Contacts(r.Context())
	if err != nil {
		h.logger.Error("failed to list contacts", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "list_failed", "could not load contacts")
		return
	}
	_ = WriteJSON(w, http.StatusOK, contacts)
}

// UpdateContactStatus moves a contact submission through its workflow.
func (h *ContentHandler) UpdateContactStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "invalid contact id")
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed status payload")
		return
	}
	switch body.Status {
	case models.ContactStatusNew, models.ContactStatusRead, models.ContactStatusArchived:
	default:
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_status", "unknown contact status")
		return
	}

	updated, err := h.store.UpdateContactStatus(r.Context(), id, body.Status)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "not_found", "contact not found")
			return
		}
		h.logger.Error("failed to update contact status", zap.Int64("id", id), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "update_failed", "could not update contact")
		return
	}
	_ = WriteJSON(w, http.StatusOK, updated)
}

// DeleteContact removes a contact submission.
func (h *ContentHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "invalid contact id")
		return
	}

	deleted, err := h.store.DeleteContact(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete contact", zap.Int64("id", id), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "delete_failed", "could not delete contact")
		return
	}
	if !deleted {
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "contact not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSiteSettings returns the site-wide contact and social settings.
func (h *ContentHandler) GetSiteSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.SiteSettings(r.Context())
	if err != nil {
		h.logger.Error("failed to load site settings", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "get_failed", "could not load site settings")
		return
	}
	_ = WriteJSON(w, http.StatusOK, settings)
}

// UpdateSiteSettings replaces the site settings and notifies listeners.
func (h *ContentHandler) UpdateSiteSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.SiteSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed settings payload")
		return
	}

	updated, err := h.store.UpdateSiteSettings(r.Context(), settings)
	if err != nil {
		h.logger.Error("failed to update site settings", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "update_failed", "could not update site settings")
		return
	}

	h.publish(r.Context(), models.SyncSiteSettings, "", updated)
	_ = WriteJSON(w, http.StatusOK, updated)
}

// GetSEOSettings returns the site-wide SEO settings.
func (h *ContentHandler) GetSEOSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.SEOSettings(r.Context())
	if err != nil {
		h.logger.Error("failed to load seo settings", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "get_failed", "could not load seo settings")
		return
	}
	_ = WriteJSON(w, http.StatusOK, settings)
}

// UpdateSEOSettings replaces the SEO settings and notifies listeners.
func (h *ContentHandler) UpdateSEOSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.SEOSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed settings payload")
		return
	}

	updated, err := h.store.UpdateSEOSettings(r.Context(), settings)
	if err != nil {
		h.logger.Error("failed to update seo settings", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "update_failed", "could not update seo settings")
		return
	}

	h.publish(r.Context(), models.SyncSEOSettings, "", updated)
	_ = WriteJSON(w, http.StatusOK, updated)
}

// GetPageContent returns the editable content for one page.
func (h *ContentHandler) GetPageContent(w http.ResponseWriter, r *http.Request) {
	page := r.PathValue("page")
	content, err := h.store.PageContent(r.Context(), page)
	if err != nil {
		h.logger.Error("failed to load page content", zap.String("page", page), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "get_failed", "could not load page content")
		return
	}
	_ = WriteJSON(w, http.StatusOK, content)
}

// UpdatePageContent replaces the content of one page and notifies the
// matching page contexts.
func (h *ContentHandler) UpdatePageContent(w http.ResponseWriter, r *http.Request) {
	page := r.PathValue("page")

	var content models.PageContent
	if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed page payload")
		return
	}

	updated, err := h.store.UpdatePageContent(r.Context(), page, content)
	if err != nil {
		h.logger.Error("failed to update page content", zap.String("page", page), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "update_failed", "could not update page content")
		return
	}

	h.publish(r.Context(), models.SyncPageContent, page, updated)
	_ = WriteJSON(w, http.StatusOK, updated)
}

// UploadImage stores an uploaded image and returns its public URL.
func (h *ContentHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed multipart upload")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_file", "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageUpload))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "read_failed", "could not read image data")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	publicURL, err := h.store.UploadImage(r.Context(), header.Filename, data, contentType)
	if err != nil {
		h.logger.Error("failed to upload image", zap.String("file", header.Filename), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "upload_failed", "could not upload image")
		return
	}

	_ = WriteJSON(w, http.StatusCreated, map[string]string{"url": publicURL})
}

// DeleteImage removes a previously uploaded image.
func (h *ContentHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "image path is required")
		return
	}

	if err := h.store.DeleteImage(r.Context(), body.Path); err != nil {
		h.logger.Error("failed to delete image", zap.String("path", body.Path), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "delete_failed", "could not delete image")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
