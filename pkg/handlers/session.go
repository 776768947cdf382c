package handlers

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/apperrors"
	"github.com/kaladesignco/site-engine/pkg/store"
)

// SessionName is the administrator session cookie.
const SessionName = "admin-session"

// Session value keys.
const (
	sessionKeyToken = "token"
	sessionKeyEmail = "email"
)

// AuthHandler manages administrator sign-in, sign-out, and the session
// cookie wrapping the store's session token.
type AuthHandler struct {
	store    *store.Store
	sessions *sessions.CookieStore
	logger   *zap.Logger
}

// NewAuthHandler creates an AuthHandler. The secret signs session cookies;
// it is SHA-256 hashed to derive a consistent 32-byte key.
func NewAuthHandler(st *store.Store, secret string, logger *zap.Logger) *AuthHandler {
	key := sha256.Sum256([]byte(secret))

	cookieStore := sessions.NewCookieStore(key[:])
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &AuthHandler{store: st, sessions: cookieStore, logger: logger}
}

// RegisterRoutes registers the auth endpoints on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", h.Me)
}

// Login authenticates the administrator and establishes the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed login request")
		return
	}

	user, token, err := h.store.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			_ = ErrorResponse(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
			return
		}
		h.logger.Error("sign-in failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "sign_in_failed", "sign-in failed")
		return
	}

	session, _ := h.sessions.Get(r, SessionName)
	session.Values[sessionKeyToken] = token
	session.Values[sessionKeyEmail] = user.Email
	if err := session.Save(r, w); err != nil {
		h.logger.Error("failed to save session", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "session_failed", "could not establish session")
		return
	}

	_ = WriteJSON(w, http.StatusOK, user)
}

// Logout ends the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, SessionName)
	if token, ok := session.Values[sessionKeyToken].(string); ok && token != "" {
		if err := h.store.SignOut(r.Context(), token); err != nil {
			h.logger.Warn("sign-out failed", zap.Error(err))
		}
	}

	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("failed to clear session", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in administrator, or 401.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, SessionName)
	token, _ := session.Values[sessionKeyToken].(string)

	user, err := h.store.CurrentUser(r.Context(), token)
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "not signed in")
		return
	}
	_ = WriteJSON(w, http.StatusOK, user)
}

// RequireAdmin wraps an admin endpoint with session validation.
func (h *AuthHandler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := h.sessions.Get(r, SessionName)
		token, _ := session.Values[sessionKeyToken].(string)

		if _, err := h.store.CurrentUser(r.Context(), token); err != nil {
			_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "admin session required")
			return
		}
		next(w, r)
	}
}
