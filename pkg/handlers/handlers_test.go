package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/cache"
	"github.com/kaladesignco/site-engine/pkg/config"
	"github.com/kaladesignco/site-engine/pkg/models"
	"github.com/kaladesignco/site-engine/pkg/store"
)

// fakePublisher records published envelopes.
type fakePublisher struct {
	mu        sync.Mutex
	published []struct {
		Type string
		Page string
	}
}

func (p *fakePublisher) Publish(ctx context.Context, envType, page string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, struct {
		Type string
		Page string
	}{envType, page})
	return nil
}

func (p *fakePublisher) last(t *testing.T) (string, string) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.published)
	entry := p.published[len(p.published)-1]
	return entry.Type, entry.Page
}

type testServer struct {
	srv       *httptest.Server
	client    *http.Client
	store     *store.Store
	publisher *fakePublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := store.New(store.Options{
		Cache:         db,
		FallbackUsers: map[string]string{"admin@example.com": "pw"},
		SessionSecret: "test-secret",
		Logger:        zap.NewNop(),
	})
	st.Initialize(context.Background())

	logger := zap.NewNop()
	publisher := &fakePublisher{}

	mux := http.NewServeMux()
	cfg := &config.Config{Version: "test"}
	NewHealthHandler(cfg, st, logger).RegisterRoutes(mux)
	authHandler := NewAuthHandler(st, "test-secret", logger)
	authHandler.RegisterRoutes(mux)
	NewContentHandler(st, publisher, authHandler, logger).RegisterRoutes(mux)
	NewPublicHandler(st, logger).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testServer{
		srv:       srv,
		client:    &http.Client{Jar: jar},
		store:     st,
		publisher: publisher,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (ts *testServer) login(t *testing.T) {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "admin@example.com",
		"password": "pw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestLoginLogoutFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "admin@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ts.login(t)

	resp = ts.do(t, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := decodeBody[models.User](t, resp)
	assert.Equal(t, "admin@example.com", user.Email)

	resp = ts.do(t, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/works", models.WorkProject{Title: "Lobby"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/contacts", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/api/settings/site", models.SiteSettings{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWorkCRUDOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t)

	resp := ts.do(t, http.MethodPost, "/api/works", models.WorkProject{Title: "Lobby", Category: "commercial"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[models.WorkProject](t, resp)
	require.NotZero(t, created.ID)

	resp = ts.do(t, http.MethodGet, "/api/works", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	works := decodeBody[[]models.WorkProject](t, resp)
	require.Len(t, works, 1)

	resp = ts.do(t, http.MethodPut, "/api/works/"+itoa(created.ID), map[string]any{"featured": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[models.WorkProject](t, resp)
	assert.True(t, updated.Featured)

	resp = ts.do(t, http.MethodGet, "/api/works/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/api/works/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/api/works/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSettingsUpdatePublishesEnvelope(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t)

	resp := ts.do(t, http.MethodPut, "/api/settings/site", models.SiteSettings{Phone: "555-0100"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	envType, page := ts.publisher.last(t)
	assert.Equal(t, models.SyncSiteSettings, envType)
	assert.Empty(t, page)

	resp = ts.do(t, http.MethodPut, "/api/settings/seo", models.SEOSettings{SiteTitle: "Kala"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	envType, _ = ts.publisher.last(t)
	assert.Equal(t, models.SyncSEOSettings, envType)

	resp = ts.do(t, http.MethodPut, "/api/pages/about.html", models.PageContent{Title: "About"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	envType, page = ts.publisher.last(t)
	assert.Equal(t, models.SyncPageContent, envType)
	assert.Equal(t, "about.html", page)
}

func TestContactSubmissionCapturesRequestMetadata(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/contact", map[string]string{
		"name": "Ada", "email": "ada@example.com", "message": "hello",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[models.ContactSubmission](t, resp)

	assert.Equal(t, "127.0.0.1", created.IPAddress)
	assert.NotEmpty(t, created.UserAgent)
	assert.Equal(t, models.ContactStatusNew, created.Status)
}

func TestContactSubmissionValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/contact", map[string]string{"name": "Ada"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestContactStatusUpdateRejectsUnknownStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t)

	created, err := ts.store.AddContact(context.Background(), models.ContactSubmission{
		Name: "Ada", Email: "ada@example.com", Message: "hello",
	})
	require.NoError(t, err)

	resp := ts.do(t, http.MethodPut, "/api/contacts/"+itoa(created.ID)+"/status", map[string]string{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/api/contacts/"+itoa(created.ID)+"/status", map[string]string{"status": "read"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[models.ContactSubmission](t, resp)
	assert.Equal(t, models.ContactStatusRead, updated.Status)
}

func TestAnalyticsEventAlwaysAccepted(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/events", map[string]string{"event_name": "page_view"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/events", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusReportsStoreMode(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decodeBody[StatusResponse](t, resp)
	assert.Equal(t, "fallback", status.StoreMode)
	assert.Equal(t, "site-engine", status.Service)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
