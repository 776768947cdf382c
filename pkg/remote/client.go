// Package remote provides a client for the remote structured store: a
// CRUD-capable REST backend addressed by a project URL and access key, with
// one table per entity collection, an identity endpoint, and a public
// storage bucket.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/apperrors"
	"github.com/kaladesignco/site-engine/pkg/config"
	"github.com/kaladesignco/site-engine/pkg/logging"
)

// DefaultTimeout is the maximum time to wait for remote store responses.
const DefaultTimeout = 30 * time.Second

// Client provides access to the remote structured store API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	key        string
	bucket     string
	logger     *zap.Logger
}

// NewClient creates a new remote store client from configuration.
func NewClient(cfg *config.RemoteConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(cfg.URL, "/"),
		key:     cfg.Key,
		bucket:  cfg.Bucket,
		logger:  logger.Named("remote"),
	}
}

// Ping performs the initialization handshake: one cheap read against a known
// table. Any answer that is not availability-class means the store is
// reachable.
func (c *Client) Ping(ctx context.Context) error {
	endpoint, err := c.tableURL("contact_forms", url.Values{
		"select": {"id"},
		"limit":  {"1"},
	})
	if err != nil {
		return err
	}

	_, err = c.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	return nil
}

// List fetches every row of a table, newest first. The result is the raw
// JSON array.
func (c *Client) List(ctx context.Context, table string) ([]byte, error) {
	endpoint, err := c.tableURL(table, url.Values{
		"select": {"*"},
		"order":  {"created_at.desc"},
	})
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodGet, endpoint, nil, nil)
}

// Insert adds one row and returns its stored representation, including
// server-assigned fields.
func (c *Client) Insert(ctx context.Context, table string, record any) ([]byte, error) {
	endpoint, err := c.tableURL(table, nil)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal([]any{record})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, endpoint, body, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return nil, err
	}
	return firstRow(raw)
}

// Update merges partial fields into the row with the given id and returns
// the stored representation. Returns apperrors.ErrNotFound if no row matched.
func (c *Client) Update(ctx context.Context, table string, id int64, partial map[string]any) ([]byte, error) {
	endpoint, err := c.tableURL(table, url.Values{
		"id": {fmt.Sprintf("eq.%d", id)},
	})
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(partial)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal partial record: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPatch, endpoint, body, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return nil, err
	}
	return firstRow(raw)
}

// Delete removes the row with the given id and reports whether a row was
// actually removed.
func (c *Client) Delete(ctx context.Context, table string, id int64) (bool, error) {
	endpoint, err := c.tableURL(table, url.Values{
		"id": {fmt.Sprintf("eq.%d", id)},
	})
	if err != nil {
		return false, err
	}

	raw, err := c.do(ctx, http.MethodDelete, endpoint, nil, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return false, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return false, fmt.Errorf("failed to parse delete response: %w", err)
	}
	return len(rows) > 0, nil
}

// SelectSingle fetches the one row matching the given column filter.
// Returns apperrors.ErrNotFound when no row matches.
func (c *Client) SelectSingle(ctx context.Context, table, column, value string) ([]byte, error) {
	query := url.Values{"select": {"*"}}
	if column != "" {
		query.Set(column, "eq."+value)
	}
	endpoint, err := c.tableURL(table, query)
	if err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, map[string]string{
		"Accept": "application/vnd.pgrst.object+json",
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Upsert writes the row, creating it if absent, and returns the stored
// representation. Used for the singleton tables, which address their one
// logical row by a fixed identifier inside the record.
func (c *Client) Upsert(ctx context.Context, table string, record any) ([]byte, error) {
	endpoint, err := c.tableURL(table, nil)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal([]any{record})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, endpoint, body, map[string]string{
		"Prefer": "resolution=merge-duplicates,return=representation",
	})
	if err != nil {
		return nil, err
	}
	return firstRow(raw)
}

// do executes one request against the REST surface and classifies failures.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("remote store unreachable",
			zap.String("url", logging.SanitizeURL(endpoint)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnavailable, logging.SanitizeError(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}
	return nil, c.classifyStatus(resp.StatusCode, respBody, endpoint)
}

// classifyStatus maps an error response onto the failure taxonomy:
// availability-class failures (the store or the table cannot answer) versus
// not-found versus plain operation failure.
func (c *Client) classifyStatus(status int, body []byte, endpoint string) error {
	message := string(body)

	switch {
	case status >= 500:
		c.logger.Warn("remote store error",
			zap.Int("status", status),
			zap.String("url", logging.SanitizeURL(endpoint)))
		return fmt.Errorf("%w: status %d", apperrors.ErrUnavailable, status)
	case tableMissing(message):
		c.logger.Warn("remote table missing",
			zap.String("url", logging.SanitizeURL(endpoint)))
		return fmt.Errorf("%w: %s", apperrors.ErrUnavailable, logging.TruncateString(message, 120))
	case status == http.StatusNotFound || status == http.StatusNotAcceptable:
		return apperrors.ErrNotFound
	default:
		return fmt.Errorf("remote store returned status %d: %s", status, logging.TruncateString(message, 200))
	}
}

// tableMissing recognizes schema-absent responses, which are treated the
// same as an unreachable store.
func tableMissing(message string) bool {
	return strings.Contains(message, "PGRST204") ||
		strings.Contains(message, "PGRST205") ||
		strings.Contains(message, "42P01") ||
		strings.Contains(message, "does not exist")
}

// firstRow unwraps the single object from a one-element representation array.
func firstRow(raw []byte) ([]byte, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse representation: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return rows[0], nil
}

// tableURL constructs a REST endpoint for a table with the given query.
func (c *Client) tableURL(table string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path.Join(u.Path, "rest", "v1", table)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}
