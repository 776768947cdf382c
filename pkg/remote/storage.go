package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/apperrors"
	"github.com/kaladesignco/site-engine/pkg/logging"
)

// Upload stores binary data in the public bucket under objectPath and
// returns the public retrieval URL.
func (c *Client) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	endpoint, err := c.storageURL("object", c.bucket, objectPath)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnavailable, logging.SanitizeError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: status %d", apperrors.ErrUnavailable, resp.StatusCode)
		}
		return "", fmt.Errorf("upload returned status %d: %s", resp.StatusCode, logging.TruncateString(string(body), 200))
	}

	publicURL, err := c.PublicURL(objectPath)
	if err != nil {
		return "", err
	}

	c.logger.Debug("uploaded object",
		zap.String("path", objectPath),
		zap.Int("bytes", len(data)))
	return publicURL, nil
}

// Remove deletes an object from the bucket. Removing an absent object is
// not an error.
func (c *Client) Remove(ctx context.Context, objectPath string) error {
	endpoint, err := c.storageURL("object", c.bucket, objectPath)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrUnavailable, logging.SanitizeError(err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", apperrors.ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// PublicURL returns the public retrieval URL for an object in the bucket.
func (c *Client) PublicURL(objectPath string) (string, error) {
	return c.storageURL("object", "public", c.bucket, objectPath)
}

// storageURL constructs a storage endpoint from path segments.
func (c *Client) storageURL(segments ...string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	parts := append([]string{u.Path, "storage", "v1"}, segments...)
	u.Path = path.Join(parts...)
	return u.String(), nil
}
