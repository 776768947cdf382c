package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/apperrors"
	"github.com/kaladesignco/site-engine/pkg/logging"
	"github.com/kaladesignco/site-engine/pkg/models"
)

// Session is the identity provider's answer to a successful sign-in.
type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        models.User `json:"user"`
}

// SignIn authenticates an administrator against the remote identity
// provider. Rejected credentials map to apperrors.ErrInvalidCredentials; an
// unreachable provider maps to apperrors.ErrUnavailable.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	endpoint, err := c.authURL("token", url.Values{"grant_type": {"password"}})
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnavailable, logging.SanitizeError(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var session Session
		if err := json.Unmarshal(respBody, &session); err != nil {
			return nil, fmt.Errorf("failed to parse session: %w", err)
		}
		c.logger.Info("administrator signed in", zap.String("email", session.User.Email))
		return &session, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrUnavailable, resp.StatusCode)
	default:
		return nil, apperrors.ErrInvalidCredentials
	}
}

// SignOut revokes the given access token. A failed revocation is logged but
// not surfaced: the caller's session state is discarded regardless.
func (c *Client) SignOut(ctx context.Context, token string) error {
	endpoint, err := c.authURL("logout", nil)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("sign-out failed", zap.String("error", logging.SanitizeError(err)))
		return nil
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// CurrentUser resolves the identity behind an access token. An expired or
// unknown token returns apperrors.ErrInvalidCredentials.
func (c *Client) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	endpoint, err := c.authURL("user", nil)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnavailable, logging.SanitizeError(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var user models.User
		if err := json.Unmarshal(respBody, &user); err != nil {
			return nil, fmt.Errorf("failed to parse user: %w", err)
		}
		return &user, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrUnavailable, resp.StatusCode)
	default:
		return nil, apperrors.ErrInvalidCredentials
	}
}

// authURL constructs an identity endpoint.
func (c *Client) authURL(endpoint string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path.Join(u.Path, "auth", "v1", endpoint)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}
