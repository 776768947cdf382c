package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kaladesignco/site-engine/pkg/apperrors"
	"github.com/kaladesignco/site-engine/pkg/cache"
	"github.com/kaladesignco/site-engine/pkg/models"
)

// Administrator authentication. In remote mode this is a pass-through to the
// remote identity provider; in fallback mode a fixed credential allow-list
// is checked and the session is a signed local token with a bounded
// lifetime, persisted in the cache.

// SignIn authenticates an administrator and returns the identity plus a
// session token for subsequent calls.
func (s *Store) SignIn(ctx context.Context, email, password string) (models.User, string, error) {
	if err := s.await(ctx); err != nil {
		return models.User{}, "", err
	}

	if s.useRemote() {
		session, err := s.remote.SignIn(ctx, email, password)
		if err == nil {
			return session.User, session.AccessToken, nil
		}
		if !errors.Is(err, apperrors.ErrUnavailable) {
			return models.User{}, "", err
		}
		s.enterFallback("sign-in", err)
	}

	expected, ok := s.fallbackUsers[email]
	if !ok || expected != password {
		return models.User{}, "", apperrors.ErrInvalidCredentials
	}

	token, err := s.mintSessionToken(email)
	if err != nil {
		return models.User{}, "", err
	}
	if err := s.cache.Put(cache.KeyAdminSession, []byte(token)); err != nil {
		return models.User{}, "", fmt.Errorf("%w: %v", apperrors.ErrCacheUnavailable, err)
	}
	return models.User{Email: email}, token, nil
}

// SignOut ends the session behind the token.
func (s *Store) SignOut(ctx context.Context, token string) error {
	if err := s.await(ctx); err != nil {
		return err
	}

	if s.useRemote() {
		return s.remote.SignOut(ctx, token)
	}

	_, err := s.cache.Delete(cache.KeyAdminSession)
	return err
}

// CurrentUser resolves the identity behind a session token. In fallback
// mode an empty token falls back to the cached session, so a restarted
// admin surface stays signed in until the local session expires.
func (s *Store) CurrentUser(ctx context.Context, token string) (models.User, error) {
	if err := s.await(ctx); err != nil {
		return models.User{}, err
	}

	if s.useRemote() {
		user, err := s.remote.CurrentUser(ctx, token)
		if err != nil {
			return models.User{}, err
		}
		return *user, nil
	}

	if token == "" {
		raw, ok, err := s.cache.Get(cache.KeyAdminSession)
		if err != nil || !ok {
			return models.User{}, apperrors.ErrInvalidCredentials
		}
		token = string(raw)
	}

	return s.parseSessionToken(token)
}

// mintSessionToken signs a fallback session token carrying the identity and
// the session deadline.
func (s *Store) mintSessionToken(email string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.sessionSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// parseSessionToken validates a fallback session token, including its
// expiry, and returns the identity it carries.
func (s *Store) parseSessionToken(token string) (models.User, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.sessionSecret, nil
	})
	if err != nil || !parsed.Valid {
		return models.User{}, apperrors.ErrInvalidCredentials
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return models.User{}, apperrors.ErrInvalidCredentials
	}
	return models.User{Email: claims.Subject}, nil
}
