package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnavailable        = errors.New("remote store unavailable")
	ErrNotConfigured      = errors.New("remote store not configured")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCacheUnavailable   = errors.New("fallback cache unavailable")
)
