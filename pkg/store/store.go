// Package store presents one uniform CRUD surface over the six entity
// collections, hiding whether the remote structured store or the local
// fallback cache is answering.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/apperrors"
	"github.com/kaladesignco/site-engine/pkg/cache"
	"github.com/kaladesignco/site-engine/pkg/logging"
	"github.com/kaladesignco/site-engine/pkg/models"
	"github.com/kaladesignco/site-engine/pkg/remote"
)

// Mode is the backing-store state of a running Store instance. It is never
// persisted; every process resolves its own mode at startup.
type Mode int32

const (
	// ModeUninitialized is the state before the remote handshake has
	// resolved. Operations issued now block until it does.
	ModeUninitialized Mode = iota
	// ModeRemote is the steady state: the remote store answers.
	ModeRemote
	// ModeFallback means the local cache answers. One-way: once entered it
	// holds for the lifetime of the instance.
	ModeFallback
)

func (m Mode) String() string {
	switch m {
	case ModeUninitialized:
		return "uninitialized"
	case ModeRemote:
		return "remote"
	case ModeFallback:
		return "fallback"
	default:
		return fmt.Sprintf("Mode(%d)", int32(m))
	}
}

// Options configures a Store.
type Options struct {
	// Remote is the remote store client. Leave nil when the remote store is
	// unconfigured; the Store then resolves straight to fallback.
	Remote *remote.Client

	// Cache is the durable fallback cache. Required.
	Cache *cache.Cache

	// FallbackUsers is the credential allow-list accepted when the remote
	// identity provider cannot answer.
	FallbackUsers map[string]string

	// SessionSecret signs fallback session tokens.
	SessionSecret string

	// SessionTTL bounds fallback sessions. Defaults to 24h.
	SessionTTL time.Duration

	Logger *zap.Logger
}

// Store is the persistence facade. All methods are safe for concurrent use
// within a context; no cross-context locking is applied (two contexts in
// fallback mode can race, last full write wins).
type Store struct {
	remote        *remote.Client
	cache         *cache.Cache
	fallbackUsers map[string]string
	sessionSecret []byte
	sessionTTL    time.Duration
	logger        *zap.Logger

	mu    sync.Mutex
	mode  Mode
	ready chan struct{}
}

// New creates a Store in the uninitialized state. Call Initialize to resolve
// the mode; operations issued before that block until resolution.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		remote:        opts.Remote,
		cache:         opts.Cache,
		fallbackUsers: opts.FallbackUsers,
		sessionSecret: []byte(opts.SessionSecret),
		sessionTTL:    ttl,
		logger:        logger.Named("store"),
		mode:          ModeUninitialized,
		ready:         make(chan struct{}),
	}
}

// Initialize performs the remote handshake and resolves the mode: fallback
// immediately when no remote client is configured, otherwise remote on a
// successful handshake and fallback on an availability failure. Idempotent;
// the first call wins.
func (s *Store) Initialize(ctx context.Context) Mode {
	s.mu.Lock()
	if s.mode != ModeUninitialized {
		mode := s.mode
		s.mu.Unlock()
		return mode
	}
	s.mu.Unlock()

	if s.remote == nil {
		s.resolve(ModeFallback, "remote store not configured")
		return ModeFallback
	}

	if err := s.remote.Ping(ctx); err != nil {
		s.resolve(ModeFallback, logging.SanitizeError(err))
		return ModeFallback
	}

	s.resolve(ModeRemote, "")
	return ModeRemote
}

// resolve moves out of the uninitialized state exactly once.
func (s *Store) resolve(mode Mode, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeUninitialized {
		return
	}
	s.mode = mode
	close(s.ready)

	if mode == ModeFallback {
		s.logger.Warn("store resolved to fallback cache", zap.String("reason", reason))
	} else {
		s.logger.Info("store resolved to remote")
	}
}

// Mode returns the current backing-store state.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// await blocks the caller until the mode is resolved, honoring ctx.
func (s *Store) await(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// useRemote reports whether the remote store currently answers.
func (s *Store) useRemote() bool {
	return s.Mode() == ModeRemote
}

// enterFallback performs the one-way transition into fallback mode after an
// availability-class failure. Later calls are no-ops.
func (s *Store) enterFallback(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeFallback {
		return
	}
	s.mode = ModeFallback
	s.logger.Warn("switching to fallback cache for the rest of this session",
		zap.String("op", op),
		zap.String("error", logging.SanitizeError(err)))
}

// List returns every record of a non-singleton collection, newest first.
// Never fails for an empty collection and never surfaces remote errors:
// reads are best-effort and degrade to the cache.
func (s *Store) List(ctx context.Context, kind models.Kind) ([]map[string]any, error) {
	if err := s.await(ctx); err != nil {
		return nil, err
	}
	hooks, err := hooksFor(kind)
	if err != nil {
		return nil, err
	}

	if s.useRemote() {
		raw, err := s.remote.List(ctx, kind.Table())
		if err == nil {
			records, perr := decodeRecords(raw)
			if perr == nil {
				return records, nil
			}
			err = perr
		}
		s.logger.Warn("list degraded to cache",
			zap.String("kind", kind.Table()),
			zap.String("error", logging.SanitizeError(err)))
	}

	return s.cacheList(hooks.cacheKey)
}

// Create assigns an identifier and creation timestamp, persists the record,
// and returns the stored representation. A failed remote insert is
// re-dispatched to the cache exactly once for this call.
func (s *Store) Create(ctx context.Context, kind models.Kind, record map[string]any) (map[string]any, error) {
	if err := s.await(ctx); err != nil {
		return nil, err
	}
	hooks, err := hooksFor(kind)
	if err != nil {
		return nil, err
	}
	if hooks.normalize != nil {
		hooks.normalize(record)
	}

	if s.useRemote() {
		raw, err := s.remote.Insert(ctx, kind.Table(), record)
		if err == nil {
			return decodeRecord(raw)
		}
		s.logger.Warn("create re-dispatched to cache",
			zap.String("kind", kind.Table()),
			zap.String("error", logging.SanitizeError(err)))
	}

	return s.cacheCreate(hooks.cacheKey, record)
}

// Update merges partial fields into the record with the given id and sets an
// update timestamp. Returns apperrors.ErrNotFound when the id does not exist
// in the active backing store; no implicit creation. An availability failure
// flips the store into fallback mode and retries against the cache once.
func (s *Store) Update(ctx context.Context, kind models.Kind, id int64, partial map[string]any) (map[string]any, error) {
	if err := s.await(ctx); err != nil {
		return nil, err
	}
	hooks, err := hooksFor(kind)
	if err != nil {
		return nil, err
	}

	partial["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	if s.useRemote() {
		raw, err := s.remote.Update(ctx, kind.Table(), id, partial)
		if err == nil {
			return decodeRecord(raw)
		}
		if isNotFound(err) {
			return nil, apperrors.ErrNotFound
		}
		s.enterFallback("update "+kind.Table(), err)
	}

	return s.cacheUpdate(hooks.cacheKey, id, partial)
}

// Delete removes the record if present and reports whether a record was
// actually removed. Deleting an absent record is not an error. An
// availability failure flips the store into fallback mode and retries
// against the cache once.
func (s *Store) Delete(ctx context.Context, kind models.Kind, id int64) (bool, error) {
	if err := s.await(ctx); err != nil {
		return false, err
	}
	hooks, err := hooksFor(kind)
	if err != nil {
		return false, err
	}

	if s.useRemote() {
		removed, err := s.remote.Delete(ctx, kind.Table(), id)
		if err == nil {
			return removed, nil
		}
		s.enterFallback("delete "+kind.Table(), err)
	}

	return s.cacheDelete(hooks.cacheKey, id)
}
