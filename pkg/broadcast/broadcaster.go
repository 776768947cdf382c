// Package broadcast keeps every open presentation context showing current
// entity state without a server push channel: interval polling against the
// store, plus two independent signal channels (cross-context slot and
// same-context bus) for administrator-initiated mutations.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/apperrors"
	"github.com/kaladesignco/site-engine/pkg/models"
	"github.com/kaladesignco/site-engine/pkg/store"
)

// DefaultPollInterval bounds eventual consistency when every signal is
// missed.
const DefaultPollInterval = 5 * time.Minute

// Renderer is the presentation layer a broadcaster projects entity state
// into. Implementations re-render whatever surface they own.
type Renderer interface {
	ApplySiteSettings(models.SiteSettings)
	ApplySEOSettings(models.SEOSettings)
	ApplyPageContent(models.PageContent)
	ApplyWorks([]models.WorkProject)
	ApplyWorkDetail(models.WorkProject)
}

// NopRenderer discards every projection. Useful for contexts that serve
// data but render nothing themselves.
type NopRenderer struct{}

func (NopRenderer) ApplySiteSettings(models.SiteSettings)  {}
func (NopRenderer) ApplySEOSettings(models.SEOSettings)    {}
func (NopRenderer) ApplyPageContent(models.PageContent)    {}
func (NopRenderer) ApplyWorks([]models.WorkProject)        {}
func (NopRenderer) ApplyWorkDetail(models.WorkProject)     {}

// Options configures a Broadcaster.
type Options struct {
	Store    *store.Store
	Renderer Renderer

	// Channel is the cross-context signal slot. Optional: without it the
	// broadcaster still converges through polling.
	Channel Channel

	// Bus is the same-context signal dispatcher. Optional.
	Bus *Bus

	// Path is the context's resource path; its resolved page identifier
	// filters page_content signals.
	Path string

	// WorkID marks a single-project detail context when non-zero.
	WorkID int64

	// PollInterval overrides DefaultPollInterval.
	PollInterval time.Duration

	Logger *zap.Logger
}

// Broadcaster synchronizes one presentation context.
type Broadcaster struct {
	store    *store.Store
	renderer Renderer
	channel  Channel
	bus      *Bus
	page     string
	workID   int64
	origin   string
	interval time.Duration
	logger   *zap.Logger
	resume   chan struct{}
}

// New creates a broadcaster for one context. Each context gets a unique
// origin identifier so the cross-context channel can skip delivering a
// context's own writes back to it.
func New(opts Options) *Broadcaster {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = NopRenderer{}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Broadcaster{
		store:    opts.Store,
		renderer: renderer,
		channel:  opts.Channel,
		bus:      opts.Bus,
		page:     PageName(opts.Path),
		workID:   opts.WorkID,
		origin:   uuid.NewString(),
		interval: interval,
		logger:   logger.Named("broadcast"),
		resume:   make(chan struct{}, 1),
	}
}

// Page returns the context's resolved page identifier.
func (b *Broadcaster) Page() string { return b.page }

// Origin returns the context's origin identifier.
func (b *Broadcaster) Origin() string { return b.origin }

// Run subscribes to both signal channels, performs the initial pull, and
// polls until ctx is done. The interval timer is always released on return.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.bus != nil {
		b.bus.Subscribe(func(env models.SyncEnvelope) {
			// Same-context deliveries apply even to the writer; that is the
			// channel's whole purpose.
			b.dispatch(env)
		})
	}
	if b.channel != nil {
		if err := b.channel.Subscribe(ctx, func(env models.SyncEnvelope) {
			if env.Origin == b.origin {
				return
			}
			b.dispatch(env)
		}); err != nil {
			b.logger.Warn("cross-context channel unavailable, relying on polling",
				zap.Error(err))
		}
	}

	b.Refresh(ctx)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.Refresh(ctx)
		case <-b.resume:
			b.Refresh(ctx)
		}
	}
}

// Resume triggers an immediate re-pull, used when the context transitions
// from hidden to visible. Non-blocking; coalesces with a pending resume.
func (b *Broadcaster) Resume() {
	select {
	case b.resume <- struct{}{}:
	default:
	}
}

// Refresh re-pulls the site settings, SEO settings, the current page's
// content, and the full work listing, then projects them into the renderer.
// Pull failures are logged, never fatal: the next tick tries again.
func (b *Broadcaster) Refresh(ctx context.Context) {
	if settings, err := b.store.SiteSettings(ctx); err == nil {
		b.renderer.ApplySiteSettings(settings)
	} else {
		b.logger.Warn("site settings pull failed", zap.Error(err))
	}

	if seo, err := b.store.SEOSettings(ctx); err == nil {
		b.renderer.ApplySEOSettings(seo)
	} else {
		b.logger.Warn("seo settings pull failed", zap.Error(err))
	}

	if content, err := b.store.PageContent(ctx, b.page); err == nil {
		b.renderer.ApplyPageContent(content)
	} else {
		b.logger.Warn("page content pull failed", zap.Error(err))
	}

	works, err := b.store.Works(ctx)
	if err != nil {
		b.logger.Warn("works pull failed", zap.Error(err))
		return
	}
	b.renderer.ApplyWorks(works)

	if b.workID != 0 {
		b.refreshWorkDetail(ctx, works)
	}
}

// refreshWorkDetail resolves the detail view's project from the listing
// just fetched, falling back to a direct single-record fetch only when the
// listing misses.
func (b *Broadcaster) refreshWorkDetail(ctx context.Context, works []models.WorkProject) {
	for _, work := range works {
		if work.ID == b.workID {
			b.renderer.ApplyWorkDetail(work)
			return
		}
	}

	work, err := b.store.Work(ctx, b.workID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			b.logger.Warn("work detail pull failed",
				zap.Int64("id", b.workID), zap.Error(err))
		}
		return
	}
	b.renderer.ApplyWorkDetail(work)
}

// Publish relays an administrator-initiated mutation to every open context:
// the same-context bus first (immediate local re-render), then the
// cross-context slot.
func (b *Broadcaster) Publish(ctx context.Context, envType, page string, data any) error {
	env, err := models.NewSyncEnvelope(envType, page, b.origin, data)
	if err != nil {
		return err
	}

	if b.bus != nil {
		b.bus.Publish(env)
	}
	if b.channel != nil {
		if err := b.channel.Publish(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

// dispatch applies a received envelope by type. A page_content envelope for
// a different page is ignored for this context.
func (b *Broadcaster) dispatch(env models.SyncEnvelope) {
	switch env.Type {
	case models.SyncSiteSettings:
		var settings models.SiteSettings
		if b.decode(env.Data, &settings) {
			b.renderer.ApplySiteSettings(settings)
		}
	case models.SyncSEOSettings:
		var seo models.SEOSettings
		if b.decode(env.Data, &seo) {
			b.renderer.ApplySEOSettings(seo)
		}
	case models.SyncPageContent:
		if env.Page != b.page {
			return
		}
		var content models.PageContent
		if b.decode(env.Data, &content) {
			b.renderer.ApplyPageContent(content)
		}
	default:
		b.logger.Debug("ignoring unknown envelope type", zap.String("type", env.Type))
	}
}

func (b *Broadcaster) decode(raw json.RawMessage, out any) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		b.logger.Warn("dropping malformed envelope payload", zap.Error(err))
		return false
	}
	return true
}
