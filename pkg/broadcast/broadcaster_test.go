package broadcast

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/cache"
	"github.com/kaladesignco/site-engine/pkg/models"
	"github.com/kaladesignco/site-engine/pkg/store"
)

// recordingRenderer captures every projection for assertions.
type recordingRenderer struct {
	mu       sync.Mutex
	settings []models.SiteSettings
	seo      []models.SEOSettings
	pages    []models.PageContent
	works    [][]models.WorkProject
	details  []models.WorkProject
}

func (r *recordingRenderer) ApplySiteSettings(s models.SiteSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = append(r.settings, s)
}

func (r *recordingRenderer) ApplySEOSettings(s models.SEOSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seo = append(r.seo, s)
}

func (r *recordingRenderer) ApplyPageContent(p models.PageContent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, p)
}

func (r *recordingRenderer) ApplyWorks(w []models.WorkProject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.works = append(r.works, w)
}

func (r *recordingRenderer) ApplyWorkDetail(w models.WorkProject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.details = append(r.details, w)
}

func (r *recordingRenderer) lastSettings() (models.SiteSettings, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.settings) == 0 {
		return models.SiteSettings{}, false
	}
	return r.settings[len(r.settings)-1], true
}

func (r *recordingRenderer) lastPage() (models.PageContent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pages) == 0 {
		return models.PageContent{}, false
	}
	return r.pages[len(r.pages)-1], true
}

func (r *recordingRenderer) lastDetail() (models.WorkProject, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.details) == 0 {
		return models.WorkProject{}, false
	}
	return r.details[len(r.details)-1], true
}

func (r *recordingRenderer) settingsCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.settings)
}

// memoryHub is an in-process Channel implementation mirroring the slot
// semantics: one pending envelope, delivered to every subscriber.
type memoryHub struct {
	mu       sync.Mutex
	handlers []func(models.SyncEnvelope)
	slot     *models.SyncEnvelope
}

func (h *memoryHub) Publish(ctx context.Context, env models.SyncEnvelope) error {
	h.mu.Lock()
	h.slot = &env
	handlers := make([]func(models.SyncEnvelope), len(h.handlers))
	copy(handlers, h.handlers)
	h.mu.Unlock()

	for _, handler := range handlers {
		handler(env)
	}
	return nil
}

func (h *memoryHub) Subscribe(ctx context.Context, handler func(models.SyncEnvelope)) error {
	h.mu.Lock()
	pending := h.slot
	h.handlers = append(h.handlers, handler)
	h.mu.Unlock()

	if pending != nil {
		handler(*pending)
	}
	return nil
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := store.New(store.Options{Cache: db, Logger: zap.NewNop()})
	s.Initialize(context.Background())
	return s
}

func runBroadcaster(t *testing.T, b *Broadcaster) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = b.Run(ctx) }()
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond, msg)
}

func TestInitialRefreshProjectsStoreState(t *testing.T) {
	st := testStore(t)
	_, err := st.UpdateSiteSettings(context.Background(), models.SiteSettings{Phone: "555-0100"})
	require.NoError(t, err)

	renderer := &recordingRenderer{}
	b := New(Options{Store: st, Renderer: renderer, Path: "/", Logger: zap.NewNop()})
	runBroadcaster(t, b)

	eventually(t, func() bool {
		s, ok := renderer.lastSettings()
		return ok && s.Phone == "555-0100"
	}, "initial refresh should project stored settings")
}

func TestPublishAppliesToOwnContextViaBus(t *testing.T) {
	st := testStore(t)
	renderer := &recordingRenderer{}
	b := New(Options{Store: st, Renderer: renderer, Bus: NewBus(), Path: "/", Logger: zap.NewNop()})
	runBroadcaster(t, b)

	eventually(t, func() bool { return renderer.settingsCount() > 0 }, "waiting for initial refresh")

	err := b.Publish(context.Background(), models.SyncSiteSettings, "", models.SiteSettings{Phone: "555-0123"})
	require.NoError(t, err)

	eventually(t, func() bool {
		s, ok := renderer.lastSettings()
		return ok && s.Phone == "555-0123"
	}, "bus should deliver the writer's own envelope")
}

func TestCrossContextSkipsOwnOrigin(t *testing.T) {
	hub := &memoryHub{}
	st := testStore(t)

	writerRenderer := &recordingRenderer{}
	writer := New(Options{Store: st, Renderer: writerRenderer, Channel: hub, Path: "/", Logger: zap.NewNop()})

	readerRenderer := &recordingRenderer{}
	reader := New(Options{Store: st, Renderer: readerRenderer, Channel: hub, Path: "/", Logger: zap.NewNop()})

	runBroadcaster(t, writer)
	runBroadcaster(t, reader)
	eventually(t, func() bool {
		return writerRenderer.settingsCount() > 0 && readerRenderer.settingsCount() > 0
	}, "waiting for initial refreshes")

	writerBaseline := writerRenderer.settingsCount()
	err := writer.Publish(context.Background(), models.SyncSiteSettings, "", models.SiteSettings{Phone: "555-0199"})
	require.NoError(t, err)

	eventually(t, func() bool {
		s, ok := readerRenderer.lastSettings()
		return ok && s.Phone == "555-0199"
	}, "other contexts should receive the envelope")

	if s, ok := writerRenderer.lastSettings(); ok {
		assert.NotEqual(t, "555-0199", s.Phone, "writer must not receive its own envelope back")
	}
	assert.Equal(t, writerBaseline, writerRenderer.settingsCount())
}

func TestPageContentFilteredByPage(t *testing.T) {
	hub := &memoryHub{}
	st := testStore(t)

	renderer := &recordingRenderer{}
	b := New(Options{Store: st, Renderer: renderer, Channel: hub, Path: "/about", Logger: zap.NewNop()})
	require.Equal(t, "about.html", b.Page())
	runBroadcaster(t, b)

	pagesBefore := func() int {
		renderer.mu.Lock()
		defer renderer.mu.Unlock()
		return len(renderer.pages)
	}
	eventually(t, func() bool { return pagesBefore() > 0 }, "waiting for initial refresh")

	writer := New(Options{Store: st, Channel: hub, Path: "/admin", Logger: zap.NewNop()})
	err := writer.Publish(context.Background(), models.SyncPageContent, "contact.html", models.PageContent{Title: "Contact"})
	require.NoError(t, err)
	err = writer.Publish(context.Background(), models.SyncPageContent, "about.html", models.PageContent{Title: "About us"})
	require.NoError(t, err)

	eventually(t, func() bool {
		p, ok := renderer.lastPage()
		return ok && p.Title == "About us"
	}, "matching page envelope should be applied")

	renderer.mu.Lock()
	for _, p := range renderer.pages {
		assert.NotEqual(t, "Contact", p.Title, "foreign page envelope must be ignored")
	}
	renderer.mu.Unlock()
}

func TestPollingPicksUpChangesWithoutSignals(t *testing.T) {
	st := testStore(t)
	renderer := &recordingRenderer{}
	b := New(Options{
		Store:        st,
		Renderer:     renderer,
		Path:         "/",
		PollInterval: 20 * time.Millisecond,
		Logger:       zap.NewNop(),
	})
	runBroadcaster(t, b)

	eventually(t, func() bool { return renderer.settingsCount() > 0 }, "waiting for initial refresh")

	_, err := st.UpdateSiteSettings(context.Background(), models.SiteSettings{Phone: "555-0150"})
	require.NoError(t, err)

	eventually(t, func() bool {
		s, ok := renderer.lastSettings()
		return ok && s.Phone == "555-0150"
	}, "polling should converge without any signal")
}

func TestResumeTriggersImmediateRefresh(t *testing.T) {
	st := testStore(t)
	renderer := &recordingRenderer{}
	b := New(Options{
		Store:        st,
		Renderer:     renderer,
		Path:         "/",
		PollInterval: time.Hour,
		Logger:       zap.NewNop(),
	})
	runBroadcaster(t, b)

	eventually(t, func() bool { return renderer.settingsCount() > 0 }, "waiting for initial refresh")

	_, err := st.UpdateSiteSettings(context.Background(), models.SiteSettings{Phone: "555-0175"})
	require.NoError(t, err)

	b.Resume()
	eventually(t, func() bool {
		s, ok := renderer.lastSettings()
		return ok && s.Phone == "555-0175"
	}, "resume should re-pull immediately")
}

func TestWorkDetailResolvedFromListing(t *testing.T) {
	st := testStore(t)
	work, err := st.AddWork(context.Background(), models.WorkProject{Title: "Lobby"})
	require.NoError(t, err)

	renderer := &recordingRenderer{}
	b := New(Options{Store: st, Renderer: renderer, Path: "/portfolio/detail", WorkID: work.ID, Logger: zap.NewNop()})
	runBroadcaster(t, b)

	eventually(t, func() bool {
		d, ok := renderer.lastDetail()
		return ok && d.Title == "Lobby"
	}, "detail context should project its project")
}

func TestPendingSlotDeliveredOnSubscribe(t *testing.T) {
	hub := &memoryHub{}
	st := testStore(t)

	writer := New(Options{Store: st, Channel: hub, Path: "/admin", Logger: zap.NewNop()})
	err := writer.Publish(context.Background(), models.SyncSiteSettings, "", models.SiteSettings{Phone: "555-0180"})
	require.NoError(t, err)

	renderer := &recordingRenderer{}
	late := New(Options{Store: st, Renderer: renderer, Channel: hub, Path: "/", Logger: zap.NewNop()})
	runBroadcaster(t, late)

	eventually(t, func() bool {
		for _, s := range func() []models.SiteSettings {
			renderer.mu.Lock()
			defer renderer.mu.Unlock()
			return append([]models.SiteSettings(nil), renderer.settings...)
		}() {
			if s.Phone == "555-0180" {
				return true
			}
		}
		return false
	}, "a late subscriber should drain the pending slot")
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()
	var got []string
	var mu sync.Mutex

	for i := 0; i < 3; i++ {
		bus.Subscribe(func(env models.SyncEnvelope) {
			mu.Lock()
			got = append(got, env.Type)
			mu.Unlock()
		})
	}

	env, err := models.NewSyncEnvelope(models.SyncSiteSettings, "", "origin-1", models.SiteSettings{})
	require.NoError(t, err)
	bus.Publish(env)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 3)
}
