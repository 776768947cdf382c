package broadcast

import (
	"sync"

	"github.com/kaladesignco/site-engine/pkg/models"
)

// Bus is the same-context signal channel: a synchronous in-process
// dispatcher visible only within one context. The cross-context channel by
// contract never delivers back to the writer, so a writer uses the bus to
// update its own view immediately.
type Bus struct {
	mu       sync.RWMutex
	handlers []func(models.SyncEnvelope)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for every envelope published in this
// context. Handlers run synchronously on the publisher's goroutine.
func (b *Bus) Subscribe(handler func(models.SyncEnvelope)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish dispatches an envelope to every subscriber in this context.
func (b *Bus) Publish(env models.SyncEnvelope) {
	b.mu.RLock()
	handlers := make([]func(models.SyncEnvelope), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(env)
	}
}
