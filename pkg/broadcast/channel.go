package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/models"
)

// Channel is the cross-context signal slot: one well-known key every context
// in the deployment can see. Writes overwrite the slot (at most one pending
// envelope; two writes racing before a reader drains lose the first) and
// notify every other open context. This is a best-effort channel by design;
// the broadcaster's polling floor covers missed signals.
type Channel interface {
	// Publish writes an envelope to the slot and notifies other contexts.
	Publish(ctx context.Context, env models.SyncEnvelope) error

	// Subscribe delivers envelopes asynchronously to handler until ctx is
	// done. Any envelope already pending in the slot is delivered first.
	Subscribe(ctx context.Context, handler func(models.SyncEnvelope)) error
}

// RedisChannel implements Channel on a redis key plus pub/sub notification.
type RedisChannel struct {
	client  *redis.Client
	slotKey string
	logger  *zap.Logger
}

// NewRedisChannel creates a channel on the given well-known slot key.
func NewRedisChannel(client *redis.Client, slotKey string, logger *zap.Logger) *RedisChannel {
	return &RedisChannel{
		client:  client,
		slotKey: slotKey,
		logger:  logger.Named("sync-channel"),
	}
}

// Publish writes the envelope to the slot and notifies subscribers.
func (c *RedisChannel) Publish(ctx context.Context, env models.SyncEnvelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := c.client.Set(ctx, c.slotKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to write signal slot: %w", err)
	}
	if err := c.client.Publish(ctx, c.slotKey, raw).Err(); err != nil {
		return fmt.Errorf("failed to notify contexts: %w", err)
	}
	return nil
}

// Subscribe drains the pending slot, then delivers change notifications
// until ctx is done.
func (c *RedisChannel) Subscribe(ctx context.Context, handler func(models.SyncEnvelope)) error {
	pending, err := c.client.Get(ctx, c.slotKey).Bytes()
	if err == nil && len(pending) > 0 {
		c.deliver(pending, handler)
	} else if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read signal slot: %w", err)
	}

	sub := c.client.Subscribe(ctx, c.slotKey)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("failed to subscribe to signal slot: %w", err)
	}

	go func() {
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				c.deliver([]byte(msg.Payload), handler)
			}
		}
	}()
	return nil
}

func (c *RedisChannel) deliver(raw []byte, handler func(models.SyncEnvelope)) {
	var env models.SyncEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Warn("dropping malformed envelope", zap.Error(err))
		return
	}
	handler(env)
}
