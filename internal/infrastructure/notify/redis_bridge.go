package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/infrastructure/metrics"
)

const publishTimeout = 2 * time.Second

// RedisBridge fans completion events out to every server instance over Redis
// pub/sub. Each instance runs Run to forward received events into its local Hub.
type RedisBridge struct {
	client  *redis.Client
	hub     *Hub
	logger  zerolog.Logger
	metrics *metrics.Metrics
	channel string
	wg      sync.WaitGroup
}

// NewRedisBridge creates a bridge publishing on channel. metrics may be nil.
func NewRedisBridge(client *redis.Client, channel string, hub *Hub, logger zerolog.Logger, m *metrics.Metrics) *RedisBridge {
	return &RedisBridge{
		client:  client,
		hub:     hub,
		logger:  logger.With().Str("component", "notify_bridge").Str("channel", channel).Logger(),
		metrics: m,
		channel: channel,
	}
}

// Notify publishes events asynchronously. Failures are logged and discarded.
func (b *RedisBridge) Notify(ctx context.Context, events []domain.TransactionEvent) {
	if len(events) == 0 {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		for _, ev := range events {
			if err := b.publish(pubCtx, ev); err != nil {
				b.logger.Warn().Err(err).
					Str("transaction_id", ev.TransactionID).
					Msg("failed to publish completion event")
				continue
			}
			if b.metrics != nil {
				b.metrics.NotificationsPublished.WithLabelValues("redis").Inc()
			}
		}
	}()
}

func (b *RedisBridge) publish(ctx context.Context, ev domain.TransactionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Wait blocks until in-flight publishes finish.
func (b *RedisBridge) Wait() {
	b.wg.Wait()
}

// Run subscribes to the channel and forwards events into the local hub.
// It runs until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	b.logger.Info().Msg("notification bridge started")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("notification bridge shutting down")
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			var ev domain.TransactionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn().Err(err).Msg("discarding malformed event")
				continue
			}
			b.hub.Deliver([]domain.TransactionEvent{ev})
		}
	}
}
