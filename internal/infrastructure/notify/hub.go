// Package notify delivers transaction completion events to connected recipients.
// Delivery is best effort: nothing is queued for recipients that are not connected.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/infrastructure/metrics"
)

// DefaultBuffer is the per-subscription event buffer.
const DefaultBuffer = 32

// Drop reasons reported on the notifications_dropped_total metric.
const (
	DropNotConnected = "not_connected"
	DropBufferFull   = "buffer_full"
)

// Subscription is one connected recipient's event stream.
type Subscription struct {
	events     chan domain.TransactionEvent
	externalID string
	closeOnce  sync.Once
}

// Events is closed when the subscription is replaced or unregistered.
func (s *Subscription) Events() <-chan domain.TransactionEvent {
	return s.events
}

// ExternalID returns the recipient this subscription belongs to.
func (s *Subscription) ExternalID() string {
	return s.externalID
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.events) })
}

// Hub is the in-process registry of connected recipients, keyed by external id.
// It is rebuilt empty on restart.
type Hub struct {
	mu      sync.Mutex
	subs    map[string]*Subscription
	logger  zerolog.Logger
	metrics *metrics.Metrics
	buffer  int
}

// NewHub creates an empty hub. metrics may be nil.
func NewHub(buffer int, logger zerolog.Logger, m *metrics.Metrics) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:    make(map[string]*Subscription),
		logger:  logger,
		metrics: m,
		buffer:  buffer,
	}
}

// Register connects externalID. A previous subscription for the same recipient
// is closed and replaced: the most recent connection wins.
func (h *Hub) Register(externalID string) *Subscription {
	externalID = domain.NormalizeExternalID(externalID)
	sub := &Subscription{
		externalID: externalID,
		events:     make(chan domain.TransactionEvent, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.subs[externalID]; ok {
		prev.close()
	} else if h.metrics != nil {
		h.metrics.StreamSubscribers.Inc()
	}
	h.subs[externalID] = sub

	return sub
}

// Unregister disconnects sub if it is still the current subscription for its recipient.
func (h *Hub) Unregister(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.subs[sub.externalID]; ok && current == sub {
		delete(h.subs, sub.externalID)
		if h.metrics != nil {
			h.metrics.StreamSubscribers.Dec()
		}
	}
	sub.close()
}

// Connected reports whether externalID has a live subscription.
func (h *Hub) Connected(externalID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.subs[domain.NormalizeExternalID(externalID)]
	return ok
}

// Notify delivers events to connected recipients without blocking.
func (h *Hub) Notify(_ context.Context, events []domain.TransactionEvent) {
	h.Deliver(events)
	if h.metrics != nil {
		h.metrics.NotificationsPublished.WithLabelValues("local").Add(float64(len(events)))
	}
}

// Deliver hands each event to its recipient's buffer. Events for absent
// recipients or full buffers are dropped. It returns the number delivered.
func (h *Hub) Deliver(events []domain.TransactionEvent) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, ev := range events {
		sub, ok := h.subs[ev.RecipientExternalID]
		if !ok {
			// Expected on multi-instance deployments: the recipient may be
			// connected elsewhere.
			h.logger.Debug().
				Str("recipient", ev.RecipientExternalID).
				Str("transaction_id", ev.TransactionID).
				Msg("recipient not connected, dropping event")
			h.dropped(DropNotConnected)
			continue
		}

		select {
		case sub.events <- ev:
			delivered++
		default:
			h.logger.Debug().
				Str("recipient", ev.RecipientExternalID).
				Str("transaction_id", ev.TransactionID).
				Msg("subscriber buffer full, dropping event")
			h.dropped(DropBufferFull)
		}
	}

	return delivered
}

func (h *Hub) dropped(reason string) {
	if h.metrics != nil {
		h.metrics.NotificationsDropped.WithLabelValues(reason).Inc()
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		sub.close()
		delete(h.subs, id)
	}
	if h.metrics != nil {
		h.metrics.StreamSubscribers.Set(0)
	}
}
