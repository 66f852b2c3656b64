package mocks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iho/campuswallet/internal/domain"
)

// IDGenerator returns sequential IDs unless GenerateFunc is set.
type IDGenerator struct {
	GenerateFunc func() string
	n            atomic.Int64
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

func (g *IDGenerator) Generate() string {
	if g.GenerateFunc != nil {
		return g.GenerateFunc()
	}
	return fmt.Sprintf("id-%06d", g.n.Add(1))
}

// PlainHasher is a reversible stand-in for the real hashers.
type PlainHasher struct {
	VerifyFunc func(secret, encoded string) (bool, error)
	verifies   atomic.Int64
}

func NewPlainHasher() *PlainHasher {
	return &PlainHasher{}
}

func (h *PlainHasher) Hash(secret string) (string, error) {
	return "plain:" + secret, nil
}

func (h *PlainHasher) Verify(secret, encoded string) (bool, error) {
	h.verifies.Add(1)
	if h.VerifyFunc != nil {
		return h.VerifyFunc(secret, encoded)
	}
	return encoded == "plain:"+secret, nil
}

// Verifies reports how many times Verify ran.
func (h *PlainHasher) Verifies() int {
	return int(h.verifies.Load())
}

// HashOf returns the stored form of secret, for seeding accounts.
func HashOf(secret string) *string {
	s := "plain:" + secret
	return &s
}

// RecordingNotifier keeps every event it is handed.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []domain.TransactionEvent
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Notify(ctx context.Context, events []domain.TransactionEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, events...)
}

func (n *RecordingNotifier) Events() []domain.TransactionEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.TransactionEvent(nil), n.events...)
}

// MemoryCache implements usecase.Cache in memory.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	hits  int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string][]byte)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if ok {
		c.hits++
	}
	return v, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *MemoryCache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}
