package postgres

import (
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestULIDGeneratorProducesSortableUniqueIDs(t *testing.T) {
	g := NewULIDGenerator()

	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 1000; i++ {
		id := g.Generate()
		if len(id) != ulid.EncodedSize {
			t.Fatalf("expected %d characters, got %q", ulid.EncodedSize, id)
		}
		if _, err := ulid.ParseStrict(id); err != nil {
			t.Fatalf("invalid ULID %q: %v", id, err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		if id < prev {
			t.Fatalf("ids not monotonic: %q after %q", id, prev)
		}
		seen[id] = true
		prev = id
	}
}
