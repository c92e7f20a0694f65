package readings

import (
	"maps"
	"sync"

	"github.com/oshokin/fanctl/internal/domain/thermal"
)

// Table is a concurrency-safe map of source id to its most recent Reading.
// A missing key means the source has never reported; entries are replaced,
// never removed.
type Table struct {
	// entries stores readings by value so a replace is a single assignment.
	entries map[string]thermal.Reading
	// mu protects entries.
	mu sync.RWMutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries: make(map[string]thermal.Reading),
	}
}

// Set replaces the entry for r.SourceID.
func (t *Table) Set(r thermal.Reading) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[r.SourceID] = r
}

// Snapshot returns a point-in-time copy of every entry.
func (t *Table) Snapshot() map[string]thermal.Reading {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return maps.Clone(t.entries)
}

// Get returns the entry for sourceID.
func (t *Table) Get(sourceID string) (thermal.Reading, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.entries[sourceID]

	return r, ok
}

// IsEmpty reports whether no source has reported yet.
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// Len returns the number of sources that have reported.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.entries)
}
