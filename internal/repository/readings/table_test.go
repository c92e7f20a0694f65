package readings

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/fanctl/internal/domain/thermal"
)

// TestTable_SetAndSnapshot covers overwrite semantics and copy-on-read.
func TestTable_SetAndSnapshot(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.True(t, table.IsEmpty())
	require.Empty(t, table.Snapshot())

	now := time.Unix(100, 0)

	table.Set(thermal.Reading{SourceID: "cpu", Value: 50, ObservedAt: now})
	table.Set(thermal.Reading{SourceID: "cpu", Value: 55, ObservedAt: now.Add(time.Second)})
	table.Set(thermal.Reading{SourceID: "gpu0", Value: 70, ObservedAt: now})

	require.False(t, table.IsEmpty())
	require.Equal(t, 2, table.Len())

	snapshot := table.Snapshot()
	require.InDelta(t, 55.0, snapshot["cpu"].Value, 0)

	// Snapshot is a copy.
	snapshot["cpu"] = thermal.Reading{SourceID: "cpu", Value: 1}
	delete(snapshot, "gpu0")

	got, ok := table.Get("cpu")
	require.True(t, ok)
	require.InDelta(t, 55.0, got.Value, 0)
	require.Equal(t, 2, table.Len())

	// Writes after a snapshot do not leak into it.
	before := table.Snapshot()
	table.Set(thermal.Reading{SourceID: "system", Value: 40})
	require.NotContains(t, before, "system")
	require.Contains(t, table.Snapshot(), "system")
}

// TestTable_ConcurrentWriters hammers disjoint keys while a reader snapshots.
// Each writer stores Value == ObservedAt seconds, so a torn entry would show up
// as a mismatch.
func TestTable_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	const (
		writers    = 8
		iterations = 500
	)

	table := NewTable()

	var wg sync.WaitGroup

	for w := range writers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			id := fmt.Sprintf("gpu%d", w)
			for i := range iterations {
				table.Set(thermal.Reading{SourceID: id, Value: float64(i), ObservedAt: time.Unix(int64(i), 0)})
			}
		}()
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		for range iterations {
			for _, r := range table.Snapshot() {
				if r.Value != float64(r.ObservedAt.Unix()) {
					t.Errorf("torn reading %v", r)

					return
				}
			}
		}
	}()

	wg.Wait()
	<-done

	snapshot := table.Snapshot()
	require.Len(t, snapshot, writers)

	for _, r := range snapshot {
		require.InDelta(t, float64(iterations-1), r.Value, 0)
	}
}
