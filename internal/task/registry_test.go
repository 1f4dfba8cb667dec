package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Registry Tests
// =============================================================================

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry()
	id, ctx := r.Begin(context.Background())
	require.NotEmpty(t, id)
	require.NoError(t, ctx.Err())

	snap, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, StateStarting, snap.State)

	r.Update(id, func(s Snapshot) Snapshot {
		s.State = StateRunning
		s.Total = 10
		s.Current = 5
		return s
	})
	snap, _ = r.Get(id)
	assert.Equal(t, StateRunning, snap.State)
	assert.Equal(t, 50, snap.ProgressPct)

	r.Update(id, func(s Snapshot) Snapshot {
		s.State = StateCompleted
		s.Current = 10
		return s
	})
	snap, _ = r.Get(id)
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 100, snap.ProgressPct)
	assert.False(t, snap.FinishedAt.IsZero())
}

func TestRegistry_UnknownTask(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("missing")
	assert.False(t, ok)
	assert.False(t, r.Cancel("missing"))
}

func TestRegistry_CancelIsTerminal(t *testing.T) {
	r := NewRegistry()
	id, ctx := r.Begin(context.Background())

	terminated := false
	r.SetOnCancel(id, func() { terminated = true })

	require.True(t, r.Cancel(id))
	assert.True(t, terminated)

	select {
	case <-ctx.Done():
	default:
		t.Fatal("task context must be cancelled")
	}

	snap, _ := r.Get(id)
	assert.Equal(t, StateCancelled, snap.State)

	// A racing worker update must not resurrect the run.
	r.Update(id, func(s Snapshot) Snapshot {
		s.State = StateRunning
		s.Current = 7
		return s
	})
	snap, _ = r.Get(id)
	assert.Equal(t, StateCancelled, snap.State)

	// Cancelling twice reports no active task.
	assert.False(t, r.Cancel(id))
}

func TestRegistry_Active(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Begin(context.Background())
	b, _ := r.Begin(context.Background())

	r.Update(b, func(s Snapshot) Snapshot {
		s.State = StateCompleted
		return s
	})

	active := r.Active()
	require.Len(t, active, 1)
	assert.Equal(t, a, active[0].TaskID)
}

func TestRegistry_Prune(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Begin(context.Background())
	r.Update(id, func(s Snapshot) Snapshot {
		s.State = StateCompleted
		return s
	})

	r.Prune(time.Now())
	_, ok := r.Get(id)
	assert.True(t, ok, "fresh terminal tasks stay visible")

	r.Prune(time.Now().Add(2 * time.Hour))
	_, ok = r.Get(id)
	assert.False(t, ok)
}

// =============================================================================
// LineMonitor Tests
// =============================================================================

func TestLineMonitor_CountsProgressLines(t *testing.T) {
	var gotIndexed, gotSkipped, gotFailed int
	m := NewLineMonitor(func(i, s, f int) {
		gotIndexed, gotSkipped, gotFailed = i, s, f
	})

	lines := "INDEXED: fatura_1.pdf\n" +
		"SKIP (already indexed): fatura_2.pdf\n" +
		"some diagnostic noise\n" +
		"INDEXED: fatura_3.pdf\n" +
		"FAIL: fatura_4.pdf\n"
	_, err := m.Write([]byte(lines))
	require.NoError(t, err)

	indexed, skipped, failed := m.Counts()
	assert.Equal(t, 2, indexed)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, gotIndexed)
	assert.Equal(t, 1, gotSkipped)
	assert.Equal(t, 1, gotFailed)
}

func TestLineMonitor_PartialWrites(t *testing.T) {
	m := NewLineMonitor(nil)

	_, _ = m.Write([]byte("INDEX"))
	indexed, _, _ := m.Counts()
	assert.Zero(t, indexed, "incomplete line must not count")

	_, _ = m.Write([]byte("ED: fatura.pdf\nSK"))
	indexed, skipped, _ := m.Counts()
	assert.Equal(t, 1, indexed)
	assert.Zero(t, skipped)

	_, _ = m.Write([]byte("IP: outra.pdf\n"))
	_, skipped, _ = m.Counts()
	assert.Equal(t, 1, skipped)
}
