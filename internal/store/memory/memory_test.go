package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kornilov-ux/MyMessenger/internal/store"
)

func TestGetAbsentPath(t *testing.T) {
	s := New()
	snap, err := s.Get(context.Background(), "nobody/conversations")
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestSetGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	value := []any{map[string]any{"id": "c1"}}
	require.NoError(t, s.Set(ctx, "alice-x-com/conversations", value))

	snap, err := s.Get(ctx, "alice-x-com/conversations")
	require.NoError(t, err)
	assert.Equal(t, value, snap.Value)
}

func TestGetDoesNotAliasStoredValue(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "p", map[string]any{"k": "v"}))
	snap, err := s.Get(ctx, "p")
	require.NoError(t, err)
	snap.Value.(map[string]any)["k"] = "mutated"

	again, err := s.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "v", again.Value.(map[string]any)["k"])
}

func TestSetIfMatch(t *testing.T) {
	s := New()
	ctx := context.Background()

	snap, err := s.Get(ctx, "doc")
	require.NoError(t, err)

	require.NoError(t, s.SetIfMatch(ctx, "doc", "v1", snap.Rev))

	// Stale revision is rejected.
	err = s.SetIfMatch(ctx, "doc", "v2", snap.Rev)
	require.ErrorIs(t, err, store.ErrConflict)

	fresh, err := s.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "v1", fresh.Value)
	require.NoError(t, s.SetIfMatch(ctx, "doc", "v2", fresh.Rev))
}

func TestChildWriteInvalidatesParentRevision(t *testing.T) {
	s := New()
	ctx := context.Background()

	snap, err := s.Get(ctx, "alice-x-com")
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "alice-x-com/conversations", []any{}))

	err = s.SetIfMatch(ctx, "alice-x-com", map[string]any{}, snap.Rev)
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestObserveDeliversInitialAndUpdates(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Observe(ctx, "conv/messages")
	require.NoError(t, err)

	first := <-ch
	assert.False(t, first.Exists())

	require.NoError(t, s.Set(context.Background(), "conv/messages", []any{"m1"}))
	next := recv(t, ch)
	assert.Equal(t, []any{"m1"}, next.Value)
}

func TestObserveSeesAncestorWrites(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Observe(ctx, "conv/messages")
	require.NoError(t, err)
	<-ch

	require.NoError(t, s.Set(context.Background(), "conv", map[string]any{
		"messages": []any{"m1"},
	}))
	next := recv(t, ch)
	assert.Equal(t, []any{"m1"}, next.Value)
}

func TestObserveSlowReaderStillSeesFinalState(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Observe(ctx, "counter")
	require.NoError(t, err)

	// Write far past the channel's buffer without reading. Intermediate
	// snapshots may be dropped, but the last one drained must be the final
	// stored state.
	for i := 0; i < 100; i++ {
		require.NoError(t, s.Set(context.Background(), "counter", i))
	}

	var last store.Snapshot
	for {
		select {
		case snap := <-ch:
			last = snap
		default:
			assert.Equal(t, 99, last.Value)
			return
		}
	}
}

func TestObserveClosedOnCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.Observe(ctx, "p")
	require.NoError(t, err)
	<-ch

	cancel()
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("observer channel not closed after cancel")
		}
	}
}

func recv(t *testing.T, ch <-chan store.Snapshot) store.Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
		return store.Snapshot{}
	}
}
