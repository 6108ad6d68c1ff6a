package msglog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kornilov-ux/MyMessenger/internal/logging"
	"github.com/kornilov-ux/MyMessenger/internal/models"
	"github.com/kornilov-ux/MyMessenger/internal/store"
	"github.com/kornilov-ux/MyMessenger/internal/store/memory"
)

func textMessage(id, text string) models.Message {
	return models.Message{
		ID:         id,
		SenderKey:  "alice-x-com",
		SenderName: "Alice",
		SentAt:     time.Date(2024, 5, 22, 17, 4, 5, 0, time.UTC),
		Kind:       models.TextKind{Text: text},
	}
}

func TestAppendThenReadAll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(memory.New(), logging.Nop())
	sent := textMessage("m1", "hi")
	require.NoError(t, l.Append(ctx, "conversation_m1", sent))

	ch, err := l.ReadAll(ctx, "conversation_m1")
	require.NoError(t, err)

	got := recvMessages(t, ch)
	require.Len(t, got, 1)
	assert.Equal(t, sent.ID, got[0].ID)
	assert.Equal(t, sent.SenderKey, got[0].SenderKey)
	assert.Equal(t, sent.Kind, got[0].Kind)
}

func TestSeedCreatesLog(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	l := New(mem, logging.Nop())

	require.NoError(t, l.Seed(ctx, "conversation_m1", textMessage("m1", "hi")))

	snap, err := mem.Get(ctx, "conversation_m1/messages")
	require.NoError(t, err)
	require.Len(t, snap.Value, 1)
	record := snap.Value.([]any)[0].(map[string]any)
	assert.Equal(t, "text", record["type"])
	assert.Equal(t, "hi", record["content"])
}

func TestReadAllEmptyLog(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(memory.New(), logging.Nop())
	ch, err := l.ReadAll(ctx, "conversation_none")
	require.NoError(t, err)

	got := recvMessages(t, ch)
	assert.Empty(t, got)
}

func TestReadAllIsAReload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(memory.New(), logging.Nop())
	require.NoError(t, l.Append(ctx, "conversation_m1", textMessage("m1", "hi")))

	ch, err := l.ReadAll(ctx, "conversation_m1")
	require.NoError(t, err)
	require.Len(t, recvMessages(t, ch), 1)

	require.NoError(t, l.Append(ctx, "conversation_m1", textMessage("m2", "again")))

	// Each notification carries the whole log, not a delta.
	got := recvMessages(t, ch)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m2", got[1].ID)
}

func TestReadAllSkipsUndecodableRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mem := memory.New()
	require.NoError(t, mem.Set(ctx, "conversation_x/messages", []any{
		map[string]any{"id": "m1"}, // missing fields
		map[string]any{
			"id":           "m2",
			"type":         "text",
			"content":      "hi",
			"date":         time.Date(2024, 5, 22, 17, 4, 5, 0, time.UTC).Format("Jan 2, 2006 at 3:04:05 PM MST"),
			"sender_email": "alice-x-com",
			"is_read":      false,
			"name":         "Alice",
		},
	}))

	l := New(mem, logging.Nop())
	ch, err := l.ReadAll(ctx, "conversation_x")
	require.NoError(t, err)

	got := recvMessages(t, ch)
	require.Len(t, got, 1)
	assert.Equal(t, "m2", got[0].ID)
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	l := New(mem, logging.Nop())

	const writers = 4
	done := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func(n int) {
			done <- l.Append(ctx, "conversation_m1", textMessage("m"+string(rune('a'+n)), "hi"))
		}(i)
	}
	for i := 0; i < writers; i++ {
		require.NoError(t, <-done)
	}

	snap, err := mem.Get(ctx, "conversation_m1/messages")
	require.NoError(t, err)
	assert.Len(t, snap.Value, writers)
}

func recvMessages(t *testing.T, ch <-chan []models.Message) []models.Message {
	t.Helper()
	select {
	case messages, ok := <-ch:
		require.True(t, ok, "message channel closed unexpectedly")
		return messages
	case <-time.After(2 * time.Second):
		t.Fatal("no messages delivered")
		return nil
	}
}

func TestAppendSurfacesWriteFailure(t *testing.T) {
	l := New(failingStore{}, logging.Nop())

	err := l.Append(context.Background(), "conversation_m1", textMessage("m1", "hi"))
	require.ErrorIs(t, err, store.ErrWriteFailed)
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, path string) (store.Snapshot, error) {
	return store.Snapshot{}, nil
}
func (failingStore) Set(ctx context.Context, path string, value any) error {
	return store.ErrWriteFailed
}
func (failingStore) SetIfMatch(ctx context.Context, path string, value any, rev string) error {
	return store.ErrWriteFailed
}
func (failingStore) Observe(ctx context.Context, path string) (<-chan store.Snapshot, error) {
	return nil, store.ErrFetchFailed
}
func (failingStore) Close() error { return nil }
