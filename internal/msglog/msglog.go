// Package msglog keeps the append-only message log stored under each
// conversation's path. Records are created once and never mutated or
// deleted; every append rewrites the full array, so cost and race exposure
// grow with conversation length — accepted at this scale.
package msglog

import (
	"context"
	"errors"
	"fmt"

	"github.com/kornilov-ux/MyMessenger/internal/codec"
	"github.com/kornilov-ux/MyMessenger/internal/logging"
	"github.com/kornilov-ux/MyMessenger/internal/models"
	"github.com/kornilov-ux/MyMessenger/internal/store"
)

const logSegment = "messages"

// Matches the index package: conflicts are retried, failures are not.
const casAttempts = 5

// Log reads and writes per-conversation message logs through an injected
// store client.
type Log struct {
	store store.Store
	log   logging.Logger
}

// New returns a Log over st.
func New(st store.Store, log logging.Logger) *Log {
	return &Log{store: st, log: log}
}

func logPath(convID string) string {
	return store.Join(convID, logSegment)
}

// Seed writes the log's first record, creating the log. Used at
// conversation-creation time, when no concurrent writer can exist yet.
func (l *Log) Seed(ctx context.Context, convID string, message models.Message) error {
	record, err := codec.Encode(message)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	if err := l.store.Set(ctx, logPath(convID), []any{record}); err != nil {
		return fmt.Errorf("seeding log: %w", err)
	}
	return nil
}

// Append adds a record to convID's log: a read-modify-write of the full
// array, guarded by the snapshot revision and retried only on conflicts.
func (l *Log) Append(ctx context.Context, convID string, message models.Message) error {
	record, err := codec.Encode(message)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	path := logPath(convID)
	for attempt := 0; attempt < casAttempts; attempt++ {
		snap, err := l.store.Get(ctx, path)
		if err != nil {
			return fmt.Errorf("reading log: %w", err)
		}

		var records []any
		if snap.Exists() {
			if records, err = recordList(snap.Value); err != nil {
				return err
			}
		}

		err = l.store.SetIfMatch(ctx, path, append(records, record), snap.Rev)
		if err == nil {
			l.log.Info(ctx, "message appended", "conversation", convID, "message", message.ID)
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("writing log: %w", err)
		}
		l.log.Warn(ctx, "log write conflict, rereading", "conversation", convID, "attempt", attempt+1)
	}
	return fmt.Errorf("writing log for %s: %w", convID, store.ErrConflict)
}

// ReadAll subscribes to convID's log and delivers the full decoded message
// sequence on every change — a reload, not a delta; the caller diffs against
// what it already displays. Empty or absent logs yield an empty sequence.
// Records that fail to decode are skipped.
func (l *Log) ReadAll(ctx context.Context, convID string) (<-chan []models.Message, error) {
	snaps, err := l.store.Observe(ctx, logPath(convID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrFetchFailed, err)
	}

	out := make(chan []models.Message, 1)
	go func() {
		defer close(out)
		for snap := range snaps {
			messages := l.decodeAll(ctx, convID, snap.Value)
			select {
			case out <- messages:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (l *Log) decodeAll(ctx context.Context, convID string, value any) []models.Message {
	if value == nil {
		return []models.Message{}
	}
	raw, ok := value.([]any)
	if !ok {
		l.log.Warn(ctx, "log has unexpected shape", "conversation", convID, "type", fmt.Sprintf("%T", value))
		return []models.Message{}
	}

	messages := make([]models.Message, 0, len(raw))
	for _, v := range raw {
		record, ok := v.(map[string]any)
		if !ok {
			l.log.Warn(ctx, "skipping malformed log record", "conversation", convID)
			continue
		}
		m, err := codec.Decode(record)
		if err != nil {
			l.log.Warn(ctx, "skipping undecodable log record", "conversation", convID, "error", err)
			continue
		}
		messages = append(messages, m)
	}
	return messages
}

func recordList(value any) ([]any, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: log is %T, not a list", store.ErrFetchFailed, value)
	}
	return list, nil
}
