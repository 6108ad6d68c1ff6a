// Package index maintains the per-user conversation index: the ordered list
// of conversation summaries stored under each user's key. Creating a
// conversation fans its summary out to both participants' indexes; the two
// writes are independent, so a partial failure is a first-class, named
// state.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/kornilov-ux/MyMessenger/internal/codec"
	"github.com/kornilov-ux/MyMessenger/internal/keyx"
	"github.com/kornilov-ux/MyMessenger/internal/logging"
	"github.com/kornilov-ux/MyMessenger/internal/models"
	"github.com/kornilov-ux/MyMessenger/internal/store"
)

const indexSegment = "conversations"

// Concurrent appends to the same index retry this many times on a revision
// conflict before giving up. Real failures are never retried.
const casAttempts = 5

var (
	// ErrNotFound reports an index lookup that matched no conversation.
	ErrNotFound = errors.New("conversation not found")

	// ErrFanOutIncomplete reports that the sender's index entry was written
	// but the recipient's was not. The store is left asymmetric; re-running
	// the operation may duplicate the sender's entry.
	ErrFanOutIncomplete = errors.New("conversation fan-out incomplete")
)

// Participant identifies one side of a conversation.
type Participant struct {
	Key         string
	DisplayName string
}

// Index reads and writes per-user conversation indexes through an injected
// store client.
type Index struct {
	store store.Store
	log   logging.Logger
}

// New returns an Index over st.
func New(st store.Store, log logging.Logger) *Index {
	return &Index{store: st, log: log}
}

func indexPath(ownerKey string) string {
	return store.Join(ownerKey, indexSegment)
}

// Append adds summary to ownerKey's index. The store has no atomic array
// append, so this is a read-modify-write guarded by the snapshot revision.
func (ix *Index) Append(ctx context.Context, ownerKey string, summary models.ConversationSummary) error {
	return ix.mutate(ctx, ownerKey, func(list []any) ([]any, error) {
		return append(list, encodeSummary(summary)), nil
	})
}

// StartConversation derives the conversation id from the first message,
// builds both participants' views of the summary and appends one to each
// index. The recipient append failing after the sender append succeeded
// yields ErrFanOutIncomplete; no compensating write is attempted.
func (ix *Index) StartConversation(ctx context.Context, sender, recipient Participant, firstMessage models.Message) (string, error) {
	convID := keyx.ConversationID(firstMessage.ID)
	latest := models.LatestMessage{
		DateString: keyx.FormatDate(firstMessage.SentAt),
		Text:       codec.PreviewText(firstMessage.Kind),
	}

	senderView := models.ConversationSummary{
		ID:              convID,
		CounterpartyKey: recipient.Key,
		DisplayName:     recipient.DisplayName,
		Latest:          latest,
	}
	recipientView := models.ConversationSummary{
		ID:              convID,
		CounterpartyKey: sender.Key,
		DisplayName:     sender.DisplayName,
		Latest:          latest,
	}

	if err := ix.Append(ctx, sender.Key, senderView); err != nil {
		return "", fmt.Errorf("sender index: %w", err)
	}
	if err := ix.Append(ctx, recipient.Key, recipientView); err != nil {
		ix.log.Error(ctx, "recipient index append failed after sender succeeded",
			"conversation", convID, "sender", sender.Key, "recipient", recipient.Key, "error", err)
		return "", fmt.Errorf("%w: %w", ErrFanOutIncomplete, err)
	}

	ix.log.Info(ctx, "conversation created",
		"conversation", convID, "sender", sender.Key, "recipient", recipient.Key)
	return convID, nil
}

// List subscribes to ownerKey's index and delivers the decoded summary list
// on every change, current state first. Malformed entries are skipped, not
// fatal. The channel closes when ctx ends; re-subscribe by calling List
// again.
func (ix *Index) List(ctx context.Context, ownerKey string) (<-chan []models.ConversationSummary, error) {
	snaps, err := ix.store.Observe(ctx, indexPath(ownerKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrFetchFailed, err)
	}

	out := make(chan []models.ConversationSummary, 1)
	go func() {
		defer close(out)
		for snap := range snaps {
			summaries := ix.decodeList(ctx, ownerKey, snap.Value)
			select {
			case out <- summaries:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Summaries is a one-shot read of ownerKey's index, malformed entries
// skipped. List is the live variant.
func (ix *Index) Summaries(ctx context.Context, ownerKey string) ([]models.ConversationSummary, error) {
	snap, err := ix.store.Get(ctx, indexPath(ownerKey))
	if err != nil {
		return nil, fmt.Errorf("reading %s index: %w", ownerKey, err)
	}
	return ix.decodeList(ctx, ownerKey, snap.Value), nil
}

// Exists scans recipientKey's index for a conversation whose counterparty is
// senderKey and returns its id; first match wins. Used to avoid duplicating
// a conversation when a user re-initiates contact with someone who already
// messaged them.
func (ix *Index) Exists(ctx context.Context, recipientKey, senderKey string) (string, error) {
	snap, err := ix.store.Get(ctx, indexPath(recipientKey))
	if err != nil {
		return "", fmt.Errorf("reading %s index: %w", recipientKey, err)
	}
	for _, s := range ix.decodeList(ctx, recipientKey, snap.Value) {
		if s.CounterpartyKey == senderKey {
			return s.ID, nil
		}
	}
	return "", ErrNotFound
}

// UpdateLatest rewrites the latest-message preview of the entry for convID
// in ownerKey's index. ErrNotFound if the index has no such conversation.
func (ix *Index) UpdateLatest(ctx context.Context, ownerKey, convID string, latest models.LatestMessage) error {
	return ix.mutate(ctx, ownerKey, func(list []any) ([]any, error) {
		for i, v := range list {
			entry, ok := v.(map[string]any)
			if !ok || entry["id"] != convID {
				continue
			}
			entry["latest_message"] = map[string]any{
				"date":    latest.DateString,
				"message": latest.Text,
				"is_read": latest.IsRead,
			}
			list[i] = entry
			return list, nil
		}
		return nil, ErrNotFound
	})
}

// mutate runs a read-modify-write cycle against ownerKey's index, retrying
// only on revision conflicts.
func (ix *Index) mutate(ctx context.Context, ownerKey string, fn func([]any) ([]any, error)) error {
	path := indexPath(ownerKey)
	for attempt := 0; attempt < casAttempts; attempt++ {
		snap, err := ix.store.Get(ctx, path)
		if err != nil {
			return fmt.Errorf("reading index: %w", err)
		}

		list, err := listValue(snap)
		if err != nil {
			return err
		}
		updated, err := fn(list)
		if err != nil {
			return err
		}

		err = ix.store.SetIfMatch(ctx, path, updated, snap.Rev)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("writing index: %w", err)
		}
		ix.log.Warn(ctx, "index write conflict, rereading", "owner", ownerKey, "attempt", attempt+1)
	}
	return fmt.Errorf("writing index for %s: %w", ownerKey, store.ErrConflict)
}

func (ix *Index) decodeList(ctx context.Context, ownerKey string, value any) []models.ConversationSummary {
	if value == nil {
		return nil
	}
	raw, ok := value.([]any)
	if !ok {
		ix.log.Warn(ctx, "index has unexpected shape", "owner", ownerKey, "type", fmt.Sprintf("%T", value))
		return nil
	}

	summaries := make([]models.ConversationSummary, 0, len(raw))
	for _, v := range raw {
		s, err := decodeSummary(v)
		if err != nil {
			ix.log.Warn(ctx, "skipping malformed index entry", "owner", ownerKey, "error", err)
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries
}

func listValue(snap store.Snapshot) ([]any, error) {
	if !snap.Exists() {
		return nil, nil
	}
	list, ok := snap.Value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: index is %T, not a list", store.ErrFetchFailed, snap.Value)
	}
	return list, nil
}
