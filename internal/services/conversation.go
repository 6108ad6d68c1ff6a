// Package services contains the application services of the messenger
// client. The conversation service orchestrates the key codec, the
// conversation index and the message log to implement the user-facing
// operations: start a conversation, send a message, list conversations and
// messages.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kornilov-ux/MyMessenger/internal/codec"
	"github.com/kornilov-ux/MyMessenger/internal/identity"
	"github.com/kornilov-ux/MyMessenger/internal/index"
	"github.com/kornilov-ux/MyMessenger/internal/keyx"
	"github.com/kornilov-ux/MyMessenger/internal/logging"
	"github.com/kornilov-ux/MyMessenger/internal/models"
	"github.com/kornilov-ux/MyMessenger/internal/msglog"
)

// ConversationService is the contract exposed to the UI collaborator. All
// failures surface as returned errors; nothing is retried here, and a
// failure means the remote state may be inconsistent — callers re-run the
// operation if they need to.
type ConversationService interface {
	// Start creates a conversation with recipient, seeded with a first
	// message, and returns the new conversation id.
	Start(ctx context.Context, recipientEmail, recipientName string, kind models.Kind) (string, error)

	// Send appends a message to an existing conversation and refreshes both
	// participants' latest-message previews.
	Send(ctx context.Context, convID string, kind models.Kind) error

	// Conversations streams the current user's conversation list, current
	// state first, then on every change.
	Conversations(ctx context.Context) (<-chan []models.ConversationSummary, error)

	// Messages streams a conversation's full message log on every change.
	Messages(ctx context.Context, convID string) (<-chan []models.Message, error)

	// Exists returns the id of an existing conversation with recipient, or
	// index.ErrNotFound. Lets the UI reuse a conversation the recipient
	// already started instead of creating a duplicate.
	Exists(ctx context.Context, recipientEmail string) (string, error)
}

type conversationService struct {
	who   identity.Provider
	index *index.Index
	logs  *msglog.Log
	log   logging.Logger

	now   func() time.Time
	nonce func() string
}

// NewConversationService wires the service to its collaborators.
func NewConversationService(who identity.Provider, ix *index.Index, logs *msglog.Log, log logging.Logger) ConversationService {
	return &conversationService{
		who:   who,
		index: ix,
		logs:  logs,
		log:   log,
		now:   time.Now,
		nonce: uuid.NewString,
	}
}

func (s *conversationService) Start(ctx context.Context, recipientEmail, recipientName string, kind models.Kind) (string, error) {
	user, err := s.who.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving current user: %w", err)
	}

	sender := index.Participant{Key: keyx.UserKey(user.Email), DisplayName: user.DisplayName}
	recipient := index.Participant{Key: keyx.UserKey(recipientEmail), DisplayName: recipientName}

	message := s.newMessage(sender.Key, recipient.Key, user.DisplayName, kind)

	convID, err := s.index.StartConversation(ctx, sender, recipient, message)
	if err != nil {
		return "", err
	}

	// The conversation is visible in both indexes before its log exists; a
	// failure here leaves an empty conversation the caller can retry into
	// with Send.
	if err := s.logs.Seed(ctx, convID, message); err != nil {
		return "", fmt.Errorf("seeding conversation %s: %w", convID, err)
	}
	return convID, nil
}

func (s *conversationService) Send(ctx context.Context, convID string, kind models.Kind) error {
	user, err := s.who.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("resolving current user: %w", err)
	}
	senderKey := keyx.UserKey(user.Email)

	counterpartyKey, err := s.counterparty(ctx, senderKey, convID)
	if err != nil {
		return err
	}

	message := s.newMessage(senderKey, counterpartyKey, user.DisplayName, kind)
	if err := s.logs.Append(ctx, convID, message); err != nil {
		return err
	}

	// Preview and log share one extraction rule, so Encode's content field
	// and this latest text can never diverge.
	latest := models.LatestMessage{
		DateString: keyx.FormatDate(message.SentAt),
		Text:       codec.PreviewText(kind),
	}
	if err := s.index.UpdateLatest(ctx, senderKey, convID, latest); err != nil {
		return fmt.Errorf("updating sender preview: %w", err)
	}
	if err := s.index.UpdateLatest(ctx, counterpartyKey, convID, latest); err != nil {
		s.log.Error(ctx, "recipient preview not updated after message appended",
			"conversation", convID, "recipient", counterpartyKey, "error", err)
		return fmt.Errorf("updating recipient preview: %w", err)
	}
	return nil
}

func (s *conversationService) Conversations(ctx context.Context) (<-chan []models.ConversationSummary, error) {
	user, err := s.who.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving current user: %w", err)
	}
	return s.index.List(ctx, keyx.UserKey(user.Email))
}

func (s *conversationService) Messages(ctx context.Context, convID string) (<-chan []models.Message, error) {
	return s.logs.ReadAll(ctx, convID)
}

func (s *conversationService) Exists(ctx context.Context, recipientEmail string) (string, error) {
	user, err := s.who.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving current user: %w", err)
	}
	return s.index.Exists(ctx, keyx.UserKey(recipientEmail), keyx.UserKey(user.Email))
}

func (s *conversationService) newMessage(senderKey, recipientKey, senderName string, kind models.Kind) models.Message {
	at := s.now()
	return models.Message{
		ID:         keyx.NewMessageID(senderKey, recipientKey, at, s.nonce()),
		SenderKey:  senderKey,
		SenderName: senderName,
		SentAt:     at,
		Kind:       kind,
	}
}

// counterparty resolves the other participant of convID from the sender's
// own index.
func (s *conversationService) counterparty(ctx context.Context, senderKey, convID string) (string, error) {
	summaries, err := s.index.Summaries(ctx, senderKey)
	if err != nil {
		return "", err
	}
	for _, summary := range summaries {
		if summary.ID == convID {
			return summary.CounterpartyKey, nil
		}
	}
	return "", fmt.Errorf("conversation %s: %w", convID, index.ErrNotFound)
}
