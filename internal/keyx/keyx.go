// Package keyx derives storage-safe keys for the remote document store.
//
// The store addresses values by /-delimited paths and rejects the characters
// . # $ [ ] inside a path segment, so every identifier that ends up in a
// path goes through this package first. Values used only as payload content
// are never rewritten.
package keyx

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the single fixed layout used for every persisted date
// string. Encode and decode must both use it; the stored representation is
// textual, not a numeric timestamp. Always format through FormatDate: the
// layout carries a zone abbreviation, and abbreviations other than the
// parser's own zone parse to a zero offset, shifting the instant.
const DateLayout = "Jan 2, 2006 at 3:04:05 PM MST"

// FormatDate renders t in DateLayout, normalized to UTC so the stored
// string names the same instant on every machine that parses it.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

var pathUnsafe = strings.NewReplacer(
	".", "-",
	"#", "-",
	"$", "-",
	"[", "-",
	"]", "-",
)

// UserKey converts an email address into a key usable as a store path
// segment. The transform is total and deterministic: '.' and '@' become '-',
// case is preserved.
func UserKey(email string) string {
	safe := strings.ReplaceAll(email, ".", "-")
	safe = strings.ReplaceAll(safe, "@", "-")
	return safe
}

// PathSafe replaces every character the store rejects in a path segment
// with '-'.
func PathSafe(id string) string {
	return pathUnsafe.Replace(id)
}

// NewMessageID builds a message identifier from both participants, the send
// time and a random nonce. The nonce is mandatory: two messages sent within
// one DateLayout second used to collide on timestamp alone.
func NewMessageID(senderKey, recipientKey string, at time.Time, nonce string) string {
	raw := fmt.Sprintf("%s_%s_%s_%s", senderKey, recipientKey, FormatDate(at), nonce)
	return PathSafe(raw)
}

// ConversationID derives the immutable conversation identifier from the id
// of the conversation's first message.
func ConversationID(firstMessageID string) string {
	return "conversation_" + PathSafe(firstMessageID)
}
