package keyx

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserKey(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"simple", "alice@x.com", "alice-x-com"},
		{"dotted local part", "bob.smith@y.co.uk", "bob-smith-y-co-uk"},
		{"case preserved", "Alice@X.Com", "Alice-X-Com"},
		{"already safe", "nodots", "nodots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserKey(tt.email))
		})
	}
}

func TestUserKeyIdempotent(t *testing.T) {
	emails := []string{"alice@x.com", "bob.smith@y.co.uk", "a.b.c@d.e"}
	for _, e := range emails {
		once := UserKey(e)
		assert.Equal(t, once, UserKey(once))
	}
}

func TestUserKeyDistinct(t *testing.T) {
	emails := []string{"alice@x.com", "bob@y.com", "carol@x.com", "alice@y.com"}
	seen := map[string]string{}
	for _, e := range emails {
		k := UserKey(e)
		prev, dup := seen[k]
		require.False(t, dup, "emails %q and %q collided on key %q", prev, e, k)
		seen[k] = e
	}
}

func TestPathSafe(t *testing.T) {
	assert.Equal(t, "a-b-c-d-e-f", PathSafe("a.b#c$d[e]f"))
	assert.Equal(t, "plain", PathSafe("plain"))
}

func TestFormatDateNormalizesZone(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	at := time.Date(2024, 5, 22, 17, 4, 5, 0, msk)

	got := FormatDate(at)
	assert.Equal(t, "May 22, 2024 at 2:04:05 PM UTC", got)

	parsed, err := time.Parse(DateLayout, got)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(at))
}

func TestNewMessageIDNoCollisions(t *testing.T) {
	// Regression: ids produced back to back within one formatted-timestamp
	// second must still differ, because of the nonce.
	at := time.Now()
	a := NewMessageID("alice-x-com", "bob-y-com", at, uuid.NewString())
	b := NewMessageID("alice-x-com", "bob-y-com", at, uuid.NewString())
	require.NotEqual(t, a, b)
}

func TestNewMessageIDPathSafe(t *testing.T) {
	id := NewMessageID("alice-x-com", "bob-y-com", time.Now(), uuid.NewString())
	assert.NotContains(t, id, ".")
	assert.NotContains(t, id, "#")
	assert.NotContains(t, id, "$")
	assert.NotContains(t, id, "[")
	assert.NotContains(t, id, "]")
}

func TestConversationID(t *testing.T) {
	assert.Equal(t, "conversation_abc", ConversationID("abc"))
	assert.Equal(t, "conversation_a-b", ConversationID("a.b"))
}
