package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	p := Static{User: User{Email: "alice@x.com", DisplayName: "Alice"}}
	u, err := p.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", u.Email)

	_, err = Static{}.CurrentUser(context.Background())
	require.ErrorIs(t, err, ErrNoCurrentUser)
}

func TestTokenMintAndVerify(t *testing.T) {
	ts := NewTokenSource("s3cret", "alice-x-com", time.Hour)

	token, err := ts.Token()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	uid, err := ts.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice-x-com", uid)
}

func TestTokenCachedUntilNearExpiry(t *testing.T) {
	ts := NewTokenSource("s3cret", "alice-x-com", time.Hour)

	first, err := ts.Token()
	require.NoError(t, err)
	second, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTokenRemintedAfterExpiry(t *testing.T) {
	ts := NewTokenSource("s3cret", "alice-x-com", time.Hour)

	now := time.Now()
	ts.now = func() time.Time { return now }
	first, err := ts.Token()
	require.NoError(t, err)

	ts.now = func() time.Time { return now.Add(2 * time.Hour) }
	second, err := ts.Token()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	minter := NewTokenSource("s3cret", "alice-x-com", time.Hour)
	verifier := NewTokenSource("other", "alice-x-com", time.Hour)

	token, err := minter.Token()
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	ts := NewTokenSource("s3cret", "alice-x-com", time.Minute)
	now := time.Now()
	ts.now = func() time.Time { return now.Add(-2 * time.Hour) }

	token, err := ts.Token()
	require.NoError(t, err)

	_, err = ts.Verify(token)
	require.Error(t, err)
}
