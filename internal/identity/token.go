package identity

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/pbkdf2"
)

const (
	signingKeySize = 32
	keyIterations  = 4096
	keySalt        = "mymessenger-store-auth"

	// Re-mint slightly before the token actually expires so an in-flight
	// request never carries a token that dies mid-round-trip.
	expiryLeeway = 30 * time.Second
)

// TokenSource mints HMAC-signed store-auth tokens for a user key and hands
// out a cached token until it nears expiry. Safe for concurrent use.
type TokenSource struct {
	signingKey []byte
	userKey    string
	ttl        time.Duration
	now        func() time.Time

	mu      sync.Mutex
	current string
	expires time.Time
}

// NewTokenSource derives the signing key from secret and returns a source of
// tokens identifying userKey.
func NewTokenSource(secret, userKey string, ttl time.Duration) *TokenSource {
	key := pbkdf2.Key([]byte(secret), []byte(keySalt), keyIterations, signingKeySize, sha256.New)
	return &TokenSource{
		signingKey: key,
		userKey:    userKey,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Token returns a valid signed token, minting a fresh one when the cached
// token is within expiryLeeway of expiring.
func (ts *TokenSource) Token() (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	if ts.current != "" && now.Add(expiryLeeway).Before(ts.expires) {
		return ts.current, nil
	}

	expires := now.Add(ts.ttl)
	claims := jwt.MapClaims{
		"uid": ts.userKey,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.signingKey)
	if err != nil {
		return "", fmt.Errorf("signing auth token: %w", err)
	}

	ts.current = token
	ts.expires = expires
	return token, nil
}

// Verify parses a token minted with the same secret and returns the user key
// it identifies. Used by tests and by local store stubs.
func (ts *TokenSource) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("parsing auth token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	uid, _ := claims["uid"].(string)
	return uid, nil
}
