// Package rest is the production store client. It speaks the store's REST
// protocol: JSON documents addressed by path, revisions carried in ETags,
// and change streams delivered over Server-Sent Events.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kornilov-ux/MyMessenger/internal/logging"
	"github.com/kornilov-ux/MyMessenger/internal/store"
)

// TokenSource supplies the auth token attached to every request.
type TokenSource interface {
	Token() (string, error)
}

// Client implements store.Store over HTTP.
type Client struct {
	baseURL    string
	h          *http.Client
	tokens     TokenSource
	log        logging.Logger
	backoffMin time.Duration
	backoffMax time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.h = h }
}

// WithTokenSource attaches auth tokens to every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger substitutes the logger used for observe reconnects.
func WithLogger(log logging.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithObserveBackoff bounds the reconnect backoff of Observe streams.
func WithObserveBackoff(min, max time.Duration) Option {
	return func(c *Client) {
		c.backoffMin = min
		c.backoffMax = max
	}
}

// New returns a client for the store at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		h:          &http.Client{},
		log:        logging.Nop(),
		backoffMin: time.Second,
		backoffMax: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Get(ctx context.Context, path string) (store.Snapshot, error) {
	u, err := c.documentURL(path)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("%w: %v", store.ErrFetchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("%w: %v", store.ErrFetchFailed, err)
	}
	req.Header.Set("X-Firebase-ETag", "true")

	resp, err := c.h.Do(req)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("%w: %v", store.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return store.Snapshot{}, fmt.Errorf("%w: unexpected status %s", store.ErrFetchFailed, resp.Status)
	}

	var value any
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil {
		return store.Snapshot{}, fmt.Errorf("%w: decoding body: %v", store.ErrFetchFailed, err)
	}

	return store.Snapshot{Value: value, Rev: resp.Header.Get("ETag")}, nil
}

func (c *Client) Set(ctx context.Context, path string, value any) error {
	return c.put(ctx, path, value, "")
}

func (c *Client) SetIfMatch(ctx context.Context, path string, value any, rev string) error {
	return c.put(ctx, path, value, rev)
}

func (c *Client) put(ctx context.Context, path string, value any, rev string) error {
	u, err := c.documentURL(path)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrWriteFailed, err)
	}

	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encoding value: %v", store.ErrWriteFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrWriteFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if rev != "" {
		req.Header.Set("if-match", rev)
	}

	resp, err := c.h.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrWriteFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusPreconditionFailed:
		return store.ErrConflict
	default:
		return fmt.Errorf("%w: unexpected status %s", store.ErrWriteFailed, resp.Status)
	}
}

func (c *Client) Close() error {
	c.h.CloseIdleConnections()
	return nil
}

func (c *Client) documentURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL + "/" + path + ".json")
	if err != nil {
		return "", err
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return "", fmt.Errorf("minting auth token: %w", err)
		}
		q := u.Query()
		q.Set("auth", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
