package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kornilov-ux/MyMessenger/internal/store"
)

// Observe subscribes to path over an SSE stream. The store sends a full
// "put" for the subscribed path on connect, then incremental events on every
// change. The first connection is made synchronously so an unreachable or
// refusing endpoint surfaces as an error instead of a silently idle channel.
// After that the channel closes when ctx ends; stream drops are retried with
// exponential backoff.
func (c *Client) Observe(ctx context.Context, path string) (<-chan store.Snapshot, error) {
	resp, err := c.connect(ctx, path)
	if err != nil {
		return nil, err
	}

	out := make(chan store.Snapshot, 1)
	go c.observeLoop(ctx, path, resp, out)
	return out, nil
}

func (c *Client) observeLoop(ctx context.Context, path string, resp *http.Response, out chan<- store.Snapshot) {
	defer close(out)

	backoff := c.backoffMin
	for {
		if resp != nil {
			delivered, err := c.consume(ctx, path, resp, out)
			if ctx.Err() != nil {
				return
			}
			if delivered {
				backoff = c.backoffMin
			}
			c.log.Warn(ctx, "observe stream dropped, reconnecting",
				"path", path, "backoff", backoff, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.backoffMax {
			backoff = c.backoffMax
		}

		var err error
		resp, err = c.connect(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn(ctx, "observe reconnect failed",
				"path", path, "backoff", backoff, "error", err)
			resp = nil
		}
	}
}

// putEvent is the JSON body of put and patch events: the changed location
// relative to the subscribed path, and its new value.
type putEvent struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

var errStreamRevoked = errors.New("stream revoked by store")

// connect opens one SSE connection to path, verifying the status line so a
// bad endpoint fails here rather than midway through the read loop.
func (c *Client) connect(ctx context.Context, path string) (*http.Response, error) {
	u, err := c.documentURL(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrFetchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.h.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrFetchFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected status %s", store.ErrFetchFailed, resp.Status)
	}
	return resp, nil
}

// consume reads an open SSE connection until it fails or ctx ends. It
// reports whether at least one snapshot was delivered, so the caller can
// reset its backoff after a healthy connection.
func (c *Client) consume(ctx context.Context, path string, resp *http.Response, out chan<- store.Snapshot) (bool, error) {
	defer resp.Body.Close()

	sr := newSSEReader(resp.Body)
	delivered := false
	for {
		ev, err := sr.Next()
		if err != nil {
			return delivered, fmt.Errorf("%w: %v", store.ErrFetchFailed, err)
		}

		switch ev.Name {
		case "put", "patch":
			snap, err := c.snapshotFromEvent(ctx, path, ev)
			if err != nil {
				return delivered, err
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return delivered, ctx.Err()
			}
			delivered = true
		case "keep-alive":
			// Nothing changed.
		case "cancel", "auth_revoked":
			// Reconnecting re-mints the auth token.
			return delivered, errStreamRevoked
		}
	}
}

// snapshotFromEvent turns an SSE event into a snapshot of the subscribed
// path. A root put carries the full value; for deeper puts and patches the
// client re-reads the path instead of tracking partial state locally, since
// consumers treat every notification as a full reload anyway.
func (c *Client) snapshotFromEvent(ctx context.Context, path string, ev sseEvent) (store.Snapshot, error) {
	var body putEvent
	if err := json.Unmarshal(ev.Data, &body); err != nil {
		return store.Snapshot{}, fmt.Errorf("%w: decoding %s event: %v", store.ErrFetchFailed, ev.Name, err)
	}

	if ev.Name == "put" && body.Path == "/" {
		var value any
		if err := json.Unmarshal(body.Data, &value); err != nil {
			return store.Snapshot{}, fmt.Errorf("%w: decoding put data: %v", store.ErrFetchFailed, err)
		}
		return store.Snapshot{Value: value}, nil
	}

	return c.Get(ctx, path)
}
