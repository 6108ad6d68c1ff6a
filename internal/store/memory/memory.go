// Package memory implements the store interface on an in-process tree. It
// backs tests and local runs; semantics mirror the remote store: no
// transactions, last write wins per path, observers notified on every
// overlapping write.
package memory

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/kornilov-ux/MyMessenger/internal/store"
)

type observer struct {
	path string
	ch   chan store.Snapshot
}

// Store is an in-memory path-addressed document tree.
type Store struct {
	mu        sync.Mutex
	root      map[string]any
	version   uint64
	writes    map[string]uint64 // path -> version of its last direct write
	observers map[int]*observer
	nextObs   int
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		root:      map[string]any{},
		writes:    map[string]uint64{},
		observers: map[int]*observer{},
	}
}

func (s *Store) Get(ctx context.Context, path string) (store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return store.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(path), nil
}

func (s *Store) Set(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(path, value)
	return nil
}

func (s *Store) SetIfMatch(ctx context.Context, path string, value any, rev string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.revLocked(path); cur != rev {
		return store.ErrConflict
	}
	s.setLocked(path, value)
	return nil
}

func (s *Store) Observe(ctx context.Context, path string) (<-chan store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	obs := &observer{path: path, ch: make(chan store.Snapshot, 16)}
	id := s.nextObs
	s.nextObs++
	s.observers[id] = obs
	obs.ch <- s.snapshotLocked(path)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.observers, id)
		close(obs.ch)
		s.mu.Unlock()
	}()

	return obs.ch, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) setLocked(path string, value any) {
	s.version++
	s.writes[path] = s.version
	segs := split(path)
	node := s.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = copyValue(value)

	for _, obs := range s.observers {
		if !overlaps(obs.path, path) {
			continue
		}
		snap := s.snapshotLocked(obs.path)
		select {
		case obs.ch <- snap:
		default:
			// Slow observer with a full buffer. Drop its oldest queued
			// snapshot so the newest state is always the last one delivered.
			select {
			case <-obs.ch:
			default:
			}
			select {
			case obs.ch <- snap:
			default:
			}
		}
	}
}

func (s *Store) snapshotLocked(path string) store.Snapshot {
	var value any = s.root
	for _, seg := range split(path) {
		node, ok := value.(map[string]any)
		if !ok {
			value = nil
			break
		}
		value = node[seg]
	}
	return store.Snapshot{Value: copyValue(value), Rev: s.revLocked(path)}
}

// revLocked derives the revision of path from the newest write overlapping
// it. A write to a descendant or ancestor changes the value seen at path, so
// it must invalidate path's revision too.
func (s *Store) revLocked(path string) string {
	var max uint64
	for wpath, v := range s.writes {
		if overlaps(path, wpath) && v > max {
			max = v
		}
	}
	return strconv.FormatUint(max, 10)
}

func overlaps(a, b string) bool {
	return a == b ||
		strings.HasPrefix(a, b+"/") ||
		strings.HasPrefix(b, a+"/")
}

func split(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = copyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
