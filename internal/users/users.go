// Package users is the account layer: per-user profile nodes plus the flat
// all-users collection the new-conversation screen searches. The collection
// scan is linear and stays in this UI-adjacent package; the conversation
// index never depends on it.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kornilov-ux/MyMessenger/internal/keyx"
	"github.com/kornilov-ux/MyMessenger/internal/logging"
	"github.com/kornilov-ux/MyMessenger/internal/models"
	"github.com/kornilov-ux/MyMessenger/internal/store"
)

const directoryPath = "users"

// ErrUserExists reports an Insert for an email that already has an account.
var ErrUserExists = errors.New("user already exists")

// Entry is one row of the all-users collection: a display name and the
// user's key-form email.
type Entry struct {
	Name  string
	Email string
}

// Directory reads and writes user accounts through an injected store client.
type Directory struct {
	store store.Store
	log   logging.Logger
}

// New returns a Directory over st.
func New(st store.Store, log logging.Logger) *Directory {
	return &Directory{store: st, log: log}
}

// Exists reports whether an account node exists for email.
func (d *Directory) Exists(ctx context.Context, email string) (bool, error) {
	snap, err := d.store.Get(ctx, keyx.UserKey(email))
	if err != nil {
		return false, fmt.Errorf("reading user node: %w", err)
	}
	return snap.Exists(), nil
}

// Insert creates the account node for user and adds it to the all-users
// collection. The two writes are independent; the collection append failing
// leaves the account usable but undiscoverable by search.
func (d *Directory) Insert(ctx context.Context, user models.User) error {
	exists, err := d.Exists(ctx, user.Email)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserExists
	}

	key := keyx.UserKey(user.Email)
	node := map[string]any{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	}
	if err := d.store.Set(ctx, key, node); err != nil {
		return fmt.Errorf("writing user node: %w", err)
	}

	if err := d.appendToDirectory(ctx, user, key); err != nil {
		return fmt.Errorf("appending to user directory: %w", err)
	}

	d.log.Info(ctx, "user created", "user", key)
	return nil
}

// All returns the user directory as stored: one {name, email} pair per
// account, emails in key form.
func (d *Directory) All(ctx context.Context) ([]Entry, error) {
	snap, err := d.store.Get(ctx, directoryPath)
	if err != nil {
		return nil, fmt.Errorf("reading user directory: %w", err)
	}
	if !snap.Exists() {
		return nil, nil
	}
	raw, ok := snap.Value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: user directory is %T, not a list", store.ErrFetchFailed, snap.Value)
	}

	entries := make([]Entry, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		email, ok := m["email"].(string)
		if !ok {
			d.log.Warn(ctx, "skipping directory entry without email")
			continue
		}
		entries = append(entries, Entry{Name: name, Email: email})
	}
	return entries, nil
}

// SearchByPrefix filters the directory down to users whose name starts with
// term, excluding selfEmail. Case-insensitive.
func (d *Directory) SearchByPrefix(ctx context.Context, term, selfEmail string) ([]Entry, error) {
	all, err := d.All(ctx)
	if err != nil {
		return nil, err
	}

	selfKey := keyx.UserKey(selfEmail)
	term = strings.ToLower(term)

	var results []Entry
	for _, e := range all {
		if e.Email == selfKey {
			continue
		}
		if strings.HasPrefix(strings.ToLower(e.Name), term) {
			results = append(results, e)
		}
	}
	return results, nil
}

func (d *Directory) appendToDirectory(ctx context.Context, user models.User, key string) error {
	entry := map[string]any{
		"name":  user.DisplayName(),
		"email": key,
	}

	const attempts = 5
	for i := 0; i < attempts; i++ {
		snap, err := d.store.Get(ctx, directoryPath)
		if err != nil {
			return err
		}

		var collection []any
		if snap.Exists() {
			if collection, _ = snap.Value.([]any); collection == nil {
				return fmt.Errorf("%w: user directory is %T, not a list", store.ErrFetchFailed, snap.Value)
			}
		}

		err = d.store.SetIfMatch(ctx, directoryPath, append(collection, entry), snap.Rev)
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("writing user directory: %w", store.ErrConflict)
}
