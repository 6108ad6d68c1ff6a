// Package identity supplies the current user and mints the auth tokens the
// store client attaches to its requests. The rest of the layer treats it as
// an opaque read-only source; it does not manage accounts or sessions.
package identity

import (
	"context"
	"errors"
)

// ErrNoCurrentUser reports that no user is configured.
var ErrNoCurrentUser = errors.New("no current user")

// User is the current account as seen by the sync layer.
type User struct {
	Email       string
	DisplayName string
}

// Provider yields the current user.
type Provider interface {
	CurrentUser(ctx context.Context) (User, error)
}

// Static is a Provider with a fixed user, populated from config.
type Static struct {
	User User
}

func (s Static) CurrentUser(ctx context.Context) (User, error) {
	if s.User.Email == "" {
		return User{}, ErrNoCurrentUser
	}
	return s.User, nil
}
