// Package account answers name and login questions about existing users.
package account

import (
	"context"
	"fmt"

	"github.com/erazemk/vodnik/internal/model"
	"github.com/erazemk/vodnik/internal/store"
)

// Query reads user records from a UserStore.
type Query struct {
	users store.UserStore
}

// NewQuery returns a Query over users.
func NewQuery(users store.UserStore) *Query {
	return &Query{users: users}
}

func (q *Query) user(ctx context.Context, userID string) (*model.User, error) {
	u, err := q.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	if u == nil {
		return nil, store.ErrNotFound
	}
	return u, nil
}

// FullName returns the user's first and last name separated by a space.
func (q *Query) FullName(ctx context.Context, userID string) (string, error) {
	u, err := q.user(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.FullName(), nil
}

// VerifyLogin reports whether password matches the stored password exactly.
func (q *Query) VerifyLogin(ctx context.Context, userID, password string) (bool, error) {
	u, err := q.user(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.Password == password, nil
}
