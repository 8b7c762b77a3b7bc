package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/vodnik/internal/db"
	"github.com/erazemk/vodnik/internal/model"
	"github.com/erazemk/vodnik/internal/store"
)

func newQuery(t *testing.T) *Query {
	t.Helper()
	s := store.NewSQLite(db.NewTestDB(t))
	require.NoError(t, s.CreateUser(context.Background(), model.User{
		UserID: "u1", FirstName: "Ann", LastName: "Lee", Password: "secret",
	}))
	return NewQuery(s)
}

func TestFullName(t *testing.T) {
	q := newQuery(t)

	name, err := q.FullName(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", name)

	_, err = q.FullName(context.Background(), "u2")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestVerifyLogin(t *testing.T) {
	q := newQuery(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		userID   string
		password string
		want     bool
		wantErr  error
	}{
		{"correct", "u1", "secret", true, nil},
		{"wrong", "u1", "wrong", false, nil},
		{"case sensitive", "u1", "Secret", false, nil},
		{"empty", "u1", "", false, nil},
		{"unknown user", "u2", "secret", false, store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := q.VerifyLogin(ctx, tt.userID, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestUnavailableStoreSurfaces(t *testing.T) {
	q := NewQuery(store.NewSQLite(nil))

	_, err := q.VerifyLogin(context.Background(), "u1", "secret")
	require.ErrorIs(t, err, store.ErrUnavailable)
}
