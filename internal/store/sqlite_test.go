package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/vodnik/internal/db"
	"github.com/erazemk/vodnik/internal/store"
	"github.com/erazemk/vodnik/internal/store/storetest"
)

func TestSQLiteConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		return store.NewSQLite(db.NewTestDB(t))
	})
}

func TestSQLiteNilHandleIsUnavailable(t *testing.T) {
	s := store.NewSQLite(nil)

	_, err := s.FavoriteIDs(context.Background(), "u1")
	assert.ErrorIs(t, err, store.ErrUnavailable)
	_, err = s.JWTSecret(context.Background())
	assert.ErrorIs(t, err, store.ErrUnavailable)
	require.NoError(t, s.Close())
}
