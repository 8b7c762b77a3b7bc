package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/vodnik/internal/db"
	"github.com/erazemk/vodnik/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	err := CreateUser(ctx, database, model.User{
		UserID:    "1111",
		FirstName: "John",
		LastName:  "Smith",
		Password:  "3229c1097c00d497a0fd282d586be050",
	})
	require.NoError(t, err)

	got, err := GetUser(ctx, database, "1111")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "John", got.FirstName)
	assert.Equal(t, "Smith", got.LastName)
	assert.Equal(t, "3229c1097c00d497a0fd282d586be050", got.Password)
	assert.Empty(t, got.Favorite)

	missing, err := GetUser(ctx, database, "2222")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateUserDuplicateRollsBack(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, CreateUser(ctx, database, model.User{UserID: "u1", Password: "p"}))

	err := CreateUser(ctx, database, model.User{UserID: "u1", Password: "q", Favorite: []string{"x"}})
	assert.ErrorIs(t, err, ErrUserExists)

	ids, err := FavoriteIDs(ctx, database, "u1")
	require.NoError(t, err)
	assert.Empty(t, ids, "favorites from a rejected user must not be stored")
}
