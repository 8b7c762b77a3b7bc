package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/vodnik/internal/db"
	"github.com/erazemk/vodnik/internal/model"
)

func TestSaveAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := model.Item{
		ItemID:     "vv1",
		Name:       "Blue Note",
		Address:    "131 W 3rd St, New York",
		URL:        "https://example.com/vv1",
		ImageURL:   "https://example.com/vv1.jpg",
		Rating:     4.8,
		Distance:   0.7,
		Categories: []string{"Music", "Jazz", "Music"},
	}

	inserted, err := SaveItem(ctx, database, item)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := GetItem(ctx, database, "vv1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Blue Note", got.Name)
	assert.Equal(t, 4.8, got.Rating)
	assert.Equal(t, []string{"Jazz", "Music"}, got.Categories)
}

func TestSaveItemKeepsFirstSnapshot(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	SaveItem(ctx, database, model.Item{ItemID: "A", Name: "first"})
	inserted, err := SaveItem(ctx, database, model.Item{ItemID: "A", Name: "second"})
	require.NoError(t, err)
	assert.False(t, inserted)

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM items WHERE item_id = 'A'`).Scan(&count))
	assert.Equal(t, 1, count)

	got, _ := GetItem(ctx, database, "A")
	assert.Equal(t, "first", got.Name)
}

func TestCategoriesNullVersusEmpty(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	SaveItem(ctx, database, model.Item{ItemID: "nil"})
	SaveItem(ctx, database, model.Item{ItemID: "empty", Categories: []string{}})

	var isNull bool
	require.NoError(t, database.QueryRow(`SELECT categories IS NULL FROM items WHERE item_id = 'nil'`).Scan(&isNull))
	assert.True(t, isNull)

	require.NoError(t, database.QueryRow(`SELECT categories IS NULL FROM items WHERE item_id = 'empty'`).Scan(&isNull))
	assert.False(t, isNull)

	for _, id := range []string{"nil", "empty", "missing"} {
		categories, err := GetCategories(ctx, database, id)
		require.NoError(t, err)
		assert.NotNil(t, categories, id)
		assert.Empty(t, categories, id)
	}
}

func TestGetCategoriesCorruptValue(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := database.Exec(`INSERT INTO items (item_id, categories) VALUES ('bad', 'not json')`)
	require.NoError(t, err)

	_, err = GetCategories(ctx, database, "bad")
	assert.Error(t, err)
}
