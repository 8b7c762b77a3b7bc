// Package storetest is a conformance suite run against every store.Backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/vodnik/internal/model"
	"github.com/erazemk/vodnik/internal/store"
)

// OpenFunc returns an empty backend for a single subtest. The suite closes
// the backend itself in TestClosedBackend only.
type OpenFunc func(t *testing.T) store.Backend

// Run executes the conformance suite.
func Run(t *testing.T, open OpenFunc) {
	tests := []struct {
		name string
		fn   func(t *testing.T, b store.Backend)
	}{
		{"SaveItemFirstWriteWins", testSaveItemFirstWriteWins},
		{"SaveItemMissingID", testSaveItemMissingID},
		{"GetItemMissing", testGetItemMissing},
		{"GetCategories", testGetCategories},
		{"AddFavoritesIdempotent", testAddFavoritesIdempotent},
		{"AddRemoveRoundTrip", testAddRemoveRoundTrip},
		{"RemoveAbsentIsNoop", testRemoveAbsentIsNoop},
		{"UnknownUserIsNoop", testUnknownUserIsNoop},
		{"FavoritesAreIsolatedPerUser", testFavoritesIsolatedPerUser},
		{"UserIDsSharingAPrefix", testUserIDsSharingAPrefix},
		{"ConcurrentAdds", testConcurrentAdds},
		{"CreateAndGetUser", testCreateAndGetUser},
		{"CreateUserDuplicate", testCreateUserDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}

	t.Run("ClosedBackend", func(t *testing.T) {
		testClosedBackend(t, open(t))
	})
}

// SampleItem returns a fully populated item with the given id.
func SampleItem(id string) model.Item {
	return model.Item{
		ItemID:     id,
		Name:       "Jazz Night " + id,
		Address:    "1 Main St, New York",
		URL:        "https://example.com/events/" + id,
		ImageURL:   "https://example.com/images/" + id + ".jpg",
		Rating:     4.5,
		Distance:   1.25,
		Categories: []string{"Music", "Jazz"},
	}
}

func seedUser(t *testing.T, b store.Backend, id string) {
	t.Helper()
	err := b.CreateUser(context.Background(), model.User{
		UserID:    id,
		FirstName: "Ann",
		LastName:  "Lee",
		Password:  "secret",
	})
	require.NoError(t, err)
}

func testSaveItemFirstWriteWins(t *testing.T, b store.Backend) {
	ctx := context.Background()

	first := SampleItem("A")
	second := SampleItem("A")
	second.Name = "Overwritten"
	second.Rating = 1
	second.Categories = []string{"Sports"}

	inserted, err := b.SaveItem(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = b.SaveItem(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted, "second save of the same id must be a no-op")

	got, err := b.GetItem(ctx, "A")
	require.NoError(t, err)
	require.NotNil(t, got)

	want := first
	want.Categories = []string{"Jazz", "Music"}
	assert.Equal(t, want, *got)
}

func testSaveItemMissingID(t *testing.T, b store.Backend) {
	_, err := b.SaveItem(context.Background(), model.Item{Name: "no id"})
	assert.ErrorIs(t, err, store.ErrMissingID)
}

func testGetItemMissing(t *testing.T, b store.Backend) {
	got, err := b.GetItem(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testGetCategories(t *testing.T, b store.Backend) {
	ctx := context.Background()

	categories, err := b.GetCategories(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, categories)

	bare := SampleItem("bare")
	bare.Categories = nil
	_, err = b.SaveItem(ctx, bare)
	require.NoError(t, err)

	categories, err = b.GetCategories(ctx, "bare")
	require.NoError(t, err)
	assert.Empty(t, categories)

	_, err = b.SaveItem(ctx, SampleItem("full"))
	require.NoError(t, err)

	categories, err = b.GetCategories(ctx, "full")
	require.NoError(t, err)
	assert.Equal(t, []string{"Jazz", "Music"}, categories)
}

func testAddFavoritesIdempotent(t *testing.T, b store.Backend) {
	ctx := context.Background()
	seedUser(t, b, "u1")

	ids := []string{"a", "b", "c"}
	require.NoError(t, b.AddFavorites(ctx, "u1", ids))
	require.NoError(t, b.AddFavorites(ctx, "u1", ids))
	require.NoError(t, b.AddFavorites(ctx, "u1", []string{"b", "b"}))

	got, err := b.FavoriteIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ids, got)
}

func testAddRemoveRoundTrip(t *testing.T, b store.Backend) {
	ctx := context.Background()
	seedUser(t, b, "u1")

	require.NoError(t, b.AddFavorites(ctx, "u1", []string{"keep"}))
	require.NoError(t, b.AddFavorites(ctx, "u1", []string{"x", "y"}))
	require.NoError(t, b.RemoveFavorites(ctx, "u1", []string{"x", "y"}))

	got, err := b.FavoriteIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, got)

	require.NoError(t, b.RemoveFavorites(ctx, "u1", []string{"keep"}))
	got, err = b.FavoriteIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testRemoveAbsentIsNoop(t *testing.T, b store.Backend) {
	ctx := context.Background()
	seedUser(t, b, "u1")

	require.NoError(t, b.RemoveFavorites(ctx, "u1", []string{"never-added"}))
	require.NoError(t, b.RemoveFavorites(ctx, "u1", nil))
	require.NoError(t, b.AddFavorites(ctx, "u1", nil))

	got, err := b.FavoriteIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testUnknownUserIsNoop(t *testing.T, b store.Backend) {
	ctx := context.Background()

	require.NoError(t, b.AddFavorites(ctx, "ghost", []string{"a"}))
	require.NoError(t, b.RemoveFavorites(ctx, "ghost", []string{"a"}))

	got, err := b.FavoriteIDs(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, got)

	user, err := b.GetUser(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, user, "adding favorites must not create a user")
}

func testFavoritesIsolatedPerUser(t *testing.T, b store.Backend) {
	ctx := context.Background()
	seedUser(t, b, "u1")
	seedUser(t, b, "u2")

	require.NoError(t, b.AddFavorites(ctx, "u1", []string{"a"}))
	require.NoError(t, b.AddFavorites(ctx, "u2", []string{"b"}))
	require.NoError(t, b.RemoveFavorites(ctx, "u2", []string{"a"}))

	got, err := b.FavoriteIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)

	got, err = b.FavoriteIDs(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got)
}

// testUserIDsSharingAPrefix uses ids that look like composite keys built
// from another user's id.
func testUserIDsSharingAPrefix(t *testing.T, b store.Backend) {
	ctx := context.Background()
	seedUser(t, b, "x:favorite")
	require.NoError(t, b.CreateUser(ctx, model.User{UserID: "x", Password: "pw", Favorite: []string{"a"}}))

	seedUser(t, b, "y")
	require.NoError(t, b.AddFavorites(ctx, "y", []string{"c"}))
	seedUser(t, b, "y:favorite")

	require.NoError(t, b.AddFavorites(ctx, "x:favorite", []string{"b"}))
	require.NoError(t, b.AddFavorites(ctx, "x", []string{"d"}))

	for id, want := range map[string][]string{
		"x":          {"a", "d"},
		"x:favorite": {"b"},
		"y":          {"c"},
		"y:favorite": {},
	} {
		got, err := b.FavoriteIDs(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, want, got, id)
	}

	u, err := b.GetUser(ctx, "x")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "x", u.UserID)
}

func testConcurrentAdds(t *testing.T, b store.Backend) {
	ctx := context.Background()
	seedUser(t, b, "u1")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	want := make([]string, 0, workers*2)
	for i := range workers {
		own := fmt.Sprintf("item-%02d", i)
		want = append(want, own)
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Every worker also adds the shared id; it must appear once.
			errs <- b.AddFavorites(ctx, "u1", []string{own, "shared"})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := b.FavoriteIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.NormalizeSet(append(want, "shared")), got)
}

func testCreateAndGetUser(t *testing.T, b store.Backend) {
	ctx := context.Background()

	err := b.CreateUser(ctx, model.User{
		UserID:    "u1",
		FirstName: "Ann",
		LastName:  "Lee",
		Password:  "secret",
		Favorite:  []string{"b", "a"},
	})
	require.NoError(t, err)

	got, err := b.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "Ann Lee", got.FullName())
	assert.Equal(t, "secret", got.Password)
	assert.Equal(t, []string{"a", "b"}, got.Favorite)
}

func testCreateUserDuplicate(t *testing.T, b store.Backend) {
	seedUser(t, b, "u1")

	err := b.CreateUser(context.Background(), model.User{UserID: "u1", Password: "other"})
	assert.ErrorIs(t, err, store.ErrUserExists)

	err = b.CreateUser(context.Background(), model.User{Password: "x"})
	assert.ErrorIs(t, err, store.ErrMissingID)
}

func testClosedBackend(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.Close())

	_, err := b.SaveItem(ctx, SampleItem("A"))
	assert.ErrorIs(t, err, store.ErrUnavailable)
	_, err = b.GetItem(ctx, "A")
	assert.ErrorIs(t, err, store.ErrUnavailable)
	_, err = b.GetCategories(ctx, "A")
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.ErrorIs(t, b.AddFavorites(ctx, "u1", []string{"a"}), store.ErrUnavailable)
	assert.ErrorIs(t, b.RemoveFavorites(ctx, "u1", []string{"a"}), store.ErrUnavailable)
	_, err = b.FavoriteIDs(ctx, "u1")
	assert.ErrorIs(t, err, store.ErrUnavailable)
	_, err = b.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, store.ErrUnavailable)

	assert.NoError(t, b.Close(), "Close must be idempotent")
}
