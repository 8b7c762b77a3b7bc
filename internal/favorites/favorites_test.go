package favorites

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/vodnik/internal/db"
	"github.com/erazemk/vodnik/internal/model"
	"github.com/erazemk/vodnik/internal/store"
	"github.com/erazemk/vodnik/internal/store/storetest"
)

func newService(t *testing.T) (*Service, *store.SQLite) {
	t.Helper()
	s := store.NewSQLite(db.NewTestDB(t))
	require.NoError(t, s.CreateUser(context.Background(), model.User{
		UserID: "u1", FirstName: "Ann", LastName: "Lee", Password: "secret",
	}))
	return NewService(s), s
}

func TestAddRemoveIDs(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "u1", []string{"a", "b"}))
	require.NoError(t, svc.Add(ctx, "u1", []string{"b", "c"}))

	ids, err := svc.IDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	require.NoError(t, svc.Remove(ctx, "u1", []string{"b", "zzz"}))
	ids, err = svc.IDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids)
}

func TestItemsDropsMissingRecords(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()

	_, err := s.SaveItem(ctx, storetest.SampleItem("a"))
	require.NoError(t, err)
	_, err = s.SaveItem(ctx, storetest.SampleItem("c"))
	require.NoError(t, err)
	require.NoError(t, svc.Add(ctx, "u1", []string{"c", "b", "a"}))

	items, err := svc.Items(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ItemID)
	assert.Equal(t, "c", items[1].ItemID)
	assert.Equal(t, []string{"Jazz", "Music"}, items[0].Categories)
}

func TestItemsNoFavorites(t *testing.T) {
	svc, _ := newService(t)

	items, err := svc.Items(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestUnavailableStoreDegrades(t *testing.T) {
	svc := NewService(store.NewSQLite(nil))
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "u1", []string{"a"}))
	require.NoError(t, svc.Remove(ctx, "u1", []string{"a"}))

	ids, err := svc.IDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{}, ids)

	items, err := svc.Items(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []model.Item{}, items)
}

// staleStore returns item records whose embedded categories differ from
// what GetCategories reports.
type staleStore struct {
	store.FavoriteStore
	categoriesErr error
}

func (staleStore) SaveItem(context.Context, model.Item) (bool, error) { return false, nil }

func (staleStore) GetItem(_ context.Context, id string) (*model.Item, error) {
	return &model.Item{ItemID: id, Categories: []string{"Stale"}}, nil
}

func (s staleStore) GetCategories(context.Context, string) ([]string, error) {
	if s.categoriesErr != nil {
		return nil, s.categoriesErr
	}
	return []string{"Fresh"}, nil
}

type fixedFavorites struct{ ids []string }

func (fixedFavorites) AddFavorites(context.Context, string, []string) error    { return nil }
func (fixedFavorites) RemoveFavorites(context.Context, string, []string) error { return nil }
func (f fixedFavorites) FavoriteIDs(context.Context, string) ([]string, error) { return f.ids, nil }

func TestItemsRereadsCategories(t *testing.T) {
	svc := NewService(staleStore{FavoriteStore: fixedFavorites{ids: []string{"x"}}})

	items, err := svc.Items(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"Fresh"}, items[0].Categories)
}

func TestItemsSurfacesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(staleStore{FavoriteStore: fixedFavorites{ids: []string{"x"}}, categoriesErr: boom})

	_, err := svc.Items(context.Background(), "u1")
	require.ErrorIs(t, err, boom)
}
