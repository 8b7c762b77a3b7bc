// Package favorites maintains a user's favorite items and resolves them to
// the cached item records.
package favorites

import (
	"context"
	"errors"
	"log/slog"

	"github.com/erazemk/vodnik/internal/model"
	"github.com/erazemk/vodnik/internal/store"
)

// Store is what Service needs from a backend.
type Store interface {
	store.ItemStore
	store.FavoriteStore
}

// Service adds, removes and lists favorites. When the backend is
// unavailable, mutations are skipped and reads return empty results.
type Service struct {
	store Store
}

// NewService returns a Service over s.
func NewService(s Store) *Service {
	return &Service{store: s}
}

func degraded(op string, err error) bool {
	if errors.Is(err, store.ErrUnavailable) {
		slog.Warn("store unavailable, favorites degraded", "op", op)
		return true
	}
	return false
}

// Add adds itemIDs to the user's favorites.
func (s *Service) Add(ctx context.Context, userID string, itemIDs []string) error {
	err := s.store.AddFavorites(ctx, userID, itemIDs)
	if err != nil && degraded("add", err) {
		return nil
	}
	return err
}

// Remove removes itemIDs from the user's favorites.
func (s *Service) Remove(ctx context.Context, userID string, itemIDs []string) error {
	err := s.store.RemoveFavorites(ctx, userID, itemIDs)
	if err != nil && degraded("remove", err) {
		return nil
	}
	return err
}

// IDs returns the user's favorite item ids.
func (s *Service) IDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.store.FavoriteIDs(ctx, userID)
	if err != nil {
		if degraded("ids", err) {
			return []string{}, nil
		}
		return nil, err
	}
	return ids, nil
}

// Items resolves the user's favorites to item records ordered by id. Ids
// with no stored item are skipped. Each record's categories are re-read
// from the store.
func (s *Service) Items(ctx context.Context, userID string) ([]model.Item, error) {
	ids, err := s.IDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		item, err := s.store.GetItem(ctx, id)
		if err != nil {
			if degraded("items", err) {
				return []model.Item{}, nil
			}
			return nil, err
		}
		if item == nil {
			continue
		}

		categories, err := s.store.GetCategories(ctx, id)
		if err != nil {
			if degraded("items", err) {
				return []model.Item{}, nil
			}
			return nil, err
		}
		item.Categories = categories
		items = append(items, *item)
	}

	model.SortItems(items)
	return items, nil
}
