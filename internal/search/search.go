// Package search runs provider searches and writes every result through to
// the item store.
package search

import (
	"context"
	"errors"
	"log/slog"

	"github.com/erazemk/vodnik/internal/metrics"
	"github.com/erazemk/vodnik/internal/model"
	"github.com/erazemk/vodnik/internal/store"
)

// Provider finds items near a point.
type Provider interface {
	Search(ctx context.Context, lat, lon float64, term string) ([]model.Item, error)
}

// Orchestrator queries a Provider and caches the results.
type Orchestrator struct {
	provider Provider
	items    store.ItemStore
	metrics  *metrics.Metrics
}

// New returns an Orchestrator. m may be nil.
func New(p Provider, items store.ItemStore, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{provider: p, items: items, metrics: m}
}

// Search returns the provider's results unchanged, duplicates included. A
// provider error is returned as is.
// Each result is saved to the item store first; save failures are logged
// and do not fail the search.
func (o *Orchestrator) Search(ctx context.Context, lat, lon float64, term string) ([]model.Item, error) {
	items, err := o.provider.Search(ctx, lat, lon, term)
	o.metrics.ProviderRequest(err)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		inserted, err := o.items.SaveItem(ctx, item)
		switch {
		case errors.Is(err, store.ErrUnavailable):
			o.metrics.CacheWrite(metrics.CacheFailed)
			slog.Error("store unavailable, skipping item cache", "items", len(items))
			return items, nil
		case err != nil:
			o.metrics.CacheWrite(metrics.CacheFailed)
			slog.Warn("caching item", "item_id", item.ItemID, "error", err)
		case inserted:
			o.metrics.CacheWrite(metrics.CacheInserted)
		default:
			o.metrics.CacheWrite(metrics.CacheDuplicate)
		}
	}

	return items, nil
}
