// Package store defines the persistence capabilities used by the favorites,
// search and account packages, and implements them on SQLite. Other
// backends live in sub-packages and satisfy the same interfaces.
package store

import (
	"context"
	"errors"

	"github.com/erazemk/vodnik/internal/model"
)

var (
	// ErrNotFound is returned when a required record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable is returned when the backend connection is not
	// established or has been closed.
	ErrUnavailable = errors.New("store unavailable")

	// ErrMissingID is returned when an item or user has an empty identifier.
	ErrMissingID = errors.New("missing id")

	// ErrUserExists is returned by CreateUser for a duplicate user_id.
	ErrUserExists = errors.New("user already exists")
)

// ItemStore persists items fetched from the search provider.
type ItemStore interface {
	// SaveItem inserts a snapshot of item unless a record with the same
	// ItemID already exists. It reports whether a record was inserted; an
	// existing record is left untouched and is not an error.
	SaveItem(ctx context.Context, item model.Item) (bool, error)

	// GetItem returns the stored item, or nil, nil when absent.
	GetItem(ctx context.Context, itemID string) (*model.Item, error)

	// GetCategories returns the stored item's categories, or an empty slice
	// when the item or its categories are absent.
	GetCategories(ctx context.Context, itemID string) ([]string, error)
}

// FavoriteStore maintains each user's set of favorite item ids. Updates are
// applied with a single atomic backend operation per call.
type FavoriteStore interface {
	// AddFavorites adds itemIDs to the user's set. Ids already present are
	// not duplicated. Unknown users are ignored.
	AddFavorites(ctx context.Context, userID string, itemIDs []string) error

	// RemoveFavorites removes every occurrence of itemIDs from the user's set.
	RemoveFavorites(ctx context.Context, userID string, itemIDs []string) error

	// FavoriteIDs returns the user's favorite ids sorted, or an empty slice.
	FavoriteIDs(ctx context.Context, userID string) ([]string, error)
}

// UserStore reads and seeds user records.
type UserStore interface {
	// GetUser returns the user with its favorite set, or nil, nil when absent.
	GetUser(ctx context.Context, userID string) (*model.User, error)

	// CreateUser inserts a new user. It returns ErrUserExists on duplicates.
	CreateUser(ctx context.Context, user model.User) error
}

// Backend is a complete storage backend.
type Backend interface {
	ItemStore
	FavoriteStore
	UserStore
	Close() error
}
