package store

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/erazemk/vodnik/internal/db"
	"github.com/erazemk/vodnik/internal/model"
)

// SQLite is the default Backend, backed by a *sql.DB.
type SQLite struct {
	db     *sql.DB
	closed atomic.Bool
}

var _ Backend = (*SQLite)(nil)

// NewSQLite wraps an open database that already has the schema applied.
// A nil db gives a backend whose every call reports ErrUnavailable.
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database}
}

// OpenSQLite opens the database at path and ensures the schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, err
	}
	return NewSQLite(database), nil
}

func (s *SQLite) conn() (*sql.DB, error) {
	if s == nil || s.db == nil || s.closed.Load() {
		return nil, ErrUnavailable
	}
	return s.db, nil
}

// JWTSecret returns the persisted token signing secret, generating it on
// first use.
func (s *SQLite) JWTSecret(ctx context.Context) (string, error) {
	conn, err := s.conn()
	if err != nil {
		return "", err
	}
	candidate, err := RandomSecret(32)
	if err != nil {
		return "", err
	}
	return EnsureSetting(ctx, conn, JWTSecretKey, candidate)
}

func (s *SQLite) SaveItem(ctx context.Context, item model.Item) (bool, error) {
	conn, err := s.conn()
	if err != nil {
		return false, err
	}
	return SaveItem(ctx, conn, item)
}

func (s *SQLite) GetItem(ctx context.Context, itemID string) (*model.Item, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return GetItem(ctx, conn, itemID)
}

func (s *SQLite) GetCategories(ctx context.Context, itemID string) ([]string, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return GetCategories(ctx, conn, itemID)
}

func (s *SQLite) AddFavorites(ctx context.Context, userID string, itemIDs []string) error {
	conn, err := s.conn()
	if err != nil {
		return err
	}
	return AddFavorites(ctx, conn, userID, itemIDs)
}

func (s *SQLite) RemoveFavorites(ctx context.Context, userID string, itemIDs []string) error {
	conn, err := s.conn()
	if err != nil {
		return err
	}
	return RemoveFavorites(ctx, conn, userID, itemIDs)
}

func (s *SQLite) FavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return FavoriteIDs(ctx, conn, userID)
}

func (s *SQLite) GetUser(ctx context.Context, userID string) (*model.User, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return GetUser(ctx, conn, userID)
}

func (s *SQLite) CreateUser(ctx context.Context, user model.User) error {
	conn, err := s.conn()
	if err != nil {
		return err
	}
	return CreateUser(ctx, conn, user)
}

// Close closes the underlying database. Later calls report ErrUnavailable.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil || s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
