// Package pgstore implements store.Backend on PostgreSQL. The favorite set is
// a TEXT[] column on users, updated with single-statement array expressions
// so concurrent updates for the same user serialize on the row lock.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erazemk/vodnik/internal/model"
	"github.com/erazemk/vodnik/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
    item_id    TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    address    TEXT NOT NULL DEFAULT '',
    url        TEXT NOT NULL DEFAULT '',
    image_url  TEXT NOT NULL DEFAULT '',
    rating     DOUBLE PRECISION NOT NULL DEFAULT 0,
    distance   DOUBLE PRECISION NOT NULL DEFAULT 0,
    categories TEXT[]
);

CREATE TABLE IF NOT EXISTS users (
    user_id    TEXT PRIMARY KEY,
    first_name TEXT NOT NULL DEFAULT '',
    last_name  TEXT NOT NULL DEFAULT '',
    password   TEXT NOT NULL,
    favorite   TEXT[] NOT NULL DEFAULT '{}'
);
`

// Store is a store.Backend over a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
}

var _ store.Backend = (*Store)(nil)

// New wraps an existing pool. The Store owns the pool and closes it in Close.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to the database at url, verifies the connection and
// ensures the schema exists.
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s := New(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the tables if they don't already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *Store) conn() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil || s.closed.Load() {
		return nil, store.ErrUnavailable
	}
	return s.pool, nil
}

func (s *Store) SaveItem(ctx context.Context, item model.Item) (bool, error) {
	pool, err := s.conn()
	if err != nil {
		return false, err
	}
	if item.ItemID == "" {
		return false, fmt.Errorf("saving item: %w", store.ErrMissingID)
	}

	var categories []string
	if item.Categories != nil {
		categories = model.NormalizeSet(item.Categories)
	}

	tag, err := pool.Exec(ctx,
		`INSERT INTO items (item_id, name, address, url, image_url, rating, distance, categories)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (item_id) DO NOTHING`,
		item.ItemID, item.Name, item.Address, item.URL, item.ImageURL, item.Rating, item.Distance, categories,
	)
	if err != nil {
		return false, fmt.Errorf("saving item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) GetItem(ctx context.Context, itemID string) (*model.Item, error) {
	pool, err := s.conn()
	if err != nil {
		return nil, err
	}

	item := &model.Item{}
	err = pool.QueryRow(ctx,
		`SELECT item_id, name, address, url, image_url, rating, distance, categories
		 FROM items WHERE item_id = $1`, itemID,
	).Scan(&item.ItemID, &item.Name, &item.Address, &item.URL, &item.ImageURL, &item.Rating, &item.Distance, &item.Categories)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.Categories = model.NormalizeSet(item.Categories)
	return item, nil
}

func (s *Store) GetCategories(ctx context.Context, itemID string) ([]string, error) {
	pool, err := s.conn()
	if err != nil {
		return nil, err
	}

	var categories []string
	err = pool.QueryRow(ctx,
		`SELECT categories FROM items WHERE item_id = $1`, itemID,
	).Scan(&categories)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("getting categories: %w", err)
	}
	return model.NormalizeSet(categories), nil
}

func (s *Store) AddFavorites(ctx context.Context, userID string, itemIDs []string) error {
	pool, err := s.conn()
	if err != nil {
		return err
	}
	ids := model.NormalizeSet(itemIDs)
	if len(ids) == 0 {
		return nil
	}

	_, err = pool.Exec(ctx,
		`UPDATE users
		 SET favorite = ARRAY(SELECT DISTINCT f FROM unnest(favorite || $2::text[]) AS f ORDER BY f)
		 WHERE user_id = $1`,
		userID, ids,
	)
	if err != nil {
		return fmt.Errorf("adding favorites: %w", err)
	}
	return nil
}

func (s *Store) RemoveFavorites(ctx context.Context, userID string, itemIDs []string) error {
	pool, err := s.conn()
	if err != nil {
		return err
	}
	ids := model.NormalizeSet(itemIDs)
	if len(ids) == 0 {
		return nil
	}

	_, err = pool.Exec(ctx,
		`UPDATE users
		 SET favorite = ARRAY(SELECT f FROM unnest(favorite) AS f WHERE f <> ALL($2::text[]) ORDER BY f)
		 WHERE user_id = $1`,
		userID, ids,
	)
	if err != nil {
		return fmt.Errorf("removing favorites: %w", err)
	}
	return nil
}

func (s *Store) FavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	pool, err := s.conn()
	if err != nil {
		return nil, err
	}

	var ids []string
	err = pool.QueryRow(ctx,
		`SELECT favorite FROM users WHERE user_id = $1`, userID,
	).Scan(&ids)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	return model.NormalizeSet(ids), nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (*model.User, error) {
	pool, err := s.conn()
	if err != nil {
		return nil, err
	}

	u := &model.User{}
	err = pool.QueryRow(ctx,
		`SELECT user_id, first_name, last_name, password, favorite FROM users WHERE user_id = $1`, userID,
	).Scan(&u.UserID, &u.FirstName, &u.LastName, &u.Password, &u.Favorite)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u.Favorite = model.NormalizeSet(u.Favorite)
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	pool, err := s.conn()
	if err != nil {
		return err
	}
	if user.UserID == "" {
		return fmt.Errorf("creating user: %w", store.ErrMissingID)
	}

	tag, err := pool.Exec(ctx,
		`INSERT INTO users (user_id, first_name, last_name, password, favorite)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO NOTHING`,
		user.UserID, user.FirstName, user.LastName, user.Password, model.NormalizeSet(user.Favorite),
	)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrUserExists
	}
	return nil
}

// Close closes the pool. Later calls report store.ErrUnavailable.
func (s *Store) Close() error {
	if s == nil || s.pool == nil || s.closed.Swap(true) {
		return nil
	}
	s.pool.Close()
	return nil
}
