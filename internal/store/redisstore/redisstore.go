// Package redisstore implements store.Backend on Redis.
//
// Key layout:
//
//	item:<item_id>      string, JSON snapshot written with SETNX
//	user:<user_id>      hash with user_id, first_name, last_name, password
//	favorite:<user_id>  set of item ids
//
// Each prefix holds exactly one record type, so no user id can name
// another user's key.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/go-redis/redis/v8"

	"github.com/erazemk/vodnik/internal/model"
	"github.com/erazemk/vodnik/internal/store"
)

// addFavoritesScript adds ARGV to the favorite set only if the user hash
// exists, so an unknown user never gains a favorites key. SADD runs in
// chunks because Lua's unpack is limited to a few thousand values.
var addFavoritesScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
local added = 0
for i = 1, #ARGV, 1000 do
	added = added + redis.call('SADD', KEYS[2], unpack(ARGV, i, math.min(i + 999, #ARGV)))
end
return added
`)

// createUserScript writes the user hash and initial favorites unless the
// user already exists.
var createUserScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'user_id', ARGV[1], 'first_name', ARGV[2], 'last_name', ARGV[3], 'password', ARGV[4])
for i = 5, #ARGV do
	redis.call('SADD', KEYS[2], ARGV[i])
end
return 1
`)

// Store provides item, favorite and user persistence in Redis.
type Store struct {
	client *redis.Client
	closed atomic.Bool
}

var _ store.Backend = (*Store)(nil)

// New creates a Store over an existing client. The Store owns the client
// and closes it in Close.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Open connects to Redis at addr and verifies the connection.
func Open(ctx context.Context, addr string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis (%s): %w", addr, err)
	}
	return New(client), nil
}

func itemKey(id string) string     { return "item:" + id }
func userKey(id string) string     { return "user:" + id }
func favoriteKey(id string) string { return "favorite:" + id }

func (s *Store) conn() (*redis.Client, error) {
	if s == nil || s.client == nil || s.closed.Load() {
		return nil, store.ErrUnavailable
	}
	return s.client, nil
}

// SaveItem stores the item snapshot with SETNX.
func (s *Store) SaveItem(ctx context.Context, item model.Item) (bool, error) {
	client, err := s.conn()
	if err != nil {
		return false, err
	}
	if item.ItemID == "" {
		return false, fmt.Errorf("saving item: %w", store.ErrMissingID)
	}

	if item.Categories != nil {
		item.Categories = model.NormalizeSet(item.Categories)
	}
	data, err := json.Marshal(item)
	if err != nil {
		return false, fmt.Errorf("encoding item: %w", err)
	}

	inserted, err := client.SetNX(ctx, itemKey(item.ItemID), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("saving item: %w", err)
	}
	return inserted, nil
}

// GetItem retrieves an item by ID.
func (s *Store) GetItem(ctx context.Context, itemID string) (*model.Item, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}

	data, err := client.Get(ctx, itemKey(itemID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	var item model.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decoding item: %w", err)
	}
	item.Categories = model.NormalizeSet(item.Categories)
	return &item, nil
}

// GetCategories returns the categories of the stored item.
func (s *Store) GetCategories(ctx context.Context, itemID string) ([]string, error) {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return []string{}, nil
	}
	return item.Categories, nil
}

// AddFavorites adds ids to the user's favorite set.
func (s *Store) AddFavorites(ctx context.Context, userID string, itemIDs []string) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	ids := model.NormalizeSet(itemIDs)
	if len(ids) == 0 {
		return nil
	}

	keys := []string{userKey(userID), favoriteKey(userID)}
	if err := addFavoritesScript.Run(ctx, client, keys, toArgs(ids)...).Err(); err != nil {
		return fmt.Errorf("adding favorites: %w", err)
	}
	return nil
}

// RemoveFavorites removes ids from the user's favorite set.
func (s *Store) RemoveFavorites(ctx context.Context, userID string, itemIDs []string) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	ids := model.NormalizeSet(itemIDs)
	if len(ids) == 0 {
		return nil
	}

	if err := client.SRem(ctx, favoriteKey(userID), toArgs(ids)...).Err(); err != nil {
		return fmt.Errorf("removing favorites: %w", err)
	}
	return nil
}

// FavoriteIDs returns the user's favorite set, sorted.
func (s *Store) FavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}

	ids, err := client.SMembers(ctx, favoriteKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	slices.Sort(ids)
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// GetUser returns the user hash and favorite set.
func (s *Store) GetUser(ctx context.Context, userID string) (*model.User, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}

	fields, err := client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	favorite, err := s.FavoriteIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.User{
		UserID:    fields["user_id"],
		FirstName: fields["first_name"],
		LastName:  fields["last_name"],
		Password:  fields["password"],
		Favorite:  favorite,
	}, nil
}

// CreateUser writes a new user hash and its initial favorites atomically.
func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	if user.UserID == "" {
		return fmt.Errorf("creating user: %w", store.ErrMissingID)
	}

	args := []any{user.UserID, user.FirstName, user.LastName, user.Password}
	args = append(args, toArgs(model.NormalizeSet(user.Favorite))...)
	created, err := createUserScript.Run(ctx, client,
		[]string{userKey(user.UserID), favoriteKey(user.UserID)}, args...,
	).Int()
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	if created == 0 {
		return store.ErrUserExists
	}
	return nil
}

// Close closes the client. Later calls report store.ErrUnavailable.
func (s *Store) Close() error {
	if s == nil || s.client == nil || s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
