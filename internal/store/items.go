package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/erazemk/vodnik/internal/model"
)

// SaveItem inserts an item if no row with its item_id exists yet.
func SaveItem(ctx context.Context, db *sql.DB, item model.Item) (bool, error) {
	if item.ItemID == "" {
		return false, fmt.Errorf("saving item: %w", ErrMissingID)
	}

	categories, err := encodeCategories(item.Categories)
	if err != nil {
		return false, fmt.Errorf("encoding categories: %w", err)
	}

	result, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO items (item_id, name, address, url, image_url, rating, distance, categories)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ItemID, item.Name, item.Address, item.URL, item.ImageURL, item.Rating, item.Distance, categories,
	)
	if err != nil {
		return false, fmt.Errorf("saving item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting affected rows: %w", err)
	}
	return n > 0, nil
}

// GetItem returns an item by item_id.
func GetItem(ctx context.Context, db *sql.DB, itemID string) (*model.Item, error) {
	item := &model.Item{}
	var categories sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT item_id, name, address, url, image_url, rating, distance, categories
		 FROM items WHERE item_id = ?`, itemID,
	).Scan(&item.ItemID, &item.Name, &item.Address, &item.URL, &item.ImageURL, &item.Rating, &item.Distance, &categories)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	item.Categories, err = decodeCategories(categories)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetCategories returns the categories of an item.
func GetCategories(ctx context.Context, db *sql.DB, itemID string) ([]string, error) {
	var categories sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT categories FROM items WHERE item_id = ?`, itemID,
	).Scan(&categories)
	if err == sql.ErrNoRows {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting categories: %w", err)
	}
	return decodeCategories(categories)
}

// encodeCategories stores categories as a JSON array. A nil slice is stored
// as NULL so that "no categories attribute" survives a round trip.
func encodeCategories(categories []string) (sql.NullString, error) {
	if categories == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(model.NormalizeSet(categories))
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeCategories(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return []string{}, nil
	}
	var categories []string
	if err := json.Unmarshal([]byte(s.String), &categories); err != nil {
		return nil, fmt.Errorf("decoding categories: %w", err)
	}
	return model.NormalizeSet(categories), nil
}
