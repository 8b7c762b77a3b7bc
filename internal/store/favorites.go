package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/erazemk/vodnik/internal/model"
)

// AddFavorites adds item ids to a user's favorites in one statement. The
// join against users makes an unknown user_id insert nothing, and the
// (user_id, item_id) primary key with OR IGNORE keeps the set free of
// duplicates.
func AddFavorites(ctx context.Context, db *sql.DB, userID string, itemIDs []string) error {
	ids := model.NormalizeSet(itemIDs)
	if len(ids) == 0 {
		return nil
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding item ids: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorites (user_id, item_id)
		 SELECT u.user_id, j.value FROM users u, json_each(?) j
		 WHERE u.user_id = ?`,
		string(payload), userID,
	)
	if err != nil {
		return fmt.Errorf("adding favorites: %w", err)
	}
	return nil
}

// RemoveFavorites removes item ids from a user's favorites in one statement.
func RemoveFavorites(ctx context.Context, db *sql.DB, userID string, itemIDs []string) error {
	ids := model.NormalizeSet(itemIDs)
	if len(ids) == 0 {
		return nil
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding item ids: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`DELETE FROM favorites
		 WHERE user_id = ? AND item_id IN (SELECT value FROM json_each(?))`,
		userID, string(payload),
	)
	if err != nil {
		return fmt.Errorf("removing favorites: %w", err)
	}
	return nil
}

// FavoriteIDs returns a user's favorite item ids ordered by id.
func FavoriteIDs(ctx context.Context, db *sql.DB, userID string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT item_id FROM favorites WHERE user_id = ? ORDER BY item_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning favorite: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
