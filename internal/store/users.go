package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/vodnik/internal/model"
)

// CreateUser creates a new user together with any initial favorites.
func CreateUser(ctx context.Context, db *sql.DB, user model.User) error {
	if user.UserID == "" {
		return fmt.Errorf("creating user: %w", ErrMissingID)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (user_id, first_name, last_name, password) VALUES (?, ?, ?, ?)`,
		user.UserID, user.FirstName, user.LastName, user.Password,
	)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting affected rows: %w", err)
	}
	if n == 0 {
		return ErrUserExists
	}

	for _, id := range model.NormalizeSet(user.Favorite) {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO favorites (user_id, item_id) VALUES (?, ?)`,
			user.UserID, id,
		); err != nil {
			return fmt.Errorf("adding initial favorite: %w", err)
		}
	}

	return tx.Commit()
}

// GetUser returns a user by user_id, including the favorite set.
func GetUser(ctx context.Context, db *sql.DB, userID string) (*model.User, error) {
	u := &model.User{}
	err := db.QueryRowContext(ctx,
		`SELECT user_id, first_name, last_name, password FROM users WHERE user_id = ?`, userID,
	).Scan(&u.UserID, &u.FirstName, &u.LastName, &u.Password)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	u.Favorite, err = FavoriteIDs(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	return u, nil
}
