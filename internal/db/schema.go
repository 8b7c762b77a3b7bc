package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// favorites holds the users' favorite sets, one row per (user_id, item_id);
// model.User.Favorite is read from it. It has no foreign key to items: a
// favorite may point at an item that was never cached.
const schema = `
CREATE TABLE IF NOT EXISTS items (
    item_id    TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    address    TEXT NOT NULL DEFAULT '',
    url        TEXT NOT NULL DEFAULT '',
    image_url  TEXT NOT NULL DEFAULT '',
    rating     REAL NOT NULL DEFAULT 0,
    distance   REAL NOT NULL DEFAULT 0,
    categories TEXT
);

CREATE TABLE IF NOT EXISTS users (
    user_id    TEXT PRIMARY KEY,
    first_name TEXT NOT NULL DEFAULT '',
    last_name  TEXT NOT NULL DEFAULT '',
    password   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS favorites (
    user_id TEXT NOT NULL,
    item_id TEXT NOT NULL,
    PRIMARY KEY (user_id, item_id)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
