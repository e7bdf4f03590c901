package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS listings (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT    NOT NULL,
    name_fold  TEXT    NOT NULL DEFAULT '',
    price      REAL    NOT NULL,
    for_sale   INTEGER NOT NULL,
    photo      TEXT,
    created_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);

CREATE TABLE IF NOT EXISTS listing_tags (
    listing_id INTEGER NOT NULL REFERENCES listings(id),
    position   INTEGER NOT NULL,
    tag        TEXT    NOT NULL,
    PRIMARY KEY (listing_id, position)
);
CREATE INDEX IF NOT EXISTS idx_listing_tags_tag ON listing_tags(tag);

CREATE TABLE IF NOT EXISTS tags (
    name TEXT PRIMARY KEY
);
`

// Open opens (or creates) the database at dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// Writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.ExecContext(ctx, `
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	if err := migrateNameFold(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return db, nil
}

// foldName is the case-insensitive form of a listing name used for prefix
// search. SQLite's LIKE and lower() only fold ASCII.
func foldName(name string) string { return strings.ToLower(name) }

// migrateNameFold adds name_fold to databases created before it existed and
// fills it for rows that lack it.
func migrateNameFold(ctx context.Context, db *sql.DB) error {
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('listings') WHERE name = 'name_fold'`,
	).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		if _, err := db.ExecContext(ctx, `ALTER TABLE listings ADD COLUMN name_fold TEXT NOT NULL DEFAULT ''`); err != nil {
			return err
		}
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name FROM listings WHERE name_fold = '' AND name <> ''`)
	if err != nil {
		return err
	}
	pending := map[int64]string{}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			_ = rows.Close()
			return err
		}
		pending[id] = foldName(name)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for id, fold := range pending {
		if _, err := db.ExecContext(ctx, `UPDATE listings SET name_fold = ? WHERE id = ?`, fold, id); err != nil {
			return err
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_listings_name_fold ON listings(name_fold)`); err != nil {
		return err
	}
	return nil
}
