// Package sqlite persists user settings as key-value rows in SQLite.
package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS settings (
	user_id    TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, key)
)`

const upsertSetting = `INSERT INTO settings (user_id, key, value, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

type settingRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// SettingsRepo implements settings.Store.
type SettingsRepo struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*SettingsRepo, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// An in-memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply settings schema: %w", err)
	}
	return &SettingsRepo{db: db}, nil
}

// Load returns every stored key for user. Unknown users yield an empty map.
func (r *SettingsRepo) Load(ctx context.Context, user string) (map[string]string, error) {
	var rows []settingRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT key, value FROM settings WHERE user_id = ?`, user); err != nil {
		return nil, fmt.Errorf("load settings for %s: %w", user, err)
	}
	kv := make(map[string]string, len(rows))
	for _, row := range rows {
		kv[row.Key] = row.Value
	}
	return kv, nil
}

// Save upserts the given keys for user in one transaction.
func (r *SettingsRepo) Save(ctx context.Context, user string, kv map[string]string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for k, v := range kv {
		if _, err := tx.ExecContext(ctx, upsertSetting, user, k, v); err != nil {
			return fmt.Errorf("save setting %s for %s: %w", k, user, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CheckReadiness pings the database.
func (r *SettingsRepo) CheckReadiness(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SettingsRepo) Close() error {
	return r.db.Close()
}
