package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"chitieu/internal/core"

	_ "modernc.org/sqlite"
)

// Meta keys shared with the other local cache implementations.
const (
	LastUserKey = "currentUserId"
	ThemeKey    = "expenseManagerTheme"
)

// SnapshotKey is the logical cache key of a user's snapshot.
func SnapshotKey(userID string) string {
	return "user_" + userID
}

// SQLiteRepository is the durable local cache: one JSON snapshot per user plus
// a small key/value table for the last-user pointer and the theme blob.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save replaces the cached snapshot of userID.
func (r *SQLiteRepository) Save(ctx context.Context, userID string, u core.User) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO snapshots (user_id, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		userID, string(payload), r.now().UTC())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", SnapshotKey(userID), err)
	}

	slog.DebugContext(ctx, "Snapshot saved to SQLite",
		"user_id", userID,
		"expenses", len(u.Expenses),
		"categories", len(u.Categories),
		"bytes", len(payload))
	return nil
}

// Load returns the cached snapshot of userID, or nil when none is stored.
func (r *SQLiteRepository) Load(ctx context.Context, userID string) (*core.User, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE user_id = ?`, userID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", SnapshotKey(userID), err)
	}
	var u core.User
	if err := json.Unmarshal([]byte(payload), &u); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", SnapshotKey(userID), err)
	}
	return &u, nil
}

// Clear removes the cached snapshot of userID.
func (r *SQLiteRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear snapshot %s: %w", SnapshotKey(userID), err)
	}
	return nil
}

// Users lists the ids of every cached snapshot, most recently saved first.
func (r *SQLiteRepository) Users(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM snapshots ORDER BY updated_at DESC, user_id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) SetLastUser(ctx context.Context, userID string) error {
	return r.setMeta(ctx, LastUserKey, userID)
}

// LastUser returns the remembered user id, or "" when none is set.
func (r *SQLiteRepository) LastUser(ctx context.Context) (string, error) {
	return r.getMeta(ctx, LastUserKey)
}

func (r *SQLiteRepository) ClearLastUser(ctx context.Context) error {
	return r.deleteMeta(ctx, LastUserKey)
}

func (r *SQLiteRepository) SaveTheme(ctx context.Context, theme []byte) error {
	return r.setMeta(ctx, ThemeKey, string(theme))
}

// LoadTheme returns the stored theme blob, or nil when none is stored.
func (r *SQLiteRepository) LoadTheme(ctx context.Context) ([]byte, error) {
	v, err := r.getMeta(ctx, ThemeKey)
	if err != nil || v == "" {
		return nil, err
	}
	return []byte(v), nil
}

func (r *SQLiteRepository) setMeta(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO meta (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, r.now().UTC())
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) getMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) deleteMeta(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM meta WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
