// Package sqlite は store.Store の SQLite 実装です。
// 拡張スコープのキーごとに1行の key/value テーブルで保存します。
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS extension_state (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

// Store は SQLite を使った key/value ストアです。
type Store struct {
	db *sql.DB
	sq sq.StatementBuilderType
}

// Open は dbPath の SQLite データベースを開き、スキーマを適用して Store を返します。
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("SQLite のオープンに失敗しました: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q の適用に失敗しました: %w", p, err)
		}
	}

	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New は既存の *sql.DB からStoreを作ります。スキーマはここで適用されます。
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("スキーマ適用に失敗しました: %w", err)
	}
	return &Store{db: db, sq: sq.StatementBuilder}, nil
}

// Load はキーに対応する値を返します。行が無い場合は ok=false です。
func (s *Store) Load(ctx context.Context, key string) (string, bool, error) {
	query, args, err := s.sq.
		Select("value").
		From("extension_state").
		Where(sq.Eq{"key": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, err
	}

	var v string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("値の読み出しに失敗しました: %w", err)
	}
	return v, true, nil
}

// Save はキーに値を upsert します。
func (s *Store) Save(ctx context.Context, key, value string) error {
	query, args, err := s.sq.
		Insert("extension_state").
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("値の保存に失敗しました: %w", err)
	}
	return nil
}

// Close は背後のデータベース接続を閉じます。
func (s *Store) Close() error {
	return s.db.Close()
}
