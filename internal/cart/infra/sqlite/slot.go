// Package sqlite provides a SQLite-backed cart slot.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/app"
	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/infra/sqlite/migrations"
	pkgsqlite "github.com/dwikikusuma/rocketshoes-cart/pkg/sqlite"
)

// Slot persists serialized carts, one row per key.
type Slot struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database at path and applies embedded migrations.
func Open(path string) (*Slot, error) {
	db, err := pkgsqlite.Open(path, migrations.FS)
	if err != nil {
		return nil, err
	}
	return &Slot{db: db, now: time.Now}, nil
}

func (s *Slot) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Slot) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cart_slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, app.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("load cart slot %q: %w", key, err)
	}
	return value, nil
}

func (s *Slot) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cart_slots (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, data, s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save cart slot %q: %w", key, err)
	}
	return nil
}

func (s *Slot) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
