// Package sqlite stores the development catalog in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dwikikusuma/rocketshoes-cart/internal/catalog/app"
	"github.com/dwikikusuma/rocketshoes-cart/internal/catalog/domain"
	"github.com/dwikikusuma/rocketshoes-cart/internal/catalog/infra/sqlite/migrations"
	pkgsqlite "github.com/dwikikusuma/rocketshoes-cart/pkg/sqlite"
)

type ProductRepo struct {
	db *sql.DB
}

func Open(path string) (*ProductRepo, error) {
	db, err := pkgsqlite.Open(path, migrations.FS)
	if err != nil {
		return nil, err
	}
	return &ProductRepo{db: db}, nil
}

func (r *ProductRepo) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *ProductRepo) Get(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, price, image FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.Price, &p.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, app.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (r *ProductRepo) List(ctx context.Context, limit int) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, price, image FROM products ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Product, 0, limit)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Image); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductRepo) GetStock(ctx context.Context, id int64) (domain.Stock, error) {
	s := domain.Stock{ID: id}
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM stock WHERE product_id = ?`, id,
	).Scan(&s.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Stock{}, app.ErrNotFound
	}
	if err != nil {
		return domain.Stock{}, fmt.Errorf("get stock %d: %w", id, err)
	}
	return s, nil
}

// Seed upserts every product and stock row in one transaction.
func (r *ProductRepo) Seed(ctx context.Context, seed domain.Seed) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range seed.Products {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO products (id, title, price, image) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET title = excluded.title, price = excluded.price, image = excluded.image`,
			p.ID, p.Title, p.Price, p.Image,
		); err != nil {
			return fmt.Errorf("seed product %d: %w", p.ID, err)
		}
	}
	for _, s := range seed.Stock {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stock (product_id, amount) VALUES (?, ?)
			 ON CONFLICT(product_id) DO UPDATE SET amount = excluded.amount`,
			s.ID, s.Amount,
		); err != nil {
			return fmt.Errorf("seed stock %d: %w", s.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func (r *ProductRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
