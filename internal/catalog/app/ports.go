package app

import (
	"context"

	"github.com/dwikikusuma/rocketshoes-cart/internal/catalog/domain"
)

type ProductRepo interface {
	Get(ctx context.Context, id int64) (domain.Product, error)
	List(ctx context.Context, limit int) ([]domain.Product, error)
	GetStock(ctx context.Context, id int64) (domain.Stock, error)
	Seed(ctx context.Context, seed domain.Seed) error
}
