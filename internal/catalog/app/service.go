package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dwikikusuma/rocketshoes-cart/internal/catalog/domain"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo ProductRepo
}

func NewService(repo ProductRepo) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if id <= 0 {
		return domain.Product{}, ErrInvalidInput
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) GetStock(ctx context.Context, id int64) (domain.Stock, error) {
	if id <= 0 {
		return domain.Stock{}, ErrInvalidInput
	}
	return s.repo.GetStock(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, limit)
}

// Seed validates and loads fixture data. Stock rows must reference seeded products.
func (s *Service) Seed(ctx context.Context, seed domain.Seed) error {
	ids := make(map[int64]struct{}, len(seed.Products))
	for i, p := range seed.Products {
		if p.ID <= 0 || strings.TrimSpace(p.Title) == "" || p.Price < 0 {
			return fmt.Errorf("product %d: %w", i, ErrInvalidInput)
		}
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("product %d: duplicate id %d: %w", i, p.ID, ErrInvalidInput)
		}
		ids[p.ID] = struct{}{}
	}
	for i, st := range seed.Stock {
		if _, ok := ids[st.ID]; !ok {
			return fmt.Errorf("stock %d: unknown product %d: %w", i, st.ID, ErrInvalidInput)
		}
		if st.Amount < 0 {
			return fmt.Errorf("stock %d: negative amount: %w", i, ErrInvalidInput)
		}
	}
	return s.repo.Seed(ctx, seed)
}
