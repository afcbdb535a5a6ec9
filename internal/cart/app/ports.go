package app

import (
	"context"
	"errors"

	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/domain"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrSlotEmpty = errors.New("slot empty")
)

type StockQuery interface {
	Stock(ctx context.Context, id domain.ProductID) (domain.Stock, error)
}

type ProductQuery interface {
	Product(ctx context.Context, id domain.ProductID) (domain.Product, error)
}

// Slot is the durable key/value cell holding the serialized cart.
// Load returns ErrSlotEmpty when nothing has been saved under key.
type Slot interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Ping(ctx context.Context) error
}

// Notifier delivers user-facing messages. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
