package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const DefaultKey = "@RocketShoes:cart"

const tracerName = "github.com/dwikikusuma/rocketshoes-cart/internal/cart/app"

type Options struct {
	Key      string
	Stock    StockQuery
	Products ProductQuery
	Slot     Slot
	Notifier Notifier
	Logger   *slog.Logger

	// Debug logs the persisted slot contents on every Cart read.
	Debug bool
	Now   func() time.Time
}

type UpdateProductAmount struct {
	ProductID domain.ProductID `json:"productId"`
	Amount    int              `json:"amount"`
}

// Service owns the in-memory cart and is the only writer of its slot.
// Mutations run one at a time; reads see the last committed cart.
type Service struct {
	key      string
	stock    StockQuery
	products ProductQuery
	slot     Slot
	notifier Notifier
	log      *slog.Logger
	debug    bool
	now      func() time.Time
	tracer   trace.Tracer

	ops *semaphore.Weighted

	mu   sync.RWMutex
	cart domain.Cart
}

// NewService loads the persisted cart and returns a ready store. Absent or
// malformed slot content starts an empty cart; other slot errors are returned.
func NewService(ctx context.Context, opts Options) (*Service, error) {
	switch {
	case opts.Stock == nil:
		return nil, errors.New("stock query is required")
	case opts.Products == nil:
		return nil, errors.New("product query is required")
	case opts.Slot == nil:
		return nil, errors.New("slot is required")
	}

	s := &Service{
		key:      strings.TrimSpace(opts.Key),
		stock:    opts.Stock,
		products: opts.Products,
		slot:     opts.Slot,
		notifier: opts.Notifier,
		log:      opts.Logger,
		debug:    opts.Debug,
		now:      opts.Now,
		tracer:   otel.Tracer(tracerName),
		ops:      semaphore.NewWeighted(1),
	}
	if s.key == "" {
		s.key = DefaultKey
	}
	if s.notifier == nil {
		s.notifier = NopNotifier{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	cart, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.cart = cart
	return s, nil
}

func (s *Service) load(ctx context.Context) (domain.Cart, error) {
	data, err := s.slot.Load(ctx, s.key)
	if errors.Is(err, ErrSlotEmpty) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %q: %w", s.key, err)
	}

	cart, err := domain.DecodeCart(data)
	if err != nil {
		s.log.WarnContext(ctx, "persisted cart is malformed, starting empty",
			slog.String("key", s.key), slog.Any("err", err))
		return domain.Cart{}, nil
	}
	return cart, nil
}

// Cart returns a copy of the committed cart.
func (s *Service) Cart(ctx context.Context) domain.Cart {
	s.mu.RLock()
	cart := s.cart.Clone()
	s.mu.RUnlock()

	if s.debug {
		s.logPersisted(ctx)
	}
	return cart
}

func (s *Service) logPersisted(ctx context.Context) {
	data, err := s.slot.Load(ctx, s.key)
	if err != nil && !errors.Is(err, ErrSlotEmpty) {
		s.log.DebugContext(ctx, "persisted cart unreadable", slog.String("key", s.key), slog.Any("err", err))
		return
	}
	s.log.DebugContext(ctx, "persisted cart", slog.String("key", s.key), slog.String("value", string(data)))
}

func (s *Service) AddProduct(ctx context.Context, id domain.ProductID) (err error) {
	ctx, span := s.startSpan(ctx, "cart.AddProduct", id)
	defer func() { endSpan(span, err) }()

	if err := s.ops.Acquire(ctx, 1); err != nil {
		return s.fail(ctx, KindAddFailed, id, err)
	}
	defer s.ops.Release(1)

	stock, err := s.stock.Stock(ctx, id)
	if err != nil {
		return s.fail(ctx, KindAddFailed, id, fmt.Errorf("query stock: %w", err))
	}

	current := s.snapshot()
	requested := current.Amount(id) + 1
	if requested > stock.Amount {
		return s.reject(ctx, id, requested, stock.Amount)
	}

	var next domain.Cart
	if current.Find(id) >= 0 {
		next = current.WithAmount(id, requested)
	} else {
		product, err := s.products.Product(ctx, id)
		if err != nil {
			return s.fail(ctx, KindAddFailed, id, fmt.Errorf("query product: %w", err))
		}
		if product.ID != id {
			return s.fail(ctx, KindAddFailed, id, fmt.Errorf("product query returned id %d", product.ID))
		}
		next = current.Append(domain.NewLineItem(product, 1))
	}

	if err := s.commit(ctx, next); err != nil {
		return s.fail(ctx, KindAddFailed, id, err)
	}
	return nil
}

func (s *Service) RemoveProduct(ctx context.Context, id domain.ProductID) (err error) {
	ctx, span := s.startSpan(ctx, "cart.RemoveProduct", id)
	defer func() { endSpan(span, err) }()

	if err := s.ops.Acquire(ctx, 1); err != nil {
		return s.fail(ctx, KindRemoveFailed, id, err)
	}
	defer s.ops.Release(1)

	current := s.snapshot()
	if current.Find(id) < 0 {
		return s.fail(ctx, KindRemoveFailed, id, ErrNotFound)
	}

	if err := s.commit(ctx, current.Without(id)); err != nil {
		return s.fail(ctx, KindRemoveFailed, id, err)
	}
	return nil
}

// UpdateProductAmount sets the quantity of an existing line item. Amounts
// below 1 and products not in the cart are ignored without a notification.
func (s *Service) UpdateProductAmount(ctx context.Context, req UpdateProductAmount) (err error) {
	id := req.ProductID
	ctx, span := s.startSpan(ctx, "cart.UpdateProductAmount", id)
	span.SetAttributes(attribute.Int("amount", req.Amount))
	defer func() { endSpan(span, err) }()

	if req.Amount <= 0 {
		return nil
	}

	if err := s.ops.Acquire(ctx, 1); err != nil {
		return s.fail(ctx, KindUpdateFailed, id, err)
	}
	defer s.ops.Release(1)

	stock, err := s.stock.Stock(ctx, id)
	if err != nil {
		return s.fail(ctx, KindUpdateFailed, id, fmt.Errorf("query stock: %w", err))
	}
	if stock.Amount < req.Amount {
		return s.reject(ctx, id, req.Amount, stock.Amount)
	}

	current := s.snapshot()
	if current.Find(id) < 0 {
		s.log.DebugContext(ctx, "update for product not in cart ignored", slog.Int64("product_id", int64(id)))
		return nil
	}

	if err := s.commit(ctx, current.WithAmount(id, req.Amount)); err != nil {
		return s.fail(ctx, KindUpdateFailed, id, err)
	}
	return nil
}

func (s *Service) snapshot() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart
}

// commit persists next and only then makes it the in-memory cart.
func (s *Service) commit(ctx context.Context, next domain.Cart) error {
	data, err := domain.EncodeCart(next)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.slot.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}

	s.mu.Lock()
	s.cart = next
	s.mu.Unlock()

	s.log.DebugContext(ctx, "cart committed", slog.String("key", s.key), slog.Int("items", len(next)))
	return nil
}

func (s *Service) reject(ctx context.Context, id domain.ProductID, requested, available int) error {
	s.log.InfoContext(ctx, "requested quantity unavailable",
		slog.Int64("product_id", int64(id)),
		slog.Int("requested", requested),
		slog.Int("available", available))
	s.notifier.Notify(ctx, NewNotification(KindStockUnavailable, id, s.now()))
	return ErrQuantityUnavailable
}

func (s *Service) fail(ctx context.Context, kind NotificationKind, id domain.ProductID, cause error) error {
	s.log.WarnContext(ctx, "cart operation failed",
		slog.String("kind", string(kind)),
		slog.Int64("product_id", int64(id)),
		slog.Any("err", cause))
	s.notifier.Notify(ctx, NewNotification(kind, id, s.now()))

	switch kind {
	case KindRemoveFailed:
		return ErrRemoveFailed
	case KindUpdateFailed:
		return ErrUpdateFailed
	default:
		return ErrAddFailed
	}
}

func (s *Service) startSpan(ctx context.Context, name string, id domain.ProductID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.Int64("product.id", int64(id))))
}

func endSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetAttributes(attribute.String("cart.outcome", "ok"))
		return
	}
	if kind, ok := KindOf(err); ok {
		span.SetAttributes(attribute.String("cart.outcome", string(kind)))
	}
	// A stock rejection is a normal outcome, not a span error.
	if !errors.Is(err, ErrQuantityUnavailable) {
		span.SetStatus(codes.Error, err.Error())
	}
}
