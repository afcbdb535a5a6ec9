package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/app"
	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/domain"
	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/infra/memory"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type fakeStock struct {
	mu     sync.Mutex
	amount map[domain.ProductID]int
	err    error
	calls  int
}

func newFakeStock(amounts map[domain.ProductID]int) *fakeStock {
	return &fakeStock{amount: amounts}
}

func (f *fakeStock) Stock(ctx context.Context, id domain.ProductID) (domain.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.Stock{}, f.err
	}
	amount, ok := f.amount[id]
	if !ok {
		return domain.Stock{}, app.ErrNotFound
	}
	return domain.Stock{ID: id, Amount: amount}, nil
}

func (f *fakeStock) set(id domain.ProductID, amount int) {
	f.mu.Lock()
	f.amount[id] = amount
	f.mu.Unlock()
}

func (f *fakeStock) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeProducts struct {
	err   error
	docID map[domain.ProductID]domain.ProductID
}

func (f *fakeProducts) Product(ctx context.Context, id domain.ProductID) (domain.Product, error) {
	if f.err != nil {
		return domain.Product{}, f.err
	}
	docID := id
	if override, ok := f.docID[id]; ok {
		docID = override
	}
	doc := fmt.Sprintf(`{"id":%d,"title":"Tênis %d","price":139.9,"image":"https://cdn.example/%d.jpg"}`, docID, id, id)
	return domain.ParseProduct([]byte(doc))
}

type recorder struct {
	mu   sync.Mutex
	seen []app.Notification
}

func (r *recorder) Notify(ctx context.Context, n app.Notification) {
	r.mu.Lock()
	r.seen = append(r.seen, n)
	r.mu.Unlock()
}

func (r *recorder) Kinds() []app.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]app.NotificationKind, 0, len(r.seen))
	for _, n := range r.seen {
		out = append(out, n.Kind)
	}
	return out
}

type failingSlot struct {
	*memory.Slot
	saveErr error
	loadErr error
}

func (f *failingSlot) Load(ctx context.Context, key string) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.Slot.Load(ctx, key)
}

func (f *failingSlot) Save(ctx context.Context, key string, data []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Slot.Save(ctx, key, data)
}

type fixture struct {
	svc      *app.Service
	stock    *fakeStock
	products *fakeProducts
	slot     *memory.Slot
	notes    *recorder
}

func newFixture(t *testing.T, stock map[domain.ProductID]int) *fixture {
	t.Helper()
	f := &fixture{
		stock:    newFakeStock(stock),
		products: &fakeProducts{},
		slot:     memory.NewSlot(),
		notes:    &recorder{},
	}
	svc, err := app.NewService(context.Background(), app.Options{
		Stock:    f.stock,
		Products: f.products,
		Slot:     f.slot,
		Notifier: f.notes,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

// requirePersisted checks the slot decodes to exactly the in-memory cart.
func (f *fixture) requirePersisted(t *testing.T) {
	t.Helper()
	data, err := f.slot.Load(context.Background(), app.DefaultKey)
	require.NoError(t, err)
	persisted, err := domain.DecodeCart(data)
	require.NoError(t, err)

	current := f.svc.Cart(context.Background())
	require.Len(t, persisted, len(current))
	for i := range current {
		require.Equal(t, current[i].ID, persisted[i].ID)
		require.Equal(t, current[i].Amount, persisted[i].Amount)
	}
	want, err := domain.EncodeCart(current)
	require.NoError(t, err)
	require.JSONEq(t, string(want), string(data))
}
