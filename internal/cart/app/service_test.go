package app_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/app"
	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/domain"
	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[domain.ProductID]int{1: 5})

	require.NoError(t, f.svc.AddProduct(ctx, 1))
	cart := f.svc.Cart(ctx)
	require.Len(t, cart, 1)
	assert.Equal(t, domain.ProductID(1), cart[0].ID)
	assert.Equal(t, 1, cart[0].Amount)
	assert.Equal(t, "Tênis 1", cart[0].Field("title").String())
	f.requirePersisted(t)

	require.NoError(t, f.svc.AddProduct(ctx, 1))
	assert.Equal(t, 2, f.svc.Cart(ctx).Amount(1))
	f.requirePersisted(t)

	err := f.svc.UpdateProductAmount(ctx, app.UpdateProductAmount{ProductID: 1, Amount: 10})
	require.ErrorIs(t, err, app.ErrQuantityUnavailable)
	assert.Equal(t, 2, f.svc.Cart(ctx).Amount(1))
	f.requirePersisted(t)

	require.NoError(t, f.svc.RemoveProduct(ctx, 1))
	assert.Empty(t, f.svc.Cart(ctx))
	f.requirePersisted(t)

	assert.Equal(t, []app.NotificationKind{app.KindStockUnavailable}, f.notes.Kinds())
}

func TestAddProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("amount equals number of adds", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 100, 2: 100})
		for i := 0; i < 7; i++ {
			require.NoError(t, f.svc.AddProduct(ctx, 1))
		}
		for i := 0; i < 3; i++ {
			require.NoError(t, f.svc.AddProduct(ctx, 2))
		}
		cart := f.svc.Cart(ctx)
		require.Len(t, cart, 2)
		assert.Equal(t, domain.ProductID(1), cart[0].ID)
		assert.Equal(t, 7, cart[0].Amount)
		assert.Equal(t, domain.ProductID(2), cart[1].ID)
		assert.Equal(t, 3, cart[1].Amount)
		f.requirePersisted(t)
	})

	t.Run("never exceeds stock", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 2})
		require.NoError(t, f.svc.AddProduct(ctx, 1))
		require.NoError(t, f.svc.AddProduct(ctx, 1))

		err := f.svc.AddProduct(ctx, 1)
		require.ErrorIs(t, err, app.ErrQuantityUnavailable)
		assert.Equal(t, 2, f.svc.Cart(ctx).Amount(1))
		assert.Equal(t, []app.NotificationKind{app.KindStockUnavailable}, f.notes.Kinds())
	})

	t.Run("stock lowered below cart amount", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 3})
		require.NoError(t, f.svc.AddProduct(ctx, 1))
		require.NoError(t, f.svc.AddProduct(ctx, 1))
		f.stock.set(1, 1)

		require.ErrorIs(t, f.svc.AddProduct(ctx, 1), app.ErrQuantityUnavailable)
		assert.Equal(t, 2, f.svc.Cart(ctx).Amount(1))
	})

	t.Run("zero stock rejects new product", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 0})
		require.ErrorIs(t, f.svc.AddProduct(ctx, 1), app.ErrQuantityUnavailable)
		assert.Empty(t, f.svc.Cart(ctx))
		_, err := f.slot.Load(ctx, app.DefaultKey)
		require.ErrorIs(t, err, app.ErrSlotEmpty)
	})

	t.Run("stock query error -> add failed", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 5})
		f.stock.err = errBoom

		err := f.svc.AddProduct(ctx, 1)
		require.ErrorIs(t, err, app.ErrAddFailed)
		assert.NotErrorIs(t, err, errBoom)
		assert.Empty(t, f.svc.Cart(ctx))
		assert.Equal(t, []app.NotificationKind{app.KindAddFailed}, f.notes.Kinds())
	})

	t.Run("unknown product -> add failed", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{})
		require.ErrorIs(t, f.svc.AddProduct(ctx, 42), app.ErrAddFailed)
		assert.Equal(t, []app.NotificationKind{app.KindAddFailed}, f.notes.Kinds())
	})

	t.Run("product query error leaves cart unchanged", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 5, 2: 5})
		require.NoError(t, f.svc.AddProduct(ctx, 1))
		f.products.err = errBoom

		require.ErrorIs(t, f.svc.AddProduct(ctx, 2), app.ErrAddFailed)
		cart := f.svc.Cart(ctx)
		require.Len(t, cart, 1)
		assert.Equal(t, domain.ProductID(1), cart[0].ID)
		f.requirePersisted(t)
	})

	t.Run("existing item does not refetch product", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 5})
		require.NoError(t, f.svc.AddProduct(ctx, 1))
		f.products.err = errBoom

		require.NoError(t, f.svc.AddProduct(ctx, 1))
		assert.Equal(t, 2, f.svc.Cart(ctx).Amount(1))
	})

	t.Run("mismatched product id -> add failed", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 5})
		f.products.docID = map[domain.ProductID]domain.ProductID{1: 9}

		require.ErrorIs(t, f.svc.AddProduct(ctx, 1), app.ErrAddFailed)
		assert.Empty(t, f.svc.Cart(ctx))
	})
}

func TestRemoveProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("removes only the target", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 5, 2: 5, 3: 5})
		for _, id := range []domain.ProductID{1, 2, 3} {
			require.NoError(t, f.svc.AddProduct(ctx, id))
		}

		require.NoError(t, f.svc.RemoveProduct(ctx, 2))
		cart := f.svc.Cart(ctx)
		require.Len(t, cart, 2)
		assert.Equal(t, domain.ProductID(1), cart[0].ID)
		assert.Equal(t, domain.ProductID(3), cart[1].ID)
		f.requirePersisted(t)
	})

	t.Run("missing product -> remove failed", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 5})
		require.NoError(t, f.svc.AddProduct(ctx, 1))
		before := f.svc.Cart(ctx)

		require.ErrorIs(t, f.svc.RemoveProduct(ctx, 99), app.ErrRemoveFailed)
		assert.Equal(t, before, f.svc.Cart(ctx))
		assert.Equal(t, []app.NotificationKind{app.KindRemoveFailed}, f.notes.Kinds())
	})

	t.Run("does not query stock", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 5})
		require.NoError(t, f.svc.AddProduct(ctx, 1))
		calls := f.stock.Calls()
		require.NoError(t, f.svc.RemoveProduct(ctx, 1))
		assert.Equal(t, calls, f.stock.Calls())
	})
}

func TestUpdateProductAmount(t *testing.T) {
	ctx := context.Background()

	t.Run("sets amount", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 5})
		require.NoError(t, f.svc.AddProduct(ctx, 1))

		require.NoError(t, f.svc.UpdateProductAmount(ctx, app.UpdateProductAmount{ProductID: 1, Amount: 5}))
		assert.Equal(t, 5, f.svc.Cart(ctx).Amount(1))
		f.requirePersisted(t)

		require.NoError(t, f.svc.UpdateProductAmount(ctx, app.UpdateProductAmount{ProductID: 1, Amount: 1}))
		assert.Equal(t, 1, f.svc.Cart(ctx).Amount(1))
		f.requirePersisted(t)
	})

	for _, amount := range []int{0, -1, -100} {
		t.Run("non positive amount is a silent no-op", func(t *testing.T) {
			f := newFixture(t, map[domain.ProductID]int{1: 5})
			require.NoError(t, f.svc.AddProduct(ctx, 1))
			calls := f.stock.Calls()

			require.NoError(t, f.svc.UpdateProductAmount(ctx, app.UpdateProductAmount{ProductID: 1, Amount: amount}))
			assert.Equal(t, 1, f.svc.Cart(ctx).Amount(1))
			assert.Empty(t, f.notes.Kinds())
			assert.Equal(t, calls, f.stock.Calls())
		})
	}

	t.Run("exceeding stock -> stock unavailable", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 3})
		require.NoError(t, f.svc.AddProduct(ctx, 1))

		err := f.svc.UpdateProductAmount(ctx, app.UpdateProductAmount{ProductID: 1, Amount: 4})
		require.ErrorIs(t, err, app.ErrQuantityUnavailable)
		assert.Equal(t, 1, f.svc.Cart(ctx).Amount(1))
		assert.Equal(t, []app.NotificationKind{app.KindStockUnavailable}, f.notes.Kinds())
	})

	t.Run("product not in cart is a silent no-op", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 5})

		require.NoError(t, f.svc.UpdateProductAmount(ctx, app.UpdateProductAmount{ProductID: 1, Amount: 2}))
		assert.Empty(t, f.svc.Cart(ctx))
		assert.Empty(t, f.notes.Kinds())
		_, err := f.slot.Load(ctx, app.DefaultKey)
		require.ErrorIs(t, err, app.ErrSlotEmpty)
	})

	t.Run("stock error -> update failed", func(t *testing.T) {
		f := newFixture(t, map[domain.ProductID]int{1: 5})
		require.NoError(t, f.svc.AddProduct(ctx, 1))
		f.stock.err = errBoom

		err := f.svc.UpdateProductAmount(ctx, app.UpdateProductAmount{ProductID: 1, Amount: 2})
		require.ErrorIs(t, err, app.ErrUpdateFailed)
		assert.Equal(t, 1, f.svc.Cart(ctx).Amount(1))
		assert.Equal(t, []app.NotificationKind{app.KindUpdateFailed}, f.notes.Kinds())
	})
}

func TestPersistFailureLeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	slot := &failingSlot{Slot: memory.NewSlot()}
	notes := &recorder{}
	svc, err := app.NewService(ctx, app.Options{
		Stock:    newFakeStock(map[domain.ProductID]int{1: 5}),
		Products: &fakeProducts{},
		Slot:     slot,
		Notifier: notes,
	})
	require.NoError(t, err)
	require.NoError(t, svc.AddProduct(ctx, 1))

	slot.saveErr = errBoom
	require.ErrorIs(t, svc.AddProduct(ctx, 1), app.ErrAddFailed)
	require.ErrorIs(t, svc.UpdateProductAmount(ctx, app.UpdateProductAmount{ProductID: 1, Amount: 3}), app.ErrUpdateFailed)
	require.ErrorIs(t, svc.RemoveProduct(ctx, 1), app.ErrRemoveFailed)

	assert.Equal(t, 1, svc.Cart(ctx).Amount(1))
	assert.Equal(t, []app.NotificationKind{app.KindAddFailed, app.KindUpdateFailed, app.KindRemoveFailed}, notes.Kinds())

	slot.saveErr = nil
	data, err := slot.Load(ctx, app.DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"title":"Tênis 1","price":139.9,"image":"https://cdn.example/1.jpg","amount":1}]`, string(data))
}

func TestNewServiceLoadsSlot(t *testing.T) {
	ctx := context.Background()
	opts := func(slot app.Slot) app.Options {
		return app.Options{
			Stock:    newFakeStock(map[domain.ProductID]int{1: 5, 2: 5}),
			Products: &fakeProducts{},
			Slot:     slot,
			Key:      "custom",
		}
	}

	t.Run("restores persisted cart", func(t *testing.T) {
		slot := memory.NewSlot()
		require.NoError(t, slot.Save(ctx, "custom", []byte(`[{"id":2,"amount":3,"title":"x"}]`)))

		svc, err := app.NewService(ctx, opts(slot))
		require.NoError(t, err)
		cart := svc.Cart(ctx)
		require.Len(t, cart, 1)
		assert.Equal(t, 3, cart[0].Amount)
		assert.Equal(t, "x", cart[0].Field("title").String())

		require.NoError(t, svc.AddProduct(ctx, 2))
		assert.Equal(t, 4, svc.Cart(ctx).Amount(2))
	})

	t.Run("malformed content starts empty", func(t *testing.T) {
		slot := memory.NewSlot()
		require.NoError(t, slot.Save(ctx, "custom", []byte(`{oops`)))

		var logs bytes.Buffer
		o := opts(slot)
		o.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
		svc, err := app.NewService(ctx, o)
		require.NoError(t, err)
		assert.Empty(t, svc.Cart(ctx))
		assert.Contains(t, logs.String(), "persisted cart is malformed")
	})

	t.Run("slot error fails startup", func(t *testing.T) {
		_, err := app.NewService(ctx, opts(&failingSlot{Slot: memory.NewSlot(), loadErr: errBoom}))
		require.ErrorIs(t, err, errBoom)
	})

	t.Run("missing dependencies", func(t *testing.T) {
		_, err := app.NewService(ctx, app.Options{Products: &fakeProducts{}, Slot: memory.NewSlot()})
		require.Error(t, err)
		_, err = app.NewService(ctx, app.Options{Stock: newFakeStock(nil), Slot: memory.NewSlot()})
		require.Error(t, err)
		_, err = app.NewService(ctx, app.Options{Stock: newFakeStock(nil), Products: &fakeProducts{}})
		require.Error(t, err)
	})
}

func TestDebugLogsPersistedCart(t *testing.T) {
	ctx := context.Background()
	slot := memory.NewSlot()
	newSvc := func(debug bool, logs *bytes.Buffer) *app.Service {
		svc, err := app.NewService(ctx, app.Options{
			Stock:    newFakeStock(map[domain.ProductID]int{1: 5}),
			Products: &fakeProducts{},
			Slot:     slot,
			Debug:    debug,
			Logger:   slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		})
		require.NoError(t, err)
		return svc
	}

	var quiet bytes.Buffer
	newSvc(false, &quiet).Cart(ctx)
	assert.NotContains(t, quiet.String(), `"msg":"persisted cart"`)

	var loud bytes.Buffer
	svc := newSvc(true, &loud)
	require.NoError(t, svc.AddProduct(ctx, 1))
	svc.Cart(ctx)
	assert.Contains(t, loud.String(), `"msg":"persisted cart"`)
	assert.Contains(t, loud.String(), `@RocketShoes:cart`)
}

func TestNotificationMessages(t *testing.T) {
	kinds := []app.NotificationKind{app.KindStockUnavailable, app.KindAddFailed, app.KindRemoveFailed, app.KindUpdateFailed}
	seen := map[string]bool{}
	for _, k := range kinds {
		msg := app.Message(k)
		require.NotEmpty(t, msg, k)
		require.False(t, seen[msg], "duplicate message for %s", k)
		seen[msg] = true
	}

	for err, want := range map[error]app.NotificationKind{
		app.ErrQuantityUnavailable: app.KindStockUnavailable,
		app.ErrAddFailed:           app.KindAddFailed,
		app.ErrRemoveFailed:        app.KindRemoveFailed,
		app.ErrUpdateFailed:        app.KindUpdateFailed,
	} {
		got, ok := app.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := app.KindOf(errBoom)
	assert.False(t, ok)
}
