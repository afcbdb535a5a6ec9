package httpapi

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/app"
	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/domain"
	"golang.org/x/sync/singleflight"
)

type cachedProduct struct {
	product   domain.Product
	expiresAt time.Time
}

// ProductCache is a cache-aside layer over a ProductQuery. Concurrent misses
// for one id share a single upstream fetch. Only successes are cached.
type ProductCache struct {
	next  app.ProductQuery
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu    sync.RWMutex
	items map[domain.ProductID]cachedProduct
}

func NewProductCache(next app.ProductQuery, ttl time.Duration) *ProductCache {
	return &ProductCache{
		next:  next,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[domain.ProductID]cachedProduct),
	}
}

func (c *ProductCache) Product(ctx context.Context, id domain.ProductID) (domain.Product, error) {
	if p, ok := c.get(id); ok {
		return p, nil
	}

	v, err, _ := c.group.Do(strconv.FormatInt(int64(id), 10), func() (interface{}, error) {
		if p, ok := c.get(id); ok {
			return p, nil
		}
		p, err := c.next.Product(ctx, id)
		if err != nil {
			return domain.Product{}, err
		}
		c.set(id, p)
		return p, nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return v.(domain.Product), nil
}

func (c *ProductCache) get(id domain.ProductID) (domain.Product, bool) {
	c.mu.RLock()
	item, ok := c.items[id]
	c.mu.RUnlock()
	if !ok {
		return domain.Product{}, false
	}
	if c.now().After(item.expiresAt) {
		c.mu.Lock()
		delete(c.items, id)
		c.mu.Unlock()
		return domain.Product{}, false
	}
	return item.product, true
}

func (c *ProductCache) set(id domain.ProductID, p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = cachedProduct{product: p, expiresAt: c.now().Add(c.ttl)}
}
