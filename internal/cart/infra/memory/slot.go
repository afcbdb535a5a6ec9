// Package memory keeps cart slots in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/app"
)

type Slot struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewSlot() *Slot {
	return &Slot{values: make(map[string][]byte)}
}

func (s *Slot) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, app.ErrSlotEmpty
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Slot) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := make([]byte, len(data))
	copy(v, data)

	s.mu.Lock()
	s.values[key] = v
	s.mu.Unlock()
	return nil
}

func (s *Slot) Ping(context.Context) error { return nil }
