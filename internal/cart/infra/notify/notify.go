// Package notify delivers cart notifications to logs, queues, and brokers.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/app"
)

// Log writes notifications as structured warn records.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	if log == nil {
		log = slog.Default()
	}
	return &Log{log: log}
}

func (l *Log) Notify(ctx context.Context, n app.Notification) {
	l.log.WarnContext(ctx, n.Message,
		slog.String("notification_id", n.ID),
		slog.String("kind", string(n.Kind)),
		slog.Int64("product_id", int64(n.ProductID)))
}

type Multi []app.Notifier

func (m Multi) Notify(ctx context.Context, n app.Notification) {
	for _, sink := range m {
		sink.Notify(ctx, n)
	}
}

// Async hands notifications to a single background goroutine so slow sinks
// never hold up cart operations. When the queue is full the notification is
// dropped and counted.
type Async struct {
	next    app.Notifier
	queue   chan app.Notification
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAsync(next app.Notifier, size int) *Async {
	if size <= 0 {
		size = 64
	}
	a := &Async{
		next:  next,
		queue: make(chan app.Notification, size),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for n := range a.queue {
		a.next.Notify(context.Background(), n)
	}
}

func (a *Async) Notify(ctx context.Context, n app.Notification) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return
	}
	select {
	case a.queue <- n:
	default:
		a.dropped.Add(1)
	}
}

func (a *Async) Dropped() int64 { return a.dropped.Load() }

// Close stops accepting notifications and waits until queued ones are delivered
// or ctx ends.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
