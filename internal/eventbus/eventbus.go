// Package eventbus dispatches typed events to in-process subscribers.
// Executions, services and the HTTP server publish to the global bus; the
// otel and metrics packages subscribe to it.
package eventbus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Handler processes events of type T.
type Handler[T any] func(context.Context, T)

type subscriber struct {
	id uint64
	fn func(context.Context, any)
}

// routes maps an event type to its subscribers in subscription order. A
// published routes value is never mutated.
type routes map[reflect.Type][]subscriber

// Bus is an in-process event dispatcher. Publishing reads a snapshot of the
// routes without locking; subscribing replaces the snapshot.
type Bus struct {
	mu     sync.Mutex
	lastID uint64
	routes atomic.Pointer[routes]
}

func New() *Bus {
	b := &Bus{}
	b.routes.Store(&routes{})
	return b
}

// update applies fn to a copy of the current routes and publishes the copy.
func (b *Bus) update(fn func(routes)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := routes{}
	for t, subs := range *b.routes.Load() {
		next[t] = subs
	}
	fn(next)
	b.routes.Store(&next)
}

func (b *Bus) subscribe(t reflect.Type, fn func(context.Context, any)) (unsubscribe func()) {
	var id uint64
	b.update(func(r routes) {
		b.lastID++
		id = b.lastID
		r[t] = append(r[t][:len(r[t]):len(r[t])], subscriber{id: id, fn: fn})
	})
	return func() {
		b.update(func(r routes) {
			var kept []subscriber
			for _, s := range r[t] {
				if s.id != id {
					kept = append(kept, s)
				}
			}
			if len(kept) == 0 {
				delete(r, t)
			} else {
				r[t] = kept
			}
		})
	}
}

func (b *Bus) publish(ctx context.Context, t reflect.Type, e any) {
	for _, s := range (*b.routes.Load())[t] {
		s.fn(ctx, e)
	}
}

var global atomic.Pointer[Bus]

// Use sets the global bus. Passing nil disables event publishing.
func Use(b *Bus) { global.Store(b) }

// Subscribe registers h with the global bus. Without a global bus it does
// nothing.
func Subscribe[T any](h Handler[T]) (unsubscribe func()) {
	b := global.Load()
	if b == nil {
		return func() {}
	}
	return b.subscribe(reflect.TypeFor[T](), func(ctx context.Context, v any) { h(ctx, v.(T)) })
}

// Publish sends e to the subscribers of T on the global bus.
func Publish[T any](ctx context.Context, e T) {
	if b := global.Load(); b != nil {
		b.publish(ctx, reflect.TypeFor[T](), e)
	}
}
