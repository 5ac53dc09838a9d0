// Package fanout carries store change notices to subscribers.
package fanout

import (
	"context"
	"sync"
)

// Local is an in-process bus. Listeners run synchronously on Notify and
// must not block.
type Local struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[string]map[int]func()
}

func NewLocal() *Local {
	return &Local{listeners: make(map[string]map[int]func())}
}

func (b *Local) Notify(ctx context.Context, topic string) error {
	b.mu.RLock()
	fns := make([]func(), 0, len(b.listeners[topic]))
	for _, fn := range b.listeners[topic] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}

	return nil
}

func (b *Local) Listen(topic string, fn func()) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	if b.listeners[topic] == nil {
		b.listeners[topic] = make(map[int]func())
	}
	b.listeners[topic][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.listeners[topic], id)
	}, nil
}
