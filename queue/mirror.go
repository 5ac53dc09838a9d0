package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"ticketer/common"
	"ticketer/common/constant"
	"ticketer/model"
	"ticketer/outbound/store"
	"time"
)

type pathUpdate struct {
	path string
	snap store.Snapshot
}

// Mirror keeps a read replica of the queue for one process. A single
// goroutine applies path updates in arrival order and re-derives the whole
// View on every one of them.
type Mirror struct {
	Store    store.Store
	Location *time.Location

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(View)
	latest    atomic.Pointer[View]
}

func NewMirror(st store.Store, loc *time.Location) *Mirror {
	m := &Mirror{
		Store:     st,
		Location:  loc,
		listeners: make(map[int]func(View)),
	}
	m.latest.Store(&View{Location: loc})

	return m
}

// View returns the most recently derived view.
func (m *Mirror) View() View {
	return *m.latest.Load()
}

// Listen registers fn for every derived view, starting with the current one.
// fn runs on the mirror goroutine and must not block.
func (m *Mirror) Listen(fn func(View)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	fn(m.View())

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		delete(m.listeners, id)
	}
}

// Run subscribes to the queue, the serving number and the day, and applies
// updates until ctx is done.
func (m *Mirror) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	var cancels []func()
	defer func() {
		for _, stop := range cancels {
			stop()
		}
	}()
	defer cancel()

	updates := make(chan pathUpdate, 16)

	for _, path := range []string{constant.PathQueue, constant.PathCurrentServing, constant.PathDate} {
		stop, err := m.Store.Subscribe(ctx, path, func(snap store.Snapshot) {
			select {
			case updates <- pathUpdate{path: path, snap: snap}:
			case <-ctx.Done():
			}
		})
		if err != nil {
			return err
		}

		cancels = append(cancels, stop)
	}

	view := m.View()
	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			if !m.apply(ctx, &view, update) {
				continue
			}

			m.publish(view)
		}
	}
}

func (m *Mirror) apply(ctx context.Context, view *View, update pathUpdate) bool {
	var err error

	switch update.path {
	case constant.PathQueue:
		var tickets []model.Ticket
		tickets, err = TicketsOf(update.snap)
		if err == nil {
			view.Tickets = tickets
			view.Loaded = true
		}
	case constant.PathCurrentServing:
		var serving string
		err = update.snap.Decode(&serving)
		if err == nil {
			view.CurrentServing = serving
		}
	case constant.PathDate:
		var date string
		err = update.snap.Decode(&date)
		if err == nil {
			view.Date = date
		}
	}

	if err != nil {
		slog.WarnContext(ctx, "failed to decode queue update", common.ExtractTraceIDFromCtx(ctx),
			slog.String(constant.LogFieldPath, update.path), slog.Any(constant.LogFieldErr, err))
		return false
	}

	return true
}

// publish hands view to every listener. Ticket slices are rebuilt on every
// queue update and never modified afterwards, so listeners may keep them.
func (m *Mirror) publish(view View) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latest.Store(&view)
	for _, fn := range m.listeners {
		fn(view)
	}
}
