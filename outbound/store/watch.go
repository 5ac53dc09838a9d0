package store

import (
	"bytes"
	"context"
	"log/slog"
	"ticketer/common/constant"
	"time"
)

const watchRetryDelay = time.Second

type readFunc func(ctx context.Context, path string) (Snapshot, error)

type watcher struct {
	path string
	read readFunc
	fn   func(Snapshot)
	kick chan struct{}
	last []byte
	seen bool
}

// watch implements Subscribe on top of a read function and a change bus. The
// listener is attached before the first read so no notice is lost, and every
// notice triggers a fresh read of the whole path.
func watch(ctx context.Context, read readFunc, bus Bus, path string, fn func(Snapshot)) (func(), error) {
	if _, err := split(path); err != nil {
		return nil, err
	}

	w := &watcher{
		path: path,
		read: read,
		fn:   fn,
		kick: make(chan struct{}, 1),
	}

	stopListen, err := bus.Listen(topicOf(path), w.poke)
	if err != nil {
		return nil, err
	}

	snap, err := read(ctx, path)
	if err != nil {
		stopListen()
		return nil, err
	}
	w.deliver(snap)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		w.loop(ctx)
	}()

	return func() {
		stopListen()
		cancel()
		<-done
	}, nil
}

func (w *watcher) poke() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
			snap, err := w.read(ctx, w.path)
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				slog.WarnContext(ctx, "subscription re-read failed",
					slog.String(constant.LogFieldPath, w.path),
					slog.Any(constant.LogFieldErr, err))
				time.AfterFunc(watchRetryDelay, w.poke)
				continue
			}

			w.deliver(snap)
		}
	}
}

func (w *watcher) deliver(snap Snapshot) {
	if w.seen && bytes.Equal(w.last, snap.Value) {
		return
	}

	w.seen = true
	w.last = append(w.last[:0], snap.Value...)
	w.fn(snap)
}
