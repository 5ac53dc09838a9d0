// Package store is the queue store: a replicated key-value tree addressed by
// slash-separated paths, with change subscriptions.
package store

import (
	"context"
	"encoding/json"
)

// Store is the capability every participant relies on. Individual operations
// are atomic; nothing spans more than one call.
type Store interface {
	Read(ctx context.Context, path string) (Snapshot, error)
	Write(ctx context.Context, path string, value any) error
	// Update overwrites the given child fields of path. A nil value removes
	// the field.
	Update(ctx context.Context, path string, fields map[string]any) error
	Remove(ctx context.Context, path string) error
	// Append stores value under a new store-generated key below path.
	Append(ctx context.Context, path string, value any) (string, error)
	// Subscribe calls fn with the current value of path before returning and
	// again whenever it changes. Calls for one subscription never overlap
	// and arrive in write order; consecutive identical values are dropped.
	Subscribe(ctx context.Context, path string, fn func(Snapshot)) (func(), error)
}

// Atomic is implemented by stores that offer single-key conditional writes.
type Atomic interface {
	Increment(ctx context.Context, path string, delta int64) (int64, error)
	// Claim writes value at path only when nothing is there yet.
	Claim(ctx context.Context, path string, value any) (bool, error)
	// UpdateIfEmpty applies fields to path only while guard holds no
	// children, checked and written as one step.
	UpdateIfEmpty(ctx context.Context, guard, path string, fields map[string]any) (bool, error)
}

// Bus carries change notices between writers and subscribers. A notice only
// says that something below topic changed; subscribers re-read.
type Bus interface {
	Notify(ctx context.Context, topic string) error
	Listen(topic string, fn func()) (func(), error)
}

type Snapshot struct {
	Path  string
	Value json.RawMessage
}

func (s Snapshot) Exists() bool {
	return len(s.Value) > 0 && string(s.Value) != "null"
}

// Decode leaves v untouched when the snapshot is empty.
func (s Snapshot) Decode(v any) error {
	if !s.Exists() {
		return nil
	}

	return json.Unmarshal(s.Value, v)
}

func (s Snapshot) Children() (map[string]json.RawMessage, error) {
	children := make(map[string]json.RawMessage)
	if err := s.Decode(&children); err != nil {
		return nil, err
	}

	return children, nil
}
