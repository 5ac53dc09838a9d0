package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/oklog/ulid/v2"
	"log/slog"
	"strconv"
	"sync"
	"ticketer/common/constant"
	"ticketer/common/errs"
)

// MemoryStore keeps the whole tree in process. It backs tests and the
// single-process dev mode.
type MemoryStore struct {
	mu   sync.Mutex
	root map[string]any
	bus  Bus
}

func NewMemoryStore(bus Bus) *MemoryStore {
	return &MemoryStore{root: make(map[string]any), bus: bus}
}

func (s *MemoryStore) Read(ctx context.Context, path string) (Snapshot, error) {
	segments, err := split(path)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	node, ok := s.get(segments)
	var raw []byte
	if ok {
		raw, err = json.Marshal(node)
	}
	s.mu.Unlock()

	if err != nil {
		return Snapshot{}, &errs.StoreError{Op: "read", Path: path, Err: err}
	}

	return Snapshot{Path: path, Value: raw}, nil
}

func (s *MemoryStore) Write(ctx context.Context, path string, value any) error {
	segments, err := split(path)
	if err != nil {
		return err
	}

	normalized, err := normalize(value)
	if err != nil {
		return &errs.StoreError{Op: "write", Path: path, Err: err}
	}

	s.mu.Lock()
	s.set(segments, normalized)
	s.mu.Unlock()

	s.notify(ctx, path)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]any) error {
	segments, err := split(path)
	if err != nil {
		return err
	}

	normalized, err := normalizeFields(fields)
	if err != nil {
		return &errs.StoreError{Op: "update", Path: path, Err: err}
	}

	s.mu.Lock()
	s.apply(segments, normalized)
	s.mu.Unlock()

	s.notify(ctx, path)
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, path string) error {
	segments, err := split(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.set(segments, nil)
	s.mu.Unlock()

	s.notify(ctx, path)
	return nil
}

func (s *MemoryStore) Append(ctx context.Context, path string, value any) (string, error) {
	segments, err := split(path)
	if err != nil {
		return "", err
	}

	normalized, err := normalize(value)
	if err != nil {
		return "", &errs.StoreError{Op: "append", Path: path, Err: err}
	}

	key := ulid.Make().String()

	s.mu.Lock()
	s.set(append(segments, key), normalized)
	s.mu.Unlock()

	s.notify(ctx, path)
	return key, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (func(), error) {
	return watch(ctx, s.Read, s.bus, path, fn)
}

func (s *MemoryStore) Increment(ctx context.Context, path string, delta int64) (int64, error) {
	segments, err := split(path)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	current := int64(0)
	if node, ok := s.get(segments); ok {
		number, ok := node.(json.Number)
		if !ok {
			s.mu.Unlock()
			return 0, &errs.StoreError{Op: "increment", Path: path, Err: fmt.Errorf("value is not a number")}
		}

		current, err = number.Int64()
		if err != nil {
			s.mu.Unlock()
			return 0, &errs.StoreError{Op: "increment", Path: path, Err: err}
		}
	}

	current += delta
	s.set(segments, json.Number(strconv.FormatInt(current, 10)))
	s.mu.Unlock()

	s.notify(ctx, path)
	return current, nil
}

func (s *MemoryStore) Claim(ctx context.Context, path string, value any) (bool, error) {
	segments, err := split(path)
	if err != nil {
		return false, err
	}

	normalized, err := normalize(value)
	if err != nil {
		return false, &errs.StoreError{Op: "claim", Path: path, Err: err}
	}

	s.mu.Lock()
	if _, ok := s.get(segments); ok {
		s.mu.Unlock()
		return false, nil
	}
	s.set(segments, normalized)
	s.mu.Unlock()

	s.notify(ctx, path)
	return true, nil
}

func (s *MemoryStore) UpdateIfEmpty(ctx context.Context, guard, path string, fields map[string]any) (bool, error) {
	guardSegments, err := split(guard)
	if err != nil {
		return false, err
	}

	segments, err := split(path)
	if err != nil {
		return false, err
	}

	normalized, err := normalizeFields(fields)
	if err != nil {
		return false, &errs.StoreError{Op: "update", Path: path, Err: err}
	}

	s.mu.Lock()
	if _, ok := s.get(guardSegments); ok {
		s.mu.Unlock()
		return false, nil
	}
	s.apply(segments, normalized)
	s.mu.Unlock()

	s.notify(ctx, path)
	return true, nil
}

func (s *MemoryStore) notify(ctx context.Context, path string) {
	if s.bus == nil {
		return
	}

	if err := s.bus.Notify(ctx, topicOf(path)); err != nil {
		slog.WarnContext(ctx, "failed to notify store change",
			slog.String(constant.LogFieldPath, path),
			slog.Any(constant.LogFieldErr, err))
	}
}

func (s *MemoryStore) get(segments []string) (any, bool) {
	var node any = s.root
	for _, segment := range segments {
		children, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}

		node, ok = children[segment]
		if !ok {
			return nil, false
		}
	}

	return node, true
}

// set writes value at segments; a nil value deletes and prunes emptied
// parents, so an empty collection reads as absent.
func (s *MemoryStore) set(segments []string, value any) {
	parents := make([]map[string]any, 0, len(segments))
	node := s.root

	for _, segment := range segments[:len(segments)-1] {
		parents = append(parents, node)

		child, ok := node[segment].(map[string]any)
		if !ok {
			if value == nil {
				return
			}

			child = make(map[string]any)
			node[segment] = child
		}

		node = child
	}

	last := segments[len(segments)-1]
	if value != nil {
		node[last] = value
		return
	}

	delete(node, last)
	for i := len(parents) - 1; i >= 0 && len(node) == 0; i-- {
		delete(parents[i], segments[i])
		node = parents[i]
	}
}

func (s *MemoryStore) apply(segments []string, fields map[string]any) {
	for field, value := range fields {
		s.set(append(segments[:len(segments):len(segments)], field), value)
	}
}

// normalize turns any JSON-encodable value into the generic tree form used by
// the store. Empty objects and null normalize to nil.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var out any
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}

	return prune(out), nil
}

func prune(value any) any {
	children, ok := value.(map[string]any)
	if !ok {
		return value
	}

	for key, child := range children {
		if pruned := prune(child); pruned == nil {
			delete(children, key)
		} else {
			children[key] = pruned
		}
	}

	if len(children) == 0 {
		return nil
	}

	return children
}

func normalizeFields(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for field, value := range fields {
		if _, err := split(field); err != nil {
			return nil, err
		}

		normalized, err := normalize(value)
		if err != nil {
			return nil, err
		}

		out[field] = normalized
	}

	return out, nil
}
