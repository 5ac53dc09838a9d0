package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"log/slog"
	"sort"
	"strings"
	"ticketer/common/constant"
	"ticketer/common/errs"
)

// RedisStore maps the path tree onto Redis hashes: a node is one hash and
// each child of the node is one field holding JSON. Roots listed in
// NodeDepth keep their nodes deeper, e.g. usedNumbers/<day> is a hash per
// day and usedNumbers alone is a namespace over those hashes.
type RedisStore struct {
	Client    redis.UniversalClient
	Bus       Bus
	Prefix    string
	NodeDepth map[string]int
}

func NewRedisStore(client redis.UniversalClient, bus Bus, prefix string) *RedisStore {
	if prefix == "" {
		prefix = constant.DefaultRedisPrefix
	}

	return &RedisStore{
		Client: client,
		Bus:    bus,
		Prefix: prefix,
		NodeDepth: map[string]int{
			constant.PathUsedNumbers: 2,
		},
	}
}

type refKind int

const (
	refNamespace refKind = iota
	refNode
	refField
)

type ref struct {
	kind  refKind
	key   string
	field string
}

func (s *RedisStore) resolve(path string) (ref, error) {
	segments, err := split(path)
	if err != nil {
		return ref{}, err
	}

	depth := 1
	if d, ok := s.NodeDepth[segments[0]]; ok {
		depth = d
	}

	switch {
	case len(segments) < depth:
		return ref{kind: refNamespace, key: s.keyOf(segments)}, nil
	case len(segments) == depth:
		return ref{kind: refNode, key: s.keyOf(segments)}, nil
	case len(segments) == depth+1:
		return ref{kind: refField, key: s.keyOf(segments[:depth]), field: segments[depth]}, nil
	default:
		return ref{}, errs.ErrInvalidPath
	}
}

func (s *RedisStore) keyOf(segments []string) string {
	return s.Prefix + ":" + strings.Join(segments, ":")
}

func (s *RedisStore) Read(ctx context.Context, path string) (Snapshot, error) {
	r, err := s.resolve(path)
	if err != nil {
		return Snapshot{}, err
	}

	var raw json.RawMessage
	switch r.kind {
	case refField:
		val, err := s.Client.HGet(ctx, r.key, r.field).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return Snapshot{}, &errs.StoreError{Op: "read", Path: path, Err: err}
		}

		if err == nil {
			raw = json.RawMessage(val)
		}
	case refNode:
		raw, err = s.readNode(ctx, r.key)
		if err != nil {
			return Snapshot{}, &errs.StoreError{Op: "read", Path: path, Err: err}
		}
	case refNamespace:
		raw, err = s.readNamespace(ctx, r.key)
		if err != nil {
			return Snapshot{}, &errs.StoreError{Op: "read", Path: path, Err: err}
		}
	}

	return Snapshot{Path: path, Value: raw}, nil
}

func (s *RedisStore) readNode(ctx context.Context, key string) (json.RawMessage, error) {
	fields, err := s.Client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, nil
	}

	object := make(map[string]json.RawMessage, len(fields))
	for field, val := range fields {
		object[field] = json.RawMessage(val)
	}

	return json.Marshal(object)
}

func (s *RedisStore) readNamespace(ctx context.Context, key string) (json.RawMessage, error) {
	keys, err := s.scan(ctx, key)
	if err != nil {
		return nil, err
	}

	object := make(map[string]json.RawMessage, len(keys))
	for _, nodeKey := range keys {
		node, err := s.readNode(ctx, nodeKey)
		if err != nil {
			return nil, err
		}

		if node != nil {
			object[strings.TrimPrefix(nodeKey, key+":")] = node
		}
	}

	if len(object) == 0 {
		return nil, nil
	}

	return json.Marshal(object)
}

func (s *RedisStore) scan(ctx context.Context, key string) ([]string, error) {
	var keys []string

	iter := s.Client.Scan(ctx, 0, key+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	return keys, iter.Err()
}

func (s *RedisStore) Write(ctx context.Context, path string, value any) error {
	r, err := s.resolve(path)
	if err != nil {
		return err
	}

	switch r.kind {
	case refField:
		raw, err := json.Marshal(value)
		if err != nil {
			return &errs.StoreError{Op: "write", Path: path, Err: err}
		}

		if isNull(raw) {
			err = s.Client.HDel(ctx, r.key, r.field).Err()
		} else {
			err = s.Client.HSet(ctx, r.key, r.field, string(raw)).Err()
		}

		if err != nil {
			return &errs.StoreError{Op: "write", Path: path, Err: err}
		}
	case refNode:
		args, err := flatten(value)
		if err != nil {
			return &errs.StoreError{Op: "write", Path: path, Err: err}
		}

		_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, r.key)
			if len(args) > 0 {
				pipe.HSet(ctx, r.key, args...)
			}
			return nil
		})
		if err != nil {
			return &errs.StoreError{Op: "write", Path: path, Err: err}
		}
	default:
		return errs.ErrInvalidPath
	}

	s.notify(ctx, path)
	return nil
}

func (s *RedisStore) Update(ctx context.Context, path string, fields map[string]any) error {
	r, err := s.resolve(path)
	if err != nil {
		return err
	}

	if r.kind != refNode {
		return errs.ErrInvalidPath
	}

	set, del, err := splitFields(fields)
	if err != nil {
		return &errs.StoreError{Op: "update", Path: path, Err: err}
	}

	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		queueFieldChanges(ctx, pipe, r.key, set, del)
		return nil
	})
	if err != nil {
		return &errs.StoreError{Op: "update", Path: path, Err: err}
	}

	s.notify(ctx, path)
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, path string) error {
	r, err := s.resolve(path)
	if err != nil {
		return err
	}

	switch r.kind {
	case refField:
		err = s.Client.HDel(ctx, r.key, r.field).Err()
	case refNode:
		err = s.Client.Del(ctx, r.key).Err()
	case refNamespace:
		var keys []string
		keys, err = s.scan(ctx, r.key)
		if err == nil && len(keys) > 0 {
			err = s.Client.Del(ctx, keys...).Err()
		}
	}

	if err != nil {
		return &errs.StoreError{Op: "remove", Path: path, Err: err}
	}

	s.notify(ctx, path)
	return nil
}

func (s *RedisStore) Append(ctx context.Context, path string, value any) (string, error) {
	r, err := s.resolve(path)
	if err != nil {
		return "", err
	}

	if r.kind != refNode {
		return "", errs.ErrInvalidPath
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return "", &errs.StoreError{Op: "append", Path: path, Err: err}
	}

	key := ulid.Make().String()
	if err := s.Client.HSet(ctx, r.key, key, string(raw)).Err(); err != nil {
		return "", &errs.StoreError{Op: "append", Path: path, Err: err}
	}

	s.notify(ctx, path)
	return key, nil
}

func (s *RedisStore) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (func(), error) {
	return watch(ctx, s.Read, s.Bus, path, fn)
}

func (s *RedisStore) Increment(ctx context.Context, path string, delta int64) (int64, error) {
	r, err := s.resolve(path)
	if err != nil {
		return 0, err
	}

	if r.kind != refField {
		return 0, errs.ErrInvalidPath
	}

	val, err := s.Client.HIncrBy(ctx, r.key, r.field, delta).Result()
	if err != nil {
		return 0, &errs.StoreError{Op: "increment", Path: path, Err: err}
	}

	s.notify(ctx, path)
	return val, nil
}

func (s *RedisStore) Claim(ctx context.Context, path string, value any) (bool, error) {
	r, err := s.resolve(path)
	if err != nil {
		return false, err
	}

	if r.kind != refField {
		return false, errs.ErrInvalidPath
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return false, &errs.StoreError{Op: "claim", Path: path, Err: err}
	}

	ok, err := s.Client.HSetNX(ctx, r.key, r.field, string(raw)).Result()
	if err != nil {
		return false, &errs.StoreError{Op: "claim", Path: path, Err: err}
	}

	if ok {
		s.notify(ctx, path)
	}

	return ok, nil
}

// UpdateIfEmpty watches both keys so a concurrent append to guard, or any
// write to path, aborts the transaction and the check is redone.
func (s *RedisStore) UpdateIfEmpty(ctx context.Context, guard, path string, fields map[string]any) (bool, error) {
	g, err := s.resolve(guard)
	if err != nil {
		return false, err
	}

	r, err := s.resolve(path)
	if err != nil {
		return false, err
	}

	if g.kind != refNode || r.kind != refNode {
		return false, errs.ErrInvalidPath
	}

	set, del, err := splitFields(fields)
	if err != nil {
		return false, &errs.StoreError{Op: "update", Path: path, Err: err}
	}

	for attempt := 0; attempt < constant.WatchTxMaxRetries; attempt++ {
		applied := false

		err = s.Client.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.HLen(ctx, g.key).Result()
			if err != nil {
				return err
			}

			if n > 0 {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				queueFieldChanges(ctx, pipe, r.key, set, del)
				return nil
			})
			if err != nil {
				return err
			}

			applied = true
			return nil
		}, g.key, r.key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return false, &errs.StoreError{Op: "update", Path: path, Err: err}
		}

		if applied {
			s.notify(ctx, path)
		}

		return applied, nil
	}

	return false, &errs.StoreError{Op: "update", Path: path, Err: redis.TxFailedErr}
}

func (s *RedisStore) notify(ctx context.Context, path string) {
	if s.Bus == nil {
		return
	}

	if err := s.Bus.Notify(ctx, topicOf(path)); err != nil {
		slog.WarnContext(ctx, "failed to notify store change",
			slog.String(constant.LogFieldPath, path),
			slog.Any(constant.LogFieldErr, err))
	}
}

func isNull(raw []byte) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// flatten encodes an object value into sorted HSET arguments, dropping null
// members.
func flatten(value any) ([]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	if isNull(raw) {
		return nil, nil
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, fmt.Errorf("node value must be an object: %w", err)
	}

	fields := make([]string, 0, len(object))
	for field, val := range object {
		if !isNull(val) {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	args := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		args = append(args, field, string(object[field]))
	}

	return args, nil
}

// splitFields separates an update into sorted HSET arguments and fields to
// delete.
func splitFields(fields map[string]any) ([]any, []string, error) {
	names := make([]string, 0, len(fields))
	for field := range fields {
		if _, err := split(field); err != nil {
			return nil, nil, err
		}
		names = append(names, field)
	}
	sort.Strings(names)

	var set []any
	var del []string
	for _, field := range names {
		raw, err := json.Marshal(fields[field])
		if err != nil {
			return nil, nil, err
		}

		if isNull(raw) {
			del = append(del, field)
			continue
		}

		set = append(set, field, string(raw))
	}

	return set, del, nil
}

func queueFieldChanges(ctx context.Context, pipe redis.Pipeliner, key string, set []any, del []string) {
	if len(set) > 0 {
		pipe.HSet(ctx, key, set...)
	}

	if len(del) > 0 {
		pipe.HDel(ctx, key, del...)
	}
}
