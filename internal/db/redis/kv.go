package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/litmap/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// Set stores a value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores a value with an expiration. A non-positive ttl stores
// the value without expiry.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Do(ctx, s.set(key, value, ttl)).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// Del deletes keys in a single command.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Do(ctx, s.b().Del().Key(keys...).Build()).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Do(ctx, s.b().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return count > 0, nil
}

// ReplaceAll deletes the entry keys and writes the new values inside one
// MULTI/EXEC. On a cluster the keys must share a hash tag.
func (s *Store) ReplaceAll(ctx context.Context, entries []db.Entry, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}

	cmds := make(rueidis.Commands, 0, len(entries)+3)
	cmds = append(cmds, s.b().Multi().Build(), s.b().Del().Key(db.Keys(entries)...).Build())
	for _, e := range entries {
		cmds = append(cmds, s.set(e.Key, e.Value, ttl))
	}
	cmds = append(cmds, s.b().Exec().Build())

	results := s.client.DoMulti(ctx, cmds...)
	last := len(results) - 1
	for _, r := range results[:last] {
		if err := r.Error(); err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
	}
	replies, err := results[last].ToArray()
	if err != nil {
		return &db.Error{Op: db.OpExec, Err: err}
	}
	for _, m := range replies {
		if err := m.Error(); err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
	}
	return nil
}

func (s *Store) set(key string, value []byte, ttl time.Duration) rueidis.Completed {
	cmd := s.b().Set().Key(key).Value(rueidis.BinaryString(value))
	if ttl > 0 {
		return cmd.Ex(ttl).Build()
	}
	return cmd.Build()
}
