// Package redis is a store.Store persisting journals in Redis.
//
// Each journal uses three keys under the store prefix: "<name>:seq" holds
// the last sequence number, "<name>:snapshot" the checkpoint and
// "<name>:entries" a sorted set of entries scored by sequence number.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"
	"github.com/signadot/treestate/store"

	backend "github.com/redis/go-redis/v9"
)

type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ store.Store = (*Store)(nil)

type Option func(*Store)

// WithTTL sets the expiration of journal keys, refreshed on every write.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "treestate:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) seqKey(name string) string      { return s.prefix + name + ":seq" }
func (s *Store) snapshotKey(name string) string { return s.prefix + name + ":snapshot" }
func (s *Store) entriesKey(name string) string  { return s.prefix + name + ":entries" }

type checkpoint struct {
	Seq      int64    `json:"seq"`
	Snapshot *ir.Node `json:"snapshot"`
}

// saveScript stores the checkpoint, raises the sequence counter to the
// checkpoint's and drops covered entries, atomically.
var saveScript = backend.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
if cur < tonumber(ARGV[1]) then
	redis.call('SET', KEYS[1], ARGV[1])
end
redis.call('SET', KEYS[2], ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[3], '-inf', ARGV[1])
return 1
`)

func (s *Store) SaveSnapshot(ctx context.Context, name string, seq int64, sn *ir.Node) error {
	data, err := json.Marshal(checkpoint{Seq: seq, Snapshot: sn})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	keys := []string{s.seqKey(name), s.snapshotKey(name), s.entriesKey(name)}
	if err := saveScript.Run(ctx, s.client, keys, seq, data).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot to redis: %w", err)
	}
	return s.touch(ctx, keys...)
}

func (s *Store) LoadSnapshot(ctx context.Context, name string) (*ir.Node, int64, error) {
	val, err := s.client.Get(ctx, s.snapshotKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, 0, store.ErrNotFound
		}
		return nil, 0, fmt.Errorf("failed to get from redis: %w", err)
	}
	var cp checkpoint
	if err := json.Unmarshal(val, &cp); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if cp.Snapshot == nil {
		cp.Snapshot = ir.Null()
	}
	return cp.Snapshot, cp.Seq, nil
}

func (s *Store) Append(ctx context.Context, name string, ps []patch.Patch) (int64, error) {
	seq, err := s.client.Incr(ctx, s.seqKey(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate seq: %w", err)
	}
	if ps == nil {
		ps = []patch.Patch{}
	}
	data, err := json.Marshal(store.Entry{Seq: seq, Patches: ps})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal entry: %w", err)
	}
	err = s.client.ZAdd(ctx, s.entriesKey(name), backend.Z{
		Score:  float64(seq),
		Member: data,
	}).Err()
	if err != nil {
		return 0, fmt.Errorf("failed to append to redis: %w", err)
	}
	return seq, s.touch(ctx, s.seqKey(name), s.entriesKey(name))
}

func (s *Store) Entries(ctx context.Context, name string, after int64) ([]store.Entry, error) {
	vals, err := s.client.ZRangeByScore(ctx, s.entriesKey(name), &backend.ZRangeBy{
		Min: "(" + strconv.FormatInt(after, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	res := make([]store.Entry, 0, len(vals))
	for _, v := range vals {
		var e store.Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		res = append(res, e)
	}
	return res, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	return s.client.Del(ctx, s.seqKey(name), s.snapshotKey(name), s.entriesKey(name)).Err()
}

func (s *Store) touch(ctx context.Context, keys ...string) error {
	if s.ttl == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, k := range keys {
		pipe.Expire(ctx, k, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
