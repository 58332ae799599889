package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"dexsubgraphs/internal/storage"
)

const DefaultPrefix = "dexsubgraphs:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store keeps each entity kind in one hash keyed by entity id.
type Store struct {
	client *goredis.Client
	prefix string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewWithClient(rdb, opts.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(kind string) string {
	return s.prefix + kind
}

func (s *Store) Get(ctx context.Context, kind, id string) ([]byte, error) {
	data, err := s.client.HGet(ctx, s.key(kind), id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Store) Put(ctx context.Context, kind, id string, data []byte) error {
	return s.client.HSet(ctx, s.key(kind), id, data).Err()
}

func (s *Store) Delete(ctx context.Context, kind, id string) error {
	n, err := s.client.HDel(ctx, s.key(kind), id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, kind string, limit int) ([][]byte, error) {
	type entry struct {
		id   string
		data string
	}
	var entries []entry

	iter := s.client.HScan(ctx, s.key(kind), 0, "", 256).Iterator()
	for iter.Next(ctx) {
		id := iter.Val()
		if !iter.Next(ctx) {
			break
		}
		entries = append(entries, entry{id: id, data: iter.Val()})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([][]byte, 0, len(entries))
	for _, e := range entries {
		out = append(out, []byte(e.data))
	}
	return out, nil
}
