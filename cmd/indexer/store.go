package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dexsubgraphs/internal/config"
	"dexsubgraphs/internal/indexer"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/storage/clickhouse"
	"dexsubgraphs/internal/storage/natsfeed"
	"dexsubgraphs/internal/storage/postgres"
	"dexsubgraphs/internal/storage/redis"
)

// storeStack is the configured backend with its decorators applied.
type storeStack struct {
	store storage.Store
	// state is set when the backend can hold checkpoints.
	state   indexer.StateStore
	closers []func() error
	logger  *zap.Logger
}

// openStore opens the backend named by cfg. Decorators (journal, NATS feed,
// ClickHouse sink) are only applied for writers.
func openStore(ctx context.Context, cfg config.StoreConfig, writer bool, logger *zap.Logger) (*storeStack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stack := &storeStack{logger: logger}

	switch cfg.Backend {
	case config.StoreMemory:
		stack.store = storage.NewMemory()
	case config.StorePostgres:
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		stack.onClose(func() error { pg.Close(); return nil })
		if err := pg.EnsureSchema(ctx); err != nil {
			stack.Close()
			return nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		stack.store, stack.state = pg, pg
	case config.StoreRedis:
		rs, err := redis.New(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		stack.onClose(rs.Close)
		stack.store = rs
	}

	if !writer {
		return stack, nil
	}

	if cfg.Journal != "" {
		stack.store = storage.NewJournal(stack.store, cfg.Journal)
	}
	if cfg.NatsURL != "" {
		nc, err := natsfeed.Connect(cfg.NatsURL)
		if err != nil {
			stack.Close()
			return nil, err
		}
		feed := natsfeed.New(stack.store, nc, cfg.NatsPrefix, logger)
		stack.onClose(feed.Close)
		stack.store = feed
	}
	if cfg.ClickHouseDSN != "" {
		conn, err := clickhouse.Open(ctx, cfg.ClickHouseDSN)
		if err != nil {
			stack.Close()
			return nil, err
		}
		sink := clickhouse.NewSink(stack.store, conn, clickhouse.Options{MaxRetries: 3})
		stack.onClose(sink.Close)
		stack.store = sink
	}
	return stack, nil
}

func (s *storeStack) onClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Close releases resources outermost decorator first.
func (s *storeStack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close store", zap.Error(err))
		}
	}
	s.closers = nil
}
