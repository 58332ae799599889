package natsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"dexsubgraphs/internal/storage"
)

const DefaultPrefix = "dexsubgraphs.entities"

// Change is published after every successful write.
type Change struct {
	Op   string `json:"op"`
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Store publishes entity changes of the wrapped store to NATS subjects <prefix>.<kind>.
type Store struct {
	storage.Store
	nc     *nats.Conn
	prefix string
	log    *zap.Logger
}

// Connect opens a NATS connection for the feed.
func Connect(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, errors.New("nats url is required")
	}

	opts := []nats.Option{
		nats.Name("dexsubgraphs"),
		nats.Timeout(5 * time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

func New(next storage.Store, nc *nats.Conn, prefix string, log *zap.Logger) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{Store: next, nc: nc, prefix: prefix, log: log}
}

// Subject returns the subject changes of kind are published on.
func (s *Store) Subject(kind string) string {
	return s.prefix + "." + kind
}

func (s *Store) Put(ctx context.Context, kind, id string, data []byte) error {
	if err := s.Store.Put(ctx, kind, id, data); err != nil {
		return err
	}
	return s.publish(Change{Op: storage.OpPut, Kind: kind, ID: id})
}

func (s *Store) Delete(ctx context.Context, kind, id string) error {
	if err := s.Store.Delete(ctx, kind, id); err != nil {
		return err
	}
	return s.publish(Change{Op: storage.OpDelete, Kind: kind, ID: id})
}

func (s *Store) Flush(ctx context.Context) error {
	if err := storage.FlushIfBuffered(ctx, s.Store); err != nil {
		return err
	}
	if s.nc == nil {
		return nil
	}
	return s.nc.FlushWithContext(ctx)
}

// Close drains the connection.
func (s *Store) Close() error {
	if s.nc == nil || s.nc.IsClosed() {
		return nil
	}
	if err := s.nc.Drain(); err != nil {
		s.log.Error("drain nats connection", zap.Error(err))
		s.nc.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}

func (s *Store) publish(c Change) error {
	if s.nc == nil {
		return nil
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.nc.Publish(s.Subject(c.Kind), payload); err != nil {
		return fmt.Errorf("publish %s: %w", c.Kind, err)
	}
	return nil
}
