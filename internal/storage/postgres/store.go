package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dexsubgraphs/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	kind       TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, id)
);
CREATE TABLE IF NOT EXISTS indexer_state (
	name                 TEXT        PRIMARY KEY,
	last_processed_block BIGINT      NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type entityKey struct {
	kind string
	id   string
}

// pending is a buffered write; a nil data marks a delete.
type pending struct {
	data []byte
}

// Store provides Postgres persistence for entities and indexer checkpoints.
// Writes are buffered and sent as one batch on Flush.
type Store struct {
	pool *pgxpool.Pool

	mu      sync.Mutex
	pending map[entityKey]pending
	order   []entityKey
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, pending: make(map[entityKey]pending)}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the entity and state tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Store) Get(ctx context.Context, kind, id string) ([]byte, error) {
	if p, ok := s.buffered(kind, id); ok {
		if p.data == nil {
			return nil, storage.ErrNotFound
		}
		return append([]byte(nil), p.data...), nil
	}
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT data FROM entities WHERE kind=$1 AND id=$2`, kind, id)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Store) Put(_ context.Context, kind, id string, data []byte) error {
	s.buffer(entityKey{kind: kind, id: id}, append([]byte{}, data...))
	return nil
}

func (s *Store) Delete(_ context.Context, kind, id string) error {
	s.buffer(entityKey{kind: kind, id: id}, nil)
	return nil
}

// List flushes pending writes and then reads from the table.
func (s *Store) List(ctx context.Context, kind string, limit int) ([][]byte, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	query := `SELECT data FROM entities WHERE kind=$1 ORDER BY id`
	args := []any{kind}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, rows.Err()
}

// Flush sends buffered upserts and deletes in one batch.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	order := s.order
	writes := s.pending
	s.order = nil
	s.pending = make(map[entityKey]pending)
	s.mu.Unlock()

	if len(order) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, key := range order {
		p := writes[key]
		if p.data == nil {
			batch.Queue(`DELETE FROM entities WHERE kind=$1 AND id=$2`, key.kind, key.id)
			continue
		}
		batch.Queue(`
			INSERT INTO entities (kind, id, data, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (kind, id)
			DO UPDATE SET data = EXCLUDED.data, updated_at = now()
		`, key.kind, key.id, p.data)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range order {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("flush entities: %w", err)
		}
	}
	return nil
}

// PendingKinds lists the kinds with unflushed writes.
func (s *Store) PendingKinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	for _, key := range s.order {
		seen[key.kind] = struct{}{}
	}
	kinds := make([]string, 0, len(seen))
	for kind := range seen {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func (s *Store) buffered(kind, id string) (pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[entityKey{kind: kind, id: id}]
	return p, ok
}

func (s *Store) buffer(key entityKey, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.pending = make(map[entityKey]pending)
	}
	if _, ok := s.pending[key]; !ok {
		s.order = append(s.order, key)
	}
	s.pending[key] = pending{data: data}
}

// LoadState returns last_processed_block for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return block, true, nil
}

// SaveState upserts last_processed_block for a name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, int64(block))
	return err
}
