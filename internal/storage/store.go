package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dexsubgraphs/internal/model"
)

// ErrNotFound is returned by Get when no entity exists for kind and id.
var ErrNotFound = errors.New("entity not found")

// Store is a key-value entity store partitioned by entity kind.
type Store interface {
	Get(ctx context.Context, kind, id string) ([]byte, error)
	Put(ctx context.Context, kind, id string, data []byte) error
	Delete(ctx context.Context, kind, id string) error
	// List returns up to limit entities of kind ordered by id. A limit <= 0 returns all.
	List(ctx context.Context, kind string, limit int) ([][]byte, error)
}

// Flusher is implemented by stores that buffer writes.
type Flusher interface {
	Flush(ctx context.Context) error
}

// LogSink defines a sink for raw log records.
type LogSink interface {
	PutLogBatch(logs []model.LogRecord) error
}

type entityPtr[T any] interface {
	*T
	model.Entity
}

// Load reads the entity with the given id. The bool result is false when it does not exist.
func Load[T any, P entityPtr[T]](ctx context.Context, s Store, id string) (*T, bool, error) {
	var v T
	kind := P(&v).EntityKind()
	data, err := s.Get(ctx, kind, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return &v, true, nil
}

// Save writes the entity, replacing any previous version.
func Save(ctx context.Context, s Store, e model.Entity) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	if err := s.Put(ctx, e.EntityKind(), e.EntityID(), data); err != nil {
		return fmt.Errorf("save %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	return nil
}

// Remove deletes the entity. Removing a missing entity is not an error.
func Remove(ctx context.Context, s Store, kind, id string) error {
	if err := s.Delete(ctx, kind, id); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remove %s %s: %w", kind, id, err)
	}
	return nil
}

// LoadAll decodes every entity of the kind T.
func LoadAll[T any, P entityPtr[T]](ctx context.Context, s Store, limit int) ([]*T, error) {
	var zero T
	kind := P(&zero).EntityKind()
	rows, err := s.List(ctx, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		v := new(T)
		if err := json.Unmarshal(row, v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Count returns the number of entities of a kind.
func Count(ctx context.Context, s Store, kind string) (int, error) {
	rows, err := s.List(ctx, kind, 0)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// FlushIfBuffered flushes s when it implements Flusher.
func FlushIfBuffered(ctx context.Context, s Store) error {
	if f, ok := s.(Flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}
