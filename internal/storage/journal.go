package storage

import (
	"context"
	"encoding/json"
)

// Mutation ops written to the journal.
const (
	OpPut    = "put"
	OpDelete = "delete"
)

// Mutation is one journaled entity change.
type Mutation struct {
	Op     string          `json:"op"`
	Kind   string          `json:"kind"`
	ID     string          `json:"id"`
	Entity json.RawMessage `json:"entity,omitempty"`
}

// Journal records every successful write of the wrapped store as a JSON line.
type Journal struct {
	Store
	out *JSONLines
}

func NewJournal(next Store, path string) *Journal {
	return &Journal{Store: next, out: NewJSONLines(path)}
}

func (j *Journal) Put(ctx context.Context, kind, id string, data []byte) error {
	if err := j.Store.Put(ctx, kind, id, data); err != nil {
		return err
	}
	return j.out.Append(Mutation{Op: OpPut, Kind: kind, ID: id, Entity: json.RawMessage(data)})
}

func (j *Journal) Delete(ctx context.Context, kind, id string) error {
	if err := j.Store.Delete(ctx, kind, id); err != nil {
		return err
	}
	return j.out.Append(Mutation{Op: OpDelete, Kind: kind, ID: id})
}

func (j *Journal) Flush(ctx context.Context) error {
	return FlushIfBuffered(ctx, j.Store)
}
