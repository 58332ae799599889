package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexsubgraphs/internal/model"
)

func TestMemoryLoadMissing(t *testing.T) {
	pool, ok, err := Load[model.LiquidityPool](context.Background(), NewMemory(), "0xpool")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, pool)
}

func TestMemorySaveCopiesData(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	data := []byte(`{"id":"0xa","symbol":"A"}`)
	require.NoError(t, m.Put(ctx, model.KindToken, "0xa", data))
	data[0] = 'x'

	tok, ok, err := Load[model.Token](ctx, m, "0xa")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", tok.Symbol)
}

func TestMemoryListSortedByID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, id := range []string{"0xc", "0xa", "0xb"} {
		require.NoError(t, Save(ctx, m, &model.Token{ID: id}))
	}

	tokens, err := LoadAll[model.Token](ctx, m, 0)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "0xa", tokens[0].ID)
	assert.Equal(t, "0xc", tokens[2].ID)

	limited, err := LoadAll[model.Token](ctx, m, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRemoveMissingIsNotAnError(t *testing.T) {
	assert.NoError(t, Remove(context.Background(), NewMemory(), model.KindPool, "0xnone"))
}

func TestJournalRecordsMutations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "journal.jsonl")
	j := NewJournal(NewMemory(), path)

	require.NoError(t, Save(ctx, j, &model.Token{ID: "0xa", Symbol: "A"}))
	require.NoError(t, Remove(ctx, j, model.KindToken, "0xa"))
	require.NoError(t, Remove(ctx, j, model.KindToken, "0xa"))
	require.NoError(t, j.Flush(ctx))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var muts []Mutation
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m Mutation
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		muts = append(muts, m)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, muts, 2)
	assert.Equal(t, OpPut, muts[0].Op)
	assert.JSONEq(t, `"A"`, string(mustField(t, muts[0].Entity, "symbol")))
	assert.Equal(t, OpDelete, muts[1].Op)
	assert.Equal(t, "0xa", muts[1].ID)
}

func TestJSONLinesPutLogBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.jsonl")
	sink := NewJSONLines(path)
	require.NoError(t, sink.PutLogBatch([]model.LogRecord{{BlockNumber: 1}, {BlockNumber: 2}}))
	require.NoError(t, sink.PutLogBatch(nil))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := 0
	for _, c := range b {
		if c == '\n' {
			lines++
		}
	}
	assert.Equal(t, 2, lines)
}

func mustField(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	return m[key]
}
