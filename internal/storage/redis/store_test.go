package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/storage"
)

func setupTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewWithClient(client, "test:")
}

func TestStore_SaveLoadRemove(t *testing.T) {
	ctx := context.Background()
	mr, s := setupTestStore(t)

	token := &model.Token{ID: "0xabc", Name: "Wrapped Ether", Symbol: "WETH", Decimals: 18}
	require.NoError(t, storage.Save(ctx, s, token))
	assert.True(t, mr.Exists("test:Token"))

	got, ok, err := storage.Load[model.Token](ctx, s, "0xabc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "WETH", got.Symbol)
	assert.Equal(t, 18, got.Decimals)

	require.NoError(t, storage.Remove(ctx, s, model.KindToken, "0xabc"))
	_, ok, err = storage.Load[model.Token](ctx, s, "0xabc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ListOrderedAndLimited(t *testing.T) {
	ctx := context.Background()
	_, s := setupTestStore(t)

	for _, id := range []string{"0xc", "0xa", "0xb"} {
		require.NoError(t, s.Put(ctx, model.KindToken, id, []byte(`{"id":"`+id+`"}`)))
	}

	rows, err := s.List(ctx, model.KindToken, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.JSONEq(t, `{"id":"0xa"}`, string(rows[0]))
	assert.JSONEq(t, `{"id":"0xb"}`, string(rows[1]))

	n, err := storage.Count(ctx, s, model.KindToken)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStore_DeleteMissing(t *testing.T) {
	_, s := setupTestStore(t)
	err := s.Delete(context.Background(), model.KindToken, "0xdead")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNew_RequiresAddr(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.Error(t, err)
}
