package natsfeed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/storage"
)

func runTestWithInMemoryNATS(t *testing.T, testFunc func(*testing.T, string)) {
	t.Helper()

	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	s := natsserver.RunServer(&opts)
	defer s.Shutdown()

	testFunc(t, s.ClientURL())
}

func TestConnect_EmptyURL(t *testing.T) {
	nc, err := Connect("")
	assert.Error(t, err)
	assert.Nil(t, nc)
}

func TestStore_PublishesChanges(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, url string) {
		nc, err := Connect(url)
		require.NoError(t, err)

		sub, err := nc.SubscribeSync(DefaultPrefix + ".>")
		require.NoError(t, err)

		ctx := context.Background()
		s := New(storage.NewMemory(), nc, "", nil)
		require.NoError(t, storage.Save(ctx, s, &model.Token{ID: "0xabc", Symbol: "WETH"}))
		require.NoError(t, storage.Remove(ctx, s, model.KindToken, "0xabc"))
		require.NoError(t, s.Flush(ctx))

		var ops []string
		for i := 0; i < 2; i++ {
			msg, err := sub.NextMsg(2 * time.Second)
			require.NoError(t, err)
			assert.Equal(t, DefaultPrefix+".Token", msg.Subject)

			var c Change
			require.NoError(t, json.Unmarshal(msg.Data, &c))
			assert.Equal(t, "0xabc", c.ID)
			ops = append(ops, c.Op)
		}
		assert.Equal(t, []string{storage.OpPut, storage.OpDelete}, ops)

		require.NoError(t, s.Close())
		assert.Eventually(t, func() bool { return nc.Status() == nats.CLOSED }, 2*time.Second, 10*time.Millisecond)
	})
}

func TestStore_FailedWriteIsNotPublished(t *testing.T) {
	s := New(storage.NewMemory(), nil, "", nil)
	err := s.Delete(context.Background(), model.KindToken, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
