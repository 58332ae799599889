// Package subgraphtest builds fixture logs and runs them through a router with a mocked chain.
package subgraphtest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"dexsubgraphs/internal/chain/chaintest"
	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

// Harness wires a router to an in-memory store and a mocked chain.
type Harness struct {
	T      *testing.T
	Router *subgraph.Router
	Store  *storage.Memory
	Caller *chaintest.Caller
	Env    *subgraph.Env

	logIndex uint64
}

func New(t *testing.T) *Harness {
	t.Helper()
	logger := zap.NewNop()
	h := &Harness{
		T:      t,
		Router: subgraph.NewRouter(logger),
		Store:  storage.NewMemory(),
		Caller: chaintest.NewCaller(),
	}
	h.Env = h.Router.Env(h.Store, h.Caller, logger)
	return h
}

// Log describes one fixture log.
type Log struct {
	ABI       *dex.LazyABI
	Event     string
	Address   common.Address
	Block     uint64
	Timestamp uint64
	TxHash    string
	LogIndex  *uint64
	TxFrom    string
	TxTo      string
	TxInput   string
	// Args are the event inputs in declaration order.
	Args []any
}

// Record encodes l as a raw log record.
func (h *Harness) Record(l Log) model.LogRecord {
	h.T.Helper()
	parsed := l.ABI.Must()
	event, ok := parsed.Events[l.Event]
	if !ok {
		h.T.Fatalf("event %s not in abi", l.Event)
	}
	if len(l.Args) != len(event.Inputs) {
		h.T.Fatalf("%s: expected %d args, got %d", l.Event, len(event.Inputs), len(l.Args))
	}

	var topics []string
	if !event.Anonymous {
		topics = append(topics, event.ID.Hex())
	}
	var data []any
	for i, input := range event.Inputs {
		if !input.Indexed {
			data = append(data, l.Args[i])
			continue
		}
		hashes, err := abi.MakeTopics([]any{l.Args[i]})
		if err != nil {
			h.T.Fatalf("%s.%s topic: %v", l.Event, input.Name, err)
		}
		topics = append(topics, hashes[0][0].Hex())
	}
	packed, err := event.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		h.T.Fatalf("%s data: %v", l.Event, err)
	}

	txHash := l.TxHash
	if txHash == "" {
		txHash = TxHash(l.Block)
	}
	logIndex := h.logIndex
	if l.LogIndex != nil {
		logIndex = *l.LogIndex
	} else {
		h.logIndex++
	}

	return model.LogRecord{
		ChainID:     1,
		BlockNumber: l.Block,
		BlockHash:   fmt.Sprintf("0x%064x", l.Block+1),
		TxHash:      txHash,
		LogIndex:    logIndex,
		Address:     l.Address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(packed),
		Timestamp:   l.Timestamp,
		TxFrom:      l.TxFrom,
		TxTo:        l.TxTo,
		TxInput:     l.TxInput,
	}
}

// Handle encodes l and dispatches it, failing the test on errors. It reports whether a handler ran.
func (h *Harness) Handle(l Log) bool {
	h.T.Helper()
	handled, err := h.Router.Handle(context.Background(), h.Env, h.Record(l))
	if err != nil {
		h.T.Fatalf("handle %s: %v", l.Event, err)
	}
	return handled
}

// MustHandle is Handle that also fails when no handler ran.
func (h *Harness) MustHandle(l Log) {
	h.T.Helper()
	if !h.Handle(l) {
		h.T.Fatalf("no handler ran for %s at %s", l.Event, l.Address.Hex())
	}
}

// Mock registers a contract call result.
func (h *Harness) Mock(parsed *dex.LazyABI, addr common.Address, method string, args []any, outputs ...any) {
	h.T.Helper()
	if err := h.Caller.Mock(parsed.Must(), addr, method, args, outputs...); err != nil {
		h.T.Fatalf("mock %s: %v", method, err)
	}
}

// MockToken registers ERC20 metadata for token.
func (h *Harness) MockToken(token common.Address, name, symbol string, decimals uint8) {
	h.T.Helper()
	h.Mock(dex.ERC20ABI, token, "name", nil, name)
	h.Mock(dex.ERC20ABI, token, "symbol", nil, symbol)
	h.Mock(dex.ERC20ABI, token, "decimals", nil, decimals)
}

// Pool loads a pool or fails the test.
func (h *Harness) Pool(id common.Address) *model.LiquidityPool {
	h.T.Helper()
	return MustLoad[model.LiquidityPool](h, dex.Hex(id))
}

// MustLoad loads an entity or fails the test.
func MustLoad[T any, P interface {
	*T
	model.Entity
}](h *Harness, id string) *T {
	h.T.Helper()
	v, ok, err := storage.Load[T, P](context.Background(), h.Store, strings.ToLower(id))
	if err != nil {
		h.T.Fatalf("load %s: %v", id, err)
	}
	if !ok {
		var zero T
		h.T.Fatalf("%s %s not found", P(&zero).EntityKind(), id)
	}
	return v
}

// Exists reports whether an entity of kind with id is stored.
func (h *Harness) Exists(kind, id string) bool {
	_, err := h.Store.Get(context.Background(), kind, strings.ToLower(id))
	return err == nil
}

// Count returns the number of stored entities of kind.
func (h *Harness) Count(kind string) int {
	h.T.Helper()
	n, err := storage.Count(context.Background(), h.Store, kind)
	if err != nil {
		h.T.Fatalf("count %s: %v", kind, err)
	}
	return n
}

// TxHash is the transaction hash fixture logs of block get when Log.TxHash is empty.
func TxHash(block uint64) string {
	return fmt.Sprintf("0x%064x", block)
}

// Index returns a pointer for Log.LogIndex.
func Index(i uint64) *uint64 {
	return &i
}
