package subgraph

import (
	"context"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"dexsubgraphs/internal/aggregate"
	"dexsubgraphs/internal/chain"
	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/storage"
)

// Block identifies the block an event was emitted in.
type Block struct {
	Number    uint64
	Timestamp uint64
	Hash      string
}

// Tx is the transaction that emitted an event. From, To and Input are only
// populated for data sources that ask for them.
type Tx struct {
	Hash  string
	From  string
	To    string
	Input string
}

// Event is a decoded log delivered to a handler.
type Event struct {
	Name     string
	Address  common.Address
	LogIndex uint64
	Block    Block
	Tx       Tx
	Args     *dex.EventArgs
	Raw      model.LogRecord
}

// ID returns the txHash-logIndex composite id.
func (e *Event) ID() string {
	return e.Tx.Hash + "-" + strconv.FormatUint(e.LogIndex, 10)
}

// AddressHex returns the emitting contract in lower-case hex.
func (e *Event) AddressHex() string {
	return dex.Hex(e.Address)
}

// BlockNumber returns the block number as a big integer for eth_call.
func (e *Event) BlockNumber() *big.Int {
	return new(big.Int).SetUint64(e.Block.Number)
}

// Position returns the block stamp used by snapshots.
func (e *Event) Position() aggregate.Block {
	return aggregate.Block{Number: e.Block.Number, Timestamp: e.Block.Timestamp}
}

// Handler maps one event into entity writes.
type Handler func(ctx context.Context, env *Env, ev *Event) error

// Env is what handlers can touch: the entity store, contract state and template instantiation.
type Env struct {
	Store  storage.Store
	Chain  chain.Caller
	Logger *zap.Logger

	router *Router
}

// Bind returns a contract reading state at the event's block.
func (e *Env) Bind(ev *Event, parsed *abi.ABI, address common.Address) *dex.Contract {
	return dex.Bind(e.Chain, parsed, address, ev.BlockNumber())
}

// Token returns ERC20 accessors for token at the event's block.
func (e *Env) Token(ev *Event, token common.Address) *dex.TokenInfo {
	return dex.NewTokenInfo(e.Chain, token, ev.BlockNumber(), e.Logger)
}

// Create starts indexing address with the named template from the event's block on.
func (e *Env) Create(ev *Event, template string, address common.Address) error {
	if e.router == nil {
		return ErrUnknownTemplate
	}
	return e.router.Create(template, address, ev.Block.Number)
}

// Warn logs a missing entity and is used right before an early return.
func (e *Env) Warn(msg string, ev *Event, fields ...zap.Field) {
	fields = append(fields, zap.String("tx_hash", ev.Tx.Hash), zap.Uint64("block", ev.Block.Number))
	e.Logger.Warn(msg, fields...)
}

// AddressFromHex parses a lower or mixed case hex address.
func AddressFromHex(s string) common.Address {
	return common.HexToAddress(strings.TrimSpace(s))
}
