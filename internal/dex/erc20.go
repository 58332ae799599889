package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"dexsubgraphs/internal/chain"
)

const erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	ERC20ABI        = NewLazyABI(erc20ABIStringJSON)
	ERC20Bytes32ABI = NewLazyABI(erc20ABIBytes32JSON)
)

// DefaultDecimals is used when decimals() reverts.
const DefaultDecimals = 18

// TokenInfo reads ERC20 state of one token.
type TokenInfo struct {
	erc20   *Contract
	bytes32 *Contract
	address common.Address
	logger  *zap.Logger
}

// NewTokenInfo binds the ERC20 ABIs to token at block.
func NewTokenInfo(caller chain.Caller, token common.Address, block *big.Int, logger *zap.Logger) *TokenInfo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenInfo{
		erc20:   Bind(caller, ERC20ABI.Must(), token, block),
		bytes32: Bind(caller, ERC20Bytes32ABI.Must(), token, block),
		address: token,
		logger:  logger,
	}
}

// Decimals returns decimals(), or ok=false on revert.
func (t *TokenInfo) Decimals(ctx context.Context) (int, bool) {
	v, ok := t.erc20.TryUint8(ctx, "decimals")
	return int(v), ok
}

// Symbol returns symbol(), falling back to the bytes32 variant.
func (t *TokenInfo) Symbol(ctx context.Context) (string, bool) {
	return t.text(ctx, "symbol")
}

// Name returns name(), falling back to the bytes32 variant.
func (t *TokenInfo) Name(ctx context.Context) (string, bool) {
	return t.text(ctx, "name")
}

func (t *TokenInfo) text(ctx context.Context, method string) (string, bool) {
	if v, ok := t.erc20.TryString(ctx, method); ok {
		return v, true
	}
	if v, ok := t.bytes32.TryString(ctx, method); ok {
		return v, true
	}
	t.logger.Debug(method+" call failed", zap.String("token", t.address.Hex()))
	return "", false
}

// TotalSupply returns totalSupply(), or ok=false on revert.
func (t *TokenInfo) TotalSupply(ctx context.Context) (*big.Int, bool) {
	return t.erc20.TryBigInt(ctx, "totalSupply")
}

// BalanceOf returns balanceOf(owner), or ok=false on revert.
func (t *TokenInfo) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, bool) {
	return t.erc20.TryBigInt(ctx, "balanceOf", owner)
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
