package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"dexsubgraphs/internal/chain"
)

// Contract binds an ABI to an address at a fixed block height.
// The Try methods treat any call failure as a revert and report ok=false.
type Contract struct {
	caller  chain.Caller
	abi     *abi.ABI
	address common.Address
	block   *big.Int
}

// Bind returns a contract reading state at block. A nil block reads latest state.
func Bind(caller chain.Caller, parsed *abi.ABI, address common.Address, block *big.Int) *Contract {
	return &Contract{caller: caller, abi: parsed, address: address, block: block}
}

func (c *Contract) Address() common.Address {
	return c.address
}

// Call executes method and returns its unpacked outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	if c.caller == nil {
		return nil, fmt.Errorf("call %s: no chain caller", method)
	}
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &c.address, Data: data}
	resp, err := c.caller.CallContract(ctx, msg, c.block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := c.abi.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func (c *Contract) first(ctx context.Context, method string, args ...any) (any, bool) {
	values, err := c.Call(ctx, method, args...)
	if err != nil || len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

func (c *Contract) TryBigInt(ctx context.Context, method string, args ...any) (*big.Int, bool) {
	v, ok := c.first(ctx, method, args...)
	if !ok {
		return nil, false
	}
	out, err := asBigInt(v)
	if err != nil {
		return nil, false
	}
	return out, true
}

func (c *Contract) TryAddress(ctx context.Context, method string, args ...any) (common.Address, bool) {
	v, ok := c.first(ctx, method, args...)
	if !ok {
		return common.Address{}, false
	}
	out, err := asAddress(v)
	if err != nil {
		return common.Address{}, false
	}
	return out, true
}

func (c *Contract) TryString(ctx context.Context, method string, args ...any) (string, bool) {
	v, ok := c.first(ctx, method, args...)
	if !ok {
		return "", false
	}
	if s, isString := v.(string); isString {
		return s, true
	}
	return bytes32ToString(v)
}

func (c *Contract) TryUint8(ctx context.Context, method string, args ...any) (uint8, bool) {
	v, ok := c.first(ctx, method, args...)
	if !ok {
		return 0, false
	}
	out, err := asUint8(v)
	if err != nil {
		return 0, false
	}
	return out, true
}

func (c *Contract) TryBool(ctx context.Context, method string, args ...any) (bool, bool) {
	v, ok := c.first(ctx, method, args...)
	if !ok {
		return false, false
	}
	out, isBool := v.(bool)
	return out, isBool
}

// TryTuple copies all outputs of method into out, a pointer to a struct whose
// exported fields match the output names.
func (c *Contract) TryTuple(ctx context.Context, out any, method string, args ...any) bool {
	if c.caller == nil {
		return false
	}
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return false
	}
	msg := ethereum.CallMsg{To: &c.address, Data: data}
	resp, err := c.caller.CallContract(ctx, msg, c.block)
	if err != nil {
		return false
	}
	if err := c.abi.UnpackIntoInterface(out, method, resp); err != nil {
		return false
	}
	return true
}
