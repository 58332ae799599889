// Package chaintest provides an in-memory contract caller for handler tests.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrReverted is returned for calls without a registered result.
var ErrReverted = errors.New("execution reverted")

// Caller answers eth_call with registered results keyed by contract and calldata.
type Caller struct {
	mu      sync.RWMutex
	results map[string][]byte
	calls   int
}

func NewCaller() *Caller {
	return &Caller{results: make(map[string][]byte)}
}

func key(addr common.Address, data []byte) string {
	return strings.ToLower(addr.Hex()) + ":" + common.Bytes2Hex(data)
}

// Set registers the raw return data for a call.
func (c *Caller) Set(addr common.Address, calldata, output []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[key(addr, calldata)] = output
}

// Mock registers the ABI-encoded outputs for method called with args on addr.
func (c *Caller) Mock(parsed *abi.ABI, addr common.Address, method string, args []any, outputs ...any) error {
	m, ok := parsed.Methods[method]
	if !ok {
		return fmt.Errorf("method %s not in abi", method)
	}
	calldata, err := parsed.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := m.Outputs.Pack(outputs...)
	if err != nil {
		return fmt.Errorf("pack %s outputs: %w", method, err)
	}
	c.Set(addr, calldata, out)
	return nil
}

// MustMock is Mock that panics on error.
func (c *Caller) MustMock(parsed *abi.ABI, addr common.Address, method string, args []any, outputs ...any) {
	if err := c.Mock(parsed, addr, method, args, outputs...); err != nil {
		panic(err)
	}
}

// Calls returns the number of calls served or reverted.
func (c *Caller) Calls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls
}

func (c *Caller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil {
		return nil, ErrReverted
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	out, ok := c.results[key(*msg.To, msg.Data)]
	if !ok {
		return nil, ErrReverted
	}
	return out, nil
}
