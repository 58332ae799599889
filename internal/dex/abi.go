package dex

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// LazyABI parses an ABI JSON document on first use.
type LazyABI struct {
	json string

	once   sync.Once
	parsed abi.ABI
	err    error
}

func NewLazyABI(json string) *LazyABI {
	return &LazyABI{json: json}
}

// Get returns the parsed ABI.
func (l *LazyABI) Get() (*abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	if l.err != nil {
		return nil, l.err
	}
	return &l.parsed, nil
}

// Must returns the parsed ABI and panics if the document is invalid.
func (l *LazyABI) Must() *abi.ABI {
	parsed, err := l.Get()
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

// ParseABI parses an ABI JSON document.
func ParseABI(json string) (*abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(json))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	return &parsed, nil
}

// Hex returns the lower-case hex form of an address, the form used for entity ids.
func Hex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// ZeroAddress is the lower-case zero address.
var ZeroAddress = Hex(common.Address{})
