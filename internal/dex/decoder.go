package dex

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"dexsubgraphs/internal/model"
)

// EventArgs holds decoded event arguments by ABI name. Accessors return zero
// values on missing or mistyped arguments and record the first failure in Err.
type EventArgs struct {
	event  string
	values map[string]any
	err    error
}

// NewEventArgs wraps already decoded values.
func NewEventArgs(event string, values map[string]any) *EventArgs {
	if values == nil {
		values = make(map[string]any)
	}
	return &EventArgs{event: event, values: values}
}

// DecodeEvent decodes a log into named arguments. Anonymous events have no
// signature topic so every topic is an indexed argument.
func DecodeEvent(event abi.Event, log model.LogRecord) (*EventArgs, error) {
	topics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, fmt.Errorf("%s topics: %w", event.Name, err)
	}

	values := make(map[string]any, len(event.Inputs))
	if err := abi.ParseTopicsIntoMap(values, indexedArguments(event.Inputs), topics); err != nil {
		return nil, fmt.Errorf("%s indexed: %w", event.Name, err)
	}
	if err := unpackNonIndexed(event, log.Data, values); err != nil {
		return nil, err
	}
	return NewEventArgs(event.Name, values), nil
}

// Err returns the first accessor failure.
func (a *EventArgs) Err() error {
	return a.err
}

// Raw returns the decoded value as produced by the ABI decoder.
func (a *EventArgs) Raw(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

func (a *EventArgs) fail(name string, err error) {
	if a.err == nil {
		a.err = fmt.Errorf("%s.%s: %w", a.event, name, err)
	}
}

func (a *EventArgs) lookup(name string) (any, bool) {
	v, ok := a.values[name]
	if !ok {
		a.fail(name, fmt.Errorf("missing argument"))
	}
	return v, ok
}

// BigInt returns an integer argument of any width.
func (a *EventArgs) BigInt(name string) *big.Int {
	v, ok := a.lookup(name)
	if !ok {
		return new(big.Int)
	}
	out, err := asBigInt(v)
	if err != nil {
		a.fail(name, err)
		return new(big.Int)
	}
	return out
}

// Address returns an address argument.
func (a *EventArgs) Address(name string) common.Address {
	v, ok := a.lookup(name)
	if !ok {
		return common.Address{}
	}
	out, err := asAddress(v)
	if err != nil {
		a.fail(name, err)
	}
	return out
}

// AddressHex returns an address argument in lower-case hex.
func (a *EventArgs) AddressHex(name string) string {
	return Hex(a.Address(name))
}

// Bool returns a bool argument.
func (a *EventArgs) Bool(name string) bool {
	v, ok := a.lookup(name)
	if !ok {
		return false
	}
	out, isBool := v.(bool)
	if !isBool {
		a.fail(name, fmt.Errorf("unsupported bool type %T", v))
	}
	return out
}

// Uint8 returns a small unsigned argument.
func (a *EventArgs) Uint8(name string) uint8 {
	v, ok := a.lookup(name)
	if !ok {
		return 0
	}
	out, err := asUint8(v)
	if err != nil {
		a.fail(name, err)
	}
	return out
}

// Bytes returns a dynamic or fixed bytes argument.
func (a *EventArgs) Bytes(name string) []byte {
	v, ok := a.lookup(name)
	if !ok {
		return nil
	}
	switch b := v.(type) {
	case []byte:
		return b
	case [4]byte:
		return b[:]
	case [32]byte:
		return b[:]
	case common.Hash:
		return b.Bytes()
	}
	a.fail(name, fmt.Errorf("unsupported bytes type %T", v))
	return nil
}

// Hash returns a bytes32 argument.
func (a *EventArgs) Hash(name string) common.Hash {
	return common.BytesToHash(a.Bytes(name))
}

// String returns a string argument.
func (a *EventArgs) String(name string) string {
	v, ok := a.lookup(name)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case [32]byte:
		out, _ := bytes32ToString(s)
		return out
	}
	a.fail(name, fmt.Errorf("unsupported string type %T", v))
	return ""
}

// BigInts returns an integer array argument.
func (a *EventArgs) BigInts(name string) []*big.Int {
	v, ok := a.lookup(name)
	if !ok {
		return nil
	}
	// fixed-size arrays decode as [N]*big.Int
	rv := reflect.ValueOf(v)
	if (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || rv.Type().Elem() != reflect.TypeOf((*big.Int)(nil)) {
		a.fail(name, fmt.Errorf("unsupported array type %T", v))
		return nil
	}
	out := make([]*big.Int, rv.Len())
	for i := range out {
		out[i] = new(big.Int).Set(rv.Index(i).Interface().(*big.Int))
	}
	return out
}

// Tuple converts a tuple or tuple array argument into out, which must be a
// pointer to a struct (or slice of structs) with matching exported fields.
func (a *EventArgs) Tuple(name string, out any) {
	v, ok := a.lookup(name)
	if !ok {
		return
	}
	if err := convertInto(v, out); err != nil {
		a.fail(name, err)
	}
}

func convertInto(v, out any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("convert %T: %v", v, r)
		}
	}()
	abi.ConvertType(v, out)
	return nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if !event.Anonymous {
		indexedCount++
	}
	if len(topics) != indexedCount {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount, len(topics))
	}
	if event.Anonymous {
		return parseTopicHashes(topics)
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string, out map[string]any) error {
	if dataHex == "" {
		dataHex = "0x"
	}
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return fmt.Errorf("invalid data: %w", err)
	}
	if err := event.Inputs.NonIndexed().UnpackIntoMap(out, data); err != nil {
		return fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return nil
}

// Topic0 returns the lower-case signature hash of an event.
func Topic0(event abi.Event) string {
	return strings.ToLower(event.ID.Hex())
}
