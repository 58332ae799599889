package subgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"dexsubgraphs/internal/chain"
	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/storage"
)

var (
	// ErrUnknownTemplate is returned when instantiating a template that was never registered.
	ErrUnknownTemplate = errors.New("unknown data source template")
	// ErrDecode wraps failures to decode a log some data source matched.
	ErrDecode = errors.New("decode log")
)

// DataSource declares which contracts to watch and which handler runs per event.
// A template is a DataSource without addresses; instances are created at runtime.
type DataSource struct {
	Name       string
	ABI        *dex.LazyABI
	Addresses  []common.Address
	StartBlock uint64
	// Handlers are keyed by ABI event name.
	Handlers map[string]Handler
	// Topics maps extra topic0 values to ABI event names, for anonymous events.
	Topics map[string]string
	// NeedsTx asks the runner for the transaction sender, recipient and input.
	NeedsTx bool
}

type compiledSource struct {
	source *DataSource
	abi    *abi.ABI
	// byTopic maps lower-case topic0 to the ABI event.
	byTopic map[string]abi.Event
}

type binding struct {
	compiled   *compiledSource
	startBlock uint64
}

// Router dispatches logs to the handlers of the data sources watching their address.
type Router struct {
	logger *zap.Logger

	mu         sync.RWMutex
	templates  map[string]*compiledSource
	bindings   map[common.Address][]binding
	created    map[string]struct{}
	topics     map[string]common.Hash
	generation uint64
}

func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		logger:    logger,
		templates: make(map[string]*compiledSource),
		bindings:  make(map[common.Address][]binding),
		created:   make(map[string]struct{}),
		topics:    make(map[string]common.Hash),
	}
}

func compile(ds *DataSource) (*compiledSource, error) {
	if ds.ABI == nil {
		return nil, fmt.Errorf("data source %s: abi is required", ds.Name)
	}
	parsed, err := ds.ABI.Get()
	if err != nil {
		return nil, fmt.Errorf("data source %s: %w", ds.Name, err)
	}
	c := &compiledSource{source: ds, abi: parsed, byTopic: make(map[string]abi.Event)}
	for name := range ds.Handlers {
		event, ok := parsed.Events[name]
		if !ok {
			return nil, fmt.Errorf("data source %s: event %s not in abi", ds.Name, name)
		}
		if !event.Anonymous {
			c.byTopic[dex.Topic0(event)] = event
		}
	}
	for topic, name := range ds.Topics {
		event, ok := parsed.Events[name]
		if !ok {
			return nil, fmt.Errorf("data source %s: event %s not in abi", ds.Name, name)
		}
		if _, ok := ds.Handlers[name]; !ok {
			return nil, fmt.Errorf("data source %s: no handler for %s", ds.Name, name)
		}
		c.byTopic[strings.ToLower(topic)] = event
	}
	return c, nil
}

// Register adds a data source with static addresses.
func (r *Router) Register(ds *DataSource) error {
	c, err := compile(ds)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, addr := range ds.Addresses {
		r.bindLocked(c, addr, ds.StartBlock)
	}
	return nil
}

// RegisterTemplate adds a data source that is instantiated with Create.
func (r *Router) RegisterTemplate(ds *DataSource) error {
	c, err := compile(ds)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.templates[ds.Name]; exists {
		return fmt.Errorf("template %s already registered", ds.Name)
	}
	r.templates[ds.Name] = c
	return nil
}

// Create instantiates template for address from startBlock on. Creating the
// same instance twice is a no-op.
func (r *Router) Create(template string, address common.Address, startBlock uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.templates[template]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, template)
	}
	key := template + ":" + dex.Hex(address)
	if _, exists := r.created[key]; exists {
		return nil
	}
	r.created[key] = struct{}{}
	r.bindLocked(c, address, startBlock)
	r.logger.Debug("data source created",
		zap.String("template", template),
		zap.String("address", dex.Hex(address)),
		zap.Uint64("start_block", startBlock),
	)
	return nil
}

func (r *Router) bindLocked(c *compiledSource, addr common.Address, startBlock uint64) {
	_, known := r.bindings[addr]
	r.bindings[addr] = append(r.bindings[addr], binding{compiled: c, startBlock: startBlock})
	newTopic := false
	for topic := range c.byTopic {
		if _, ok := r.topics[topic]; !ok {
			r.topics[topic] = common.HexToHash(topic)
			newTopic = true
		}
	}
	if !known || newTopic {
		r.generation++
	}
}

// Generation changes whenever the address or topic filter grows.
func (r *Router) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Addresses returns the watched contracts in a stable order.
func (r *Router) Addresses() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.Address, 0, len(r.bindings))
	for addr := range r.bindings {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

// Topics returns every topic0 some handler listens for.
func (r *Router) Topics() []common.Hash {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.Hash, 0, len(r.topics))
	for _, h := range r.topics {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

// StartBlock returns the lowest start block of all bound data sources.
func (r *Router) StartBlock() (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		lowest uint64
		found  bool
	)
	for _, bs := range r.bindings {
		for _, b := range bs {
			if !found || b.startBlock < lowest {
				lowest = b.startBlock
				found = true
			}
		}
	}
	return lowest, found
}

// NeedsTransaction reports whether a handler for record wants transaction metadata.
func (r *Router) NeedsTransaction(record model.LogRecord) bool {
	for _, m := range r.match(record) {
		if m.compiled.source.NeedsTx {
			return true
		}
	}
	return false
}

type match struct {
	compiled *compiledSource
	event    abi.Event
}

func (r *Router) match(record model.LogRecord) []match {
	if len(record.Topics) == 0 || !common.IsHexAddress(record.Address) {
		return nil
	}
	addr := common.HexToAddress(record.Address)
	topic0 := record.Topic0()

	r.mu.RLock()
	bs := append([]binding(nil), r.bindings[addr]...)
	r.mu.RUnlock()

	var out []match
	for _, b := range bs {
		if record.BlockNumber < b.startBlock {
			continue
		}
		event, ok := b.compiled.byTopic[topic0]
		if !ok {
			continue
		}
		out = append(out, match{compiled: b.compiled, event: event})
	}
	return out
}

// Env builds a handler environment bound to this router.
func (r *Router) Env(store storage.Store, caller chain.Caller, logger *zap.Logger) *Env {
	if logger == nil {
		logger = r.logger
	}
	return &Env{Store: store, Chain: caller, Logger: logger, router: r}
}

// Handle decodes record and runs every matching handler in registration order.
// It reports whether any handler ran.
func (r *Router) Handle(ctx context.Context, env *Env, record model.LogRecord) (bool, error) {
	matches := r.match(record)
	if len(matches) == 0 {
		return false, nil
	}
	if env.router == nil {
		env.router = r
	}

	for _, m := range matches {
		args, err := dex.DecodeEvent(m.event, record)
		if err != nil {
			return false, fmt.Errorf("%s: %w %s: %w", m.compiled.source.Name, ErrDecode, m.event.Name, err)
		}
		ev := &Event{
			Name:     m.event.Name,
			Address:  common.HexToAddress(record.Address),
			LogIndex: record.LogIndex,
			Block: Block{
				Number:    record.BlockNumber,
				Timestamp: record.Timestamp,
				Hash:      record.BlockHash,
			},
			Tx: Tx{
				Hash:  strings.ToLower(record.TxHash),
				From:  strings.ToLower(record.TxFrom),
				To:    strings.ToLower(record.TxTo),
				Input: record.TxInput,
			},
			Args: args,
			Raw:  record,
		}
		handler := m.compiled.source.Handlers[m.event.Name]
		if err := handler(ctx, env, ev); err != nil {
			return true, fmt.Errorf("%s: %s at %s: %w", m.compiled.source.Name, m.event.Name, ev.ID(), err)
		}
	}
	return true, nil
}
