// Package balancer indexes Balancer v1 pools, including configurable rights pools.
package balancer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/num"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

const (
	ProtocolName = "Balancer v1"
	ProtocolSlug = "balancer-v1"

	SchemaVersion      = "1.3.0"
	SubgraphVersion    = "1.0.0"
	MethodologyVersion = "1.0.0"

	PoolTemplate          = "balancer/Pool"
	CrpControllerTemplate = "balancer/CrpController"

	color = "Bronze"
)

// Mainnet deployments.
var (
	Factory    = common.HexToAddress("0x9424b1412450d0f8fc2255faf6046b98213b76bd")
	CRPFactory = common.HexToAddress("0xed52d8e202401645edad1c0aa21e872498ce47d0")
)

// defaultSwapFee is the swap fee a pool starts with until setSwapFee is seen.
var defaultSwapFee = decimal.RequireFromString("100000000000000000000")

// LOG_CALL selectors.
const (
	sigSetSwapFee    = "0x34e19907"
	sigSetController = "0x92eefe9b"
	sigSetPublicSwap = "0x49b59552"
	sigFinalize      = "0x4bb278f3"
	sigBind          = "0xe4e1e538"
	sigRebind        = "0x3fdddaa2"
	sigUnbind        = "0xcf5e7bd3"
)

var logCallSelectors = []string{
	sigSetSwapFee, sigSetController, sigSetPublicSwap, sigFinalize, sigBind, sigRebind, sigUnbind,
}

type Config struct {
	Factory    common.Address
	CRPFactory common.Address
	StartBlock uint64
}

func DefaultConfig() Config {
	return Config{Factory: Factory, CRPFactory: CRPFactory}
}

type Subgraph struct {
	cfg Config
}

func New(cfg Config) *Subgraph {
	return &Subgraph{cfg: cfg}
}

// sigTopic is the topic0 of an anonymous LOG_CALL for selector.
func sigTopic(selector string) string {
	return common.BytesToHash(common.RightPadBytes(hexutil.MustDecode(selector), 32)).Hex()
}

func (s *Subgraph) Register(r *subgraph.Router) error {
	topics := make(map[string]string, len(logCallSelectors))
	for _, sel := range logCallSelectors {
		topics[sigTopic(sel)] = "LOG_CALL"
	}
	if err := r.RegisterTemplate(&subgraph.DataSource{
		Name: PoolTemplate,
		ABI:  PoolABI,
		Handlers: map[string]subgraph.Handler{
			"LOG_CALL": s.handleLogCall,
			"LOG_JOIN": s.handleJoin,
			"LOG_EXIT": s.handleExit,
			"LOG_SWAP": s.handleSwap,
		},
		Topics:  topics,
		NeedsTx: true,
	}); err != nil {
		return err
	}
	if err := r.RegisterTemplate(&subgraph.DataSource{
		Name:     CrpControllerTemplate,
		ABI:      CRPABI,
		Handlers: map[string]subgraph.Handler{"OwnershipTransferred": s.handleSetCrpController},
	}); err != nil {
		return err
	}
	return r.Register(&subgraph.DataSource{
		Name:       "balancer/Factory",
		ABI:        FactoryABI,
		Addresses:  []common.Address{s.cfg.Factory},
		StartBlock: s.cfg.StartBlock,
		Handlers:   map[string]subgraph.Handler{"LOG_NEW_POOL": s.handleNewPool},
	})
}

func (s *Subgraph) protocolID() string {
	return dex.Hex(s.cfg.Factory)
}

func getOrCreateProtocol(ctx context.Context, store storage.Store, id string) (*model.DexAmmProtocol, error) {
	p, ok, err := storage.Load[model.DexAmmProtocol](ctx, store, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		p = model.NewDexAmmProtocol(id, ProtocolName, ProtocolSlug, model.NetworkMainnet)
		p.Balancer = &model.BalancerProtocol{Color: color, TxCount: num.ZeroInt()}
	}
	if p.Balancer == nil {
		p.Balancer = &model.BalancerProtocol{Color: color, TxCount: num.ZeroInt()}
	}
	p.SchemaVersion = SchemaVersion
	p.SubgraphVersion = SubgraphVersion
	p.MethodologyVersion = MethodologyVersion
	return p, nil
}

// getOrCreatePool returns the pool, or a blank one attributed to the factory.
func (s *Subgraph) getOrCreatePool(ctx context.Context, store storage.Store, id string, block subgraph.Block) (*model.LiquidityPool, error) {
	pool, ok, err := storage.Load[model.LiquidityPool](ctx, store, id)
	if err != nil {
		return nil, err
	}
	if ok {
		if pool.Balancer == nil {
			pool.Balancer = newBalancerPool()
		}
		return pool, nil
	}
	return &model.LiquidityPool{
		ID:                      id,
		Protocol:                s.protocolID(),
		InputTokens:             []string{},
		Fees:                    []string{},
		InputTokenBalances:      []*big.Int{},
		InputTokenWeights:       []decimal.Decimal{},
		CreatedTimestamp:        block.Timestamp,
		CreatedBlockNumber:      block.Number,
		OutputTokenSupply:       num.ZeroInt(),
		StakedOutputTokenAmount: num.ZeroInt(),
		Balancer:                newBalancerPool(),
	}, nil
}

func newBalancerPool() *model.BalancerPool {
	return &model.BalancerPool{
		Rights:       []string{},
		Active:       true,
		SwapFee:      defaultSwapFee,
		TokensCount:  num.ZeroInt(),
		HoldersCount: num.ZeroInt(),
		JoinsCount:   num.ZeroInt(),
		ExitsCount:   num.ZeroInt(),
		SwapsCount:   num.ZeroInt(),
	}
}

func getOrCreateToken(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, address common.Address) (*model.Token, error) {
	id := dex.Hex(address)
	token, ok, err := storage.Load[model.Token](ctx, env.Store, id)
	if err != nil || ok {
		return token, err
	}
	info := env.Token(ev, address)
	token = &model.Token{ID: id, Decimals: dex.DefaultDecimals}
	token.Symbol, _ = info.Symbol(ctx)
	token.Name, _ = info.Name(ctx)
	if d, ok := info.Decimals(ctx); ok {
		token.Decimals = d
	}
	if err := storage.Save(ctx, env.Store, token); err != nil {
		return nil, err
	}
	return token, nil
}

// deactivate marks pool inactive and takes it out of the protocol's counters once.
func deactivate(ctx context.Context, store storage.Store, pool *model.LiquidityPool) error {
	if !pool.Balancer.Active {
		return nil
	}
	pool.Balancer.Active = false
	protocol, ok, err := storage.Load[model.DexAmmProtocol](ctx, store, pool.Protocol)
	if err != nil || !ok {
		return err
	}
	protocol.TotalPoolCount--
	if protocol.Balancer != nil {
		if pool.Balancer.Finalized {
			protocol.Balancer.FinalizedPoolCount--
		}
		if pool.Balancer.Crp {
			protocol.Balancer.CrpCount--
		}
	}
	return storage.Save(ctx, store, protocol)
}
