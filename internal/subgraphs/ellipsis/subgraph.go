// Package ellipsis indexes Ellipsis Finance StableSwap pools on BSC.
package ellipsis

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/num"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

const (
	ProtocolName = "Ellipsis Finance"
	ProtocolSlug = "ellipsis-finance"

	SchemaVersion      = "1.3.0"
	SubgraphVersion    = "1.0.0"
	MethodologyVersion = "1.0.0"

	unknown = "unknown"
)

// BSC deployments.
var (
	Registry  = common.HexToAddress("0x266bb386252347b03c7b6eb37f950f476d7c3e63")
	ThreePool = common.HexToAddress("0x160caed03795365f3a589f10c379ffa7d75d4e76")

	BUSD = common.HexToAddress("0xe9e7cea3dedca5984780bafc599bd69add087d56")
	USDC = common.HexToAddress("0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d")
	USDT = common.HexToAddress("0x55d398326f99059ff775485246999027b3197955")
)

// feeDenominator scales StableSwap fee() and admin_fee() values.
var feeDenominator = decimal.New(1, 10)

var hundred = decimal.NewFromInt(100)

// PoolConfig is a pool indexed from StartBlock without a registry event.
type PoolConfig struct {
	Address common.Address
	Coins   int
}

type Config struct {
	// Registry emits PoolAdded. The zero address disables it.
	Registry common.Address
	Pools    []PoolConfig
	// StableCoins are priced at one dollar.
	StableCoins []common.Address
	StartBlock  uint64
}

func DefaultConfig() Config {
	return Config{
		Registry:    Registry,
		Pools:       []PoolConfig{{Address: ThreePool, Coins: 3}},
		StableCoins: []common.Address{BUSD, USDC, USDT},
	}
}

type Subgraph struct {
	cfg    Config
	stable map[common.Address]bool
}

func New(cfg Config) *Subgraph {
	s := &Subgraph{cfg: cfg, stable: make(map[common.Address]bool, len(cfg.StableCoins))}
	for _, addr := range cfg.StableCoins {
		s.stable[addr] = true
	}
	return s
}

// PoolTemplate is the template of pools with n coins.
func PoolTemplate(n int) string {
	return fmt.Sprintf("ellipsis/Pool%d", n)
}

// Register adds the pool templates, starts the configured pools and adds the registry.
func (s *Subgraph) Register(r *subgraph.Router) error {
	for n := MinCoins; n <= MaxCoins; n++ {
		if err := r.RegisterTemplate(&subgraph.DataSource{
			Name: PoolTemplate(n),
			ABI:  PoolABIs[n],
			Handlers: map[string]subgraph.Handler{
				"AddLiquidity":             s.handleAddLiquidity,
				"RemoveLiquidity":          s.handleRemoveLiquidity,
				"RemoveLiquidityOne":       s.handleRemoveLiquidityOne,
				"RemoveLiquidityImbalance": s.handleRemoveLiquidityImbalance,
				"TokenExchange":            s.handleTokenExchange,
			},
		}); err != nil {
			return err
		}
	}
	for _, p := range s.cfg.Pools {
		if p.Coins < MinCoins || p.Coins > MaxCoins {
			return fmt.Errorf("ellipsis pool %s: unsupported coin count %d", p.Address.Hex(), p.Coins)
		}
		if err := r.Create(PoolTemplate(p.Coins), p.Address, s.cfg.StartBlock); err != nil {
			return err
		}
	}
	if s.cfg.Registry == (common.Address{}) {
		return nil
	}
	return r.Register(&subgraph.DataSource{
		Name:       "ellipsis/Registry",
		ABI:        RegistryABI,
		Addresses:  []common.Address{s.cfg.Registry},
		StartBlock: s.cfg.StartBlock,
		Handlers:   map[string]subgraph.Handler{"PoolAdded": s.handlePoolAdded},
	})
}

func (s *Subgraph) protocolID() string {
	if s.cfg.Registry != (common.Address{}) {
		return dex.Hex(s.cfg.Registry)
	}
	return dex.Hex(Registry)
}

func (s *Subgraph) getOrCreateProtocol(ctx context.Context, store storage.Store) (*model.DexAmmProtocol, error) {
	p, ok, err := storage.Load[model.DexAmmProtocol](ctx, store, s.protocolID())
	if err != nil || ok {
		return p, err
	}
	p = model.NewDexAmmProtocol(s.protocolID(), ProtocolName, ProtocolSlug, model.NetworkBSC)
	p.SchemaVersion = SchemaVersion
	p.SubgraphVersion = SubgraphVersion
	p.MethodologyVersion = MethodologyVersion
	return p, nil
}

func (s *Subgraph) getOrCreateToken(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, address common.Address) (*model.Token, error) {
	id := dex.Hex(address)
	token, ok, err := storage.Load[model.Token](ctx, env.Store, id)
	if err != nil || ok {
		return token, err
	}
	info := env.Token(ev, address)
	token = &model.Token{ID: id, Name: unknown, Symbol: unknown, Decimals: dex.DefaultDecimals}
	if v, ok := info.Name(ctx); ok {
		token.Name = v
	}
	if v, ok := info.Symbol(ctx); ok {
		token.Symbol = v
	}
	if v, ok := info.Decimals(ctx); ok {
		token.Decimals = v
	}
	price := decimal.Zero
	if s.stable[address] {
		price = decimal.NewFromInt(1)
	}
	token.LastPriceUSD = decimal.NewNullDecimal(price)
	if err := storage.Save(ctx, env.Store, token); err != nil {
		return nil, err
	}
	return token, nil
}

// coinCount probes coins(i) until it reverts.
func coinCount(ctx context.Context, contract *dex.Contract) []common.Address {
	var coins []common.Address
	for i := 0; i < MaxCoins; i++ {
		addr, ok := contract.TryAddress(ctx, "coins", big.NewInt(int64(i)))
		if !ok {
			break
		}
		coins = append(coins, addr)
	}
	return coins
}

func (s *Subgraph) handlePoolAdded(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	addr := ev.Args.Address("pool")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	coins := coinCount(ctx, env.Bind(ev, PoolABIs[MaxCoins].Must(), addr))
	if len(coins) < MinCoins {
		env.Warn("registry pool without coins", ev, zapPool(addr))
		return nil
	}
	if _, err := s.getOrCreatePool(ctx, env, ev, addr); err != nil {
		return err
	}
	return env.Create(ev, PoolTemplate(len(coins)), addr)
}

// getOrCreatePool loads the pool at address, creating it with its coins, LP token and fees.
func (s *Subgraph) getOrCreatePool(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, address common.Address) (*model.LiquidityPool, error) {
	id := dex.Hex(address)
	pool, ok, err := storage.Load[model.LiquidityPool](ctx, env.Store, id)
	if err != nil || ok {
		return pool, err
	}
	protocol, err := s.getOrCreateProtocol(ctx, env.Store)
	if err != nil {
		return nil, err
	}
	contract := env.Bind(ev, PoolABIs[MaxCoins].Must(), address)
	coins := coinCount(ctx, contract)

	lpAddr, ok := contract.TryAddress(ctx, "lp_token")
	if !ok {
		lpAddr = address
	}
	lpToken, err := s.getOrCreateToken(ctx, env, ev, lpAddr)
	if err != nil {
		return nil, err
	}

	pool = &model.LiquidityPool{
		ID:                      id,
		Protocol:                protocol.ID,
		Name:                    ProtocolName + " " + lpToken.Symbol,
		Symbol:                  lpToken.Symbol,
		OutputToken:             lpToken.ID,
		Fees:                    []string{},
		CreatedTimestamp:        ev.Block.Timestamp,
		CreatedBlockNumber:      ev.Block.Number,
		InputTokenBalances:      num.Zeros(len(coins)),
		InputTokenWeights:       make([]decimal.Decimal, len(coins)),
		OutputTokenSupply:       num.ZeroInt(),
		StakedOutputTokenAmount: num.ZeroInt(),
	}
	for i, coin := range coins {
		token, err := s.getOrCreateToken(ctx, env, ev, coin)
		if err != nil {
			return nil, err
		}
		pool.InputTokens = append(pool.InputTokens, token.ID)
		pool.InputTokenWeights[i] = decimal.Zero
	}

	for _, fee := range poolFees(ctx, contract, id) {
		pool.Fees = append(pool.Fees, fee.ID)
		if err := storage.Save(ctx, env.Store, fee); err != nil {
			return nil, err
		}
	}
	protocol.TotalPoolCount++
	if err := storage.Save(ctx, env.Store, protocol); err != nil {
		return nil, err
	}
	if err := storage.Save(ctx, env.Store, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// poolFees converts fee() and admin_fee() into trading, protocol and LP fee percentages.
func poolFees(ctx context.Context, contract *dex.Contract, poolID string) []*model.LiquidityPoolFee {
	trading, protocol := decimal.Zero, decimal.Zero
	if v, ok := contract.TryBigInt(ctx, "fee"); ok {
		trading = num.Mul(num.Div(num.FromBigInt(v), feeDenominator), hundred)
	}
	if v, ok := contract.TryBigInt(ctx, "admin_fee"); ok {
		protocol = num.Mul(trading, num.Div(num.FromBigInt(v), feeDenominator))
	}
	return []*model.LiquidityPoolFee{
		{ID: "trading-fee-" + poolID, FeePercentage: trading, FeeType: model.FeeTypeTrading},
		{ID: "protocol-fee-" + poolID, FeePercentage: protocol, FeeType: model.FeeTypeProtocol},
		{ID: "lp-fee-" + poolID, FeePercentage: num.Sub(trading, protocol), FeeType: model.FeeTypeLP},
	}
}
