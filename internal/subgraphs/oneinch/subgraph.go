// Package oneinch indexes Mooniswap pools deployed by the 1inch factories.
package oneinch

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/num"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

const (
	ProtocolName = "1inchV10"
	ProtocolSlug = "1inch-v10"
	PoolTemplate = "oneinch/Pool"
	// PoolName is shared by every pool of both factories.
	PoolName = "1inch-v10"

	SchemaVersion      = "1.3.0"
	SubgraphVersion    = "1.0.0"
	MethodologyVersion = "1.0.0"
)

// Multicall answers getEthBalance for pools holding native ETH.
var Multicall = common.HexToAddress("0xeefba1e63905ef1d7acba5a8513c70307c1ce441")

// Mainnet factories.
var (
	FactoryV10 = common.HexToAddress("0x71cd6666064c3a1354a3b4dca5fa1e2d3ee7d303")
	FactoryV11 = common.HexToAddress("0xbaf9a5d4b0052359326a6cdab54babaa3a3a9643")
)

const unknown = "unknown"

type Config struct {
	Factories  []common.Address
	StartBlock uint64
}

func DefaultConfig() Config {
	return Config{Factories: []common.Address{FactoryV10, FactoryV11}}
}

// Register adds the factories and the pool template.
func Register(r *subgraph.Router, cfg Config) error {
	if err := r.RegisterTemplate(&subgraph.DataSource{
		Name:     PoolTemplate,
		ABI:      PoolABI,
		Handlers: map[string]subgraph.Handler{"Transfer": handleTransfer},
	}); err != nil {
		return err
	}
	return r.Register(&subgraph.DataSource{
		Name:       "oneinch/MooniswapFactory",
		ABI:        FactoryABI,
		Addresses:  cfg.Factories,
		StartBlock: cfg.StartBlock,
		Handlers:   map[string]subgraph.Handler{"Deployed": handleDeployed},
	})
}

func handleDeployed(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	args := ev.Args
	poolAddr, token0Addr, token1Addr := args.Address("mooniswap"), args.Address("token1"), args.Address("token2")
	if err := args.Err(); err != nil {
		return err
	}
	_, exists, err := storage.Load[model.LiquidityPool](ctx, env.Store, dex.Hex(poolAddr))
	if err != nil || exists {
		return err
	}

	protocol, err := getOrCreateProtocol(ctx, env.Store, ev.AddressHex())
	if err != nil {
		return err
	}
	token0, err := getOrCreateToken(ctx, env, ev, token0Addr)
	if err != nil {
		return err
	}
	token1, err := getOrCreateToken(ctx, env, ev, token1Addr)
	if err != nil {
		return err
	}

	pool := &model.LiquidityPool{
		ID:                      dex.Hex(poolAddr),
		Protocol:                protocol.ID,
		Name:                    PoolName,
		Symbol:                  token0.Symbol + "-" + token1.Symbol,
		InputTokens:             []string{token0.ID, token1.ID},
		Fees:                    []string{},
		IsSingleSided:           true,
		CreatedTimestamp:        ev.Block.Timestamp,
		CreatedBlockNumber:      ev.Block.Number,
		InputTokenBalances:      num.Zeros(2),
		InputTokenWeights:       []decimal.Decimal{num.Exp18, num.Exp18},
		OutputTokenSupply:       num.ZeroInt(),
		StakedOutputTokenAmount: num.ZeroInt(),
		OneInch:                 &model.OneInchPool{},
	}
	protocol.TotalPoolCount++

	if err := env.Create(ev, PoolTemplate, poolAddr); err != nil {
		return err
	}
	for _, e := range []model.Entity{pool, protocol} {
		if err := storage.Save(ctx, env.Store, e); err != nil {
			return err
		}
	}
	return nil
}

func handleTransfer(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	pool, ok, err := storage.Load[model.LiquidityPool](ctx, env.Store, ev.AddressHex())
	if err != nil {
		return err
	}
	if !ok {
		env.Warn("pool not found", ev, zap.String("pool", ev.AddressHex()))
		return nil
	}
	if len(pool.InputTokens) != 2 {
		env.Warn("pool without two input tokens", ev, zap.String("pool", pool.ID))
		return nil
	}

	balances := num.CloneInts(pool.InputTokenBalances)
	for len(balances) < 2 {
		balances = append(balances, num.ZeroInt())
	}
	for i, tokenID := range pool.InputTokens {
		bal, ok, err := poolBalance(ctx, env, ev, tokenID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		balances[i] = bal
	}
	pool.InputTokenBalances = balances

	if pool.OneInch == nil {
		pool.OneInch = &model.OneInchPool{}
	}
	contract := env.Bind(ev, PoolABI.Must(), ev.Address)
	if fee, ok := contract.TryBigInt(ctx, "fee"); ok {
		pool.OneInch.Fee = num.ConvertToExp18(fee, 18)
	}
	if slippage, ok := contract.TryBigInt(ctx, "slippageFee"); ok {
		pool.OneInch.Slippage = num.ConvertToExp18(slippage, 18)
	}
	return storage.Save(ctx, env.Store, pool)
}

// poolBalance returns the pool's holding of tokenID rescaled to 18 decimals.
// The zero address stands for native ETH.
func poolBalance(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, tokenID string) (*big.Int, bool, error) {
	if tokenID == dex.ZeroAddress {
		multicall := env.Bind(ev, MulticallABI.Must(), Multicall)
		bal, ok := multicall.TryBigInt(ctx, "getEthBalance", ev.Address)
		if !ok {
			bal = num.ZeroInt()
		}
		return num.ConvertToExp18Int(bal, 18), true, nil
	}

	token, ok, err := storage.Load[model.Token](ctx, env.Store, tokenID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		env.Warn("token not found", ev, zap.String("token", tokenID), zap.String("pool", ev.AddressHex()))
		return nil, false, nil
	}
	bal, ok := env.Token(ev, subgraph.AddressFromHex(tokenID)).BalanceOf(ctx, ev.Address)
	if !ok {
		bal = num.ZeroInt()
	}
	return num.ConvertToExp18Int(bal, token.Decimals), true, nil
}

func getOrCreateProtocol(ctx context.Context, store storage.Store, id string) (*model.DexAmmProtocol, error) {
	p, ok, err := storage.Load[model.DexAmmProtocol](ctx, store, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		p = model.NewDexAmmProtocol(id, ProtocolName, ProtocolSlug, model.NetworkMainnet)
	}
	p.SchemaVersion = SchemaVersion
	p.SubgraphVersion = SubgraphVersion
	p.MethodologyVersion = MethodologyVersion
	return p, nil
}

func getOrCreateToken(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, address common.Address) (*model.Token, error) {
	id := dex.Hex(address)
	token, ok, err := storage.Load[model.Token](ctx, env.Store, id)
	if err != nil || ok {
		return token, err
	}
	info := env.Token(ev, address)
	token = &model.Token{
		ID:           id,
		Name:         unknown,
		Symbol:       unknown,
		Decimals:     dex.DefaultDecimals,
		LastPriceUSD: decimal.NewNullDecimal(decimal.Zero),
	}
	if d, ok := info.Decimals(ctx); ok {
		token.Decimals = d
	}
	if name, ok := info.Name(ctx); ok {
		token.Name = name
	}
	if symbol, ok := info.Symbol(ctx); ok {
		token.Symbol = symbol
	}
	if err := storage.Save(ctx, env.Store, token); err != nil {
		return nil, err
	}
	return token, nil
}
