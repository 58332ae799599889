package dodo

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexsubgraphs/internal/aggregate"
	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/num"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

// pmmState mirrors PMMPricing.PMMState.
type pmmState struct {
	I  *big.Int
	K  *big.Int
	B  *big.Int
	Q  *big.Int
	B0 *big.Int
	Q0 *big.Int
	R  uint8
}

// getPMMState reads the curve state of a v2 pool. Classical pools have none.
func getPMMState(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, pool *model.LiquidityPool) (*pmmState, bool) {
	if pool.DODO.Type == model.DODOTypeClassical {
		return nil, false
	}
	var state pmmState
	if !env.Bind(ev, PoolABI.Must(), common.HexToAddress(pool.ID)).TryTuple(ctx, &state, "getPMMState") {
		return nil, false
	}
	return &state, true
}

// applyState stores the curve parameters and the 18-decimal reserves of state on pool.
func applyState(pool *model.LiquidityPool, state *pmmState, base, quote *model.Token) {
	pool.DODO.I = state.I
	pool.DODO.K = state.K
	pool.InputTokenBalances = []*big.Int{
		num.ConvertToExp18Int(state.B, base.Decimals),
		num.ConvertToExp18Int(state.Q, quote.Decimals),
	}
}

func (s *Subgraph) newPoolHandler(f factory) subgraph.Handler {
	return func(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
		base, quote := ev.Args.Address("baseToken"), ev.Args.Address("quoteToken")
		creator, addr := ev.Args.Address("creator"), ev.Args.Address(f.arg)
		if err := ev.Args.Err(); err != nil {
			return err
		}
		_, ok, err := storage.Load[model.LiquidityPool](ctx, env.Store, dex.Hex(addr))
		if err != nil {
			return err
		}
		if !ok {
			params := poolParams{
				protocolID:   ev.AddressHex(),
				protocolName: f.name,
				protocolSlug: f.slug,
				address:      addr,
				base:         base,
				quote:        quote,
				timestamp:    ev.Block.Timestamp,
				block:        ev.Block.Number,
				lpFeeRate:    decimal.Zero,
				kind:         f.kind,
			}
			if f.lpToken {
				params.baseLp, params.quoteLp = addr, addr
			}
			pool, err := createPool(ctx, env, ev, params)
			if err != nil {
				return err
			}
			pool.DODO.Creator = dex.Hex(creator)

			var state pmmState
			contract := env.Bind(ev, PoolABI.Must(), addr)
			if contract.TryTuple(ctx, &state, "getPMMState") {
				pool.DODO.I = state.I
				pool.DODO.K = state.K
				pool.InputTokenBalances = []*big.Int{state.B, state.Q}
				if rate, ok := contract.TryBigInt(ctx, "_LP_FEE_RATE_"); ok {
					pool.DODO.LpFeeRate = num.FromBigInt(rate)
				}
				if feeModel, ok := contract.TryAddress(ctx, "_MT_FEE_RATE_MODEL_"); ok {
					pool.DODO.MtFeeRateModel = dex.Hex(feeModel)
				}
				if maintainer, ok := contract.TryAddress(ctx, "_MAINTAINER_"); ok {
					pool.DODO.Maintainer = dex.Hex(maintainer)
				}
			}
			if err := storage.Save(ctx, env.Store, pool); err != nil {
				return err
			}
		}
		return env.Create(ev, f.template, addr)
	}
}

func (s *Subgraph) removePoolHandler(f factory) subgraph.Handler {
	return func(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
		addr := ev.Args.Address(f.arg)
		if err := ev.Args.Err(); err != nil {
			return err
		}
		id := dex.Hex(addr)
		_, ok, err := storage.Load[model.LiquidityPool](ctx, env.Store, id)
		if err != nil || !ok {
			return err
		}
		if err := storage.Remove(ctx, env.Store, model.KindPool, id); err != nil {
			return err
		}
		protocol, ok, err := storage.Load[model.DexAmmProtocol](ctx, env.Store, ev.AddressHex())
		if err != nil || !ok {
			return err
		}
		protocol.TotalPoolCount--
		return storage.Save(ctx, env.Store, protocol)
	}
}

func (s *Subgraph) handleDODOSwap(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	args := ev.Args
	fromAddr, toAddr := args.Address("fromToken"), args.Address("toToken")
	rawFrom, rawTo := args.BigInt("fromAmount"), args.BigInt("toAmount")
	trader := args.AddressHex("trader")
	if err := args.Err(); err != nil {
		return err
	}
	pool, ok, err := loadPool(ctx, env.Store, ev.AddressHex())
	if err != nil || !ok {
		return err
	}
	state, ok := getPMMState(ctx, env, ev, pool)
	if !ok {
		env.Warn("getPMMState reverted", ev, zap.String("pool", pool.ID))
		return nil
	}
	fromToken, err := getOrCreateToken(ctx, env, ev, fromAddr)
	if err != nil {
		return err
	}
	toToken, err := getOrCreateToken(ctx, env, ev, toAddr)
	if err != nil {
		return err
	}
	fromAmount := num.ConvertToExp18(rawFrom, fromToken.Decimals)
	toAmount := num.ConvertToExp18(rawTo, toToken.Decimals)

	base, quote := toToken, fromToken
	baseVolume, quoteVolume := toAmount, fromAmount
	baseLpFee, quoteLpFee := num.CalculateLpFee(baseVolume, pool.DODO.LpFeeRate), decimal.Zero
	if fromToken.ID == pool.InputTokens[0] {
		base, quote = fromToken, toToken
		baseVolume, quoteVolume = fromAmount, toAmount
		baseLpFee, quoteLpFee = decimal.Zero, num.CalculateLpFee(quoteVolume, pool.DODO.LpFeeRate)
	}
	applyState(pool, state, base, quote)
	recordTrade(pool.DODO, baseVolume, quoteVolume, baseLpFee, quoteLpFee)

	swap := &model.Swap{
		ID:           "swap-" + ev.ID(),
		Hash:         ev.Tx.Hash,
		LogIndex:     ev.LogIndex,
		Protocol:     pool.Protocol,
		To:           trader,
		From:         ev.Tx.From,
		BlockNumber:  ev.Block.Number,
		Timestamp:    ev.Block.Timestamp,
		TokenIn:      fromToken.ID,
		AmountIn:     num.ToBigInt(fromAmount),
		AmountInUSD:  decimal.Zero,
		TokenOut:     toToken.ID,
		AmountOut:    num.ToBigInt(toAmount),
		AmountOutUSD: decimal.Zero,
		Pool:         pool.ID,
		DODO: &model.DODOSwap{
			Sender:      trader,
			FeeBase:     baseLpFee,
			FeeQuote:    quoteLpFee,
			BaseVolume:  baseVolume,
			QuoteVolume: quoteVolume,
		},
	}
	if !s.smartRoutes[trader] {
		countTrade(fromToken, fromAmount)
		countTrade(toToken, toAmount)
	}
	return saveSwap(ctx, env, ev, pool, swap, fromToken, toToken)
}

func recordTrade(p *model.DODOPool, baseVolume, quoteVolume, baseFee, quoteFee decimal.Decimal) {
	p.TxCount = inc(p.TxCount)
	p.VolumeBaseToken = num.Add(p.VolumeBaseToken, baseVolume)
	p.VolumeQuoteToken = num.Add(p.VolumeQuoteToken, quoteVolume)
	p.FeeBase = num.Add(p.FeeBase, baseFee)
	p.FeeQuote = num.Add(p.FeeQuote, quoteFee)
}

func countTrade(token *model.Token, amount decimal.Decimal) {
	token.DODO.TxCount = inc(token.DODO.TxCount)
	token.DODO.TradeVolume = num.Add(token.DODO.TradeVolume, amount)
}

func saveSwap(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, pool *model.LiquidityPool, swap *model.Swap, tokens ...*model.Token) error {
	entities := []model.Entity{pool, swap}
	for _, t := range tokens {
		entities = append(entities, t)
	}
	if err := saveAll(ctx, env.Store, entities...); err != nil {
		return err
	}
	block := ev.Position()
	if err := aggregate.PoolSwap(ctx, env.Store, pool, block, swap.TokenIn, swap.AmountIn, swap.TokenOut, swap.AmountOut); err != nil {
		return err
	}
	return aggregate.Usage(ctx, env.Store, pool.Protocol, block, aggregate.ActivitySwap)
}

func (s *Subgraph) handleBuyShares(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	to, shares, total := ev.Args.AddressHex("to"), ev.Args.BigInt("increaseShares"), ev.Args.BigInt("totalShares")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	return s.changeShares(ctx, env, ev, to, to, shares, total, true)
}

func (s *Subgraph) handleSellShares(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	payer, to := ev.Args.AddressHex("payer"), ev.Args.AddressHex("to")
	shares, total := ev.Args.BigInt("decreaseShares"), ev.Args.BigInt("totalShares")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	return s.changeShares(ctx, env, ev, payer, to, shares, total, false)
}

// changeShares records a v2 deposit (buy) or withdraw (sell) from the reserve change
// between the stored balances and a fresh PMM state.
func (s *Subgraph) changeShares(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, user, to string, shares, total *big.Int, buy bool) error {
	pool, ok, err := loadPool(ctx, env.Store, ev.AddressHex())
	if err != nil || !ok {
		return err
	}
	state, ok := getPMMState(ctx, env, ev, pool)
	if !ok {
		env.Warn("getPMMState reverted", ev, zap.String("pool", pool.ID))
		return nil
	}
	base, quote, err := loadPoolTokens(ctx, env, ev, pool)
	if err != nil {
		return err
	}
	lp, err := getOrCreateLpToken(ctx, env, ev, ev.Address, pool.ID)
	if err != nil {
		return err
	}

	previous := num.CloneInts(pool.InputTokenBalances)
	applyState(pool, state, base, quote)
	lpAmount := num.ConvertToExp18Int(shares, lp.Decimals)
	pool.OutputTokenSupply = num.ConvertToExp18Int(total, lp.Decimals)

	base.DODO.TxCount = inc(base.DODO.TxCount)
	quote.DODO.TxCount = inc(quote.DODO.TxCount)
	lp.DODO.TxCount = inc(lp.DODO.TxCount)

	var record model.Entity
	activity := aggregate.ActivityDeposit
	if buy {
		lp.DODO.TotalSupply = new(big.Int).Add(lp.DODO.TotalSupply, lpAmount)
		record = &model.Deposit{
			ID:          ev.ID(),
			Hash:        ev.Tx.Hash,
			LogIndex:    ev.LogIndex,
			Protocol:    pool.Protocol,
			To:          to,
			From:        ev.Tx.From,
			User:        user,
			BlockNumber: ev.Block.Number,
			Timestamp:   ev.Block.Timestamp,
			InputTokens: []string{base.ID, quote.ID},
			OutputToken: lp.ID,
			InputTokenAmounts: []*big.Int{
				new(big.Int).Sub(pool.InputTokenBalances[0], previous[0]),
				new(big.Int).Sub(pool.InputTokenBalances[1], previous[1]),
			},
			OutputTokenAmount: lpAmount,
			AmountUSD:         decimal.Zero,
			Pool:              pool.ID,
		}
	} else {
		activity = aggregate.ActivityWithdraw
		lp.DODO.TotalSupply = new(big.Int).Sub(lp.DODO.TotalSupply, lpAmount)
		record = &model.Withdraw{
			ID:          ev.ID(),
			Hash:        ev.Tx.Hash,
			LogIndex:    ev.LogIndex,
			Protocol:    pool.Protocol,
			To:          to,
			From:        ev.Tx.From,
			User:        user,
			BlockNumber: ev.Block.Number,
			Timestamp:   ev.Block.Timestamp,
			InputTokens: []string{base.ID, quote.ID},
			OutputToken: lp.ID,
			InputTokenAmounts: []*big.Int{
				new(big.Int).Sub(previous[0], pool.InputTokenBalances[0]),
				new(big.Int).Sub(previous[1], pool.InputTokenBalances[1]),
			},
			OutputTokenAmount: lpAmount,
			AmountUSD:         decimal.Zero,
			Pool:              pool.ID,
		}
	}
	if err := saveAll(ctx, env.Store, record, pool, base, quote, lp); err != nil {
		return err
	}
	return aggregate.Usage(ctx, env.Store, pool.Protocol, ev.Position(), activity)
}

func (s *Subgraph) handleLpFeeRateChange(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	pool, ok, err := loadPool(ctx, env.Store, ev.AddressHex())
	if err != nil || !ok || pool.DODO.Type != model.DODOTypeDPP {
		return err
	}
	if rate, ok := env.Bind(ev, PoolABI.Must(), ev.Address).TryBigInt(ctx, "_LP_FEE_RATE_"); ok {
		pool.DODO.LpFeeRate = num.ConvertToExp18(rate, 18)
	}
	// The new rate is only kept together with a readable PMM state.
	state, ok := getPMMState(ctx, env, ev, pool)
	if !ok {
		return nil
	}
	base, quote, err := loadPoolTokens(ctx, env, ev, pool)
	if err != nil {
		return err
	}
	applyState(pool, state, base, quote)
	return storage.Save(ctx, env.Store, pool)
}
