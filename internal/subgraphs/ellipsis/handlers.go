package ellipsis

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

func zapPool(addr common.Address) zap.Field {
	return zap.String("pool", dex.Hex(addr))
}

func (s *Subgraph) handleAddLiquidity(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	provider := ev.Args.AddressHex("provider")
	amounts, supply := ev.Args.BigInts("token_amounts"), ev.Args.BigInt("token_supply")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, err := s.getOrCreatePool(ctx, env, ev, ev.Address)
	if err != nil {
		return err
	}
	tokens, err := s.poolTokens(ctx, env, ev, pool)
	if err != nil {
		return err
	}
	if len(amounts) != len(tokens) {
		env.Warn("deposit coin count mismatch", ev, zapPool(ev.Address), zap.Int("amounts", len(amounts)))
		return nil
	}

	minted := new(big.Int).Sub(supply, pool.OutputTokenSupply)
	amountUSD := usdValue(tokens, amounts)
	s.refreshPool(ctx, env, ev, pool, tokens, supply)

	deposit := &model.Deposit{
		ID:                "deposit-" + ev.ID(),
		Hash:              ev.Tx.Hash,
		LogIndex:          ev.LogIndex,
		Protocol:          pool.Protocol,
		To:                pool.ID,
		From:              provider,
		BlockNumber:       ev.Block.Number,
		Timestamp:         ev.Block.Timestamp,
		InputTokens:       pool.InputTokens,
		OutputToken:       pool.OutputToken,
		InputTokenAmounts: amounts,
		OutputTokenAmount: minted,
		AmountUSD:         amountUSD,
		Pool:              pool.ID,
	}
	if err := storage.Save(ctx, env.Store, deposit); err != nil {
		return err
	}
	if err := s.savePool(ctx, env, pool); err != nil {
		return err
	}
	env.Logger.Debug("ellipsis deposit",
		zap.String("pool", pool.ID),
		zap.String("minted", minted.String()),
		zap.String("amountUSD", amountUSD.StringFixed(1)),
		zap.String("tx", ev.Tx.Hash),
	)
	return aggregate.Usage(ctx, env.Store, pool.Protocol, ev.Position(), aggregate.ActivityDeposit)
}

func (s *Subgraph) handleRemoveLiquidity(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	provider := ev.Args.AddressHex("provider")
	amounts, supply := ev.Args.BigInts("token_amounts"), ev.Args.BigInt("token_supply")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	return s.withdraw(ctx, env, ev, provider, amounts, supply)
}

func (s *Subgraph) handleRemoveLiquidityImbalance(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	return s.handleRemoveLiquidity(ctx, env, ev)
}

// handleRemoveLiquidityOne withdraws a single coin. The event names neither the
// coin nor the new supply, so the coin is the one whose balance fell and the
// supply is read from the LP token.
func (s *Subgraph) handleRemoveLiquidityOne(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	provider := ev.Args.AddressHex("provider")
	burned, coinAmount := ev.Args.BigInt("token_amount"), ev.Args.BigInt("coin_amount")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, err := s.getOrCreatePool(ctx, env, ev, ev.Address)
	if err != nil {
		return err
	}
	fresh := s.fetchBalances(ctx, env, ev, pool)
	amounts := num.Zeros(len(pool.InputTokens))
	coin, drop := -1, new(big.Int)
	for i := range fresh {
		delta := new(big.Int).Sub(pool.InputTokenBalances[i], fresh[i])
		if delta.Cmp(drop) > 0 {
			coin, drop = i, delta
		}
	}
	if coin < 0 {
		env.Warn("withdrawn coin not found", ev, zapPool(ev.Address))
	} else {
		amounts[coin] = coinAmount
	}

	supply := new(big.Int).Sub(pool.OutputTokenSupply, burned)
	if v, ok := env.Token(ev, common.HexToAddress(pool.OutputToken)).TotalSupply(ctx); ok {
		supply = v
	}
	return s.withdraw(ctx, env, ev, provider, amounts, supply)
}

func (s *Subgraph) withdraw(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, provider string, amounts []*big.Int, supply *big.Int) error {
	pool, err := s.getOrCreatePool(ctx, env, ev, ev.Address)
	if err != nil {
		return err
	}
	tokens, err := s.poolTokens(ctx, env, ev, pool)
	if err != nil {
		return err
	}
	if len(amounts) != len(tokens) {
		env.Warn("withdraw coin count mismatch", ev, zapPool(ev.Address), zap.Int("amounts", len(amounts)))
		return nil
	}

	burned := new(big.Int).Sub(pool.OutputTokenSupply, supply)
	amountUSD := usdValue(tokens, amounts)
	s.refreshPool(ctx, env, ev, pool, tokens, supply)

	withdraw := &model.Withdraw{
		ID:                "withdraw-" + ev.ID(),
		Hash:              ev.Tx.Hash,
		LogIndex:          ev.LogIndex,
		Protocol:          pool.Protocol,
		To:                provider,
		From:              pool.ID,
		BlockNumber:       ev.Block.Number,
		Timestamp:         ev.Block.Timestamp,
		InputTokens:       pool.InputTokens,
		OutputToken:       pool.OutputToken,
		InputTokenAmounts: amounts,
		OutputTokenAmount: burned,
		AmountUSD:         amountUSD,
		Pool:              pool.ID,
	}
	if err := storage.Save(ctx, env.Store, withdraw); err != nil {
		return err
	}
	if err := s.savePool(ctx, env, pool); err != nil {
		return err
	}
	return aggregate.Usage(ctx, env.Store, pool.Protocol, ev.Position(), aggregate.ActivityWithdraw)
}

func (s *Subgraph) handleTokenExchange(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	buyer := ev.Args.AddressHex("buyer")
	soldID, sold := ev.Args.BigInt("sold_id"), ev.Args.BigInt("tokens_sold")
	boughtID, bought := ev.Args.BigInt("bought_id"), ev.Args.BigInt("tokens_bought")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, err := s.getOrCreatePool(ctx, env, ev, ev.Address)
	if err != nil {
		return err
	}
	tokens, err := s.poolTokens(ctx, env, ev, pool)
	if err != nil {
		return err
	}
	n := int64(len(tokens))
	if !soldID.IsInt64() || !boughtID.IsInt64() || soldID.Int64() < 0 || soldID.Int64() >= n || boughtID.Int64() < 0 || boughtID.Int64() >= n {
		env.Warn("exchange coin out of range", ev, zapPool(ev.Address),
			zap.String("soldId", soldID.String()), zap.String("boughtId", boughtID.String()))
		return nil
	}
	tokenIn, tokenOut := tokens[soldID.Int64()], tokens[boughtID.Int64()]
	amountInUSD := usdValue([]*model.Token{tokenIn}, []*big.Int{sold})
	amountOutUSD := usdValue([]*model.Token{tokenOut}, []*big.Int{bought})
	s.refreshPool(ctx, env, ev, pool, tokens, pool.OutputTokenSupply)
	pool.CumulativeVolumeUSD = num.Add(pool.CumulativeVolumeUSD, amountInUSD)

	swap := &model.Swap{
		ID:           "swap-" + ev.ID(),
		Hash:         ev.Tx.Hash,
		LogIndex:     ev.LogIndex,
		Protocol:     pool.Protocol,
		To:           pool.ID,
		From:         buyer,
		BlockNumber:  ev.Block.Number,
		Timestamp:    ev.Block.Timestamp,
		TokenIn:      tokenIn.ID,
		AmountIn:     sold,
		AmountInUSD:  amountInUSD,
		TokenOut:     tokenOut.ID,
		AmountOut:    bought,
		AmountOutUSD: amountOutUSD,
		Pool:         pool.ID,
	}
	if err := storage.Save(ctx, env.Store, swap); err != nil {
		return err
	}
	protocol, err := s.getOrCreateProtocol(ctx, env.Store)
	if err != nil {
		return err
	}
	protocol.CumulativeVolumeUSD = num.Add(protocol.CumulativeVolumeUSD, amountInUSD)
	if err := storage.Save(ctx, env.Store, protocol); err != nil {
		return err
	}
	if err := s.savePool(ctx, env, pool); err != nil {
		return err
	}
	block := ev.Position()
	if err := aggregate.PoolSwap(ctx, env.Store, pool, block, tokenIn.ID, sold, tokenOut.ID, bought); err != nil {
		return err
	}
	return aggregate.Usage(ctx, env.Store, pool.Protocol, block, aggregate.ActivitySwap)
}

func (s *Subgraph) poolTokens(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, pool *model.LiquidityPool) ([]*model.Token, error) {
	tokens := make([]*model.Token, 0, len(pool.InputTokens))
	for _, id := range pool.InputTokens {
		token, err := s.getOrCreateToken(ctx, env, ev, common.HexToAddress(id))
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// usdValue sums amounts scaled by token decimals and priced at the last known USD price.
func usdValue(tokens []*model.Token, amounts []*big.Int) decimal.Decimal {
	total := decimal.Zero
	for i, token := range tokens {
		if i >= len(amounts) || !token.LastPriceUSD.Valid {
			continue
		}
		total = num.Add(total, num.Mul(num.ConvertTokenToDecimal(amounts[i], token.Decimals), token.LastPriceUSD.Decimal))
	}
	return total
}

// fetchBalances reads balances(i). Reverted reads keep the stored balance.
func (s *Subgraph) fetchBalances(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, pool *model.LiquidityPool) []*big.Int {
	contract := env.Bind(ev, PoolABIs[MaxCoins].Must(), ev.Address)
	balances := num.CloneInts(pool.InputTokenBalances)
	for len(balances) < len(pool.InputTokens) {
		balances = append(balances, num.ZeroInt())
	}
	for i := range pool.InputTokens {
		if v, ok := contract.TryBigInt(ctx, "balances", big.NewInt(int64(i))); ok {
			balances[i] = v
		}
	}
	return balances
}

// refreshPool updates balances, TVL, weights, supply and LP token price.
func (s *Subgraph) refreshPool(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, pool *model.LiquidityPool, tokens []*model.Token, supply *big.Int) {
	pool.InputTokenBalances = s.fetchBalances(ctx, env, ev, pool)
	pool.TotalValueLockedUSD = usdValue(tokens, pool.InputTokenBalances)
	weights := make([]decimal.Decimal, len(tokens))
	for i, token := range tokens {
		share := usdValue([]*model.Token{token}, pool.InputTokenBalances[i:i+1])
		weights[i] = num.Mul(num.Div(share, pool.TotalValueLockedUSD), hundred)
	}
	pool.InputTokenWeights = weights
	pool.OutputTokenSupply = supply

	if v, ok := env.Bind(ev, PoolABIs[MaxCoins].Must(), ev.Address).TryBigInt(ctx, "get_virtual_price"); ok {
		pool.OutputTokenPriceUSD = num.ConvertTokenToDecimal(v, dex.DefaultDecimals)
	} else {
		pool.OutputTokenPriceUSD = num.Div(pool.TotalValueLockedUSD, num.ConvertTokenToDecimal(supply, dex.DefaultDecimals))
	}
}

// savePool stores pool and recomputes the protocol TVL over every pool it owns.
func (s *Subgraph) savePool(ctx context.Context, env *subgraph.Env, pool *model.LiquidityPool) error {
	if err := storage.Save(ctx, env.Store, pool); err != nil {
		return err
	}
	protocol, err := s.getOrCreateProtocol(ctx, env.Store)
	if err != nil {
		return err
	}
	pools, err := storage.LoadAll[model.LiquidityPool](ctx, env.Store, 0)
	if err != nil {
		return err
	}
	tvl := decimal.Zero
	for _, p := range pools {
		if p.Protocol == protocol.ID {
			tvl = num.Add(tvl, p.TotalValueLockedUSD)
		}
	}
	protocol.TotalValueLockedUSD = tvl
	return storage.Save(ctx, env.Store, protocol)
}
