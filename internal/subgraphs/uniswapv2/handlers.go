package uniswapv2

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexsubgraphs/internal/aggregate"
	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/num"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

// minimumLiquidity is locked by the first mint of every pair.
var minimumLiquidity = big.NewInt(1000)

var fiftyPercent = decimal.NewFromInt(50)

func (s *Subgraph) handlePairCreated(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	args := ev.Args
	token0Addr, token1Addr, pairAddr := args.Address("token0"), args.Address("token1"), args.Address("pair")
	if err := args.Err(); err != nil {
		return err
	}

	protocol, err := s.getOrCreateProtocol(ctx, env.Store)
	if err != nil {
		return err
	}
	token0, err := s.getOrCreateToken(ctx, env, ev, token0Addr)
	if err != nil {
		return err
	}
	token1, err := s.getOrCreateToken(ctx, env, ev, token1Addr)
	if err != nil {
		return err
	}

	poolID := dex.Hex(pairAddr)
	lpToken, ok, err := storage.Load[model.Token](ctx, env.Store, poolID)
	if err != nil {
		return err
	}
	if !ok {
		lpToken = &model.Token{
			ID:       poolID,
			Symbol:   token0.Name + "/" + token1.Name,
			Name:     token0.Name + "/" + token1.Name + " LP",
			Decimals: dex.DefaultDecimals,
		}
	}

	fees := []*model.LiquidityPoolFee{
		{ID: feeID("trading-fee", poolID), FeePercentage: s.cfg.TradeFee, FeeType: model.FeeTypeTrading},
		{ID: feeID("protocol-fee", poolID), FeePercentage: s.cfg.protocolFee(), FeeType: model.FeeTypeProtocol},
		{ID: feeID("lp-fee", poolID), FeePercentage: s.cfg.lpFee(), FeeType: model.FeeTypeLP},
	}

	pool := &model.LiquidityPool{
		ID:                      poolID,
		Protocol:                protocol.ID,
		Name:                    s.cfg.Name + " " + lpToken.Symbol,
		Symbol:                  lpToken.Symbol,
		InputTokens:             []string{token0.ID, token1.ID},
		OutputToken:             lpToken.ID,
		IsSingleSided:           false,
		CreatedTimestamp:        ev.Block.Timestamp,
		CreatedBlockNumber:      ev.Block.Number,
		InputTokenBalances:      num.Zeros(2),
		InputTokenWeights:       []decimal.Decimal{fiftyPercent, fiftyPercent},
		OutputTokenSupply:       num.ZeroInt(),
		StakedOutputTokenAmount: num.ZeroInt(),
	}
	for _, fee := range fees {
		pool.Fees = append(pool.Fees, fee.ID)
		if err := storage.Save(ctx, env.Store, fee); err != nil {
			return err
		}
	}
	protocol.TotalPoolCount++

	for _, e := range []model.Entity{token0, token1, lpToken, pool, protocol} {
		if err := storage.Save(ctx, env.Store, e); err != nil {
			return err
		}
	}
	return env.Create(ev, s.PairTemplate(), pairAddr)
}

func (s *Subgraph) loadPool(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) (*model.LiquidityPool, bool, error) {
	pool, ok, err := storage.Load[model.LiquidityPool](ctx, env.Store, ev.AddressHex())
	if err != nil {
		return nil, false, err
	}
	if !ok {
		env.Warn("pool not found", ev, zap.String("pool", ev.AddressHex()))
	}
	return pool, ok, nil
}

func (s *Subgraph) handleTransfer(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	args := ev.Args
	from, to, value := args.Address("from"), args.Address("to"), args.BigInt("value")
	if err := args.Err(); err != nil {
		return err
	}
	pool, ok, err := s.loadPool(ctx, env, ev)
	if err != nil || !ok {
		return err
	}
	if pool.OutputTokenSupply == nil {
		pool.OutputTokenSupply = num.ZeroInt()
	}

	if dex.Hex(to) == dex.ZeroAddress && value.Cmp(minimumLiquidity) == 0 && pool.OutputTokenSupply.Sign() == 0 {
		return nil
	}

	if dex.Hex(from) == dex.ZeroAddress {
		pool.OutputTokenSupply.Add(pool.OutputTokenSupply, value)
		if err := storage.Save(ctx, env.Store, pool); err != nil {
			return err
		}
		transfer, err := getOrCreateTransfer(ctx, env.Store, ev)
		if err != nil {
			return err
		}
		transfer.Type = model.TransferMint
		transfer.Sender = dex.Hex(to)
		transfer.Liquidity = value
		if err := storage.Save(ctx, env.Store, transfer); err != nil {
			return err
		}
	}

	if to == ev.Address {
		transfer, err := getOrCreateTransfer(ctx, env.Store, ev)
		if err != nil {
			return err
		}
		transfer.Sender = dex.Hex(from)
		if err := storage.Save(ctx, env.Store, transfer); err != nil {
			return err
		}
	}

	if dex.Hex(to) == dex.ZeroAddress && from == ev.Address {
		pool.OutputTokenSupply.Sub(pool.OutputTokenSupply, value)
		if err := storage.Save(ctx, env.Store, pool); err != nil {
			return err
		}
		transfer, err := getOrCreateTransfer(ctx, env.Store, ev)
		if err != nil {
			return err
		}
		transfer.Type = model.TransferBurn
		transfer.Liquidity = value
		if err := storage.Save(ctx, env.Store, transfer); err != nil {
			return err
		}
	}
	return nil
}

func (s *Subgraph) handleSync(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	reserve0, reserve1 := ev.Args.BigInt("reserve0"), ev.Args.BigInt("reserve1")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, ok, err := s.loadPool(ctx, env, ev)
	if err != nil || !ok {
		return err
	}
	pool.InputTokenBalances = []*big.Int{reserve0, reserve1}
	return storage.Save(ctx, env.Store, pool)
}

func (s *Subgraph) handleMint(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	amount0, amount1 := ev.Args.BigInt("amount0"), ev.Args.BigInt("amount1")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, ok, err := s.loadPool(ctx, env, ev)
	if err != nil || !ok {
		return err
	}
	transfer, err := getOrCreateTransfer(ctx, env.Store, ev)
	if err != nil {
		return err
	}

	deposit := &model.Deposit{
		ID:                ev.ID(),
		Hash:              ev.Tx.Hash,
		LogIndex:          ev.LogIndex,
		Protocol:          pool.Protocol,
		To:                pool.ID,
		From:              transfer.Sender,
		BlockNumber:       ev.Block.Number,
		Timestamp:         ev.Block.Timestamp,
		InputTokens:       append([]string(nil), pool.InputTokens...),
		OutputToken:       pool.OutputToken,
		InputTokenAmounts: []*big.Int{amount0, amount1},
		OutputTokenAmount: transfer.Liquidity,
		Pool:              pool.ID,
		WalletAddress:     transfer.Sender,
	}
	if err := storage.Save(ctx, env.Store, deposit); err != nil {
		return err
	}
	return aggregate.Usage(ctx, env.Store, pool.Protocol, ev.Position(), aggregate.ActivityDeposit)
}

func (s *Subgraph) handleBurn(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	amount0, amount1 := ev.Args.BigInt("amount0"), ev.Args.BigInt("amount1")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, ok, err := s.loadPool(ctx, env, ev)
	if err != nil || !ok {
		return err
	}
	transfer, err := getOrCreateTransfer(ctx, env.Store, ev)
	if err != nil {
		return err
	}

	withdraw := &model.Withdraw{
		ID:                ev.ID(),
		Hash:              ev.Tx.Hash,
		LogIndex:          ev.LogIndex,
		Protocol:          pool.Protocol,
		To:                transfer.Sender,
		From:              pool.ID,
		BlockNumber:       ev.Block.Number,
		Timestamp:         ev.Block.Timestamp,
		InputTokens:       append([]string(nil), pool.InputTokens...),
		OutputToken:       pool.OutputToken,
		InputTokenAmounts: []*big.Int{amount0, amount1},
		OutputTokenAmount: transfer.Liquidity,
		Pool:              pool.ID,
		WalletAddress:     transfer.Sender,
	}
	if err := storage.Save(ctx, env.Store, withdraw); err != nil {
		return err
	}
	return aggregate.Usage(ctx, env.Store, pool.Protocol, ev.Position(), aggregate.ActivityWithdraw)
}

func (s *Subgraph) handleSwap(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	args := ev.Args
	sender, to := args.Address("sender"), args.Address("to")
	amount0In, amount1In := args.BigInt("amount0In"), args.BigInt("amount1In")
	amount0Out, amount1Out := args.BigInt("amount0Out"), args.BigInt("amount1Out")
	if err := args.Err(); err != nil {
		return err
	}

	if amount0Out.Sign() > 0 && amount1Out.Sign() > 0 {
		env.Logger.Error("two output tokens, invalid swap",
			zap.String("pool", ev.AddressHex()),
			zap.String("amount0_out", amount0Out.String()),
			zap.String("amount1_out", amount1Out.String()),
			zap.String("tx_hash", ev.Tx.Hash),
		)
		return nil
	}

	pool, ok, err := s.loadPool(ctx, env, ev)
	if err != nil || !ok {
		return err
	}
	if len(pool.InputTokens) != 2 {
		env.Warn("pair without two input tokens", ev, zap.String("pool", pool.ID))
		return nil
	}

	legs := swapLegs(pool.InputTokens[0], pool.InputTokens[1], amount0In, amount0Out, amount1In, amount1Out)
	swap := &model.Swap{
		ID:            ev.ID(),
		Hash:          ev.Tx.Hash,
		LogIndex:      ev.LogIndex,
		Protocol:      pool.Protocol,
		To:            dex.Hex(to),
		From:          dex.Hex(sender),
		BlockNumber:   ev.Block.Number,
		Timestamp:     ev.Block.Timestamp,
		TokenIn:       legs.tokenIn,
		AmountIn:      legs.amountIn,
		TokenOut:      legs.tokenOut,
		AmountOut:     legs.amountOut,
		Pool:          pool.ID,
		WalletAddress: dex.Hex(to),
	}
	if err := storage.Save(ctx, env.Store, swap); err != nil {
		return err
	}
	block := ev.Position()
	if err := aggregate.PoolSwap(ctx, env.Store, pool, block, legs.tokenIn, legs.amountIn, legs.tokenOut, legs.amountOut); err != nil {
		return err
	}
	return aggregate.Usage(ctx, env.Store, pool.Protocol, block, aggregate.ActivitySwap)
}

type legs struct {
	tokenIn, tokenOut   string
	amountIn, amountOut *big.Int
}

// swapLegs orients a pair swap. amountOut is reported as a positive number
// for well formed swaps.
func swapLegs(token0, token1 string, amount0In, amount0Out, amount1In, amount1Out *big.Int) legs {
	if amount0Out.Sign() > 0 {
		return legs{
			tokenIn:   token1,
			tokenOut:  token0,
			amountIn:  new(big.Int).Sub(amount1In, amount1Out),
			amountOut: new(big.Int).Neg(new(big.Int).Sub(amount0In, amount0Out)),
		}
	}
	return legs{
		tokenIn:   token0,
		tokenOut:  token1,
		amountIn:  new(big.Int).Sub(amount0In, amount0Out),
		amountOut: new(big.Int).Neg(new(big.Int).Sub(amount1In, amount1Out)),
	}
}
