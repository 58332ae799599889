package balancer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexsubgraphs/internal/aggregate"
	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/num"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

func (s *Subgraph) handleNewPool(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	caller, poolAddr := ev.Args.Address("caller"), ev.Args.Address("pool")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	protocol, err := getOrCreateProtocol(ctx, env.Store, ev.AddressHex())
	if err != nil {
		return err
	}
	pool, err := s.getOrCreatePool(ctx, env.Store, dex.Hex(poolAddr), ev.Block)
	if err != nil {
		return err
	}
	pool.Protocol = protocol.ID
	pool.CreatedTimestamp = ev.Block.Timestamp
	pool.Balancer.Controller = dex.Hex(caller)
	pool.Balancer.Tx = ev.Tx.Hash

	isCrp, ok := env.Bind(ev, CRPFactoryABI.Must(), s.cfg.CRPFactory).TryBool(ctx, "isCrp", caller)
	pool.Balancer.Crp = ok && isCrp
	if pool.Balancer.Crp {
		protocol.Balancer.CrpCount++
		crp := env.Bind(ev, CRPABI.Must(), caller)
		pool.Symbol, _ = crp.TryString(ctx, "symbol")
		pool.Name, _ = crp.TryString(ctx, "name")
		if controller, ok := crp.TryAddress(ctx, "getController"); ok {
			pool.Balancer.CrpController = dex.Hex(controller)
		}
		pool.Balancer.Rights = crpRights(ctx, crp)
		if capacity, ok := crp.TryBigInt(ctx, "getCap"); ok {
			pool.Balancer.Cap = capacity
		} else {
			pool.Balancer.Cap = num.ZeroInt()
		}
		if err := env.Create(ev, CrpControllerTemplate, caller); err != nil {
			return err
		}
	}

	protocol.TotalPoolCount++
	if err := storage.Save(ctx, env.Store, protocol); err != nil {
		return err
	}
	if err := storage.Save(ctx, env.Store, pool); err != nil {
		return err
	}
	return env.Create(ev, PoolTemplate, poolAddr)
}

// crpRights lists the names of the rights a CRP grants, in declaration order.
func crpRights(ctx context.Context, crp *dex.Contract) []string {
	values, err := crp.Call(ctx, "rights")
	if err != nil {
		return []string{}
	}
	outputs := CRPABI.Must().Methods["rights"].Outputs
	rights := []string{}
	for i, v := range values {
		if granted, ok := v.(bool); ok && granted && i < len(outputs) {
			rights = append(rights, outputs[i].Name)
		}
	}
	return rights
}

func (s *Subgraph) handleSetCrpController(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	newOwner := ev.Args.Address("newOwner")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	bPool, ok := env.Bind(ev, CRPABI.Must(), ev.Address).TryAddress(ctx, "bPool")
	if !ok {
		return nil
	}
	pool, err := s.getOrCreatePool(ctx, env.Store, dex.Hex(bPool), ev.Block)
	if err != nil {
		return err
	}
	pool.Balancer.CrpController = dex.Hex(newOwner)
	return storage.Save(ctx, env.Store, pool)
}

func (s *Subgraph) handleLogCall(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	sig := hexutil.Encode(ev.Args.Bytes("sig"))
	data := hexutil.Encode(ev.Args.Bytes("data"))
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, err := s.getOrCreatePool(ctx, env.Store, ev.AddressHex(), ev.Block)
	if err != nil {
		return err
	}

	switch sig {
	case sigSetSwapFee:
		if len(data) < 42 {
			return s.malformed(env, ev, sig)
		}
		pool.Balancer.SwapFee = num.HexToDecimal(data[len(data)-40:], 0)
	case sigSetController:
		if len(data) < 42 {
			return s.malformed(env, ev, sig)
		}
		pool.Balancer.Controller = dex.Hex(common.HexToAddress(data[len(data)-40:]))
	case sigSetPublicSwap:
		pool.Balancer.PublicSwap = data[len(data)-1] == '1'
	case sigFinalize:
		pool.Balancer.Finalized = true
		pool.Balancer.PublicSwap = true
		pool.Symbol = "BPT"
		protocol, err := getOrCreateProtocol(ctx, env.Store, pool.Protocol)
		if err != nil {
			return err
		}
		protocol.Balancer.FinalizedPoolCount++
		if err := storage.Save(ctx, env.Store, protocol); err != nil {
			return err
		}
	case sigBind, sigRebind:
		if len(data) <= 138 {
			return s.malformed(env, ev, sig)
		}
		if err := s.rebind(ctx, env, ev, pool, data); err != nil {
			return err
		}
	case sigUnbind:
		if len(data) < 42 {
			return s.malformed(env, ev, sig)
		}
		unbind(pool, "0x"+data[len(data)-40:])
	default:
		return nil
	}
	return storage.Save(ctx, env.Store, pool)
}

func (s *Subgraph) malformed(env *subgraph.Env, ev *subgraph.Event, sig string) error {
	env.Warn("malformed LOG_CALL data", ev, zap.String("pool", ev.AddressHex()), zap.String("sig", sig))
	return nil
}

// rebind applies bind(token, balance, denorm) or rebind with the same arguments.
// data is the 0x-prefixed calldata.
func (s *Subgraph) rebind(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, pool *model.LiquidityPool, data string) error {
	tokenAddr := common.HexToAddress(data[34:74])
	balance := num.ToBigInt(num.HexToDecimal(data[74:138], 0))
	denorm := num.HexToDecimal(data[138:], 0)

	token, err := getOrCreateToken(ctx, env, ev, tokenAddr)
	if err != nil {
		return err
	}
	b := pool.Balancer
	if idx := pool.TokenIndex(token.ID); idx == -1 {
		pool.InputTokens = append(pool.InputTokens, token.ID)
		pool.InputTokenWeights = append(pool.InputTokenWeights, denorm)
		pool.InputTokenBalances = append(pool.InputTokenBalances, balance)
		b.TotalWeight = b.TotalWeight.Add(denorm)
	} else {
		old := pool.InputTokenWeights[idx]
		b.TotalWeight = b.TotalWeight.Add(denorm.Sub(old))
		pool.InputTokenWeights[idx] = denorm
		pool.InputTokenBalances[idx] = balance
	}

	if balance.Sign() == 0 {
		if err := deactivate(ctx, env.Store, pool); err != nil {
			return err
		}
	}
	b.TokensCount = big.NewInt(int64(len(pool.InputTokens)))
	return nil
}

func unbind(pool *model.LiquidityPool, token string) {
	idx := pool.TokenIndex(token)
	if idx == -1 {
		return
	}
	b := pool.Balancer
	b.TotalWeight = b.TotalWeight.Sub(pool.InputTokenWeights[idx])
	pool.InputTokens = append(pool.InputTokens[:idx], pool.InputTokens[idx+1:]...)
	pool.InputTokenWeights = append(pool.InputTokenWeights[:idx], pool.InputTokenWeights[idx+1:]...)
	pool.InputTokenBalances = append(pool.InputTokenBalances[:idx], pool.InputTokenBalances[idx+1:]...)
	b.TokensCount = big.NewInt(int64(len(pool.InputTokens)))
}

func (s *Subgraph) loadBoundToken(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, pool *model.LiquidityPool, address common.Address) (*model.Token, int, error) {
	token, err := getOrCreateToken(ctx, env, ev, address)
	if err != nil {
		return nil, -1, err
	}
	idx := pool.TokenIndex(token.ID)
	if idx == -1 {
		env.Warn("token not bound to pool", ev, zap.String("pool", pool.ID), zap.String("token", token.ID))
	}
	return token, idx, nil
}

func (s *Subgraph) handleJoin(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	caller, tokenAddr, amount := ev.Args.Address("caller"), ev.Args.Address("tokenIn"), ev.Args.BigInt("tokenAmountIn")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, err := s.getOrCreatePool(ctx, env.Store, ev.AddressHex(), ev.Block)
	if err != nil {
		return err
	}
	token, idx, err := s.loadBoundToken(ctx, env, ev, pool, tokenAddr)
	if err != nil || idx == -1 {
		return err
	}
	pool.Balancer.JoinsCount = new(big.Int).Add(pool.Balancer.JoinsCount, big.NewInt(1))
	pool.InputTokenBalances[idx] = new(big.Int).Add(pool.InputTokenBalances[idx], amount)
	if err := storage.Save(ctx, env.Store, pool); err != nil {
		return err
	}

	deposit := &model.Deposit{
		ID:                ev.ID(),
		Hash:              ev.Tx.Hash,
		LogIndex:          ev.LogIndex,
		Protocol:          pool.Protocol,
		To:                pool.ID,
		From:              dex.Hex(caller),
		BlockNumber:       ev.Block.Number,
		Timestamp:         ev.Block.Timestamp,
		InputTokens:       []string{token.ID},
		OutputToken:       pool.OutputToken,
		InputTokenAmounts: []*big.Int{amount},
		OutputTokenAmount: num.ZeroInt(),
		AmountUSD:         decimal.Zero,
		Pool:              pool.ID,
	}
	if err := storage.Save(ctx, env.Store, deposit); err != nil {
		return err
	}
	return aggregate.Usage(ctx, env.Store, pool.Protocol, ev.Position(), aggregate.ActivityDeposit)
}

func (s *Subgraph) handleExit(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	caller, tokenAddr, amount := ev.Args.Address("caller"), ev.Args.Address("tokenOut"), ev.Args.BigInt("tokenAmountOut")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, err := s.getOrCreatePool(ctx, env.Store, ev.AddressHex(), ev.Block)
	if err != nil {
		return err
	}
	token, idx, err := s.loadBoundToken(ctx, env, ev, pool, tokenAddr)
	if err != nil || idx == -1 {
		return err
	}
	balance := new(big.Int).Sub(pool.InputTokenBalances[idx], amount)
	pool.InputTokenBalances[idx] = balance
	pool.Balancer.ExitsCount = new(big.Int).Add(pool.Balancer.ExitsCount, big.NewInt(1))
	if balance.Sign() == 0 {
		if err := deactivate(ctx, env.Store, pool); err != nil {
			return err
		}
	}
	if err := storage.Save(ctx, env.Store, pool); err != nil {
		return err
	}

	withdraw := &model.Withdraw{
		ID:                ev.ID(),
		Hash:              ev.Tx.Hash,
		LogIndex:          ev.LogIndex,
		Protocol:          pool.Protocol,
		To:                dex.Hex(caller),
		From:              pool.ID,
		BlockNumber:       ev.Block.Number,
		Timestamp:         ev.Block.Timestamp,
		InputTokens:       []string{token.ID},
		OutputToken:       pool.OutputToken,
		InputTokenAmounts: []*big.Int{amount},
		OutputTokenAmount: num.ZeroInt(),
		AmountUSD:         decimal.Zero,
		Pool:              pool.ID,
	}
	if err := storage.Save(ctx, env.Store, withdraw); err != nil {
		return err
	}
	return aggregate.Usage(ctx, env.Store, pool.Protocol, ev.Position(), aggregate.ActivityWithdraw)
}

func (s *Subgraph) handleSwap(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	args := ev.Args
	caller := args.Address("caller")
	tokenInAddr, tokenOutAddr := args.Address("tokenIn"), args.Address("tokenOut")
	amountIn, amountOut := args.BigInt("tokenAmountIn"), args.BigInt("tokenAmountOut")
	if err := args.Err(); err != nil {
		return err
	}
	pool, err := s.getOrCreatePool(ctx, env.Store, ev.AddressHex(), ev.Block)
	if err != nil {
		return err
	}
	tokenIn, in, err := s.loadBoundToken(ctx, env, ev, pool, tokenInAddr)
	if err != nil || in == -1 {
		return err
	}
	tokenOut, out, err := s.loadBoundToken(ctx, env, ev, pool, tokenOutAddr)
	if err != nil || out == -1 {
		return err
	}

	balanceIn := new(big.Int).Add(pool.InputTokenBalances[in], amountIn)
	balanceOut := new(big.Int).Sub(pool.InputTokenBalances[out], amountOut)
	pool.InputTokenBalances[in] = balanceIn
	pool.InputTokenBalances[out] = balanceOut
	pool.Balancer.SwapsCount = new(big.Int).Add(pool.Balancer.SwapsCount, big.NewInt(1))
	if balanceIn.Sign() == 0 || balanceOut.Sign() == 0 {
		if err := deactivate(ctx, env.Store, pool); err != nil {
			return err
		}
	}
	if err := storage.Save(ctx, env.Store, pool); err != nil {
		return err
	}

	swap := &model.Swap{
		ID:           ev.ID(),
		Hash:         ev.Tx.Hash,
		LogIndex:     ev.LogIndex,
		Protocol:     s.protocolID(),
		To:           pool.ID,
		From:         ev.Tx.From,
		BlockNumber:  ev.Block.Number,
		Timestamp:    ev.Block.Timestamp,
		TokenIn:      tokenIn.ID,
		AmountIn:     amountIn,
		AmountInUSD:  decimal.Zero,
		TokenOut:     tokenOut.ID,
		AmountOut:    amountOut,
		AmountOutUSD: decimal.Zero,
		Pool:         pool.ID,
		Balancer: &model.BalancerSwap{
			Caller:      dex.Hex(caller),
			TokenInSym:  tokenIn.Symbol,
			TokenOutSym: tokenOut.Symbol,
		},
	}
	if err := storage.Save(ctx, env.Store, swap); err != nil {
		return err
	}
	block := ev.Position()
	if err := aggregate.PoolSwap(ctx, env.Store, pool, block, tokenIn.ID, amountIn, tokenOut.ID, amountOut); err != nil {
		return err
	}
	return aggregate.Usage(ctx, env.Store, pool.Protocol, block, aggregate.ActivitySwap)
}
