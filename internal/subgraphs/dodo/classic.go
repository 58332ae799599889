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

// classicalPool is a v1 pool deployed before the zoo emitted DODOBirth for it.
type classicalPool struct {
	address, base, quote, baseLp, quoteLp, owner string
	created                                      uint64
}

var classicalPools = []classicalPool{
	{"0x75c23271661d9d143dcb617222bc4bec783eff34", "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "0xc11eccdee225d644f873776a68a02ecd8c015697", "0x6a5eb3555cbbd29016ba6f6ffbccee28d57b2932", "0x95c4f5b83aa70810d4f142d58e5f7242bd891cb0", 1596787200},
	{"0x562c0b218cc9ba06d9eb42f3aef54c54cc5a4650", "0x514910771af9ca656af840dff83e8264ecf986ca", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "0xf03f3d2fbee37f92ec91ae927a8019cacef4b738", "0x0f769bc3ecbda8e0d78280c88e31609e899a1f78", "0x95c4f5b83aa70810d4f142d58e5f7242bd891cb0", 1598180006},
	{"0x9d9793e1e18cdee6cf63818315d55244f73ec006", "0x054f76beed60ab6dbeb23502178c52d6c5debe40", "0xdac17f958d2ee523a2206206994597c13d831ec7", "0x7c4a6813b6af50a2aa2720d861c796a990245383", "0xa62bf27fd1d64d488b609a09705a28a9b5240b9c", "0x6dae6ae227438378c117821c51fd61661faa8893", 1602236520},
	{"0xca7b0632bd0e646b0f823927d3d2e61b00fe4d80", "0xc011a73ee8576fb46f5e1c5751ca3b9fe0af2a6f", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "0x5bd1b7d3930d7a5e8fd5aeec6b931c822c8be14e", "0x1b06a22b20362b4115388ab8ca3ed0972230d78a", "0x95c4f5b83aa70810d4f142d58e5f7242bd891cb0", 1598613764},
	{"0x0d04146b2fe5d267629a7eb341fb4388dcdbd22f", "0xc00e94cb662c3520282e6f5717214004a7f26888", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "0x53cf4694b427fcef9bb1f4438b68df51a10228d0", "0x51baf2656778ad6d67b19a419f91d38c3d0b87b6", "0x95c4f5b83aa70810d4f142d58e5f7242bd891cb0", 1598702967},
	{"0x2109f78b46a789125598f5ad2b7f243751c2934d", "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "0x2ec2a42901c761b295a9e6b95200cd0bdaa474eb", "0x0cdb21e20597d753c90458f5ef2083f6695eb794", "0x95c4f5b83aa70810d4f142d58e5f7242bd891cb0", 1599011490},
	{"0x1b7902a66f133d899130bf44d7d879da89913b2e", "0x0bc529c00c6401aef6d220be8c6ea1667f6ad93e", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "0xe2852c572fc42c9e2ec03197defa42c647e89291", "0xd9d0bd18ddfa753d0c88a060ffb60657bb0d7a07", "0x95c4f5b83aa70810d4f142d58e5f7242bd891cb0", 1599011463},
	{"0x1a7fe5d6f0bb2d071e16bdd52c863233bbfd38e9", "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", "0xdac17f958d2ee523a2206206994597c13d831ec7", "0x1270be1bf727447270f237115f0943011e35ee3e", "0x3dc2eb2f59ddca985174bb20ae9141ba66cfd2d3", "0x6dae6ae227438378c117821c51fd61661faa8893", 1599011490},
	{"0x8876819535b48b551c9e97ebc07332c7482b4b2d", "0x43dfc4159d86f3a37a5a4b3d4580b888ad7d4ddd", "0xdac17f958d2ee523a2206206994597c13d831ec7", "0x3befc1f0f6cfe0ea852ae61709de370599c88bde", "0x1e5bfc8c1225a6ce59504988f823c44e08414a49", "0x95c4f5b83aa70810d4f142d58e5f7242bd891cb0", 1601348330},
	{"0xc9f93163c99695c6526b799ebca2207fdf7d61ad", "0xdac17f958d2ee523a2206206994597c13d831ec7", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "0x50b11247bf14ee5116c855cde9963fa376fcec86", "0x05a54b466f01510e92c02d3a180bae83a64baab8", "0x95c4f5b83aa70810d4f142d58e5f7242bd891cb0", 1603302872},
	{"0x94512fd4fb4feb63a6c0f4bedecc4a00ee260528", "0x7fc66500c84a76ad7e9c93437bfc5ac33e2ddae9", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "0x30ad5b6d4e531591591113b49eae2fafbc2236d5", "0x5840a9e733960f591856a5d13f6366658535bbe5", "0x95c4f5b83aa70810d4f142d58e5f7242bd891cb0", 1604862756},
	{"0x85f9569b69083c3e6aeffd301bb2c65606b5d575", "0xa0afaa285ce85974c3c881256cb7f225e3a1178a", "0xdac17f958d2ee523a2206206994597c13d831ec7", "0xcfba2e0f1bbf6ad96960d8866316b02e36ed1761", "0xe236b57de7f3e9c3921391c4cb9a42d9632c0022", "0x9c59990ec0177d87ed7d60a56f584e6b06c639a2", 1606415616},
	{"0x181d93ea28023bf40c8bb94796c55138719803b4", "0x4691937a7508860f876c9c0a2a617e7d9e945d4b", "0xdac17f958d2ee523a2206206994597c13d831ec7", "0xbf83ca9f0da7cf33da68b4cb2511885de955f094", "0xa5b607d0b8e5963bbd8a2709c72c6362654e2b4b", "0x9c59990ec0177d87ed7d60a56f584e6b06c639a2", 1603911960},
}

// classicalLpFeeRate is 0.3% in 18-decimal fixed point.
var classicalLpFeeRate = decimal.New(3, 15)

func (s *Subgraph) classicalParams(addr, base, quote, baseLp, quoteLp common.Address, timestamp, block uint64, lpFeeRate decimal.Decimal) poolParams {
	return poolParams{
		protocolID:   dex.Hex(s.cfg.Zoo),
		protocolName: ClassicalName,
		protocolSlug: ClassicalSlug,
		address:      addr,
		base:         base,
		quote:        quote,
		baseLp:       baseLp,
		quoteLp:      quoteLp,
		timestamp:    timestamp,
		block:        block,
		lpFeeRate:    lpFeeRate,
		kind:         model.DODOTypeClassical,
	}
}

// seedClassicalPools creates the hard-coded mainnet v1 pools that are missing.
func (s *Subgraph) seedClassicalPools(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	for _, c := range classicalPools {
		addr := common.HexToAddress(c.address)
		_, ok, err := storage.Load[model.LiquidityPool](ctx, env.Store, c.address)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		params := s.classicalParams(addr,
			common.HexToAddress(c.base), common.HexToAddress(c.quote),
			common.HexToAddress(c.baseLp), common.HexToAddress(c.quoteLp),
			c.created, ev.Block.Number, classicalLpFeeRate)
		pool, err := createPool(ctx, env, ev, params)
		if err != nil {
			return err
		}
		pool.DODO.Creator = c.owner
		pool.DODO.IsDepositBaseAllowed = false
		pool.DODO.IsDepositQuoteAllowed = false
		if err := storage.Save(ctx, env.Store, pool); err != nil {
			return err
		}
		if err := env.Create(ev, ClassicalTemplate, addr); err != nil {
			return err
		}
	}
	return nil
}

func (s *Subgraph) handleDODOBirth(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	newBorn := ev.Args.Address("newBorn")
	base, quote := ev.Args.Address("baseToken"), ev.Args.Address("quoteToken")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	if s.cfg.SeedClassicalPools {
		if err := s.seedClassicalPools(ctx, env, ev); err != nil {
			return err
		}
	}
	_, ok, err := storage.Load[model.LiquidityPool](ctx, env.Store, dex.Hex(newBorn))
	if err != nil {
		return err
	}
	if !ok {
		contract := env.Bind(ev, ClassicalABI.Must(), newBorn)
		baseLp, _ := contract.TryAddress(ctx, "_BASE_CAPITAL_TOKEN_")
		quoteLp, _ := contract.TryAddress(ctx, "_QUOTE_CAPITAL_TOKEN_")
		rate := decimal.Zero
		if v, ok := contract.TryBigInt(ctx, "_LP_FEE_RATE_"); ok {
			rate = num.FromBigInt(v)
		}
		params := s.classicalParams(newBorn, base, quote, baseLp, quoteLp, ev.Block.Timestamp, ev.Block.Number, rate)
		pool, err := createPool(ctx, env, ev, params)
		if err != nil {
			return err
		}
		if err := storage.Save(ctx, env.Store, pool); err != nil {
			return err
		}
	}
	return env.Create(ev, ClassicalTemplate, newBorn)
}

// refreshBalances reads the pool's token balances.
func refreshBalances(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, pool *model.LiquidityPool) {
	pool.InputTokenBalances = []*big.Int{
		fetchBalance(ctx, env, ev, pool.InputTokens[0], ev.Address),
		fetchBalance(ctx, env, ev, pool.InputTokens[1], ev.Address),
	}
}

func (s *Subgraph) handleClassicalDeposit(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	return s.classicalLiquidity(ctx, env, ev, true)
}

func (s *Subgraph) handleClassicalWithdraw(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	return s.classicalLiquidity(ctx, env, ev, false)
}

// classicalLiquidity records a one-sided v1 deposit or withdraw. The side decides
// which LP token moves.
func (s *Subgraph) classicalLiquidity(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, deposit bool) error {
	receiver, isBase := ev.Args.AddressHex("receiver"), ev.Args.Bool("isBaseToken")
	amount, lpAmount := ev.Args.BigInt("amount"), ev.Args.BigInt("lpTokenAmount")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, ok, err := loadPool(ctx, env.Store, ev.AddressHex())
	if err != nil || !ok {
		return err
	}
	if pool.DODO.BaseLpToken == "" || pool.DODO.QuoteLpToken == "" {
		env.Warn("classical pool without capital tokens", ev, zap.String("pool", pool.ID))
		return nil
	}
	base, quote, err := loadPoolTokens(ctx, env, ev, pool)
	if err != nil {
		return err
	}
	baseLp, err := getOrCreateLpToken(ctx, env, ev, common.HexToAddress(pool.DODO.BaseLpToken), pool.ID)
	if err != nil {
		return err
	}
	quoteLp, err := getOrCreateLpToken(ctx, env, ev, common.HexToAddress(pool.DODO.QuoteLpToken), pool.ID)
	if err != nil {
		return err
	}

	token, lp := quote, quoteLp
	amounts := []*big.Int{num.ZeroInt(), amount}
	if isBase {
		token, lp = base, baseLp
		amounts = []*big.Int{amount, num.ZeroInt()}
	}
	token.DODO.TxCount = inc(token.DODO.TxCount)
	lp.DODO.TxCount = inc(lp.DODO.TxCount)
	if deposit {
		token.DODO.TotalSupply = new(big.Int).Add(token.DODO.TotalSupply, amount)
		lp.DODO.TotalSupply = new(big.Int).Add(lp.DODO.TotalSupply, lpAmount)
	} else {
		token.DODO.TotalSupply = new(big.Int).Sub(token.DODO.TotalSupply, amount)
		lp.DODO.TotalSupply = new(big.Int).Sub(lp.DODO.TotalSupply, lpAmount)
	}
	refreshBalances(ctx, env, ev, pool)

	var record model.Entity
	activity := aggregate.ActivityDeposit
	if deposit {
		record = &model.Deposit{
			ID:                ev.ID(),
			Hash:              ev.Tx.Hash,
			LogIndex:          ev.LogIndex,
			Protocol:          pool.Protocol,
			To:                receiver,
			From:              ev.Tx.From,
			User:              receiver,
			BlockNumber:       ev.Block.Number,
			Timestamp:         ev.Block.Timestamp,
			InputTokens:       []string{base.ID, quote.ID},
			OutputToken:       lp.ID,
			InputTokenAmounts: amounts,
			OutputTokenAmount: lpAmount,
			AmountUSD:         decimal.Zero,
			Pool:              pool.ID,
		}
	} else {
		activity = aggregate.ActivityWithdraw
		record = &model.Withdraw{
			ID:                ev.ID(),
			Hash:              ev.Tx.Hash,
			LogIndex:          ev.LogIndex,
			Protocol:          pool.Protocol,
			To:                receiver,
			From:              ev.Tx.From,
			User:              receiver,
			BlockNumber:       ev.Block.Number,
			Timestamp:         ev.Block.Timestamp,
			InputTokens:       []string{base.ID, quote.ID},
			OutputToken:       lp.ID,
			InputTokenAmounts: amounts,
			OutputTokenAmount: lpAmount,
			AmountUSD:         decimal.Zero,
			Pool:              pool.ID,
		}
	}
	if err := saveAll(ctx, env.Store, record, pool, base, quote, baseLp, quoteLp); err != nil {
		return err
	}
	return aggregate.Usage(ctx, env.Store, pool.Protocol, ev.Position(), activity)
}

func (s *Subgraph) handleSellBaseToken(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	seller, payBase, receiveQuote := ev.Args.AddressHex("seller"), ev.Args.BigInt("payBase"), ev.Args.BigInt("receiveQuote")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	return s.classicalSwap(ctx, env, ev, seller, true, payBase, receiveQuote)
}

func (s *Subgraph) handleBuyBaseToken(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	buyer, receiveBase, payQuote := ev.Args.AddressHex("buyer"), ev.Args.BigInt("receiveBase"), ev.Args.BigInt("payQuote")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	return s.classicalSwap(ctx, env, ev, buyer, false, payQuote, receiveBase)
}

// classicalSwap records a v1 trade. Volumes stay in raw token units and the LP
// fee is charged on the side the trader receives.
func (s *Subgraph) classicalSwap(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, trader string, sellBase bool, amountIn, amountOut *big.Int) error {
	pool, ok, err := loadPool(ctx, env.Store, ev.AddressHex())
	if err != nil || !ok {
		return err
	}
	base, quote, err := loadPoolTokens(ctx, env, ev, pool)
	if err != nil {
		return err
	}

	from, to := quote, base
	baseRaw, quoteRaw := amountOut, amountIn
	if sellBase {
		from, to = base, quote
		baseRaw, quoteRaw = amountIn, amountOut
	}
	baseVolume, quoteVolume := num.FromBigInt(baseRaw), num.FromBigInt(quoteRaw)
	baseLpFee, quoteLpFee := num.CalculateLpFee(baseVolume, pool.DODO.LpFeeRate), decimal.Zero
	balances := pool.InputTokenBalances
	if sellBase {
		baseLpFee, quoteLpFee = decimal.Zero, num.CalculateLpFee(quoteVolume, pool.DODO.LpFeeRate)
		pool.InputTokenBalances = []*big.Int{
			new(big.Int).Add(balances[0], baseRaw),
			new(big.Int).Sub(balances[1], quoteRaw),
		}
	} else {
		pool.InputTokenBalances = []*big.Int{
			new(big.Int).Sub(balances[0], baseRaw),
			new(big.Int).Add(balances[1], quoteRaw),
		}
	}
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
		TokenIn:      from.ID,
		AmountIn:     amountIn,
		AmountInUSD:  decimal.Zero,
		TokenOut:     to.ID,
		AmountOut:    amountOut,
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
		countTrade(from, num.FromBigInt(amountIn))
		countTrade(to, num.FromBigInt(amountOut))
	}
	return saveSwap(ctx, env, ev, pool, swap, base, quote)
}

func (s *Subgraph) handleUpdateLpFeeRate(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	rate := ev.Args.BigInt("newLiquidityProviderFeeRate")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, ok, err := loadPool(ctx, env.Store, ev.AddressHex())
	if err != nil || !ok {
		return err
	}
	pool.DODO.LpFeeRate = num.FromBigInt(rate)
	return storage.Save(ctx, env.Store, pool)
}

func (s *Subgraph) handleUpdateMtFeeRate(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	rate := ev.Args.BigInt("newMaintainerFeeRate")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, ok, err := loadPool(ctx, env.Store, ev.AddressHex())
	if err != nil || !ok {
		return err
	}
	pool.DODO.MtFeeRate = num.FromBigInt(rate)
	return storage.Save(ctx, env.Store, pool)
}

func (s *Subgraph) handleClaimAssets(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	pool, ok, err := loadPool(ctx, env.Store, ev.AddressHex())
	if err != nil || !ok {
		return err
	}
	refreshBalances(ctx, env, ev, pool)
	return storage.Save(ctx, env.Store, pool)
}

func (s *Subgraph) handleChargeMaintainerFee(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	isBase, amount := ev.Args.Bool("isBaseToken"), ev.Args.BigInt("amount")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, ok, err := loadPool(ctx, env.Store, ev.AddressHex())
	if err != nil {
		return err
	}
	if !ok {
		env.Warn("maintainer fee for unknown pool", ev, zap.String("pool", ev.AddressHex()))
		return nil
	}
	if isBase {
		pool.DODO.MtFeeBase = num.Add(pool.DODO.MtFeeBase, num.FromBigInt(amount))
	} else {
		pool.DODO.MtFeeQuote = num.Add(pool.DODO.MtFeeQuote, num.FromBigInt(amount))
	}
	return storage.Save(ctx, env.Store, pool)
}
