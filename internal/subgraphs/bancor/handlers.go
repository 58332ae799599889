package bancor

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

func handleAddressUpdate(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	name := registryName(ev.Args.Bytes("_contractName"))
	address := ev.Args.Address("_contractAddress")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	registry, err := getOrCreateContractRegistry(ctx, env, ev)
	if err != nil {
		return err
	}
	registry.Set(name, dex.Hex(address))
	if err := storage.Save(ctx, env.Store, registry); err != nil {
		return err
	}

	switch name {
	case nameConverterRegistry:
		return env.Create(ev, ConverterRegistryTemplate, address)
	case nameConverterUpgrader:
		return env.Create(ev, UpgraderTemplate, address)
	case nameNetwork:
		return env.Create(ev, NetworkTemplate, address)
	}
	return nil
}

func handleRegistryOwnerUpdate(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	owner := ev.Args.AddressHex("_newOwner")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	registry, err := getOrCreateContractRegistry(ctx, env, ev)
	if err != nil {
		return err
	}
	registry.Owner = owner
	return storage.Save(ctx, env.Store, registry)
}

func getOrCreateContractRegistry(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) (*model.ContractRegistry, error) {
	registry, ok, err := storage.Load[model.ContractRegistry](ctx, env.Store, ev.AddressHex())
	if err != nil || ok {
		return registry, err
	}
	registry = &model.ContractRegistry{
		ID:                ev.AddressHex(),
		Owner:             dex.ZeroAddress,
		ContractNames:     []string{},
		ContractAddresses: []string{},
	}
	if owner, ok := env.Bind(ev, ContractRegistryABI.Must(), ev.Address).TryAddress(ctx, "owner"); ok {
		registry.Owner = dex.Hex(owner)
	}
	return registry, nil
}

// anchorAdded handles registry events announcing an anchor through the named argument.
func anchorAdded(arg string) subgraph.Handler {
	return func(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
		anchor := ev.Args.Address(arg)
		if err := ev.Args.Err(); err != nil {
			return err
		}
		_, err := getOrCreateAnchor(ctx, env, ev, ev.AddressHex(), anchor)
		return err
	}
}

// anchorRemoved handles registry events dropping the converter behind an anchor.
// A cleared anchor falls back to its owner() at the event block.
func anchorRemoved(arg string) subgraph.Handler {
	return func(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
		anchor := ev.Args.Address(arg)
		if err := ev.Args.Err(); err != nil {
			return err
		}
		token, ok, err := storage.Load[model.Token](ctx, env.Store, dex.Hex(anchor))
		if err != nil {
			return err
		}
		var converter string
		if ok && token.Bancor != nil && token.Bancor.Pool != "" {
			converter = token.Bancor.Pool
			token.Bancor.Pool = ""
			if err := storage.Save(ctx, env.Store, token); err != nil {
				return err
			}
		} else if owner, ok := env.Bind(ev, SmartTokenABI.Must(), anchor).TryAddress(ctx, "owner"); ok {
			converter = dex.Hex(owner)
		} else {
			env.Warn("removed anchor not indexed", ev, zap.String("anchor", dex.Hex(anchor)))
			return nil
		}
		return removePool(ctx, env.Store, converter)
	}
}

// handleConvertibleTokenAdded indexes the anchor and lists the convertible token
// under it and under the registry.
func handleConvertibleTokenAdded(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	tokenAddr, anchorAddr := ev.Args.Address("_convertibleToken"), ev.Args.Address("_smartToken")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	anchor, err := getOrCreateAnchor(ctx, env, ev, ev.AddressHex(), anchorAddr)
	if err != nil {
		return err
	}
	token, err := getOrCreateToken(ctx, env, ev, tokenAddr)
	if err != nil {
		return err
	}
	anchor.Bancor.ConnectorTokens = addID(anchor.Bancor.ConnectorTokens, token.ID)
	if err := storage.Save(ctx, env.Store, anchor); err != nil {
		return err
	}
	protocol, err := getOrCreateProtocol(ctx, env.Store, ev.AddressHex())
	if err != nil {
		return err
	}
	protocol.Bancor.Tokens = addID(protocol.Bancor.Tokens, token.ID)
	return storage.Save(ctx, env.Store, protocol)
}

// handleSmartTokenRemoved deletes the anchor token and takes it off the registry's list.
func handleSmartTokenRemoved(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	id := ev.Args.AddressHex("_smartToken")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	if err := storage.Remove(ctx, env.Store, model.KindToken, id); err != nil {
		return err
	}
	protocol, err := getOrCreateProtocol(ctx, env.Store, ev.AddressHex())
	if err != nil {
		return err
	}
	protocol.Bancor.SmartTokens = dropID(protocol.Bancor.SmartTokens, id)
	return storage.Save(ctx, env.Store, protocol)
}

// handleConvertibleTokenRemoved deletes the convertible token and takes it off the
// anchor's connector list and the registry's token list.
func handleConvertibleTokenRemoved(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	id, anchorID := ev.Args.AddressHex("_convertibleToken"), ev.Args.AddressHex("_smartToken")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	if err := storage.Remove(ctx, env.Store, model.KindToken, id); err != nil {
		return err
	}
	anchor, ok, err := storage.Load[model.Token](ctx, env.Store, anchorID)
	if err != nil {
		return err
	}
	if ok && anchor.Bancor != nil {
		anchor.Bancor.ConnectorTokens = dropID(anchor.Bancor.ConnectorTokens, id)
		if err := storage.Save(ctx, env.Store, anchor); err != nil {
			return err
		}
	}
	protocol, err := getOrCreateProtocol(ctx, env.Store, ev.AddressHex())
	if err != nil {
		return err
	}
	protocol.Bancor.Tokens = dropID(protocol.Bancor.Tokens, id)
	return storage.Save(ctx, env.Store, protocol)
}

// handleSmartTokenOwnerUpdate moves the smart token to its new owner when that
// owner is an indexed converter.
func handleSmartTokenOwnerUpdate(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	owner := ev.Args.AddressHex("_newOwner")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, ok, err := storage.Load[model.LiquidityPool](ctx, env.Store, owner)
	if err != nil || !ok {
		return err
	}
	token, err := getOrCreateToken(ctx, env, ev, ev.Address)
	if err != nil {
		return err
	}
	if token.Bancor == nil {
		token.Bancor = &model.BancorToken{Anchor: true}
	}
	token.Bancor.Pool = pool.ID
	pool.OutputToken = token.ID
	if pool.Bancor != nil {
		pool.Bancor.Anchor = token.ID
	}
	if err := storage.Save(ctx, env.Store, token); err != nil {
		return err
	}
	return storage.Save(ctx, env.Store, pool)
}

// handleConverterAddition covers the legacy registry, which reports the converter directly.
func handleConverterAddition(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	anchorAddr, converter := ev.Args.Address("_token"), ev.Args.Address("_address")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	protocol, err := getOrCreateProtocol(ctx, env.Store, ev.AddressHex())
	if err != nil {
		return err
	}
	pool, err := getOrCreatePool(ctx, env, ev, protocol.ID, converter)
	if err != nil {
		return err
	}
	anchor, err := getOrCreateToken(ctx, env, ev, anchorAddr)
	if err != nil {
		return err
	}
	anchor.Bancor = &model.BancorToken{Anchor: true, Pool: pool.ID}
	if err := storage.Save(ctx, env.Store, anchor); err != nil {
		return err
	}

	pool.OutputToken = anchor.ID
	pool.Bancor.Anchor = anchor.ID
	if !pool.Bancor.Registered {
		pool.Bancor.Registered = true
		protocol.TotalPoolCount++
	}
	if err := storage.Save(ctx, env.Store, pool); err != nil {
		return err
	}
	return storage.Save(ctx, env.Store, protocol)
}

func handleConverterRemoval(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	converter := ev.Args.AddressHex("_address")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	return removePool(ctx, env.Store, converter)
}

// removePool deletes a converter and its trading fee. A registered converter is
// taken out of its protocol's pool count.
func removePool(ctx context.Context, store storage.Store, id string) error {
	pool, ok, err := storage.Load[model.LiquidityPool](ctx, store, id)
	if err != nil || !ok {
		return err
	}
	if err := storage.Remove(ctx, store, model.KindPool, id); err != nil {
		return err
	}
	if err := storage.Remove(ctx, store, model.KindPoolFee, tradingFeeID(id)); err != nil {
		return err
	}
	if pool.Bancor == nil || !pool.Bancor.Registered || pool.Protocol == "" {
		return nil
	}
	protocol, ok, err := storage.Load[model.DexAmmProtocol](ctx, store, pool.Protocol)
	if err != nil || !ok {
		return err
	}
	protocol.TotalPoolCount--
	return storage.Save(ctx, store, protocol)
}

// loadConverter returns the converter emitting ev, or nil when it was never indexed.
func loadConverter(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) (*model.LiquidityPool, error) {
	pool, ok, err := storage.Load[model.LiquidityPool](ctx, env.Store, ev.AddressHex())
	if err != nil {
		return nil, err
	}
	if !ok {
		env.Warn("converter not indexed", ev, zap.String("converter", ev.AddressHex()), zap.String("event", ev.Name))
		return nil, nil
	}
	if pool.Bancor == nil {
		pool.Bancor = &model.BancorPool{ConverterType: -1, ConversionFee: num.ZeroInt(), MaxConversionFee: num.ZeroInt()}
	}
	return pool, nil
}

func handleConversion(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	args := ev.Args
	fromAddr, toAddr, recipient := args.Address("_fromToken"), args.Address("_toToken"), args.Address("_trader")
	amount, ret, fee := args.BigInt("_amount"), args.BigInt("_return"), args.BigInt("_conversionFee")
	if err := args.Err(); err != nil {
		return err
	}
	pool, err := loadConverter(ctx, env, ev)
	if err != nil || pool == nil {
		return err
	}
	fromToken, err := getOrCreateToken(ctx, env, ev, fromAddr)
	if err != nil {
		return err
	}
	toToken, err := getOrCreateToken(ctx, env, ev, toAddr)
	if err != nil {
		return err
	}
	from, to := pool.TokenIndex(fromToken.ID), pool.TokenIndex(toToken.ID)
	if from == -1 || to == -1 {
		env.Warn("conversion token not a reserve", ev,
			zap.String("converter", pool.ID), zap.String("from", fromToken.ID), zap.String("to", toToken.ID))
		return nil
	}

	fromAmount := num.ConvertToExp18(amount, fromToken.Decimals)
	toAmount := num.ConvertToExp18(ret, toToken.Decimals)
	fromAfter := num.ConvertToExp18(fetchBalance(ctx, env, ev, fromAddr, ev.Address), fromToken.Decimals)
	toAfter := num.ConvertToExp18(fetchBalance(ctx, env, ev, toAddr, ev.Address), toToken.Decimals)
	pool.InputTokenBalances[from] = num.ToBigInt(fromAfter)
	pool.InputTokenBalances[to] = num.ToBigInt(toAfter)

	spot := num.Div(num.Add(fromAfter, fromAmount), num.Sub(toAfter, toAmount))
	price := num.Div(fromAmount, toAmount)
	slippage := num.Div(num.Sub(spot, price), spot)

	amountIn, amountOut := num.ToBigInt(fromAmount), num.ToBigInt(toAmount)
	swap := &model.Swap{
		ID:           "swap-" + ev.ID(),
		Hash:         ev.Tx.Hash,
		LogIndex:     ev.LogIndex,
		Protocol:     pool.Protocol,
		To:           dex.Hex(recipient),
		From:         ev.Tx.From,
		BlockNumber:  ev.Block.Number,
		Timestamp:    ev.Block.Timestamp,
		TokenIn:      fromToken.ID,
		AmountIn:     amountIn,
		AmountInUSD:  decimal.Zero,
		TokenOut:     toToken.ID,
		AmountOut:    amountOut,
		AmountOutUSD: decimal.Zero,
		Pool:         pool.ID,
		Bancor: &model.BancorSwap{
			Trader:        ev.Tx.From,
			Price:         price,
			InversePrice:  num.Div(toAmount, fromAmount),
			Slippage:      slippage,
			ConversionFee: num.FromBigInt(fee),
		},
	}
	pool.Bancor.SwapCount++
	if err := storage.Save(ctx, env.Store, pool); err != nil {
		return err
	}
	if err := storage.Save(ctx, env.Store, swap); err != nil {
		return err
	}

	block := ev.Position()
	if err := aggregate.PoolSwap(ctx, env.Store, pool, block, fromToken.ID, amountIn, toToken.ID, amountOut); err != nil {
		return err
	}
	if pool.Protocol == "" {
		return nil
	}
	return aggregate.Usage(ctx, env.Store, pool.Protocol, block, aggregate.ActivitySwap)
}

func handlePriceDataUpdate(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	args := ev.Args
	tokenAddr := args.Address("_connectorToken")
	supply, balance, weight := args.BigInt("_tokenSupply"), args.BigInt("_connectorBalance"), args.BigInt("_connectorWeight")
	if err := args.Err(); err != nil {
		return err
	}
	pool, err := loadConverter(ctx, env, ev)
	if err != nil || pool == nil {
		return err
	}
	token, err := getOrCreateToken(ctx, env, ev, tokenAddr)
	if err != nil {
		return err
	}
	if idx := pool.TokenIndex(token.ID); idx != -1 {
		pool.InputTokenBalances[idx] = num.ConvertToExp18Int(balance, token.Decimals)
		if idx < len(pool.InputTokenWeights) {
			pool.InputTokenWeights[idx] = num.ConvertToExp18(weight, token.Decimals)
		}
	}

	anchorDecimals := dex.DefaultDecimals
	if anchorAddr, ok := fetchAnchor(ctx, env.Bind(ev, ConverterABI.Must(), ev.Address)); ok {
		anchor, err := getOrCreateToken(ctx, env, ev, anchorAddr)
		if err != nil {
			return err
		}
		anchorDecimals = anchor.Decimals
	}
	pool.OutputTokenSupply = num.ConvertToExp18Int(supply, anchorDecimals)
	return storage.Save(ctx, env.Store, pool)
}

func handleConversionFeeUpdate(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	fee := ev.Args.BigInt("_newFee")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, err := loadConverter(ctx, env, ev)
	if err != nil || pool == nil {
		return err
	}
	pool.Bancor.ConversionFee = fee
	tradingFee := &model.LiquidityPoolFee{
		ID:            tradingFeeID(pool.ID),
		FeeType:       model.FeeTypeDynamicTrading,
		FeePercentage: num.ConvertToExp18(fee, 18),
	}
	if err := storage.Save(ctx, env.Store, tradingFee); err != nil {
		return err
	}
	return storage.Save(ctx, env.Store, pool)
}

func handleOwnerUpdate(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	owner := ev.Args.AddressHex("_newOwner")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, err := loadConverter(ctx, env, ev)
	if err != nil || pool == nil {
		return err
	}
	pool.Bancor.Owner = owner
	return storage.Save(ctx, env.Store, pool)
}

func handleManagerUpdate(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	manager := ev.Args.AddressHex("_newManager")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	pool, err := loadConverter(ctx, env, ev)
	if err != nil || pool == nil {
		return err
	}
	pool.Bancor.Manager = manager
	return storage.Save(ctx, env.Store, pool)
}

func handleVirtualBalancesEnable(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	pool, err := loadConverter(ctx, env, ev)
	if err != nil || pool == nil {
		return err
	}
	if err := refreshReserves(ctx, env, ev, pool, env.Bind(ev, ConverterABI.Must(), ev.Address)); err != nil {
		return err
	}
	return storage.Save(ctx, env.Store, pool)
}

// handleConverterUpgrade links an upgraded converter to its successor, which takes over the
// anchor, and reads both converters' reserve balances.
func handleConverterUpgrade(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	oldAddr, newAddr := ev.Args.Address("_oldConverter"), ev.Args.Address("_newConverter")
	if err := ev.Args.Err(); err != nil {
		return err
	}
	oldPool, ok, err := storage.Load[model.LiquidityPool](ctx, env.Store, dex.Hex(oldAddr))
	if err != nil {
		return err
	}
	if !ok || oldPool.Bancor == nil {
		env.Warn("upgraded converter not indexed", ev, zap.String("converter", dex.Hex(oldAddr)))
		return nil
	}
	newPool, err := getOrCreatePool(ctx, env, ev, oldPool.Protocol, newAddr)
	if err != nil {
		return err
	}
	newPool.OutputToken = oldPool.OutputToken
	newPool.Bancor.Anchor = oldPool.Bancor.Anchor
	oldPool.Bancor.UpgradedTo = newPool.ID

	addresses, ok := fetchReserveTokens(ctx, env.Bind(ev, ConverterABI.Must(), oldAddr))
	if ok {
		tokens := make([]*model.Token, len(addresses))
		for i, addr := range addresses {
			if tokens[i], err = getOrCreateToken(ctx, env, ev, addr); err != nil {
				return err
			}
		}
		setReserveBalances(ctx, env, ev, oldPool, oldAddr, addresses, tokens)
		setReserveBalances(ctx, env, ev, newPool, newAddr, addresses, tokens)
	}
	if err := storage.Save(ctx, env.Store, newPool); err != nil {
		return err
	}
	return storage.Save(ctx, env.Store, oldPool)
}

// setReserveBalances points pool at tokens and reads what holder owns of each.
// Weights of tokens the pool already listed are kept.
func setReserveBalances(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, pool *model.LiquidityPool, holder common.Address, addresses []common.Address, tokens []*model.Token) {
	ids := make([]string, len(tokens))
	balances := make([]*big.Int, len(tokens))
	weights := make([]decimal.Decimal, len(tokens))
	for i, token := range tokens {
		ids[i] = token.ID
		balances[i] = num.ConvertToExp18Int(fetchBalance(ctx, env, ev, addresses[i], holder), token.Decimals)
		if idx := pool.TokenIndex(token.ID); idx != -1 && idx < len(pool.InputTokenWeights) {
			weights[i] = pool.InputTokenWeights[idx]
		}
	}
	pool.InputTokens = ids
	pool.InputTokenBalances = balances
	pool.InputTokenWeights = weights
}

// handleNetworkConversion records swaps routed through BancorNetwork against converters
// that are already indexed.
func handleNetworkConversion(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	args := ev.Args
	anchorAddr, fromAddr, toAddr := args.Address("_smartToken"), args.Address("_fromToken"), args.Address("_toToken")
	amount, ret, recipient := args.BigInt("_fromAmount"), args.BigInt("_toAmount"), args.Address("_trader")
	if err := args.Err(); err != nil {
		return err
	}
	anchor, ok, err := storage.Load[model.Token](ctx, env.Store, dex.Hex(anchorAddr))
	if err != nil {
		return err
	}
	if !ok || anchor.Bancor == nil || anchor.Bancor.Pool == "" {
		env.Warn("network conversion anchor not indexed", ev, zap.String("anchor", dex.Hex(anchorAddr)))
		return nil
	}
	pool, ok, err := storage.Load[model.LiquidityPool](ctx, env.Store, anchor.Bancor.Pool)
	if err != nil {
		return err
	}
	if !ok {
		env.Warn("network conversion pool not indexed", ev, zap.String("pool", anchor.Bancor.Pool))
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
	fromAmount := num.ConvertToExp18(amount, fromToken.Decimals)
	toAmount := num.ConvertToExp18(ret, toToken.Decimals)

	swap := &model.Swap{
		ID:           "swap-" + ev.ID(),
		Hash:         ev.Tx.Hash,
		LogIndex:     ev.LogIndex,
		Protocol:     pool.Protocol,
		To:           dex.Hex(recipient),
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
		Bancor: &model.BancorSwap{
			Trader:        ev.Tx.From,
			Price:         decimal.Zero,
			InversePrice:  num.Div(toAmount, fromAmount),
			Slippage:      decimal.Zero,
			ConversionFee: decimal.Zero,
			Network:       true,
		},
	}
	network := env.Bind(ev, NetworkABI.Must(), ev.Address)
	if values, err := network.Call(ctx, "conversionPath", fromAddr, toAddr); err == nil && len(values) == 1 {
		if path, ok := values[0].([]common.Address); ok {
			swap.Bancor.ConversionPath = make([]string, len(path))
			for i, p := range path {
				swap.Bancor.ConversionPath[i] = dex.Hex(p)
			}
		}
	}
	return storage.Save(ctx, env.Store, swap)
}
