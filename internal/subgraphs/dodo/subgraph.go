// Package dodo indexes DODO v1 classical pools and DODO v2 DVM, DPP and DSP pools.
package dodo

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/num"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

const (
	SchemaVersion      = "1.3.0"
	SubgraphVersion    = "1.0.0"
	MethodologyVersion = "1.0.0"

	ClassicalName = "DODO V1"
	ClassicalSlug = "dodo-v1"

	DVMTemplate       = "dodo/DVM"
	DPPTemplate       = "dodo/DPP"
	DSPTemplate       = "dodo/DSP"
	ClassicalTemplate = "dodo/Classical"

	baseCoinSymbol = "ETH"
	baseCoinName   = "ether"

	unknown = "unknown"
)

// Mainnet deployments.
var (
	Zoo        = common.HexToAddress("0x3a97247df274a17c59a3bd12735ea3fcdfb49950")
	DVMFactory = common.HexToAddress("0x72d220ce168c4f361dd4dee5d826a01ad8598f6c")
	DPPFactory = common.HexToAddress("0x6b4fa0bc61eddc928e0df9c7f01e407bfcd3e5ef")
	DSPFactory = common.HexToAddress("0x6fddb76c93299d985f4d3fc7ac468f9a168577a4")

	// BaseCoin stands for native ETH in pool token lists.
	BaseCoin = common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	// StableOne is priced at one dollar.
	StableOne = common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7")

	// SmartRoutes are DODO proxies whose trades are not counted as token activity.
	SmartRoutes = []common.Address{
		common.HexToAddress("0xa356867fdcea8e71aeaf87805808803806231fdc"),
		common.HexToAddress("0xa2398842f37465f89540430bdc00219fa9e4d28a"),
	}
)

type tokenOverride struct {
	symbol   string
	name     string
	decimals int
}

var tokenOverrides = map[string]tokenOverride{
	"0xe0b7927c4af23765cb51314a0e0521a9645f0e2a": {symbol: "DGD", name: "DGD"},
	"0x7fc66500c84a76ad7e9c93437bfc5ac33e2ddae9": {symbol: "AAVE", name: "Aave Token", decimals: 18},
	"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48": {symbol: "USDC"},
}

type Config struct {
	Zoo        common.Address
	DVMFactory common.Address
	DPPFactory common.Address
	DSPFactory common.Address
	// SmartRoutes replaces the default proxy list when set.
	SmartRoutes []common.Address
	// SeedClassicalPools inserts the mainnet v1 pools on the first DODOBirth.
	SeedClassicalPools bool
	StartBlock         uint64
}

func DefaultConfig() Config {
	return Config{
		Zoo:                Zoo,
		DVMFactory:         DVMFactory,
		DPPFactory:         DPPFactory,
		DSPFactory:         DSPFactory,
		SmartRoutes:        SmartRoutes,
		SeedClassicalPools: true,
	}
}

type Subgraph struct {
	cfg         Config
	smartRoutes map[string]bool
}

func New(cfg Config) *Subgraph {
	routes := cfg.SmartRoutes
	if routes == nil {
		routes = SmartRoutes
	}
	s := &Subgraph{cfg: cfg, smartRoutes: make(map[string]bool, len(routes))}
	for _, addr := range routes {
		s.smartRoutes[dex.Hex(addr)] = true
	}
	return s
}

// factory describes one v2 pool factory.
type factory struct {
	address  common.Address
	abi      *dex.LazyABI
	kind     string
	name     string
	slug     string
	created  string
	removed  string
	arg      string
	template string
	lpToken  bool
}

func (s *Subgraph) factories() []factory {
	return []factory{
		{s.cfg.DVMFactory, DVMFactoryABI, model.DODOTypeDVM, "DVM Factory", "dvm", "NewDVM", "RemoveDVM", "dvm", DVMTemplate, true},
		{s.cfg.DPPFactory, DPPFactoryABI, model.DODOTypeDPP, "DPP Factory", "dpp", "NewDPP", "RemoveDPP", "dpp", DPPTemplate, false},
		{s.cfg.DSPFactory, DSPFactoryABI, model.DODOTypeDSP, "DSP Factory", "dsp", "NewDSP", "RemoveDSP", "DSP", DSPTemplate, true},
	}
}

// Register adds the v2 factories, the v1 zoo and the pool templates they start.
func (s *Subgraph) Register(r *subgraph.Router) error {
	shares := map[string]subgraph.Handler{
		"DODOSwap":   s.handleDODOSwap,
		"BuyShares":  s.handleBuyShares,
		"SellShares": s.handleSellShares,
	}
	templates := []*subgraph.DataSource{
		{Name: DVMTemplate, ABI: PoolABI, Handlers: shares, NeedsTx: true},
		{Name: DSPTemplate, ABI: PoolABI, Handlers: shares, NeedsTx: true},
		{
			Name: DPPTemplate,
			ABI:  PoolABI,
			Handlers: map[string]subgraph.Handler{
				"DODOSwap":        s.handleDODOSwap,
				"LpFeeRateChange": s.handleLpFeeRateChange,
			},
			NeedsTx: true,
		},
		{
			Name: ClassicalTemplate,
			ABI:  ClassicalABI,
			Handlers: map[string]subgraph.Handler{
				"Deposit":                        s.handleClassicalDeposit,
				"Withdraw":                       s.handleClassicalWithdraw,
				"SellBaseToken":                  s.handleSellBaseToken,
				"BuyBaseToken":                   s.handleBuyBaseToken,
				"UpdateLiquidityProviderFeeRate": s.handleUpdateLpFeeRate,
				"UpdateMaintainerFeeRate":        s.handleUpdateMtFeeRate,
				"ClaimAssets":                    s.handleClaimAssets,
				"ChargeMaintainerFee":            s.handleChargeMaintainerFee,
			},
			NeedsTx: true,
		},
	}
	for _, ds := range templates {
		if err := r.RegisterTemplate(ds); err != nil {
			return err
		}
	}

	for _, f := range s.factories() {
		if f.address == (common.Address{}) {
			continue
		}
		if err := r.Register(&subgraph.DataSource{
			Name:       "dodo/" + f.kind + "Factory",
			ABI:        f.abi,
			Addresses:  []common.Address{f.address},
			StartBlock: s.cfg.StartBlock,
			Handlers: map[string]subgraph.Handler{
				f.created: s.newPoolHandler(f),
				f.removed: s.removePoolHandler(f),
			},
		}); err != nil {
			return err
		}
	}
	if s.cfg.Zoo == (common.Address{}) {
		return nil
	}
	return r.Register(&subgraph.DataSource{
		Name:       "dodo/Zoo",
		ABI:        ZooABI,
		Addresses:  []common.Address{s.cfg.Zoo},
		StartBlock: s.cfg.StartBlock,
		Handlers:   map[string]subgraph.Handler{"DODOBirth": s.handleDODOBirth},
	})
}

func getOrCreateProtocol(ctx context.Context, store storage.Store, id, name, slug string) (*model.DexAmmProtocol, error) {
	p, ok, err := storage.Load[model.DexAmmProtocol](ctx, store, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		p = model.NewDexAmmProtocol(id, name, slug, model.NetworkMainnet)
	}
	p.SchemaVersion = SchemaVersion
	p.SubgraphVersion = SubgraphVersion
	p.MethodologyVersion = MethodologyVersion
	return p, nil
}

func newDODOToken() *model.DODOToken {
	return &model.DODOToken{TotalSupply: num.ZeroInt(), TxCount: num.ZeroInt()}
}

// getOrCreateToken loads a pool token, fetching its metadata again while the symbol is unknown.
func getOrCreateToken(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, address common.Address) (*model.Token, error) {
	id := dex.Hex(address)
	token, ok, err := storage.Load[model.Token](ctx, env.Store, id)
	if err != nil {
		return nil, err
	}
	switch {
	case !ok:
		token = &model.Token{ID: id, LastPriceUSD: decimal.NewNullDecimal(decimal.Zero), DODO: newDODOToken()}
		if address == StableOne {
			token.LastPriceUSD = decimal.NewNullDecimal(decimal.NewFromInt(1))
		}
		if address == BaseCoin {
			token.Symbol, token.Name, token.Decimals = baseCoinSymbol, baseCoinName, 18
		} else {
			fetchMetadata(ctx, env, ev, token, address)
		}
	case token.Symbol == unknown:
		fetchMetadata(ctx, env, ev, token, address)
	default:
		if token.DODO == nil {
			token.DODO = newDODOToken()
		}
		return token, nil
	}
	if token.DODO == nil {
		token.DODO = newDODOToken()
	}
	if err := storage.Save(ctx, env.Store, token); err != nil {
		return nil, err
	}
	return token, nil
}

// getOrCreateLpToken loads the LP token at address and links it to pool.
// Activity counters start at zero only when the token is first seen.
func getOrCreateLpToken(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, address common.Address, pool string) (*model.Token, error) {
	id := dex.Hex(address)
	token, ok, err := storage.Load[model.Token](ctx, env.Store, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		token = &model.Token{ID: id, LastPriceUSD: decimal.NewNullDecimal(decimal.Zero), DODO: newDODOToken()}
		info := env.Token(ev, address)
		token.Symbol = fetchSymbol(ctx, info, id)
		token.Name = fetchName(ctx, info, id)
		token.Decimals = fetchDecimals(ctx, info, id)
	} else if token.Symbol == unknown {
		fetchMetadata(ctx, env, ev, token, address)
	}
	if token.DODO == nil {
		token.DODO = newDODOToken()
	}
	token.DODO.Pool = pool
	if err := storage.Save(ctx, env.Store, token); err != nil {
		return nil, err
	}
	return token, nil
}

// fetchMetadata reads symbol, name, decimals and the 18-decimal total supply of token.
func fetchMetadata(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, token *model.Token, address common.Address) {
	info := env.Token(ev, address)
	token.Symbol = fetchSymbol(ctx, info, token.ID)
	token.Name = fetchName(ctx, info, token.ID)
	token.Decimals = fetchDecimals(ctx, info, token.ID)
	if token.DODO == nil {
		token.DODO = newDODOToken()
	}
	supply := num.ZeroInt()
	if v, ok := info.TotalSupply(ctx); ok && address != BaseCoin {
		supply = v
	}
	token.DODO.TotalSupply = num.ConvertToExp18Int(supply, token.Decimals)
}

func fetchSymbol(ctx context.Context, info *dex.TokenInfo, id string) string {
	if o, ok := tokenOverrides[id]; ok && o.symbol != "" {
		return o.symbol
	}
	if v, ok := info.Symbol(ctx); ok {
		return v
	}
	return unknown
}

func fetchName(ctx context.Context, info *dex.TokenInfo, id string) string {
	if o, ok := tokenOverrides[id]; ok && o.name != "" {
		return o.name
	}
	if v, ok := info.Name(ctx); ok {
		return v
	}
	return unknown
}

// fetchDecimals returns zero when decimals() reverts.
func fetchDecimals(ctx context.Context, info *dex.TokenInfo, id string) int {
	if o, ok := tokenOverrides[id]; ok && o.decimals != 0 {
		return o.decimals
	}
	if id == dex.Hex(BaseCoin) {
		return 18
	}
	d, _ := info.Decimals(ctx)
	return d
}

// fetchBalance returns the pool's balance of token. Native ETH reads as zero.
func fetchBalance(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, token string, holder common.Address) *big.Int {
	addr := common.HexToAddress(token)
	if addr == BaseCoin {
		return num.ZeroInt()
	}
	if v, ok := env.Token(ev, addr).BalanceOf(ctx, holder); ok {
		return v
	}
	return num.ZeroInt()
}

// poolParams are the inputs of createPool. Zero LP token addresses mean the pool has none.
type poolParams struct {
	protocolID   string
	protocolName string
	protocolSlug string
	address      common.Address
	base, quote  common.Address
	baseLp       common.Address
	quoteLp      common.Address
	timestamp    uint64
	block        uint64
	lpFeeRate    decimal.Decimal
	kind         string
}

// createPool creates the pool, its tokens and LP tokens and counts it on the protocol.
// The pool itself is returned unsaved.
func createPool(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, p poolParams) (*model.LiquidityPool, error) {
	protocol, err := getOrCreateProtocol(ctx, env.Store, p.protocolID, p.protocolName, p.protocolSlug)
	if err != nil {
		return nil, err
	}
	base, err := getOrCreateToken(ctx, env, ev, p.base)
	if err != nil {
		return nil, err
	}
	quote, err := getOrCreateToken(ctx, env, ev, p.quote)
	if err != nil {
		return nil, err
	}

	id := dex.Hex(p.address)
	pool := &model.LiquidityPool{
		ID:                      id,
		Protocol:                protocol.ID,
		Name:                    p.kind,
		Symbol:                  base.Symbol + "-" + quote.Symbol,
		InputTokens:             []string{base.ID, quote.ID},
		Fees:                    []string{},
		IsSingleSided:           true,
		CreatedTimestamp:        p.timestamp,
		CreatedBlockNumber:      p.block,
		InputTokenBalances:      num.Zeros(2),
		InputTokenWeights:       []decimal.Decimal{num.Exp18, num.Exp18},
		OutputTokenSupply:       num.ZeroInt(),
		StakedOutputTokenAmount: num.ZeroInt(),
		DODO: &model.DODOPool{
			Type:                  p.kind,
			BaseToken:             base.ID,
			QuoteToken:            quote.ID,
			I:                     num.ZeroInt(),
			K:                     num.ZeroInt(),
			LpFeeRate:             p.lpFeeRate,
			MtFeeRateModel:        dex.ZeroAddress,
			Maintainer:            dex.ZeroAddress,
			TxCount:               num.ZeroInt(),
			IsTradeAllowed:        true,
			IsDepositBaseAllowed:  true,
			IsDepositQuoteAllowed: true,
		},
	}
	if p.baseLp != (common.Address{}) {
		lp, err := getOrCreateLpToken(ctx, env, ev, p.baseLp, id)
		if err != nil {
			return nil, err
		}
		pool.DODO.BaseLpToken = lp.ID
	}
	if p.quoteLp != (common.Address{}) {
		lp, err := getOrCreateLpToken(ctx, env, ev, p.quoteLp, id)
		if err != nil {
			return nil, err
		}
		pool.DODO.QuoteLpToken = lp.ID
	}
	if pool.DODO.BaseLpToken != "" && pool.DODO.BaseLpToken == pool.DODO.QuoteLpToken {
		pool.OutputToken = pool.DODO.BaseLpToken
	}

	protocol.TotalPoolCount++
	if err := storage.Save(ctx, env.Store, protocol); err != nil {
		return nil, err
	}
	return pool, nil
}

func loadPool(ctx context.Context, store storage.Store, id string) (*model.LiquidityPool, bool, error) {
	pool, ok, err := storage.Load[model.LiquidityPool](ctx, store, strings.ToLower(id))
	if err != nil || !ok {
		return nil, false, err
	}
	if pool.DODO == nil || len(pool.InputTokens) != 2 {
		return nil, false, nil
	}
	return pool, true, nil
}

// loadPoolTokens returns the base and quote tokens of pool.
func loadPoolTokens(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, pool *model.LiquidityPool) (*model.Token, *model.Token, error) {
	base, err := getOrCreateToken(ctx, env, ev, common.HexToAddress(pool.InputTokens[0]))
	if err != nil {
		return nil, nil, err
	}
	quote, err := getOrCreateToken(ctx, env, ev, common.HexToAddress(pool.InputTokens[1]))
	if err != nil {
		return nil, nil, err
	}
	return base, quote, nil
}

func saveAll(ctx context.Context, store storage.Store, entities ...model.Entity) error {
	for _, e := range entities {
		if err := storage.Save(ctx, store, e); err != nil {
			return err
		}
	}
	return nil
}

func inc(v *big.Int) *big.Int {
	return new(big.Int).Add(v, big.NewInt(1))
}
