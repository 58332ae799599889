// Package bancor indexes Bancor v2 converters discovered through the converter registry.
package bancor

import (
	"context"
	"math/big"
	"slices"
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
	ProtocolName = "Bancor V2"
	ProtocolSlug = "bancor-v2"

	SchemaVersion      = "1.3.0"
	SubgraphVersion    = "1.0.0"
	MethodologyVersion = "1.0.0"

	ConverterTemplate         = "bancor/Converter"
	ConverterRegistryTemplate = "bancor/ConverterRegistry"
	UpgraderTemplate          = "bancor/ConverterUpgrader"
	NetworkTemplate           = "bancor/BancorNetwork"
	SmartTokenTemplate        = "bancor/SmartToken"

	// defaultConversionFee applies when neither conversionFee nor maxConversionFee answer.
	defaultConversionFee = 30000

	unknown = "unknown"
)

// ContractRegistry names that start a template.
const (
	nameConverterRegistry = "BancorConverterRegistry"
	nameConverterUpgrader = "BancorConverterUpgrader"
	nameNetwork           = "BancorNetwork"
)

// EthReserve is the placeholder Bancor uses for native ETH reserves.
var EthReserve = common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")

// Mainnet deployments.
var (
	ContractRegistry  = common.HexToAddress("0x52ae12abe5d8bd778bd5397f99ca900624cfadd4")
	ConverterRegistry = common.HexToAddress("0x0ddff327ddf7fe838e3e63d02001ef23ad1ede8e")
)

var converterTypeNames = map[int]string{
	0: "Liquidity Token Converter",
	1: "LiquidityPoolV1Converter",
	2: "LiquidityPoolV2Converter",
	3: "StablePoolConverter",
}

// tokenOverrides pins metadata of tokens whose name or symbol calls are unusable.
var tokenOverrides = map[string][2]string{
	"0x9f8f72aa9304c8b593d555f12ef6589cc3a579a2": {"MKR", "Maker"},
	"0x89d24a6b4ccb1b6faa2625fe562bdd9a23260359": {"SAI", "Sai Stablecoin"},
	"0xe0b7927c4af23765cb51314a0e0521a9645f0e2a": {"DGD", "DigixDAO"},
	"0xf1290473e210b2108a85237fbcd7b6eb42cc654f": {"HEDG", "HedgeTrade"},
}

type Config struct {
	ContractRegistry    common.Address
	ConverterRegistries []common.Address
	StartBlock          uint64
}

func DefaultConfig() Config {
	return Config{
		ContractRegistry:    ContractRegistry,
		ConverterRegistries: []common.Address{ConverterRegistry},
	}
}

// Register adds the contract registry, the converter registries and the templates they start.
func Register(r *subgraph.Router, cfg Config) error {
	templates := []*subgraph.DataSource{
		{
			Name: ConverterTemplate,
			ABI:  ConverterABI,
			Handlers: map[string]subgraph.Handler{
				"Conversion":            handleConversion,
				"PriceDataUpdate":       handlePriceDataUpdate,
				"ConversionFeeUpdate":   handleConversionFeeUpdate,
				"OwnerUpdate":           handleOwnerUpdate,
				"ManagerUpdate":         handleManagerUpdate,
				"VirtualBalancesEnable": handleVirtualBalancesEnable,
			},
			NeedsTx: true,
		},
		{
			Name:     ConverterRegistryTemplate,
			ABI:      ConverterRegistryABI,
			Handlers: registryHandlers(),
		},
		{
			Name:     UpgraderTemplate,
			ABI:      ConverterUpgraderABI,
			Handlers: map[string]subgraph.Handler{"ConverterUpgrade": handleConverterUpgrade},
		},
		{
			Name:     SmartTokenTemplate,
			ABI:      SmartTokenABI,
			Handlers: map[string]subgraph.Handler{"OwnerUpdate": handleSmartTokenOwnerUpdate},
		},
		{
			Name:     NetworkTemplate,
			ABI:      NetworkABI,
			Handlers: map[string]subgraph.Handler{"Conversion": handleNetworkConversion},
			NeedsTx:  true,
		},
	}
	for _, ds := range templates {
		if err := r.RegisterTemplate(ds); err != nil {
			return err
		}
	}
	if err := r.Register(&subgraph.DataSource{
		Name:       "bancor/ContractRegistry",
		ABI:        ContractRegistryABI,
		Addresses:  []common.Address{cfg.ContractRegistry},
		StartBlock: cfg.StartBlock,
		Handlers: map[string]subgraph.Handler{
			"AddressUpdate": handleAddressUpdate,
			"OwnerUpdate":   handleRegistryOwnerUpdate,
		},
	}); err != nil {
		return err
	}
	if len(cfg.ConverterRegistries) == 0 {
		return nil
	}
	return r.Register(&subgraph.DataSource{
		Name:       "bancor/ConverterRegistry",
		ABI:        ConverterRegistryABI,
		Addresses:  cfg.ConverterRegistries,
		StartBlock: cfg.StartBlock,
		Handlers:   registryHandlers(),
	})
}

func registryHandlers() map[string]subgraph.Handler {
	return map[string]subgraph.Handler{
		"ConverterAnchorAdded":    anchorAdded("_anchor"),
		"SmartTokenAdded":         anchorAdded("_smartToken"),
		"LiquidityPoolAdded":      anchorAdded("_liquidityPool"),
		"ConvertibleTokenAdded":   handleConvertibleTokenAdded,
		"ConverterAnchorRemoved":  anchorRemoved("_anchor"),
		"LiquidityPoolRemoved":    anchorRemoved("_liquidityPool"),
		"SmartTokenRemoved":       handleSmartTokenRemoved,
		"ConvertibleTokenRemoved": handleConvertibleTokenRemoved,
		"ConverterAddition":       handleConverterAddition,
		"ConverterRemoval":        handleConverterRemoval,
	}
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
	if p.Bancor == nil {
		p.Bancor = &model.BancorProtocol{SmartTokens: []string{}, Tokens: []string{}}
	}
	return p, nil
}

func addID(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func dropID(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}

func getOrCreateToken(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, address common.Address) (*model.Token, error) {
	id := dex.Hex(address)
	token, ok, err := storage.Load[model.Token](ctx, env.Store, id)
	if err != nil || ok {
		return token, err
	}
	token = newToken(ctx, env, ev, address)
	if err := storage.Save(ctx, env.Store, token); err != nil {
		return nil, err
	}
	return token, nil
}

func newToken(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, address common.Address) *model.Token {
	id := dex.Hex(address)
	token := &model.Token{
		ID:           id,
		Symbol:       unknown,
		Name:         unknown,
		Decimals:     dex.DefaultDecimals,
		LastPriceUSD: decimal.NewNullDecimal(decimal.Zero),
	}
	info := env.Token(ev, address)
	if meta, ok := tokenOverrides[id]; ok {
		token.Symbol, token.Name = meta[0], meta[1]
	} else {
		if v, ok := info.Symbol(ctx); ok {
			token.Symbol = v
		}
		if v, ok := info.Name(ctx); ok {
			token.Name = v
		}
	}
	if d, ok := info.Decimals(ctx); ok {
		token.Decimals = d
	}
	return token
}

// getOrCreateAnchor loads or creates the smart token at address and the converter owning it.
// The converter is named after the anchor once its type is known.
func getOrCreateAnchor(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, protocolID string, address common.Address) (*model.Token, error) {
	protocol, err := getOrCreateProtocol(ctx, env.Store, protocolID)
	if err != nil {
		return nil, err
	}
	token, ok, err := storage.Load[model.Token](ctx, env.Store, dex.Hex(address))
	if err != nil {
		return nil, err
	}
	if !ok {
		token = newToken(ctx, env, ev, address)
	}
	if token.Bancor == nil {
		token.Bancor = &model.BancorToken{}
	}
	token.Bancor.Anchor = true
	protocol.Bancor.SmartTokens = addID(protocol.Bancor.SmartTokens, token.ID)
	if err := env.Create(ev, SmartTokenTemplate, address); err != nil {
		return nil, err
	}

	owner, ok := env.Bind(ev, SmartTokenABI.Must(), address).TryAddress(ctx, "owner")
	if ok {
		pool, err := getOrCreatePool(ctx, env, ev, protocol.ID, owner)
		if err != nil {
			return nil, err
		}
		if !pool.Bancor.Registered {
			pool.Bancor.Registered = true
			protocol.TotalPoolCount++
		}
		token.Bancor.Pool = pool.ID
		pool.OutputToken = token.ID
		pool.Bancor.Anchor = token.ID
		if name, ok := converterTypeNames[pool.Bancor.ConverterType]; ok {
			pool.Name = protocol.Name + "-" + name + "-" + token.Name
			pool.Symbol = protocol.Slug + "-" + token.Symbol
		}
		if err := storage.Save(ctx, env.Store, pool); err != nil {
			return nil, err
		}
	}
	if err := storage.Save(ctx, env.Store, protocol); err != nil {
		return nil, err
	}
	if err := storage.Save(ctx, env.Store, token); err != nil {
		return nil, err
	}
	return token, nil
}

// getOrCreatePool loads or creates the converter at address and refreshes its reserves.
// An empty protocolID keeps the pool's current protocol. New converters start the
// converter template.
func getOrCreatePool(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, protocolID string, address common.Address) (*model.LiquidityPool, error) {
	id := dex.Hex(address)
	pool, ok, err := storage.Load[model.LiquidityPool](ctx, env.Store, id)
	if err != nil {
		return nil, err
	}
	converter := env.Bind(ev, ConverterABI.Must(), address)
	if !ok {
		pool = &model.LiquidityPool{
			ID:                      id,
			Name:                    "Bancor V2 Converter",
			Symbol:                  ProtocolSlug,
			InputTokens:             []string{},
			Fees:                    []string{},
			IsSingleSided:           true,
			CreatedTimestamp:        ev.Block.Timestamp,
			CreatedBlockNumber:      ev.Block.Number,
			InputTokenBalances:      []*big.Int{},
			InputTokenWeights:       []decimal.Decimal{},
			OutputTokenSupply:       num.ZeroInt(),
			StakedOutputTokenAmount: num.ZeroInt(),
			Bancor: &model.BancorPool{
				ConverterType:    -1,
				ConversionFee:    num.ZeroInt(),
				MaxConversionFee: num.ZeroInt(),
			},
		}
		if anchor, ok := fetchAnchor(ctx, converter); ok {
			pool.OutputToken = dex.Hex(anchor)
			pool.Bancor.Anchor = pool.OutputToken
		}
		if owner, ok := converter.TryAddress(ctx, "owner"); ok {
			pool.Bancor.Owner = dex.Hex(owner)
		}
		if manager, ok := converter.TryAddress(ctx, "manager"); ok {
			pool.Bancor.Manager = dex.Hex(manager)
		}
		fee, err := createTradingFee(ctx, env.Store, pool, converter)
		if err != nil {
			return nil, err
		}
		pool.Fees = []string{fee.ID}
		if err := env.Create(ev, ConverterTemplate, address); err != nil {
			return nil, err
		}
	}
	if pool.Bancor == nil {
		pool.Bancor = &model.BancorPool{ConverterType: -1, ConversionFee: num.ZeroInt(), MaxConversionFee: num.ZeroInt()}
	}
	if protocolID != "" && protocolID != dex.ZeroAddress {
		pool.Protocol = protocolID
	}

	if err := refreshReserves(ctx, env, ev, pool, converter); err != nil {
		return nil, err
	}
	if v, ok := converter.TryBigInt(ctx, "version"); ok {
		pool.Bancor.Version = int(v.Int64())
	}
	if t, ok := converter.TryBigInt(ctx, "converterType"); ok {
		pool.Bancor.ConverterType = int(t.Int64())
		pool.Bancor.ConverterTypeName = converterTypeNames[pool.Bancor.ConverterType]
	}
	if err := storage.Save(ctx, env.Store, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// createTradingFee writes the converter's trading fee, read from conversionFee or maxConversionFee.
func createTradingFee(ctx context.Context, store storage.Store, pool *model.LiquidityPool, converter *dex.Contract) (*model.LiquidityPoolFee, error) {
	maxFee, hasMax := converter.TryBigInt(ctx, "maxConversionFee")
	if hasMax {
		pool.Bancor.MaxConversionFee = maxFee
	}
	fee, ok := converter.TryBigInt(ctx, "conversionFee")
	switch {
	case ok:
	case hasMax:
		fee = maxFee
	default:
		fee = big.NewInt(defaultConversionFee)
	}
	pool.Bancor.ConversionFee = fee

	entity := &model.LiquidityPoolFee{
		ID:            tradingFeeID(pool.ID),
		FeeType:       model.FeeTypeDynamicTrading,
		FeePercentage: num.ConvertToExp18(fee, 18),
	}
	if err := storage.Save(ctx, store, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func tradingFeeID(pool string) string {
	return pool + "-trading-fee"
}

func fetchAnchor(ctx context.Context, converter *dex.Contract) (common.Address, bool) {
	if anchor, ok := converter.TryAddress(ctx, "token"); ok {
		return anchor, true
	}
	return converter.TryAddress(ctx, "anchor")
}

// connector mirrors both connectors(address) and reserves(address); the two share a layout.
type connector struct {
	Balance *big.Int
	Weight  uint32
	IsSet   bool
}

type connectorsResult struct {
	VirtualBalance          *big.Int
	Weight                  uint32
	IsVirtualBalanceEnabled bool
	IsSaleEnabled           bool
	IsSet                   bool
}

type reservesResult struct {
	Balance     *big.Int
	Weight      uint32
	Deprecated1 bool
	Deprecated2 bool
	IsSet       bool
}

func fetchConnector(ctx context.Context, converter *dex.Contract, token common.Address) (connector, bool) {
	var c connectorsResult
	if converter.TryTuple(ctx, &c, "connectors", token) {
		return connector{Balance: c.VirtualBalance, Weight: c.Weight, IsSet: c.IsSet}, true
	}
	var r reservesResult
	if converter.TryTuple(ctx, &r, "reserves", token) {
		return connector{Balance: r.Balance, Weight: r.Weight, IsSet: r.IsSet}, true
	}
	return connector{}, false
}

// fetchReserveTokens lists the converter's reserve tokens, or ok=false when any call reverts.
func fetchReserveTokens(ctx context.Context, converter *dex.Contract) ([]common.Address, bool) {
	count, ok := converter.TryBigInt(ctx, "connectorTokenCount")
	if !ok {
		count, ok = converter.TryBigInt(ctx, "reserveTokenCount")
	}
	if !ok {
		return nil, false
	}
	tokens := make([]common.Address, 0, count.Int64())
	for i := int64(0); i < count.Int64(); i++ {
		idx := big.NewInt(i)
		token, ok := converter.TryAddress(ctx, "connectorTokens", idx)
		if !ok {
			token, ok = converter.TryAddress(ctx, "reserveTokens", idx)
		}
		if !ok {
			return nil, false
		}
		tokens = append(tokens, token)
	}
	return tokens, true
}

// refreshReserves reloads input tokens, balances and weights from the converter.
// Balances and weights are rescaled to 18 decimals.
func refreshReserves(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, pool *model.LiquidityPool, converter *dex.Contract) error {
	addresses, ok := fetchReserveTokens(ctx, converter)
	if !ok {
		return nil
	}
	tokens := make([]string, len(addresses))
	balances := make([]*big.Int, len(addresses))
	weights := make([]decimal.Decimal, len(addresses))
	for i, addr := range addresses {
		token, err := getOrCreateToken(ctx, env, ev, addr)
		if err != nil {
			return err
		}
		tokens[i] = token.ID
		c, ok := fetchConnector(ctx, converter, addr)
		if !ok {
			balances[i] = num.ZeroInt()
			weights[i] = decimal.Zero
			continue
		}
		balances[i] = num.ConvertToExp18Int(c.Balance, token.Decimals)
		weights[i] = num.ConvertToExp18(new(big.Int).SetUint64(uint64(c.Weight)), token.Decimals)
	}
	pool.InputTokens = tokens
	pool.InputTokenBalances = balances
	pool.InputTokenWeights = weights
	return nil
}

// fetchBalance reads what the converter holds of token. ETH reserves are
// reported by the converter itself.
func fetchBalance(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, token, owner common.Address) *big.Int {
	if token == EthReserve {
		converter := env.Bind(ev, ConverterABI.Must(), owner)
		if v, ok := converter.TryBigInt(ctx, "reserveBalance", token); ok {
			return v
		}
		if v, ok := converter.TryBigInt(ctx, "getConnectorBalance", token); ok {
			return v
		}
		return num.ZeroInt()
	}
	if v, ok := env.Token(ev, token).BalanceOf(ctx, owner); ok {
		return v
	}
	return num.ZeroInt()
}

// registryName decodes a bytes32 contract name.
func registryName(raw []byte) string {
	return strings.TrimRight(string(raw), "\x00")
}
