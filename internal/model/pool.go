package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// LiquidityPool is a pool of input tokens issuing an optional output (LP) token.
type LiquidityPool struct {
	ID                               string            `json:"id"`
	Protocol                         string            `json:"protocol"`
	Name                             string            `json:"name"`
	Symbol                           string            `json:"symbol"`
	InputTokens                      []string          `json:"inputTokens"`
	OutputToken                      string            `json:"outputToken,omitempty"`
	Fees                             []string          `json:"fees"`
	IsSingleSided                    bool              `json:"isSingleSided"`
	CreatedTimestamp                 uint64            `json:"createdTimestamp"`
	CreatedBlockNumber               uint64            `json:"createdBlockNumber"`
	TotalValueLockedUSD              decimal.Decimal   `json:"totalValueLockedUSD"`
	CumulativeVolumeUSD              decimal.Decimal   `json:"cumulativeVolumeUSD"`
	CumulativeSupplySideRevenueUSD   decimal.Decimal   `json:"cumulativeSupplySideRevenueUSD"`
	CumulativeProtocolSideRevenueUSD decimal.Decimal   `json:"cumulativeProtocolSideRevenueUSD"`
	CumulativeTotalRevenueUSD        decimal.Decimal   `json:"cumulativeTotalRevenueUSD"`
	InputTokenBalances               []*big.Int        `json:"inputTokenBalances"`
	InputTokenWeights                []decimal.Decimal `json:"inputTokenWeights"`
	OutputTokenSupply                *big.Int          `json:"outputTokenSupply"`
	OutputTokenPriceUSD              decimal.Decimal   `json:"outputTokenPriceUSD"`
	StakedOutputTokenAmount          *big.Int          `json:"stakedOutputTokenAmount"`

	OneInch  *OneInchPool  `json:"oneInch,omitempty"`
	Balancer *BalancerPool `json:"balancer,omitempty"`
	Bancor   *BancorPool   `json:"bancor,omitempty"`
	DODO     *DODOPool     `json:"dodo,omitempty"`
}

// OneInchPool holds Mooniswap fee parameters rescaled to 18 decimals.
type OneInchPool struct {
	Fee      decimal.Decimal `json:"fee"`
	Slippage decimal.Decimal `json:"slippage"`
}

// BalancerPool holds Balancer v1 pool state.
type BalancerPool struct {
	Crp             bool            `json:"crp"`
	Controller      string          `json:"controller"`
	CrpController   string          `json:"crpController,omitempty"`
	Rights          []string        `json:"rights"`
	Cap             *big.Int        `json:"cap,omitempty"`
	PublicSwap      bool            `json:"publicSwap"`
	Finalized       bool            `json:"finalized"`
	Active          bool            `json:"active"`
	SwapFee         decimal.Decimal `json:"swapFee"`
	TotalWeight     decimal.Decimal `json:"totalWeight"`
	TotalShares     decimal.Decimal `json:"totalShares"`
	TotalSwapVolume decimal.Decimal `json:"totalSwapVolume"`
	TotalSwapFee    decimal.Decimal `json:"totalSwapFee"`
	Liquidity       decimal.Decimal `json:"liquidity"`
	TokensCount     *big.Int        `json:"tokensCount"`
	HoldersCount    *big.Int        `json:"holdersCount"`
	JoinsCount      *big.Int        `json:"joinsCount"`
	ExitsCount      *big.Int        `json:"exitsCount"`
	SwapsCount      *big.Int        `json:"swapsCount"`
	Tx              string          `json:"tx,omitempty"`
}

// BancorPool holds Bancor v2 converter state.
type BancorPool struct {
	ConverterType     int      `json:"converterType"`
	ConverterTypeName string   `json:"converterTypeName"`
	Version           int      `json:"version"`
	Anchor            string   `json:"anchor"`
	Owner             string   `json:"owner,omitempty"`
	Manager           string   `json:"manager,omitempty"`
	ConversionFee     *big.Int `json:"conversionFee"`
	MaxConversionFee  *big.Int `json:"maxConversionFee"`
	Registry          string   `json:"registry,omitempty"`
	UpgradedTo        string   `json:"upgradedTo,omitempty"`
	Registered        bool     `json:"registered"`
	SwapCount         int      `json:"swapCount"`
}

// DODO pool types.
const (
	DODOTypeDVM       = "DVM"
	DODOTypeDPP       = "DPP"
	DODOTypeDSP       = "DSP"
	DODOTypeClassical = "CLASSICAL"
)

// DODOPool holds DODO PMM pool state.
type DODOPool struct {
	Type                  string          `json:"type"`
	BaseToken             string          `json:"baseToken"`
	QuoteToken            string          `json:"quoteToken"`
	BaseLpToken           string          `json:"baseLpToken,omitempty"`
	QuoteLpToken          string          `json:"quoteLpToken,omitempty"`
	I                     *big.Int        `json:"i"`
	K                     *big.Int        `json:"k"`
	LpFeeRate             decimal.Decimal `json:"lpFeeRate"`
	MtFeeRate             decimal.Decimal `json:"mtFeeRate"`
	MtFeeRateModel        string          `json:"mtFeeRateModel"`
	Maintainer            string          `json:"maintainer"`
	TxCount               *big.Int        `json:"txCount"`
	VolumeBaseToken       decimal.Decimal `json:"volumeBaseToken"`
	VolumeQuoteToken      decimal.Decimal `json:"volumeQuoteToken"`
	FeeBase               decimal.Decimal `json:"feeBase"`
	FeeQuote              decimal.Decimal `json:"feeQuote"`
	MtFeeBase             decimal.Decimal `json:"mtFeeBase"`
	MtFeeQuote            decimal.Decimal `json:"mtFeeQuote"`
	IsTradeAllowed        bool            `json:"isTradeAllowed"`
	IsDepositBaseAllowed  bool            `json:"isDepositBaseAllowed"`
	IsDepositQuoteAllowed bool            `json:"isDepositQuoteAllowed"`
	Creator               string          `json:"creator"`
	Owner                 string          `json:"owner,omitempty"`
}

func (p *LiquidityPool) EntityKind() string { return KindPool }
func (p *LiquidityPool) EntityID() string   { return p.ID }

// TokenIndex returns the position of token in InputTokens, or -1.
func (p *LiquidityPool) TokenIndex(token string) int {
	for i, id := range p.InputTokens {
		if id == token {
			return i
		}
	}
	return -1
}

// LiquidityPoolFee types.
const (
	FeeTypeTrading  = "FIXED_TRADING_FEE"
	FeeTypeProtocol = "FIXED_PROTOCOL_FEE"
	FeeTypeLP       = "FIXED_LP_FEE"

	FeeTypeDynamicTrading = "DYNAMIC_TRADING_FEE"
)

// LiquidityPoolFee is a fee percentage charged by a pool.
type LiquidityPoolFee struct {
	ID            string          `json:"id"`
	FeePercentage decimal.Decimal `json:"feePercentage"`
	FeeType       string          `json:"feeType"`
}

func (f *LiquidityPoolFee) EntityKind() string { return KindPoolFee }
func (f *LiquidityPoolFee) EntityID() string   { return f.ID }
