package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Swap is a trade against a pool.
type Swap struct {
	ID            string          `json:"id"`
	Hash          string          `json:"hash"`
	LogIndex      uint64          `json:"logIndex"`
	Protocol      string          `json:"protocol"`
	To            string          `json:"to"`
	From          string          `json:"from"`
	BlockNumber   uint64          `json:"blockNumber"`
	Timestamp     uint64          `json:"timestamp"`
	TokenIn       string          `json:"tokenIn"`
	AmountIn      *big.Int        `json:"amountIn"`
	AmountInUSD   decimal.Decimal `json:"amountInUSD"`
	TokenOut      string          `json:"tokenOut"`
	AmountOut     *big.Int        `json:"amountOut"`
	AmountOutUSD  decimal.Decimal `json:"amountOutUSD"`
	Pool          string          `json:"pool"`
	WalletAddress string          `json:"walletAddress,omitempty"`

	Balancer *BalancerSwap `json:"balancer,omitempty"`
	Bancor   *BancorSwap   `json:"bancor,omitempty"`
	DODO     *DODOSwap     `json:"dodo,omitempty"`
}

// BalancerSwap records the pool caller and token symbols at swap time.
type BalancerSwap struct {
	Caller      string `json:"caller"`
	TokenInSym  string `json:"tokenInSym"`
	TokenOutSym string `json:"tokenOutSym"`
}

// BancorSwap records conversion pricing. Network swaps are reported by
// BancorNetwork and carry the conversion path instead of pricing.
type BancorSwap struct {
	Trader         string          `json:"trader"`
	Price          decimal.Decimal `json:"price"`
	InversePrice   decimal.Decimal `json:"inversePrice"`
	Slippage       decimal.Decimal `json:"slippage"`
	ConversionFee  decimal.Decimal `json:"conversionFee"`
	Network        bool            `json:"network,omitempty"`
	ConversionPath []string        `json:"conversionPath,omitempty"`
}

// DODOSwap records PMM swap accounting.
type DODOSwap struct {
	Sender      string          `json:"sender"`
	FeeBase     decimal.Decimal `json:"feeBase"`
	FeeQuote    decimal.Decimal `json:"feeQuote"`
	BaseVolume  decimal.Decimal `json:"baseVolume"`
	QuoteVolume decimal.Decimal `json:"quoteVolume"`
}

func (s *Swap) EntityKind() string { return KindSwap }
func (s *Swap) EntityID() string   { return s.ID }

// Deposit adds liquidity to a pool.
type Deposit struct {
	ID                string          `json:"id"`
	Hash              string          `json:"hash"`
	LogIndex          uint64          `json:"logIndex"`
	Protocol          string          `json:"protocol"`
	To                string          `json:"to"`
	From              string          `json:"from"`
	BlockNumber       uint64          `json:"blockNumber"`
	Timestamp         uint64          `json:"timestamp"`
	InputTokens       []string        `json:"inputTokens"`
	OutputToken       string          `json:"outputToken,omitempty"`
	InputTokenAmounts []*big.Int      `json:"inputTokenAmounts"`
	OutputTokenAmount *big.Int        `json:"outputTokenAmount"`
	AmountUSD         decimal.Decimal `json:"amountUSD"`
	Pool              string          `json:"pool"`
	WalletAddress     string          `json:"walletAddress,omitempty"`
	User              string          `json:"user,omitempty"`
}

func (d *Deposit) EntityKind() string { return KindDeposit }
func (d *Deposit) EntityID() string   { return d.ID }

// Withdraw removes liquidity from a pool.
type Withdraw struct {
	ID                string          `json:"id"`
	Hash              string          `json:"hash"`
	LogIndex          uint64          `json:"logIndex"`
	Protocol          string          `json:"protocol"`
	To                string          `json:"to"`
	From              string          `json:"from"`
	BlockNumber       uint64          `json:"blockNumber"`
	Timestamp         uint64          `json:"timestamp"`
	InputTokens       []string        `json:"inputTokens"`
	OutputToken       string          `json:"outputToken,omitempty"`
	InputTokenAmounts []*big.Int      `json:"inputTokenAmounts"`
	OutputTokenAmount *big.Int        `json:"outputTokenAmount"`
	AmountUSD         decimal.Decimal `json:"amountUSD"`
	Pool              string          `json:"pool"`
	WalletAddress     string          `json:"walletAddress,omitempty"`
	User              string          `json:"user,omitempty"`
}

func (w *Withdraw) EntityKind() string { return KindWithdraw }
func (w *Withdraw) EntityID() string   { return w.ID }

// Transfer types.
const (
	TransferMint = "MINT"
	TransferBurn = "BURN"
)

// Transfer tracks LP token movements within one transaction so Mint and Burn can find their sender.
type Transfer struct {
	ID          string   `json:"id"`
	BlockNumber uint64   `json:"blockNumber"`
	Timestamp   uint64   `json:"timestamp"`
	Type        string   `json:"type,omitempty"`
	Sender      string   `json:"sender,omitempty"`
	Liquidity   *big.Int `json:"liquidity,omitempty"`
}

func (t *Transfer) EntityKind() string { return KindTransfer }
func (t *Transfer) EntityID() string   { return t.ID }
