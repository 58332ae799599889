package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Token is an ERC20 token referenced by pools.
type Token struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Symbol       string              `json:"symbol"`
	Decimals     int                 `json:"decimals"`
	LastPriceUSD decimal.NullDecimal `json:"lastPriceUSD"`

	DODO   *DODOToken   `json:"dodo,omitempty"`
	Bancor *BancorToken `json:"bancor,omitempty"`
}

// BancorToken marks converter anchors (smart tokens), the converter owning them
// and the convertible tokens registered against them.
type BancorToken struct {
	Anchor          bool     `json:"anchor"`
	Pool            string   `json:"pool,omitempty"`
	ConnectorTokens []string `json:"connectorTokens,omitempty"`
}

// DODOToken holds the supply and activity counters DODO keeps per token.
// Pool is set on LP tokens.
type DODOToken struct {
	TotalSupply *big.Int        `json:"totalSupply"`
	TxCount     *big.Int        `json:"txCount"`
	TradeVolume decimal.Decimal `json:"tradeVolume"`
	Pool        string          `json:"pool,omitempty"`
}

func (t *Token) EntityKind() string { return KindToken }
func (t *Token) EntityID() string   { return t.ID }
