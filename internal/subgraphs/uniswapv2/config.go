package uniswapv2

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"dexsubgraphs/internal/model"
)

// Fee switch positions.
const (
	FeeSwitchOn  = "ON"
	FeeSwitchOff = "OFF"
)

// Config describes one Uniswap-v2 fork deployment.
type Config struct {
	Name               string
	Slug               string
	Network            string
	SchemaVersion      string
	SubgraphVersion    string
	MethodologyVersion string
	Factory            common.Address
	StartBlock         uint64
	// Fees are percentages.
	TradeFee       decimal.Decimal
	ProtocolFeeOn  decimal.Decimal
	LPFeeOn        decimal.Decimal
	ProtocolFeeOff decimal.Decimal
	LPFeeOff       decimal.Decimal
	FeeSwitch      string
	// BrokenERC20 tokens get empty metadata and 18 decimals.
	BrokenERC20 []string
}

// Saitaswap is the Saitaswap deployment on Ethereum mainnet.
func Saitaswap() Config {
	return Config{
		Name:               "Saitaswap",
		Slug:               "saitaswap",
		Network:            model.NetworkMainnet,
		SchemaVersion:      "1.3.0",
		SubgraphVersion:    "1.0.0",
		MethodologyVersion: "1.0.0",
		Factory:            common.HexToAddress("0x35113a300ca0d7621374890abfeac30e88f214b1"),
		TradeFee:           decimal.RequireFromString("0.3"),
		ProtocolFeeOn:      decimal.RequireFromString("0.05"),
		LPFeeOn:            decimal.RequireFromString("0.25"),
		ProtocolFeeOff:     decimal.Zero,
		LPFeeOff:           decimal.RequireFromString("0.3"),
		FeeSwitch:          FeeSwitchOff,
	}
}

func (c Config) protocolFee() decimal.Decimal {
	if c.FeeSwitch == FeeSwitchOn {
		return c.ProtocolFeeOn
	}
	return c.ProtocolFeeOff
}

func (c Config) lpFee() decimal.Decimal {
	if c.FeeSwitch == FeeSwitchOn {
		return c.LPFeeOn
	}
	return c.LPFeeOff
}

func (c Config) isBroken(token string) bool {
	for _, t := range c.BrokenERC20 {
		if strings.EqualFold(t, token) {
			return true
		}
	}
	return false
}
