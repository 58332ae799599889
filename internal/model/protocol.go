package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Protocol types and networks.
const (
	ProtocolTypeExchange = "EXCHANGE"
	NetworkMainnet       = "MAINNET"
	NetworkBSC           = "BSC"
)

// DexAmmProtocol is the root entity of a DEX subgraph.
type DexAmmProtocol struct {
	ID                               string          `json:"id"`
	Name                             string          `json:"name"`
	Slug                             string          `json:"slug"`
	SchemaVersion                    string          `json:"schemaVersion"`
	SubgraphVersion                  string          `json:"subgraphVersion"`
	MethodologyVersion               string          `json:"methodologyVersion"`
	Network                          string          `json:"network"`
	Type                             string          `json:"type"`
	TotalValueLockedUSD              decimal.Decimal `json:"totalValueLockedUSD"`
	CumulativeVolumeUSD              decimal.Decimal `json:"cumulativeVolumeUSD"`
	CumulativeSupplySideRevenueUSD   decimal.Decimal `json:"cumulativeSupplySideRevenueUSD"`
	CumulativeProtocolSideRevenueUSD decimal.Decimal `json:"cumulativeProtocolSideRevenueUSD"`
	CumulativeTotalRevenueUSD        decimal.Decimal `json:"cumulativeTotalRevenueUSD"`
	CumulativeUniqueUsers            int             `json:"cumulativeUniqueUsers"`
	TotalPoolCount                   int             `json:"totalPoolCount"`

	Balancer *BalancerProtocol `json:"balancer,omitempty"`
	Bancor   *BancorProtocol   `json:"bancor,omitempty"`
}

// BalancerProtocol holds Balancer factory counters.
type BalancerProtocol struct {
	Color              string          `json:"color"`
	FinalizedPoolCount int             `json:"finalizedPoolCount"`
	CrpCount           int             `json:"crpCount"`
	TxCount            *big.Int        `json:"txCount"`
	TotalLiquidity     decimal.Decimal `json:"totalLiquidity"`
	TotalSwapVolume    decimal.Decimal `json:"totalSwapVolume"`
	TotalSwapFee       decimal.Decimal `json:"totalSwapFee"`
}

// BancorProtocol lists the smart tokens and convertible tokens a converter registry announced.
type BancorProtocol struct {
	SmartTokens []string `json:"smartTokens"`
	Tokens      []string `json:"tokens"`
}

// NewDexAmmProtocol returns a protocol with zeroed metrics.
func NewDexAmmProtocol(id, name, slug, network string) *DexAmmProtocol {
	return &DexAmmProtocol{
		ID:      id,
		Name:    name,
		Slug:    slug,
		Network: network,
		Type:    ProtocolTypeExchange,
	}
}

func (p *DexAmmProtocol) EntityKind() string { return KindProtocol }
func (p *DexAmmProtocol) EntityID() string   { return p.ID }

// ContractRegistry mirrors a Bancor ContractRegistry's name to address table.
type ContractRegistry struct {
	ID                string   `json:"id"`
	Owner             string   `json:"owner"`
	ContractNames     []string `json:"contractNames"`
	ContractAddresses []string `json:"contractAddresses"`
}

func (r *ContractRegistry) EntityKind() string { return KindContractRegistry }
func (r *ContractRegistry) EntityID() string   { return r.ID }

// Set records address under name, replacing an earlier entry.
func (r *ContractRegistry) Set(name, address string) {
	for i, n := range r.ContractNames {
		if n == name {
			r.ContractAddresses[i] = address
			return
		}
	}
	r.ContractNames = append(r.ContractNames, name)
	r.ContractAddresses = append(r.ContractAddresses, address)
}
