package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// NFT standards.
const (
	NftStandardERC721  = "ERC721"
	NftStandardERC1155 = "ERC1155"
	NftStandardUnknown = "UNKNOWN"
)

// Sale strategies.
const (
	SaleStrategyStandard       = "STANDARD_SALE"
	SaleStrategyAnyItemFromSet = "ANY_ITEM_FROM_SET"
)

// Marketplace is the root entity of an NFT marketplace subgraph.
type Marketplace struct {
	ID                       string          `json:"id"`
	Name                     string          `json:"name"`
	Slug                     string          `json:"slug"`
	Network                  string          `json:"network"`
	SchemaVersion            string          `json:"schemaVersion"`
	SubgraphVersion          string          `json:"subgraphVersion"`
	MethodologyVersion       string          `json:"methodologyVersion"`
	CollectionCount          int             `json:"collectionCount"`
	TradeCount               int             `json:"tradeCount"`
	CumulativeTradeVolumeETH decimal.Decimal `json:"cumulativeTradeVolumeETH"`
	MarketplaceRevenueETH    decimal.Decimal `json:"marketplaceRevenueETH"`
	CreatorRevenueETH        decimal.Decimal `json:"creatorRevenueETH"`
	TotalRevenueETH          decimal.Decimal `json:"totalRevenueETH"`
	CumulativeUniqueTraders  int             `json:"cumulativeUniqueTraders"`
}

func (m *Marketplace) EntityKind() string { return KindMarketplace }
func (m *Marketplace) EntityID() string   { return m.ID }

// Collection is an NFT contract traded on a marketplace.
type Collection struct {
	ID                       string          `json:"id"`
	Name                     string          `json:"name"`
	Symbol                   string          `json:"symbol"`
	TotalSupply              *big.Int        `json:"totalSupply,omitempty"`
	NftStandard              string          `json:"nftStandard"`
	RoyaltyFee               decimal.Decimal `json:"royaltyFee"`
	CumulativeTradeVolumeETH decimal.Decimal `json:"cumulativeTradeVolumeETH"`
	MarketplaceRevenueETH    decimal.Decimal `json:"marketplaceRevenueETH"`
	CreatorRevenueETH        decimal.Decimal `json:"creatorRevenueETH"`
	TotalRevenueETH          decimal.Decimal `json:"totalRevenueETH"`
	TradeCount               int             `json:"tradeCount"`
	BuyerCount               int             `json:"buyerCount"`
	SellerCount              int             `json:"sellerCount"`
}

func (c *Collection) EntityKind() string { return KindCollection }
func (c *Collection) EntityID() string   { return c.ID }

// Trade is the sale of one NFT (or one item of a bundle).
type Trade struct {
	ID              string          `json:"id"`
	TransactionHash string          `json:"transactionHash"`
	LogIndex        uint64          `json:"logIndex"`
	Timestamp       uint64          `json:"timestamp"`
	BlockNumber     uint64          `json:"blockNumber"`
	IsBundle        bool            `json:"isBundle"`
	Collection      string          `json:"collection"`
	TokenID         *big.Int        `json:"tokenId"`
	Amount          *big.Int        `json:"amount"`
	PriceETH        decimal.Decimal `json:"priceETH"`
	Strategy        string          `json:"strategy"`
	Buyer           string          `json:"buyer"`
	Seller          string          `json:"seller"`
}

func (t *Trade) EntityKind() string { return KindTrade }
func (t *Trade) EntityID() string   { return t.ID }

// CollectionMarker records that an account has already been counted for a collection.
type CollectionMarker struct {
	ID string `json:"id"`
}

func (m *CollectionMarker) EntityKind() string { return KindCollectionMarker }
func (m *CollectionMarker) EntityID() string   { return m.ID }

// OrderFulfillment links a trade event to the marketplace entry point that filled it.
type OrderFulfillment struct {
	ID                     string `json:"id"`
	Trade                  string `json:"trade"`
	OrderFulfillmentMethod string `json:"orderFulfillmentMethod"`
}

func (o *OrderFulfillment) EntityKind() string { return KindOrderFulfillment }
func (o *OrderFulfillment) EntityID() string   { return o.ID }
