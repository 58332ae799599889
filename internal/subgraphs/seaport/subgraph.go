// Package seaport indexes NFT sales settled through the Seaport exchange.
package seaport

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/num"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

const (
	MarketplaceName = "OpenSea"
	MarketplaceSlug = "opensea"

	SchemaVersion      = "2.0.1"
	SubgraphVersion    = "1.0.0"
	MethodologyVersion = "1.0.0"
)

// Mainnet deployments.
var (
	SeaportV11 = common.HexToAddress("0x00000000006c3852cbef3e08e8df289169ede581")
	SeaportV14 = common.HexToAddress("0x00000000000001ad428e4906ae43d8f9852d0dd6")
	SeaportV15 = common.HexToAddress("0x00000000000000adc04c56bf30ac9d3c0aaf14dc")

	WETH = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")

	// FeeAccounts receive the OpenSea protocol fee.
	FeeAccounts = []common.Address{
		common.HexToAddress("0x5b3256965e7c3cf26e11fcaf296dfc8807c01073"),
		common.HexToAddress("0x8de9c5a032463c561423387a9648c5c7bcc5bc90"),
		common.HexToAddress("0x0000a26b00c1f0df003000390027140000faa719"),
	}
)

// ERC165 interface ids.
var (
	ERC721InterfaceID  = [4]byte{0x80, 0xac, 0x58, 0xcd}
	ERC1155InterfaceID = [4]byte{0xd9, 0xb6, 0x7a, 0x26}
)

// Order fulfillment methods, keyed by calldata selector.
const (
	MethodFulfillBasicOrder             = "FULFILL_BASIC_ORDER"
	MethodFulfillOrder                  = "FULFILL_ORDER"
	MethodFulfillAdvancedOrder          = "FULFILL_ADVANCED_ORDER"
	MethodFulfillAvailableOrders        = "FULFILL_AVAILABLE_ORDERS"
	MethodFulfillAvailableAdvancedOrder = "FULFILL_AVAILABLE_ADVANCED_ORDERS"
	MethodMatchOrders                   = "MATCH_ORDERS"
	MethodMatchAdvancedOrders           = "MATCH_ADVANCED_ORDERS"
	MethodUnknown                       = "UNKNOWN"
)

var fulfillmentMethods = map[string]string{
	"0xfb0f3ee1": MethodFulfillBasicOrder,
	"0x00000000": MethodFulfillBasicOrder,
	"0xb3a34c4c": MethodFulfillOrder,
	"0xe7acab24": MethodFulfillAdvancedOrder,
	"0xed98a574": MethodFulfillAvailableOrders,
	"0x87201b41": MethodFulfillAvailableAdvancedOrder,
	"0xa8174404": MethodMatchOrders,
	"0x55944a42": MethodMatchAdvancedOrders,
}

var hundred = decimal.NewFromInt(100)

type Config struct {
	// Marketplace is the id of the marketplace entity.
	Marketplace common.Address
	Exchanges   []common.Address
	WETH        common.Address
	FeeAccounts []common.Address
	StartBlock  uint64
}

func DefaultConfig() Config {
	return Config{
		Marketplace: SeaportV11,
		Exchanges:   []common.Address{SeaportV11, SeaportV14, SeaportV15},
		WETH:        WETH,
		FeeAccounts: FeeAccounts,
	}
}

type Subgraph struct {
	cfg   Config
	rules saleRules
}

func New(cfg Config) *Subgraph {
	rules := saleRules{weth: cfg.WETH, feeAccounts: make(map[common.Address]bool, len(cfg.FeeAccounts))}
	for _, addr := range cfg.FeeAccounts {
		rules.feeAccounts[addr] = true
	}
	return &Subgraph{cfg: cfg, rules: rules}
}

// Register adds the exchange data source.
func (s *Subgraph) Register(r *subgraph.Router) error {
	return r.Register(&subgraph.DataSource{
		Name:       "seaport/Exchange",
		ABI:        ExchangeABI,
		Addresses:  s.cfg.Exchanges,
		StartBlock: s.cfg.StartBlock,
		Handlers:   map[string]subgraph.Handler{"OrderFulfilled": s.handleOrderFulfilled},
		NeedsTx:    true,
	})
}

// fulfillmentMethod names the exchange entry point from the transaction input.
func fulfillmentMethod(input string) string {
	input = strings.ToLower(input)
	if len(input) < 10 {
		return MethodUnknown
	}
	if m, ok := fulfillmentMethods[input[:10]]; ok {
		return m
	}
	return MethodUnknown
}

func (s *Subgraph) handleOrderFulfilled(ctx context.Context, env *subgraph.Env, ev *subgraph.Event) error {
	offerer, recipient := ev.Args.Address("offerer"), ev.Args.Address("recipient")
	var offer []spentItem
	var consideration []receivedItem
	ev.Args.Tuple("offer", &offer)
	ev.Args.Tuple("consideration", &consideration)
	if err := ev.Args.Err(); err != nil {
		return err
	}

	sale, err := s.rules.decodeSale(offerer, recipient, offer, consideration)
	if err != nil {
		if !errors.Is(err, errForeignERC20) {
			env.Warn("order is not a sale", ev, zap.Error(err))
		}
		return nil
	}

	marketplace, err := s.getOrCreateMarketplace(ctx, env.Store)
	if err != nil {
		return err
	}
	collection, err := s.getOrCreateCollection(ctx, env, ev, marketplace, sale.nfts.collection)
	if err != nil {
		return err
	}

	buyer, seller := dex.Hex(sale.buyer), dex.Hex(sale.seller)
	isBundle := len(sale.nfts.tokenIDs) > 1
	totalAmount := new(big.Int)
	for _, amount := range sale.nfts.amounts {
		totalAmount.Add(totalAmount, amount)
	}
	volumeETH := num.ConvertTokenToDecimal(sale.money, 18)
	priceETH := num.Div(volumeETH, num.FromBigInt(totalAmount))
	strategy := model.SaleStrategyStandard
	if sale.nfts.itemType.isCriteria() {
		strategy = model.SaleStrategyAnyItemFromSet
	}
	method := fulfillmentMethod(ev.Tx.Input)

	for i, tokenID := range sale.nfts.tokenIDs {
		id := ev.ID()
		if isBundle {
			id += "-" + strconv.Itoa(i)
		}
		trade := &model.Trade{
			ID:              id,
			TransactionHash: ev.Tx.Hash,
			LogIndex:        ev.LogIndex,
			Timestamp:       ev.Block.Timestamp,
			BlockNumber:     ev.Block.Number,
			IsBundle:        isBundle,
			Collection:      collection.ID,
			TokenID:         tokenID,
			Amount:          sale.nfts.amounts[i],
			PriceETH:        priceETH,
			Strategy:        strategy,
			Buyer:           buyer,
			Seller:          seller,
		}
		fulfillment := &model.OrderFulfillment{ID: id, Trade: id, OrderFulfillmentMethod: method}
		if err := storage.Save(ctx, env.Store, trade); err != nil {
			return err
		}
		if err := storage.Save(ctx, env.Store, fulfillment); err != nil {
			return err
		}
	}

	trades := len(sale.nfts.tokenIDs)
	marketplaceRevenue := num.ConvertTokenToDecimal(sale.protocolRevenue, 18)
	creatorRevenue := num.ConvertTokenToDecimal(sale.creatorRevenue, 18)

	collection.TradeCount += trades
	collection.RoyaltyFee = num.Mul(num.Div(num.FromBigInt(sale.creatorRevenue), num.FromBigInt(sale.money)), hundred)
	for _, account := range []struct{ role, addr string }{{"BUYER", buyer}, {"SELLER", seller}} {
		isNew, err := mark(ctx, env.Store, "COLLECTION_ACCOUNT-"+account.role+"-"+collection.ID+"-"+account.addr)
		if err != nil {
			return err
		}
		if !isNew {
			continue
		}
		if account.role == "BUYER" {
			collection.BuyerCount++
		} else {
			collection.SellerCount++
		}
	}
	collection.CumulativeTradeVolumeETH = num.Add(collection.CumulativeTradeVolumeETH, volumeETH)
	collection.MarketplaceRevenueETH = num.Add(collection.MarketplaceRevenueETH, marketplaceRevenue)
	collection.CreatorRevenueETH = num.Add(collection.CreatorRevenueETH, creatorRevenue)
	collection.TotalRevenueETH = num.Add(collection.MarketplaceRevenueETH, collection.CreatorRevenueETH)
	if err := storage.Save(ctx, env.Store, collection); err != nil {
		return err
	}

	marketplace.TradeCount += trades
	marketplace.CumulativeTradeVolumeETH = num.Add(marketplace.CumulativeTradeVolumeETH, volumeETH)
	marketplace.MarketplaceRevenueETH = num.Add(marketplace.MarketplaceRevenueETH, marketplaceRevenue)
	marketplace.CreatorRevenueETH = num.Add(marketplace.CreatorRevenueETH, creatorRevenue)
	marketplace.TotalRevenueETH = num.Add(marketplace.MarketplaceRevenueETH, marketplace.CreatorRevenueETH)
	for _, trader := range []string{buyer, seller} {
		isNew, err := mark(ctx, env.Store, "MARKETPLACE_ACCOUNT-"+trader)
		if err != nil {
			return err
		}
		if isNew {
			marketplace.CumulativeUniqueTraders++
		}
	}
	return storage.Save(ctx, env.Store, marketplace)
}

// mark stores a marker for id and reports whether it was new.
func mark(ctx context.Context, store storage.Store, id string) (bool, error) {
	_, ok, err := storage.Load[model.CollectionMarker](ctx, store, id)
	if err != nil || ok {
		return false, err
	}
	return true, storage.Save(ctx, store, &model.CollectionMarker{ID: id})
}

func (s *Subgraph) getOrCreateMarketplace(ctx context.Context, store storage.Store) (*model.Marketplace, error) {
	id := dex.Hex(s.cfg.Marketplace)
	m, ok, err := storage.Load[model.Marketplace](ctx, store, id)
	if err != nil || ok {
		return m, err
	}
	return &model.Marketplace{
		ID:                 id,
		Name:               MarketplaceName,
		Slug:               MarketplaceSlug,
		Network:            model.NetworkMainnet,
		SchemaVersion:      SchemaVersion,
		SubgraphVersion:    SubgraphVersion,
		MethodologyVersion: MethodologyVersion,
	}, nil
}

func (s *Subgraph) getOrCreateCollection(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, marketplace *model.Marketplace, address common.Address) (*model.Collection, error) {
	id := dex.Hex(address)
	c, ok, err := storage.Load[model.Collection](ctx, env.Store, id)
	if err != nil || ok {
		return c, err
	}
	c = &model.Collection{ID: id, NftStandard: nftStandard(ctx, env, ev, address)}
	info := env.Token(ev, address)
	if v, ok := info.Name(ctx); ok {
		c.Name = v
	}
	if v, ok := info.Symbol(ctx); ok {
		c.Symbol = v
	}
	if v, ok := info.TotalSupply(ctx); ok {
		c.TotalSupply = v
	}
	marketplace.CollectionCount++
	return c, nil
}

// nftStandard asks the collection which token interface it implements.
func nftStandard(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, address common.Address) string {
	contract := env.Bind(ev, ERC165ABI.Must(), address)
	if is721, ok := contract.TryBool(ctx, "supportsInterface", ERC721InterfaceID); !ok {
		env.Warn("erc721 supportsInterface reverted", ev, zap.String("collection", dex.Hex(address)))
	} else if is721 {
		return model.NftStandardERC721
	}
	if is1155, ok := contract.TryBool(ctx, "supportsInterface", ERC1155InterfaceID); !ok {
		env.Warn("erc1155 supportsInterface reverted", ev, zap.String("collection", dex.Hex(address)))
	} else if is1155 {
		return model.NftStandardERC1155
	}
	return model.NftStandardUnknown
}
