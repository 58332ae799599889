package seaport

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"dexsubgraphs/internal/model"
)

// ItemType is the Seaport item type enum.
type ItemType uint8

const (
	ItemNative ItemType = iota
	ItemERC20
	ItemERC721
	ItemERC1155
	ItemERC721WithCriteria
	ItemERC1155WithCriteria
)

func (t ItemType) isMoney() bool { return t == ItemNative || t == ItemERC20 }

func (t ItemType) isNFT() bool { return t >= ItemERC721 && t <= ItemERC1155WithCriteria }

func (t ItemType) isCriteria() bool { return t == ItemERC721WithCriteria || t == ItemERC1155WithCriteria }

func (t ItemType) standard() string {
	switch t {
	case ItemERC721, ItemERC721WithCriteria:
		return model.NftStandardERC721
	case ItemERC1155, ItemERC1155WithCriteria:
		return model.NftStandardERC1155
	}
	return model.NftStandardUnknown
}

// spentItem and receivedItem mirror the offer and consideration tuples.
type spentItem struct {
	ItemType   uint8
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
}

type receivedItem struct {
	ItemType   uint8
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
	Recipient  common.Address
}

// nfts are the items of one collection changing hands in a sale.
type nfts struct {
	collection common.Address
	itemType   ItemType
	tokenIDs   []*big.Int
	amounts    []*big.Int
}

type sale struct {
	buyer, seller common.Address
	nfts          nfts
	money         *big.Int

	// protocolRevenue goes to a marketplace fee account, creatorRevenue to the royalty beneficiary.
	protocolRevenue *big.Int
	creatorRevenue  *big.Int
}

// Reasons an OrderFulfilled event is not a sale this subgraph records.
var (
	errForeignERC20       = errors.New("erc20 other than weth")
	errEmptyOffer         = errors.New("offer empty")
	errEmptyConsideration = errors.New("consideration empty")
	errNoNFT              = errors.New("nft not found or from several collections")
	errNoMoney            = errors.New("money not found in consideration")
)

// saleRules hold the addresses sale decoding depends on.
type saleRules struct {
	weth        common.Address
	feeAccounts map[common.Address]bool
}

// decodeSale works out buyer, seller, NFTs, volume and fees of an order. If the
// offer is a single money item the order is a bid and the NFTs are in the
// consideration; otherwise it is an ask and the NFTs are the offer.
func (r saleRules) decodeSale(offerer, recipient common.Address, offer []spentItem, consideration []receivedItem) (*sale, error) {
	for _, o := range offer {
		if ItemType(o.ItemType) == ItemERC20 && o.Token != r.weth {
			return nil, errForeignERC20
		}
	}
	for _, c := range consideration {
		if ItemType(c.ItemType) == ItemERC20 && c.Token != r.weth {
			return nil, errForeignERC20
		}
	}
	if len(offer) == 0 {
		return nil, errEmptyOffer
	}
	if len(consideration) == 0 {
		return nil, errEmptyConsideration
	}

	if len(offer) == 1 && ItemType(offer[0].ItemType).isMoney() {
		items, ok := nftsFromConsideration(consideration)
		if !ok {
			return nil, errNoNFT
		}
		s := &sale{buyer: offerer, seller: recipient, nfts: items, money: offer[0].Amount}
		s.protocolRevenue, s.creatorRevenue = r.fees(recipient, consideration)
		return s, nil
	}

	money, ok := moneyFromConsideration(consideration)
	if !ok {
		return nil, errNoMoney
	}
	items, ok := nftsFromOffer(offer)
	if !ok {
		return nil, errNoNFT
	}
	s := &sale{buyer: recipient, seller: offerer, nfts: items, money: money}
	s.protocolRevenue, s.creatorRevenue = r.fees(offerer, consideration)
	return s, nil
}

// moneyFromConsideration sums every money item.
func moneyFromConsideration(consideration []receivedItem) (*big.Int, bool) {
	found := false
	total := new(big.Int)
	for _, c := range consideration {
		if ItemType(c.ItemType).isMoney() {
			found = true
			total.Add(total, c.Amount)
		}
	}
	return total, found
}

func nftsFromOffer(offer []spentItem) (nfts, bool) {
	for _, o := range offer {
		if !ItemType(o.ItemType).isNFT() {
			return nfts{}, false
		}
	}
	out := nfts{collection: offer[0].Token, itemType: ItemType(offer[0].ItemType)}
	for _, o := range offer {
		if o.Token != out.collection {
			return nfts{}, false
		}
		out.tokenIDs = append(out.tokenIDs, o.Identifier)
		out.amounts = append(out.amounts, o.Amount)
	}
	return out, true
}

func nftsFromConsideration(consideration []receivedItem) (nfts, bool) {
	var out nfts
	for _, c := range consideration {
		if !ItemType(c.ItemType).isNFT() {
			continue
		}
		if len(out.tokenIDs) == 0 {
			out.collection, out.itemType = c.Token, ItemType(c.ItemType)
		} else if c.Token != out.collection {
			return nfts{}, false
		}
		out.tokenIDs = append(out.tokenIDs, c.Identifier)
		out.amounts = append(out.amounts, c.Amount)
	}
	return out, len(out.tokenIDs) > 0
}

// fees returns the first item paid to a fee account and the first item paid
// to anyone but a fee account or excluded.
func (r saleRules) fees(excluded common.Address, consideration []receivedItem) (protocol, royalty *big.Int) {
	protocol, royalty = new(big.Int), new(big.Int)
	protocolFound, royaltyFound := false, false
	for _, c := range consideration {
		switch {
		case r.feeAccounts[c.Recipient]:
			if !protocolFound {
				protocol, protocolFound = c.Amount, true
			}
		case c.Recipient != excluded:
			if !royaltyFound {
				royalty, royaltyFound = c.Amount, true
			}
		}
	}
	return protocol, royalty
}
