package dodo

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/num"
	"dexsubgraphs/internal/subgraph/subgraphtest"
)

var (
	newBorn     = common.HexToAddress("0xd4a36b0acfe2931cf922ea3d91063ddfe4aff01f")
	susd        = common.HexToAddress("0x57ab1ec28d129707052df4df418d58a2d46d5f51")
	susdCapital = common.HexToAddress("0x17f784741cb0a71f0f5ac12b5259e1eec32a7d8f")
	usdtCapital = common.HexToAddress("0xe6735fd5d46307d404047afe6e9c6661c717a577")

	linkPool = common.HexToAddress("0x562c0b218cc9ba06d9eb42f3aef54c54cc5a4650")
	link     = common.HexToAddress("0x514910771af9ca656af840dff83e8264ecf986ca")
	usdc     = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	linkLp   = "0xf03f3d2fbee37f92ec91ae927a8019cacef4b738"
	trader   = common.HexToAddress("0x2f1d1829ac1dd6b8cd0e9d23fa5b2d8bc7bf5a30")
)

const birthBlock = 11400000

func dodoBirth(h *subgraphtest.Harness) {
	h.T.Helper()
	h.MockToken(susd, "Synth sUSD", "sUSD", 18)
	h.MockToken(StableOne, "Tether USD", "USDT", 6)
	h.Mock(ClassicalABI, newBorn, "_BASE_CAPITAL_TOKEN_", nil, susdCapital)
	h.Mock(ClassicalABI, newBorn, "_QUOTE_CAPITAL_TOKEN_", nil, usdtCapital)
	h.Mock(ClassicalABI, newBorn, "_LP_FEE_RATE_", nil, big.NewInt(100000000000000))
	h.MustHandle(subgraphtest.Log{
		ABI:       ZooABI,
		Event:     "DODOBirth",
		Address:   Zoo,
		Block:     birthBlock,
		Timestamp: 1607000000,
		Args:      []any{newBorn, susd, StableOne},
	})
}

func classicalLog(event string, pool common.Address, args ...any) subgraphtest.Log {
	return subgraphtest.Log{
		ABI:       ClassicalABI,
		Event:     event,
		Address:   pool,
		Block:     birthBlock + 10,
		Timestamp: 1607000600,
		TxFrom:    txFrom,
		Args:      args,
	}
}

func TestDODOBirthSeedsClassicalPools(t *testing.T) {
	h := setup(t)
	dodoBirth(h)

	protocol := subgraphtest.MustLoad[model.DexAmmProtocol](h, dex.Hex(Zoo))
	if protocol.TotalPoolCount != len(classicalPools)+1 {
		t.Fatalf("expected %d pools, got %d", len(classicalPools)+1, protocol.TotalPoolCount)
	}
	if protocol.Name != ClassicalName || protocol.Slug != ClassicalSlug {
		t.Fatalf("unexpected protocol %s %s", protocol.Name, protocol.Slug)
	}
	if got := h.Count(model.KindPool); got != len(classicalPools)+1 {
		t.Fatalf("expected %d stored pools, got %d", len(classicalPools)+1, got)
	}

	pool := h.Pool(newBorn)
	d := pool.DODO
	if d.Type != model.DODOTypeClassical || d.Creator != "" {
		t.Fatalf("unexpected new pool %+v", d)
	}
	if d.BaseLpToken != dex.Hex(susdCapital) || d.QuoteLpToken != dex.Hex(usdtCapital) || pool.OutputToken != "" {
		t.Fatalf("unexpected capital tokens %s %s %s", d.BaseLpToken, d.QuoteLpToken, pool.OutputToken)
	}
	if d.LpFeeRate.String() != "100000000000000" || !d.IsDepositBaseAllowed {
		t.Fatalf("unexpected new pool fees %+v", d)
	}
	if pool.Symbol != "sUSD-USDT" {
		t.Fatalf("unexpected symbol %s", pool.Symbol)
	}
	baseLp := subgraphtest.MustLoad[model.Token](h, dex.Hex(susdCapital))
	if baseLp.DODO.Pool != pool.ID {
		t.Fatalf("capital token not linked: %+v", baseLp.DODO)
	}

	seeded := h.Pool(common.HexToAddress("0x85f9569b69083c3e6aeffd301bb2c65606b5d575"))
	if seeded.DODO.Creator != "0x9c59990ec0177d87ed7d60a56f584e6b06c639a2" {
		t.Fatalf("unexpected seeded creator %s", seeded.DODO.Creator)
	}
	if seeded.DODO.IsDepositBaseAllowed || seeded.DODO.IsDepositQuoteAllowed || !seeded.DODO.IsTradeAllowed {
		t.Fatalf("unexpected seeded flags %+v", seeded.DODO)
	}
	if seeded.DODO.LpFeeRate.String() != "3000000000000000" || seeded.CreatedTimestamp != 1606415616 {
		t.Fatalf("unexpected seeded pool %s %d", seeded.DODO.LpFeeRate, seeded.CreatedTimestamp)
	}

	usdt := subgraphtest.MustLoad[model.Token](h, dex.Hex(StableOne))
	if !usdt.LastPriceUSD.Valid || !usdt.LastPriceUSD.Decimal.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("unexpected usdt price %v", usdt.LastPriceUSD)
	}

	started := map[common.Address]bool{}
	for _, addr := range h.Router.Addresses() {
		started[addr] = true
	}
	if !started[newBorn] || !started[linkPool] {
		t.Fatalf("classical templates not started")
	}

	// a second birth does not seed again
	dodoBirth(h)
	protocol = subgraphtest.MustLoad[model.DexAmmProtocol](h, dex.Hex(Zoo))
	if protocol.TotalPoolCount != len(classicalPools)+1 {
		t.Fatalf("expected %d pools after rebirth, got %d", len(classicalPools)+1, protocol.TotalPoolCount)
	}
}

func TestDODOBirthWithoutSeeding(t *testing.T) {
	h := subgraphtest.New(t)
	cfg := DefaultConfig()
	cfg.SeedClassicalPools = false
	if err := New(cfg).Register(h.Router); err != nil {
		t.Fatalf("register: %v", err)
	}
	dodoBirth(h)
	if got := h.Count(model.KindPool); got != 1 {
		t.Fatalf("expected 1 pool, got %d", got)
	}
}

func TestClassicalDepositAndWithdraw(t *testing.T) {
	h := setup(t)
	dodoBirth(h)

	amount := num.MustInt("1956000000000000000000")
	lpAmount := num.MustInt("1955981759276386587267")
	h.Mock(dex.ERC20ABI, link, "balanceOf", []any{linkPool}, num.MustInt("180161444746161361272"))
	h.Mock(dex.ERC20ABI, usdc, "balanceOf", []any{linkPool}, big.NewInt(857012621))
	h.MustHandle(classicalLog("Deposit", linkPool, trader, trader, true, amount, lpAmount))

	deposits := h.Count(model.KindDeposit)
	if deposits != 1 {
		t.Fatalf("expected 1 deposit, got %d", deposits)
	}
	deposit := subgraphtest.MustLoad[model.Deposit](h, subgraphtest.TxHash(birthBlock+10)+"-1")
	if deposit.InputTokenAmounts[0].String() != amount.String() || deposit.InputTokenAmounts[1].Sign() != 0 {
		t.Fatalf("unexpected deposit amounts %v", deposit.InputTokenAmounts)
	}
	if deposit.OutputToken != linkLp || deposit.OutputTokenAmount.String() != lpAmount.String() {
		t.Fatalf("unexpected deposit output %s %s", deposit.OutputToken, deposit.OutputTokenAmount)
	}
	if deposit.User != dex.Hex(trader) || deposit.From != txFrom {
		t.Fatalf("unexpected deposit parties %+v", deposit)
	}

	pool := h.Pool(linkPool)
	if pool.InputTokenBalances[0].String() != "180161444746161361272" || pool.InputTokenBalances[1].String() != "857012621" {
		t.Fatalf("unexpected balances %v", pool.InputTokenBalances)
	}
	lp := subgraphtest.MustLoad[model.Token](h, linkLp)
	if lp.DODO.TotalSupply.String() != lpAmount.String() || lp.DODO.TxCount.Int64() != 1 {
		t.Fatalf("unexpected lp token %+v", lp.DODO)
	}
	linkToken := subgraphtest.MustLoad[model.Token](h, dex.Hex(link))
	if linkToken.DODO.TotalSupply.String() != amount.String() {
		t.Fatalf("unexpected link supply %s", linkToken.DODO.TotalSupply)
	}

	h.MustHandle(classicalLog("Withdraw", linkPool, trader, trader, true, amount, lpAmount))
	withdraw := subgraphtest.MustLoad[model.Withdraw](h, subgraphtest.TxHash(birthBlock+10)+"-2")
	if withdraw.OutputToken != linkLp || withdraw.InputTokenAmounts[0].String() != amount.String() {
		t.Fatalf("unexpected withdraw %+v", withdraw)
	}
	lp = subgraphtest.MustLoad[model.Token](h, linkLp)
	if lp.DODO.TotalSupply.Sign() != 0 || lp.DODO.TxCount.Int64() != 2 {
		t.Fatalf("unexpected lp token after withdraw %+v", lp.DODO)
	}
}

func TestClassicalDepositWithoutCapitalTokensIgnored(t *testing.T) {
	h := subgraphtest.New(t)
	cfg := DefaultConfig()
	cfg.SeedClassicalPools = false
	if err := New(cfg).Register(h.Router); err != nil {
		t.Fatalf("register: %v", err)
	}
	h.MockToken(susd, "Synth sUSD", "sUSD", 18)
	h.MustHandle(subgraphtest.Log{
		ABI:     ZooABI,
		Event:   "DODOBirth",
		Address: Zoo,
		Block:   birthBlock,
		Args:    []any{newBorn, susd, StableOne},
	})
	h.MustHandle(classicalLog("Deposit", newBorn, trader, trader, true, big.NewInt(10), big.NewInt(10)))
	if got := h.Count(model.KindDeposit); got != 0 {
		t.Fatalf("expected no deposit, got %d", got)
	}
}

func TestClassicalSwaps(t *testing.T) {
	h := setup(t)
	dodoBirth(h)

	oneLink := num.MustInt("1000000000000000000")
	h.MustHandle(classicalLog("SellBaseToken", linkPool, trader, oneLink, big.NewInt(5000000)))

	sell := subgraphtest.MustLoad[model.Swap](h, "swap-"+subgraphtest.TxHash(birthBlock+10)+"-1")
	if sell.TokenIn != dex.Hex(link) || sell.TokenOut != dex.Hex(usdc) {
		t.Fatalf("unexpected sell tokens %s %s", sell.TokenIn, sell.TokenOut)
	}
	if sell.DODO.FeeQuote.String() != "15000" || !sell.DODO.FeeBase.IsZero() {
		t.Fatalf("unexpected sell fees %s %s", sell.DODO.FeeBase, sell.DODO.FeeQuote)
	}
	pool := h.Pool(linkPool)
	if pool.InputTokenBalances[0].String() != oneLink.String() || pool.InputTokenBalances[1].String() != "-5000000" {
		t.Fatalf("unexpected balances after sell %v", pool.InputTokenBalances)
	}

	h.MustHandle(classicalLog("BuyBaseToken", linkPool, trader, oneLink, big.NewInt(6000000)))
	buy := subgraphtest.MustLoad[model.Swap](h, "swap-"+subgraphtest.TxHash(birthBlock+10)+"-2")
	if buy.TokenIn != dex.Hex(usdc) || buy.TokenOut != dex.Hex(link) {
		t.Fatalf("unexpected buy tokens %s %s", buy.TokenIn, buy.TokenOut)
	}
	if buy.DODO.FeeBase.String() != "3000000000000000" || !buy.DODO.FeeQuote.IsZero() {
		t.Fatalf("unexpected buy fees %s %s", buy.DODO.FeeBase, buy.DODO.FeeQuote)
	}

	pool = h.Pool(linkPool)
	d := pool.DODO
	if d.TxCount.Int64() != 2 || d.VolumeBaseToken.String() != "2000000000000000000" || d.VolumeQuoteToken.String() != "11000000" {
		t.Fatalf("unexpected pool volumes %+v", d)
	}
	if pool.InputTokenBalances[0].Sign() != 0 || pool.InputTokenBalances[1].String() != "1000000" {
		t.Fatalf("unexpected balances after buy %v", pool.InputTokenBalances)
	}
	linkToken := subgraphtest.MustLoad[model.Token](h, dex.Hex(link))
	if linkToken.DODO.TxCount.Int64() != 2 || linkToken.DODO.TradeVolume.String() != "2000000000000000000" {
		t.Fatalf("unexpected link activity %+v", linkToken.DODO)
	}
}

func TestClassicalFeeUpdates(t *testing.T) {
	h := setup(t)
	dodoBirth(h)

	maintainer := common.HexToAddress("0x95c4f5b83aa70810d4f142d58e5f7242bd891cb0")
	h.MustHandle(classicalLog("UpdateLiquidityProviderFeeRate", linkPool, big.NewInt(3000000000000000), big.NewInt(2000000000000000)))
	h.MustHandle(classicalLog("UpdateMaintainerFeeRate", linkPool, big.NewInt(0), big.NewInt(1000000000000000)))
	h.MustHandle(classicalLog("ChargeMaintainerFee", linkPool, maintainer, true, big.NewInt(700)))
	h.MustHandle(classicalLog("ChargeMaintainerFee", linkPool, maintainer, false, big.NewInt(30)))
	h.MustHandle(classicalLog("ChargeMaintainerFee", linkPool, maintainer, true, big.NewInt(300)))

	d := h.Pool(linkPool).DODO
	if d.LpFeeRate.String() != "2000000000000000" || d.MtFeeRate.String() != "1000000000000000" {
		t.Fatalf("unexpected fee rates %s %s", d.LpFeeRate, d.MtFeeRate)
	}
	if d.MtFeeBase.String() != "1000" || d.MtFeeQuote.String() != "30" {
		t.Fatalf("unexpected maintainer fees %s %s", d.MtFeeBase, d.MtFeeQuote)
	}

	h.Mock(dex.ERC20ABI, link, "balanceOf", []any{linkPool}, big.NewInt(42))
	h.Mock(dex.ERC20ABI, usdc, "balanceOf", []any{linkPool}, big.NewInt(7))
	h.MustHandle(classicalLog("ClaimAssets", linkPool, trader, big.NewInt(1), big.NewInt(1)))
	pool := h.Pool(linkPool)
	if pool.InputTokenBalances[0].Int64() != 42 || pool.InputTokenBalances[1].Int64() != 7 {
		t.Fatalf("unexpected balances after claim %v", pool.InputTokenBalances)
	}
}
