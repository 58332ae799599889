package dodo

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/num"
	"dexsubgraphs/internal/subgraph/subgraphtest"
)

var (
	dvm       = common.HexToAddress("0x5162a3c59f350f5939e64af6baad66cdef18dc4a")
	dpp       = common.HexToAddress("0x3058ef90929cb8180174d74c507176cca6835d73")
	weth      = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	quoteAddr = common.HexToAddress("0xca275c8a1b0d39cf1d0c369e7e9146d66bdd9dda")
	creator   = common.HexToAddress("0xe1441ad5582593d72f67de458eeaa8b003487862")
	feeModel  = common.HexToAddress("0x5e84190a270333ace5b9202a3f4cebf11b81bb01")
)

const (
	poolBlock = 17032611
	txFrom    = "0xe1441ad5582593d72f67de458eeaa8b003487862"
)

func setup(t *testing.T) *subgraphtest.Harness {
	t.Helper()
	h := subgraphtest.New(t)
	if err := New(DefaultConfig()).Register(h.Router); err != nil {
		t.Fatalf("register: %v", err)
	}
	return h
}

func mockPMMState(h *subgraphtest.Harness, pool common.Address, b, q string) {
	h.T.Helper()
	h.Mock(PoolABI, pool, "getPMMState", nil,
		big.NewInt(1000000000000), num.MustInt("1000000000000000000"),
		num.MustInt(b), num.MustInt(q), big.NewInt(0), big.NewInt(0), uint8(1))
}

func newDVM(h *subgraphtest.Harness) {
	h.T.Helper()
	h.MockToken(weth, "Wrapped Ether", "WETH", 18)
	h.MockToken(quoteAddr, "Quote Token", "QT", 18)
	h.MockToken(dvm, "DLP", "DLP", 18)
	mockPMMState(h, dvm, "0", "0")
	h.Mock(PoolABI, dvm, "_LP_FEE_RATE_", nil, big.NewInt(2400000000000000))
	h.Mock(PoolABI, dvm, "_MT_FEE_RATE_MODEL_", nil, feeModel)
	h.Mock(PoolABI, dvm, "_MAINTAINER_", nil, feeModel)
	h.MustHandle(subgraphtest.Log{
		ABI:       DVMFactoryABI,
		Event:     "NewDVM",
		Address:   DVMFactory,
		Block:     poolBlock,
		Timestamp: 15555,
		Args:      []any{weth, quoteAddr, creator, dvm},
	})
}

func poolLog(event string, pool common.Address, args ...any) subgraphtest.Log {
	return subgraphtest.Log{
		ABI:       PoolABI,
		Event:     event,
		Address:   pool,
		Block:     poolBlock + 1,
		Timestamp: 15600,
		TxFrom:    txFrom,
		Args:      args,
	}
}

func TestNewDVM(t *testing.T) {
	h := setup(t)
	newDVM(h)

	protocol := subgraphtest.MustLoad[model.DexAmmProtocol](h, dex.Hex(DVMFactory))
	if protocol.TotalPoolCount != 1 || protocol.Name != "DVM Factory" || protocol.Slug != "dvm" {
		t.Fatalf("unexpected protocol %+v", protocol)
	}
	pool := h.Pool(dvm)
	if pool.Name != model.DODOTypeDVM || pool.Symbol != "WETH-QT" || !pool.IsSingleSided {
		t.Fatalf("unexpected pool %s %s", pool.Name, pool.Symbol)
	}
	if pool.InputTokens[0] != dex.Hex(weth) || pool.InputTokens[1] != dex.Hex(quoteAddr) {
		t.Fatalf("unexpected input tokens %v", pool.InputTokens)
	}
	for i, w := range pool.InputTokenWeights {
		if w.String() != "1000000000000000000" {
			t.Fatalf("unexpected weight %d: %s", i, w)
		}
	}
	if pool.InputTokenBalances[0].Sign() != 0 || pool.InputTokenBalances[1].Sign() != 0 {
		t.Fatalf("unexpected balances %v", pool.InputTokenBalances)
	}
	d := pool.DODO
	if d.Creator != dex.Hex(creator) || d.BaseLpToken != dex.Hex(dvm) || d.QuoteLpToken != dex.Hex(dvm) {
		t.Fatalf("unexpected dodo fields %+v", d)
	}
	if d.LpFeeRate.String() != "2400000000000000" || d.MtFeeRateModel != dex.Hex(feeModel) || d.Maintainer != dex.Hex(feeModel) {
		t.Fatalf("unexpected fee fields %+v", d)
	}
	if d.I.String() != "1000000000000" || d.K.String() != "1000000000000000000" {
		t.Fatalf("unexpected curve %s %s", d.I, d.K)
	}
	if pool.OutputToken != dex.Hex(dvm) {
		t.Fatalf("unexpected output token %s", pool.OutputToken)
	}

	lp := subgraphtest.MustLoad[model.Token](h, dex.Hex(dvm))
	if lp.DODO.Pool != pool.ID || lp.DODO.TotalSupply.Sign() != 0 {
		t.Fatalf("unexpected lp token %+v", lp.DODO)
	}

	found := false
	for _, addr := range h.Router.Addresses() {
		if addr == dvm {
			found = true
		}
	}
	if !found {
		t.Fatalf("dvm template not started")
	}
}

func TestBuyAndSellShares(t *testing.T) {
	h := setup(t)
	newDVM(h)

	mockPMMState(h, dvm, "10000000", "10000000")
	h.MustHandle(poolLog("BuyShares", dvm, creator, big.NewInt(1000000000000000), big.NewInt(1000000000000000)))

	if got := h.Count(model.KindDeposit); got != 1 {
		t.Fatalf("expected 1 deposit, got %d", got)
	}
	depositID := subgraphtest.TxHash(poolBlock+1) + "-1"
	deposit := subgraphtest.MustLoad[model.Deposit](h, depositID)
	if deposit.To != dex.Hex(creator) || deposit.User != dex.Hex(creator) || deposit.From != txFrom {
		t.Fatalf("unexpected deposit parties %+v", deposit)
	}
	if deposit.InputTokenAmounts[0].String() != "10000000" || deposit.InputTokenAmounts[1].String() != "10000000" {
		t.Fatalf("unexpected deposit amounts %v", deposit.InputTokenAmounts)
	}
	if deposit.OutputToken != dex.Hex(dvm) || deposit.OutputTokenAmount.String() != "1000000000000000" {
		t.Fatalf("unexpected deposit output %s %s", deposit.OutputToken, deposit.OutputTokenAmount)
	}
	lp := subgraphtest.MustLoad[model.Token](h, dex.Hex(dvm))
	if lp.DODO.TotalSupply.String() != "1000000000000000" || lp.DODO.TxCount.Int64() != 1 {
		t.Fatalf("unexpected lp token after buy %+v", lp.DODO)
	}

	payer := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	mockPMMState(h, dvm, "0", "0")
	h.MustHandle(poolLog("SellShares", dvm, payer, creator, big.NewInt(100000000000000), big.NewInt(0)))

	withdraw := subgraphtest.MustLoad[model.Withdraw](h, subgraphtest.TxHash(poolBlock+1)+"-2")
	if withdraw.User != dex.Hex(payer) || withdraw.To != dex.Hex(creator) {
		t.Fatalf("unexpected withdraw parties %+v", withdraw)
	}
	if withdraw.InputTokenAmounts[0].String() != "10000000" || withdraw.InputTokenAmounts[1].String() != "10000000" {
		t.Fatalf("unexpected withdraw amounts %v", withdraw.InputTokenAmounts)
	}
	lp = subgraphtest.MustLoad[model.Token](h, dex.Hex(dvm))
	if lp.DODO.TotalSupply.String() != "900000000000000" || lp.DODO.TxCount.Int64() != 2 {
		t.Fatalf("unexpected lp token after sell %+v", lp.DODO)
	}
	pool := h.Pool(dvm)
	if pool.InputTokenBalances[0].Sign() != 0 || pool.InputTokenBalances[1].Sign() != 0 {
		t.Fatalf("unexpected balances %v", pool.InputTokenBalances)
	}
}

func TestDODOSwap(t *testing.T) {
	h := setup(t)
	newDVM(h)

	mockPMMState(h, dvm, "9000000000000000000", "12000000000000000000")
	oneEth, twoEth := num.MustInt("1000000000000000000"), num.MustInt("2000000000000000000")
	h.MustHandle(poolLog("DODOSwap", dvm, quoteAddr, weth, twoEth, oneEth, creator, creator))

	swap := subgraphtest.MustLoad[model.Swap](h, "swap-"+subgraphtest.TxHash(poolBlock+1)+"-1")
	if swap.TokenIn != dex.Hex(quoteAddr) || swap.TokenOut != dex.Hex(weth) {
		t.Fatalf("unexpected swap tokens %s %s", swap.TokenIn, swap.TokenOut)
	}
	if swap.AmountIn.String() != twoEth.String() || swap.AmountOut.String() != oneEth.String() {
		t.Fatalf("unexpected swap amounts %s %s", swap.AmountIn, swap.AmountOut)
	}
	if swap.From != txFrom || swap.To != dex.Hex(creator) || swap.Protocol != dex.Hex(DVMFactory) {
		t.Fatalf("unexpected swap parties %+v", swap)
	}
	if swap.DODO.FeeBase.String() != "2400000000000000" || !swap.DODO.FeeQuote.IsZero() {
		t.Fatalf("unexpected swap fees %s %s", swap.DODO.FeeBase, swap.DODO.FeeQuote)
	}

	pool := h.Pool(dvm)
	if pool.InputTokenBalances[0].String() != "9000000000000000000" || pool.InputTokenBalances[1].String() != "12000000000000000000" {
		t.Fatalf("unexpected balances %v", pool.InputTokenBalances)
	}
	d := pool.DODO
	if d.TxCount.Int64() != 1 || d.VolumeBaseToken.String() != oneEth.String() || d.VolumeQuoteToken.String() != twoEth.String() {
		t.Fatalf("unexpected pool volumes %+v", d)
	}
	if d.FeeBase.String() != "2400000000000000" {
		t.Fatalf("unexpected pool fee %s", d.FeeBase)
	}

	token := subgraphtest.MustLoad[model.Token](h, dex.Hex(weth))
	if token.DODO.TxCount.Int64() != 1 || token.DODO.TradeVolume.String() != oneEth.String() {
		t.Fatalf("unexpected token activity %+v", token.DODO)
	}
	if !h.Exists(model.KindPoolDailySnapshot, dex.Hex(dvm)+"-0") {
		t.Fatalf("missing pool daily snapshot")
	}
}

func TestSmartRouteSwapSkipsTokenActivity(t *testing.T) {
	h := setup(t)
	newDVM(h)

	mockPMMState(h, dvm, "1000", "1000")
	h.MustHandle(poolLog("DODOSwap", dvm, weth, quoteAddr, big.NewInt(10), big.NewInt(20), SmartRoutes[0], creator))

	token := subgraphtest.MustLoad[model.Token](h, dex.Hex(weth))
	if token.DODO.TxCount.Sign() != 0 || !token.DODO.TradeVolume.IsZero() {
		t.Fatalf("smart route trade counted %+v", token.DODO)
	}
	if h.Pool(dvm).DODO.TxCount.Int64() != 1 {
		t.Fatalf("pool trade not counted")
	}
}

func TestSwapWithoutPMMStateIgnored(t *testing.T) {
	h := setup(t)
	newDVM(h)

	h.Caller.Set(dvm, PoolABI.Must().Methods["getPMMState"].ID, nil)
	h.MustHandle(poolLog("DODOSwap", dvm, weth, quoteAddr, big.NewInt(10), big.NewInt(20), creator, creator))
	if got := h.Count(model.KindSwap); got != 0 {
		t.Fatalf("expected no swap, got %d", got)
	}
}

func TestRemoveDVM(t *testing.T) {
	h := setup(t)
	newDVM(h)
	h.MustHandle(subgraphtest.Log{
		ABI:     DVMFactoryABI,
		Event:   "RemoveDVM",
		Address: DVMFactory,
		Block:   poolBlock + 2,
		Args:    []any{dvm},
	})
	if h.Exists(model.KindPool, dex.Hex(dvm)) {
		t.Fatalf("pool not removed")
	}
	protocol := subgraphtest.MustLoad[model.DexAmmProtocol](h, dex.Hex(DVMFactory))
	if protocol.TotalPoolCount != 0 {
		t.Fatalf("expected 0 pools, got %d", protocol.TotalPoolCount)
	}

	// a second removal leaves the count alone
	h.MustHandle(subgraphtest.Log{
		ABI:     DVMFactoryABI,
		Event:   "RemoveDVM",
		Address: DVMFactory,
		Block:   poolBlock + 3,
		Args:    []any{dvm},
	})
	protocol = subgraphtest.MustLoad[model.DexAmmProtocol](h, dex.Hex(DVMFactory))
	if protocol.TotalPoolCount != 0 {
		t.Fatalf("expected 0 pools, got %d", protocol.TotalPoolCount)
	}
}

func TestDPPLpFeeRateChange(t *testing.T) {
	h := setup(t)
	h.MockToken(weth, "Wrapped Ether", "WETH", 18)
	h.MockToken(quoteAddr, "Quote Token", "QT", 18)
	mockPMMState(h, dpp, "0", "0")
	h.MustHandle(subgraphtest.Log{
		ABI:       DPPFactoryABI,
		Event:     "NewDPP",
		Address:   DPPFactory,
		Block:     poolBlock,
		Timestamp: 15555,
		Args:      []any{weth, quoteAddr, creator, dpp},
	})
	pool := h.Pool(dpp)
	if pool.DODO.BaseLpToken != "" || pool.DODO.QuoteLpToken != "" || pool.OutputToken != "" {
		t.Fatalf("dpp pools have no lp token: %+v", pool.DODO)
	}

	h.Mock(PoolABI, dpp, "_LP_FEE_RATE_", nil, big.NewInt(3000000000000000))
	mockPMMState(h, dpp, "5000", "7000")
	h.MustHandle(poolLog("LpFeeRateChange", dpp))

	pool = h.Pool(dpp)
	if pool.DODO.LpFeeRate.String() != "3000000000000000" {
		t.Fatalf("unexpected lp fee rate %s", pool.DODO.LpFeeRate)
	}
	if pool.InputTokenBalances[0].String() != "5000" || pool.InputTokenBalances[1].String() != "7000" {
		t.Fatalf("unexpected balances %v", pool.InputTokenBalances)
	}
}

func TestDPPLpFeeRateChangeWithoutStateIsDropped(t *testing.T) {
	h := setup(t)
	h.MockToken(weth, "Wrapped Ether", "WETH", 18)
	h.MockToken(quoteAddr, "Quote Token", "QT", 18)
	h.MustHandle(subgraphtest.Log{
		ABI:       DPPFactoryABI,
		Event:     "NewDPP",
		Address:   DPPFactory,
		Block:     poolBlock,
		Timestamp: 15555,
		Args:      []any{weth, quoteAddr, creator, dpp},
	})
	before := h.Pool(dpp).DODO.LpFeeRate.String()

	h.Mock(PoolABI, dpp, "_LP_FEE_RATE_", nil, big.NewInt(3000000000000000))
	h.MustHandle(poolLog("LpFeeRateChange", dpp))

	if got := h.Pool(dpp).DODO.LpFeeRate.String(); got != before {
		t.Fatalf("lp fee rate saved without pmm state: %s (was %s)", got, before)
	}
}
