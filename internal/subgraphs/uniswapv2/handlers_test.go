package uniswapv2

import (
	"math/big"
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"dexsubgraphs/internal/aggregate"
	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/subgraph/subgraphtest"
)

var (
	token0 = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	token1 = common.HexToAddress("0xce3f08e664693ca792cace4af1364d5e220827b2")
	pair   = common.HexToAddress("0x3ad1a7c4c1a7f3b0dd2b6e1c7ad1b21ad3a8b3f1")
	user   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	router = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

const createdAt = 1700000000

func setup(t *testing.T) (*subgraphtest.Harness, Config) {
	t.Helper()
	cfg := Saitaswap()
	h := subgraphtest.New(t)
	if err := New(cfg).Register(h.Router); err != nil {
		t.Fatalf("register: %v", err)
	}
	h.MockToken(token0, "Wrapped Ether", "WETH", 18)
	h.MockToken(token1, "Saitama", "SAITAMA", 9)
	h.MustHandle(subgraphtest.Log{
		ABI:       FactoryABI,
		Event:     "PairCreated",
		Address:   cfg.Factory,
		Block:     100,
		Timestamp: createdAt,
		Args:      []any{token0, token1, pair, big.NewInt(1)},
	})
	return h, cfg
}

func pairLog(event string, block uint64, args ...any) subgraphtest.Log {
	return subgraphtest.Log{
		ABI:       PairABI,
		Event:     event,
		Address:   pair,
		Block:     block,
		Timestamp: createdAt + block,
		Args:      args,
	}
}

func TestPairCreated(t *testing.T) {
	h, cfg := setup(t)

	pool := h.Pool(pair)
	if pool.Name != "Saitaswap Wrapped Ether/Saitama" {
		t.Fatalf("unexpected pool name %q", pool.Name)
	}
	if pool.Symbol != "Wrapped Ether/Saitama" {
		t.Fatalf("unexpected pool symbol %q", pool.Symbol)
	}
	if pool.InputTokens[0] != dex.Hex(token0) || pool.InputTokens[1] != dex.Hex(token1) {
		t.Fatalf("unexpected input tokens %v", pool.InputTokens)
	}
	if len(pool.InputTokenWeights) != 2 || pool.InputTokenWeights[0].String() != "50" {
		t.Fatalf("unexpected weights %v", pool.InputTokenWeights)
	}
	if pool.CreatedBlockNumber != 100 || pool.CreatedTimestamp != createdAt {
		t.Fatalf("unexpected creation stamp %d/%d", pool.CreatedBlockNumber, pool.CreatedTimestamp)
	}
	if len(pool.Fees) != 3 {
		t.Fatalf("expected 3 fees, got %v", pool.Fees)
	}

	lp := subgraphtest.MustLoad[model.LiquidityPoolFee](h, "lp-fee-"+dex.Hex(pair))
	if lp.FeePercentage.String() != "0.3" {
		t.Fatalf("lp fee with switch off: %s", lp.FeePercentage)
	}
	protocolFee := subgraphtest.MustLoad[model.LiquidityPoolFee](h, "protocol-fee-"+dex.Hex(pair))
	if !protocolFee.FeePercentage.IsZero() {
		t.Fatalf("protocol fee with switch off: %s", protocolFee.FeePercentage)
	}

	t1 := subgraphtest.MustLoad[model.Token](h, dex.Hex(token1))
	if t1.Decimals != 9 || t1.Symbol != "SAITAMA" {
		t.Fatalf("unexpected token1 %+v", t1)
	}

	protocol := subgraphtest.MustLoad[model.DexAmmProtocol](h, dex.Hex(cfg.Factory))
	if protocol.TotalPoolCount != 1 || protocol.Name != "Saitaswap" {
		t.Fatalf("unexpected protocol %+v", protocol)
	}
}

func TestTokenDefaultsOnRevert(t *testing.T) {
	cfg := Saitaswap()
	h := subgraphtest.New(t)
	if err := New(cfg).Register(h.Router); err != nil {
		t.Fatalf("register: %v", err)
	}
	h.MustHandle(subgraphtest.Log{
		ABI:     FactoryABI,
		Event:   "PairCreated",
		Address: cfg.Factory,
		Block:   1,
		Args:    []any{token0, token1, pair, big.NewInt(1)},
	})

	tok := subgraphtest.MustLoad[model.Token](h, dex.Hex(token0))
	if tok.Decimals != 18 || tok.Name != "" || tok.Symbol != "" {
		t.Fatalf("unexpected defaults %+v", tok)
	}
	if got := h.Pool(pair).Symbol; got != "/" {
		t.Fatalf("unexpected symbol %q", got)
	}
}

func TestBrokenERC20(t *testing.T) {
	cfg := Saitaswap()
	cfg.BrokenERC20 = []string{token1.Hex()}
	h := subgraphtest.New(t)
	if err := New(cfg).Register(h.Router); err != nil {
		t.Fatalf("register: %v", err)
	}
	h.MockToken(token1, "Saitama", "SAITAMA", 9)
	h.MustHandle(subgraphtest.Log{
		ABI:     FactoryABI,
		Event:   "PairCreated",
		Address: cfg.Factory,
		Block:   1,
		Args:    []any{token0, token1, pair, big.NewInt(1)},
	})

	tok := subgraphtest.MustLoad[model.Token](h, dex.Hex(token1))
	if tok.Decimals != 18 || tok.Symbol != "" {
		t.Fatalf("broken token should get defaults, got %+v", tok)
	}
}

func TestMintCreatesDeposit(t *testing.T) {
	h, cfg := setup(t)

	h.MustHandle(pairLog("Transfer", 200, common.Address{}, common.Address{}, big.NewInt(1000)))
	if supply := h.Pool(pair).OutputTokenSupply; supply.Sign() != 0 {
		t.Fatalf("minimum liquidity should be ignored, supply %s", supply)
	}
	h.MustHandle(pairLog("Transfer", 200, common.Address{}, user, big.NewInt(5000)))
	h.MustHandle(pairLog("Sync", 200, big.NewInt(100), big.NewInt(200)))
	h.MustHandle(pairLog("Mint", 200, router, big.NewInt(100), big.NewInt(200)))

	pool := h.Pool(pair)
	if pool.OutputTokenSupply.String() != "5000" {
		t.Fatalf("unexpected supply %s", pool.OutputTokenSupply)
	}
	if pool.InputTokenBalances[0].String() != "100" || pool.InputTokenBalances[1].String() != "200" {
		t.Fatalf("unexpected balances %v", pool.InputTokenBalances)
	}

	if n := h.Count(model.KindDeposit); n != 1 {
		t.Fatalf("expected one deposit, got %d", n)
	}
	d := subgraphtest.MustLoad[model.Deposit](h, subgraphtest.TxHash(200)+"-4")
	if d.From != dex.Hex(user) || d.To != dex.Hex(pair) || d.WalletAddress != dex.Hex(user) {
		t.Fatalf("unexpected deposit parties %+v", d)
	}
	if d.OutputTokenAmount.String() != "5000" {
		t.Fatalf("unexpected lp amount %s", d.OutputTokenAmount)
	}

	usage := subgraphtest.MustLoad[model.UsageMetricsDailySnapshot](h,
		dex.Hex(cfg.Factory)+"-"+strconv.FormatUint(aggregate.DayID(createdAt+200), 10))
	if usage.DailyDepositCount != 1 || usage.DailyTransactionCount != 1 {
		t.Fatalf("unexpected usage %+v", usage)
	}
}

func TestBurnCreatesWithdraw(t *testing.T) {
	h, _ := setup(t)
	h.MustHandle(pairLog("Transfer", 200, common.Address{}, user, big.NewInt(5000)))

	burnTx := subgraphtest.TxHash(999)
	transfer := pairLog("Transfer", 300, user, pair, big.NewInt(2000))
	transfer.TxHash = burnTx
	h.MustHandle(transfer)
	burnTransfer := pairLog("Transfer", 300, pair, common.Address{}, big.NewInt(2000))
	burnTransfer.TxHash = burnTx
	h.MustHandle(burnTransfer)
	burn := pairLog("Burn", 300, router, big.NewInt(40), big.NewInt(80), user)
	burn.TxHash = burnTx
	burn.LogIndex = subgraphtest.Index(9)
	h.MustHandle(burn)

	if supply := h.Pool(pair).OutputTokenSupply; supply.String() != "3000" {
		t.Fatalf("unexpected supply %s", supply)
	}
	w := subgraphtest.MustLoad[model.Withdraw](h, burnTx+"-9")
	if w.To != dex.Hex(user) || w.From != dex.Hex(pair) {
		t.Fatalf("unexpected withdraw parties %+v", w)
	}
	if w.OutputTokenAmount.String() != "2000" {
		t.Fatalf("unexpected lp amount %s", w.OutputTokenAmount)
	}
	if w.InputTokenAmounts[0].String() != "40" || w.InputTokenAmounts[1].String() != "80" {
		t.Fatalf("unexpected amounts %v", w.InputTokenAmounts)
	}
	tr := subgraphtest.MustLoad[model.Transfer](h, burnTx)
	if tr.Type != model.TransferBurn {
		t.Fatalf("unexpected transfer type %q", tr.Type)
	}
}

func TestSwapOrientation(t *testing.T) {
	h, cfg := setup(t)

	swap := pairLog("Swap", 400, router, big.NewInt(0), big.NewInt(500), big.NewInt(70), big.NewInt(0), user)
	swap.LogIndex = subgraphtest.Index(3)
	h.MustHandle(swap)

	s := subgraphtest.MustLoad[model.Swap](h, subgraphtest.TxHash(400)+"-3")
	if s.TokenIn != dex.Hex(token1) || s.TokenOut != dex.Hex(token0) {
		t.Fatalf("unexpected legs %s -> %s", s.TokenIn, s.TokenOut)
	}
	if s.AmountIn.String() != "500" || s.AmountOut.String() != "70" {
		t.Fatalf("unexpected amounts %s -> %s", s.AmountIn, s.AmountOut)
	}
	if s.From != dex.Hex(router) || s.To != dex.Hex(user) || s.WalletAddress != dex.Hex(user) {
		t.Fatalf("unexpected parties %+v", s)
	}

	day := aggregate.DayID(createdAt + 400)
	snap := subgraphtest.MustLoad[model.LiquidityPoolDailySnapshot](h, dex.Hex(pair)+"-"+strconv.FormatUint(day, 10))
	if snap.DailySwapCount != 1 {
		t.Fatalf("unexpected swap count %d", snap.DailySwapCount)
	}
	if snap.DailyVolumeByTokenAmount[0].String() != "70" || snap.DailyVolumeByTokenAmount[1].String() != "500" {
		t.Fatalf("unexpected volumes %v", snap.DailyVolumeByTokenAmount)
	}
	usage := subgraphtest.MustLoad[model.UsageMetricsDailySnapshot](h, dex.Hex(cfg.Factory)+"-"+strconv.FormatUint(day, 10))
	if usage.DailySwapCount != 1 {
		t.Fatalf("unexpected usage %+v", usage)
	}
}

func TestSwapWithTwoOutputsIgnored(t *testing.T) {
	h, _ := setup(t)
	h.MustHandle(pairLog("Swap", 400, router, big.NewInt(0), big.NewInt(0), big.NewInt(1), big.NewInt(1), user))
	if n := h.Count(model.KindSwap); n != 0 {
		t.Fatalf("expected no swaps, got %d", n)
	}
}

func TestEventsBeforePairCreatedIgnored(t *testing.T) {
	h := subgraphtest.New(t)
	if err := New(Saitaswap()).Register(h.Router); err != nil {
		t.Fatalf("register: %v", err)
	}
	if h.Handle(pairLog("Sync", 1, big.NewInt(1), big.NewInt(1))) {
		t.Fatalf("pair template should not be bound yet")
	}
}
