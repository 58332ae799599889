package balancer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/num"
	"dexsubgraphs/internal/subgraph/subgraphtest"
)

var (
	plainPool   = common.HexToAddress("0x165a50bc092f6870dc111c349bae5fc35147ac86")
	plainCaller = common.HexToAddress("0x487879f338236b992a143f4570913a221261acd7")
	crpPool     = common.HexToAddress("0x036dfa73953a81407204530a4bb1c1417d960c7f")
	crpCaller   = common.HexToAddress("0x64ba29ae508978a73106e50d18a623d70f29f373")
	weth        = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	dai         = common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f")
	ankrETH     = common.HexToAddress("0xe95a203b1a91a908f9b9ce46459d101078c2c3cb")
	rETH        = common.HexToAddress("0xae78736cd615f374d3085123a210448e74fc6393")
)

const newPoolTx = "0x6cf409bbc347d532c79dfab6c7902eb975ae5ada76a339a4c47d36e0aedb805e"

func setup(t *testing.T) *subgraphtest.Harness {
	t.Helper()
	h := subgraphtest.New(t)
	if err := New(DefaultConfig()).Register(h.Router); err != nil {
		t.Fatalf("register: %v", err)
	}
	return h
}

func newPool(h *subgraphtest.Harness, caller, pool common.Address, crp bool) {
	h.T.Helper()
	h.Mock(CRPFactoryABI, CRPFactory, "isCrp", []any{caller}, crp)
	h.MustHandle(subgraphtest.Log{
		ABI:       FactoryABI,
		Event:     "LOG_NEW_POOL",
		Address:   Factory,
		Block:     9664102,
		Timestamp: 1584086880,
		TxHash:    newPoolTx,
		Args:      []any{caller, pool},
	})
}

func logCall(pool, caller common.Address, calldata string) subgraphtest.Log {
	payload := hexutil.MustDecode(calldata)
	var sig [4]byte
	copy(sig[:], payload[:4])
	return subgraphtest.Log{
		ABI:       PoolABI,
		Event:     "LOG_CALL",
		Address:   pool,
		Block:     9664200,
		Timestamp: 1584090000,
		Args:      []any{sig, caller, payload},
	}
}

func TestNewPoolNotCrp(t *testing.T) {
	h := setup(t)
	newPool(h, plainCaller, plainPool, false)

	protocol := subgraphtest.MustLoad[model.DexAmmProtocol](h, dex.Hex(Factory))
	if protocol.TotalPoolCount != 1 || protocol.Balancer.Color != "Bronze" {
		t.Fatalf("unexpected protocol %+v", protocol)
	}
	pool := h.Pool(plainPool)
	if pool.Protocol != dex.Hex(Factory) || pool.Balancer.Crp {
		t.Fatalf("unexpected pool %+v", pool)
	}
	if pool.Balancer.Controller != dex.Hex(plainCaller) || pool.Balancer.Tx != newPoolTx {
		t.Fatalf("unexpected controller/tx %+v", pool.Balancer)
	}
	if pool.CreatedTimestamp != 1584086880 {
		t.Fatalf("unexpected created timestamp %d", pool.CreatedTimestamp)
	}
	if pool.Balancer.SwapFee.String() != "100000000000000000000" || !pool.Balancer.Active {
		t.Fatalf("unexpected defaults %+v", pool.Balancer)
	}
}

func TestNewPoolCrp(t *testing.T) {
	h := setup(t)
	h.Mock(CRPABI, crpCaller, "symbol", nil, "ETHOOOOR")
	h.Mock(CRPABI, crpCaller, "name", nil, "AHHHH IM PRESTAKING")
	h.Mock(CRPABI, crpCaller, "getController", nil, common.HexToAddress("0xA2fAe707667212e330b78ecc5dB244BE1a33a0A1"))
	h.Mock(CRPABI, crpCaller, "rights", nil, false, true, true, true, true, false)
	maxCap, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	h.Mock(CRPABI, crpCaller, "getCap", nil, maxCap)
	newPool(h, crpCaller, crpPool, true)

	pool := h.Pool(crpPool)
	if !pool.Balancer.Crp || pool.Symbol != "ETHOOOOR" || pool.Name != "AHHHH IM PRESTAKING" {
		t.Fatalf("unexpected crp pool %+v", pool)
	}
	want := []string{"canChangeSwapFee", "canChangeWeights", "canAddRemoveTokens", "canWhitelistLPs"}
	if len(pool.Balancer.Rights) != len(want) {
		t.Fatalf("unexpected rights %v", pool.Balancer.Rights)
	}
	for i := range want {
		if pool.Balancer.Rights[i] != want[i] {
			t.Fatalf("unexpected rights %v", pool.Balancer.Rights)
		}
	}
	if pool.Balancer.Cap.Cmp(maxCap) != 0 {
		t.Fatalf("unexpected cap %s", pool.Balancer.Cap)
	}
	if pool.Balancer.CrpController != "0xa2fae707667212e330b78ecc5db244be1a33a0a1" {
		t.Fatalf("unexpected crp controller %s", pool.Balancer.CrpController)
	}
	protocol := subgraphtest.MustLoad[model.DexAmmProtocol](h, dex.Hex(Factory))
	if protocol.Balancer.CrpCount != 1 {
		t.Fatalf("unexpected crp count %d", protocol.Balancer.CrpCount)
	}

	h.Mock(CRPABI, crpCaller, "bPool", nil, crpPool)
	newOwner := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	h.MustHandle(subgraphtest.Log{
		ABI:     CRPABI,
		Event:   "OwnershipTransferred",
		Address: crpCaller,
		Block:   9664300,
		Args:    []any{crpCaller, newOwner},
	})
	if got := h.Pool(crpPool).Balancer.CrpController; got != dex.Hex(newOwner) {
		t.Fatalf("crp controller not updated: %s", got)
	}
}

func TestPoolControls(t *testing.T) {
	h := setup(t)
	newPool(h, crpCaller, crpPool, false)

	h.MustHandle(logCall(crpPool, crpCaller, "0x34e19907000000000000000000000000000000000000000000000000002386f26fc10000"))
	if got := h.Pool(crpPool).Balancer.SwapFee.String(); got != "10000000000000000" {
		t.Fatalf("unexpected swap fee %s", got)
	}

	h.MustHandle(logCall(crpPool, Factory, "0x92eefe9b000000000000000000000000487879f338236b992a143f4570913a221261acd7"))
	if got := h.Pool(crpPool).Balancer.Controller; got != dex.Hex(plainCaller) {
		t.Fatalf("unexpected controller %s", got)
	}

	h.MustHandle(logCall(crpPool, crpCaller, "0x49b595520000000000000000000000000000000000000000000000000000000000000001"))
	if !h.Pool(crpPool).Balancer.PublicSwap {
		t.Fatalf("public swap not set")
	}

	h.MustHandle(logCall(crpPool, crpCaller, "0x4bb278f3"))
	pool := h.Pool(crpPool)
	if !pool.Balancer.Finalized || pool.Symbol != "BPT" {
		t.Fatalf("pool not finalized %+v", pool.Balancer)
	}
	protocol := subgraphtest.MustLoad[model.DexAmmProtocol](h, dex.Hex(Factory))
	if protocol.Balancer.FinalizedPoolCount != 1 || protocol.TotalPoolCount != 1 {
		t.Fatalf("unexpected protocol counters %+v", protocol)
	}
}

func TestUnknownSelectorIgnored(t *testing.T) {
	h := setup(t)
	newPool(h, crpCaller, crpPool, false)
	if h.Handle(logCall(crpPool, crpCaller, "0xdeadbeef")) {
		t.Fatalf("unexpected handler for unknown selector")
	}
}

func TestRebindAndUnbind(t *testing.T) {
	h := setup(t)
	newPool(h, crpCaller, crpPool, false)
	h.MockToken(ankrETH, "Ankr Staked ETH", "ankrETH", 18)
	h.MockToken(rETH, "Rocket Pool ETH", "rETH", 18)

	h.MustHandle(logCall(crpPool, crpCaller, "0xe4e1e538000000000000000000000000e95a203b1a91a908f9b9ce46459d101078c2c3cb00000000000000000000000000000000000000000000000008b38d2d922b80000000000000000000000000000000000000000000000000008ac7230489e80000"))
	pool := h.Pool(crpPool)
	if len(pool.InputTokens) != 1 || pool.InputTokens[0] != dex.Hex(ankrETH) {
		t.Fatalf("unexpected tokens %v", pool.InputTokens)
	}
	if pool.InputTokenWeights[0].String() != "10000000000000000000" || pool.InputTokenBalances[0].String() != "627000000000000000" {
		t.Fatalf("unexpected weight/balance %v %v", pool.InputTokenWeights, pool.InputTokenBalances)
	}
	if tok := subgraphtest.MustLoad[model.Token](h, dex.Hex(ankrETH)); tok.Name != "Ankr Staked ETH" {
		t.Fatalf("unexpected token %+v", tok)
	}

	h.MustHandle(logCall(crpPool, crpCaller, "0xe4e1e538000000000000000000000000ae78736cd615f374d3085123a210448e74fc6393000000000000000000000000000000000000000000000000035834391ede80000000000000000000000000000000000000000000000000004563918244f40000"))
	pool = h.Pool(crpPool)
	if pool.Balancer.TotalWeight.String() != "15000000000000000000" {
		t.Fatalf("unexpected total weight %s", pool.Balancer.TotalWeight)
	}
	if pool.InputTokenBalances[1].String() != "241000000000000000" || pool.Balancer.TokensCount.Int64() != 2 {
		t.Fatalf("unexpected second token %v", pool.InputTokenBalances)
	}

	// rebind ankrETH to a lower weight
	h.MustHandle(logCall(crpPool, crpCaller, "0x3fdddaa2000000000000000000000000e95a203b1a91a908f9b9ce46459d101078c2c3cb00000000000000000000000000000000000000000000000008b38d2d922b80000000000000000000000000000000000000000000000000004563918244f40000"))
	if got := h.Pool(crpPool).Balancer.TotalWeight.String(); got != "10000000000000000000" {
		t.Fatalf("unexpected total weight after rebind %s", got)
	}

	h.MustHandle(logCall(crpPool, crpCaller, "0xcf5e7bd3000000000000000000000000ae78736cd615f374d3085123a210448e74fc6393"))
	pool = h.Pool(crpPool)
	if len(pool.InputTokens) != 1 || len(pool.InputTokenWeights) != 1 || len(pool.InputTokenBalances) != 1 {
		t.Fatalf("unbind left %v", pool.InputTokens)
	}
	if pool.Balancer.TotalWeight.String() != "5000000000000000000" || !pool.Balancer.Active {
		t.Fatalf("unexpected state after unbind %+v", pool.Balancer)
	}
}

func TestJoinExitSwap(t *testing.T) {
	h := setup(t)
	newPool(h, plainCaller, plainPool, false)
	h.MockToken(weth, "Wrapped Ether", "WETH", 18)
	h.MockToken(dai, "Dai Stablecoin", "DAI", 18)
	h.MustHandle(logCall(plainPool, plainCaller, "0xe4e1e538000000000000000000000000c02aaa39b223fe8d0a0e5c4f27ead9083c756cc2000000000000000000000000000000000000000000000000016345785d8a000000000000000000000000000000000000000000000000000053444835ec580000"))
	h.MustHandle(logCall(plainPool, plainCaller, "0xe4e1e5380000000000000000000000006b175474e89094c44da98b954eedeac495271d0f000000000000000000000000000000000000000000000000d02ab486cedc00000000000000000000000000000000000000000000000000003782dace9d900000"))

	joiner := common.HexToAddress("0x907753f96247ccdc0c7ccf246e3cd3e9f419be87")
	h.MustHandle(subgraphtest.Log{
		ABI: PoolABI, Event: "LOG_JOIN", Address: plainPool, Block: 9751185, Timestamp: 15555,
		Args: []any{joiner, weth, num.MustInt("9156681683912724359")},
	})
	pool := h.Pool(plainPool)
	if pool.InputTokenBalances[0].String() != "9256681683912724359" || pool.Balancer.JoinsCount.Int64() != 1 {
		t.Fatalf("unexpected join state %v", pool.InputTokenBalances)
	}
	if n := h.Count(model.KindDeposit); n != 1 {
		t.Fatalf("expected one deposit, got %d", n)
	}

	exiter := common.HexToAddress("0x557c57e399921477f794043b1ed7ef7e9183575d")
	h.MustHandle(subgraphtest.Log{
		ABI: PoolABI, Event: "LOG_EXIT", Address: plainPool, Block: 9853015, Timestamp: 15555555,
		Args: []any{exiter, weth, num.MustInt("285371348779965707")},
	})
	pool = h.Pool(plainPool)
	if pool.InputTokenBalances[0].String() != "8971310335132758652" || pool.Balancer.ExitsCount.Int64() != 1 {
		t.Fatalf("unexpected exit state %v", pool.InputTokenBalances)
	}

	swapTx := "0xf66b9f4ecc639179fe875f5e70582b91d33402229b692e0f41839a8e074d5fd6"
	h.MustHandle(subgraphtest.Log{
		ABI: PoolABI, Event: "LOG_SWAP", Address: plainPool, Block: 10509034, Timestamp: 15555555,
		TxHash: swapTx, LogIndex: subgraphtest.Index(72),
		TxFrom: "0x19aebfcf95497ea1609268e54b670f38b85f27fc",
		Args: []any{
			common.HexToAddress("0x6317c5e82a06e1d8bf200d21f4510ac2c038ac81"), weth, dai,
			num.MustInt("24702524164206722"), num.MustInt("5937807513726456351"),
		},
	})
	pool = h.Pool(plainPool)
	if pool.InputTokenBalances[0].String() != "8996012859296965374" || pool.InputTokenBalances[1].String() != "9062192486273543649" {
		t.Fatalf("unexpected swap balances %v", pool.InputTokenBalances)
	}
	swap := subgraphtest.MustLoad[model.Swap](h, swapTx+"-72")
	if swap.TokenIn != dex.Hex(weth) || swap.TokenOut != dex.Hex(dai) || swap.AmountOut.String() != "5937807513726456351" {
		t.Fatalf("unexpected swap %+v", swap)
	}
	if swap.From != "0x19aebfcf95497ea1609268e54b670f38b85f27fc" || swap.Balancer.TokenInSym != "WETH" {
		t.Fatalf("unexpected swap metadata %+v %+v", swap, swap.Balancer)
	}
}

func TestExitToZeroDeactivates(t *testing.T) {
	h := setup(t)
	newPool(h, plainCaller, plainPool, false)
	h.MustHandle(logCall(plainPool, plainCaller, "0xe4e1e538000000000000000000000000c02aaa39b223fe8d0a0e5c4f27ead9083c756cc2000000000000000000000000000000000000000000000000016345785d8a000000000000000000000000000000000000000000000000000053444835ec580000"))
	h.MustHandle(subgraphtest.Log{
		ABI: PoolABI, Event: "LOG_EXIT", Address: plainPool, Block: 9853015,
		Args: []any{plainCaller, weth, num.MustInt("100000000000000000")},
	})
	if h.Pool(plainPool).Balancer.Active {
		t.Fatalf("pool should be inactive")
	}
	protocol := subgraphtest.MustLoad[model.DexAmmProtocol](h, dex.Hex(Factory))
	if protocol.TotalPoolCount != 0 {
		t.Fatalf("unexpected pool count %d", protocol.TotalPoolCount)
	}
}
