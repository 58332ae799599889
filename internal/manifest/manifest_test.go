package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"dexsubgraphs/internal/subgraph"
	"dexsubgraphs/internal/subgraphs/dodo"
	"dexsubgraphs/internal/subgraphs/ellipsis"
	"dexsubgraphs/internal/subgraphs/seaport"
	"dexsubgraphs/internal/subgraphs/uniswapv2"
)

func hasAddress(addrs []common.Address, want common.Address) bool {
	for _, a := range addrs {
		if a == want {
			return true
		}
	}
	return false
}

func TestDefaultManifestBuilds(t *testing.T) {
	m, err := Load("")
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	got := strings.Join(m.Enabled(), ",")
	if got != "balancer,bancor,dodo,ellipsis,oneinch,seaport,uniswapv2" {
		t.Fatalf("unexpected enabled sections %s", got)
	}

	r := subgraph.NewRouter(zap.NewNop())
	if err := m.Build(r); err != nil {
		t.Fatalf("build: %v", err)
	}
	addrs := r.Addresses()
	for _, want := range []common.Address{
		uniswapv2.Saitaswap().Factory,
		dodo.Zoo,
		dodo.DPPFactory,
		ellipsis.Registry,
		ellipsis.ThreePool,
		seaport.SeaportV15,
	} {
		if !hasAddress(addrs, want) {
			t.Fatalf("address %s not registered", want.Hex())
		}
	}
	if len(r.Topics()) == 0 {
		t.Fatalf("no topics registered")
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("FORK_FACTORY", "0x1f98431c8ad98523631ae4a59f267346ea31f984")
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	body := `
subgraphs:
  uniswapv2:
    enabled: true
    forks:
      - name: Example
        slug: example
        network: bsc
        factory: "${FORK_FACTORY}"
        start_block: 42
        trade_fee: "0.25"
        fee_switch: "on"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := m.Enabled(); len(got) != 1 || got[0] != "uniswapv2" {
		t.Fatalf("unexpected enabled sections %v", got)
	}
	cfg, err := m.Subgraphs.UniswapV2.Forks[0].config()
	if err != nil {
		t.Fatalf("fork config: %v", err)
	}
	if cfg.Factory != common.HexToAddress("0x1f98431c8ad98523631ae4a59f267346ea31f984") {
		t.Fatalf("env not expanded: %s", cfg.Factory.Hex())
	}
	if cfg.Network != "BSC" || cfg.FeeSwitch != uniswapv2.FeeSwitchOn || cfg.StartBlock != 42 {
		t.Fatalf("unexpected fork config %+v", cfg)
	}
	if cfg.TradeFee.String() != "0.25" || cfg.LPFeeOn.String() != "0.25" {
		t.Fatalf("unexpected fees trade=%s lp=%s", cfg.TradeFee, cfg.LPFeeOn)
	}

	r := subgraph.NewRouter(zap.NewNop())
	if err := m.Build(r); err != nil {
		t.Fatalf("build: %v", err)
	}
	if start, ok := r.StartBlock(); !ok || start != 42 {
		t.Fatalf("unexpected start block %d %v", start, ok)
	}
}

func TestAddressOverrides(t *testing.T) {
	m, err := Parse([]byte(`
subgraphs:
  seaport:
    enabled: true
    addresses:
      exchanges: "0x00000000000000adc04c56bf30ac9d3c0aaf14dc"
  ellipsis:
    enabled: true
    addresses:
      registry: "0x0000000000000000000000000000000000000000"
    pools:
      - address: "0x19ec9e3f7b21dd27598e7ad5aae7dc0db00a806d"
        coins: 2
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := seaportConfig(m.Subgraphs.Seaport)
	if err != nil {
		t.Fatalf("seaport config: %v", err)
	}
	if len(cfg.Exchanges) != 1 || cfg.Exchanges[0] != seaport.SeaportV15 {
		t.Fatalf("unexpected exchanges %v", cfg.Exchanges)
	}
	if cfg.Marketplace != seaport.SeaportV11 || len(cfg.FeeAccounts) != len(seaport.FeeAccounts) {
		t.Fatalf("defaults not kept %+v", cfg)
	}
	ecfg, err := ellipsisConfig(m.Subgraphs.Ellipsis)
	if err != nil {
		t.Fatalf("ellipsis config: %v", err)
	}
	if ecfg.Registry != (common.Address{}) || len(ecfg.Pools) != 1 || ecfg.Pools[0].Coins != 2 {
		t.Fatalf("unexpected ellipsis config %+v", ecfg)
	}
}

func TestOnlyRestrictsSections(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if err := m.Only("dodo", "seaport"); err != nil {
		t.Fatalf("only: %v", err)
	}
	if got := strings.Join(m.Enabled(), ","); got != "dodo,seaport" {
		t.Fatalf("unexpected enabled sections %s", got)
	}
	if err := m.Only("curve"); err == nil {
		t.Fatalf("expected unknown subgraph error")
	}
}

func TestManifestErrors(t *testing.T) {
	cases := map[string]string{
		"bad address": `
subgraphs:
  oneinch:
    enabled: true
    addresses:
      factories: ["0xnothex"]
`,
		"unknown role": `
subgraphs:
  balancer:
    enabled: true
    addresses:
      vault: "0xba12222222228d8ba445958a75a0704d566bf2c8"
`,
		"two registries": `
subgraphs:
  bancor:
    enabled: true
    addresses:
      contract_registry:
        - "0x52ae12abe5d8bd778bd5397f99ca900624cfadd4"
        - "0x0ddff327ddf7fe838e3e63d02001ef23ad1ede8e"
`,
		"bad fee": `
subgraphs:
  uniswapv2:
    enabled: true
    forks:
      - name: Broken
        slug: broken
        factory: "0x35113a300ca0d7621374890abfeac30e88f214b1"
        trade_fee: "three"
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			m, err := Parse([]byte(body))
			if err == nil {
				err = m.Build(subgraph.NewRouter(zap.NewNop()))
			}
			if err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
