// Package manifest declares which subgraphs an indexer runs and where their
// contracts live.
package manifest

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/subgraph"
	"dexsubgraphs/internal/subgraphs/balancer"
	"dexsubgraphs/internal/subgraphs/bancor"
	"dexsubgraphs/internal/subgraphs/dodo"
	"dexsubgraphs/internal/subgraphs/ellipsis"
	"dexsubgraphs/internal/subgraphs/oneinch"
	"dexsubgraphs/internal/subgraphs/seaport"
	"dexsubgraphs/internal/subgraphs/uniswapv2"
)

//go:embed default.yaml
var defaultManifest []byte

// Manifest is the parsed manifest file.
type Manifest struct {
	Subgraphs Subgraphs `yaml:"subgraphs"`
}

type Subgraphs struct {
	UniswapV2 UniswapV2 `yaml:"uniswapv2"`
	OneInch   Source    `yaml:"oneinch"`
	Balancer  Source    `yaml:"balancer"`
	Bancor    Source    `yaml:"bancor"`
	DODO      DODO      `yaml:"dodo"`
	Ellipsis  Ellipsis  `yaml:"ellipsis"`
	Seaport   Source    `yaml:"seaport"`
}

// Source is the part every subgraph section shares. Addresses map a
// data-source role to one address or a list of them.
type Source struct {
	Enabled    bool                 `yaml:"enabled"`
	StartBlock uint64               `yaml:"start_block"`
	Addresses  map[string]Addresses `yaml:"addresses"`
}

type UniswapV2 struct {
	Enabled bool   `yaml:"enabled"`
	Forks   []Fork `yaml:"forks"`
}

// Fork describes one Uniswap-v2 deployment. Fees are percentages.
type Fork struct {
	Name               string   `yaml:"name"`
	Slug               string   `yaml:"slug"`
	Network            string   `yaml:"network"`
	Factory            string   `yaml:"factory"`
	StartBlock         uint64   `yaml:"start_block"`
	SchemaVersion      string   `yaml:"schema_version"`
	SubgraphVersion    string   `yaml:"subgraph_version"`
	MethodologyVersion string   `yaml:"methodology_version"`
	TradeFee           string   `yaml:"trade_fee"`
	ProtocolFeeOn      string   `yaml:"protocol_fee_on"`
	LPFeeOn            string   `yaml:"lp_fee_on"`
	ProtocolFeeOff     string   `yaml:"protocol_fee_off"`
	LPFeeOff           string   `yaml:"lp_fee_off"`
	FeeSwitch          string   `yaml:"fee_switch"`
	BrokenERC20        []string `yaml:"broken_erc20"`
}

type DODO struct {
	Source `yaml:",inline"`

	SeedClassicalPools bool `yaml:"seed_classical_pools"`
}

type Ellipsis struct {
	Source `yaml:",inline"`

	Pools []EllipsisPool `yaml:"pools"`
}

type EllipsisPool struct {
	Address string `yaml:"address"`
	Coins   int    `yaml:"coins"`
}

// Addresses accepts a scalar address or a sequence of them.
type Addresses []common.Address

func (a *Addresses) UnmarshalYAML(node *yaml.Node) error {
	var raw []string
	switch node.Kind {
	case yaml.ScalarNode:
		raw = []string{node.Value}
	case yaml.SequenceNode:
		if err := node.Decode(&raw); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: expected address or address list", node.Line)
	}
	out := make(Addresses, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if !common.IsHexAddress(s) {
			return fmt.Errorf("line %d: invalid address %q", node.Line, s)
		}
		out = append(out, common.HexToAddress(s))
	}
	*a = out
	return nil
}

// Default returns the embedded manifest.
func Default() (*Manifest, error) {
	return Parse(defaultManifest)
}

// Load reads the manifest at path, or the embedded one when path is empty.
// Environment variables in the file are expanded.
func Load(path string) (*Manifest, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

func (m *Manifest) sections() map[string]*bool {
	s := &m.Subgraphs
	return map[string]*bool{
		"uniswapv2": &s.UniswapV2.Enabled,
		"oneinch":   &s.OneInch.Enabled,
		"balancer":  &s.Balancer.Enabled,
		"bancor":    &s.Bancor.Enabled,
		"dodo":      &s.DODO.Enabled,
		"ellipsis":  &s.Ellipsis.Enabled,
		"seaport":   &s.Seaport.Enabled,
	}
}

// Enabled lists the enabled subgraph sections in a stable order.
func (m *Manifest) Enabled() []string {
	var out []string
	for name, on := range m.sections() {
		if *on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Only disables every section not named. Naming a section does not enable it.
// An empty list keeps the manifest as is.
func (m *Manifest) Only(names ...string) error {
	if len(names) == 0 {
		return nil
	}
	sections := m.sections()
	keep := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := sections[name]; !ok {
			return fmt.Errorf("unknown subgraph %q", name)
		}
		keep[name] = true
	}
	for name, on := range sections {
		if !keep[name] {
			*on = false
		}
	}
	return nil
}

// Build registers the data sources of every enabled subgraph with r.
func (m *Manifest) Build(r *subgraph.Router) error {
	s := m.Subgraphs
	if s.UniswapV2.Enabled {
		for i, f := range s.UniswapV2.Forks {
			cfg, err := f.config()
			if err != nil {
				return fmt.Errorf("uniswapv2 fork %d: %w", i, err)
			}
			if err := uniswapv2.New(cfg).Register(r); err != nil {
				return fmt.Errorf("uniswapv2 %s: %w", cfg.Slug, err)
			}
		}
	}
	if s.OneInch.Enabled {
		cfg, err := oneInchConfig(s.OneInch)
		if err != nil {
			return fmt.Errorf("oneinch: %w", err)
		}
		if err := oneinch.Register(r, cfg); err != nil {
			return fmt.Errorf("oneinch: %w", err)
		}
	}
	if s.Balancer.Enabled {
		cfg, err := balancerConfig(s.Balancer)
		if err != nil {
			return fmt.Errorf("balancer: %w", err)
		}
		if err := balancer.New(cfg).Register(r); err != nil {
			return fmt.Errorf("balancer: %w", err)
		}
	}
	if s.Bancor.Enabled {
		cfg, err := bancorConfig(s.Bancor)
		if err != nil {
			return fmt.Errorf("bancor: %w", err)
		}
		if err := bancor.Register(r, cfg); err != nil {
			return fmt.Errorf("bancor: %w", err)
		}
	}
	if s.DODO.Enabled {
		cfg, err := dodoConfig(s.DODO)
		if err != nil {
			return fmt.Errorf("dodo: %w", err)
		}
		if err := dodo.New(cfg).Register(r); err != nil {
			return fmt.Errorf("dodo: %w", err)
		}
	}
	if s.Ellipsis.Enabled {
		cfg, err := ellipsisConfig(s.Ellipsis)
		if err != nil {
			return fmt.Errorf("ellipsis: %w", err)
		}
		if err := ellipsis.New(cfg).Register(r); err != nil {
			return fmt.Errorf("ellipsis: %w", err)
		}
	}
	if s.Seaport.Enabled {
		cfg, err := seaportConfig(s.Seaport)
		if err != nil {
			return fmt.Errorf("seaport: %w", err)
		}
		if err := seaport.New(cfg).Register(r); err != nil {
			return fmt.Errorf("seaport: %w", err)
		}
	}
	return nil
}

// check rejects address roles the section does not know.
func (s Source) check(roles ...string) error {
	known := make(map[string]bool, len(roles))
	for _, role := range roles {
		known[role] = true
	}
	for role := range s.Addresses {
		if !known[role] {
			return fmt.Errorf("unknown address role %q", role)
		}
	}
	return nil
}

// one returns the single address of role, or fallback when role is absent.
func (s Source) one(role string, fallback common.Address) (common.Address, error) {
	list, ok := s.Addresses[role]
	if !ok {
		return fallback, nil
	}
	if len(list) != 1 {
		return common.Address{}, fmt.Errorf("%s: expected one address, got %d", role, len(list))
	}
	return list[0], nil
}

// list returns the addresses of role, or fallback when role is absent.
func (s Source) list(role string, fallback []common.Address) []common.Address {
	if list, ok := s.Addresses[role]; ok {
		return list
	}
	return fallback
}

func oneInchConfig(s Source) (oneinch.Config, error) {
	cfg := oneinch.DefaultConfig()
	if err := s.check("factories"); err != nil {
		return cfg, err
	}
	cfg.Factories = s.list("factories", cfg.Factories)
	cfg.StartBlock = s.StartBlock
	return cfg, nil
}

func balancerConfig(s Source) (balancer.Config, error) {
	cfg := balancer.DefaultConfig()
	if err := s.check("factory", "crp_factory"); err != nil {
		return cfg, err
	}
	var err error
	if cfg.Factory, err = s.one("factory", cfg.Factory); err != nil {
		return cfg, err
	}
	if cfg.CRPFactory, err = s.one("crp_factory", cfg.CRPFactory); err != nil {
		return cfg, err
	}
	cfg.StartBlock = s.StartBlock
	return cfg, nil
}

func bancorConfig(s Source) (bancor.Config, error) {
	cfg := bancor.DefaultConfig()
	if err := s.check("contract_registry", "converter_registries"); err != nil {
		return cfg, err
	}
	var err error
	if cfg.ContractRegistry, err = s.one("contract_registry", cfg.ContractRegistry); err != nil {
		return cfg, err
	}
	cfg.ConverterRegistries = s.list("converter_registries", cfg.ConverterRegistries)
	cfg.StartBlock = s.StartBlock
	return cfg, nil
}

func dodoConfig(s DODO) (dodo.Config, error) {
	cfg := dodo.DefaultConfig()
	if err := s.check("zoo", "dvm_factory", "dpp_factory", "dsp_factory", "smart_routes"); err != nil {
		return cfg, err
	}
	var err error
	if cfg.Zoo, err = s.one("zoo", cfg.Zoo); err != nil {
		return cfg, err
	}
	if cfg.DVMFactory, err = s.one("dvm_factory", cfg.DVMFactory); err != nil {
		return cfg, err
	}
	if cfg.DPPFactory, err = s.one("dpp_factory", cfg.DPPFactory); err != nil {
		return cfg, err
	}
	if cfg.DSPFactory, err = s.one("dsp_factory", cfg.DSPFactory); err != nil {
		return cfg, err
	}
	cfg.SmartRoutes = s.list("smart_routes", cfg.SmartRoutes)
	cfg.SeedClassicalPools = s.SeedClassicalPools
	cfg.StartBlock = s.StartBlock
	return cfg, nil
}

func ellipsisConfig(s Ellipsis) (ellipsis.Config, error) {
	cfg := ellipsis.DefaultConfig()
	if err := s.check("registry", "stable_coins"); err != nil {
		return cfg, err
	}
	var err error
	if cfg.Registry, err = s.one("registry", cfg.Registry); err != nil {
		return cfg, err
	}
	cfg.StableCoins = s.list("stable_coins", cfg.StableCoins)
	if s.Pools != nil {
		cfg.Pools = make([]ellipsis.PoolConfig, 0, len(s.Pools))
		for _, p := range s.Pools {
			if !common.IsHexAddress(p.Address) {
				return cfg, fmt.Errorf("pool: invalid address %q", p.Address)
			}
			cfg.Pools = append(cfg.Pools, ellipsis.PoolConfig{Address: common.HexToAddress(p.Address), Coins: p.Coins})
		}
	}
	cfg.StartBlock = s.StartBlock
	return cfg, nil
}

func seaportConfig(s Source) (seaport.Config, error) {
	cfg := seaport.DefaultConfig()
	if err := s.check("marketplace", "exchanges", "weth", "fee_accounts"); err != nil {
		return cfg, err
	}
	var err error
	if cfg.Marketplace, err = s.one("marketplace", cfg.Marketplace); err != nil {
		return cfg, err
	}
	if cfg.WETH, err = s.one("weth", cfg.WETH); err != nil {
		return cfg, err
	}
	cfg.Exchanges = s.list("exchanges", cfg.Exchanges)
	cfg.FeeAccounts = s.list("fee_accounts", cfg.FeeAccounts)
	cfg.StartBlock = s.StartBlock
	return cfg, nil
}

func (f Fork) config() (uniswapv2.Config, error) {
	cfg := uniswapv2.Saitaswap()
	if f.Name == "" || f.Slug == "" {
		return cfg, fmt.Errorf("name and slug are required")
	}
	if !common.IsHexAddress(f.Factory) {
		return cfg, fmt.Errorf("invalid factory %q", f.Factory)
	}
	cfg.Name, cfg.Slug = f.Name, f.Slug
	cfg.Factory = common.HexToAddress(f.Factory)
	cfg.StartBlock = f.StartBlock
	cfg.BrokenERC20 = f.BrokenERC20
	if f.Network != "" {
		cfg.Network = strings.ToUpper(f.Network)
	}
	if f.SchemaVersion != "" {
		cfg.SchemaVersion = f.SchemaVersion
	}
	if f.SubgraphVersion != "" {
		cfg.SubgraphVersion = f.SubgraphVersion
	}
	if f.MethodologyVersion != "" {
		cfg.MethodologyVersion = f.MethodologyVersion
	}
	switch strings.ToUpper(f.FeeSwitch) {
	case "":
	case uniswapv2.FeeSwitchOn, uniswapv2.FeeSwitchOff:
		cfg.FeeSwitch = strings.ToUpper(f.FeeSwitch)
	default:
		return cfg, fmt.Errorf("invalid fee switch %q", f.FeeSwitch)
	}
	fees := []struct {
		name  string
		value string
		out   *decimal.Decimal
	}{
		{"trade_fee", f.TradeFee, &cfg.TradeFee},
		{"protocol_fee_on", f.ProtocolFeeOn, &cfg.ProtocolFeeOn},
		{"lp_fee_on", f.LPFeeOn, &cfg.LPFeeOn},
		{"protocol_fee_off", f.ProtocolFeeOff, &cfg.ProtocolFeeOff},
		{"lp_fee_off", f.LPFeeOff, &cfg.LPFeeOff},
	}
	for _, fee := range fees {
		if fee.value == "" {
			continue
		}
		d, err := decimal.NewFromString(fee.value)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", fee.name, err)
		}
		*fee.out = d
	}
	if cfg.Network != model.NetworkMainnet && cfg.Network != model.NetworkBSC {
		return cfg, fmt.Errorf("unsupported network %q", cfg.Network)
	}
	return cfg, nil
}
