// Package uniswapv2 indexes Uniswap-v2 style factories and their pairs. One
// Subgraph value serves one fork.
package uniswapv2

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"dexsubgraphs/internal/dex"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

// Subgraph holds the handlers of one fork.
type Subgraph struct {
	cfg Config
}

func New(cfg Config) *Subgraph {
	return &Subgraph{cfg: cfg}
}

// PairTemplate is the template name pairs are created with.
func (s *Subgraph) PairTemplate() string {
	return s.cfg.Slug + "/Pair"
}

// Register adds the factory data source and the pair template.
func (s *Subgraph) Register(r *subgraph.Router) error {
	if err := r.RegisterTemplate(&subgraph.DataSource{
		Name: s.PairTemplate(),
		ABI:  PairABI,
		Handlers: map[string]subgraph.Handler{
			"Transfer": s.handleTransfer,
			"Sync":     s.handleSync,
			"Mint":     s.handleMint,
			"Burn":     s.handleBurn,
			"Swap":     s.handleSwap,
		},
	}); err != nil {
		return err
	}
	return r.Register(&subgraph.DataSource{
		Name:       s.cfg.Slug + "/Factory",
		ABI:        FactoryABI,
		Addresses:  []common.Address{s.cfg.Factory},
		StartBlock: s.cfg.StartBlock,
		Handlers: map[string]subgraph.Handler{
			"PairCreated": s.handlePairCreated,
		},
	})
}

func (s *Subgraph) protocolID() string {
	return dex.Hex(s.cfg.Factory)
}

func (s *Subgraph) getOrCreateProtocol(ctx context.Context, store storage.Store) (*model.DexAmmProtocol, error) {
	p, ok, err := storage.Load[model.DexAmmProtocol](ctx, store, s.protocolID())
	if err != nil || ok {
		return p, err
	}
	p = model.NewDexAmmProtocol(s.protocolID(), s.cfg.Name, s.cfg.Slug, s.cfg.Network)
	p.SchemaVersion = s.cfg.SchemaVersion
	p.SubgraphVersion = s.cfg.SubgraphVersion
	p.MethodologyVersion = s.cfg.MethodologyVersion
	return p, nil
}

func (s *Subgraph) getOrCreateToken(ctx context.Context, env *subgraph.Env, ev *subgraph.Event, address common.Address) (*model.Token, error) {
	id := dex.Hex(address)
	token, ok, err := storage.Load[model.Token](ctx, env.Store, id)
	if err != nil || ok {
		return token, err
	}
	token = &model.Token{ID: id, Decimals: dex.DefaultDecimals}
	if s.cfg.isBroken(id) {
		return token, nil
	}
	info := env.Token(ev, address)
	if decimals, ok := info.Decimals(ctx); ok {
		token.Decimals = decimals
	}
	token.Name, _ = info.Name(ctx)
	token.Symbol, _ = info.Symbol(ctx)
	return token, nil
}

// getOrCreateTransfer returns the per-transaction scratch record linking LP
// token transfers to the Mint or Burn that follows them.
func getOrCreateTransfer(ctx context.Context, store storage.Store, ev *subgraph.Event) (*model.Transfer, error) {
	t, ok, err := storage.Load[model.Transfer](ctx, store, ev.Tx.Hash)
	if err != nil || ok {
		return t, err
	}
	return &model.Transfer{
		ID:          ev.Tx.Hash,
		BlockNumber: ev.Block.Number,
		Timestamp:   ev.Block.Timestamp,
	}, nil
}

func feeID(prefix, pool string) string {
	return fmt.Sprintf("%s-%s", prefix, pool)
}
