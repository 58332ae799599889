package indexer

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"dexsubgraphs/internal/chain"
	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

// Chain is the RPC surface the runner needs. *chain.Client implements it.
type Chain interface {
	chain.Caller
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	Transaction(ctx context.Context, hash common.Hash) (chain.TxInfo, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	// FromBlock of zero starts at the lowest data source start block.
	FromBlock    uint64
	ToBlock      uint64
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner streams logs of the router's data sources from the chain and hands
// them to the subgraph handlers in block and log order.
type Runner struct {
	cfg        RunConfig
	chain      Chain
	router     *subgraph.Router
	store      storage.Store
	checkpoint Checkpointer
	archive    storage.LogSink
	logger     *zap.Logger
	seen       map[string]struct{}
}

// NewRunner builds a Runner. checkpoint and archive may be nil.
func NewRunner(cfg RunConfig, chainClient Chain, router *subgraph.Router, store storage.Store, checkpoint Checkpointer, archive storage.LogSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		router:     router,
		store:      store,
		checkpoint: checkpoint,
		archive:    archive,
		logger:     logger,
		seen:       make(map[string]struct{}),
	}
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.store == nil {
		return fmt.Errorf("store is nil")
	}
	if r.router == nil {
		return fmt.Errorf("router is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.router.Addresses()) == 0 {
		return fmt.Errorf("no data sources registered")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from := r.cfg.FromBlock
	if from == 0 {
		if start, ok := r.router.StartBlock(); ok {
			from = start
		}
	}
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if ok && last >= from {
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	env := r.router.Env(r.store, r.chain, r.logger)
	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		records, err := r.processRange(ctx, env, chainIDValue, blockRange)
		if err != nil {
			return err
		}

		if err := storage.FlushIfBuffered(ctx, r.store); err != nil {
			return fmt.Errorf("flush store: %w", err)
		}
		if r.archive != nil {
			if err := r.archive.PutLogBatch(records); err != nil {
				return fmt.Errorf("archive logs: %w", err)
			}
		}
		if r.checkpoint != nil {
			if err := r.checkpoint.Save(ctx, blockRange.To); err != nil {
				return err
			}
		}
		// ranges never overlap, so earlier ids cannot repeat
		r.seen = make(map[string]struct{})

		r.logger.Info("batch complete",
			zap.Int("handled", len(records)),
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
			zap.Int("addresses", len(r.router.Addresses())),
		)
	}

	return nil
}

// processRange handles every log of the range. When a handler creates a data
// source the remaining blocks are fetched again with the larger filter, from
// the block of the creating log on. It returns the records a handler ran for.
func (r *Runner) processRange(ctx context.Context, env *subgraph.Env, chainID uint64, blockRange BlockRange) ([]model.LogRecord, error) {
	var handled []model.LogRecord
	from := blockRange.From
	for {
		generation := r.router.Generation()
		r.logger.Debug("fetch logs", zap.Uint64("from", from), zap.Uint64("to", blockRange.To))

		logs, err := r.filterLogsWithRetry(ctx, from, blockRange.To)
		if err != nil {
			return nil, fmt.Errorf("filter logs: %w", err)
		}
		sort.SliceStable(logs, func(i, j int) bool {
			if logs[i].BlockNumber != logs[j].BlockNumber {
				return logs[i].BlockNumber < logs[j].BlockNumber
			}
			return logs[i].Index < logs[j].Index
		})

		ingestedAt := time.Now().UTC()
		refetch := false
		for _, log := range logs {
			if log.Removed || r.isDuplicate(log) {
				continue
			}
			ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
			if err != nil {
				return nil, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			record := buildLogRecord(chainID, log, ts, ingestedAt)
			if r.router.NeedsTransaction(record) {
				tx, err := r.transactionWithRetry(ctx, log.TxHash)
				if err != nil {
					return nil, fmt.Errorf("transaction %s: %w", log.TxHash.Hex(), err)
				}
				record.TxFrom, record.TxTo, record.TxInput = tx.From, tx.To, tx.Input
			}

			ok, err := r.router.Handle(ctx, env, record)
			if err != nil {
				return nil, err
			}
			if ok {
				handled = append(handled, record)
			}
			if r.router.Generation() != generation {
				from = log.BlockNumber
				refetch = true
				break
			}
		}
		if !refetch {
			return handled, nil
		}
		r.logger.Debug("data sources grew, refetching", zap.Uint64("from", from), zap.Uint64("to", blockRange.To))
	}
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	addresses, topics := r.router.Addresses(), r.router.Topics()
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, fromBlock, toBlock, addresses, topics)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func (r *Runner) transactionWithRetry(ctx context.Context, hash common.Hash) (chain.TxInfo, error) {
	var info chain.TxInfo
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		info, err = r.chain.Transaction(ctx, hash)
		if err != nil {
			r.logger.Warn("transaction fetch failed", zap.Error(err), zap.String("tx_hash", hash.Hex()))
		}
		return err
	})
	return info, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
