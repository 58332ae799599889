package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dexsubgraphs/internal/chain"
	"dexsubgraphs/internal/config"
	"dexsubgraphs/internal/indexer"
	"dexsubgraphs/internal/manifest"
	"dexsubgraphs/internal/storage"
	"dexsubgraphs/internal/subgraph"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "DEX subgraph indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Index subgraph events from an RPC node",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "RPC URL")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive), 0 means the lowest manifest start block")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().String("archive", "", "optional JSONL path for handled raw logs")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path (ignored for the postgres store)")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	addManifestFlags(runCmd.Flags())
	addStoreFlags(runCmd.Flags(), true)
	addLogFlag(runCmd.Flags())

	root.AddCommand(runCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay archived JSONL logs through the subgraph handlers",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("rpc", "", "optional RPC URL for contract reads")
	replayCmd.Flags().String("in", "", "input raw logs JSONL")
	replayCmd.Flags().String("errors", "./data/replay_errors.jsonl", "replay errors JSONL")
	addManifestFlags(replayCmd.Flags())
	addStoreFlags(replayCmd.Flags(), true)
	addLogFlag(replayCmd.Flags())

	root.AddCommand(replayCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve indexed entities over HTTP",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", ":8080", "listen address")
	addManifestFlags(serveCmd.Flags())
	addStoreFlags(serveCmd.Flags(), false)
	addLogFlag(serveCmd.Flags())

	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addManifestFlags(flags *pflag.FlagSet) {
	flags.String("manifest", "", "subgraph manifest YAML (default: embedded)")
	flags.StringSlice("subgraphs", nil, "only run these manifest sections (comma-separated)")
}

func addStoreFlags(flags *pflag.FlagSet, writer bool) {
	flags.String("store", config.StoreMemory, "entity store (memory, postgres, redis)")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("redis-addr", "", "Redis address")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.String("redis-prefix", "", "Redis key prefix")
	if !writer {
		return
	}
	flags.String("journal", "", "optional JSONL path for entity mutations")
	flags.String("nats-url", "", "optional NATS URL for the entity change feed")
	flags.String("nats-prefix", "", "NATS subject prefix")
	flags.String("clickhouse-dsn", "", "optional ClickHouse DSN for swap/deposit/withdraw rows")
}

func addLogFlag(flags *pflag.FlagSet) {
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

// buildRouter loads the manifest and registers its enabled subgraphs.
func buildRouter(path string, only []string, logger *zap.Logger) (*subgraph.Router, *manifest.Manifest, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := m.Only(only...); err != nil {
		return nil, nil, err
	}
	r := subgraph.NewRouter(logger)
	if err := m.Build(r); err != nil {
		return nil, nil, err
	}
	return r, m, nil
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	router, m, err := buildRouter(cfg.Manifest, cfg.Subgraphs, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	stack, err := openStore(ctx, cfg.Store, true, logger)
	if err != nil {
		return err
	}
	defer stack.Close()
	if cfg.Store.Backend == config.StoreMemory && cfg.Store.Journal == "" {
		logger.Warn("memory store without journal, entities are lost on exit")
	}

	var checkpoint indexer.Checkpointer = indexer.NewCheckpointStore(cfg.Checkpoint, cfg.CheckpointEnabled)
	if stack.state != nil && cfg.CheckpointEnabled {
		checkpoint = indexer.NewStateCheckpoint(stack.state, "indexer:"+strings.Join(m.Enabled(), ","))
	}

	var archive storage.LogSink
	if cfg.Archive != "" {
		archive = storage.NewJSONLines(cfg.Archive)
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:    cfg.FromBlock,
		ToBlock:      cfg.ToBlock,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, router, stack.store, checkpoint, archive, logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Strings("subgraphs", m.Enabled()),
		zap.Int("addresses", len(router.Addresses())),
		zap.Int("topic0", len(router.Topics())),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("store", cfg.Store.Backend),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("archive", cfg.Archive),
	)

	return runner.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
