package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dexsubgraphs/internal/chain"
	"dexsubgraphs/internal/config"
	"dexsubgraphs/internal/indexer"
	"dexsubgraphs/internal/storage"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	router, m, err := buildRouter(cfg.Manifest, cfg.Subgraphs, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var caller chain.Caller
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		caller = chainClient
	} else {
		logger.Warn("replay without rpc, contract reads fall back to defaults")
	}

	stack, err := openStore(ctx, cfg.Store, true, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	var errs indexer.ErrorSink
	if cfg.Errors != "" {
		errs = storage.NewJSONLines(cfg.Errors)
	}

	logger.Info("replay start",
		zap.String("in", cfg.In),
		zap.String("errors", cfg.Errors),
		zap.Strings("subgraphs", m.Enabled()),
		zap.String("store", cfg.Store.Backend),
	)

	env := router.Env(stack.store, caller, logger)
	_, err = indexer.Replay(ctx, inputFile, router, env, errs, logger)
	return err
}
