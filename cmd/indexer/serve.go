package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dexsubgraphs/internal/api"
	"dexsubgraphs/internal/config"
	"dexsubgraphs/internal/manifest"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return err
	}
	if err := m.Only(cfg.Subgraphs...); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := openStore(ctx, cfg.Store, false, logger)
	if err != nil {
		return err
	}
	defer stack.Close()
	if cfg.Store.Backend == config.StoreMemory {
		logger.Warn("serving an empty memory store")
	}

	server := api.NewServer(api.Config{Listen: cfg.Listen, Subgraphs: m.Enabled()}, stack.store, logger)
	return server.Run(ctx)
}
