package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eventExtractor/internal/chain"
	"eventExtractor/internal/config"
	"eventExtractor/internal/extractor"
	"eventExtractor/internal/protocol"
)

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// setup connects to the chain and the stores and returns a ready coordinator.
func setup(ctx context.Context, cfg config.Config, logger *zap.Logger) (*extractor.Coordinator, func(), error) {
	if cfg.RPCURL == "" {
		return nil, nil, fmt.Errorf("rpc url is required")
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		MaxRetries: cfg.RPCMaxRetries,
		Logger:     logger.Named("rpc"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		chainClient.Close()
		return nil, nil, fmt.Errorf("get chain id: %w", err)
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		chainClient.Close()
		return nil, nil, err
	}
	if st.pg != nil {
		if err := st.pg.EnsureSchema(ctx); err != nil {
			st.Close()
			chainClient.Close()
			return nil, nil, err
		}
	}

	exchanges, err := protocol.Build(chainClient, cfg.Protocols, cfg.Exchanges)
	if err != nil {
		st.Close()
		chainClient.Close()
		return nil, nil, err
	}
	variants := make([]extractor.Variant, 0, len(exchanges))
	for _, exchange := range exchanges {
		logger.Info("protocol variant",
			zap.Int("protocol_version", exchange.ProtocolVersion()),
			zap.String("exchange", exchange.Address().Hex()),
			zap.Uint64("start_block", cfg.StartBlocks[exchange.ProtocolVersion()]),
		)
		variants = append(variants, exchange)
	}

	coordinator := extractor.NewCoordinator(extractor.Config{
		MaxChunkSize:     cfg.MaxChunkSize,
		MinConfirmations: cfg.MinConfirmations,
		StartBlocks:      cfg.StartBlocks,
		MaxRetries:       cfg.MaxRetries,
		RetryBackoff:     cfg.RetryBackoff,
	}, chainClient, st.checkpoints, st.events, variants, logger)

	logger.Info("extractor start",
		zap.String("rpc", redact(cfg.RPCURL)),
		zap.String("chain_id", chainID.String()),
		zap.Ints("protocols", cfg.Protocols),
		zap.Uint64("max_chunk_size", cfg.MaxChunkSize),
		zap.Uint64("min_confirmations", cfg.MinConfirmations),
		zap.String("store", cfg.Store),
		zap.String("checkpoint_store", cfg.CheckpointStore),
	)

	cleanup := func() {
		st.Close()
		chainClient.Close()
	}
	return coordinator, cleanup, nil
}

func runExtractor(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coordinator, cleanup, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.MetricsAddr != "" {
		srv := newMetricsServer(cfg.MetricsAddr)
		go serveMetrics(srv, logger, stop)
		defer shutdownMetrics(srv, logger)
	}

	scheduler := extractor.NewScheduler(coordinator, cfg.MinPollingInterval, cfg.MaxPollingInterval, logger)
	return scheduler.Run(ctx)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coordinator, cleanup, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := coordinator.RunPass(ctx)
	for _, outcome := range report.Outcomes {
		logger.Info("pass outcome",
			zap.String("pass_id", report.ID),
			zap.Int("protocol_version", outcome.ProtocolVersion),
			zap.Bool("processed", outcome.Processed),
			zap.Uint64("from", outcome.Range.From),
			zap.Uint64("to", outcome.Range.To),
			zap.Int("events", outcome.Events),
		)
	}
	if err != nil {
		return fmt.Errorf("pass %s: %d of %d protocol versions failed, %d not attempted: %w",
			report.ID, report.Failed, len(cfg.Protocols), report.Skipped, err)
	}
	return nil
}
