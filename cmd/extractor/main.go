package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "extractor",
		Short:        "0x exchange event extractor",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("protocols", "1,2,3", "protocol versions to extract (comma-separated)")
	root.PersistentFlags().String("store", "postgres", "event and checkpoint store (postgres, file)")
	root.PersistentFlags().String("checkpoint-store", "", "checkpoint store override (postgres, file, redis)")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN")
	root.PersistentFlags().String("data-dir", "./data", "directory for the file store")
	root.PersistentFlags().String("redis-url", "", "Redis URL for the redis checkpoint store")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Extract events continuously until interrupted",
		RunE:  runExtractor,
	}
	addExtractionFlags(runCmd)
	runCmd.Flags().Duration("min-polling-interval", 5*time.Second, "pause after a pass that made progress")
	runCmd.Flags().Duration("max-polling-interval", 60*time.Second, "longest pause between passes")
	runCmd.Flags().String("metrics-addr", "", "serve /metrics and /healthz on this address")
	root.AddCommand(runCmd)

	onceCmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single pass over every protocol version",
		RunE:  runOnce,
	}
	addExtractionFlags(onceCmd)
	root.AddCommand(onceCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show checkpoint progress per protocol version",
		RunE:  runStatus,
	}
	statusCmd.Flags().Int("limit", 5, "recent ranges to show per protocol version")
	root.AddCommand(statusCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres tables and indexes",
		RunE:  runMigrate,
	}
	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addExtractionFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "Ethereum JSON-RPC URL")
	cmd.Flags().Int("rpc-max-retries", 3, "HTTP retries per RPC request")
	cmd.Flags().Uint64("max-chunk-size", 10000, "blocks per cycle per protocol version")
	cmd.Flags().Uint64("min-confirmations", 12, "blocks kept behind the chain head")
	cmd.Flags().Int("max-retries", 3, "retries of a failed RPC step within a cycle")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
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
