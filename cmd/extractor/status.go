package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"eventExtractor/internal/config"
	"eventExtractor/internal/storage"
)

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	limit, _ := cmd.Flags().GetInt("limit")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	counter, _ := st.events.(storage.EventCounter)
	return writeStatus(ctx, cmd.OutOrStdout(), cfg, st.checkpoints, counter, limit)
}

// writeStatus prints one block per protocol version. counter may be nil.
func writeStatus(ctx context.Context, out io.Writer, cfg config.Config, ranges storage.RangeReader, counter storage.EventCounter, limit int) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, version := range cfg.Protocols {
		last, ok, err := ranges.LastProcessedBlock(ctx, version)
		if err != nil {
			return fmt.Errorf("v%d last processed block: %w", version, err)
		}

		fmt.Fprintf(tw, "protocol v%d\n", version)
		if ok {
			fmt.Fprintf(tw, "  last processed block:\t%d\n", last)
		} else {
			fmt.Fprintf(tw, "  last processed block:\tnone (start block %d)\n", cfg.StartBlocks[version])
		}
		if counter != nil {
			n, err := counter.EventCount(ctx, version)
			if err != nil {
				return fmt.Errorf("v%d event count: %w", version, err)
			}
			fmt.Fprintf(tw, "  events stored:\t%d\n", n)
		}

		recent, err := ranges.Ranges(ctx, version, limit)
		if err != nil {
			return fmt.Errorf("v%d ranges: %w", version, err)
		}
		for _, r := range recent {
			fmt.Fprintf(tw, "  [%d, %d]\t%d events\t%s\n", r.FromBlock, r.ToBlock, r.Events, r.Date.UTC().Format(time.RFC3339))
		}
	}
	return tw.Flush()
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !cfg.NeedsPostgres() {
		return fmt.Errorf("migrate requires the postgres store")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.pg.EnsureSchema(ctx); err != nil {
		return err
	}
	logger.Info("schema ready")
	return nil
}
