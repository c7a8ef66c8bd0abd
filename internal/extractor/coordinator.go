package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"eventExtractor/internal/metrics"
	"eventExtractor/internal/model"
)

// HeightOracle reports the chain head.
type HeightOracle interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// CheckpointStore persists processed block ranges per protocol version.
type CheckpointStore interface {
	// LastProcessedBlock returns the highest ToBlock recorded for version.
	LastProcessedBlock(ctx context.Context, version int) (uint64, bool, error)
	// UpsertRange records r keyed by (ProtocolVersion, FromBlock, ToBlock).
	UpsertRange(ctx context.Context, r model.BlockRange) error
}

// EventStore persists normalized events. InsertEvents is all-or-nothing.
type EventStore interface {
	InsertEvents(ctx context.Context, events []model.Event) error
}

// Variant fetches and decodes the logs of one protocol version.
type Variant interface {
	ProtocolVersion() int
	FetchLogEntries(ctx context.Context, fromBlock, toBlock uint64) ([]model.LogEntry, error)
	EventData(entry model.LogEntry) (interface{}, error)
}

// Config holds the extraction bounds.
type Config struct {
	MaxChunkSize     uint64
	MinConfirmations uint64
	// StartBlocks is the lastProcessedBlock assumed for a version with no checkpoint.
	StartBlocks  map[int]uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Outcome describes one cycle for one protocol version.
type Outcome struct {
	ProtocolVersion int
	CurrentBlock    uint64
	Range           Range
	// Processed is false when there was nothing to do.
	Processed bool
	Events    int
}

// PassReport summarizes one pass over every variant.
type PassReport struct {
	ID       string
	Outcomes []Outcome
	Failed   int
	// Skipped counts variants not attempted because ctx was done.
	Skipped int
}

// Progressed reports whether any variant checkpointed a new range.
func (r PassReport) Progressed() bool {
	for _, outcome := range r.Outcomes {
		if outcome.Processed {
			return true
		}
	}
	return false
}

// Coordinator drives the extraction cycle for each protocol variant.
type Coordinator struct {
	cfg         Config
	oracle      HeightOracle
	checkpoints CheckpointStore
	events      EventStore
	variants    []Variant
	logger      *zap.Logger
	now         func() time.Time
}

// NewCoordinator builds a Coordinator with its dependencies.
func NewCoordinator(cfg Config, oracle HeightOracle, checkpoints CheckpointStore, events EventStore, variants []Variant, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		cfg:         cfg,
		oracle:      oracle,
		checkpoints: checkpoints,
		events:      events,
		variants:    variants,
		logger:      logger,
		now:         time.Now,
	}
}

func (c *Coordinator) validate() error {
	if c.oracle == nil {
		return fmt.Errorf("height oracle is nil")
	}
	if c.checkpoints == nil {
		return fmt.Errorf("checkpoint store is nil")
	}
	if c.events == nil {
		return fmt.Errorf("event store is nil")
	}
	if len(c.variants) == 0 {
		return fmt.Errorf("at least one protocol variant is required")
	}
	return nil
}

// RunPass runs one cycle per variant, in order. A failed variant does not
// stop the others; their errors are joined in the returned error.
func (c *Coordinator) RunPass(ctx context.Context) (PassReport, error) {
	report := PassReport{ID: uuid.NewString()}
	if err := c.validate(); err != nil {
		return report, err
	}

	logger := c.logger.With(zap.String("pass_id", report.ID))
	metrics.Passes.Inc()

	var errs []error
	for i, variant := range c.variants {
		if err := ctx.Err(); err != nil {
			report.Skipped = len(c.variants) - i
			errs = append(errs, err)
			break
		}

		outcome, err := c.extract(ctx, variant, logger)
		if err != nil {
			report.Failed++
			errs = append(errs, err)
			fields := []zap.Field{
				zap.Int("protocol_version", variant.ProtocolVersion()),
				zap.String("kind", KindOf(err).String()),
				zap.Error(err),
			}
			if outcome.Range.To > 0 {
				fields = append(fields, zap.Uint64("from", outcome.Range.From), zap.Uint64("to", outcome.Range.To))
			}
			logger.Error("extract events failed", fields...)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report, errors.Join(errs...)
}

// ExtractVariant runs a single cycle for variant.
func (c *Coordinator) ExtractVariant(ctx context.Context, variant Variant) (Outcome, error) {
	if err := c.validate(); err != nil {
		return Outcome{ProtocolVersion: variant.ProtocolVersion()}, err
	}
	return c.extract(ctx, variant, c.logger)
}

func (c *Coordinator) extract(ctx context.Context, variant Variant, logger *zap.Logger) (Outcome, error) {
	version := variant.ProtocolVersion()
	label := metrics.Version(version)
	outcome := Outcome{ProtocolVersion: version}
	logger = logger.With(zap.Int("protocol_version", version))

	start := time.Now()
	status := metrics.StatusFailed
	defer func() {
		metrics.Cycles.WithLabelValues(label, status).Inc()
		metrics.CycleDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	fail := func(kind Kind, op string, err error) (Outcome, error) {
		return outcome, &Error{
			Kind:            kind,
			Op:              op,
			ProtocolVersion: version,
			FromBlock:       outcome.Range.From,
			ToBlock:         outcome.Range.To,
			Err:             err,
		}
	}

	var currentBlock uint64
	err := c.withRetry(ctx, logger, "current block", func() error {
		var err error
		currentBlock, err = c.oracle.LatestBlockNumber(ctx)
		return err
	})
	if err != nil {
		return fail(TransientIO, "get current block", err)
	}
	outcome.CurrentBlock = currentBlock
	metrics.ChainHead.Set(float64(currentBlock))
	logger.Info("current block", zap.Uint64("current_block", currentBlock))

	lastBlock, ok, err := c.checkpoints.LastProcessedBlock(ctx, version)
	if err != nil {
		return fail(TransientIO, "get last processed block", err)
	}
	if !ok {
		lastBlock = c.cfg.StartBlocks[version]
		logger.Info("no checkpoint, using start block", zap.Uint64("start_block", lastBlock))
	}

	blockRange, ok := PlanRange(currentBlock, lastBlock, c.cfg.MinConfirmations, c.cfg.MaxChunkSize)
	if !ok {
		status = metrics.StatusIdle
		logger.Info("no more blocks to process",
			zap.Uint64("last_processed", lastBlock),
			zap.Uint64("min_confirmations", c.cfg.MinConfirmations),
		)
		return outcome, nil
	}
	outcome.Range = blockRange
	logger = logger.With(zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

	fetchStart := time.Now()
	var entries []model.LogEntry
	err = c.withRetry(ctx, logger, "fetch logs", func() error {
		var err error
		entries, err = variant.FetchLogEntries(ctx, blockRange.From, blockRange.To)
		return err
	})
	if err != nil {
		return fail(TransientIO, "fetch logs", err)
	}
	logger.Info("fetch logs", zap.Int("logs", len(entries)), zap.Duration("duration", time.Since(fetchStart)))

	events, err := normalize(variant, entries)
	if err != nil {
		return fail(DecodeFailure, "decode logs", err)
	}

	if len(events) == 0 {
		logger.Info("no events were found")
	} else {
		persistStart := time.Now()
		if err := c.events.InsertEvents(ctx, events); err != nil {
			return fail(StoreWriteFailure, "persist events", err)
		}
		logger.Info("persist events", zap.Int("events", len(events)), zap.Duration("duration", time.Since(persistStart)))
	}

	checkpoint := model.BlockRange{
		ProtocolVersion: version,
		FromBlock:       blockRange.From,
		ToBlock:         blockRange.To,
		Events:          len(events),
		Date:            c.now().UTC(),
	}
	if err := c.checkpoints.UpsertRange(ctx, checkpoint); err != nil {
		return fail(StoreWriteFailure, "upsert block range", err)
	}

	status = metrics.StatusProcessed
	outcome.Processed = true
	outcome.Events = len(events)
	metrics.EventsExtracted.WithLabelValues(label).Add(float64(len(events)))
	metrics.LastProcessedBlock.WithLabelValues(label).Set(float64(blockRange.To))
	logger.Info("block range complete", zap.Int("events", len(events)))

	return outcome, nil
}
