package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventExtractor/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS block_ranges (
	protocol_version INTEGER NOT NULL,
	from_block BIGINT NOT NULL,
	to_block BIGINT NOT NULL,
	events INTEGER NOT NULL DEFAULT 0,
	date TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (protocol_version, from_block, to_block)
);

CREATE INDEX IF NOT EXISTS block_ranges_version_to_block_idx
	ON block_ranges (protocol_version, to_block DESC);

CREATE TABLE IF NOT EXISTS events (
	id BIGSERIAL PRIMARY KEY,
	protocol_version INTEGER NOT NULL,
	block_number BIGINT NOT NULL,
	block_hash TEXT NOT NULL,
	transaction_hash TEXT NOT NULL,
	log_index INTEGER NOT NULL,
	contract_address TEXT NOT NULL,
	type TEXT NOT NULL,
	data JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS events_version_tx_log_idx
	ON events (protocol_version, transaction_hash, log_index);

CREATE INDEX IF NOT EXISTS events_version_block_idx
	ON events (protocol_version, block_number);
`

// Store provides Postgres persistence for events and processed block ranges.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pg dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertEvents writes events in one transaction. Events already stored under
// the same (protocol_version, transaction_hash, log_index) are skipped.
func (s *Store) InsertEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		data, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("marshal event data %s: %w", e.Key(), err)
		}
		batch.Queue(`
			INSERT INTO events (
				protocol_version, block_number, block_hash, transaction_hash, log_index,
				contract_address, type, data
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (protocol_version, transaction_hash, log_index) DO NOTHING
		`,
			e.ProtocolVersion,
			int64(e.BlockNumber),
			e.BlockHash,
			e.TransactionHash,
			int32(e.LogIndex),
			e.ContractAddress,
			e.Type,
			json.RawMessage(data),
		)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for range events {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert event: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit events: %w", err)
	}
	return nil
}

// LastProcessedBlock returns the greatest to_block recorded for version.
func (s *Store) LastProcessedBlock(ctx context.Context, version int) (uint64, bool, error) {
	var last *int64
	row := s.pool.QueryRow(ctx, `SELECT MAX(to_block) FROM block_ranges WHERE protocol_version=$1`, version)
	if err := row.Scan(&last); err != nil {
		return 0, false, err
	}
	if last == nil {
		return 0, false, nil
	}
	return uint64(*last), true, nil
}

// UpsertRange inserts or replaces the record for r's range.
func (s *Store) UpsertRange(ctx context.Context, r model.BlockRange) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO block_ranges (protocol_version, from_block, to_block, events, date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (protocol_version, from_block, to_block) DO UPDATE
		SET events = EXCLUDED.events, date = EXCLUDED.date
	`, r.ProtocolVersion, int64(r.FromBlock), int64(r.ToBlock), r.Events, r.Date)
	return err
}

// Ranges returns up to limit ranges for version, latest first.
func (s *Store) Ranges(ctx context.Context, version int, limit int) ([]model.BlockRange, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT protocol_version, from_block, to_block, events, date
		FROM block_ranges
		WHERE protocol_version=$1
		ORDER BY to_block DESC
		LIMIT $2
	`, version, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BlockRange
	for rows.Next() {
		var (
			r        model.BlockRange
			from, to int64
		)
		if err := rows.Scan(&r.ProtocolVersion, &from, &to, &r.Events, &r.Date); err != nil {
			return nil, err
		}
		r.FromBlock = uint64(from)
		r.ToBlock = uint64(to)
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventCount returns the number of stored events for version.
func (s *Store) EventCount(ctx context.Context, version int) (int64, error) {
	var n int64
	row := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE protocol_version=$1`, version)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
