package main

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"go.uber.org/zap"

	"eventExtractor/internal/config"
	"eventExtractor/internal/extractor"
	"eventExtractor/internal/storage"
	"eventExtractor/internal/storage/postgres"
	"eventExtractor/internal/storage/redis"
)

const (
	eventsFile      = "events.jsonl"
	checkpointsFile = "checkpoints.json"
)

type checkpointStore interface {
	extractor.CheckpointStore
	storage.RangeReader
}

type stores struct {
	events      extractor.EventStore
	checkpoints checkpointStore
	pg          *postgres.Store
	closers     []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the event and checkpoint stores selected by cfg.
// Postgres is opened once and shared when both stores use it.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	st := &stores{}

	if cfg.NeedsPostgres() {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		st.pg = pg
		st.closers = append(st.closers, pg.Close)
		logger.Info("postgres connected", zap.String("dsn", redact(cfg.PGDSN)))
	}

	switch cfg.Store {
	case config.StorePostgres:
		st.events = st.pg
	case config.StoreFile:
		path := filepath.Join(cfg.DataDir, eventsFile)
		st.events = storage.NewJsonlEventStore(path)
		logger.Info("file event store", zap.String("path", path))
	default:
		st.Close()
		return nil, fmt.Errorf("unsupported store %q", cfg.Store)
	}

	switch cfg.CheckpointStore {
	case config.StorePostgres:
		st.checkpoints = st.pg
	case config.StoreFile:
		path := filepath.Join(cfg.DataDir, checkpointsFile)
		st.checkpoints = storage.NewFileCheckpointStore(path)
		logger.Info("file checkpoint store", zap.String("path", path))
	case config.StoreRedis:
		rs, err := redis.NewCheckpointStore(ctx, cfg.RedisURL)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		st.checkpoints = rs
		st.closers = append(st.closers, func() { _ = rs.Close() })
		logger.Info("redis checkpoint store", zap.String("url", redact(cfg.RedisURL)))
	default:
		st.Close()
		return nil, fmt.Errorf("unsupported checkpoint store %q", cfg.CheckpointStore)
	}

	return st, nil
}

// redact hides the password of a URL-style connection string.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "<redacted>"
	}
	return u.Redacted()
}
