package storage

import (
	"context"

	"eventExtractor/internal/model"
)

// RangeReader exposes the checkpoint history of a store.
type RangeReader interface {
	LastProcessedBlock(ctx context.Context, version int) (uint64, bool, error)
	// Ranges returns up to limit ranges for version, latest first.
	Ranges(ctx context.Context, version int, limit int) ([]model.BlockRange, error)
}

// EventCounter reports how many events a store holds for a protocol version.
type EventCounter interface {
	EventCount(ctx context.Context, version int) (int64, error)
}
