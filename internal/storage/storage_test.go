package storage_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eventExtractor/internal/extractor"
	"eventExtractor/internal/model"
	"eventExtractor/internal/storage"
)

var (
	_ extractor.EventStore      = (*storage.JsonlEventStore)(nil)
	_ extractor.CheckpointStore = (*storage.FileCheckpointStore)(nil)
	_ storage.RangeReader       = (*storage.FileCheckpointStore)(nil)
	_ storage.EventCounter      = (*storage.JsonlEventStore)(nil)
)

func event(version int, tx string, index uint) model.Event {
	return model.Event{
		ProtocolVersion: version,
		BlockNumber:     100,
		BlockHash:       "0xb10c",
		TransactionHash: tx,
		LogIndex:        index,
		ContractAddress: "0x4f833a24e1f95d70f028921e27040ca56e09ab32",
		Type:            "Fill",
		Data:            map[string]string{"maker_address": "0xaa"},
	}
}

func readLines(t *testing.T, path string) []model.Event {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var out []model.Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e model.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		out = append(out, e)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJsonlEventStoreAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	store := storage.NewJsonlEventStore(path)
	ctx := context.Background()

	require.NoError(t, store.InsertEvents(ctx, []model.Event{event(2, "0xaa", 0), event(2, "0xaa", 1)}))
	require.NoError(t, store.InsertEvents(ctx, []model.Event{event(1, "0xbb", 0)}))

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	require.Equal(t, "0xaa", lines[0].TransactionHash)
	require.Equal(t, uint(1), lines[1].LogIndex)
	require.Equal(t, 1, lines[2].ProtocolVersion)
	require.Equal(t, "Fill", lines[2].Type)
}

func TestJsonlEventStoreSkipsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	ctx := context.Background()

	first := storage.NewJsonlEventStore(path)
	require.NoError(t, first.InsertEvents(ctx, []model.Event{event(2, "0xaa", 0), event(2, "0xaa", 0)}))
	require.NoError(t, first.InsertEvents(ctx, []model.Event{event(2, "0xaa", 0), event(2, "0xaa", 1)}))

	// Same key under another protocol version is a different event.
	require.NoError(t, first.InsertEvents(ctx, []model.Event{event(3, "0xaa", 0)}))

	reopened := storage.NewJsonlEventStore(path)
	require.NoError(t, reopened.InsertEvents(ctx, []model.Event{event(2, "0xaa", 1)}))

	require.Len(t, readLines(t, path), 3)

	n, err := reopened.EventCount(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	n, err = reopened.EventCount(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestJsonlEventStoreEmptyBatchCreatesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	store := storage.NewJsonlEventStore(path)

	require.NoError(t, store.InsertEvents(context.Background(), nil))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestJsonlEventStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0o644))

	store := storage.NewJsonlEventStore(path)
	err := store.InsertEvents(context.Background(), []model.Event{event(2, "0xaa", 0)})
	require.ErrorContains(t, err, "line 1")
}

func TestJsonlEventStoreRecoversInterruptedWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	ctx := context.Background()

	require.NoError(t, storage.NewJsonlEventStore(path).InsertEvents(ctx, []model.Event{event(2, "0xaa", 0)}))

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = file.WriteString(`{"protocol_version":2,"block_num`)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	reopened := storage.NewJsonlEventStore(path)
	require.NoError(t, reopened.InsertEvents(ctx, []model.Event{event(2, "0xbb", 0)}))
	require.NoError(t, reopened.InsertEvents(ctx, []model.Event{event(2, "0xaa", 0)}))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	require.Equal(t, "0xaa", lines[0].TransactionHash)
	require.Equal(t, "0xbb", lines[1].TransactionHash)
}

func TestJsonlEventStoreTerminatesCompleteLastLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	ctx := context.Background()

	line, err := json.Marshal(event(2, "0xaa", 0))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, line, 0o644))

	store := storage.NewJsonlEventStore(path)
	require.NoError(t, store.InsertEvents(ctx, []model.Event{event(2, "0xaa", 0), event(2, "0xbb", 0)}))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	require.Equal(t, "0xbb", lines[1].TransactionHash)
}

func TestJsonlEventStoreRejectsCorruptMiddleLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	line, err := json.Marshal(event(2, "0xaa", 0))
	require.NoError(t, err)
	body := append([]byte(`{"protocol_version":2,"block_num`+"\n"), line...)
	require.NoError(t, os.WriteFile(path, append(body, '\n'), 0o644))

	err = storage.NewJsonlEventStore(path).InsertEvents(context.Background(), []model.Event{event(2, "0xbb", 0)})
	require.ErrorContains(t, err, "line 1")
}

func TestJsonlEventStoreHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "events.jsonl")

	err := storage.NewJsonlEventStore(path).InsertEvents(ctx, []model.Event{event(2, "0xaa", 0)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFileCheckpointStoreEmpty(t *testing.T) {
	store := storage.NewFileCheckpointStore(filepath.Join(t.TempDir(), "checkpoints.json"))

	_, ok, err := store.LastProcessedBlock(context.Background(), 2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileCheckpointStoreUpsertAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoints.json")
	ctx := context.Background()
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	store := storage.NewFileCheckpointStore(path)
	require.NoError(t, store.UpsertRange(ctx, model.BlockRange{ProtocolVersion: 2, FromBlock: 401, ToBlock: 500, Events: 1, Date: date}))
	require.NoError(t, store.UpsertRange(ctx, model.BlockRange{ProtocolVersion: 2, FromBlock: 501, ToBlock: 801, Events: 2, Date: date}))
	require.NoError(t, store.UpsertRange(ctx, model.BlockRange{ProtocolVersion: 1, FromBlock: 101, ToBlock: 900, Date: date}))
	require.NoError(t, store.UpsertRange(ctx, model.BlockRange{ProtocolVersion: 2, FromBlock: 501, ToBlock: 801, Events: 5, Date: date}))

	reopened := storage.NewFileCheckpointStore(path)
	last, ok, err := reopened.LastProcessedBlock(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(801), last)

	ranges, err := reopened.Ranges(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	require.Equal(t, model.BlockRange{ProtocolVersion: 2, FromBlock: 501, ToBlock: 801, Events: 5, Date: date}, ranges[0])
	require.Equal(t, uint64(401), ranges[1].FromBlock)

	ranges, err = reopened.Ranges(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, ranges, 1)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestFileCheckpointStoreOverwritesStaleTmp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.json")
	ctx := context.Background()
	stale := make([]byte, 4096)
	for i := range stale {
		stale[i] = 'x'
	}
	require.NoError(t, os.WriteFile(path+".tmp", stale, 0o644))

	store := storage.NewFileCheckpointStore(path)
	require.NoError(t, store.UpsertRange(ctx, model.BlockRange{ProtocolVersion: 2, FromBlock: 1, ToBlock: 100}))

	last, ok, err := storage.NewFileCheckpointStore(path).LastProcessedBlock(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(100), last)
}

func TestFileCheckpointStoreRejectsInvertedRange(t *testing.T) {
	store := storage.NewFileCheckpointStore(filepath.Join(t.TempDir(), "checkpoints.json"))
	err := store.UpsertRange(context.Background(), model.BlockRange{ProtocolVersion: 2, FromBlock: 10, ToBlock: 9})
	require.Error(t, err)
}

func TestFileCheckpointStoreDirectoryPath(t *testing.T) {
	store := storage.NewFileCheckpointStore(t.TempDir())
	_, _, err := store.LastProcessedBlock(context.Background(), 1)
	require.ErrorContains(t, err, "directory")
}

func TestFileStoresReplayRange(t *testing.T) {
	dir := t.TempDir()
	checkpoints := storage.NewFileCheckpointStore(filepath.Join(dir, "checkpoints.json"))
	events := storage.NewJsonlEventStore(filepath.Join(dir, "events.jsonl"))
	ctx := context.Background()

	require.NoError(t, events.InsertEvents(ctx, []model.Event{event(2, "0xaa", 0)}))
	require.NoError(t, checkpoints.UpsertRange(ctx, model.BlockRange{ProtocolVersion: 2, FromBlock: 1, ToBlock: 100, Events: 1}))

	// Replaying the range after a lost checkpoint leaves the event file unchanged.
	require.NoError(t, events.InsertEvents(ctx, []model.Event{event(2, "0xaa", 0)}))
	require.NoError(t, checkpoints.UpsertRange(ctx, model.BlockRange{ProtocolVersion: 2, FromBlock: 1, ToBlock: 100, Events: 1}))

	require.Len(t, readLines(t, filepath.Join(dir, "events.jsonl")), 1)
	ranges, err := checkpoints.Ranges(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, ranges, 1)
}
