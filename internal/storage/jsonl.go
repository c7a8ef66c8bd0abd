package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"eventExtractor/internal/model"
)

// JsonlEventStore appends events to a JSONL file. Events whose key is already
// in the file are skipped.
type JsonlEventStore struct {
	path string

	mu     sync.Mutex
	loaded bool
	seen   map[string]struct{}
	counts map[int]int64
}

func NewJsonlEventStore(path string) *JsonlEventStore {
	return &JsonlEventStore{path: path}
}

// InsertEvents appends events in a single write. On failure the file is
// truncated back to its previous size.
func (s *JsonlEventStore) InsertEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	var (
		buf   bytes.Buffer
		added []model.Event
		batch = make(map[string]struct{}, len(events))
	)
	for _, e := range events {
		key := e.Key()
		if _, ok := s.seen[key]; ok {
			continue
		}
		if _, ok := batch[key]; ok {
			continue
		}
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", key, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
		batch[key] = struct{}{}
		added = append(added, e)
	}
	if len(added) == 0 {
		return nil
	}

	if err := ensureDir(s.path); err != nil {
		return err
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat events file: %w", err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		_ = file.Truncate(stat.Size())
		return fmt.Errorf("write events: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Truncate(stat.Size())
		return fmt.Errorf("sync events: %w", err)
	}

	for _, e := range added {
		s.seen[e.Key()] = struct{}{}
		s.counts[e.ProtocolVersion]++
	}
	return nil
}

// EventCount returns the number of stored events for version.
func (s *JsonlEventStore) EventCount(ctx context.Context, version int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return 0, err
	}
	return s.counts[version], nil
}

func (s *JsonlEventStore) load() error {
	if s.loaded {
		return nil
	}
	s.seen = make(map[string]struct{})
	s.counts = make(map[int]int64)

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("open events file: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReaderSize(file, 64*1024)
	var (
		line   int
		offset int64
	)
	for {
		chunk, readErr := reader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return fmt.Errorf("read events file: %w", readErr)
		}
		if len(chunk) == 0 {
			break
		}
		line++
		complete := chunk[len(chunk)-1] == '\n'

		raw := bytes.TrimSpace(chunk)
		if len(raw) > 0 {
			var e model.Event
			if err := json.Unmarshal(raw, &e); err != nil {
				if complete {
					return fmt.Errorf("parse events file line %d: %w", line, err)
				}
				// A write interrupted mid-line leaves an unterminated tail.
				return s.dropTail(offset)
			}
			if !complete {
				if err := s.terminate(); err != nil {
					return err
				}
			}
			if _, ok := s.seen[e.Key()]; !ok {
				s.seen[e.Key()] = struct{}{}
				s.counts[e.ProtocolVersion]++
			}
		}
		offset += int64(len(chunk))
		if readErr == io.EOF {
			break
		}
	}

	s.loaded = true
	return nil
}

// dropTail truncates the file to size and marks the index loaded.
func (s *JsonlEventStore) dropTail(size int64) error {
	if err := os.Truncate(s.path, size); err != nil {
		return fmt.Errorf("truncate partial events line: %w", err)
	}
	s.loaded = true
	return nil
}

// terminate appends the newline missing after a complete last line.
func (s *JsonlEventStore) terminate() error {
	file, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer file.Close()
	if _, err := file.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("terminate events file: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}
