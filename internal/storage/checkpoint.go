package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"eventExtractor/internal/model"
)

type checkpointFile struct {
	Ranges []model.BlockRange `json:"ranges"`
}

type rangeKey struct {
	version  int
	from, to uint64
}

// FileCheckpointStore keeps processed block ranges in a JSON file that is
// rewritten atomically on every upsert.
type FileCheckpointStore struct {
	path string

	mu     sync.Mutex
	loaded bool
	ranges map[rangeKey]model.BlockRange
}

func NewFileCheckpointStore(path string) *FileCheckpointStore {
	return &FileCheckpointStore{path: path}
}

func (c *FileCheckpointStore) LastProcessedBlock(ctx context.Context, version int) (uint64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return 0, false, err
	}

	var (
		last  uint64
		found bool
	)
	for key := range c.ranges {
		if key.version == version && (!found || key.to > last) {
			last = key.to
			found = true
		}
	}
	return last, found, nil
}

func (c *FileCheckpointStore) UpsertRange(ctx context.Context, r model.BlockRange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.ToBlock < r.FromBlock {
		return fmt.Errorf("invalid block range [%d, %d]", r.FromBlock, r.ToBlock)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return err
	}

	key := rangeKey{r.ProtocolVersion, r.FromBlock, r.ToBlock}
	prev, existed := c.ranges[key]
	c.ranges[key] = r
	if err := c.save(); err != nil {
		if existed {
			c.ranges[key] = prev
		} else {
			delete(c.ranges, key)
		}
		return err
	}
	return nil
}

func (c *FileCheckpointStore) Ranges(ctx context.Context, version int, limit int) ([]model.BlockRange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, err
	}

	var out []model.BlockRange
	for key, r := range c.ranges {
		if key.version == version {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ToBlock != out[j].ToBlock {
			return out[i].ToBlock > out[j].ToBlock
		}
		return out[i].FromBlock > out[j].FromBlock
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *FileCheckpointStore) load() error {
	if c.loaded {
		return nil
	}
	c.ranges = make(map[rangeKey]model.BlockRange)

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.loaded = true
			return nil
		}
		return fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read checkpoint: %w", err)
	}
	var cf checkpointFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("parse checkpoint: %w", err)
	}
	for _, r := range cf.Ranges {
		c.ranges[rangeKey{r.ProtocolVersion, r.FromBlock, r.ToBlock}] = r
	}

	c.loaded = true
	return nil
}

func (c *FileCheckpointStore) save() error {
	if err := ensureDir(c.path); err != nil {
		return err
	}

	cf := checkpointFile{Ranges: make([]model.BlockRange, 0, len(c.ranges))}
	for _, r := range c.ranges {
		cf.Ranges = append(cf.Ranges, r)
	}
	sort.Slice(cf.Ranges, func(i, j int) bool {
		a, b := cf.Ranges[i], cf.Ranges[j]
		if a.ProtocolVersion != b.ProtocolVersion {
			return a.ProtocolVersion < b.ProtocolVersion
		}
		return a.FromBlock < b.FromBlock
	})

	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := writeSynced(tmpPath, data); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// writeSynced writes data to path and flushes it to disk before returning.
func writeSynced(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open checkpoint tmp: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync checkpoint tmp: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close checkpoint tmp: %w", err)
	}
	return nil
}
