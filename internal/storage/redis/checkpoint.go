package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"eventExtractor/internal/model"
)

// keyPrefix namespaces every key written by the checkpoint store.
const keyPrefix = "extractor"

// rangesKey is the hash holding one JSON BlockRange per member:
//
//	"extractor:ranges:v<version>"
func rangesKey(version int) string {
	return fmt.Sprintf("%s:ranges:v%d", keyPrefix, version)
}

// indexKey is the sorted set of members scored by to_block:
//
//	"extractor:ranges:v<version>:by_to"
func indexKey(version int) string {
	return rangesKey(version) + ":by_to"
}

func member(from, to uint64) string {
	return strconv.FormatUint(from, 10) + "-" + strconv.FormatUint(to, 10)
}

func parseMember(m string) (uint64, uint64, error) {
	fromStr, toStr, ok := strings.Cut(m, "-")
	if !ok {
		return 0, 0, fmt.Errorf("malformed range member %q", m)
	}
	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed range member %q: %w", m, err)
	}
	to, err := strconv.ParseUint(toStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed range member %q: %w", m, err)
	}
	return from, to, nil
}

// CheckpointStore keeps processed block ranges in Redis.
type CheckpointStore struct {
	conn *redis.Client
}

// NewCheckpointStore connects to the Redis server at url
// (redis://[user:password@]host:port/db).
func NewCheckpointStore(ctx context.Context, url string) (*CheckpointStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &CheckpointStore{conn: conn}, nil
}

func (s *CheckpointStore) Close() error {
	return s.conn.Close()
}

// LastProcessedBlock returns the greatest to_block recorded for version.
func (s *CheckpointStore) LastProcessedBlock(ctx context.Context, version int) (uint64, bool, error) {
	members, err := s.conn.ZRevRange(ctx, indexKey(version), 0, 0).Result()
	if err != nil {
		return 0, false, err
	}
	if len(members) == 0 {
		return 0, false, nil
	}
	_, to, err := parseMember(members[0])
	if err != nil {
		return 0, false, err
	}
	return to, true, nil
}

// UpsertRange writes the range record and its index entry in one MULTI/EXEC.
func (s *CheckpointStore) UpsertRange(ctx context.Context, r model.BlockRange) error {
	if r.ToBlock < r.FromBlock {
		return fmt.Errorf("invalid block range [%d, %d]", r.FromBlock, r.ToBlock)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal block range: %w", err)
	}

	m := member(r.FromBlock, r.ToBlock)
	_, err = s.conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, rangesKey(r.ProtocolVersion), m, data)
		pipe.ZAdd(ctx, indexKey(r.ProtocolVersion), redis.Z{Score: float64(r.ToBlock), Member: m})
		return nil
	})
	return err
}

// Ranges returns up to limit ranges for version, latest first.
func (s *CheckpointStore) Ranges(ctx context.Context, version int, limit int) ([]model.BlockRange, error) {
	if limit <= 0 {
		return nil, nil
	}
	members, err := s.conn.ZRevRange(ctx, indexKey(version), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	values, err := s.conn.HMGet(ctx, rangesKey(version), members...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]model.BlockRange, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("range %s missing from %s", members[i], rangesKey(version))
		}
		var r model.BlockRange
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("parse range %s: %w", members[i], err)
		}
		out = append(out, r)
	}
	return out, nil
}
