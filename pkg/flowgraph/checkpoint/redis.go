package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists checkpoints in Redis so several processes can share them.
// Each run is a hash at <prefix>run:<runID>; run IDs are indexed in the set
// <prefix>runs.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	closed    atomic.Bool
}

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	// KeyPrefix namespaces every key. Default "querybot:checkpoint:".
	KeyPrefix string
	// TTL expires a run's checkpoint after its last write. Zero keeps it forever.
	TTL time.Duration
}

// NewRedisStore wraps an existing client. The store closes the client on Close.
func NewRedisStore(client redis.UniversalClient, opts RedisOptions) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "querybot:checkpoint:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: opts.KeyPrefix,
		ttl:       opts.TTL,
	}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisStore(client, opts), nil
}

func (s *RedisStore) runKey(runID string) string {
	return s.keyPrefix + "run:" + runID
}

func (s *RedisStore) indexKey() string {
	return s.keyPrefix + "runs"
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, runID string, data []byte) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	key := s.runKey(runID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"data", data,
			"timestamp", time.Now().UTC().Format(time.RFC3339Nano),
		)
		pipe.HIncrBy(ctx, key, "sequence", 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		pipe.SAdd(ctx, s.indexKey(), runID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, runID string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	data, err := s.client.HGet(ctx, s.runKey(runID), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return data, nil
}

// List implements Store.
// Index entries whose hash has expired are pruned as they are found.
func (s *RedisStore) List(ctx context.Context) ([]Info, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	runIDs, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	infos := make([]Info, 0, len(runIDs))
	for _, runID := range runIDs {
		key := s.runKey(runID)
		vals, err := s.client.HMGet(ctx, key, "sequence", "timestamp").Result()
		if err != nil {
			return nil, fmt.Errorf("read checkpoint %s: %w", runID, err)
		}
		if vals[0] == nil {
			if err := s.client.SRem(ctx, s.indexKey(), runID).Err(); err != nil {
				return nil, fmt.Errorf("prune checkpoint %s: %w", runID, err)
			}
			continue
		}
		size, err := s.client.HStrLen(ctx, key, "data").Result()
		if err != nil {
			return nil, fmt.Errorf("read checkpoint %s: %w", runID, err)
		}

		info := Info{RunID: runID, Size: size}
		if seq, ok := vals[0].(string); ok {
			info.Sequence, _ = strconv.Atoi(seq)
		}
		if ts, ok := vals[1].(string); ok {
			info.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].RunID < infos[j].RunID
	})
	return infos, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.runKey(runID))
		pipe.SRem(ctx, s.indexKey(), runID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.client.Close()
}
