package checkpoint

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const memoryShards = 32

// MemoryStore is an in-memory checkpoint store.
// Run IDs are spread over independently locked shards, so saves for
// different runs rarely contend. Data is lost when the process exits.
type MemoryStore struct {
	shards [memoryShards]memoryShard
	closed atomic.Bool
}

type memoryShard struct {
	mu   sync.RWMutex
	data map[string]storedCheckpoint
}

type storedCheckpoint struct {
	data      []byte
	sequence  int
	timestamp time.Time
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{}
	for i := range m.shards {
		m.shards[i].data = make(map[string]storedCheckpoint)
	}
	return m
}

func (m *MemoryStore) shard(runID string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(runID))
	return &m.shards[h.Sum32()%memoryShards]
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, runID string, data []byte) error {
	if m.closed.Load() {
		return ErrStoreClosed
	}

	s := m.shard(runID)
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy data to avoid retaining caller's slice
	stored := make([]byte, len(data))
	copy(stored, data)

	s.data[runID] = storedCheckpoint{
		data:      stored,
		sequence:  s.data[runID].sequence + 1,
		timestamp: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, runID string) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrStoreClosed
	}

	s := m.shard(runID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.data[runID]
	if !ok {
		return nil, ErrNotFound
	}

	result := make([]byte, len(cp.data))
	copy(result, cp.data)
	return result, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]Info, error) {
	if m.closed.Load() {
		return nil, ErrStoreClosed
	}

	infos := []Info{}
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		for runID, cp := range s.data {
			infos = append(infos, Info{
				RunID:     runID,
				Sequence:  cp.sequence,
				Timestamp: cp.timestamp,
				Size:      int64(len(cp.data)),
			})
		}
		s.mu.RUnlock()
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].RunID < infos[j].RunID
	})
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, runID string) error {
	if m.closed.Load() {
		return ErrStoreClosed
	}

	s := m.shard(runID)
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, runID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		s.data = make(map[string]storedCheckpoint)
		s.mu.Unlock()
	}
	return nil
}

// Len returns the number of runs with a checkpoint.
// Useful for testing.
func (m *MemoryStore) Len() int {
	count := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		count += len(s.data)
		s.mu.RUnlock()
	}
	return count
}
