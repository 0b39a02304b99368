package cache

import (
	"context"
	"sort"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps encoded entries in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[VehicleKey][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[VehicleKey][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, key VehicleKey) (*Entry, error) {
	s.mu.RLock()
	data, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return Decode(key, data)
}

func (s *MemoryStore) Save(_ context.Context, key VehicleKey, entry *Entry) error {
	e := *entry
	e.Key = key
	data, err := Encode(&e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[key] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key VehicleKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return ErrNotFound
	}
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	keys := make([]VehicleKey, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		e, err := s.Load(ctx, k)
		if err != nil {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

// PutRaw stores data for key without encoding it.
func (s *MemoryStore) PutRaw(key VehicleKey, data []byte) {
	s.mu.Lock()
	s.entries[key] = append([]byte(nil), data...)
	s.mu.Unlock()
}
