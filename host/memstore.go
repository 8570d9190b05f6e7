package host

import (
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store used by engine tests; govd itself
// always opens a LevelStore.
type MemStore struct {
	mu      sync.Mutex
	data    map[string]map[string][]byte
	seqs    map[string]uint64
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string]map[string][]byte),
		seqs: make(map[string]uint64),
	}
}

func (m *MemStore) Get(collection, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.data[collection]
	if !ok {
		return nil, false, nil
	}
	v, ok := bucket[key]
	if !ok {
		return nil, false, nil
	}
	out := append([]byte(nil), v...)
	return out, true, nil
}

func (m *MemStore) Put(collection, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.data[collection]
	if !ok {
		bucket = make(map[string][]byte)
		m.data[collection] = bucket
	}
	bucket[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemStore) Delete(collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bucket, ok := m.data[collection]; ok {
		delete(bucket, key)
	}
	return nil
}

func (m *MemStore) Iterate(collection, keyPrefix string, fn func(key string, value []byte) bool) error {
	m.mu.Lock()
	bucket, ok := m.data[collection]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	keys := make([]string, 0, len(bucket))
	for k := range bucket {
		if strings.HasPrefix(k, keyPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	snapshot := make(map[string][]byte, len(keys))
	for _, k := range keys {
		snapshot[k] = append([]byte(nil), bucket[k]...)
	}
	m.mu.Unlock()

	for _, k := range keys {
		if !fn(k, snapshot[k]) {
			break
		}
	}
	return nil
}

func (m *MemStore) NextSequence(counter string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seqs[counter]++
	return m.seqs[counter], nil
}
