package host

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelStore is the persistent Store implementation backing govd's data
// directory, keyed exactly per spec §6's "collections keyed by
// (collection-prefix, id)" layout: every entry's physical key is
// "<collection>/<key>".
type LevelStore struct {
	mu sync.Mutex
	db *leveldb.DB
}

// OpenLevelStore opens (creating if absent) a LevelDB database at dir.
func OpenLevelStore(dir string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("host: open leveldb at %q: %w", dir, err)
	}
	return &LevelStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *LevelStore) Close() error { return s.db.Close() }

func physicalKey(collection, key string) []byte {
	return []byte(collection + "/" + key)
}

func (s *LevelStore) Get(collection, key string) ([]byte, bool, error) {
	v, err := s.db.Get(physicalKey(collection, key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *LevelStore) Put(collection, key string, value []byte) error {
	return s.db.Put(physicalKey(collection, key), value, nil)
}

func (s *LevelStore) Delete(collection, key string) error {
	return s.db.Delete(physicalKey(collection, key), nil)
}

func (s *LevelStore) Iterate(collection, keyPrefix string, fn func(key string, value []byte) bool) error {
	prefix := []byte(collection + "/" + keyPrefix)
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	base := len(collection) + 1
	for iter.Next() {
		fullKey := string(iter.Key())
		logicalKey := fullKey[base:]
		value := append([]byte(nil), iter.Value()...)
		if !fn(logicalKey, value) {
			break
		}
	}
	return iter.Error()
}

// NextSequence allocates the next value for counter, persisting it under
// a reserved "__seq__" collection so restarts resume monotonically.
func (s *LevelStore) NextSequence(counter string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := physicalKey("__seq__", counter)
	var next uint64
	v, err := s.db.Get(key, nil)
	switch err {
	case nil:
		next = binary.BigEndian.Uint64(v) + 1
	case leveldb.ErrNotFound:
		next = 1
	default:
		return 0, err
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := s.db.Put(key, buf, nil); err != nil {
		return 0, err
	}
	return next, nil
}
