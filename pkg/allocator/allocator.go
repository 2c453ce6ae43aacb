// Package allocator implements the Address Allocator (SPEC_FULL §4.4): a
// collision-free, stable (AA,QQ,EE,lemma_key) -> A2 mapping shared by all
// producers writing into the same tuple.
//
// The transaction shape is grounded on the teacher's bbolt store
// (pkg/storage/boltdb.go): one bucket per (AA,QQ,EE) tuple, keyed by
// lemma_key, read-modify-write inside a single db.Update call. A per-tuple
// mutex map serializes the "read next_free_id, then write" race the spec
// requires to be linearizable.
package allocator

import (
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/errs"
)

var rootBucket = []byte("address_allocations")

// Allocator reserves element IDs within an (AA,QQ,EE) tuple, backed by a
// bbolt database. It is safe for concurrent use by multiple goroutines within
// one process; cross-process safety comes from bbolt's single-writer file lock.
type Allocator struct {
	db *bbolt.DB

	mu      sync.Mutex
	tupleMu map[string]*sync.Mutex
}

// Open opens (creating if absent) a bbolt-backed allocator at path.
func Open(path string) (*Allocator, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("allocator: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("allocator: init bucket: %w", err)
	}
	return &Allocator{db: db, tupleMu: make(map[string]*sync.Mutex)}, nil
}

// Close releases the underlying bbolt database.
func (a *Allocator) Close() error {
	return a.db.Close()
}

func tupleKey(aa, qq, ee byte) string {
	return fmt.Sprintf("%02X:%02X:%02X", aa, qq, ee)
}

func (a *Allocator) lockFor(tuple string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.tupleMu[tuple]
	if !ok {
		m = &sync.Mutex{}
		a.tupleMu[tuple] = m
	}
	return m
}

// Allocate returns a stable A2 byte for (aa, qq, ee, lemmaKey): the same
// lemmaKey within the same tuple always returns the same A2 (SPEC_FULL §4.4
// contract). Each tuple gets its own nested bucket, so the search for the
// lowest unused A2 never crosses tuple boundaries.
func (a *Allocator) Allocate(aa, qq, ee byte, lemmaKey string) (byte, error) {
	tuple := tupleKey(aa, qq, ee)
	lock := a.lockFor(tuple)
	lock.Lock()
	defer lock.Unlock()

	var result byte
	err := a.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(rootBucket)
		tb, err := root.CreateBucketIfNotExists([]byte(tuple))
		if err != nil {
			return err
		}

		if existing := tb.Get([]byte(lemmaKey)); existing != nil {
			result = existing[0]
			return nil
		}

		next, err := nextFreeID(tb)
		if err != nil {
			return err
		}
		if err := tb.Put([]byte(lemmaKey), []byte{next}); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("allocator: allocate %s/%s: %w", tuple, lemmaKey, err)
	}
	return result, nil
}

// nextFreeID scans the tuple bucket for the lowest unused byte in
// [A2Min, A2Max], returning AddressSpaceExhausted if none remain.
func nextFreeID(tb *bbolt.Bucket) (byte, error) {
	used := make(map[byte]bool, tb.Stats().KeyN)
	c := tb.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if len(v) == 1 {
			used[v[0]] = true
		}
	}
	for id := int(aqea.A2Min); id <= int(aqea.A2Max); id++ {
		if !used[byte(id)] {
			return byte(id), nil
		}
	}
	return 0, errs.New(errs.KindAddressSpaceExhausted, "no free element id in [0x01,0xFE] for tuple")
}
