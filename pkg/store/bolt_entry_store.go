package store

import (
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.etcd.io/bbolt"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var entriesBucket = []byte("aqea_entries")

// BoltEntryStore is the embedded, single-host EntryStore backend (SPEC_FULL
// §4.5 "local embedded"). It follows the teacher's pkg/storage/boltdb.go
// idiom verbatim: one bucket, JSON-marshaled values keyed by a natural id,
// db.Update for writes and db.View for reads.
type BoltEntryStore struct {
	db *bbolt.DB
}

// OpenBoltEntryStore opens (creating if absent) a bbolt-backed entry store.
func OpenBoltEntryStore(path string) (*BoltEntryStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open entry db %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init entries bucket: %w", err)
	}
	return &BoltEntryStore{db: db}, nil
}

func (s *BoltEntryStore) Close() error { return s.db.Close() }

// UpsertBatch implements EntryStore.UpsertBatch; see store.go for the
// conflict policy this enforces.
func (s *BoltEntryStore) UpsertBatch(entries []aqea.Entry) (inserted, updated int, err error) {
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		for _, e := range entries {
			key := []byte(e.AddressStr)
			existingRaw := b.Get(key)
			if existingRaw != nil {
				var existing aqea.Entry
				if unmarshalErr := json.Unmarshal(existingRaw, &existing); unmarshalErr == nil {
					e.CreatedAt = existing.CreatedAt
				}
				e.UpdatedAt = time.Now()
				updated++
			} else {
				e.UpdatedAt = e.CreatedAt
				inserted++
			}
			data, marshalErr := json.Marshal(e)
			if marshalErr != nil {
				return marshalErr
			}
			if putErr := b.Put(key, data); putErr != nil {
				return putErr
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("store: upsert batch: %w", err)
	}
	return inserted, updated, nil
}

func (s *BoltEntryStore) Get(address string) (*aqea.Entry, error) {
	var entry *aqea.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		raw := b.Get([]byte(address))
		if raw == nil {
			return nil
		}
		var e aqea.Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", address, err)
	}
	return entry, nil
}

// Query scans every entry and keeps the ones matching pattern. The glob
// matcher mirrors the teacher's matchWildcard helper in spirit (prefix-style
// wildcard matching), specialized to the fixed 4-field address shape.
func (s *BoltEntryStore) Query(pattern string) ([]aqea.Entry, error) {
	var results []aqea.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e aqea.Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			addr, err := aqea.ParseAddress(strings.TrimSpace(e.AddressStr))
			if err != nil {
				continue
			}
			if addr.MatchesPattern(pattern) {
				results = append(results, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", pattern, err)
	}
	return results, nil
}
