package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
)

func openEntryStore(t *testing.T) *BoltEntryStore {
	t.Helper()
	s, err := OpenBoltEntryStore(filepath.Join(t.TempDir(), "entries.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEntry(addr string) aqea.Entry {
	now := time.Now()
	return aqea.Entry{
		AddressStr: addr,
		Label:      "Apfel",
		Meta:       aqea.EntryMeta{Lemma: "Apfel", POS: "noun"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestUpsertBatch_InsertThenUpdate(t *testing.T) {
	s := openEntryStore(t)

	e := sampleEntry("0xA0:01:20:01")
	inserted, updated, err := s.UpsertBatch([]aqea.Entry{e})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, updated)

	created := e.CreatedAt

	e2 := e
	e2.Meta.Definitions = []string{"a fruit"}
	inserted, updated, err = s.UpsertBatch([]aqea.Entry{e2})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 1, updated)

	got, err := s.Get("0xA0:01:20:01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.Unix(), got.CreatedAt.Unix(), "created_at preserved across update")
	assert.True(t, got.UpdatedAt.After(created) || got.UpdatedAt.Equal(created))
	assert.Equal(t, []string{"a fruit"}, got.Meta.Definitions)
}

func TestGet_AbsentReturnsNilNil(t *testing.T) {
	s := openEntryStore(t)

	got, err := s.Get("0xA0:01:20:99")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQuery_MatchesPattern(t *testing.T) {
	s := openEntryStore(t)

	_, _, err := s.UpsertBatch([]aqea.Entry{
		sampleEntry("0xA0:01:20:01"),
		sampleEntry("0xA0:01:21:01"),
		sampleEntry("0xA0:02:20:01"),
	})
	require.NoError(t, err)

	results, err := s.Query("0xA0:01:*:*")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
