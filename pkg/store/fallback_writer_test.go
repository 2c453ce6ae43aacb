package store

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
)

func TestFallbackWriter_OneLinePerEntry(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFallbackWriter(dir)
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	path, err := w.WriteBatch("worker-1", []aqea.Entry{
		{AddressStr: "0xA0:01:20:01", Label: "Apfel"},
		{AddressStr: "0xA0:01:20:02", Label: "Birne"},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "aqea_entries_worker-1_1700000000000.json"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	assert.Equal(t, 2, lines)
}
