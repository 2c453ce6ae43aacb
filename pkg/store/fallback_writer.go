package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
)

// FallbackWriter persists a batch of entries as newline-delimited JSON when
// a write to the primary EntryStore fails (SPEC_FULL §4.2, §6.5). Each produced file is independently re-ingestible.
type FallbackWriter struct {
	dir string
}

// NewFallbackWriter ensures dir exists and returns a writer rooted there.
func NewFallbackWriter(dir string) (*FallbackWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create fallback dir %s: %w", dir, err)
	}
	return &FallbackWriter{dir: dir}, nil
}

// WriteBatch writes entries to aqea_entries_{workerID}_{unix_ms}.json, one
// JSON object per line, and returns the path written.
func (w *FallbackWriter) WriteBatch(workerID string, entries []aqea.Entry, now time.Time) (string, error) {
	name := fmt.Sprintf("aqea_entries_%s_%d.json", workerID, now.UnixMilli())
	path := filepath.Join(w.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("store: open fallback file %s: %w", path, err)
	}
	defer f.Close()

	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return "", fmt.Errorf("store: marshal fallback entry %s: %w", e.AddressStr, err)
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			return "", fmt.Errorf("store: write fallback file %s: %w", path, err)
		}
	}
	return path, nil
}
