package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/allocator"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/converter"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/errs"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/store"
)

// fakeExtractor emits a fixed set of records, one line per lemma, then ends.
type fakeExtractor struct {
	records []aqea.RawRecord
}

func (f *fakeExtractor) ExtractRange(ctx context.Context, rangeStart, rangeEnd string, out chan<- aqea.RawRecord, softErrs chan<- aqea.WorkUnitError) error {
	for _, r := range f.records {
		select {
		case out <- r:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeExtractor) Close() error { return nil }

// softErrExtractor emits its records, reports one soft error mid-stream, and
// completes without returning an error — mirroring a page fetch that fails
// but doesn't abort the range.
type softErrExtractor struct {
	records  []aqea.RawRecord
	softErrs []aqea.WorkUnitError
}

func (f *softErrExtractor) ExtractRange(ctx context.Context, rangeStart, rangeEnd string, out chan<- aqea.RawRecord, softErrs chan<- aqea.WorkUnitError) error {
	for _, e := range f.softErrs {
		select {
		case softErrs <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, r := range f.records {
		select {
		case out <- r:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *softErrExtractor) Close() error { return nil }

// fakeMaster is an in-memory stand-in for the master's HTTP API, just
// enough surface for Worker.Run/processUnit to drive one unit to completion.
func newFakeMaster(t *testing.T, unit aqea.WorkUnit) (*httptest.Server, *int32, *sync.Mutex, *[]int) {
	t.Helper()
	var mu sync.Mutex
	var handedOut int32
	var progressReports []int

	mux := http.NewServeMux()
	mux.HandleFunc("/api/register", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"worker_id":"worker-1","assigned_at":"2026-01-01T00:00:00Z"}`))
	})
	mux.HandleFunc("/api/work", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if handedOut > 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		handedOut++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"work_id":"` + unit.WorkID + `","language":"` + unit.LanguageCode + `","source":"wiktionary","range_start":"","range_end":"","estimated_entries":5}`))
	})
	mux.HandleFunc("/api/work/"+unit.WorkID+"/progress", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		progressReports = append(progressReports, 1)
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/api/work/"+unit.WorkID+"/complete", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/api/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &handedOut, &mu, &progressReports
}

func TestWorker_ProcessesOneUnitToCompletion(t *testing.T) {
	unit := aqea.WorkUnit{WorkID: "wiktionary_deu_00", LanguageCode: "deu"}
	srv, _, _, _ := newFakeMaster(t, unit)

	client := NewMasterClient(srv.URL, "worker-1")

	a, err := allocator.Open(filepath.Join(t.TempDir(), "alloc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	conv := converter.New(a, "wiktionary")

	entries, err := store.OpenBoltEntryStore(filepath.Join(t.TempDir(), "entries.db"))
	require.NoError(t, err)
	t.Cleanup(func() { entries.Close() })

	fallback, err := store.NewFallbackWriter(t.TempDir())
	require.NoError(t, err)

	extr := &fakeExtractor{records: []aqea.RawRecord{
		{Word: "Apfel", Language: "deu", POS: "noun", Definitions: []string{"a fruit"}},
		{Word: "Auto", Language: "deu", POS: "noun", Definitions: []string{"a vehicle"}},
	}}

	w := New(Config{WorkerID: "worker-1", BatchSize: 10, FlushInterval: 50 * time.Millisecond, HeartbeatInterval: time.Hour},
		client, extr, conv, entries, fallback, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Run would loop forever waiting for more work (204), so drive one unit
	// directly instead of the full Run loop.
	_, err = client.Register(ctx)
	require.NoError(t, err)
	got, err := client.RequestWork(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)

	err = w.processUnit(ctx, got)
	require.NoError(t, err)

	results, err := entries.Query("0xA0:01:*:*")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

// TestWorker_ReportsSoftErrorFromExtractor drives processUnit with an
// extractor that reports one soft error and no records, and checks it
// reaches the master's progress endpoint instead of being dropped by the
// early-return in flush() or lost between the main loop exiting and
// extractSoftErrs draining.
func TestWorker_ReportsSoftErrorFromExtractor(t *testing.T) {
	unit := aqea.WorkUnit{WorkID: "wiktionary_deu_01", LanguageCode: "deu"}

	var mu sync.Mutex
	var reportedSoftErrs [][]aqea.WorkUnitError

	mux := http.NewServeMux()
	mux.HandleFunc("/api/register", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"worker_id":"worker-1","assigned_at":"2026-01-01T00:00:00Z"}`))
	})
	mux.HandleFunc("/api/work/"+unit.WorkID+"/progress", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Errors []aqea.WorkUnitError `json:"errors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		reportedSoftErrs = append(reportedSoftErrs, body.Errors)
		mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/api/work/"+unit.WorkID+"/complete", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/api/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewMasterClient(srv.URL, "worker-1")

	a, err := allocator.Open(filepath.Join(t.TempDir(), "alloc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	conv := converter.New(a, "wiktionary")

	entries, err := store.OpenBoltEntryStore(filepath.Join(t.TempDir(), "entries.db"))
	require.NoError(t, err)
	t.Cleanup(func() { entries.Close() })

	fallback, err := store.NewFallbackWriter(t.TempDir())
	require.NoError(t, err)

	extr := &softErrExtractor{
		softErrs: []aqea.WorkUnitError{
			{Kind: string(errs.KindUpstreamFetch), Detail: `prefix "b": upstream returned 400`},
		},
	}

	w := New(Config{WorkerID: "worker-1", BatchSize: 10, FlushInterval: 50 * time.Millisecond, HeartbeatInterval: time.Hour},
		client, extr, conv, entries, fallback, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = client.Register(ctx)
	require.NoError(t, err)

	err = w.processUnit(ctx, &unit)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	var sawSoftErr bool
	for _, batch := range reportedSoftErrs {
		if len(batch) > 0 {
			sawSoftErr = true
			assert.Equal(t, string(errs.KindUpstreamFetch), batch[0].Kind)
		}
	}
	assert.True(t, sawSoftErr, "expected at least one progress report to carry the soft error")
}
