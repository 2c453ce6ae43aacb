package master

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/store"
)

func newTestMaster(t *testing.T) (*Master, *Server) {
	t.Helper()
	coord, err := store.OpenBuntCoordinationStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { coord.Close() })

	entries, err := store.OpenBoltEntryStore(filepath.Join(t.TempDir(), "entries.db"))
	require.NoError(t, err)
	t.Cleanup(func() { entries.Close() })

	m := New(Config{}, coord, entries)
	return m, NewServer(m)
}

func TestGeneratePlan_CreatesWeightedUnits(t *testing.T) {
	m, _ := newTestMaster(t)

	units, err := m.GeneratePlan(aqea.LanguagePlan{
		LanguageCode:     "deu",
		Source:           "wiktionary",
		EstimatedEntries: 1000,
		AlphabetRanges: []aqea.AlphabetRange{
			{StartPrefix: "a", EndPrefix: "e", Weight: 0.4},
			{StartPrefix: "f", EndPrefix: "z", Weight: 0.6},
		},
	})
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "wiktionary_deu_00", units[0].WorkID)
	assert.Equal(t, 400, units[0].EstimatedEntries)
	assert.Equal(t, "wiktionary_deu_01", units[1].WorkID)
	assert.Equal(t, 600, units[1].EstimatedEntries)
	assert.Equal(t, aqea.WorkUnitPending, units[0].Status)
}

func TestServer_WorkLifecycle(t *testing.T) {
	m, s := newTestMaster(t)
	_, err := m.GeneratePlan(aqea.LanguagePlan{
		LanguageCode:     "deu",
		Source:           "wiktionary",
		EstimatedEntries: 10,
		AlphabetRanges:   []aqea.AlphabetRange{{StartPrefix: "a", EndPrefix: "z", Weight: 1}},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	// register
	regResp := doJSON(t, srv.URL+"/api/register", registerRequest{WorkerID: "worker-1"})
	var reg registerResponse
	require.NoError(t, json.Unmarshal(regResp, &reg))
	assert.Equal(t, "worker-1", reg.WorkerID)

	// claim work
	workResp, status := getJSON(t, srv.URL+"/api/work?worker_id=worker-1")
	require.Equal(t, http.StatusOK, status)
	var work workResponse
	require.NoError(t, json.Unmarshal(workResp, &work))
	assert.Equal(t, "wiktionary_deu_00", work.WorkID)

	// second claim returns 204
	_, status = getJSON(t, srv.URL+"/api/work?worker_id=worker-2")
	assert.Equal(t, http.StatusNoContent, status)

	// progress
	progResp := doJSON(t, srv.URL+"/api/work/"+work.WorkID+"/progress", progressRequest{
		WorkerID: "worker-1", EntriesProcessed: 5, CurrentRate: 12.5,
	})
	assert.JSONEq(t, `{"ok":true}`, string(progResp))

	// progress from the wrong worker conflicts
	resp, status := postJSON(t, srv.URL+"/api/work/"+work.WorkID+"/progress", progressRequest{
		WorkerID: "worker-2", EntriesProcessed: 1,
	})
	assert.Equal(t, http.StatusConflict, status)
	_ = resp

	// complete
	compResp := doJSON(t, srv.URL+"/api/work/"+work.WorkID+"/complete", completeRequest{
		WorkerID: "worker-1", EntriesProcessed: 10, Success: true,
	})
	assert.JSONEq(t, `{"ok":true}`, string(compResp))

	unit, err := m.coord.GetWorkUnit(work.WorkID)
	require.NoError(t, err)
	assert.Equal(t, aqea.WorkUnitCompleted, unit.Status)
	assert.Equal(t, 10, unit.EntriesProcessed)
}

func TestServer_WorkAlreadyActiveConflict(t *testing.T) {
	m, s := newTestMaster(t)
	_, err := m.GeneratePlan(aqea.LanguagePlan{
		LanguageCode:     "deu",
		Source:           "wiktionary",
		EstimatedEntries: 10,
		AlphabetRanges: []aqea.AlphabetRange{
			{StartPrefix: "a", EndPrefix: "m", Weight: 0.5},
			{StartPrefix: "n", EndPrefix: "z", Weight: 0.5},
		},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	// first claim succeeds and leaves the unit assigned to worker-1
	_, status := getJSON(t, srv.URL+"/api/work?worker_id=worker-1")
	require.Equal(t, http.StatusOK, status)

	// a second claim by the same worker is rejected: it already owns an
	// active unit, so it must finish or abandon that one first
	_, status = getJSON(t, srv.URL+"/api/work?worker_id=worker-1")
	assert.Equal(t, http.StatusConflict, status)
}

func TestClaimNextPending_RejectsSecondClaimBySameWorker(t *testing.T) {
	m, _ := newTestMaster(t)
	_, err := m.GeneratePlan(aqea.LanguagePlan{
		LanguageCode:     "deu",
		Source:           "wiktionary",
		EstimatedEntries: 10,
		AlphabetRanges: []aqea.AlphabetRange{
			{StartPrefix: "a", EndPrefix: "m", Weight: 0.5},
			{StartPrefix: "n", EndPrefix: "z", Weight: 0.5},
		},
	})
	require.NoError(t, err)

	first, err := m.coord.ClaimNextPending("worker-1")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := m.coord.ClaimNextPending("worker-1")
	assert.Nil(t, second)
	var active *store.ErrWorkerAlreadyActive
	require.ErrorAs(t, err, &active)
	assert.Equal(t, "worker-1", active.WorkerID)
	assert.Equal(t, first.WorkID, active.WorkID)
}

func TestSweep_ReassignsStaleWorkerUnits(t *testing.T) {
	m, _ := newTestMaster(t)
	_, err := m.GeneratePlan(aqea.LanguagePlan{
		LanguageCode:     "deu",
		Source:           "wiktionary",
		EstimatedEntries: 10,
		AlphabetRanges:   []aqea.AlphabetRange{{StartPrefix: "a", EndPrefix: "z", Weight: 1}},
	})
	require.NoError(t, err)

	unit, err := m.coord.ClaimNextPending("worker-1")
	require.NoError(t, err)
	require.NotNil(t, unit)

	m.cfg.HeartbeatTimeout = time.Millisecond
	time.Sleep(5 * time.Millisecond)
	m.sweep()

	got, err := m.coord.GetWorkUnit(unit.WorkID)
	require.NoError(t, err)
	assert.Equal(t, aqea.WorkUnitPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, "worker_timeout", got.LastError)
}

func doJSON(t *testing.T, url string, body interface{}) []byte {
	t.Helper()
	b, status := postJSON(t, url, body)
	require.Equal(t, http.StatusOK, status)
	return b
}

func postJSON(t *testing.T, url string, body interface{}) ([]byte, int) {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return out, resp.StatusCode
}

func getJSON(t *testing.T, url string) ([]byte, int) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return out, resp.StatusCode
}
