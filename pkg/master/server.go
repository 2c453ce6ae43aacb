package master

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/errs"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/metrics"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/store"
)

// Server wraps a Master with the HTTP API surface from SPEC_FULL §6.1,
// grounded on the teacher's HealthServer (stdlib http.ServeMux,
// ReadTimeout/WriteTimeout/IdleTimeout on http.Server).
type Server struct {
	master *Master
	mux    *http.ServeMux
}

// NewServer builds the worker-facing HTTP API over m.
func NewServer(m *Master) *Server {
	mux := http.NewServeMux()
	s := &Server{master: m, mux: mux}

	mux.HandleFunc("/api/register", s.handleRegister)
	mux.HandleFunc("/api/work", s.handleWork)
	mux.HandleFunc("/api/work/", s.handleWorkSub) // /api/work/{id}/progress|complete
	mux.HandleFunc("/api/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())

	return s
}

// Start blocks serving addr until the server errors or is shut down.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

// Handler exposes the mux for embedding (tests, graceful-shutdown wrapping).
func (s *Server) Handler() http.Handler { return s.mux }

type registerRequest struct {
	WorkerID     string                 `json:"worker_id,omitempty"`
	Capabilities map[string]interface{} `json:"capabilities,omitempty"`
}

type registerResponse struct {
	WorkerID   string    `json:"worker_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req registerRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.WorkerID == "" {
		req.WorkerID = "worker-" + uuid.New().String()
	}

	now := time.Now()
	workerID, err := s.master.coord.RegisterWorker(aqea.WorkerInfo{
		WorkerID:      req.WorkerID,
		Status:        aqea.WorkerIdle,
		LastHeartbeat: now,
		RegisteredAt:  now,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{WorkerID: workerID, AssignedAt: now})
}

type workResponse struct {
	WorkID           string `json:"work_id"`
	Language         string `json:"language"`
	Source           string `json:"source"`
	RangeStart       string `json:"range_start"`
	RangeEnd         string `json:"range_end"`
	EstimatedEntries int    `json:"estimated_entries"`
}

func (s *Server) handleWork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	workerID := r.URL.Query().Get("worker_id")
	if workerID == "" {
		http.Error(w, "worker_id is required", http.StatusBadRequest)
		return
	}

	unit, err := s.master.coord.ClaimNextPending(workerID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if unit == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, workResponse{
		WorkID:           unit.WorkID,
		Language:         unit.LanguageCode,
		Source:           unit.SourceName,
		RangeStart:       unit.RangeStart,
		RangeEnd:         unit.RangeEnd,
		EstimatedEntries: unit.EstimatedEntries,
	})
}

// handleWorkSub demultiplexes /api/work/{work_id}/progress and
// /api/work/{work_id}/complete; a stdlib ServeMux can't pattern-match path
// segments, so this mirrors the teacher's flat-handler style with a manual
// suffix split instead of pulling in a router dependency for two routes.
func (s *Server) handleWorkSub(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/work/")
	switch {
	case strings.HasSuffix(path, "/progress"):
		s.handleProgress(w, r, strings.TrimSuffix(path, "/progress"))
	case strings.HasSuffix(path, "/complete"):
		s.handleComplete(w, r, strings.TrimSuffix(path, "/complete"))
	default:
		http.NotFound(w, r)
	}
}

type progressRequest struct {
	WorkerID         string               `json:"worker_id"`
	EntriesProcessed int                  `json:"entries_processed"`
	CurrentRate      float64              `json:"current_rate"`
	Errors           []aqea.WorkUnitError `json:"errors,omitempty"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, workID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := s.master.coord.UpdateProgress(workID, req.WorkerID, req.EntriesProcessed, req.CurrentRate); err != nil {
		writeStoreError(w, err)
		return
	}
	for _, e := range req.Errors {
		metrics.SoftErrorsTotal.WithLabelValues(e.Kind).Inc()
	}
	atomic.AddUint64(&s.master.softErrors, uint64(len(req.Errors)))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type completeRequest struct {
	WorkerID         string `json:"worker_id"`
	EntriesProcessed int    `json:"entries_processed"`
	Success          bool   `json:"success"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request, workID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if !req.Success {
		if err := s.master.coord.Fail(workID, "worker reported failure"); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if err := s.master.coord.Complete(workID, req.WorkerID, req.EntriesProcessed); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type heartbeatRequest struct {
	WorkerID      string `json:"worker_id"`
	Status        string `json:"status"`
	CurrentWorkID string `json:"current_work_id,omitempty"`
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	metrics.HeartbeatsTotal.WithLabelValues(req.WorkerID).Inc()
	if err := s.master.coord.Heartbeat(req.WorkerID, aqea.WorkerStatus(req.Status), req.CurrentWorkID, time.Now()); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// statusSnapshot is the /api/status payload (SPEC_FULL §6.1, §7): a
// consistent point-in-time view with RFC 3339 timestamps.
type statusSnapshot struct {
	WorkUnits   []aqea.WorkUnit   `json:"work_units"`
	Workers     []aqea.WorkerInfo `json:"workers"`
	SoftErrors  uint64            `json:"soft_errors"`
	HardErrors  uint64            `json:"hard_errors"`
	GeneratedAt time.Time         `json:"generated_at"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	units, err := s.master.coord.ListWorkUnits()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	workers, err := s.master.coord.ListWorkers()
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusSnapshot{
		WorkUnits:   units,
		Workers:     workers,
		SoftErrors:  atomic.LoadUint64(&s.master.softErrors),
		HardErrors:  atomic.LoadUint64(&s.master.hardErrors),
		GeneratedAt: time.Now(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.master.coord.ListWorkUnits(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeStoreError maps store-layer errors to the HTTP statuses SPEC_FULL
// §6.1/§7 assign them: ownership conflicts are 409, everything else is a
// transient 503 (the master never crashes on a single request's failure).
func writeStoreError(w http.ResponseWriter, err error) {
	var conflict *store.ErrOwnershipConflict
	var active *store.ErrWorkerAlreadyActive
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": string(errs.KindCoordinationConflict)})
	case errors.As(err, &active):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "worker already owns an active unit"})
	default:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
}
