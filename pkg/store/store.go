// Package store implements the Entry Store (C4) and Coordination Store (C5)
// contracts from SPEC_FULL §4.5, grounded on the teacher's pkg/storage
// interface shape (one interface per concern, per-entity CRUD methods) and
// its bbolt bucket-per-entity transaction idiom.
package store

import (
	"time"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
)

// EntryStore is the idempotent-upsert, address-queryable persistence
// abstraction for AQEA entries (SPEC_FULL §4.5).
type EntryStore interface {
	// UpsertBatch inserts or updates entries by address. Conflict policy on
	// collision: preserve original CreatedAt, overwrite UpdatedAt, and store
	// the incoming Meta in place of the stored Meta as a whole; stored Meta
	// fields are not merged into the incoming entry.
	UpsertBatch(entries []aqea.Entry) (inserted, updated int, err error)
	// Get returns the stored entry for address, or (nil, nil) if absent.
	Get(address string) (*aqea.Entry, error)
	// Query returns every stored entry whose address matches pattern (e.g.
	// "0xA0:01:*:*" — see aqea.Address.MatchesPattern).
	Query(pattern string) ([]aqea.Entry, error)
	Close() error
}

// CoordinationStore is the work-unit and worker-liveness persistence
// abstraction (SPEC_FULL §4.5).
type CoordinationStore interface {
	// CreateWorkUnits inserts units transactionally; idempotent by WorkID —
	// an existing unit with the same WorkID is left untouched.
	CreateWorkUnits(units []aqea.WorkUnit) error
	// ClaimNextPending atomically selects the pending unit with the lowest
	// WorkID (unit creation time is not consulted), marks it assigned to
	// workerID, and returns it.
	// Returns (nil, nil) if no pending unit exists.
	ClaimNextPending(workerID string) (*aqea.WorkUnit, error)
	// UpdateProgress records cumulative entries processed and the current
	// throughput rate for a unit still owned by workerID. Transitions
	// assigned -> processing on the first call. Returns ErrOwnershipConflict
	// if workerID does not hold the unit.
	UpdateProgress(workID, workerID string, entriesProcessed int, rate float64) error
	// Complete marks a unit completed with its final count. Idempotent for
	// repeated calls with the same finalCount; last-writer-wins (logged) for
	// a differing finalCount.
	Complete(workID, workerID string, finalCount int) error
	// Fail marks a unit failed, recording lastError, bypassing retry.
	Fail(workID, lastError string) error
	// GetWorkUnit returns one work unit by id, or (nil, nil) if absent.
	GetWorkUnit(workID string) (*aqea.WorkUnit, error)
	// ListWorkUnits returns every known work unit (for status snapshots).
	ListWorkUnits() ([]aqea.WorkUnit, error)

	// RegisterWorker creates or refreshes a worker record and returns its id.
	RegisterWorker(info aqea.WorkerInfo) (workerID string, err error)
	// Heartbeat updates a worker's LastHeartbeat and reported status.
	Heartbeat(workerID string, status aqea.WorkerStatus, currentWorkID string, now time.Time) error
	// ListWorkers returns every known worker (for status snapshots).
	ListWorkers() ([]aqea.WorkerInfo, error)
	// SweepStaleWorkers marks workers whose heartbeat exceeds timeout as
	// offline, and reassigns (or fails) any work units they held
	// (SPEC_FULL §4.1 liveness & reassignment). Returns the work ids touched.
	SweepStaleWorkers(now time.Time, timeout time.Duration) (reassigned []string, err error)

	Close() error
}

// ErrOwnershipConflict signals that a caller attempted to mutate a work unit
// it does not currently own — surfaces as HTTP 409 (SPEC_FULL §4.1, §6.1) and
// maps to errs.KindCoordinationConflict at the HTTP boundary.
type ErrOwnershipConflict struct {
	WorkID string
}

func (e *ErrOwnershipConflict) Error() string {
	return "store: ownership conflict on work unit " + e.WorkID
}

// ErrWorkerAlreadyActive signals that a worker requesting /api/work already
// owns an active unit (SPEC_FULL §6.1, HTTP 409 on GET /api/work).
type ErrWorkerAlreadyActive struct {
	WorkerID string
	WorkID   string
}

func (e *ErrWorkerAlreadyActive) Error() string {
	return "store: worker " + e.WorkerID + " already owns active unit " + e.WorkID
}
