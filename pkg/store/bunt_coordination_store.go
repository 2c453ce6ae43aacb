// Package store's CoordinationStore implementation uses buntdb rather than
// bbolt: work-unit claiming needs an ordered scan-and-mutate inside one
// transaction, which buntdb supports natively (tx.AscendKeys) where bbolt
// would need hand rolled secondary indexes. Worker liveness is the stored
// LastHeartbeat timestamp, compared against the timeout by SweepStaleWorkers;
// no buntdb key expiry is used. buntdb(":memory:") doubles as the in-memory
// fallback backend named in SPEC_FULL §4.5 — same code path, no on-disk file.
package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/log"
)

const (
	workUnitPrefix = "workunit:"
	workerPrefix   = "worker:"
)

// BuntCoordinationStore is the CoordinationStore backend (SPEC_FULL §4.5).
// Pass path=":memory:" for the pure in-memory fallback.
type BuntCoordinationStore struct {
	db *buntdb.DB
}

// OpenBuntCoordinationStore opens (creating if absent) a buntdb-backed
// coordination store at path, or an in-memory one if path is ":memory:".
func OpenBuntCoordinationStore(path string) (*BuntCoordinationStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open coordination db %s: %w", path, err)
	}
	return &BuntCoordinationStore{db: db}, nil
}

func (s *BuntCoordinationStore) Close() error { return s.db.Close() }

func workUnitKey(workID string) string { return workUnitPrefix + workID }
func workerKey(workerID string) string { return workerPrefix + workerID }

func (s *BuntCoordinationStore) CreateWorkUnits(units []aqea.WorkUnit) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		for _, u := range units {
			key := workUnitKey(u.WorkID)
			if _, err := tx.Get(key); err == nil {
				continue
			} else if err != buntdb.ErrNotFound {
				return err
			}
			if u.Status == "" {
				u.Status = aqea.WorkUnitPending
			}
			if u.MaxRetries == 0 {
				u.MaxRetries = aqea.DefaultMaxRetries
			}
			data, err := json.Marshal(u)
			if err != nil {
				return err
			}
			if _, _, err := tx.Set(key, string(data), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClaimNextPending scans work units in key order (i.e. WorkID ascending,
// since keys are "workunit:"+WorkID) and atomically assigns the first one
// still pending. Returns ErrWorkerAlreadyActive if workerID already owns a
// unit in assigned or processing state (SPEC_FULL §6.1, HTTP 409 on
// GET /api/work) rather than handing out a second unit.
func (s *BuntCoordinationStore) ClaimNextPending(workerID string) (*aqea.WorkUnit, error) {
	var claimed *aqea.WorkUnit
	err := s.db.Update(func(tx *buntdb.Tx) error {
		var activeWorkID string
		activeErr := tx.AscendKeys(workUnitPrefix+"*", func(key, value string) bool {
			var u aqea.WorkUnit
			if err := json.Unmarshal([]byte(value), &u); err != nil {
				return true
			}
			if u.AssignedWorker == workerID && (u.Status == aqea.WorkUnitAssigned || u.Status == aqea.WorkUnitProcessing) {
				activeWorkID = u.WorkID
				return false
			}
			return true
		})
		if activeErr != nil {
			return activeErr
		}
		if activeWorkID != "" {
			return &ErrWorkerAlreadyActive{WorkerID: workerID, WorkID: activeWorkID}
		}

		var candidateKey string
		var candidate aqea.WorkUnit
		walkErr := tx.AscendKeys(workUnitPrefix+"*", func(key, value string) bool {
			var u aqea.WorkUnit
			if err := json.Unmarshal([]byte(value), &u); err != nil {
				return true
			}
			if u.Status == aqea.WorkUnitPending {
				candidateKey = key
				candidate = u
				return false
			}
			return true
		})
		if walkErr != nil {
			return walkErr
		}
		if candidateKey == "" {
			return nil
		}
		now := time.Now()
		candidate.Status = aqea.WorkUnitAssigned
		candidate.AssignedWorker = workerID
		candidate.AssignedAt = &now
		data, err := json.Marshal(candidate)
		if err != nil {
			return err
		}
		if _, _, err := tx.Set(candidateKey, string(data), nil); err != nil {
			return err
		}
		claimed = &candidate
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: claim next pending: %w", err)
	}
	return claimed, nil
}

func (s *BuntCoordinationStore) UpdateProgress(workID, workerID string, entriesProcessed int, rate float64) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		u, err := s.getUnitTx(tx, workID)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("store: work unit %s not found", workID)
		}
		if u.AssignedWorker != workerID || (u.Status != aqea.WorkUnitAssigned && u.Status != aqea.WorkUnitProcessing) {
			return &ErrOwnershipConflict{WorkID: workID}
		}
		if u.Status == aqea.WorkUnitAssigned {
			now := time.Now()
			u.Status = aqea.WorkUnitProcessing
			u.StartedAt = &now
		}
		u.EntriesProcessed = entriesProcessed
		return s.putUnitTx(tx, *u)
	})
}

func (s *BuntCoordinationStore) Complete(workID, workerID string, finalCount int) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		u, err := s.getUnitTx(tx, workID)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("store: work unit %s not found", workID)
		}
		if u.Status == aqea.WorkUnitCompleted {
			if u.EntriesProcessed != finalCount {
				log.WithComponent("store").Warn().Str("work_id", workID).Int("previous_count", u.EntriesProcessed).Int("final_count", finalCount).Msg("repeated completion with a different count; keeping the latest")
			}
			u.EntriesProcessed = finalCount
			return s.putUnitTx(tx, *u)
		}
		if u.AssignedWorker != workerID {
			return &ErrOwnershipConflict{WorkID: workID}
		}
		now := time.Now()
		u.Status = aqea.WorkUnitCompleted
		u.CompletedAt = &now
		u.EntriesProcessed = finalCount
		return s.putUnitTx(tx, *u)
	})
}

func (s *BuntCoordinationStore) Fail(workID, lastError string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		u, err := s.getUnitTx(tx, workID)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("store: work unit %s not found", workID)
		}
		now := time.Now()
		u.Status = aqea.WorkUnitFailed
		u.LastError = lastError
		u.CompletedAt = &now
		return s.putUnitTx(tx, *u)
	})
}

func (s *BuntCoordinationStore) GetWorkUnit(workID string) (*aqea.WorkUnit, error) {
	var u *aqea.WorkUnit
	err := s.db.View(func(tx *buntdb.Tx) error {
		got, err := s.getUnitTx(tx, workID)
		if err != nil {
			return err
		}
		u = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: get work unit %s: %w", workID, err)
	}
	return u, nil
}

func (s *BuntCoordinationStore) ListWorkUnits() ([]aqea.WorkUnit, error) {
	var units []aqea.WorkUnit
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(workUnitPrefix+"*", func(key, value string) bool {
			var u aqea.WorkUnit
			if err := json.Unmarshal([]byte(value), &u); err == nil {
				units = append(units, u)
			}
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: list work units: %w", err)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].WorkID < units[j].WorkID })
	return units, nil
}

func (s *BuntCoordinationStore) RegisterWorker(info aqea.WorkerInfo) (string, error) {
	if info.WorkerID == "" {
		return "", fmt.Errorf("store: register worker: empty worker id")
	}
	err := s.db.Update(func(tx *buntdb.Tx) error {
		now := time.Now()
		key := workerKey(info.WorkerID)
		existingRaw, err := tx.Get(key)
		if err != nil && err != buntdb.ErrNotFound {
			return err
		}
		if err == nil {
			var existing aqea.WorkerInfo
			if unmarshalErr := json.Unmarshal([]byte(existingRaw), &existing); unmarshalErr == nil {
				info.RegisteredAt = existing.RegisteredAt
				info.TotalProcessed = existing.TotalProcessed
			}
		} else {
			info.RegisteredAt = now
		}
		if info.Status == "" {
			info.Status = aqea.WorkerIdle
		}
		info.LastHeartbeat = now
		data, err := json.Marshal(info)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(key, string(data), nil)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("store: register worker: %w", err)
	}
	return info.WorkerID, nil
}

func (s *BuntCoordinationStore) Heartbeat(workerID string, status aqea.WorkerStatus, currentWorkID string, now time.Time) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		key := workerKey(workerID)
		raw, err := tx.Get(key)
		if err != nil {
			return fmt.Errorf("store: heartbeat: worker %s not registered", workerID)
		}
		var info aqea.WorkerInfo
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			return err
		}
		info.Status = status
		info.CurrentWorkID = currentWorkID
		info.LastHeartbeat = now
		data, err := json.Marshal(info)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(key, string(data), nil)
		return err
	})
}

func (s *BuntCoordinationStore) ListWorkers() ([]aqea.WorkerInfo, error) {
	var workers []aqea.WorkerInfo
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(workerPrefix+"*", func(key, value string) bool {
			var w aqea.WorkerInfo
			if err := json.Unmarshal([]byte(value), &w); err == nil {
				workers = append(workers, w)
			}
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: list workers: %w", err)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].WorkerID < workers[j].WorkerID })
	return workers, nil
}

// SweepStaleWorkers marks workers whose last heartbeat exceeds timeout as
// offline and returns their in-flight work units to pending (SPEC_FULL §4.1).
func (s *BuntCoordinationStore) SweepStaleWorkers(now time.Time, timeout time.Duration) ([]string, error) {
	var reassigned []string
	err := s.db.Update(func(tx *buntdb.Tx) error {
		var stale []aqea.WorkerInfo
		walkErr := tx.AscendKeys(workerPrefix+"*", func(key, value string) bool {
			var w aqea.WorkerInfo
			if err := json.Unmarshal([]byte(value), &w); err != nil {
				return true
			}
			if w.Status != aqea.WorkerOffline && now.Sub(w.LastHeartbeat) > timeout {
				stale = append(stale, w)
			}
			return true
		})
		if walkErr != nil {
			return walkErr
		}

		for _, w := range stale {
			w.Status = aqea.WorkerOffline
			data, err := json.Marshal(w)
			if err != nil {
				return err
			}
			if _, _, err := tx.Set(workerKey(w.WorkerID), string(data), nil); err != nil {
				return err
			}
			if w.CurrentWorkID == "" {
				continue
			}
			u, err := s.getUnitTx(tx, w.CurrentWorkID)
			if err != nil || u == nil {
				continue
			}
			if u.Status != aqea.WorkUnitAssigned && u.Status != aqea.WorkUnitProcessing {
				continue
			}
			u.AssignedWorker = ""
			u.AssignedAt = nil
			u.StartedAt = nil
			u.LastError = "worker_timeout"
			if u.RetryCount >= u.MaxRetries {
				u.Status = aqea.WorkUnitFailed
				completedAt := now
				u.CompletedAt = &completedAt
			} else {
				u.RetryCount++
				u.Status = aqea.WorkUnitPending
			}
			if err := s.putUnitTx(tx, *u); err != nil {
				return err
			}
			reassigned = append(reassigned, u.WorkID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: sweep stale workers: %w", err)
	}
	return reassigned, nil
}

func (s *BuntCoordinationStore) getUnitTx(tx *buntdb.Tx, workID string) (*aqea.WorkUnit, error) {
	raw, err := tx.Get(workUnitKey(workID))
	if err == buntdb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u aqea.WorkUnit
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *BuntCoordinationStore) putUnitTx(tx *buntdb.Tx, u aqea.WorkUnit) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	_, _, err = tx.Set(workUnitKey(u.WorkID), string(data), nil)
	return err
}
