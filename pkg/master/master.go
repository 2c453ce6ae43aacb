// Package master implements the Master Coordinator (C7, SPEC_FULL §4.1): it
// partitions a language plan into work units, serves the worker-facing HTTP
// API, and sweeps for stale workers on a ticker loop, grounded on the
// teacher's pkg/scheduler.Scheduler (ticker+select+stopCh loop shape) and
// pkg/api/health.go (stdlib net/http.ServeMux server construction).
package master

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/errs"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/log"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/metrics"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/store"
)

const (
	defaultHeartbeatTimeout = 120 * time.Second
	defaultSweepInterval    = 30 * time.Second
)

// Config tunes one Master instance (SPEC_FULL §4.1).
type Config struct {
	BindAddr         string
	HeartbeatTimeout time.Duration
	SweepInterval    time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaultSweepInterval
	}
	return c
}

// Master owns the Coordination Store and Entry Store and exposes the
// worker-facing HTTP API plus a liveness sweep loop.
type Master struct {
	cfg     Config
	coord   store.CoordinationStore
	entries store.EntryStore
	log     zerolog.Logger

	softErrors uint64
	hardErrors uint64

	stopCh chan struct{}
}

// New builds a Master over the given stores.
func New(cfg Config, coord store.CoordinationStore, entries store.EntryStore) *Master {
	return &Master{
		cfg:     cfg.withDefaults(),
		coord:   coord,
		entries: entries,
		log:     log.WithComponent("master"),
		stopCh:  make(chan struct{}),
	}
}

// GeneratePlan partitions a LanguagePlan's alphabet ranges into work units
// (SPEC_FULL §3): work_id = "{source}_{lang}_{idx:02d}", estimated_entries
// rounded from plan.EstimatedEntries * range.Weight. The units are created in
// the Coordination Store and also returned for logging/inspection.
func (m *Master) GeneratePlan(plan aqea.LanguagePlan) ([]aqea.WorkUnit, error) {
	if len(plan.AlphabetRanges) == 0 {
		return nil, errs.New(errs.KindConfig, "language plan has no alphabet ranges")
	}

	units := make([]aqea.WorkUnit, 0, len(plan.AlphabetRanges))
	for idx, r := range plan.AlphabetRanges {
		units = append(units, aqea.WorkUnit{
			WorkID:           workID(plan.Source, plan.LanguageCode, idx),
			LanguageCode:     plan.LanguageCode,
			SourceName:       plan.Source,
			RangeStart:       r.StartPrefix,
			RangeEnd:         r.EndPrefix,
			EstimatedEntries: int(math.Round(float64(plan.EstimatedEntries) * r.Weight)),
			Status:           aqea.WorkUnitPending,
			MaxRetries:       aqea.DefaultMaxRetries,
		})
	}

	if err := m.coord.CreateWorkUnits(units); err != nil {
		return nil, errs.Wrap(errs.KindStoreTransient, "create work units", err)
	}
	m.log.Info().Str("language", plan.LanguageCode).Str("source", plan.Source).Int("units", len(units)).Msg("generated work plan")
	return units, nil
}

func workID(source, lang string, idx int) string {
	return fmt.Sprintf("%s_%s_%02d", source, lang, idx)
}

// StartSweepLoop runs the liveness sweep on a ticker until Stop is called
// (SPEC_FULL §4.1: "A background sweep every 30 s").
func (m *Master) StartSweepLoop() {
	go m.sweepLoop()
}

func (m *Master) sweepLoop() {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Master) sweep() {
	reassigned, err := m.coord.SweepStaleWorkers(time.Now(), m.cfg.HeartbeatTimeout)
	if err != nil {
		m.log.Error().Err(err).Msg("liveness sweep failed")
		atomic.AddUint64(&m.hardErrors, 1)
		return
	}
	if len(reassigned) > 0 {
		m.log.Warn().Strs("work_ids", reassigned).Msg("reassigned work units from stale workers")
		metrics.SoftErrorsTotal.WithLabelValues(string(errs.KindWorkerTimeout)).Add(float64(len(reassigned)))
	}
}

// Stop ends the sweep loop. It does not close the underlying stores.
func (m *Master) Stop() {
	close(m.stopCh)
}
