package worker

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/rs/zerolog"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/converter"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/errs"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/extractor"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/metrics"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/store"
)

const (
	defaultBatchSize          = 100
	minBatchSize              = 10
	defaultFlushInterval      = 5 * time.Second
	defaultHeartbeatInterval  = 30 * time.Second
	maxInterBatchDelay        = 10 * time.Second
)

// Config tunes one Worker instance (SPEC_FULL §4.2, §5).
type Config struct {
	WorkerID         string
	MasterURL        string
	BatchSize        int
	FlushInterval    time.Duration
	HeartbeatInterval time.Duration
	FallbackDir      string
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = defaultFlushInterval
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.FallbackDir == "" {
		c.FallbackDir = "extracted_data"
	}
	return c
}

// Worker drives the fetch/convert/flush pipeline against one Source
// Extractor and reports progress/heartbeats to the master, grounded on the
// teacher's pkg/worker/worker.go dual ticker+select+stopCh loop structure
// (there: heartbeatLoop + containerExecutorLoop; here: heartbeatLoop +
// the main work loop run from Run).
type Worker struct {
	cfg       Config
	client    *MasterClient
	extractor extractor.SourceExtractor
	converter *converter.Converter
	entries   store.EntryStore
	fallback  *store.FallbackWriter
	log       zerolog.Logger

	batchSize    int
	interBatch   time.Duration
	rate         ewma.MovingAverage
	stopCh       chan struct{}

	workMu     sync.Mutex
	workID     string
}

// setCurrentWorkID records the unit the worker is processing (or clears it,
// passed ""), so heartbeatLoop can report it without racing processUnit.
func (w *Worker) setCurrentWorkID(id string) {
	w.workMu.Lock()
	w.workID = id
	w.workMu.Unlock()
}

func (w *Worker) currentWorkID() string {
	w.workMu.Lock()
	defer w.workMu.Unlock()
	return w.workID
}

// New builds a Worker. fallback may be nil only in tests that never trigger
// the StorePersistentError path.
func New(cfg Config, client *MasterClient, extr extractor.SourceExtractor, conv *converter.Converter, entries store.EntryStore, fallback *store.FallbackWriter, log zerolog.Logger) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		cfg:        cfg,
		client:     client,
		extractor:  extr,
		converter:  conv,
		entries:    entries,
		fallback:   fallback,
		log:        log,
		batchSize:  cfg.BatchSize,
		interBatch: 0,
		rate:       ewma.NewMovingAverage(0.3),
		stopCh:     make(chan struct{}),
	}
}

// Run drives the worker until ctx is cancelled. It registers once, then
// alternates claiming work units and processing them, with an independent
// heartbeat goroutine running throughout (SPEC_FULL §4.2).
func (w *Worker) Run(ctx context.Context) error {
	if _, err := w.client.Register(ctx); err != nil {
		return errs.Wrap(errs.KindConfig, "register with master", err)
	}

	go w.heartbeatLoop(ctx)

	backoff := 2 * time.Second
	for {
		select {
		case <-ctx.Done():
			close(w.stopCh)
			return nil
		default:
		}

		unit, err := w.client.RequestWork(ctx)
		if err != nil {
			w.log.Warn().Err(err).Msg("request work failed")
			if !sleep(ctx, backoff) {
				close(w.stopCh)
				return nil
			}
			continue
		}
		if unit == nil {
			if !sleep(ctx, jitter(backoff)) {
				close(w.stopCh)
				return nil
			}
			continue
		}
		backoff = 2 * time.Second

		if err := w.processUnit(ctx, unit); err != nil {
			w.log.Error().Err(err).Str("work_id", unit.WorkID).Msg("unit processing failed")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func jitter(base time.Duration) time.Duration {
	if base < 2*time.Second {
		base = 2 * time.Second
	}
	if base > 10*time.Second {
		base = 10 * time.Second
	}
	return base
}

// heartbeatLoop runs independently of pipeline state so a slow conversion or
// store flush never starves liveness reporting (SPEC_FULL §5).
func (w *Worker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.client.Heartbeat(ctx, aqea.WorkerWorking, w.currentWorkID()); err != nil {
				w.log.Warn().Err(err).Msg("heartbeat failed")
			}
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// processUnit runs the extractor→converter→store pipeline for a single work
// unit to completion or cancellation (SPEC_FULL §4.2 cycle steps 2-6).
func (w *Worker) processUnit(ctx context.Context, unit *aqea.WorkUnit) error {
	w.setCurrentWorkID(unit.WorkID)
	defer w.setCurrentWorkID("")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := w.log.With().Str("work_id", unit.WorkID).Logger()
	records := make(chan aqea.RawRecord, w.batchSize)
	extractSoftErrs := make(chan aqea.WorkUnitError, w.batchSize)
	extractErrCh := make(chan error, 1)

	go func() {
		defer close(extractSoftErrs)
		defer close(records)
		extractErrCh <- w.extractor.ExtractRange(ctx, unit.RangeStart, unit.RangeEnd, records, extractSoftErrs)
	}()

	var batch []aqea.Entry
	var softErrors []aqea.WorkUnitError
	processed := 0
	flushTicker := time.NewTicker(w.cfg.FlushInterval)
	defer flushTicker.Stop()

	var conflictErr error
	flush := func() {
		if len(batch) == 0 && len(softErrors) == 0 {
			return
		}
		if len(batch) > 0 {
			if err := w.flushBatch(w.cfg.WorkerID, batch); err != nil {
				log.Warn().Err(err).Msg("flush failed, wrote to fallback")
				softErrors = append(softErrors, aqea.WorkUnitError{Kind: string(errs.KindStorePersistent), Detail: err.Error()})
			}
			processed += len(batch)
			w.rate.Add(float64(len(batch)))
			batch = batch[:0]
			if w.interBatch > 0 {
				sleep(ctx, w.interBatch)
			}
		}
		if err := w.client.ReportProgress(ctx, unit.WorkID, processed, w.rate.Value()*60, drain(&softErrors), false); err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.StatusCode == http.StatusConflict {
				conflictErr = err
			}
			log.Warn().Err(err).Msg("progress report failed")
		}
	}

loop:
	for {
		if conflictErr != nil {
			return errs.Wrap(errs.KindCoordinationConflict, "master rejected progress report, abandoning unit", conflictErr)
		}
		select {
		case rec, ok := <-records:
			if !ok {
				break loop
			}
			entry, err := w.converter.Convert(rec, w.cfg.WorkerID)
			if err != nil {
				kind, detail := errs.AsWorkUnitError(err)
				softErrors = append(softErrors, aqea.WorkUnitError{Kind: kind, Detail: detail})
				metrics.SoftErrorsTotal.WithLabelValues(kind).Inc()
				if errs.IsHard(err) {
					return err
				}
				continue
			}
			batch = append(batch, entry)
			if len(batch) >= w.batchSize {
				flush()
			}
		case werr, ok := <-extractSoftErrs:
			if !ok {
				continue
			}
			softErrors = append(softErrors, werr)
			metrics.SoftErrorsTotal.WithLabelValues(werr.Kind).Inc()
		case <-flushTicker.C:
			flush()
		case <-ctx.Done():
			flush()
			_ = w.client.ReportProgress(context.Background(), unit.WorkID, processed, w.rate.Value()*60, drain(&softErrors), true)
			return ctx.Err()
		}
	}

	// ExtractRange has already returned by the time records closes (the
	// goroutine above writes extractErrCh before closing either channel), so
	// any soft errors it reported are already buffered here; drain them
	// without blocking before reporting completion.
drainSoftErrs:
	for {
		select {
		case werr, ok := <-extractSoftErrs:
			if !ok {
				break drainSoftErrs
			}
			softErrors = append(softErrors, werr)
			metrics.SoftErrorsTotal.WithLabelValues(werr.Kind).Inc()
		default:
			break drainSoftErrs
		}
	}

	flush()
	if err := <-extractErrCh; err != nil {
		return errs.Wrap(errs.KindUpstreamFetch, "extractor ended with error", err)
	}
	return w.client.ReportComplete(ctx, unit.WorkID, processed, true)
}

func drain(errsSlice *[]aqea.WorkUnitError) []aqea.WorkUnitError {
	out := *errsSlice
	*errsSlice = nil
	return out
}

// flushBatch persists a batch, falling back to the NDJSON writer on any
// store error (a failed upsert is not retried) and growing/shrinking batch
// size per the backpressure policy in SPEC_FULL §5.
func (w *Worker) flushBatch(workerID string, batch []aqea.Entry) error {
	timer := metrics.NewTimer()
	_, _, err := w.entries.UpsertBatch(batch)
	timer.ObserveDuration(metrics.StoreUpsertDuration)
	if err != nil {
		w.shrinkBatch()
		if w.fallback != nil {
			if _, ferr := w.fallback.WriteBatch(workerID, batch, time.Now()); ferr != nil {
				return ferr
			}
		}
		return err
	}
	metrics.EntriesProcessedTotal.Add(float64(len(batch)))
	w.growBatch()
	return nil
}

func (w *Worker) shrinkBatch() {
	w.batchSize /= 2
	if w.batchSize < minBatchSize {
		w.batchSize = minBatchSize
	}
	w.interBatch += time.Second
	if w.interBatch > maxInterBatchDelay {
		w.interBatch = maxInterBatchDelay
	}
}

func (w *Worker) growBatch() {
	if w.batchSize < w.cfg.BatchSize {
		w.batchSize++
	}
	if w.interBatch > 0 {
		w.interBatch -= 200 * time.Millisecond
		if w.interBatch < 0 {
			w.interBatch = 0
		}
	}
}
