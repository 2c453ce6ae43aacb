package metrics

import (
	"time"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
)

// CoordinationSource is the read-only slice of store.CoordinationStore the
// Collector needs; kept narrow so metrics never depends on pkg/store
// directly (avoids an import cycle with store's own instrumentation).
type CoordinationSource interface {
	ListWorkUnits() ([]aqea.WorkUnit, error)
	ListWorkers() ([]aqea.WorkerInfo, error)
}

// Collector periodically samples the Coordination Store and republishes its
// state as gauges, grounded on the teacher's ticker-driven Collector
// (originally sampling Raft/node/service state every 15s).
type Collector struct {
	source CoordinationSource
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector over source.
func NewCollector(source CoordinationSource) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15s ticker.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectWorkUnitMetrics()
	c.collectWorkerMetrics()
}

func (c *Collector) collectWorkUnitMetrics() {
	units, err := c.source.ListWorkUnits()
	if err != nil {
		return
	}

	counts := make(map[aqea.WorkUnitStatus]int)
	for _, u := range units {
		counts[u.Status]++
	}
	for _, status := range []aqea.WorkUnitStatus{
		aqea.WorkUnitPending, aqea.WorkUnitAssigned, aqea.WorkUnitProcessing,
		aqea.WorkUnitCompleted, aqea.WorkUnitFailed,
	} {
		WorkUnitsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

func (c *Collector) collectWorkerMetrics() {
	workers, err := c.source.ListWorkers()
	if err != nil {
		return
	}

	counts := make(map[aqea.WorkerStatus]int)
	for _, w := range workers {
		counts[w.Status]++
	}
	for _, status := range []aqea.WorkerStatus{
		aqea.WorkerIdle, aqea.WorkerWorking, aqea.WorkerError, aqea.WorkerOffline,
	} {
		WorkersTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
