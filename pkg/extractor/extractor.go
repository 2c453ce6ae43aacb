// Package extractor implements the Source Extractor (SPEC_FULL §4.2, §9):
// the duck-typed plugin concept from the original system collapses here into
// one Go interface plus a small factory keyed on a source_name tag, grounded
// on transcode-worker/internal/client/client.go's HTTP client construction.
package extractor

import (
	"context"
	"time"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
)

// SourceExtractor produces a lazy sequence of raw lexical records for a
// lemma range from one upstream source.
type SourceExtractor interface {
	// ExtractRange streams records whose normalized lemma falls between
	// rangeStart and the rangeEnd prefix, both inclusive (rangeStart <= lemma
	// < successor of rangeEnd), into out, returning when the range is exhausted,
	// ctx is cancelled, or a hard error occurs. Soft per-page/per-record
	// failures (a page fetch that exhausts its retry budget, a malformed
	// lemma) are reported on softErrs and never reach the caller as a
	// returned error; the caller must keep draining softErrs concurrently
	// with out to avoid stalling the extractor.
	ExtractRange(ctx context.Context, rangeStart, rangeEnd string, out chan<- aqea.RawRecord, softErrs chan<- aqea.WorkUnitError) error
	Close() error
}

// Config is the shared dial of extractor tuning knobs (SPEC_FULL §4.2, §5).
type Config struct {
	BaseURL                 string
	Language                string
	RequestDelay            time.Duration
	MaxConcurrentRequests   int64
	RequestTimeout          time.Duration
}

func (c Config) withDefaults() Config {
	if c.RequestDelay <= 0 {
		c.RequestDelay = 200 * time.Millisecond
	}
	if c.MaxConcurrentRequests <= 0 {
		c.MaxConcurrentRequests = 5
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return c
}
