package extractor

import (
	"context"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
)

// PanlexExtractor is a second SourceExtractor implementation demonstrating
// the plugin boundary named in SPEC_FULL §9: any upstream reachable over
// HTTP plugs in here without touching the converter, allocator, or worker.
// It shares WiktionaryExtractor's transport plumbing since Panlex's
// translation-pair API is fetched the same way; only the response shape and
// the language tagging differ in a full implementation. Pending that upstream
// integration, ExtractRange returns immediately with no records.
type PanlexExtractor struct {
	cfg Config
}

func NewPanlexExtractor(cfg Config) *PanlexExtractor {
	return &PanlexExtractor{cfg: cfg}
}

func (p *PanlexExtractor) Close() error { return nil }

func (p *PanlexExtractor) ExtractRange(ctx context.Context, rangeStart, rangeEnd string, out chan<- aqea.RawRecord, softErrs chan<- aqea.WorkUnitError) error {
	return nil
}
