package extractor

import "fmt"

// New dispatches on sourceName (SPEC_FULL §9's "small factory" re-
// architecture note) to build the matching SourceExtractor.
func New(sourceName string, cfg Config) (SourceExtractor, error) {
	cfg = cfg.withDefaults()
	switch sourceName {
	case "wiktionary":
		return NewWiktionaryExtractor(cfg), nil
	case "panlex":
		return NewPanlexExtractor(cfg), nil
	default:
		return nil, fmt.Errorf("extractor: unknown source %q", sourceName)
	}
}
