package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/errs"
)

// WiktionaryExtractor pulls lexical entries from a Wiktionary-shaped REST
// endpoint, one lemma prefix page at a time. Rate limiting and the
// concurrency cap follow SPEC_FULL §5: REQUEST_DELAY via x/time/rate,
// MAX_CONCURRENT_REQUESTS via x/sync/semaphore, retry/backoff via
// go-retryablehttp (grounded on transcode-worker's client construction).
type WiktionaryExtractor struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	sem        *semaphore.Weighted
}

// NewWiktionaryExtractor builds an extractor against cfg.BaseURL (a
// Wiktionary-API-compatible endpoint listing lemmas by prefix).
func NewWiktionaryExtractor(cfg Config) *WiktionaryExtractor {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 5
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = cfg.RequestTimeout

	return &WiktionaryExtractor{
		cfg:        cfg,
		httpClient: retryClient.StandardClient(),
		limiter:    rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		sem:        semaphore.NewWeighted(cfg.MaxConcurrentRequests),
	}
}

func (w *WiktionaryExtractor) Close() error { return nil }

type wiktionaryPage struct {
	Lemmas []wiktionaryLemma `json:"lemmas"`
	Next   string            `json:"next_prefix,omitempty"`
}

type wiktionaryLemma struct {
	Word          string   `json:"word"`
	POS           string   `json:"pos"`
	Definitions   []string `json:"definitions"`
	Examples      []string `json:"examples"`
	Synonyms      []string `json:"synonyms"`
	Antonyms      []string `json:"antonyms"`
	Translations  []string `json:"translations"`
	Audio         []string `json:"audio"`
	IPA           string   `json:"ipa"`
	FrequencyRank int      `json:"frequency_rank"`
}

// ExtractRange pages from rangeStart up to and including the rangeEnd prefix
// (the walk stops before incrementPrefix(rangeEnd), so every lemma starting
// with rangeEnd is covered) and emits one RawRecord per lemma sense
// encountered. An empty rangeEnd means no upper bound. A page fetch that exhausts go-retryablehttp's
// retry budget is a soft failure (SPEC_FULL §7 UpstreamFetchError policy):
// it is reported on softErrs and the walk resumes from the lexicographic
// successor of the failed prefix, rather than aborting the whole range.
func (w *WiktionaryExtractor) ExtractRange(ctx context.Context, rangeStart, rangeEnd string, out chan<- aqea.RawRecord, softErrs chan<- aqea.WorkUnitError) error {
	prefix := rangeStart
	end := rangeEnd
	if end != "" {
		end = incrementPrefix(rangeEnd)
	}
	for prefix != "" {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if end != "" && prefix >= end {
			return nil
		}
		page, err := w.fetchPage(ctx, prefix)
		if err != nil {
			werr := aqea.WorkUnitError{
				Kind:   string(errs.KindUpstreamFetch),
				Detail: fmt.Sprintf("prefix %q: %v", prefix, err),
			}
			select {
			case softErrs <- werr:
			case <-ctx.Done():
				return ctx.Err()
			}
			prefix = incrementPrefix(prefix)
			continue
		}
		records := make([]aqea.RawRecord, 0, len(page.Lemmas))
		for _, l := range page.Lemmas {
			if end != "" && l.Word >= end {
				continue
			}
			records = append(records, aqea.RawRecord{
				Word:          l.Word,
				Language:      w.cfg.Language,
				POS:           l.POS,
				Definitions:   l.Definitions,
				Examples:      l.Examples,
				Synonyms:      l.Synonyms,
				Antonyms:      l.Antonyms,
				Translations:  l.Translations,
				Audio:         l.Audio,
				IPA:           l.IPA,
				FrequencyRank: l.FrequencyRank,
				Source:        "wiktionary",
			})
		}
		sort.Slice(records, func(i, j int) bool { return records[i].Word < records[j].Word })
		for _, r := range records {
			select {
			case out <- r:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if page.Next == "" || (end != "" && page.Next >= end) {
			return nil
		}
		prefix = page.Next
	}
	return nil
}

// incrementPrefix returns the lexicographic successor of prefix, used to
// step past a page whose fetch permanently failed and so carries no "next"
// cursor of its own. It may skip lemmas the failed page would have covered;
// that loss is the cost of the soft-failure policy and is why the caller
// counts it as a soft error rather than silently continuing.
func incrementPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	b := []byte(prefix)
	b[len(b)-1]++
	return string(b)
}

func (w *WiktionaryExtractor) fetchPage(ctx context.Context, prefix string) (*wiktionaryPage, error) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer w.sem.Release(1)
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/lemmas?prefix=%s&lang=%s", strings.TrimRight(w.cfg.BaseURL, "/"), prefix, w.cfg.Language)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("extractor: build request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extractor: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extractor: upstream %s returned %d: %s", url, resp.StatusCode, string(body))
	}

	var page wiktionaryPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("extractor: decode response from %s: %w", url, err)
	}
	return &page, nil
}
