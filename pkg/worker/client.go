// Package worker implements the Worker (C6): a stateless fetch/convert/flush
// pipeline loop plus an independent heartbeat loop, grounded on the teacher's
// pkg/worker/worker.go dual-loop (heartbeatLoop/containerExecutorLoop, both
// ticker+select+stopCh) and its HTTP client shape borrowed from
// transcode-worker/internal/client/client.go (doRequest wraps retryablehttp).
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
)

// MasterClient is the worker's HTTP connection to the Master Coordinator's
// API (SPEC_FULL §6.1).
type MasterClient struct {
	baseURL    string
	workerID   string
	httpClient *http.Client
}

// NewMasterClient builds a MasterClient with the retry/backoff policy named
// in SPEC_FULL §5 (per-request timeout 10s, go-retryablehttp backoff).
func NewMasterClient(baseURL, workerID string) *MasterClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 5
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = 10 * time.Second

	return &MasterClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		workerID:   workerID,
		httpClient: retryClient.StandardClient(),
	}
}

// StatusError carries a master HTTP response status that is not itself a
// transport failure (409 ownership conflict, 503 store unavailable, ...).
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("worker: master returned %d: %s", e.StatusCode, e.Body)
}

func (c *MasterClient) do(ctx context.Context, method, path string, payload, response interface{}) error {
	url := c.baseURL + path

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("worker: marshal request to %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("worker: build request to %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Worker-ID", c.workerID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("worker: request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}
	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("worker: decode response from %s: %w", path, err)
		}
	}
	return nil
}

type registerResponse struct {
	WorkerID   string    `json:"worker_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Register declares the worker to the master, adopting whatever worker_id
// the master assigns (SPEC_FULL §6.1 POST /api/register).
func (c *MasterClient) Register(ctx context.Context) (string, error) {
	var resp registerResponse
	if err := c.do(ctx, http.MethodPost, "/api/register", map[string]string{"worker_id": c.workerID}, &resp); err != nil {
		return "", err
	}
	if resp.WorkerID != "" {
		c.workerID = resp.WorkerID
	}
	return c.workerID, nil
}

// workUnitResponse is the wire shape of GET /api/work's 200 body.
type workUnitResponse struct {
	WorkID           string `json:"work_id"`
	Language         string `json:"language"`
	Source           string `json:"source"`
	RangeStart       string `json:"range_start"`
	RangeEnd         string `json:"range_end"`
	EstimatedEntries int    `json:"estimated_entries"`
}

// RequestWork claims the next pending unit. A nil, nil return means no work
// is currently available (HTTP 204).
func (c *MasterClient) RequestWork(ctx context.Context) (*aqea.WorkUnit, error) {
	var resp workUnitResponse
	err := c.do(ctx, http.MethodGet, "/api/work?worker_id="+c.workerID, nil, &resp)
	if err != nil {
		return nil, err
	}
	if resp.WorkID == "" {
		return nil, nil
	}
	return &aqea.WorkUnit{
		WorkID:           resp.WorkID,
		LanguageCode:     resp.Language,
		SourceName:       resp.Source,
		RangeStart:       resp.RangeStart,
		RangeEnd:         resp.RangeEnd,
		EstimatedEntries: resp.EstimatedEntries,
	}, nil
}

type progressRequest struct {
	WorkerID         string                `json:"worker_id"`
	EntriesProcessed int                   `json:"entries_processed"`
	CurrentRate      float64               `json:"current_rate"`
	Errors           []aqea.WorkUnitError `json:"errors,omitempty"`
	Aborting         bool                  `json:"aborting,omitempty"`
}

// ReportProgress posts a /progress update (SPEC_FULL §6.1). Set aborting to
// true for the final update sent during a SIGTERM/SIGINT shutdown.
func (c *MasterClient) ReportProgress(ctx context.Context, workID string, entriesProcessed int, rate float64, errs []aqea.WorkUnitError, aborting bool) error {
	path := fmt.Sprintf("/api/work/%s/progress", workID)
	return c.do(ctx, http.MethodPost, path, progressRequest{
		WorkerID:         c.workerID,
		EntriesProcessed: entriesProcessed,
		CurrentRate:      rate,
		Errors:           errs,
		Aborting:         aborting,
	}, nil)
}

type completeRequest struct {
	WorkerID         string `json:"worker_id"`
	EntriesProcessed int    `json:"entries_processed"`
	Success          bool   `json:"success"`
}

// ReportComplete marks a unit done (SPEC_FULL §6.1 POST /complete).
func (c *MasterClient) ReportComplete(ctx context.Context, workID string, entriesProcessed int, success bool) error {
	path := fmt.Sprintf("/api/work/%s/complete", workID)
	return c.do(ctx, http.MethodPost, path, completeRequest{
		WorkerID:         c.workerID,
		EntriesProcessed: entriesProcessed,
		Success:          success,
	}, nil)
}

type heartbeatRequest struct {
	WorkerID      string `json:"worker_id"`
	Status        string `json:"status"`
	CurrentWorkID string `json:"current_work_id,omitempty"`
}

// Heartbeat posts the liveness ping (SPEC_FULL §4.2, every 30s).
func (c *MasterClient) Heartbeat(ctx context.Context, status aqea.WorkerStatus, currentWorkID string) error {
	return c.do(ctx, http.MethodPost, "/api/heartbeat", heartbeatRequest{
		WorkerID:      c.workerID,
		Status:        string(status),
		CurrentWorkID: currentWorkID,
	}, nil)
}
