/*
Package worker implements the AQEA extraction worker: a fetch/convert/flush
pipeline that claims work units from a master, converts raw lexical records
into AQEA entries, and persists them, falling back to local NDJSON files when
the Entry Store cannot keep up.

# Architecture

	┌──────────────────────── WORKER PROCESS ─────────────────────────┐
	│                                                                   │
	│  ┌──────────────────────────────────────────────┐                │
	│  │                   Worker                       │                │
	│  │  - heartbeatLoop (30s, independent of pipeline) │                │
	│  │  - main loop: RequestWork -> processUnit        │                │
	│  └──────┬───────────────────────────┬─────────────┘                │
	│         │                           │                               │
	│  ┌──────▼───────┐           ┌──────▼──────────┐                    │
	│  │ MasterClient │           │ SourceExtractor  │                    │
	│  │ (retryable   │           │ (rate-limited    │                    │
	│  │  HTTP JSON)  │           │  upstream fetch)  │                    │
	│  └──────────────┘           └──────┬───────────┘                    │
	│                                    │                                 │
	│                             ┌──────▼───────────┐                    │
	│                             │    Converter     │                    │
	│                             └──────┬───────────┘                    │
	│                                    │                                 │
	│                     ┌──────────────▼──────────────┐                │
	│                     │  EntryStore.UpsertBatch       │                │
	│                     │  (falls back to NDJSON file    │                │
	│                     │   on any store error)          │                │
	│                     └────────────────────────────────┘                │
	└───────────────────────────────────────────────────────────────────┘

# Core Components

Worker: owns the pipeline loop, batch sizing, and backpressure state.

MasterClient: the worker's half of the register/work/progress/complete/
heartbeat HTTP contract.

# Lifecycle

Registration: the worker registers once at startup, then runs the heartbeat
loop and the work loop concurrently for the rest of the process lifetime.

Per work unit: claim -> stream records from the extractor -> convert each ->
batch -> flush on size threshold or flush interval -> report progress ->
repeat until the extractor's stream ends -> flush remainder -> report
completion.

Backpressure: a flush failure halves the batch size (floor 10) and grows the
inter-batch delay (ceiling 10s); a flush success grows the batch size back by
one and shrinks the delay.

# Failure Scenarios

Master unreachable: each request to the master is retried by the HTTP client
(up to 5 retries, 200ms to 10s backoff). A progress report that still fails
is logged and dropped while processing goes on, and batches keep going to the
Entry Store (the NDJSON fallback is used only when that write fails). A failed
work request is tried again after 2s; a failed completion report ends the unit
with an error.

Ownership conflict (HTTP 409 from the master): the worker treats this as a
directive to abandon the current unit and request a new one.

Cancellation: on context cancellation mid-unit, the worker flushes whatever
batch it holds and sends a final "aborting" progress report before returning.
*/
package worker
