/*
Package log provides structured logging for the AQEA extractor using zerolog.

The package wraps zerolog to give JSON-structured logging with component- and
entity-specific child loggers, a configurable level, and a small set of
package-level helpers for ad-hoc messages. All logs include a timestamp and
support filtering by severity.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - zerolog.Logger instance                  │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout or custom writer          │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Child Loggers                       │          │
	│  │  - WithComponent("master")                  │          │
	│  │  - WithWorkerID("worker-abc123")             │          │
	│  │  - WithWorkUnitID("wiktionary_deu_00")       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │  {"level":"info","worker_id":"worker-abc",  │          │
	│  │   "time":"2026-07-31T10:30:00Z",            │          │
	│  │   "message":"claimed work unit"}            │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger: a package-level zerolog.Logger, initialized once via
log.Init() and read by every other package in this module.

Context Loggers: WithComponent, WithWorkerID, and WithWorkUnitID each return
a child logger with one extra field baked in, instead of repeating
.Str("worker_id", id) at every call site.

# Usage

Initializing the logger:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("master starting")
	log.Warn("heartbeat timeout approaching")
	log.Error("failed to open entry store")

Structured logging:

	log.Logger.Info().
		Str("work_id", "wiktionary_deu_00").
		Int("entries_processed", 120).
		Msg("progress reported")

Component and entity loggers:

	masterLog := log.WithComponent("master")
	masterLog.Info().Msg("sweep loop starting")

	workerLog := log.WithWorkerID(cfg.WorkerID)
	workerLog.Info().Str("master", cfg.MasterURL).Msg("worker starting")

	unitLog := log.WithWorkUnitID(unit.WorkID)
	unitLog.Debug().Msg("claimed work unit")

# Design Notes

A single package-level Logger is used rather than dependency-injecting a
logger through every constructor — every component in this module reaches
for log.WithComponent/WithWorkerID/WithWorkUnitID rather than threading a
*zerolog.Logger through call signatures that don't otherwise need one.

Fatal is reserved for startup failures before any goroutines are running
(e.g. an unreadable config file); once the master or worker's background
loops have started, failures are logged at Error and handled by the
caller — os.Exit() from deep inside a running process would skip deferred
store closes.
*/
package log
