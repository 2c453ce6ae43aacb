package aqea

import "time"

// WorkUnitStatus is the work unit state machine (SPEC_FULL §4.1).
type WorkUnitStatus string

const (
	WorkUnitPending    WorkUnitStatus = "pending"
	WorkUnitAssigned   WorkUnitStatus = "assigned"
	WorkUnitProcessing WorkUnitStatus = "processing"
	WorkUnitCompleted  WorkUnitStatus = "completed"
	WorkUnitFailed     WorkUnitStatus = "failed"
)

// WorkerStatus is the worker liveness state (SPEC_FULL §3).
type WorkerStatus string

const (
	WorkerIdle    WorkerStatus = "idle"
	WorkerWorking WorkerStatus = "working"
	WorkerError   WorkerStatus = "error"
	WorkerOffline WorkerStatus = "offline"
)

// DefaultMaxRetries is the default retry budget for a work unit before it is
// permanently marked failed (SPEC_FULL §3).
const DefaultMaxRetries = 3

// AlphabetRange is one weighted lemma-prefix slice of a language plan.
type AlphabetRange struct {
	StartPrefix string  `json:"start_prefix" yaml:"start_prefix"`
	EndPrefix   string  `json:"end_prefix" yaml:"end_prefix"`
	Weight      float64 `json:"weight" yaml:"weight"`
}

// LanguagePlan is the config input the master partitions into work units
// (SPEC_FULL §3).
type LanguagePlan struct {
	LanguageCode     string          `json:"language_code" yaml:"language_code"`
	Source           string          `json:"source" yaml:"source"`
	EstimatedEntries int             `json:"estimated_entries" yaml:"estimated_entries"`
	AlphabetRanges   []AlphabetRange `json:"alphabet_ranges" yaml:"alphabet_ranges"`
}

// WorkUnit is the atomic unit of assignment owned by the Coordination Store
// (SPEC_FULL §3, §4.1).
type WorkUnit struct {
	WorkID           string         `json:"work_id"`
	LanguageCode     string         `json:"language_code"`
	SourceName       string         `json:"source_name"`
	RangeStart       string         `json:"range_start"`
	RangeEnd         string         `json:"range_end"`
	EstimatedEntries int            `json:"estimated_entries"`
	Status           WorkUnitStatus `json:"status"`
	AssignedWorker   string         `json:"assigned_worker,omitempty"`
	AssignedAt       *time.Time     `json:"assigned_at,omitempty"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	EntriesProcessed int            `json:"entries_processed"`
	RetryCount       int            `json:"retry_count"`
	MaxRetries       int            `json:"max_retries"`
	LastError        string         `json:"last_error,omitempty"`
	Errors           []WorkUnitError `json:"errors,omitempty"`
}

// WorkUnitError is one entry in a work unit's soft-error log, reported via
// /api/work/{id}/progress (SPEC_FULL §6.1).
type WorkUnitError struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// WorkerInfo is the worker liveness record owned by the Coordination Store
// (SPEC_FULL §3).
type WorkerInfo struct {
	WorkerID              string       `json:"worker_id"`
	Status                WorkerStatus `json:"status"`
	CurrentWorkID         string       `json:"current_work_id,omitempty"`
	LastHeartbeat         time.Time    `json:"last_heartbeat"`
	RegisteredAt          time.Time    `json:"registered_at"`
	TotalProcessed        int          `json:"total_processed"`
	AverageRatePerMinute  float64      `json:"average_rate_per_minute"`
}

// Relation is one outbound edge from an AQEA entry to another address.
type Relation struct {
	Kind          string `json:"relation_kind"`
	TargetAddress string `json:"target_address"`
}

// EntryMeta is the recognized metadata shape for an AQEA entry (SPEC_FULL §3).
// Fields beyond the pinned keys are intentionally not supported — unknown-
// typed values must be rejected on write per §9's re-architecture note.
type EntryMeta struct {
	Lemma         string   `json:"lemma"`
	POS           string   `json:"pos"`
	IPA           string   `json:"ipa,omitempty"`
	Definitions   []string `json:"definitions"`
	Examples      []string `json:"examples,omitempty"`
	Synonyms      []string `json:"synonyms,omitempty"`
	Antonyms      []string `json:"antonyms,omitempty"`
	Translations  []string `json:"translations,omitempty"`
	Audio         []string `json:"audio,omitempty"`
	FrequencyRank int      `json:"frequency_rank,omitempty"`
	Source        string   `json:"source"`
	WorkerID      string   `json:"worker_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Entry is one AQEA lexical entry (SPEC_FULL §3).
type Entry struct {
	Address     Address    `json:"-"`
	AddressStr  string     `json:"address"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Domain      string     `json:"domain"`
	Meta        EntryMeta  `json:"meta"`
	Relations   []Relation `json:"relations,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RawRecord is the normalized input a Source Extractor yields and the
// Converter consumes (SPEC_FULL §4.3).
type RawRecord struct {
	Word          string
	Language      string
	POS           string
	Definitions   []string
	Examples      []string
	Synonyms      []string
	Antonyms      []string
	Translations  []string
	Audio         []string
	IPA           string
	FrequencyRank int
	Source        string
}
