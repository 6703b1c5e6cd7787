package queueclient

import (
	"encoding/json"
	"time"
)

// State is the engine-reported lifecycle state of a job.
// The set is open: the engine may report states not listed here.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateRunning    State = "running"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateDead       State = "dead"
)

// Job is one row of the engine's job table as returned by GET /jobs.
// Timestamps are kept verbatim; an empty string means the field was absent.
type Job struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	State      State  `json:"state,omitempty"`
	Attempts   int    `json:"attempts"`
	MaxRetries int    `json:"max_retries,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
	FailedAt   string `json:"failed_at,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

// DlqEntry is a dead-lettered job as returned by GET /dlq.
// The engine omits State for these rows.
type DlqEntry = Job

// HasState reports whether the engine sent a state for this row.
func (j Job) HasState() bool {
	return j.State != ""
}

// SystemStatus is the payload of GET /status.
type SystemStatus struct {
	Workers int `json:"workers"`

	// Jobs is the engine's per-state summary. It is kept opaque and only
	// interpreted on a best-effort basis by Counts.
	Jobs json.RawMessage `json:"jobs,omitempty"`
}

// Counts decodes the jobs summary as a state→count map.
// It returns nil when the summary has a different shape.
func (s SystemStatus) Counts() map[string]int {
	if len(s.Jobs) == 0 {
		return nil
	}
	var counts map[string]int
	if err := json.Unmarshal(s.Jobs, &counts); err != nil {
		return nil
	}
	return counts
}

// timestampLayouts are the formats the engine is known to emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an engine timestamp. ok is false for absent or
// unrecognised values.
func ParseTimestamp(raw string) (t time.Time, ok bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
