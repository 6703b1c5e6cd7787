// Package snapshot holds the latest successfully fetched value of each
// readable engine resource.
//
// Slices are independent: a failed fetch of one resource never touches the
// others, and a successful fetch replaces its slice wholesale. Each fetch is
// stamped with an issue sequence number from Begin; a response whose sequence
// is not newer than the committed one is discarded, so a slow request can
// never overwrite data from a request issued after it.
package snapshot

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/livinlefevreloca/queuedash/internal/queueclient"
)

// ErrStale is returned when a response was issued before the committed one.
var ErrStale = errors.New("snapshot: stale response discarded")

// Resource identifies one independently refreshed slice of the store.
type Resource int

const (
	ResourceStatus Resource = iota
	ResourceJobs
	ResourceDLQ

	resourceCount
)

// Resources lists every resource in poll order.
var Resources = []Resource{ResourceStatus, ResourceJobs, ResourceDLQ}

// String returns a human-readable representation of the resource
func (r Resource) String() string {
	switch r {
	case ResourceStatus:
		return "status"
	case ResourceJobs:
		return "jobs"
	case ResourceDLQ:
		return "dlq"
	default:
		return "unknown"
	}
}

// Meta describes the freshness of one slice.
type Meta struct {
	// Version counts successful commits; 0 means never fetched.
	Version   uint64
	Seq       uint64
	FetchedAt time.Time

	// Failure bookkeeping; the slice data itself is left untouched on failure.
	LastError           string
	LastErrorAt         time.Time
	ConsecutiveFailures int
}

// Fetched reports whether the slice has ever been populated
func (m Meta) Fetched() bool {
	return m.Version > 0
}

// Store is the single shared mutable view of engine state.
type Store struct {
	mu    sync.RWMutex
	now   func() time.Time
	guard bool

	status queueclient.SystemStatus
	jobs   []queueclient.Job
	dlq    []queueclient.DlqEntry

	issued [resourceCount]uint64
	meta   [resourceCount]Meta
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for FetchedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithStaleGuard toggles discarding out-of-order responses. When disabled the
// last response to land wins regardless of when it was issued.
func WithStaleGuard(enabled bool) Option {
	return func(s *Store) { s.guard = enabled }
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		guard: true,
		jobs:  []queueclient.Job{},
		dlq:   []queueclient.DlqEntry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin reserves the next issue sequence number for a fetch of r.
// Call it before dispatching the request.
func (s *Store) Begin(r Resource) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[r]++
	return s.issued[r]
}

// SetStatus replaces the status slice with the result of fetch seq.
func (s *Store) SetStatus(seq uint64, status queueclient.SystemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.admit(ResourceStatus, seq); err != nil {
		return err
	}
	s.status = cloneStatus(status)
	s.commit(ResourceStatus, seq)
	return nil
}

// SetJobs replaces the job list with the result of fetch seq.
func (s *Store) SetJobs(seq uint64, jobs []queueclient.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.admit(ResourceJobs, seq); err != nil {
		return err
	}
	s.jobs = cloneJobs(jobs)
	s.commit(ResourceJobs, seq)
	return nil
}

// SetDlq replaces the dead-letter list with the result of fetch seq.
func (s *Store) SetDlq(seq uint64, entries []queueclient.DlqEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.admit(ResourceDLQ, seq); err != nil {
		return err
	}
	s.dlq = cloneJobs(entries)
	s.commit(ResourceDLQ, seq)
	return nil
}

// RecordFailure notes a failed fetch of r. The slice keeps its previous data.
func (s *Store) RecordFailure(r Resource, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &s.meta[r]
	m.LastError = err.Error()
	m.LastErrorAt = s.now()
	m.ConsecutiveFailures++
}

// Status returns the latest status and its freshness.
func (s *Store) Status() (queueclient.SystemStatus, Meta) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneStatus(s.status), s.meta[ResourceStatus]
}

// Jobs returns a copy of the latest job list and its freshness.
func (s *Store) Jobs() ([]queueclient.Job, Meta) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneJobs(s.jobs), s.meta[ResourceJobs]
}

// Dlq returns a copy of the latest dead-letter list and its freshness.
func (s *Store) Dlq() ([]queueclient.DlqEntry, Meta) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneJobs(s.dlq), s.meta[ResourceDLQ]
}

// Meta returns the freshness of r.
func (s *Store) Meta(r Resource) Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta[r]
}

// admit must be called with mu held.
func (s *Store) admit(r Resource, seq uint64) error {
	if s.guard && seq <= s.meta[r].Seq {
		return ErrStale
	}
	return nil
}

// commit must be called with mu held.
func (s *Store) commit(r Resource, seq uint64) {
	m := &s.meta[r]
	m.Version++
	if seq > m.Seq {
		m.Seq = seq
	}
	m.FetchedAt = s.now()
	m.ConsecutiveFailures = 0
	m.LastError = ""
	m.LastErrorAt = time.Time{}
}

func cloneStatus(in queueclient.SystemStatus) queueclient.SystemStatus {
	if in.Jobs != nil {
		in.Jobs = append(json.RawMessage(nil), in.Jobs...)
	}
	return in
}

func cloneJobs(in []queueclient.Job) []queueclient.Job {
	out := make([]queueclient.Job, len(in))
	copy(out, in)
	return out
}
