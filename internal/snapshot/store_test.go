package snapshot

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinlefevreloca/queuedash/internal/queueclient"
	"github.com/livinlefevreloca/queuedash/internal/testutil"
)

func TestStore_EmptyBeforeFirstFetch(t *testing.T) {
	s := NewStore()

	_, meta := s.Status()
	assert.False(t, meta.Fetched())

	jobs, meta := s.Jobs()
	assert.Empty(t, jobs)
	assert.False(t, meta.Fetched())
}

func TestStore_SetJobsReplacesWholesale(t *testing.T) {
	clock := testutil.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewStore(WithClock(clock.Now))

	require.NoError(t, s.SetJobs(s.Begin(ResourceJobs), []queueclient.Job{{ID: "1"}, {ID: "2"}}))

	clock.Advance(3 * time.Second)
	require.NoError(t, s.SetJobs(s.Begin(ResourceJobs), []queueclient.Job{{ID: "2"}}))

	jobs, meta := s.Jobs()
	require.Len(t, jobs, 1, "rows omitted by the later snapshot must not linger")
	assert.Equal(t, "2", jobs[0].ID)
	assert.Equal(t, uint64(2), meta.Version)
	assert.Equal(t, clock.Now(), meta.FetchedAt)
}

func TestStore_SlicesAreIndependent(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.SetJobs(s.Begin(ResourceJobs), []queueclient.Job{{ID: "1"}}))
	s.RecordFailure(ResourceStatus, errors.New("boom"))
	require.NoError(t, s.SetDlq(s.Begin(ResourceDLQ), []queueclient.DlqEntry{{ID: "7"}}))

	jobs, jobsMeta := s.Jobs()
	assert.Len(t, jobs, 1)
	assert.Equal(t, uint64(1), jobsMeta.Version)
	assert.Empty(t, jobsMeta.LastError)

	_, statusMeta := s.Status()
	assert.False(t, statusMeta.Fetched())
	assert.Equal(t, "boom", statusMeta.LastError)
	assert.Equal(t, 1, statusMeta.ConsecutiveFailures)
}

func TestStore_FailureKeepsPreviousData(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetStatus(s.Begin(ResourceStatus), queueclient.SystemStatus{Workers: 4}))

	s.RecordFailure(ResourceStatus, errors.New("down"))
	s.RecordFailure(ResourceStatus, errors.New("still down"))

	status, meta := s.Status()
	assert.Equal(t, 4, status.Workers)
	assert.Equal(t, 2, meta.ConsecutiveFailures)
	assert.Equal(t, "still down", meta.LastError)

	require.NoError(t, s.SetStatus(s.Begin(ResourceStatus), queueclient.SystemStatus{Workers: 5}))
	assert.Equal(t, 0, s.Meta(ResourceStatus).ConsecutiveFailures)
}

func TestStore_StaleResponseDiscarded(t *testing.T) {
	s := NewStore()

	older := s.Begin(ResourceJobs)
	newer := s.Begin(ResourceJobs)

	require.NoError(t, s.SetJobs(newer, []queueclient.Job{{ID: "new"}}))
	err := s.SetJobs(older, []queueclient.Job{{ID: "old"}})
	assert.ErrorIs(t, err, ErrStale)

	jobs, meta := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "new", jobs[0].ID)
	assert.Equal(t, newer, meta.Seq)
}

func TestStore_WithoutGuardLastLandedWins(t *testing.T) {
	s := NewStore(WithStaleGuard(false))

	older := s.Begin(ResourceJobs)
	newer := s.Begin(ResourceJobs)

	require.NoError(t, s.SetJobs(newer, []queueclient.Job{{ID: "new"}}))
	require.NoError(t, s.SetJobs(older, []queueclient.Job{{ID: "old"}}))

	jobs, meta := s.Jobs()
	assert.Equal(t, "old", jobs[0].ID)
	assert.Equal(t, newer, meta.Seq)
}

func TestStore_SequencesArePerResource(t *testing.T) {
	s := NewStore()

	assert.Equal(t, uint64(1), s.Begin(ResourceJobs))
	assert.Equal(t, uint64(2), s.Begin(ResourceJobs))
	assert.Equal(t, uint64(1), s.Begin(ResourceDLQ))
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	input := []queueclient.Job{{ID: "1", Command: "a"}}
	require.NoError(t, s.SetJobs(s.Begin(ResourceJobs), input))

	input[0].Command = "mutated"
	jobs, _ := s.Jobs()
	jobs[0].ID = "mutated"

	again, _ := s.Jobs()
	assert.Equal(t, "1", again[0].ID)
	assert.Equal(t, "a", again[0].Command)
}

func TestResource_String(t *testing.T) {
	assert.Equal(t, "status", ResourceStatus.String())
	assert.Equal(t, "jobs", ResourceJobs.String())
	assert.Equal(t, "dlq", ResourceDLQ.String())
	assert.Equal(t, "unknown", Resource(42).String())
}

func TestStore_CommitClearsPreviousFailure(t *testing.T) {
	clock := testutil.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewStore(WithClock(clock.Now))

	s.RecordFailure(ResourceJobs, errors.New("boom"))
	meta := s.Meta(ResourceJobs)
	require.Equal(t, "boom", meta.LastError)
	require.Equal(t, 1, meta.ConsecutiveFailures)

	clock.Advance(time.Second)
	require.NoError(t, s.SetJobs(s.Begin(ResourceJobs), []queueclient.Job{{ID: "1"}}))

	meta = s.Meta(ResourceJobs)
	assert.Empty(t, meta.LastError)
	assert.True(t, meta.LastErrorAt.IsZero())
	assert.Zero(t, meta.ConsecutiveFailures)
}

func TestStore_StatusSummaryIsCopied(t *testing.T) {
	s := NewStore()
	raw := json.RawMessage(`{"pending":1}`)
	require.NoError(t, s.SetStatus(s.Begin(ResourceStatus), queueclient.SystemStatus{Workers: 1, Jobs: raw}))

	raw[2] = 'X'
	status, _ := s.Status()
	status.Jobs[2] = 'Y'

	again, _ := s.Status()
	assert.JSONEq(t, `{"pending":1}`, string(again.Jobs))
}
