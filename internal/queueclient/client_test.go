package queueclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinlefevreloca/queuedash/internal/queueclient"
	"github.com/livinlefevreloca/queuedash/internal/testutil"
)

func newClient(t *testing.T, baseURL string) *queueclient.Client {
	t.Helper()
	cfg := queueclient.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Timeout = time.Second
	c, err := queueclient.New(cfg, testutil.NewTestLogger().Logger())
	require.NoError(t, err)
	return c
}

func TestClient_Status(t *testing.T) {
	engine := testutil.NewFakeEngine(t)
	engine.SetStatus(3, map[string]int{"pending": 2, "completed": 5})
	c := newClient(t, engine.URL())

	status, err := c.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, status.Workers)
	assert.Equal(t, map[string]int{"pending": 2, "completed": 5}, status.Counts())
}

func TestClient_ListJobsAndDLQ(t *testing.T) {
	engine := testutil.NewFakeEngine(t)
	engine.SetJobs([]queueclient.Job{
		{ID: "9", Command: "true", State: queueclient.StateCompleted, Attempts: 1, UpdatedAt: "2025-01-02T03:04:05Z"},
	})
	engine.SetDLQ([]queueclient.DlqEntry{
		{ID: "7", Command: "echo hi", Attempts: 2, FailedAt: "2025-01-02T03:04:05Z"},
	})
	c := newClient(t, engine.URL())

	jobs, err := c.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, queueclient.StateCompleted, jobs[0].State)
	assert.Equal(t, "2025-01-02T03:04:05Z", jobs[0].UpdatedAt)

	dlq, err := c.ListDLQ(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq, 1)
	assert.False(t, dlq[0].HasState(), "dlq entries arrive without a state")
	assert.Equal(t, 2, dlq[0].Attempts)
}

func TestClient_EmptyListsAreNonNil(t *testing.T) {
	engine := testutil.NewFakeEngine(t)
	c := newClient(t, engine.URL())

	jobs, err := c.ListJobs(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestClient_RetryAndDelete(t *testing.T) {
	engine := testutil.NewFakeEngine(t)
	engine.SetJobs([]queueclient.Job{
		{ID: "7", State: queueclient.StateDead},
		{ID: "9", State: queueclient.StateCompleted},
	})
	engine.SetDLQ([]queueclient.DlqEntry{{ID: "7"}})
	c := newClient(t, engine.URL())

	require.NoError(t, c.RetryJob(context.Background(), "7"))
	assert.Empty(t, engine.DLQ())

	require.NoError(t, c.DeleteJob(context.Background(), "9"))
	assert.Len(t, engine.Jobs(), 1)
}

func TestClient_FetchLogReturnsRawBody(t *testing.T) {
	engine := testutil.NewFakeEngine(t)
	engine.SetLog("5", "line1\nline2")
	c := newClient(t, engine.URL())

	text, err := c.FetchLog(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", text)
}

func TestClient_NotFoundIsStatusError(t *testing.T) {
	engine := testutil.NewFakeEngine(t)
	c := newClient(t, engine.URL())

	_, err := c.FetchLog(context.Background(), "99")
	require.Error(t, err)

	assert.True(t, errors.Is(err, queueclient.ErrRequestFailed))
	assert.True(t, queueclient.IsNotFound(err))
	assert.Equal(t, queueclient.KindStatus, queueclient.KindOf(err))
	assert.Contains(t, err.Error(), "No log found for this job")
}

func TestClient_ServerErrorIsFailure(t *testing.T) {
	engine := testutil.NewFakeEngine(t)
	engine.Fail(testutil.EndpointJobs, http.StatusInternalServerError)
	c := newClient(t, engine.URL())

	_, err := c.ListJobs(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, queueclient.ErrRequestFailed)
	assert.False(t, queueclient.IsNotFound(err))
}

func TestClient_DecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)

	_, err := c.Status(context.Background())
	require.Error(t, err)
	assert.Equal(t, queueclient.KindDecode, queueclient.KindOf(err))
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := newClient(t, url)

	_, err := c.ListDLQ(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, queueclient.ErrRequestFailed)
	assert.Equal(t, queueclient.KindNetwork, queueclient.KindOf(err))
}

func TestClient_Timeout(t *testing.T) {
	engine := testutil.NewFakeEngine(t)
	engine.Delay(testutil.EndpointStatus, 200*time.Millisecond)

	cfg := queueclient.DefaultConfig()
	cfg.BaseURL = engine.URL()
	cfg.Timeout = 20 * time.Millisecond
	c, err := queueclient.New(cfg, testutil.NewTestLogger().Logger())
	require.NoError(t, err)

	_, err = c.Status(context.Background())
	require.Error(t, err)
	assert.Equal(t, queueclient.KindTimeout, queueclient.KindOf(err))
}

func TestClient_EscapesJobID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)

	require.NoError(t, c.DeleteJob(context.Background(), "a/b"))
	assert.Equal(t, "/jobs/a%2Fb", gotPath)
}

func TestConfig_Validate(t *testing.T) {
	cfg := queueclient.DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.BaseURL = "ftp://example.com"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Timeout = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.RequestsPerSecond = 5
	bad.Burst = 0
	assert.Error(t, bad.Validate())
}

func TestParseTimestamp(t *testing.T) {
	ts, ok := queueclient.ParseTimestamp("2025-01-02T03:04:05Z")
	require.True(t, ok)
	assert.Equal(t, 2025, ts.Year())

	_, ok = queueclient.ParseTimestamp("")
	assert.False(t, ok)

	_, ok = queueclient.ParseTimestamp("yesterday")
	assert.False(t, ok)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "Job not found", queueclient.Reason(&queueclient.Error{
		Op: "delete_job", Kind: queueclient.KindStatus, StatusCode: 404, Detail: "Job not found",
	}))
	assert.Equal(t, "request failed with status code 500", queueclient.Reason(&queueclient.Error{
		Op: "retry_job", Kind: queueclient.KindStatus, StatusCode: 500,
	}))
	assert.Equal(t, "plain", queueclient.Reason(errors.New("plain")))
}

func TestClient_BaseURLTrimsTrailingSlash(t *testing.T) {
	c := newClient(t, "http://engine.local:8000/")
	assert.Equal(t, "http://engine.local:8000", c.BaseURL())
}
