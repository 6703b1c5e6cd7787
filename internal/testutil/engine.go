package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/livinlefevreloca/queuedash/internal/queueclient"
)

// Engine endpoint names used for failure injection and call counting
const (
	EndpointStatus = "status"
	EndpointJobs   = "jobs"
	EndpointDLQ    = "dlq"
	EndpointRetry  = "retry"
	EndpointDelete = "delete"
	EndpointLogs   = "logs"
)

// FakeEngine is an in-process stand-in for the queue engine REST API.
// It mirrors the engine's observable behaviour: retry moves a DLQ entry back
// to pending, delete removes a job, missing ids answer 404 with a detail body.
type FakeEngine struct {
	mu      sync.Mutex
	workers int
	summary map[string]int
	jobs    []queueclient.Job
	dlq     []queueclient.DlqEntry
	logs    map[string]string

	failures map[string]int
	delays   map[string]time.Duration
	calls    map[string]int

	server *httptest.Server
}

// NewFakeEngine starts a fake engine that is shut down when the test ends
func NewFakeEngine(t *testing.T) *FakeEngine {
	t.Helper()

	e := &FakeEngine{
		summary:  map[string]int{},
		jobs:     []queueclient.Job{},
		dlq:      []queueclient.DlqEntry{},
		logs:     map[string]string{},
		failures: map[string]int{},
		delays:   map[string]time.Duration{},
		calls:    map[string]int{},
	}

	r := mux.NewRouter()
	r.HandleFunc("/status", e.wrap(EndpointStatus, e.handleStatus)).Methods("GET")
	r.HandleFunc("/jobs", e.wrap(EndpointJobs, e.handleJobs)).Methods("GET")
	r.HandleFunc("/dlq", e.wrap(EndpointDLQ, e.handleDLQ)).Methods("GET")
	r.HandleFunc("/dlq/retry/{id}", e.wrap(EndpointRetry, e.handleRetry)).Methods("POST")
	r.HandleFunc("/jobs/{id}", e.wrap(EndpointDelete, e.handleDelete)).Methods("DELETE")
	r.HandleFunc("/logs/{id}", e.wrap(EndpointLogs, e.handleLog)).Methods("GET")

	e.server = httptest.NewServer(r)
	t.Cleanup(e.server.Close)

	return e
}

// URL returns the engine base URL
func (e *FakeEngine) URL() string {
	return e.server.URL
}

func (e *FakeEngine) SetStatus(workers int, summary map[string]int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workers = workers
	e.summary = summary
}

func (e *FakeEngine) SetJobs(jobs []queueclient.Job) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = jobs
}

func (e *FakeEngine) SetDLQ(entries []queueclient.DlqEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dlq = entries
}

func (e *FakeEngine) SetLog(jobID, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logs[jobID] = text
}

// Fail makes the endpoint answer with the given status code until Recover
func (e *FakeEngine) Fail(endpoint string, statusCode int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[endpoint] = statusCode
}

func (e *FakeEngine) Recover(endpoint string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.failures, endpoint)
}

// Delay holds every response of the endpoint for d
func (e *FakeEngine) Delay(endpoint string, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delays[endpoint] = d
}

// Calls returns how many requests reached the endpoint
func (e *FakeEngine) Calls(endpoint string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[endpoint]
}

// TotalCalls returns the number of requests across all endpoints
func (e *FakeEngine) TotalCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, n := range e.calls {
		total += n
	}
	return total
}

func (e *FakeEngine) Jobs() []queueclient.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]queueclient.Job, len(e.jobs))
	copy(out, e.jobs)
	return out
}

func (e *FakeEngine) DLQ() []queueclient.DlqEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]queueclient.DlqEntry, len(e.dlq))
	copy(out, e.dlq)
	return out
}

func (e *FakeEngine) wrap(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e.mu.Lock()
		e.calls[endpoint]++
		code := e.failures[endpoint]
		delay := e.delays[endpoint]
		e.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if code != 0 {
			writeJSON(w, code, map[string]string{"detail": http.StatusText(code)})
			return
		}
		h(w, r)
	}
}

func (e *FakeEngine) handleStatus(w http.ResponseWriter, _ *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"workers": e.workers,
		"jobs":    e.summary,
	})
}

func (e *FakeEngine) handleJobs(w http.ResponseWriter, _ *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	writeJSON(w, http.StatusOK, e.jobs)
}

func (e *FakeEngine) handleDLQ(w http.ResponseWriter, _ *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	writeJSON(w, http.StatusOK, e.dlq)
}

func (e *FakeEngine) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i, entry := range e.dlq {
		if entry.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Job not found in DLQ"})
		return
	}

	e.dlq = append(e.dlq[:idx:idx], e.dlq[idx+1:]...)
	for i := range e.jobs {
		if e.jobs[i].ID == id {
			e.jobs[i].State = queueclient.StatePending
			e.jobs[i].Attempts = 0
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Job " + id + " requeued successfully"})
}

func (e *FakeEngine) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, job := range e.jobs {
		if job.ID == id {
			e.jobs = append(e.jobs[:i:i], e.jobs[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Job " + id + " deleted successfully"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Job not found"})
}

func (e *FakeEngine) handleLog(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	e.mu.Lock()
	text, ok := e.logs[id]
	e.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No log found for this job"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
