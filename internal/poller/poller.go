// Package poller keeps the snapshot store fresh by polling the engine.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/livinlefevreloca/queuedash/internal/queueclient"
	"github.com/livinlefevreloca/queuedash/internal/snapshot"
)

var (
	ErrAlreadyRunning = errors.New("poller: already running")
	ErrNotRunning     = errors.New("poller: not running")
)

// Reader is the subset of the engine client the poller needs
type Reader interface {
	Status(ctx context.Context) (queueclient.SystemStatus, error)
	ListJobs(ctx context.Context) ([]queueclient.Job, error)
	ListDLQ(ctx context.Context) ([]queueclient.DlqEntry, error)
}

// CycleResult reports the outcome of one poll cycle per resource.
// A resource absent from Errors was committed or discarded as stale.
type CycleResult struct {
	StartedAt time.Time
	Duration  time.Duration
	Errors    map[snapshot.Resource]error
	Stale     []snapshot.Resource
}

// OK reports whether every read succeeded
func (r CycleResult) OK() bool {
	return len(r.Errors) == 0
}

// Stats counts poll activity since construction
type Stats struct {
	Cycles       int64
	FailedReads  int64
	StaleReads   int64
	ManualCycles int64
}

// Controller owns the poll timer
type Controller struct {
	config Config
	client Reader
	store  *snapshot.Store
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	shutdown chan struct{}
	loopDone chan struct{}

	// in-flight cycles, including ones started by ticks after Stop
	inflight sync.WaitGroup

	cycles       atomic.Int64
	failedReads  atomic.Int64
	staleReads   atomic.Int64
	manualCycles atomic.Int64
}

// New creates a controller with validated configuration
func New(config Config, client Reader, store *snapshot.Store, logger *slog.Logger) (*Controller, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return &Controller{
		config: config,
		client: client,
		store:  store,
		logger: logger,
	}, nil
}

// Start begins the repeating cycle. Cycles run with ctx, so cancelling ctx
// aborts in-flight requests; Stop does not.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}
	c.running = true
	c.shutdown = make(chan struct{})
	c.loopDone = make(chan struct{})

	c.logger.Info("starting poller", "interval", c.config.Interval)

	go c.run(ctx, c.shutdown, c.loopDone)
	return nil
}

// Stop halts further scheduled ticks. Requests already dispatched are left
// to land in the store.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.running = false
	close(c.shutdown)
	done := c.loopDone
	c.mu.Unlock()

	<-done
	c.logger.Info("poller stopped")
	return nil
}

// Running reports whether the timer is active
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Wait blocks until every dispatched cycle has finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// RefreshNow runs one cycle immediately in the caller's goroutine, regardless
// of whether the timer is running. The timer's schedule is not reset.
func (c *Controller) RefreshNow(ctx context.Context) CycleResult {
	c.manualCycles.Add(1)
	c.inflight.Add(1)
	defer c.inflight.Done()
	return c.cycle(ctx)
}

// RefreshAsync starts one cycle in the background and returns at once. The
// cycle is counted by Wait from the moment RefreshAsync returns.
func (c *Controller) RefreshAsync(ctx context.Context) {
	c.manualCycles.Add(1)
	c.dispatch(ctx)
}

// Stats returns poll counters
func (c *Controller) Stats() Stats {
	return Stats{
		Cycles:       c.cycles.Load(),
		FailedReads:  c.failedReads.Load(),
		StaleReads:   c.staleReads.Load(),
		ManualCycles: c.manualCycles.Load(),
	}
}

// run is the timer loop. Each tick dispatches a cycle without waiting for
// the previous one; overlapping responses are ordered by the store.
func (c *Controller) run(ctx context.Context, shutdown <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	if c.config.PollOnStart {
		c.dispatch(ctx)
	}

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdown:
			return

		case <-ctx.Done():
			c.loopExited(shutdown)
			return

		case <-ticker.C:
			c.dispatch(ctx)
		}
	}
}

// loopExited marks the controller stopped when the loop ends on its own.
// A Stop followed by a new Start owns a different shutdown channel and is
// left alone.
func (c *Controller) loopExited(shutdown <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running && c.shutdown == shutdown {
		c.running = false
		c.logger.Info("poller stopped", "reason", "context done")
	}
}

func (c *Controller) dispatch(ctx context.Context) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.cycle(ctx)
	}()
}

// cycle issues the three reads concurrently. A failed read never cancels or
// delays the others, and only ever affects its own slice.
func (c *Controller) cycle(ctx context.Context) CycleResult {
	start := time.Now()
	c.cycles.Add(1)

	var (
		mu     sync.Mutex
		result = CycleResult{StartedAt: start, Errors: map[snapshot.Resource]error{}}
	)
	record := func(r snapshot.Resource, err error) {
		mu.Lock()
		defer mu.Unlock()
		if errors.Is(err, snapshot.ErrStale) {
			result.Stale = append(result.Stale, r)
			c.staleReads.Add(1)
			return
		}
		result.Errors[r] = err
		c.failedReads.Add(1)
	}

	var g errgroup.Group
	for _, r := range snapshot.Resources {
		r := r
		seq := c.store.Begin(r)
		g.Go(func() error {
			if err := c.fetch(ctx, r, seq); err != nil {
				record(r, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(start)

	if result.OK() {
		c.logger.Debug("poll cycle completed",
			"duration", result.Duration,
			"stale", len(result.Stale))
	}
	return result
}

func (c *Controller) fetch(ctx context.Context, r snapshot.Resource, seq uint64) error {
	var err error
	switch r {
	case snapshot.ResourceStatus:
		var status queueclient.SystemStatus
		if status, err = c.client.Status(ctx); err == nil {
			err = c.store.SetStatus(seq, status)
		}
	case snapshot.ResourceJobs:
		var jobs []queueclient.Job
		if jobs, err = c.client.ListJobs(ctx); err == nil {
			err = c.store.SetJobs(seq, jobs)
		}
	case snapshot.ResourceDLQ:
		var entries []queueclient.DlqEntry
		if entries, err = c.client.ListDLQ(ctx); err == nil {
			err = c.store.SetDlq(seq, entries)
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, snapshot.ErrStale):
		c.logger.Debug("discarded stale response", "resource", r.String(), "seq", seq)
	default:
		c.store.RecordFailure(r, err)
		c.logger.Warn("poll read failed",
			"resource", r.String(),
			"kind", queueclient.KindOf(err).String(),
			"error", err)
	}
	return err
}
