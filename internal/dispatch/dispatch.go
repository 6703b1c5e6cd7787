// Package dispatch turns operator intents into engine calls.
//
// Every action makes at most one remote call and publishes at most one
// notification. Only a successful retry or delete forces a refresh; the
// snapshot store is never written from here.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/livinlefevreloca/queuedash/internal/journal"
	"github.com/livinlefevreloca/queuedash/internal/logviewer"
	"github.com/livinlefevreloca/queuedash/internal/notify"
	"github.com/livinlefevreloca/queuedash/internal/poller"
	"github.com/livinlefevreloca/queuedash/internal/queueclient"
)

// ErrEmptyJobID is returned before any remote call when no id is given
var ErrEmptyJobID = errors.New("dispatch: job id is required")

// NoLogMessage is published when a log cannot be fetched
const NoLogMessage = "No log found for this job."

// Mutator is the subset of the engine client used for actions
type Mutator interface {
	RetryJob(ctx context.Context, jobID string) error
	DeleteJob(ctx context.Context, jobID string) error
	FetchLog(ctx context.Context, jobID string) (string, error)
}

// Refresher forces one synchronisation cycle
type Refresher interface {
	RefreshNow(ctx context.Context) poller.CycleResult
}

// Recorder persists action outcomes. Optional.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (journal.Entry, error)
}

// Result describes a finished action
type Result struct {
	Kind    journal.Kind    `json:"kind"`
	JobID   string          `json:"job_id"`
	Outcome journal.Outcome `json:"outcome"`
	Message string          `json:"message,omitempty"`

	// Set when the action forced a refresh
	Refresh *poller.CycleResult `json:"-"`
}

// Dispatcher executes operator actions
type Dispatcher struct {
	client    Mutator
	refresher Refresher
	viewer    *logviewer.Viewer
	notes     notify.Publisher
	recorder  Recorder
	logger    *slog.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithRecorder journals every action outcome
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// New creates a dispatcher
func New(client Mutator, refresher Refresher, viewer *logviewer.Viewer, notes notify.Publisher, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:    client,
		refresher: refresher,
		viewer:    viewer,
		notes:     notes,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Retry asks the engine to requeue a dead-lettered job. On success one full
// refresh cycle runs before Retry returns.
func (d *Dispatcher) Retry(ctx context.Context, jobID string) (Result, error) {
	if jobID == "" {
		return Result{}, ErrEmptyJobID
	}

	if err := d.client.RetryJob(ctx, jobID); err != nil {
		return d.fail(ctx, journal.KindRetry, jobID,
			fmt.Sprintf("Failed to retry job: %s", queueclient.Reason(err)), err)
	}

	return d.succeed(ctx, journal.KindRetry, jobID,
		fmt.Sprintf("Job %s requeued successfully", jobID)), nil
}

// DeletePrompt is the question put to the Confirmer
func DeletePrompt(jobID string) string {
	return fmt.Sprintf("Delete job %s?", jobID)
}

// Delete removes a job after the operator confirms. A declined confirmation
// makes no remote call and is not an error.
func (d *Dispatcher) Delete(ctx context.Context, jobID string, confirm Confirmer) (Result, error) {
	if jobID == "" {
		return Result{}, ErrEmptyJobID
	}

	if confirm == nil || !confirm.Confirm(ctx, DeletePrompt(jobID)) {
		d.logger.Info("delete declined", "job_id", jobID)
		d.record(ctx, journal.KindDelete, jobID, journal.OutcomeDeclined, nil)
		return Result{Kind: journal.KindDelete, JobID: jobID, Outcome: journal.OutcomeDeclined}, nil
	}

	if err := d.client.DeleteJob(ctx, jobID); err != nil {
		return d.fail(ctx, journal.KindDelete, jobID,
			fmt.Sprintf("Failed to delete job: %s", queueclient.Reason(err)), err)
	}

	return d.succeed(ctx, journal.KindDelete, jobID,
		fmt.Sprintf("Job %s deleted", jobID)), nil
}

// ViewLog fetches a job's log into the viewer. Other resources are not
// refreshed. The returned view is the viewer state after this call.
func (d *Dispatcher) ViewLog(ctx context.Context, jobID string) (logviewer.View, error) {
	if jobID == "" {
		return d.viewer.Snapshot(), ErrEmptyJobID
	}

	session := d.viewer.Begin(jobID)

	text, err := d.client.FetchLog(ctx, jobID)
	if err != nil {
		if verr := d.viewer.Fail(session, err); verr != nil {
			d.logger.Debug("log result dropped", "job_id", jobID, "error", verr)
			return d.viewer.Snapshot(), err
		}
		d.logger.Error("log fetch failed", "job_id", jobID, "error", err)
		d.notes.Publish(notify.SeverityError, jobID, NoLogMessage)
		d.record(ctx, journal.KindViewLog, jobID, journal.OutcomeFailed, err)
		return d.viewer.Snapshot(), err
	}

	if verr := d.viewer.Resolve(session, text); verr != nil {
		d.logger.Debug("log result dropped", "job_id", jobID, "error", verr)
		return d.viewer.Snapshot(), verr
	}
	d.record(ctx, journal.KindViewLog, jobID, journal.OutcomeSucceeded, nil)
	return d.viewer.Snapshot(), nil
}

// Log returns the current log viewer state
func (d *Dispatcher) Log() logviewer.View {
	return d.viewer.Snapshot()
}

// CloseLog closes the log viewer
func (d *Dispatcher) CloseLog() logviewer.View {
	d.viewer.Close()
	return d.viewer.Snapshot()
}

func (d *Dispatcher) succeed(ctx context.Context, kind journal.Kind, jobID, message string) Result {
	d.logger.Info("action succeeded", "action", string(kind), "job_id", jobID)
	d.notes.Publish(notify.SeverityInfo, jobID, message)
	d.record(ctx, kind, jobID, journal.OutcomeSucceeded, nil)

	cycle := d.refresher.RefreshNow(ctx)
	return Result{
		Kind:    kind,
		JobID:   jobID,
		Outcome: journal.OutcomeSucceeded,
		Message: message,
		Refresh: &cycle,
	}
}

func (d *Dispatcher) fail(ctx context.Context, kind journal.Kind, jobID, message string, err error) (Result, error) {
	d.logger.Error("action failed", "action", string(kind), "job_id", jobID, "error", err)
	d.notes.Publish(notify.SeverityError, jobID, message)
	d.record(ctx, kind, jobID, journal.OutcomeFailed, err)

	return Result{
		Kind:    kind,
		JobID:   jobID,
		Outcome: journal.OutcomeFailed,
		Message: message,
	}, fmt.Errorf("%s job %s: %w", kind, jobID, err)
}

// record journals an outcome. Journal errors are logged only.
func (d *Dispatcher) record(ctx context.Context, kind journal.Kind, jobID string, outcome journal.Outcome, cause error) {
	if d.recorder == nil {
		return
	}
	entry := journal.Entry{Kind: kind, JobID: jobID, Outcome: outcome}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if _, err := d.recorder.Record(ctx, entry); err != nil {
		d.logger.Warn("failed to journal action",
			"action", string(kind),
			"job_id", jobID,
			"error", err)
	}
}
