// Package logviewer governs the on-demand log inspection overlay.
//
// At most one session exists at a time. Begin starts a session and returns a
// token; a fetch result is applied only if its token still identifies the
// current session, so a late response for a superseded job is dropped.
package logviewer

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrSuperseded is returned when a result arrives for a session that was
// replaced or closed after it began.
var ErrSuperseded = errors.New("logviewer: session superseded")

// Session identifies one Begin call
type Session struct {
	token   uint64
	Subject string
}

// View is a read-only copy of the viewer for presentation
type View struct {
	State   string `json:"state"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Viewer is the log viewer state machine. Safe for concurrent use.
type Viewer struct {
	mu       sync.Mutex
	state    State
	token    uint64
	recorder *StateRecorder
	logger   *slog.Logger
}

// New creates a viewer in the closed state
func New(logger *slog.Logger) *Viewer {
	return &Viewer{
		state:  &ClosedState{},
		logger: logger,
	}
}

// Begin starts a session for jobID. Any loading or open session is
// discarded first.
func (v *Viewer) Begin(jobID string) Session {
	v.mu.Lock()
	defer v.mu.Unlock()

	closed, ok := v.state.(*ClosedState)
	if !ok {
		v.logger.Debug("discarding log session",
			"state", v.state.Name(),
			"subject", v.subjectLocked())
		closed = &ClosedState{}
		v.transitionTo(closed)
	}

	v.token++
	v.transitionTo(closed.ToLoading(jobID))
	return Session{token: v.token, Subject: jobID}
}

// Resolve applies a successful fetch: loading → open.
func (v *Viewer) Resolve(s Session, text string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	loading, err := v.currentLoading(s)
	if err != nil {
		return err
	}
	v.transitionTo(loading.ToOpen(text))
	return nil
}

// Fail applies a failed fetch: loading → error → closed.
func (v *Viewer) Fail(s Session, cause error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	loading, err := v.currentLoading(s)
	if err != nil {
		return err
	}
	failed := loading.ToError(cause)
	v.transitionTo(failed)
	v.transitionTo(failed.ToClosed())
	return nil
}

// Close returns the viewer to closed, dropping text and subject. Closing an
// already closed viewer is a no-op.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch s := v.state.(type) {
	case *OpenState:
		v.transitionTo(s.ToClosed())
	case *LoadingState:
		v.transitionTo(s.ToClosed())
	}
}

// Snapshot returns the current view
func (v *Viewer) Snapshot() View {
	v.mu.Lock()
	defer v.mu.Unlock()

	view := View{State: v.state.Name()}
	switch s := v.state.(type) {
	case *LoadingState:
		view.Subject = s.Subject
	case *OpenState:
		view.Subject = s.Subject
		view.Text = s.Text
	}
	return view
}

// State returns the current state
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Viewer) currentLoading(s Session) (*LoadingState, error) {
	loading, ok := v.state.(*LoadingState)
	if !ok || s.token != v.token {
		return nil, ErrSuperseded
	}
	return loading, nil
}

func (v *Viewer) subjectLocked() string {
	switch s := v.state.(type) {
	case *LoadingState:
		return s.Subject
	case *OpenState:
		return s.Subject
	}
	return ""
}

func (v *Viewer) transitionTo(next State) {
	v.state = next
	if v.recorder != nil {
		v.recorder.Record(next)
	}
}
