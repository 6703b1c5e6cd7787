package logviewer

// State is implemented by every viewer state
type State interface {
	Name() string
}

// ClosedState - nothing shown, no subject remembered
type ClosedState struct{}

func (s *ClosedState) Name() string { return "closed" }
func (s *ClosedState) ToLoading(subject string) *LoadingState {
	return &LoadingState{Subject: subject}
}

// LoadingState - fetch for Subject in flight
type LoadingState struct {
	Subject string
}

func (s *LoadingState) Name() string { return "loading" }
func (s *LoadingState) ToOpen(text string) *OpenState {
	return &OpenState{Subject: s.Subject, Text: text}
}
func (s *LoadingState) ToError(err error) *ErrorState {
	return &ErrorState{Subject: s.Subject, Err: err}
}
func (s *LoadingState) ToClosed() *ClosedState {
	return &ClosedState{}
}

// OpenState - log text visible to the operator
type OpenState struct {
	Subject string
	Text    string
}

func (s *OpenState) Name() string { return "open" }
func (s *OpenState) ToClosed() *ClosedState {
	return &ClosedState{}
}

// ErrorState - fetch failed; never persists, always followed by closed
type ErrorState struct {
	Subject string
	Err     error
}

func (s *ErrorState) Name() string { return "error" }
func (s *ErrorState) ToClosed() *ClosedState {
	return &ClosedState{}
}

// StateRecorder tracks transitions for tests and debugging
type StateRecorder struct {
	path []string
}

func NewStateRecorder() *StateRecorder {
	return &StateRecorder{path: make([]string, 0)}
}

func (r *StateRecorder) Record(state State) {
	r.path = append(r.path, state.Name())
}

func (r *StateRecorder) Path() []string {
	out := make([]string, len(r.path))
	copy(out, r.path)
	return out
}
