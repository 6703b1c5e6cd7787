// Package present derives display rows from snapshot data. Everything here is
// a pure function of its inputs; nothing mutates the entries it is given.
package present

import (
	"fmt"

	"github.com/livinlefevreloca/queuedash/internal/queueclient"
)

// ListContext says which list a set of rows belongs to. Action rules key off
// this, never off a display title.
type ListContext int

const (
	ListMain ListContext = iota
	ListDLQ
)

// String returns a human-readable representation of the list context
func (c ListContext) String() string {
	switch c {
	case ListMain:
		return "main"
	case ListDLQ:
		return "dlq"
	default:
		return "unknown"
	}
}

// Action is the primary operation offered on a row
type Action int

const (
	ActionNone Action = iota
	ActionRetry
	ActionDelete
)

// String returns a human-readable representation of the action
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionRetry:
		return "retry"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// MarshalText encodes the action by name
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes an action name
func (a *Action) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*a = ActionNone
	case "retry":
		*a = ActionRetry
	case "delete":
		*a = ActionDelete
	default:
		return fmt.Errorf("unknown action %q", text)
	}
	return nil
}

// Fallbacks applied only when rendering
const (
	// FallbackState is shown for a row the engine sent without a state.
	FallbackState = "dead"
	// FallbackTimestamp is shown when neither updated_at nor failed_at is set.
	FallbackTimestamp = "-"
)

// Row is one rendered job line
type Row struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	State      string `json:"state"`
	Attempts   int    `json:"attempts"`
	Timestamp  string `json:"timestamp"`
	Action     Action `json:"action"`
	CanViewLog bool   `json:"can_view_log"`
}

// Section is one list ready for display. Visible is false for an empty list,
// in which case the whole section is suppressed.
type Section struct {
	Context ListContext `json:"-"`
	Visible bool        `json:"visible"`
	Rows    []Row       `json:"rows"`
}

// DisplayState applies the missing-state rule
func DisplayState(j queueclient.Job) string {
	if j.HasState() {
		return string(j.State)
	}
	return FallbackState
}

// DisplayTimestamp applies the timestamp rule: updated_at, then failed_at,
// then the placeholder.
func DisplayTimestamp(j queueclient.Job) string {
	switch {
	case j.UpdatedAt != "":
		return j.UpdatedAt
	case j.FailedAt != "":
		return j.FailedAt
	default:
		return FallbackTimestamp
	}
}

// ActionFor returns the primary action permitted for a row. DLQ rows always
// offer retry; main rows offer delete only once completed.
func ActionFor(ctx ListContext, j queueclient.Job) Action {
	switch ctx {
	case ListDLQ:
		return ActionRetry
	case ListMain:
		if j.State == queueclient.StateCompleted {
			return ActionDelete
		}
	}
	return ActionNone
}

// RowFor renders one entry
func RowFor(ctx ListContext, j queueclient.Job) Row {
	return Row{
		ID:         j.ID,
		Command:    j.Command,
		State:      DisplayState(j),
		Attempts:   j.Attempts,
		Timestamp:  DisplayTimestamp(j),
		Action:     ActionFor(ctx, j),
		CanViewLog: true,
	}
}

// Rows renders a whole list in snapshot order
func Rows(ctx ListContext, entries []queueclient.Job) Section {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, RowFor(ctx, e))
	}
	return Section{
		Context: ctx,
		Visible: len(rows) > 0,
		Rows:    rows,
	}
}
