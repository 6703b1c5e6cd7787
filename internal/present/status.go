package present

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/livinlefevreloca/queuedash/internal/queueclient"
)

// NoData is shown in place of the summary before the first successful fetch
const NoData = "No data"

// summaryOrder is the order known states are listed in
var summaryOrder = []string{
	string(queueclient.StatePending),
	string(queueclient.StateProcessing),
	string(queueclient.StateCompleted),
	string(queueclient.StateFailed),
	string(queueclient.StateDead),
}

// StateCount is one entry of the per-state summary
type StateCount struct {
	State string `json:"state"`
	Count int    `json:"count"`
}

// StatusPanel is the rendered system status
type StatusPanel struct {
	Fetched bool         `json:"fetched"`
	Workers int          `json:"workers"`
	Summary string       `json:"summary"`
	Counts  []StateCount `json:"counts,omitempty"`
}

// Status renders the status slice. fetched is false until the store has
// committed a status at least once.
func Status(status queueclient.SystemStatus, fetched bool) StatusPanel {
	if !fetched {
		return StatusPanel{Summary: NoData}
	}
	return StatusPanel{
		Fetched: true,
		Workers: status.Workers,
		Summary: prettySummary(status.Jobs),
		Counts:  orderedCounts(status.Counts()),
	}
}

func prettySummary(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return NoData
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// orderedCounts lists known states first, then the rest alphabetically.
func orderedCounts(counts map[string]int) []StateCount {
	if len(counts) == 0 {
		return nil
	}

	out := make([]StateCount, 0, len(counts))
	seen := make(map[string]bool, len(summaryOrder))
	for _, state := range summaryOrder {
		seen[state] = true
		if n, ok := counts[state]; ok {
			out = append(out, StateCount{State: state, Count: n})
		}
	}

	var rest []string
	for state := range counts {
		if !seen[state] {
			rest = append(rest, state)
		}
	}
	sort.Strings(rest)
	for _, state := range rest {
		out = append(out, StateCount{State: state, Count: counts[state]})
	}
	return out
}
