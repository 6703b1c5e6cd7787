package present

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Dashboard bundles everything RenderText prints
type Dashboard struct {
	Status StatusPanel
	Jobs   Section
	DLQ    Section
}

// RenderText writes the dashboard as aligned plain text. Empty sections are
// left out entirely.
func RenderText(w io.Writer, d Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "System Status")
	fmt.Fprintf(tw, "Active Workers:\t%d\n", d.Status.Workers)
	switch {
	case !d.Status.Fetched:
		fmt.Fprintf(tw, "Jobs:\t%s\n", NoData)
	case len(d.Status.Counts) > 0:
		for _, c := range d.Status.Counts {
			fmt.Fprintf(tw, "  %s:\t%d\n", c.State, c.Count)
		}
	default:
		fmt.Fprintf(tw, "Jobs:\t%s\n", d.Status.Summary)
	}

	writeSection(tw, "Jobs", d.Jobs)
	writeSection(tw, "Dead Letter Queue", d.DLQ)

	return tw.Flush()
}

func writeSection(w io.Writer, title string, s Section) {
	if !s.Visible {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintln(w, "ID\tCOMMAND\tSTATE\tATTEMPTS\tUPDATED\tACTION")
	for _, r := range s.Rows {
		action := "-"
		if r.Action != ActionNone {
			action = r.Action.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Command, r.State, r.Attempts, r.Timestamp, action)
	}
}
