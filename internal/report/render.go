package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Render formats the report for terminal output.
func (r Report) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s: %d total, %d processed, %d skipped, %d failed\n",
		r.RunID, r.Total, r.Processed, r.Skipped, r.Failed)
	fmt.Fprintf(&b, "Duplicate rate: %.1f%% across %d groups\n",
		r.DuplicateRate*100, len(r.Groups))
	if !r.FinishedAt.IsZero() && !r.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Elapsed: %s\n", r.FinishedAt.Sub(r.StartedAt))
	}

	for i, g := range r.Groups {
		fmt.Fprintf(&b, "\nGroup %d (%d videos)\n", i+1, len(g.Members))
		b.WriteString(renderMembers(g.Members))
		b.WriteString("\n")
	}

	if len(r.Failures) > 0 {
		b.WriteString("\nFailures\n")
		b.WriteString(renderFailures(r.Failures))
		b.WriteString("\n")
	}

	return b.String()
}

func renderMembers(members []Member) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Source", "Similarity", "Representative"})
	for _, m := range members {
		rep := ""
		if m.Representative {
			rep = "*"
		}
		tw.AppendRow(table.Row{m.ID, m.Source, fmt.Sprintf("%.4f", m.Similarity), rep})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func renderFailures(failures []Failure) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Source", "Reason"})
	for _, f := range failures {
		tw.AppendRow(table.Row{f.Source, f.Reason})
	}
	return tw.Render()
}
