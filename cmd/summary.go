package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/relloyd/xlpipe/actions"
	"github.com/relloyd/xlpipe/models"
	"github.com/relloyd/xlpipe/pipeline"
)

// useColor is true when f is a terminal and NO_COLOR is not set.
func useColor(f *os.File) bool {
	return !color.NoColor && isatty.IsTerminal(f.Fd())
}

// writeReport prints r as tables, or as a YAML/JSON document when format is set.
func writeReport(w io.Writer, r *actions.Report, format string, colour bool) error {
	if format != "" {
		return actions.WriteDefinition(w, r, format)
	}
	var buf strings.Builder
	if r.RunID != "" {
		fmt.Fprintf(&buf, "Run %v\n", r.RunID)
	}
	table := newTable(&buf, "Task", "Status", "Duration", "Error")
	for _, t := range r.Tasks {
		table.Append([]string{t.Task, taskStatus(t.Status, colour), taskDuration(t), t.Error})
	}
	table.Render()
	if len(r.Loads) > 0 {
		buf.WriteString("\n")
		table = newTable(&buf, "Table", "Rows Loaded", "Rows Rejected", "File")
		for _, l := range r.Loads {
			table.Append([]string{l.Table, fmt.Sprint(l.RowsLoaded), fmt.Sprint(l.RowsRejected), l.File})
		}
		table.Render()
	}
	if len(r.Models) > 0 {
		buf.WriteString("\n")
		table = newTable(&buf, "Model", "Relation", "Status", "Tests", "Duration")
		for _, m := range r.Models {
			table.Append([]string{m.Model, m.Relation, modelStatus(m.Status, colour), fmt.Sprint(m.Tests), m.Duration.Round(time.Millisecond).String()})
		}
		table.Render()
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

func taskDuration(t pipeline.TaskStatus) string {
	if t.StartTime.IsZero() || t.EndTime.IsZero() {
		return ""
	}
	return t.EndTime.Sub(t.StartTime).Round(time.Millisecond).String()
}

func taskStatus(s pipeline.Status, colour bool) string {
	if !colour {
		return s.String()
	}
	switch s {
	case pipeline.StatusComplete:
		return color.GreenString(s.String())
	case pipeline.StatusCompleteWithError, pipeline.StatusShutdown:
		return color.RedString(s.String())
	case pipeline.StatusSkipped:
		return color.YellowString(s.String())
	}
	return s.String()
}

func modelStatus(s string, colour bool) string {
	if !colour {
		return s
	}
	switch s {
	case models.StatusSuccess:
		return color.GreenString(s)
	case models.StatusError, models.StatusFail:
		return color.RedString(s)
	case models.StatusSkipped:
		return color.YellowString(s)
	}
	return s
}
