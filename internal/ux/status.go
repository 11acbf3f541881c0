package ux

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/install-pinned/pinfleet/internal/state"
)

// RenderStatus prints the last run report.
func RenderStatus(report *state.RunReport) {
	fmt.Printf("%sRun:%s     %s\n", Bold, Reset, report.RunID)
	fmt.Printf("%sStarted:%s %s %s(%s)%s\n", Bold, Reset,
		report.StartedAt.Format("2006-01-02 15:04:05"), Dim, humanize.Time(report.StartedAt), Reset)
	if !report.FinishedAt.IsZero() {
		fmt.Printf("%sTook:%s    %s\n", Bold, Reset, state.FormatDuration(report.FinishedAt.Sub(report.StartedAt)))
	}
	mode := ""
	if report.DryRun {
		mode = Dim + " (dry run)" + Reset
	}
	fmt.Printf("%sState:%s   %s%s\n", Bold, Reset, colorStatus(report.Status), mode)

	if len(report.Tools) == 0 {
		fmt.Printf("\n  %s(no tools processed)%s\n\n", Dim, Reset)
		return
	}

	fmt.Printf("\n%sTools:%s\n", Bold, Reset)
	for i, t := range report.Tools {
		detail := ""
		switch {
		case t.Status == state.StatusFailed:
			detail = fmt.Sprintf("%sat %s: %s%s", Red, t.Stage, t.Error, Reset)
		case t.Committed:
			detail = "updated"
		case t.Status == state.StatusCompleted:
			detail = "unchanged"
		}
		if t.Status == state.StatusCompleted && !t.Listed && t.ReleaseURL != "" {
			detail += fmt.Sprintf(" %sunlisted%s", Yellow, Reset)
		}
		fmt.Printf("  %s%d%s  %-28s %s  %s %s%s%s\n",
			Dim, i+1, Reset, t.Repo, colorStatus(t.Status), detail, Dim, t.Duration, Reset)
	}

	var unlisted []state.ToolResult
	for _, t := range report.Tools {
		if t.Status == state.StatusCompleted && !t.Listed && t.ReleaseURL != "" {
			unlisted = append(unlisted, t)
		}
	}
	if len(unlisted) > 0 {
		fmt.Printf("\n%sDraft a release for:%s\n", Bold, Reset)
		for _, t := range unlisted {
			fmt.Printf("  %s\n", t.ReleaseURL)
		}
	}
	fmt.Println()
}

func colorStatus(status string) string {
	switch status {
	case state.StatusCompleted:
		return Green + status + Reset
	case state.StatusFailed:
		return Red + status + Reset
	case state.StatusInterrupted, state.StatusRunning:
		return Yellow + status + Reset
	}
	return Dim + status + Reset
}
