package ux

import (
	"fmt"
	"os"
	"time"

	"github.com/install-pinned/pinfleet/internal/state"
	"golang.org/x/term"
)

// ANSI color helpers. They are empty when stdout is not a terminal or
// NO_COLOR is set.
var (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		DisableColor()
	}
}

// DisableColor turns every color helper into the empty string.
func DisableColor() {
	Reset, Bold, Dim, Red, Green, Yellow, Cyan = "", "", "", "", "", "", ""
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// ToolHeader prints a timestamped header for one tool of the fleet.
func ToolHeader(index, total int, tool, repo string) {
	fmt.Printf("\n%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
	name := tool
	if repo != tool {
		name = fmt.Sprintf("%s (%s)", tool, repo)
	}
	fmt.Printf("%s[%s]%s  %sTool %d/%d: %s%s\n",
		Dim, timestamp(), Reset, Bold, index+1, total, name, Reset)
	fmt.Printf("%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
}

// Stage prints a progress line for a stage.
func Stage(stage, msg string) {
	fmt.Printf("%s[%s]%s  %s%-8s%s %s\n", Dim, timestamp(), Reset, Cyan, stage, Reset, msg)
}

// StageSkip prints a skipped stage.
func StageSkip(stage, reason string) {
	fmt.Printf("%s[%s]%s  %s– %s skipped (%s)%s\n", Dim, timestamp(), Reset, Dim, stage, reason, Reset)
}

// ToolComplete prints a tool completion message.
func ToolComplete(index int, committed bool, duration time.Duration) {
	change := "unchanged"
	if committed {
		change = "updated"
	}
	fmt.Printf("%s[%s]%s  %s✓ Tool %d %s (%s)%s\n",
		Dim, timestamp(), Reset, Green, index+1, change, state.FormatDuration(duration), Reset)
}

// ToolFail prints a tool failure message.
func ToolFail(index int, tool, stage, errMsg string) {
	fmt.Printf("%s[%s]%s  %s✗ Tool %d (%s) failed at %s: %s%s\n",
		Dim, timestamp(), Reset, Red, index+1, tool, stage, errMsg, Reset)
}

// Listing prints the Marketplace status of a repository. An unlisted
// action gets the URL where its first release can be drafted.
func Listing(repo string, listed bool, url, releaseURL string) {
	if listed {
		fmt.Printf("%s[%s]%s  %s★ %s is listed: %s%s\n", Dim, timestamp(), Reset, Green, repo, url, Reset)
		return
	}
	fmt.Printf("%s[%s]%s  %s⚠ %s is not on the Marketplace. Publish a release:%s\n", Dim, timestamp(), Reset, Yellow, repo, Reset)
	fmt.Printf("      %s\n", releaseURL)
}

// Summary prints the final line of a run.
func Summary(report *state.RunReport) {
	failed := len(report.Failed())
	total := len(report.Tools)
	switch {
	case report.Status == state.StatusInterrupted:
		fmt.Printf("\n%s[%s]%s  %s%s══ Interrupted after %d tools ══%s\n\n",
			Dim, timestamp(), Reset, Bold, Yellow, total, Reset)
	case failed > 0:
		fmt.Printf("\n%s[%s]%s  %s%s══ %d of %d tools failed ══%s\n\n",
			Dim, timestamp(), Reset, Bold, Red, failed, total, Reset)
	default:
		fmt.Printf("\n%s[%s]%s  %s%s══ All %d tools in sync ══%s\n\n",
			Dim, timestamp(), Reset, Bold, Green, total, Reset)
	}
}
