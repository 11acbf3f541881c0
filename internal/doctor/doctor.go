package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/install-pinned/pinfleet/internal/config"
	"github.com/install-pinned/pinfleet/internal/state"
	"github.com/install-pinned/pinfleet/internal/ux"
)

// Check is the outcome of one environment check.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

var stageHints = map[string]string{
	state.StageRemote:   "check that the token can create repositories in the organisation (repo scope, org admin or repository creation rights)",
	state.StageClone:    "check clone-url and that your SSH key or credential helper can reach the remote",
	state.StageRender:   "a template failed to render; check python-versions, schedule and committer fields",
	state.StageCommit:   "git refused the commit; check committer-name and committer-email",
	state.StagePublish:  "the push was rejected; check branch protection and that the token or key can force-push tags",
	state.StageActivate: "enabling or dispatching the workflow failed; the token needs the workflow scope",
	state.StageVerify:   "the Marketplace lookup failed; check network access to web-url",
}

// Hint returns advice for a failure at stage.
func Hint(stage string) string {
	if h, ok := stageHints[stage]; ok {
		return h
	}
	return "re-run with --log-level debug for details"
}

// Preflight checks that binaries are available on PATH.
func Preflight(binaries ...string) error {
	var missing []string
	for _, bin := range binaries {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required binaries not found in PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Checks inspects the local environment a sync depends on.
func Checks(cfg *config.Config, token string) []Check {
	var checks []Check

	if err := Preflight("git"); err != nil {
		checks = append(checks, Check{Name: "git", Detail: err.Error()})
	} else {
		checks = append(checks, Check{Name: "git", OK: true, Detail: "found in PATH"})
	}

	if token == "" {
		checks = append(checks, Check{Name: "token", Detail: "no token: set GITHUB_TOKEN, --token or token-file"})
	} else {
		checks = append(checks, Check{Name: "token", OK: true, Detail: "present"})
	}

	checks = append(checks, workspaceCheck(cfg.Workspace))
	checks = append(checks, Check{Name: "tools", OK: true, Detail: fmt.Sprintf("%d configured", len(cfg.Specs))})
	return checks
}

// workspaceCheck reports whether dir, or its nearest existing parent,
// is a writable directory.
func workspaceCheck(dir string) Check {
	probeDir := dir
	for {
		if info, err := os.Stat(probeDir); err == nil {
			if !info.IsDir() {
				return Check{Name: "workspace", Detail: probeDir + " is not a directory"}
			}
			break
		}
		parent := filepath.Dir(probeDir)
		if parent == probeDir {
			break
		}
		probeDir = parent
	}
	f, err := os.CreateTemp(probeDir, ".pinfleet-probe-*")
	if err != nil {
		return Check{Name: "workspace", Detail: fmt.Sprintf("%s is not writable: %v", probeDir, err)}
	}
	f.Close()
	os.Remove(f.Name())
	return Check{Name: "workspace", OK: true, Detail: dir}
}

// Run prints the environment checks and, when the last run had
// failures, a hint per failed tool. It returns an error if any check
// failed. report may be nil.
func Run(cfg *config.Config, token string, report *state.RunReport) error {
	fmt.Printf("\n%s%s══ Doctor ══%s\n\n", ux.Bold, ux.Cyan, ux.Reset)

	failed := 0
	for _, c := range Checks(cfg, token) {
		mark := ux.Green + "✓" + ux.Reset
		if !c.OK {
			mark = ux.Red + "✗" + ux.Reset
			failed++
		}
		fmt.Printf("  %s %-10s %s\n", mark, c.Name, c.Detail)
	}

	if report != nil {
		if bad := report.Failed(); len(bad) > 0 {
			fmt.Printf("\n%sLast run %s had %d failed tools:%s\n", ux.Bold, report.RunID, len(bad), ux.Reset)
			for _, t := range bad {
				fmt.Printf("  %s%s%s at %s: %s\n", ux.Red, t.Repo, ux.Reset, t.Stage, t.Error)
				fmt.Printf("    %shint:%s %s\n", ux.Yellow, ux.Reset, Hint(t.Stage))
			}
			fmt.Printf("\n%sRetry:%s pinfleet sync --only '%s'\n", ux.Yellow, ux.Reset, RetryPattern(bad))
		}
	}
	fmt.Println()

	if failed > 0 {
		return fmt.Errorf("%d environment checks failed", failed)
	}
	return nil
}

// RetryPattern builds an --only glob matching exactly the given repos.
func RetryPattern(results []state.ToolResult) string {
	if len(results) == 1 {
		return results[0].Repo
	}
	repos := make([]string, len(results))
	for i, r := range results {
		repos[i] = r.Repo
	}
	return "{" + strings.Join(repos, ",") + "}"
}
