package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
	StatusSkipped     = "skipped"
)

// Stages a tool passes through, in order. ToolResult.Stage holds the
// last stage reached.
const (
	StageRemote   = "remote"
	StageClone    = "clone"
	StageRender   = "render"
	StageCommit   = "commit"
	StagePublish  = "publish"
	StageActivate = "activate"
	StageVerify   = "verify"
	StageDone     = "done"
)

// ReportFile is the name of the run report inside the state directory.
const ReportFile = "run.json"

type ToolResult struct {
	Tool       string `json:"tool"`
	Repo       string `json:"repo"`
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Committed  bool   `json:"committed"`
	Root       string `json:"root,omitempty"`
	Listed     bool   `json:"listed"`
	ReleaseURL string `json:"release_url,omitempty"`
	Duration   string `json:"duration,omitempty"`
}

// RunReport records the outcome of one sync run.
type RunReport struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at,omitzero"`
	Status     string       `json:"status"`
	DryRun     bool         `json:"dry_run,omitempty"`
	Tools      []ToolResult `json:"tools"`
}

// NewReport starts a report with a fresh run ID.
func NewReport(now time.Time) *RunReport {
	return &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: now,
		Status:    StatusRunning,
		Tools:     []ToolResult{},
	}
}

func reportPath(stateDir string) string {
	return filepath.Join(stateDir, ReportFile)
}

// Load reads the last run report. A missing report is reported as
// fs.ErrNotExist.
func Load(stateDir string) (*RunReport, error) {
	data, err := os.ReadFile(reportPath(stateDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no run report in %s: %w", stateDir, err)
		}
		return nil, err
	}
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing run report: %w", err)
	}
	return &r, nil
}

// Save writes the report atomically, creating the state directory.
func (r *RunReport) Save(stateDir string) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(reportPath(stateDir), append(data, '\n'), 0644)
}

// Record appends a tool result.
func (r *RunReport) Record(result ToolResult) {
	r.Tools = append(r.Tools, result)
}

// Failed returns the results whose status is failed.
func (r *RunReport) Failed() []ToolResult {
	var out []ToolResult
	for _, t := range r.Tools {
		if t.Status == StatusFailed {
			out = append(out, t)
		}
	}
	return out
}

// Finish sets the final status. An interrupted run stays interrupted;
// otherwise the run failed if any tool failed.
func (r *RunReport) Finish(now time.Time, interrupted bool) {
	r.FinishedAt = now
	switch {
	case interrupted:
		r.Status = StatusInterrupted
	case len(r.Failed()) > 0:
		r.Status = StatusFailed
	default:
		r.Status = StatusCompleted
	}
}

// FormatDuration renders d as "1m 05s".
func FormatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %02ds", m, s)
}
