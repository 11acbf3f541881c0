// Package fleet drives synchronization of every tool in the fleet, one
// tool at a time. A failing tool is recorded and the run moves on; the
// run report is saved after each tool.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/install-pinned/pinfleet/internal/activate"
	"github.com/install-pinned/pinfleet/internal/clock"
	"github.com/install-pinned/pinfleet/internal/config"
	"github.com/install-pinned/pinfleet/internal/continuity"
	"github.com/install-pinned/pinfleet/internal/github"
	"github.com/install-pinned/pinfleet/internal/reconcile"
	"github.com/install-pinned/pinfleet/internal/release"
	"github.com/install-pinned/pinfleet/internal/render"
	"github.com/install-pinned/pinfleet/internal/state"
	"github.com/install-pinned/pinfleet/internal/toolspec"
	"github.com/install-pinned/pinfleet/internal/ux"
)

// Platform is everything the runner asks of the hosting service.
type Platform interface {
	reconcile.Platform
	activate.Platform
}

var _ Platform = (*github.Client)(nil)

// Options select tools and stages for a run.
type Options struct {
	Only         string // doublestar pattern matched against repository names
	SkipRemote   bool
	SkipActivate bool
	DryRun       bool
}

// Runner synchronizes the fleet.
type Runner struct {
	Config   *config.Config
	Platform Platform
	Options  Options
	Clock    clock.Clock
	Logger   *slog.Logger
}

// ErrToolsFailed is returned by Run when at least one tool failed.
var ErrToolsFailed = errors.New("tools failed")

func (r *Runner) clock() clock.Clock {
	if r.Clock == nil {
		return clock.Real()
	}
	return r.Clock
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Select returns the configured tools whose repository name matches
// Options.Only, in configured order.
func (r *Runner) Select() ([]toolspec.Spec, error) {
	return Filter(r.Config.Specs, r.Options.Only)
}

// Filter keeps specs whose repository name matches pattern. An empty
// pattern keeps everything.
func Filter(specs []toolspec.Spec, pattern string) ([]toolspec.Spec, error) {
	if pattern == "" {
		return specs, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid --only pattern %q", pattern)
	}
	var out []toolspec.Spec
	for _, s := range specs {
		ok, err := doublestar.Match(pattern, s.RepoName)
		if err != nil {
			return nil, fmt.Errorf("matching %q: %w", pattern, err)
		}
		if ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no tools match %q", pattern)
	}
	return out, nil
}

func (r *Runner) reconciler() *reconcile.Reconciler {
	return &reconcile.Reconciler{Platform: r.Platform, Config: r.Config, Logger: r.logger()}
}

func (r *Runner) activator() *activate.Activator {
	return &activate.Activator{Platform: r.Platform, Config: r.Config, Clock: r.clock(), Logger: r.logger()}
}

// Run synchronizes every selected tool. The returned report is complete
// even when an error is returned: ErrToolsFailed when some tool failed,
// or the context error when the run was interrupted.
func (r *Runner) Run(ctx context.Context) (*state.RunReport, error) {
	specs, err := r.Select()
	if err != nil {
		return nil, err
	}

	report := state.NewReport(r.clock().Now())
	report.DryRun = r.Options.DryRun
	stateDir := r.Config.StateDir()
	r.save(report, stateDir)
	r.logger().Info("sync started", "run_id", report.RunID, "tools", len(specs), "dry_run", r.Options.DryRun)

	interrupted := false
	for i, spec := range specs {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		ux.ToolHeader(i, len(specs), spec.Raw, spec.RepoName)
		result := r.syncTool(ctx, i, spec)
		if ctx.Err() != nil && result.Status == state.StatusFailed {
			result.Status = state.StatusInterrupted
			interrupted = true
		}
		report.Record(result)
		r.save(report, stateDir)
		if interrupted {
			break
		}
	}

	report.Finish(r.clock().Now(), interrupted)
	r.save(report, stateDir)
	ux.Summary(report)
	r.logger().Info("sync finished", "run_id", report.RunID, "status", report.Status)

	switch {
	case interrupted:
		return report, ctx.Err()
	case report.Status == state.StatusFailed:
		return report, fmt.Errorf("%d of %d %w", len(report.Failed()), len(report.Tools), ErrToolsFailed)
	}
	return report, nil
}

func (r *Runner) save(report *state.RunReport, stateDir string) {
	if err := report.Save(stateDir); err != nil {
		r.logger().Warn("failed to save run report", "error", err)
	}
}

// syncTool runs every stage for one tool and never returns an error:
// failures are folded into the result.
func (r *Runner) syncTool(ctx context.Context, index int, spec toolspec.Spec) state.ToolResult {
	start := r.clock().Now()
	result := state.ToolResult{Tool: spec.Raw, Repo: spec.RepoName}
	log := r.logger().With("tool", spec.Raw, "repo", spec.RepoName)

	err := r.runStages(ctx, spec, &result, log)
	result.Duration = state.FormatDuration(r.clock().Now().Sub(start))
	if err != nil {
		result.Status = state.StatusFailed
		result.Error = err.Error()
		log.Error("tool failed", "stage", result.Stage, "error", err)
		ux.ToolFail(index, spec.Raw, result.Stage, err.Error())
		return result
	}
	result.Stage = state.StageDone
	result.Status = state.StatusCompleted
	ux.ToolComplete(index, result.Committed, r.clock().Now().Sub(start))
	return result
}

func (r *Runner) runStages(ctx context.Context, spec toolspec.Spec, result *state.ToolResult, log *slog.Logger) error {
	rec := r.reconciler()
	opts := r.Options

	result.Stage = state.StageRemote
	switch {
	case opts.DryRun:
		ux.StageSkip(state.StageRemote, "dry run")
	case opts.SkipRemote:
		ux.StageSkip(state.StageRemote, "--skip-remote")
	default:
		if err := rec.EnsureRemote(ctx, spec); err != nil {
			return err
		}
		ux.Stage(state.StageRemote, r.Config.Org+"/"+spec.RepoName)
	}

	result.Stage = state.StageClone
	repo, err := rec.PrepareWorkspace(ctx, spec)
	if err != nil {
		return err
	}
	ux.Stage(state.StageClone, repo.Dir())

	result.Stage = state.StageRender
	marker := continuity.Load(filepath.Join(repo.Dir(), render.ReadmePath))
	if marker.IsSentinel() {
		log.Debug("no release reference found, using placeholder")
	}
	files, err := render.Render(spec, marker, r.Config)
	if err != nil {
		return err
	}
	if err := reconcile.WriteFiles(repo.Dir(), files); err != nil {
		return err
	}
	ux.Stage(state.StageRender, fmt.Sprintf("%d files, release %s", len(files), marker.Commit[:12]))

	result.Stage = state.StageCommit
	if opts.DryRun {
		if err := repo.AddAll(ctx); err != nil {
			return err
		}
		dirty, err := repo.Dirty(ctx)
		if err != nil {
			return err
		}
		result.Committed = dirty
		ux.StageSkip(state.StageCommit, fmt.Sprintf("dry run, changes pending: %v", dirty))
		return nil
	}
	committed, err := rec.Commit(ctx, repo, reconcile.CommitMessage)
	if err != nil {
		return err
	}
	result.Committed = committed
	if committed {
		ux.Stage(state.StageCommit, reconcile.CommitMessage)
	} else {
		ux.Stage(state.StageCommit, "nothing to commit")
	}

	result.Stage = state.StagePublish
	manager := &release.Manager{Config: r.Config, Logger: log}
	root, err := manager.Publish(ctx, repo)
	if err != nil {
		return err
	}
	result.Root = root
	ux.Stage(state.StagePublish, fmt.Sprintf("%s, %s -> %s", r.Config.AnchorTag, r.Config.MajorTag, root[:12]))

	if opts.SkipActivate {
		ux.StageSkip(state.StageActivate, "--skip-activate")
		return nil
	}

	act := r.activator()
	result.Stage = state.StageActivate
	if err := act.Enable(ctx, spec.RepoName); err != nil {
		return err
	}
	if err := act.Dispatch(ctx, spec.RepoName); err != nil {
		return err
	}
	ux.Stage(state.StageActivate, config.WorkflowFile+" enabled and dispatched")

	result.Stage = state.StageVerify
	listing, err := act.Verify(ctx, spec.RepoName)
	if err != nil {
		return err
	}
	result.Listed = listing.Listed
	if !listing.Listed {
		result.ReleaseURL = listing.ReleaseURL
	}
	ux.Listing(spec.RepoName, listing.Listed, listing.URL, listing.ReleaseURL)
	return nil
}

// Verify checks the Marketplace listing of every selected tool without
// changing anything. Lookup errors are returned after all tools were
// checked.
func (r *Runner) Verify(ctx context.Context) ([]activate.Listing, error) {
	specs, err := r.Select()
	if err != nil {
		return nil, err
	}
	act := r.activator()
	var listings []activate.Listing
	var errs []error
	for _, spec := range specs {
		listing, err := act.Verify(ctx, spec.RepoName)
		if err != nil {
			if ctx.Err() != nil {
				return listings, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		listings = append(listings, listing)
		ux.Listing(spec.RepoName, listing.Listed, listing.URL, listing.ReleaseURL)
	}
	return listings, errors.Join(errs...)
}
