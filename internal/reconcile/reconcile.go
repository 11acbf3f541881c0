// Package reconcile brings one action repository to the desired state:
// the hosted repository exists with the right settings, a fresh working
// copy is cloned, the rendered files are written and a commit is made
// only when something changed.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/install-pinned/pinfleet/internal/config"
	"github.com/install-pinned/pinfleet/internal/git"
	"github.com/install-pinned/pinfleet/internal/github"
	"github.com/install-pinned/pinfleet/internal/render"
	"github.com/install-pinned/pinfleet/internal/toolspec"
)

// CommitMessage is used for every regeneration commit.
const CommitMessage = "update repository from template"

// Platform is the subset of the hosting API the reconciler needs.
// *github.Client satisfies it.
type Platform interface {
	CreateOrgRepository(ctx context.Context, org string, request github.CreateRepositoryRequest) error
	UpdateRepository(ctx context.Context, owner, repo string, request github.UpdateRepositoryRequest) error
}

type Reconciler struct {
	Platform Platform
	Config   *config.Config
	Logger   *slog.Logger
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Description is the repository description set for a tool.
func Description(spec toolspec.Spec) string {
	return fmt.Sprintf("Securely install the latest %s release from PyPI.", spec.Raw)
}

// EnsureRemote creates the repository if needed and then applies its
// metadata. An "already exists" refusal is not an error; the settings
// are patched either way.
func (r *Reconciler) EnsureRemote(ctx context.Context, spec toolspec.Spec) error {
	org := r.Config.Org
	err := r.Platform.CreateOrgRepository(ctx, org, github.CreateRepositoryRequest{
		Name:            spec.RepoName,
		LicenseTemplate: r.Config.License,
	})
	switch {
	case err == nil:
		r.logger().Info("repository created", "org", org, "repo", spec.RepoName)
	case github.IsAlreadyExists(err):
		r.logger().Debug("repository already exists", "org", org, "repo", spec.RepoName)
	default:
		return err
	}

	description := Description(spec)
	homepage := r.Config.Homepage
	no := false
	return r.Platform.UpdateRepository(ctx, org, spec.RepoName, github.UpdateRepositoryRequest{
		Description: &description,
		Homepage:    &homepage,
		Private:     &no,
		HasIssues:   &no,
		HasProjects: &no,
		HasWiki:     &no,
	})
}

// PrepareWorkspace discards any previous working copy of the tool's
// repository and clones it again from the remote.
func (r *Reconciler) PrepareWorkspace(ctx context.Context, spec toolspec.Spec) (*git.Repository, error) {
	dir := r.Config.RepoDir(spec.RepoName)
	if err := RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("removing stale working copy: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	url := r.Config.RepoCloneURL(spec.RepoName)
	r.logger().Debug("cloning", "url", url, "dir", dir)
	return git.Clone(ctx, url, dir, r.Config.Branch)
}

// RemoveAll removes path and everything below it. When removal fails on
// permissions, write bits are restored throughout the tree and removal
// is attempted once more.
func RemoveAll(path string) error {
	err := os.RemoveAll(path)
	if err == nil || !errors.Is(err, fs.ErrPermission) {
		return err
	}
	filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		mode := os.FileMode(0644)
		if d.IsDir() {
			mode = 0755
		}
		os.Chmod(p, mode)
		return nil
	})
	if parent := filepath.Dir(path); parent != path {
		if info, statErr := os.Stat(parent); statErr == nil && info.Mode().Perm()&0200 == 0 {
			os.Chmod(parent, info.Mode().Perm()|0700)
		}
	}
	return os.RemoveAll(path)
}

// WriteFiles writes every rendered file below dir, creating parent
// directories and replacing existing content.
func WriteFiles(dir string, files render.FileSet) error {
	for _, rel := range files.Paths() {
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", rel, err)
		}
		if err := os.WriteFile(target, []byte(render.Normalize(files[rel])), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", rel, err)
		}
	}
	return nil
}

// Commit stages everything and commits when the tree differs from HEAD.
// It reports whether a commit was made.
func (r *Reconciler) Commit(ctx context.Context, repo *git.Repository, message string) (bool, error) {
	if err := repo.AddAll(ctx); err != nil {
		return false, err
	}
	dirty, err := repo.Dirty(ctx)
	if err != nil {
		return false, err
	}
	if !dirty {
		return false, nil
	}
	who := git.Identity{Name: r.Config.CommitterName, Email: r.Config.CommitterEmail}
	if err := repo.Commit(ctx, message, who); err != nil {
		return false, err
	}
	return true, nil
}
