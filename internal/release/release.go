// Package release moves the anchor and major-version tags onto the root
// commit of an action repository and publishes them with the branch.
//
// Both tags always name the parentless first commit. The anchor tag is
// what a maintainer drafts a Marketplace release from; the major tag is
// what users reference. Pins are advanced by the repository's own
// workflow through the README reference, not by moving tags forward.
package release

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/install-pinned/pinfleet/internal/config"
	"github.com/install-pinned/pinfleet/internal/git"
)

// Remote is the name of the remote the working copy was cloned from.
const Remote = "origin"

// Publisher is the part of a git working copy Publish drives.
// *git.Repository satisfies it.
type Publisher interface {
	RootCommit(ctx context.Context) (string, error)
	ForceTag(ctx context.Context, name, commit string) error
	PushForce(ctx context.Context, remote string, refs ...string) error
}

var _ Publisher = (*git.Repository)(nil)

type Manager struct {
	Config *config.Config
	Logger *slog.Logger
}

// Publish tags the root commit with the anchor and major tags, then
// force-pushes the branch and both tags in one push. It returns the
// root commit.
func (m *Manager) Publish(ctx context.Context, repo Publisher) (string, error) {
	root, err := repo.RootCommit(ctx)
	if err != nil {
		return "", fmt.Errorf("finding root commit: %w", err)
	}
	for _, tag := range []string{m.Config.AnchorTag, m.Config.MajorTag} {
		if err := repo.ForceTag(ctx, tag, root); err != nil {
			return "", fmt.Errorf("tagging %s: %w", tag, err)
		}
	}
	if err := repo.PushForce(ctx, Remote, m.Config.Branch, m.Config.AnchorTag, m.Config.MajorTag); err != nil {
		return "", fmt.Errorf("pushing: %w", err)
	}
	if m.Logger != nil {
		m.Logger.Debug("published", "root", root, "anchor", m.Config.AnchorTag, "major", m.Config.MajorTag)
	}
	return root, nil
}
