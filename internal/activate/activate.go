// Package activate turns on the update workflow of an action repository,
// triggers its first run and checks whether the action is listed on the
// Marketplace.
package activate

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/install-pinned/pinfleet/internal/clock"
	"github.com/install-pinned/pinfleet/internal/config"
	"github.com/install-pinned/pinfleet/internal/github"
)

// Platform is the subset of the hosting API used here. *github.Client
// satisfies it.
type Platform interface {
	EnableWorkflow(ctx context.Context, owner, repo, workflowID string) error
	DispatchWorkflow(ctx context.Context, owner, repo, workflowID string, request github.DispatchWorkflowRequest) error
	MarketplaceListed(ctx context.Context, slug string) (bool, error)
	MarketplaceURL(slug string) string
}

// Listing is the Marketplace status of one repository.
type Listing struct {
	Repo       string
	Listed     bool
	URL        string // Marketplace page
	ReleaseURL string // where to draft the first release when unlisted
	Attempts   int
}

type Activator struct {
	Platform Platform
	Config   *config.Config
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Slug is the Marketplace identifier of a repository's action.
func (a *Activator) Slug(repo string) string {
	return a.Config.Org + "-" + repo
}

// ReleaseURL is the page for drafting a release from the anchor tag.
func (a *Activator) ReleaseURL(repo string) string {
	return fmt.Sprintf("%s/%s/%s/releases/new?tag=%s",
		a.Config.WebURL, a.Config.Org, repo, url.QueryEscape(a.Config.AnchorTag))
}

// Enable enables the update workflow.
func (a *Activator) Enable(ctx context.Context, repo string) error {
	return a.Platform.EnableWorkflow(ctx, a.Config.Org, repo, config.WorkflowFile)
}

// Dispatch triggers one run of the update workflow on the branch.
func (a *Activator) Dispatch(ctx context.Context, repo string) error {
	return a.Platform.DispatchWorkflow(ctx, a.Config.Org, repo, config.WorkflowFile,
		github.DispatchWorkflowRequest{Ref: a.Config.Branch})
}

// Verify looks the action up on the Marketplace, polling up to
// verify-attempts times. It never changes anything remotely.
func (a *Activator) Verify(ctx context.Context, repo string) (Listing, error) {
	slug := a.Slug(repo)
	listing := Listing{
		Repo:       repo,
		URL:        a.Platform.MarketplaceURL(slug),
		ReleaseURL: a.ReleaseURL(repo),
	}
	attempts := a.Config.VerifyAttempts
	if attempts < 1 {
		attempts = 1
	}
	interval := time.Duration(a.Config.VerifyInterval) * time.Second

	for i := 1; i <= attempts; i++ {
		listing.Attempts = i
		listed, err := a.Platform.MarketplaceListed(ctx, slug)
		if err != nil {
			return listing, fmt.Errorf("checking marketplace listing for %s: %w", repo, err)
		}
		if listed {
			listing.Listed = true
			return listing, nil
		}
		if i == attempts {
			break
		}
		a.logger().Debug("not listed yet", "repo", repo, "attempt", i, "wait", interval)
		select {
		case <-a.clock().After(interval):
		case <-ctx.Done():
			return listing, ctx.Err()
		}
	}
	return listing, nil
}

func (a *Activator) clock() clock.Clock {
	if a.Clock == nil {
		return clock.Real()
	}
	return a.Clock
}

func (a *Activator) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}
