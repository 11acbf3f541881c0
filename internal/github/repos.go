package github

import (
	"context"
	"fmt"
	"net/http"
)

// CreateRepositoryRequest is the body of POST /orgs/{org}/repos.
type CreateRepositoryRequest struct {
	Name            string `json:"name"`
	LicenseTemplate string `json:"license_template,omitempty"`
}

// UpdateRepositoryRequest is the body of PATCH /repos/{owner}/{repo}.
// Pointer fields are omitted when nil so that only intended settings
// change.
type UpdateRepositoryRequest struct {
	Description *string `json:"description,omitempty"`
	Homepage    *string `json:"homepage,omitempty"`
	Private     *bool   `json:"private,omitempty"`
	HasIssues   *bool   `json:"has_issues,omitempty"`
	HasProjects *bool   `json:"has_projects,omitempty"`
	HasWiki     *bool   `json:"has_wiki,omitempty"`
}

// CreateOrgRepository creates a repository in an organization. A
// repository that already exists yields an error for which
// IsAlreadyExists is true.
func (client *Client) CreateOrgRepository(ctx context.Context, org string, request CreateRepositoryRequest) error {
	path := fmt.Sprintf("/orgs/%s/repos", org)
	if _, err := client.do(ctx, http.MethodPost, path, request); err != nil {
		return fmt.Errorf("creating repository %s/%s: %w", org, request.Name, err)
	}
	return nil
}

// UpdateRepository patches repository settings.
func (client *Client) UpdateRepository(ctx context.Context, owner, repo string, request UpdateRepositoryRequest) error {
	path := fmt.Sprintf("/repos/%s/%s", owner, repo)
	if _, err := client.do(ctx, http.MethodPatch, path, request); err != nil {
		return fmt.Errorf("updating repository %s/%s: %w", owner, repo, err)
	}
	return nil
}
