package github

import (
	"context"
	"fmt"
	"net/http"
)

// DispatchWorkflowRequest is the body of a workflow_dispatch trigger.
type DispatchWorkflowRequest struct {
	Ref    string            `json:"ref"`
	Inputs map[string]string `json:"inputs,omitempty"`
}

// EnableWorkflow enables an Actions workflow. workflowID is the file
// name (e.g. "update.yml") or numeric id.
func (client *Client) EnableWorkflow(ctx context.Context, owner, repo, workflowID string) error {
	path := fmt.Sprintf("/repos/%s/%s/actions/workflows/%s/enable", owner, repo, workflowID)
	if _, err := client.do(ctx, http.MethodPut, path, nil); err != nil {
		return fmt.Errorf("enabling workflow %s in %s/%s: %w", workflowID, owner, repo, err)
	}
	return nil
}

// DispatchWorkflow triggers a workflow run. GitHub answers 204 with no
// body; the run itself is not tracked.
func (client *Client) DispatchWorkflow(ctx context.Context, owner, repo, workflowID string, request DispatchWorkflowRequest) error {
	path := fmt.Sprintf("/repos/%s/%s/actions/workflows/%s/dispatches", owner, repo, workflowID)
	if _, err := client.do(ctx, http.MethodPost, path, request); err != nil {
		return fmt.Errorf("dispatching workflow %s in %s/%s: %w", workflowID, owner, repo, err)
	}
	return nil
}
