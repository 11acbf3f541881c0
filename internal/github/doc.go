// Package github is a small typed client for the parts of the GitHub REST
// API that fleet synchronization needs: organization repository creation,
// repository settings, Actions workflow enablement and dispatch, plus the
// public Marketplace listing page.
//
// Requests carry a bearer token, the pinned API version header, and back
// off once when GitHub reports a rate limit. Non-2xx responses become
// *APIError values that callers classify with IsAlreadyExists,
// IsNotFound and IsRateLimited.
package github
