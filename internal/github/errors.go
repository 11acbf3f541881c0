package github

import (
	"errors"
	"fmt"
	"strings"
)

// APIError represents a non-2xx response from the GitHub REST API.
type APIError struct {
	StatusCode       int
	Message          string
	DocumentationURL string
	Errors           []ValidationError
}

// ValidationError describes a field-level failure on a 422 response.
type ValidationError struct {
	Resource string `json:"resource"`
	Code     string `json:"code"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func (err *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "github: HTTP %d: %s", err.StatusCode, err.Message)
	for _, v := range err.Errors {
		if v.Message != "" {
			fmt.Fprintf(&b, "; %s.%s: %s", v.Resource, v.Field, v.Message)
		} else {
			fmt.Fprintf(&b, "; %s.%s: %s", v.Resource, v.Field, v.Code)
		}
	}
	return b.String()
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

// IsAlreadyExists reports whether err is GitHub refusing to create a
// resource because one with the same name exists.
func IsAlreadyExists(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) || apiError.StatusCode != 422 {
		return false
	}
	for _, v := range apiError.Errors {
		if v.Code == "already_exists" || strings.Contains(strings.ToLower(v.Message), "already exists") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(apiError.Message), "already exists")
}

// IsRateLimited reports whether err is a primary (403) or secondary
// (429) rate limit response.
func IsRateLimited(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.StatusCode == 429 || (apiError.StatusCode == 403 && isRateLimitMessage(apiError.Message))
}

func isRateLimitMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "rate limit") || strings.Contains(lower, "abuse detection")
}
