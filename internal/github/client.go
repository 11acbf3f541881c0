package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/install-pinned/pinfleet/internal/clock"
)

const (
	apiVersion      = "2022-11-28"
	defaultBaseURL  = "https://api.github.com"
	defaultWebURL   = "https://github.com"
	maxResponseSize = 8 << 20
)

// Config holds configuration for NewClient.
type Config struct {
	// BaseURL is the REST API root. Defaults to https://api.github.com.
	// Must use HTTPS.
	BaseURL string

	// WebURL is the public site root used for Marketplace lookups.
	// Defaults to https://github.com. Must use HTTPS.
	WebURL string

	// Token is a personal access or fine-grained token. It may be empty
	// for read-only use of MarketplaceListed.
	Token string

	HTTPClient *http.Client
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Client is a GitHub REST API client.
type Client struct {
	baseURL    string
	webURL     string
	token      string
	httpClient *http.Client
	rateLimit  *rateLimitTracker
	clock      clock.Clock
	logger     *slog.Logger
}

// NewClient creates a client. It refuses non-HTTPS URLs.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(orDefault(config.BaseURL, defaultBaseURL), "/")
	webURL := strings.TrimRight(orDefault(config.WebURL, defaultWebURL), "/")
	for _, u := range []string{baseURL, webURL} {
		if !strings.HasPrefix(u, "https://") {
			return nil, fmt.Errorf("github: client requires HTTPS (got %q)", u)
		}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		webURL:     webURL,
		token:      config.Token,
		httpClient: httpClient,
		rateLimit:  newRateLimitTracker(clk),
		clock:      clk,
		logger:     logger,
	}, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// do executes an authenticated API request, JSON-encoding requestBody
// when non-nil. Non-2xx responses are returned as *APIError. A rate
// limited request is retried once after the advertised backoff.
func (client *Client) do(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	return client.doWithRetry(ctx, method, path, requestBody, false)
}

func (client *Client) doWithRetry(ctx context.Context, method, path string, requestBody any, isRetry bool) ([]byte, error) {
	if err := client.rateLimit.wait(ctx); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("github: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	url := client.baseURL + path
	request, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("github: creating request: %w", err)
	}
	if client.token != "" {
		request.Header.Set("Authorization", "Bearer "+client.token)
	}
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", apiVersion)
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("github: %s %s: %w", method, url, err)
	}
	defer response.Body.Close()
	client.rateLimit.update(response.Header)

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("github: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		if !isRetry && (response.StatusCode == 429 || (response.StatusCode == 403 && isRateLimitMessage(string(body)))) {
			if backoff := client.rateLimit.retryAfter(response.Header); backoff > 0 {
				client.logger.Info("rate limited, backing off",
					"duration", backoff,
					"method", method,
					"path", path,
				)
				select {
				case <-client.clock.After(backoff):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				return client.doWithRetry(ctx, method, path, requestBody, true)
			}
		}
		return nil, parseAPIError(response.StatusCode, body)
	}

	client.logger.Debug("github request", "method", method, "path", path, "status", response.StatusCode)
	return body, nil
}

func parseAPIError(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}
	var wire struct {
		Message          string            `json:"message"`
		DocumentationURL string            `json:"documentation_url"`
		Errors           []ValidationError `json:"errors"`
	}
	if json.Unmarshal(body, &wire) == nil && wire.Message != "" {
		apiError.Message = wire.Message
		apiError.DocumentationURL = wire.DocumentationURL
		apiError.Errors = wire.Errors
	} else {
		apiError.Message = string(body)
	}
	return apiError
}
