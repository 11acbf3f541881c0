package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/install-pinned/pinfleet/internal/clock"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

// newTestServer records every request and answers with handler.
func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			json.Unmarshal(data, &rec.Body)
		}
		requests = append(requests, rec)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func newTestClient(t *testing.T, server *httptest.Server, clk clock.Clock) *Client {
	t.Helper()
	if clk == nil {
		clk = clock.Real()
	}
	client, err := NewClient(Config{
		BaseURL:    server.URL,
		WebURL:     server.URL,
		Token:      "test-token",
		HTTPClient: server.Client(),
		Clock:      clk,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClient_HTTPSEnforcement(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://api.github.com", Token: "x"})
	if err == nil || !strings.Contains(err.Error(), "requires HTTPS") {
		t.Fatalf("expected HTTPS error, got %v", err)
	}
	_, err = NewClient(Config{WebURL: "http://github.com", Token: "x"})
	if err == nil {
		t.Fatal("expected HTTPS error for web URL")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if client.baseURL != "https://api.github.com" || client.webURL != "https://github.com" {
		t.Fatalf("urls = %q, %q", client.baseURL, client.webURL)
	}
	if got := client.MarketplaceURL("install-pinned-black"); got != "https://github.com/marketplace/actions/install-pinned-black" {
		t.Fatalf("MarketplaceURL = %q", got)
	}
}

func TestClient_Headers(t *testing.T) {
	var accept, version string
	server, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		version = r.Header.Get("X-GitHub-Api-Version")
		w.WriteHeader(http.StatusCreated)
	})
	client := newTestClient(t, server, nil)
	if err := client.CreateOrgRepository(context.Background(), "org", CreateRepositoryRequest{Name: "black"}); err != nil {
		t.Fatal(err)
	}
	if accept != "application/vnd.github+json" {
		t.Errorf("Accept = %q", accept)
	}
	if version != "2022-11-28" {
		t.Errorf("X-GitHub-Api-Version = %q", version)
	}
}

func TestCreateOrgRepository(t *testing.T) {
	server, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"name":"black"}`))
	})
	client := newTestClient(t, server, nil)

	err := client.CreateOrgRepository(context.Background(), "install-pinned", CreateRepositoryRequest{Name: "black", LicenseTemplate: "mit"})
	if err != nil {
		t.Fatal(err)
	}
	req := (*requests)[0]
	if req.Method != http.MethodPost || req.Path != "/orgs/install-pinned/repos" {
		t.Fatalf("request = %s %s", req.Method, req.Path)
	}
	if req.Auth != "Bearer test-token" {
		t.Fatalf("Authorization = %q", req.Auth)
	}
	if req.Body["name"] != "black" || req.Body["license_template"] != "mit" {
		t.Fatalf("body = %v", req.Body)
	}
}

func TestCreateOrgRepository_AlreadyExists(t *testing.T) {
	server, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"Repository creation failed.","errors":[{"resource":"Repository","code":"custom","field":"name","message":"name already exists on this account"}]}`))
	})
	client := newTestClient(t, server, nil)

	err := client.CreateOrgRepository(context.Background(), "org", CreateRepositoryRequest{Name: "black"})
	if !IsAlreadyExists(err) {
		t.Fatalf("expected already-exists error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Repository.name: name already exists") {
		t.Fatalf("error = %v", err)
	}
}

func TestUpdateRepository(t *testing.T) {
	server, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	client := newTestClient(t, server, nil)

	desc := "Securely install the latest black release from PyPI."
	no := false
	err := client.UpdateRepository(context.Background(), "org", "black", UpdateRepositoryRequest{
		Description: &desc,
		Private:     &no,
		HasWiki:     &no,
	})
	if err != nil {
		t.Fatal(err)
	}
	req := (*requests)[0]
	if req.Method != http.MethodPatch || req.Path != "/repos/org/black" {
		t.Fatalf("request = %s %s", req.Method, req.Path)
	}
	if req.Body["description"] != desc || req.Body["private"] != false || req.Body["has_wiki"] != false {
		t.Fatalf("body = %v", req.Body)
	}
	if _, ok := req.Body["homepage"]; ok {
		t.Fatal("nil homepage should be omitted")
	}
}

func TestEnableAndDispatchWorkflow(t *testing.T) {
	server, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, server, nil)
	ctx := context.Background()

	if err := client.EnableWorkflow(ctx, "org", "black", "update.yml"); err != nil {
		t.Fatal(err)
	}
	if err := client.DispatchWorkflow(ctx, "org", "black", "update.yml", DispatchWorkflowRequest{Ref: "main"}); err != nil {
		t.Fatal(err)
	}
	reqs := *requests
	if reqs[0].Method != http.MethodPut || reqs[0].Path != "/repos/org/black/actions/workflows/update.yml/enable" {
		t.Fatalf("enable = %s %s", reqs[0].Method, reqs[0].Path)
	}
	if reqs[1].Method != http.MethodPost || reqs[1].Path != "/repos/org/black/actions/workflows/update.yml/dispatches" {
		t.Fatalf("dispatch = %s %s", reqs[1].Method, reqs[1].Path)
	}
	if reqs[1].Body["ref"] != "main" {
		t.Fatalf("dispatch body = %v", reqs[1].Body)
	}
}

func TestDispatchWorkflow_NotFound(t *testing.T) {
	server, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	})
	client := newTestClient(t, server, nil)
	err := client.DispatchWorkflow(context.Background(), "org", "black", "update.yml", DispatchWorkflowRequest{Ref: "main"})
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClient_RateLimitBackoff(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	count := 0
	server, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		count++
		if count == 1 {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"message":"API rate limit exceeded"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, server, fake)

	if err := client.EnableWorkflow(context.Background(), "org", "black", "update.yml"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if count != 2 {
		t.Fatalf("requests = %d, want 2", count)
	}
	waits := fake.Waits()
	if len(waits) != 1 || waits[0] != 30*time.Second {
		t.Fatalf("waits = %v", waits)
	}
}

func TestClient_RateLimitRetriesOnce(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	count := 0
	server, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		count++
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"You have exceeded a secondary rate limit"}`))
	})
	client := newTestClient(t, server, fake)

	err := client.EnableWorkflow(context.Background(), "org", "black", "update.yml")
	if !IsRateLimited(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if count != 2 {
		t.Fatalf("requests = %d, want 2", count)
	}
}

func TestClient_PreemptiveWait(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	reset := fake.Now().Add(10 * time.Second)
	server, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprint(reset.Unix()))
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, server, fake)
	ctx := context.Background()

	if err := client.EnableWorkflow(ctx, "o", "r", "w"); err != nil {
		t.Fatal(err)
	}
	if err := client.EnableWorkflow(ctx, "o", "r", "w"); err != nil {
		t.Fatal(err)
	}
	waits := fake.Waits()
	if len(waits) != 1 || waits[0] != 10*time.Second {
		t.Fatalf("waits = %v", waits)
	}
}

func TestMarketplaceListed(t *testing.T) {
	server, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/marketplace/actions/install-pinned-black" {
			w.Write([]byte("<html>"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	client := newTestClient(t, server, nil)
	ctx := context.Background()

	listed, err := client.MarketplaceListed(ctx, "install-pinned-black")
	if err != nil || !listed {
		t.Fatalf("listed = %v, err = %v", listed, err)
	}
	listed, err = client.MarketplaceListed(ctx, "install-pinned-mypy")
	if err != nil || listed {
		t.Fatalf("listed = %v, err = %v", listed, err)
	}
	if (*requests)[0].Auth != "" {
		t.Fatal("marketplace lookup must not send credentials")
	}
}

func TestAPIError_Classification(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", &APIError{StatusCode: 404, Message: "Not Found"})
	if !IsNotFound(wrapped) {
		t.Fatal("IsNotFound(wrapped 404) = false")
	}
	if IsAlreadyExists(wrapped) || IsRateLimited(wrapped) {
		t.Fatal("404 misclassified")
	}
	if !IsRateLimited(&APIError{StatusCode: 403, Message: "API rate limit exceeded for user"}) {
		t.Fatal("403 rate limit not detected")
	}
	if IsRateLimited(&APIError{StatusCode: 403, Message: "Resource not accessible by integration"}) {
		t.Fatal("permission 403 reported as rate limit")
	}
	if IsNotFound(errors.New("plain")) {
		t.Fatal("plain error reported as not found")
	}
}

func TestParseAPIError_NonJSONBody(t *testing.T) {
	err := parseAPIError(502, []byte("Bad Gateway"))
	if err.Message != "Bad Gateway" || err.Error() != "github: HTTP 502: Bad Gateway" {
		t.Fatalf("err = %v", err)
	}
}
