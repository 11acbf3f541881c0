package activate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/install-pinned/pinfleet/internal/clock"
	"github.com/install-pinned/pinfleet/internal/config"
	"github.com/install-pinned/pinfleet/internal/github"
)

type fakePlatform struct {
	enabled    []string
	dispatched []string
	listedOn   int // attempt on which the listing appears; 0 = never
	lookups    int
	lookupErr  error
}

func (f *fakePlatform) EnableWorkflow(ctx context.Context, owner, repo, workflowID string) error {
	f.enabled = append(f.enabled, owner+"/"+repo+"/"+workflowID)
	return nil
}

func (f *fakePlatform) DispatchWorkflow(ctx context.Context, owner, repo, workflowID string, request github.DispatchWorkflowRequest) error {
	f.dispatched = append(f.dispatched, owner+"/"+repo+"/"+workflowID+"@"+request.Ref)
	return nil
}

func (f *fakePlatform) MarketplaceListed(ctx context.Context, slug string) (bool, error) {
	f.lookups++
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	return f.listedOn != 0 && f.lookups >= f.listedOn, nil
}

func (f *fakePlatform) MarketplaceURL(slug string) string {
	return "https://github.com/marketplace/actions/" + slug
}

func newActivator(t *testing.T, platform *fakePlatform, attempts, interval int) (*Activator, *clock.FakeClock) {
	t.Helper()
	cfg := &config.Config{
		Org:            "install-pinned",
		Workspace:      t.TempDir(),
		Tools:          []string{"black"},
		VerifyAttempts: attempts,
		VerifyInterval: interval,
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatal(err)
	}
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return &Activator{Platform: platform, Config: cfg, Clock: fake}, fake
}

func TestEnableAndDispatch(t *testing.T) {
	platform := &fakePlatform{}
	a, _ := newActivator(t, platform, 1, 0)
	ctx := context.Background()

	if err := a.Enable(ctx, "black"); err != nil {
		t.Fatal(err)
	}
	if err := a.Dispatch(ctx, "black"); err != nil {
		t.Fatal(err)
	}
	if len(platform.enabled) != 1 || platform.enabled[0] != "install-pinned/black/update.yml" {
		t.Fatalf("enabled = %v", platform.enabled)
	}
	if len(platform.dispatched) != 1 || platform.dispatched[0] != "install-pinned/black/update.yml@main" {
		t.Fatalf("dispatched = %v", platform.dispatched)
	}
}

func TestVerify_Listed(t *testing.T) {
	platform := &fakePlatform{listedOn: 1}
	a, _ := newActivator(t, platform, 3, 10)

	listing, err := a.Verify(context.Background(), "black")
	if err != nil {
		t.Fatal(err)
	}
	if !listing.Listed || listing.Attempts != 1 {
		t.Fatalf("listing = %+v", listing)
	}
	if listing.URL != "https://github.com/marketplace/actions/install-pinned-black" {
		t.Fatalf("URL = %q", listing.URL)
	}
}

func TestVerify_NotListedReportsReleaseURL(t *testing.T) {
	platform := &fakePlatform{}
	a, fake := newActivator(t, platform, 1, 10)

	listing, err := a.Verify(context.Background(), "black")
	if err != nil {
		t.Fatal(err)
	}
	if listing.Listed {
		t.Fatal("unexpectedly listed")
	}
	want := "https://github.com/install-pinned/black/releases/new?tag=add-commit-hash-here"
	if listing.ReleaseURL != want {
		t.Fatalf("ReleaseURL = %q, want %q", listing.ReleaseURL, want)
	}
	if len(fake.Waits()) != 0 {
		t.Fatalf("single attempt should not wait, waits = %v", fake.Waits())
	}
	if len(platform.enabled)+len(platform.dispatched) != 0 {
		t.Fatal("verify mutated state")
	}
}

func TestVerify_PollsUntilListed(t *testing.T) {
	platform := &fakePlatform{listedOn: 3}
	a, fake := newActivator(t, platform, 5, 30)

	listing, err := a.Verify(context.Background(), "black")
	if err != nil {
		t.Fatal(err)
	}
	if !listing.Listed || listing.Attempts != 3 {
		t.Fatalf("listing = %+v", listing)
	}
	waits := fake.Waits()
	if len(waits) != 2 || waits[0] != 30*time.Second || waits[1] != 30*time.Second {
		t.Fatalf("waits = %v", waits)
	}
}

func TestVerify_GivesUpAfterAttempts(t *testing.T) {
	platform := &fakePlatform{}
	a, fake := newActivator(t, platform, 3, 5)

	listing, err := a.Verify(context.Background(), "black")
	if err != nil {
		t.Fatal(err)
	}
	if listing.Listed || platform.lookups != 3 || len(fake.Waits()) != 2 {
		t.Fatalf("listing = %+v lookups = %d waits = %v", listing, platform.lookups, fake.Waits())
	}
}

func TestVerify_LookupError(t *testing.T) {
	platform := &fakePlatform{lookupErr: errors.New("connection refused")}
	a, _ := newActivator(t, platform, 3, 5)
	if _, err := a.Verify(context.Background(), "black"); err == nil {
		t.Fatal("expected error")
	}
}

func TestVerify_Cancelled(t *testing.T) {
	platform := &fakePlatform{}
	a, _ := newActivator(t, platform, 3, 5)
	a.Clock = blockingClock{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Verify(ctx, "black"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

type blockingClock struct{}

func (blockingClock) Now() time.Time                         { return time.Time{} }
func (blockingClock) After(d time.Duration) <-chan time.Time { return make(chan time.Time) }
