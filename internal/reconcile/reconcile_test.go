package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/install-pinned/pinfleet/internal/config"
	"github.com/install-pinned/pinfleet/internal/git/gittest"
	"github.com/install-pinned/pinfleet/internal/github"
	"github.com/install-pinned/pinfleet/internal/render"
	"github.com/install-pinned/pinfleet/internal/toolspec"
)

type fakePlatform struct {
	createErr error
	updateErr error
	created   []string
	updated   map[string]github.UpdateRepositoryRequest
}

func (f *fakePlatform) CreateOrgRepository(ctx context.Context, org string, request github.CreateRepositoryRequest) error {
	f.created = append(f.created, org+"/"+request.Name+"@"+request.LicenseTemplate)
	return f.createErr
}

func (f *fakePlatform) UpdateRepository(ctx context.Context, owner, repo string, request github.UpdateRepositoryRequest) error {
	if f.updated == nil {
		f.updated = make(map[string]github.UpdateRepositoryRequest)
	}
	f.updated[owner+"/"+repo] = request
	return f.updateErr
}

func testConfig(t *testing.T, remotes string, tools ...string) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Org:       "install-pinned",
		Workspace: filepath.Join(t.TempDir(), "repos"),
		CloneURL:  filepath.Join(remotes, "${REPO}.git"),
		Tools:     tools,
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func mustParse(t *testing.T, raw string) toolspec.Spec {
	t.Helper()
	spec, err := toolspec.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return spec
}

func TestEnsureRemote_CreatesAndPatches(t *testing.T) {
	platform := &fakePlatform{}
	r := &Reconciler{Platform: platform, Config: testConfig(t, t.TempDir(), "black")}

	if err := r.EnsureRemote(context.Background(), mustParse(t, "black")); err != nil {
		t.Fatal(err)
	}
	if len(platform.created) != 1 || platform.created[0] != "install-pinned/black@mit" {
		t.Fatalf("created = %v", platform.created)
	}
	patch, ok := platform.updated["install-pinned/black"]
	if !ok {
		t.Fatal("repository not patched")
	}
	if *patch.Description != "Securely install the latest black release from PyPI." {
		t.Errorf("description = %q", *patch.Description)
	}
	if *patch.Homepage != "https://github.com/install-pinned" {
		t.Errorf("homepage = %q", *patch.Homepage)
	}
	for name, v := range map[string]*bool{
		"private":      patch.Private,
		"has_issues":   patch.HasIssues,
		"has_projects": patch.HasProjects,
		"has_wiki":     patch.HasWiki,
	} {
		if v == nil || *v {
			t.Errorf("%s should be false", name)
		}
	}
}

func TestEnsureRemote_AlreadyExistsStillPatches(t *testing.T) {
	platform := &fakePlatform{createErr: &github.APIError{
		StatusCode: 422,
		Message:    "Repository creation failed.",
		Errors:     []github.ValidationError{{Resource: "Repository", Field: "name", Message: "name already exists on this account"}},
	}}
	r := &Reconciler{Platform: platform, Config: testConfig(t, t.TempDir(), "black")}

	if err := r.EnsureRemote(context.Background(), mustParse(t, "black")); err != nil {
		t.Fatalf("already-exists should be swallowed, got %v", err)
	}
	if _, ok := platform.updated["install-pinned/black"]; !ok {
		t.Fatal("existing repository not patched")
	}
}

func TestEnsureRemote_CreateFailure(t *testing.T) {
	platform := &fakePlatform{createErr: &github.APIError{StatusCode: 502, Message: "Bad Gateway"}}
	r := &Reconciler{Platform: platform, Config: testConfig(t, t.TempDir(), "black")}

	err := r.EnsureRemote(context.Background(), mustParse(t, "black"))
	var apiErr *github.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 502 {
		t.Fatalf("expected 502 APIError, got %v", err)
	}
	if len(platform.updated) != 0 {
		t.Fatal("patched after failed creation")
	}
}

func TestEnsureRemote_PatchFailure(t *testing.T) {
	platform := &fakePlatform{updateErr: errors.New("boom")}
	r := &Reconciler{Platform: platform, Config: testConfig(t, t.TempDir(), "black")}
	if err := r.EnsureRemote(context.Background(), mustParse(t, "black")); err == nil {
		t.Fatal("expected patch error")
	}
}

func TestPrepareWorkspace_ReplacesStaleClone(t *testing.T) {
	remotes := t.TempDir()
	gittest.NewRemote(t, remotes, "black")
	cfg := testConfig(t, remotes, "black")
	r := &Reconciler{Config: cfg}

	stale := filepath.Join(cfg.RepoDir("black"), "locked")
	if err := os.MkdirAll(stale, 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(stale, "junk"), []byte("x"), 0444)
	os.Chmod(stale, 0555)

	repo, err := r.PrepareWorkspace(context.Background(), mustParse(t, "black"))
	if err != nil {
		t.Fatalf("PrepareWorkspace: %v", err)
	}
	if repo.Dir() != cfg.RepoDir("black") {
		t.Fatalf("dir = %s", repo.Dir())
	}
	if _, err := os.Stat(filepath.Join(repo.Dir(), "locked")); !os.IsNotExist(err) {
		t.Fatal("stale content survived")
	}
	if _, err := os.Stat(filepath.Join(repo.Dir(), "LICENSE")); err != nil {
		t.Fatalf("clone incomplete: %v", err)
	}
}

func TestPrepareWorkspace_MissingRemote(t *testing.T) {
	cfg := testConfig(t, t.TempDir(), "black")
	r := &Reconciler{Config: cfg}
	if _, err := r.PrepareWorkspace(context.Background(), mustParse(t, "black")); err == nil {
		t.Fatal("expected clone failure")
	}
}

func TestRemoveAll_Missing(t *testing.T) {
	if err := RemoveAll(filepath.Join(t.TempDir(), "nothing")); err != nil {
		t.Fatalf("RemoveAll on missing path: %v", err)
	}
}

func TestWriteFilesAndCommit(t *testing.T) {
	ctx := context.Background()
	remotes := t.TempDir()
	gittest.NewRemote(t, remotes, "black")
	cfg := testConfig(t, remotes, "black")
	r := &Reconciler{Config: cfg}
	spec := mustParse(t, "black")

	repo, err := r.PrepareWorkspace(ctx, spec)
	if err != nil {
		t.Fatal(err)
	}
	files := render.FileSet{
		"README.md":                    "# hi\r\n",
		".github/workflows/update.yml": "name: x\n",
	}
	if err := WriteFiles(repo.Dir(), files); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(repo.Dir(), "README.md"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "\r") {
		t.Fatalf("README has CR: %q", data)
	}

	committed, err := r.Commit(ctx, repo, CommitMessage)
	if err != nil {
		t.Fatal(err)
	}
	if !committed {
		t.Fatal("expected a commit for new files")
	}
	author := gittest.Git(t, repo.Dir(), "log", "-1", "--format=%an <%ae>")
	if author != "install-pinned bot <install-pinned@users.noreply.github.com>" {
		t.Fatalf("author = %q", author)
	}

	// Writing identical content again must not produce a commit.
	if err := WriteFiles(repo.Dir(), files); err != nil {
		t.Fatal(err)
	}
	committed, err = r.Commit(ctx, repo, CommitMessage)
	if err != nil {
		t.Fatal(err)
	}
	if committed {
		t.Fatal("empty commit created")
	}
	if n := gittest.Git(t, repo.Dir(), "rev-list", "--count", "HEAD"); n != "2" {
		t.Fatalf("commit count = %s, want 2", n)
	}
}
