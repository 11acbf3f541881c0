// Package gittest creates throwaway git remotes for tests.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Identity used for seed commits.
const (
	Name  = "Test"
	Email = "test@test.local"
)

// NewRemote creates a bare repository at <root>/<name>.git whose main
// branch holds one commit adding LICENSE, mirroring a freshly created
// hosted repository. It returns the bare repository path.
func NewRemote(t *testing.T, root, name string) string {
	t.Helper()

	seed := filepath.Join(t.TempDir(), name)
	Git(t, "", "init", "--quiet", seed)
	Git(t, seed, "symbolic-ref", "HEAD", "refs/heads/main")
	if err := os.WriteFile(filepath.Join(seed, "LICENSE"), []byte("MIT License\n"), 0644); err != nil {
		t.Fatalf("write LICENSE: %v", err)
	}
	Git(t, seed, "add", "LICENSE")
	Git(t, seed, "-c", "user.name="+Name, "-c", "user.email="+Email, "commit", "--quiet", "-m", "Initial commit")

	bare := filepath.Join(root, name+".git")
	Git(t, "", "clone", "--quiet", "--bare", seed, bare)
	return bare
}

// Git runs git in dir (or the current directory when dir is empty) and
// returns trimmed stdout, failing the test on error.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	command := exec.Command("git", args...)
	command.Env = append(os.Environ(),
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_TERMINAL_PROMPT=0",
	)
	output, err := command.Output()
	if err != nil {
		var stderr string
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = string(exitErr.Stderr)
		}
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, stderr)
	}
	return strings.TrimSpace(string(output))
}
