package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/install-pinned/pinfleet/internal/toolspec"
)

var (
	versionRe = regexp.MustCompile(`^\d+(\.\d+)*$`)
	orgRe     = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*$`)
	tagRe     = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]*$`)
)

var defaultPythonVersions = []string{"3.7", "3.8", "3.9", "3.10", "3.11"}

// Validate checks the config for errors and sets defaults.
func Validate(cfg *Config) error {
	if cfg.Org == "" {
		return fmt.Errorf("config: 'org' is required")
	}
	if !orgRe.MatchString(cfg.Org) {
		return fmt.Errorf("config: org %q is not a valid organization name", cfg.Org)
	}
	if cfg.Workspace == "" {
		return fmt.Errorf("config: 'workspace' is required")
	}

	if cfg.Homepage == "" {
		cfg.Homepage = "https://github.com/" + cfg.Org
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.AnchorTag == "" {
		cfg.AnchorTag = "add-commit-hash-here"
	}
	if cfg.MajorTag == "" {
		cfg.MajorTag = "v1"
	}
	if cfg.CloneURL == "" {
		cfg.CloneURL = "git@github.com:${ORG}/${REPO}.git"
	}
	if cfg.License == "" {
		cfg.License = "mit"
	}
	if len(cfg.PythonVersions) == 0 {
		cfg.PythonVersions = append([]string(nil), defaultPythonVersions...)
	}
	if cfg.PipToolsVersion == "" {
		cfg.PipToolsVersion = "6.9.0"
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "25 4,16 * * *"
	}
	if cfg.CommitterName == "" {
		cfg.CommitterName = cfg.Org + " bot"
	}
	if cfg.CommitterEmail == "" {
		cfg.CommitterEmail = cfg.Org + "@users.noreply.github.com"
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.github.com"
	}
	if cfg.WebURL == "" {
		cfg.WebURL = "https://github.com"
	}
	if cfg.VerifyAttempts == 0 {
		cfg.VerifyAttempts = 1
	}

	if cfg.VerifyAttempts < 0 {
		return fmt.Errorf("config: verify-attempts must be >= 0")
	}
	if cfg.VerifyInterval < 0 {
		return fmt.Errorf("config: verify-interval must be >= 0")
	}

	for _, tag := range []string{cfg.AnchorTag, cfg.MajorTag, cfg.Branch} {
		if !tagRe.MatchString(tag) || strings.Contains(tag, "..") {
			return fmt.Errorf("config: %q is not a valid git ref name", tag)
		}
	}
	if cfg.AnchorTag == cfg.MajorTag {
		return fmt.Errorf("config: anchor-tag and major-tag must differ")
	}

	if !strings.Contains(cfg.CloneURL, "$REPO") && !strings.Contains(cfg.CloneURL, "${REPO}") {
		return fmt.Errorf("config: clone-url %q must reference $REPO", cfg.CloneURL)
	}

	seen := make(map[string]bool)
	for _, v := range cfg.PythonVersions {
		if !versionRe.MatchString(v) {
			return fmt.Errorf("config: python-versions: %q is not a version", v)
		}
		if seen[v] {
			return fmt.Errorf("config: python-versions: duplicate version %q", v)
		}
		seen[v] = true
	}
	if cfg.MinPythonVersion != "" && !versionRe.MatchString(cfg.MinPythonVersion) {
		return fmt.Errorf("config: min-python-version: %q is not a version", cfg.MinPythonVersion)
	}
	if len(cfg.SupportedPythonVersions()) == 0 {
		return fmt.Errorf("config: no python-versions at or above min-python-version %s", cfg.MinPythonVersion)
	}
	if !versionRe.MatchString(cfg.PipToolsVersion) {
		return fmt.Errorf("config: pip-tools-version: %q is not a version", cfg.PipToolsVersion)
	}
	if len(strings.Fields(cfg.Schedule)) != 5 {
		return fmt.Errorf("config: schedule %q must be a 5-field cron expression", cfg.Schedule)
	}

	if len(cfg.Tools) == 0 {
		return fmt.Errorf("config: at least one tool is required")
	}
	specs, err := toolspec.ParseAll(cfg.Tools)
	if err != nil {
		return fmt.Errorf("config: tools: %w", err)
	}
	cfg.Specs = specs
	return nil
}
