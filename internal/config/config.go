package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/install-pinned/pinfleet/internal/toolspec"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file looked up by the CLI.
const FileName = "pinfleet.yaml"

// WorkflowFile is the name of the generated update workflow.
const WorkflowFile = "update.yml"

type Config struct {
	Org              string   `yaml:"org"`
	Homepage         string   `yaml:"homepage"`
	Workspace        string   `yaml:"workspace"`
	Branch           string   `yaml:"branch"`
	AnchorTag        string   `yaml:"anchor-tag"`
	MajorTag         string   `yaml:"major-tag"`
	CloneURL         string   `yaml:"clone-url"`
	License          string   `yaml:"license"`
	PythonVersions   []string `yaml:"python-versions"`
	MinPythonVersion string   `yaml:"min-python-version"`
	PipToolsVersion  string   `yaml:"pip-tools-version"`
	Schedule         string   `yaml:"schedule"`
	CommitterName    string   `yaml:"committer-name"`
	CommitterEmail   string   `yaml:"committer-email"`
	Tools            []string `yaml:"tools"`
	ToolsFile        string   `yaml:"tools-file"`
	TokenFile        string   `yaml:"token-file"`
	APIURL           string   `yaml:"api-url"`
	WebURL           string   `yaml:"web-url"`
	VerifyAttempts   int      `yaml:"verify-attempts"`
	VerifyInterval   int      `yaml:"verify-interval"` // seconds

	// Specs is the parsed tool list, filled in by Validate.
	Specs []toolspec.Spec `yaml:"-"`
}

// Load reads a YAML config file, resolves paths relative to its
// directory, merges the tools file and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	cfg.Workspace = resolve(baseDir, cfg.Workspace)
	cfg.ToolsFile = resolve(baseDir, cfg.ToolsFile)
	cfg.TokenFile = resolve(baseDir, cfg.TokenFile)

	if cfg.ToolsFile != "" {
		tools, err := LoadTools(cfg.ToolsFile)
		if err != nil {
			return nil, err
		}
		cfg.Tools = append(cfg.Tools, tools...)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadTools reads a JSON array of tool identifiers. Comments and
// trailing commas are allowed.
func LoadTools(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading tools file: %w", err)
	}
	var tools []string
	if err := json.Unmarshal(jsonc.ToJSON(data), &tools); err != nil {
		return nil, fmt.Errorf("config: parsing tools file %s: %w", path, err)
	}
	return tools, nil
}

// Token returns the API token stored in the token file, if any.
func (c *Config) Token() (string, error) {
	if c.TokenFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// RepoCloneURL expands the clone-url template for a repository.
// $ORG and $REPO are substituted.
func (c *Config) RepoCloneURL(repo string) string {
	return os.Expand(c.CloneURL, func(key string) string {
		switch key {
		case "ORG":
			return c.Org
		case "REPO":
			return repo
		}
		return ""
	})
}

// RepoDir returns the local working copy path for a repository.
func (c *Config) RepoDir(repo string) string {
	return filepath.Join(c.Workspace, repo)
}

// StateDir returns where run reports are kept.
func (c *Config) StateDir() string {
	return filepath.Join(c.Workspace, ".pinfleet")
}

// SupportedPythonVersions returns the configured versions at or above
// the minimum, in configured order.
func (c *Config) SupportedPythonVersions() []string {
	var out []string
	for _, v := range c.PythonVersions {
		if c.MinPythonVersion == "" || compareVersions(v, c.MinPythonVersion) >= 0 {
			out = append(out, v)
		}
	}
	return out
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// compareVersions compares dotted numeric versions. Inputs are assumed
// valid (see Validate).
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var x, y int
		if i < len(as) {
			x, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			y, _ = strconv.Atoi(bs[i])
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}
