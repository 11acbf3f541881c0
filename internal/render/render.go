// Package render produces the file set of a generated action repository.
// Rendering is pure: identical inputs yield byte-identical output.
package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/install-pinned/pinfleet/internal/config"
	"github.com/install-pinned/pinfleet/internal/continuity"
	"github.com/install-pinned/pinfleet/internal/toolspec"
	"gopkg.in/yaml.v3"
)

// Paths of the generated files, relative to the repository root.
const (
	ReadmePath       = "README.md"
	ActionPath       = "action.yml"
	WorkflowPath     = ".github/workflows/" + config.WorkflowFile
	RequirementsPath = "pins/requirements.in"
)

// FileSet maps relative paths to file contents.
type FileSet map[string]string

// Paths returns the file paths in sorted order.
func (fs FileSet) Paths() []string {
	paths := make([]string, 0, len(fs))
	for p := range fs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"yaml":  yamlQuote,
	"badge": badge,
}).Parse(""))

func init() {
	template.Must(templates.New(ReadmePath).Parse(readmeTemplate))
	template.Must(templates.New(ActionPath).Parse(actionTemplate))
	template.Must(templates.New(WorkflowPath).Parse(workflowTemplate))
}

type data struct {
	Org             string
	Repo            string
	Tool            string
	Package         string
	Release         string
	Homepage        string
	Branch          string
	Schedule        string
	PythonVersions  []string
	PipToolsVersion string
	CommitterName   string
	CommitterEmail  string
}

// Render builds the files for one tool.
func Render(spec toolspec.Spec, marker continuity.Marker, cfg *config.Config) (FileSet, error) {
	d := data{
		Org:             cfg.Org,
		Repo:            spec.RepoName,
		Tool:            spec.Raw,
		Package:         spec.PackageName,
		Release:         marker.String(),
		Homepage:        cfg.Homepage,
		Branch:          cfg.Branch,
		Schedule:        cfg.Schedule,
		PythonVersions:  cfg.SupportedPythonVersions(),
		PipToolsVersion: cfg.PipToolsVersion,
		CommitterName:   cfg.CommitterName,
		CommitterEmail:  cfg.CommitterEmail,
	}

	files := make(FileSet, 4)
	for _, name := range []string{ReadmePath, ActionPath, WorkflowPath} {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, name, d); err != nil {
			return nil, fmt.Errorf("rendering %s for %s: %w", name, spec.Raw, err)
		}
		files[name] = Normalize(buf.String())
	}
	files[RequirementsPath] = spec.Raw + "\n"
	return files, nil
}

// Normalize converts line endings to LF.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// yamlQuote renders s as a single-quoted YAML scalar so that no
// character in it is interpreted by YAML or, via env, by the shell.
func yamlQuote(s string) (string, error) {
	if strings.ContainsAny(s, "\r\n") {
		return "", fmt.Errorf("value %q spans multiple lines", s)
	}
	out, err := yaml.Marshal(&yaml.Node{Kind: yaml.ScalarNode, Style: yaml.SingleQuotedStyle, Value: s})
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

func badge(versions []string) string {
	return strings.Join(versions, "%20%7C%20")
}
