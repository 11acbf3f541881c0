package toolspec

import (
	"fmt"
	"regexp"
	"strings"
)

// Spec is one normalized entry of the declarative tool list.
type Spec struct {
	Raw         string   // identifier as written, e.g. "foo[bar,baz]"
	RepoName    string   // repository name, e.g. "foo-with-barbaz"
	PackageName string   // package name without extras, e.g. "foo"
	Extras      []string // extras in declaration order, deduplicated
}

var repoNameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// RepoName derives the repository name for a raw identifier.
func RepoName(raw string) string {
	r := strings.NewReplacer("[", "-with-", ",", "", "]", "")
	return r.Replace(raw)
}

// NameWithoutExtras strips an extras suffix: "foo[bar]" -> "foo".
func NameWithoutExtras(raw string) string {
	name, _, _ := strings.Cut(raw, "[")
	return name
}

// Parse validates a raw identifier and returns its normalized form.
func Parse(raw string) (Spec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Spec{}, fmt.Errorf("tool identifier is empty")
	}

	open := strings.Count(raw, "[")
	closing := strings.Count(raw, "]")
	if open != closing || open > 1 {
		return Spec{}, fmt.Errorf("tool %q: unbalanced extras brackets", raw)
	}

	spec := Spec{Raw: raw, PackageName: NameWithoutExtras(raw)}
	if spec.PackageName == "" {
		return Spec{}, fmt.Errorf("tool %q: missing package name", raw)
	}

	if open == 1 {
		start := strings.Index(raw, "[")
		end := strings.Index(raw, "]")
		if end < start {
			return Spec{}, fmt.Errorf("tool %q: unbalanced extras brackets", raw)
		}
		if end != len(raw)-1 {
			return Spec{}, fmt.Errorf("tool %q: unexpected text after extras", raw)
		}
		seen := make(map[string]bool)
		for _, extra := range strings.Split(raw[start+1:end], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				return Spec{}, fmt.Errorf("tool %q: empty extra", raw)
			}
			if seen[extra] {
				continue
			}
			seen[extra] = true
			spec.Extras = append(spec.Extras, extra)
		}
	} else if strings.Contains(raw, ",") {
		return Spec{}, fmt.Errorf("tool %q: extras must be wrapped in brackets", raw)
	}

	spec.RepoName = RepoName(raw)
	if !repoNameRe.MatchString(spec.RepoName) || spec.RepoName == "." || spec.RepoName == ".." {
		return Spec{}, fmt.Errorf("tool %q: %q is not a valid repository name", raw, spec.RepoName)
	}
	return spec, nil
}

// ParseAll parses the tool list in order. The first malformed entry
// aborts the whole list; repository names must be unique.
func ParseAll(raws []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(raws))
	seen := make(map[string]string, len(raws))
	for _, raw := range raws {
		spec, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[strings.ToLower(spec.RepoName)]; ok {
			return nil, fmt.Errorf("tools %q and %q map to the same repository %q", prev, spec.Raw, spec.RepoName)
		}
		seen[strings.ToLower(spec.RepoName)] = spec.Raw
		specs = append(specs, spec)
	}
	return specs, nil
}
