// Package profile renders the organisation profile README that lists
// every action in the fleet.
package profile

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/install-pinned/pinfleet/internal/render"
	"github.com/install-pinned/pinfleet/internal/toolspec"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Path is where the README lives inside the organisation's .github
// repository.
const Path = "profile/README.md"

const header = `## Keep your CI pipeline secure with pinned installs.
<!-- generated by pinfleet profile, do not edit manually -->

When you ` + "`pip install foo`" + ` in your CI pipeline, you trust

 - PyPI,
 - the authors of ` + "`foo`" + `, and
 - all authors of all (sub)dependencies of ` + "`foo`" + `

to keep their systems secure at all times.[^1] If only one of them is compromised,
they may push a malicious package to PyPI which steals your code and your repository secrets.[^2]
To mitigate this problem, you should _pin_ your dependencies, i.e. use a ` + "`requirements.txt`/`poetry.lock`/..." + ` lock file
that ensures only specific versions (with specific file hashes) are allowed. This changes the threat model from "trust
continuously" to "trust on first use".

#### What is @%[1]s for?

The actions available in this GitHub organization allow you to securely (i.e. with pinning + hashes) install popular
tools to use in your CI pipeline without any additional lockfiles.

For example, you maybe want to run [black](https://github.com/psf/black) in your CI pipeline, but black is not a
dependency for your application. Instead of adding a separate lock file to your repository, you just use the [%[1]s/black](%[2]s/%[1]s/black) action.

[^1]: More specifically, you hope that the respective PyPI packages are not compromised at the same time when your CI
      runs.
[^2]: By default, ` + "`GITHUB_TOKEN`" + ` can push new commits, which can be used to obtain all secrets defined for a repository.

#### Supported tools:
`

const footer = `
Your tool is not on the list? Request it [here](%[2]s/%[1]s/.github/issues).

#### Security

If you believe you've identified a security issue with %[1]s, please report it privately
through a security advisory on the affected repository.
`

// Render returns the profile README for org. webURL is the site root,
// e.g. https://github.com.
func Render(org, webURL string, specs []toolspec.Spec) string {
	var b strings.Builder
	fmt.Fprintf(&b, header, org, webURL)
	for _, s := range specs {
		fmt.Fprintf(&b, "- [%s](%s/%s/%s)\n", s.Raw, webURL, org, s.RepoName)
	}
	fmt.Fprintf(&b, footer, org, webURL)
	return render.Normalize(b.String())
}

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func parser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Footnote))
	})
	return markdown
}

// HTML converts Markdown to HTML the way GitHub would, including
// footnotes.
func HTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := parser().Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return buf.String(), nil
}

// Links returns the destinations of every link in source, in order.
func Links(source string) []string {
	src := []byte(source)
	doc := parser().Parser().Parse(text.NewReader(src))
	var links []string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if link, ok := n.(*ast.Link); ok && entering {
			links = append(links, string(link.Destination))
		}
		return ast.WalkContinue, nil
	})
	return links
}
