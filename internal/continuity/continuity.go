// Package continuity recovers the last published release reference from a
// generated README so that regeneration keeps usage examples pinned to it.
package continuity

import (
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SentinelCommit stands in for "no confirmed prior release". It is a
// syntactically valid commit reference that resolves to nothing.
const SentinelCommit = "ffffffffffffffffffffffffffffffffffffffff"

var releaseRe = regexp.MustCompile(`@([0-9a-f]{40})([^\n]*)`)

// Marker is a release reference: a commit id plus whatever annotation
// followed it on the same line (typically "  # 1.2.3").
type Marker struct {
	Commit string
	Suffix string
}

// Sentinel returns the marker used when no release is known.
func Sentinel() Marker {
	return Marker{Commit: SentinelCommit}
}

// IsSentinel reports whether m carries no real release.
func (m Marker) IsSentinel() bool {
	return m.Commit == SentinelCommit && m.Suffix == ""
}

// String renders the marker as it appears after the '@' in a usage snippet.
func (m Marker) String() string {
	return m.Commit + m.Suffix
}

// Extract returns the first release reference embedded in text, or the
// sentinel if there is none.
func Extract(text string) Marker {
	match := releaseRe.FindStringSubmatch(text)
	if match == nil {
		return Sentinel()
	}
	return Marker{Commit: match[1], Suffix: strings.TrimRight(match[2], "\r")}
}

// Load reads a README from disk and extracts its marker. Missing or
// unreadable files yield the sentinel.
func Load(path string) Marker {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sentinel()
	}
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return Sentinel()
	}
	return Extract(string(decoded))
}
