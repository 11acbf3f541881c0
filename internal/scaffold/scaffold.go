package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/install-pinned/pinfleet/internal/config"
	"github.com/install-pinned/pinfleet/internal/ux"
)

// ToolsFileName is the tool list written next to the config.
const ToolsFileName = "tools.json"

const configTemplate = `# Organisation that owns the generated action repositories.
org: %s

# Where working copies are cloned. Relative to this file.
workspace: repos

# Tool identifiers, one per repository. Extras are allowed: "flake8[toml]".
tools-file: tools.json

python-versions: ["3.7", "3.8", "3.9", "3.10", "3.11"]
pip-tools-version: "6.9.0"
schedule: "25 4,16 * * *"

# Uncomment to override defaults.
# branch: main
# anchor-tag: add-commit-hash-here
# major-tag: v1
# clone-url: git@github.com:${ORG}/${REPO}.git
# token-file: .github-token
# verify-attempts: 1
# verify-interval: 30
`

const toolsTemplate = `// One entry per generated repository.
[
  "black",
  "flake8[toml]",
  "mypy",
]
`

// Init writes a starter pinfleet.yaml and tools.json into targetDir.
func Init(targetDir, org string) error {
	if org == "" {
		org = "install-pinned"
	}
	configPath := filepath.Join(targetDir, config.FileName)
	toolsPath := filepath.Join(targetDir, ToolsFileName)
	for _, p := range []string{configPath, toolsPath} {
		if _, err := os.Stat(p); err == nil {
			return fmt.Errorf("%s already exists in %s", filepath.Base(p), targetDir)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", targetDir, err)
	}
	if err := os.WriteFile(configPath, []byte(fmt.Sprintf(configTemplate, org)), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", config.FileName, err)
	}
	if err := os.WriteFile(toolsPath, []byte(toolsTemplate), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", ToolsFileName, err)
	}

	fmt.Printf("\n%s%s✓ Initialized pinfleet%s\n\n", ux.Bold, ux.Green, ux.Reset)
	fmt.Printf("  Created:\n")
	fmt.Printf("    %s%s%s  fleet configuration\n", ux.Cyan, config.FileName, ux.Reset)
	fmt.Printf("    %s%s%s     tool list\n\n", ux.Cyan, ToolsFileName, ux.Reset)
	fmt.Printf("  Next steps:\n")
	fmt.Printf("    1. List your tools in %s%s%s\n", ux.Cyan, ToolsFileName, ux.Reset)
	fmt.Printf("    2. Export %sGITHUB_TOKEN%s with repo and workflow scopes\n", ux.Cyan, ux.Reset)
	fmt.Printf("    3. Run %spinfleet sync --dry-run%s to preview\n\n", ux.Cyan, ux.Reset)
	return nil
}
