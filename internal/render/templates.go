package render

const readmeTemplate = `# {{.Org}}/{{.Repo}}

![](https://shields.io/badge/python-{{badge .PythonVersions}}-blue)

Securely install the latest [{{.Tool}}](https://pypi.org/project/{{.Package}}/) release from PyPI.

This action installs a pinned version of **{{.Tool}}** and all its dependencies, making sure that file hashes match. Pinning your dependencies stops supply chain attacks where an adversary replaces {{.Tool}} or one of its dependencies with malicious code.

## Usage

In your GitHub Actions workflow, use this action like so:

` + "```yaml" + `
      - name: Install {{.Tool}} from PyPI
        uses: {{.Org}}/{{.Repo}}@{{.Release}}
` + "```" + `

## Alternatives

This action is a relatively simple wrapper around the fantastic [pip-tools](https://pip-tools.rtfd.io) and is most useful if there is no existing ` + "`requirements.txt`/`poetry.lock`/..." + ` infrastructure in place. If you already pin all your dependencies in a single place, you don't need it!

## More Details

See the [@{{.Org}} README]({{.Homepage}}) for details.
`

const actionTemplate = `name: {{yaml (printf "%s/%s" .Org .Repo)}}
description: {{yaml (printf "Securely install the latest %s release from PyPI" .Tool)}}
branding:
  icon: 'lock'
  color: 'green'
runs:
  using: "composite"
  steps:
    - shell: bash
      run: |
        pyver=$(python -c 'import sys; print(f"{sys.version_info.major}.{sys.version_info.minor}")')
        pip install -r "$GITHUB_ACTION_PATH/pins/requirements-$pyver.txt"
`

const workflowTemplate = `name: "update pins"

on:
  workflow_dispatch:
  schedule:
    - cron: {{yaml .Schedule}}

jobs:
  update_pins:
    runs-on: ubuntu-latest
    env:
      TOOL: {{yaml .Tool}}
      PACKAGE: {{yaml .Package}}
      BOT_NAME: {{yaml .CommitterName}}
      BOT_EMAIL: {{yaml .CommitterEmail}}
    steps:
      - uses: actions/checkout@v3
        with:
          ref: {{yaml .Branch}}
{{- range .PythonVersions}}
      - uses: actions/setup-python@v4
        with:
          python-version: {{yaml .}}
      - run: pip install pip-tools=={{$.PipToolsVersion}}
      - run: pip-compile --upgrade --allow-unsafe --generate-hashes pins/requirements.in -o pins/requirements-{{.}}.txt
{{- end}}

      - id: commit
        run: |
          if [ -n "$(git status --porcelain)" ]; then
            git config --global user.name "$BOT_NAME"
            git config --global user.email "$BOT_EMAIL"
            git add --all
            ver=$(curl -Ls "https://pypi.org/pypi/$PACKAGE/json" | jq -r .info.version)
            git commit -m "update pins ($TOOL $ver)"
            commit=$(git rev-parse HEAD)
            sed -i -E "s/@[0-9a-f]{40}.*/@$commit  # $ver/g" README.md
            git commit -am "update README.md ($TOOL $ver)"
            git push
          fi
`
