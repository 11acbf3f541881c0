package docs

var topics = []Topic{
	{
		Name:    "quickstart",
		Title:   "Quick Start",
		Summary: "Getting started with pinfleet",
		Content: topicQuickstart,
	},
	{
		Name:    "config",
		Title:   "Configuration Reference",
		Summary: "pinfleet.yaml fields and defaults",
		Content: topicConfig,
	},
	{
		Name:    "sync",
		Title:   "Sync Stages",
		Summary: "What happens to each repository during a sync",
		Content: topicSync,
	},
	{
		Name:    "release",
		Title:   "Release References and Tags",
		Summary: "The README release reference, the anchor tag and v1",
		Content: topicRelease,
	},
	{
		Name:    "tools",
		Title:   "Tool Identifiers",
		Summary: "How tool names map to repositories and packages",
		Content: topicTools,
	},
	{
		Name:    "state",
		Title:   "Run Reports",
		Summary: "The .pinfleet/run.json report and pinfleet status",
		Content: topicState,
	},
}

const topicQuickstart = `Quick Start
===========

1. Create a configuration:

    mkdir fleet && cd fleet
    pinfleet init --org install-pinned

   This creates pinfleet.yaml and tools.json.

2. List the tools to publish in tools.json. Comments and trailing
   commas are allowed.

3. Provide a token with repo and workflow scopes:

    export GITHUB_TOKEN=...

4. Preview without touching any remote:

    pinfleet sync --dry-run

5. Synchronize the fleet:

    pinfleet sync

6. New repositories are not on the Marketplace until a release is
   drafted by hand. sync prints the release URL for each one; check
   again later with:

    pinfleet verify
`

const topicConfig = `Configuration Reference
=======================

pinfleet reads pinfleet.yaml (override with --config). Relative paths
are resolved against the directory holding the file.

  org                 organisation owning the repositories (required)
  workspace           directory for working copies (required)
  tools               list of tool identifiers
  tools-file          JSON array of tool identifiers, appended to tools
  homepage            repository homepage (default https://github.com/<org>)
  branch              branch to render and push (default main)
  anchor-tag          tag for drafting releases (default add-commit-hash-here)
  major-tag           tag users reference (default v1)
  clone-url           clone URL template, $ORG and $REPO are expanded
                      (default git@github.com:${ORG}/${REPO}.git)
  license             license template for new repositories (default mit)
  python-versions     versions to lock for (default 3.7 to 3.11)
  min-python-version  drop configured versions below this
  pip-tools-version   pip-tools version used by the workflow (default 6.9.0)
  schedule            cron schedule of the update workflow (default "25 4,16 * * *")
  committer-name      commit author (default "<org> bot")
  committer-email     commit email (default <org>@users.noreply.github.com)
  token-file          file holding the API token
  api-url             REST API root (default https://api.github.com)
  web-url             site root for Marketplace lookups (default https://github.com)
  verify-attempts     Marketplace lookups per repository (default 1)
  verify-interval     seconds between lookups

The token is taken from --token, then GITHUB_TOKEN, then token-file.
`

const topicSync = `Sync Stages
===========

pinfleet sync processes tools one at a time, in configured order.
Each tool passes through these stages:

  remote    create the repository (an existing one is fine) and set
            description, homepage and visibility
  clone     delete any old working copy and clone afresh
  render    read the release reference from README.md, render
            README.md, action.yml, .github/workflows/update.yml and
            pins/requirements.in, and write them
  commit    commit "update repository from template" if anything changed
  publish   move both tags to the first commit and force-push the branch
            and tags
  activate  enable the update workflow and start one run
  verify    look the action up on the Marketplace

A failing tool is reported and the next tool starts. sync exits with
status 1 when any tool failed.

Flags:
  --only PATTERN    only repositories matching a glob, e.g. "flake8-*"
  --skip-remote     skip the remote stage
  --skip-activate   skip activate and verify
  --dry-run         clone and render only; nothing is pushed or created

Running sync twice in a row creates no new commits.
`

const topicRelease = `Release References and Tags
===========================

Every README contains one line of the form

    uses: <org>/<repo>@<40-hex commit>  # <version>

The repository's own workflow rewrites this line whenever it refreshes
the lock files. pinfleet reads the line back before rendering and keeps
it verbatim, so regenerating never rolls a published pin back. A new
repository gets forty "f" characters as a placeholder until its first
workflow run.

Both the anchor tag and the major tag point at the first commit of the
repository. They are moved with force on every sync. The anchor tag
exists so that a release can be drafted on the Marketplace; the major
tag is what "@v1" resolves to.
`

const topicTools = `Tool Identifiers
================

A tool identifier is a PyPI package name with optional extras:

  black            repository black, package black
  flake8[toml]     repository flake8-with-toml, package flake8
  foo[bar,baz]     repository foo-with-barbaz, package foo

The repository name must use only letters, digits, ".", "_" and "-".
Two identifiers mapping to the same repository are rejected, as are
unbalanced or nested brackets and empty extras. Any invalid identifier
stops the run before anything is changed.

pins/requirements.in holds the identifier exactly as written.
`

const topicState = `Run Reports
===========

Each sync writes <workspace>/.pinfleet/run.json after every tool:

  run_id        unique id of the run
  started_at    start time
  finished_at   end time
  status        running, completed, failed or interrupted
  tools         one entry per processed tool: stage reached, status,
                error, whether a commit was made, the root commit,
                Marketplace listing and release URL

pinfleet status prints the last report. An interrupted run (Ctrl-C)
is marked interrupted and lists the tools finished so far.
`
