// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ManifestInvalidId Id = iota + 1
	PackageNotFoundId
	FetchFailedId
	ModuleNotFoundId
	SymlinkCycleId
	DependencyCycleId
	EvaluationFailedId
	UnsupportedFormatId
	ConfigLoadFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Invalid package.json!

A package manifest could not be read. Manifests must be JSON objects; every
field is optional, but the known ones must have the right shape.

## Things you can try:
- Validate the JSON syntax (trailing commas and comments are not allowed)
- Check the field types:
~~~json
{
  "name": "my-app",
  "main": "lib/index.js",
  "dependencies": { "left-pad": "^1.3.0" },
  "browser": { "./lib/node.js": "./lib/browser.js", "fs": false }
}
~~~`,
		extLinks: []HttpLink{"https://docs.npmjs.com/cli/configuring-npm/package-json"},
	}

	packageNotFoundIssue = &Issue{
		id: PackageNotFoundId,
		mdMsg: `
# Package not found!

None of the configured sources has a version of this package that satisfies
the requested constraint.

## Things you can try:
- Check the package name and version constraint in your package.json
- List what the configured source provides and relax the constraint
- Verify the source configuration:
~~~
$ modfs config show
~~~`,
		extLinks: []HttpLink{"https://semver.org"},
	}

	fetchFailedIssue = &Issue{
		id: FetchFailedId,
		mdMsg: `
# Fetching a dependency failed!

The package source returned an error other than "not found". Dependencies
fetched before the failure are still installed.

## Things you can try:
- Check network access and credentials for git (GITHUB_TOKEN, GITLAB_TOKEN, GIT_TOKEN)
  or S3 (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)
- Rerun with --verbose to see the full error chain`,
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found!

The specifier could not be resolved from the requiring directory.

## Resolution order:
1. Paths ("./x", "../x", "/x"): the exact file, then the file with each
   configured extension, then the directory (index file, then package.json entry)
2. Bare names ("x", "@scope/x/sub"): node_modules in the current directory
   and in each parent directory, nearest first

## Things you can try:
- Run the install first so node_modules is populated:
~~~
$ modfs install
~~~
- Check the configured extensions in your config file`,
	}

	symlinkCycleIssue = &Issue{
		id: SymlinkCycleId,
		mdMsg: `
# Too many levels of symbolic links!

Resolution followed more symlinks than allowed, which usually means two links
point at each other.

## Things you can try:
- Inspect the tree and look for links that point back at themselves:
~~~
$ modfs tree
~~~
- Raise max_symlink_depth in your config file if the chain is legitimate`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Packages depend on each other in a loop. The installer links repeated
packages instead of copying them, so this is only fatal when shared fetches
are disabled or a dependency order is required.

## Things you can try:
- Inspect the installed graph:
~~~
$ modfs graph
~~~
- Break the cycle by moving shared code into its own package`,
	}

	evaluationFailedIssue = &Issue{
		id: EvaluationFailedId,
		mdMsg: `
# Module evaluation failed!

The module was found but its evaluator reported an error. Modules that fail
are not cached, so a later require evaluates them again.

## Things you can try:
- For shell modules, only builtins and ` + "`require`" + ` are available; external
  commands exit with status 127
- Rerun with --verbose to see the full error chain`,
	}

	unsupportedFormatIssue = &Issue{
		id: UnsupportedFormatId,
		mdMsg: `
# Unsupported module format!

No evaluator is registered for this file extension.

## Supported formats:
- ` + "`.json`" + ` documents
- ` + "`.toml`" + ` documents
- ` + "`.sh`" + ` shell modules`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be parsed or does not match the schema.

## Things you can try:
- Check the CUE syntax of your config file
- Show the effective configuration:
~~~
$ modfs config show
~~~
- Environment variables override file values, e.g. MODFS_DEPS_DIR`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

A host file or directory could not be read.

## Things you can try:
- Check the permissions of the package directory and the registry directory
- Make sure the current user can read the configuration file`,
	}

	issues = map[Id]*Issue{
		manifestInvalidIssue.Id():   manifestInvalidIssue,
		packageNotFoundIssue.Id():   packageNotFoundIssue,
		fetchFailedIssue.Id():       fetchFailedIssue,
		moduleNotFoundIssue.Id():    moduleNotFoundIssue,
		symlinkCycleIssue.Id():      symlinkCycleIssue,
		dependencyCycleIssue.Id():   dependencyCycleIssue,
		evaluationFailedIssue.Id():  evaluationFailedIssue,
		unsupportedFormatIssue.Id(): unsupportedFormatIssue,
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		permissionDeniedIssue.Id():  permissionDeniedIssue,
	}
)

// Values returns every registered issue ordered by Id.
func Values() []*Issue {
	out := maps.Values(issues)
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
