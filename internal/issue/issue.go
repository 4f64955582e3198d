// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

type Id int

const (
	DescriptorNotFoundId Id = iota + 1
	DescriptorParseErrorId
	SchemaInvalidId
	MergeConflictId
	ModuleNotFoundId
	ModuleConflictId
	DependencyCycleId
	ModuleRepositoryFailedId
	ArtifactNotFoundId
	ArtifactUnavailableId
	MetadataCommandFailedId
	ConfigLoadFailedId
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

// Render renders the issue markdown with glamour. stylePath is a glamour
// style name ("auto", "dark", "light", "notty") or a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	descriptorNotFoundIssue = &Issue{
		id: DescriptorNotFoundId,
		mdMsg: `
# Descriptor not found!

The image, module or overrides descriptor you passed could not be read.

## Things you can try:
- Check the path for typos
- Overrides can also be given inline as YAML:
~~~
$ imagekit merge image.yaml -o '{version: "2.0"}'
~~~`,
	}

	descriptorParseErrorIssue = &Issue{
		id: DescriptorParseErrorId,
		mdMsg: `
# Failed to parse descriptor!

The descriptor is not a valid YAML, JSON, TOML or CUE document.

## Common issues:
- Tabs used for indentation in YAML
- Duplicate keys in the same mapping
- The document root is a list or a scalar instead of a mapping

## Things you can try:
- Validate the file on its own:
~~~
$ imagekit validate image.yaml
~~~`,
	}

	schemaInvalidIssue = &Issue{
		id: SchemaInvalidId,
		mdMsg: `
# Descriptor does not match its schema!

A field has the wrong type, a required field is missing, or an unknown field is present.

## Required fields:
- Images need ` + "`name`, `version` and `from`" + `
- Modules need ` + "`name`" + `
- Checksums must be lowercase or uppercase hex of the right length

## Things you can try:
- Read the path in the error message, it points at the offending field
- Check the kind with ` + "`imagekit validate --kind module module.yaml`",
	}

	mergeConflictIssue = &Issue{
		id: MergeConflictId,
		mdMsg: `
# Descriptors cannot be merged!

Two descriptors carry lists that cannot be combined.

## Common causes:
- A list that contains another list
- A list that mixes mappings and plain values

## Things you can try:
- Make every element of the list a mapping with a ` + "`name`" + `
- Or make every element a plain value`,
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found!

An entry of ` + "`modules.install`" + ` does not match any module in the configured repositories.

## Things you can try:
- List the modules imagekit can see:
~~~
$ imagekit module list
~~~
- Add a repository with ` + "`--module-path`" + ` or in ` + "`modules.repositories`" + `
- Check the requested version`,
	}

	moduleConflictIssue = &Issue{
		id: ModuleConflictId,
		mdMsg: `
# Conflicting modules!

The same module is defined twice, requested in two different versions, or
installed by name while several versions exist.

## Things you can try:
- Pin a version in ` + "`modules.install`" + `
- Remove the duplicate module from one of the repositories`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Modules install each other in a loop, so no merge order exists.

## Things you can try:
- Follow the modules listed in the error and remove one of the ` + "`modules.install`" + ` entries`,
	}

	moduleRepositoryFailedIssue = &Issue{
		id: ModuleRepositoryFailedId,
		mdMsg: `
# Module repository unavailable!

A git module repository could not be cloned or a local repository path does not exist.

## Things you can try:
- Check the URL and the ` + "`ref`" + `
- For private repositories set ` + "`GITHUB_TOKEN`, `GITLAB_TOKEN` or `GIT_TOKEN`" + `, or load an SSH key
- Clear the clone cache configured in ` + "`modules.cache_dir`",
	}

	artifactNotFoundIssue = &Issue{
		id: ArtifactNotFoundId,
		mdMsg: `
# Artifact not found in Koji!

No archive with the given checksum is known to the build system.

## Things you can try:
- Double check the checksum, md5 is preferred over sha1, sha256 and sha512
- Provide the ` + "`url`" + ` of the artifact explicitly in the descriptor`,
	}

	artifactUnavailableIssue = &Issue{
		id: ArtifactUnavailableId,
		mdMsg: `
# Artifact no longer downloadable!

The archive exists, but the build that produced it is not in the COMPLETE state.

## Things you can try:
- Rebuild or pick a newer version of the artifact
- Provide the ` + "`url`" + ` of the artifact explicitly in the descriptor`,
	}

	metadataCommandFailedIssue = &Issue{
		id: MetadataCommandFailedId,
		mdMsg: `
# Metadata query failed!

The Koji command line client exited with an error.

## Things you can try:
- Check that the client is installed and in your PATH:
~~~
$ brew --version
~~~
- Renew your Kerberos ticket with ` + "`kinit`" + `
- Point ` + "`metadata.binary`" + ` in your config at another client`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Print the file imagekit reads:
~~~
$ imagekit config path
~~~
- Write a fresh default configuration with ` + "`imagekit config init`" + `
- Check the ` + "`IMAGEKIT_*`" + ` environment variables`,
	}

	issues = map[Id]*Issue{
		descriptorNotFoundIssue.Id():     descriptorNotFoundIssue,
		descriptorParseErrorIssue.Id():   descriptorParseErrorIssue,
		schemaInvalidIssue.Id():          schemaInvalidIssue,
		mergeConflictIssue.Id():          mergeConflictIssue,
		moduleNotFoundIssue.Id():         moduleNotFoundIssue,
		moduleConflictIssue.Id():         moduleConflictIssue,
		dependencyCycleIssue.Id():        dependencyCycleIssue,
		moduleRepositoryFailedIssue.Id(): moduleRepositoryFailedIssue,
		artifactNotFoundIssue.Id():       artifactNotFoundIssue,
		artifactUnavailableIssue.Id():    artifactUnavailableIssue,
		metadataCommandFailedIssue.Id():  metadataCommandFailedIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	values := slices.Collect(maps.Values(issues))
	slices.SortFunc(values, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
