// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"io/fs"

	"github.com/invowk/imagekit/internal/config"
	"github.com/invowk/imagekit/internal/dag"
	"github.com/invowk/imagekit/internal/issue"
	"github.com/invowk/imagekit/internal/koji"
	"github.com/invowk/imagekit/internal/loader"
	"github.com/invowk/imagekit/internal/modules"
	"github.com/invowk/imagekit/pkg/artifact"
	"github.com/invowk/imagekit/pkg/descriptor"
)

// verboseHint is appended to errors that link a catalog entry.
const verboseHint = "Run again with --verbose for troubleshooting steps"

// classifyError maps an error chain onto the issue catalog. Specific
// sentinels are checked before generic filesystem errors.
func classifyError(err error) issue.Id {
	switch {
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	case errors.Is(err, dag.ErrCycle):
		return issue.DependencyCycleId
	case errors.Is(err, modules.ErrModuleNotFound):
		return issue.ModuleNotFoundId
	case errors.Is(err, modules.ErrAmbiguousModule),
		errors.Is(err, modules.ErrDuplicateModule),
		errors.Is(err, modules.ErrModuleConflict):
		return issue.ModuleConflictId
	case errors.Is(err, modules.ErrInvalidRepository), errors.Is(err, modules.ErrFetchFailed):
		return issue.ModuleRepositoryFailedId
	case errors.Is(err, artifact.ErrArtifactNotFound):
		return issue.ArtifactNotFoundId
	case errors.Is(err, artifact.ErrArtifactUnavailable):
		return issue.ArtifactUnavailableId
	case errors.Is(err, koji.ErrCommandFailed):
		return issue.MetadataCommandFailedId
	case errors.Is(err, descriptor.ErrSchema), errors.Is(err, artifact.ErrInvalidChecksum):
		return issue.SchemaInvalidId
	case errors.Is(err, descriptor.ErrMerge):
		return issue.MergeConflictId
	case errors.Is(err, loader.ErrParse), errors.Is(err, loader.ErrUnsupportedFormat):
		return issue.DescriptorParseErrorId
	case errors.Is(err, fs.ErrNotExist):
		return issue.DescriptorNotFoundId
	default:
		return 0
	}
}

// wrapError attaches operation context and the matching catalog entry.
func wrapError(err error, operation, resource string) error {
	return wrapIssue(err, operation, resource, 0)
}

// wrapIssue is like wrapError but links the given catalog entry instead of
// classifying err. Errors that already carry context only get the link filled in.
func wrapIssue(err error, operation, resource string, id issue.Id) error {
	if err == nil {
		return nil
	}

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		if id == 0 {
			id = classifyError(ae.Cause)
		}
		if ae.IssueId == 0 && id != 0 {
			ae.IssueId = id
			ae.Suggestions = append(ae.Suggestions, verboseHint)
		}
		return err
	}

	if id == 0 {
		id = classifyError(err)
	}
	ctx := issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		Wrap(err)
	if id != 0 {
		ctx.WithIssue(id).WithSuggestion(verboseHint)
	}
	return ctx.BuildError()
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderIssue renders the catalog entry linked to err, if any.
func renderIssue(err error, style string) (string, bool) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return "", false
	}
	entry := ae.Issue()
	if entry == nil {
		return "", false
	}
	rendered, renderErr := entry.Render(style)
	if renderErr != nil {
		return "", false
	}
	return rendered, true
}
