// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/invowk/imagekit/pkg/cueutil"
)

const (
	// KindGeneric is a descriptor without schema; any document is accepted.
	KindGeneric Kind = "generic"
	// KindImage is an image definition.
	KindImage Kind = "image"
	// KindModule is a module definition installed into images.
	KindModule Kind = "module"
	// KindOverrides is a user-level override document.
	KindOverrides Kind = "overrides"
	// KindRun is the container runtime section (user, cmd, entrypoint, workdir).
	KindRun Kind = "run"
	// KindArtifact is a file added to the image.
	KindArtifact Kind = "artifact"
	// KindLabel is an image label.
	KindLabel Kind = "label"
	// KindEnv is an environment variable.
	KindEnv Kind = "env"
	// KindPort is an exposed port.
	KindPort Kind = "port"
	// KindVolume is a declared volume.
	KindVolume Kind = "volume"
	// KindPackages is the package installation section.
	KindPackages Kind = "packages"
	// KindPackageRepository is a package manager repository.
	KindPackageRepository Kind = "package-repository"
	// KindModules is the module section (repositories and install list).
	KindModules Kind = "modules"
	// KindModuleRepository is a source of module definitions (path or git).
	KindModuleRepository Kind = "module-repository"
	// KindInstall is a module install request.
	KindInstall Kind = "install"
	// KindExecute is a module script.
	KindExecute Kind = "execute"
)

// NameKey is the identity key used to join lists of descriptors.
const NameKey = "name"

// ErrInvalidKind is the sentinel error wrapped by InvalidKindError.
var ErrInvalidKind = errors.New("invalid descriptor kind")

//go:embed schema.cue
var schemaSource string

var (
	schema = cueutil.MustSchema(schemaSource)

	documentChildren = map[string]Kind{
		"labels":    KindLabel,
		"envs":      KindEnv,
		"ports":     KindPort,
		"volumes":   KindVolume,
		"run":       KindRun,
		"artifacts": KindArtifact,
		"packages":  KindPackages,
		"modules":   KindModules,
		"execute":   KindExecute,
	}

	schemas = map[Kind]Schema{
		KindGeneric:           {},
		KindImage:             {Definition: "#Image", Children: documentChildren},
		KindModule:            {Definition: "#Module", Children: documentChildren},
		KindOverrides:         {Definition: "#Overrides", Children: documentChildren},
		KindRun:               {Definition: "#Run"},
		KindArtifact:          {Definition: "#Artifact"},
		KindLabel:             {Definition: "#Label"},
		KindEnv:               {Definition: "#Env"},
		KindPort:              {Definition: "#Port"},
		KindVolume:            {Definition: "#Volume"},
		KindPackages:          {Definition: "#Packages", Children: map[string]Kind{"repositories": KindPackageRepository}},
		KindPackageRepository: {Definition: "#PackageRepository"},
		KindModules: {Definition: "#Modules", Children: map[string]Kind{
			"repositories": KindModuleRepository,
			"install":      KindInstall,
		}},
		KindModuleRepository: {Definition: "#ModuleRepository"},
		KindInstall:          {Definition: "#Install"},
		KindExecute:          {Definition: "#Execute"},
	}
)

type (
	// Kind identifies the variant of a descriptor. The kind selects the schema
	// and the child kinds of nested documents; merge behavior is identical for
	// every kind except for the override check in isOverrideMerge.
	Kind string

	// InvalidKindError is returned when a Kind value is not recognized.
	// It wraps ErrInvalidKind for errors.Is() compatibility.
	InvalidKindError struct {
		Value Kind
	}

	// Schema is the validation data attached to a Kind.
	Schema struct {
		// Definition is the CUE definition in schema.cue (e.g. "#Image").
		// Empty means the document is not validated.
		Definition string
		// Children maps a field name to the kind of nested descriptors found
		// under it, either directly or as list elements. Unlisted fields hold
		// generic descriptors.
		Children map[string]Kind
	}
)

// String returns the string representation of the Kind.
func (k Kind) String() string { return string(k) }

// Validate returns an error if the Kind is not a known descriptor kind.
func (k Kind) Validate() error {
	if _, ok := schemas[k]; !ok {
		return &InvalidKindError{Value: k}
	}
	return nil
}

// Schema returns the validation data of the kind. Unknown kinds behave like
// KindGeneric.
func (k Kind) Schema() Schema {
	return schemas[k]
}

// Error implements the error interface.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid descriptor kind %q (valid: %v)", e.Value, Kinds())
}

// Unwrap returns ErrInvalidKind for errors.Is() compatibility.
func (e *InvalidKindError) Unwrap() error { return ErrInvalidKind }

// ChildKind returns the kind of the descriptors nested under field.
func (s Schema) ChildKind(field string) Kind {
	if kind, ok := s.Children[field]; ok {
		return kind
	}
	return KindGeneric
}

// Kinds returns every known kind in sorted order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(schemas))
	for k := range schemas {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// isOverrideMerge reports whether a merge between the two kinds involves an
// Overrides document. Excluded keys (description) only flow when it does.
func isOverrideMerge(target, source Kind) bool {
	return target == KindOverrides || source == KindOverrides
}

// excludedKeys never propagate from source to target outside override merges.
var excludedKeys = []string{"description"}

func isExcluded(key string) bool {
	return slices.Contains(excludedKeys, key)
}
