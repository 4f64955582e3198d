// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrModuleNotFound is the sentinel error wrapped by ModuleNotFoundError.
	ErrModuleNotFound = errors.New("module not found")

	// ErrAmbiguousModule is the sentinel error wrapped by AmbiguousModuleError.
	ErrAmbiguousModule = errors.New("ambiguous module reference")

	// ErrDuplicateModule is the sentinel error wrapped by DuplicateModuleError.
	ErrDuplicateModule = errors.New("duplicate module")

	// ErrModuleConflict is the sentinel error wrapped by ModuleConflictError.
	ErrModuleConflict = errors.New("conflicting module versions")

	// ErrInvalidRepository is returned for module repositories without a path or git source.
	ErrInvalidRepository = errors.New("invalid module repository")

	// ErrFetchFailed is returned when a git module repository cannot be cloned.
	ErrFetchFailed = errors.New("failed to clone module repository")
)

type (
	// ModuleNotFoundError is returned when no registered module matches a request.
	ModuleNotFoundError struct {
		Name    string
		Version string
	}

	// AmbiguousModuleError is returned when a request without version matches
	// several versions of a module.
	AmbiguousModuleError struct {
		Name     string
		Versions []string
	}

	// DuplicateModuleError is returned when two module files define the same
	// name and version.
	DuplicateModuleError struct {
		Name    string
		Version string
		Paths   []string
	}

	// ModuleConflictError is returned when one resolution needs two versions
	// of the same module.
	ModuleConflictError struct {
		Name     string
		Versions []string
	}
)

// Error implements the error interface.
func (e *ModuleNotFoundError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("module %q not found", e.Name)
	}
	return fmt.Sprintf("module %q version %q not found", e.Name, e.Version)
}

// Unwrap returns ErrModuleNotFound for errors.Is() compatibility.
func (e *ModuleNotFoundError) Unwrap() error { return ErrModuleNotFound }

// Error implements the error interface.
func (e *AmbiguousModuleError) Error() string {
	return fmt.Sprintf("module %q is available in versions %s; specify one", e.Name, strings.Join(e.Versions, ", "))
}

// Unwrap returns ErrAmbiguousModule for errors.Is() compatibility.
func (e *AmbiguousModuleError) Unwrap() error { return ErrAmbiguousModule }

// Error implements the error interface.
func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("module %q version %q is defined more than once: %s", e.Name, e.Version, strings.Join(e.Paths, ", "))
}

// Unwrap returns ErrDuplicateModule for errors.Is() compatibility.
func (e *DuplicateModuleError) Unwrap() error { return ErrDuplicateModule }

// Error implements the error interface.
func (e *ModuleConflictError) Error() string {
	return fmt.Sprintf("module %q is required in versions %s", e.Name, strings.Join(e.Versions, " and "))
}

// Unwrap returns ErrModuleConflict for errors.Is() compatibility.
func (e *ModuleConflictError) Unwrap() error { return ErrModuleConflict }
