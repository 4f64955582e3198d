// SPDX-License-Identifier: MPL-2.0

// Package image assembles the effective image descriptor from an image
// definition, its override documents, and the modules it installs.
package image

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/invowk/imagekit/internal/modules"
	"github.com/invowk/imagekit/pkg/descriptor"
)

type (
	// Request describes one assembly.
	Request struct {
		// Image is the image definition. It is not modified.
		Image *descriptor.Descriptor
		// BaseDir resolves relative module repository paths (the image directory).
		BaseDir string
		// Overrides are applied in order; later overrides take precedence.
		Overrides []*descriptor.Descriptor
		// ModulePaths are additional local module repositories.
		ModulePaths []string
	}

	// Result is the outcome of an assembly.
	Result struct {
		// Image is the effective, validated image descriptor.
		Image *descriptor.Descriptor
		// Modules are the installed modules in merge order.
		Modules []*modules.Module
		// Registry holds every module discovered during the assembly.
		Registry *modules.Registry
	}

	// Option configures an Assembler.
	Option func(*Assembler)

	// Assembler folds images, overrides and modules into effective images.
	Assembler struct {
		fetcher *modules.GitFetcher
		logger  *slog.Logger
	}
)

// WithFetcher sets the fetcher used for git module repositories.
func WithFetcher(f *modules.GitFetcher) Option {
	return func(a *Assembler) {
		a.fetcher = f
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAssembler creates an Assembler.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the effective image. Precedence, highest first: overrides
// (the last one wins), the image, installed modules, their dependencies.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Result, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("no image descriptor given")
	}
	source := req.Image.Source()

	effective, err := ApplyOverrides(req.Image, req.Overrides...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("applied overrides", "image", effective.Name(), "count", len(req.Overrides))

	registry := modules.NewRegistry(modules.WithFetcher(a.fetcher), modules.WithLogger(a.logger))
	repos, err := modules.RepositoriesOf(effective, req.BaseDir)
	if err != nil {
		return nil, err
	}
	for _, path := range req.ModulePaths {
		repos = append(repos, modules.Repository{Path: path})
	}
	if err := registry.DiscoverRepositories(ctx, repos); err != nil {
		return nil, err
	}

	mods, err := registry.Resolve(modules.InstallsOf(effective))
	if err != nil {
		return nil, err
	}
	for _, m := range mods {
		a.logger.Debug("merging module", "module", m.Key(), "path", m.Path)
		if _, err := descriptor.Merge(effective, m.Descriptor); err != nil {
			return nil, fmt.Errorf("failed to merge module %s: %w", m.Key(), err)
		}
	}

	final, err := descriptor.New(descriptor.KindImage, effective, descriptor.WithSource(source))
	if err != nil {
		return nil, err
	}
	return &Result{Image: final, Modules: mods, Registry: registry}, nil
}

// ApplyOverrides returns a copy of img with the overrides applied in order:
// every override becomes the merge target, so later overrides take precedence
// and override descriptions replace the image description. The result is
// validated as an image.
func ApplyOverrides(img *descriptor.Descriptor, overrides ...*descriptor.Descriptor) (*descriptor.Descriptor, error) {
	effective := img.Clone()
	for _, o := range overrides {
		target := o.Clone()
		if _, err := descriptor.Merge(target, effective); err != nil {
			return nil, fmt.Errorf("failed to apply overrides %s: %w", o.Source(), err)
		}
		effective = target
	}
	return descriptor.New(descriptor.KindImage, effective, descriptor.WithSource(img.Source()))
}
