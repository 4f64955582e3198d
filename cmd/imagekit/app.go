// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/invowk/imagekit/internal/config"
	"github.com/invowk/imagekit/internal/image"
	"github.com/invowk/imagekit/internal/koji"
	"github.com/invowk/imagekit/internal/loader"
	"github.com/invowk/imagekit/internal/modules"
	"github.com/invowk/imagekit/pkg/artifact"
	"github.com/invowk/imagekit/pkg/descriptor"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer: every command handler receives the App and reaches configuration,
	// the metadata service and the image assembler through it.
	App struct {
		Config   ConfigProvider
		Metadata MetadataFactory
		stdout   io.Writer
		stderr   io.Writer

		// Populated by the root command before any subcommand runs.
		cfg     *config.Config
		verbose bool
		logger  *slog.Logger
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config   ConfigProvider
		Metadata MetadataFactory
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// MetadataFactory creates the artifact metadata service for a configuration.
	MetadataFactory func(cfg *config.Config, logger *slog.Logger) artifact.MetadataService

	// assembleFlags are shared by every command that assembles an image.
	assembleFlags struct {
		overrides   []string
		modulePaths []string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Metadata == nil {
		deps.Metadata = kojiMetadata
	}

	return &App{
		Config:   deps.Config,
		Metadata: deps.Metadata,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
		cfg:      config.DefaultConfig(),
		logger:   slog.New(slog.DiscardHandler),
	}
}

// kojiMetadata is the production MetadataFactory: the configured Koji CLI.
func kojiMetadata(cfg *config.Config, logger *slog.Logger) artifact.MetadataService {
	return koji.New(koji.WithBinary(cfg.Metadata.Binary), koji.WithLogger(logger))
}

// resolver builds an artifact resolver from the loaded configuration.
func (a *App) resolver() *artifact.Resolver {
	return artifact.NewResolver(
		a.Metadata(a.cfg, a.logger),
		artifact.WithHost(a.cfg.Download.Host),
		artifact.WithLogger(a.logger),
	)
}

// fetcher builds the git fetcher for module repositories.
func (a *App) fetcher() (*modules.GitFetcher, error) {
	cacheDir, err := a.cfg.CacheDir()
	if err != nil {
		return nil, err
	}
	return modules.NewGitFetcher(cacheDir, modules.WithFetcherLogger(a.logger)), nil
}

// modulePaths returns the module repositories from flags followed by the configured ones.
func (a *App) modulePaths(fromFlags []string) []string {
	paths := make([]string, 0, len(fromFlags)+len(a.cfg.Modules.Paths))
	paths = append(paths, fromFlags...)
	return append(paths, a.cfg.Modules.Paths...)
}

// assemble loads an image file with its overrides and folds in its modules.
func (a *App) assemble(ctx context.Context, imagePath string, flags assembleFlags) (*image.Result, error) {
	img, err := loader.LoadFile(imagePath, descriptor.KindImage)
	if err != nil {
		return nil, wrapError(err, "load image descriptor", imagePath)
	}

	overrides := make([]*descriptor.Descriptor, 0, len(flags.overrides))
	for _, arg := range flags.overrides {
		o, err := loader.ParseOverride(arg)
		if err != nil {
			return nil, wrapError(err, "load overrides", arg)
		}
		overrides = append(overrides, o)
	}

	fetcher, err := a.fetcher()
	if err != nil {
		return nil, wrapError(err, "prepare module cache", "")
	}

	absPath, err := filepath.Abs(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	assembler := image.NewAssembler(image.WithFetcher(fetcher), image.WithLogger(a.logger))
	res, err := assembler.Assemble(ctx, image.Request{
		Image:       img,
		BaseDir:     filepath.Dir(absPath),
		Overrides:   overrides,
		ModulePaths: a.modulePaths(flags.modulePaths),
	})
	if err != nil {
		return nil, wrapError(err, "assemble image", imagePath)
	}
	return res, nil
}
