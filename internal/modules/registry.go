// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/mod/semver"

	"github.com/invowk/imagekit/internal/dag"
	"github.com/invowk/imagekit/internal/loader"
	"github.com/invowk/imagekit/pkg/descriptor"
)

// ModuleFilePattern selects module definition files below a repository root.
const ModuleFilePattern = "**/module.{yaml,yml}"

type (
	// Module is a module definition found in a repository.
	Module struct {
		Name    string
		Version string
		// Path is the module definition file.
		Path       string
		Descriptor *descriptor.Descriptor
	}

	// Install is a request to install a module, optionally pinned to a version.
	Install struct {
		Name    string
		Version string
	}

	// RegistryOption configures a Registry.
	RegistryOption func(*Registry)

	// Registry holds the modules discovered in module repositories.
	// A Registry is not safe for concurrent use.
	Registry struct {
		byName  map[string][]*Module
		fetcher *GitFetcher
		logger  *slog.Logger
	}
)

// WithFetcher sets the fetcher used for git repositories.
func WithFetcher(f *GitFetcher) RegistryOption {
	return func(r *Registry) {
		r.fetcher = f
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byName: map[string][]*Module{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the module identity, "name" or "name@version".
func (m *Module) Key() string {
	if m.Version == "" {
		return m.Name
	}
	return m.Name + "@" + m.Version
}

// Dependencies returns the modules this module installs.
func (m *Module) Dependencies() []Install {
	return InstallsOf(m.Descriptor)
}

// String returns "name" or "name version".
func (i Install) String() string {
	if i.Version == "" {
		return i.Name
	}
	return i.Name + " " + i.Version
}

// InstallsOf returns the modules.install requests of an image or module descriptor.
func InstallsOf(d *descriptor.Descriptor) []Install {
	if d == nil {
		return nil
	}
	section := d.Descriptor("modules")
	if section == nil {
		return nil
	}
	var installs []Install
	for _, elem := range section.List("install") {
		if in, ok := elem.(*descriptor.Descriptor); ok {
			installs = append(installs, Install{Name: in.Name(), Version: in.Text("version")})
		}
	}
	return installs
}

// Add registers a module descriptor loaded from path.
func (r *Registry) Add(d *descriptor.Descriptor, path string) (*Module, error) {
	m := &Module{Name: d.Name(), Version: d.Text("version"), Path: path, Descriptor: d}
	for _, existing := range r.byName[m.Name] {
		if existing.Version == m.Version {
			return nil, &DuplicateModuleError{Name: m.Name, Version: m.Version, Paths: []string{existing.Path, path}}
		}
	}
	r.byName[m.Name] = append(r.byName[m.Name], m)
	r.logger.Debug("registered module", "module", m.Key(), "path", path)
	return m, nil
}

// Discover loads every module file below the given roots.
func (r *Registry) Discover(ctx context.Context, roots ...string) error {
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("%w %s: %w", ErrInvalidRepository, root, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ErrInvalidRepository, root)
		}

		matches, err := doublestar.Glob(os.DirFS(root), ModuleFilePattern)
		if err != nil {
			return fmt.Errorf("failed to scan module repository %s: %w", root, err)
		}
		sort.Strings(matches)

		for _, match := range matches {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(root, filepath.FromSlash(match))
			d, err := loader.LoadFile(path, descriptor.KindModule)
			if err != nil {
				return err
			}
			if _, err := r.Add(d, path); err != nil {
				return err
			}
		}
	}
	return nil
}

// DiscoverRepositories fetches git repositories when needed and discovers the
// modules of every repository.
func (r *Registry) DiscoverRepositories(ctx context.Context, repos []Repository) error {
	for _, repo := range repos {
		root, err := repo.Root(ctx, r.fetcher)
		if err != nil {
			return err
		}
		r.logger.Debug("discovering modules", "repository", repo.String(), "root", root)
		if err := r.Discover(ctx, root); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the module with the given name and version. An empty version
// matches the only registered version of the module.
func (r *Registry) Lookup(name, version string) (*Module, error) {
	candidates := r.byName[name]
	if version != "" {
		for _, m := range candidates {
			if m.Version == version {
				return m, nil
			}
		}
		return nil, &ModuleNotFoundError{Name: name, Version: version}
	}

	switch len(candidates) {
	case 0:
		return nil, &ModuleNotFoundError{Name: name}
	case 1:
		return candidates[0], nil
	default:
		versions := make([]string, 0, len(candidates))
		for _, m := range candidates {
			versions = append(versions, m.Version)
		}
		slices.SortFunc(versions, CompareVersions)
		return nil, &AmbiguousModuleError{Name: name, Versions: versions}
	}
}

// Modules returns every registered module ordered by name and version.
func (r *Registry) Modules() []*Module {
	var all []*Module
	for _, mods := range r.byName {
		all = append(all, mods...)
	}
	slices.SortFunc(all, func(a, b *Module) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), CompareVersions(a.Version, b.Version))
	})
	return all
}

// Resolve returns the requested modules and their dependencies in merge
// order: every module comes before the modules it depends on, and requests
// listed first come first.
func (r *Registry) Resolve(install []Install) ([]*Module, error) {
	g := dag.New()
	resolved := map[string]*Module{}
	versions := map[string]string{}

	var visit func(in Install, dependent string) error
	visit = func(in Install, dependent string) error {
		m, err := r.Lookup(in.Name, in.Version)
		if err != nil {
			if dependent != "" {
				return fmt.Errorf("dependency of %s: %w", dependent, err)
			}
			return err
		}
		if v, ok := versions[m.Name]; ok && v != m.Version {
			return &ModuleConflictError{Name: m.Name, Versions: []string{v, m.Version}}
		}
		versions[m.Name] = m.Version

		key := m.Key()
		if dependent == "" {
			g.AddNode(key)
		} else {
			g.AddEdge(dependent, key)
		}
		if _, seen := resolved[key]; seen {
			return nil
		}
		resolved[key] = m

		for _, dep := range m.Dependencies() {
			if err := visit(dep, key); err != nil {
				return err
			}
		}
		return nil
	}

	for _, in := range install {
		if err := visit(in, ""); err != nil {
			return nil, err
		}
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	mods := make([]*Module, 0, len(order))
	for _, key := range order {
		mods = append(mods, resolved[key])
	}
	return mods, nil
}

// CompareVersions orders module versions. Versions that are valid semantic
// versions, with or without a leading "v", compare semantically ("3.10" after
// "3.9") and sort before anything else; the rest compare as strings.
func CompareVersions(a, b string) int {
	sa, sb := canonicalVersion(a), canonicalVersion(b)
	switch {
	case sa != "" && sb != "":
		return cmp.Or(semver.Compare(sa, sb), cmp.Compare(a, b))
	case sa != "":
		return -1
	case sb != "":
		return 1
	default:
		return cmp.Compare(a, b)
	}
}

func canonicalVersion(v string) string {
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}
