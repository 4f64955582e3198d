// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/invowk/imagekit/internal/dag"
	"github.com/invowk/imagekit/pkg/descriptor"
)

// writeModule creates <root>/<dir>/module.yaml with the given content.
func writeModule(t *testing.T, root, dir, content string) string {
	t.Helper()
	path := filepath.Join(root, dir, "module.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func keys(mods []*Module) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.Key()
	}
	return out
}

func TestRegistry_Discover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeModule(t, root, "jdk/11", "name: jdk\nversion: '11'\n")
	writeModule(t, root, "jdk/17", "name: jdk\nversion: '17'\n")
	writeModule(t, root, "deep/nested/maven", "name: maven\n")
	// not a module file
	if err := os.WriteFile(filepath.Join(root, "image.yaml"), []byte("name: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.Discover(context.Background(), root); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	want := []string{"jdk@11", "jdk@17", "maven"}
	if got := keys(r.Modules()); !slices.Equal(got, want) {
		t.Errorf("Modules() = %v, want %v", got, want)
	}

	m, err := r.Lookup("maven", "")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if m.Descriptor.Kind() != descriptor.KindModule || filepath.Base(m.Path) != "module.yaml" {
		t.Errorf("module = %+v", m)
	}
}

func TestRegistry_DiscoverInvalidModule(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeModule(t, root, "bad", "version: '1'\n")

	err := NewRegistry().Discover(context.Background(), root)
	if !errors.Is(err, descriptor.ErrSchema) {
		t.Errorf("Discover() error = %v, want ErrSchema", err)
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeModule(t, root, "a", "name: jdk\nversion: '11'\n")
	writeModule(t, root, "b", "name: jdk\nversion: '11'\n")

	err := NewRegistry().Discover(context.Background(), root)
	var dup *DuplicateModuleError
	if !errors.As(err, &dup) {
		t.Fatalf("Discover() error = %v, want DuplicateModuleError", err)
	}
	if !errors.Is(err, ErrDuplicateModule) || len(dup.Paths) != 2 {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, doc := range []map[string]any{
		{"name": "jdk", "version": "11"},
		{"name": "jdk", "version": "17"},
		{"name": "maven"},
	} {
		if _, err := r.Add(descriptor.MustNew(descriptor.KindModule, doc), "mem"); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		module  string
		version string
		want    string
		wantErr error
	}{
		{"pinned", "jdk", "17", "jdk@17", nil},
		{"single version", "maven", "", "maven", nil},
		{"ambiguous", "jdk", "", "", ErrAmbiguousModule},
		{"unknown version", "jdk", "8", "", ErrModuleNotFound},
		{"unknown module", "python", "", "", ErrModuleNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := r.Lookup(tt.module, tt.version)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Lookup() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if m.Key() != tt.want {
				t.Errorf("Lookup() = %s, want %s", m.Key(), tt.want)
			}
		})
	}
}

func newTestRegistry(t *testing.T, docs ...descriptor.Ordered) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, doc := range docs {
		if _, err := r.Add(descriptor.MustNew(descriptor.KindModule, doc), "mem"); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func install(names ...string) descriptor.Ordered {
	list := make([]any, len(names))
	for i, n := range names {
		list[i] = descriptor.Ordered{{Key: "name", Value: n}}
	}
	return descriptor.Ordered{{Key: "install", Value: list}}
}

func TestRegistry_Resolve(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t,
		descriptor.Ordered{{Key: "name", Value: "app"}, {Key: "modules", Value: install("maven", "jdk")}},
		descriptor.Ordered{{Key: "name", Value: "maven"}, {Key: "modules", Value: install("jdk")}},
		descriptor.Ordered{{Key: "name", Value: "jdk"}},
		descriptor.Ordered{{Key: "name", Value: "tools"}},
	)

	mods, err := r.Resolve([]Install{{Name: "app"}, {Name: "tools"}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []string{"app", "tools", "maven", "jdk"}
	if got := keys(mods); !slices.Equal(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestRegistry_ResolveCycle(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t,
		descriptor.Ordered{{Key: "name", Value: "a"}, {Key: "modules", Value: install("b")}},
		descriptor.Ordered{{Key: "name", Value: "b"}, {Key: "modules", Value: install("a")}},
	)

	_, err := r.Resolve([]Install{{Name: "a"}})
	var cycle *dag.CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Resolve() error = %v, want CycleError", err)
	}
}

func TestRegistry_ResolveErrors(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t,
		descriptor.Ordered{{Key: "name", Value: "app"}, {Key: "modules", Value: descriptor.Ordered{
			{Key: "install", Value: []any{descriptor.Ordered{{Key: "name", Value: "jdk"}, {Key: "version", Value: "11"}}}},
		}}},
		descriptor.Ordered{{Key: "name", Value: "broken"}, {Key: "modules", Value: install("missing")}},
		descriptor.Ordered{{Key: "name", Value: "jdk"}, {Key: "version", Value: "11"}},
		descriptor.Ordered{{Key: "name", Value: "jdk"}, {Key: "version", Value: "17"}},
	)

	if _, err := r.Resolve([]Install{{Name: "broken"}}); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("missing dependency: error = %v, want ErrModuleNotFound", err)
	}
	if _, err := r.Resolve([]Install{{Name: "jdk", Version: "17"}, {Name: "app"}}); !errors.Is(err, ErrModuleConflict) {
		t.Errorf("conflicting versions: error = %v, want ErrModuleConflict", err)
	}
	mods, err := r.Resolve([]Install{{Name: "app"}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := keys(mods); !slices.Equal(got, []string{"app", "jdk@11"}) {
		t.Errorf("Resolve() = %v", got)
	}
}

func TestRepositoriesOf(t *testing.T) {
	t.Parallel()

	img := descriptor.MustNew(descriptor.KindImage, descriptor.Ordered{
		{Key: "name", Value: "img"}, {Key: "version", Value: "1"}, {Key: "from", Value: "base"},
		{Key: "modules", Value: descriptor.Ordered{{Key: "repositories", Value: []any{
			descriptor.Ordered{{Key: "path", Value: "modules"}},
			descriptor.Ordered{{Key: "name", Value: "common"}, {Key: "git", Value: descriptor.Ordered{
				{Key: "url", Value: "https://github.com/example/modules.git"}, {Key: "ref", Value: "v1"},
			}}},
		}}}},
	})

	repos, err := RepositoriesOf(img, "/images/app")
	if err != nil {
		t.Fatalf("RepositoriesOf() error = %v", err)
	}
	want := []Repository{
		{Path: filepath.Join("/images/app", "modules")},
		{Name: "common", GitURL: "https://github.com/example/modules.git", GitRef: "v1"},
	}
	if !slices.Equal(repos, want) {
		t.Errorf("RepositoriesOf() = %+v, want %+v", repos, want)
	}

	empty := descriptor.MustNew(descriptor.KindModule, descriptor.Ordered{
		{Key: "name", Value: "m"},
		{Key: "modules", Value: descriptor.Ordered{{Key: "repositories", Value: []any{descriptor.Ordered{{Key: "name", Value: "x"}}}}}},
	})
	if _, err := RepositoriesOf(empty, "."); !errors.Is(err, ErrInvalidRepository) {
		t.Errorf("RepositoriesOf() error = %v, want ErrInvalidRepository", err)
	}
}

func TestRegistry_DiscoverRepositories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeModule(t, root, "jdk", "name: jdk\n")

	r := NewRegistry()
	err := r.DiscoverRepositories(context.Background(), []Repository{{Path: root}})
	if err != nil {
		t.Fatalf("DiscoverRepositories() error = %v", err)
	}
	if _, err := r.Lookup("jdk", ""); err != nil {
		t.Errorf("Lookup() error = %v", err)
	}

	err = r.DiscoverRepositories(context.Background(), []Repository{{GitURL: "https://example.com/x.git"}})
	if !errors.Is(err, ErrInvalidRepository) {
		t.Errorf("git repository without fetcher: error = %v, want ErrInvalidRepository", err)
	}
}

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	versions := []string{"latest", "3.10", "", "v3.9.1", "3.9", "17", "rc"}
	slices.SortFunc(versions, CompareVersions)

	want := []string{"3.9", "v3.9.1", "3.10", "17", "", "latest", "rc"}
	if !slices.Equal(versions, want) {
		t.Errorf("sorted = %q, want %q", versions, want)
	}
}

func TestRegistry_AmbiguousVersionsSorted(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t,
		descriptor.Ordered{{Key: "name", Value: "maven"}, {Key: "version", Value: "3.10"}},
		descriptor.Ordered{{Key: "name", Value: "maven"}, {Key: "version", Value: "3.9"}},
	)

	_, err := r.Lookup("maven", "")
	var ambiguous *AmbiguousModuleError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("Lookup() error = %v, want AmbiguousModuleError", err)
	}
	if want := []string{"3.9", "3.10"}; !slices.Equal(ambiguous.Versions, want) {
		t.Errorf("Versions = %v, want %v", ambiguous.Versions, want)
	}
}
