// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/invowk/imagekit/pkg/descriptor"
)

// Repository is a source of module definitions: a local directory or a git
// repository at an optional ref.
type Repository struct {
	Name   string
	Path   string
	GitURL string
	GitRef string
}

// String returns a short description of the repository source.
func (r Repository) String() string {
	if r.GitURL != "" {
		if r.GitRef == "" {
			return r.GitURL
		}
		return r.GitURL + "@" + r.GitRef
	}
	return r.Path
}

// Root returns the local directory holding the repository content, cloning
// git repositories with fetcher.
func (r Repository) Root(ctx context.Context, fetcher *GitFetcher) (string, error) {
	if r.GitURL == "" {
		return r.Path, nil
	}
	if fetcher == nil {
		return "", fmt.Errorf("%w: %s: git repositories need a cache directory", ErrInvalidRepository, r)
	}
	return fetcher.Fetch(ctx, r.GitURL, r.GitRef)
}

// RepositoriesOf returns the modules.repositories of an image or module
// descriptor. Relative paths are resolved against baseDir.
func RepositoriesOf(d *descriptor.Descriptor, baseDir string) ([]Repository, error) {
	section := d.Descriptor("modules")
	if section == nil {
		return nil, nil
	}

	var repos []Repository
	for i, elem := range section.List("repositories") {
		rd, ok := elem.(*descriptor.Descriptor)
		if !ok {
			continue
		}
		repo := Repository{Name: rd.Name(), Path: rd.String("path")}
		if g := rd.Descriptor("git"); g != nil {
			repo.GitURL = g.String("url")
			repo.GitRef = g.String("ref")
		}

		switch {
		case repo.GitURL != "":
		case repo.Path != "":
			if !filepath.IsAbs(repo.Path) {
				repo.Path = filepath.Join(baseDir, repo.Path)
			}
		default:
			return nil, fmt.Errorf("%w: modules.repositories[%d] needs a path or a git url", ErrInvalidRepository, i)
		}
		repos = append(repos, repo)
	}
	return repos, nil
}
