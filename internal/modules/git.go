// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

type (
	// GitFetcher clones module repositories into a cache directory.
	GitFetcher struct {
		// CacheDir is the base directory for cloned repositories.
		CacheDir string

		// auth overrides the credentials detected for each URL.
		auth   transport.AuthMethod
		logger *slog.Logger
	}

	// GitFetcherOption configures a GitFetcher.
	GitFetcherOption func(*GitFetcher)
)

// WithAuth sets the authentication used for clones, replacing the
// credentials detected from the environment.
func WithAuth(auth transport.AuthMethod) GitFetcherOption {
	return func(f *GitFetcher) {
		f.auth = auth
	}
}

// WithFetcherLogger sets the logger used for debug output.
func WithFetcherLogger(logger *slog.Logger) GitFetcherOption {
	return func(f *GitFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewGitFetcher creates a Git fetcher caching clones under cacheDir.
func NewGitFetcher(cacheDir string, opts ...GitFetcherOption) *GitFetcher {
	f := &GitFetcher{
		CacheDir: cacheDir,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the local clone of gitURL at ref, cloning it when the cache
// has no clone yet. ref is tried as a branch, then as a tag; an empty ref
// clones the default branch. Existing clones are reused as they are.
//
// Only directories created by the clone are removed when it fails; a cache
// entry that exists but is not a repository is reported, never deleted.
func (f *GitFetcher) Fetch(ctx context.Context, gitURL, ref string) (string, error) {
	dest, err := f.cachePath(gitURL, ref)
	if err != nil {
		return "", err
	}

	if _, err := git.PlainOpen(dest); err == nil {
		f.logger.Debug("reusing cached module repository", "url", gitURL, "ref", ref, "path", dest)
		return dest, nil
	}
	if _, err := os.Lstat(dest); err == nil {
		return "", fmt.Errorf("%w %s: cache entry %s exists and is not a git repository", ErrInvalidRepository, gitURL, dest)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent directory: %w", err)
	}

	refNames := []plumbing.ReferenceName{""}
	if ref != "" {
		refNames = []plumbing.ReferenceName{
			plumbing.NewBranchReferenceName(ref),
			plumbing.NewTagReferenceName(ref),
		}
	}

	var lastErr error
	for _, refName := range refNames {
		f.logger.Debug("cloning module repository", "url", gitURL, "ref", refName.String(), "path", dest)
		_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
			URL:           gitURL,
			Auth:          f.authFor(gitURL),
			ReferenceName: refName,
			SingleBranch:  refName != "",
			Depth:         1,
		})
		if err == nil {
			return dest, nil
		}
		lastErr = err
		// dest did not exist before this attempt
		_ = os.RemoveAll(dest)
	}

	if ref == "" {
		return "", fmt.Errorf("%w %s: %w", ErrFetchFailed, gitURL, lastErr)
	}
	return "", fmt.Errorf("%w %s at %s: %w", ErrFetchFailed, gitURL, ref, lastErr)
}

// cachePath generates a cache path for a repository and ref.
// e.g., "https://github.com/user/repo.git" at "v1" -> "<cache>/sources/github.com/user/repo@v1"
// URLs whose path would leave the sources directory are rejected.
func (f *GitFetcher) cachePath(gitURL, ref string) (string, error) {
	path := gitURL
	for _, prefix := range []string{"https://", "http://", "ssh://", "git://", "file://", "git@"} {
		path = strings.TrimPrefix(path, prefix)
	}
	path = strings.TrimSuffix(path, ".git")
	path = strings.ReplaceAll(path, ":", "/")
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.Trim(path, "/")
	if ref != "" {
		path += "@" + strings.NewReplacer("/", "_", "\\", "_").Replace(ref)
	}

	for _, segment := range strings.Split(path, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("%w %s: URL path escapes the module cache", ErrInvalidRepository, gitURL)
		}
	}

	root := filepath.Join(f.CacheDir, "sources")
	dest := filepath.Join(root, filepath.FromSlash(path))
	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w %s: URL path escapes the module cache", ErrInvalidRepository, gitURL)
	}
	return dest, nil
}

// authFor picks credentials for a URL: SSH keys for SSH remotes, token
// variables for HTTP remotes, nothing for local paths.
func (f *GitFetcher) authFor(gitURL string) transport.AuthMethod {
	if f.auth != nil {
		return f.auth
	}
	switch {
	case strings.HasPrefix(gitURL, "git@"), strings.HasPrefix(gitURL, "ssh://"):
		return trySSHAuth()
	case strings.HasPrefix(gitURL, "https://"), strings.HasPrefix(gitURL, "http://"):
		return tryHTTPAuth()
	default:
		return nil
	}
}

// trySSHAuth attempts to configure SSH authentication from the usual key locations.
func trySSHAuth() transport.AuthMethod {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyPath := filepath.Join(homeDir, ".ssh", name)
		if _, err := os.Stat(keyPath); err != nil {
			continue
		}
		if auth, err := ssh.NewPublicKeysFromFile("git", keyPath, ""); err == nil {
			return auth
		}
	}
	return nil
}

// tryHTTPAuth attempts to configure HTTP authentication from token variables.
func tryHTTPAuth() transport.AuthMethod {
	tokens := []struct{ env, user string }{
		{"GITHUB_TOKEN", "x-access-token"},
		{"GITLAB_TOKEN", "gitlab-ci-token"},
		{"GIT_TOKEN", "git"},
	}
	for _, tok := range tokens {
		if token := os.Getenv(tok.env); token != "" {
			return &http.BasicAuth{Username: tok.user, Password: token}
		}
	}
	return nil
}
