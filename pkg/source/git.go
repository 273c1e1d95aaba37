// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/invowk/modfs/pkg/vfs"
)

// NamePlaceholder is replaced by the package name in git URL templates.
const NamePlaceholder = "{name}"

// Git serves packages from git repositories. Version tags ("v1.2.3" or
// "1.2.3") are the available versions; the selected tag is shallow-cloned
// into memory.
type Git struct {
	urlTemplate string
	auth        transport.AuthMethod
	opts        options
}

// NewGit creates a git source. urlTemplate must contain NamePlaceholder,
// e.g. "https://github.com/acme/{name}.git". HTTP credentials are taken
// from GITHUB_TOKEN, GITLAB_TOKEN or GIT_TOKEN when set.
func NewGit(urlTemplate string, opts ...Option) *Git {
	return &Git{urlTemplate: urlTemplate, auth: httpAuthFromEnv(), opts: applyOptions(opts)}
}

func httpAuthFromEnv() transport.AuthMethod {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "x-access-token", Password: token}
	}
	if token := os.Getenv("GITLAB_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "oauth2", Password: token}
	}
	if token := os.Getenv("GIT_TOKEN"); token != "" {
		user := os.Getenv("GIT_USERNAME")
		if user == "" {
			user = "git"
		}
		return &http.BasicAuth{Username: user, Password: token}
	}
	return nil
}

// URL returns the repository URL of name.
func (g *Git) URL(name string) string {
	return strings.ReplaceAll(g.urlTemplate, NamePlaceholder, strings.TrimPrefix(name, "@"))
}

// Versions lists the version tags of name's repository, mapped from
// version to tag name.
func (g *Git) Versions(ctx context.Context, name string) (map[string]string, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{g.URL(name)},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: g.auth})
	if errors.Is(err, transport.ErrRepositoryNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, g.URL(name))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list remote refs: %w", err)
	}
	return versionTags(refs), nil
}

// versionTags keeps the tags that look like versions.
func versionTags(refs []*plumbing.Reference) map[string]string {
	tags := make(map[string]string)
	for _, ref := range refs {
		if !ref.Name().IsTag() {
			continue
		}
		tag := ref.Name().Short()
		version := strings.TrimPrefix(tag, "v")
		if _, taken := tags[version]; taken && strings.HasPrefix(tag, "v") {
			continue
		}
		tags[version] = tag
	}
	return tags
}

// Fetch implements installer.Fetcher.
func (g *Git) Fetch(ctx context.Context, name, constraint string) (*vfs.FileSystem, error) {
	tags, err := g.Versions(ctx, name)
	if err != nil {
		return nil, err
	}
	version, err := selectVersion(name, constraint, keys(tags))
	if err != nil {
		return nil, err
	}
	tag := tags[version]
	g.opts.logger.Debug("cloning", "url", g.URL(name), "tag", tag)

	worktree := memfs.New()
	_, err = git.CloneContext(ctx, memory.NewStorage(), worktree, &git.CloneOptions{
		URL:           g.URL(name),
		Auth:          g.auth,
		ReferenceName: plumbing.NewTagReferenceName(tag),
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s at %s: %w", g.URL(name), tag, err)
	}

	root, err := copyBilly(worktree)
	if err != nil {
		return nil, err
	}
	return vfs.FromDirectory(root, "git:"+name+"@"+version), nil
}

// copyBilly copies a billy filesystem into a directory tree.
func copyBilly(bfs billy.Filesystem) (*vfs.Directory, error) {
	root := vfs.NewDirectory()
	rootPath := vfs.NewRoot(root)
	err := util.Walk(bfs, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(filepath.ToSlash(p), "/")
		if rel == "" {
			return nil
		}
		if rel == ".git" && info.IsDir() {
			return filepath.SkipDir
		}
		spec := hostSpecifier(rel)

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := bfs.Readlink(p)
			if err != nil {
				return err
			}
			_, err = vfs.Link(rootPath, spec, filepath.ToSlash(target))
			return err
		case info.IsDir():
			_, err := vfs.MkdirAll(rootPath, spec)
			return err
		default:
			f, err := bfs.Open(p)
			if err != nil {
				return err
			}
			defer f.Close()
			data, err := io.ReadAll(f)
			if err != nil {
				return err
			}
			_, err = vfs.WriteFile(rootPath, spec, data)
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("copy worktree: %w", err)
	}
	return root, nil
}
