// Package resources materializes a pipeline's repository resources as
// filesystems so the files they own can be checked. Template contents are
// never read or interpreted, only their existence.
package resources

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/pkg/errors"

	"github.com/opnlabs/slipway/pkg/models"
	"github.com/opnlabs/slipway/pkg/store"
)

// ErrNotMounted is returned by resolvers that do not know the repository,
// letting a chain fall through to the next resolver.
var ErrNotMounted = errors.New("resources: repository not mounted")

// ErrTemplateNotFound reports that a repository resolved but does not
// contain the referenced template file.
var ErrTemplateNotFound = errors.New("resources: template not found")

// Resolver materializes a repository resource as a filesystem.
type Resolver interface {
	Resolve(ctx context.Context, repo models.Repository) (billy.Filesystem, error)
}

// DirResolver serves repositories from local directories, keyed by alias.
// It backs vendored template checkouts and tests.
type DirResolver struct {
	mounts map[models.ResourceAlias]string
}

func NewDirResolver(mounts map[string]string) *DirResolver {
	m := make(map[models.ResourceAlias]string, len(mounts))
	for alias, dir := range mounts {
		m[models.ResourceAlias(alias)] = dir
	}
	return &DirResolver{mounts: m}
}

func (d *DirResolver) Resolve(_ context.Context, repo models.Repository) (billy.Filesystem, error) {
	dir, ok := d.mounts[repo.Alias]
	if !ok {
		return nil, ErrNotMounted
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "error mounting repository '%s'", repo.Alias)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("resources: mount for repository '%s' is not a directory: %s", repo.Alias, dir)
	}
	return osfs.New(dir), nil
}

// GitResolver clones repositories into memory at their declared ref.
// Results are cached for the lifetime of the resolver.
type GitResolver struct {
	cache store.Store
}

func NewGitResolver() *GitResolver {
	return &GitResolver{cache: store.NewMemStore()}
}

func (g *GitResolver) Resolve(ctx context.Context, repo models.Repository) (billy.Filesystem, error) {
	fs, err := g.cache.GetOrSet(cacheKey(repo), func() (interface{}, error) {
		url, err := repo.CloneURL()
		if err != nil {
			return nil, err
		}
		fs, err := clone(ctx, url, repo.Ref)
		if err != nil {
			return nil, errors.Wrapf(err, "error cloning repository '%s' (%s)", repo.Alias, url)
		}
		return fs, nil
	})
	if err != nil {
		return nil, err
	}
	return fs.(billy.Filesystem), nil
}

func cacheKey(repo models.Repository) string {
	return fmt.Sprintf("%s:%s#%s", repo.Type, repo.Name, repo.Ref)
}

// clone fetches a shallow single-branch copy. A bare ref name is tried as a
// branch first, then as a tag.
func clone(ctx context.Context, url, ref string) (billy.Filesystem, error) {
	if ref == "" {
		return cloneAt(ctx, url, "")
	}
	if strings.HasPrefix(ref, "refs/") {
		return cloneAt(ctx, url, plumbing.ReferenceName(ref))
	}
	fs, err := cloneAt(ctx, url, plumbing.NewBranchReferenceName(ref))
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		return cloneAt(ctx, url, plumbing.NewTagReferenceName(ref))
	}
	return fs, err
}

func cloneAt(ctx context.Context, url string, ref plumbing.ReferenceName) (billy.Filesystem, error) {
	fs := memfs.New()
	opts := &git.CloneOptions{
		URL:          url,
		SingleBranch: true,
		Depth:        1,
	}
	if ref != "" {
		opts.ReferenceName = ref
	}
	if _, err := git.CloneContext(ctx, memory.NewStorage(), fs, opts); err != nil {
		return nil, err
	}
	return fs, nil
}

// ChainResolver tries each resolver in order, falling through on
// ErrNotMounted.
type ChainResolver []Resolver

func (c ChainResolver) Resolve(ctx context.Context, repo models.Repository) (billy.Filesystem, error) {
	for _, r := range c {
		fs, err := r.Resolve(ctx, repo)
		if stderrors.Is(err, ErrNotMounted) {
			continue
		}
		return fs, err
	}
	return nil, ErrNotMounted
}

// CheckTemplate verifies that the template file a job references exists in
// the repository that owns it. A missing or non-regular file is reported as
// ErrTemplateNotFound; any other error means the repository itself could not
// be resolved.
func CheckTemplate(ctx context.Context, r Resolver, repo models.Repository, templatePath string) error {
	fs, err := r.Resolve(ctx, repo)
	if err != nil {
		return err
	}
	info, err := fs.Stat(templatePath)
	if err != nil {
		return errors.Wrapf(ErrTemplateNotFound, "template '%s' in repository '%s'", templatePath, repoLabel(repo))
	}
	if info.IsDir() {
		return errors.Wrapf(ErrTemplateNotFound, "template '%s' in repository '%s' is a directory", templatePath, repoLabel(repo))
	}
	return nil
}

// repoLabel names a repository in messages. The empty alias is the
// repository holding the pipeline itself.
func repoLabel(repo models.Repository) string {
	if repo.Alias == "" {
		return "self"
	}
	return repo.Alias.String()
}
