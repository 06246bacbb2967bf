// Package gitref inspects a working copy to determine the ref a plan should
// be evaluated against.
package gitref

import (
	"sort"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"

	"github.com/opnlabs/slipway/pkg/trigger"
)

// Head reports the ref checked out at path. A tag pointing at HEAD wins over
// the branch name, matching how tag pushes arrive in CI. When several tags
// point at HEAD the lexicographically first full ref name is used.
func Head(path string) (trigger.Ref, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return trigger.Ref{}, errors.Wrapf(err, "error opening repository at %s", path)
	}
	head, err := repo.Head()
	if err != nil {
		return trigger.Ref{}, errors.Wrap(err, "error reading HEAD")
	}

	tags, err := tagsAt(repo, head.Hash())
	if err != nil {
		return trigger.Ref{}, err
	}
	if len(tags) > 0 {
		sort.Strings(tags)
		return trigger.ParseRef(tags[0])
	}
	if head.Name().IsBranch() {
		return trigger.ParseRef(string(head.Name()))
	}
	return trigger.Ref{}, errors.Errorf("gitref: HEAD is detached at %s and no tag points at it", head.Hash().String()[:8])
}

// tagsAt returns the full ref names of all tags pointing at hash, following
// annotated tags to their target commit.
func tagsAt(repo *git.Repository, hash plumbing.Hash) ([]string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, errors.Wrap(err, "error listing tags")
	}
	var tags []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if obj, tagErr := repo.TagObject(ref.Hash()); tagErr == nil {
			target = obj.Target
		}
		if target == hash {
			tags = append(tags, string(ref.Name()))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "error walking tags")
	}
	return tags, nil
}
