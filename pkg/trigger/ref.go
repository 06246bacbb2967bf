package trigger

import (
	"strings"

	"github.com/pkg/errors"
)

type RefKind string

const (
	RefBranch      RefKind = "branch"
	RefTag         RefKind = "tag"
	RefPullRequest RefKind = "pr"
)

const (
	branchRefPrefix = "refs/heads/"
	tagRefPrefix    = "refs/tags/"
	pullRefPrefix   = "refs/pull/"
)

// Ref is a parsed git ref as the platform reports it on a push. Name holds
// the short branch or tag name, or the pull request number.
type Ref struct {
	Kind RefKind `json:"kind"`
	Name string  `json:"name"`
	Full string  `json:"full"`
}

func (r Ref) String() string {
	return r.Full
}

// ParseRef classifies a fully qualified ref like refs/tags/v1.0.
func ParseRef(s string) (Ref, error) {
	switch {
	case strings.HasPrefix(s, branchRefPrefix):
		name := strings.TrimPrefix(s, branchRefPrefix)
		if name == "" {
			return Ref{}, errors.Errorf("trigger: branch ref '%s' has no name", s)
		}
		return Ref{Kind: RefBranch, Name: name, Full: s}, nil
	case strings.HasPrefix(s, tagRefPrefix):
		name := strings.TrimPrefix(s, tagRefPrefix)
		if name == "" {
			return Ref{}, errors.Errorf("trigger: tag ref '%s' has no name", s)
		}
		return Ref{Kind: RefTag, Name: name, Full: s}, nil
	case strings.HasPrefix(s, pullRefPrefix):
		rest := strings.TrimPrefix(s, pullRefPrefix)
		number, _, _ := strings.Cut(rest, "/")
		if number == "" {
			return Ref{}, errors.Errorf("trigger: pull request ref '%s' has no number", s)
		}
		return Ref{Kind: RefPullRequest, Name: number, Full: s}, nil
	default:
		return Ref{}, errors.Errorf("trigger: unsupported ref '%s', expected a refs/heads/, refs/tags/ or refs/pull/ ref", s)
	}
}

// BranchRef builds a branch ref from a short name.
func BranchRef(name string) Ref {
	return Ref{Kind: RefBranch, Name: name, Full: branchRefPrefix + name}
}

// TagRef builds a tag ref from a short name.
func TagRef(name string) Ref {
	return Ref{Kind: RefTag, Name: name, Full: tagRefPrefix + name}
}
