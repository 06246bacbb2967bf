// Package trigger decides whether a pushed ref starts a pipeline run.
package trigger

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v2"

	"github.com/opnlabs/slipway/pkg/models"
)

// Decision explains why a ref was or was not admitted. Rule carries the glob
// pattern that decided, when a single pattern did.
type Decision struct {
	Admitted bool   `json:"admitted"`
	Rule     string `json:"rule,omitempty"`
	Reason   string `json:"reason"`
}

// Evaluate applies a pipeline's push trigger to a ref.
//
// An absent trigger admits branch pushes and ignores tag pushes. A trigger
// carrying only a tags section restricts the pipeline to tag pushes, so
// branch pushes are not admitted. 'trigger: none' admits nothing.
func Evaluate(t *models.Trigger, ref Ref) Decision {
	if t != nil && t.None {
		return Decision{Admitted: false, Reason: "push runs are disabled (trigger: none)"}
	}
	switch ref.Kind {
	case RefTag:
		if t == nil || t.Tags == nil {
			return Decision{Admitted: false, Reason: "no tag filters declared, tag pushes do not run"}
		}
		return admit(t.Tags, ref.Name, "tag")
	case RefBranch:
		if t == nil || (t.Branches == nil && t.Tags == nil) {
			return Decision{Admitted: true, Reason: "no filters declared, branch pushes run"}
		}
		if t.Branches == nil {
			return Decision{Admitted: false, Reason: "trigger is restricted to tags, branch pushes do not run"}
		}
		return admit(t.Branches, ref.Name, "branch")
	case RefPullRequest:
		return Decision{Admitted: false, Reason: "pull request refs are decided by the pr section"}
	default:
		return Decision{Admitted: false, Reason: fmt.Sprintf("unsupported ref '%s'", ref.Full)}
	}
}

// EvaluatePR applies the pr section to the source branch of a pull request.
// An absent section admits every branch.
func EvaluatePR(pr *models.Trigger, sourceBranch Ref) Decision {
	if pr != nil && pr.None {
		return Decision{Admitted: false, Reason: "pull request runs are disabled (pr: none)"}
	}
	if pr == nil || pr.Branches == nil {
		return Decision{Admitted: true, Reason: "no pr filters declared, pull requests run"}
	}
	return admit(pr.Branches, sourceBranch.Name, "branch")
}

// admit checks a name against one filter section. The name must match at
// least one include pattern and no exclude pattern; an absent include list
// with excludes present means include-all.
func admit(rules *models.FilterRules, name, kind string) Decision {
	if rules.IsEmpty() {
		return Decision{Admitted: false, Reason: fmt.Sprintf("empty %s filter section admits nothing", kind)}
	}
	if pattern, ok := matchAny(rules.Exclude, name); ok {
		return Decision{
			Admitted: false,
			Rule:     pattern,
			Reason:   fmt.Sprintf("%s '%s' is excluded by '%s'", kind, name, pattern),
		}
	}
	if len(rules.Include) == 0 {
		return Decision{Admitted: true, Reason: fmt.Sprintf("%s '%s' matches no exclude pattern", kind, name)}
	}
	if pattern, ok := matchAny(rules.Include, name); ok {
		return Decision{
			Admitted: true,
			Rule:     pattern,
			Reason:   fmt.Sprintf("%s '%s' matches '%s'", kind, name, pattern),
		}
	}
	return Decision{Admitted: false, Reason: fmt.Sprintf("%s '%s' matches no include pattern", kind, name)}
}

// matchAny returns the first pattern matching name. Patterns that fail to
// compile are skipped; lint reports those separately.
func matchAny(patterns []string, name string) (string, bool) {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, name)
		if err != nil {
			continue
		}
		if ok {
			return p, true
		}
	}
	return "", false
}
