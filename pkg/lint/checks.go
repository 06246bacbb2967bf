package lint

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v2"
	"github.com/gosimple/slug"

	"github.com/opnlabs/slipway/pkg/condition"
	"github.com/opnlabs/slipway/pkg/diag"
	"github.com/opnlabs/slipway/pkg/models"
	"github.com/opnlabs/slipway/pkg/plan"
	"github.com/opnlabs/slipway/pkg/resources"
)

// Finding codes, grouped by area. Codes are stable across releases.
const (
	CodeParse        = "SW1001"
	CodeUnknownField = "SW1002"
	CodeShape        = "SW1003"

	CodeJobName           = "SW2001"
	CodeDuplicateJob      = "SW2002"
	CodeMissingTemplate   = "SW2003"
	CodeBadOS             = "SW2004"
	CodeBadTemplateRef    = "SW2005"
	CodeUndeclaredAlias   = "SW2006"
	CodeUnknownDependency = "SW2007"
	CodeSelfDependency    = "SW2008"
	CodeDependencyCycle   = "SW2009"
	CodeBadCondition      = "SW2010"
	CodeUnresolvedGroup   = "SW2011"
	CodeConstantCondition = "SW2012"

	CodeBadRepository    = "SW3001"
	CodeDuplicateAlias   = "SW3002"
	CodeUnusedRepository = "SW3003"

	CodeBadPattern  = "SW4001"
	CodeEmptyFilter = "SW4002"

	CodeBadSchedule = "SW5001"

	CodeTemplateNotFound     = "SW6001"
	CodeUnresolvedRepository = "SW6002"
)

func checkJobs(name string, p *models.Pipeline) []diag.Finding {
	var findings []diag.Finding
	seen := make(map[models.JobName]int, len(p.Jobs))
	for i := range p.Jobs {
		job := &p.Jobs[i]
		jobName := job.Name()
		label := jobLabel(i, jobName)

		if jobName == "" {
			findings = append(findings, diag.Finding{
				File: name, Code: CodeJobName, Severity: diag.SeverityError,
				Message: fmt.Sprintf("%s has no name parameter and no template to derive a name from", label),
			})
		} else if err := jobName.Validate(); err != nil {
			f := diag.Finding{
				File: name, Code: CodeJobName, Severity: diag.SeverityError,
				Message: fmt.Sprintf("%s: %v", label, err),
			}
			if s := slug.Make(jobName.String()); s != "" && models.JobName(s).Valid() {
				f.Hint = fmt.Sprintf("consider '%s'", s)
			}
			findings = append(findings, f)
		} else if prev, dup := seen[jobName]; dup {
			findings = append(findings, diag.Finding{
				File: name, Code: CodeDuplicateJob, Severity: diag.SeverityError,
				Message: fmt.Sprintf("duplicate job name '%s', first used by job %d", jobName, prev),
			})
		} else {
			seen[jobName] = i
		}

		if job.Template.IsZero() {
			findings = append(findings, diag.Finding{
				File: name, Code: CodeMissingTemplate, Severity: diag.SeverityError,
				Message: fmt.Sprintf("%s does not reference a template", label),
			})
		} else if err := job.Template.Validate(); err != nil {
			findings = append(findings, diag.Finding{
				File: name, Code: CodeBadTemplateRef, Severity: diag.SeverityError,
				Message: fmt.Sprintf("%s: %v", label, err),
			})
		} else if alias := job.Template.Alias; alias != "" && p.Repository(alias) == nil {
			findings = append(findings, diag.Finding{
				File: name, Code: CodeUndeclaredAlias, Severity: diag.SeverityError,
				Message: fmt.Sprintf("%s references undeclared repository '%s'", label, alias),
			})
		}

		if os := job.Parameters.OS(); os != "" {
			if err := os.Validate(); err != nil {
				findings = append(findings, diag.Finding{
					File: name, Code: CodeBadOS, Severity: diag.SeverityError,
					Message: fmt.Sprintf("%s: %v", label, err),
				})
			}
		}

		if job.Condition.Defined() {
			expr, err := condition.Parse(job.Condition.String())
			if err != nil {
				findings = append(findings, diag.Finding{
					File: name, Code: CodeBadCondition, Severity: diag.SeverityError,
					Message: fmt.Sprintf("%s: %v", label, err),
				})
			} else if len(expr.References()) == 0 {
				if ok, evalErr := expr.Eval(nil); evalErr == nil && !ok {
					findings = append(findings, diag.Finding{
						File: name, Code: CodeConstantCondition, Severity: diag.SeverityWarning,
						Message: fmt.Sprintf("%s has a condition that always evaluates to false", label),
						Hint:    "the job can never be scheduled",
					})
				}
			}
		}
	}
	return findings
}

// checkGraph validates the dependsOn references. Cycle detection only runs
// on a graph whose edges all resolved, otherwise the missing edges would be
// reported twice.
func checkGraph(name string, p *models.Pipeline) []diag.Finding {
	var findings []diag.Finding
	declared := make(map[models.JobName]bool, len(p.Jobs))
	for _, n := range p.JobNames() {
		if n != "" {
			declared[n] = true
		}
	}

	names := make([]models.JobName, 0, len(declared))
	for n := range declared {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	edges := make(map[models.JobName][]models.JobName)
	broken := false
	for i := range p.Jobs {
		job := &p.Jobs[i]
		jobName := job.Name()
		if jobName == "" {
			continue
		}
		for _, dep := range job.DependsOn {
			depName := models.JobName(dep)
			switch {
			case depName == jobName:
				findings = append(findings, diag.Finding{
					File: name, Code: CodeSelfDependency, Severity: diag.SeverityError,
					Message: fmt.Sprintf("job '%s' depends on itself", jobName),
				})
				broken = true
			case !declared[depName]:
				findings = append(findings, diag.Finding{
					File: name, Code: CodeUnknownDependency, Severity: diag.SeverityError,
					Message: fmt.Sprintf("job '%s' depends on unknown job '%s'", jobName, depName),
				})
				broken = true
			default:
				edges[depName] = append(edges[depName], jobName)
			}
		}
	}
	if broken {
		return findings
	}

	if _, err := plan.Waves(names, edges); err != nil {
		msg := err.Error()
		var cycleErr *plan.CycleError
		if stderrors.As(err, &cycleErr) {
			parts := make([]string, len(cycleErr.Path))
			for i, n := range cycleErr.Path {
				parts[i] = n.String()
			}
			msg = "dependency cycle: " + strings.Join(parts, " -> ")
		}
		findings = append(findings, diag.Finding{
			File: name, Code: CodeDependencyCycle, Severity: diag.SeverityError,
			Message: msg,
		})
	}
	return findings
}

func checkResources(name string, p *models.Pipeline) []diag.Finding {
	var findings []diag.Finding
	referenced := make(map[models.ResourceAlias]bool)
	for i := range p.Jobs {
		if alias := p.Jobs[i].Template.Alias; alias != "" {
			referenced[alias] = true
		}
	}

	seen := make(map[models.ResourceAlias]int)
	for i := range p.Resources.Repositories {
		repo := &p.Resources.Repositories[i]
		if repo.Alias != "" {
			if err := repo.Alias.Validate(); err != nil {
				findings = append(findings, diag.Finding{
					File: name, Code: CodeBadRepository, Severity: diag.SeverityError,
					Message: fmt.Sprintf("repository %d: %v", i, err),
				})
			} else if prev, dup := seen[repo.Alias]; dup {
				findings = append(findings, diag.Finding{
					File: name, Code: CodeDuplicateAlias, Severity: diag.SeverityError,
					Message: fmt.Sprintf("duplicate repository alias '%s', first declared by repository %d", repo.Alias, prev),
				})
			} else {
				seen[repo.Alias] = i
				if !referenced[repo.Alias] {
					findings = append(findings, diag.Finding{
						File: name, Code: CodeUnusedRepository, Severity: diag.SeverityInfo,
						Message: fmt.Sprintf("repository '%s' is declared but never referenced by a job", repo.Alias),
					})
				}
			}
		}
		if repo.Type != "" && !repo.Type.Valid() {
			findings = append(findings, diag.Finding{
				File: name, Code: CodeBadRepository, Severity: diag.SeverityError,
				Message: fmt.Sprintf("repository %d: %v", i, repo.Type.Validate()),
			})
		}
	}
	return findings
}

func checkTriggers(name string, p *models.Pipeline) []diag.Finding {
	var findings []diag.Finding
	if t := p.Trigger; t != nil && !t.None {
		findings = append(findings, checkRules(name, "trigger branches", t.Branches)...)
		findings = append(findings, checkRules(name, "trigger tags", t.Tags)...)
		if t.Branches == nil && t.Tags == nil && len(t.Unknown) == 0 {
			findings = append(findings, diag.Finding{
				File: name, Code: CodeEmptyFilter, Severity: diag.SeverityWarning,
				Message: "trigger declares no branch or tag filters and admits nothing",
			})
		}
	}
	if t := p.PR; t != nil && !t.None {
		findings = append(findings, checkRules(name, "pr branches", t.Branches)...)
		findings = append(findings, checkRules(name, "pr tags", t.Tags)...)
	}
	for i := range p.Schedules {
		findings = append(findings, checkRules(name, fmt.Sprintf("schedule %d branches", i), p.Schedules[i].Branches)...)
	}
	return findings
}

// checkRules validates the glob patterns of one filter section.
func checkRules(name, section string, rules *models.FilterRules) []diag.Finding {
	if rules == nil {
		return nil
	}
	var findings []diag.Finding
	patterns := make([]string, 0, len(rules.Include)+len(rules.Exclude))
	patterns = append(patterns, rules.Include...)
	patterns = append(patterns, rules.Exclude...)
	for _, pattern := range patterns {
		if _, err := doublestar.Match(pattern, "probe"); err != nil {
			findings = append(findings, diag.Finding{
				File: name, Code: CodeBadPattern, Severity: diag.SeverityError,
				Message: fmt.Sprintf("%s: invalid glob pattern '%s'", section, pattern),
			})
		}
	}
	if rules.IsEmpty() && len(rules.Unknown) == 0 {
		findings = append(findings, diag.Finding{
			File: name, Code: CodeEmptyFilter, Severity: diag.SeverityWarning,
			Message: fmt.Sprintf("%s section is empty and admits nothing", section),
		})
	}
	return findings
}

func checkSchedules(name string, p *models.Pipeline) []diag.Finding {
	var findings []diag.Finding
	for i := range p.Schedules {
		s := &p.Schedules[i]
		if s.Cron == "" {
			continue
		}
		if err := s.Cron.Validate(); err != nil {
			findings = append(findings, diag.Finding{
				File: name, Code: CodeBadSchedule, Severity: diag.SeverityError,
				Message: fmt.Sprintf("schedule %d: %v", i, err),
			})
		}
	}
	return findings
}

func checkVariables(name string, p *models.Pipeline) []diag.Finding {
	var findings []diag.Finding
	for _, group := range p.Variables.Groups {
		findings = append(findings, diag.Finding{
			File: name, Code: CodeUnresolvedGroup, Severity: diag.SeverityInfo,
			Message: fmt.Sprintf("variable group '%s' cannot be resolved locally", group),
			Hint:    "variables from the group evaluate as empty in conditions",
		})
	}
	return findings
}

// checkTemplates verifies that every referenced template file exists in the
// repository that owns it. Each repository that fails to resolve is reported
// once.
func checkTemplates(ctx context.Context, resolver resources.Resolver, name string, p *models.Pipeline) []diag.Finding {
	var findings []diag.Finding
	failed := make(map[models.ResourceAlias]bool)
	checked := make(map[string]bool)

	for i := range p.Jobs {
		ref := p.Jobs[i].Template
		if ref.IsZero() || !ref.Valid() {
			continue
		}
		var repo models.Repository
		if !ref.Local() {
			declared := p.Repository(ref.Alias)
			if declared == nil {
				continue
			}
			repo = *declared
		}
		if failed[repo.Alias] || checked[ref.String()] {
			continue
		}
		checked[ref.String()] = true

		err := resources.CheckTemplate(ctx, resolver, repo, ref.Path)
		switch {
		case err == nil:
		case stderrors.Is(err, resources.ErrTemplateNotFound):
			findings = append(findings, diag.Finding{
				File: name, Code: CodeTemplateNotFound, Severity: diag.SeverityError,
				Message: err.Error(),
			})
		default:
			failed[repo.Alias] = true
			findings = append(findings, diag.Finding{
				File: name, Code: CodeUnresolvedRepository, Severity: diag.SeverityWarning,
				Message: fmt.Sprintf("repository '%s' could not be resolved: %v", displayAlias(repo.Alias), err),
			})
		}
	}
	return findings
}

func jobLabel(i int, name models.JobName) string {
	if name != "" {
		return fmt.Sprintf("job '%s'", name)
	}
	return fmt.Sprintf("job %d", i)
}

func displayAlias(alias models.ResourceAlias) string {
	if alias == "" {
		return "self"
	}
	return alias.String()
}
