// Package plan turns a pipeline definition and a build context into an
// ordered execution plan.
package plan

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/opnlabs/slipway/pkg/condition"
	"github.com/opnlabs/slipway/pkg/models"
	"github.com/opnlabs/slipway/pkg/trigger"
)

// Build.Reason values the toolkit understands.
const (
	ReasonManual       = "Manual"
	ReasonIndividualCI = "IndividualCI"
	ReasonPullRequest  = "PullRequest"
	ReasonSchedule     = "Schedule"
)

// Options is the build context a plan is computed against.
type Options struct {
	Ref    trigger.Ref
	Reason string
	// Variables are merged over the pipeline's own variables and win on
	// collision.
	Variables map[string]string
}

// Job is one scheduled unit within a plan. DependsOn lists only the
// dependencies that are themselves part of the plan.
type Job struct {
	Name      models.JobName   `json:"name"`
	Template  string           `json:"template"`
	OS        string           `json:"os,omitempty"`
	Env       string           `json:"env,omitempty"`
	DependsOn []models.JobName `json:"depends_on,omitempty"`
	Wave      int              `json:"wave"`
}

// Exclusion records a job left out of the plan and why.
type Exclusion struct {
	Name   models.JobName `json:"name"`
	Reason string         `json:"reason"`
}

// Plan is the evaluated result: which jobs run, in which order, and why the
// rest do not. A plan is still produced when the trigger would not admit the
// ref; the decision records that.
type Plan struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Ref       string             `json:"ref"`
	Reason    string             `json:"reason"`
	Trigger   trigger.Decision   `json:"trigger"`
	Jobs      []Job              `json:"jobs"`
	Waves     [][]models.JobName `json:"waves"`
	Excluded  []Exclusion        `json:"excluded,omitempty"`
	Notes     []string           `json:"notes,omitempty"`
}

func (p *Plan) JSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// BuildVariables merges the pipeline's variables with the platform context
// for a ref and reason. Caller overrides win on collision.
func BuildVariables(pipeline *models.Pipeline, opts Options) map[string]string {
	vars := make(map[string]string, len(pipeline.Variables.Values)+3+len(opts.Variables))
	for k, v := range pipeline.Variables.Values {
		vars[k] = v
	}
	vars["Build.SourceBranch"] = opts.Ref.Full
	vars["Build.SourceBranchName"] = path.Base(opts.Ref.Name)
	vars["Build.Reason"] = opts.Reason
	for k, v := range opts.Variables {
		vars[k] = v
	}
	return vars
}

// Build evaluates the pipeline against the build context.
func Build(pipeline *models.Pipeline, opts Options) (*Plan, error) {
	if opts.Reason == "" {
		if opts.Ref.Kind == trigger.RefPullRequest {
			opts.Reason = ReasonPullRequest
		} else {
			opts.Reason = ReasonIndividualCI
		}
	}

	var decision trigger.Decision
	if opts.Ref.Kind == trigger.RefPullRequest {
		decision = trigger.EvaluatePR(pipeline.PR, opts.Ref)
	} else {
		decision = trigger.Evaluate(pipeline.Trigger, opts.Ref)
	}

	vars := BuildVariables(pipeline, opts)

	selected := make(map[models.JobName]*models.Job, len(pipeline.Jobs))
	var order []models.JobName
	var excluded []Exclusion
	excludedSet := make(map[models.JobName]bool)

	for i := range pipeline.Jobs {
		job := &pipeline.Jobs[i]
		name := job.Name()
		if name == "" {
			return nil, errors.Errorf("plan: job %d has no name", i)
		}
		if _, ok := selected[name]; ok || excludedSet[name] {
			return nil, errors.Errorf("plan: duplicate job name '%s'", name)
		}
		if !job.Condition.Defined() {
			selected[name] = job
			order = append(order, name)
			continue
		}
		ok, err := condition.Evaluate(job.Condition.String(), vars)
		if err != nil {
			return nil, errors.Wrapf(err, "error evaluating condition for job '%s'", name)
		}
		if !ok {
			excluded = append(excluded, Exclusion{
				Name:   name,
				Reason: fmt.Sprintf("condition '%s' evaluated to false", job.Condition),
			})
			excludedSet[name] = true
			continue
		}
		selected[name] = job
		order = append(order, name)
	}

	// Edges run from a dependency to its dependents. Dependencies on
	// excluded jobs are satisfied by definition and dropped.
	edges := make(map[models.JobName][]models.JobName, len(selected))
	kept := make(map[models.JobName][]models.JobName, len(selected))
	var notes []string
	for _, name := range order {
		job := selected[name]
		for _, dep := range job.DependsOn {
			depName := models.JobName(dep)
			if depName == name {
				return nil, errors.Errorf("plan: job '%s' depends on itself", name)
			}
			if _, ok := selected[depName]; ok {
				edges[depName] = append(edges[depName], name)
				kept[name] = append(kept[name], depName)
				continue
			}
			if excludedSet[depName] {
				notes = append(notes, fmt.Sprintf("dependency '%s' of job '%s' was excluded and is treated as satisfied", depName, name))
				continue
			}
			return nil, errors.Errorf("plan: job '%s' depends on unknown job '%s'", name, dep)
		}
	}

	waves, err := Waves(order, edges)
	if err != nil {
		return nil, err
	}

	waveIndex := make(map[models.JobName]int, len(order))
	for i, wave := range waves {
		for _, name := range wave {
			waveIndex[name] = i
		}
	}

	jobs := make([]Job, 0, len(order))
	for _, name := range order {
		job := selected[name]
		jobs = append(jobs, Job{
			Name:      name,
			Template:  job.Template.String(),
			OS:        job.Parameters.OS().String(),
			Env:       job.Parameters.Env(),
			DependsOn: kept[name],
			Wave:      waveIndex[name],
		})
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].Wave != jobs[j].Wave {
			return jobs[i].Wave < jobs[j].Wave
		}
		return jobs[i].Name < jobs[j].Name
	})

	return &Plan{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Ref:       opts.Ref.Full,
		Reason:    opts.Reason,
		Trigger:   decision,
		Jobs:      jobs,
		Waves:     waves,
		Excluded:  excluded,
		Notes:     notes,
	}, nil
}
