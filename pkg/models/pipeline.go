package models

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Pipeline is the root of a pipeline definition document.
type Pipeline struct {
	Name      string     `yaml:"name,omitempty"`
	Variables Variables  `yaml:"variables,omitempty"`
	Resources Resources  `yaml:"resources,omitempty"`
	Trigger   *Trigger   `yaml:"trigger,omitempty"`
	PR        *Trigger   `yaml:"pr,omitempty"`
	Schedules []Schedule `yaml:"schedules,omitempty" validate:"dive"`
	Jobs      []Job      `yaml:"jobs" validate:"required,min=1,dive"`
}

// Job returns the job with the given name, or nil.
func (p *Pipeline) Job(name JobName) *Job {
	for i := range p.Jobs {
		if p.Jobs[i].Name() == name {
			return &p.Jobs[i]
		}
	}
	return nil
}

// JobNames returns the names of all jobs in declaration order.
func (p *Pipeline) JobNames() []JobName {
	names := make([]JobName, 0, len(p.Jobs))
	for i := range p.Jobs {
		names = append(names, p.Jobs[i].Name())
	}
	return names
}

// Repository returns the declared repository resource with the given alias,
// or nil.
func (p *Pipeline) Repository(alias ResourceAlias) *Repository {
	for i := range p.Resources.Repositories {
		if p.Resources.Repositories[i].Alias == alias {
			return &p.Resources.Repositories[i]
		}
	}
	return nil
}

// UnknownFields collects the unrecognized keys tolerated by the lenient
// sub-document decoders.
func (p *Pipeline) UnknownFields() []UnknownField {
	var out []UnknownField
	out = append(out, p.Variables.Unknown...)
	for _, t := range []*Trigger{p.Trigger, p.PR} {
		if t == nil {
			continue
		}
		out = append(out, t.Unknown...)
		if t.Branches != nil {
			out = append(out, t.Branches.Unknown...)
		}
		if t.Tags != nil {
			out = append(out, t.Tags.Unknown...)
		}
	}
	for i := range p.Schedules {
		if p.Schedules[i].Branches != nil {
			out = append(out, p.Schedules[i].Branches.Unknown...)
		}
	}
	return out
}

// Validate checks the pipeline and everything it contains, accumulating all
// problems rather than stopping at the first.
func (p *Pipeline) Validate() error {
	var result *multierror.Error
	if len(p.Jobs) == 0 {
		result = multierror.Append(result, errors.New("error pipeline must declare at least one job"))
	}
	seen := make(map[JobName]bool, len(p.Jobs))
	for i := range p.Jobs {
		job := &p.Jobs[i]
		if err := job.Validate(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "error in job %d", i))
		}
		name := job.Name()
		if name == "" {
			continue
		}
		if seen[name] {
			result = multierror.Append(result, fmt.Errorf("error duplicate job name '%s'", name))
		}
		seen[name] = true
	}
	aliases := make(map[ResourceAlias]bool, len(p.Resources.Repositories))
	for i := range p.Resources.Repositories {
		repo := &p.Resources.Repositories[i]
		if err := repo.Validate(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "error in repository %d", i))
		}
		if repo.Alias == "" {
			continue
		}
		if aliases[repo.Alias] {
			result = multierror.Append(result, fmt.Errorf("error duplicate repository alias '%s'", repo.Alias))
		}
		aliases[repo.Alias] = true
	}
	for i := range p.Jobs {
		alias := p.Jobs[i].Template.Alias
		if alias != "" && !aliases[alias] {
			result = multierror.Append(result, fmt.Errorf("error job '%s' references undeclared repository '%s'", p.Jobs[i].Name(), alias))
		}
	}
	if err := p.Trigger.Validate(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "error in trigger"))
	}
	if err := p.PR.Validate(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "error in pr trigger"))
	}
	for i := range p.Schedules {
		if err := p.Schedules[i].Validate(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "error in schedule %d", i))
		}
	}
	return result.ErrorOrNil()
}
