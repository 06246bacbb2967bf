package models

import (
	"fmt"
	"path"
	"strings"

	"github.com/gosimple/slug"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Well-known parameter keys the toolkit interprets. Everything else in a
// job's parameters belongs to the template and passes through untouched.
const (
	ParamName = "name"
	ParamOS   = "os"
	ParamEnv  = "env"
)

// Job is a single unit of CI work. Every job delegates its steps to a
// template file owned by a repository resource; the pipeline carries the
// reference, the parameters handed to the template and the fields that gate
// scheduling. Graph-level analysis of dependsOn lives in the lint and plan
// packages.
type Job struct {
	Template   TemplateRef `yaml:"template"`
	Condition  Condition   `yaml:"condition,omitempty"`
	DependsOn  StringList  `yaml:"dependsOn,omitempty"`
	Parameters Parameters  `yaml:"parameters,omitempty"`
}

// Name returns the job's identifier: the well-known 'name' parameter when
// set, otherwise a name derived from the template file name.
func (j *Job) Name() JobName {
	if name := j.Parameters.Name(); name != "" {
		return name
	}
	base := path.Base(j.Template.Path)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." {
		return ""
	}
	return JobName(slug.Make(base))
}

func (j *Job) Validate() error {
	var result *multierror.Error
	if j.Template.IsZero() {
		result = multierror.Append(result, errors.New("error job must reference a template"))
	} else if err := j.Template.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if name := j.Parameters.Name(); name != "" {
		if err := name.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if os := j.Parameters.OS(); os != "" {
		if err := os.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, dep := range j.DependsOn {
		if err := JobName(dep).Validate(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "error invalid dependsOn entry '%s'", dep))
		}
	}
	return result.ErrorOrNil()
}

// TemplateRef locates a job template as 'path' or 'path@alias', where the
// alias names a repository resource declared by the pipeline. A bare path
// refers to a file in the repository holding the pipeline itself. Template
// contents are owned by their repository and are never interpreted here.
type TemplateRef struct {
	Path  string
	Alias ResourceAlias
}

// ParseTemplateRef splits a reference at the first '@'. Template paths may
// not contain '@'.
func ParseTemplateRef(s string) TemplateRef {
	p, alias, found := strings.Cut(s, "@")
	if !found {
		return TemplateRef{Path: strings.TrimSpace(s)}
	}
	return TemplateRef{
		Path:  strings.TrimSpace(p),
		Alias: ResourceAlias(strings.TrimSpace(alias)),
	}
}

func (t TemplateRef) String() string {
	if t.Alias == "" {
		return t.Path
	}
	return t.Path + "@" + t.Alias.String()
}

func (t TemplateRef) IsZero() bool {
	return t.Path == "" && t.Alias == ""
}

// Local reports whether the template lives in the repository holding the
// pipeline itself.
func (t TemplateRef) Local() bool {
	return t.Alias == ""
}

func (t TemplateRef) Valid() bool {
	return t.Validate() == nil
}

func (t TemplateRef) Validate() error {
	var result *multierror.Error
	if t.Path == "" {
		result = multierror.Append(result, errors.New("error template path must be set"))
	} else {
		if path.IsAbs(t.Path) {
			result = multierror.Append(result, fmt.Errorf("error template path must be relative: '%s'", t.Path))
		}
		for _, part := range strings.Split(t.Path, "/") {
			if part == ".." {
				result = multierror.Append(result, fmt.Errorf("error template path must not traverse outside its repository: '%s'", t.Path))
				break
			}
		}
		switch path.Ext(t.Path) {
		case ".yml", ".yaml":
		default:
			result = multierror.Append(result, fmt.Errorf("error template path must end in .yml or .yaml: '%s'", t.Path))
		}
	}
	if t.Alias != "" {
		if err := t.Alias.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (t *TemplateRef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: template reference must be a string", value.Line)
	}
	*t = ParseTemplateRef(value.Value)
	return nil
}

func (t TemplateRef) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// Condition is an unevaluated expression controlling whether a job is
// scheduled. An empty condition schedules the job whenever its dependencies
// succeed.
type Condition string

func (c Condition) String() string {
	return string(c)
}

func (c Condition) Defined() bool {
	return strings.TrimSpace(string(c)) != ""
}

// StringList accepts either a single string or a list of strings.
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || value.Value == "" {
			*s = nil
			return nil
		}
		*s = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := value.Decode(&out); err != nil {
			return err
		}
		*s = out
		return nil
	default:
		return errors.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

// Parameters is the free-form payload handed to a job template.
type Parameters map[string]any

func (p Parameters) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the parameter as a string. Scalar values are rendered the
// way the platform would, so 'name: 310' is usable as a name.
func (p Parameters) String(key string) (string, bool) {
	raw, ok := p[key]
	if !ok {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, true
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(v), true
	}
	return "", false
}

func (p Parameters) Name() JobName {
	s, _ := p.String(ParamName)
	return JobName(s)
}

func (p Parameters) OS() OSLabel {
	s, _ := p.String(ParamOS)
	return OSLabel(s)
}

// Env returns the test environment selector the template should run.
func (p Parameters) Env() string {
	s, _ := p.String(ParamEnv)
	return s
}
