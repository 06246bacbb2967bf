package models

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// UnknownField records a mapping key a lenient sub-document decoder did not
// recognize, kept so callers can surface it instead of failing the decode.
type UnknownField struct {
	Key  string
	Line int
}

// FilterRules is an include/exclude pair of glob patterns over ref names.
// A name is admitted when it matches at least one include pattern and no
// exclude pattern. An absent include list with a present exclude list
// implies include-all.
type FilterRules struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`

	Unknown []UnknownField `yaml:"-"`
}

func (f *FilterRules) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		// Shorthand: a bare list is an include list.
		var include []string
		if err := value.Decode(&include); err != nil {
			return err
		}
		f.Include = include
		return nil
	case yaml.MappingNode:
		for i := 0; i < len(value.Content)-1; i += 2 {
			key, val := value.Content[i], value.Content[i+1]
			switch key.Value {
			case "include":
				if err := val.Decode(&f.Include); err != nil {
					return err
				}
			case "exclude":
				if err := val.Decode(&f.Exclude); err != nil {
					return err
				}
			default:
				f.Unknown = append(f.Unknown, UnknownField{Key: key.Value, Line: key.Line})
			}
		}
		return nil
	default:
		return errors.Errorf("line %d: expected an include/exclude map or a list of patterns", value.Line)
	}
}

// IsEmpty reports whether the section carries no patterns at all.
func (f *FilterRules) IsEmpty() bool {
	return f == nil || (len(f.Include) == 0 && len(f.Exclude) == 0)
}

func (f *FilterRules) Validate() error {
	if f == nil {
		return nil
	}
	var result *multierror.Error
	for _, p := range f.Include {
		if _, err := doublestar.Match(p, "probe"); err != nil {
			result = multierror.Append(result, fmt.Errorf("error invalid glob pattern '%s'", p))
		}
	}
	for _, p := range f.Exclude {
		if _, err := doublestar.Match(p, "probe"); err != nil {
			result = multierror.Append(result, fmt.Errorf("error invalid glob pattern '%s'", p))
		}
	}
	return result.ErrorOrNil()
}

// Trigger declares which pushed refs start a pipeline run.
//
// Three document forms are accepted: the scalar 'none' disables push runs
// entirely, a bare list is shorthand for a branch include list, and the map
// form carries distinct branch and tag filter sections. How a trigger admits
// a given ref is decided by the trigger package.
type Trigger struct {
	None     bool         `yaml:"-"`
	Batch    bool         `yaml:"batch,omitempty"`
	Branches *FilterRules `yaml:"branches,omitempty"`
	Tags     *FilterRules `yaml:"tags,omitempty"`

	Unknown []UnknownField `yaml:"-"`
}

func (t *Trigger) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if strings.EqualFold(value.Value, "none") {
			t.None = true
			return nil
		}
		return errors.Errorf("line %d: unsupported trigger value '%s', expected none, a branch list or a filter map", value.Line, value.Value)
	case yaml.SequenceNode:
		branches := &FilterRules{}
		if err := value.Decode(&branches.Include); err != nil {
			return err
		}
		t.Branches = branches
		return nil
	case yaml.MappingNode:
		for i := 0; i < len(value.Content)-1; i += 2 {
			key, val := value.Content[i], value.Content[i+1]
			switch key.Value {
			case "batch":
				if err := val.Decode(&t.Batch); err != nil {
					return err
				}
			case "branches":
				t.Branches = &FilterRules{}
				if err := val.Decode(t.Branches); err != nil {
					return err
				}
			case "tags":
				t.Tags = &FilterRules{}
				if err := val.Decode(t.Tags); err != nil {
					return err
				}
			default:
				t.Unknown = append(t.Unknown, UnknownField{Key: key.Value, Line: key.Line})
			}
		}
		return nil
	default:
		return errors.Errorf("line %d: unsupported trigger form", value.Line)
	}
}

func (t Trigger) MarshalYAML() (interface{}, error) {
	if t.None {
		return "none", nil
	}
	type plain struct {
		Batch    bool         `yaml:"batch,omitempty"`
		Branches *FilterRules `yaml:"branches,omitempty"`
		Tags     *FilterRules `yaml:"tags,omitempty"`
	}
	return plain{Batch: t.Batch, Branches: t.Branches, Tags: t.Tags}, nil
}

func (t *Trigger) Validate() error {
	if t == nil {
		return nil
	}
	var result *multierror.Error
	if t.None && (t.Batch || t.Branches != nil || t.Tags != nil) {
		result = multierror.Append(result, errors.New("error trigger 'none' cannot carry filter sections"))
	}
	if err := t.Branches.Validate(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "error in branches section"))
	}
	if err := t.Tags.Validate(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "error in tags section"))
	}
	return result.ErrorOrNil()
}
