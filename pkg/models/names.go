package models

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"
)

const jobNameMaxLength = 100

// JobNameRegexStr matches names made of alphanumeric, dash or underscore characters.
const JobNameRegexStr = "^[a-zA-Z0-9_-]{1,100}$"

var jobNameRegex = regexp.MustCompile(JobNameRegexStr)

// JobName is the human-specified identifier of a job within a pipeline.
// It is declared through the well-known 'name' parameter or derived from the
// template file name when the parameter is absent, and must be unique within
// the pipeline. JobName must conform to length and character set requirements
// (see jobNameMaxLength and jobNameRegex).
type JobName string

func (s JobName) String() string {
	return string(s)
}

func (s JobName) Valid() bool {
	return s.Validate() == nil
}

func (s JobName) Validate() error {
	if s == "" {
		return errors.New("error job name must be set")
	}
	if len(s) > jobNameMaxLength {
		return fmt.Errorf("error job name must not exceed %d characters", jobNameMaxLength)
	}
	if !jobNameRegex.MatchString(s.String()) {
		return fmt.Errorf("error job name must only contain alphanumeric, dash or underscore characters: '%s'", s)
	}
	return nil
}

// ResourceAlias is the handle a pipeline declares for a repository resource.
// The alias is the reference target of the '@' part of a template reference
// and must be unique within the pipeline.
type ResourceAlias string

func (s ResourceAlias) String() string {
	return string(s)
}

func (s ResourceAlias) Valid() bool {
	return s.Validate() == nil
}

func (s ResourceAlias) Validate() error {
	if s == "" {
		return errors.New("error repository alias must be set")
	}
	if len(s) > jobNameMaxLength {
		return fmt.Errorf("error repository alias must not exceed %d characters", jobNameMaxLength)
	}
	if !jobNameRegex.MatchString(s.String()) {
		return fmt.Errorf("error repository alias must only contain alphanumeric, dash or underscore characters: '%s'", s)
	}
	return nil
}

// OSLabel selects the machine pool a job runs on.
type OSLabel string

const (
	OSLinux   OSLabel = "linux"
	OSMacOS   OSLabel = "macos"
	OSWindows OSLabel = "windows"
)

var knownOSLabels = map[OSLabel]bool{
	OSLinux:   true,
	OSMacOS:   true,
	OSWindows: true,
}

func (s OSLabel) String() string {
	return string(s)
}

func (s OSLabel) Valid() bool {
	return s.Validate() == nil
}

func (s OSLabel) Validate() error {
	if s == "" {
		return errors.New("error os label must be set")
	}
	if !knownOSLabels[s] {
		return fmt.Errorf("error unknown os label '%s', expected one of linux, macos or windows", s)
	}
	return nil
}
