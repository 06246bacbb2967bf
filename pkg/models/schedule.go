package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

const cronFieldCount = 5

var cronFieldRegex = regexp.MustCompile(`^[0-9*,/-]+$`)

// CronSpec is a five-field cron expression (minute, hour, day of month,
// month, day of week). Only the shape is validated here; interpreting the
// schedule is the platform's concern.
type CronSpec string

func (c CronSpec) String() string {
	return string(c)
}

func (c CronSpec) Valid() bool {
	return c.Validate() == nil
}

func (c CronSpec) Validate() error {
	if strings.TrimSpace(string(c)) == "" {
		return errors.New("error cron expression must be set")
	}
	fields := strings.Fields(string(c))
	if len(fields) != cronFieldCount {
		return fmt.Errorf("error cron expression must have %d fields, found %d: '%s'", cronFieldCount, len(fields), c)
	}
	for _, f := range fields {
		if !cronFieldRegex.MatchString(f) {
			return fmt.Errorf("error invalid cron field '%s' in '%s'", f, c)
		}
	}
	return nil
}

// Schedule runs the pipeline on a timer against the branches it selects.
// When Always is false the platform only runs the schedule if the selected
// branch changed since the last scheduled run.
type Schedule struct {
	Cron        CronSpec     `yaml:"cron" validate:"required"`
	DisplayName string       `yaml:"displayName,omitempty"`
	Branches    *FilterRules `yaml:"branches,omitempty"`
	Always      bool         `yaml:"always,omitempty"`
}

func (s *Schedule) Validate() error {
	var result *multierror.Error
	if err := s.Cron.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.Branches.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
