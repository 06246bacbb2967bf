package models

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Resources declares the external collaborators a pipeline may reference.
type Resources struct {
	Repositories []Repository `yaml:"repositories,omitempty" validate:"dive"`
}

type RepositoryType string

const (
	RepositoryTypeGitHub RepositoryType = "github"
	RepositoryTypeGit    RepositoryType = "git"
)

func (s RepositoryType) String() string {
	return string(s)
}

func (s RepositoryType) Valid() bool {
	return s.Validate() == nil
}

func (s RepositoryType) Validate() error {
	switch s {
	case RepositoryTypeGitHub, RepositoryTypeGit:
		return nil
	case "":
		return errors.New("error repository type must be set")
	default:
		return fmt.Errorf("error unknown repository type '%s', expected github or git", s)
	}
}

// Repository is a named git repository that owns job templates. The endpoint
// is the platform's service connection for authenticated access and is
// carried opaquely.
type Repository struct {
	Alias    ResourceAlias  `yaml:"repository" validate:"required"`
	Type     RepositoryType `yaml:"type" validate:"required"`
	Name     string         `yaml:"name" validate:"required"`
	Ref      string         `yaml:"ref,omitempty"`
	Endpoint string         `yaml:"endpoint,omitempty"`
}

// CloneURL resolves the repository to a fetchable URL. GitHub repositories
// are declared as 'owner/repo' shorthand, plain git repositories carry the
// URL directly.
func (r *Repository) CloneURL() (string, error) {
	switch r.Type {
	case RepositoryTypeGitHub:
		if strings.Count(r.Name, "/") != 1 || strings.HasPrefix(r.Name, "/") || strings.HasSuffix(r.Name, "/") {
			return "", fmt.Errorf("error github repository name must be 'owner/repo': '%s'", r.Name)
		}
		return "https://github.com/" + r.Name + ".git", nil
	case RepositoryTypeGit:
		if r.Name == "" {
			return "", errors.New("error repository name must be set")
		}
		return r.Name, nil
	default:
		return "", fmt.Errorf("error unknown repository type '%s'", r.Type)
	}
}

func (r *Repository) Validate() error {
	var result *multierror.Error
	if err := r.Alias.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.Type.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if r.Name == "" {
		result = multierror.Append(result, errors.New("error repository name must be set"))
	} else if r.Type == RepositoryTypeGitHub {
		if _, err := r.CloneURL(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
