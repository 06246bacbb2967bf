package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseTemplateRef(t *testing.T) {
	ref := ParseTemplateRef("run-tox-env.yml@OpenAstronomy")
	require.Equal(t, "run-tox-env.yml", ref.Path)
	require.Equal(t, ResourceAlias("OpenAstronomy"), ref.Alias)
	require.Equal(t, "run-tox-env.yml@OpenAstronomy", ref.String())
	require.False(t, ref.Local())

	local := ParseTemplateRef("ci/build.yml")
	require.Equal(t, "ci/build.yml", local.Path)
	require.True(t, local.Local())
	require.Equal(t, "ci/build.yml", local.String())
}

func TestTemplateRefValidate(t *testing.T) {
	require.NoError(t, ParseTemplateRef("publish-pypi.yml@OpenAstronomy").Validate())
	require.NoError(t, ParseTemplateRef("nested/dir/job.yaml").Validate())

	bad := []string{
		"",
		"@OpenAstronomy",
		"/abs/path.yml@Templates",
		"../escape.yml",
		"steps.txt@Templates",
		"job.yml@bad alias",
	}
	for _, ref := range bad {
		require.Error(t, ParseTemplateRef(ref).Validate(), "expected %q to be invalid", ref)
	}
}

func TestJobName(t *testing.T) {
	named := Job{
		Template:   ParseTemplateRef("run-tox-env.yml@OpenAstronomy"),
		Parameters: Parameters{"name": "Linux_310", "os": "linux", "env": "py310"},
	}
	require.Equal(t, JobName("Linux_310"), named.Name())

	derived := Job{Template: ParseTemplateRef("publish-pypi.yml@OpenAstronomy")}
	require.Equal(t, JobName("publish-pypi"), derived.Name())

	numeric := Job{
		Template:   ParseTemplateRef("run-tox-env.yml@OpenAstronomy"),
		Parameters: Parameters{"name": 310},
	}
	require.Equal(t, JobName("310"), numeric.Name())

	empty := Job{}
	require.Equal(t, JobName(""), empty.Name())
}

func TestJobValidate(t *testing.T) {
	ok := Job{
		Template:   ParseTemplateRef("run-tox-env.yml@OpenAstronomy"),
		Parameters: Parameters{"name": "Linux_310", "os": "linux"},
		DependsOn:  StringList{"pycodestyle"},
	}
	require.NoError(t, ok.Validate())

	missingTemplate := Job{Parameters: Parameters{"name": "orphan"}}
	require.Error(t, missingTemplate.Validate())

	badOS := Job{
		Template:   ParseTemplateRef("run-tox-env.yml@OpenAstronomy"),
		Parameters: Parameters{"name": "job1", "os": "solaris"},
	}
	require.Error(t, badOS.Validate())

	badDep := Job{
		Template:  ParseTemplateRef("run-tox-env.yml@OpenAstronomy"),
		DependsOn: StringList{"has space"},
	}
	require.Error(t, badDep.Validate())
}

func TestParametersAccessors(t *testing.T) {
	p := Parameters{
		"name":       "Windows_38",
		"os":         "windows",
		"env":        "py38",
		"submodules": false,
		"targets":    []any{"wheels_universal", "sdist"},
	}
	require.Equal(t, JobName("Windows_38"), p.Name())
	require.Equal(t, OSWindows, p.OS())
	require.Equal(t, "py38", p.Env())

	s, ok := p.String("submodules")
	require.True(t, ok)
	require.Equal(t, "false", s)

	_, ok = p.String("targets")
	require.False(t, ok)
	require.True(t, p.Has("targets"))
	require.False(t, p.Has("missing"))
}

func TestStringListForms(t *testing.T) {
	var scalar struct {
		DependsOn StringList `yaml:"dependsOn"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("dependsOn: pycodestyle"), &scalar))
	require.Equal(t, StringList{"pycodestyle"}, scalar.DependsOn)

	var list struct {
		DependsOn StringList `yaml:"dependsOn"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("dependsOn:\n- a\n- b"), &list))
	require.Equal(t, StringList{"a", "b"}, list.DependsOn)

	var null struct {
		DependsOn StringList `yaml:"dependsOn"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("dependsOn:"), &null))
	require.Nil(t, null.DependsOn)

	var bad struct {
		DependsOn StringList `yaml:"dependsOn"`
	}
	require.Error(t, yaml.Unmarshal([]byte("dependsOn:\n  a: b"), &bad))
}

func TestConditionDefined(t *testing.T) {
	require.False(t, Condition("").Defined())
	require.False(t, Condition("   ").Defined())
	require.True(t, Condition("startsWith(variables['Build.SourceBranch'], 'refs/tags/')").Defined())
}
