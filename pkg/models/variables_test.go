package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestVariablesMapForm(t *testing.T) {
	src := `
variables:
  CI_NAME: Azure Pipelines
  CI_BUILD_ID: $(Build.BuildId)
`
	var doc struct {
		Variables Variables `yaml:"variables"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	require.Equal(t, map[string]string{
		"CI_NAME":     "Azure Pipelines",
		"CI_BUILD_ID": "$(Build.BuildId)",
	}, doc.Variables.Values)

	v, ok := doc.Variables.Get("CI_NAME")
	require.True(t, ok)
	require.Equal(t, "Azure Pipelines", v)
	_, ok = doc.Variables.Get("missing")
	require.False(t, ok)
}

func TestVariablesListForm(t *testing.T) {
	src := `
variables:
- name: CI_NAME
  value: Azure Pipelines
- group: release-secrets
- name: FLAG
  value: "1"
  readonly: true
`
	var doc struct {
		Variables Variables `yaml:"variables"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	require.Equal(t, "Azure Pipelines", doc.Variables.Values["CI_NAME"])
	require.Equal(t, "1", doc.Variables.Values["FLAG"])
	require.Equal(t, []string{"release-secrets"}, doc.Variables.Groups)
	require.Empty(t, doc.Variables.Unknown)
}

func TestVariablesBadForms(t *testing.T) {
	var doc struct {
		Variables Variables `yaml:"variables"`
	}
	require.Error(t, yaml.Unmarshal([]byte("variables: just-a-string"), &doc))
	require.Error(t, yaml.Unmarshal([]byte("variables:\n  nested:\n    a: b"), &doc))
	require.Error(t, yaml.Unmarshal([]byte("variables:\n- value: no-name"), &doc))
}

func TestVariablesMarshalForms(t *testing.T) {
	plain := Variables{Values: map[string]string{"A": "1"}}
	data, err := yaml.Marshal(plain)
	require.NoError(t, err)
	require.Equal(t, "A: \"1\"\n", string(data))

	grouped := Variables{Values: map[string]string{"A": "1"}, Groups: []string{"secrets"}}
	data, err = yaml.Marshal(grouped)
	require.NoError(t, err)

	var back Variables
	require.NoError(t, yaml.Unmarshal(data, &back))
	require.Equal(t, grouped.Values, back.Values)
	require.Equal(t, grouped.Groups, back.Groups)
}
