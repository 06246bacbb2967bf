package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/opnlabs/slipway/pkg/models"
)

func TestLoadPipelineYAML(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "pipeline.yml"))
	require.NoError(t, err)

	require.Equal(t, "$(BuildDefinitionName)_$(Date:yyyyMMdd)$(Rev:.rr)", p.Name)
	v, ok := p.Variables.Get("CI_NAME")
	require.True(t, ok)
	require.Equal(t, "Azure Pipelines", v)

	require.Len(t, p.Resources.Repositories, 1)
	repo := p.Resources.Repositories[0]
	require.Equal(t, models.ResourceAlias("OpenAstronomy"), repo.Alias)
	require.Equal(t, models.RepositoryTypeGitHub, repo.Type)
	require.Equal(t, "master", repo.Ref)

	require.NotNil(t, p.Trigger)
	require.Nil(t, p.Trigger.Branches)
	require.Equal(t, []string{"v*"}, p.Trigger.Tags.Include)
	require.Equal(t, []string{"*dev*", "*pre*", "*post*"}, p.Trigger.Tags.Exclude)

	require.Len(t, p.Jobs, 6)
	require.Equal(t, models.JobName("pycodestyle"), p.Jobs[0].Name())
	require.Equal(t, models.OSLinux, p.Jobs[0].Parameters.OS())
	require.Equal(t, "codestyle", p.Jobs[0].Parameters.Env())

	publish := p.Jobs[5]
	require.Equal(t, "publish-pypi.yml@OpenAstronomy", publish.Template.String())
	require.True(t, publish.Condition.Defined())
	require.Equal(t, models.StringList{"pycodestyle", "Linux_310", "Linux_39", "macOS_39", "Windows_38"}, publish.DependsOn)
	require.True(t, publish.Parameters.Has("targets"))

	require.NoError(t, p.Validate())
}

func TestLoadPipelineJSON(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "pipeline.json"))
	require.NoError(t, err)
	require.Equal(t, "nightly", p.Name)
	require.Equal(t, []string{"v*"}, p.Trigger.Tags.Include)
	require.Len(t, p.Jobs, 1)
	require.Equal(t, models.JobName("Linux_310"), p.Jobs[0].Name())
	require.NoError(t, p.Validate())
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "pipeline.txt"))
	require.Error(t, err)
}

func TestParseUnknownTopLevelField(t *testing.T) {
	src := `
unknown_section:
  a: b
jobs:
- template: build.yml
`
	p, err := Parse([]byte(src))
	require.Error(t, err)

	var typeErr *yaml.TypeError
	require.True(t, stderrors.As(err, &typeErr))
	require.NotNil(t, p)
	require.Len(t, p.Jobs, 1)
}

func TestParseEmptyDocument(t *testing.T) {
	_, err := Parse(nil)
	require.Error(t, err)
}

func TestParseSyntaxError(t *testing.T) {
	p, err := Parse([]byte("jobs: [unclosed"))
	require.Error(t, err)
	require.Nil(t, p)
}

func TestDiscoverPrecedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pipeline.yml"), []byte("jobs: []"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".slipway.yml"), []byte("jobs: []"), 0o600))

	found, err := Discover(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, ".slipway.yml"), found)
}

func TestDiscoverNotFound(t *testing.T) {
	_, err := Discover(t.TempDir())
	require.True(t, stderrors.Is(err, ErrNoPipelineFile))
}

func TestDiscoverAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "svc", "a"), 0o700))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slipway.yml"), []byte("jobs: []"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "svc", "a", "pipeline.yml"), []byte("jobs: []"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "pipeline.yml"), []byte("jobs: []"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "svc", "notes.txt"), []byte("x"), 0o600))

	files, err := DiscoverAll(dir)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "slipway.yml"),
		filepath.Join(dir, "svc", "a", "pipeline.yml"),
	}, files)
}

func TestMarshalRoundTrip(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "pipeline.yml"))
	require.NoError(t, err)

	data, err := Marshal(p)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, p.Name, back.Name)
	require.Equal(t, p.Variables.Values, back.Variables.Values)
	require.Equal(t, p.Trigger.Tags.Include, back.Trigger.Tags.Include)
	require.Equal(t, p.Trigger.Tags.Exclude, back.Trigger.Tags.Exclude)
	require.Equal(t, len(p.Jobs), len(back.Jobs))
	for i := range p.Jobs {
		require.Equal(t, p.Jobs[i].Name(), back.Jobs[i].Name())
		require.Equal(t, p.Jobs[i].Template.String(), back.Jobs[i].Template.String())
	}
}
