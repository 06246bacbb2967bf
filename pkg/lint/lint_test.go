package lint

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opnlabs/slipway/pkg/diag"
	"github.com/opnlabs/slipway/pkg/resources"
)

func lintString(t *testing.T, opts Options, doc string) []diag.Finding {
	t.Helper()
	return New(opts).LintBytes(context.Background(), "pipeline.yml", []byte(doc))
}

func codes(findings []diag.Finding) map[string]int {
	out := make(map[string]int)
	for _, f := range findings {
		out[f.Code]++
	}
	return out
}

func findingFor(findings []diag.Finding, code string) (diag.Finding, bool) {
	for _, f := range findings {
		if f.Code == code {
			return f, true
		}
	}
	return diag.Finding{}, false
}

func TestLintCleanPipeline(t *testing.T) {
	findings, err := New(Options{}).LintFile(context.Background(), filepath.Join("testdata", "release.yml"))
	require.NoError(t, err)
	require.Empty(t, findings)
}

func TestLintUnknownTopLevelField(t *testing.T) {
	doc := `
stages:
  - build
jobs:
  - template: ci/tox.yml
    parameters:
      name: lint
`
	findings := lintString(t, Options{}, doc)
	c := codes(findings)
	require.Equal(t, 1, c[CodeUnknownField])
	require.False(t, diag.HasErrors(findings))

	f, ok := findingFor(findings, CodeUnknownField)
	require.True(t, ok)
	require.Contains(t, f.Message, "stages")

	strict := lintString(t, Options{Strict: true}, doc)
	require.True(t, diag.HasErrors(strict))
}

func TestLintUnknownNestedField(t *testing.T) {
	doc := `
trigger:
  tags:
    include: ['v*']
  paths:
    include: ['src/*']
jobs:
  - template: ci/tox.yml
    parameters:
      name: lint
`
	findings := lintString(t, Options{}, doc)
	c := codes(findings)
	require.Equal(t, 1, c[CodeUnknownField])

	f, ok := findingFor(findings, CodeUnknownField)
	require.True(t, ok)
	require.Contains(t, f.Message, "paths")
	require.Greater(t, f.Line, 0)
}

func TestLintSyntaxError(t *testing.T) {
	findings := lintString(t, Options{}, "jobs: [\n")
	c := codes(findings)
	require.Equal(t, 1, c[CodeParse])
	require.True(t, diag.HasErrors(findings))
}

func TestLintMissingJobs(t *testing.T) {
	findings := lintString(t, Options{}, "name: empty\n")
	c := codes(findings)
	require.Equal(t, 1, c[CodeShape])
}

func TestLintJobChecks(t *testing.T) {
	doc := `
resources:
  repositories:
    - repository: tmpl
      type: github
      name: acme/templates
jobs:
  - template: run-tox-env.yml@tmpl
    parameters:
      name: Linux 310
      os: solaris
  - template: run-tox-env.yml@tmpl
    parameters:
      name: linux
  - template: run-tox-env.yml@tmpl
    parameters:
      name: linux
  - parameters:
      name: floating
  - template: steps.yml@ghost
    parameters:
      name: orphan
  - template: run-tox-env.yml@tmpl
    condition: "nope('x')"
    parameters:
      name: gated
  - template: run-tox-env.yml@tmpl
    dependsOn: loner
    parameters:
      name: loner
  - template: run-tox-env.yml@tmpl
    dependsOn: ghost_job
    parameters:
      name: chained
`
	findings := lintString(t, Options{}, doc)
	c := codes(findings)
	require.Equal(t, 1, c[CodeJobName])
	require.Equal(t, 1, c[CodeDuplicateJob])
	require.Equal(t, 1, c[CodeMissingTemplate])
	require.Equal(t, 1, c[CodeBadOS])
	require.Equal(t, 1, c[CodeUndeclaredAlias])
	require.Equal(t, 1, c[CodeBadCondition])
	require.Equal(t, 1, c[CodeSelfDependency])
	require.Equal(t, 1, c[CodeUnknownDependency])

	f, ok := findingFor(findings, CodeJobName)
	require.True(t, ok)
	require.Contains(t, f.Hint, "linux-310")
}

func TestLintDependencyCycle(t *testing.T) {
	doc := `
jobs:
  - template: a.yml
    dependsOn: c
    parameters: {name: a}
  - template: b.yml
    dependsOn: a
    parameters: {name: b}
  - template: c.yml
    dependsOn: b
    parameters: {name: c}
`
	findings := lintString(t, Options{}, doc)
	c := codes(findings)
	require.Equal(t, 1, c[CodeDependencyCycle])

	f, _ := findingFor(findings, CodeDependencyCycle)
	require.Contains(t, f.Message, " -> ")
}

func TestLintConstantFalseCondition(t *testing.T) {
	doc := `
jobs:
  - template: ci/tox.yml
    condition: failed()
    parameters:
      name: never
`
	findings := lintString(t, Options{}, doc)
	c := codes(findings)
	require.Equal(t, 1, c[CodeConstantCondition])
	require.False(t, diag.HasErrors(findings))
}

func TestLintEmptyTriggerSections(t *testing.T) {
	base := `
jobs:
  - template: ci/tox.yml
    parameters:
      name: lint
`
	findings := lintString(t, Options{}, "trigger: {}\n"+base)
	require.Equal(t, 1, codes(findings)[CodeEmptyFilter])

	findings = lintString(t, Options{}, "trigger:\n  tags: {}\n"+base)
	require.Equal(t, 1, codes(findings)[CodeEmptyFilter])
}

func TestLintTriggerAndSchedulePatterns(t *testing.T) {
	doc := `
trigger:
  tags:
    include: ['v[']
pr:
  branches:
    include: ['release/*']
schedules:
  - cron: '0 0 * *'
    displayName: nightly
    branches:
      include: ['ma[in']
jobs:
  - template: ci/tox.yml
    parameters:
      name: lint
`
	findings := lintString(t, Options{}, doc)
	c := codes(findings)
	require.Equal(t, 2, c[CodeBadPattern])
	require.Equal(t, 1, c[CodeBadSchedule])
}

func TestLintRepositories(t *testing.T) {
	doc := `
resources:
  repositories:
    - repository: tmpl
      type: github
      name: acme/templates
    - repository: tmpl
      type: github
      name: acme/other
    - repository: spare
      type: hg
      name: acme/spare
jobs:
  - template: steps.yml@tmpl
    parameters:
      name: one
`
	findings := lintString(t, Options{}, doc)
	c := codes(findings)
	require.Equal(t, 1, c[CodeDuplicateAlias])
	require.Equal(t, 1, c[CodeBadRepository])
	require.Equal(t, 1, c[CodeUnusedRepository])
}

func TestLintVariableGroups(t *testing.T) {
	doc := `
variables:
  - group: tokens
  - name: CI_NAME
    value: Azure Pipelines
jobs:
  - template: ci/tox.yml
    parameters:
      name: lint
`
	findings := lintString(t, Options{}, doc)
	c := codes(findings)
	require.Equal(t, 1, c[CodeUnresolvedGroup])
	require.False(t, diag.HasErrors(findings))
}

func TestLintTemplateResolution(t *testing.T) {
	doc := `
resources:
  repositories:
    - repository: ext
      type: github
      name: acme/templates
jobs:
  - template: templates/run-tox-env.yml
    parameters:
      name: local
  - template: templates/missing.yml
    parameters:
      name: gone
  - template: steps/build.yml@ext
    parameters:
      name: remote
`
	resolver := resources.NewDirResolver(map[string]string{"": "testdata"})
	findings := lintString(t, Options{Resolver: resolver}, doc)
	c := codes(findings)
	require.Equal(t, 1, c[CodeTemplateNotFound])
	require.Equal(t, 1, c[CodeUnresolvedRepository])

	f, _ := findingFor(findings, CodeTemplateNotFound)
	require.Contains(t, f.Message, "templates/missing.yml")
}

func TestLintFiles(t *testing.T) {
	dir := t.TempDir()
	clean := filepath.Join(dir, "a.yml")
	broken := filepath.Join(dir, "b.yml")
	require.NoError(t, os.WriteFile(clean, []byte("jobs:\n  - template: ci/tox.yml\n    parameters:\n      name: lint\n"), 0o644))
	require.NoError(t, os.WriteFile(broken, []byte("name: empty\n"), 0o644))

	findings, err := New(Options{}).LintFiles(context.Background(), []string{broken, clean})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.Equal(t, broken, findings[0].File)
	require.Equal(t, CodeShape, findings[0].Code)
}

func TestLintFileUnsupportedExtension(t *testing.T) {
	findings, err := New(Options{}).LintFile(context.Background(), "pipeline.toml")
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.Equal(t, CodeParse, findings[0].Code)
	require.True(t, strings.Contains(findings[0].Message, "unsupported file type"))
}

func TestLintFileMissing(t *testing.T) {
	_, err := New(Options{}).LintFile(context.Background(), filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}
