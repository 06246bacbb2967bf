package resources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opnlabs/slipway/pkg/models"
)

func templateCheckout(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run-tox-env.yml"), []byte("jobs: []\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "publish-pypi.yml"), []byte("jobs: []\n"), 0o644))
	return dir
}

func TestDirResolver(t *testing.T) {
	dir := templateCheckout(t)
	r := NewDirResolver(map[string]string{"OpenAstronomy": dir})
	repo := models.Repository{Alias: "OpenAstronomy", Type: models.RepositoryTypeGitHub, Name: "OpenAstronomy/azure-pipelines-templates"}

	fs, err := r.Resolve(context.Background(), repo)
	require.NoError(t, err)

	_, err = fs.Stat("run-tox-env.yml")
	require.NoError(t, err)
	_, err = fs.Stat("nope.yml")
	require.Error(t, err)
}

func TestDirResolverNotMounted(t *testing.T) {
	r := NewDirResolver(nil)
	_, err := r.Resolve(context.Background(), models.Repository{Alias: "OpenAstronomy"})
	require.ErrorIs(t, err, ErrNotMounted)
}

func TestDirResolverMissingDirectory(t *testing.T) {
	r := NewDirResolver(map[string]string{"tmpl": filepath.Join(t.TempDir(), "gone")})
	_, err := r.Resolve(context.Background(), models.Repository{Alias: "tmpl"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotMounted)
}

func TestChainResolverFallsThrough(t *testing.T) {
	dir := templateCheckout(t)
	chain := ChainResolver{
		NewDirResolver(nil),
		NewDirResolver(map[string]string{"tmpl": dir}),
	}

	fs, err := chain.Resolve(context.Background(), models.Repository{Alias: "tmpl"})
	require.NoError(t, err)
	_, err = fs.Stat("run-tox-env.yml")
	require.NoError(t, err)

	_, err = chain.Resolve(context.Background(), models.Repository{Alias: "other"})
	require.ErrorIs(t, err, ErrNotMounted)
}

func TestCheckTemplate(t *testing.T) {
	dir := templateCheckout(t)
	r := NewDirResolver(map[string]string{"tmpl": dir})
	repo := models.Repository{Alias: "tmpl"}

	require.NoError(t, CheckTemplate(context.Background(), r, repo, "run-tox-env.yml"))
	require.NoError(t, CheckTemplate(context.Background(), r, repo, "nested/publish-pypi.yml"))

	err := CheckTemplate(context.Background(), r, repo, "missing.yml")
	require.ErrorIs(t, err, ErrTemplateNotFound)
	require.ErrorContains(t, err, "missing.yml")

	err = CheckTemplate(context.Background(), r, repo, "nested")
	require.ErrorIs(t, err, ErrTemplateNotFound)
	require.ErrorContains(t, err, "is a directory")
}
