// Package config loads pipeline definition files from disk.
package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/opnlabs/slipway/pkg/models"
)

// WellKnownFileNames are the pipeline file names discovered in a directory,
// most specific first.
var WellKnownFileNames = []string{
	".slipway.yml",
	".slipway.yaml",
	"slipway.yml",
	"slipway.yaml",
	"pipeline.yml",
	"pipeline.yaml",
	"azure-pipelines.yml",
	".slipway.json",
	"slipway.json",
}

var ErrNoPipelineFile = errors.New("config: no pipeline file found")

// Discover returns the first well-known pipeline file in dir.
func Discover(dir string) (string, error) {
	for _, name := range WellKnownFileNames {
		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", errors.Wrap(ErrNoPipelineFile, dir)
}

// DiscoverAll walks root and returns every well-known pipeline file below
// it, in path order.
func DiscoverAll(root string) ([]string, error) {
	known := make(map[string]bool, len(WellKnownFileNames))
	for _, name := range WellKnownFileNames {
		known[name] = true
	}
	var files []string
	err := filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if known[info.Name()] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error walking %s", root)
	}
	sort.Strings(files)
	return files, nil
}

// Load reads and parses the pipeline file at path. The encoding is inferred
// from the file extension.
func Load(path string) (*models.Pipeline, error) {
	typ := models.ConfigTypeForPath(path)
	if !typ.Valid() {
		return nil, errors.Errorf("config: unsupported file type for %s, expected .yml, .yaml or .json", path)
	}
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrap(err, "error reading pipeline file")
	}
	return Parse(contents)
}

// Parse decodes a pipeline document. JSON documents are accepted by the same
// decoder since every JSON document is valid YAML.
//
// Unknown fields and type mismatches are accumulated into a *yaml.TypeError
// and returned alongside the partially decoded pipeline, so callers can
// report them without losing the rest of the document.
func Parse(data []byte) (*models.Pipeline, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p models.Pipeline
	err := dec.Decode(&p)
	if err == io.EOF {
		return nil, errors.New("config: empty pipeline document")
	}
	var typeErr *yaml.TypeError
	if stderrors.As(err, &typeErr) {
		return &p, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "error parsing pipeline")
	}
	return &p, nil
}

// Marshal renders the canonical YAML form of a pipeline.
func Marshal(p *models.Pipeline) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, errors.Wrap(err, "error rendering pipeline")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "error rendering pipeline")
	}
	return buf.Bytes(), nil
}
