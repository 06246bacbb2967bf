// Package lint checks pipeline definitions and reports findings instead of
// stopping at the first problem. Finding codes are stable so runs can be
// filtered and compared.
package lint

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/opnlabs/slipway/pkg/config"
	"github.com/opnlabs/slipway/pkg/diag"
	"github.com/opnlabs/slipway/pkg/models"
	"github.com/opnlabs/slipway/pkg/resources"
)

// Options controls how strict a lint run is.
type Options struct {
	// Strict upgrades unknown fields from warnings to errors.
	Strict bool
	// Resolver materializes repository resources so referenced template
	// files can be checked for existence. Nil skips template resolution.
	Resolver resources.Resolver
}

// Linter checks pipeline documents.
type Linter struct {
	opts     Options
	validate *validator.Validate
}

func New(opts Options) *Linter {
	return &Linter{
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// LintFile loads and checks a single pipeline file. The returned error is
// reserved for I/O failures; content problems become findings.
func (l *Linter) LintFile(ctx context.Context, path string) ([]diag.Finding, error) {
	if typ := models.ConfigTypeForPath(path); !typ.Valid() {
		return []diag.Finding{{
			File:     path,
			Code:     CodeParse,
			Severity: diag.SeverityError,
			Message:  "unsupported file type, expected .yml, .yaml or .json",
		}}, nil
	}
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrap(err, "error reading pipeline file")
	}
	return l.LintBytes(ctx, path, contents), nil
}

// LintFiles checks several files concurrently. Findings come back in a
// stable order regardless of scheduling.
func (l *Linter) LintFiles(ctx context.Context, paths []string) ([]diag.Finding, error) {
	results := make([][]diag.Finding, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			findings, err := l.LintFile(ctx, path)
			if err != nil {
				return err
			}
			results[i] = findings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var findings []diag.Finding
	for _, r := range results {
		findings = append(findings, r...)
	}
	diag.Sort(findings)
	return findings, nil
}

// LintBytes checks a pipeline document already in memory. name labels the
// findings, normally the file path.
func (l *Linter) LintBytes(ctx context.Context, name string, data []byte) []diag.Finding {
	p, err := config.Parse(data)
	if err != nil {
		var typeErr *yaml.TypeError
		if stderrors.As(err, &typeErr) {
			findings := l.typeErrorFindings(name, typeErr)
			if p != nil {
				findings = append(findings, l.LintPipeline(ctx, name, p)...)
			}
			diag.Sort(findings)
			return findings
		}
		return []diag.Finding{{
			File:     name,
			Code:     CodeParse,
			Severity: diag.SeverityError,
			Message:  err.Error(),
		}}
	}
	return l.LintPipeline(ctx, name, p)
}

// LintPipeline checks an already decoded pipeline.
func (l *Linter) LintPipeline(ctx context.Context, name string, p *models.Pipeline) []diag.Finding {
	var findings []diag.Finding
	findings = append(findings, l.unknownFieldFindings(name, p)...)
	findings = append(findings, l.shapeFindings(name, p)...)
	findings = append(findings, checkJobs(name, p)...)
	findings = append(findings, checkGraph(name, p)...)
	findings = append(findings, checkResources(name, p)...)
	findings = append(findings, checkTriggers(name, p)...)
	findings = append(findings, checkSchedules(name, p)...)
	findings = append(findings, checkVariables(name, p)...)
	if l.opts.Resolver != nil {
		findings = append(findings, checkTemplates(ctx, l.opts.Resolver, name, p)...)
	}
	diag.Sort(findings)
	return findings
}

func (l *Linter) unknownSeverity() diag.Severity {
	if l.opts.Strict {
		return diag.SeverityError
	}
	return diag.SeverityWarning
}

var (
	yamlErrorLine  = regexp.MustCompile(`^line (\d+): (.*)$`)
	unknownFieldRe = regexp.MustCompile(`^field (\S+) not found in type`)
)

// typeErrorFindings converts the accumulated decode errors of a strict YAML
// decode. Unknown fields are separated from genuine type mismatches.
func (l *Linter) typeErrorFindings(name string, typeErr *yaml.TypeError) []diag.Finding {
	findings := make([]diag.Finding, 0, len(typeErr.Errors))
	for _, msg := range typeErr.Errors {
		f := diag.Finding{File: name, Code: CodeParse, Severity: diag.SeverityError, Message: msg}
		if m := yamlErrorLine.FindStringSubmatch(msg); m != nil {
			f.Line, _ = strconv.Atoi(m[1])
			f.Message = m[2]
		}
		if m := unknownFieldRe.FindStringSubmatch(f.Message); m != nil {
			f.Code = CodeUnknownField
			f.Severity = l.unknownSeverity()
			f.Message = fmt.Sprintf("unknown field '%s'", m[1])
		}
		findings = append(findings, f)
	}
	return findings
}

// unknownFieldFindings surfaces the keys the lenient sub-document decoders
// tolerated.
func (l *Linter) unknownFieldFindings(name string, p *models.Pipeline) []diag.Finding {
	var findings []diag.Finding
	for _, u := range p.UnknownFields() {
		findings = append(findings, diag.Finding{
			File:     name,
			Line:     u.Line,
			Code:     CodeUnknownField,
			Severity: l.unknownSeverity(),
			Message:  fmt.Sprintf("unknown field '%s'", u.Key),
		})
	}
	return findings
}

// shapeFindings applies the struct tag rules of the document model.
func (l *Linter) shapeFindings(name string, p *models.Pipeline) []diag.Finding {
	err := l.validate.Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return []diag.Finding{{File: name, Code: CodeShape, Severity: diag.SeverityError, Message: err.Error()}}
	}
	findings := make([]diag.Finding, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		findings = append(findings, diag.Finding{
			File:     name,
			Code:     CodeShape,
			Severity: diag.SeverityError,
			Message:  fmt.Sprintf("%s failed validation on '%s'", fe.Namespace(), fe.Tag()),
		})
	}
	return findings
}
