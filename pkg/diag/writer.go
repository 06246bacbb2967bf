package diag

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

var colors = []color.Attribute{color.FgYellow, color.FgGreen, color.FgRed, color.FgWhite, color.FgMagenta}
var index = -1

var l sync.Mutex

const MaxNameLength = 30

var severityColors = map[Severity]*color.Color{
	SeverityError:   color.New(color.FgRed),
	SeverityWarning: color.New(color.FgYellow),
	SeverityInfo:    color.New(color.FgCyan),
}

// PrefixWriter is an io.Writer that prefixes every write with a colored
// name, so findings from different files stay attributable.
type PrefixWriter struct {
	name   string
	writer io.Writer
	c      color.Attribute
}

func NewPrefixWriter(name string, writer io.Writer, newColor bool) io.Writer {
	if newColor {
		l.Lock()
		defer l.Unlock()
		index = (index + 1) % len(colors)
	}

	if len(name) > MaxNameLength {
		name = "..." + name[len(name)-MaxNameLength+3:]
	}

	return &PrefixWriter{
		name:   name,
		writer: writer,
		c:      colors[index],
	}
}

func (p *PrefixWriter) Write(b []byte) (int, error) {
	out := color.New(p.c)
	if _, err := out.Fprint(p.writer, p.name, " | "); err != nil {
		return 0, err
	}
	return p.writer.Write(b)
}

// Renderer writes findings grouped by file, one line per finding, with a
// trailing summary.
type Renderer struct {
	writer io.Writer
}

func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{writer: w}
}

func (r *Renderer) Render(findings []Finding) error {
	Sort(findings)

	var file string
	var out io.Writer
	for _, f := range findings {
		if out == nil || f.File != file {
			file = f.File
			out = NewPrefixWriter(file, r.writer, true)
		}
		if _, err := io.WriteString(out, formatFinding(f)); err != nil {
			return err
		}
		if f.Hint != "" {
			if _, err := io.WriteString(out, fmt.Sprintf("hint: %s\n", f.Hint)); err != nil {
				return err
			}
		}
	}

	s := Summarize(findings)
	_, err := fmt.Fprintf(r.writer, "%d errors, %d warnings, %d infos\n", s.Errors, s.Warnings, s.Infos)
	return err
}

func formatFinding(f Finding) string {
	sev := severityColors[f.Severity].Sprint(string(f.Severity))
	if f.Line > 0 {
		return fmt.Sprintf("%s %s line %d: %s\n", sev, f.Code, f.Line, f.Message)
	}
	return fmt.Sprintf("%s %s %s\n", sev, f.Code, f.Message)
}
