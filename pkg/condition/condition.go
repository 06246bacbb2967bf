// Package condition evaluates job condition expressions.
//
// The language is the platform's closed function-call grammar: literals,
// variables lookups and a fixed set of functions such as eq, and, not and
// startsWith. Function names and string comparisons are case-insensitive.
// Job status functions evaluate statically, the way a planner that assumes
// success sees them: succeeded() is true, failed() is false.
package condition

import (
	"sort"
	"strings"
)

// Expression is a parsed condition ready for evaluation.
type Expression struct {
	root expr
	src  string
}

// Parse compiles a condition expression. Errors carry the offending
// position within the source string.
func Parse(input string) (*Expression, error) {
	p := &parser{s: &scanner{input: input}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, parseErrorf(p.tok.pos, "unexpected trailing input")
	}
	return &Expression{root: root, src: input}, nil
}

// Evaluate parses and evaluates an expression in one step.
func Evaluate(input string, vars map[string]string) (bool, error) {
	e, err := Parse(input)
	if err != nil {
		return false, err
	}
	return e.Eval(vars)
}

func (e *Expression) String() string {
	return e.src
}

// Eval evaluates the expression against a variable set. Variable lookup is
// case-insensitive and an undefined variable yields the empty string.
func (e *Expression) Eval(vars map[string]string) (bool, error) {
	lowered := make(map[string]string, len(vars))
	for k, v := range vars {
		lowered[strings.ToLower(k)] = v
	}
	v, err := e.root.eval(lowered)
	if err != nil {
		return false, err
	}
	return v.toBool(), nil
}

// References returns the variable names the expression reads, sorted and
// de-duplicated. An expression with no references is constant.
func (e *Expression) References() []string {
	seen := make(map[string]bool)
	var names []string
	walk(e.root, func(n expr) {
		if v, ok := n.(*varExpr); ok && !seen[v.name] {
			seen[v.name] = true
			names = append(names, v.name)
		}
	})
	sort.Strings(names)
	return names
}

func walk(e expr, fn func(expr)) {
	fn(e)
	if c, ok := e.(*callExpr); ok {
		for _, arg := range c.args {
			walk(arg, fn)
		}
	}
}

// value is the runtime representation: a string or a boolean. Coercion
// follows the platform rules, so a non-empty string is truthy and a boolean
// renders as 'True' or 'False'.
type value struct {
	s      string
	b      bool
	isBool bool
}

func stringValue(s string) value {
	return value{s: s}
}

func boolValue(b bool) value {
	return value{b: b, isBool: true}
}

func (v value) toBool() bool {
	if v.isBool {
		return v.b
	}
	return v.s != ""
}

func (v value) toString() string {
	if v.isBool {
		if v.b {
			return "True"
		}
		return "False"
	}
	return v.s
}

// eqValues compares with the right operand cast to the left operand's type.
func eqValues(a, b value) bool {
	if a.isBool {
		return a.b == b.toBool()
	}
	return strings.EqualFold(a.s, b.toString())
}

type expr interface {
	eval(vars map[string]string) (value, error)
}

type literalExpr struct {
	val value
}

func (e *literalExpr) eval(map[string]string) (value, error) {
	return e.val, nil
}

type varExpr struct {
	name string
}

func (e *varExpr) eval(vars map[string]string) (value, error) {
	return stringValue(vars[strings.ToLower(e.name)]), nil
}

type callExpr struct {
	fn   string
	args []expr
	pos  int
}

func (e *callExpr) eval(vars map[string]string) (value, error) {
	switch e.fn {
	case "always", "succeeded":
		return boolValue(true), nil
	case "failed":
		return boolValue(false), nil
	}

	args := make([]value, len(e.args))
	for i, a := range e.args {
		v, err := a.eval(vars)
		if err != nil {
			return value{}, err
		}
		args[i] = v
	}

	switch e.fn {
	case "eq":
		return boolValue(eqValues(args[0], args[1])), nil
	case "ne":
		return boolValue(!eqValues(args[0], args[1])), nil
	case "not":
		return boolValue(!args[0].toBool()), nil
	case "and":
		for _, a := range args {
			if !a.toBool() {
				return boolValue(false), nil
			}
		}
		return boolValue(true), nil
	case "or":
		for _, a := range args {
			if a.toBool() {
				return boolValue(true), nil
			}
		}
		return boolValue(false), nil
	case "startswith":
		return boolValue(strings.HasPrefix(strings.ToLower(args[0].toString()), strings.ToLower(args[1].toString()))), nil
	case "endswith":
		return boolValue(strings.HasSuffix(strings.ToLower(args[0].toString()), strings.ToLower(args[1].toString()))), nil
	case "contains":
		return boolValue(strings.Contains(strings.ToLower(args[0].toString()), strings.ToLower(args[1].toString()))), nil
	default:
		return value{}, parseErrorf(e.pos, "unknown function '%s'", e.fn)
	}
}
