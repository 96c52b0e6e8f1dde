// Package susumu exposes the language's three public entry points (§6.2):
// parse, evaluate, and the run convenience that chains them.
package susumu

import (
	"github.com/pkg/errors"

	"susumu/internal/ast"
	"susumu/internal/evaluator"
	"susumu/internal/lexer"
	"susumu/internal/object"
	"susumu/internal/parser"
)

type Program = ast.Program
type Value = object.Object
type Environment = object.Environment
type TraceEntry = evaluator.TraceEntry

// Parse lexes and parses source, returning every diagnostic the parser
// accumulated rather than stopping at the first one.
func Parse(source string) (*Program, []error) {
	l := lexer.New(source)
	p := parser.New(l)
	prog, errs := p.ParseProgram()
	if len(errs) == 0 {
		return prog, nil
	}
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return prog, out
}

// NewRootEnvironment returns a fresh, empty root environment suitable for
// Evaluate.
func NewRootEnvironment() *Environment {
	return object.NewEnvironment()
}

// Evaluate runs prog against rootEnv with an optional step budget (0 means
// unlimited). stepBudget lets a host bound runaway programs; exceeding it
// surfaces identically to any other runtime error (§5).
func Evaluate(prog *Program, rootEnv *Environment, stepBudget int64) (Value, error) {
	r := evaluator.NewRunnerWithEnv(rootEnv)
	if stepBudget > 0 {
		r.SetStepBudget(stepBudget)
	}
	v, err := r.Eval(prog)
	if err != nil {
		return nil, errors.Wrap(err, "evaluate")
	}
	return v, nil
}

// Run is the convenience wrapper: parse then evaluate against a fresh root
// environment.
func Run(source string) (Value, error) {
	prog, errs := Parse(source)
	if len(errs) > 0 {
		return nil, errors.Wrap(errs[0], "parse")
	}
	return Evaluate(prog, NewRootEnvironment(), 0)
}

// RunTraced behaves like Run but also returns the append-only arrow-step
// trace required by §6.2.
func RunTraced(source string) (Value, []TraceEntry, error) {
	prog, errs := Parse(source)
	if len(errs) > 0 {
		return nil, nil, errors.Wrap(errs[0], "parse")
	}
	r := evaluator.NewRunner()
	r.EnableTrace()
	v, err := r.Eval(prog)
	if err != nil {
		return nil, r.Trace(), errors.Wrap(err, "evaluate")
	}
	return v, r.Trace(), nil
}
