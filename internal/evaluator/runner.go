package evaluator

import (
	"susumu/internal/ast"
	"susumu/internal/object"
	"susumu/internal/token"
)

// Runner wires an Interp to a root Environment — the seam a host embeds
// against (§6.2's evaluate(Program, rootEnv)).
type Runner struct {
	Env *object.Environment
	it  *Interp
}

func NewRunner() *Runner {
	return &Runner{Env: object.NewEnvironment(), it: New()}
}

// NewRunnerWithEnv lets a host supply its own root environment, e.g. one
// pre-populated with additional bindings before a program runs.
func NewRunnerWithEnv(env *object.Environment) *Runner {
	return &Runner{Env: env, it: New()}
}

func (r *Runner) SetStepBudget(n int64) { r.it.SetStepBudget(n) }

func (r *Runner) EnableTrace() { r.it.EnableTrace() }

func (r *Runner) Trace() []TraceEntry { return r.it.Trace }

func (r *Runner) Eval(prog *ast.Program) (object.Object, error) {
	return r.it.EvalProgram(prog, r.Env)
}

// Call invokes fn directly, bypassing arrow-chain composition — useful for
// a host driving a Susumu function value from Go.
func (r *Runner) Call(fn object.Object, args ...object.Object) (object.Object, error) {
	return r.it.callValue(fn, args, token.Token{})
}
