// Package evaluator is the tree-walking evaluator of §4.3: arrow
// composition, convergence via Partial pending-call values, pattern
// matched control flow, and Return/Error early exit.
package evaluator

import (
	"fmt"

	"susumu/internal/ast"
	"susumu/internal/diag"
	"susumu/internal/limits"
	"susumu/internal/object"
	"susumu/internal/runtimeio"
	"susumu/internal/token"
)

// ctrlKind is the internal tagged union of Design Note 2: early exit is
// threaded explicitly through every eval* helper, never modeled with Go
// panic/recover.
type ctrlKind int

const (
	ctrlNone ctrlKind = iota
	ctrlReturn
	ctrlError
)

type ctrl struct {
	kind  ctrlKind
	value object.Object
}

var noCtrl = ctrl{}

// Interp holds the state shared across one evaluation: the built-in
// table, the output writer every I/O builtin shares, the step budget, and
// (optionally) the arrow-step trace.
type Interp struct {
	Out      *runtimeio.Writer
	Budget   *limits.Budget
	builtins map[string]*object.Builtin
	tracing  bool
	Trace    []TraceEntry
}

func New() *Interp {
	it := &Interp{Out: runtimeio.Stdout()}
	it.builtins = newBuiltins(it)
	return it
}

func (it *Interp) SetStepBudget(n int64) { it.Budget = limits.NewBudget(n) }

func (it *Interp) EnableTrace() { it.tracing = true }

func (it *Interp) chargeStep() error {
	if it.Budget == nil {
		return nil
	}
	return it.Budget.Charge(1)
}

func isBuiltinName(it *Interp, name string) bool {
	_, ok := it.builtins[name]
	return ok
}

/* -------------------- program entry -------------------- */

// EvalProgram runs every top-level item in order. A Return or Error
// signal escaping a top-level item (one not nested inside any function
// call) is a ControlError: there is no call boundary left to absorb it.
// If a function named main was defined among the items, it is then called
// with no arguments and its result replaces the program's result; otherwise
// the value of the final item stands (§6.1).
func (it *Interp) EvalProgram(prog *ast.Program, env *object.Environment) (object.Object, error) {
	defer it.Out.Flush()

	var result object.Object = &object.Null{}
	for _, item := range prog.Items {
		v, c, err := it.eval(item, env)
		if err != nil {
			return nil, err
		}
		if c.kind != ctrlNone {
			tok := item.Tok()
			return nil, diag.New(diag.ControlError, tok.Line, tok.Col, "return/error used outside of a function body")
		}
		result = v
	}

	if main, ok := env.GetHere("main"); ok {
		if fn, ok := main.(*object.Function); ok {
			v, err := it.callValue(fn, nil, token.Token{})
			if err != nil {
				return nil, err
			}
			result = v
		}
	}

	return result, nil
}

/* -------------------- dispatch -------------------- */

func (it *Interp) eval(node ast.Node, env *object.Environment) (object.Object, ctrl, error) {
	if err := it.chargeStep(); err != nil {
		tok := node.Tok()
		return nil, noCtrl, diag.New(diag.ResourceExhaustedError, tok.Line, tok.Col, err.Error())
	}

	switch n := node.(type) {
	case *ast.Program:
		return it.evalBlockItems(n.Items, env)
	case *ast.Block:
		return it.evalBlock(n, env)
	case *ast.FunctionDef:
		return it.evalFunctionDef(n, env)
	case *ast.Assignment:
		return it.evalAssignment(n, env)
	case *ast.ExprStmt:
		return it.eval(n.X, env)
	case *ast.Identifier:
		return it.evalIdentifier(n, env)
	case *ast.NumberLit:
		return &object.Number{Value: n.Value}, noCtrl, nil
	case *ast.StringLit:
		return &object.String{Value: n.Value}, noCtrl, nil
	case *ast.BoolLit:
		return &object.Bool{Value: n.Value}, noCtrl, nil
	case *ast.NullLit:
		return &object.Null{}, noCtrl, nil
	case *ast.ArrayLit:
		return it.evalArrayLit(n, env)
	case *ast.ObjectLit:
		return it.evalObjectLit(n, env)
	case *ast.TupleLit:
		return it.evalTupleLit(n, env)
	case *ast.PropertyAccess:
		return it.evalPropertyAccess(n, env)
	case *ast.Binary:
		return it.evalBinary(n, env)
	case *ast.Unary:
		return it.evalUnary(n, env)
	case *ast.Call:
		return it.evalCall(n, env)
	case *ast.ArrowChain:
		return it.evalArrowChain(n, env)
	case *ast.If:
		return it.evalIfWithScrutinee(n, &object.Null{}, env)
	case *ast.Foreach:
		return it.evalForeach(n, env)
	case *ast.While:
		return it.evalWhile(n, env)
	case *ast.Match:
		return it.evalMatch(n, env)
	case *ast.Return:
		return it.evalReturn(n, env)
	case *ast.Error:
		return it.evalErrorExpr(n, env)
	default:
		return nil, noCtrl, fmt.Errorf("evaluator: unhandled node type %T", node)
	}
}

func (it *Interp) evalBlock(b *ast.Block, env *object.Environment) (object.Object, ctrl, error) {
	return it.evalBlockItems(b.Items, env)
}

func (it *Interp) evalBlockItems(items []ast.Item, env *object.Environment) (object.Object, ctrl, error) {
	var result object.Object = &object.Null{}
	for _, item := range items {
		v, c, err := it.eval(item, env)
		if err != nil {
			return nil, noCtrl, err
		}
		if c.kind != ctrlNone {
			return v, c, nil
		}
		result = v
	}
	return result, noCtrl, nil
}

/* -------------------- items -------------------- */

func (it *Interp) evalFunctionDef(n *ast.FunctionDef, env *object.Environment) (object.Object, ctrl, error) {
	if env.IsRoot() && isBuiltinName(it, n.Name.Value) {
		return nil, noCtrl, diag.New(diag.NameError, n.Token.Line, n.Token.Col,
			fmt.Sprintf("cannot redefine built-in %q", n.Name.Value))
	}
	fn := &object.Function{Name: n.Name.Value, Params: n.Params, Body: n.Body, Env: env}
	env.Define(n.Name.Value, fn, false)
	return &object.Null{}, noCtrl, nil
}

func (it *Interp) evalAssignment(n *ast.Assignment, env *object.Environment) (object.Object, ctrl, error) {
	val, c, err := it.eval(n.Value, env)
	if err != nil || c.kind != ctrlNone {
		return val, c, err
	}
	name := n.Target.Value

	if env.IsRoot() && isBuiltinName(it, name) {
		return nil, noCtrl, diag.New(diag.NameError, n.Token.Line, n.Token.Col,
			fmt.Sprintf("cannot redefine built-in %q", name))
	}

	if n.Mutable {
		env.Define(name, val, true)
		return val, noCtrl, nil
	}

	if ok, immutable := env.Assign(name, val); ok {
		return val, noCtrl, nil
	} else if immutable {
		return nil, noCtrl, diag.New(diag.NameError, n.Token.Line, n.Token.Col,
			fmt.Sprintf("cannot assign to immutable binding %q", name))
	}

	env.Define(name, val, false)
	return val, noCtrl, nil
}

func (it *Interp) evalIdentifier(n *ast.Identifier, env *object.Environment) (object.Object, ctrl, error) {
	if v, ok := env.Get(n.Value); ok {
		return v, noCtrl, nil
	}
	if b, ok := it.builtins[n.Value]; ok {
		return b, noCtrl, nil
	}
	return nil, noCtrl, diag.New(diag.NameError, n.Token.Line, n.Token.Col,
		fmt.Sprintf("undefined identifier %q", n.Value))
}

/* -------------------- literals -------------------- */

func (it *Interp) evalArrayLit(n *ast.ArrayLit, env *object.Environment) (object.Object, ctrl, error) {
	elems := make([]object.Object, 0, len(n.Elements))
	for _, e := range n.Elements {
		v, c, err := it.eval(e, env)
		if err != nil || c.kind != ctrlNone {
			return v, c, err
		}
		elems = append(elems, v)
	}
	return &object.Array{Elements: elems}, noCtrl, nil
}

func (it *Interp) evalObjectLit(n *ast.ObjectLit, env *object.Environment) (object.Object, ctrl, error) {
	d := object.NewDict()
	for _, f := range n.Fields {
		v, c, err := it.eval(f.Value, env)
		if err != nil || c.kind != ctrlNone {
			return v, c, err
		}
		d.Set(f.Key, v)
	}
	return d, noCtrl, nil
}

func (it *Interp) evalTupleLit(n *ast.TupleLit, env *object.Environment) (object.Object, ctrl, error) {
	elems := make([]object.Object, 0, len(n.Elements))
	for _, e := range n.Elements {
		v, c, err := it.eval(e, env)
		if err != nil || c.kind != ctrlNone {
			return v, c, err
		}
		elems = append(elems, v)
	}
	return &object.Tuple{Elements: elems}, noCtrl, nil
}

func (it *Interp) evalPropertyAccess(n *ast.PropertyAccess, env *object.Environment) (object.Object, ctrl, error) {
	obj, c, err := it.eval(n.Object, env)
	if err != nil || c.kind != ctrlNone {
		return obj, c, err
	}
	d, ok := obj.(*object.Dict)
	if !ok {
		return nil, noCtrl, diag.New(diag.TypeError, n.Token.Line, n.Token.Col,
			fmt.Sprintf("cannot access property %q of a %s", n.Property, obj.Type()))
	}
	if v, found := d.Get(n.Property); found {
		return v, noCtrl, nil
	}
	return &object.Null{}, noCtrl, nil
}

/* -------------------- operators -------------------- */

func (it *Interp) evalUnary(n *ast.Unary, env *object.Environment) (object.Object, ctrl, error) {
	right, c, err := it.eval(n.Right, env)
	if err != nil || c.kind != ctrlNone {
		return right, c, err
	}
	if n.Op == token.MINUS {
		num, ok := right.(*object.Number)
		if !ok {
			return nil, noCtrl, diag.New(diag.TypeError, n.Token.Line, n.Token.Col, "unary '-' requires a number")
		}
		return &object.Number{Value: -num.Value}, noCtrl, nil
	}
	return nil, noCtrl, diag.New(diag.TypeError, n.Token.Line, n.Token.Col, fmt.Sprintf("unknown unary operator %s", n.Op))
}

func (it *Interp) evalBinary(n *ast.Binary, env *object.Environment) (object.Object, ctrl, error) {
	left, c, err := it.eval(n.Left, env)
	if err != nil || c.kind != ctrlNone {
		return left, c, err
	}
	right, c, err := it.eval(n.Right, env)
	if err != nil || c.kind != ctrlNone {
		return right, c, err
	}

	ln, lIsNum := left.(*object.Number)
	rn, rIsNum := right.(*object.Number)

	switch n.Op {
	case token.PLUS:
		if lIsNum && rIsNum {
			return &object.Number{Value: ln.Value + rn.Value}, noCtrl, nil
		}
		ls, lIsStr := left.(*object.String)
		rs, rIsStr := right.(*object.String)
		if lIsStr && rIsStr {
			return &object.String{Value: ls.Value + rs.Value}, noCtrl, nil
		}
		return nil, noCtrl, diag.New(diag.TypeError, n.Token.Line, n.Token.Col, "'+' requires two numbers or two strings")
	case token.MINUS:
		if lIsNum && rIsNum {
			return &object.Number{Value: ln.Value - rn.Value}, noCtrl, nil
		}
		return nil, noCtrl, diag.New(diag.TypeError, n.Token.Line, n.Token.Col, "'-' requires two numbers")
	case token.STAR:
		if lIsNum && rIsNum {
			return &object.Number{Value: ln.Value * rn.Value}, noCtrl, nil
		}
		return nil, noCtrl, diag.New(diag.TypeError, n.Token.Line, n.Token.Col, "'*' requires two numbers")
	case token.SLASH:
		if !lIsNum || !rIsNum {
			return nil, noCtrl, diag.New(diag.TypeError, n.Token.Line, n.Token.Col, "'/' requires two numbers")
		}
		if rn.Value == 0 {
			return nil, noCtrl, diag.New(diag.ArithmeticError, n.Token.Line, n.Token.Col, "division by zero")
		}
		return &object.Number{Value: ln.Value / rn.Value}, noCtrl, nil
	default:
		return nil, noCtrl, diag.New(diag.TypeError, n.Token.Line, n.Token.Col, fmt.Sprintf("unknown binary operator %s", n.Op))
	}
}

/* -------------------- calls -------------------- */

func (it *Interp) evalCall(n *ast.Call, env *object.Environment) (object.Object, ctrl, error) {
	callee, c, err := it.eval(n.Callee, env)
	if err != nil || c.kind != ctrlNone {
		return callee, c, err
	}
	args := make([]object.Object, 0, len(n.Args))
	for _, a := range n.Args {
		v, c, err := it.eval(a, env)
		if err != nil || c.kind != ctrlNone {
			return v, c, err
		}
		args = append(args, v)
	}
	v, err := it.callValue(callee, args, n.Token)
	return v, noCtrl, err
}

// callValue finalizes any call, whether reached via conventional call
// syntax or arrow-chain finalization. Return/Error signals raised inside
// a user function's body never escape past this boundary (§4.3.3): Return
// unwraps to its value, Error becomes an Error-flagged value that flows
// onward as ordinary data.
func (it *Interp) callValue(callee object.Object, args []object.Object, tok token.Token) (object.Object, error) {
	switch c := callee.(type) {
	case *object.Builtin:
		return it.callBuiltin(c, args, tok)
	case *object.Function:
		return it.callFunction(c, args, tok)
	case *object.Partial:
		all := append(append([]object.Object{}, c.Collected...), args...)
		return it.callValue(c.Callee, all, tok)
	default:
		return nil, diag.New(diag.TypeError, tok.Line, tok.Col, fmt.Sprintf("%s is not callable", callee.Type()))
	}
}

func (it *Interp) callFunction(fn *object.Function, args []object.Object, tok token.Token) (object.Object, error) {
	if len(args) > len(fn.Params) {
		return nil, diag.New(diag.ArityError, tok.Line, tok.Col,
			fmt.Sprintf("%s expects at most %d argument(s), got %d", fn.Name, len(fn.Params), len(args)))
	}

	child := object.NewEnclosedEnvironment(fn.Env)
	for i, p := range fn.Params {
		if i < len(args) {
			child.Define(p.Value, args[i], false)
		} else {
			child.Define(p.Value, &object.Null{}, false)
		}
	}

	v, c, err := it.evalBlock(fn.Body, child)
	if err != nil {
		return nil, err
	}
	switch c.kind {
	case ctrlReturn:
		return c.value, nil
	case ctrlError:
		return &object.Error{Value: c.value}, nil
	default:
		return v, nil
	}
}

func (it *Interp) callBuiltin(b *object.Builtin, args []object.Object, tok token.Token) (object.Object, error) {
	if !b.Variadic {
		if b.Convergent && len(args) < b.Arity {
			return nil, diag.New(diag.ArityError, tok.Line, tok.Col,
				fmt.Sprintf("%s expects at least %d argument(s), got %d", b.Name, b.Arity, len(args)))
		}
		if !b.Convergent && len(args) != b.Arity {
			return nil, diag.New(diag.ArityError, tok.Line, tok.Col,
				fmt.Sprintf("%s expects %d argument(s), got %d", b.Name, b.Arity, len(args)))
		}
	} else if len(args) < b.Arity {
		return nil, diag.New(diag.ArityError, tok.Line, tok.Col,
			fmt.Sprintf("%s expects at least %d argument(s), got %d", b.Name, b.Arity, len(args)))
	}
	v, err := b.Fn(args)
	if err != nil {
		if bf, ok := err.(*builtinFault); ok {
			return nil, diag.New(bf.kind, tok.Line, tok.Col, bf.msg)
		}
		return nil, err
	}
	return v, nil
}

/* -------------------- return / error -------------------- */

func (it *Interp) evalReturn(n *ast.Return, env *object.Environment) (object.Object, ctrl, error) {
	v, c, err := it.eval(n.Value, env)
	if err != nil || c.kind != ctrlNone {
		return v, c, err
	}
	return v, ctrl{kind: ctrlReturn, value: v}, nil
}

func (it *Interp) evalErrorExpr(n *ast.Error, env *object.Environment) (object.Object, ctrl, error) {
	v, c, err := it.eval(n.Value, env)
	if err != nil || c.kind != ctrlNone {
		return v, c, err
	}
	return v, ctrl{kind: ctrlError, value: v}, nil
}

/* -------------------- control-flow expressions -------------------- */

func (it *Interp) evalIfWithScrutinee(n *ast.If, scrutinee object.Object, env *object.Environment) (object.Object, ctrl, error) {
	if conditionHolds(n.CondName, scrutinee) {
		return it.evalBlock(n.Then, object.NewEnclosedEnvironment(env))
	}
	for _, el := range n.Elifs {
		if conditionHolds(el.CondName, scrutinee) {
			return it.evalBlock(el.Body, object.NewEnclosedEnvironment(env))
		}
	}
	if n.Else != nil {
		return it.evalBlock(n.Else, object.NewEnclosedEnvironment(env))
	}
	return &object.Null{}, noCtrl, nil
}

func (it *Interp) evalForeach(n *ast.Foreach, env *object.Environment) (object.Object, ctrl, error) {
	iterable, c, err := it.eval(n.Iterable, env)
	if err != nil || c.kind != ctrlNone {
		return iterable, c, err
	}

	var items []object.Object
	switch v := iterable.(type) {
	case *object.Array:
		items = v.Elements
	case *object.Dict:
		for _, k := range v.Keys() {
			items = append(items, &object.String{Value: k})
		}
	case *object.String:
		for _, r := range v.Value {
			items = append(items, &object.String{Value: string(r)})
		}
	default:
		return nil, noCtrl, diag.New(diag.TypeError, n.Token.Line, n.Token.Col,
			fmt.Sprintf("%s is not iterable", iterable.Type()))
	}

	var result object.Object = &object.Null{}
	for _, item := range items {
		child := object.NewEnclosedEnvironment(env)
		child.Define(n.Var.Value, item, false)
		v, c, err := it.evalBlock(n.Body, child)
		if err != nil {
			return nil, noCtrl, err
		}
		if c.kind != ctrlNone {
			return v, c, nil
		}
		result = v
	}
	return result, noCtrl, nil
}

func (it *Interp) evalWhile(n *ast.While, env *object.Environment) (object.Object, ctrl, error) {
	var result object.Object = &object.Null{}
	for {
		cond, c, err := it.eval(n.Cond, env)
		if err != nil {
			return nil, noCtrl, err
		}
		if c.kind != ctrlNone {
			return cond, c, nil
		}
		b, ok := cond.(*object.Bool)
		if !ok {
			return nil, noCtrl, diag.New(diag.TypeError, n.Cond.Tok().Line, n.Cond.Tok().Col, "while condition must be a boolean")
		}
		if !b.Value {
			break
		}

		child := object.NewEnclosedEnvironment(env)
		v, c, err := it.evalBlock(n.Body, child)
		if err != nil {
			return nil, noCtrl, err
		}
		if c.kind != ctrlNone {
			return v, c, nil
		}
		result = v
	}
	return result, noCtrl, nil
}

func (it *Interp) evalMatch(n *ast.Match, env *object.Environment) (object.Object, ctrl, error) {
	scrutinee, c, err := it.eval(n.Scrutinee, env)
	if err != nil || c.kind != ctrlNone {
		return scrutinee, c, err
	}

	for _, arm := range n.Arms {
		if !conditionHolds(arm.Pattern, scrutinee) {
			continue
		}
		child := object.NewEnclosedEnvironment(env)
		if arm.Bind != nil {
			child.Define(arm.Bind.Value, bindValueFor(arm.Pattern, scrutinee), false)
		}
		return it.evalBlock(arm.Body, child)
	}

	return nil, noCtrl, diag.New(diag.MatchError, n.Token.Line, n.Token.Col, "no match arm was satisfied")
}

/* -------------------- arrow chains -------------------- */

// evalArrowChain is §4.3.2's composition engine: a Partial pending call is
// threaded through the steps, finalized at each forward step (and at
// chain end) using the running accumulator as its first argument.
func (it *Interp) evalArrowChain(n *ast.ArrowChain, env *object.Environment) (object.Object, ctrl, error) {
	acc, c, err := it.eval(n.Head, env)
	if err != nil || c.kind != ctrlNone {
		return acc, c, err
	}

	var pend *object.Partial

	finalize := func(tok token.Token) error {
		if pend == nil {
			return nil
		}
		args := append([]object.Object{acc}, pend.Collected...)
		result, err := it.callValue(pend.Callee, args, tok)
		if err != nil {
			return err
		}
		acc = result
		pend = nil
		return nil
	}

	for _, step := range n.Steps {
		var operandVal object.Object

		switch step.Direction {
		case ast.ArrowForward:
			if err := finalize(step.Token); err != nil {
				return nil, noCtrl, err
			}

			switch op := step.Operand.(type) {
			case *ast.If:
				v, c, err := it.evalIfWithScrutinee(op, acc, env)
				if err != nil || c.kind != ctrlNone {
					return v, c, err
				}
				acc, operandVal = v, v
			case *ast.Match, *ast.Foreach, *ast.While:
				v, c, err := it.eval(step.Operand, env)
				if err != nil || c.kind != ctrlNone {
					return v, c, err
				}
				acc, operandVal = v, v
			default:
				v, c, err := it.eval(step.Operand, env)
				if err != nil || c.kind != ctrlNone {
					return v, c, err
				}
				if !object.Callable(v) {
					tok := step.Operand.Tok()
					return nil, noCtrl, diag.New(diag.TypeError, tok.Line, tok.Col, "forward arrow target is not callable")
				}
				pend = &object.Partial{Callee: v}
				operandVal = v
			}

		case ast.ArrowBackward:
			if pend == nil {
				return nil, noCtrl, diag.New(diag.ControlError, step.Token.Line, step.Token.Col,
					"'<-' has no pending call to converge into")
			}
			v, c, err := it.eval(step.Operand, env)
			if err != nil || c.kind != ctrlNone {
				return v, c, err
			}
			pend.Collected = append(pend.Collected, v)
			operandVal = v

		case ast.ArrowMut:
			v, c, err := it.eval(step.Operand, env)
			if err != nil || c.kind != ctrlNone {
				return v, c, err
			}
			left, lok := acc.(*object.Dict)
			right, rok := v.(*object.Dict)
			if !lok || !rok {
				return nil, noCtrl, diag.New(diag.TypeError, step.Token.Line, step.Token.Col,
					"'<~' requires both operands to be objects")
			}
			acc = left.Merge(right)
			operandVal = v
		}

		if it.tracing {
			tok := step.Token
			it.Trace = append(it.Trace, TraceEntry{
				Line:             tok.Line,
				Col:              tok.Col,
				Direction:        step.Direction,
				Operand:          operandVal,
				AccumulatorAfter: acc,
			})
		}
	}

	if err := finalize(n.Token); err != nil {
		return nil, noCtrl, err
	}
	return acc, noCtrl, nil
}
