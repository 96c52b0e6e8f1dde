package evaluator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/mattn/go-runewidth"

	"susumu/internal/diag"
	"susumu/internal/object"
	"susumu/internal/token"
)

// builtinFault is how a builtin signals a fatal diagnostic (§7's TypeError
// and ArithmeticError kinds) through BuiltinFn's error return. callBuiltin
// unwraps it into a properly positioned *diag.Error; it never reaches user
// code as a value, unlike object.Error, which only `error <- v` produces.
type builtinFault struct {
	kind diag.Kind
	msg  string
}

func (f *builtinFault) Error() string { return f.msg }

func typeFault(format string, args ...any) (object.Object, error) {
	return nil, &builtinFault{kind: diag.TypeError, msg: fmt.Sprintf(format, args...)}
}

func arithFault(format string, args ...any) (object.Object, error) {
	return nil, &builtinFault{kind: diag.ArithmeticError, msg: fmt.Sprintf(format, args...)}
}

func numArg(args []object.Object, i int) (*object.Number, bool) {
	if i >= len(args) {
		return nil, false
	}
	n, ok := args[i].(*object.Number)
	return n, ok
}

func strArg(args []object.Object, i int) (*object.String, bool) {
	if i >= len(args) {
		return nil, false
	}
	s, ok := args[i].(*object.String)
	return s, ok
}

// newBuiltins builds the fixed table of native functions (§4.5). Arity is
// the exact argument count, or the minimum for Variadic and Convergent
// entries; Convergent entries may receive more via arrow convergence
// (e.g. `5 -> add <- 3 <- 2`).
func newBuiltins(it *Interp) map[string]*object.Builtin {
	table := map[string]*object.Builtin{}
	reg := func(b *object.Builtin) { table[b.Name] = b }

	// binaryNumeric folds fn left over all arguments, so a convergent entry
	// applies it to every converged operand in turn.
	binaryNumeric := func(name string, convergent bool, fn func(a, b float64) (object.Object, error)) {
		reg(&object.Builtin{Name: name, Arity: 2, Convergent: convergent, Fn: func(args []object.Object) (object.Object, error) {
			acc, ok := numArg(args, 0)
			if !ok {
				return typeFault("%s requires numbers", name)
			}
			for i := 1; i < len(args); i++ {
				b, ok := numArg(args, i)
				if !ok {
					return typeFault("%s requires numbers", name)
				}
				r, err := fn(acc.Value, b.Value)
				if err != nil {
					return nil, err
				}
				acc = r.(*object.Number)
			}
			return acc, nil
		}})
	}

	binaryNumeric("add", true, func(a, b float64) (object.Object, error) { return &object.Number{Value: a + b}, nil })
	binaryNumeric("subtract", false, func(a, b float64) (object.Object, error) { return &object.Number{Value: a - b}, nil })
	binaryNumeric("multiply", true, func(a, b float64) (object.Object, error) { return &object.Number{Value: a * b}, nil })
	binaryNumeric("divide", false, func(a, b float64) (object.Object, error) {
		if b == 0 {
			return arithFault("divide by zero")
		}
		return &object.Number{Value: a / b}, nil
	})
	binaryNumeric("modulo", true, func(a, b float64) (object.Object, error) {
		if b == 0 {
			return arithFault("modulo by zero")
		}
		return &object.Number{Value: math.Mod(a, b)}, nil
	})
	binaryNumeric("power", true, func(a, b float64) (object.Object, error) { return &object.Number{Value: math.Pow(a, b)}, nil })

	reg(&object.Builtin{Name: "sqrt", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		n, ok := numArg(args, 0)
		if !ok {
			return typeFault("sqrt requires a number")
		}
		if n.Value < 0 {
			return arithFault("sqrt of a negative number")
		}
		return &object.Number{Value: math.Sqrt(n.Value)}, nil
	}})

	reg(&object.Builtin{Name: "abs", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		n, ok := numArg(args, 0)
		if !ok {
			return typeFault("abs requires a number")
		}
		return &object.Number{Value: math.Abs(n.Value)}, nil
	}})

	reg(&object.Builtin{Name: "min", Arity: 1, Variadic: true, Fn: func(args []object.Object) (object.Object, error) {
		best, ok := numArg(args, 0)
		if !ok {
			return typeFault("min requires numbers")
		}
		v := best.Value
		for i := 1; i < len(args); i++ {
			n, ok := numArg(args, i)
			if !ok {
				return typeFault("min requires numbers")
			}
			if n.Value < v {
				v = n.Value
			}
		}
		return &object.Number{Value: v}, nil
	}})

	reg(&object.Builtin{Name: "max", Arity: 1, Variadic: true, Fn: func(args []object.Object) (object.Object, error) {
		best, ok := numArg(args, 0)
		if !ok {
			return typeFault("max requires numbers")
		}
		v := best.Value
		for i := 1; i < len(args); i++ {
			n, ok := numArg(args, i)
			if !ok {
				return typeFault("max requires numbers")
			}
			if n.Value > v {
				v = n.Value
			}
		}
		return &object.Number{Value: v}, nil
	}})

	reg(&object.Builtin{Name: "sum", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		arr, ok := args[0].(*object.Array)
		if !ok {
			return typeFault("sum requires an array")
		}
		total := 0.0
		for _, el := range arr.Elements {
			n, ok := el.(*object.Number)
			if !ok {
				return typeFault("sum requires an array of numbers")
			}
			total += n.Value
		}
		return &object.Number{Value: total}, nil
	}})

	reg(&object.Builtin{Name: "average", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		arr, ok := args[0].(*object.Array)
		if !ok || len(arr.Elements) == 0 {
			return typeFault("average requires a non-empty array")
		}
		total := 0.0
		for _, el := range arr.Elements {
			n, ok := el.(*object.Number)
			if !ok {
				return typeFault("average requires an array of numbers")
			}
			total += n.Value
		}
		return &object.Number{Value: total / float64(len(arr.Elements))}, nil
	}})

	reg(&object.Builtin{Name: "print", Arity: 1, Variadic: true, Fn: func(args []object.Object) (object.Object, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.Inspect()
		}
		it.Out.WriteString(strings.Join(parts, " "))
		return args[0], nil
	}})

	reg(&object.Builtin{Name: "println", Arity: 0, Variadic: true, Fn: func(args []object.Object) (object.Object, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.Inspect()
		}
		it.Out.WriteString(strings.Join(parts, " ") + "\n")
		if len(args) == 0 {
			return &object.Null{}, nil
		}
		return args[0], nil
	}})

	reg(&object.Builtin{Name: "debug", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		it.Out.WriteString(fmt.Sprintf("[%s] %s\n", args[0].Type(), args[0].Inspect()))
		return args[0], nil
	}})

	reg(&object.Builtin{Name: "length", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		switch v := args[0].(type) {
		case *object.Array:
			return &object.Number{Value: float64(len(v.Elements))}, nil
		case *object.String:
			return &object.Number{Value: float64(len([]rune(v.Value)))}, nil
		case *object.Dict:
			return &object.Number{Value: float64(v.Len())}, nil
		default:
			return typeFault("length requires an array, string, or object")
		}
	}})

	reg(&object.Builtin{Name: "first", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		arr, ok := args[0].(*object.Array)
		if !ok || len(arr.Elements) == 0 {
			return &object.Null{}, nil
		}
		return arr.Elements[0], nil
	}})

	reg(&object.Builtin{Name: "last", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		arr, ok := args[0].(*object.Array)
		if !ok || len(arr.Elements) == 0 {
			return &object.Null{}, nil
		}
		return arr.Elements[len(arr.Elements)-1], nil
	}})

	reg(&object.Builtin{Name: "rest", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		arr, ok := args[0].(*object.Array)
		if !ok || len(arr.Elements) == 0 {
			return &object.Array{}, nil
		}
		out := make([]object.Object, len(arr.Elements)-1)
		copy(out, arr.Elements[1:])
		return &object.Array{Elements: out}, nil
	}})

	reg(&object.Builtin{Name: "push", Arity: 2, Convergent: true, Fn: func(args []object.Object) (object.Object, error) {
		arr, ok := args[0].(*object.Array)
		if !ok {
			return typeFault("push requires an array")
		}
		out := make([]object.Object, len(arr.Elements), len(arr.Elements)+len(args)-1)
		copy(out, arr.Elements)
		out = append(out, args[1:]...)
		return &object.Array{Elements: out}, nil
	}})

	reg(&object.Builtin{Name: "reverse", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		switch v := args[0].(type) {
		case *object.Array:
			out := make([]object.Object, len(v.Elements))
			for i, el := range v.Elements {
				out[len(v.Elements)-1-i] = el
			}
			return &object.Array{Elements: out}, nil
		case *object.String:
			r := []rune(v.Value)
			for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
				r[i], r[j] = r[j], r[i]
			}
			return &object.String{Value: string(r)}, nil
		default:
			return typeFault("reverse requires an array or string")
		}
	}})

	reg(&object.Builtin{Name: "sort", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		arr, ok := args[0].(*object.Array)
		if !ok {
			return typeFault("sort requires an array")
		}
		out := make([]object.Object, len(arr.Elements))
		copy(out, arr.Elements)
		allNumbers, allStrings := true, true
		for _, el := range out {
			if _, ok := el.(*object.Number); !ok {
				allNumbers = false
			}
			if _, ok := el.(*object.String); !ok {
				allStrings = false
			}
		}
		if !allNumbers && !allStrings {
			return typeFault("sort requires an array of all numbers or all strings")
		}
		sort.SliceStable(out, func(i, j int) bool {
			if allNumbers {
				return out[i].(*object.Number).Value < out[j].(*object.Number).Value
			}
			return out[i].(*object.String).Value < out[j].(*object.String).Value
		})
		return &object.Array{Elements: out}, nil
	}})

	reg(&object.Builtin{Name: "filter", Arity: 2, Fn: func(args []object.Object) (object.Object, error) {
		arr, ok := args[0].(*object.Array)
		if !ok {
			return typeFault("filter requires an array")
		}
		if !object.Callable(args[1]) {
			return typeFault("filter requires a callable predicate")
		}
		out := make([]object.Object, 0, len(arr.Elements))
		for _, el := range arr.Elements {
			kept, err := it.callValue(args[1], []object.Object{el}, token.Token{})
			if err != nil {
				return nil, err
			}
			b, ok := kept.(*object.Bool)
			if !ok {
				return typeFault("filter predicate must return a bool")
			}
			if b.Value {
				out = append(out, el)
			}
		}
		return &object.Array{Elements: out}, nil
	}})

	reg(&object.Builtin{Name: "map", Arity: 2, Fn: func(args []object.Object) (object.Object, error) {
		arr, ok := args[0].(*object.Array)
		if !ok {
			return typeFault("map requires an array")
		}
		if !object.Callable(args[1]) {
			return typeFault("map requires a callable transform")
		}
		out := make([]object.Object, len(arr.Elements))
		for i, el := range arr.Elements {
			v, err := it.callValue(args[1], []object.Object{el}, token.Token{})
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return &object.Array{Elements: out}, nil
	}})

	reg(&object.Builtin{Name: "reduce", Arity: 2, Variadic: true, Fn: func(args []object.Object) (object.Object, error) {
		arr, ok := args[0].(*object.Array)
		if !ok {
			return typeFault("reduce requires an array")
		}
		if !object.Callable(args[1]) {
			return typeFault("reduce requires a callable reducer")
		}
		var acc object.Object
		rest := arr.Elements
		if len(args) >= 3 {
			acc = args[2]
		} else {
			if len(arr.Elements) == 0 {
				return typeFault("reduce of an empty array with no initial value")
			}
			acc = arr.Elements[0]
			rest = arr.Elements[1:]
		}
		for _, el := range rest {
			v, err := it.callValue(args[1], []object.Object{acc, el}, token.Token{})
			if err != nil {
				return nil, err
			}
			acc = v
		}
		return acc, nil
	}})

	reg(&object.Builtin{Name: "keys", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		d, ok := args[0].(*object.Dict)
		if !ok {
			return typeFault("keys requires an object")
		}
		out := make([]object.Object, 0, d.Len())
		for _, k := range d.Keys() {
			out = append(out, &object.String{Value: k})
		}
		return &object.Array{Elements: out}, nil
	}})

	reg(&object.Builtin{Name: "values", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		d, ok := args[0].(*object.Dict)
		if !ok {
			return typeFault("values requires an object")
		}
		out := make([]object.Object, 0, d.Len())
		for _, k := range d.Keys() {
			v, _ := d.Get(k)
			out = append(out, v)
		}
		return &object.Array{Elements: out}, nil
	}})

	reg(&object.Builtin{Name: "concat", Arity: 2, Convergent: true, Fn: func(args []object.Object) (object.Object, error) {
		if s0, ok := args[0].(*object.String); ok {
			var b strings.Builder
			b.WriteString(s0.Value)
			for _, a := range args[1:] {
				s, ok := a.(*object.String)
				if !ok {
					return typeFault("concat requires all strings or all arrays")
				}
				b.WriteString(s.Value)
			}
			return &object.String{Value: b.String()}, nil
		}
		if a0, ok := args[0].(*object.Array); ok {
			out := make([]object.Object, len(a0.Elements))
			copy(out, a0.Elements)
			for _, a := range args[1:] {
				arr, ok := a.(*object.Array)
				if !ok {
					return typeFault("concat requires all strings or all arrays")
				}
				out = append(out, arr.Elements...)
			}
			return &object.Array{Elements: out}, nil
		}
		return typeFault("concat requires strings or arrays")
	}})

	reg(&object.Builtin{Name: "substring", Arity: 3, Fn: func(args []object.Object) (object.Object, error) {
		s, ok := strArg(args, 0)
		start, sok := numArg(args, 1)
		end, eok := numArg(args, 2)
		if !ok || !sok || !eok {
			return typeFault("substring requires (string, number, number)")
		}
		r := []rune(s.Value)
		lo, hi := int(start.Value), int(end.Value)
		if lo < 0 {
			lo = 0
		}
		if hi > len(r) {
			hi = len(r)
		}
		if lo > hi {
			return typeFault("substring start past end")
		}
		return &object.String{Value: string(r[lo:hi])}, nil
	}})

	reg(&object.Builtin{Name: "to_upper", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		s, ok := strArg(args, 0)
		if !ok {
			return typeFault("to_upper requires a string")
		}
		return &object.String{Value: strings.ToUpper(s.Value)}, nil
	}})

	reg(&object.Builtin{Name: "to_lower", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		s, ok := strArg(args, 0)
		if !ok {
			return typeFault("to_lower requires a string")
		}
		return &object.String{Value: strings.ToLower(s.Value)}, nil
	}})

	reg(&object.Builtin{Name: "trim", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		s, ok := strArg(args, 0)
		if !ok {
			return typeFault("trim requires a string")
		}
		return &object.String{Value: strings.TrimSpace(s.Value)}, nil
	}})

	reg(&object.Builtin{Name: "split", Arity: 2, Convergent: true, Fn: func(args []object.Object) (object.Object, error) {
		s, sok := strArg(args, 0)
		sep, pok := strArg(args, 1)
		if !sok || !pok {
			return typeFault("split requires (string, string)")
		}
		parts := strings.Split(s.Value, sep.Value)
		out := make([]object.Object, len(parts))
		for i, p := range parts {
			out[i] = &object.String{Value: p}
		}
		return &object.Array{Elements: out}, nil
	}})

	reg(&object.Builtin{Name: "contains", Arity: 2, Convergent: true, Fn: func(args []object.Object) (object.Object, error) {
		switch v := args[0].(type) {
		case *object.String:
			s, ok := strArg(args, 1)
			if !ok {
				return typeFault("contains on a string requires a string needle")
			}
			return &object.Bool{Value: strings.Contains(v.Value, s.Value)}, nil
		case *object.Array:
			for _, el := range v.Elements {
				if valuesEqual(el, args[1]) {
					return &object.Bool{Value: true}, nil
				}
			}
			return &object.Bool{Value: false}, nil
		default:
			return typeFault("contains requires a string or array")
		}
	}})

	reg(&object.Builtin{Name: "to_snake_case", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		s, ok := strArg(args, 0)
		if !ok {
			return typeFault("to_snake_case requires a string")
		}
		return &object.String{Value: strcase.ToSnake(s.Value)}, nil
	}})

	reg(&object.Builtin{Name: "to_camel_case", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		s, ok := strArg(args, 0)
		if !ok {
			return typeFault("to_camel_case requires a string")
		}
		return &object.String{Value: strcase.ToLowerCamel(s.Value)}, nil
	}})

	reg(&object.Builtin{Name: "display_width", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		s, ok := strArg(args, 0)
		if !ok {
			return typeFault("display_width requires a string")
		}
		return &object.Number{Value: float64(runewidth.StringWidth(s.Value))}, nil
	}})

	reg(&object.Builtin{Name: "to_string", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		if s, ok := args[0].(*object.String); ok {
			return s, nil
		}
		return &object.String{Value: args[0].Inspect()}, nil
	}})

	reg(&object.Builtin{Name: "to_number", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		switch v := args[0].(type) {
		case *object.Number:
			return v, nil
		case *object.String:
			var f float64
			if _, err := fmt.Sscanf(strings.TrimSpace(v.Value), "%g", &f); err != nil {
				return arithFault("%q is not a valid number", v.Value)
			}
			return &object.Number{Value: f}, nil
		default:
			return typeFault("to_number requires a string or number")
		}
	}})

	reg(&object.Builtin{Name: "type_of", Arity: 1, Fn: func(args []object.Object) (object.Object, error) {
		if _, ok := args[0].(*object.Dict); ok {
			return &object.String{Value: "object"}, nil
		}
		return &object.String{Value: strings.ToLower(string(args[0].Type()))}, nil
	}})

	return table
}

func valuesEqual(a, b object.Object) bool {
	switch av := a.(type) {
	case *object.Number:
		bv, ok := b.(*object.Number)
		return ok && av.Value == bv.Value
	case *object.String:
		bv, ok := b.(*object.String)
		return ok && av.Value == bv.Value
	case *object.Bool:
		bv, ok := b.(*object.Bool)
		return ok && av.Value == bv.Value
	case *object.Null:
		_, ok := b.(*object.Null)
		return ok
	default:
		return false
	}
}
