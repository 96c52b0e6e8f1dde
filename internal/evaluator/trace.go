package evaluator

import (
	"susumu/internal/ast"
	"susumu/internal/object"
)

// TraceEntry is one step of the textual execution trace required by §6.2:
// append-only and without semantic effect on the program it observes.
type TraceEntry struct {
	Line             int
	Col              int
	Direction        ast.ArrowDirection
	Operand          object.Object
	AccumulatorAfter object.Object
}
