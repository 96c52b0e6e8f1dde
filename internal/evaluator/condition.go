package evaluator

import (
	"susumu/internal/object"
	"susumu/internal/token"
)

// conditionHolds implements the shared predicate table of §4.4, used by
// both If/elif branches and match arms.
func conditionHolds(name token.Type, v object.Object) bool {
	switch name {
	case token.SUCCESS, token.VALID:
		if isErrorFlagged(v) {
			return false
		}
		if _, isNull := v.(*object.Null); isNull {
			return false
		}
		if b, isBool := v.(*object.Bool); isBool && !b.Value {
			return false
		}
		return true
	case token.ERROR:
		return isErrorFlagged(v)
	case token.POSITIVE:
		n, ok := v.(*object.Number)
		return ok && n.Value > 0
	case token.NEGATIVE:
		n, ok := v.(*object.Number)
		return ok && n.Value < 0
	case token.ZERO:
		n, ok := v.(*object.Number)
		return ok && n.Value == 0
	case token.EMPTY:
		return isEmptyCollection(v)
	case token.FOUND, token.SOME:
		_, isNull := v.(*object.Null)
		return !isNull
	case token.NONE:
		_, isNull := v.(*object.Null)
		return isNull
	default:
		return false
	}
}

func isErrorFlagged(v object.Object) bool {
	_, ok := v.(*object.Error)
	return ok
}

func isEmptyCollection(v object.Object) bool {
	switch c := v.(type) {
	case *object.Array:
		return len(c.Elements) == 0
	case *object.String:
		return c.Value == ""
	case *object.Dict:
		return c.Len() == 0
	default:
		return false
	}
}

// bindValueFor unwraps the payload a match arm's binder should see: the
// error condition binds to the wrapped value, every other pattern binds to
// the scrutinee itself (this runtime has no separate Option/Result type).
func bindValueFor(pattern token.Type, scrutinee object.Object) object.Object {
	if pattern == token.ERROR {
		if e, ok := scrutinee.(*object.Error); ok {
			return e.Value
		}
	}
	return scrutinee
}
