package evaluator

import (
	"testing"

	"susumu/internal/diag"
	"susumu/internal/object"
)

func TestBuiltins_ArithmeticConvergence(t *testing.T) {
	v, err := run(t, `2 -> power <- 10`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireNumber(t, v, 1024)
}

func TestBuiltins_DivideByZeroIsFatal(t *testing.T) {
	_, err := run(t, `1 -> divide <- 0`)
	if err == nil {
		t.Fatalf("expected divide by zero to halt evaluation")
	}
	de, ok := err.(*diag.Error)
	if !ok || de.Kind != diag.ArithmeticError {
		t.Fatalf("expected an ArithmeticError, got %#v", err)
	}
}

func TestBuiltins_StringCaseConversion(t *testing.T) {
	v, err := run(t, `"hello_world" -> to_camel_case`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := v.(*object.String)
	if !ok || s.Value != "helloWorld" {
		t.Fatalf("expected \"helloWorld\", got %#v", v)
	}
}

func TestBuiltins_SnakeCase(t *testing.T) {
	v, err := run(t, `"HelloWorld" -> to_snake_case`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := v.(*object.String)
	if !ok || s.Value != "hello_world" {
		t.Fatalf("expected \"hello_world\", got %#v", v)
	}
}

func TestBuiltins_DisplayWidthCountsWideRunes(t *testing.T) {
	v, err := run(t, `"ab" -> display_width`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireNumber(t, v, 2)

	wide, err := run(t, `"中文" -> display_width`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireNumber(t, wide, 4)
}

func TestBuiltins_PushAndConcatAreConvergent(t *testing.T) {
	v, err := run(t, `[1, 2] -> push <- 3 <- 4`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := v.(*object.Array)
	if !ok || len(arr.Elements) != 4 {
		t.Fatalf("expected a 4-element array, got %#v", v)
	}

	joined, err := run(t, `"a" -> concat <- "b" <- "c"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := joined.(*object.String)
	if !ok || s.Value != "abc" {
		t.Fatalf("expected \"abc\", got %#v", joined)
	}
}

func TestBuiltins_ContainsOnArray(t *testing.T) {
	v, err := run(t, `[1, 2, 3] -> contains <- 2`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, ok := v.(*object.Bool)
	if !ok || !b.Value {
		t.Fatalf("expected true, got %#v", v)
	}
}

func TestBuiltins_SortRejectsMixedTypes(t *testing.T) {
	_, err := run(t, `["a", 1] -> sort`)
	if err == nil {
		t.Fatalf("expected sorting mixed types to halt evaluation")
	}
	de, ok := err.(*diag.Error)
	if !ok || de.Kind != diag.TypeError {
		t.Fatalf("expected a TypeError, got %#v", err)
	}
}

func TestBuiltins_KeysPreserveInsertionOrder(t *testing.T) {
	v, err := run(t, `{z: 1, a: 2} -> keys`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := v.(*object.Array)
	if !ok || len(arr.Elements) != 2 {
		t.Fatalf("expected 2 keys, got %#v", v)
	}
	first, ok := arr.Elements[0].(*object.String)
	if !ok || first.Value != "z" {
		t.Fatalf("expected insertion order to start with \"z\", got %#v", arr.Elements[0])
	}
}

func TestBuiltins_LengthAcrossTypes(t *testing.T) {
	v, err := run(t, `"abc" -> length`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireNumber(t, v, 3)

	arr, err := run(t, `[1, 2] -> length`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireNumber(t, arr, 2)

	obj, err := run(t, `{a: 1, b: 2, c: 3} -> length`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireNumber(t, obj, 3)
}

func TestBuiltins_FirstAndLastOnEmptyArrayYieldNull(t *testing.T) {
	v, err := run(t, `[] -> first`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := v.(*object.Null); !ok {
		t.Fatalf("expected Null for first of an empty array, got %#v", v)
	}

	v, err = run(t, `[] -> last`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := v.(*object.Null); !ok {
		t.Fatalf("expected Null for last of an empty array, got %#v", v)
	}
}

func TestBuiltins_TypeOf(t *testing.T) {
	v, err := run(t, `5 -> type_of`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := v.(*object.String)
	if !ok || s.Value != "number" {
		t.Fatalf("expected \"number\", got %#v", v)
	}
}

func TestBuiltins_TypeOfDictIsObject(t *testing.T) {
	v, err := run(t, `{a: 1} -> type_of`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := v.(*object.String)
	if !ok || s.Value != "object" {
		t.Fatalf("expected \"object\", got %#v", v)
	}
}

func TestBuiltins_ToNumberOnNonNumericStringIsArithmeticError(t *testing.T) {
	_, err := run(t, `"abc" -> to_number`)
	if err == nil {
		t.Fatalf("expected a conversion failure")
	}
	de, ok := err.(*diag.Error)
	if !ok || de.Kind != diag.ArithmeticError {
		t.Fatalf("expected an ArithmeticError, got %#v", err)
	}
}

func TestBuiltins_FilterKeepsElementsSatisfyingPredicate(t *testing.T) {
	v, err := run(t, `
is_even(n) { n -> modulo <- 2 -> i zero { true } e { false } }
[1, 2, 3, 4, 5] -> filter <- is_even`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := v.(*object.Array)
	if !ok || len(arr.Elements) != 2 {
		t.Fatalf("expected a 2-element array, got %#v", v)
	}
	requireNumber(t, arr.Elements[0], 2)
	requireNumber(t, arr.Elements[1], 4)
}

func TestBuiltins_MapTransformsEachElement(t *testing.T) {
	v, err := run(t, `
double(n) { n -> multiply <- 2 }
[1, 2, 3] -> map <- double`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := v.(*object.Array)
	if !ok || len(arr.Elements) != 3 {
		t.Fatalf("expected a 3-element array, got %#v", v)
	}
	requireNumber(t, arr.Elements[2], 6)
}

func TestBuiltins_ReduceFoldsWithInitialValue(t *testing.T) {
	v, err := run(t, `
sum_fn(acc, n) { acc -> add <- n }
[1, 2, 3, 4] -> reduce <- sum_fn <- 0`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireNumber(t, v, 10)
}

func TestBuiltins_ReduceWithoutInitialUsesFirstElement(t *testing.T) {
	v, err := run(t, `
mul_fn(acc, n) { acc -> multiply <- n }
[1, 2, 3, 4] -> reduce <- mul_fn`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireNumber(t, v, 24)
}
