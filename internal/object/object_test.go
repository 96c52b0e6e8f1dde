package object

import "testing"

func TestDict_SetPreservesInsertionOrderOnUpdate(t *testing.T) {
	d := NewDict()
	d.Set("a", &Number{Value: 1})
	d.Set("b", &Number{Value: 2})
	d.Set("a", &Number{Value: 99})

	keys := d.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("expected order [a b], got %v", keys)
	}
	v, _ := d.Get("a")
	if v.(*Number).Value != 99 {
		t.Fatalf("expected update in place, got %v", v)
	}
}

func TestDict_MergeRightWinsWithoutAliasing(t *testing.T) {
	left := NewDict()
	left.Set("a", &Number{Value: 1})
	left.Set("b", &Number{Value: 2})

	right := NewDict()
	right.Set("b", &Number{Value: 20})
	right.Set("c", &Number{Value: 3})

	merged := left.Merge(right)
	if merged.Len() != 3 {
		t.Fatalf("expected 3 keys, got %d", merged.Len())
	}
	b, _ := merged.Get("b")
	if b.(*Number).Value != 20 {
		t.Fatalf("expected right to win on collision, got %v", b)
	}

	leftB, _ := left.Get("b")
	if leftB.(*Number).Value != 2 {
		t.Fatalf("merge must not mutate its left operand, got %v", leftB)
	}
}

func TestEnvironment_AssignWalksOutwardToNearestBinding(t *testing.T) {
	root := NewEnvironment()
	root.Define("x", &Number{Value: 1}, true)
	child := NewEnclosedEnvironment(root)

	ok, immutable := child.Assign("x", &Number{Value: 2})
	if !ok || immutable {
		t.Fatalf("expected assign to succeed by walking to the parent frame")
	}
	v, _ := root.Get("x")
	if v.(*Number).Value != 2 {
		t.Fatalf("expected root binding to be updated, got %v", v)
	}
	if _, here := child.GetHere("x"); here {
		t.Fatalf("assign should not create a shadowing binding in the child frame")
	}
}

func TestEnvironment_AssignFailsOnImmutableBinding(t *testing.T) {
	env := NewEnvironment()
	env.Define("x", &Number{Value: 1}, false)
	ok, immutable := env.Assign("x", &Number{Value: 2})
	if ok || !immutable {
		t.Fatalf("expected assign to report an immutable binding")
	}
}

func TestEnvironment_AssignFailsWhenNameUnbound(t *testing.T) {
	env := NewEnvironment()
	ok, immutable := env.Assign("missing", &Number{Value: 1})
	if ok || immutable {
		t.Fatalf("expected assign to fail without claiming immutability for an unbound name")
	}
}

func TestEnvironment_IsRoot(t *testing.T) {
	root := NewEnvironment()
	child := NewEnclosedEnvironment(root)
	if !root.IsRoot() {
		t.Fatalf("expected a parentless environment to be root")
	}
	if child.IsRoot() {
		t.Fatalf("expected an enclosed environment not to be root")
	}
}

func TestCallable(t *testing.T) {
	cases := []struct {
		obj  Object
		want bool
	}{
		{&Function{}, true},
		{&Builtin{}, true},
		{&Partial{}, true},
		{&Number{}, false},
		{&Null{}, false},
	}
	for _, c := range cases {
		if got := Callable(c.obj); got != c.want {
			t.Fatalf("Callable(%T) = %v, want %v", c.obj, got, c.want)
		}
	}
}
