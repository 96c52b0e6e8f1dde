package parser

import (
	"testing"

	"susumu/internal/ast"
	"susumu/internal/diag"
	"susumu/internal/lexer"
	"susumu/internal/token"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(lexer.New(src))
	prog, errs := p.ParseProgram()
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	return prog
}

func TestParser_FunctionDef(t *testing.T) {
	prog := parseProgram(t, `double(x) { x -> multiply <- 2 }`)
	if len(prog.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(prog.Items))
	}
	fd, ok := prog.Items[0].(*ast.FunctionDef)
	if !ok {
		t.Fatalf("expected FunctionDef, got %T", prog.Items[0])
	}
	if fd.Name.Value != "double" || len(fd.Params) != 1 || fd.Params[0].Value != "x" {
		t.Fatalf("unexpected function def: %+v", fd)
	}
	chain, ok := fd.Body.Items[0].(*ast.ExprStmt).X.(*ast.ArrowChain)
	if !ok {
		t.Fatalf("expected body to be an arrow chain, got %T", fd.Body.Items[0])
	}
	if len(chain.Steps) != 2 || chain.Steps[0].Direction != ast.ArrowForward || chain.Steps[1].Direction != ast.ArrowBackward {
		t.Fatalf("unexpected chain: %+v", chain)
	}
}

func TestParser_CallNotFollowedByBraceIsExprStmt(t *testing.T) {
	prog := parseProgram(t, `compute(1, 2)`)
	stmt, ok := prog.Items[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt, got %T", prog.Items[0])
	}
	call, ok := stmt.X.(*ast.Call)
	if !ok {
		t.Fatalf("expected Call, got %T", stmt.X)
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(call.Args))
	}
}

func TestParser_AssignmentMutability(t *testing.T) {
	prog := parseProgram(t, "mut count = 0\ncount = 1")
	if len(prog.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(prog.Items))
	}
	first := prog.Items[0].(*ast.Assignment)
	if !first.Mutable || first.Target.Value != "count" {
		t.Fatalf("unexpected first assignment: %+v", first)
	}
	second := prog.Items[1].(*ast.Assignment)
	if second.Mutable {
		t.Fatalf("bare reassignment should not carry mut: %+v", second)
	}
}

func TestParser_MultilineArrowChainContinuation(t *testing.T) {
	src := "orderData ->\n    validate <-\n    enrich <-\n    finalize"
	prog := parseProgram(t, src)
	stmt := prog.Items[0].(*ast.ExprStmt)
	chain, ok := stmt.X.(*ast.ArrowChain)
	if !ok {
		t.Fatalf("expected ArrowChain, got %T", stmt.X)
	}
	if len(chain.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d: %+v", len(chain.Steps), chain.Steps)
	}
	if chain.Steps[0].Direction != ast.ArrowForward {
		t.Fatalf("expected first step forward, got %v", chain.Steps[0].Direction)
	}
}

func TestParser_ObjectLiteralAndMutArrow(t *testing.T) {
	prog := parseProgram(t, `mut merged = {a: 1} <~ {b: 2}`)
	asn := prog.Items[0].(*ast.Assignment)
	chain, ok := asn.Value.(*ast.ArrowChain)
	if !ok {
		t.Fatalf("expected ArrowChain, got %T", asn.Value)
	}
	if _, ok := chain.Head.(*ast.ObjectLit); !ok {
		t.Fatalf("expected object literal head, got %T", chain.Head)
	}
	if len(chain.Steps) != 1 || chain.Steps[0].Direction != ast.ArrowMut {
		t.Fatalf("expected one mut step, got %+v", chain.Steps)
	}
}

func TestParser_IfElifElse(t *testing.T) {
	prog := parseProgram(t, `main() { 5 -> i positive { "yes" } ei zero { "mid" } e { "no" } }`)
	fd := prog.Items[0].(*ast.FunctionDef)
	stmt := fd.Body.Items[0].(*ast.ExprStmt)
	chain := stmt.X.(*ast.ArrowChain)
	ifExpr, ok := chain.Steps[0].Operand.(*ast.If)
	if !ok {
		t.Fatalf("expected If operand, got %T", chain.Steps[0].Operand)
	}
	if ifExpr.CondName != token.POSITIVE {
		t.Fatalf("unexpected cond name: %v", ifExpr.CondName)
	}
	if len(ifExpr.Elifs) != 1 || ifExpr.Elifs[0].CondName != token.ZERO {
		t.Fatalf("unexpected elifs: %+v", ifExpr.Elifs)
	}
	if ifExpr.Else == nil {
		t.Fatalf("expected else branch")
	}
}

func TestParser_MatchArmsWithBind(t *testing.T) {
	prog := parseProgram(t, `
main() {
  match lookup(1) {
    some <- v -> { v }
    none -> { 0 }
  }
}`)
	fd := prog.Items[0].(*ast.FunctionDef)
	stmt := fd.Body.Items[0].(*ast.ExprStmt)
	m, ok := stmt.X.(*ast.Match)
	if !ok {
		t.Fatalf("expected Match, got %T", stmt.X)
	}
	if len(m.Arms) != 2 {
		t.Fatalf("expected 2 arms, got %d", len(m.Arms))
	}
	if m.Arms[0].Pattern != token.SOME || m.Arms[0].Bind == nil || m.Arms[0].Bind.Value != "v" {
		t.Fatalf("unexpected first arm: %+v", m.Arms[0])
	}
	if m.Arms[1].Pattern != token.NONE || m.Arms[1].Bind != nil {
		t.Fatalf("unexpected second arm: %+v", m.Arms[1])
	}
}

func TestParser_ReturnAndErrorExpressions(t *testing.T) {
	prog := parseProgram(t, `f(x) { x -> i zero { return <- "z" } e { error <- "bad" } }`)
	fd := prog.Items[0].(*ast.FunctionDef)
	stmt := fd.Body.Items[0].(*ast.ExprStmt)
	chain := stmt.X.(*ast.ArrowChain)
	ifExpr := chain.Steps[0].Operand.(*ast.If)
	ret, ok := ifExpr.Then.Items[0].(*ast.ExprStmt).X.(*ast.Return)
	if !ok {
		t.Fatalf("expected Return, got %T", ifExpr.Then.Items[0])
	}
	if ret.Value.(*ast.StringLit).Value != "z" {
		t.Fatalf("unexpected return value: %+v", ret.Value)
	}
	errExpr, ok := ifExpr.Else.Items[0].(*ast.ExprStmt).X.(*ast.Error)
	if !ok {
		t.Fatalf("expected Error, got %T", ifExpr.Else.Items[0])
	}
	if errExpr.Value.(*ast.StringLit).Value != "bad" {
		t.Fatalf("unexpected error value: %+v", errExpr.Value)
	}
}

func TestParser_ForeachAndWhile(t *testing.T) {
	prog := parseProgram(t, `
main() {
  fe item in [1, 2, 3] { print(item) }
  w true { print("spin") }
}`)
	fd := prog.Items[0].(*ast.FunctionDef)
	if len(fd.Body.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(fd.Body.Items))
	}
	fe, ok := fd.Body.Items[0].(*ast.ExprStmt).X.(*ast.Foreach)
	if !ok {
		t.Fatalf("expected Foreach, got %T", fd.Body.Items[0])
	}
	if fe.Var.Value != "item" {
		t.Fatalf("unexpected loop var: %+v", fe.Var)
	}
	if _, ok := fd.Body.Items[1].(*ast.ExprStmt).X.(*ast.While); !ok {
		t.Fatalf("expected While, got %T", fd.Body.Items[1])
	}
}

func TestParser_TupleAndGroupedExpr(t *testing.T) {
	prog := parseProgram(t, "pair = (1, 2)\nlone = (1 + 2) * 3")
	asn := prog.Items[0].(*ast.Assignment)
	if _, ok := asn.Value.(*ast.TupleLit); !ok {
		t.Fatalf("expected TupleLit, got %T", asn.Value)
	}
	lone := prog.Items[1].(*ast.Assignment)
	bin, ok := lone.Value.(*ast.Binary)
	if !ok {
		t.Fatalf("expected Binary, got %T", lone.Value)
	}
	if _, ok := bin.Left.(*ast.Binary); !ok {
		t.Fatalf("expected grouped binary on left, got %T", bin.Left)
	}
}

func TestParser_ArrayAndTrailingComma(t *testing.T) {
	prog := parseProgram(t, "xs = [1, 2, 3,]")
	asn := prog.Items[0].(*ast.Assignment)
	arr, ok := asn.Value.(*ast.ArrayLit)
	if !ok {
		t.Fatalf("expected ArrayLit, got %T", asn.Value)
	}
	if len(arr.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(arr.Elements))
	}
}

func TestParser_UnknownConditionNameIsParseError(t *testing.T) {
	p := New(lexer.New(`main() { 5 -> i banana { "oops" } }`))
	_, errs := p.ParseProgram()
	if len(errs) == 0 {
		t.Fatalf("expected a parse error for an unrecognized condition name")
	}
	if errs[0].Kind != diag.ParseError {
		t.Fatalf("expected a ParseError, got %v", errs[0].Kind)
	}
}

func TestParser_UnterminatedStringIsLexError(t *testing.T) {
	p := New(lexer.New("x = \"unterminated"))
	_, errs := p.ParseProgram()
	if len(errs) == 0 {
		t.Fatalf("expected an error for an unterminated string")
	}
	if errs[0].Kind != diag.LexError {
		t.Fatalf("expected a LexError, got %v", errs[0].Kind)
	}
}

func TestParser_StrayIllegalCharacterIsLexError(t *testing.T) {
	p := New(lexer.New("x = 1 @ 2"))
	_, errs := p.ParseProgram()
	if len(errs) == 0 {
		t.Fatalf("expected an error for a stray illegal character")
	}
	if errs[0].Kind != diag.LexError {
		t.Fatalf("expected a LexError, got %v", errs[0].Kind)
	}
}
