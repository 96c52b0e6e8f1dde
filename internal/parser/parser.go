// Package parser implements the recursive-descent parser of §4.2: bounded
// lookahead resolves assignment vs. expression and multi-line arrow-chain
// continuation without backtracking. Object literal vs. block is decided by
// position alone: a '{' that starts an expression is always an object
// literal, and only positions that take a block parse one.
package parser

import (
	"fmt"
	"strconv"

	"susumu/internal/ast"
	"susumu/internal/diag"
	"susumu/internal/lexer"
	"susumu/internal/token"
)

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

const (
	_ int = iota
	LOWEST
	SUM     // + -
	PRODUCT // * /
	PREFIX  // unary -
	CALL    // f(x), a.b
)

var precedences = map[token.Type]int{
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.STAR:     PRODUCT,
	token.SLASH:    PRODUCT,
	token.LPAREN:   CALL,
	token.DOT:      CALL,
}

type Parser struct {
	l    *lexer.Lexer
	errs []*diag.Error

	cur  token.Token
	peek token.Token
	buf  []token.Token // tokens read beyond peek, for chain-continuation lookahead

	prefixFns map[token.Type]prefixParseFn
	infixFns  map[token.Type]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.nextToken()
	p.nextToken()

	p.prefixFns = map[token.Type]prefixParseFn{}
	p.infixFns = map[token.Type]infixParseFn{}

	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.NUMBER, p.parseNumberLit)
	p.registerPrefix(token.STRING, p.parseStringLit)
	p.registerPrefix(token.TRUE, p.parseBoolLit)
	p.registerPrefix(token.FALSE, p.parseBoolLit)
	p.registerPrefix(token.NULL, p.parseNullLit)
	p.registerPrefix(token.LPAREN, p.parseGroupedOrTuple)
	p.registerPrefix(token.LBRACKET, p.parseArrayLit)
	p.registerPrefix(token.LBRACE, p.parseObjectLit)
	p.registerPrefix(token.MINUS, p.parseUnary)
	p.registerPrefix(token.I, p.parseIf)
	p.registerPrefix(token.FE, p.parseForeach)
	p.registerPrefix(token.W, p.parseWhile)
	p.registerPrefix(token.MATCH, p.parseMatch)
	p.registerPrefix(token.RETURN, p.parseReturnExpr)
	p.registerPrefix(token.ERROR, p.parseErrorExpr)

	for _, tt := range []token.Type{token.PLUS, token.MINUS, token.STAR, token.SLASH} {
		p.registerInfix(tt, p.parseBinary)
	}
	p.registerInfix(token.LPAREN, p.parseCall)
	p.registerInfix(token.DOT, p.parsePropertyAccess)

	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixFns[t] = fn }

func (p *Parser) Errors() []*diag.Error { return p.errs }

/* -------------------- token plumbing -------------------- */

func (p *Parser) nextToken() {
	p.cur = p.peek
	if len(p.buf) > 0 {
		p.peek = p.buf[0]
		p.buf = p.buf[1:]
	} else {
		p.peek = p.l.NextToken()
	}
}

// peekAhead(n) returns the token n positions beyond peek (n=1 is the token
// right after peek), buffering from the lexer as needed. This is the
// "bounded lookahead" Design Note 4 calls for: it is only ever used to look
// past a run of NEWLINE tokens.
func (p *Parser) peekAhead(n int) token.Token {
	for len(p.buf) < n {
		p.buf = append(p.buf, p.l.NextToken())
	}
	return p.buf[n-1]
}

func (p *Parser) errorf(tok token.Token, format string, args ...any) {
	p.errs = append(p.errs, diag.New(diag.ParseError, tok.Line, tok.Col, fmt.Sprintf(format, args...)))
}

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peek.Type == t {
		p.nextToken()
		return true
	}
	p.errorf(p.peek, "expected %s, got %s %q", t, p.peek.Type, p.peek.Literal)
	return false
}

func (p *Parser) skipLeadingNewlines() {
	for p.cur.Type == token.NEWLINE {
		p.nextToken()
	}
}

func (p *Parser) skipPeekNewlines() {
	for p.peek.Type == token.NEWLINE {
		p.nextToken()
	}
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peek.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.cur.Type]; ok {
		return prec
	}
	return LOWEST
}

func isArrowType(t token.Type) bool {
	return t == token.ARROW_RIGHT || t == token.ARROW_LEFT || t == token.MUT_ARROW
}

func directionOf(t token.Type) ast.ArrowDirection {
	switch t {
	case token.ARROW_RIGHT:
		return ast.ArrowForward
	case token.ARROW_LEFT:
		return ast.ArrowBackward
	default:
		return ast.ArrowMut
	}
}

/* -------------------- program -------------------- */

func (p *Parser) ParseProgram() (*ast.Program, []*diag.Error) {
	prog := &ast.Program{}

	for p.cur.Type != token.EOF {
		if p.cur.Type == token.NEWLINE {
			p.nextToken()
			continue
		}

		item := p.parseItem()
		if item != nil {
			prog.Items = append(prog.Items, item)
		}
		p.nextToken()
	}

	return prog, p.errs
}

func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{Token: p.cur}

	p.nextToken() // past '{'
	p.skipLeadingNewlines()

	for p.cur.Type != token.RBRACE && p.cur.Type != token.EOF {
		item := p.parseItem()
		if item != nil {
			block.Items = append(block.Items, item)
		}
		p.nextToken()
		p.skipLeadingNewlines()
	}

	if p.cur.Type != token.RBRACE {
		p.errorf(p.cur, "expected '}' to close block, got %s", p.cur.Type)
	}

	return block
}

/* -------------------- items (P1) -------------------- */

func (p *Parser) parseItem() ast.Item {
	switch {
	case p.cur.Type == token.MUT:
		return p.parseAssignment(true)
	case p.cur.Type == token.IDENT && p.peek.Type == token.ASSIGN:
		return p.parseAssignment(false)
	case p.cur.Type == token.IDENT && p.peek.Type == token.LPAREN:
		return p.parseFunctionDefOrExprStmt()
	default:
		tok := p.cur
		return &ast.ExprStmt{Token: tok, X: p.parseFullExpr()}
	}
}

func (p *Parser) parseAssignment(mutable bool) ast.Item {
	if mutable {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
	}
	nameTok := p.cur
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken() // move to value start
	val := p.parseFullExpr()
	return &ast.Assignment{
		Token:   nameTok,
		Mutable: mutable,
		Target:  &ast.Identifier{Token: nameTok, Value: nameTok.Literal},
		Value:   val,
	}
}

// parseFunctionDefOrExprStmt resolves "name(...)" at statement position: a
// FunctionDef if every parenthesized element is a bare identifier and a
// '{' immediately follows the ')', otherwise a conventional call folded
// into a general expression statement. A '{' after a list holding anything
// other than bare identifiers is a parse error.
func (p *Parser) parseFunctionDefOrExprStmt() ast.Item {
	nameTok := p.cur
	lparenTok := p.peek
	p.nextToken() // cur = '('
	args := p.parseExprList(token.RPAREN)

	if p.peek.Type == token.LBRACE {
		if params, ok := identifierParams(args); ok {
			p.nextToken() // cur = '{'
			body := p.parseBlock()
			return &ast.FunctionDef{
				Token:  nameTok,
				Name:   &ast.Identifier{Token: nameTok, Value: nameTok.Literal},
				Params: params,
				Body:   body,
			}
		}
		p.errorf(nameTok, "function parameters must be plain identifiers")
	}

	call := &ast.Call{
		Token:  lparenTok,
		Callee: &ast.Identifier{Token: nameTok, Value: nameTok.Literal},
		Args:   args,
	}
	expr := p.continueInfix(call, LOWEST)
	expr = p.parseArrowChainFrom(expr)
	return &ast.ExprStmt{Token: nameTok, X: expr}
}

func identifierParams(args []ast.Expr) ([]*ast.Identifier, bool) {
	params := make([]*ast.Identifier, 0, len(args))
	for _, a := range args {
		id, ok := a.(*ast.Identifier)
		if !ok {
			return nil, false
		}
		params = append(params, id)
	}
	return params, true
}

/* -------------------- expressions -------------------- */

// parseFullExpr parses a Pratt expression, then greedily collects arrow
// steps onto it (§4.3.2's "parse a primary, then greedily collect arrow
// steps").
func (p *Parser) parseFullExpr() ast.Expr {
	head := p.parseExpr(LOWEST)
	return p.parseArrowChainFrom(head)
}

// chainContinues implements P3's is_chain_continuation(): it peeks past
// any run of NEWLINE tokens to see whether an arrow operator follows.
func (p *Parser) chainContinues() bool {
	if isArrowType(p.peek.Type) {
		return true
	}
	if p.peek.Type != token.NEWLINE {
		return false
	}
	for i := 1; ; i++ {
		t := p.peekAhead(i)
		if t.Type == token.NEWLINE {
			continue
		}
		return isArrowType(t.Type)
	}
}

func (p *Parser) parseArrowChainFrom(head ast.Expr) ast.Expr {
	var steps []ast.ArrowStep

	for p.chainContinues() {
		if p.peek.Type == token.NEWLINE {
			p.skipPeekNewlines()
		}
		p.nextToken() // cur = arrow operator
		dir := directionOf(p.cur.Type)
		opTok := p.cur

		p.nextToken() // move past the operator
		p.skipLeadingNewlines()
		operand := p.parseExpr(LOWEST)

		steps = append(steps, ast.ArrowStep{Token: opTok, Direction: dir, Operand: operand})
	}

	if len(steps) == 0 {
		return head
	}
	return &ast.ArrowChain{Token: head.Tok(), Head: head, Steps: steps}
}

func (p *Parser) parseExpr(precedence int) ast.Expr {
	if p.cur.Type == token.ILLEGAL {
		p.errs = append(p.errs, diag.New(diag.LexError, p.cur.Line, p.cur.Col, p.cur.Literal))
		p.nextToken()
		return &ast.NullLit{Token: p.cur}
	}
	prefix, ok := p.prefixFns[p.cur.Type]
	if !ok {
		p.errorf(p.cur, "unexpected token %s in expression", p.cur.Type)
		return &ast.NullLit{Token: p.cur}
	}
	left := prefix()
	return p.continueInfix(left, precedence)
}

func (p *Parser) continueInfix(left ast.Expr, precedence int) ast.Expr {
	for precedence < p.peekPrecedence() {
		infix, ok := p.infixFns[p.peek.Type]
		if !ok {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expr {
	return &ast.Identifier{Token: p.cur, Value: p.cur.Literal}
}

func (p *Parser) parseNumberLit() ast.Expr {
	v, err := strconv.ParseFloat(p.cur.Literal, 64)
	if err != nil {
		p.errorf(p.cur, "invalid number literal %q", p.cur.Literal)
		v = 0
	}
	return &ast.NumberLit{Token: p.cur, Value: v}
}

func (p *Parser) parseStringLit() ast.Expr {
	return &ast.StringLit{Token: p.cur, Value: p.cur.Literal}
}

func (p *Parser) parseBoolLit() ast.Expr {
	return &ast.BoolLit{Token: p.cur, Value: p.cur.Type == token.TRUE}
}

func (p *Parser) parseNullLit() ast.Expr {
	return &ast.NullLit{Token: p.cur}
}

func (p *Parser) parseUnary() ast.Expr {
	tok := p.cur
	op := p.cur.Type
	p.nextToken()
	right := p.parseExpr(PREFIX)
	return &ast.Unary{Token: tok, Op: op, Right: right}
}

func (p *Parser) parseBinary(left ast.Expr) ast.Expr {
	tok := p.cur
	op := p.cur.Type
	prec := p.curPrecedence()
	p.nextToken()
	right := p.parseExpr(prec)
	return &ast.Binary{Token: tok, Op: op, Left: left, Right: right}
}

func (p *Parser) parsePropertyAccess(left ast.Expr) ast.Expr {
	tok := p.cur // '.'
	if !p.expectPeek(token.IDENT) {
		return left
	}
	return &ast.PropertyAccess{Token: tok, Object: left, Property: p.cur.Literal}
}

func (p *Parser) parseCall(left ast.Expr) ast.Expr {
	tok := p.cur // '('
	args := p.parseExprList(token.RPAREN)
	return &ast.Call{Token: tok, Callee: left, Args: args}
}

// parseExprList parses a comma-separated, newline-insensitive list up to
// and including `end` (P4: trailing commas permitted, newlines are
// whitespace). cur must be the opening delimiter on entry; cur is `end` on
// return.
func (p *Parser) parseExprList(end token.Type) []ast.Expr {
	var list []ast.Expr

	p.nextToken() // past opening delimiter
	p.skipLeadingNewlines()
	if p.cur.Type == end {
		return list
	}

	list = append(list, p.parseFullExpr())
	for p.peek.Type == token.NEWLINE {
		p.nextToken()
	}

	for p.peek.Type == token.COMMA {
		p.nextToken() // cur = ','
		p.nextToken()
		p.skipLeadingNewlines()
		if p.cur.Type == end {
			return list // trailing comma
		}
		list = append(list, p.parseFullExpr())
		for p.peek.Type == token.NEWLINE {
			p.nextToken()
		}
	}

	p.expectPeek(end)
	return list
}

func (p *Parser) parseGroupedOrTuple() ast.Expr {
	tok := p.cur
	elements := p.parseExprList(token.RPAREN)
	switch len(elements) {
	case 0:
		p.errorf(tok, "empty parentheses are not a valid expression")
		return &ast.NullLit{Token: tok}
	case 1:
		return elements[0]
	default:
		return &ast.TupleLit{Token: tok, Elements: elements}
	}
}

func (p *Parser) parseArrayLit() ast.Expr {
	tok := p.cur
	elements := p.parseExprList(token.RBRACKET)
	return &ast.ArrayLit{Token: tok, Elements: elements}
}

// parseObjectLit implements P2's expression-position resolution: a '{' in
// expression position is always an object literal (Block is never an
// Expr, so the two constructs never compete at the same call site).
func (p *Parser) parseObjectLit() ast.Expr {
	tok := p.cur
	lit := &ast.ObjectLit{Token: tok}

	p.nextToken() // past '{'
	p.skipLeadingNewlines()
	if p.cur.Type == token.RBRACE {
		return lit
	}

	for {
		field, ok := p.parseObjectField()
		if !ok {
			break
		}
		lit.Fields = append(lit.Fields, field)

		for p.peek.Type == token.NEWLINE {
			p.nextToken()
		}
		if p.peek.Type != token.COMMA {
			break
		}
		p.nextToken() // cur = ','
		p.nextToken()
		p.skipLeadingNewlines()
		if p.cur.Type == token.RBRACE {
			break // trailing comma
		}
	}

	p.expectPeek(token.RBRACE)
	return lit
}

func (p *Parser) parseObjectField() (ast.ObjectField, bool) {
	var key string
	switch p.cur.Type {
	case token.IDENT, token.STRING:
		key = p.cur.Literal
	default:
		p.errorf(p.cur, "expected object key (identifier or string), got %s", p.cur.Type)
		return ast.ObjectField{}, false
	}
	if !p.expectPeek(token.COLON) {
		return ast.ObjectField{}, false
	}
	p.nextToken() // move to value start
	val := p.parseFullExpr()
	return ast.ObjectField{Key: key, Value: val}, true
}

/* -------------------- condition names, control flow (P5, P6) -------------------- */

func (p *Parser) parseConditionName() (token.Type, bool) {
	if !token.ConditionWords[p.cur.Type] {
		p.errorf(p.cur, "expected a condition name, got %s", p.cur.Type)
		return "", false
	}
	return p.cur.Type, true
}

func (p *Parser) parseIf() ast.Expr {
	tok := p.cur // 'i'
	p.nextToken()
	condName, ok := p.parseConditionName()
	if !ok {
		return &ast.NullLit{Token: tok}
	}
	if !p.expectPeek(token.LBRACE) {
		return &ast.NullLit{Token: tok}
	}
	then := p.parseBlock()

	ifExpr := &ast.If{Token: tok, CondName: condName, Then: then}

	for p.peek.Type == token.EI {
		p.nextToken() // cur = 'ei'
		p.nextToken()
		ecn, ok := p.parseConditionName()
		if !ok {
			break
		}
		if !p.expectPeek(token.LBRACE) {
			break
		}
		ifExpr.Elifs = append(ifExpr.Elifs, ast.ElifClause{CondName: ecn, Body: p.parseBlock()})
	}

	if p.peek.Type == token.E {
		p.nextToken() // cur = 'e'
		if p.expectPeek(token.LBRACE) {
			ifExpr.Else = p.parseBlock()
		}
	}

	return ifExpr
}

func (p *Parser) parseForeach() ast.Expr {
	tok := p.cur // 'fe'
	if !p.expectPeek(token.IDENT) {
		return &ast.NullLit{Token: tok}
	}
	v := &ast.Identifier{Token: p.cur, Value: p.cur.Literal}
	if !p.expectPeek(token.IN) {
		return &ast.NullLit{Token: tok}
	}
	p.nextToken() // move to iterable start
	iterable := p.parseFullExpr()
	if !p.expectPeek(token.LBRACE) {
		return &ast.NullLit{Token: tok}
	}
	body := p.parseBlock()
	return &ast.Foreach{Token: tok, Var: v, Iterable: iterable, Body: body}
}

func (p *Parser) parseWhile() ast.Expr {
	tok := p.cur // 'w'
	p.nextToken() // move to condition start
	cond := p.parseFullExpr()
	if !p.expectPeek(token.LBRACE) {
		return &ast.NullLit{Token: tok}
	}
	body := p.parseBlock()
	return &ast.While{Token: tok, Cond: cond, Body: body}
}

func (p *Parser) parseMatch() ast.Expr {
	tok := p.cur // 'match'
	p.nextToken()
	scrutinee := p.parseExpr(LOWEST)
	if !p.expectPeek(token.LBRACE) {
		return &ast.NullLit{Token: tok}
	}

	p.nextToken() // past '{'
	p.skipLeadingNewlines()

	var arms []ast.MatchArm
	for p.cur.Type != token.RBRACE && p.cur.Type != token.EOF {
		arm, ok := p.parseMatchArm()
		if !ok {
			break
		}
		arms = append(arms, arm)
		p.nextToken()
		p.skipLeadingNewlines()
	}

	if p.cur.Type != token.RBRACE {
		p.errorf(p.cur, "expected '}' to close match, got %s", p.cur.Type)
	}

	return &ast.Match{Token: tok, Scrutinee: scrutinee, Arms: arms}
}

// parseMatchArm implements P5: PatternName ('<-' Identifier)? '->' '{' Block '}'.
func (p *Parser) parseMatchArm() (ast.MatchArm, bool) {
	patTok := p.cur
	pattern, ok := p.parseConditionName()
	if !ok {
		return ast.MatchArm{}, false
	}

	var bind *ast.Identifier
	if p.peek.Type == token.ARROW_LEFT {
		p.nextToken() // cur = '<-'
		if !p.expectPeek(token.IDENT) {
			return ast.MatchArm{}, false
		}
		bind = &ast.Identifier{Token: p.cur, Value: p.cur.Literal}
	}

	if !p.expectPeek(token.ARROW_RIGHT) {
		return ast.MatchArm{}, false
	}
	if !p.expectPeek(token.LBRACE) {
		return ast.MatchArm{}, false
	}

	return ast.MatchArm{Token: patTok, Pattern: pattern, Bind: bind, Body: p.parseBlock()}, true
}

func (p *Parser) parseReturnExpr() ast.Expr {
	tok := p.cur // 'return'
	if !p.expectPeek(token.ARROW_LEFT) {
		return &ast.NullLit{Token: tok}
	}
	p.nextToken()
	return &ast.Return{Token: tok, Value: p.parseFullExpr()}
}

func (p *Parser) parseErrorExpr() ast.Expr {
	tok := p.cur // 'error'
	if !p.expectPeek(token.ARROW_LEFT) {
		return &ast.NullLit{Token: tok}
	}
	p.nextToken()
	return &ast.Error{Token: tok, Value: p.parseFullExpr()}
}
