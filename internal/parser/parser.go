package parser

import (
	"strconv"

	"github.com/zawk-lang/zawk/internal/ast"
	"github.com/zawk-lang/zawk/internal/lexer"
	"github.com/zawk-lang/zawk/internal/token"
)

// Parse parses a complete zawk program.
func Parse(src string) (prog *ast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()

	p := &parser{lex: lexer.NewFromString(src)}
	p.next()
	prog = p.parseProgram()
	return prog, nil
}

// parser holds parse state: the lexer, one token of lookahead, and the
// print-context flag that turns '>' into redirection.
type parser struct {
	lex *lexer.Lexer

	tok      lexer.Token
	hadSpace bool // Space before the current token

	// One-token pushback, for the two places the grammar needs it
	// (for-in detection and getline targets).
	stashed    bool
	stashTok   lexer.Token
	stashSpace bool

	inPrint bool // '>' '>>' '|' are redirections, not operators
}

func (p *parser) next() {
	if p.stashed {
		p.tok, p.hadSpace = p.stashTok, p.stashSpace
		p.stashed = false
		return
	}
	p.tok = p.lex.Scan()
	p.hadSpace = p.lex.HadSpace()
	if p.tok.Type == token.ILLEGAL {
		panic(errorf(p.tok.Pos, "%s", p.tok.Value))
	}
}

// unread makes tok the current token again and stashes the present one.
func (p *parser) unread(tok lexer.Token, hadSpace bool) {
	p.stashTok, p.stashSpace = p.tok, p.hadSpace
	p.stashed = true
	p.tok, p.hadSpace = tok, hadSpace
}

func (p *parser) expect(t token.Token) lexer.Token {
	if p.tok.Type != t {
		panic(errorf(p.tok.Pos, "expected %s, got %s", t, p.describe()))
	}
	tok := p.tok
	p.next()
	return tok
}

func (p *parser) at(t token.Token) bool { return p.tok.Type == t }

func (p *parser) describe() string {
	switch p.tok.Type {
	case token.NAME, token.NUMBER, token.STRING:
		return strconv.Quote(p.tok.Value)
	default:
		return p.tok.Type.String()
	}
}

// skipNewlines consumes any run of newlines and semicolons.
func (p *parser) skipNewlines() {
	for p.at(token.NEWLINE) || p.at(token.SEMICOLON) {
		p.next()
	}
}

// optNewlines consumes newlines only; used where a semicolon would be an error.
func (p *parser) optNewlines() {
	for p.at(token.NEWLINE) {
		p.next()
	}
}

// -----------------------------------------------------------------------------
// Top level
// -----------------------------------------------------------------------------

func (p *parser) parseProgram() *ast.Program {
	prog := &ast.Program{StartPos: p.tok.Pos}

	p.skipNewlines()
	for !p.at(token.EOF) {
		switch p.tok.Type {
		case token.FUNCTION:
			prog.Functions = append(prog.Functions, p.parseFuncDecl())
		case token.BEGIN:
			p.next()
			p.optNewlines()
			prog.Begin = append(prog.Begin, p.parseBlock())
		case token.END:
			p.next()
			p.optNewlines()
			prog.EndBlocks = append(prog.EndBlocks, p.parseBlock())
		case token.AT:
			prog.Reduces = append(prog.Reduces, p.parseReduceDecl())
		default:
			prog.Rules = append(prog.Rules, p.parseRule())
		}
		p.skipNewlines()
	}

	prog.EndPos = p.tok.Pos
	return prog
}

// parseReduceDecl parses "@reduce OP name, name, ...".
func (p *parser) parseReduceDecl() *ast.ReduceDecl {
	start := p.tok.Pos
	p.expect(token.AT)
	directive := p.expect(token.NAME)
	if directive.Value != "reduce" {
		panic(errorf(directive.Pos, "unknown directive @%s", directive.Value))
	}
	opTok := p.expect(token.NAME)
	var op ast.ReduceOp
	switch opTok.Value {
	case "sum":
		op = ast.ReduceSum
	case "min":
		op = ast.ReduceMin
	case "max":
		op = ast.ReduceMax
	case "concat":
		op = ast.ReduceConcat
	default:
		panic(errorf(opTok.Pos, "unknown reduce operation %q (want sum, min, max or concat)", opTok.Value))
	}

	decl := &ast.ReduceDecl{Op: op, StartPos: start}
	for {
		name := p.expect(token.NAME)
		decl.Names = append(decl.Names, name.Value)
		if !p.at(token.COMMA) {
			break
		}
		p.next()
		p.optNewlines()
	}
	decl.EndPos = p.tok.Pos
	return decl
}

func (p *parser) parseFuncDecl() *ast.FuncDecl {
	start := p.tok.Pos
	p.expect(token.FUNCTION)
	name := p.expect(token.NAME)
	p.expect(token.LPAREN)

	fn := &ast.FuncDecl{Name: name.Value, NamePos: name.Pos, StartPos: start}
	for !p.at(token.RPAREN) {
		param := p.expect(token.NAME)
		fn.Params = append(fn.Params, param.Value)
		if p.at(token.COMMA) {
			p.next()
			p.optNewlines()
		}
	}
	p.expect(token.RPAREN)
	p.optNewlines()
	fn.Body = p.parseBlock()
	fn.EndPos = fn.Body.End()
	return fn
}

func (p *parser) parseRule() *ast.Rule {
	rule := &ast.Rule{StartPos: p.tok.Pos}

	if !p.at(token.LBRACE) {
		rule.Pattern = p.parseExpr()
		if p.at(token.COMMA) {
			p.next()
			p.optNewlines()
			rule.PatternEnd = p.parseExpr()
		}
	}
	if p.at(token.LBRACE) {
		rule.Action = p.parseBlock()
		rule.EndPos = rule.Action.End()
	} else {
		// Pattern with no action: default action is { print $0 }
		if rule.Pattern == nil {
			panic(errorf(p.tok.Pos, "expected pattern or {, got %s", p.describe()))
		}
		rule.EndPos = rule.Pattern.End()
	}
	return rule
}

// -----------------------------------------------------------------------------
// Statements
// -----------------------------------------------------------------------------

func (p *parser) parseBlock() *ast.BlockStmt {
	start := p.expect(token.LBRACE).Pos
	block := &ast.BlockStmt{BaseStmt: ast.BaseStmt{StartPos: start}}

	p.skipNewlines()
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		block.Stmts = append(block.Stmts, p.parseStmt())
		p.skipNewlines()
	}
	end := p.expect(token.RBRACE)
	block.EndPos = end.Pos
	return block
}

// parseSimpleStmt parses a statement for contexts that take exactly one
// (loop bodies, if/else arms): either a block or a single statement.
func (p *parser) parseSimpleStmt() ast.Stmt {
	p.optNewlines()
	if p.at(token.LBRACE) {
		return p.parseBlock()
	}
	return p.parseStmt()
}

func (p *parser) parseStmt() ast.Stmt {
	start := p.tok.Pos

	switch p.tok.Type {
	case token.LBRACE:
		return p.parseBlock()

	case token.IF:
		p.next()
		p.expect(token.LPAREN)
		cond := p.parseExpr()
		p.expect(token.RPAREN)
		then := p.parseSimpleStmt()
		stmt := &ast.IfStmt{BaseStmt: ast.BaseStmt{StartPos: start, EndPos: then.End()}, Cond: cond, Then: then}
		// else may follow on the next line
		p.skipOptionalElseGap()
		if p.at(token.ELSE) {
			p.next()
			stmt.Else = p.parseSimpleStmt()
			stmt.EndPos = stmt.Else.End()
		}
		return stmt

	case token.WHILE:
		p.next()
		p.expect(token.LPAREN)
		cond := p.parseExpr()
		p.expect(token.RPAREN)
		body := p.parseSimpleStmt()
		return &ast.WhileStmt{BaseStmt: ast.BaseStmt{StartPos: start, EndPos: body.End()}, Cond: cond, Body: body}

	case token.DO:
		p.next()
		body := p.parseSimpleStmt()
		p.skipNewlines()
		p.expect(token.WHILE)
		p.expect(token.LPAREN)
		cond := p.parseExpr()
		end := p.expect(token.RPAREN)
		return &ast.DoWhileStmt{BaseStmt: ast.BaseStmt{StartPos: start, EndPos: end.Pos}, Body: body, Cond: cond}

	case token.FOR:
		return p.parseFor(start)

	case token.BREAK:
		p.next()
		return &ast.BreakStmt{BaseStmt: ast.BaseStmt{StartPos: start, EndPos: p.tok.Pos}}

	case token.CONTINUE:
		p.next()
		return &ast.ContinueStmt{BaseStmt: ast.BaseStmt{StartPos: start, EndPos: p.tok.Pos}}

	case token.NEXT:
		p.next()
		return &ast.NextStmt{BaseStmt: ast.BaseStmt{StartPos: start, EndPos: p.tok.Pos}}

	case token.NEXTFILE:
		p.next()
		return &ast.NextFileStmt{BaseStmt: ast.BaseStmt{StartPos: start, EndPos: p.tok.Pos}}

	case token.RETURN:
		p.next()
		stmt := &ast.ReturnStmt{BaseStmt: ast.BaseStmt{StartPos: start, EndPos: p.tok.Pos}}
		if !p.atStmtEnd() {
			stmt.Value = p.parseExpr()
			stmt.EndPos = stmt.Value.End()
		}
		return stmt

	case token.EXIT:
		p.next()
		stmt := &ast.ExitStmt{BaseStmt: ast.BaseStmt{StartPos: start, EndPos: p.tok.Pos}}
		if !p.atStmtEnd() {
			stmt.Code = p.parseExpr()
			stmt.EndPos = stmt.Code.End()
		}
		return stmt

	case token.DELETE:
		p.next()
		name := p.expect(token.NAME)
		arr := &ast.Ident{BaseExpr: ast.BaseExpr{StartPos: name.Pos, EndPos: p.tok.Pos}, Name: name.Value}
		stmt := &ast.DeleteStmt{BaseStmt: ast.BaseStmt{StartPos: start, EndPos: p.tok.Pos}, Array: arr}
		if p.at(token.LBRACKET) {
			p.next()
			stmt.Index = p.parseExprListNested(token.RBRACKET)
			end := p.expect(token.RBRACKET)
			stmt.EndPos = end.Pos
		}
		return stmt

	case token.PRINT, token.PRINTF:
		return p.parsePrint(start)

	default:
		expr := p.parseExpr()
		return &ast.ExprStmt{BaseStmt: ast.BaseStmt{StartPos: start, EndPos: expr.End()}, Expr: expr}
	}
}

// skipOptionalElseGap lets "else" appear after newlines or a semicolon, as in
//
//	if (x) print 1;
//	else print 2
func (p *parser) skipOptionalElseGap() {
	for p.at(token.NEWLINE) || p.at(token.SEMICOLON) {
		p.next()
		if p.at(token.ELSE) {
			return
		}
	}
}

func (p *parser) parseFor(start token.Position) ast.Stmt {
	p.expect(token.FOR)
	p.expect(token.LPAREN)

	// for (k in a) form: single name followed by "in"
	if p.at(token.NAME) {
		name := p.tok
		nameSpace := p.hadSpace
		p.next()
		if p.at(token.IN) {
			p.next()
			arrTok := p.expect(token.NAME)
			p.expect(token.RPAREN)
			body := p.parseSimpleStmt()
			v := &ast.Ident{BaseExpr: ast.BaseExpr{StartPos: name.Pos, EndPos: arrTok.Pos}, Name: name.Value}
			a := &ast.Ident{BaseExpr: ast.BaseExpr{StartPos: arrTok.Pos, EndPos: p.tok.Pos}, Name: arrTok.Value}
			return &ast.ForInStmt{BaseStmt: ast.BaseStmt{StartPos: start, EndPos: body.End()}, Var: v, Array: a, Body: body}
		}
		p.unread(name, nameSpace)
	}

	stmt := &ast.ForStmt{BaseStmt: ast.BaseStmt{StartPos: start}}
	if !p.at(token.SEMICOLON) {
		stmt.Init = p.parseStmt()
	}
	p.expect(token.SEMICOLON)
	p.optNewlines()
	if !p.at(token.SEMICOLON) {
		stmt.Cond = p.parseExpr()
	}
	p.expect(token.SEMICOLON)
	p.optNewlines()
	if !p.at(token.RPAREN) {
		stmt.Post = p.parseStmt()
	}
	p.expect(token.RPAREN)
	stmt.Body = p.parseSimpleStmt()
	stmt.EndPos = stmt.Body.End()
	return stmt
}

func (p *parser) parsePrint(start token.Position) ast.Stmt {
	isPrintf := p.at(token.PRINTF)
	p.next()

	stmt := &ast.PrintStmt{
		BaseStmt: ast.BaseStmt{StartPos: start, EndPos: p.tok.Pos},
		Printf:   isPrintf,
		Redirect: token.ILLEGAL,
	}

	prevPrint := p.inPrint
	p.inPrint = true
	if !p.atStmtEnd() && !p.at(token.GREATER) && !p.at(token.APPEND) && !p.at(token.PIPE) {
		stmt.Args = append(stmt.Args, p.parseExpr())
		for p.at(token.COMMA) {
			p.next()
			p.optNewlines()
			stmt.Args = append(stmt.Args, p.parseExpr())
		}
	}
	p.inPrint = prevPrint

	switch p.tok.Type {
	case token.GREATER, token.APPEND, token.PIPE:
		stmt.Redirect = p.tok.Type
		p.next()
		stmt.Dest = p.parseExpr()
		stmt.EndPos = stmt.Dest.End()
	default:
		if len(stmt.Args) > 0 {
			stmt.EndPos = stmt.Args[len(stmt.Args)-1].End()
		}
	}
	return stmt
}

func (p *parser) atStmtEnd() bool {
	switch p.tok.Type {
	case token.NEWLINE, token.SEMICOLON, token.RBRACE, token.EOF:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// Expressions
//
// Precedence, lowest first: ternary/assignment, ||, &&, in, ~ !~,
// comparison, concatenation, + -, * / %, unary, ^ (right), postfix, primary.
// -----------------------------------------------------------------------------

func (p *parser) parseExpr() ast.Expr {
	return p.parseTernary()
}

func (p *parser) parseExprList(until token.Token) []ast.Expr {
	var list []ast.Expr
	for !p.at(until) {
		list = append(list, p.parseExpr())
		if !p.at(token.COMMA) {
			break
		}
		p.next()
		p.optNewlines()
	}
	return list
}

// parseExprListNested parses a bracketed expression list. Inside
// parentheses and subscripts '>' is always a comparison, even within a
// print statement.
func (p *parser) parseExprListNested(until token.Token) []ast.Expr {
	prev := p.inPrint
	p.inPrint = false
	list := p.parseExprList(until)
	p.inPrint = prev
	return list
}

func (p *parser) parseTernary() ast.Expr {
	cond := p.parseOr()

	if p.at(token.QUESTION) {
		p.next()
		p.optNewlines()
		then := p.parseTernary()
		p.expect(token.COLON)
		p.optNewlines()
		els := p.parseTernary()
		return &ast.TernaryExpr{
			BaseExpr: ast.BaseExpr{StartPos: cond.Pos(), EndPos: els.End()},
			Cond:     cond, Then: then, Else: els,
		}
	}

	if isAssignOp(p.tok.Type) {
		if !ast.IsLValue(cond) {
			panic(errorf(p.tok.Pos, "cannot assign to non-lvalue"))
		}
		op := p.tok.Type
		p.next()
		p.optNewlines()
		right := p.parseTernary() // right associative
		return &ast.AssignExpr{
			BaseExpr: ast.BaseExpr{StartPos: cond.Pos(), EndPos: right.End()},
			Left:     cond, Op: op, Right: right,
		}
	}

	return cond
}

func isAssignOp(t token.Token) bool {
	switch t {
	case token.ASSIGN, token.ADD_ASSIGN, token.SUB_ASSIGN, token.MUL_ASSIGN,
		token.DIV_ASSIGN, token.MOD_ASSIGN, token.POW_ASSIGN:
		return true
	default:
		return false
	}
}

func (p *parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.at(token.OR) {
		p.next()
		p.optNewlines()
		right := p.parseAnd()
		left = binary(left, token.OR, right)
	}
	return left
}

func (p *parser) parseAnd() ast.Expr {
	left := p.parseIn()
	for p.at(token.AND) {
		p.next()
		p.optNewlines()
		right := p.parseIn()
		left = binary(left, token.AND, right)
	}
	return left
}

func (p *parser) parseIn() ast.Expr {
	left := p.parseMatch()
	for p.at(token.IN) {
		p.next()
		arrTok := p.expect(token.NAME)
		arr := &ast.Ident{BaseExpr: ast.BaseExpr{StartPos: arrTok.Pos, EndPos: p.tok.Pos}, Name: arrTok.Value}
		left = &ast.InExpr{
			BaseExpr: ast.BaseExpr{StartPos: left.Pos(), EndPos: arr.End()},
			Index:    []ast.Expr{left}, Array: arr,
		}
	}
	return left
}

func (p *parser) parseMatch() ast.Expr {
	left := p.parseComparison()
	for p.at(token.MATCH) || p.at(token.NOT_MATCH) {
		op := p.tok.Type
		p.next()
		right := p.parseComparison()
		left = &ast.MatchExpr{
			BaseExpr: ast.BaseExpr{StartPos: left.Pos(), EndPos: right.End()},
			Expr:     left, Op: op, Pattern: right,
		}
	}
	// cmd | getline [var] binds here, between match and comparison
	for !p.inPrint && p.at(token.PIPE) {
		p.next()
		p.expect(token.GETLINE)
		g := &ast.GetlineExpr{BaseExpr: ast.BaseExpr{StartPos: left.Pos(), EndPos: p.tok.Pos}, Command: left}
		g.Target = p.parseOptGetlineTarget()
		if g.Target != nil {
			g.EndPos = g.Target.End()
		}
		left = g
	}
	return left
}

func (p *parser) parseComparison() ast.Expr {
	left := p.parseConcat()
	for {
		t := p.tok.Type
		if t == token.EQUALS || t == token.NOT_EQUALS || t == token.LESS || t == token.LTE ||
			(!p.inPrint && (t == token.GREATER || t == token.GTE)) ||
			(p.inPrint && t == token.GTE) {
			p.next()
			right := p.parseConcat()
			left = binary(left, t, right)
			continue
		}
		return left
	}
}

// canStartConcatOperand reports whether the current token can begin the next
// operand of an implicit concatenation.
func (p *parser) canStartConcatOperand() bool {
	switch p.tok.Type {
	case token.NAME, token.NUMBER, token.STRING, token.REGEX,
		token.DOLLAR, token.NOT, token.LPAREN, token.INCR, token.DECR:
		return true
	case token.SUB, token.ADD:
		// Unary minus/plus never continues a concatenation; "a -b" is
		// subtraction.
		return false
	default:
		return false
	}
}

func (p *parser) parseConcat() ast.Expr {
	left := p.parseAdditive()
	var parts []ast.Expr
	for p.canStartConcatOperand() {
		parts = append(parts, p.parseAdditive())
	}
	if parts == nil {
		return left
	}
	all := append([]ast.Expr{left}, parts...)
	return &ast.ConcatExpr{
		BaseExpr: ast.BaseExpr{StartPos: left.Pos(), EndPos: all[len(all)-1].End()},
		Exprs:    all,
	}
}

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.at(token.ADD) || p.at(token.SUB) {
		op := p.tok.Type
		p.next()
		right := p.parseMultiplicative()
		left = binary(left, op, right)
	}
	return left
}

func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.at(token.MUL) || p.at(token.DIV) || p.at(token.MOD) {
		op := p.tok.Type
		p.next()
		right := p.parseUnary()
		left = binary(left, op, right)
	}
	return left
}

func (p *parser) parseUnary() ast.Expr {
	start := p.tok.Pos
	switch p.tok.Type {
	case token.SUB, token.ADD, token.NOT:
		op := p.tok.Type
		p.next()
		operand := p.parseUnary()
		return &ast.UnaryExpr{
			BaseExpr: ast.BaseExpr{StartPos: start, EndPos: operand.End()},
			Op:       op, Expr: operand,
		}
	case token.INCR, token.DECR:
		op := p.tok.Type
		p.next()
		operand := p.parseUnary()
		if !ast.IsLValue(operand) {
			panic(errorf(start, "%s requires an lvalue", op))
		}
		return &ast.UnaryExpr{
			BaseExpr: ast.BaseExpr{StartPos: start, EndPos: operand.End()},
			Op:       op, Expr: operand,
		}
	default:
		return p.parsePower()
	}
}

func (p *parser) parsePower() ast.Expr {
	left := p.parsePostfix()
	if p.at(token.POW) {
		p.next()
		right := p.parseUnary() // right associative, binds tighter than unary on the right
		return binary(left, token.POW, right)
	}
	return left
}

func (p *parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for p.at(token.INCR) || p.at(token.DECR) {
		if !ast.IsLValue(expr) {
			break // x++ with non-lvalue x is two concatenated unary exprs; reject later
		}
		op := p.tok.Type
		p.next()
		expr = &ast.UnaryExpr{
			BaseExpr: ast.BaseExpr{StartPos: expr.Pos(), EndPos: p.tok.Pos},
			Op:       op, Expr: expr, Post: true,
		}
	}
	return expr
}

func (p *parser) parsePrimary() ast.Expr {
	start := p.tok.Pos

	switch p.tok.Type {
	case token.NUMBER:
		raw := p.tok.Value
		p.next()
		n, err := strconv.ParseFloat(numLitForParse(raw), 64)
		if err != nil {
			panic(errorf(start, "invalid number %q", raw))
		}
		return &ast.NumLit{BaseExpr: ast.BaseExpr{StartPos: start, EndPos: p.tok.Pos}, Value: n, Raw: raw}

	case token.STRING:
		v := p.tok.Value
		p.next()
		return &ast.StrLit{BaseExpr: ast.BaseExpr{StartPos: start, EndPos: p.tok.Pos}, Value: v}

	case token.REGEX:
		pat := p.tok.Value
		p.next()
		return &ast.RegexLit{BaseExpr: ast.BaseExpr{StartPos: start, EndPos: p.tok.Pos}, Pattern: pat}

	case token.DOLLAR:
		p.next()
		idx := p.parsePrimary()
		return &ast.FieldExpr{BaseExpr: ast.BaseExpr{StartPos: start, EndPos: idx.End()}, Index: idx}

	case token.GETLINE:
		p.next()
		g := &ast.GetlineExpr{BaseExpr: ast.BaseExpr{StartPos: start, EndPos: p.tok.Pos}}
		g.Target = p.parseOptGetlineTarget()
		if p.at(token.LESS) {
			p.next()
			g.File = p.parseConcat()
			g.EndPos = g.File.End()
		} else if g.Target != nil {
			g.EndPos = g.Target.End()
		}
		return g

	case token.LPAREN:
		p.next()
		p.optNewlines()
		exprs := p.parseExprListNested(token.RPAREN)
		end := p.expect(token.RPAREN)
		if len(exprs) == 0 {
			panic(errorf(start, "empty parentheses"))
		}
		if len(exprs) > 1 {
			// Only valid as (i, j) in arr
			p.expect(token.IN)
			arrTok := p.expect(token.NAME)
			arr := &ast.Ident{BaseExpr: ast.BaseExpr{StartPos: arrTok.Pos, EndPos: p.tok.Pos}, Name: arrTok.Value}
			return &ast.InExpr{
				BaseExpr: ast.BaseExpr{StartPos: start, EndPos: arr.End()},
				Index:    exprs, Array: arr,
			}
		}
		return &ast.GroupExpr{BaseExpr: ast.BaseExpr{StartPos: start, EndPos: end.Pos}, Expr: exprs[0]}

	case token.NAME:
		name := p.tok
		p.next()

		// Call: name immediately followed by "(" with no space
		if p.at(token.LPAREN) && !p.hadSpace {
			p.next()
			p.optNewlines()
			args := p.parseExprListNested(token.RPAREN)
			end := p.expect(token.RPAREN)
			return &ast.CallExpr{
				BaseExpr: ast.BaseExpr{StartPos: start, EndPos: end.Pos},
				Name:     name.Value, Args: args,
			}
		}

		// Array subscript
		if p.at(token.LBRACKET) {
			p.next()
			idx := p.parseExprListNested(token.RBRACKET)
			end := p.expect(token.RBRACKET)
			if len(idx) == 0 {
				panic(errorf(start, "empty array subscript"))
			}
			arr := &ast.Ident{BaseExpr: ast.BaseExpr{StartPos: name.Pos, EndPos: name.Pos}, Name: name.Value}
			return &ast.IndexExpr{
				BaseExpr: ast.BaseExpr{StartPos: start, EndPos: end.Pos},
				Array:    arr, Index: idx,
			}
		}

		return &ast.Ident{BaseExpr: ast.BaseExpr{StartPos: start, EndPos: p.tok.Pos}, Name: name.Value}

	default:
		panic(errorf(start, "expected expression, got %s", p.describe()))
	}
}

// parseOptGetlineTarget parses the optional lvalue after getline.
func (p *parser) parseOptGetlineTarget() ast.Expr {
	switch p.tok.Type {
	case token.NAME:
		name := p.tok
		nameSpace := p.hadSpace
		p.next()
		if p.at(token.LBRACKET) {
			p.next()
			idx := p.parseExprListNested(token.RBRACKET)
			end := p.expect(token.RBRACKET)
			arr := &ast.Ident{BaseExpr: ast.BaseExpr{StartPos: name.Pos, EndPos: name.Pos}, Name: name.Value}
			return &ast.IndexExpr{
				BaseExpr: ast.BaseExpr{StartPos: name.Pos, EndPos: end.Pos},
				Array:    arr, Index: idx,
			}
		}
		if p.at(token.LPAREN) && !p.hadSpace {
			// A call, not a target; rewind
			p.unread(name, nameSpace)
			return nil
		}
		return &ast.Ident{BaseExpr: ast.BaseExpr{StartPos: name.Pos, EndPos: p.tok.Pos}, Name: name.Value}
	case token.DOLLAR:
		start := p.tok.Pos
		p.next()
		idx := p.parsePrimary()
		return &ast.FieldExpr{BaseExpr: ast.BaseExpr{StartPos: start, EndPos: idx.End()}, Index: idx}
	default:
		return nil
	}
}

func binary(left ast.Expr, op token.Token, right ast.Expr) ast.Expr {
	return &ast.BinaryExpr{
		BaseExpr: ast.BaseExpr{StartPos: left.Pos(), EndPos: right.End()},
		Left:     left, Op: op, Right: right,
	}
}

// numLitForParse adapts zawk numeric literal syntax for strconv.ParseFloat:
// hex literals without a binary exponent get "p0" appended.
func numLitForParse(raw string) string {
	if len(raw) > 2 && raw[0] == '0' && (raw[1] == 'x' || raw[1] == 'X') {
		for i := 2; i < len(raw); i++ {
			if raw[i] == 'p' || raw[i] == 'P' {
				return raw
			}
		}
		return raw + "p0"
	}
	return raw
}
