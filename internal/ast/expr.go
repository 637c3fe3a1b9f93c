package ast

import "github.com/zawk-lang/zawk/internal/token"

// NumLit represents a numeric literal.
// Examples: 42, 3.14, 1e10, 0x1F
type NumLit struct {
	BaseExpr
	Value float64
	Raw   string // Original source text
}

// StrLit represents a string literal after escape processing.
type StrLit struct {
	BaseExpr
	Value string
}

// RegexLit represents a regex literal: /pattern/.
type RegexLit struct {
	BaseExpr
	Pattern string
}

// Ident represents a variable name.
type Ident struct {
	BaseExpr
	Name string
}

// FieldExpr represents a field reference: $0, $1, $(i+1).
type FieldExpr struct {
	BaseExpr
	Index Expr
}

// IndexExpr represents an array subscript: a[k], a[i,j].
type IndexExpr struct {
	BaseExpr
	Array *Ident
	Index []Expr // Multiple entries join with SUBSEP
}

// BinaryExpr represents a binary operation: a + b, x == y.
type BinaryExpr struct {
	BaseExpr
	Left  Expr
	Op    token.Token
	Right Expr
}

// UnaryExpr represents a unary operation: -x, !flag, ++i, i++.
type UnaryExpr struct {
	BaseExpr
	Op   token.Token // SUB, ADD, NOT, INCR, DECR
	Expr Expr
	Post bool // true for postfix (i++)
}

// TernaryExpr represents cond ? a : b.
type TernaryExpr struct {
	BaseExpr
	Cond Expr
	Then Expr
	Else Expr
}

// AssignExpr represents an assignment: x = 1, a[k] += v, $1 = "new".
type AssignExpr struct {
	BaseExpr
	Left  Expr // Must be an lvalue
	Op    token.Token
	Right Expr
}

// ConcatExpr represents implicit string concatenation of two or more
// adjacent expressions.
type ConcatExpr struct {
	BaseExpr
	Exprs []Expr
}

// GroupExpr preserves explicit parentheses.
type GroupExpr struct {
	BaseExpr
	Expr Expr
}

// CallExpr represents a function call, either a builtin or a user-defined
// function; the IR builder decides which, with user functions taking
// precedence over builtin names.
type CallExpr struct {
	BaseExpr
	Name string
	Args []Expr
}

// GetlineExpr represents the getline forms:
//
//	getline            getline var
//	getline < file     getline var < file
//	cmd | getline      cmd | getline var
type GetlineExpr struct {
	BaseExpr
	Target  Expr // Variable or field to read into (nil means $0)
	File    Expr // Source file expression (nil if none)
	Command Expr // Piped command (nil if none)
}

// InExpr represents array membership: k in a, (i,j) in a.
type InExpr struct {
	BaseExpr
	Index []Expr
	Array *Ident
}

// MatchExpr represents str ~ re and str !~ re.
type MatchExpr struct {
	BaseExpr
	Expr    Expr
	Op      token.Token // MATCH or NOT_MATCH
	Pattern Expr        // RegexLit or dynamic expression
}

var (
	_ Expr = (*NumLit)(nil)
	_ Expr = (*StrLit)(nil)
	_ Expr = (*RegexLit)(nil)
	_ Expr = (*Ident)(nil)
	_ Expr = (*FieldExpr)(nil)
	_ Expr = (*IndexExpr)(nil)
	_ Expr = (*BinaryExpr)(nil)
	_ Expr = (*UnaryExpr)(nil)
	_ Expr = (*TernaryExpr)(nil)
	_ Expr = (*AssignExpr)(nil)
	_ Expr = (*ConcatExpr)(nil)
	_ Expr = (*GroupExpr)(nil)
	_ Expr = (*CallExpr)(nil)
	_ Expr = (*GetlineExpr)(nil)
	_ Expr = (*InExpr)(nil)
	_ Expr = (*MatchExpr)(nil)
)
