package ast

import "github.com/zawk-lang/zawk/internal/token"

// Program represents a complete zawk program: BEGIN blocks, pattern-action
// rules, END blocks, user functions, and reduction declarations.
type Program struct {
	Filename string

	Begin     []*BlockStmt
	Rules     []*Rule
	EndBlocks []*BlockStmt
	Functions []*FuncDecl
	Reduces   []*ReduceDecl

	StartPos token.Position
	EndPos   token.Position
}

func (p *Program) Pos() token.Position { return p.StartPos }
func (p *Program) End() token.Position { return p.EndPos }

// Rule represents a pattern-action rule.
//
//	{ print }              Pattern nil, matches every record
//	/re/ { print }         single pattern
//	$1 > 100               Action nil, default action { print $0 }
//	/a/, /b/ { print }     range pattern (PatternEnd set)
type Rule struct {
	Pattern    Expr // nil matches all records
	PatternEnd Expr // non-nil for range patterns
	Action     *BlockStmt

	StartPos token.Position
	EndPos   token.Position
}

func (r *Rule) Pos() token.Position { return r.StartPos }
func (r *Rule) End() token.Position { return r.EndPos }

// FuncDecl represents a user-defined function.
//
// By AWK convention extra parameters beyond those passed at a call site are
// local variables; the distinction is not syntactic, so all parameters are
// recorded uniformly and missing arguments default to uninitialized.
type FuncDecl struct {
	Name   string
	Params []string
	Body   *BlockStmt

	NamePos  token.Position
	StartPos token.Position
	EndPos   token.Position
}

func (f *FuncDecl) Pos() token.Position { return f.StartPos }
func (f *FuncDecl) End() token.Position { return f.EndPos }

// ReduceOp names the merge monoid of a reduction variable.
type ReduceOp uint8

const (
	ReduceSum ReduceOp = iota
	ReduceMin
	ReduceMax
	ReduceConcat
)

// String returns the source spelling of the reduce operation.
func (op ReduceOp) String() string {
	switch op {
	case ReduceSum:
		return "sum"
	case ReduceMin:
		return "min"
	case ReduceMax:
		return "max"
	case ReduceConcat:
		return "concat"
	default:
		return "<invalid>"
	}
}

// ReduceDecl represents a top-level reduction declaration:
//
//	@reduce sum count, total
//	@reduce concat out
//
// The named globals are merged across shards by the given monoid when the
// program runs under --parallel. Scalars and arrays may both be declared;
// for arrays the monoid applies per key.
type ReduceDecl struct {
	Op    ReduceOp
	Names []string

	StartPos token.Position
	EndPos   token.Position
}

func (d *ReduceDecl) Pos() token.Position { return d.StartPos }
func (d *ReduceDecl) End() token.Position { return d.EndPos }
