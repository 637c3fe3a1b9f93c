package ast

import "github.com/zawk-lang/zawk/internal/token"

// ExprStmt represents an expression used as a statement.
type ExprStmt struct {
	BaseStmt
	Expr Expr
}

// PrintStmt represents print and printf, with optional redirection:
//
//	print $1, $2
//	printf "%d\n", n
//	print x > "file"   print x >> "file"   print x | "cmd"
type PrintStmt struct {
	BaseStmt
	Printf   bool
	Args     []Expr
	Redirect token.Token // GREATER, APPEND, PIPE, or ILLEGAL for none
	Dest     Expr
}

// BlockStmt represents { stmt; stmt; ... }.
type BlockStmt struct {
	BaseStmt
	Stmts []Stmt
}

// IfStmt represents if/else.
type IfStmt struct {
	BaseStmt
	Cond Expr
	Then Stmt
	Else Stmt // nil if no else
}

// WhileStmt represents a while loop.
type WhileStmt struct {
	BaseStmt
	Cond Expr
	Body Stmt
}

// DoWhileStmt represents do { } while (cond).
type DoWhileStmt struct {
	BaseStmt
	Body Stmt
	Cond Expr
}

// ForStmt represents a C-style for loop; Init, Cond and Post may be nil.
type ForStmt struct {
	BaseStmt
	Init Stmt
	Cond Expr
	Post Stmt
	Body Stmt
}

// ForInStmt represents for (k in a).
type ForInStmt struct {
	BaseStmt
	Var   *Ident
	Array *Ident
	Body  Stmt
}

// BreakStmt exits the innermost enclosing loop.
type BreakStmt struct {
	BaseStmt
}

// ContinueStmt jumps to the next iteration of the innermost loop.
type ContinueStmt struct {
	BaseStmt
}

// NextStmt skips to the next input record.
type NextStmt struct {
	BaseStmt
}

// NextFileStmt skips to the next input file.
type NextFileStmt struct {
	BaseStmt
}

// ReturnStmt returns from the current function.
type ReturnStmt struct {
	BaseStmt
	Value Expr // nil for bare return
}

// ExitStmt terminates processing; END still runs.
type ExitStmt struct {
	BaseStmt
	Code Expr // nil defaults to 0
}

// DeleteStmt represents delete a[k] and delete a.
type DeleteStmt struct {
	BaseStmt
	Array *Ident
	Index []Expr // empty to delete the whole array
}

var (
	_ Stmt = (*ExprStmt)(nil)
	_ Stmt = (*PrintStmt)(nil)
	_ Stmt = (*BlockStmt)(nil)
	_ Stmt = (*IfStmt)(nil)
	_ Stmt = (*WhileStmt)(nil)
	_ Stmt = (*DoWhileStmt)(nil)
	_ Stmt = (*ForStmt)(nil)
	_ Stmt = (*ForInStmt)(nil)
	_ Stmt = (*BreakStmt)(nil)
	_ Stmt = (*ContinueStmt)(nil)
	_ Stmt = (*NextStmt)(nil)
	_ Stmt = (*NextFileStmt)(nil)
	_ Stmt = (*ReturnStmt)(nil)
	_ Stmt = (*ExitStmt)(nil)
	_ Stmt = (*DeleteStmt)(nil)
)
