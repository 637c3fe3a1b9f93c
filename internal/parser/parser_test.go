package parser

import (
	"testing"

	"github.com/zawk-lang/zawk/internal/ast"
)

func TestParseStructure(t *testing.T) {
	prog, err := Parse(`
BEGIN { x = 1 }
@reduce sum total, count
/re/ { total += $1 }
$1 == "k", /stop/ { count++ }
END { print total }
function f(a, b) { return a + b }
`)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if len(prog.Begin) != 1 {
		t.Errorf("Begin blocks = %d, want 1", len(prog.Begin))
	}
	if len(prog.EndBlocks) != 1 {
		t.Errorf("End blocks = %d, want 1", len(prog.EndBlocks))
	}
	if len(prog.Rules) != 2 {
		t.Fatalf("Rules = %d, want 2", len(prog.Rules))
	}
	if _, ok := prog.Rules[0].Pattern.(*ast.RegexLit); !ok {
		t.Errorf("rule 0 pattern = %T, want *RegexLit", prog.Rules[0].Pattern)
	}
	if prog.Rules[1].PatternEnd == nil {
		t.Error("rule 1 should be a range pattern")
	}
	if len(prog.Functions) != 1 || prog.Functions[0].Name != "f" || len(prog.Functions[0].Params) != 2 {
		t.Errorf("unexpected functions: %+v", prog.Functions)
	}
	if len(prog.Reduces) != 1 {
		t.Fatalf("Reduces = %d, want 1", len(prog.Reduces))
	}
	rd := prog.Reduces[0]
	if rd.Op != ast.ReduceSum || len(rd.Names) != 2 || rd.Names[0] != "total" || rd.Names[1] != "count" {
		t.Errorf("reduce decl = %+v", rd)
	}
}

func TestParseExpressions(t *testing.T) {
	// Each program must parse; structure is spot-checked where it matters.
	valid := []string{
		`{ print $1, $2 > "out.txt" }`,
		`{ print ($1 > $2) }`,
		`{ x = a b c }`,
		`{ x = -y ^ 2 }`,
		`{ x = cond ? a : b }`,
		`{ if (k in arr) print k }`,
		`{ if ((i, j) in arr) print "2d" }`,
		`{ while ((getline line) > 0) print line }`,
		`{ "date" | getline now }`,
		`{ getline < "file" }`,
		`{ n = split($0, parts, /[,;]/) }`,
		`{ a[$1]++ }`,
		`{ $NF = "last" }`,
		`{ print length() }`,
		`x ~ /re/ { print }`,
		`!seen[$0]++`,
		`{ delete a[k] }`,
		`{ delete a }`,
		`function empty() { }`,
		"{ x = 1; y = 2\nz = 3 }",
		"BEGIN { if (x)\nprint 1\nelse\nprint 2 }",
	}
	for _, src := range valid {
		if _, err := Parse(src); err != nil {
			t.Errorf("Parse(%q) error: %v", src, err)
		}
	}
}

func TestPrintRedirectVsComparison(t *testing.T) {
	// Bare '>' in print is redirection.
	prog, err := Parse(`{ print $1 > "file" }`)
	if err != nil {
		t.Fatal(err)
	}
	ps := prog.Rules[0].Action.Stmts[0].(*ast.PrintStmt)
	if ps.Dest == nil {
		t.Error("print > should set Dest")
	}
	if len(ps.Args) != 1 {
		t.Errorf("print args = %d, want 1", len(ps.Args))
	}

	// Parenthesized '>' is a comparison.
	prog, err = Parse(`{ print ($1 > $2) }`)
	if err != nil {
		t.Fatal(err)
	}
	ps = prog.Rules[0].Action.Stmts[0].(*ast.PrintStmt)
	if ps.Dest != nil {
		t.Error("parenthesized > must not redirect")
	}
}

func TestConcatVsSubtraction(t *testing.T) {
	prog, err := Parse(`{ x = a - b }`)
	if err != nil {
		t.Fatal(err)
	}
	stmt := prog.Rules[0].Action.Stmts[0].(*ast.ExprStmt)
	assign := stmt.Expr.(*ast.AssignExpr)
	if _, ok := assign.Right.(*ast.BinaryExpr); !ok {
		t.Errorf("a - b parsed as %T, want *BinaryExpr", assign.Right)
	}

	prog, err = Parse(`{ x = a " " b }`)
	if err != nil {
		t.Fatal(err)
	}
	stmt = prog.Rules[0].Action.Stmts[0].(*ast.ExprStmt)
	assign = stmt.Expr.(*ast.AssignExpr)
	if c, ok := assign.Right.(*ast.ConcatExpr); !ok || len(c.Exprs) != 3 {
		t.Errorf("concat parsed as %T, want 3-part *ConcatExpr", assign.Right)
	}
}

func TestParseErrors(t *testing.T) {
	invalid := []string{
		`BEGIN {`,
		`{ print "unterminated }`,
		`function () { }`,
		`{ x = }`,
		`{ 1 = 2 }`,
		`@reduce bogus x`,
		`@include "x"`,
		`{ for (;;) }`,
		`{ delete 5 }`,
	}
	for _, src := range invalid {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", src)
		}
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("BEGIN { x = 1 }\n{ y = }")
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("got %T, want *ParseError", err)
	}
	if pe.Pos.Line != 2 {
		t.Errorf("error line = %d, want 2", pe.Pos.Line)
	}
}

func FuzzParse(f *testing.F) {
	f.Add(`{ print $1 }`)
	f.Add(`BEGIN { for (i = 0; i < 3; i++) print i }`)
	f.Add(`@reduce sum s` + "\n" + `{ s += $1 } END { print s }`)
	f.Fuzz(func(t *testing.T, src string) {
		// Must not panic with anything other than a ParseError.
		Parse(src)
	})
}
