package ast

import "testing"

func TestIsLValue(t *testing.T) {
	lvalues := []Expr{
		&Ident{Name: "x"},
		&FieldExpr{Index: &NumLit{Value: 1}},
		&IndexExpr{Array: &Ident{Name: "a"}, Index: []Expr{&NumLit{Value: 1}}},
	}
	for _, e := range lvalues {
		if !IsLValue(e) {
			t.Errorf("%T should be an lvalue", e)
		}
	}

	nonLValues := []Expr{
		&NumLit{Value: 1},
		&StrLit{Value: "s"},
		&BinaryExpr{Left: &Ident{Name: "x"}, Right: &Ident{Name: "y"}},
		&GroupExpr{Expr: &Ident{Name: "x"}},
		&CallExpr{Name: "f"},
	}
	for _, e := range nonLValues {
		if IsLValue(e) {
			t.Errorf("%T should not be an lvalue", e)
		}
	}
}

func TestReduceOpString(t *testing.T) {
	tests := []struct {
		op   ReduceOp
		want string
	}{
		{ReduceSum, "sum"},
		{ReduceMin, "min"},
		{ReduceMax, "max"},
		{ReduceConcat, "concat"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("ReduceOp(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}
