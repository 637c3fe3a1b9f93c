package infer

import (
	"strings"
	"testing"

	"github.com/zawk-lang/zawk/internal/ir"
	"github.com/zawk-lang/zawk/internal/parser"
)

func typeProgram(t *testing.T, src string) *Result {
	t.Helper()
	astProg, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	irProg, err := ir.Build(astProg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res, err := Program(irProg)
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	return res
}

func globalType(res *Result, name string) (Type, bool) {
	for i, n := range res.Prog.GlobalScalars {
		if n == name {
			return res.Globals[i], true
		}
	}
	return TBottom, false
}

func globalMapType(res *Result, name string) (MapType, bool) {
	for i, n := range res.Prog.GlobalArrays {
		if n == name {
			return res.GlobalMaps[i], true
		}
	}
	return MapType{}, false
}

func TestJoin(t *testing.T) {
	tests := []struct {
		a, b, want Type
	}{
		{TBottom, TInt, TInt},
		{TInt, TFloat, TFloat},
		{TInt, TStr, TStr},
		{TFloat, TStr, TStr},
		{TStr, TStr, TStr},
		{TBottom, TBottom, TBottom},
	}
	for _, tt := range tests {
		if got := Join(tt.a, tt.b); got != tt.want {
			t.Errorf("Join(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := Join(tt.b, tt.a); got != tt.want {
			t.Errorf("Join(%v, %v) = %v, want %v", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestScalarTypes(t *testing.T) {
	res := typeProgram(t, `BEGIN {
		i = 1
		f = 1.5
		s = "text"
		mixed = 1
		mixed = "x"
		promoted = 1
		promoted = promoted + 0.5
	}`)

	want := map[string]Type{
		"i":        TInt,
		"f":        TFloat,
		"s":        TStr,
		"mixed":    TStr,
		"promoted": TFloat,
	}
	for name, wantType := range want {
		got, ok := globalType(res, name)
		if !ok {
			t.Fatalf("global %s not found", name)
		}
		if got != wantType {
			t.Errorf("%s: type = %v, want %v", name, got, wantType)
		}
	}
}

func TestFieldAndConcatAreStrings(t *testing.T) {
	res := typeProgram(t, `{ f = $1; c = "a" "b" }`)
	if got, _ := globalType(res, "f"); got != TStr {
		t.Errorf("field type = %v, want str", got)
	}
	if got, _ := globalType(res, "c"); got != TStr {
		t.Errorf("concat type = %v, want str", got)
	}
}

func TestArithPromotion(t *testing.T) {
	res := typeProgram(t, `{ n = $1 + 1; d = 4 / 2 }`)
	// A string operand coerces arithmetic through float.
	if got, _ := globalType(res, "n"); got != TFloat {
		t.Errorf("str+int = %v, want float", got)
	}
	// Division is always float.
	if got, _ := globalType(res, "d"); got != TFloat {
		t.Errorf("division = %v, want float", got)
	}
}

func TestMapTypes(t *testing.T) {
	res := typeProgram(t, `BEGIN {
		ints[1] = 10
		strs["k"] = "v"
		counts["x"] += 1
	}`)

	mt, _ := globalMapType(res, "ints")
	if mt.Key != TInt || mt.Val != TInt {
		t.Errorf("ints = map[%v]%v, want map[int]int", mt.Key, mt.Val)
	}
	mt, _ = globalMapType(res, "strs")
	if mt.Key != TStr || mt.Val != TStr {
		t.Errorf("strs = map[%v]%v, want map[str]str", mt.Key, mt.Val)
	}
	mt, _ = globalMapType(res, "counts")
	if mt.Key != TStr || !mt.Val.IsNum() {
		t.Errorf("counts = map[%v]%v, want numeric values", mt.Key, mt.Val)
	}
}

func TestSplitArrayType(t *testing.T) {
	res := typeProgram(t, `{ split($0, parts, ":") }`)
	mt, ok := globalMapType(res, "parts")
	if !ok {
		t.Fatal("parts not found")
	}
	if mt.Key != TInt || mt.Val != TStr {
		t.Errorf("split array = map[%v]%v, want map[int]str", mt.Key, mt.Val)
	}
}

func TestMonomorphization(t *testing.T) {
	res := typeProgram(t, `
function id(x) { return x }
BEGIN { a = id(1); b = id("s") }`)

	// Two call-site tuples produce two instances of id, plus BEGIN.
	var idInstances []*Instance
	for _, inst := range res.Instances {
		if inst.Fn.Name == "id" {
			idInstances = append(idInstances, inst)
		}
	}
	if len(idInstances) != 2 {
		t.Fatalf("id instances = %d, want 2", len(idInstances))
	}
	rets := map[Type]bool{}
	for _, inst := range idInstances {
		rets[inst.Ret] = true
	}
	if !rets[TInt] || !rets[TStr] {
		t.Errorf("instance returns = %v, want int and str", rets)
	}

	if got, _ := globalType(res, "a"); got != TInt {
		t.Errorf("a = %v, want int", got)
	}
	if got, _ := globalType(res, "b"); got != TStr {
		t.Errorf("b = %v, want str", got)
	}
}

func TestRecursiveFunctionConverges(t *testing.T) {
	res := typeProgram(t, `
function fib(n) { if (n < 2) return n; return fib(n-1) + fib(n-2) }
BEGIN { r = fib(10) }`)
	if got, _ := globalType(res, "r"); !got.IsNum() {
		t.Errorf("fib result = %v, want numeric", got)
	}
}

func TestIterKeyType(t *testing.T) {
	res := typeProgram(t, `BEGIN { a[1] = 1; for (k in a) x = k }`)
	if got, _ := globalType(res, "k"); got != TInt {
		t.Errorf("int-map iteration key = %v, want int", got)
	}

	res = typeProgram(t, `BEGIN { a["s"] = 1; for (k in a) x = k }`)
	if got, _ := globalType(res, "k"); got != TStr {
		t.Errorf("str-map iteration key = %v, want str", got)
	}
}

func TestUnusedDefaultsToStr(t *testing.T) {
	res := typeProgram(t, `BEGIN { print never_set }`)
	if got, _ := globalType(res, "never_set"); got != TStr {
		t.Errorf("unset global = %v, want str", got)
	}
}

func TestDump(t *testing.T) {
	res := typeProgram(t, `{ total += $1 } END { print total }`)
	dump := res.Dump()
	if !strings.Contains(dump, "Globals") || !strings.Contains(dump, "total") {
		t.Errorf("Dump() missing expected content:\n%s", dump)
	}
}
