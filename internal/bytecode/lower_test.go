package bytecode

import (
	"strings"
	"testing"

	"github.com/zawk-lang/zawk/internal/infer"
	"github.com/zawk-lang/zawk/internal/ir"
	"github.com/zawk-lang/zawk/internal/parser"
)

func lowerProgram(t *testing.T, src string) *Program {
	t.Helper()
	astProg, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	irProg, err := ir.Build(astProg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	typed, err := infer.Program(irProg)
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	p, err := Lower(typed)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return p
}

func countOps(fc *FuncCode, op Op) int {
	n := 0
	for _, in := range fc.Code {
		if in.Op == op {
			n++
		}
	}
	return n
}

func TestLowerShape(t *testing.T) {
	p := lowerProgram(t, `BEGIN { x = 1 } /re/ { n += $1 } END { print n }`)

	if p.Begin < 0 || p.End < 0 {
		t.Fatal("missing BEGIN or END instance")
	}
	if len(p.Rules) != 1 {
		t.Fatalf("rules = %d", len(p.Rules))
	}
	rc := p.Rules[0]
	if rc.Pattern < 0 || rc.Body < 0 {
		t.Error("rule missing pattern or body instance")
	}
	if rc.PatternEnd != -1 {
		t.Error("single pattern should have no end pattern")
	}

	// The regex literal lands in the regex pool, compiled lazily.
	if len(p.Regexes) != 1 || p.Regexes[0] != "re" {
		t.Errorf("regex pool = %v", p.Regexes)
	}

	// Every instance ends in a control transfer.
	for _, fc := range p.Insts {
		if len(fc.Code) == 0 {
			t.Errorf("instance %s has no code", fc.Name)
			continue
		}
		last := fc.Code[len(fc.Code)-1].Op
		switch last {
		case Ret, Jmp, Exit, NextRec, NextFileRec:
		default:
			t.Errorf("instance %s ends with %v", fc.Name, last)
		}
	}
}

func TestTypedRegisters(t *testing.T) {
	// Integer-only arithmetic lowers to int opcodes, no float traffic.
	p := lowerProgram(t, `BEGIN { i = 1; j = i + 2; if (j < 10) k = j * 3 }`)
	begin := p.Insts[p.Begin]
	if countOps(begin, AddInt) == 0 {
		t.Error("int addition should lower to AddInt")
	}
	if countOps(begin, AddFloat) != 0 {
		t.Error("no float addition expected")
	}

	// A string operand forces float arithmetic with a coercion.
	p = lowerProgram(t, `{ s += $1 }`)
	body := p.Insts[p.Rules[0].Body]
	if countOps(body, AddFloat) == 0 {
		t.Error("field arithmetic should lower to AddFloat")
	}
	if countOps(body, StrToFloat) == 0 {
		t.Error("field operand should coerce through StrToFloat")
	}
}

func TestGlobalClasses(t *testing.T) {
	p := lowerProgram(t, `BEGIN { i = 1; f = 1.5; s = "x" }`)
	classes := map[string]Class{}
	for slot, name := range p.GlobalNames {
		classes[name] = p.GlobalClass[slot]
	}
	if classes["i"] != ClassInt {
		t.Errorf("i class = %v", classes["i"])
	}
	if classes["f"] != ClassFloat {
		t.Errorf("f class = %v", classes["f"])
	}
	if classes["s"] != ClassStr {
		t.Errorf("s class = %v", classes["s"])
	}
}

func TestMapKinds(t *testing.T) {
	p := lowerProgram(t, `BEGIN { a[1] = 2; b["k"] = "v" }`)
	kinds := map[string]MapKind{}
	for slot, name := range p.MapNames {
		kinds[name] = p.GlobalMaps[slot]
	}
	if kinds["a"] != MapIntInt {
		t.Errorf("a kind = %v", kinds["a"])
	}
	if kinds["b"] != MapStrStr {
		t.Errorf("b kind = %v", kinds["b"])
	}
	// ENVIRON is always a string map.
	if kinds["ENVIRON"] != MapStrStr {
		t.Errorf("ENVIRON kind = %v", kinds["ENVIRON"])
	}
}

func TestForInLowersToIterator(t *testing.T) {
	p := lowerProgram(t, `BEGIN { a["x"] = 1; for (k in a) print k }`)
	begin := p.Insts[p.Begin]
	if countOps(begin, IterBegin) != 1 {
		t.Error("for-in should open exactly one iterator")
	}
	if countOps(begin, IterNext) != 1 {
		t.Error("for-in should advance via IterNext")
	}
	if begin.NumIterStr == 0 {
		t.Error("string-keyed loop needs a string iterator register")
	}
}

func TestCallLowering(t *testing.T) {
	p := lowerProgram(t, `function add(a, b) { return a + b } BEGIN { print add(1, 2) }`)
	begin := p.Insts[p.Begin]
	if countOps(begin, CallMono) != 1 {
		t.Error("user call should lower to CallMono")
	}

	var callee *FuncCode
	for _, in := range begin.Code {
		if in.Op == CallMono {
			callee = p.Insts[in.B]
		}
	}
	if callee == nil {
		t.Fatal("no CallMono found")
	}
	if len(callee.ScalarParamRegs) != 2 {
		t.Errorf("param regs = %d, want 2", len(callee.ScalarParamRegs))
	}
	if callee.Ret != ClassInt {
		t.Errorf("add(1,2) return class = %v, want int", callee.Ret)
	}
}

func TestMapRefEncoding(t *testing.T) {
	if local, slot := DecodeMapRef(GlobalMapRef(3)); local || slot != 3 {
		t.Error("global ref decode")
	}
	if local, slot := DecodeMapRef(LocalMapRef(2)); !local || slot != 2 {
		t.Error("local ref decode")
	}
}

func TestReduceMetadata(t *testing.T) {
	p := lowerProgram(t, "@reduce sum c\n{ c[$1]++ }")
	if len(p.Reduces) != 1 {
		t.Fatalf("reduces = %d", len(p.Reduces))
	}
	rd := p.Reduces[0]
	if !rd.IsArray || rd.Op != ReduceSum {
		t.Errorf("reduce = %+v", rd)
	}
	if rd.Kind != MapStrInt {
		t.Errorf("reduce kind = %v, want str:int", rd.Kind)
	}
}

func TestDisassemble(t *testing.T) {
	p := lowerProgram(t, `{ print $1 }`)
	asm := p.Disassemble()
	if !strings.Contains(asm, "GetField") || !strings.Contains(asm, "Print") {
		t.Errorf("disassembly missing ops:\n%s", asm)
	}
}
