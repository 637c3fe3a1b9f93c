package bytecode

import (
	"fmt"
	"strings"
)

var opNames = [...]string{
	Nop: "Nop",
	LoadKInt: "LoadKInt", LoadKFloat: "LoadKFloat", LoadKStr: "LoadKStr",
	MovInt: "MovInt", MovFloat: "MovFloat", MovStr: "MovStr",
	IntToFloat: "IntToFloat", FloatToInt: "FloatToInt", IntToStr: "IntToStr",
	FloatToStr: "FloatToStr", StrToFloat: "StrToFloat", StrToInt: "StrToInt",
	AddInt: "AddInt", AddFloat: "AddFloat", SubInt: "SubInt", SubFloat: "SubFloat",
	MulInt: "MulInt", MulFloat: "MulFloat", DivFloat: "DivFloat",
	ModInt: "ModInt", ModFloat: "ModFloat", PowFloat: "PowFloat",
	NegInt: "NegInt", NegFloat: "NegFloat",
	BoolInt: "BoolInt", BoolFloat: "BoolFloat", BoolStr: "BoolStr",
	NotInt: "NotInt", NotFloat: "NotFloat", NotStr: "NotStr",
	LtInt: "LtInt", LtFloat: "LtFloat", LtStr: "LtStr",
	LeInt: "LeInt", LeFloat: "LeFloat", LeStr: "LeStr",
	GtInt: "GtInt", GtFloat: "GtFloat", GtStr: "GtStr",
	GeInt: "GeInt", GeFloat: "GeFloat", GeStr: "GeStr",
	EqInt: "EqInt", EqFloat: "EqFloat", EqStr: "EqStr",
	NeInt: "NeInt", NeFloat: "NeFloat", NeStr: "NeStr",
	ConcatStr: "ConcatStr", SubsepJoin: "SubsepJoin",
	MatchConst: "MatchConst", MatchDyn: "MatchDyn",
	GetField: "GetField", SetField: "SetField",
	LoadSpecInt: "LoadSpecInt", LoadSpecStr: "LoadSpecStr",
	StoreSpecInt: "StoreSpecInt", StoreSpecStr: "StoreSpecStr",
	LoadGlobalInt: "LoadGlobalInt", LoadGlobalFloat: "LoadGlobalFloat",
	LoadGlobalStr: "LoadGlobalStr", StoreGlobalInt: "StoreGlobalInt",
	StoreGlobalFloat: "StoreGlobalFloat", StoreGlobalStr: "StoreGlobalStr",
	MapGet: "MapGet", MapSet: "MapSet", MapDel: "MapDel", MapHas: "MapHas",
	MapClear: "MapClear", MapLen: "MapLen",
	IterBegin: "IterBegin", IterNext: "IterNext",
	Jmp: "Jmp", JmpIf: "JmpIf", JmpNot: "JmpNot",
	CallMono: "CallMono", Ret: "Ret", CallB: "CallB",
	SubstRepl: "SubstRepl", Split: "Split",
	ToJSON: "ToJSON", FromJSON: "FromJSON",
	SortArr: "SortArr", JoinArr: "JoinArr",
	Getline: "Getline", Print: "Print", Printf: "Printf",
	NextRec: "NextRec", NextFileRec: "NextFileRec",
	Exit: "Exit", Halt: "Halt",
}

// String returns the opcode's mnemonic.
func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// Disassemble renders the whole program for --dump-bytecode.
func (p *Program) Disassemble() string {
	var sb strings.Builder

	if len(p.Ints) > 0 {
		sb.WriteString("=== Ints ===\n")
		for i, v := range p.Ints {
			fmt.Fprintf(&sb, "  [%d] %d\n", i, v)
		}
	}
	if len(p.Floats) > 0 {
		sb.WriteString("=== Floats ===\n")
		for i, v := range p.Floats {
			fmt.Fprintf(&sb, "  [%d] %v\n", i, v)
		}
	}
	if len(p.Strs) > 0 {
		sb.WriteString("=== Strings ===\n")
		for i, v := range p.Strs {
			fmt.Fprintf(&sb, "  [%d] %q\n", i, v)
		}
	}
	if len(p.Regexes) > 0 {
		sb.WriteString("=== Regexes ===\n")
		for i, v := range p.Regexes {
			fmt.Fprintf(&sb, "  [%d] /%s/\n", i, v)
		}
	}

	for id, fc := range p.Insts {
		fmt.Fprintf(&sb, "\n=== Instance %d: %s (i=%d f=%d s=%d) ===\n",
			id, fc.Name, fc.NumInt, fc.NumFloat, fc.NumStr)
		for pc, in := range fc.Code {
			fmt.Fprintf(&sb, "  %04d: %s", pc, in.Op)
			if in.A != 0 || in.B != 0 || in.C != 0 || in.D != 0 {
				fmt.Fprintf(&sb, " %d %d %d %d", in.A, in.B, in.C, in.D)
			}
			if len(in.Args) > 0 {
				fmt.Fprintf(&sb, " %v", in.Args)
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
