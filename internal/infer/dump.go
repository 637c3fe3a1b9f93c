package infer

import (
	"fmt"
	"strings"

	"github.com/zawk-lang/zawk/internal/ir"
)

// Dump renders the typed CFG of every instance, for --dump-cfg: each
// block's instructions with the inferred type of every temporary, plus
// the global slot typing.
func (res *Result) Dump() string {
	var sb strings.Builder

	sb.WriteString("=== Globals ===\n")
	for i, t := range res.Globals {
		fmt.Fprintf(&sb, "  %s: %s\n", res.Prog.GlobalScalars[i], t)
	}
	for i, mt := range res.GlobalMaps {
		fmt.Fprintf(&sb, "  %s: map[%s]%s\n", res.Prog.GlobalArrays[i], mt.Key, mt.Val)
	}

	for _, inst := range res.Instances {
		fmt.Fprintf(&sb, "\n=== Instance %d: %s", inst.ID, inst.Fn.Name)
		if len(inst.ScalarParams) > 0 || len(inst.ArrayParams) > 0 {
			var parts []string
			for _, t := range inst.ScalarParams {
				parts = append(parts, t.String())
			}
			for _, mt := range inst.ArrayParams {
				parts = append(parts, fmt.Sprintf("map[%s]%s", mt.Key, mt.Val))
			}
			fmt.Fprintf(&sb, "(%s)", strings.Join(parts, ", "))
		}
		fmt.Fprintf(&sb, " -> %s ===\n", inst.Ret)

		for _, blk := range inst.Fn.Blocks {
			fmt.Fprintf(&sb, "  b%d:\n", blk.ID)
			for _, in := range blk.Instrs {
				sb.WriteString("    ")
				res.dumpInstr(&sb, inst, &in)
				sb.WriteByte('\n')
			}
			res.dumpTerm(&sb, blk)
		}
	}
	return sb.String()
}

// operandUse records which Instr fields an op actually reads or writes,
// so the dump never renders a zero-valued unused field as temp 0.
type operandUse struct {
	dst, dst2, a, b, list bool
}

var opUse = map[ir.Op]operandUse{
	ir.ConstNum:     {dst: true},
	ir.ConstStr:     {dst: true},
	ir.Copy:         {dst: true, a: true},
	ir.LoadGlobal:   {dst: true},
	ir.StoreGlobal:  {a: true},
	ir.LoadLocal:    {dst: true},
	ir.StoreLocal:   {a: true},
	ir.LoadSpecial:  {dst: true},
	ir.StoreSpecial: {a: true},
	ir.GetField:     {dst: true, a: true},
	ir.SetField:     {a: true, b: true},
	ir.MapGet:       {dst: true, a: true},
	ir.MapSet:       {a: true, b: true},
	ir.MapDelete:    {a: true},
	ir.MapClear:     {},
	ir.MapContains:  {dst: true, a: true},
	ir.MapLen:       {dst: true},
	ir.SubsepJoin:   {dst: true, list: true},
	ir.IterBegin:    {dst: true},
	ir.Add:          {dst: true, a: true, b: true},
	ir.Sub:          {dst: true, a: true, b: true},
	ir.Mul:          {dst: true, a: true, b: true},
	ir.Div:          {dst: true, a: true, b: true},
	ir.Mod:          {dst: true, a: true, b: true},
	ir.Pow:          {dst: true, a: true, b: true},
	ir.Neg:          {dst: true, a: true},
	ir.ToNum:        {dst: true, a: true},
	ir.Not:          {dst: true, a: true},
	ir.Bool:         {dst: true, a: true},
	ir.Lt:           {dst: true, a: true, b: true},
	ir.Le:           {dst: true, a: true, b: true},
	ir.Gt:           {dst: true, a: true, b: true},
	ir.Ge:           {dst: true, a: true, b: true},
	ir.Eq:           {dst: true, a: true, b: true},
	ir.Ne:           {dst: true, a: true, b: true},
	ir.Concat:       {dst: true, list: true},
	ir.Match:        {dst: true, a: true, b: true},
	ir.MatchConst:   {dst: true, a: true},
	ir.CallBuiltin:  {dst: true, list: true},
	ir.CallUser:     {dst: true, list: true},
	ir.Split:        {dst: true, a: true, b: true},
	ir.SubstRepl:    {dst: true, dst2: true, list: true},
	ir.ToJSON:       {dst: true},
	ir.FromJSON:     {dst: true, a: true},
	ir.SortArr:      {dst: true},
	ir.JoinArr:      {dst: true, a: true},
	ir.Getline:      {dst: true, dst2: true, a: true},
	ir.Print:        {a: true, list: true},
	ir.Printf:       {a: true, list: true},
}

func (res *Result) dumpInstr(sb *strings.Builder, inst *Instance, in *ir.Instr) {
	ty := func(t ir.Temp) string {
		if t == ir.None {
			return "_"
		}
		return fmt.Sprintf("t%d:%s", t, inst.Temps[t])
	}
	use := opUse[in.Op]

	if use.dst && in.Dst != ir.None {
		fmt.Fprintf(sb, "%s = ", ty(in.Dst))
	}
	fmt.Fprintf(sb, "%s", in.Op)
	if use.dst2 && in.Dst2 != ir.None {
		fmt.Fprintf(sb, " [%s]", ty(in.Dst2))
	}
	if use.a && in.A != ir.None {
		fmt.Fprintf(sb, " %s", ty(in.A))
	}
	if use.b && in.B != ir.None {
		fmt.Fprintf(sb, " %s", ty(in.B))
	}
	if use.list {
		for _, t := range in.List {
			fmt.Fprintf(sb, " %s", ty(t))
		}
	}
	switch in.Op {
	case ir.ConstNum:
		fmt.Fprintf(sb, " %v", in.Num)
	case ir.ConstStr, ir.MatchConst:
		fmt.Fprintf(sb, " %q", in.Str)
	case ir.LoadGlobal, ir.StoreGlobal:
		fmt.Fprintf(sb, " %s", res.Prog.GlobalScalars[in.Imm])
	case ir.CallBuiltin, ir.CallUser, ir.LoadLocal, ir.StoreLocal,
		ir.LoadSpecial, ir.StoreSpecial:
		fmt.Fprintf(sb, " #%d", in.Imm)
	}
}

func (res *Result) dumpTerm(sb *strings.Builder, blk *ir.Block) {
	t := blk.Term
	fmt.Fprintf(sb, "    %s", t.Kind)
	switch t.Kind {
	case ir.TermJump:
		if t.Then != nil {
			fmt.Fprintf(sb, " b%d", t.Then.ID)
		}
	case ir.TermBranch:
		fmt.Fprintf(sb, " t%d b%d b%d", t.Cond, t.Then.ID, t.Else.ID)
	case ir.TermIterNext:
		fmt.Fprintf(sb, " t%d -> t%d b%d b%d", t.Iter, t.Key, t.Then.ID, t.Else.ID)
	case ir.TermRet, ir.TermExit:
		if t.Ret != ir.None {
			fmt.Fprintf(sb, " t%d", t.Ret)
		}
	}
	sb.WriteByte('\n')
}
