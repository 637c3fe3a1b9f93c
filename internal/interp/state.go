package interp

import (
	"github.com/zawk-lang/zawk/internal/bytecode"
	"github.com/zawk-lang/zawk/internal/runtime"
)

// The parallel driver replicates one interpreter's post-BEGIN state into
// each shard and merges reduction state back after end of input. These
// accessors are the whole surface it uses; nothing here is safe for
// concurrent use with a running interpreter.

// GlobalValue reads a global scalar slot as a tagged value.
func (in *Interp) GlobalValue(slot int32) runtime.Value {
	switch in.prog.GlobalClass[slot] {
	case bytecode.ClassInt:
		return runtime.IntValue(in.gInts[slot])
	case bytecode.ClassFloat:
		return runtime.FloatValue(in.gFloats[slot])
	default:
		return runtime.StrValue(in.gStrs[slot])
	}
}

// SetGlobalValue writes a global scalar slot, coercing to its class.
func (in *Interp) SetGlobalValue(slot int32, v runtime.Value) {
	switch in.prog.GlobalClass[slot] {
	case bytecode.ClassInt:
		in.gInts[slot] = v.Int()
	case bytecode.ClassFloat:
		in.gFloats[slot] = v.Num()
	default:
		in.gStrs[slot] = v.Str(in.convfmt)
	}
}

// GlobalArray returns the table behind a global array slot.
func (in *Interp) GlobalArray(slot int32) any {
	return in.arrays[slot]
}

// CloneStateInto copies scalar state, separators and a deep copy of every
// global array into dst. Used to seed shards with the BEGIN result.
func (in *Interp) CloneStateInto(dst *Interp) {
	copy(dst.gInts, in.gInts)
	copy(dst.gFloats, in.gFloats)
	copy(dst.gStrs, in.gStrs)

	for slot, src := range in.arrays {
		dst.arrays[slot] = copyTable(src)
	}

	dst.fs = in.fs
	dst.ofs = in.ofs
	dst.ors = in.ors
	dst.rs = in.rs
	dst.subsep = in.subsep
	dst.convfmt = in.convfmt
	dst.ofmt = in.ofmt
	dst.out.OFS = in.ofs
	dst.out.ORS = in.ors
}

// ZeroReductions resets every declared reduction slot to its monoid
// identity so shard-local accumulation starts clean.
func (in *Interp) ZeroReductions() {
	for _, rd := range in.prog.Reduces {
		if rd.IsArray {
			in.arrays[rd.Slot] = newMap(rd.Kind)
			continue
		}
		switch in.prog.GlobalClass[rd.Slot] {
		case bytecode.ClassInt:
			in.gInts[rd.Slot] = 0
		case bytecode.ClassFloat:
			in.gFloats[rd.Slot] = 0
		default:
			in.gStrs[rd.Slot] = ""
		}
	}
}

// SetNR pre-positions NR for a shard whose chunk starts mid-input.
func (in *Interp) SetNR(nr int64) {
	in.nr = nr
}

// NR returns the current record number.
func (in *Interp) NR() int64 {
	return in.nr
}

func copyTable(src any) any {
	switch t := src.(type) {
	case *runtime.Table[int64, int64]:
		out := runtime.NewTable[int64, int64]()
		t.Each(func(k, v int64) { out.Set(k, v) })
		return out
	case *runtime.Table[int64, float64]:
		out := runtime.NewTable[int64, float64]()
		t.Each(func(k int64, v float64) { out.Set(k, v) })
		return out
	case *runtime.Table[int64, string]:
		out := runtime.NewTable[int64, string]()
		t.Each(func(k int64, v string) { out.Set(k, v) })
		return out
	case *runtime.Table[string, int64]:
		out := runtime.NewTable[string, int64]()
		t.Each(func(k string, v int64) { out.Set(k, v) })
		return out
	case *runtime.Table[string, float64]:
		out := runtime.NewTable[string, float64]()
		t.Each(func(k string, v float64) { out.Set(k, v) })
		return out
	case *runtime.Table[string, string]:
		out := runtime.NewTable[string, string]()
		t.Each(func(k, v string) { out.Set(k, v) })
		return out
	default:
		return src
	}
}
