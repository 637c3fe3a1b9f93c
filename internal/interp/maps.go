package interp

import (
	"slices"
	"sort"
	"strings"

	"github.com/zawk-lang/zawk/internal/bytecode"
	"github.com/zawk-lang/zawk/internal/runtime"
)

// Map operations dispatch on the static MapKind carried by each
// instruction; the type assertions cannot fail because the lowerer
// allocated every table from the same kind.

func (in *Interp) mapGet(fr *frame, instr *bytecode.Instr) {
	switch bytecode.MapKind(instr.D) {
	case bytecode.MapIntInt:
		fr.ints[instr.A] = in.array(fr, instr.B).(*runtime.Table[int64, int64]).Get(fr.ints[instr.C])
	case bytecode.MapIntFloat:
		fr.floats[instr.A] = in.array(fr, instr.B).(*runtime.Table[int64, float64]).Get(fr.ints[instr.C])
	case bytecode.MapIntStr:
		fr.strs[instr.A] = in.array(fr, instr.B).(*runtime.Table[int64, string]).Get(fr.ints[instr.C])
	case bytecode.MapStrInt:
		fr.ints[instr.A] = in.array(fr, instr.B).(*runtime.Table[string, int64]).Get(fr.strs[instr.C])
	case bytecode.MapStrFloat:
		fr.floats[instr.A] = in.array(fr, instr.B).(*runtime.Table[string, float64]).Get(fr.strs[instr.C])
	default:
		fr.strs[instr.A] = in.array(fr, instr.B).(*runtime.Table[string, string]).Get(fr.strs[instr.C])
	}
}

func (in *Interp) mapSet(fr *frame, instr *bytecode.Instr) {
	switch bytecode.MapKind(instr.D) {
	case bytecode.MapIntInt:
		in.array(fr, instr.A).(*runtime.Table[int64, int64]).Set(fr.ints[instr.B], fr.ints[instr.C])
	case bytecode.MapIntFloat:
		in.array(fr, instr.A).(*runtime.Table[int64, float64]).Set(fr.ints[instr.B], fr.floats[instr.C])
	case bytecode.MapIntStr:
		in.array(fr, instr.A).(*runtime.Table[int64, string]).Set(fr.ints[instr.B], fr.strs[instr.C])
	case bytecode.MapStrInt:
		in.array(fr, instr.A).(*runtime.Table[string, int64]).Set(fr.strs[instr.B], fr.ints[instr.C])
	case bytecode.MapStrFloat:
		in.array(fr, instr.A).(*runtime.Table[string, float64]).Set(fr.strs[instr.B], fr.floats[instr.C])
	default:
		in.array(fr, instr.A).(*runtime.Table[string, string]).Set(fr.strs[instr.B], fr.strs[instr.C])
	}
}

func (in *Interp) mapDel(fr *frame, instr *bytecode.Instr) {
	switch bytecode.MapKind(instr.D) {
	case bytecode.MapIntInt:
		in.array(fr, instr.A).(*runtime.Table[int64, int64]).Delete(fr.ints[instr.B])
	case bytecode.MapIntFloat:
		in.array(fr, instr.A).(*runtime.Table[int64, float64]).Delete(fr.ints[instr.B])
	case bytecode.MapIntStr:
		in.array(fr, instr.A).(*runtime.Table[int64, string]).Delete(fr.ints[instr.B])
	case bytecode.MapStrInt:
		in.array(fr, instr.A).(*runtime.Table[string, int64]).Delete(fr.strs[instr.B])
	case bytecode.MapStrFloat:
		in.array(fr, instr.A).(*runtime.Table[string, float64]).Delete(fr.strs[instr.B])
	default:
		in.array(fr, instr.A).(*runtime.Table[string, string]).Delete(fr.strs[instr.B])
	}
}

func (in *Interp) mapHas(fr *frame, instr *bytecode.Instr) {
	var ok bool
	switch bytecode.MapKind(instr.D) {
	case bytecode.MapIntInt:
		ok = in.array(fr, instr.B).(*runtime.Table[int64, int64]).Contains(fr.ints[instr.C])
	case bytecode.MapIntFloat:
		ok = in.array(fr, instr.B).(*runtime.Table[int64, float64]).Contains(fr.ints[instr.C])
	case bytecode.MapIntStr:
		ok = in.array(fr, instr.B).(*runtime.Table[int64, string]).Contains(fr.ints[instr.C])
	case bytecode.MapStrInt:
		ok = in.array(fr, instr.B).(*runtime.Table[string, int64]).Contains(fr.strs[instr.C])
	case bytecode.MapStrFloat:
		ok = in.array(fr, instr.B).(*runtime.Table[string, float64]).Contains(fr.strs[instr.C])
	default:
		ok = in.array(fr, instr.B).(*runtime.Table[string, string]).Contains(fr.strs[instr.C])
	}
	fr.ints[instr.A] = boolInt(ok)
}

func (in *Interp) mapClear(fr *frame, instr *bytecode.Instr) {
	switch bytecode.MapKind(instr.D) {
	case bytecode.MapIntInt:
		in.array(fr, instr.A).(*runtime.Table[int64, int64]).Clear()
	case bytecode.MapIntFloat:
		in.array(fr, instr.A).(*runtime.Table[int64, float64]).Clear()
	case bytecode.MapIntStr:
		in.array(fr, instr.A).(*runtime.Table[int64, string]).Clear()
	case bytecode.MapStrInt:
		in.array(fr, instr.A).(*runtime.Table[string, int64]).Clear()
	case bytecode.MapStrFloat:
		in.array(fr, instr.A).(*runtime.Table[string, float64]).Clear()
	default:
		in.array(fr, instr.A).(*runtime.Table[string, string]).Clear()
	}
}

func (in *Interp) mapLen(fr *frame, instr *bytecode.Instr) {
	var n int
	switch bytecode.MapKind(instr.D) {
	case bytecode.MapIntInt:
		n = in.array(fr, instr.B).(*runtime.Table[int64, int64]).Len()
	case bytecode.MapIntFloat:
		n = in.array(fr, instr.B).(*runtime.Table[int64, float64]).Len()
	case bytecode.MapIntStr:
		n = in.array(fr, instr.B).(*runtime.Table[int64, string]).Len()
	case bytecode.MapStrInt:
		n = in.array(fr, instr.B).(*runtime.Table[string, int64]).Len()
	case bytecode.MapStrFloat:
		n = in.array(fr, instr.B).(*runtime.Table[string, float64]).Len()
	default:
		n = in.array(fr, instr.B).(*runtime.Table[string, string]).Len()
	}
	fr.ints[instr.A] = int64(n)
}

// collectTable gathers a table's keys or values as tagged scalars; when
// ordered, entries follow ascending key order.
func collectTable[K int64 | string, V int64 | float64 | string](
	t *runtime.Table[K, V], wantKeys, ordered bool,
	keyVal func(K) runtime.Value, valVal func(V) runtime.Value,
) []runtime.Value {
	keys := make([]K, 0, t.Len())
	t.Each(func(k K, _ V) { keys = append(keys, k) })
	if ordered {
		slices.Sort(keys)
	}
	out := make([]runtime.Value, 0, len(keys))
	for _, k := range keys {
		if wantKeys {
			out = append(out, keyVal(k))
		} else {
			out = append(out, valVal(t.Get(k)))
		}
	}
	return out
}

// collectArr dispatches collectTable over the table's static kind.
func (in *Interp) collectArr(fr *frame, ref int32, kind bytecode.MapKind, wantKeys, ordered bool) []runtime.Value {
	iv := runtime.IntValue
	fv := runtime.FloatValue
	sv := runtime.StrValue
	switch kind {
	case bytecode.MapIntInt:
		return collectTable(in.array(fr, ref).(*runtime.Table[int64, int64]), wantKeys, ordered, iv, iv)
	case bytecode.MapIntFloat:
		return collectTable(in.array(fr, ref).(*runtime.Table[int64, float64]), wantKeys, ordered, iv, fv)
	case bytecode.MapIntStr:
		return collectTable(in.array(fr, ref).(*runtime.Table[int64, string]), wantKeys, ordered, iv, sv)
	case bytecode.MapStrInt:
		return collectTable(in.array(fr, ref).(*runtime.Table[string, int64]), wantKeys, ordered, sv, iv)
	case bytecode.MapStrFloat:
		return collectTable(in.array(fr, ref).(*runtime.Table[string, float64]), wantKeys, ordered, sv, fv)
	default:
		return collectTable(in.array(fr, ref).(*runtime.Table[string, string]), wantKeys, ordered, sv, sv)
	}
}

// sortScalars orders values ascending: numerically when they are
// numbers, lexically when they are strings. All entries share one kind.
func sortScalars(items []runtime.Value) {
	if len(items) == 0 {
		return
	}
	if items[0].Kind == runtime.KindStr {
		sort.Slice(items, func(i, j int) bool { return items[i].S < items[j].S })
	} else {
		sort.Slice(items, func(i, j int) bool { return items[i].Num() < items[j].Num() })
	}
}

// fillIndexed replaces a table's contents with vals under keys 1..n.
func (in *Interp) fillIndexed(fr *frame, ref int32, kind bytecode.MapKind, vals []runtime.Value) {
	switch kind {
	case bytecode.MapIntInt:
		m := in.array(fr, ref).(*runtime.Table[int64, int64])
		m.Clear()
		for i, v := range vals {
			m.Set(int64(i+1), v.Int())
		}
	case bytecode.MapIntFloat:
		m := in.array(fr, ref).(*runtime.Table[int64, float64])
		m.Clear()
		for i, v := range vals {
			m.Set(int64(i+1), v.Num())
		}
	case bytecode.MapIntStr:
		m := in.array(fr, ref).(*runtime.Table[int64, string])
		m.Clear()
		for i, v := range vals {
			m.Set(int64(i+1), v.Str(in.convfmt))
		}
	case bytecode.MapStrInt:
		m := in.array(fr, ref).(*runtime.Table[string, int64])
		m.Clear()
		for i, v := range vals {
			m.Set(runtime.FormatInt(int64(i+1)), v.Int())
		}
	case bytecode.MapStrFloat:
		m := in.array(fr, ref).(*runtime.Table[string, float64])
		m.Clear()
		for i, v := range vals {
			m.Set(runtime.FormatInt(int64(i+1)), v.Num())
		}
	default:
		m := in.array(fr, ref).(*runtime.Table[string, string])
		m.Clear()
		for i, v := range vals {
			m.Set(runtime.FormatInt(int64(i+1)), v.Str(in.convfmt))
		}
	}
}

// sortArr implements asort and asorti.
func (in *Interp) sortArr(fr *frame, instr *bytecode.Instr) {
	srcKind := bytecode.MapKind(instr.Args[1])
	destKind := bytecode.MapKind(instr.Args[2])
	items := in.collectArr(fr, instr.B, srcKind, instr.C == 1, false)
	sortScalars(items)
	in.fillIndexed(fr, instr.Args[0], destKind, items)
	fr.ints[instr.A] = int64(len(items))
}

// joinArr implements join: values in key order joined by the separator.
func (in *Interp) joinArr(fr *frame, instr *bytecode.Instr) {
	items := in.collectArr(fr, instr.B, bytecode.MapKind(instr.D), false, true)
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = v.Str(in.convfmt)
	}
	fr.strs[instr.A] = strings.Join(parts, fr.strs[instr.C])
}

func (in *Interp) iterBegin(fr *frame, instr *bytecode.Instr) {
	switch bytecode.MapKind(instr.D) {
	case bytecode.MapIntInt:
		fr.iterInts[instr.A] = in.array(fr, instr.B).(*runtime.Table[int64, int64]).Iter()
	case bytecode.MapIntFloat:
		fr.iterInts[instr.A] = in.array(fr, instr.B).(*runtime.Table[int64, float64]).Iter()
	case bytecode.MapIntStr:
		fr.iterInts[instr.A] = in.array(fr, instr.B).(*runtime.Table[int64, string]).Iter()
	case bytecode.MapStrInt:
		fr.iterStrs[instr.A] = in.array(fr, instr.B).(*runtime.Table[string, int64]).Iter()
	case bytecode.MapStrFloat:
		fr.iterStrs[instr.A] = in.array(fr, instr.B).(*runtime.Table[string, float64]).Iter()
	default:
		fr.iterStrs[instr.A] = in.array(fr, instr.B).(*runtime.Table[string, string]).Iter()
	}
}
