package interp

import (
	"math"

	"github.com/zawk-lang/zawk/internal/bytecode"
	"github.com/zawk-lang/zawk/internal/ir"
	"github.com/zawk-lang/zawk/internal/runtime"
)

// frame holds one instance's register files.
type frame struct {
	ints     []int64
	floats   []float64
	strs     []string
	iterInts []*runtime.Iter[int64]
	iterStrs []*runtime.Iter[string]
	arrays   []any
}

// retval is a function's return value; only the field matching the
// callee's return class is meaningful.
type retval struct {
	i int64
	f float64
	s string
}

func (in *Interp) newFrame(fc *bytecode.FuncCode) *frame {
	fr := &frame{
		ints:     make([]int64, fc.NumInt),
		floats:   make([]float64, fc.NumFloat),
		strs:     make([]string, fc.NumStr),
		iterInts: make([]*runtime.Iter[int64], fc.NumIterInt),
		iterStrs: make([]*runtime.Iter[string], fc.NumIterStr),
		arrays:   make([]any, len(fc.LocalMaps)),
	}
	for i, kind := range fc.LocalMaps {
		fr.arrays[i] = newMap(kind)
	}
	return fr
}

// array resolves a map reference against the frame.
func (in *Interp) array(fr *frame, ref bytecode.MapRef) any {
	local, slot := bytecode.DecodeMapRef(ref)
	if local {
		return fr.arrays[slot]
	}
	return in.arrays[slot]
}

func (in *Interp) strStrMap(ref bytecode.MapRef) *runtime.Table[string, string] {
	return in.arrays[ref].(*runtime.Table[string, string])
}

// regex returns a lazily compiled regex from the constant pool. Compile
// errors surface as runtime errors at first use.
func (in *Interp) regex(idx int32) (*runtime.Regex, error) {
	if in.regexes[idx] == nil {
		re, err := in.regexCache.Get(in.prog.Regexes[idx])
		if err != nil {
			return nil, runtimeErrf("invalid regex /%s/: %v", in.prog.Regexes[idx], err)
		}
		in.regexes[idx] = re
	}
	return in.regexes[idx], nil
}

// exec runs one instance's code to completion.
//
//nolint:gocyclo // one case per opcode; splitting the dispatch loop would
// only obscure it
func (in *Interp) exec(fr *frame, fc *bytecode.FuncCode) (retval, error) {
	code := fc.Code
	p := in.prog
	pc := 0

	for pc < len(code) {
		instr := &code[pc]
		pc++

		switch instr.Op {
		case bytecode.Nop:

		case bytecode.LoadKInt:
			fr.ints[instr.A] = p.Ints[instr.B]
		case bytecode.LoadKFloat:
			fr.floats[instr.A] = p.Floats[instr.B]
		case bytecode.LoadKStr:
			fr.strs[instr.A] = p.Strs[instr.B]

		case bytecode.MovInt:
			fr.ints[instr.A] = fr.ints[instr.B]
		case bytecode.MovFloat:
			fr.floats[instr.A] = fr.floats[instr.B]
		case bytecode.MovStr:
			fr.strs[instr.A] = fr.strs[instr.B]

		case bytecode.IntToFloat:
			fr.floats[instr.A] = float64(fr.ints[instr.B])
		case bytecode.FloatToInt:
			fr.ints[instr.A] = truncToInt(fr.floats[instr.B])
		case bytecode.IntToStr:
			fr.strs[instr.A] = runtime.FormatInt(fr.ints[instr.B])
		case bytecode.FloatToStr:
			fr.strs[instr.A] = runtime.FormatFloat(fr.floats[instr.B], in.convfmt)
		case bytecode.StrToFloat:
			fr.floats[instr.A] = runtime.ParseNumPrefix(fr.strs[instr.B])
		case bytecode.StrToInt:
			fr.ints[instr.A] = runtime.ParseIntPrefix(fr.strs[instr.B])

		case bytecode.AddInt:
			fr.ints[instr.A] = fr.ints[instr.B] + fr.ints[instr.C]
		case bytecode.AddFloat:
			fr.floats[instr.A] = fr.floats[instr.B] + fr.floats[instr.C]
		case bytecode.SubInt:
			fr.ints[instr.A] = fr.ints[instr.B] - fr.ints[instr.C]
		case bytecode.SubFloat:
			fr.floats[instr.A] = fr.floats[instr.B] - fr.floats[instr.C]
		case bytecode.MulInt:
			fr.ints[instr.A] = fr.ints[instr.B] * fr.ints[instr.C]
		case bytecode.MulFloat:
			fr.floats[instr.A] = fr.floats[instr.B] * fr.floats[instr.C]
		case bytecode.DivFloat:
			if fr.floats[instr.C] == 0 {
				return retval{}, runtimeErrf("division by zero")
			}
			fr.floats[instr.A] = fr.floats[instr.B] / fr.floats[instr.C]
		case bytecode.ModInt:
			if fr.ints[instr.C] == 0 {
				return retval{}, runtimeErrf("division by zero in %%")
			}
			fr.ints[instr.A] = fr.ints[instr.B] % fr.ints[instr.C]
		case bytecode.ModFloat:
			if fr.floats[instr.C] == 0 {
				return retval{}, runtimeErrf("division by zero in %%")
			}
			fr.floats[instr.A] = math.Mod(fr.floats[instr.B], fr.floats[instr.C])
		case bytecode.PowFloat:
			fr.floats[instr.A] = math.Pow(fr.floats[instr.B], fr.floats[instr.C])
		case bytecode.NegInt:
			fr.ints[instr.A] = -fr.ints[instr.B]
		case bytecode.NegFloat:
			fr.floats[instr.A] = -fr.floats[instr.B]

		case bytecode.BoolInt:
			fr.ints[instr.A] = boolInt(fr.ints[instr.B] != 0)
		case bytecode.BoolFloat:
			fr.ints[instr.A] = boolInt(fr.floats[instr.B] != 0)
		case bytecode.BoolStr:
			fr.ints[instr.A] = boolInt(fr.strs[instr.B] != "")
		case bytecode.NotInt:
			fr.ints[instr.A] = boolInt(fr.ints[instr.B] == 0)
		case bytecode.NotFloat:
			fr.ints[instr.A] = boolInt(fr.floats[instr.B] == 0)
		case bytecode.NotStr:
			fr.ints[instr.A] = boolInt(fr.strs[instr.B] == "")

		case bytecode.LtInt:
			fr.ints[instr.A] = boolInt(fr.ints[instr.B] < fr.ints[instr.C])
		case bytecode.LtFloat:
			fr.ints[instr.A] = boolInt(fr.floats[instr.B] < fr.floats[instr.C])
		case bytecode.LtStr:
			fr.ints[instr.A] = boolInt(fr.strs[instr.B] < fr.strs[instr.C])
		case bytecode.LeInt:
			fr.ints[instr.A] = boolInt(fr.ints[instr.B] <= fr.ints[instr.C])
		case bytecode.LeFloat:
			fr.ints[instr.A] = boolInt(fr.floats[instr.B] <= fr.floats[instr.C])
		case bytecode.LeStr:
			fr.ints[instr.A] = boolInt(fr.strs[instr.B] <= fr.strs[instr.C])
		case bytecode.GtInt:
			fr.ints[instr.A] = boolInt(fr.ints[instr.B] > fr.ints[instr.C])
		case bytecode.GtFloat:
			fr.ints[instr.A] = boolInt(fr.floats[instr.B] > fr.floats[instr.C])
		case bytecode.GtStr:
			fr.ints[instr.A] = boolInt(fr.strs[instr.B] > fr.strs[instr.C])
		case bytecode.GeInt:
			fr.ints[instr.A] = boolInt(fr.ints[instr.B] >= fr.ints[instr.C])
		case bytecode.GeFloat:
			fr.ints[instr.A] = boolInt(fr.floats[instr.B] >= fr.floats[instr.C])
		case bytecode.GeStr:
			fr.ints[instr.A] = boolInt(fr.strs[instr.B] >= fr.strs[instr.C])
		case bytecode.EqInt:
			fr.ints[instr.A] = boolInt(fr.ints[instr.B] == fr.ints[instr.C])
		case bytecode.EqFloat:
			fr.ints[instr.A] = boolInt(fr.floats[instr.B] == fr.floats[instr.C])
		case bytecode.EqStr:
			fr.ints[instr.A] = boolInt(fr.strs[instr.B] == fr.strs[instr.C])
		case bytecode.NeInt:
			fr.ints[instr.A] = boolInt(fr.ints[instr.B] != fr.ints[instr.C])
		case bytecode.NeFloat:
			fr.ints[instr.A] = boolInt(fr.floats[instr.B] != fr.floats[instr.C])
		case bytecode.NeStr:
			fr.ints[instr.A] = boolInt(fr.strs[instr.B] != fr.strs[instr.C])

		case bytecode.ConcatStr:
			total := 0
			for _, r := range instr.Args {
				total += len(fr.strs[r])
			}
			buf := make([]byte, 0, total)
			for _, r := range instr.Args {
				buf = append(buf, fr.strs[r]...)
			}
			fr.strs[instr.A] = string(buf)

		case bytecode.SubsepJoin:
			var buf []byte
			for i, r := range instr.Args {
				if i > 0 {
					buf = append(buf, in.subsep...)
				}
				buf = append(buf, fr.strs[r]...)
			}
			fr.strs[instr.A] = string(buf)

		case bytecode.MatchConst:
			re, err := in.regex(instr.C)
			if err != nil {
				return retval{}, err
			}
			fr.ints[instr.A] = boolInt(re.MatchString(fr.strs[instr.B]))

		case bytecode.MatchDyn:
			re, err := in.regexCache.Get(fr.strs[instr.C])
			if err != nil {
				return retval{}, runtimeErrf("invalid regex %q: %v", fr.strs[instr.C], err)
			}
			fr.ints[instr.A] = boolInt(re.MatchString(fr.strs[instr.B]))

		case bytecode.GetField:
			fr.strs[instr.A] = in.getField(fr.ints[instr.B])
		case bytecode.SetField:
			in.setField(fr.ints[instr.A], fr.strs[instr.B])

		case bytecode.LoadSpecInt:
			fr.ints[instr.A] = in.loadSpecInt(ir.Special(instr.B))
		case bytecode.LoadSpecStr:
			fr.strs[instr.A] = in.loadSpecStr(ir.Special(instr.B))
		case bytecode.StoreSpecInt:
			in.storeSpecInt(ir.Special(instr.A), fr.ints[instr.B])
		case bytecode.StoreSpecStr:
			in.storeSpecStr(ir.Special(instr.A), fr.strs[instr.B])

		case bytecode.LoadGlobalInt:
			fr.ints[instr.A] = in.gInts[instr.B]
		case bytecode.LoadGlobalFloat:
			fr.floats[instr.A] = in.gFloats[instr.B]
		case bytecode.LoadGlobalStr:
			fr.strs[instr.A] = in.gStrs[instr.B]
		case bytecode.StoreGlobalInt:
			in.gInts[instr.A] = fr.ints[instr.B]
		case bytecode.StoreGlobalFloat:
			in.gFloats[instr.A] = fr.floats[instr.B]
		case bytecode.StoreGlobalStr:
			in.gStrs[instr.A] = fr.strs[instr.B]

		case bytecode.MapGet:
			in.mapGet(fr, instr)
		case bytecode.MapSet:
			in.mapSet(fr, instr)
		case bytecode.MapDel:
			in.mapDel(fr, instr)
		case bytecode.MapHas:
			in.mapHas(fr, instr)
		case bytecode.MapClear:
			in.mapClear(fr, instr)
		case bytecode.MapLen:
			in.mapLen(fr, instr)
		case bytecode.IterBegin:
			in.iterBegin(fr, instr)

		case bytecode.IterNext:
			if instr.D == 0 {
				key, ok := fr.iterInts[instr.B].Next()
				if !ok {
					pc = int(instr.C)
					continue
				}
				fr.ints[instr.A] = key
			} else {
				key, ok := fr.iterStrs[instr.B].Next()
				if !ok {
					pc = int(instr.C)
					continue
				}
				fr.strs[instr.A] = key
			}

		case bytecode.Jmp:
			pc = int(instr.A)
		case bytecode.JmpIf:
			if fr.ints[instr.A] != 0 {
				pc = int(instr.B)
			}
		case bytecode.JmpNot:
			if fr.ints[instr.A] == 0 {
				pc = int(instr.B)
			}

		case bytecode.CallMono:
			if err := in.callMono(fr, instr); err != nil {
				return retval{}, err
			}

		case bytecode.Ret:
			var rv retval
			if instr.A >= 0 {
				switch fc.Ret {
				case bytecode.ClassInt:
					rv.i = fr.ints[instr.A]
				case bytecode.ClassFloat:
					rv.f = fr.floats[instr.A]
				default:
					rv.s = fr.strs[instr.A]
				}
			}
			return rv, nil

		case bytecode.CallB:
			if err := in.callBuiltin(fr, instr); err != nil {
				return retval{}, err
			}

		case bytecode.SubstRepl:
			pat := fr.strs[instr.Args[0]]
			repl := fr.strs[instr.Args[1]]
			src := fr.strs[instr.Args[2]]
			result, count, err := runtime.Subst(in.regexCache, pat, repl, src, instr.C != 0)
			if err != nil {
				return retval{}, runtimeErrf("invalid regex %q: %v", pat, err)
			}
			fr.ints[instr.A] = int64(count)
			fr.strs[instr.B] = result

		case bytecode.Split:
			if err := in.split(fr, instr); err != nil {
				return retval{}, err
			}

		case bytecode.ToJSON:
			fr.strs[instr.A] = runtime.ToJSON(in.mapToStrings(fr, instr.B, bytecode.MapKind(instr.D)))

		case bytecode.FromJSON:
			m := in.array(fr, instr.C).(*runtime.Table[string, string])
			m.Clear()
			decoded := runtime.FromJSON(fr.strs[instr.B])
			for k, v := range decoded {
				m.Set(k, v)
			}
			if decoded == nil {
				fr.ints[instr.A] = -1
			} else {
				fr.ints[instr.A] = int64(m.Len())
			}

		case bytecode.SortArr:
			in.sortArr(fr, instr)

		case bytecode.JoinArr:
			in.joinArr(fr, instr)

		case bytecode.Getline:
			in.getline(fr, instr)

		case bytecode.Print:
			if err := in.print(fr, instr, false); err != nil {
				return retval{}, err
			}
		case bytecode.Printf:
			if err := in.print(fr, instr, true); err != nil {
				return retval{}, err
			}

		case bytecode.NextRec:
			return retval{}, errNext
		case bytecode.NextFileRec:
			return retval{}, errNextFile

		case bytecode.Exit:
			code := 0
			if instr.A >= 0 {
				code = int(fr.ints[instr.A])
			}
			return retval{}, &ExitError{Code: code}

		case bytecode.Halt:
			return retval{}, nil

		default:
			return retval{}, runtimeErrf("unknown opcode %d", instr.Op)
		}
	}

	return retval{}, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func truncToInt(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

// callMono performs a monomorphized call: fresh frame, argument copies,
// array aliasing, recursive execution.
func (in *Interp) callMono(fr *frame, instr *bytecode.Instr) error {
	callee := in.prog.Insts[instr.B]
	nf := in.newFrame(callee)

	numScalars := int(instr.D)
	for i := 0; i < numScalars; i++ {
		dst := callee.ScalarParamRegs[i]
		src := instr.Args[i]
		switch dst.Class {
		case bytecode.ClassInt:
			nf.ints[dst.Index] = fr.ints[src]
		case bytecode.ClassFloat:
			nf.floats[dst.Index] = fr.floats[src]
		default:
			nf.strs[dst.Index] = fr.strs[src]
		}
	}

	// Array arguments alias the caller's tables; omitted ones keep the
	// fresh empty table allocated with the frame.
	for i, ref := range instr.Args[numScalars:] {
		if bytecode.MapRef(ref) == bytecode.FreshMapRef {
			continue
		}
		nf.arrays[i] = in.array(fr, ref)
	}

	rv, err := in.exec(nf, callee)
	if err != nil {
		return err
	}
	if instr.A >= 0 {
		switch callee.Ret {
		case bytecode.ClassInt:
			fr.ints[instr.A] = rv.i
		case bytecode.ClassFloat:
			fr.floats[instr.A] = rv.f
		default:
			fr.strs[instr.A] = rv.s
		}
	}
	return nil
}

// split implements split(s, arr[, sep]).
func (in *Interp) split(fr *frame, instr *bytecode.Instr) error {
	src := fr.strs[instr.B]
	sep := in.fs
	if instr.C >= 0 {
		sep = fr.strs[instr.C]
	}
	parts, err := runtime.SplitString(in.regexCache, src, sep)
	if err != nil {
		return runtimeErrf("invalid regex %q: %v", sep, err)
	}

	ref := instr.Args[0]
	kind := bytecode.MapKind(instr.D)
	switch kind {
	case bytecode.MapIntStr:
		m := in.array(fr, ref).(*runtime.Table[int64, string])
		m.Clear()
		for i, part := range parts {
			m.Set(int64(i+1), part)
		}
	case bytecode.MapIntInt:
		m := in.array(fr, ref).(*runtime.Table[int64, int64])
		m.Clear()
		for i, part := range parts {
			m.Set(int64(i+1), runtime.ParseIntPrefix(part))
		}
	case bytecode.MapIntFloat:
		m := in.array(fr, ref).(*runtime.Table[int64, float64])
		m.Clear()
		for i, part := range parts {
			m.Set(int64(i+1), runtime.ParseNumPrefix(part))
		}
	case bytecode.MapStrStr:
		m := in.array(fr, ref).(*runtime.Table[string, string])
		m.Clear()
		for i, part := range parts {
			m.Set(runtime.FormatInt(int64(i+1)), part)
		}
	case bytecode.MapStrInt:
		m := in.array(fr, ref).(*runtime.Table[string, int64])
		m.Clear()
		for i, part := range parts {
			m.Set(runtime.FormatInt(int64(i+1)), runtime.ParseIntPrefix(part))
		}
	default:
		m := in.array(fr, ref).(*runtime.Table[string, float64])
		m.Clear()
		for i, part := range parts {
			m.Set(runtime.FormatInt(int64(i+1)), runtime.ParseNumPrefix(part))
		}
	}
	fr.ints[instr.A] = int64(len(parts))
	return nil
}

// mapToStrings flattens any table into string keys and values.
func (in *Interp) mapToStrings(fr *frame, ref int32, kind bytecode.MapKind) map[string]string {
	out := make(map[string]string)
	switch kind {
	case bytecode.MapIntInt:
		in.array(fr, ref).(*runtime.Table[int64, int64]).Each(func(k, v int64) {
			out[runtime.FormatInt(k)] = runtime.FormatInt(v)
		})
	case bytecode.MapIntFloat:
		in.array(fr, ref).(*runtime.Table[int64, float64]).Each(func(k int64, v float64) {
			out[runtime.FormatInt(k)] = runtime.FormatFloat(v, in.convfmt)
		})
	case bytecode.MapIntStr:
		in.array(fr, ref).(*runtime.Table[int64, string]).Each(func(k int64, v string) {
			out[runtime.FormatInt(k)] = v
		})
	case bytecode.MapStrInt:
		in.array(fr, ref).(*runtime.Table[string, int64]).Each(func(k string, v int64) {
			out[k] = runtime.FormatInt(v)
		})
	case bytecode.MapStrFloat:
		in.array(fr, ref).(*runtime.Table[string, float64]).Each(func(k string, v float64) {
			out[k] = runtime.FormatFloat(v, in.convfmt)
		})
	default:
		in.array(fr, ref).(*runtime.Table[string, string]).Each(func(k, v string) {
			out[k] = v
		})
	}
	return out
}
