// Package infer assigns a concrete type to every temporary, variable slot
// and array in an IR program, and monomorphizes user functions per
// call-site type tuple.
//
// The scalar lattice is Bottom < Int < Float with Str as its own chain and
// Str also acting as the top: joining a numeric type with Str yields Str,
// and the bytecode lowerer inserts the coercions implied by each join.
// The lattice height is finite (4), every transfer function is monotone,
// and the set of monomorphization tuples is bounded by parameters x types,
// so the analysis reaches a fixpoint.
package infer

import (
	"fmt"

	"github.com/zawk-lang/zawk/internal/ir"
)

// Type is a scalar type in the inference lattice.
type Type uint8

const (
	TBottom Type = iota
	TInt
	TFloat
	TStr
)

// String returns a short name for the type.
func (t Type) String() string {
	switch t {
	case TBottom:
		return "bot"
	case TInt:
		return "int"
	case TFloat:
		return "float"
	case TStr:
		return "str"
	default:
		return "?"
	}
}

// Join returns the least upper bound of two types.
func Join(a, b Type) Type {
	if a > b {
		return a
	}
	return b
}

// IsNum reports whether t is a numeric type.
func (t Type) IsNum() bool { return t == TInt || t == TFloat }

// MapType is an array's key and value type.
type MapType struct {
	Key Type // TInt or TStr after finalization
	Val Type
}

// KeyFor maps a scalar type to the map key type it subscripts with:
// provably-integer keys index IntMaps, everything else goes through
// strings.
func KeyFor(t Type) Type {
	if t == TInt {
		return TInt
	}
	return TStr
}

// Instance is one monomorphized copy of a function (or a phase, which is
// a function with no parameters).
type Instance struct {
	ID int
	Fn *ir.Func

	ScalarParams []Type    // types of scalar parameters, slot order
	ArrayParams  []MapType // types of array parameters, slot order

	Temps     []Type
	Locals    []Type    // local scalar slot types
	LocalMaps []MapType // local array slot types

	Ret Type // TBottom if no path returns a value

	// callTargets maps each CallUser instruction (by its block and its
	// index within that block) to the callee instance.
	callTargets map[callSite]*Instance
}

type callSite struct {
	block int
	index int
}

// Target returns the callee instance for the CallUser at block b, index i.
func (inst *Instance) Target(b, i int) *Instance {
	return inst.callTargets[callSite{b, i}]
}

// Result is the full typing of a program.
type Result struct {
	Prog *ir.Program

	Globals    []Type
	GlobalMaps []MapType

	Begin     *Instance
	End       *Instance
	Rules     []RuleInstances
	Instances []*Instance // every instance, indexed by ID
}

// RuleInstances holds the typed instances of one rule.
type RuleInstances struct {
	Pattern    *Instance
	PatternEnd *Instance
	Body       *Instance
}

// Program runs inference to fixpoint over the whole program.
func Program(prog *ir.Program) (*Result, error) {
	e := &engine{
		prog:       prog,
		globals:    make([]Type, len(prog.GlobalScalars)),
		globalMaps: make([]MapType, len(prog.GlobalArrays)),
		instKeys:   make(map[string]*Instance),
	}

	// ENVIRON and ARGV hold strings keyed by strings.
	e.globalMaps[ir.ArrEnviron] = MapType{Key: TStr, Val: TStr}
	e.globalMaps[ir.ArrArgv] = MapType{Key: TStr, Val: TStr}

	res := &Result{Prog: prog}
	if prog.Begin != nil {
		res.Begin = e.instantiate(prog.Begin, nil, nil)
	}
	for _, r := range prog.Rules {
		ri := RuleInstances{}
		if r.Pattern != nil {
			ri.Pattern = e.instantiate(r.Pattern, nil, nil)
		}
		if r.PatternEnd != nil {
			ri.PatternEnd = e.instantiate(r.PatternEnd, nil, nil)
		}
		if r.Body != nil {
			ri.Body = e.instantiate(r.Body, nil, nil)
		}
		res.Rules = append(res.Rules, ri)
	}
	if prog.End != nil {
		res.End = e.instantiate(prog.End, nil, nil)
	}

	// Iterate to fixpoint. Termination: each pass only raises types in a
	// finite lattice over a finite (bounded by tuples) instance set.
	for {
		e.changed = false
		for i := 0; i < len(e.instances); i++ {
			e.inferInstance(e.instances[i])
		}
		if !e.changed {
			break
		}
	}

	// Finalize defaults: anything still Bottom is a string (uninitialized
	// values read as the empty string).
	for i, t := range e.globals {
		if t == TBottom {
			e.globals[i] = TStr
		}
	}
	for i := range e.globalMaps {
		e.globalMaps[i] = finalizeMap(e.globalMaps[i])
	}
	for _, inst := range e.instances {
		finalizeInstance(inst)
	}

	res.Globals = e.globals
	res.GlobalMaps = e.globalMaps
	res.Instances = e.instances
	return res, nil
}

func finalizeMap(mt MapType) MapType {
	if mt.Key == TBottom {
		mt.Key = TStr
	}
	mt.Key = KeyFor(mt.Key)
	if mt.Val == TBottom {
		mt.Val = TStr
	}
	return mt
}

func finalizeInstance(inst *Instance) {
	for i, t := range inst.Temps {
		if t == TBottom {
			inst.Temps[i] = TStr
		}
	}
	for i, t := range inst.Locals {
		if t == TBottom {
			inst.Locals[i] = TStr
		}
	}
	for i := range inst.LocalMaps {
		inst.LocalMaps[i] = finalizeMap(inst.LocalMaps[i])
	}
}

// engine carries the mutable fixpoint state.
type engine struct {
	prog       *ir.Program
	globals    []Type
	globalMaps []MapType

	instances []*Instance
	instKeys  map[string]*Instance

	changed bool
}

func instanceKey(fn *ir.Func, scalars []Type, arrays []MapType) string {
	return fmt.Sprintf("%p|%v|%v", fn, scalars, arrays)
}

// instantiate returns the instance of fn for the given parameter types,
// creating it on first use.
func (e *engine) instantiate(fn *ir.Func, scalars []Type, arrays []MapType) *Instance {
	key := instanceKey(fn, scalars, arrays)
	if inst, ok := e.instKeys[key]; ok {
		return inst
	}
	inst := &Instance{
		ID:           len(e.instances),
		Fn:           fn,
		ScalarParams: scalars,
		ArrayParams:  arrays,
		Temps:        make([]Type, fn.NumTemps),
		Locals:       make([]Type, len(fn.LocalScalars)),
		LocalMaps:    make([]MapType, len(fn.LocalArrays)),
		callTargets:  make(map[callSite]*Instance),
	}
	for i, t := range scalars {
		inst.Locals[i] = t
	}
	for i, mt := range arrays {
		inst.LocalMaps[i] = mt
	}
	e.instances = append(e.instances, inst)
	e.instKeys[key] = inst
	e.changed = true
	return inst
}

// raise joins t into *dst, tracking change.
func (e *engine) raise(dst *Type, t Type) {
	j := Join(*dst, t)
	if j != *dst {
		*dst = j
		e.changed = true
	}
}

func (e *engine) raiseMap(dst *MapType, key, val Type) {
	if key != TBottom {
		e.raise(&dst.Key, KeyFor(key))
	}
	if val != TBottom {
		e.raise(&dst.Val, val)
	}
}

func (e *engine) mapOf(inst *Instance, ref ir.ArrayRef) *MapType {
	if ref.Scope == ir.ScopeGlobal {
		return &e.globalMaps[ref.Slot]
	}
	return &inst.LocalMaps[ref.Slot]
}

func specialType(s ir.Special) Type {
	if ir.IsNumericSpecial(s) {
		return TInt
	}
	return TStr
}

// inferInstance runs all transfer functions over one instance once.
func (e *engine) inferInstance(inst *Instance) {
	fn := inst.Fn
	t := inst.Temps

	typeOf := func(tmp ir.Temp) Type {
		if tmp == ir.None {
			return TBottom
		}
		return t[tmp]
	}
	set := func(tmp ir.Temp, ty Type) {
		if tmp == ir.None {
			return
		}
		e.raise(&t[tmp], ty)
	}

	for bi, blk := range fn.Blocks {
		for ii := range blk.Instrs {
			in := &blk.Instrs[ii]
			switch in.Op {
			case ir.Nop:

			case ir.ConstNum:
				if isIntegral(in.Num) {
					set(in.Dst, TInt)
				} else {
					set(in.Dst, TFloat)
				}

			case ir.ConstStr:
				set(in.Dst, TStr)

			case ir.Copy:
				set(in.Dst, typeOf(in.A))

			case ir.LoadGlobal:
				set(in.Dst, e.globals[in.Imm])
			case ir.StoreGlobal:
				e.raise(&e.globals[in.Imm], typeOf(in.A))
			case ir.LoadLocal:
				set(in.Dst, inst.Locals[in.Imm])
			case ir.StoreLocal:
				e.raise(&inst.Locals[in.Imm], typeOf(in.A))
			case ir.LoadSpecial:
				set(in.Dst, specialType(ir.Special(in.Imm)))
			case ir.StoreSpecial:
				// Coerced to the special's own type at lowering.

			case ir.GetField:
				set(in.Dst, TStr)
			case ir.SetField:
				// Fields are strings; value coerced at lowering.

			case ir.MapGet:
				mt := e.mapOf(inst, in.Arr)
				e.raise(&mt.Key, KeyFor(typeOf(in.A)))
				set(in.Dst, mt.Val)
			case ir.MapSet:
				e.raiseMap(e.mapOf(inst, in.Arr), typeOf(in.A), typeOf(in.B))
			case ir.MapDelete:
				e.raise(&e.mapOf(inst, in.Arr).Key, KeyFor(typeOf(in.A)))
			case ir.MapClear:
			case ir.MapContains:
				e.raise(&e.mapOf(inst, in.Arr).Key, KeyFor(typeOf(in.A)))
				set(in.Dst, TInt)
			case ir.MapLen:
				set(in.Dst, TInt)
			case ir.SubsepJoin:
				set(in.Dst, TStr)
			case ir.IterBegin:
				mt := e.mapOf(inst, in.Arr)
				key := mt.Key
				if key == TBottom {
					key = TStr
				}
				set(in.Dst, key)

			case ir.Add, ir.Sub, ir.Mul:
				set(in.Dst, arithType(typeOf(in.A), typeOf(in.B)))
			case ir.Mod:
				set(in.Dst, arithType(typeOf(in.A), typeOf(in.B)))
			case ir.Div, ir.Pow:
				set(in.Dst, TFloat)
			case ir.Neg, ir.ToNum:
				set(in.Dst, numType(typeOf(in.A)))
			case ir.Not, ir.Bool:
				set(in.Dst, TInt)

			case ir.Lt, ir.Le, ir.Gt, ir.Ge, ir.Eq, ir.Ne:
				set(in.Dst, TInt)

			case ir.Concat:
				set(in.Dst, TStr)
			case ir.Match, ir.MatchConst:
				set(in.Dst, TInt)

			case ir.CallBuiltin:
				set(in.Dst, e.builtinResult(ir.Builtin(in.Imm), in, typeOf))

			case ir.CallUser:
				callee := e.prog.Funcs[in.Imm]
				scalars := make([]Type, callee.ScalarParams)
				for i := range scalars {
					if i < len(in.List) {
						scalars[i] = typeOf(in.List[i])
						if scalars[i] == TBottom {
							scalars[i] = TStr
						}
					}
					// Unpassed parameters (AWK locals) stay Bottom so the
					// body's own assignments decide their type.
				}
				arrays := make([]MapType, callee.ArrayParams)
				for i := range arrays {
					if i < len(in.ArrArgs) && in.ArrArgs[i].Slot >= 0 {
						arrays[i] = *e.mapOf(inst, in.ArrArgs[i])
					}
				}
				target := e.instantiate(callee, scalars, arrays)
				if prev := inst.callTargets[callSite{bi, ii}]; prev != target {
					inst.callTargets[callSite{bi, ii}] = target
					e.changed = true
				}
				set(in.Dst, target.Ret)
				// Array arguments alias: callee mutations flow back.
				for i := range arrays {
					if i < len(in.ArrArgs) && in.ArrArgs[i].Slot >= 0 {
						caller := e.mapOf(inst, in.ArrArgs[i])
						e.raiseMap(caller, target.ArrayParamKey(i), target.ArrayParamVal(i))
					}
				}

			case ir.Split:
				// split fills arr with 1-based integer keys and string
				// values.
				mt := e.mapOf(inst, in.Arr)
				e.raise(&mt.Key, TInt)
				e.raise(&mt.Val, TStr)
				set(in.Dst, TInt)
			case ir.SubstRepl:
				set(in.Dst, TInt)
				set(in.Dst2, TStr)
			case ir.ToJSON:
				set(in.Dst, TStr)
			case ir.FromJSON:
				mt := e.mapOf(inst, in.Arr)
				e.raise(&mt.Key, TStr)
				e.raise(&mt.Val, TStr)
				set(in.Dst, TInt)

			case ir.SortArr:
				src := e.mapOf(inst, in.Arr)
				dst := src
				if len(in.ArrArgs) > 0 {
					dst = e.mapOf(inst, in.ArrArgs[0])
				}
				// The result is indexed 1..n; value types come from the
				// source's values, or its keys for the index sort.
				e.raise(&dst.Key, TInt)
				if in.Imm == 1 {
					kt := src.Key
					if kt == TBottom {
						kt = TStr
					}
					e.raise(&dst.Val, kt)
				} else if src.Val != TBottom {
					e.raise(&dst.Val, src.Val)
				}
				set(in.Dst, TInt)

			case ir.JoinArr:
				set(in.Dst, TStr)

			case ir.Getline:
				set(in.Dst, TInt)
				set(in.Dst2, TStr)

			case ir.Print, ir.Printf:
			}
		}

		switch blk.Term.Kind {
		case ir.TermIterNext:
			if blk.Term.Iter != ir.None {
				e.raise(&t[blk.Term.Key], KeyFor(t[blk.Term.Iter]))
			}
		case ir.TermRet:
			if blk.Term.Ret != ir.None {
				e.raise(&inst.Ret, typeOf(blk.Term.Ret))
			}
		}
	}
}

// ArrayParamKey returns the key type the instance settled on for array
// parameter i (by LocalMaps slot order, array params first).
func (inst *Instance) ArrayParamKey(i int) Type {
	if i < len(inst.LocalMaps) {
		return inst.LocalMaps[i].Key
	}
	return TBottom
}

// ArrayParamVal returns the value type for array parameter i.
func (inst *Instance) ArrayParamVal(i int) Type {
	if i < len(inst.LocalMaps) {
		return inst.LocalMaps[i].Val
	}
	return TBottom
}

// builtinResult computes a builtin call's result type.
func (e *engine) builtinResult(b ir.Builtin, in *ir.Instr, typeOf func(ir.Temp) Type) Type {
	switch b {
	case ir.BLength, ir.BIndex, ir.BMatchPos, ir.BStrcmp, ir.BIsInt, ir.BIsNum,
		ir.BSystime, ir.BMktime, ir.BSystem, ir.BClose, ir.BFflush, ir.BCRC32,
		ir.BInt, ir.BSrand, ir.BMkBool:
		return TInt
	case ir.BSin, ir.BCos, ir.BAtan2, ir.BExp, ir.BLog, ir.BSqrt, ir.BRand, ir.BStrtonum:
		return TFloat
	case ir.BSubstr, ir.BSprintf, ir.BTolower, ir.BToupper, ir.BTrim,
		ir.BPadLeft, ir.BPadRight, ir.BRepeat, ir.BStrftime,
		ir.BMD5, ir.BSHA1, ir.BSHA256, ir.BEscapeCSV, ir.BEscapeTSV:
		return TStr
	case ir.BMin, ir.BMax:
		// Numeric when every operand is numeric, string otherwise.
		result := TBottom
		for _, a := range in.List {
			result = Join(result, typeOf(a))
		}
		if result == TStr {
			return TStr
		}
		if result == TBottom {
			return TStr
		}
		return result
	default:
		return TStr
	}
}

// arithType gives the type of +, -, *, %: Int when each operand is Int or
// still Bottom (uninitialized); a Float or Str operand makes it Float.
func arithType(a, b Type) Type {
	if a == TInt && b == TInt {
		return TInt
	}
	if a == TBottom && b == TBottom {
		return TInt
	}
	if (a == TInt || a == TBottom) && (b == TInt || b == TBottom) {
		return TInt
	}
	return TFloat
}

// numType is the numeric coercion of a single operand.
func numType(a Type) Type {
	switch a {
	case TInt, TBottom:
		return TInt
	default:
		return TFloat
	}
}

func isIntegral(f float64) bool {
	return f == float64(int64(f)) && f >= -9.007199254740992e15 && f <= 9.007199254740992e15
}
