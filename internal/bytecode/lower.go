package bytecode

import (
	"fmt"

	"github.com/zawk-lang/zawk/internal/infer"
	"github.com/zawk-lang/zawk/internal/ir"
)

// Lower converts a typed program to linear bytecode: one FuncCode per
// monomorphized instance, register files allocated per type class, and
// coercions made explicit wherever inference joined types.
func Lower(res *infer.Result) (*Program, error) {
	p := &Program{Begin: -1, End: -1}
	lw := &lowerer{
		p:       p,
		res:     res,
		intPool: make(map[int64]int32),
		fltPool: make(map[float64]int32),
		strPool: make(map[string]int32),
		rePool:  make(map[string]int32),
	}

	// Global scalar slots.
	for i, t := range res.Globals {
		p.GlobalClass = append(p.GlobalClass, classOf(t))
		p.GlobalNames = append(p.GlobalNames, res.Prog.GlobalScalars[i])
	}
	for i, mt := range res.GlobalMaps {
		p.GlobalMaps = append(p.GlobalMaps, kindOf(mt))
		p.MapNames = append(p.MapNames, res.Prog.GlobalArrays[i])
	}

	// Register layout for every instance, then code for every instance:
	// calls need the callee's layout before the caller's body lowers.
	lw.layouts = make([]*layout, len(res.Instances))
	for _, inst := range res.Instances {
		lw.layouts[inst.ID] = newLayout(inst)
	}
	p.Insts = make([]*FuncCode, len(res.Instances))
	for _, inst := range res.Instances {
		fc, err := lw.lowerInstance(inst)
		if err != nil {
			return nil, err
		}
		p.Insts[inst.ID] = fc
	}

	if res.Begin != nil {
		p.Begin = res.Begin.ID
	}
	if res.End != nil {
		p.End = res.End.ID
	}
	for _, ri := range res.Rules {
		rc := RuleCode{Pattern: -1, PatternEnd: -1, Body: -1}
		if ri.Pattern != nil {
			rc.Pattern = ri.Pattern.ID
		}
		if ri.PatternEnd != nil {
			rc.PatternEnd = ri.PatternEnd.ID
		}
		if ri.Body != nil {
			rc.Body = ri.Body.ID
		}
		p.Rules = append(p.Rules, rc)
	}

	for _, rd := range res.Prog.Reduces {
		r := Reduce{Op: ReduceOp(rd.Op), IsArray: rd.IsArray, Slot: rd.Slot}
		if rd.IsArray {
			r.Kind = p.GlobalMaps[rd.Slot]
		} else {
			r.Class = p.GlobalClass[rd.Slot]
		}
		p.Reduces = append(p.Reduces, r)
	}
	p.MainScalarWrites = res.Prog.MainScalarWrites
	p.MainArrayWrites = res.Prog.MainArrayWrites

	return p, nil
}

func classOf(t infer.Type) Class {
	switch t {
	case infer.TInt:
		return ClassInt
	case infer.TFloat:
		return ClassFloat
	default:
		return ClassStr
	}
}

func kindOf(mt infer.MapType) MapKind {
	if mt.Key == infer.TInt {
		switch mt.Val {
		case infer.TInt:
			return MapIntInt
		case infer.TFloat:
			return MapIntFloat
		default:
			return MapIntStr
		}
	}
	switch mt.Val {
	case infer.TInt:
		return MapStrInt
	case infer.TFloat:
		return MapStrFloat
	default:
		return MapStrStr
	}
}

// layout assigns registers for one instance: local scalar slots first (so
// parameters land at known low indices), then temporaries, then scratch.
type layout struct {
	inst     *infer.Instance
	reg      map[ir.Temp]RegRef
	localReg []RegRef
	counts   [5]int32
}

func newLayout(inst *infer.Instance) *layout {
	lo := &layout{inst: inst, reg: make(map[ir.Temp]RegRef)}

	for slot, t := range inst.Locals {
		lo.localReg = append(lo.localReg, lo.alloc(classOf(t)))
		_ = slot
	}

	// Iterator temps get iterator registers keyed by the array key type.
	iterTemps := make(map[ir.Temp]bool)
	for _, blk := range inst.Fn.Blocks {
		for _, in := range blk.Instrs {
			if in.Op == ir.IterBegin {
				iterTemps[in.Dst] = true
			}
		}
	}

	for t := 0; t < inst.Fn.NumTemps; t++ {
		tmp := ir.Temp(t)
		ty := inst.Temps[t]
		var c Class
		if iterTemps[tmp] {
			if ty == infer.TInt {
				c = ClassIterInt
			} else {
				c = ClassIterStr
			}
		} else {
			c = classOf(ty)
		}
		lo.reg[tmp] = lo.alloc(c)
	}
	return lo
}

func (lo *layout) alloc(c Class) RegRef {
	r := RegRef{Class: c, Index: lo.counts[c]}
	lo.counts[c]++
	return r
}

// lowerer shares constant pools across all instances.
type lowerer struct {
	p       *Program
	res     *infer.Result
	layouts []*layout

	intPool map[int64]int32
	fltPool map[float64]int32
	strPool map[string]int32
	rePool  map[string]int32
}

func (lw *lowerer) kint(v int64) int32 {
	if i, ok := lw.intPool[v]; ok {
		return i
	}
	i := int32(len(lw.p.Ints))
	lw.p.Ints = append(lw.p.Ints, v)
	lw.intPool[v] = i
	return i
}

func (lw *lowerer) kfloat(v float64) int32 {
	if i, ok := lw.fltPool[v]; ok {
		return i
	}
	i := int32(len(lw.p.Floats))
	lw.p.Floats = append(lw.p.Floats, v)
	lw.fltPool[v] = i
	return i
}

func (lw *lowerer) kstr(v string) int32 {
	if i, ok := lw.strPool[v]; ok {
		return i
	}
	i := int32(len(lw.p.Strs))
	lw.p.Strs = append(lw.p.Strs, v)
	lw.strPool[v] = i
	return i
}

func (lw *lowerer) kregex(v string) int32 {
	if i, ok := lw.rePool[v]; ok {
		return i
	}
	i := int32(len(lw.p.Regexes))
	lw.p.Regexes = append(lw.p.Regexes, v)
	lw.rePool[v] = i
	return i
}

// emitter lowers one instance.
type emitter struct {
	lw   *lowerer
	lo   *layout
	code []Instr

	blockPC map[int]int32
	patches []patch
}

type patch struct {
	pc    int32
	field uint8 // 0=A, 1=B, 2=C
	block *ir.Block
}

func (em *emitter) emit(in Instr) int32 {
	pc := int32(len(em.code))
	em.code = append(em.code, in)
	return pc
}

func (em *emitter) scratch(c Class) RegRef { return em.lo.alloc(c) }

func (em *emitter) reg(t ir.Temp) RegRef { return em.lo.reg[t] }

// coerce converts r to class `to`, emitting a conversion into a scratch
// register when classes differ.
func (em *emitter) coerce(r RegRef, to Class) RegRef {
	if r.Class == to {
		return r
	}
	dst := em.scratch(to)
	var op Op
	switch {
	case r.Class == ClassInt && to == ClassFloat:
		op = IntToFloat
	case r.Class == ClassInt && to == ClassStr:
		op = IntToStr
	case r.Class == ClassFloat && to == ClassInt:
		op = FloatToInt
	case r.Class == ClassFloat && to == ClassStr:
		op = FloatToStr
	case r.Class == ClassStr && to == ClassFloat:
		op = StrToFloat
	case r.Class == ClassStr && to == ClassInt:
		op = StrToInt
	default:
		panic(fmt.Sprintf("bytecode: cannot coerce %s to %s", r.Class, to))
	}
	em.emit(Instr{Op: op, A: dst.Index, B: r.Index})
	return dst
}

// mov copies src into dst, converting first if the classes differ.
func (em *emitter) mov(dst, src RegRef) {
	src = em.coerce(src, dst.Class)
	if src == dst {
		return
	}
	var op Op
	switch dst.Class {
	case ClassInt:
		op = MovInt
	case ClassFloat:
		op = MovFloat
	case ClassStr:
		op = MovStr
	default:
		panic("bytecode: cannot mov iterator registers")
	}
	em.emit(Instr{Op: op, A: dst.Index, B: src.Index})
}

func (em *emitter) jumpPatch(pc int32, field uint8, blk *ir.Block) {
	em.patches = append(em.patches, patch{pc: pc, field: field, block: blk})
}

func (lw *lowerer) lowerInstance(inst *infer.Instance) (*FuncCode, error) {
	lo := lw.layouts[inst.ID]
	em := &emitter{lw: lw, lo: lo, blockPC: make(map[int]int32)}

	for bi, blk := range inst.Fn.Blocks {
		em.blockPC[blk.ID] = int32(len(em.code))
		for ii := range blk.Instrs {
			if err := em.lowerInstr(inst, bi, ii, &blk.Instrs[ii]); err != nil {
				return nil, err
			}
		}
		em.lowerTerm(inst, blk)
	}

	// Resolve block labels to instruction indices.
	for _, pt := range em.patches {
		target := em.blockPC[pt.block.ID]
		switch pt.field {
		case 0:
			em.code[pt.pc].A = target
		case 1:
			em.code[pt.pc].B = target
		case 2:
			em.code[pt.pc].C = target
		}
	}

	fc := &FuncCode{
		Name:       inst.Fn.Name,
		Code:       em.code,
		NumInt:     lo.counts[ClassInt],
		NumFloat:   lo.counts[ClassFloat],
		NumStr:     lo.counts[ClassStr],
		NumIterInt: lo.counts[ClassIterInt],
		NumIterStr: lo.counts[ClassIterStr],
		Ret:        classOf(inst.Ret),
	}
	for _, mt := range inst.LocalMaps {
		fc.LocalMaps = append(fc.LocalMaps, kindOf(mt))
	}
	for slot := 0; slot < inst.Fn.ScalarParams; slot++ {
		fc.ScalarParamRegs = append(fc.ScalarParamRegs, lo.localReg[slot])
	}
	return fc, nil
}

func (em *emitter) mapRef(ref ir.ArrayRef) MapRef {
	if ref.Scope == ir.ScopeGlobal {
		return GlobalMapRef(ref.Slot)
	}
	return LocalMapRef(ref.Slot)
}

func (em *emitter) mapKind(inst *infer.Instance, ref ir.ArrayRef) MapKind {
	if ref.Scope == ir.ScopeGlobal {
		return em.lw.p.GlobalMaps[ref.Slot]
	}
	return kindOf(inst.LocalMaps[ref.Slot])
}

// keyClass returns the register class map keys of kind use.
func keyClass(k MapKind) Class {
	if k.IntKeyed() {
		return ClassInt
	}
	return ClassStr
}

func (em *emitter) lowerInstr(inst *infer.Instance, bi, ii int, in *ir.Instr) error {
	lw := em.lw
	switch in.Op {
	case ir.Nop:

	case ir.ConstNum:
		dst := em.reg(in.Dst)
		switch dst.Class {
		case ClassInt:
			em.emit(Instr{Op: LoadKInt, A: dst.Index, B: lw.kint(int64(in.Num))})
		case ClassFloat:
			em.emit(Instr{Op: LoadKFloat, A: dst.Index, B: lw.kfloat(in.Num)})
		default:
			// A numeric constant joined into a string context.
			tmp := em.scratch(ClassFloat)
			em.emit(Instr{Op: LoadKFloat, A: tmp.Index, B: lw.kfloat(in.Num)})
			em.emit(Instr{Op: FloatToStr, A: dst.Index, B: tmp.Index})
		}

	case ir.ConstStr:
		dst := em.reg(in.Dst)
		em.emit(Instr{Op: LoadKStr, A: dst.Index, B: lw.kstr(in.Str)})

	case ir.Copy:
		em.mov(em.reg(in.Dst), em.reg(in.A))

	case ir.LoadGlobal:
		slot := int32(in.Imm)
		cls := lw.p.GlobalClass[slot]
		dst := em.reg(in.Dst)
		if dst.Class == cls {
			em.emit(Instr{Op: loadGlobalOp(cls), A: dst.Index, B: slot})
		} else {
			tmp := em.scratch(cls)
			em.emit(Instr{Op: loadGlobalOp(cls), A: tmp.Index, B: slot})
			em.mov(dst, tmp)
		}

	case ir.StoreGlobal:
		slot := int32(in.Imm)
		cls := lw.p.GlobalClass[slot]
		src := em.coerce(em.reg(in.A), cls)
		em.emit(Instr{Op: storeGlobalOp(cls), A: slot, B: src.Index})

	case ir.LoadLocal:
		em.mov(em.reg(in.Dst), em.lo.localReg[in.Imm])

	case ir.StoreLocal:
		em.mov(em.lo.localReg[in.Imm], em.reg(in.A))

	case ir.LoadSpecial:
		sp := ir.Special(in.Imm)
		dst := em.reg(in.Dst)
		if ir.IsNumericSpecial(sp) {
			tmp := dst
			if dst.Class != ClassInt {
				tmp = em.scratch(ClassInt)
			}
			em.emit(Instr{Op: LoadSpecInt, A: tmp.Index, B: int32(sp)})
			if tmp != dst {
				em.mov(dst, tmp)
			}
		} else {
			tmp := dst
			if dst.Class != ClassStr {
				tmp = em.scratch(ClassStr)
			}
			em.emit(Instr{Op: LoadSpecStr, A: tmp.Index, B: int32(sp)})
			if tmp != dst {
				em.mov(dst, tmp)
			}
		}

	case ir.StoreSpecial:
		sp := ir.Special(in.Imm)
		if ir.IsNumericSpecial(sp) {
			src := em.coerce(em.reg(in.A), ClassInt)
			em.emit(Instr{Op: StoreSpecInt, A: int32(sp), B: src.Index})
		} else {
			src := em.coerce(em.reg(in.A), ClassStr)
			em.emit(Instr{Op: StoreSpecStr, A: int32(sp), B: src.Index})
		}

	case ir.GetField:
		idx := em.coerce(em.reg(in.A), ClassInt)
		dst := em.reg(in.Dst)
		if dst.Class == ClassStr {
			em.emit(Instr{Op: GetField, A: dst.Index, B: idx.Index})
		} else {
			tmp := em.scratch(ClassStr)
			em.emit(Instr{Op: GetField, A: tmp.Index, B: idx.Index})
			em.mov(dst, tmp)
		}

	case ir.SetField:
		idx := em.coerce(em.reg(in.A), ClassInt)
		val := em.coerce(em.reg(in.B), ClassStr)
		em.emit(Instr{Op: SetField, A: idx.Index, B: val.Index})

	case ir.MapGet:
		kind := em.mapKind(inst, in.Arr)
		key := em.coerce(em.reg(in.A), keyClass(kind))
		dst := em.reg(in.Dst)
		if dst.Class == kind.ValClass() {
			em.emit(Instr{Op: MapGet, A: dst.Index, B: em.mapRef(in.Arr), C: key.Index, D: int32(kind)})
		} else {
			tmp := em.scratch(kind.ValClass())
			em.emit(Instr{Op: MapGet, A: tmp.Index, B: em.mapRef(in.Arr), C: key.Index, D: int32(kind)})
			em.mov(dst, tmp)
		}

	case ir.MapSet:
		kind := em.mapKind(inst, in.Arr)
		key := em.coerce(em.reg(in.A), keyClass(kind))
		val := em.coerce(em.reg(in.B), kind.ValClass())
		em.emit(Instr{Op: MapSet, A: em.mapRef(in.Arr), B: key.Index, C: val.Index, D: int32(kind)})

	case ir.MapDelete:
		kind := em.mapKind(inst, in.Arr)
		key := em.coerce(em.reg(in.A), keyClass(kind))
		em.emit(Instr{Op: MapDel, A: em.mapRef(in.Arr), B: key.Index, D: int32(kind)})

	case ir.MapClear:
		kind := em.mapKind(inst, in.Arr)
		em.emit(Instr{Op: MapClear, A: em.mapRef(in.Arr), D: int32(kind)})

	case ir.MapContains:
		kind := em.mapKind(inst, in.Arr)
		key := em.coerce(em.reg(in.A), keyClass(kind))
		dst := em.intDst(in.Dst)
		em.emit(Instr{Op: MapHas, A: dst.Index, B: em.mapRef(in.Arr), C: key.Index, D: int32(kind)})
		em.intDone(in.Dst, dst)

	case ir.MapLen:
		kind := em.mapKind(inst, in.Arr)
		dst := em.intDst(in.Dst)
		em.emit(Instr{Op: MapLen, A: dst.Index, B: em.mapRef(in.Arr), D: int32(kind)})
		em.intDone(in.Dst, dst)

	case ir.SubsepJoin, ir.Concat:
		op := SubsepJoin
		if in.Op == ir.Concat {
			op = ConcatStr
		}
		var args []int32
		for _, t := range in.List {
			args = append(args, em.coerce(em.reg(t), ClassStr).Index)
		}
		dst := em.reg(in.Dst)
		em.emit(Instr{Op: op, A: dst.Index, Args: args})

	case ir.IterBegin:
		kind := em.mapKind(inst, in.Arr)
		dst := em.reg(in.Dst)
		em.emit(Instr{Op: IterBegin, A: dst.Index, B: em.mapRef(in.Arr), D: int32(kind)})

	case ir.Add, ir.Sub, ir.Mul, ir.Mod:
		em.lowerArith(inst, in)

	case ir.Div, ir.Pow:
		a := em.coerce(em.reg(in.A), ClassFloat)
		b := em.coerce(em.reg(in.B), ClassFloat)
		dst := em.reg(in.Dst)
		op := DivFloat
		if in.Op == ir.Pow {
			op = PowFloat
		}
		if dst.Class == ClassFloat {
			em.emit(Instr{Op: op, A: dst.Index, B: a.Index, C: b.Index})
		} else {
			tmp := em.scratch(ClassFloat)
			em.emit(Instr{Op: op, A: tmp.Index, B: a.Index, C: b.Index})
			em.mov(dst, tmp)
		}

	case ir.Neg, ir.ToNum:
		dst := em.reg(in.Dst)
		if dst.Class == ClassInt {
			src := em.coerce(em.reg(in.A), ClassInt)
			if in.Op == ir.Neg {
				em.emit(Instr{Op: NegInt, A: dst.Index, B: src.Index})
			} else {
				em.mov(dst, src)
			}
		} else {
			src := em.coerce(em.reg(in.A), ClassFloat)
			if in.Op == ir.Neg {
				tmp := dst
				if dst.Class != ClassFloat {
					tmp = em.scratch(ClassFloat)
				}
				em.emit(Instr{Op: NegFloat, A: tmp.Index, B: src.Index})
				if tmp != dst {
					em.mov(dst, tmp)
				}
			} else {
				em.mov(dst, src)
			}
		}

	case ir.Not, ir.Bool:
		src := em.reg(in.A)
		dst := em.intDst(in.Dst)
		var op Op
		switch src.Class {
		case ClassInt:
			op = BoolInt
		case ClassFloat:
			op = BoolFloat
		default:
			op = BoolStr
		}
		if in.Op == ir.Not {
			switch src.Class {
			case ClassInt:
				op = NotInt
			case ClassFloat:
				op = NotFloat
			default:
				op = NotStr
			}
		}
		em.emit(Instr{Op: op, A: dst.Index, B: src.Index})
		em.intDone(in.Dst, dst)

	case ir.Lt, ir.Le, ir.Gt, ir.Ge, ir.Eq, ir.Ne:
		em.lowerCompare(in)

	case ir.Match, ir.MatchConst:
		str := em.coerce(em.reg(in.A), ClassStr)
		dst := em.intDst(in.Dst)
		if in.Op == ir.MatchConst {
			em.emit(Instr{Op: MatchConst, A: dst.Index, B: str.Index, C: lw.kregex(in.Str)})
		} else {
			pat := em.coerce(em.reg(in.B), ClassStr)
			em.emit(Instr{Op: MatchDyn, A: dst.Index, B: str.Index, C: pat.Index})
		}
		em.intDone(in.Dst, dst)

	case ir.CallBuiltin:
		em.lowerBuiltin(in)

	case ir.CallUser:
		em.lowerCall(inst, bi, ii, in)

	case ir.Split:
		kind := em.mapKind(inst, in.Arr)
		src := em.coerce(em.reg(in.A), ClassStr)
		sep := int32(-1)
		if in.B != ir.None {
			sep = em.coerce(em.reg(in.B), ClassStr).Index
		}
		dst := em.intDst(in.Dst)
		em.emit(Instr{Op: Split, A: dst.Index, B: src.Index, C: sep, D: int32(kind), Args: []int32{em.mapRef(in.Arr)}})
		em.intDone(in.Dst, dst)

	case ir.SubstRepl:
		pat := em.coerce(em.reg(in.List[0]), ClassStr)
		repl := em.coerce(em.reg(in.List[1]), ClassStr)
		src := em.coerce(em.reg(in.List[2]), ClassStr)
		count := em.intDst(in.Dst)
		result := em.reg(in.Dst2)
		em.emit(Instr{
			Op: SubstRepl, A: count.Index, B: result.Index, C: int32(in.Imm),
			Args: []int32{pat.Index, repl.Index, src.Index},
		})
		em.intDone(in.Dst, count)

	case ir.ToJSON:
		kind := em.mapKind(inst, in.Arr)
		dst := em.reg(in.Dst)
		em.emit(Instr{Op: ToJSON, A: dst.Index, B: em.mapRef(in.Arr), D: int32(kind)})

	case ir.FromJSON:
		kind := em.mapKind(inst, in.Arr)
		src := em.coerce(em.reg(in.A), ClassStr)
		dst := em.intDst(in.Dst)
		em.emit(Instr{Op: FromJSON, A: dst.Index, B: src.Index, C: em.mapRef(in.Arr), D: int32(kind)})
		em.intDone(in.Dst, dst)

	case ir.SortArr:
		srcKind := em.mapKind(inst, in.Arr)
		destRef := em.mapRef(in.Arr)
		destKind := srcKind
		if len(in.ArrArgs) > 0 {
			destRef = em.mapRef(in.ArrArgs[0])
			destKind = em.mapKind(inst, in.ArrArgs[0])
		}
		dst := em.intDst(in.Dst)
		em.emit(Instr{
			Op: SortArr, A: dst.Index, B: em.mapRef(in.Arr), C: int32(in.Imm),
			Args: []int32{destRef, int32(srcKind), int32(destKind)},
		})
		em.intDone(in.Dst, dst)

	case ir.JoinArr:
		kind := em.mapKind(inst, in.Arr)
		sep := em.coerce(em.reg(in.A), ClassStr)
		dst := em.reg(in.Dst)
		if dst.Class == ClassStr {
			em.emit(Instr{Op: JoinArr, A: dst.Index, B: em.mapRef(in.Arr), C: sep.Index, D: int32(kind)})
		} else {
			tmp := em.scratch(ClassStr)
			em.emit(Instr{Op: JoinArr, A: tmp.Index, B: em.mapRef(in.Arr), C: sep.Index, D: int32(kind)})
			em.mov(dst, tmp)
		}

	case ir.Getline:
		status := em.intDst(in.Dst)
		line := int32(-1)
		if in.Dst2 != ir.None {
			line = em.reg(in.Dst2).Index
		}
		src := int32(-1)
		if in.A != ir.None {
			src = em.coerce(em.reg(in.A), ClassStr).Index
		}
		em.emit(Instr{Op: Getline, A: status.Index, B: line, C: src, D: int32(in.Imm)})
		em.intDone(in.Dst, status)

	case ir.Print, ir.Printf:
		op := Print
		if in.Op == ir.Printf {
			op = Printf
		}
		var args []int32
		for _, t := range in.List {
			r := em.reg(t)
			args = append(args, int32(r.Class), r.Index)
		}
		dest := int32(-1)
		if in.A != ir.None {
			dest = em.coerce(em.reg(in.A), ClassStr).Index
		}
		em.emit(Instr{Op: op, B: dest, D: int32(in.Imm), Args: args})

	default:
		return fmt.Errorf("bytecode: cannot lower ir op %d", in.Op)
	}
	return nil
}

// intDst returns a register to receive an int-producing instruction's
// result, using the destination directly when it is already an int.
func (em *emitter) intDst(t ir.Temp) RegRef {
	dst := em.reg(t)
	if dst.Class == ClassInt {
		return dst
	}
	return em.scratch(ClassInt)
}

// intDone moves the produced int into the real destination if intDst
// handed out a scratch register.
func (em *emitter) intDone(t ir.Temp, got RegRef) {
	dst := em.reg(t)
	if dst != got {
		em.mov(dst, got)
	}
}

func loadGlobalOp(c Class) Op {
	switch c {
	case ClassInt:
		return LoadGlobalInt
	case ClassFloat:
		return LoadGlobalFloat
	default:
		return LoadGlobalStr
	}
}

func storeGlobalOp(c Class) Op {
	switch c {
	case ClassInt:
		return StoreGlobalInt
	case ClassFloat:
		return StoreGlobalFloat
	default:
		return StoreGlobalStr
	}
}

func (em *emitter) lowerArith(inst *infer.Instance, in *ir.Instr) {
	dst := em.reg(in.Dst)
	var intOp, floatOp Op
	switch in.Op {
	case ir.Add:
		intOp, floatOp = AddInt, AddFloat
	case ir.Sub:
		intOp, floatOp = SubInt, SubFloat
	case ir.Mul:
		intOp, floatOp = MulInt, MulFloat
	case ir.Mod:
		intOp, floatOp = ModInt, ModFloat
	}
	if dst.Class == ClassInt {
		a := em.coerce(em.reg(in.A), ClassInt)
		b := em.coerce(em.reg(in.B), ClassInt)
		em.emit(Instr{Op: intOp, A: dst.Index, B: a.Index, C: b.Index})
		return
	}
	a := em.coerce(em.reg(in.A), ClassFloat)
	b := em.coerce(em.reg(in.B), ClassFloat)
	if dst.Class == ClassFloat {
		em.emit(Instr{Op: floatOp, A: dst.Index, B: a.Index, C: b.Index})
	} else {
		tmp := em.scratch(ClassFloat)
		em.emit(Instr{Op: floatOp, A: tmp.Index, B: a.Index, C: b.Index})
		em.mov(dst, tmp)
	}
}

func (em *emitter) lowerCompare(in *ir.Instr) {
	a := em.reg(in.A)
	b := em.reg(in.B)

	// Compare as strings only when both sides are strings; a numeric
	// operand pulls the comparison into numbers.
	var cls Class
	switch {
	case a.Class == ClassStr && b.Class == ClassStr:
		cls = ClassStr
	case a.Class == ClassInt && b.Class == ClassInt:
		cls = ClassInt
	default:
		cls = ClassFloat
	}
	a = em.coerce(a, cls)
	b = em.coerce(b, cls)

	var op Op
	switch in.Op {
	case ir.Lt:
		op = pick(cls, LtInt, LtFloat, LtStr)
	case ir.Le:
		op = pick(cls, LeInt, LeFloat, LeStr)
	case ir.Gt:
		op = pick(cls, GtInt, GtFloat, GtStr)
	case ir.Ge:
		op = pick(cls, GeInt, GeFloat, GeStr)
	case ir.Eq:
		op = pick(cls, EqInt, EqFloat, EqStr)
	case ir.Ne:
		op = pick(cls, NeInt, NeFloat, NeStr)
	}
	dst := em.intDst(in.Dst)
	em.emit(Instr{Op: op, A: dst.Index, B: a.Index, C: b.Index})
	em.intDone(in.Dst, dst)
}

func pick(c Class, i, f, s Op) Op {
	switch c {
	case ClassInt:
		return i
	case ClassFloat:
		return f
	default:
		return s
	}
}

// sigByBuiltin is the reverse index of ir.Builtins.
var sigByBuiltin = func() map[ir.Builtin]ir.Sig {
	m := make(map[ir.Builtin]ir.Sig)
	for _, sig := range ir.Builtins {
		m[sig.Builtin] = sig
	}
	return m
}()

// builtinNative gives the register class a builtin produces natively.
func builtinNative(b ir.Builtin) Class {
	switch b {
	case ir.BLength, ir.BIndex, ir.BMatchPos, ir.BStrcmp, ir.BIsInt, ir.BIsNum,
		ir.BSystime, ir.BMktime, ir.BSystem, ir.BClose, ir.BFflush, ir.BCRC32,
		ir.BInt, ir.BSrand, ir.BMkBool:
		return ClassInt
	case ir.BSin, ir.BCos, ir.BAtan2, ir.BExp, ir.BLog, ir.BSqrt, ir.BRand, ir.BStrtonum:
		return ClassFloat
	default:
		return ClassStr
	}
}

// pairsBuiltin reports whether the builtin takes class-tagged arguments.
func pairsBuiltin(b ir.Builtin) bool {
	switch b {
	case ir.BSprintf, ir.BMin, ir.BMax:
		return true
	default:
		return false
	}
}

func (em *emitter) lowerBuiltin(in *ir.Instr) {
	b := ir.Builtin(in.Imm)
	sig := sigByBuiltin[b]

	var args []int32
	pairs := pairsBuiltin(b)
	for i, t := range in.List {
		r := em.reg(t)
		if pairs {
			if i == 0 && b == ir.BSprintf {
				r = em.coerce(r, ClassStr)
			}
			args = append(args, int32(r.Class), r.Index)
			continue
		}
		switch sig.ArgKind(i) {
		case ir.KindNum:
			r = em.coerce(r, ClassFloat)
		case ir.KindStr:
			r = em.coerce(r, ClassStr)
		}
		args = append(args, r.Index)
	}

	native := builtinNative(b)
	flags := int32(0)
	if pairs {
		flags = 1
	}
	dst := em.reg(in.Dst)
	if b == ir.BMin || b == ir.BMax {
		// min/max: string mode when the result type joined to string.
		if dst.Class == ClassStr {
			native = ClassStr
			flags |= 2
		} else {
			native = ClassFloat
		}
	}

	if dst.Class == native {
		em.emit(Instr{Op: CallB, A: dst.Index, B: int32(b), D: flags, Args: args})
	} else {
		tmp := em.scratch(native)
		em.emit(Instr{Op: CallB, A: tmp.Index, B: int32(b), D: flags, Args: args})
		em.mov(dst, tmp)
	}
}

func (em *emitter) lowerCall(inst *infer.Instance, bi, ii int, in *ir.Instr) {
	target := inst.Target(bi, ii)
	calleeLo := em.lw.layouts[target.ID]

	var args []int32
	for i, t := range in.List {
		want := calleeLo.localReg[i].Class
		r := em.coerce(em.reg(t), want)
		args = append(args, r.Index)
	}
	numScalars := int32(len(args))
	for _, ar := range in.ArrArgs {
		if ar.Slot < 0 {
			args = append(args, FreshMapRef)
		} else {
			args = append(args, em.mapRef(ar))
		}
	}

	retCls := classOf(target.Ret)
	dst := em.reg(in.Dst)
	if dst.Class == retCls {
		em.emit(Instr{Op: CallMono, A: dst.Index, B: int32(target.ID), D: numScalars, Args: args})
	} else {
		tmp := em.scratch(retCls)
		em.emit(Instr{Op: CallMono, A: tmp.Index, B: int32(target.ID), D: numScalars, Args: args})
		em.mov(dst, tmp)
	}
}

func (em *emitter) lowerTerm(inst *infer.Instance, blk *ir.Block) {
	t := blk.Term
	switch t.Kind {
	case ir.TermJump:
		if t.Then == nil {
			// Unreachable continuation block; behave as a bare return.
			em.emit(Instr{Op: Ret, A: -1})
			return
		}
		pc := em.emit(Instr{Op: Jmp})
		em.jumpPatch(pc, 0, t.Then)

	case ir.TermBranch:
		cond := em.coerce(em.reg(t.Cond), ClassInt)
		pc := em.emit(Instr{Op: JmpIf, A: cond.Index})
		em.jumpPatch(pc, 1, t.Then)
		pc = em.emit(Instr{Op: Jmp})
		em.jumpPatch(pc, 0, t.Else)

	case ir.TermIterNext:
		iter := em.reg(t.Iter)
		key := em.reg(t.Key)
		d := int32(0)
		if iter.Class == ClassIterStr {
			d = 1
		}
		pc := em.emit(Instr{Op: IterNext, A: key.Index, B: iter.Index, D: d})
		em.jumpPatch(pc, 2, t.Else)
		pc = em.emit(Instr{Op: Jmp})
		em.jumpPatch(pc, 0, t.Then)

	case ir.TermRet:
		if t.Ret == ir.None {
			em.emit(Instr{Op: Ret, A: -1})
		} else {
			r := em.coerce(em.reg(t.Ret), classOf(inst.Ret))
			em.emit(Instr{Op: Ret, A: r.Index})
		}

	case ir.TermNext:
		em.emit(Instr{Op: NextRec})

	case ir.TermNextFile:
		em.emit(Instr{Op: NextFileRec})

	case ir.TermExit:
		code := int32(-1)
		if t.Ret != ir.None {
			code = em.coerce(em.reg(t.Ret), ClassInt).Index
		}
		em.emit(Instr{Op: Exit, A: code})
	}
}
