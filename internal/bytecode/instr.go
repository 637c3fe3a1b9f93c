// Package bytecode defines the typed, register-addressed instruction set
// and the lowerer that produces it from typed IR.
//
// Registers live in separate files per type class: Int, Float, Str, and
// two iterator classes (int-keyed and string-keyed). Every instruction
// has a fixed shape (opcode plus up to four typed operand fields) with an
// optional argument list for calls, concatenation and print. Control flow
// is by instruction index; the lowerer resolves block labels during
// emission.
package bytecode

import "fmt"

// Op is a bytecode operation.
type Op uint16

const (
	Nop Op = iota

	// Constants: A=dst, B=pool index
	LoadKInt
	LoadKFloat
	LoadKStr

	// Moves: A=dst, B=src (same class)
	MovInt
	MovFloat
	MovStr

	// Conversions: A=dst, B=src
	IntToFloat
	FloatToInt
	IntToStr
	FloatToStr // formats with CONVFMT
	StrToFloat // AWK prefix-numeric parse
	StrToInt

	// Arithmetic: A=dst, B, C
	AddInt
	AddFloat
	SubInt
	SubFloat
	MulInt
	MulFloat
	DivFloat
	ModInt
	ModFloat
	PowFloat
	NegInt // A=dst, B=src
	NegFloat

	// Truthiness and negation: A=dst(int), B=src
	BoolInt
	BoolFloat
	BoolStr
	NotInt
	NotFloat
	NotStr

	// Comparisons: A=dst(int), B, C
	LtInt
	LtFloat
	LtStr
	LeInt
	LeFloat
	LeStr
	GtInt
	GtFloat
	GtStr
	GeInt
	GeFloat
	GeStr
	EqInt
	EqFloat
	EqStr
	NeInt
	NeFloat
	NeStr

	// Strings: A=dst
	ConcatStr  // Args = str regs
	SubsepJoin // Args = str regs; joins with SUBSEP
	MatchConst // A=dst(int), B=str reg, C=regex pool index
	MatchDyn   // A=dst(int), B=str reg, C=pattern str reg

	// Fields
	GetField // A=dst(str), B=index int reg
	SetField // A=index int reg, B=value str reg

	// Special variables: B/A = special id
	LoadSpecInt  // A=dst, B=spec
	LoadSpecStr  // A=dst, B=spec
	StoreSpecInt // A=spec, B=src
	StoreSpecStr // A=spec, B=src

	// Global scalars: slot-addressed, one class per slot
	LoadGlobalInt  // A=dst, B=slot
	LoadGlobalFloat
	LoadGlobalStr
	StoreGlobalInt // A=slot, B=src
	StoreGlobalFloat
	StoreGlobalStr

	// Maps: D = MapKind; map refs encode scope and slot (see MapRef)
	MapGet    // A=dst, B=mapref, C=key reg
	MapSet    // A=mapref, B=key, C=val
	MapDel    // A=mapref, B=key
	MapHas    // A=dst(int), B=mapref, C=key
	MapClear  // A=mapref
	MapLen    // A=dst(int), B=mapref
	IterBegin // A=dst iter reg, B=mapref
	IterNext  // A=key dst reg, B=iter reg, C=jump target when exhausted; D=0 int keys, 1 str keys

	// Control flow: targets are instruction indices
	Jmp    // A=target
	JmpIf  // A=cond int reg, B=target
	JmpNot // A=cond int reg, B=target

	// Calls
	CallMono // A=dst reg (-1 none), B=instance id, D=scalar arg count, Args=[scalar regs..., maprefs...]
	Ret      // A=ret reg (-1 none)
	CallB    // A=dst reg (-1 none), B=builtin id, D=1 if Args are class-tagged pairs, Args
	SubstRepl // A=count dst(int), B=result dst(str), C=1 for gsub, Args=[pat, repl, src] str regs
	Split     // A=dst(int), B=src str, C=sep str reg (-1 for FS), D=MapKind, Args=[mapref]
	ToJSON    // A=dst(str), B=mapref, D=MapKind
	FromJSON  // A=dst(int), B=src str, C=mapref, D=MapKind
	SortArr   // A=dst(int), B=src mapref, C=1 for index sort, Args=[dest mapref, src MapKind, dest MapKind]
	JoinArr   // A=dst(str), B=mapref, C=sep str reg, D=MapKind

	// Input
	Getline // A=status dst(int), B=line dst str (-1 reads into $0), C=src str reg (-1), D=mode

	// Output: Args are class-tagged pairs [class, reg, ...]
	Print  // B=dest str reg (-1 stdout), D=redirect mode
	Printf // same operands

	// Record loop control
	NextRec
	NextFileRec
	Exit // A=code int reg (-1 for 0)
	Halt
)

// Class is a register type class.
type Class uint8

const (
	ClassInt Class = iota
	ClassFloat
	ClassStr
	ClassIterInt
	ClassIterStr
)

// String returns a short class name.
func (c Class) String() string {
	switch c {
	case ClassInt:
		return "i"
	case ClassFloat:
		return "f"
	case ClassStr:
		return "s"
	case ClassIterInt:
		return "ki"
	case ClassIterStr:
		return "ks"
	default:
		return "?"
	}
}

// MapKind enumerates the six concrete array types.
type MapKind uint8

const (
	MapIntInt MapKind = iota
	MapIntFloat
	MapIntStr
	MapStrInt
	MapStrFloat
	MapStrStr
)

// String returns the map kind spelled as key:val.
func (k MapKind) String() string {
	switch k {
	case MapIntInt:
		return "int:int"
	case MapIntFloat:
		return "int:float"
	case MapIntStr:
		return "int:str"
	case MapStrInt:
		return "str:int"
	case MapStrFloat:
		return "str:float"
	case MapStrStr:
		return "str:str"
	default:
		return "?"
	}
}

// IntKeyed reports whether the kind's keys are integers.
func (k MapKind) IntKeyed() bool { return k <= MapIntStr }

// ValClass returns the register class of the kind's values.
func (k MapKind) ValClass() Class {
	switch k {
	case MapIntInt, MapStrInt:
		return ClassInt
	case MapIntFloat, MapStrFloat:
		return ClassFloat
	default:
		return ClassStr
	}
}

// MapRef addresses an array: non-negative values are global slots, a
// negative value -(s+1) is local slot s, and FreshMapRef asks the callee
// for a brand-new empty array (an omitted array argument).
type MapRef = int32

// FreshMapRef marks an omitted array argument in CallMono.
const FreshMapRef MapRef = -1 << 30

// GlobalMapRef builds a MapRef for a global slot.
func GlobalMapRef(slot int32) MapRef { return slot }

// LocalMapRef builds a MapRef for a local slot.
func LocalMapRef(slot int32) MapRef { return -(slot + 1) }

// DecodeMapRef splits a MapRef into (isLocal, slot).
func DecodeMapRef(ref MapRef) (bool, int32) {
	if ref >= 0 {
		return false, ref
	}
	return true, -(ref + 1)
}

// Instr is one bytecode instruction.
type Instr struct {
	Op         Op
	A, B, C, D int32
	Args       []int32
}

// FuncCode is the compiled form of one monomorphized instance.
type FuncCode struct {
	Name string
	Code []Instr

	// Register file sizes.
	NumInt, NumFloat, NumStr int32
	NumIterInt, NumIterStr   int32

	// Local array kinds by slot (array params occupy the low slots).
	LocalMaps []MapKind

	// ScalarParamRegs locates each scalar parameter's register, in slot
	// order; CallMono copies arguments here.
	ScalarParamRegs []RegRef

	// Ret is the register class of the return value.
	Ret Class
}

// RegRef names one register.
type RegRef struct {
	Class Class
	Index int32
}

// RuleCode indexes the instances of one pattern-action rule; -1 marks an
// absent part.
type RuleCode struct {
	Pattern    int
	PatternEnd int
	Body       int
}

// Reduce describes one reduction variable for the parallel driver.
type Reduce struct {
	Op      ReduceOp
	IsArray bool
	Slot    int32
	Kind    MapKind // arrays
	Class   Class   // scalars
}

// ReduceOp is the merge monoid.
type ReduceOp uint8

const (
	ReduceSum ReduceOp = iota
	ReduceMin
	ReduceMax
	ReduceConcat
)

// Program is a complete lowered program.
type Program struct {
	Insts []*FuncCode

	Begin int // instance id, -1 if absent
	End   int
	Rules []RuleCode

	// Constant pools
	Ints    []int64
	Floats  []float64
	Strs    []string
	Regexes []string // compiled lazily at first use

	// Global scalar slots: one class per slot, register files are
	// slot-indexed per class.
	GlobalClass []Class
	GlobalNames []string

	// Global arrays
	GlobalMaps []MapKind
	MapNames   []string

	Reduces []Reduce

	// Slots the main phase writes, for the parallel driver's shared-state
	// check.
	MainScalarWrites []int32
	MainArrayWrites  []int32
}

// fmtReg renders a register operand for disassembly.
func fmtReg(c Class, idx int32) string {
	return fmt.Sprintf("%s%d", c, idx)
}
