// Package ir defines the untyped intermediate representation: a control
// flow graph per function (and per program phase) whose blocks hold
// three-address instructions over untyped temporaries.
//
// The IR is the hand-off point between the front end and the type
// inference pass: names are resolved to slots, builtins to opcodes, and
// control flow to explicit blocks, but every temporary is still untyped.
// Inference assigns each temporary and slot a concrete type; the bytecode
// lowerer then emits typed register instructions from the same graph.
package ir

import "github.com/zawk-lang/zawk/internal/token"

// Temp identifies an untyped temporary within one function. None marks an
// unused operand slot.
type Temp int32

// None is the absent-temp sentinel.
const None Temp = -1

// Op is an IR operation code.
type Op uint8

const (
	Nop Op = iota

	// Constants
	ConstNum // Dst = Num
	ConstStr // Dst = Str

	// Copy joins values produced on different branches (ternary, && and
	// ||): both arms write the same Dst.
	Copy // Dst = A

	// Scalar variables
	LoadGlobal   // Dst = globals[Imm]
	StoreGlobal  // globals[Imm] = A
	LoadLocal    // Dst = locals[Imm]
	StoreLocal   // locals[Imm] = A
	LoadSpecial  // Dst = special(Imm)
	StoreSpecial // special(Imm) = A

	// Record fields
	GetField // Dst = $(A)
	SetField // $(A) = B

	// Arrays
	MapGet      // Dst = Arr[A]
	MapSet      // Arr[A] = B
	MapDelete   // delete Arr[A]
	MapClear    // delete Arr
	MapContains // Dst = A in Arr
	MapLen      // Dst = length(Arr)
	SubsepJoin  // Dst = join(List, SUBSEP)
	IterBegin   // Dst = iterator over Arr's keys

	// Arithmetic
	Add   // Dst = A + B
	Sub   // Dst = A - B
	Mul   // Dst = A * B
	Div   // Dst = A / B
	Mod   // Dst = A % B
	Pow   // Dst = A ^ B
	Neg   // Dst = -A
	ToNum // Dst = +A (numeric coercion)
	Not   // Dst = !A
	Bool  // Dst = A as 0/1

	// Comparison
	Lt // Dst = A < B
	Le // Dst = A <= B
	Gt // Dst = A > B
	Ge // Dst = A >= B
	Eq // Dst = A == B
	Ne // Dst = A != B

	// Strings and regex
	Concat     // Dst = join(List, "")
	Match      // Dst = A ~ B (dynamic pattern)
	MatchConst // Dst = A ~ /Str/

	// Calls
	CallBuiltin // Dst = builtin(Imm)(List)
	CallUser    // Dst = funcs[Imm](List; ArrArgs)
	Split       // Dst = split(A, Arr, B); B == None means FS
	SubstRepl   // Dst = count, Dst2 = result; List = [pattern, repl, source]; Imm = 1 for global
	ToJSON      // Dst = to_json(Arr)
	FromJSON    // Dst = from_json(A, Arr)
	SortArr     // Dst = count; sorts Arr's values (keys when Imm == 1) into ArrArgs[0], or in place
	JoinArr     // Dst = Arr's values in key order joined by A

	// Input
	Getline // Dst = status; Dst2 = line read (None when reading into $0); A = source; Imm = GetlineMode

	// Output
	Print  // print List; A = redirect dest (None for stdout); Imm = RedirectMode
	Printf // printf List; same operands
)

// GetlineMode selects the getline input source.
type GetlineMode int64

const (
	GetlineMain GetlineMode = iota // from the main input stream
	GetlineFile                    // getline < file
	GetlineCmd                     // cmd | getline
)

// RedirectMode selects the print/printf output sink.
type RedirectMode int64

const (
	RedirectNone   RedirectMode = iota
	RedirectWrite                // > file
	RedirectAppend               // >> file
	RedirectPipe                 // | command
)

// Special identifies a special scalar variable.
type Special int64

const (
	SpecNR Special = iota
	SpecFNR
	SpecNF
	SpecFS
	SpecOFS
	SpecORS
	SpecRS
	SpecFILENAME
	SpecSUBSEP
	SpecRSTART
	SpecRLENGTH
	SpecCONVFMT
	SpecOFMT
	NumSpecials
)

// specialNames maps special variable names to their ids.
var specialNames = map[string]Special{
	"NR": SpecNR, "FNR": SpecFNR, "NF": SpecNF,
	"FS": SpecFS, "OFS": SpecOFS, "ORS": SpecORS, "RS": SpecRS,
	"FILENAME": SpecFILENAME, "SUBSEP": SpecSUBSEP,
	"RSTART": SpecRSTART, "RLENGTH": SpecRLENGTH,
	"CONVFMT": SpecCONVFMT, "OFMT": SpecOFMT,
}

// LookupSpecial returns the special id for a name.
func LookupSpecial(name string) (Special, bool) {
	s, ok := specialNames[name]
	return s, ok
}

// IsNumericSpecial reports whether the special holds an integer.
func IsNumericSpecial(s Special) bool {
	switch s {
	case SpecNR, SpecFNR, SpecNF, SpecRSTART, SpecRLENGTH:
		return true
	default:
		return false
	}
}

// Scope distinguishes global from function-local array slots.
type Scope uint8

const (
	ScopeGlobal Scope = iota
	ScopeLocal
)

// ArrayRef names an array by scope and slot.
type ArrayRef struct {
	Scope Scope
	Slot  int32
}

// Instr is a three-address IR instruction. Fields beyond the operands a
// given Op uses are zero.
type Instr struct {
	Op      Op
	Dst     Temp
	Dst2    Temp // second result (SubstRepl, Getline)
	A, B    Temp
	Imm     int64   // slot, builtin id, function id, mode
	Num     float64 // ConstNum payload
	Str     string  // ConstStr payload, MatchConst pattern
	Arr     ArrayRef
	List    []Temp
	ArrArgs []ArrayRef // CallUser array arguments
	Pos     token.Position
}

// TermKind is the kind of a block terminator.
type TermKind uint8

const (
	TermJump     TermKind = iota // unconditional to Then
	TermBranch                   // Cond != 0 -> Then, else Else
	TermIterNext                 // next key from Iter into Key -> Then, exhausted -> Else
	TermRet                      // return Ret (None for bare return)
	TermNext                     // next record
	TermNextFile                 // next input file
	TermExit                     // exit with code Ret (None for 0)
)

// Term is a block terminator.
type Term struct {
	Kind TermKind
	Cond Temp
	Iter Temp
	Key  Temp
	Ret  Temp
	Then *Block
	Else *Block
}

// Block is a basic block: a straight-line instruction sequence ending in
// one terminator.
type Block struct {
	ID     int
	Instrs []Instr
	Term   Term
}

// Func is one compiled unit: a user function, a rule pattern, a rule body,
// or a BEGIN/END phase. Patterns are functions whose return value is the
// match result.
type Func struct {
	Name string

	// Params: scalar parameters come first in LocalScalars, array
	// parameters first in LocalArrays; ScalarParams and ArrayParams count
	// them. Extra locals follow (the AWK extra-parameter convention).
	ScalarParams int
	ArrayParams  int

	LocalScalars []string // slot -> name
	LocalArrays  []string // slot -> name

	// ParamOrder records, for each declared parameter in source order,
	// whether it is an array and its slot in the corresponding space.
	ParamOrder []ParamSlot

	Entry    *Block
	Blocks   []*Block
	NumTemps int
}

// ParamSlot locates one declared parameter.
type ParamSlot struct {
	IsArray bool
	Slot    int32
}

// Rule is one compiled pattern-action rule.
type Rule struct {
	Pattern    *Func // nil matches every record
	PatternEnd *Func // non-nil for range patterns
	Body       *Func // nil means default action { print $0 }
}

// Reduction is a resolved @reduce declaration.
type Reduction struct {
	Op      ReduceOp
	IsArray bool
	Slot    int32
}

// ReduceOp mirrors ast.ReduceOp at the IR level.
type ReduceOp uint8

const (
	ReduceSum ReduceOp = iota
	ReduceMin
	ReduceMax
	ReduceConcat
)

// Program is the fully built, still untyped program.
type Program struct {
	Begin *Func
	Rules []*Rule
	End   *Func
	Funcs []*Func // user functions; CallUser Imm indexes here

	GlobalScalars []string // slot -> name
	GlobalArrays  []string // slot -> name (ENVIRON and ARGV are pre-defined)

	Reduces []Reduction

	// MainScalarWrites and MainArrayWrites list global slots the main
	// phase (patterns, bodies, and every user function) writes.
	// The parallel driver rejects writes outside declared reductions.
	MainScalarWrites []int32
	MainArrayWrites  []int32
}

// Predefined global array slots.
const (
	ArrEnviron int32 = 0
	ArrArgv    int32 = 1
)

// NewBlock appends a fresh block to fn and returns it.
func (fn *Func) NewBlock() *Block {
	b := &Block{ID: len(fn.Blocks)}
	fn.Blocks = append(fn.Blocks, b)
	return b
}

// NewTemp allocates a fresh temporary.
func (fn *Func) NewTemp() Temp {
	t := Temp(fn.NumTemps)
	fn.NumTemps++
	return t
}
