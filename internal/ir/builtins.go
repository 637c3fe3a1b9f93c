package ir

// Builtin identifies a builtin function compiled to a CallBuiltin
// instruction. split, sub, gsub, to_json, from_json and the array form of
// length have dedicated IR ops and do not appear here.
type Builtin int64

const (
	BLength Builtin = iota // length(s) / length() of $0
	BSubstr                // substr(s, start[, len])
	BIndex                 // index(s, t)
	BMatchPos              // match(s, re): position, sets RSTART/RLENGTH
	BSprintf               // sprintf(fmt, ...)
	BSin
	BCos
	BAtan2
	BExp
	BLog
	BSqrt
	BInt
	BRand
	BSrand // srand([seed])
	BTolower
	BToupper
	BSystem
	BClose
	BFflush // fflush([name])

	// Extended library
	BTrim     // trim(s)
	BPadLeft  // pad_left(s, n[, pad])
	BPadRight // pad_right(s, n[, pad])
	BRepeat   // repeat(s, n)
	BStrtonum // strtonum(s)
	BIsInt    // isint(s)
	BIsNum    // isnum(s)
	BStrcmp   // strcmp(a, b)
	BSystime  // systime()
	BStrftime // strftime([fmt[, ts]])
	BMktime   // mktime(datespec)
	BMD5
	BSHA1
	BSHA256
	BCRC32
	BEscapeCSV
	BEscapeTSV
	BMin    // min(a, b[, c])
	BMax    // max(a, b[, c])
	BMkBool // mkbool(s)
)

// Kind classifies a builtin argument or result for inference and
// coercion insertion.
type Kind uint8

const (
	KindNum Kind = iota
	KindStr
	KindAny // numeric if all numeric operands, else string (min/max)
)

// Sig describes a builtin's arity and types.
type Sig struct {
	Builtin  Builtin
	MinArgs  int
	MaxArgs  int // -1 for variadic
	Params   []Kind
	Variadic Kind // kind of arguments beyond Params when MaxArgs == -1
	Result   Kind
}

// Builtins maps source names to signatures. The IR builder consults this
// table only after user-defined functions, so user functions shadow
// builtins.
var Builtins = map[string]Sig{
	"length":  {BLength, 0, 1, []Kind{KindStr}, 0, KindNum},
	"substr":  {BSubstr, 2, 3, []Kind{KindStr, KindNum, KindNum}, 0, KindStr},
	"index":   {BIndex, 2, 2, []Kind{KindStr, KindStr}, 0, KindNum},
	"match":   {BMatchPos, 2, 2, []Kind{KindStr, KindStr}, 0, KindNum},
	"sprintf": {BSprintf, 1, -1, []Kind{KindStr}, KindAny, KindStr},
	"sin":     {BSin, 1, 1, []Kind{KindNum}, 0, KindNum},
	"cos":     {BCos, 1, 1, []Kind{KindNum}, 0, KindNum},
	"atan2":   {BAtan2, 2, 2, []Kind{KindNum, KindNum}, 0, KindNum},
	"exp":     {BExp, 1, 1, []Kind{KindNum}, 0, KindNum},
	"log":     {BLog, 1, 1, []Kind{KindNum}, 0, KindNum},
	"sqrt":    {BSqrt, 1, 1, []Kind{KindNum}, 0, KindNum},
	"int":     {BInt, 1, 1, []Kind{KindNum}, 0, KindNum},
	"rand":    {BRand, 0, 0, nil, 0, KindNum},
	"srand":   {BSrand, 0, 1, []Kind{KindNum}, 0, KindNum},
	"tolower": {BTolower, 1, 1, []Kind{KindStr}, 0, KindStr},
	"toupper": {BToupper, 1, 1, []Kind{KindStr}, 0, KindStr},
	"system":  {BSystem, 1, 1, []Kind{KindStr}, 0, KindNum},
	"close":   {BClose, 1, 1, []Kind{KindStr}, 0, KindNum},
	"fflush":  {BFflush, 0, 1, []Kind{KindStr}, 0, KindNum},

	"trim":       {BTrim, 1, 1, []Kind{KindStr}, 0, KindStr},
	"pad_left":   {BPadLeft, 2, 3, []Kind{KindStr, KindNum, KindStr}, 0, KindStr},
	"pad_right":  {BPadRight, 2, 3, []Kind{KindStr, KindNum, KindStr}, 0, KindStr},
	"repeat":     {BRepeat, 2, 2, []Kind{KindStr, KindNum}, 0, KindStr},
	"strtonum":   {BStrtonum, 1, 1, []Kind{KindStr}, 0, KindNum},
	"isint":      {BIsInt, 1, 1, []Kind{KindStr}, 0, KindNum},
	"isnum":      {BIsNum, 1, 1, []Kind{KindStr}, 0, KindNum},
	"strcmp":     {BStrcmp, 2, 2, []Kind{KindStr, KindStr}, 0, KindNum},
	"systime":    {BSystime, 0, 0, nil, 0, KindNum},
	"strftime":   {BStrftime, 0, 2, []Kind{KindStr, KindNum}, 0, KindStr},
	"mktime":     {BMktime, 1, 1, []Kind{KindStr}, 0, KindNum},
	"md5":        {BMD5, 1, 1, []Kind{KindStr}, 0, KindStr},
	"sha1":       {BSHA1, 1, 1, []Kind{KindStr}, 0, KindStr},
	"sha256":     {BSHA256, 1, 1, []Kind{KindStr}, 0, KindStr},
	"crc32":      {BCRC32, 1, 1, []Kind{KindStr}, 0, KindNum},
	"escape_csv": {BEscapeCSV, 1, 1, []Kind{KindStr}, 0, KindStr},
	"escape_tsv": {BEscapeTSV, 1, 1, []Kind{KindStr}, 0, KindStr},
	"min":        {BMin, 2, 3, []Kind{KindAny, KindAny, KindAny}, 0, KindAny},
	"max":        {BMax, 2, 3, []Kind{KindAny, KindAny, KindAny}, 0, KindAny},
	"mkbool":     {BMkBool, 1, 1, []Kind{KindStr}, 0, KindNum},
}

// ArgKind returns the kind of argument i for the signature.
func (s Sig) ArgKind(i int) Kind {
	if i < len(s.Params) {
		return s.Params[i]
	}
	return s.Variadic
}
