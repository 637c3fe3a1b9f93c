package interp

import (
	"math"
	"os/exec"
	"time"

	"github.com/zawk-lang/zawk/internal/bytecode"
	"github.com/zawk-lang/zawk/internal/ir"
	"github.com/zawk-lang/zawk/internal/runtime"
)

// callBuiltin dispatches a CallB instruction. Plain builtins receive
// float and string registers per their signature; sprintf and min/max
// take class-tagged argument pairs.
func (in *Interp) callBuiltin(fr *frame, instr *bytecode.Instr) error {
	b := ir.Builtin(instr.B)

	numArg := func(i int) float64 { return fr.floats[instr.Args[i]] }
	strArg := func(i int) string { return fr.strs[instr.Args[i]] }
	n := len(instr.Args)

	switch b {
	case ir.BLength:
		fr.ints[instr.A] = int64(len(strArg(0)))

	case ir.BSubstr:
		length := 1 << 30
		if n >= 3 {
			length = int(numArg(2))
		}
		fr.strs[instr.A] = runtime.Substr(strArg(0), int(numArg(1)), length)

	case ir.BIndex:
		fr.ints[instr.A] = int64(runtime.Index(strArg(0), strArg(1)))

	case ir.BMatchPos:
		pos, length, err := runtime.MatchPos(in.regexCache, strArg(0), strArg(1))
		if err != nil {
			return runtimeErrf("invalid regex %q: %v", strArg(1), err)
		}
		in.rstart = int64(pos)
		in.rlength = int64(length)
		fr.ints[instr.A] = int64(pos)

	case ir.BSprintf:
		format, args := in.pairArgs(fr, instr.Args)
		fr.strs[instr.A] = runtime.Sprintf(format, args, in.convfmt)

	case ir.BSin:
		fr.floats[instr.A] = math.Sin(numArg(0))
	case ir.BCos:
		fr.floats[instr.A] = math.Cos(numArg(0))
	case ir.BAtan2:
		fr.floats[instr.A] = math.Atan2(numArg(0), numArg(1))
	case ir.BExp:
		fr.floats[instr.A] = math.Exp(numArg(0))
	case ir.BLog:
		fr.floats[instr.A] = math.Log(numArg(0))
	case ir.BSqrt:
		fr.floats[instr.A] = math.Sqrt(numArg(0))
	case ir.BInt:
		fr.ints[instr.A] = truncToInt(numArg(0))

	case ir.BRand:
		fr.floats[instr.A] = in.rng.Float64()
	case ir.BSrand:
		prev := in.rngSeed
		var seed int64
		if n >= 1 {
			seed = int64(numArg(0))
		} else {
			seed = time.Now().UnixNano()
		}
		in.rngSeed = seed
		in.rng = newRand(seed)
		fr.ints[instr.A] = prev

	case ir.BTolower:
		fr.strs[instr.A] = runtime.ToLower(strArg(0))
	case ir.BToupper:
		fr.strs[instr.A] = runtime.ToUpper(strArg(0))

	case ir.BSystem:
		in.flushOutput()
		cmd := exec.Command("sh", "-c", strArg(0))
		cmd.Stdout = in.rawOut
		cmd.Stderr = in.errOut
		if err := cmd.Run(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				fr.ints[instr.A] = int64(exitErr.ExitCode())
			} else {
				fr.ints[instr.A] = 1
			}
		} else {
			fr.ints[instr.A] = 0
		}

	case ir.BClose:
		fr.ints[instr.A] = int64(in.ioman.Close(strArg(0)))
	case ir.BFflush:
		if n >= 1 {
			fr.ints[instr.A] = int64(in.ioman.Flush(strArg(0)))
		} else {
			in.flushOutput()
			fr.ints[instr.A] = int64(in.ioman.Flush(""))
		}

	case ir.BTrim:
		fr.strs[instr.A] = runtime.Trim(strArg(0))
	case ir.BPadLeft:
		pad := " "
		if n >= 3 {
			pad = strArg(2)
		}
		fr.strs[instr.A] = runtime.PadLeft(strArg(0), int(numArg(1)), pad)
	case ir.BPadRight:
		pad := " "
		if n >= 3 {
			pad = strArg(2)
		}
		fr.strs[instr.A] = runtime.PadRight(strArg(0), int(numArg(1)), pad)
	case ir.BRepeat:
		fr.strs[instr.A] = runtime.Repeat(strArg(0), int(numArg(1)))
	case ir.BStrtonum:
		fr.floats[instr.A] = runtime.ParseNumPrefix(strArg(0))
	case ir.BIsInt:
		fr.ints[instr.A] = boolInt(runtime.IsInt(strArg(0)))
	case ir.BIsNum:
		fr.ints[instr.A] = boolInt(runtime.IsNum(strArg(0)))
	case ir.BStrcmp:
		fr.ints[instr.A] = int64(runtime.Strcmp(strArg(0), strArg(1)))

	case ir.BSystime:
		fr.ints[instr.A] = runtime.Systime()
	case ir.BStrftime:
		format := ""
		ts := runtime.Systime()
		if n >= 1 {
			format = strArg(0)
		}
		if n >= 2 {
			ts = int64(numArg(1))
		}
		fr.strs[instr.A] = runtime.Strftime(format, ts)
	case ir.BMktime:
		fr.ints[instr.A] = runtime.Mktime(strArg(0))

	case ir.BMD5:
		fr.strs[instr.A] = runtime.MD5(strArg(0))
	case ir.BSHA1:
		fr.strs[instr.A] = runtime.SHA1(strArg(0))
	case ir.BSHA256:
		fr.strs[instr.A] = runtime.SHA256(strArg(0))
	case ir.BCRC32:
		fr.ints[instr.A] = runtime.CRC32(strArg(0))

	case ir.BEscapeCSV:
		fr.strs[instr.A] = runtime.EscapeCSV(strArg(0))
	case ir.BEscapeTSV:
		fr.strs[instr.A] = runtime.EscapeTSV(strArg(0))

	case ir.BMkBool:
		fr.ints[instr.A] = runtime.MkBool(strArg(0))

	case ir.BMin, ir.BMax:
		in.minMax(fr, instr, b == ir.BMin)

	default:
		return runtimeErrf("unknown builtin %d", int(b))
	}
	return nil
}

// pairArgs decodes class-tagged [class, reg, ...] arguments into values;
// the first value's string form is returned separately for sprintf.
func (in *Interp) pairArgs(fr *frame, args []int32) (string, []runtime.Value) {
	var vals []runtime.Value
	for i := 0; i+1 < len(args); i += 2 {
		switch bytecode.Class(args[i]) {
		case bytecode.ClassInt:
			vals = append(vals, runtime.IntValue(fr.ints[args[i+1]]))
		case bytecode.ClassFloat:
			vals = append(vals, runtime.FloatValue(fr.floats[args[i+1]]))
		default:
			vals = append(vals, runtime.StrValue(fr.strs[args[i+1]]))
		}
	}
	if len(vals) == 0 {
		return "", nil
	}
	return vals[0].Str(in.convfmt), vals[1:]
}

// minMax implements min/max over 2 or 3 operands, comparing numerically
// unless the result type joined to string.
func (in *Interp) minMax(fr *frame, instr *bytecode.Instr, isMin bool) {
	_, vals := in.pairArgsAll(fr, instr.Args)
	strMode := instr.D&2 != 0

	if strMode {
		best := vals[0].Str(in.convfmt)
		for _, v := range vals[1:] {
			s := v.Str(in.convfmt)
			if (isMin && s < best) || (!isMin && s > best) {
				best = s
			}
		}
		fr.strs[instr.A] = best
		return
	}

	best := vals[0].Num()
	for _, v := range vals[1:] {
		n := v.Num()
		if (isMin && n < best) || (!isMin && n > best) {
			best = n
		}
	}
	fr.floats[instr.A] = best
}

// pairArgsAll decodes class-tagged arguments without splitting off a
// format string.
func (in *Interp) pairArgsAll(fr *frame, args []int32) (int, []runtime.Value) {
	var vals []runtime.Value
	for i := 0; i+1 < len(args); i += 2 {
		switch bytecode.Class(args[i]) {
		case bytecode.ClassInt:
			vals = append(vals, runtime.IntValue(fr.ints[args[i+1]]))
		case bytecode.ClassFloat:
			vals = append(vals, runtime.FloatValue(fr.floats[args[i+1]]))
		default:
			vals = append(vals, runtime.StrValue(fr.strs[args[i+1]]))
		}
	}
	return len(vals), vals
}
