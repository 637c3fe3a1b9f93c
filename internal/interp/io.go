package interp

import (
	"bufio"
	"io"
	"math/rand"
	"strings"

	"github.com/zawk-lang/zawk/internal/bytecode"
	"github.com/zawk-lang/zawk/internal/ir"
	"github.com/zawk-lang/zawk/internal/output"
	"github.com/zawk-lang/zawk/internal/records"
	"github.com/zawk-lang/zawk/internal/runtime"
)

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// getline implements every getline form. Failures are soft: the status
// register reports 1 on success, 0 at EOF and -1 on error; execution
// continues either way.
func (in *Interp) getline(fr *frame, instr *bytecode.Instr) {
	mode := ir.GetlineMode(instr.D)
	hasTarget := instr.B >= 0

	switch mode {
	case ir.GetlineMain:
		rec, ok, err := in.nextRecord()
		if err != nil {
			fr.ints[instr.A] = -1
			return
		}
		if !ok {
			fr.ints[instr.A] = 0
			return
		}
		in.nr++
		in.fnr++
		if hasTarget {
			fr.strs[instr.B] = rec.Text
		} else {
			in.setRecord(rec)
		}
		fr.ints[instr.A] = 1

	case ir.GetlineFile:
		sc, err := in.ioman.GetInputFile(fr.strs[instr.C])
		if err != nil {
			fr.ints[instr.A] = -1
			return
		}
		in.getlineScan(fr, instr, sc, false)

	case ir.GetlineCmd:
		in.flushOutput()
		sc, err := in.ioman.GetInputPipe(fr.strs[instr.C])
		if err != nil {
			fr.ints[instr.A] = -1
			return
		}
		in.getlineScan(fr, instr, sc, true)
	}
}

func (in *Interp) getlineScan(fr *frame, instr *bytecode.Instr, sc *bufio.Scanner, bumpNR bool) {
	if !sc.Scan() {
		if sc.Err() != nil {
			fr.ints[instr.A] = -1
		} else {
			fr.ints[instr.A] = 0
		}
		return
	}
	line := sc.Text()
	if bumpNR {
		in.nr++
	}
	if instr.B >= 0 {
		fr.strs[instr.B] = line
	} else {
		in.setRecord(records.Record{Text: line})
	}
	fr.ints[instr.A] = 1
}

// print handles Print and Printf with optional redirection. Within one
// engine instance output appears in program order.
func (in *Interp) print(fr *frame, instr *bytecode.Instr, isPrintf bool) error {
	var w io.Writer = in.rawOut
	redirected := false
	if instr.B >= 0 {
		dest := fr.strs[instr.B]
		var err error
		switch ir.RedirectMode(instr.D) {
		case ir.RedirectWrite:
			w, err = in.ioman.GetOutputFile(dest, false)
		case ir.RedirectAppend:
			w, err = in.ioman.GetOutputFile(dest, true)
		case ir.RedirectPipe:
			in.flushOutput()
			w, err = in.ioman.GetOutputPipe(dest)
		}
		if err != nil {
			return runtimeErrf("cannot open %q: %v", dest, err)
		}
		redirected = true
	}

	_, vals := in.pairArgsAll(fr, instr.Args)

	if isPrintf {
		if len(vals) == 0 {
			return nil
		}
		format := vals[0].Str(in.convfmt)
		s := runtime.Sprintf(format, vals[1:], in.convfmt)
		if _, err := io.WriteString(w, s); err != nil {
			return runtimeErrf("write error: %v", err)
		}
		return nil
	}

	// print: no arguments means $0.
	if len(vals) == 0 {
		if !redirected {
			if err := in.out.Raw(in.line); err != nil {
				return runtimeErrf("write error: %v", err)
			}
			return nil
		}
		if _, err := io.WriteString(w, in.line+in.ors); err != nil {
			return runtimeErrf("write error: %v", err)
		}
		return nil
	}

	fields := make([]string, len(vals))
	for i, v := range vals {
		// print formats floats with OFMT, not CONVFMT.
		fields[i] = v.Str(in.ofmt)
	}
	if !redirected {
		if err := in.out.Record(fields); err != nil {
			return runtimeErrf("write error: %v", err)
		}
		return nil
	}
	line := strings.Join(fields, in.ofs)
	if in.out.Mode == output.ModeCSV {
		line = output.JoinCSV(fields)
	} else if in.out.Mode == output.ModeTSV {
		line = output.JoinTSV(fields)
	}
	if _, err := io.WriteString(w, line+in.ors); err != nil {
		return runtimeErrf("write error: %v", err)
	}
	return nil
}
