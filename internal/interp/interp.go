// Package interp executes lowered bytecode: a switch-dispatched register
// machine per monomorphized instance, driven by a record loop that feeds
// it split records. Execution is single-threaded within one interpreter;
// the parallel driver runs one interpreter per shard.
package interp

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/zawk-lang/zawk/internal/bytecode"
	"github.com/zawk-lang/zawk/internal/output"
	"github.com/zawk-lang/zawk/internal/records"
	"github.com/zawk-lang/zawk/internal/runtime"
)

// Control-flow sentinels. next/nextfile unwind to the record loop; exit
// unwinds to Run, which still executes END.
var (
	errNext     = errors.New("next")
	errNextFile = errors.New("nextfile")
)

// ExitError reports an explicit exit status from the program.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

// RuntimeError is a fatal error raised by an opcode: integer division by
// zero, a regex that fails to compile at its first use, unrecoverable
// I/O.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

func runtimeErrf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// NamedInput is one input source; Name feeds FILENAME.
type NamedInput struct {
	Name   string
	Reader io.Reader
}

// Config configures one interpreter.
type Config struct {
	FS  string
	RS  string
	OFS string
	ORS string

	InputMode  records.Mode
	OutputMode output.Mode

	Vars map[string]string // -v assignments, applied before BEGIN
	Args []string          // ARGV

	Inputs []NamedInput
	Output io.Writer
	Errors io.Writer

	POSIXRegex bool
	RandSeed   int64 // 0 means seed from the clock

	// SkipBegin suppresses the BEGIN phase; the parallel driver runs
	// BEGIN once in the coordinator and clones the resulting state.
	SkipBegin bool
	// SkipEnd suppresses the END phase the same way.
	SkipEnd bool
}

// Interp executes one compiled program over one input stream.
type Interp struct {
	prog *bytecode.Program

	// Global scalar slots, one live class per slot.
	gInts   []int64
	gFloats []float64
	gStrs   []string

	// Global arrays, allocated per static kind.
	arrays []any

	// Special variables.
	nr, fnr          int64
	rstart, rlength  int64
	filename         string
	fs, ofs, ors, rs string
	subsep           string
	convfmt, ofmt    string

	// Record state with lazy field materialization.
	line       string
	fields     []string
	haveFields bool
	numFields  int
	haveNF     bool

	// Input
	inputs   []NamedInput
	inputIdx int
	reader   *records.Reader

	// Output
	out    *output.Writer
	rawOut io.Writer
	errOut io.Writer

	ioman      *runtime.IOManager
	regexCache *runtime.RegexCache
	regexes    []*runtime.Regex // compiled lazily from the pool
	rng        *rand.Rand
	rngSeed    int64

	rangeActive []bool

	inputMode records.Mode
	skipBegin bool
	skipEnd   bool
}

// New creates an interpreter for prog with the given configuration.
func New(prog *bytecode.Program, cfg Config) *Interp {
	in := &Interp{
		prog:    prog,
		gInts:   make([]int64, len(prog.GlobalClass)),
		gFloats: make([]float64, len(prog.GlobalClass)),
		gStrs:   make([]string, len(prog.GlobalClass)),
		arrays:  make([]any, len(prog.GlobalMaps)),

		fs: " ", ofs: " ", ors: "\n", rs: "\n",
		subsep:  "\x1c",
		convfmt: runtime.DefaultConvFmt,
		ofmt:    runtime.DefaultConvFmt,

		inputs: cfg.Inputs,
		ioman:  runtime.NewIOManager(),
		regexCache: runtime.NewRegexCache(1000,
			runtime.RegexConfig{POSIX: cfg.POSIXRegex}),
		regexes:     make([]*runtime.Regex, len(prog.Regexes)),
		rangeActive: make([]bool, len(prog.Rules)),
		inputMode:   cfg.InputMode,
		skipBegin:   cfg.SkipBegin,
		skipEnd:     cfg.SkipEnd,
	}

	for i, kind := range prog.GlobalMaps {
		in.arrays[i] = newMap(kind)
	}

	if cfg.FS != "" {
		in.fs = cfg.FS
	}
	if cfg.RS != "" {
		in.rs = cfg.RS
	}
	if cfg.OFS != "" {
		in.ofs = cfg.OFS
	}
	if cfg.ORS != "" {
		in.ors = cfg.ORS
	}
	switch cfg.InputMode {
	case records.ModeCSV:
		// CSV fields join back with commas when mutated.
		if cfg.OFS == "" {
			in.ofs = ","
		}
	case records.ModeTSV:
		if cfg.FS == "" {
			in.fs = "\t"
		}
		if cfg.OFS == "" {
			in.ofs = "\t"
		}
	}

	seed := cfg.RandSeed
	if seed == 0 {
		seed = clockSeed()
	}
	in.rngSeed = seed
	in.rng = rand.New(rand.NewSource(seed))

	w := cfg.Output
	if w == nil {
		w = os.Stdout
	}
	in.rawOut = w
	in.out = &output.Writer{Out: w, Mode: cfg.OutputMode, OFS: in.ofs, ORS: in.ors}
	in.errOut = cfg.Errors
	if in.errOut == nil {
		in.errOut = os.Stderr
	}

	// ENVIRON from the process environment; mutations stay local.
	env := in.strStrMap(bytecode.GlobalMapRef(0))
	for _, e := range os.Environ() {
		if i := strings.IndexByte(e, '='); i > 0 {
			env.Set(e[:i], e[i+1:])
		}
	}
	argv := in.strStrMap(bytecode.GlobalMapRef(1))
	for i, a := range cfg.Args {
		argv.Set(runtime.FormatInt(int64(i)), a)
	}

	for name, val := range cfg.Vars {
		in.SetVar(name, val)
	}

	return in
}

func newMap(kind bytecode.MapKind) any {
	switch kind {
	case bytecode.MapIntInt:
		return runtime.NewTable[int64, int64]()
	case bytecode.MapIntFloat:
		return runtime.NewTable[int64, float64]()
	case bytecode.MapIntStr:
		return runtime.NewTable[int64, string]()
	case bytecode.MapStrInt:
		return runtime.NewTable[string, int64]()
	case bytecode.MapStrFloat:
		return runtime.NewTable[string, float64]()
	default:
		return runtime.NewTable[string, string]()
	}
}

// SetVar assigns a variable by name before execution (-v and driver
// state cloning). Special names route to the special variables.
func (in *Interp) SetVar(name, value string) bool {
	switch name {
	case "FS":
		in.fs = value
		return true
	case "OFS":
		in.ofs = value
		in.out.OFS = value
		return true
	case "ORS":
		in.ors = value
		in.out.ORS = value
		return true
	case "RS":
		in.rs = value
		return true
	case "SUBSEP":
		in.subsep = value
		return true
	case "CONVFMT":
		in.convfmt = value
		return true
	case "OFMT":
		in.ofmt = value
		return true
	case "FILENAME":
		in.filename = value
		return true
	}
	for slot, n := range in.prog.GlobalNames {
		if n == name {
			switch in.prog.GlobalClass[slot] {
			case bytecode.ClassInt:
				in.gInts[slot] = runtime.ParseIntPrefix(value)
			case bytecode.ClassFloat:
				in.gFloats[slot] = runtime.ParseNumPrefix(value)
			default:
				in.gStrs[slot] = value
			}
			return true
		}
	}
	return false
}

// Run executes the program: BEGIN, the record loop, then END. END runs
// even after exit; an exit inside END wins.
func (in *Interp) Run() error {
	var exitErr *ExitError

	if in.prog.Begin >= 0 && !in.skipBegin {
		if err := in.runInstance(in.prog.Begin); err != nil {
			if ee, ok := asExit(err); ok {
				exitErr = ee
			} else {
				return err
			}
		}
	}

	// The main phase runs when any record-bound rule exists, or when an
	// END block needs the input consumed for NR; it is skipped only when
	// neither applies.
	if exitErr == nil && (len(in.prog.Rules) > 0 || (in.prog.End >= 0 && !in.skipEnd)) {
		if err := in.processRecords(); err != nil {
			if ee, ok := asExit(err); ok {
				exitErr = ee
			} else {
				return err
			}
		}
	}

	if in.prog.End >= 0 && !in.skipEnd {
		if err := in.runInstance(in.prog.End); err != nil {
			if ee, ok := asExit(err); ok {
				return ee
			}
			return err
		}
	}

	in.ioman.CloseAll()
	in.flushOutput()

	if exitErr != nil {
		return exitErr
	}
	return nil
}

// RunEndOnly executes just the END phase; the parallel driver calls this
// on the merged state after all shards finish.
func (in *Interp) RunEndOnly() error {
	if in.prog.End >= 0 {
		if err := in.runInstance(in.prog.End); err != nil {
			if ee, ok := asExit(err); ok {
				if ee.Code != 0 {
					return ee
				}
			} else {
				return err
			}
		}
	}
	in.ioman.CloseAll()
	in.flushOutput()
	return nil
}

func asExit(err error) (*ExitError, bool) {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

func (in *Interp) flushOutput() {
	if f, ok := in.rawOut.(interface{ Flush() error }); ok {
		f.Flush()
	}
}

// runInstance executes a parameterless instance and discards its result.
func (in *Interp) runInstance(id int) error {
	fc := in.prog.Insts[id]
	fr := in.newFrame(fc)
	_, err := in.exec(fr, fc)
	return err
}

// runPattern executes a pattern instance and returns its truth value.
func (in *Interp) runPattern(id int) (bool, error) {
	fc := in.prog.Insts[id]
	fr := in.newFrame(fc)
	ret, err := in.exec(fr, fc)
	if err != nil {
		return false, err
	}
	return ret.i != 0, nil
}

// processRecords is the main phase: read records, run each rule.
func (in *Interp) processRecords() error {
	for {
		rec, ok, err := in.nextRecord()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		in.nr++
		in.fnr++
		in.setRecord(rec)

		if err := in.runRules(); err != nil {
			if errors.Is(err, errNextFile) {
				if err := in.advanceFile(); err != nil {
					return err
				}
				continue
			}
			return err
		}
	}
}

func (in *Interp) runRules() error {
	for i, rule := range in.prog.Rules {
		matched := false
		switch {
		case rule.Pattern < 0:
			matched = true
		case rule.PatternEnd >= 0:
			// Range pattern: stateful across records.
			if !in.rangeActive[i] {
				ok, err := in.runPattern(rule.Pattern)
				if err != nil {
					return err
				}
				if ok {
					in.rangeActive[i] = true
					matched = true
				}
			} else {
				matched = true
			}
			if in.rangeActive[i] {
				ok, err := in.runPattern(rule.PatternEnd)
				if err != nil {
					return err
				}
				if ok {
					in.rangeActive[i] = false
				}
			}
		default:
			ok, err := in.runPattern(rule.Pattern)
			if err != nil {
				return err
			}
			matched = ok
		}

		if !matched {
			continue
		}
		if rule.Body < 0 {
			// Default action: print $0.
			if err := in.out.Raw(in.line); err != nil {
				return runtimeErrf("write error: %v", err)
			}
			continue
		}
		if err := in.runInstance(rule.Body); err != nil {
			if errors.Is(err, errNext) {
				return nil
			}
			return err
		}
	}
	return nil
}

// nextRecord pulls the next record from the current input, moving to the
// next input source at EOF.
func (in *Interp) nextRecord() (records.Record, bool, error) {
	for {
		if in.reader == nil {
			if in.inputIdx >= len(in.inputs) {
				return records.Record{}, false, nil
			}
			src := in.inputs[in.inputIdx]
			rd, err := records.NewReader(src.Reader, in.inputMode, in.rs, in.regexCache)
			if err != nil {
				return records.Record{}, false, runtimeErrf("bad record separator: %v", err)
			}
			in.reader = rd
			in.filename = src.Name
			in.fnr = 0
		}
		rec, ok, err := in.reader.Next()
		if err != nil {
			return records.Record{}, false, runtimeErrf("read error: %v", err)
		}
		if ok {
			return rec, true, nil
		}
		in.reader = nil
		in.inputIdx++
	}
}

// advanceFile drops the rest of the current input source.
func (in *Interp) advanceFile() error {
	in.reader = nil
	in.inputIdx++
	return nil
}

// -----------------------------------------------------------------------------
// Record and field state
// -----------------------------------------------------------------------------

// setRecord installs a new current record. In CSV/TSV mode the fields
// come pre-split from the record engine; in line mode they materialize
// lazily on first field access.
func (in *Interp) setRecord(rec records.Record) {
	in.line = rec.Text
	if rec.Fields != nil {
		in.fields = rec.Fields
		in.haveFields = true
		in.haveNF = true
		in.numFields = len(rec.Fields)
	} else {
		in.fields = in.fields[:0]
		in.haveFields = false
		in.haveNF = false
		in.numFields = 0
	}
}

// ensureFields splits the current record if it has not been split yet.
func (in *Interp) ensureFields() {
	if in.haveFields {
		return
	}
	in.haveFields = true
	in.haveNF = true
	if in.line == "" {
		in.numFields = 0
		return
	}
	in.fields = records.SplitFields(in.line, in.fs, in.regexCache)
	in.numFields = len(in.fields)
}

func (in *Interp) getNF() int64 {
	in.ensureFields()
	return int64(in.numFields)
}

func (in *Interp) getField(idx int64) string {
	if idx <= 0 {
		return in.line
	}
	in.ensureFields()
	if int(idx) <= in.numFields {
		return in.fields[idx-1]
	}
	return ""
}

// setField assigns $idx. Assigning $0 re-splits; assigning a field beyond
// NF extends the field vector with empty strings, and $0 is rebuilt from
// the fields joined by OFS for any field assignment.
func (in *Interp) setField(idx int64, val string) {
	if idx <= 0 {
		in.setRecord(records.Record{Text: val})
		return
	}
	in.ensureFields()
	for int(idx) > in.numFields {
		in.fields = append(in.fields, "")
		in.numFields++
	}
	in.fields[idx-1] = val
	in.rebuildLine()
}

func (in *Interp) rebuildLine() {
	in.line = strings.Join(in.fields[:in.numFields], in.ofs)
}

// setNF truncates or extends the field vector and rebuilds $0.
func (in *Interp) setNF(nf int64) {
	in.ensureFields()
	if nf < 0 {
		nf = 0
	}
	for int(nf) > in.numFields {
		in.fields = append(in.fields, "")
		in.numFields++
	}
	if int(nf) < in.numFields {
		in.fields = in.fields[:nf]
		in.numFields = int(nf)
	}
	in.rebuildLine()
}

func clockSeed() int64 {
	return time.Now().UnixNano()
}
