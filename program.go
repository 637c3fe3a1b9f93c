package zawk

import (
	"bytes"
	"errors"
	"io"

	"github.com/zawk-lang/zawk/internal/bytecode"
	"github.com/zawk-lang/zawk/internal/infer"
	"github.com/zawk-lang/zawk/internal/interp"
	"github.com/zawk-lang/zawk/internal/output"
	"github.com/zawk-lang/zawk/internal/parallel"
	"github.com/zawk-lang/zawk/internal/records"
)

// Program is a compiled program ready for execution. It is safe for
// concurrent use; each run creates an independent execution context.
type Program struct {
	compiled *bytecode.Program
	typed    *infer.Result
	source   string
}

// Input is one named input source; the name feeds FILENAME.
type Input struct {
	Name   string
	Reader io.Reader
}

// Run executes the program over a single input reader. When
// config.Output is nil the output is captured and returned.
func (p *Program) Run(input io.Reader, config *Config) (string, error) {
	if config == nil {
		config = &Config{}
	}
	cfg := *config

	var outputBuf *bytes.Buffer
	if cfg.Output == nil {
		outputBuf = &bytes.Buffer{}
		cfg.Output = outputBuf
	}

	var inputs []Input
	if input != nil {
		inputs = []Input{{Name: "", Reader: input}}
	}
	err := p.RunInputs(inputs, &cfg)
	if outputBuf != nil {
		return outputBuf.String(), err
	}
	return "", err
}

// RunInputs executes the program over a sequence of named inputs,
// writing to config.Output. Parallel execution is selected by
// config.Parallel.
func (p *Program) RunInputs(inputs []Input, config *Config) error {
	if config == nil {
		config = &Config{}
	}
	config.applyDefaults()

	icfg, err := p.interpConfig(inputs, config)
	if err != nil {
		return err
	}

	if config.Parallel > 1 {
		err = parallel.Run(p.compiled, icfg, parallel.Config{Shards: config.Parallel})
	} else {
		err = interp.New(p.compiled, icfg).Run()
	}
	return mapRunError(err)
}

func (p *Program) interpConfig(inputs []Input, config *Config) (interp.Config, error) {
	inMode, ok := records.ParseMode(config.InputMode)
	if !ok {
		return interp.Config{}, &TypeError{Message: "unknown input mode " + config.InputMode}
	}
	outMode, ok := output.ParseMode(config.OutputMode)
	if !ok {
		return interp.Config{}, &TypeError{Message: "unknown output mode " + config.OutputMode}
	}

	icfg := interp.Config{
		InputMode:  inMode,
		OutputMode: outMode,
		Vars:       config.Variables,
		Args:       config.Args,
		Output:     config.Output,
		Errors:     config.Stderr,
		POSIXRegex: config.posix(),
		RandSeed:   config.RandSeed,
	}
	// Defaults stay unset here so the interpreter (and the input modes)
	// can apply their own: TSV sets FS and OFS to tabs, CSV sets OFS to
	// a comma.
	if config.FS != " " {
		icfg.FS = config.FS
	}
	if config.RS != "\n" {
		icfg.RS = config.RS
	}
	if config.OFS != " " {
		icfg.OFS = config.OFS
	}
	if config.ORS != "\n" {
		icfg.ORS = config.ORS
	}
	for _, in := range inputs {
		icfg.Inputs = append(icfg.Inputs, interp.NamedInput{Name: in.Name, Reader: in.Reader})
	}
	return icfg, nil
}

// mapRunError converts internal errors to the public types.
func mapRunError(err error) error {
	if err == nil {
		return nil
	}
	var ee *interp.ExitError
	if errors.As(err, &ee) {
		if ee.Code == 0 {
			return nil
		}
		return &ExitError{Code: ee.Code}
	}
	var sse *parallel.SharedStateError
	if errors.As(err, &sse) {
		return &TypeError{Message: sse.Error()}
	}
	var re *interp.RuntimeError
	if errors.As(err, &re) {
		return &RuntimeError{Message: re.Message}
	}
	return &RuntimeError{Message: err.Error()}
}

// Disassemble returns a readable listing of the compiled bytecode, for
// --dump-bytecode.
func (p *Program) Disassemble() string {
	return p.compiled.Disassemble()
}

// DumpCFG returns the typed control flow graph, for --dump-cfg.
func (p *Program) DumpCFG() string {
	return p.typed.Dump()
}

// Source returns the original program source.
func (p *Program) Source() string {
	return p.source
}

// CheckParallel reports whether the program can run under --parallel,
// returning the shared-state error if not.
func (p *Program) CheckParallel() error {
	if err := parallel.Check(p.compiled); err != nil {
		return &TypeError{Message: err.Error()}
	}
	return nil
}
