package zawk

import (
	"io"

	"github.com/zawk-lang/zawk/internal/bytecode"
	"github.com/zawk-lang/zawk/internal/infer"
	"github.com/zawk-lang/zawk/internal/ir"
	"github.com/zawk-lang/zawk/internal/parser"
)

// Version is the zawk version string.
const Version = "0.1.0"

// Run executes a program with the given input and returns its output.
// This is a convenience for one-off execution; compile once with Compile
// and reuse the Program for repeated runs.
//
// Example:
//
//	output, err := zawk.Run(`{ print $1 }`, strings.NewReader("hello world"), nil)
//	// output: "hello\n"
func Run(program string, input io.Reader, config *Config) (string, error) {
	prog, err := Compile(program)
	if err != nil {
		return "", err
	}
	return prog.Run(input, config)
}

// Compile parses, builds, types and lowers a program. The returned
// Program can be executed any number of times with different inputs.
//
// The pipeline is: parse to an AST, build the untyped CFG, run type
// inference with monomorphization, lower to typed register bytecode.
// Parse errors and type errors (scalar/array confusion, bad builtin
// calls) are reported here, before any execution.
func Compile(program string) (*Program, error) {
	astProg, err := parser.Parse(program)
	if err != nil {
		if pe, ok := err.(*parser.ParseError); ok {
			return nil, &ParseError{
				Line:    pe.Pos.Line,
				Column:  pe.Pos.Column,
				Message: pe.Message,
			}
		}
		return nil, &ParseError{Message: err.Error()}
	}

	irProg, err := ir.Build(astProg)
	if err != nil {
		if ce, ok := err.(*ir.CompileError); ok {
			return nil, &TypeError{
				Line:    ce.Pos.Line,
				Column:  ce.Pos.Column,
				Message: ce.Message,
			}
		}
		return nil, &TypeError{Message: err.Error()}
	}

	typed, err := infer.Program(irProg)
	if err != nil {
		return nil, &TypeError{Message: err.Error()}
	}

	compiled, err := bytecode.Lower(typed)
	if err != nil {
		return nil, &TypeError{Message: err.Error()}
	}

	return &Program{
		compiled: compiled,
		typed:    typed,
		source:   program,
	}, nil
}

// Exec compiles and runs a program, writing output to the given writer.
//
// Example:
//
//	err := zawk.Exec(`{ print toupper($0) }`, os.Stdin, os.Stdout, nil)
func Exec(program string, input io.Reader, output io.Writer, config *Config) error {
	prog, err := Compile(program)
	if err != nil {
		return err
	}
	if config == nil {
		config = &Config{}
	}
	config.Output = output
	_, err = prog.Run(input, config)
	return err
}

// MustCompile is like Compile but panics on error; it simplifies
// initialization of package-level programs.
func MustCompile(program string) *Program {
	prog, err := Compile(program)
	if err != nil {
		panic(err)
	}
	return prog
}
