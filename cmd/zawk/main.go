// zawk - an AWK-compatible stream processing language.
//
// Arguments are parsed by hand rather than with the flag package so that
// POSIX-style flags with no separating space (-F:, -vx=1) work.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/zawk-lang/zawk"
)

// version is set at build time via -ldflags.
var version = "dev"

// Exit codes: 0 success, 1 runtime error, 2 compile error, 3 usage error.
const (
	exitRuntime = 1
	exitCompile = 2
	exitUsage   = 3
)

const (
	shortUsage = "usage: zawk [-F fs] [-v var=value] [-i mode] [-o mode] [-f progfile | 'prog'] [file ...]"
	longUsage  = `Standard arguments:
  -F separator      field separator (default " ")
  -f progfile       load program source from progfile (multiple allowed)
  -v var=value      variable assignment (multiple allowed)

Input and output:
  -i mode           input mode: csv, tsv
  -o mode           output mode: csv, tsv

Execution:
  --parallel N      shard the input across N workers (default 1)
  --posix           POSIX leftmost-longest regex matching (default)
  --no-posix        faster leftmost-first regex matching

Debugging:
  --dump-bytecode   print compiled bytecode to stderr and exit
  --dump-cfg        print the typed control flow graph to stderr and exit

Other:
  -h, --help        show this help message
  --version         show version and exit
`
)

func main() {
	var progFiles []string
	var vars []string
	fieldSep := " "
	inputMode := ""
	outputMode := ""
	parallel := 1
	dumpBytecode := false
	dumpCFG := false
	var posixRegex *bool

	var i int
	for i = 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		if arg == "--" {
			i++
			break
		}
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			break
		}

		switch arg {
		case "-F":
			fieldSep = nextArg(&i, "-F")
		case "-f":
			progFiles = append(progFiles, nextArg(&i, "-f"))
		case "-v":
			vars = append(vars, nextArg(&i, "-v"))
		case "-i":
			inputMode = nextArg(&i, "-i")
		case "-o":
			outputMode = nextArg(&i, "-o")
		case "--parallel":
			n, err := strconv.Atoi(nextArg(&i, "--parallel"))
			if err != nil || n < 1 {
				usageExitf("invalid shard count for --parallel")
			}
			parallel = n
		case "--dump-bytecode":
			dumpBytecode = true
		case "--dump-cfg":
			dumpCFG = true
		case "--posix":
			t := true
			posixRegex = &t
		case "--no-posix":
			f := false
			posixRegex = &f
		case "-h", "--help":
			fmt.Printf("zawk %s\n\n%s\n\n%s", version, shortUsage, longUsage)
			os.Exit(0)
		case "--version", "-version":
			fmt.Printf("zawk version %s\n", version)
			os.Exit(0)
		default:
			// Flags with no space: -F:, -ffile, -vvar=val, -icsv
			switch {
			case strings.HasPrefix(arg, "-F"):
				fieldSep = arg[2:]
			case strings.HasPrefix(arg, "-f"):
				progFiles = append(progFiles, arg[2:])
			case strings.HasPrefix(arg, "-v"):
				vars = append(vars, arg[2:])
			case strings.HasPrefix(arg, "-i"):
				inputMode = arg[2:]
			case strings.HasPrefix(arg, "-o"):
				outputMode = arg[2:]
			case strings.HasPrefix(arg, "--parallel="):
				n, err := strconv.Atoi(arg[len("--parallel="):])
				if err != nil || n < 1 {
					usageExitf("invalid shard count for --parallel")
				}
				parallel = n
			default:
				usageExitf("flag provided but not defined: %s", arg)
			}
		}
	}

	args := os.Args[i:]

	var program string
	var inputFiles []string
	if len(progFiles) > 0 {
		var sb strings.Builder
		for _, f := range progFiles {
			content, err := os.ReadFile(f)
			if err != nil {
				usageExitf("cannot read program file %s: %v", f, err)
			}
			sb.Write(content)
			sb.WriteByte('\n')
		}
		program = sb.String()
		inputFiles = args
	} else if len(args) > 0 {
		program = args[0]
		inputFiles = args[1:]
	} else {
		usageExitf(shortUsage)
	}

	if len(progFiles) > 0 {
		diagName = progFiles[0]
	}

	prog, err := zawk.Compile(program)
	if err != nil {
		diagExit(err)
	}

	if dumpBytecode {
		fmt.Fprintln(os.Stderr, prog.Disassemble())
		os.Exit(0)
	}
	if dumpCFG {
		fmt.Fprintln(os.Stderr, prog.DumpCFG())
		os.Exit(0)
	}

	stdout := bufio.NewWriter(os.Stdout)
	defer stdout.Flush()

	config := &zawk.Config{
		FS:         fieldSep,
		InputMode:  inputMode,
		OutputMode: outputMode,
		Output:     stdout,
		Stderr:     os.Stderr,
		Parallel:   parallel,
		POSIXRegex: posixRegex,
	}

	if len(vars) > 0 {
		config.Variables = make(map[string]string)
		for _, v := range vars {
			parts := strings.SplitN(v, "=", 2)
			if len(parts) != 2 {
				usageExitf("invalid variable assignment: %s (expected var=value)", v)
			}
			config.Variables[parts[0]] = parts[1]
		}
	}
	config.Args = append([]string{"zawk"}, inputFiles...)

	// Open input sources; "-" is stdin.
	var inputs []zawk.Input
	if len(inputFiles) == 0 {
		inputs = []zawk.Input{{Name: "", Reader: os.Stdin}}
	} else {
		for _, f := range inputFiles {
			if f == "-" {
				inputs = append(inputs, zawk.Input{Name: "", Reader: os.Stdin})
				continue
			}
			file, err := os.Open(f)
			if err != nil {
				fmt.Fprintf(os.Stderr, "zawk: run: %s: cannot open: %v\n", f, err)
				os.Exit(exitRuntime)
			}
			defer file.Close()
			inputs = append(inputs, zawk.Input{Name: f, Reader: file})
		}
	}

	if err := prog.RunInputs(inputs, config); err != nil {
		stdout.Flush()
		if code, ok := zawk.IsExitError(err); ok {
			os.Exit(code)
		}
		diagExit(err)
	}
}

func nextArg(i *int, flag string) string {
	if *i+1 >= len(os.Args) {
		usageExitf("flag needs an argument: %s", flag)
	}
	*i++
	return os.Args[*i]
}

// diagExit prints a diagnostic as "zawk: <phase>: <file>:<line>:<col>:
// <message>" and exits with the phase's status code.
func diagExit(err error) {
	switch e := err.(type) {
	case *zawk.ParseError:
		fmt.Fprintf(os.Stderr, "zawk: parse: %s:%d:%d: %s\n", progName(), e.Line, e.Column, e.Message)
		os.Exit(exitCompile)
	case *zawk.TypeError:
		if e.Line > 0 {
			fmt.Fprintf(os.Stderr, "zawk: type: %s:%d:%d: %s\n", progName(), e.Line, e.Column, e.Message)
		} else {
			fmt.Fprintf(os.Stderr, "zawk: type: %s\n", e.Message)
		}
		os.Exit(exitCompile)
	case *zawk.RuntimeError:
		fmt.Fprintf(os.Stderr, "zawk: run: %s\n", e.Message)
		os.Exit(exitRuntime)
	default:
		fmt.Fprintf(os.Stderr, "zawk: %v\n", err)
		os.Exit(exitRuntime)
	}
}

// diagName is the source name shown in diagnostics: the first -f file,
// or a placeholder for inline programs.
var diagName = "<program>"

func progName() string {
	return diagName
}

func usageExitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "zawk: usage: "+format+"\n", args...)
	os.Exit(exitUsage)
}
