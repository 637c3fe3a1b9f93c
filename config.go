package zawk

import "io"

// Config holds configuration options for program execution.
type Config struct {
	// FS is the input field separator (default " ": runs of whitespace).
	// A single character splits literally; longer separators split as a
	// regular expression.
	FS string

	// RS is the input record separator (default "\n"). A single byte
	// delimits records directly; longer separators split as a literal or,
	// when they contain regex metacharacters, as a regular expression on
	// the longest match. The empty string here means the default "\n";
	// paragraph mode is selected by assigning RS = "" in BEGIN.
	RS string

	// OFS is the output field separator (default " ").
	OFS string

	// ORS is the output record separator (default "\n").
	ORS string

	// InputMode selects the input format: "", "csv" or "tsv". CSV and
	// TSV fields follow RFC 4180 quoting; quoted fields may contain
	// delimiters and newlines.
	InputMode string

	// OutputMode selects the print format: "", "csv" or "tsv". CSV
	// output quotes fields that contain the delimiter, a quote, CR or LF;
	// TSV output backslash-escapes tabs, CR, LF and backslashes.
	OutputMode string

	// Variables contains pre-set variables, applied before BEGIN.
	Variables map[string]string

	// Output receives print/printf output. If nil, output is captured
	// and returned from Run.
	Output io.Writer

	// Stderr receives diagnostics. If nil, os.Stderr is used.
	Stderr io.Writer

	// Args is the ARGV array; Args[0] is conventionally the program name.
	Args []string

	// Parallel is the shard count; values above 1 enable the parallel
	// driver. Programs whose main phase writes globals not declared with
	// @reduce are rejected at compile time when run in parallel.
	Parallel int

	// POSIXRegex selects leftmost-longest (POSIX ERE) matching when true
	// (the default). Set to false for faster leftmost-first matching.
	POSIXRegex *bool

	// RandSeed seeds the PRNG deterministically; 0 seeds from the clock.
	RandSeed int64
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.FS == "" {
		c.FS = " "
	}
	if c.RS == "" {
		c.RS = "\n"
	}
	if c.OFS == "" {
		c.OFS = " "
	}
	if c.ORS == "" {
		c.ORS = "\n"
	}
}

// posix resolves the POSIXRegex option.
func (c *Config) posix() bool {
	if c.POSIXRegex != nil {
		return *c.POSIXRegex
	}
	return true
}
