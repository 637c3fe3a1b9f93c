// Package zawk is an AWK-compatible programming language and execution
// engine for stream-oriented text processing.
//
// A program is a set of pattern/action rules plus optional BEGIN and END
// blocks; the engine reads records from one or more inputs, splits each
// record into fields, evaluates rules in order and emits output. Beyond
// traditional AWK it adds native CSV/TSV parsing with RFC 4180 quoting,
// an extended standard library (string and array helpers, JSON and CSV
// codecs, date/time, hashing), and parallel execution across input
// shards with deterministic aggregation via @reduce declarations.
//
// Internally a program compiles through a typed pipeline: the source
// parses to an AST, lowers to an untyped control flow graph, a type
// inference pass resolves AWK's dynamic string/number polymorphism into
// concrete types (monomorphizing user functions per call-site type
// tuple), and a register-addressed bytecode is executed by a switch
// dispatched interpreter.
//
// Basic usage:
//
//	output, err := zawk.Run(`{ sum += $1 } END { print sum }`, input, nil)
//
// For repeated execution compile once:
//
//	prog, err := zawk.Compile(`{ print $1 }`)
//	out1, _ := prog.Run(file1, nil)
//	out2, _ := prog.Run(file2, nil)
package zawk
