// Package records turns an input byte stream into records and fields:
// line mode with single-byte, multi-character, regex and paragraph record
// separators, and CSV/TSV mode with RFC 4180 quoting.
package records

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/zawk-lang/zawk/internal/runtime"
)

// Mode selects the input format.
type Mode uint8

const (
	ModeLine Mode = iota
	ModeCSV
	ModeTSV
)

// ParseMode maps a CLI mode name to a Mode.
func ParseMode(name string) (Mode, bool) {
	switch name {
	case "", "line":
		return ModeLine, true
	case "csv":
		return ModeCSV, true
	case "tsv":
		return ModeTSV, true
	default:
		return ModeLine, false
	}
}

// Record is one input record. Fields is non-nil only in CSV/TSV mode,
// where splitting cannot be done lazily (quote state spans the record).
type Record struct {
	Text   string
	Fields []string
}

// Reader emits records from one input source.
type Reader struct {
	mode Mode
	csv  *csvReader
	sc   *bufio.Scanner
}

// NewReader builds a reader for the given mode and record separator.
// The separator only applies in line mode; CSV/TSV records end at
// unquoted newlines.
func NewReader(r io.Reader, mode Mode, rs string, cache *runtime.RegexCache) (*Reader, error) {
	switch mode {
	case ModeCSV:
		return &Reader{mode: mode, csv: newCSVReader(r, ',')}, nil
	case ModeTSV:
		return &Reader{mode: mode, csv: newCSVReader(r, '\t')}, nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	switch {
	case rs == "\n" || rs == "":
		if rs == "" {
			sc.Split(paragraphSplit)
		}
		// Default newline splitting otherwise.
	case len(rs) == 1:
		sep := rs[0]
		sc.Split(func(data []byte, atEOF bool) (int, []byte, error) {
			if atEOF && len(data) == 0 {
				return 0, nil, nil
			}
			if i := bytes.IndexByte(data, sep); i >= 0 {
				return i + 1, data[:i], nil
			}
			if atEOF {
				return len(data), data, nil
			}
			return 0, nil, nil
		})
	case isRegexActive(rs):
		re, err := cache.Get(rs)
		if err != nil {
			return nil, err
		}
		sc.Split(regexSplit(re))
	default:
		// Multi-character literal separator.
		sep := rs
		sc.Split(func(data []byte, atEOF bool) (int, []byte, error) {
			if atEOF && len(data) == 0 {
				return 0, nil, nil
			}
			if i := bytes.Index(data, []byte(sep)); i >= 0 {
				return i + len(sep), data[:i], nil
			}
			if atEOF {
				return len(data), data, nil
			}
			return 0, nil, nil
		})
	}

	return &Reader{mode: mode, sc: sc}, nil
}

// Next returns the next record; ok is false at end of input.
func (r *Reader) Next() (rec Record, ok bool, err error) {
	if r.csv != nil {
		return r.csv.next()
	}
	if !r.sc.Scan() {
		return Record{}, false, r.sc.Err()
	}
	return Record{Text: r.sc.Text()}, true, nil
}

// isRegexActive reports whether a multi-character separator should split
// as a regex rather than a literal.
func isRegexActive(s string) bool {
	return strings.ContainsAny(s, `.*+?()[]{}|^$\`)
}

// regexSplit returns a scanner split function delimiting on the longest
// match of re. A match that touches the end of the buffer requests more
// data so the longest-match rule holds across reads.
func regexSplit(re *runtime.Regex) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		loc := re.FindStringIndex(string(data))
		if loc != nil && (atEOF || loc[1] < len(data)) {
			return loc[1], data[:loc[0]], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}

// paragraphSplit delimits records on blank lines (RS = "").
func paragraphSplit(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// Skip leading blank lines.
	start := 0
	for start < len(data) && data[start] == '\n' {
		start++
	}
	if start >= len(data) {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}

	for i := start + 1; i < len(data); i++ {
		if data[i] == '\n' && data[i-1] == '\n' {
			return i + 1, data[start : i-1], nil
		}
	}

	if atEOF {
		end := len(data)
		for end > start && data[end-1] == '\n' {
			end--
		}
		return len(data), data[start:end], nil
	}
	return 0, nil, nil
}

// SplitFields splits a record into fields per the field separator rules:
// FS " " splits on runs of whitespace with leading and trailing
// whitespace ignored, any single character (regex metacharacters
// included) splits literally, the empty string splits into bytes, and
// anything else is a regex splitting on the longest match. Used by the
// lazy field materializer and by split() when no separator is given.
func SplitFields(line, fs string, cache *runtime.RegexCache) []string {
	parts, err := runtime.SplitString(cache, line, fs)
	if err != nil {
		return []string{line}
	}
	return parts
}
