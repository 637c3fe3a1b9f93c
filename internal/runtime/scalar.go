// Package runtime provides the shared execution-time machinery: scalar
// conversions, typed associative arrays, the regex cache, the I/O
// registry and the native builtin library.
//
// Strings are Go strings throughout: immutable, sharable views whose
// substring and concatenation costs match the copy-on-write handles the
// engine needs. Numeric conversion follows AWK: string-to-number parses a
// leading numeric prefix (0 otherwise), number-to-string formats floats
// with CONVFMT (%.6g by default) and integers in decimal, and
// uninitialized values read as the empty string and 0.
package runtime

import (
	"math"
	"strconv"
	"strings"
)

// DefaultConvFmt is the default CONVFMT/OFMT value.
const DefaultConvFmt = "%.6g"

// ParseNum parses a string as a number with strict syntax. Returns an
// error for anything with trailing garbage; callers that want AWK prefix
// semantics use ParseNumPrefix.
func ParseNum(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if len(s) >= 3 {
		lower := strings.ToLower(s)
		switch lower {
		case "nan", "+nan", "-nan":
			return math.NaN(), nil
		case "inf", "+inf":
			return math.Inf(1), nil
		case "-inf":
			return math.Inf(-1), nil
		}
	}

	// AWK allows "0x1a" where Go's ParseFloat wants a binary exponent.
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		if !strings.ContainsAny(s, "pP") {
			s += "p0"
		}
	}

	if strings.Contains(s, "_") {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(s, 64)
}

// ParseNumPrefix parses a number from the beginning of a string, allowing
// trailing non-numeric characters: "123abc" is 123, "abc" is 0.
func ParseNumPrefix(s string) float64 {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i >= len(s) {
		return 0
	}
	start := i

	if s[i] == '+' || s[i] == '-' {
		i++
	}
	if i >= len(s) {
		return 0
	}

	if i+3 <= len(s) {
		rest := strings.ToLower(s[i : i+3])
		if rest == "nan" {
			return math.NaN()
		}
		if rest == "inf" {
			if s[start] == '-' {
				return math.Inf(-1)
			}
			return math.Inf(1)
		}
	}

	if i+2 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') {
		return parseHexPrefix(s, start, i+2)
	}

	gotDigit := false
	for i < len(s) && isDigit(s[i]) {
		gotDigit = true
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			gotDigit = true
			i++
		}
	}
	if !gotDigit {
		return 0
	}

	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		for i < len(s) && isDigit(s[i]) {
			end = i + 1
			i++
		}
	}

	n, _ := strconv.ParseFloat(s[start:end], 64)
	return n
}

func parseHexPrefix(s string, start, i int) float64 {
	gotDigit := false
	for i < len(s) && isHexDigit(s[i]) {
		gotDigit = true
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isHexDigit(s[i]) {
			gotDigit = true
			i++
		}
	}
	if !gotDigit {
		return 0
	}

	end := i
	gotExponent := false
	if i < len(s) && (s[i] == 'p' || s[i] == 'P') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		for i < len(s) && isDigit(s[i]) {
			gotExponent = true
			end = i + 1
			i++
		}
	}

	numStr := s[start:end]
	if !gotExponent {
		numStr += "p0"
	}
	n, _ := strconv.ParseFloat(numStr, 64)
	return n
}

// ParseIntPrefix is ParseNumPrefix truncated toward zero.
func ParseIntPrefix(s string) int64 {
	f := ParseNumPrefix(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

// FormatFloat formats a float using the given conversion format.
// Integral values up to 1e15 in magnitude format as plain decimal,
// matching AWK's treatment of numbers that happen to be integers; larger
// ones go through the conversion format.
func FormatFloat(n float64, format string) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	case n >= -1e15 && n <= 1e15 && n == float64(int64(n)):
		return strconv.FormatInt(int64(n), 10)
	case format == DefaultConvFmt:
		return strconv.FormatFloat(n, 'g', 6, 64)
	default:
		return Sprintf(format, []Value{FloatValue(n)}, DefaultConvFmt)
	}
}

// FormatInt formats an integer in decimal.
func FormatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// LooksNumeric reports whether s parses fully as a number (a "numeric
// string" in AWK terms).
func LooksNumeric(s string) bool {
	_, err := ParseNum(s)
	return err == nil && strings.TrimSpace(s) != ""
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
