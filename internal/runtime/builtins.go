package runtime

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash/crc32"
	"sort"
	"strings"
	"time"
)

// Substr implements substr(s, start[, length]) with 1-based indexing.
// Out-of-range starts clamp; non-positive lengths give the empty string.
func Substr(s string, start, length int) string {
	if start < 1 {
		// A negative start consumes part of the length before the string
		// begins, per POSIX.
		length += start - 1
		start = 1
	}
	start--
	if start >= len(s) || length <= 0 {
		return ""
	}
	end := start + length
	if end > len(s) || end < 0 {
		end = len(s)
	}
	return s[start:end]
}

// Index returns the 1-based position of substr in s, or 0.
func Index(s, substr string) int {
	idx := strings.Index(s, substr)
	if idx < 0 {
		return 0
	}
	return idx + 1
}

// MatchPos returns the 1-based position and length of the first match of
// pattern in s, or (0, -1) when there is no match. A compile error is a
// regex runtime error.
func MatchPos(cache *RegexCache, s, pattern string) (int, int, error) {
	re, err := cache.Get(pattern)
	if err != nil {
		return 0, -1, err
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return 0, -1, nil
	}
	return loc[0] + 1, loc[1] - loc[0], nil
}

// Subst implements sub and gsub: replaces the first (or all, when global)
// match of pattern in target with repl, where & in repl inserts the
// matched text and \& a literal ampersand. Returns the new string and
// the replacement count.
func Subst(cache *RegexCache, pattern, repl, target string, global bool) (string, int, error) {
	re, err := cache.Get(pattern)
	if err != nil {
		return target, 0, err
	}

	if global {
		count := 0
		result := re.ReplaceAllStringFunc(target, func(matched string) string {
			count++
			return expandRepl(repl, matched)
		})
		return result, count, nil
	}

	loc := re.FindStringIndex(target)
	if loc == nil {
		return target, 0, nil
	}
	matched := target[loc[0]:loc[1]]
	return target[:loc[0]] + expandRepl(repl, matched) + target[loc[1]:], 1, nil
}

// expandRepl applies AWK replacement semantics: & is the matched string,
// \& a literal &, \\ a literal backslash.
func expandRepl(repl, matched string) string {
	var sb strings.Builder
	for i := 0; i < len(repl); i++ {
		if repl[i] == '\\' && i+1 < len(repl) {
			switch repl[i+1] {
			case '&':
				sb.WriteByte('&')
				i++
				continue
			case '\\':
				sb.WriteByte('\\')
				i++
				continue
			}
		}
		if repl[i] == '&' {
			sb.WriteString(matched)
		} else {
			sb.WriteByte(repl[i])
		}
	}
	return sb.String()
}

// SplitString splits s per AWK field rules: sep " " means runs of
// whitespace with leading/trailing stripped, a single character splits
// literally (even regex metacharacters: FS="." separates on dots), the
// empty string splits into bytes, anything longer is a regex.
func SplitString(cache *RegexCache, s, sep string) ([]string, error) {
	switch {
	case s == "":
		return nil, nil
	case sep == " ":
		return strings.Fields(s), nil
	case sep == "":
		parts := make([]string, len(s))
		for i := 0; i < len(s); i++ {
			parts[i] = s[i : i+1]
		}
		return parts, nil
	case len(sep) == 1:
		return strings.Split(s, sep), nil
	default:
		re, err := cache.Get(sep)
		if err != nil {
			return nil, err
		}
		return re.Split(s, -1), nil
	}
}

// ToLower lower-cases s with an ASCII fast path.
func ToLower(s string) string {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			b := []byte(s)
			for ; i < len(b); i++ {
				if b[i] >= 'A' && b[i] <= 'Z' {
					b[i] += 32
				} else if b[i] > 127 {
					return strings.ToLower(s)
				}
			}
			return string(b)
		}
		if c > 127 {
			return strings.ToLower(s)
		}
	}
	return s
}

// ToUpper upper-cases s with an ASCII fast path.
func ToUpper(s string) string {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			b := []byte(s)
			for ; i < len(b); i++ {
				if b[i] >= 'a' && b[i] <= 'z' {
					b[i] -= 32
				} else if b[i] > 127 {
					return strings.ToUpper(s)
				}
			}
			return string(b)
		}
		if c > 127 {
			return strings.ToUpper(s)
		}
	}
	return s
}

// Trim removes leading and trailing whitespace.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// PadLeft left-pads s with pad to at least width bytes.
func PadLeft(s string, width int, pad string) string {
	if pad == "" {
		pad = " "
	}
	for len(s) < width {
		need := width - len(s)
		if need >= len(pad) {
			s = pad + s
		} else {
			s = pad[:need] + s
		}
	}
	return s
}

// PadRight right-pads s with pad to at least width bytes.
func PadRight(s string, width int, pad string) string {
	if pad == "" {
		pad = " "
	}
	for len(s) < width {
		need := width - len(s)
		if need >= len(pad) {
			s += pad
		} else {
			s += pad[:need]
		}
	}
	return s
}

// Repeat repeats s n times; non-positive n gives the empty string.
func Repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(s, n)
}

// Strcmp compares two strings, returning -1, 0 or 1.
func Strcmp(a, b string) int {
	return strings.Compare(a, b)
}

// IsInt reports whether s is a valid integer literal.
func IsInt(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	if i >= len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// IsNum reports whether s parses fully as a number.
func IsNum(s string) bool {
	return LooksNumeric(s)
}

// MkBool folds a string to 0 or 1: empty text, the no-words and any
// spelling of numeric zero are false, everything else is true.
func MkBool(s string) int64 {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "false", "no", "\U00010102": // 𐄂
		return 0
	}
	if n, err := ParseNum(s); err == nil && n == 0 {
		return 0
	}
	// Octal and binary zero spellings the numeric parser does not cover.
	switch s {
	case "0o0", "0o00", "0b0", "0b00":
		return 0
	}
	return 1
}

// Systime returns the current Unix timestamp.
func Systime() int64 {
	return time.Now().Unix()
}

// strftime conversion table from C directives to Go's reference layout.
var strftimeConv = []struct {
	from string
	to   string
}{
	{"%Y", "2006"}, {"%y", "06"},
	{"%m", "01"}, {"%d", "02"}, {"%e", "_2"},
	{"%H", "15"}, {"%I", "03"}, {"%M", "04"}, {"%S", "05"},
	{"%j", "002"},
	{"%a", "Mon"}, {"%A", "Monday"},
	{"%b", "Jan"}, {"%B", "January"},
	{"%p", "PM"},
	{"%Z", "MST"}, {"%z", "-0700"},
	{"%%", "%"},
}

// Strftime formats a Unix timestamp with C strftime directives.
func Strftime(format string, ts int64) string {
	if format == "" {
		format = "%Y-%m-%d %H:%M:%S"
	}
	layout := format
	for _, c := range strftimeConv {
		layout = strings.ReplaceAll(layout, c.from, c.to)
	}
	return time.Unix(ts, 0).Local().Format(layout)
}

// mktimeLayouts are the datespec forms Mktime accepts, tried in order.
var mktimeLayouts = []string{
	"2006 01 02 15 04 05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

// Mktime parses a datespec into a Unix timestamp, -1 if unparseable.
func Mktime(spec string) int64 {
	spec = strings.TrimSpace(spec)
	for _, layout := range mktimeLayouts {
		if t, err := time.ParseInLocation(layout, spec, time.Local); err == nil {
			return t.Unix()
		}
	}
	return -1
}

// MD5 returns the hex digest of s.
func MD5(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SHA1 returns the hex digest of s.
func SHA1(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SHA256 returns the hex digest of s.
func SHA256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// CRC32 returns the IEEE checksum of s.
func CRC32(s string) int64 {
	return int64(crc32.ChecksumIEEE([]byte(s)))
}

// ToJSON encodes a flat string map as a JSON object with sorted keys.
func ToJSON(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(m[k])
		sb.Write(kb)
		sb.WriteByte(':')
		sb.Write(vb)
	}
	sb.WriteByte('}')
	return sb.String()
}

// FromJSON decodes a flat JSON object into string key/value pairs.
// Nested values are re-encoded as JSON text; a parse failure returns nil.
func FromJSON(text string) map[string]string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			out[k] = FormatFloat(f, DefaultConvFmt)
			continue
		}
		var b bool
		if err := json.Unmarshal(v, &b); err == nil {
			if b {
				out[k] = "1"
			} else {
				out[k] = "0"
			}
			continue
		}
		out[k] = string(v)
	}
	return out
}

// EscapeCSV quotes a field for CSV output when it contains the
// delimiter, a quote, CR or LF; embedded quotes are doubled.
func EscapeCSV(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// EscapeTSV escapes tabs and newlines for TSV output.
func EscapeTSV(s string) string {
	if !strings.ContainsAny(s, "\t\r\n\\") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '\n':
			sb.WriteString(`\n`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
