package runtime

import (
	"strings"
	"testing"
)

func cacheForTest() *RegexCache {
	return NewRegexCache(10, DefaultRegexConfig())
}

func TestSubstr(t *testing.T) {
	tests := []struct {
		s             string
		start, length int
		want          string
	}{
		{"hello", 2, 3, "ell"},
		{"hello", 1, 5, "hello"},
		{"hello", 1, 100, "hello"},
		{"hello", 0, 2, "h"},
		{"hello", -1, 3, "h"},
		{"hello", 6, 1, ""},
		{"hello", 2, 0, ""},
	}
	for _, tt := range tests {
		if got := Substr(tt.s, tt.start, tt.length); got != tt.want {
			t.Errorf("Substr(%q, %d, %d) = %q, want %q", tt.s, tt.start, tt.length, got, tt.want)
		}
	}
}

func TestSubst(t *testing.T) {
	cache := cacheForTest()

	got, n, err := Subst(cache, "o", "0", "hello world", false)
	if err != nil || n != 1 || got != "hell0 world" {
		t.Errorf("sub = %q, %d, %v", got, n, err)
	}

	got, n, err = Subst(cache, "o", "0", "hello world", true)
	if err != nil || n != 2 || got != "hell0 w0rld" {
		t.Errorf("gsub = %q, %d, %v", got, n, err)
	}

	// & inserts the match; \& is literal.
	got, _, _ = Subst(cache, "b", "[&]", "abc", true)
	if got != "a[b]c" {
		t.Errorf("ampersand = %q", got)
	}
	got, _, _ = Subst(cache, "b", `\&`, "abc", true)
	if got != "a&c" {
		t.Errorf("escaped ampersand = %q", got)
	}

	if _, _, err := Subst(cache, "[", "x", "abc", false); err == nil {
		t.Error("bad pattern should error")
	}
}

func TestMatchPos(t *testing.T) {
	cache := cacheForTest()
	pos, length, err := MatchPos(cache, "foobar", "o+")
	if err != nil || pos != 2 || length != 2 {
		t.Errorf("MatchPos = %d, %d, %v; want 2, 2", pos, length, err)
	}
	pos, length, err = MatchPos(cache, "foobar", "xyz")
	if err != nil || pos != 0 || length != -1 {
		t.Errorf("no match = %d, %d, %v; want 0, -1", pos, length, err)
	}
}

func TestSplitString(t *testing.T) {
	cache := cacheForTest()

	parts, _ := SplitString(cache, "  a  b ", " ")
	if len(parts) != 2 || parts[0] != "a" || parts[1] != "b" {
		t.Errorf("whitespace split = %q", parts)
	}

	parts, _ = SplitString(cache, "a:b::c", ":")
	if len(parts) != 4 || parts[2] != "" {
		t.Errorf("single char split = %q", parts)
	}

	parts, _ = SplitString(cache, "abc", "")
	if len(parts) != 3 || parts[0] != "a" {
		t.Errorf("empty sep split = %q", parts)
	}

	parts, _ = SplitString(cache, "a1b22c", "[0-9]+")
	if len(parts) != 3 || parts[1] != "b" {
		t.Errorf("regex split = %q", parts)
	}

	// A single-character separator is always literal, even when it is a
	// regex metacharacter.
	parts, _ = SplitString(cache, "a.b.c", ".")
	if len(parts) != 3 || parts[0] != "a" || parts[2] != "c" {
		t.Errorf("dot split = %q, want literal split", parts)
	}
	parts, _ = SplitString(cache, "a|b", "|")
	if len(parts) != 2 || parts[1] != "b" {
		t.Errorf("pipe split = %q, want literal split", parts)
	}
	parts, _ = SplitString(cache, `a\b`, `\`)
	if len(parts) != 2 || parts[1] != "b" {
		t.Errorf("backslash split = %q, want literal split", parts)
	}

	parts, _ = SplitString(cache, "", ":")
	if parts != nil {
		t.Errorf("empty string split = %q, want none", parts)
	}
}

func TestMkBool(t *testing.T) {
	truthy := []string{"true", "yes", "on", "1", "x", "0.5", "-1"}
	for _, s := range truthy {
		if MkBool(s) != 1 {
			t.Errorf("MkBool(%q) = 0, want 1", s)
		}
	}
	falsy := []string{"", "  ", "false", "FALSE", "no", "0", "0.0", "00.0", "0x0", "0b0", "0o00"}
	for _, s := range falsy {
		if MkBool(s) != 0 {
			t.Errorf("MkBool(%q) = 1, want 0", s)
		}
	}
}

func TestCaseConversion(t *testing.T) {
	if got := ToLower("Hello World 123"); got != "hello world 123" {
		t.Errorf("ToLower = %q", got)
	}
	if got := ToUpper("Hello"); got != "HELLO" {
		t.Errorf("ToUpper = %q", got)
	}
	// Already-converted strings return unchanged.
	if got := ToLower("already lower"); got != "already lower" {
		t.Errorf("ToLower idempotent = %q", got)
	}
}

func TestPadding(t *testing.T) {
	if got := PadLeft("7", 3, "0"); got != "007" {
		t.Errorf("PadLeft = %q", got)
	}
	if got := PadRight("a", 4, "xy"); got != "axyx" {
		t.Errorf("PadRight = %q", got)
	}
	if got := PadLeft("long", 2, "0"); got != "long" {
		t.Errorf("PadLeft no-op = %q", got)
	}
}

func TestNumericPredicates(t *testing.T) {
	if !IsInt("42") || !IsInt("-7") || IsInt("4.2") || IsInt("") || IsInt("x") {
		t.Error("IsInt misclassified")
	}
	if !IsNum("4.2") || !IsNum("1e3") || IsNum("abc") || IsNum("") {
		t.Error("IsNum misclassified")
	}
}

func TestTimeRoundTrip(t *testing.T) {
	ts := Mktime("2024-03-05 06:07:08")
	if ts < 0 {
		t.Fatal("Mktime failed")
	}
	if got := Strftime("%Y-%m-%d %H:%M:%S", ts); got != "2024-03-05 06:07:08" {
		t.Errorf("Strftime = %q", got)
	}
	if Mktime("not a date") != -1 {
		t.Error("bad datespec should return -1")
	}
}

func TestDigests(t *testing.T) {
	if got := MD5("abc"); got != "900150983cd24fb0d6963f7d28e17f72" {
		t.Errorf("MD5 = %q", got)
	}
	if got := SHA1("abc"); got != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Errorf("SHA1 = %q", got)
	}
	if got := SHA256(""); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("SHA256 = %q", got)
	}
	if got := CRC32("123456789"); got != 3421780262 {
		t.Errorf("CRC32 = %d", got)
	}
}

func TestJSON(t *testing.T) {
	in := map[string]string{"b": "2", "a": "x\"y"}
	s := ToJSON(in)
	// Keys are sorted for deterministic output.
	if !strings.HasPrefix(s, `{"a":`) {
		t.Errorf("ToJSON ordering = %q", s)
	}
	out := FromJSON(s)
	if len(out) != 2 || out["a"] != `x"y` || out["b"] != "2" {
		t.Errorf("round trip = %#v", out)
	}

	if FromJSON("not json") != nil {
		t.Error("bad JSON should return nil")
	}

	// Non-string values flatten.
	out = FromJSON(`{"n": 1.5, "b": true}`)
	if out["n"] != "1.5" || out["b"] != "1" {
		t.Errorf("flattened = %#v", out)
	}
}

func TestEscapeCSV(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"a,b", `"a,b"`},
		{`say "hi"`, `"say ""hi"""`},
		{"line\nbreak", "\"line\nbreak\""},
	}
	for _, tt := range tests {
		if got := EscapeCSV(tt.in); got != tt.want {
			t.Errorf("EscapeCSV(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeTSV(t *testing.T) {
	if got := EscapeTSV("a\tb\nc"); got != `a\tb\nc` {
		t.Errorf("EscapeTSV = %q", got)
	}
	if got := EscapeTSV("plain"); got != "plain" {
		t.Errorf("EscapeTSV plain = %q", got)
	}
}
