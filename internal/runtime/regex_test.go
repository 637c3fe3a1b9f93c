package runtime

import "testing"

func TestCompileAndMatch(t *testing.T) {
	re := MustCompile("a+b")
	if !re.MatchString("xaab") || re.MatchString("xb") {
		t.Error("basic match failed")
	}
	if re.Pattern() != "a+b" {
		t.Errorf("Pattern = %q", re.Pattern())
	}

	// Dot matches newline (AWK dotall semantics).
	re = MustCompile("a.b")
	if !re.MatchString("a\nb") {
		t.Error("dot should match newline")
	}

	if _, err := Compile("["); err == nil {
		t.Error("bad pattern should fail to compile")
	}
}

func TestFindStringIndex(t *testing.T) {
	re := MustCompile("o+")
	loc := re.FindStringIndex("foobar")
	if loc == nil || loc[0] != 1 || loc[1] != 3 {
		t.Errorf("FindStringIndex = %v, want [1 3]", loc)
	}
	if re.FindStringIndex("xyz") != nil {
		t.Error("no match should be nil")
	}
}

func TestPOSIXLongest(t *testing.T) {
	// Leftmost-longest: alternation picks the longer match.
	re := MustCompile("a|ab")
	loc := re.FindStringIndex("ab")
	if loc == nil || loc[1]-loc[0] != 2 {
		t.Errorf("POSIX longest = %v, want length 2", loc)
	}
}

func TestLiteralPrefilter(t *testing.T) {
	// Patterns with literal content reject non-matching strings without
	// engine execution; behavior must be identical either way.
	re := MustCompile("^error.*failed$")
	if !re.MatchString("error: x failed") {
		t.Error("should match")
	}
	if re.MatchString("warning: x failed") {
		t.Error("prefix reject failed")
	}
	if re.MatchString("error: ok") {
		t.Error("suffix reject failed")
	}

	re = MustCompile("hello.*world")
	if re.MatchString("no greeting here") {
		t.Error("required literal reject failed")
	}
	if !re.MatchString("hello big world") {
		t.Error("should match with both literals")
	}
}

func TestExtractLiterals(t *testing.T) {
	tests := []struct {
		pattern string
		prefix  string
		suffix  string
	}{
		{"^abc.*", "abc", ""},
		{".*xyz$", "", "xyz"},
		{"^pre.*post$", "pre", "post"},
	}
	for _, tt := range tests {
		li := extractLiterals(tt.pattern)
		if li == nil {
			t.Errorf("extractLiterals(%q) = nil", tt.pattern)
			continue
		}
		if li.Prefix != tt.prefix || li.Suffix != tt.suffix {
			t.Errorf("extractLiterals(%q) = %+v", tt.pattern, li)
		}
	}

	// Alternation must not produce required literals.
	if li := extractLiterals("foo|bar"); li != nil && len(li.Required) > 0 {
		t.Errorf("alternation produced required literals: %+v", li)
	}
}

func TestRegexCache(t *testing.T) {
	cache := NewRegexCache(2, DefaultRegexConfig())

	re1, err := cache.Get("a+")
	if err != nil {
		t.Fatal(err)
	}
	re2, _ := cache.Get("a+")
	if re1 != re2 {
		t.Error("cache should return the same compiled regex")
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}

	// Eviction keeps the cache bounded.
	cache.Get("b+")
	cache.Get("c+")
	if cache.Len() > 2 {
		t.Errorf("Len = %d, want <= 2", cache.Len())
	}

	if _, err := cache.Get("["); err == nil {
		t.Error("bad pattern should error at first use")
	}
}
