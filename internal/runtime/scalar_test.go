package runtime

import (
	"math"
	"testing"
)

func TestParseNumPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"42", 42},
		{"  3.5  ", 3.5},
		{"123abc", 123},
		{"abc", 0},
		{"-7", -7},
		{"+2.5x", 2.5},
		{"1e3", 1000},
		{"1e", 1},
		{".5", 0.5},
		{"0x10", 16},
		{"-", 0},
	}
	for _, tt := range tests {
		if got := ParseNumPrefix(tt.in); got != tt.want {
			t.Errorf("ParseNumPrefix(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if !math.IsNaN(ParseNumPrefix("nan")) {
		t.Error("ParseNumPrefix(nan) should be NaN")
	}
	if !math.IsInf(ParseNumPrefix("-inf"), -1) {
		t.Error("ParseNumPrefix(-inf) should be -Inf")
	}
}

func TestParseNumStrict(t *testing.T) {
	if _, err := ParseNum("12x"); err == nil {
		t.Error("ParseNum(12x) should fail")
	}
	if n, err := ParseNum(" 42 "); err != nil || n != 42 {
		t.Errorf("ParseNum(42) = %v, %v", n, err)
	}
	if n, err := ParseNum(""); err != nil || n != 0 {
		t.Errorf("ParseNum(\"\") = %v, %v", n, err)
	}
	if _, err := ParseNum("1_000"); err == nil {
		t.Error("underscores are not AWK numbers")
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{42, "42"},
		{-3, "-3"},
		{3.5, "3.5"},
		{1.0 / 3.0, "0.333333"},
		{1e20, "1e+20"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in, DefaultConvFmt); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := FormatFloat(math.NaN(), DefaultConvFmt); got != "nan" {
		t.Errorf("NaN = %q", got)
	}
}

func TestLooksNumeric(t *testing.T) {
	for _, s := range []string{"1", "3.5", " 42 ", "-7e2"} {
		if !LooksNumeric(s) {
			t.Errorf("LooksNumeric(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "abc", "12x", " "} {
		if LooksNumeric(s) {
			t.Errorf("LooksNumeric(%q) = true, want false", s)
		}
	}
}
