package runtime

import "testing"

func TestSprintf(t *testing.T) {
	cf := DefaultConvFmt
	tests := []struct {
		format string
		args   []Value
		want   string
	}{
		{"plain", nil, "plain"},
		{"%d", []Value{IntValue(42)}, "42"},
		{"%i", []Value{IntValue(-7)}, "-7"},
		{"%5d", []Value{IntValue(3)}, "    3"},
		{"%-5d|", []Value{IntValue(3)}, "3    |"},
		{"%05d", []Value{IntValue(3)}, "00003"},
		{"%x %X", []Value{IntValue(255), IntValue(255)}, "ff FF"},
		{"%o", []Value{IntValue(8)}, "10"},
		{"%u", []Value{IntValue(5)}, "5"},
		{"%.2f", []Value{FloatValue(1.0 / 3.0)}, "0.33"},
		{"%e", []Value{FloatValue(12345.678)}, "1.234568e+04"},
		{"%g", []Value{FloatValue(0.5)}, "0.5"},
		{"%s", []Value{StrValue("hi")}, "hi"},
		{"%10s|", []Value{StrValue("hi")}, "        hi|"},
		{"%.2s", []Value{StrValue("hello")}, "he"},
		{"%%", nil, "%"},
		{"%c", []Value{IntValue(65)}, "A"},
		{"%c", []Value{StrValue("xyz")}, "x"},
		{"%*d", []Value{IntValue(4), IntValue(7)}, "   7"},
		{"%.*f", []Value{IntValue(1), FloatValue(2.75)}, "2.8"},
		{"%d+%s", []Value{IntValue(1), StrValue("x")}, "1+x"},
		{"%d", []Value{FloatValue(3.9)}, "3"},
		{"%d", []Value{StrValue("12abc")}, "12"},
		{"%s", nil, ""},
	}
	for _, tt := range tests {
		if got := Sprintf(tt.format, tt.args, cf); got != tt.want {
			t.Errorf("Sprintf(%q, %v) = %q, want %q", tt.format, tt.args, got, tt.want)
		}
	}
}

func TestValueConversions(t *testing.T) {
	if IntValue(42).Str(DefaultConvFmt) != "42" {
		t.Error("int to str")
	}
	if FloatValue(2.5).Str(DefaultConvFmt) != "2.5" {
		t.Error("float to str")
	}
	if StrValue("3.5kg").Num() != 3.5 {
		t.Error("str prefix to num")
	}
	if StrValue("3.9").Int() != 3 {
		t.Error("str to int truncates")
	}
	if !IntValue(1).IsNum() || StrValue("1").IsNum() {
		t.Error("IsNum misclassified")
	}
}
