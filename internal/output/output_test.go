package output

import (
	"strings"
	"testing"
)

func TestJoinCSV(t *testing.T) {
	tests := []struct {
		fields []string
		want   string
	}{
		{[]string{"a", "b"}, "a,b"},
		{[]string{"a,b", "c"}, `"a,b",c`},
		{[]string{`q"q`, "x"}, `"q""q",x`},
		{[]string{"line\nbreak"}, "\"line\nbreak\""},
		{[]string{""}, ""},
	}
	for _, tt := range tests {
		if got := JoinCSV(tt.fields); got != tt.want {
			t.Errorf("JoinCSV(%q) = %q, want %q", tt.fields, got, tt.want)
		}
	}
}

func TestJoinTSV(t *testing.T) {
	if got := JoinTSV([]string{"a\tb", "c"}); got != "a\\tb\tc" {
		t.Errorf("JoinTSV = %q", got)
	}
}

func TestWriterModes(t *testing.T) {
	var sb strings.Builder
	w := &Writer{Out: &sb, Mode: ModeDefault, OFS: "-", ORS: ";"}
	if err := w.Record([]string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if sb.String() != "a-b;" {
		t.Errorf("default mode = %q", sb.String())
	}

	sb.Reset()
	w = &Writer{Out: &sb, Mode: ModeCSV, OFS: " ", ORS: "\n"}
	w.Record([]string{"x,y", "z"})
	if sb.String() != "\"x,y\",z\n" {
		t.Errorf("csv mode = %q", sb.String())
	}

	sb.Reset()
	w.Raw("raw $0")
	if sb.String() != "raw $0\n" {
		t.Errorf("Raw = %q", sb.String())
	}
}

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode("tsv"); !ok || m != ModeTSV {
		t.Error("tsv not recognized")
	}
	if _, ok := ParseMode("bogus"); ok {
		t.Error("bogus mode accepted")
	}
}
