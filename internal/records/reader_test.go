package records

import (
	"strings"
	"testing"

	"github.com/zawk-lang/zawk/internal/runtime"
)

func testCache() *runtime.RegexCache {
	return runtime.NewRegexCache(10, runtime.DefaultRegexConfig())
}

func readAll(t *testing.T, input string, mode Mode, rs string) []Record {
	t.Helper()
	r, err := NewReader(strings.NewReader(input), mode, rs, testCache())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	var recs []Record
	for {
		rec, ok, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			return recs
		}
		recs = append(recs, rec)
	}
}

func texts(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Text
	}
	return out
}

func TestLineMode(t *testing.T) {
	recs := readAll(t, "a\nb\nc\n", ModeLine, "\n")
	want := []string{"a", "b", "c"}
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3", len(recs))
	}
	for i, w := range want {
		if recs[i].Text != w {
			t.Errorf("record %d = %q, want %q", i, recs[i].Text, w)
		}
	}
	// Line mode leaves fields for lazy splitting.
	if recs[0].Fields != nil {
		t.Error("line mode should not pre-split fields")
	}
}

func TestSingleByteRS(t *testing.T) {
	recs := readAll(t, "a;b;c", ModeLine, ";")
	got := texts(recs)
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMultiCharLiteralRS(t *testing.T) {
	recs := readAll(t, "aXXbXXc", ModeLine, "XX")
	got := texts(recs)
	want := []string{"a", "b", "c"}
	if len(got) != 3 {
		t.Fatalf("records = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegexRS(t *testing.T) {
	recs := readAll(t, "a1b22c333d", ModeLine, "[0-9]+")
	got := texts(recs)
	want := []string{"a", "b", "c", "d"}
	if len(got) != 4 {
		t.Fatalf("records = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParagraphMode(t *testing.T) {
	input := "line1\nline2\n\nline3\n\n\nline4\n"
	recs := readAll(t, input, ModeLine, "")
	got := texts(recs)
	want := []string{"line1\nline2", "line3", "line4"}
	if len(got) != len(want) {
		t.Fatalf("records = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paragraph %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCSVBasic(t *testing.T) {
	recs := readAll(t, "a,b,c\nd,e,f\n", ModeCSV, "\n")
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if recs[0].Fields[i] != w {
			t.Errorf("field %d = %q, want %q", i, recs[0].Fields[i], w)
		}
	}
}

func TestCSVQuoting(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		fields []string
	}{
		{
			name:   "quoted delimiter",
			input:  "\"a,b\",c\n",
			fields: []string{"a,b", "c"},
		},
		{
			name:   "doubled quote",
			input:  "\"a\"\"b\",c\n",
			fields: []string{`a"b`, "c"},
		},
		{
			name:   "embedded newline",
			input:  "\"a\nb\",c\n",
			fields: []string{"a\nb", "c"},
		},
		{
			name:   "empty fields",
			input:  ",,\n",
			fields: []string{"", "", ""},
		},
		{
			name:   "trailing crlf",
			input:  "a,b\r\n",
			fields: []string{"a", "b"},
		},
		{
			name:   "no trailing newline",
			input:  "a,b",
			fields: []string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := readAll(t, tt.input, ModeCSV, "\n")
			if len(recs) != 1 {
				t.Fatalf("records = %d, want 1", len(recs))
			}
			got := recs[0].Fields
			if len(got) != len(tt.fields) {
				t.Fatalf("fields = %q, want %q", got, tt.fields)
			}
			for i := range tt.fields {
				if got[i] != tt.fields[i] {
					t.Errorf("field %d = %q, want %q", i, got[i], tt.fields[i])
				}
			}
		})
	}
}

func TestCSVEmbeddedNewlineKeepsRecordCount(t *testing.T) {
	recs := readAll(t, "a,\"x\ny\"\nb,c\n", ModeCSV, "\n")
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0].Fields[1] != "x\ny" {
		t.Errorf("field = %q, want %q", recs[0].Fields[1], "x\ny")
	}
}

func TestTSV(t *testing.T) {
	recs := readAll(t, "a\tb\tc\n", ModeTSV, "\n")
	if len(recs) != 1 || len(recs[0].Fields) != 3 || recs[0].Fields[1] != "b" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestSplitFields(t *testing.T) {
	cache := testCache()
	tests := []struct {
		line string
		fs   string
		want []string
	}{
		{"  a  b  c  ", " ", []string{"a", "b", "c"}},
		{"a:b:c", ":", []string{"a", "b", "c"}},
		{"a::b", ":", []string{"a", "", "b"}},
		{"a1b22c", "[0-9]+", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		got := SplitFields(tt.line, tt.fs, cache)
		if len(got) != len(tt.want) {
			t.Errorf("SplitFields(%q, %q) = %q, want %q", tt.line, tt.fs, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("SplitFields(%q, %q)[%d] = %q, want %q", tt.line, tt.fs, i, got[i], tt.want[i])
			}
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode("csv"); !ok || m != ModeCSV {
		t.Error("csv mode not recognized")
	}
	if m, ok := ParseMode(""); !ok || m != ModeLine {
		t.Error("empty mode should be line mode")
	}
	if _, ok := ParseMode("xml"); ok {
		t.Error("xml should not be a valid mode")
	}
}
