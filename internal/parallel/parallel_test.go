package parallel

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zawk-lang/zawk/internal/bytecode"
	"github.com/zawk-lang/zawk/internal/infer"
	"github.com/zawk-lang/zawk/internal/interp"
	"github.com/zawk-lang/zawk/internal/ir"
	"github.com/zawk-lang/zawk/internal/parser"
	"github.com/zawk-lang/zawk/internal/records"
)

func compileProgram(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	astProg, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	irProg, err := ir.Build(astProg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	typed, err := infer.Program(irProg)
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	p, err := bytecode.Lower(typed)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return p
}

func TestCheck(t *testing.T) {
	// Reads and per-record output are fine.
	if err := Check(compileProgram(t, `{ print $1 }`)); err != nil {
		t.Errorf("stateless program rejected: %v", err)
	}

	// Declared reductions are fine.
	if err := Check(compileProgram(t, "@reduce sum n\n{ n += $1 }")); err != nil {
		t.Errorf("declared reduction rejected: %v", err)
	}

	// Undeclared writes are rejected with the offending names.
	err := Check(compileProgram(t, `{ x = $1; seen[$0]++ }`))
	if err == nil {
		t.Fatal("undeclared writes accepted")
	}
	sse, ok := err.(*SharedStateError)
	if !ok {
		t.Fatalf("got %T, want *SharedStateError", err)
	}
	if len(sse.Names) != 2 {
		t.Errorf("names = %v, want x and seen", sse.Names)
	}
}

func TestSplitFileAtBoundaries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.txt")

	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString("this is a record with some width\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sp := newSplitter(interp.Config{}, Config{Shards: 4, ChunkSize: DefaultChunkSize})
	shards, err := sp.splitInputs([]interp.NamedInput{{Name: path, Reader: f}})
	if err != nil {
		t.Fatal(err)
	}
	if len(shards) < 2 {
		t.Fatalf("shards = %d, want several", len(shards))
	}

	// Reassembling the shards must give back the file, and every shard
	// must hold whole records.
	var all bytes.Buffer
	for _, sh := range shards {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(sh.Reader); err != nil {
			t.Fatal(err)
		}
		data := buf.Bytes()
		if len(data) > 0 && data[len(data)-1] != '\n' {
			t.Error("shard does not end at a record boundary")
		}
		all.Write(data)
	}
	if all.String() != sb.String() {
		t.Error("shards do not reassemble to the original input")
	}
}

func TestCSVBoundaryWalk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.csv")

	// Records with quoted embedded newlines: naive newline splits would
	// cut inside quotes.
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("a,\"line one\nline two\",c\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sp := newSplitter(interp.Config{InputMode: records.ModeCSV}, Config{Shards: 3, ChunkSize: DefaultChunkSize})
	shards, err := sp.splitInputs([]interp.NamedInput{{Name: path, Reader: f}})
	if err != nil {
		t.Fatal(err)
	}

	// Every shard must contain a whole number of CSV records.
	total := 0
	for _, sh := range shards {
		rd, err := records.NewReader(sh.Reader, records.ModeCSV, "\n", nil)
		if err != nil {
			t.Fatal(err)
		}
		for {
			rec, ok, err := rd.Next()
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				break
			}
			if len(rec.Fields) != 3 || rec.Fields[1] != "line one\nline two" {
				t.Fatalf("corrupted record: %q", rec.Fields)
			}
			total++
		}
	}
	if total != 200 {
		t.Errorf("records across shards = %d, want 200", total)
	}
}

func TestChunkStream(t *testing.T) {
	input := strings.Repeat("0123456789\n", 100)
	sp := newSplitter(interp.Config{}, Config{Shards: 2, ChunkSize: 256})
	chunks, err := sp.chunkStream(interp.NamedInput{Name: "", Reader: strings.NewReader(input)})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want several", len(chunks))
	}
	var all bytes.Buffer
	for _, c := range chunks {
		var buf bytes.Buffer
		buf.ReadFrom(c.Reader)
		if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
			t.Error("chunk does not end at a record boundary")
		}
		all.Write(buf.Bytes())
	}
	if all.String() != input {
		t.Error("chunks do not reassemble to the input")
	}
}

func TestRunMergesReductions(t *testing.T) {
	prog := compileProgram(t, "@reduce sum total\n{ total += $1 } END { print total }")

	var out bytes.Buffer
	cfg := interp.Config{
		Inputs: []interp.NamedInput{{Name: "", Reader: strings.NewReader(strings.Repeat("2\n", 50))}},
		Output: &out,
	}
	if err := Run(prog, cfg, Config{Shards: 4, ChunkSize: 64}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "100\n" {
		t.Errorf("output = %q, want %q", out.String(), "100\n")
	}
}

func TestRunOrderedOutput(t *testing.T) {
	prog := compileProgram(t, `{ print $1 }`)

	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, "v"+string(rune('a'+i%26)))
	}
	input := strings.Join(lines, "\n") + "\n"

	var out bytes.Buffer
	cfg := interp.Config{
		Inputs: []interp.NamedInput{{Name: "", Reader: strings.NewReader(input)}},
		Output: &out,
	}
	if err := Run(prog, cfg, Config{Shards: 4, ChunkSize: 128}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != input {
		t.Error("parallel output is not in input order")
	}
}

func TestRunRejectsSharedState(t *testing.T) {
	prog := compileProgram(t, `{ x = $1 }`)
	var out bytes.Buffer
	cfg := interp.Config{
		Inputs: []interp.NamedInput{{Name: "", Reader: strings.NewReader("a\n")}},
		Output: &out,
	}
	err := Run(prog, cfg, Config{Shards: 2})
	if _, ok := err.(*SharedStateError); !ok {
		t.Errorf("got %v, want *SharedStateError", err)
	}
}

func TestReduceMinMax(t *testing.T) {
	prog := compileProgram(t, "@reduce min lo\n@reduce max hi\n{ if (lo == 0 || $1 < lo) lo = $1; if ($1 > hi) hi = $1 } END { print lo, hi }")
	if err := Check(prog); err != nil {
		t.Fatalf("Check: %v", err)
	}

	var nums []string
	for i := 1; i <= 100; i++ {
		nums = append(nums, "5")
	}
	nums[10] = "1"
	nums[90] = "9"
	input := strings.Join(nums, "\n") + "\n"

	var out bytes.Buffer
	cfg := interp.Config{
		Inputs: []interp.NamedInput{{Name: "", Reader: strings.NewReader(input)}},
		Output: &out,
	}
	if err := Run(prog, cfg, Config{Shards: 3, ChunkSize: 64}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	fields := strings.Fields(out.String())
	if len(fields) != 2 || fields[1] != "9" {
		t.Errorf("min/max output = %q", out.String())
	}
}
