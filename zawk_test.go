package zawk_test

import (
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/zawk-lang/zawk"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		program string
		input   string
		config  *zawk.Config
		want    string
	}{
		{
			name:    "print second field",
			program: `{ print $2 }`,
			input:   "a b c\n",
			want:    "b\n",
		},
		{
			name:    "print whole record",
			program: `{ print $0 }`,
			input:   "hello world\n",
			want:    "hello world\n",
		},
		{
			name:    "default action",
			program: `/world/`,
			input:   "hello world\ngoodbye\n",
			want:    "hello world\n",
		},
		{
			name:    "sum numbers",
			program: `{ sum += $1 } END { print sum }`,
			input:   "1\n2\n3\n",
			want:    "6\n",
		},
		{
			name:    "BEGIN only",
			program: `BEGIN { print "hello" }`,
			want:    "hello\n",
		},
		{
			name:    "END only counts records",
			program: `END { print NR }`,
			input:   "a\nb\nc\n",
			want:    "3\n",
		},
		{
			name:    "custom field separator",
			program: `{ print $1 }`,
			input:   "a:b:c\n",
			config:  &zawk.Config{FS: ":"},
			want:    "a\n",
		},
		{
			name:    "regex field separator",
			program: `{ print $2 }`,
			input:   "a12b34c\n",
			config:  &zawk.Config{FS: "[0-9]+"},
			want:    "b\n",
		},
		{
			name:    "single-char metacharacter FS is literal",
			program: `{ print $2, NF }`,
			input:   "a.b.c\n",
			config:  &zawk.Config{FS: "."},
			want:    "b 3\n",
		},
		{
			name:    "pipe FS is literal",
			program: `{ print $1 }`,
			input:   "left|right\n",
			config:  &zawk.Config{FS: "|"},
			want:    "left\n",
		},
		{
			name:    "NR and NF",
			program: `{ print NR, NF }`,
			input:   "a b\nc d e\n",
			want:    "1 2\n2 3\n",
		},
		{
			name:    "pattern match",
			program: `/hello/ { print "found" }`,
			input:   "hello world\ngoodbye\n",
			want:    "found\n",
		},
		{
			name:    "range pattern",
			program: `/start/,/stop/ { print $1 }`,
			input:   "a x\nstart y\nb z\nstop w\nc v\n",
			want:    "start\nb\nstop\n",
		},
		{
			name:    "arithmetic precedence",
			program: `BEGIN { print 2 + 3 * 4 }`,
			want:    "14\n",
		},
		{
			name:    "division produces float",
			program: `BEGIN { print 7 / 2 }`,
			want:    "3.5\n",
		},
		{
			name:    "power right associative",
			program: `BEGIN { print 2 ^ 3 ^ 2 }`,
			want:    "512\n",
		},
		{
			name:    "modulo",
			program: `BEGIN { print 7 % 3 }`,
			want:    "1\n",
		},
		{
			name:    "string concatenation",
			program: `BEGIN { print "hello" " " "world" }`,
			want:    "hello world\n",
		},
		{
			name:    "numeric string comparison",
			program: `{ if ($1 > 5) print "big"; else print "small" }`,
			input:   "3\n10\n",
			want:    "small\nbig\n",
		},
		{
			name:    "uninitialized is zero and empty",
			program: `BEGIN { print x + 1, "[" y "]" }`,
			want:    "1 []\n",
		},
		{
			name:    "user function monomorphized",
			program: `function double(x) { return x * 2 } BEGIN { print double(21), double("3.5") }`,
			want:    "42 7\n",
		},
		{
			name:    "recursive function",
			program: `function fib(n) { if (n < 2) return n; return fib(n-1) + fib(n-2) } BEGIN { print fib(10) }`,
			want:    "55\n",
		},
		{
			name:    "function array parameter",
			program: `function fill(a) { a["k"] = "v" } BEGIN { fill(m); print m["k"] }`,
			want:    "v\n",
		},
		{
			name:    "local variable via extra parameter",
			program: `function count(n,   i, total) { for (i = 1; i <= n; i++) total += i; return total } BEGIN { print count(4) }`,
			want:    "10\n",
		},
		{
			name:    "for-in accumulate",
			program: `BEGIN { a[1] = 1; a[2] = 2; for (k in a) s += a[k]; print s }`,
			want:    "3\n",
		},
		{
			name:    "printf rounding",
			program: `BEGIN { printf "%.2f\n", 1/3 }`,
			want:    "0.33\n",
		},
		{
			name:    "printf conversions",
			program: `BEGIN { printf "%d|%05.1f|%s|%x|%o\n", 42, 3.14159, "hi", 255, 8 }`,
			want:    "42|003.1|hi|ff|10\n",
		},
		{
			name:    "printf char from code",
			program: `BEGIN { printf "%c%c\n", 104, "i" }`,
			want:    "hi\n",
		},
		{
			name:    "ternary",
			program: `{ print ($1 > 5 ? "big" : "small") }`,
			input:   "3\n10\n",
			want:    "small\nbig\n",
		},
		{
			name:    "increment and decrement",
			program: `BEGIN { x = 5; print ++x, x++, x }`,
			want:    "6 6 7\n",
		},
		{
			name:    "augmented assignment",
			program: `BEGIN { x = 10; x -= 4; x *= 2; print x }`,
			want:    "12\n",
		},
		{
			name:    "gsub on record",
			program: `{ gsub(/o/, "0"); print }`,
			input:   "hello world\n",
			want:    "hell0 w0rld\n",
		},
		{
			name:    "sub replaces first only",
			program: `{ n = sub(/o/, "0"); print n, $0 }`,
			input:   "hello world\n",
			want:    "1 hell0 world\n",
		},
		{
			name:    "gsub ampersand",
			program: `BEGIN { s = "ab"; gsub(/b/, "[&]", s); print s }`,
			want:    "a[b]\n",
		},
		{
			name:    "length of record and string",
			program: `{ print length($0), length("abc") }`,
			input:   "hello\n",
			want:    "5 3\n",
		},
		{
			name:    "length of array",
			program: `BEGIN { a[1]; a[2]; a[3] = 9; print length(a) }`,
			want:    "1\n",
		},
		{
			name:    "substr",
			program: `{ print substr($0, 2, 3) }`,
			input:   "hello\n",
			want:    "ell\n",
		},
		{
			name:    "split with separator",
			program: `{ n = split($0, a, ":"); print n, a[1], a[3] }`,
			input:   "a:b:c\n",
			want:    "3 a c\n",
		},
		{
			name:    "index",
			program: `{ print index($0, "ll") }`,
			input:   "hello\n",
			want:    "3\n",
		},
		{
			name:    "match sets RSTART and RLENGTH",
			program: `BEGIN { print match("foobar", /o+/), RSTART, RLENGTH }`,
			want:    "2 2 2\n",
		},
		{
			name:    "tolower toupper",
			program: `{ print tolower($1), toupper($2) }`,
			input:   "Hello World\n",
			want:    "hello WORLD\n",
		},
		{
			name:    "sprintf",
			program: `BEGIN { s = sprintf("%03d-%s", 7, "x"); print s }`,
			want:    "007-x\n",
		},
		{
			name:    "dynamic regex match",
			program: `BEGIN { re = "^a+b$"; if ("aab" ~ re) print "yes" }`,
			want:    "yes\n",
		},
		{
			name:    "not match",
			program: `BEGIN { if ("xyz" !~ /a/) print "no a" }`,
			want:    "no a\n",
		},
		{
			name:    "delete element",
			program: `BEGIN { a["k"] = 1; delete a["k"]; print ("k" in a), length(a) }`,
			want:    "0 0\n",
		},
		{
			name:    "delete whole array",
			program: `BEGIN { a[1] = 1; a[2] = 2; delete a; print length(a) }`,
			want:    "0\n",
		},
		{
			name:    "multi-dimensional subscript",
			program: `BEGIN { a[1,2] = "x"; if ((1,2) in a) print a[1,2] }`,
			want:    "x\n",
		},
		{
			name:    "field assignment rebuilds record",
			program: `{ $2 = "X"; print $0 }`,
			input:   "a b c\n",
			want:    "a X c\n",
		},
		{
			name:    "field assignment beyond NF extends",
			program: `{ $5 = "e"; print NF, $0 }`,
			input:   "a b\n",
			want:    "5 a b   e\n",
		},
		{
			name:    "assign record resplits",
			program: `{ $0 = "x y z"; print NF, $2 }`,
			input:   "ignored\n",
			want:    "3 y\n",
		},
		{
			name:    "NF truncation rebuilds record",
			program: `{ NF = 2; print $0 }`,
			input:   "a b c d\n",
			want:    "a b\n",
		},
		{
			name:    "OFS applies to print",
			program: `BEGIN { OFS = "-" } { $1 = $1; print $1, $2 }`,
			input:   "a b\n",
			want:    "a-b\n",
		},
		{
			name:    "next skips remaining rules",
			program: `/skip/ { next } { print "kept", $1 }`,
			input:   "skip me\nkeep it\n",
			want:    "kept keep\n",
		},
		{
			name:    "while loop",
			program: `BEGIN { i = 0; while (i < 3) { s = s i; i++ }; print s }`,
			want:    "012\n",
		},
		{
			name:    "do-while loop",
			program: `BEGIN { i = 0; do { s = s "x"; i++ } while (i < 2); print s }`,
			want:    "xx\n",
		},
		{
			name:    "break and continue",
			program: `BEGIN { for (i = 0; i < 10; i++) { if (i == 2) continue; if (i == 5) break; s = s i }; print s }`,
			want:    "0134\n",
		},
		{
			name:    "getline advances input",
			program: `NR == 1 { getline; print }`,
			input:   "a\nb\nc\n",
			want:    "b\n",
		},
		{
			name:    "getline into variable",
			program: `NR == 1 { getline line; print line, $0 }`,
			input:   "a\nb\n",
			want:    "b a\n",
		},
		{
			name:    "srand deterministic with seed",
			program: `BEGIN { srand(42); x = rand(); srand(42); y = rand(); print (x == y) }`,
			want:    "1\n",
		},
		{
			name:    "preset variables",
			program: `{ if ($1 > limit + 0) print $1 }`,
			input:   "3\n30\n",
			config:  &zawk.Config{Variables: map[string]string{"limit": "10"}},
			want:    "30\n",
		},
		{
			name:    "trim and pad",
			program: `BEGIN { print "[" trim("  x  ") "]", pad_left("7", 3, "0"), pad_right("a", 3, ".") }`,
			want:    "[x] 007 a..\n",
		},
		{
			name:    "repeat and strcmp",
			program: `BEGIN { print repeat("ab", 3), strcmp("a", "b"), strcmp("b", "a"), strcmp("a", "a") }`,
			want:    "ababab -1 1 0\n",
		},
		{
			name:    "strtonum and numeric predicates",
			program: `BEGIN { print strtonum("12.5kg"), isint("42"), isint("4.2"), isnum("4.2"), isnum("abc") }`,
			want:    "12.5 1 0 1 0\n",
		},
		{
			name:    "min and max",
			program: `BEGIN { print min(3, 1, 2), max(3, 1, 2), min("b", "a"), max("b", "c") }`,
			want:    "1 3 a c\n",
		},
		{
			name:    "asort into destination",
			program: `BEGIN { a[1] = 30; a[2] = 10; a[3] = 20; n = asort(a, b); print n, b[1], b[2], b[3] }`,
			want:    "3 10 20 30\n",
		},
		{
			name:    "asort in place",
			program: `BEGIN { a[1] = "c"; a[2] = "a"; a[3] = "b"; asort(a); print a[1], a[2], a[3] }`,
			want:    "a b c\n",
		},
		{
			name:    "asorti sorts indices",
			program: `BEGIN { a["zed"] = 1; a["ant"] = 1; a["mid"] = 1; n = asorti(a, idx); print n, idx[1], idx[3] }`,
			want:    "3 ant zed\n",
		},
		{
			name:    "join in key order",
			program: `BEGIN { split("x:y:z", a, ":"); print join(a, "-") }`,
			want:    "x-y-z\n",
		},
		{
			name:    "mkbool",
			program: `BEGIN { print mkbool("true"), mkbool("no"), mkbool("0.0"), mkbool("7") }`,
			want:    "1 0 0 1\n",
		},
		{
			name:    "hash digests",
			program: `BEGIN { print md5("abc"), crc32("123456789") }`,
			want:    "900150983cd24fb0d6963f7d28e17f72 3421780262\n",
		},
		{
			name:    "sha256 digest",
			program: `BEGIN { print sha256("") }`,
			want:    "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855\n",
		},
		{
			name:    "json round trip",
			program: `BEGIN { a["k"] = "v"; a["n"] = "1"; s = to_json(a); n = from_json(s, b); print n, b["k"], b["n"] }`,
			want:    "2 v 1\n",
		},
		{
			name:    "escape_csv",
			program: `BEGIN { print escape_csv("a,b"), escape_csv("plain") }`,
			want:    "\"a,b\" plain\n",
		},
		{
			name:    "mktime strftime round trip",
			program: `BEGIN { ts = mktime("2024-03-05 06:07:08"); print (strftime("%Y-%m-%d %H:%M:%S", ts) == "2024-03-05 06:07:08") }`,
			want:    "1\n",
		},
		{
			name:    "empty program with pattern only regex",
			program: `$1 == "x"`,
			input:   "x 1\ny 2\n",
			want:    "x 1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := zawk.Run(tt.program, strings.NewReader(tt.input), tt.config)
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Run() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCSVInput(t *testing.T) {
	tests := []struct {
		name    string
		program string
		input   string
		config  zawk.Config
		want    string
	}{
		{
			name:    "quoted field with embedded quote",
			program: `{ print $2 }`,
			input:   "\"x,y\",\"a\"\"b\",z\n",
			config:  zawk.Config{InputMode: "csv"},
			want:    "a\"b\n",
		},
		{
			name:    "quoted delimiter stays in field",
			program: `{ print $1 }`,
			input:   "\"x,y\",z\n",
			config:  zawk.Config{InputMode: "csv"},
			want:    "x,y\n",
		},
		{
			name:    "newline inside quotes",
			program: `{ print NF }`,
			input:   "a,\"b\nc\",d\n",
			config:  zawk.Config{InputMode: "csv"},
			want:    "3\n",
		},
		{
			name:    "crlf stripped",
			program: `{ print $2 }`,
			input:   "a,b\r\n",
			config:  zawk.Config{InputMode: "csv"},
			want:    "b\n",
		},
		{
			name:    "tsv input",
			program: `{ print $2 }`,
			input:   "a\tb\tc\n",
			config:  zawk.Config{InputMode: "tsv"},
			want:    "b\n",
		},
		{
			name:    "csv output quotes as needed",
			program: `{ print $1, $2 }`,
			input:   "a,\"b,c\"\n",
			config:  zawk.Config{InputMode: "csv", OutputMode: "csv"},
			want:    "a,\"b,c\"\n",
		},
		{
			name:    "csv output quotes embedded quote",
			program: `BEGIN { print "say \"hi\"", "x" }`,
			config:  zawk.Config{OutputMode: "csv"},
			want:    "\"say \"\"hi\"\"\",x\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			got, err := zawk.Run(tt.program, strings.NewReader(tt.input), &cfg)
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Run() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		program string
		isParse bool
	}{
		{"scalar array conflict", `BEGIN { a = 1; a[1] = 2 }`, false},
		{"function name used as variable", `function f(x) { return x + 1 } BEGIN { a[1] = 1; f = 2 }`, false},
		{"undefined function", `BEGIN { nosuch(1) }`, false},
		{"bad builtin arity", `BEGIN { print substr("abc") }`, false},
		{"unterminated string", `BEGIN { print "abc }`, true},
		{"unterminated brace", `BEGIN { print 1`, true},
		{"bad reduce op", `@reduce mean x`, true},
		{"assign to non-lvalue", `BEGIN { 1 = 2 }`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := zawk.Compile(tt.program)
			if err == nil {
				t.Fatal("Compile() succeeded, want error")
			}
			if tt.isParse {
				if _, ok := err.(*zawk.ParseError); !ok {
					t.Errorf("got %T (%v), want *ParseError", err, err)
				}
			} else {
				if _, ok := err.(*zawk.TypeError); !ok {
					t.Errorf("got %T (%v), want *TypeError", err, err)
				}
			}
		})
	}
}

func TestExit(t *testing.T) {
	got, err := zawk.Run(`BEGIN { print "before"; exit 3; print "after" }`, nil, nil)
	if got != "before\n" {
		t.Errorf("output = %q, want %q", got, "before\n")
	}
	code, ok := zawk.IsExitError(err)
	if !ok || code != 3 {
		t.Errorf("err = %v, want ExitError{3}", err)
	}

	// exit 0 is success, not an error.
	_, err = zawk.Run(`BEGIN { exit 0 }`, nil, nil)
	if err != nil {
		t.Errorf("exit 0 returned error: %v", err)
	}

	// END runs after exit.
	got, err = zawk.Run(`BEGIN { exit 2 } END { print "end" }`, nil, nil)
	if got != "end\n" {
		t.Errorf("output = %q, want %q", got, "end\n")
	}
	if code, ok := zawk.IsExitError(err); !ok || code != 2 {
		t.Errorf("err = %v, want ExitError{2}", err)
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name    string
		program string
	}{
		{"division by zero", `BEGIN { print 1 / 0 }`},
		{"modulo by zero", `BEGIN { print 1 % 0 }`},
		{"bad regex at use", `BEGIN { if ("x" ~ "[") print "no" }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := zawk.Run(tt.program, nil, nil)
			if err == nil {
				t.Fatal("Run() succeeded, want runtime error")
			}
			if _, ok := err.(*zawk.RuntimeError); !ok {
				t.Errorf("got %T (%v), want *RuntimeError", err, err)
			}
		})
	}
}

func TestEnviron(t *testing.T) {
	os.Setenv("ZAWK_TEST_VAR", "hello")
	defer os.Unsetenv("ZAWK_TEST_VAR")

	got, err := zawk.Run(`BEGIN { print ENVIRON["ZAWK_TEST_VAR"] }`, nil, nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got != "hello\n" {
		t.Errorf("output = %q, want %q", got, "hello\n")
	}
}

func TestParallel(t *testing.T) {
	// Build an input with repeated keys across many lines.
	var sb strings.Builder
	keys := []string{"alpha", "beta", "gamma", "delta"}
	for i := 0; i < 1000; i++ {
		sb.WriteString(keys[i%len(keys)])
		sb.WriteString("\t1\n")
	}
	input := sb.String()

	program := "@reduce sum c\n{ c[$1]++ } END { for (k in c) print k, c[k] }"

	serial, err := zawk.Run(program, strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("serial run error: %v", err)
	}
	par, err := zawk.Run(program, strings.NewReader(input), &zawk.Config{Parallel: 4})
	if err != nil {
		t.Fatalf("parallel run error: %v", err)
	}

	if sortLines(serial) != sortLines(par) {
		t.Errorf("parallel output differs from serial:\nserial: %q\nparallel: %q", serial, par)
	}
}

func TestParallelScalarReduce(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 100; i++ {
		sb.WriteString("1\n")
	}
	program := "@reduce sum total\n{ total += $1 } END { print total }"

	got, err := zawk.Run(program, strings.NewReader(sb.String()), &zawk.Config{Parallel: 3})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got != "100\n" {
		t.Errorf("output = %q, want %q", got, "100\n")
	}
}

func TestParallelSharedStateRejected(t *testing.T) {
	_, err := zawk.Run(`{ x = $1 } END { print x }`, strings.NewReader("a\n"), &zawk.Config{Parallel: 2})
	if err == nil {
		t.Fatal("Run() succeeded, want shared-state error")
	}
	if _, ok := err.(*zawk.TypeError); !ok {
		t.Errorf("got %T (%v), want *TypeError", err, err)
	}
	// The same program is fine serially.
	if _, err := zawk.Run(`{ x = $1 } END { print x }`, strings.NewReader("a\n"), nil); err != nil {
		t.Errorf("serial run error: %v", err)
	}
}

func TestParallelOrderedOutput(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 500; i++ {
		sb.WriteString("line\n")
	}
	// Stateless program: output must be the input-order concatenation.
	par, err := zawk.Run(`{ print "x" }`, strings.NewReader(sb.String()), &zawk.Config{Parallel: 4})
	if err != nil {
		t.Fatalf("parallel error: %v", err)
	}
	if par != strings.Repeat("x\n", 500) {
		t.Errorf("parallel output corrupted: %d bytes", len(par))
	}
}

func TestMultipleInputs(t *testing.T) {
	prog, err := zawk.Compile(`{ print FILENAME, FNR, NR }`)
	if err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	cfg := &zawk.Config{Output: &out}
	inputs := []zawk.Input{
		{Name: "one.txt", Reader: strings.NewReader("a\nb\n")},
		{Name: "two.txt", Reader: strings.NewReader("c\n")},
	}
	if err := prog.RunInputs(inputs, cfg); err != nil {
		t.Fatalf("RunInputs: %v", err)
	}
	want := "one.txt 1 1\none.txt 2 2\ntwo.txt 1 3\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestNextFile(t *testing.T) {
	prog, err := zawk.Compile(`FNR == 2 { nextfile } { print $0 }`)
	if err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	inputs := []zawk.Input{
		{Name: "a", Reader: strings.NewReader("a1\na2\na3\n")},
		{Name: "b", Reader: strings.NewReader("b1\n")},
	}
	if err := prog.RunInputs(inputs, &zawk.Config{Output: &out}); err != nil {
		t.Fatalf("RunInputs: %v", err)
	}
	if out.String() != "a1\nb1\n" {
		t.Errorf("output = %q, want %q", out.String(), "a1\nb1\n")
	}
}

func TestDumps(t *testing.T) {
	prog, err := zawk.Compile(`{ count[$1] += 2 } END { for (k in count) print k, count[k] }`)
	if err != nil {
		t.Fatal(err)
	}
	if asm := prog.Disassemble(); !strings.Contains(asm, "Instance") {
		t.Errorf("Disassemble() missing instances:\n%s", asm)
	}
	if cfg := prog.DumpCFG(); !strings.Contains(cfg, "Globals") {
		t.Errorf("DumpCFG() missing globals:\n%s", cfg)
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCompile did not panic on bad program")
		}
	}()
	zawk.MustCompile(`BEGIN {`)
}

func sortLines(s string) string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
