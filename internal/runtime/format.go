package runtime

import (
	"fmt"
	"strconv"
	"strings"
)

// Sprintf implements printf formatting restricted to the AWK conversion
// set: %d %i %o %x %X %u %c %s %e %E %f %F %g %G %% with flags, width and
// precision (both accepting *). %c with a numeric argument emits a single
// byte.
func Sprintf(format string, args []Value, convfmt string) string {
	var result strings.Builder
	argIdx := 0

	next := func() Value {
		if argIdx < len(args) {
			v := args[argIdx]
			argIdx++
			return v
		}
		return StrValue("")
	}

	i := 0
	for i < len(format) {
		if format[i] != '%' {
			result.WriteByte(format[i])
			i++
			continue
		}

		i++
		if i >= len(format) {
			result.WriteByte('%')
			break
		}
		if format[i] == '%' {
			result.WriteByte('%')
			i++
			continue
		}

		// Flags: - + space # 0
		var flags strings.Builder
		for i < len(format) && strings.ContainsAny(string(format[i]), "-+ #0") {
			flags.WriteByte(format[i])
			i++
		}

		// Width, possibly dynamic
		var width string
		if i < len(format) && format[i] == '*' {
			w := int(next().Num())
			if w < 0 {
				flags.WriteByte('-')
				w = -w
			}
			width = strconv.Itoa(w)
			i++
		} else {
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				width += string(format[i])
				i++
			}
		}

		// Precision, possibly dynamic
		var precision string
		if i < len(format) && format[i] == '.' {
			precision = "."
			i++
			if i < len(format) && format[i] == '*' {
				p := int(next().Num())
				if p < 0 {
					precision = ""
				} else {
					precision += strconv.Itoa(p)
				}
				i++
			} else {
				for i < len(format) && format[i] >= '0' && format[i] <= '9' {
					precision += string(format[i])
					i++
				}
			}
		}

		if i >= len(format) {
			result.WriteString("%" + flags.String() + width + precision)
			break
		}

		spec := format[i]
		i++
		value := next()

		switch spec {
		case 'd', 'i':
			goFmt := "%" + flags.String() + width + precision + "d"
			fmt.Fprintf(&result, goFmt, value.Int())
		case 'o':
			goFmt := "%" + flags.String() + width + precision + "o"
			fmt.Fprintf(&result, goFmt, uint64(value.Int()))
		case 'x':
			goFmt := "%" + flags.String() + width + precision + "x"
			fmt.Fprintf(&result, goFmt, uint64(value.Int()))
		case 'X':
			goFmt := "%" + flags.String() + width + precision + "X"
			fmt.Fprintf(&result, goFmt, uint64(value.Int()))
		case 'u':
			goFmt := "%" + flags.String() + width + precision + "d"
			fmt.Fprintf(&result, goFmt, uint64(value.Int()))
		case 'c':
			// Numbers emit a byte; strings emit their first byte.
			if value.IsNum() {
				n := value.Int()
				if n >= 0 && n <= 255 {
					result.WriteByte(byte(n))
				}
			} else if len(value.S) > 0 {
				result.WriteByte(value.S[0])
			}
		case 's':
			goFmt := "%" + flags.String() + width + precision + "s"
			fmt.Fprintf(&result, goFmt, value.Str(convfmt))
		case 'e', 'E', 'f', 'F', 'g', 'G':
			c := spec
			if c == 'F' {
				c = 'f'
			}
			goFmt := "%" + flags.String() + width + precision + string(c)
			fmt.Fprintf(&result, goFmt, value.Num())
		default:
			result.WriteByte('%')
			result.WriteByte(spec)
		}
	}

	return result.String()
}
