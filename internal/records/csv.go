package records

import (
	"bufio"
	"io"
	"strings"
)

// csvReader parses RFC 4180 records: double-quoted fields may contain
// the delimiter, newlines and doubled-quote escapes; an unquoted newline
// ends the record; a trailing CR before the newline is stripped.
//
// The state machine is Start -> Field | Quoted; Quoted -> QuotedQuote on
// a quote, which either emits a literal quote (another quote follows) or
// leaves the quoted region. A record terminates on the separator byte at
// quote depth zero or at EOF.
type csvReader struct {
	br    *bufio.Reader
	delim byte
	done  bool
}

func newCSVReader(r io.Reader, delim byte) *csvReader {
	return &csvReader{br: bufio.NewReaderSize(r, 64*1024), delim: delim}
}

type csvState uint8

const (
	csvStart csvState = iota
	csvField
	csvQuoted
	csvQuotedQuote
)

func (c *csvReader) next() (Record, bool, error) {
	if c.done {
		return Record{}, false, nil
	}

	var raw strings.Builder
	var field strings.Builder
	var fields []string
	state := csvStart
	sawAny := false

	flushField := func() {
		fields = append(fields, field.String())
		field.Reset()
	}

	for {
		b, err := c.br.ReadByte()
		if err == io.EOF {
			c.done = true
			if !sawAny {
				return Record{}, false, nil
			}
			flushField()
			return Record{Text: raw.String(), Fields: fields}, true, nil
		}
		if err != nil {
			return Record{}, false, err
		}
		sawAny = true

		switch state {
		case csvStart, csvField:
			switch b {
			case c.delim:
				raw.WriteByte(b)
				flushField()
				state = csvStart
			case '"':
				raw.WriteByte(b)
				if state == csvStart {
					state = csvQuoted
				} else {
					field.WriteByte(b) // quote inside unquoted field, literal
				}
			case '\n':
				// Record ends; strip a trailing CR from both the raw text
				// and the final field.
				text := raw.String()
				if strings.HasSuffix(text, "\r") {
					text = text[:len(text)-1]
					f := field.String()
					field.Reset()
					field.WriteString(strings.TrimSuffix(f, "\r"))
				}
				flushField()
				return Record{Text: text, Fields: fields}, true, nil
			default:
				raw.WriteByte(b)
				field.WriteByte(b)
				state = csvField
			}

		case csvQuoted:
			raw.WriteByte(b)
			if b == '"' {
				state = csvQuotedQuote
			} else {
				field.WriteByte(b)
			}

		case csvQuotedQuote:
			switch b {
			case '"':
				raw.WriteByte(b)
				field.WriteByte('"')
				state = csvQuoted
			case c.delim:
				raw.WriteByte(b)
				flushField()
				state = csvStart
			case '\n':
				text := strings.TrimSuffix(raw.String(), "\r")
				f := field.String()
				field.Reset()
				field.WriteString(strings.TrimSuffix(f, "\r"))
				flushField()
				return Record{Text: text, Fields: fields}, true, nil
			default:
				raw.WriteByte(b)
				field.WriteByte(b)
				state = csvField
			}
		}
	}
}
