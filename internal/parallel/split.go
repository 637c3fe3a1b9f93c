package parallel

import (
	"bytes"
	"io"
	"os"

	"github.com/zawk-lang/zawk/internal/interp"
	"github.com/zawk-lang/zawk/internal/records"
)

// splitter turns the configured inputs into per-shard byte ranges.
//
// Seekable regular files split in place: a tentative offset at size*i/n
// moves forward to the next real record boundary. In CSV mode the walk
// additionally requires the bytes from the candidate newline up to the
// following newline to contain an even number of quotes, so no split
// lands inside an open quoted field; the worst-case walk is one full
// record. Non-seekable inputs are buffered into chunks cut at record
// boundaries. Record separators longer than one byte disable splitting
// and the input runs as a single shard.
type splitter struct {
	shards    int
	chunkSize int
	rsByte    byte
	simpleRS  bool
	csv       bool
}

func newSplitter(base interp.Config, cfg Config) *splitter {
	sp := &splitter{
		shards:    cfg.Shards,
		chunkSize: cfg.ChunkSize,
		rsByte:    '\n',
		simpleRS:  true,
	}
	switch base.InputMode {
	case records.ModeCSV, records.ModeTSV:
		sp.csv = true
	default:
		rs := base.RS
		if rs == "" {
			rs = "\n"
		}
		if len(rs) == 1 {
			sp.rsByte = rs[0]
		} else {
			sp.simpleRS = false
		}
	}
	return sp
}

func (sp *splitter) splitInputs(inputs []interp.NamedInput) ([]interp.NamedInput, error) {
	if !sp.simpleRS {
		// Paragraph, multi-character and regex separators cannot be split
		// safely without scanning; run each input whole.
		return inputs, nil
	}

	var out []interp.NamedInput
	for _, src := range inputs {
		if f, ok := src.Reader.(*os.File); ok {
			if st, err := f.Stat(); err == nil && st.Mode().IsRegular() && st.Size() > 0 {
				shards, err := sp.splitFile(f, src.Name, st.Size())
				if err != nil {
					return nil, err
				}
				out = append(out, shards...)
				continue
			}
		}
		chunks, err := sp.chunkStream(src)
		if err != nil {
			return nil, err
		}
		out = append(out, chunks...)
	}
	return out, nil
}

func (sp *splitter) splitFile(f *os.File, name string, size int64) ([]interp.NamedInput, error) {
	n := sp.shards
	if n < 1 {
		n = 1
	}
	bounds := []int64{0}
	for i := 1; i < n; i++ {
		tentative := size * int64(i) / int64(n)
		adjusted, err := sp.boundaryAfter(f, tentative, size)
		if err != nil {
			return nil, err
		}
		if adjusted > bounds[len(bounds)-1] && adjusted < size {
			bounds = append(bounds, adjusted)
		}
	}
	bounds = append(bounds, size)

	var out []interp.NamedInput
	for i := 0; i+1 < len(bounds); i++ {
		out = append(out, interp.NamedInput{
			Name:   name,
			Reader: io.NewSectionReader(f, bounds[i], bounds[i+1]-bounds[i]),
		})
	}
	return out, nil
}

// boundaryAfter returns the offset just past the first record boundary at
// or after tentative.
func (sp *splitter) boundaryAfter(f *os.File, tentative, size int64) (int64, error) {
	const window = 64 * 1024
	buf := make([]byte, window)
	off := tentative

	for off < size {
		n, err := f.ReadAt(buf, off)
		if n == 0 {
			if err == io.EOF {
				return size, nil
			}
			if err != nil {
				return 0, err
			}
		}
		data := buf[:n]
		search := 0
		for {
			i := bytes.IndexByte(data[search:], sp.rsByte)
			if i < 0 {
				break
			}
			pos := off + int64(search) + int64(i) + 1
			if !sp.csv {
				return pos, nil
			}
			ok, err := sp.outsideQuote(f, pos, size)
			if err != nil {
				return 0, err
			}
			if ok {
				return pos, nil
			}
			search += i + 1
		}
		off += int64(n)
		if err == io.EOF {
			break
		}
	}
	return size, nil
}

// outsideQuote checks that the record starting at pos closes its quotes
// by the next newline: an odd quote count means pos is inside an open
// quoted field and the newline belonged to quoted data.
func (sp *splitter) outsideQuote(f *os.File, pos, size int64) (bool, error) {
	const window = 64 * 1024
	buf := make([]byte, window)
	quotes := 0
	off := pos

	for off < size {
		n, err := f.ReadAt(buf, off)
		if n == 0 {
			if err == io.EOF {
				break
			}
			if err != nil {
				return false, err
			}
		}
		for _, b := range buf[:n] {
			switch b {
			case '"':
				quotes++
			case '\n':
				return quotes%2 == 0, nil
			}
		}
		off += int64(n)
		if err == io.EOF {
			break
		}
	}
	return quotes%2 == 0, nil
}

// chunkStream buffers a non-seekable input into chunks cut at the last
// record boundary of each read.
func (sp *splitter) chunkStream(src interp.NamedInput) ([]interp.NamedInput, error) {
	var out []interp.NamedInput
	var remainder []byte
	buf := make([]byte, sp.chunkSize)

	for {
		n, err := io.ReadFull(src.Reader, buf)
		atEOF := err == io.EOF || err == io.ErrUnexpectedEOF
		if err != nil && !atEOF {
			return nil, err
		}

		data := append(remainder, buf[:n]...)
		if len(data) == 0 {
			break
		}

		cut := len(data)
		if !atEOF {
			if i := bytes.LastIndexByte(data, sp.rsByte); i >= 0 {
				cut = i + 1
			} else {
				// No boundary in this chunk; keep reading.
				remainder = data
				continue
			}
		}

		chunk := make([]byte, cut)
		copy(chunk, data[:cut])
		out = append(out, interp.NamedInput{Name: src.Name, Reader: bytes.NewReader(chunk)})
		remainder = append([]byte(nil), data[cut:]...)

		if atEOF {
			if len(remainder) > 0 {
				out = append(out, interp.NamedInput{Name: src.Name, Reader: bytes.NewReader(remainder)})
			}
			break
		}
	}
	return out, nil
}
