package markov

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/natefinch/atomic"
)

// maxStringLen is the longest string a 16-bit length prefix can describe.
const maxStringLen = math.MaxUint16

// Width is the number of bits used for each numerator and denominator in the
// binary format. A file must be read with the width it was written with.
type Width uint8

// Supported count widths.
const (
	Width8  Width = 8
	Width16 Width = 16
)

func (w Width) max() uint32 {
	if w == Width8 {
		return math.MaxUint8
	}
	return math.MaxUint16
}

// Codec reads and writes Graphs in a compact, versionless big-endian layout:
//
//	u16 wordCount, then wordCount length-prefixed words in ID order
//	i32 historyCount, then per history:
//	    length-prefixed packed history key
//	    u16 transitionCount, then per transition:
//	        u16 target, numerator and denominator at the codec's Width
//
// Histories are written in ascending key order, so equal graphs always
// encode to identical bytes. The order is not stored: it is read back from
// the history keys, so a graph without histories decodes with order 0.
type Codec struct {
	width  Width
	logger *slog.Logger
}

// NewCodec returns a Codec using width for counts.
func NewCodec(width Width) (*Codec, error) {
	if width != Width8 && width != Width16 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	return &Codec{
		width:  width,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger for the Codec. By default, all logs are discarded.
func (c *Codec) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Width returns the count width of the codec.
func (c *Codec) Width() Width {
	return c.width
}

// Encode writes g to w. On error, w may have received a prefix of the
// encoding; SaveFile never leaves such a prefix on disk.
func (c *Codec) Encode(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	var scratch [4]byte

	writeU16 := func(v uint16) error {
		binary.BigEndian.PutUint16(scratch[:2], v)
		_, err := bw.Write(scratch[:2])
		return err
	}
	writeString := func(s string) error {
		if len(s) > maxStringLen {
			return fmt.Errorf("%w: %d bytes", ErrWordTooLong, len(s))
		}
		if err := writeU16(uint16(len(s))); err != nil {
			return err
		}
		_, err := bw.WriteString(s)
		return err
	}
	writeCount := func(v uint32) error {
		if v > c.width.max() {
			return fmt.Errorf("%w: %d exceeds %d-bit field", ErrCountOverflow, v, c.width)
		}
		if c.width == Width8 {
			return bw.WriteByte(byte(v))
		}
		return writeU16(uint16(v))
	}

	dict := g.Dictionary()
	if err := writeU16(uint16(dict.Len())); err != nil {
		return err
	}
	for _, word := range dict.words {
		if err := writeString(word); err != nil {
			return fmt.Errorf("word %q: %w", word, err)
		}
	}

	histories := g.Histories()
	if len(histories) > math.MaxInt32 {
		return fmt.Errorf("%d histories do not fit the history count", len(histories))
	}
	binary.BigEndian.PutUint32(scratch[:], uint32(len(histories)))
	if _, err := bw.Write(scratch[:]); err != nil {
		return err
	}

	for _, h := range histories {
		if err := writeString(string(h)); err != nil {
			return fmt.Errorf("history %s: %w", h, err)
		}
		table := g.Transitions(h)
		if table.Len() > math.MaxUint16 {
			return fmt.Errorf("history %s has %d transitions, limit is %d", h, table.Len(), math.MaxUint16)
		}
		if err := writeU16(uint16(table.Len())); err != nil {
			return err
		}
		for tr := range table.All() {
			if err := writeU16(uint16(tr.Target)); err != nil {
				return err
			}
			if err := writeCount(tr.Numerator); err != nil {
				return fmt.Errorf("history %s numerator: %w", h, err)
			}
			if err := writeCount(tr.Denominator); err != nil {
				return fmt.Errorf("history %s denominator: %w", h, err)
			}
		}
	}

	return bw.Flush()
}

// decoder tracks the byte offset of a binary graph stream for error reports.
type decoder struct {
	r     *bufio.Reader
	off   int64
	buf   [4]byte
	width Width
}

func (d *decoder) fail(field string, err error) error {
	return &DecodeError{Offset: d.off, Field: field, Err: err}
}

func (d *decoder) read(field string, p []byte) error {
	n, err := io.ReadFull(d.r, p)
	if err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return d.fail(field, io.ErrUnexpectedEOF)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return d.fail(field, err)
		}
		return fmt.Errorf("read %s: %w", field, err)
	}
	d.off += int64(n)
	return nil
}

func (d *decoder) u16(field string) (uint16, error) {
	if err := d.read(field, d.buf[:2]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(d.buf[:2]), nil
}

func (d *decoder) i32(field string) (int32, error) {
	if err := d.read(field, d.buf[:4]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(d.buf[:4])), nil
}

func (d *decoder) count(field string) (uint32, error) {
	if d.width == Width8 {
		if err := d.read(field, d.buf[:1]); err != nil {
			return 0, err
		}
		return uint32(d.buf[0]), nil
	}
	v, err := d.u16(field)
	return uint32(v), err
}

func (d *decoder) str(field string) (string, error) {
	n, err := d.u16(field + " length")
	if err != nil {
		return "", err
	}
	p := make([]byte, n)
	if err := d.read(field, p); err != nil {
		return "", err
	}
	return string(p), nil
}

// Decode reads a graph written by Encode with the same Width. It either
// returns a complete, validated graph or an error. Corrupt or truncated data
// yields a *DecodeError wrapping ErrMalformed; other reader failures are
// returned wrapped, without ErrMalformed.
func (c *Codec) Decode(r io.Reader) (*Graph, error) {
	d := &decoder{r: bufio.NewReader(r), width: c.width}

	wordCount, err := d.u16("word count")
	if err != nil {
		return nil, err
	}
	words := make([]string, wordCount)
	for i := range words {
		start := d.off
		if words[i], err = d.str("word"); err != nil {
			return nil, err
		}
		if i > 0 && words[i-1] >= words[i] {
			return nil, &DecodeError{Offset: start, Field: "word", Err: fmt.Errorf("%q is not after %q", words[i], words[i-1])}
		}
	}
	dict, err := newSortedDictionary(words)
	if err != nil {
		return nil, d.fail("word count", err)
	}

	historyCount, err := d.i32("history count")
	if err != nil {
		return nil, err
	}
	if historyCount < 0 {
		return nil, &DecodeError{Offset: d.off - 4, Field: "history count", Err: fmt.Errorf("negative count %d", historyCount)}
	}

	order := 0
	tables := make(map[History]*Table, min(int(historyCount), 1<<16))
	for range historyCount {
		start := d.off
		key, err := d.str("history")
		if err != nil {
			return nil, err
		}
		h := History(key)
		switch {
		case len(key) == 0 || len(key)%2 != 0:
			return nil, &DecodeError{Offset: start, Field: "history", Err: fmt.Errorf("bad key length %d", len(key))}
		case order == 0:
			order = h.Len()
		case h.Len() != order:
			return nil, &DecodeError{Offset: start, Field: "history", Err: fmt.Errorf("key holds %d ids, expected %d", h.Len(), order)}
		}
		for i := 0; i < h.Len(); i++ {
			if int(h.At(i)) >= dict.Len() {
				return nil, &DecodeError{Offset: start, Field: "history", Err: ErrIDOutOfRange}
			}
		}
		if _, dup := tables[h]; dup {
			return nil, &DecodeError{Offset: start, Field: "history", Err: fmt.Errorf("duplicate key %s", h)}
		}

		transitionCount, err := d.u16("transition count")
		if err != nil {
			return nil, err
		}
		if transitionCount == 0 {
			return nil, &DecodeError{Offset: d.off - 2, Field: "transition count", Err: errors.New("history without transitions")}
		}

		restorer := NewRestorer(int(transitionCount))
		for stillToRead := transitionCount; stillToRead > 0; stillToRead-- {
			target, err := d.u16("target")
			if err != nil {
				return nil, err
			}
			if int(target) >= dict.Len() {
				return nil, &DecodeError{Offset: d.off - 2, Field: "target", Err: ErrIDOutOfRange}
			}
			numerator, err := d.count("numerator")
			if err != nil {
				return nil, err
			}
			denominator, err := d.count("denominator")
			if err != nil {
				return nil, err
			}
			restorer.Append(WordID(target), numerator, denominator, stillToRead == 1)
		}
		tables[h] = restorer.Table()
	}

	if _, err := d.r.ReadByte(); err == nil {
		return nil, d.fail("end of data", errors.New("trailing bytes"))
	} else if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read end of data: %w", err)
	}

	graph, err := NewGraph(dict, order, tables)
	if err != nil {
		return nil, d.fail("graph", err)
	}
	return graph, nil
}

// SaveFile encodes g and atomically replaces path with the result.
func (c *Codec) SaveFile(path string, g *Graph) error {
	start := time.Now()

	var buf bytes.Buffer
	if err := c.Encode(&buf, g); err != nil {
		return fmt.Errorf("encode graph for %q: %w", path, err)
	}
	size := buf.Len()
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("save graph %q: %w", path, err)
	}

	c.logger.Info("Graph saved",
		slog.String("path", path),
		slog.Int("bytes", size),
		slog.Int("width", int(c.width)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// LoadFile decodes the graph stored at path. It reports false, with a nil
// error, if the file does not exist.
func (c *Codec) LoadFile(path string) (*Graph, bool, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load graph: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	g, err := c.Decode(f)
	if err != nil {
		return nil, false, fmt.Errorf("load graph %q: %w", path, err)
	}

	c.logger.Info("Graph loaded",
		slog.String("path", path),
		slog.Int("order", g.Order()),
		slog.Int("histories", g.Len()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return g, true, nil
}
