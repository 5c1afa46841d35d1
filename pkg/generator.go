package pkg

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Generator is a push-style JSON re-serializer. Write calls append JSON text
// to the underlying writer; structural calls must be balanced.
//
// BeginValue writes any pending element separator (comma, newline, indent)
// so that a following scalar write emits only the value text itself. It is
// idempotent per value position; scalar writes call it implicitly, and the
// redaction engine calls it explicitly before splicing a value through the
// unquoting or capture path.
type Generator interface {
	WriteStartObject() error
	WriteStartArray() error
	WriteEnd() error
	WriteKey(name string) error
	WriteString(value string) error
	WriteNumber(value json.Number) error
	WriteInt(value int64) error
	WriteFloat(value float64) error
	WriteBool(value bool) error
	WriteNull() error
	BeginValue() error
	Flush() error
	Close() error
}

type genFrame struct {
	array   bool
	members int
}

// textGenerator writes JSON text to a writer, optionally pretty-printed with
// the two-space indent used throughout this project.
type textGenerator struct {
	wr     io.Writer
	pretty bool

	stack   []genFrame
	sepDone bool // separator for the upcoming value already written
}

func newGenerator(wr io.Writer, pretty bool) *textGenerator {
	return &textGenerator{wr: wr, pretty: pretty}
}

func (g *textGenerator) writeString(s string) error {
	_, err := io.WriteString(g.wr, s)
	return err
}

func (g *textGenerator) writeNewline() error {
	return g.writeString("\n" + strings.Repeat("  ", len(g.stack)))
}

// BeginValue emits the separator owed before the next value, if any.
func (g *textGenerator) BeginValue() error {
	if g.sepDone {
		return nil
	}
	g.sepDone = true
	if len(g.stack) == 0 {
		return nil
	}
	top := &g.stack[len(g.stack)-1]
	if !top.array {
		panic("veil: value written without a key inside an object")
	}
	if top.members > 0 {
		if err := g.writeString(","); err != nil {
			return err
		}
	}
	top.members++
	if g.pretty {
		return g.writeNewline()
	}
	return nil
}

func (g *textGenerator) WriteKey(name string) error {
	if len(g.stack) == 0 || g.stack[len(g.stack)-1].array {
		panic("veil: key written outside of an object")
	}
	if g.sepDone {
		panic("veil: key written while a value is pending")
	}
	top := &g.stack[len(g.stack)-1]
	if top.members > 0 {
		if err := g.writeString(","); err != nil {
			return err
		}
	}
	top.members++
	if g.pretty {
		if err := g.writeNewline(); err != nil {
			return err
		}
	}
	quoted, err := json.Marshal(name)
	if err != nil {
		return err
	}
	if _, err := g.wr.Write(quoted); err != nil {
		return err
	}
	sep := ":"
	if g.pretty {
		sep = ": "
	}
	if err := g.writeString(sep); err != nil {
		return err
	}
	g.sepDone = true
	return nil
}

func (g *textGenerator) WriteStartObject() error {
	return g.writeStart(false)
}

func (g *textGenerator) WriteStartArray() error {
	return g.writeStart(true)
}

func (g *textGenerator) writeStart(array bool) error {
	if err := g.BeginValue(); err != nil {
		return err
	}
	g.stack = append(g.stack, genFrame{array: array})
	g.sepDone = false
	open := "{"
	if array {
		open = "["
	}
	return g.writeString(open)
}

func (g *textGenerator) WriteEnd() error {
	if len(g.stack) == 0 {
		panic("veil: end written without a matching start")
	}
	if g.sepDone {
		panic("veil: container closed with a value pending")
	}
	top := g.stack[len(g.stack)-1]
	g.stack = g.stack[:len(g.stack)-1]
	if g.pretty && top.members > 0 {
		if err := g.writeNewline(); err != nil {
			return err
		}
	}
	closer := "}"
	if top.array {
		closer = "]"
	}
	return g.writeString(closer)
}

func (g *textGenerator) WriteString(value string) error {
	if err := g.BeginValue(); err != nil {
		return err
	}
	g.sepDone = false
	quoted, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = g.wr.Write(quoted)
	return err
}

func (g *textGenerator) WriteNumber(value json.Number) error {
	if err := g.BeginValue(); err != nil {
		return err
	}
	g.sepDone = false
	s := value.String()
	if s == "" {
		s = "0"
	}
	return g.writeString(s)
}

func (g *textGenerator) WriteInt(value int64) error {
	return g.WriteNumber(json.Number(strconv.FormatInt(value, 10)))
}

func (g *textGenerator) WriteFloat(value float64) error {
	return g.WriteNumber(json.Number(strconv.FormatFloat(value, 'g', -1, 64)))
}

func (g *textGenerator) WriteBool(value bool) error {
	if err := g.BeginValue(); err != nil {
		return err
	}
	g.sepDone = false
	return g.writeString(strconv.FormatBool(value))
}

func (g *textGenerator) WriteNull() error {
	if err := g.BeginValue(); err != nil {
		return err
	}
	g.sepDone = false
	return g.writeString("null")
}

// Flush propagates to the underlying writer when it supports flushing. The
// generator itself does not buffer.
func (g *textGenerator) Flush() error {
	if f, ok := g.wr.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes. It never closes the underlying writer; the generator is a
// guest in the caller's I/O lifecycle.
func (g *textGenerator) Close() error {
	if len(g.stack) != 0 {
		return fmt.Errorf("veil: generator closed with %d open containers", len(g.stack))
	}
	return g.Flush()
}
