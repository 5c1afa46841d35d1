package pkg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// obfuscationFrame tracks one governed property while its value is being
// written. depth counts containers opened inside the governed subtree; the
// frame is popped when depth returns to zero (or immediately for a scalar).
type obfuscationFrame struct {
	config   *PropertyConfig
	mode     ObfuscationMode
	resolved bool // mode is set once the value turns out to be a container
	depth    int

	obfuscating bool          // writer redirected into an obfuscation stream
	capture     *bytes.Buffer // container capture while producing valid JSON
	captureGen  Generator
}

// ObfuscatingGenerator applies the property redaction policy to a stream of
// generator calls. It forwards every call to the delegate generator, but
// values of configured properties are rewritten through their obfuscator:
// scalars individually, containers either wholesale (ModeObfuscate), not at
// all (ModeExclude), or per nested scalar (the inherit modes).
//
// It can be driven directly, for re-emitting an already parsed value, or by
// the pull loop in JSONObfuscator.
type ObfuscatingGenerator struct {
	delegate  Generator
	out       Generator // delegate, or the capture generator of the top frame
	writer    *obfuscatorWriter
	table     *propertyTable
	validJSON bool

	frames []obfuscationFrame
}

func newObfuscatingGenerator(delegate Generator, writer *obfuscatorWriter, table *propertyTable, validJSON bool) *ObfuscatingGenerator {
	return &ObfuscatingGenerator{
		delegate:  delegate,
		out:       delegate,
		writer:    writer,
		table:     table,
		validJSON: validJSON,
	}
}

func (g *ObfuscatingGenerator) top() *obfuscationFrame {
	if len(g.frames) == 0 {
		return nil
	}
	return &g.frames[len(g.frames)-1]
}

func (g *ObfuscatingGenerator) pop() {
	g.frames = g.frames[:len(g.frames)-1]
}

// lookupAllowed reports whether a key may start a new governed property.
// Inside an opaque or plainly inherited subtree deeper configuration is
// ignored; inherit-overridable lets a nested property take over, and an
// exempt subtree is open territory just like ungoverned input.
func (g *ObfuscatingGenerator) lookupAllowed() bool {
	f := g.top()
	if f == nil {
		return true
	}
	return f.resolved && (f.mode == ModeInheritOverridable || f.mode == ModeExclude)
}

func (g *ObfuscatingGenerator) WriteKey(name string) error {
	if g.lookupAllowed() {
		if cfg := g.table.lookup(name); cfg != nil {
			g.frames = append(g.frames, obfuscationFrame{config: cfg})
		}
	}
	return g.out.WriteKey(name)
}

func (g *ObfuscatingGenerator) WriteStartObject() error {
	return g.writeStart(false)
}

func (g *ObfuscatingGenerator) WriteStartArray() error {
	return g.writeStart(true)
}

func (g *ObfuscatingGenerator) writeStart(array bool) error {
	if f := g.top(); f != nil {
		if !f.resolved && f.depth == 0 {
			// This container is the governed property's own value; the
			// object or array mode decides how to treat the subtree.
			mode := f.config.mode(array)
			if mode == ModeObfuscate && f.config.Obfuscator == None {
				mode = ModeExclude
			}
			switch {
			case mode == ModeExclude:
				// Written normally. The frame stays on the stack as an
				// exempt marker so the container's start and end remain
				// balanced for any enclosing frame; it shields the
				// subtree from an enclosing inherit-overridable frame
				// while still letting nested keys match independently.
				f.resolved, f.mode, f.depth = true, ModeExclude, 1
			case mode == ModeObfuscate:
				f.resolved, f.mode, f.depth = true, mode, 1
				if err := g.delegate.BeginValue(); err != nil {
					return err
				}
				if g.validJSON {
					f.capture = &bytes.Buffer{}
					f.captureGen = newGenerator(f.capture, false)
					g.out = f.captureGen
				} else {
					g.writer.startObfuscate(f.config.Obfuscator)
					f.obfuscating = true
				}
			default:
				f.resolved, f.mode, f.depth = true, mode, 1
			}
		} else {
			f.depth++
		}
	}
	if array {
		return g.out.WriteStartArray()
	}
	return g.out.WriteStartObject()
}

func (g *ObfuscatingGenerator) WriteEnd() error {
	if err := g.out.WriteEnd(); err != nil {
		return err
	}
	f := g.top()
	if f == nil || !f.resolved || f.depth == 0 {
		return nil
	}
	f.depth--
	if f.depth > 0 {
		return nil
	}
	// The governed container just closed; finish obfuscation if any.
	switch {
	case f.obfuscating:
		if err := g.writer.endObfuscate(); err != nil {
			return err
		}
	case f.capture != nil:
		masked := f.config.Obfuscator.ObfuscateText(f.capture.String())
		g.out = g.delegate
		f.capture, f.captureGen = nil, nil
		if err := g.delegate.WriteString(masked); err != nil {
			return err
		}
	}
	g.pop()
	return g.flushRedacted()
}

// redactHere reports whether the current scalar is governed: either it is
// the configured property's own value, or it sits anywhere inside an
// inherit-mode subtree.
func redactHere(f *obfuscationFrame) bool {
	if f.depth == 0 {
		return true
	}
	return f.mode == ModeInherit || f.mode == ModeInheritOverridable
}

// scalar handles one scalar value. raw is the value's literal text as handed
// to the obfuscator; quoted tells whether the source value was a JSON string
// and therefore keeps its quotes. forward re-emits the value untouched.
func (g *ObfuscatingGenerator) scalar(raw string, quoted bool, forward func(Generator) error) error {
	f := g.top()
	if f == nil || !redactHere(f) || f.config.Obfuscator == None {
		if f != nil && f.depth == 0 {
			g.pop()
		}
		return forward(g.out)
	}

	masked := f.config.Obfuscator.ObfuscateText(raw)
	var err error
	if quoted || g.validJSON {
		err = g.out.WriteString(masked)
	} else {
		err = g.writeUnquoted(masked)
	}
	if f.depth == 0 {
		g.pop()
	}
	if err != nil {
		return err
	}
	return g.flushRedacted()
}

// writeUnquoted writes the masked text as a JSON string, then strips the
// surrounding quote pair so non-string scalars stay bare. The separator is
// emitted first so only the quoted value lands in the unquote buffer.
func (g *ObfuscatingGenerator) writeUnquoted(masked string) error {
	if err := g.out.BeginValue(); err != nil {
		return err
	}
	g.writer.startUnquote()
	if err := g.out.WriteString(masked); err != nil {
		return err
	}
	return g.writer.endUnquote()
}

// flushRedacted pushes a freshly redacted value through to the destination.
// Flush suppression is restored even if the flush fails.
func (g *ObfuscatingGenerator) flushRedacted() error {
	g.writer.allowFlush()
	defer g.writer.preventFlush()
	return g.out.Flush()
}

func (g *ObfuscatingGenerator) WriteString(value string) error {
	return g.scalar(value, true, func(out Generator) error {
		return out.WriteString(value)
	})
}

func (g *ObfuscatingGenerator) WriteNumber(value json.Number) error {
	return g.scalar(value.String(), false, func(out Generator) error {
		return out.WriteNumber(value)
	})
}

func (g *ObfuscatingGenerator) WriteInt(value int64) error {
	return g.scalar(strconv.FormatInt(value, 10), false, func(out Generator) error {
		return out.WriteInt(value)
	})
}

func (g *ObfuscatingGenerator) WriteFloat(value float64) error {
	return g.scalar(strconv.FormatFloat(value, 'g', -1, 64), false, func(out Generator) error {
		return out.WriteFloat(value)
	})
}

func (g *ObfuscatingGenerator) WriteBool(value bool) error {
	return g.scalar(strconv.FormatBool(value), false, func(out Generator) error {
		return out.WriteBool(value)
	})
}

func (g *ObfuscatingGenerator) WriteNull() error {
	return g.scalar("null", false, func(out Generator) error {
		return out.WriteNull()
	})
}

func (g *ObfuscatingGenerator) BeginValue() error {
	return g.out.BeginValue()
}

func (g *ObfuscatingGenerator) Flush() error {
	return g.out.Flush()
}

// Close closes the delegate generator. The writer and any capture buffers
// are owned per call and released with it.
func (g *ObfuscatingGenerator) Close() error {
	return g.delegate.Close()
}

// WriteStringField writes a key and its string value in one call. All field
// helpers split deterministically into WriteKey followed by the value write
// so the same policy governs both entry paths.
func (g *ObfuscatingGenerator) WriteStringField(name, value string) error {
	if err := g.WriteKey(name); err != nil {
		return err
	}
	return g.WriteString(value)
}

// WriteNumberField writes a key and its number value.
func (g *ObfuscatingGenerator) WriteNumberField(name string, value json.Number) error {
	if err := g.WriteKey(name); err != nil {
		return err
	}
	return g.WriteNumber(value)
}

// WriteBoolField writes a key and its boolean value.
func (g *ObfuscatingGenerator) WriteBoolField(name string, value bool) error {
	if err := g.WriteKey(name); err != nil {
		return err
	}
	return g.WriteBool(value)
}

// WriteNullField writes a key with a null value.
func (g *ObfuscatingGenerator) WriteNullField(name string) error {
	if err := g.WriteKey(name); err != nil {
		return err
	}
	return g.WriteNull()
}

// WriteValueField writes a key and any pre-parsed value.
func (g *ObfuscatingGenerator) WriteValueField(name string, value any) error {
	if err := g.WriteKey(name); err != nil {
		return err
	}
	return g.WriteValue(value)
}

// WriteValue re-emits an already parsed value, the shapes produced by
// encoding/json with UseNumber. Object keys are written in sorted order so
// output is deterministic.
func (g *ObfuscatingGenerator) WriteValue(value any) error {
	switch v := value.(type) {
	case nil:
		return g.WriteNull()
	case string:
		return g.WriteString(v)
	case bool:
		return g.WriteBool(v)
	case json.Number:
		return g.WriteNumber(v)
	case float64:
		return g.WriteFloat(v)
	case int:
		return g.WriteInt(int64(v))
	case int64:
		return g.WriteInt(v)
	case map[string]any:
		if err := g.WriteStartObject(); err != nil {
			return err
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := g.WriteValueField(k, v[k]); err != nil {
				return err
			}
		}
		return g.WriteEnd()
	case []any:
		if err := g.WriteStartArray(); err != nil {
			return err
		}
		for _, elem := range v {
			if err := g.WriteValue(elem); err != nil {
				return err
			}
		}
		return g.WriteEnd()
	default:
		return fmt.Errorf("veil: unsupported value type %T", value)
	}
}
