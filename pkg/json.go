package pkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultMalformedJSONWarning is appended to the output when the input turns
// out not to be valid JSON, unless the builder overrides or removes it.
const DefaultMalformedJSONWarning = "<invalid JSON>"

// JSONObfuscator redacts the values of configured properties while
// re-serializing a JSON document token by token. It is immutable and safe to
// share across goroutines; every obfuscation call owns its own writer,
// generator and frame stack.
type JSONObfuscator struct {
	table            *propertyTable
	prettyPrint      bool
	produceValidJSON bool
	warning          *string
}

// Builder assembles a JSONObfuscator. Configuration problems are reported by
// Build, never during obfuscation.
type Builder struct {
	entries           []propertyEntry
	defaultObjectMode ObfuscationMode
	defaultArrayMode  ObfuscationMode
	prettyPrint       bool
	produceValidJSON  bool
	warning           *string
}

// PropertyOption tweaks a single property registration.
type PropertyOption func(*propertyEntry)

// ForObjects sets the mode used when the property's value is an object.
func ForObjects(mode ObfuscationMode) PropertyOption {
	return func(e *propertyEntry) { e.config.ObjectMode = mode }
}

// ForArrays sets the mode used when the property's value is an array.
func ForArrays(mode ObfuscationMode) PropertyOption {
	return func(e *propertyEntry) { e.config.ArrayMode = mode }
}

// CaseInsensitive makes the property match regardless of case.
func CaseInsensitive() PropertyOption {
	return func(e *propertyEntry) { e.caseSensitive = false }
}

// NewBuilder returns a builder with pretty-printing enabled, containers
// obfuscated wholesale by default, and the default malformed-JSON warning.
func NewBuilder() *Builder {
	warning := DefaultMalformedJSONWarning
	return &Builder{
		defaultObjectMode: ModeObfuscate,
		defaultArrayMode:  ModeObfuscate,
		prettyPrint:       true,
		warning:           &warning,
	}
}

// WithProperty registers an obfuscator for a property name. Registration is
// case-sensitive unless the CaseInsensitive option is given; the builder's
// default container modes apply unless overridden per property.
func (b *Builder) WithProperty(name string, obf Obfuscator, opts ...PropertyOption) *Builder {
	entry := propertyEntry{
		name:          name,
		caseSensitive: true,
		config: PropertyConfig{
			Obfuscator: obf,
			ObjectMode: b.defaultObjectMode,
			ArrayMode:  b.defaultArrayMode,
		},
	}
	for _, opt := range opts {
		opt(&entry)
	}
	b.entries = append(b.entries, entry)
	return b
}

// WithDefaultObjectMode changes the object mode applied to properties
// registered afterwards.
func (b *Builder) WithDefaultObjectMode(mode ObfuscationMode) *Builder {
	b.defaultObjectMode = mode
	return b
}

// WithDefaultArrayMode changes the array mode applied to properties
// registered afterwards.
func (b *Builder) WithDefaultArrayMode(mode ObfuscationMode) *Builder {
	b.defaultArrayMode = mode
	return b
}

// WithPrettyPrinting toggles pretty-printed output. The default is true.
func (b *Builder) WithPrettyPrinting(pretty bool) *Builder {
	b.prettyPrint = pretty
	return b
}

// ProduceValidJSON makes redacted output stay syntactically valid: redacted
// non-string scalars become quoted strings, and wholesale-obfuscated
// containers become quoted strings holding their redacted representation.
func (b *Builder) ProduceValidJSON(valid bool) *Builder {
	b.produceValidJSON = valid
	return b
}

// WithMalformedJSONWarning overrides the warning appended on invalid input.
func (b *Builder) WithMalformedJSONWarning(warning string) *Builder {
	b.warning = &warning
	return b
}

// WithoutMalformedJSONWarning removes the warning entirely.
func (b *Builder) WithoutMalformedJSONWarning() *Builder {
	b.warning = nil
	return b
}

// Build validates the configuration and returns the immutable obfuscator.
func (b *Builder) Build() (*JSONObfuscator, error) {
	if !b.defaultObjectMode.valid() || !b.defaultArrayMode.valid() {
		return nil, fmt.Errorf("invalid default obfuscation mode")
	}
	table, err := buildPropertyTable(b.entries)
	if err != nil {
		return nil, fmt.Errorf("building property table: %w", err)
	}
	return &JSONObfuscator{
		table:            table,
		prettyPrint:      b.prettyPrint,
		produceValidJSON: b.produceValidJSON,
		warning:          b.warning,
	}, nil
}

// ObfuscateString obfuscates a complete JSON document held in memory and
// returns the redacted text. Malformed input is recovered from, so there is
// no error to report; engine invariant violations panic.
func (o *JSONObfuscator) ObfuscateString(s string) string {
	var sb strings.Builder
	if err := o.obfuscateText(s, &sb); err != nil {
		// strings.Builder writes cannot fail and parse errors are
		// recovered, so any error here is an engine bug.
		panic(fmt.Sprintf("veil: obfuscating to string builder: %v", err))
	}
	return sb.String()
}

// ObfuscateText obfuscates s[start:end] and appends the result to dest. The
// destination is never closed.
func (o *JSONObfuscator) ObfuscateText(s string, start, end int, dest io.Writer) error {
	if start < 0 || end > len(s) || start > end {
		return fmt.Errorf("invalid range [%d:%d] for input of length %d", start, end, len(s))
	}
	return o.obfuscateText(s[start:end], dest)
}

// Obfuscate reads a complete JSON document from r and appends the redacted
// text to dest. Neither the reader nor the destination is closed.
func (o *JSONObfuscator) Obfuscate(r io.Reader, dest io.Writer) error {
	source, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	return o.obfuscateText(string(source), dest)
}

// obfuscateText runs the streaming pipeline: decoder tokens in, redacted
// text out. Any text after the first complete top-level value, and the raw
// remainder of malformed input, is appended verbatim so no source characters
// are silently dropped.
func (o *JSONObfuscator) obfuscateText(source string, dest io.Writer) error {
	writer := newObfuscatorWriter(dest)
	gen := newGenerator(writer, o.prettyPrint)
	og := newObfuscatingGenerator(gen, writer, o.table, o.produceValidJSON)

	dec := json.NewDecoder(strings.NewReader(source))
	dec.UseNumber()

	offset, err := pumpDocument(dec, og)
	if err != nil {
		if !isMalformed(err) {
			return err
		}
		// Keep whatever was already written, mark the break, and append the
		// unparsed remainder so the output stays close to the original
		// length. The abandoned generator holds no resources; only the
		// writer needs to be forced back to passthrough.
		writer.reset()
		writer.stopTrimming()
		if o.warning != nil {
			if _, werr := writer.WriteString(*o.warning); werr != nil {
				return werr
			}
		}
		if offset < int64(len(source)) {
			if _, werr := writer.WriteString(source[offset:]); werr != nil {
				return werr
			}
		}
		return nil
	}

	if cerr := og.Close(); cerr != nil {
		return cerr
	}
	writer.assertPassthrough()
	writer.stopTrimming()
	if offset < int64(len(source)) {
		if _, werr := writer.WriteString(source[offset:]); werr != nil {
			return werr
		}
	}
	return nil
}

// parseFrame tracks one open container while pumping; key is true when the
// next string inside an object is a member name.
type parseFrame struct {
	array bool
	key   bool
}

// pumpDocument feeds decoder tokens into the obfuscating generator until one
// complete top-level value has been written. It returns the offset up to
// which the source was consumed; on error that is the offset after the last
// token that was processed successfully.
func pumpDocument(dec *json.Decoder, og *ObfuscatingGenerator) (int64, error) {
	var offset int64
	var stack []parseFrame

	top := func() *parseFrame {
		if len(stack) == 0 {
			return nil
		}
		return &stack[len(stack)-1]
	}
	// A completed value inside an object means the next string is a key.
	valueDone := func() {
		if f := top(); f != nil && !f.array {
			f.key = true
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return offset, err
		}

		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				valueDone()
				stack = append(stack, parseFrame{key: true})
				err = og.WriteStartObject()
			case '[':
				valueDone()
				stack = append(stack, parseFrame{array: true})
				err = og.WriteStartArray()
			case '}', ']':
				stack = stack[:len(stack)-1]
				valueDone()
				err = og.WriteEnd()
			}
		case string:
			if f := top(); f != nil && !f.array && f.key {
				f.key = false
				err = og.WriteKey(t)
			} else {
				valueDone()
				err = og.WriteString(t)
			}
		case json.Number:
			valueDone()
			err = og.WriteNumber(t)
		case bool:
			valueDone()
			err = og.WriteBool(t)
		case nil:
			valueDone()
			err = og.WriteNull()
		}
		if err != nil {
			return offset, err
		}
		offset = dec.InputOffset()

		if len(stack) == 0 {
			// The top-level value is complete.
			return offset, nil
		}
	}
}

// isMalformed reports whether the decoder failed on the input rather than on
// I/O: syntax errors and truncated or empty documents.
func isMalformed(err error) bool {
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
