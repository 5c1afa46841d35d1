package pkg

import (
	"bytes"
	"io"
	"unicode"
	"unicode/utf8"
)

type writerMode int

const (
	modePassthrough writerMode = iota
	modeObfuscating
	modeUnquoting
)

// obfuscatorWriter is the single destination used while re-serializing a
// document. It forwards writes to the caller's writer, but the engine can
// switch it to redirect everything into an obfuscation stream, or to buffer
// a quoted value so the surrounding quotes can be stripped before the text
// reaches the destination.
//
// Leading whitespace is trimmed exactly once at stream start. Flush calls
// are suppressed unless explicitly allowed, so the generator's flushing does
// not hammer the destination.
type obfuscatorWriter struct {
	dest io.Writer

	mode  writerMode
	child io.WriteCloser // obfuscation stream while obfuscating
	quote bytes.Buffer   // buffered value while unquoting

	trimLeading bool
	flushOK     bool
}

func newObfuscatorWriter(dest io.Writer) *obfuscatorWriter {
	if dest == nil {
		panic("veil: destination writer cannot be nil")
	}
	return &obfuscatorWriter{dest: dest, trimLeading: true}
}

// startObfuscate redirects all subsequent writes into a fresh obfuscation
// stream on top of the destination. Only legal from passthrough.
func (w *obfuscatorWriter) startObfuscate(obf Obfuscator) {
	if w.mode != modePassthrough {
		panic("veil: writer is already obfuscating or unquoting")
	}
	w.mode = modeObfuscating
	w.child = obf.StreamTo(w.dest)
}

// endObfuscate closes the obfuscation stream, which flushes the redacted
// span to the destination, and returns to passthrough.
func (w *obfuscatorWriter) endObfuscate() error {
	if w.mode != modeObfuscating {
		panic("veil: writer is not obfuscating")
	}
	err := w.child.Close()
	w.child = nil
	w.mode = modePassthrough
	return err
}

// startUnquote buffers subsequent writes so the engine can strip the quote
// pair the generator wraps around a value. Only legal from passthrough.
func (w *obfuscatorWriter) startUnquote() {
	if w.mode != modePassthrough {
		panic("veil: writer is already obfuscating or unquoting")
	}
	w.mode = modeUnquoting
}

// endUnquote writes the buffered value without its outer quotes and returns
// to passthrough. The buffer must hold a quoted value.
func (w *obfuscatorWriter) endUnquote() error {
	if w.mode != modeUnquoting {
		panic("veil: writer is not unquoting")
	}
	b := w.quote.Bytes()
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		panic("veil: can only unquote a quoted value")
	}
	_, err := w.dest.Write(b[1 : len(b)-1])
	w.quote.Reset()
	w.mode = modePassthrough
	return err
}

// reset forces the writer back to passthrough. Only for malformed-JSON
// recovery; a pending obfuscation stream is dropped without closing so no
// partially redacted span leaks into the output.
func (w *obfuscatorWriter) reset() {
	w.child = nil
	w.quote.Reset()
	w.mode = modePassthrough
}

// assertPassthrough panics if the writer did not return to passthrough; a
// mode left open at the end of normal processing is an engine bug.
func (w *obfuscatorWriter) assertPassthrough() {
	if w.mode != modePassthrough {
		panic("veil: writer did not return to passthrough")
	}
}

// stopTrimming permanently disables the one-shot leading whitespace trim.
func (w *obfuscatorWriter) stopTrimming() {
	w.trimLeading = false
}

func (w *obfuscatorWriter) target() io.Writer {
	switch w.mode {
	case modeObfuscating:
		return w.child
	case modeUnquoting:
		return &w.quote
	default:
		return w.dest
	}
}

func (w *obfuscatorWriter) Write(p []byte) (int, error) {
	n := len(p)
	if w.trimLeading {
		for len(p) > 0 {
			r, size := utf8.DecodeRune(p)
			if !unicode.IsSpace(r) {
				w.trimLeading = false
				break
			}
			p = p[size:]
		}
		if len(p) == 0 {
			return n, nil
		}
	}
	if _, err := w.target().Write(p); err != nil {
		return 0, err
	}
	return n, nil
}

func (w *obfuscatorWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// allowFlush temporarily lifts flush suppression. Callers must pair it with
// preventFlush, deferred so suppression is restored even on error.
func (w *obfuscatorWriter) allowFlush()   { w.flushOK = true }
func (w *obfuscatorWriter) preventFlush() { w.flushOK = false }

// Flush is a no-op unless flushing was explicitly allowed, in which case it
// propagates to the destination if that supports flushing.
func (w *obfuscatorWriter) Flush() error {
	if !w.flushOK {
		return nil
	}
	if f, ok := w.dest.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
