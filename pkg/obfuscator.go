package pkg

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Obfuscator turns a span of characters into its redacted replacement. The
// replacement does not have to match the input length. StreamTo returns a
// writer that buffers everything written to it and redacts the whole span as
// one unit when closed.
type Obfuscator interface {
	ObfuscateText(s string) string
	StreamTo(dest io.Writer) io.WriteCloser
}

// None is the identity obfuscator. It marks a property as configured but
// intentionally not obfuscated; the engine compares against it by identity
// and never wraps it around a container.
var None Obfuscator = noneObfuscator{}

type noneObfuscator struct{}

func (noneObfuscator) ObfuscateText(s string) string { return s }

func (noneObfuscator) StreamTo(dest io.Writer) io.WriteCloser {
	return nopCloser{dest}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// FixedLength returns an obfuscator that replaces any span with n asterisks.
func FixedLength(n int) Obfuscator {
	return FixedLengthWith('*', n)
}

// FixedLengthWith is FixedLength with a custom mask rune.
func FixedLengthWith(mask rune, n int) Obfuscator {
	if n < 0 {
		panic(fmt.Sprintf("veil: fixed length %d is negative", n))
	}
	return &fixedLength{value: strings.Repeat(string(mask), n)}
}

type fixedLength struct {
	value string
}

func (o *fixedLength) ObfuscateText(string) string { return o.value }

func (o *fixedLength) StreamTo(dest io.Writer) io.WriteCloser {
	return newObfuscateOnClose(o, dest)
}

// FixedValue returns an obfuscator that replaces any span with the given
// replacement text.
func FixedValue(value string) Obfuscator {
	return &fixedValue{value: value}
}

type fixedValue struct {
	value string
}

func (o *fixedValue) ObfuscateText(string) string { return o.value }

func (o *fixedValue) StreamTo(dest io.Writer) io.WriteCloser {
	return newObfuscateOnClose(o, dest)
}

// obfuscateOnClose collects all written text and pushes the redacted result
// to dest on Close. Close is idempotent.
type obfuscateOnClose struct {
	obf    Obfuscator
	dest   io.Writer
	buf    bytes.Buffer
	closed bool
}

func newObfuscateOnClose(obf Obfuscator, dest io.Writer) *obfuscateOnClose {
	return &obfuscateOnClose{obf: obf, dest: dest}
}

func (w *obfuscateOnClose) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("veil: write to closed obfuscation stream")
	}
	return w.buf.Write(p)
}

func (w *obfuscateOnClose) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_, err := io.WriteString(w.dest, w.obf.ObfuscateText(w.buf.String()))
	return err
}
