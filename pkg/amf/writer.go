package amf

import (
	"fmt"
	"math"

	"github.com/flexamf/amf/pkg/amf/internal/bufpool"
)

// DefaultMaxOutputBytes is the default ceiling on a single Writer's output,
// per spec §6 ("maximum output buffer size 10 MiB (configurable)").
const DefaultMaxOutputBytes = 10 << 20

// Writer accumulates encoded bytes into a pooled, growable buffer. All
// multi-byte fixed-width writes are big-endian.
type Writer struct {
	buf    []byte
	maxLen int
}

// NewWriter returns a Writer with the default output cap.
func NewWriter() *Writer {
	return &Writer{buf: bufpool.Get(0)[:0], maxLen: DefaultMaxOutputBytes}
}

// NewWriterWithLimit returns a Writer capped at maxBytes of output.
func NewWriterWithLimit(maxBytes int) *Writer {
	w := NewWriter()
	w.maxLen = maxBytes
	return w
}

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Release returns the underlying buffer to the pool. The Writer must not be
// used afterward.
func (w *Writer) Release() {
	bufpool.Put(w.buf)
	w.buf = nil
}

func (w *Writer) grow(extra int) error {
	if w.maxLen > 0 && len(w.buf)+extra > w.maxLen {
		return fmt.Errorf("write %d bytes (total %d) exceeds limit %d: %w",
			extra, len(w.buf)+extra, w.maxLen, ErrOutOfBounds)
	}
	if cap(w.buf)-len(w.buf) >= extra {
		return nil
	}
	next := bufpool.Get(len(w.buf) + extra)
	n := copy(next, w.buf)
	bufpool.Put(w.buf)
	w.buf = next[:n]
	return nil
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) error {
	if err := w.grow(len(b)); err != nil {
		return err
	}
	w.buf = append(w.buf, b...)
	return nil
}

// WriteU8 appends a single byte.
func (w *Writer) WriteU8(b byte) error {
	return w.WriteBytes([]byte{b})
}

// WriteU16BE appends a big-endian uint16.
func (w *Writer) WriteU16BE(v uint16) error {
	return w.WriteBytes([]byte{byte(v >> 8), byte(v)})
}

// WriteU32BE appends a big-endian uint32.
func (w *Writer) WriteU32BE(v uint32) error {
	return w.WriteBytes([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// WriteI16BE appends a big-endian int16.
func (w *Writer) WriteI16BE(v int16) error {
	return w.WriteU16BE(uint16(v))
}

// WriteF64BE appends a big-endian IEEE-754 double.
func (w *Writer) WriteF64BE(v float64) error {
	bits := math.Float64bits(v)
	return w.WriteBytes([]byte{
		byte(bits >> 56), byte(bits >> 48), byte(bits >> 40), byte(bits >> 32),
		byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits),
	})
}

// WriteUTF8 appends raw UTF-8 bytes with no length prefix; callers write
// the length prefix themselves since AMF0/AMF3 use different widths.
func (w *Writer) WriteUTF8(s string) error {
	return w.WriteBytes([]byte(s))
}

// WriteVarU29 appends the AMF3 variable-length encoding of the low 29 bits
// of value. Callers that need range checking against the signed 29-bit
// domain should use EncodeU29 in varint.go.
func (w *Writer) WriteVarU29(value uint32) error {
	value &= 0x3FFFFFFF
	switch {
	case value < 0x80:
		return w.WriteU8(byte(value))
	case value < 0x4000:
		return w.WriteBytes([]byte{
			byte(value>>7) | 0x80,
			byte(value & 0x7F),
		})
	case value < 0x200000:
		return w.WriteBytes([]byte{
			byte(value>>14) | 0x80,
			byte(value>>7) | 0x80,
			byte(value & 0x7F),
		})
	default:
		return w.WriteBytes([]byte{
			byte(value>>22) | 0x80,
			byte(value>>15) | 0x80,
			byte(value>>8) | 0x80,
			byte(value),
		})
	}
}
