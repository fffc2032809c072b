package amf

import (
	"fmt"
	"math"
)

// Reader is a bounds-checked cursor over a byte slice. All multi-byte
// fixed-width reads are big-endian (spec §4.1); pos advances only after a
// read fully succeeds.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for reading from offset 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// SetPos repositions the cursor, for callers integrating with an external
// framing cursor (spec §6 byte-source contract).
func (r *Reader) SetPos(pos int) { r.pos = pos }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.data) - r.pos }

// Bytes returns the full underlying slice (not just the unread portion).
func (r *Reader) Bytes() []byte { return r.data }

func (r *Reader) require(n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return fmt.Errorf("read %d bytes at %d/%d: %w", n, r.pos, len(r.data), ErrOutOfBounds)
	}
	return nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (byte, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadU16BE reads a big-endian uint16.
func (r *Reader) ReadU16BE() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := uint16(r.data[r.pos])<<8 | uint16(r.data[r.pos+1])
	r.pos += 2
	return v, nil
}

// ReadU32BE reads a big-endian uint32.
func (r *Reader) ReadU32BE() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := uint32(r.data[r.pos])<<24 | uint32(r.data[r.pos+1])<<16 |
		uint32(r.data[r.pos+2])<<8 | uint32(r.data[r.pos+3])
	r.pos += 4
	return v, nil
}

// ReadI16BE reads a big-endian int16 (used for the AMF0 date timezone
// field, which is ignored on decode per spec §4.5/§4.9).
func (r *Reader) ReadI16BE() (int16, error) {
	v, err := r.ReadU16BE()
	return int16(v), err
}

// ReadF64BE reads a big-endian IEEE-754 double.
func (r *Reader) ReadF64BE() (float64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	var bits uint64
	for i := 0; i < 8; i++ {
		bits = bits<<8 | uint64(r.data[r.pos+i])
	}
	r.pos += 8
	return math.Float64frombits(bits), nil
}

// ReadBytes reads n raw bytes and returns a copy (the caller may retain it
// beyond the lifetime of the Reader's backing slice).
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// ReadUTF8 reads a length-prefixed UTF-8 string where the length field is
// already known (callers read the u16/u32 length themselves, since AMF0
// and AMF3 use different width length prefixes).
func (r *Reader) ReadUTF8(length int) (string, error) {
	b, err := r.ReadBytes(length)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadVarU29 reads the AMF3 variable-length 29-bit integer prefix and
// returns its raw unsigned bit pattern (0..2^29-1), without sign extension.
// See varint.go for the signed Integer codec built on top of this.
func (r *Reader) ReadVarU29() (uint32, error) {
	var result uint32
	for i := 0; i < 3; i++ {
		b, err := r.ReadU8()
		if err != nil {
			return 0, err
		}
		if b&0x80 == 0 {
			return result<<7 | uint32(b), nil
		}
		result = result<<7 | uint32(b&0x7F)
	}
	b, err := r.ReadU8()
	if err != nil {
		return 0, err
	}
	return result<<8 | uint32(b), nil
}
