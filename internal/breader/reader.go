// Package breader provides a typed little-endian cursor reader over a
// borrowed byte slice, the low-level primitive every binary format decoder
// in this module is built on.
package breader

import (
	"encoding/binary"
	"math"
)

// Reader is a typed little-endian cursor over a borrowed byte slice.
// It never copies or retains data beyond the slice it was given.
type Reader struct {
	data []byte
	off  int
}

// New wraps data in a Reader starting at offset 0.
func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total length of the underlying slice.
func (r *Reader) Len() int { return len(r.data) }

// Off returns the current cursor offset.
func (r *Reader) Off() int { return r.off }

// Seek sets the cursor to an absolute offset.
func (r *Reader) Seek(off int) { r.off = off }

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) { r.off += n }

// Remaining reports whether at least n bytes remain before EOF.
func (r *Reader) Remaining(n int) bool {
	return r.off+n <= len(r.data)
}

// Peek returns the next n bytes without advancing the cursor, or nil if
// that would read past EOF.
func (r *Reader) Peek(n int) []byte {
	if !r.Remaining(n) {
		return nil
	}
	return r.data[r.off : r.off+n]
}

// Take reads and returns the next n bytes, advancing the cursor. Returns
// nil if that would read past EOF.
func (r *Reader) Take(n int) []byte {
	if !r.Remaining(n) {
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// U8 reads one byte.
func (r *Reader) U8() uint8 {
	b := r.Take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() uint16 {
	b := r.Take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// I16 reads a little-endian int16.
func (r *Reader) I16() int16 {
	return int16(r.U16())
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() uint32 {
	b := r.Take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// I32 reads a little-endian int32.
func (r *Reader) I32() int32 {
	return int32(r.U32())
}

// F32 reads a little-endian IEEE-754 float32.
func (r *Reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

// FixedASCII reads an n-byte NUL-padded ASCII field, lower-cases it, and
// truncates at the first NUL. Matches the archive/symbol name convention
// used throughout the container and asset formats (§3, §6).
func (r *Reader) FixedASCII(n int) string {
	b := r.Take(n)
	if b == nil {
		return ""
	}
	end := len(b)
	for i, c := range b {
		if c == 0 {
			end = i
			break
		}
	}
	return lower(string(b[:end]))
}

func lower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
