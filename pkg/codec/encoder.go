package codec

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

// Encoder writes values into a fixed-capacity buffer.
type Encoder struct {
	buf []byte
	off int
	err error
}

// NewEncoder returns an Encoder that writes into buf. The capacity of the
// encoder is len(buf); it never grows.
func NewEncoder(buf []byte) *Encoder {
	return &Encoder{buf: buf}
}

// Reset rewinds the encoder so buf can be reused.
func (e *Encoder) Reset() {
	e.off = 0
	e.err = nil
}

// Bytes returns the encoded bytes. The slice aliases the encoder's buffer.
func (e *Encoder) Bytes() []byte { return e.buf[:e.off] }

// Len returns the number of bytes written.
func (e *Encoder) Len() int { return e.off }

// Cap returns the total capacity of the encoder.
func (e *Encoder) Cap() int { return len(e.buf) }

// Available returns the number of bytes that can still be written.
func (e *Encoder) Available() int { return len(e.buf) - e.off }

// Err returns the first error encountered while encoding.
func (e *Encoder) Err() error { return e.err }

func (e *Encoder) reserve(n int) []byte {
	if e.err != nil {
		return nil
	}
	if n > e.Available() {
		e.err = errors.Wrapf(ErrBufferOverflow, "need %d bytes, %d available", n, e.Available())
		return nil
	}
	b := e.buf[e.off : e.off+n]
	e.off += n
	return b
}

// PutRaw writes p unchanged.
func (e *Encoder) PutRaw(p []byte) {
	if b := e.reserve(len(p)); b != nil {
		copy(b, p)
	}
}

func (e *Encoder) PutUint8(v uint8) {
	if b := e.reserve(1); b != nil {
		b[0] = v
	}
}

func (e *Encoder) PutUint16(v uint16) {
	if b := e.reserve(2); b != nil {
		binary.BigEndian.PutUint16(b, v)
	}
}

func (e *Encoder) PutUint32(v uint32) {
	if b := e.reserve(4); b != nil {
		binary.BigEndian.PutUint32(b, v)
	}
}

func (e *Encoder) PutUint64(v uint64) {
	if b := e.reserve(8); b != nil {
		binary.BigEndian.PutUint64(b, v)
	}
}

// The signed writers flip the sign bit, which is the same as a wrapping add
// of 2^(width-1).

func (e *Encoder) PutInt8(v int8)   { e.PutUint8(uint8(v) ^ 1<<7) }
func (e *Encoder) PutInt16(v int16) { e.PutUint16(uint16(v) ^ 1<<15) }
func (e *Encoder) PutInt32(v int32) { e.PutUint32(uint32(v) ^ 1<<31) }
func (e *Encoder) PutInt64(v int64) { e.PutUint64(uint64(v) ^ 1<<63) }

func (e *Encoder) PutBool(v bool) {
	if v {
		e.PutUint8(1)
	} else {
		e.PutUint8(0)
	}
}

// PutString writes s followed by a 0x00 terminator.
func (e *Encoder) PutString(s string) {
	if e.err != nil {
		return
	}
	if strings.IndexByte(s, 0) >= 0 {
		e.err = errors.Wrapf(ErrEmbeddedNUL, "%q", s)
		return
	}
	if b := e.reserve(len(s) + 1); b != nil {
		copy(b, s)
		b[len(s)] = 0
	}
}

// PutBytes writes a Uint64 length prefix followed by p.
func (e *Encoder) PutBytes(p []byte) {
	e.PutUint64(uint64(len(p)))
	e.PutRaw(p)
}

// Put serializes v into the encoder.
func (e *Encoder) Put(v Value) {
	if e.err != nil {
		return
	}
	v.Serialize(e)
}

// Encode allocates a buffer of exactly v.SerializedSize() bytes and encodes v into it.
func Encode(v Value) ([]byte, error) {
	enc := NewEncoder(make([]byte, v.SerializedSize()))
	v.Serialize(enc)
	if err := enc.Err(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// AppendEncode encodes v after prefix into a new slice.
func AppendEncode(prefix []byte, v Value) ([]byte, error) {
	enc := NewEncoder(make([]byte, len(prefix)+v.SerializedSize()))
	enc.PutRaw(prefix)
	v.Serialize(enc)
	if err := enc.Err(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}
