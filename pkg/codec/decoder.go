package codec

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// Decoder reads values from a borrowed byte slice. Every read is bounds
// checked and advances the read offset by exactly the bytes consumed.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder returns a Decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int { return d.off }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// Rest returns the unread bytes without consuming them.
func (d *Decoder) Rest() []byte { return d.buf[d.off:] }

func (d *Decoder) next(n int) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, &EndOfBuffer{Needed: n, Available: d.Remaining()}
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

// RawBytes consumes n bytes and returns them without copying.
func (d *Decoder) RawBytes(n int) ([]byte, error) {
	return d.next(n)
}

func (d *Decoder) Uint8() (uint8, error) {
	b, err := d.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) Uint16() (uint16, error) {
	b, err := d.next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) Uint64() (uint64, error) {
	b, err := d.next(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *Decoder) Int8() (int8, error) {
	v, err := d.Uint8()
	return int8(v ^ 1<<7), err
}

func (d *Decoder) Int16() (int16, error) {
	v, err := d.Uint16()
	return int16(v ^ 1<<15), err
}

func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v ^ 1<<31), err
}

func (d *Decoder) Int64() (int64, error) {
	v, err := d.Uint64()
	return int64(v ^ 1<<63), err
}

func (d *Decoder) Bool() (bool, error) {
	v, err := d.Uint8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errors.Wrapf(ErrInvalidValue, "bool byte 0x%02x", v)
}

// StringBytes consumes a NUL-terminated string and returns its bytes,
// excluding the terminator, without copying.
func (d *Decoder) StringBytes() ([]byte, error) {
	rest := d.Rest()
	for i, c := range rest {
		if c == 0 {
			d.off += i + 1
			return rest[:i], nil
		}
	}
	return nil, &EndOfBuffer{Needed: len(rest) + 1, Available: len(rest)}
}

// String consumes a NUL-terminated string and returns a copy.
func (d *Decoder) String() (string, error) {
	b, err := d.StringBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Bytes consumes a length-prefixed byte slice. The result borrows the
// decoder's buffer.
func (d *Decoder) Bytes() ([]byte, error) {
	n, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	if n > uint64(d.Remaining()) {
		return nil, &EndOfBuffer{Needed: int(min(n, 1<<31)), Available: d.Remaining()}
	}
	return d.next(int(n))
}

// Time consumes a millisecond timestamp and returns it in UTC.
func (d *Decoder) Time() (time.Time, error) {
	ms, err := d.Int64()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// Get decodes into v, which must implement Deserializable.
func (d *Decoder) Get(v any) error {
	ds, ok := v.(Deserializable)
	if !ok {
		return errors.Wrapf(ErrNotDeserializable, "%T", v)
	}
	return ds.Deserialize(d)
}

// Decode decodes buf into v and fails if any bytes are left over.
func Decode(buf []byte, v Deserializable) error {
	d := NewDecoder(buf)
	if err := v.Deserialize(d); err != nil {
		return err
	}
	if d.Remaining() != 0 {
		return errors.Wrapf(ErrInvalidValue, "%d trailing bytes", d.Remaining())
	}
	return nil
}
