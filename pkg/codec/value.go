package codec

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
)

// Value is anything that can be written by an Encoder.
type Value interface {
	// SerializedSize returns the exact number of bytes Serialize writes.
	SerializedSize() int
	// Serialize writes the value into e.
	Serialize(e *Encoder)
}

// Deserializable is implemented by pointers to values that can be read back
// from a Decoder.
type Deserializable interface {
	Deserialize(d *Decoder) error
}

type (
	Uint8  uint8
	Uint16 uint16
	Uint32 uint32
	Uint64 uint64
	// Uint is encoded as 64 bits.
	Uint uint

	Int8  int8
	Int16 int16
	Int32 int32
	Int64 int64
	// Int is encoded as 64 bits.
	Int int

	Bool   bool
	String string
	// Bytes is a length-prefixed blob, for use in record fields only.
	Bytes []byte
	// Empty encodes to nothing. Records with no fields use it.
	Empty struct{}
)

func (Uint8) SerializedSize() int    { return 1 }
func (v Uint8) Serialize(e *Encoder) { e.PutUint8(uint8(v)) }
func (v *Uint8) Deserialize(d *Decoder) (err error) {
	var x uint8
	x, err = d.Uint8()
	*v = Uint8(x)
	return err
}

func (Uint16) SerializedSize() int    { return 2 }
func (v Uint16) Serialize(e *Encoder) { e.PutUint16(uint16(v)) }
func (v *Uint16) Deserialize(d *Decoder) (err error) {
	var x uint16
	x, err = d.Uint16()
	*v = Uint16(x)
	return err
}

func (Uint32) SerializedSize() int    { return 4 }
func (v Uint32) Serialize(e *Encoder) { e.PutUint32(uint32(v)) }
func (v *Uint32) Deserialize(d *Decoder) (err error) {
	var x uint32
	x, err = d.Uint32()
	*v = Uint32(x)
	return err
}

func (Uint64) SerializedSize() int    { return 8 }
func (v Uint64) Serialize(e *Encoder) { e.PutUint64(uint64(v)) }
func (v *Uint64) Deserialize(d *Decoder) (err error) {
	var x uint64
	x, err = d.Uint64()
	*v = Uint64(x)
	return err
}

func (Uint) SerializedSize() int    { return 8 }
func (v Uint) Serialize(e *Encoder) { e.PutUint64(uint64(v)) }
func (v *Uint) Deserialize(d *Decoder) (err error) {
	var x uint64
	x, err = d.Uint64()
	*v = Uint(x)
	return err
}

func (Int8) SerializedSize() int    { return 1 }
func (v Int8) Serialize(e *Encoder) { e.PutInt8(int8(v)) }
func (v *Int8) Deserialize(d *Decoder) (err error) {
	var x int8
	x, err = d.Int8()
	*v = Int8(x)
	return err
}

func (Int16) SerializedSize() int    { return 2 }
func (v Int16) Serialize(e *Encoder) { e.PutInt16(int16(v)) }
func (v *Int16) Deserialize(d *Decoder) (err error) {
	var x int16
	x, err = d.Int16()
	*v = Int16(x)
	return err
}

func (Int32) SerializedSize() int    { return 4 }
func (v Int32) Serialize(e *Encoder) { e.PutInt32(int32(v)) }
func (v *Int32) Deserialize(d *Decoder) (err error) {
	var x int32
	x, err = d.Int32()
	*v = Int32(x)
	return err
}

func (Int64) SerializedSize() int    { return 8 }
func (v Int64) Serialize(e *Encoder) { e.PutInt64(int64(v)) }
func (v *Int64) Deserialize(d *Decoder) (err error) {
	var x int64
	x, err = d.Int64()
	*v = Int64(x)
	return err
}

func (Int) SerializedSize() int    { return 8 }
func (v Int) Serialize(e *Encoder) { e.PutInt64(int64(v)) }
func (v *Int) Deserialize(d *Decoder) (err error) {
	var x int64
	x, err = d.Int64()
	*v = Int(x)
	return err
}

func (Bool) SerializedSize() int    { return 1 }
func (v Bool) Serialize(e *Encoder) { e.PutBool(bool(v)) }
func (v *Bool) Deserialize(d *Decoder) (err error) {
	var x bool
	x, err = d.Bool()
	*v = Bool(x)
	return err
}

func (v String) SerializedSize() int  { return len(v) + 1 }
func (v String) Serialize(e *Encoder) { e.PutString(string(v)) }
func (v *String) Deserialize(d *Decoder) error {
	s, err := d.String()
	if err != nil {
		return err
	}
	*v = String(s)
	return nil
}

func (v Bytes) SerializedSize() int  { return 8 + len(v) }
func (v Bytes) Serialize(e *Encoder) { e.PutBytes(v) }

// Deserialize copies the blob so the value may outlive the decoder's buffer.
func (v *Bytes) Deserialize(d *Decoder) error {
	b, err := d.Bytes()
	if err != nil {
		return err
	}
	*v = append(Bytes(nil), b...)
	return nil
}

func (Empty) SerializedSize() int         { return 0 }
func (Empty) Serialize(*Encoder)          {}
func (*Empty) Deserialize(*Decoder) error { return nil }

// Time is a timestamp with millisecond precision.
type Time struct {
	time.Time
}

// NewTime wraps t, truncated to milliseconds.
func NewTime(t time.Time) Time {
	return Time{t.Truncate(time.Millisecond)}
}

func (Time) SerializedSize() int    { return 8 }
func (v Time) Serialize(e *Encoder) { e.PutInt64(v.UnixMilli()) }
func (v *Time) Deserialize(d *Decoder) error {
	t, err := d.Time()
	if err != nil {
		return err
	}
	v.Time = t
	return nil
}

// UUID is a 16 byte identifier. Byte order is the canonical text order.
type UUID uuid.UUID

func (UUID) SerializedSize() int    { return 16 }
func (v UUID) Serialize(e *Encoder) { e.PutRaw(v[:]) }
func (v *UUID) Deserialize(d *Decoder) error {
	b, err := d.next(16)
	if err != nil {
		return err
	}
	copy(v[:], b)
	return nil
}

func (v UUID) String() string { return uuid.UUID(v).String() }

// KSUID is a 20 byte, time-ordered identifier. Keys built from KSUIDs sort by
// creation time.
type KSUID ksuid.KSUID

func (v KSUID) SerializedSize() int  { return len(v) }
func (v KSUID) Serialize(e *Encoder) { e.PutRaw(v[:]) }
func (v *KSUID) Deserialize(d *Decoder) error {
	b, err := d.next(len(v))
	if err != nil {
		return err
	}
	id, err := ksuid.FromBytes(b)
	if err != nil {
		return errors.Wrap(ErrInvalidValue, err.Error())
	}
	*v = KSUID(id)
	return nil
}

func (v KSUID) String() string { return ksuid.KSUID(v).String() }
