package codec

import "github.com/pkg/errors"

// Optional is a value that may be absent. It is written as a Bool presence
// tag followed by the value when present, so absent sorts before present.
type Optional[T Value] struct {
	Value T
	Valid bool
}

// Some returns a present Optional.
func Some[T Value](v T) Optional[T] { return Optional[T]{Value: v, Valid: true} }

// None returns an absent Optional.
func None[T Value]() Optional[T] { return Optional[T]{} }

func (o Optional[T]) SerializedSize() int {
	if !o.Valid {
		return 1
	}
	return 1 + o.Value.SerializedSize()
}

func (o Optional[T]) Serialize(e *Encoder) {
	e.PutBool(o.Valid)
	if o.Valid {
		o.Value.Serialize(e)
	}
}

func (o *Optional[T]) Deserialize(d *Decoder) error {
	valid, err := d.Bool()
	if err != nil {
		return err
	}
	o.Valid = valid
	if !valid {
		var zero T
		o.Value = zero
		return nil
	}
	return d.Get(&o.Value)
}

// Slice is a length-prefixed sequence, for use in record fields only.
type Slice[T Value] []T

func (s Slice[T]) SerializedSize() int {
	n := 8
	for _, v := range s {
		n += v.SerializedSize()
	}
	return n
}

func (s Slice[T]) Serialize(e *Encoder) {
	e.PutUint64(uint64(len(s)))
	for _, v := range s {
		v.Serialize(e)
	}
}

// MaxZeroSizeElements caps the decoded length of a slice whose elements
// encode to no bytes. The buffer cannot bound such a length.
const MaxZeroSizeElements = 1 << 16

func (s *Slice[T]) Deserialize(d *Decoder) error {
	n, err := d.Uint64()
	if err != nil {
		return err
	}
	// Every element takes at least one byte except zero-size ones, so this
	// only bounds the preallocation.
	out := make(Slice[T], 0, min(n, uint64(d.Remaining())))
	for i := uint64(0); i < n; i++ {
		var v T
		off := d.Offset()
		if err := d.Get(&v); err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
		if d.Offset() == off && n > MaxZeroSizeElements {
			return errors.Wrapf(ErrInvalidValue, "%d zero-size elements", n)
		}
		out = append(out, v)
	}
	*s = out
	return nil
}

// Tuple2 is a two component compound value.
type Tuple2[A, B Value] struct {
	A A
	B B
}

func NewTuple2[A, B Value](a A, b B) Tuple2[A, B] { return Tuple2[A, B]{a, b} }

func (t Tuple2[A, B]) SerializedSize() int {
	return t.A.SerializedSize() + t.B.SerializedSize()
}

func (t Tuple2[A, B]) Serialize(e *Encoder) {
	t.A.Serialize(e)
	t.B.Serialize(e)
}

func (t *Tuple2[A, B]) Deserialize(d *Decoder) error {
	if err := d.Get(&t.A); err != nil {
		return err
	}
	return d.Get(&t.B)
}

// Tuple3 is a three component compound value.
type Tuple3[A, B, C Value] struct {
	A A
	B B
	C C
}

func NewTuple3[A, B, C Value](a A, b B, c C) Tuple3[A, B, C] { return Tuple3[A, B, C]{a, b, c} }

func (t Tuple3[A, B, C]) SerializedSize() int {
	return t.A.SerializedSize() + t.B.SerializedSize() + t.C.SerializedSize()
}

func (t Tuple3[A, B, C]) Serialize(e *Encoder) {
	t.A.Serialize(e)
	t.B.Serialize(e)
	t.C.Serialize(e)
}

func (t *Tuple3[A, B, C]) Deserialize(d *Decoder) error {
	if err := d.Get(&t.A); err != nil {
		return err
	}
	if err := d.Get(&t.B); err != nil {
		return err
	}
	return d.Get(&t.C)
}

// Tuple4 is a four component compound value.
type Tuple4[A, B, C, D Value] struct {
	A A
	B B
	C C
	D D
}

func NewTuple4[A, B, C, D Value](a A, b B, c C, d D) Tuple4[A, B, C, D] {
	return Tuple4[A, B, C, D]{a, b, c, d}
}

func (t Tuple4[A, B, C, D]) SerializedSize() int {
	return t.A.SerializedSize() + t.B.SerializedSize() + t.C.SerializedSize() + t.D.SerializedSize()
}

func (t Tuple4[A, B, C, D]) Serialize(e *Encoder) {
	t.A.Serialize(e)
	t.B.Serialize(e)
	t.C.Serialize(e)
	t.D.Serialize(e)
}

func (t *Tuple4[A, B, C, D]) Deserialize(d *Decoder) error {
	if err := d.Get(&t.A); err != nil {
		return err
	}
	if err := d.Get(&t.B); err != nil {
		return err
	}
	if err := d.Get(&t.C); err != nil {
		return err
	}
	return d.Get(&t.D)
}

// Tuple is a compound value of any arity. To decode into a Tuple every
// member must be a pointer implementing Deserializable, e.g.
//
//	var name codec.String
//	var age codec.Int
//	err := codec.Tuple{&name, &age}.Deserialize(d)
type Tuple []Value

func (t Tuple) SerializedSize() int {
	n := 0
	for _, v := range t {
		n += v.SerializedSize()
	}
	return n
}

func (t Tuple) Serialize(e *Encoder) {
	for _, v := range t {
		v.Serialize(e)
	}
}

// Deserialize decodes each member in place.
func (t Tuple) Deserialize(d *Decoder) error {
	for i, v := range t {
		if err := d.Get(v); err != nil {
			return errors.Wrapf(err, "member %d", i)
		}
	}
	return nil
}
