package codec

import (
	"bytes"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEncode(t *testing.T, v Value) []byte {
	t.Helper()
	b, err := Encode(v)
	require.NoError(t, err)
	require.Len(t, b, v.SerializedSize())
	return b
}

// assertOrdered checks that byte order of the encodings matches the order of
// the (already sorted) inputs.
func assertOrdered(t *testing.T, vals []Value) {
	t.Helper()
	for i := 1; i < len(vals); i++ {
		a, b := mustEncode(t, vals[i-1]), mustEncode(t, vals[i])
		if bytes.Compare(a, b) >= 0 {
			t.Errorf("encode(%v)=%x should sort before encode(%v)=%x", vals[i-1], a, vals[i], b)
		}
	}
}

func TestSignedOrder(t *testing.T) {
	assertOrdered(t, []Value{Int8(math.MinInt8), Int8(-1), Int8(0), Int8(1), Int8(math.MaxInt8)})
	assertOrdered(t, []Value{Int16(math.MinInt16), Int16(-256), Int16(-1), Int16(0), Int16(255), Int16(math.MaxInt16)})
	assertOrdered(t, []Value{Int32(math.MinInt32), Int32(-1), Int32(0), Int32(1), Int32(math.MaxInt32)})
	assertOrdered(t, []Value{
		Int64(math.MinInt64), Int64(math.MinInt64 + 1), Int64(-1 << 32), Int64(-1),
		Int64(0), Int64(1), Int64(1 << 32), Int64(math.MaxInt64 - 1), Int64(math.MaxInt64),
	})
	assertOrdered(t, []Value{Int(-5), Int(0), Int(5)})
}

func TestSignedBounds(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}, mustEncode(t, Int64(math.MinInt64)))
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, mustEncode(t, Int64(math.MaxInt64)))
	assert.Equal(t, []byte{0x80, 0, 0, 0, 0, 0, 0, 0}, mustEncode(t, Int64(0)))
	assert.Equal(t, []byte{0x00}, mustEncode(t, Int8(math.MinInt8)))
	assert.Equal(t, []byte{0xff}, mustEncode(t, Int8(math.MaxInt8)))
}

func TestUnsignedOrder(t *testing.T) {
	assertOrdered(t, []Value{Uint8(0), Uint8(1), Uint8(math.MaxUint8)})
	assertOrdered(t, []Value{Uint16(0), Uint16(255), Uint16(256), Uint16(math.MaxUint16)})
	assertOrdered(t, []Value{Uint32(0), Uint32(1 << 8), Uint32(1 << 24), Uint32(math.MaxUint32)})
	assertOrdered(t, []Value{Uint64(0), Uint64(1), Uint64(1 << 56), Uint64(math.MaxUint64)})
	assert.Equal(t, []byte{0, 0, 0x01, 0x02}, mustEncode(t, Uint32(0x0102)))
}

func TestStringOrder(t *testing.T) {
	words := []string{"hellp", "", "hello", "a", "helloo", "hell", "helln", "héllo", "z"}
	sort.Strings(words)
	vals := make([]Value, len(words))
	for i, w := range words {
		vals[i] = String(w)
	}
	assertOrdered(t, vals)
	assert.Equal(t, []byte{'h', 'i', 0}, mustEncode(t, String("hi")))
}

func TestTimeOrder(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	assertOrdered(t, []Value{
		NewTime(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)),
		NewTime(time.Unix(-1, 0)),
		NewTime(time.Unix(0, 0)),
		NewTime(base),
		NewTime(base.Add(time.Millisecond)),
		NewTime(time.Date(4000, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
}

func TestTupleOrder(t *testing.T) {
	type pair struct {
		a string
		b int64
	}
	pairs := []pair{
		{"hell", 100}, {"hello", -1}, {"hello", 40}, {"hello", 41}, {"helloo", 0}, {"hellp", math.MinInt64},
	}
	vals := make([]Value, len(pairs))
	for i, p := range pairs {
		vals[i] = NewTuple2(String(p.a), Int64(p.b))
	}
	assertOrdered(t, vals)

	nested := []Value{
		NewTuple2(NewTuple2(String("a"), Int(1)), String("z")),
		NewTuple2(NewTuple2(String("a"), Int(2)), String("a")),
		NewTuple2(NewTuple2(String("b"), Int(0)), String("a")),
	}
	assertOrdered(t, nested)
}

func TestRoundTrip(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	kid := ksuid.New()
	now := NewTime(time.Now())

	tests := []struct {
		name string
		in   Value
		out  Deserializable
	}{
		{"uint8", Uint8(200), new(Uint8)},
		{"uint16", Uint16(65000), new(Uint16)},
		{"uint32", Uint32(1 << 31), new(Uint32)},
		{"uint64", Uint64(math.MaxUint64), new(Uint64)},
		{"uint", Uint(42), new(Uint)},
		{"int8", Int8(-128), new(Int8)},
		{"int16", Int16(-2), new(Int16)},
		{"int32", Int32(math.MaxInt32), new(Int32)},
		{"int64", Int64(math.MinInt64), new(Int64)},
		{"int", Int(-42), new(Int)},
		{"bool", Bool(true), new(Bool)},
		{"string", String("goodbye"), new(String)},
		{"empty string", String(""), new(String)},
		{"bytes", Bytes{0, 1, 0, 2}, new(Bytes)},
		{"time", now, new(Time)},
		{"uuid", UUID(id), new(UUID)},
		{"ksuid", KSUID(kid), new(KSUID)},
		{"empty", Empty{}, new(Empty)},
		{"some", Some(String("x")), new(Optional[String])},
		{"none", None[Int64](), new(Optional[Int64])},
		{"slice", Slice[String]{"a", "", "bc"}, new(Slice[String])},
		{"tuple3", NewTuple3(String("a"), Int(2), Bool(false)), new(Tuple3[String, Int, Bool])},
		{"tuple4", NewTuple4(Uint8(1), String("b"), Int64(-3), Optional[Int]{}), new(Tuple4[Uint8, String, Int64, Optional[Int]])},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustEncode(t, tt.in)
			require.NoError(t, Decode(b, tt.out))
			got := tt.out.(Value)
			switch want := tt.in.(type) {
			case Time:
				assert.True(t, want.Equal(got.(*Time).Time), "time %v != %v", want, got)
			default:
				assert.Equal(t, mustEncode(t, tt.in), mustEncode(t, got))
			}
		})
	}
}

func TestHeterogeneousTuple(t *testing.T) {
	in := Tuple{String("alice"), Int(30), Some(Bool(true))}
	b := mustEncode(t, in)

	var (
		name String
		age  Int
		flag Optional[Bool]
	)
	require.NoError(t, Decode(b, Tuple{&name, &age, &flag}))
	assert.Equal(t, String("alice"), name)
	assert.Equal(t, Int(30), age)
	assert.True(t, flag.Valid)
	assert.Equal(t, Bool(true), flag.Value)

	err := Tuple{name}.Deserialize(NewDecoder(b))
	assert.ErrorIs(t, err, ErrNotDeserializable)
}

func TestEncoderOverflow(t *testing.T) {
	enc := NewEncoder(make([]byte, 4))
	enc.Put(String("abc"))
	require.NoError(t, enc.Err())
	enc.Put(Uint8(1))
	assert.ErrorIs(t, enc.Err(), ErrBufferOverflow)

	// sticky
	enc.Put(Uint8(2))
	assert.ErrorIs(t, enc.Err(), ErrBufferOverflow)
	assert.Equal(t, 4, enc.Len())

	enc.Reset()
	assert.NoError(t, enc.Err())
	assert.Equal(t, 0, enc.Len())
}

func TestEmbeddedNUL(t *testing.T) {
	_, err := Encode(String("a\x00b"))
	assert.ErrorIs(t, err, ErrEmbeddedNUL)
}

func TestDecoderErrors(t *testing.T) {
	var v Uint32
	err := v.Deserialize(NewDecoder([]byte{1, 2}))
	require.ErrorIs(t, err, ErrEndOfBuffer)
	var eob *EndOfBuffer
	require.ErrorAs(t, err, &eob)
	assert.Equal(t, 4, eob.Needed)
	assert.Equal(t, 2, eob.Available)

	var b Bool
	assert.ErrorIs(t, b.Deserialize(NewDecoder([]byte{2})), ErrInvalidValue)

	var s String
	assert.ErrorIs(t, s.Deserialize(NewDecoder([]byte("no terminator"))), ErrEndOfBuffer)

	var blob Bytes
	assert.ErrorIs(t, blob.Deserialize(NewDecoder([]byte{0, 0, 0, 0, 0, 0, 0, 9, 1})), ErrEndOfBuffer)

	assert.ErrorIs(t, Decode([]byte{1, 0}, new(Uint8)), ErrInvalidValue)
}

func TestZeroSizeSliceLength(t *testing.T) {
	var ok Slice[Empty]
	require.NoError(t, Decode(mustEncode(t, Slice[Empty]{{}, {}, {}}), &ok))
	assert.Len(t, ok, 3)

	corrupt := []byte{0x40, 0, 0, 0, 0, 0, 0, 0}
	var s Slice[Empty]
	assert.ErrorIs(t, s.Deserialize(NewDecoder(corrupt)), ErrInvalidValue)
	assert.Nil(t, s)
}

func TestDecoderOffsets(t *testing.T) {
	buf := mustEncode(t, Tuple{String("ab"), Uint16(7), Int8(-1)})
	d := NewDecoder(buf)

	s, err := d.StringBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), s)
	assert.Equal(t, 3, d.Offset())

	u, err := d.Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(7), u)

	i, err := d.Int8()
	require.NoError(t, err)
	assert.Equal(t, int8(-1), i)
	assert.Zero(t, d.Remaining())
}

func TestAppendEncode(t *testing.T) {
	b, err := AppendEncode([]byte{0xaa}, Uint16(1))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0, 1}, b)
}
