//go:build fuzz
// +build fuzz

package codec

import (
	"bytes"
	"strings"
	"testing"
)

// FuzzTupleOrder checks that (String, Int64) tuples encode in tuple order.
func FuzzTupleOrder(f *testing.F) {
	f.Add("hello", int64(40), "hello", int64(41))
	f.Add("hell", int64(0), "hello", int64(-1))
	f.Add("", int64(-1<<63), "a", int64(1<<62))

	f.Fuzz(func(t *testing.T, s1 string, i1 int64, s2 string, i2 int64) {
		if strings.IndexByte(s1, 0) >= 0 || strings.IndexByte(s2, 0) >= 0 {
			t.Skip("NUL is not representable")
		}

		a, err := Encode(NewTuple2(String(s1), Int64(i1)))
		if err != nil {
			t.Fatalf("encode %q,%d: %v", s1, i1, err)
		}
		b, err := Encode(NewTuple2(String(s2), Int64(i2)))
		if err != nil {
			t.Fatalf("encode %q,%d: %v", s2, i2, err)
		}

		want := strings.Compare(s1, s2)
		if want == 0 {
			switch {
			case i1 < i2:
				want = -1
			case i1 > i2:
				want = 1
			}
		}
		if got := bytes.Compare(a, b); got != want {
			t.Fatalf("compare(%q,%d / %q,%d) = %d, want %d", s1, i1, s2, i2, got, want)
		}

		var out Tuple2[String, Int64]
		if err := Decode(a, &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if string(out.A) != s1 || int64(out.B) != i1 {
			t.Fatalf("round trip %q,%d -> %q,%d", s1, i1, out.A, out.B)
		}
	})
}

// FuzzDecoder makes sure arbitrary input never panics the decoder.
func FuzzDecoder(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{1, 'a', 0, 0, 0, 0, 0, 0, 0, 0, 2})

	f.Fuzz(func(t *testing.T, data []byte) {
		var v Tuple3[Optional[String], Slice[Int], Bytes]
		_ = v.Deserialize(NewDecoder(data))
	})
}
