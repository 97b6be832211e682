// Package codec provides order-preserving binary encoding for Strata keys and values.
//
// Every Value knows its exact encoded size and writes itself into an Encoder.
// Values whose encodings are compared by the storage engine (anything used in
// a key) are encoded so that byte-wise comparison of two encodings gives the
// same result as comparing the original values.
//
// # Encodings
//
//	Uint8..Uint64, Uint   fixed width, big-endian
//	Int8..Int64, Int      fixed width, big-endian, biased by 2^(width-1)
//	Time                  Int64 milliseconds since the Unix epoch
//	String                raw UTF-8 followed by a single 0x00 byte
//	Bool                  one byte, 0 or 1
//	UUID, KSUID           raw bytes (16 and 20)
//	Optional[T]           Bool presence tag, then T when present
//	Bytes, Slice[T]       Uint64 length prefix, then the contents
//	Tuple2..Tuple4, Tuple concatenation of members in declared order
//
// The bias applied to signed integers maps the minimum value to 0 and the
// maximum value to 2^width-1, so big-endian unsigned comparison reproduces
// signed comparison. Strings are terminated instead of length-prefixed: a
// length prefix would make a short string's length byte compete with a long
// string's first character when the string is a leading key component.
//
// Bytes and Slice are length-prefixed and therefore only ordered by length
// first. They belong in record fields, not in keys.
//
// # Usage
//
//	key := codec.NewTuple2(codec.String("hello"), codec.Int64(40))
//	buf := make([]byte, key.SerializedSize())
//	enc := codec.NewEncoder(buf)
//	key.Serialize(enc)
//	if err := enc.Err(); err != nil {
//	    return err
//	}
//
//	var out codec.Tuple2[codec.String, codec.Int64]
//	if err := out.Deserialize(codec.NewDecoder(enc.Bytes())); err != nil {
//	    return err
//	}
//
// # Errors
//
// Encoders carry a sticky error: the first failure (buffer overflow or a
// string containing NUL) is kept and later writes become no-ops. Decoders
// return an *EndOfBuffer error when fewer bytes remain than a read needs, and
// ErrInvalidValue when the bytes cannot represent the target type.
//
// # Thread Safety
//
// Encoder and Decoder are not safe for concurrent use. Decoded strings are
// copies; Decoder.RawBytes and Bytes values borrow the decoder's buffer and
// must not outlive it.
package codec
