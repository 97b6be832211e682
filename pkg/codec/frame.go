package codec

import (
	"encoding/binary"
	"hash/crc32"
	"time"

	"github.com/pkg/errors"
)

// FrameHeaderSize is the size of a frame header.
//
//	[CRC32(4)][KeySize(4)][ValueSize(4)][Timestamp(8)][Key][Value]
const FrameHeaderSize = 20

// ErrChecksum is returned by Frame.Validate when the stored CRC32 does not
// match the frame contents.
var ErrChecksum = errors.New("codec: frame checksum mismatch")

// Frame is a self-checking raw key/value pair, used by export files.
type Frame struct {
	CRC32     uint32
	KeySize   uint32
	ValueSize uint32
	Timestamp uint64 // Unix nanoseconds
	Key       []byte
	Value     []byte
}

// NewFrame builds a frame stamped with the current time.
func NewFrame(key, value []byte) *Frame {
	f := &Frame{
		KeySize:   uint32(len(key)),
		ValueSize: uint32(len(value)),
		Timestamp: uint64(time.Now().UnixNano()),
		Key:       key,
		Value:     value,
	}
	f.CRC32 = f.checksum()
	return f
}

// Size returns the encoded size of the frame.
func (f *Frame) Size() int {
	return FrameHeaderSize + len(f.Key) + len(f.Value)
}

// MarshalBinary encodes the frame. Header integers are little-endian: frames
// are never compared byte-wise.
func (f *Frame) MarshalBinary() ([]byte, error) {
	if uint64(len(f.Key)) > uint64(^uint32(0)) || uint64(len(f.Value)) > uint64(^uint32(0)) {
		return nil, errors.Wrap(ErrBufferOverflow, "frame too large")
	}
	buf := make([]byte, f.Size())
	binary.LittleEndian.PutUint32(buf[0:], f.CRC32)
	binary.LittleEndian.PutUint32(buf[4:], f.KeySize)
	binary.LittleEndian.PutUint32(buf[8:], f.ValueSize)
	binary.LittleEndian.PutUint64(buf[12:], f.Timestamp)
	copy(buf[FrameHeaderSize:], f.Key)
	copy(buf[FrameHeaderSize+len(f.Key):], f.Value)
	return buf, nil
}

// UnmarshalBinary decodes a frame. Key and Value alias data.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < FrameHeaderSize {
		return &EndOfBuffer{Needed: FrameHeaderSize, Available: len(data)}
	}
	f.CRC32 = binary.LittleEndian.Uint32(data[0:])
	f.KeySize = binary.LittleEndian.Uint32(data[4:])
	f.ValueSize = binary.LittleEndian.Uint32(data[8:])
	f.Timestamp = binary.LittleEndian.Uint64(data[12:])

	need := uint64(FrameHeaderSize) + uint64(f.KeySize) + uint64(f.ValueSize)
	if uint64(len(data)) < need {
		return &EndOfBuffer{Needed: int(need), Available: len(data)}
	}
	f.Key = data[FrameHeaderSize : FrameHeaderSize+f.KeySize]
	f.Value = data[FrameHeaderSize+f.KeySize : need]
	return nil
}

// Validate checks the frame's CRC32.
func (f *Frame) Validate() error {
	if sum := f.checksum(); sum != f.CRC32 {
		return errors.Wrapf(ErrChecksum, "%08x != %08x", f.CRC32, sum)
	}
	return nil
}

// checksum covers everything after the CRC field.
func (f *Frame) checksum() uint32 {
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], f.KeySize)
	binary.LittleEndian.PutUint32(hdr[4:], f.ValueSize)
	binary.LittleEndian.PutUint64(hdr[8:], f.Timestamp)

	crc := crc32.NewIEEE()
	crc.Write(hdr[:])
	crc.Write(f.Key)
	crc.Write(f.Value)
	return crc.Sum32()
}
