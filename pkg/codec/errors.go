package codec

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrBufferOverflow is reported when a value does not fit in the encoder's buffer.
	ErrBufferOverflow = errors.New("codec: buffer overflow")
	// ErrEmbeddedNUL is reported when a string holds a 0x00 byte, which would
	// collide with the string terminator.
	ErrEmbeddedNUL = errors.New("codec: string contains NUL byte")
	// ErrEndOfBuffer is the class of all *EndOfBuffer errors.
	ErrEndOfBuffer = errors.New("codec: end of buffer reached")
	// ErrInvalidValue is reported when stored bytes cannot represent the target type.
	ErrInvalidValue = errors.New("codec: invalid value")
	// ErrNotDeserializable is reported when a decode target does not implement Deserializable.
	ErrNotDeserializable = errors.New("codec: value is not deserializable")
)

// EndOfBuffer reports a read past the end of a Decoder's buffer.
type EndOfBuffer struct {
	Needed    int
	Available int
}

func (e *EndOfBuffer) Error() string {
	return fmt.Sprintf("codec: end of buffer reached: need %d bytes, %d available", e.Needed, e.Available)
}

// Is lets errors.Is match an *EndOfBuffer against ErrEndOfBuffer.
func (e *EndOfBuffer) Is(target error) bool {
	return target == ErrEndOfBuffer
}
