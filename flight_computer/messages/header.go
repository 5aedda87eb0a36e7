package messages

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the length of the record header shared by log and telemetry frames.
const HeaderSize = 12

// MaxTimestamp is the largest nanosecond count that survives header truncation.
const MaxTimestamp = 1<<48 - 1

// Tag is the four character ASCII name of a record.
type Tag [4]byte

var (
	TagADIS    = Tag{'A', 'D', 'I', 'S'}
	TagSEQN    = Tag{'S', 'E', 'Q', 'N'}
	TagSEQE    = Tag{'S', 'E', 'Q', 'E'}
	TagState   = Tag{'S', 'T', 'A', 'T'}
	TagControl = Tag{'R', 'C', 'T', 'L'}
)

func (t Tag) String() string { return string(t[:]) }

// ErrTruncatedMessage is returned when a buffer is shorter than the fixed
// layout being read from it.
var ErrTruncatedMessage = errors.New("truncated message")

// Header is the decoded form of a record header.
type Header struct {
	Tag       Tag
	Timestamp uint64 // low 48 bits of the original nanosecond count
	Length    uint16
}

// PackHeader builds the 12 byte header: tag, the 6 least significant bytes of
// the big-endian nanosecond timestamp, and the big-endian payload length.
// Timestamps above MaxTimestamp are silently truncated.
func PackHeader(tag Tag, timestamp uint64, payloadLength int) [HeaderSize]byte {
	var out [HeaderSize]byte
	copy(out[0:4], tag[:])

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], timestamp)
	copy(out[4:10], ts[2:8])

	binary.BigEndian.PutUint16(out[10:12], uint16(payloadLength))
	return out
}

// UnpackHeader reads a header from the front of data.
func UnpackHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("header expects %d bytes, got %d: %w", HeaderSize, len(data), ErrTruncatedMessage)
	}
	var h Header
	copy(h.Tag[:], data[0:4])

	var ts [8]byte
	copy(ts[2:8], data[4:10])
	h.Timestamp = binary.BigEndian.Uint64(ts[:])

	h.Length = binary.BigEndian.Uint16(data[10:12])
	return h, nil
}

// AppendFrame appends header and payload to dst.
func AppendFrame(dst []byte, tag Tag, timestamp uint64, payload []byte) []byte {
	h := PackHeader(tag, timestamp, len(payload))
	dst = append(dst, h[:]...)
	return append(dst, payload...)
}

// FrameSize is the number of bytes a payload of n bytes occupies once framed.
func FrameSize(n int) int {
	return HeaderSize + n
}
