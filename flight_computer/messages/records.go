package messages

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	SequenceErrorSize = 10
	ControlSize       = 24
	SequenceSize      = 4
)

// SequenceError records a missing or out of order packet on one port.
type SequenceError struct {
	Port     uint16
	Expected uint32
	Received uint32
}

// Encode returns port (u16), expected (u32), received (u32), big-endian.
func (e SequenceError) Encode() []byte {
	out := make([]byte, 0, SequenceErrorSize)
	out = binary.BigEndian.AppendUint16(out, e.Port)
	out = binary.BigEndian.AppendUint32(out, e.Expected)
	return binary.BigEndian.AppendUint32(out, e.Received)
}

func DecodeSequenceError(data []byte) (SequenceError, error) {
	if len(data) < SequenceErrorSize {
		return SequenceError{}, fmt.Errorf("sequence error expects %d bytes, got %d: %w", SequenceErrorSize, len(data), ErrTruncatedMessage)
	}
	return SequenceError{
		Port:     binary.BigEndian.Uint16(data[0:]),
		Expected: binary.BigEndian.Uint32(data[2:]),
		Received: binary.BigEndian.Uint32(data[6:]),
	}, nil
}

// Control is the logged output of one controller step.
type Control struct {
	Error      float64
	Integral   float64
	Correction float64
}

func (c Control) Encode() []byte {
	out := make([]byte, 0, ControlSize)
	for _, f := range [...]float64{c.Error, c.Integral, c.Correction} {
		out = binary.BigEndian.AppendUint64(out, math.Float64bits(f))
	}
	return out
}

func DecodeControl(data []byte) (Control, error) {
	if len(data) < ControlSize {
		return Control{}, fmt.Errorf("control expects %d bytes, got %d: %w", ControlSize, len(data), ErrTruncatedMessage)
	}
	f := func(off int) float64 {
		return math.Float64frombits(binary.BigEndian.Uint64(data[off:]))
	}
	return Control{Error: f(0), Integral: f(8), Correction: f(16)}, nil
}

// EncodeSequence is the 4 byte big-endian packet sequence number used both as
// the telemetry packet prefix and as the SEQN record payload.
func EncodeSequence(seq uint32) []byte {
	return binary.BigEndian.AppendUint32(make([]byte, 0, SequenceSize), seq)
}

// SplitSequence separates the leading sequence number of a datagram from
// the rest of its payload.
func SplitSequence(data []byte) (uint32, []byte, error) {
	if len(data) < SequenceSize {
		return 0, nil, fmt.Errorf("sequence number expects %d bytes, got %d: %w", SequenceSize, len(data), ErrTruncatedMessage)
	}
	return binary.BigEndian.Uint32(data), data[SequenceSize:], nil
}
