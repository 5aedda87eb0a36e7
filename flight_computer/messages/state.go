package messages

import (
	"encoding/binary"
	"fmt"
	"math"
)

// StateSize is the encoded length of a State: one u64 and five f64.
const StateSize = 48

// LaunchSiteAltitude is the default starting altitude [m above sea level].
const LaunchSiteAltitude = 1390.0

// State is the vehicle state vector.
type State struct {
	Time      uint64  // nanoseconds from boot the vector is valid for
	AccUp     float64 // [m/s²]
	VelUp     float64 // [m/s]
	Altitude  float64 // [m]
	RollRate  float64 // [deg/s]
	RollAngle float64 // [deg], zero is the initial angle
}

// NewState returns the at-rest state on the pad.
func NewState(altitude float64) State {
	return State{Altitude: altitude}
}

// Encode returns the big-endian wire form of s.
func (s State) Encode() []byte {
	return s.AppendEncode(make([]byte, 0, StateSize))
}

// AppendEncode appends the wire form of s to dst.
func (s State) AppendEncode(dst []byte) []byte {
	dst = binary.BigEndian.AppendUint64(dst, s.Time)
	for _, f := range [...]float64{s.AccUp, s.VelUp, s.Altitude, s.RollRate, s.RollAngle} {
		dst = binary.BigEndian.AppendUint64(dst, math.Float64bits(f))
	}
	return dst
}

// DecodeState reads a State from the front of data.
func DecodeState(data []byte) (State, error) {
	if len(data) < StateSize {
		return State{}, fmt.Errorf("state expects %d bytes, got %d: %w", StateSize, len(data), ErrTruncatedMessage)
	}
	f := func(off int) float64 {
		return math.Float64frombits(binary.BigEndian.Uint64(data[off:]))
	}
	return State{
		Time:      binary.BigEndian.Uint64(data[0:]),
		AccUp:     f(8),
		VelUp:     f(16),
		Altitude:  f(24),
		RollRate:  f(32),
		RollAngle: f(40),
	}, nil
}
