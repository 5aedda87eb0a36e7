// Package sequence keeps per-port packet counters and classifies each
// arriving sequence number against them.
package sequence

import "av-fc-core/flight_computer/messages"

// Class is the outcome of comparing a received sequence number with the
// expected one.
type Class int

const (
	InOrder Class = iota
	// Stale packets are duplicates or arrived after something newer. They
	// are reported and dropped.
	Stale
	// Gapped packets are newer than expected: something was lost in between.
	// They are reported but still processed.
	Gapped
)

func (c Class) String() string {
	switch c {
	case InOrder:
		return "in-order"
	case Stale:
		return "stale"
	case Gapped:
		return "gapped"
	default:
		return "unknown"
	}
}

// Accept reports whether a packet of this class should be processed.
func (c Class) Accept() bool {
	return c != Stale
}

// Classify compares received with expected and returns the class together
// with the next expected value. Stale packets leave expected unchanged.
func Classify(expected, received uint32) (Class, uint32) {
	switch {
	case received < expected:
		return Stale, expected
	case received == expected:
		return InOrder, received + 1
	default:
		return Gapped, received + 1
	}
}

// Tracker holds the next expected sequence number for each source port.
// Ports start at zero the first time they are seen.
type Tracker struct {
	expected map[uint16]uint32
}

func NewTracker() *Tracker {
	return &Tracker{expected: make(map[uint16]uint32)}
}

// Check classifies a packet from port and advances that port's counter. For
// stale and gapped packets it also returns the error record to log.
func (t *Tracker) Check(port uint16, received uint32) (Class, *messages.SequenceError) {
	expected := t.expected[port]
	class, next := Classify(expected, received)
	t.expected[port] = next

	if class == InOrder {
		return class, nil
	}
	return class, &messages.SequenceError{
		Port:     port,
		Expected: expected,
		Received: received,
	}
}

// Expected returns the next sequence number port is expected to send.
func (t *Tracker) Expected(port uint16) uint32 {
	return t.expected[port]
}
