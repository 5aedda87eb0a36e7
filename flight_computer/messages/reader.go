package messages

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Record is one framed record read back from a log or telemetry packet.
type Record struct {
	Header
	Payload []byte
}

// RecordReader reads consecutive framed records from a flight log.
type RecordReader struct {
	r *bufio.Reader
}

func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{r: bufio.NewReader(r)}
}

// Next returns the next record, or io.EOF at a clean end of stream. A
// header or payload cut short by the end of the stream is reported as
// ErrTruncatedMessage.
func (rr *RecordReader) Next() (Record, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(rr.r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, fmt.Errorf("record header: %w", ErrTruncatedMessage)
		}
		return Record{}, err
	}
	h, err := UnpackHeader(hdr[:])
	if err != nil {
		return Record{}, err
	}

	payload := make([]byte, h.Length)
	if _, err := io.ReadFull(rr.r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, fmt.Errorf("record %s payload of %d bytes: %w", h.Tag, h.Length, ErrTruncatedMessage)
		}
		return Record{}, err
	}
	return Record{Header: h, Payload: payload}, nil
}

// ParseTelemetryPacket splits a telemetry packet into its packet sequence
// number and the records packed behind it.
func ParseTelemetryPacket(packet []byte) (uint32, []Record, error) {
	seq, rest, err := SplitSequence(packet)
	if err != nil {
		return 0, nil, err
	}

	var out []Record
	for len(rest) > 0 {
		h, err := UnpackHeader(rest)
		if err != nil {
			return seq, out, err
		}
		end := HeaderSize + int(h.Length)
		if len(rest) < end {
			return seq, out, fmt.Errorf("record %s wants %d bytes, %d left: %w", h.Tag, h.Length, len(rest)-HeaderSize, ErrTruncatedMessage)
		}
		out = append(out, Record{Header: h, Payload: rest[HeaderSize:end]})
		rest = rest[end:]
	}
	return seq, out, nil
}
