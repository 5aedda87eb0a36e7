package framing

import (
	"errors"
	"fmt"

	"av-fc-core/flight_computer/messages"
)

// DefaultPacketLimit keeps a telemetry packet inside one Ethernet frame.
const DefaultPacketLimit = 1432

// ErrRecordTooLarge is returned for a record that cannot fit in an empty packet.
var ErrRecordTooLarge = errors.New("record larger than telemetry packet")

// Sender transmits one finished telemetry packet. The packet buffer is
// reused after Send returns.
type Sender interface {
	Send(packet []byte) error
}

// Telemetry batches framed records into packets of at most limit bytes.
// Every packet starts with its 4 byte big-endian sequence number. Each
// flush is recorded in the log as a SEQN record so the log shows which
// packets were sent.
type Telemetry struct {
	sender Sender
	log    *RecordLog
	now    func() uint64
	limit  int

	seq          uint32
	buf          []byte
	sendFailures uint64
}

// NewTelemetry returns a batcher whose first packet has sequence number 0.
// now supplies the send timestamp for SEQN log records.
func NewTelemetry(sender Sender, log *RecordLog, limit int, now func() uint64) (*Telemetry, error) {
	if limit < messages.SequenceSize+messages.HeaderSize {
		return nil, fmt.Errorf("packet limit %d cannot hold a sequence number and one header", limit)
	}
	t := &Telemetry{
		sender: sender,
		log:    log,
		now:    now,
		limit:  limit,
		buf:    make([]byte, 0, limit),
	}
	t.buf = append(t.buf, messages.EncodeSequence(0)...)
	return t, nil
}

// Enqueue frames payload and appends it to the current packet. If the
// record would push the packet past the limit, the packet is flushed first.
// A flush failure is returned but the record is still queued.
func (t *Telemetry) Enqueue(tag messages.Tag, timestamp uint64, payload []byte) error {
	size := messages.FrameSize(len(payload))
	if messages.SequenceSize+size > t.limit {
		return fmt.Errorf("%s record of %d bytes, limit %d: %w", tag, size, t.limit, ErrRecordTooLarge)
	}

	var err error
	if len(t.buf)+size > t.limit {
		err = t.Flush()
	}
	t.buf = messages.AppendFrame(t.buf, tag, timestamp, payload)
	return err
}

// Flush sends the current packet and starts the next one. The sequence
// number advances and the buffer resets even when the send fails, so one
// lost packet never stalls the stream. A packet holding no records is not
// sent.
func (t *Telemetry) Flush() error {
	if len(t.buf) <= messages.SequenceSize {
		return nil
	}

	sendTime := t.now()
	sendErr := t.sender.Send(t.buf)

	t.seq++
	seqn := messages.EncodeSequence(t.seq)
	t.buf = append(t.buf[:0], seqn...)

	logErr := t.log.Write(messages.TagSEQN, sendTime, seqn)

	if sendErr != nil {
		t.sendFailures++
		sendErr = fmt.Errorf("send telemetry packet %d: %w", t.seq-1, sendErr)
	}
	return errors.Join(sendErr, logErr)
}

// Sequence returns the sequence number of the packet being built.
func (t *Telemetry) Sequence() uint32 {
	return t.seq
}

// SendFailures returns how many packets the sender failed to transmit.
func (t *Telemetry) SendFailures() uint64 {
	return t.sendFailures
}

// Pending returns the bytes of the packet being built, sequence prefix
// included. The slice is only valid until the next Enqueue or Flush.
func (t *Telemetry) Pending() []byte {
	return t.buf
}
