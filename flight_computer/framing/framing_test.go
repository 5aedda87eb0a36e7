package framing

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"av-fc-core/flight_computer/messages"
)

type captureSender struct {
	packets [][]byte
	err     error
}

func (c *captureSender) Send(packet []byte) error {
	c.packets = append(c.packets, append([]byte(nil), packet...))
	return c.err
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func fixedClock(ts uint64) func() uint64 { return func() uint64 { return ts } }

func readAll(t *testing.T, r io.Reader) []messages.Record {
	t.Helper()
	var out []messages.Record
	rr := messages.NewRecordReader(r)
	for {
		rec, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestRecordLogWrite(t *testing.T) {
	var buf bytes.Buffer
	l := NewRecordLog(&buf)

	require.NoError(t, l.Write(messages.TagADIS, 77, []byte{1, 2, 3}))
	require.NoError(t, l.Write(messages.TagSEQE, 78, messages.SequenceError{Port: 1, Expected: 2, Received: 3}.Encode()))

	want := []byte{'A', 'D', 'I', 'S', 0, 0, 0, 0, 0, 77, 0, 3, 1, 2, 3}
	assert.Equal(t, want, buf.Bytes()[:len(want)])

	recs := readAll(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, messages.TagSEQE, recs[1].Tag)
	assert.Equal(t, uint64(78), recs[1].Timestamp)
	assert.Zero(t, l.Failures())
}

func TestRecordLogCountsFailures(t *testing.T) {
	l := NewRecordLog(failingWriter{})
	err := l.Write(messages.TagState, 1, make([]byte, messages.StateSize))
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, uint64(1), l.Failures())
}

func TestNewTelemetryRejectsTinyLimit(t *testing.T) {
	_, err := NewTelemetry(&captureSender{}, NewRecordLog(io.Discard), 15, fixedClock(0))
	assert.Error(t, err)
}

func TestTelemetryFlushBoundary(t *testing.T) {
	payload := make([]byte, 10)
	frame := messages.FrameSize(len(payload))
	limit := messages.SequenceSize + 3*frame

	sender := &captureSender{}
	var logBuf bytes.Buffer
	tm, err := NewTelemetry(sender, NewRecordLog(&logBuf), limit, fixedClock(500))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, tm.Pending())

	for i := 0; i < 3; i++ {
		require.NoError(t, tm.Enqueue(messages.TagSEQE, uint64(i), payload))
	}
	assert.Empty(t, sender.packets, "exactly reaching the limit must not flush")
	assert.Len(t, tm.Pending(), limit)

	require.NoError(t, tm.Enqueue(messages.TagSEQE, 3, payload))
	require.Len(t, sender.packets, 1)
	assert.Len(t, sender.packets[0], limit)
	assert.Equal(t, []byte{0, 0, 0, 0}, sender.packets[0][:4])

	assert.Equal(t, uint32(1), tm.Sequence())
	assert.Equal(t, []byte{0, 0, 0, 1}, tm.Pending()[:4])
	assert.Len(t, tm.Pending(), messages.SequenceSize+frame)

	seq, recs, err := messages.ParseTelemetryPacket(sender.packets[0])
	require.NoError(t, err)
	assert.Equal(t, uint32(0), seq)
	require.Len(t, recs, 3)
	assert.Equal(t, uint64(2), recs[2].Timestamp)

	logged := readAll(t, &logBuf)
	require.Len(t, logged, 1)
	assert.Equal(t, messages.TagSEQN, logged[0].Tag)
	assert.Equal(t, uint64(500), logged[0].Timestamp)
	assert.Equal(t, []byte{0, 0, 0, 1}, logged[0].Payload)
}

func TestTelemetryFlushResetsToSequenceOnly(t *testing.T) {
	sender := &captureSender{}
	tm, err := NewTelemetry(sender, NewRecordLog(io.Discard), DefaultPacketLimit, fixedClock(0))
	require.NoError(t, err)

	require.NoError(t, tm.Enqueue(messages.TagState, 1, make([]byte, messages.StateSize)))
	require.NoError(t, tm.Flush())
	assert.Equal(t, []byte{0, 0, 0, 1}, tm.Pending())

	// nothing queued: nothing sent, sequence unchanged
	require.NoError(t, tm.Flush())
	assert.Len(t, sender.packets, 1)
	assert.Equal(t, uint32(1), tm.Sequence())
}

func TestTelemetryNeverExceedsLimit(t *testing.T) {
	sender := &captureSender{}
	tm, err := NewTelemetry(sender, NewRecordLog(io.Discard), DefaultPacketLimit, fixedClock(0))
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		require.NoError(t, tm.Enqueue(messages.TagADIS, uint64(i), make([]byte, messages.ADISSize)))
		require.NoError(t, tm.Enqueue(messages.TagState, uint64(i), make([]byte, messages.StateSize)))
		assert.LessOrEqual(t, len(tm.Pending()), DefaultPacketLimit)
	}
	require.NotEmpty(t, sender.packets)
	for i, p := range sender.packets {
		assert.LessOrEqual(t, len(p), DefaultPacketLimit)
		seq, _, err := messages.ParseTelemetryPacket(p)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), seq)
	}
}

func TestTelemetryRecordTooLarge(t *testing.T) {
	tm, err := NewTelemetry(&captureSender{}, NewRecordLog(io.Discard), 64, fixedClock(0))
	require.NoError(t, err)

	err = tm.Enqueue(messages.TagADIS, 0, make([]byte, 64))
	assert.ErrorIs(t, err, ErrRecordTooLarge)
	assert.Equal(t, []byte{0, 0, 0, 0}, tm.Pending())
}

func TestTelemetrySendFailureStillAdvances(t *testing.T) {
	sender := &captureSender{err: errors.New("network unreachable")}
	tm, err := NewTelemetry(sender, NewRecordLog(io.Discard), DefaultPacketLimit, fixedClock(0))
	require.NoError(t, err)

	require.NoError(t, tm.Enqueue(messages.TagState, 1, make([]byte, messages.StateSize)))
	err = tm.Flush()
	assert.ErrorContains(t, err, "network unreachable")
	assert.Equal(t, uint64(1), tm.SendFailures())
	assert.Equal(t, uint32(1), tm.Sequence())
	assert.Equal(t, []byte{0, 0, 0, 1}, tm.Pending())
}
