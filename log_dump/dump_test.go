package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"av-fc-core/flight_computer/framing"
	"av-fc-core/flight_computer/messages"
)

func sampleLog(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	l := framing.NewRecordLog(&buf)
	require.NoError(t, l.Write(messages.TagSEQN, 0, messages.EncodeSequence(0)))
	require.NoError(t, l.Write(messages.TagSEQE, 1_500_000_000, messages.SequenceError{Port: 35020, Expected: 2, Received: 5}.Encode()))
	s := messages.NewState(1390)
	s.Time = 1_500_000_000
	require.NoError(t, l.Write(messages.TagState, s.Time, s.Encode()))
	require.NoError(t, l.Write(messages.TagControl, s.Time, messages.Control{Error: -1, Integral: -1, Correction: -5}.Encode()))
	return buf.Bytes()
}

func TestDumpAllRecords(t *testing.T) {
	var out bytes.Buffer
	d := NewDumper(&out, nil)
	require.NoError(t, d.Dump(bytes.NewReader(sampleLog(t))))
	assert.Equal(t, 4, d.Count())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "SEQN seq=0")
	assert.Contains(t, lines[1], "SEQE port=35020 expected=2 received=5")
	assert.Contains(t, lines[2], "alt=1390.00")
	assert.Contains(t, lines[3], "correction=-5.000")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[1]), "1.500000"))
}

func TestDumpFiltersTags(t *testing.T) {
	var out bytes.Buffer
	d := NewDumper(&out, ParseTagFilter("SEQE, RCTL"))
	require.NoError(t, d.Dump(bytes.NewReader(sampleLog(t))))
	assert.Equal(t, 2, strings.Count(out.String(), "\n"))
	assert.NotContains(t, out.String(), "STAT")
}

func TestDumpReportsTornRecord(t *testing.T) {
	data := sampleLog(t)
	var out bytes.Buffer
	d := NewDumper(&out, nil)
	err := d.Dump(bytes.NewReader(data[:len(data)-3]))
	assert.ErrorIs(t, err, messages.ErrTruncatedMessage)
	assert.Equal(t, 3, d.Count())
}

func TestDescribeUnknownTag(t *testing.T) {
	rec := messages.Record{Header: messages.Header{Tag: messages.Tag{'X', 'Y', 'Z', 'W'}}, Payload: []byte{0xde, 0xad}}
	assert.Equal(t, "de ad", Describe(rec))
}
