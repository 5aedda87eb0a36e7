package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"av-fc-core/flight_computer/executive"
	"av-fc-core/flight_computer/framing"
	"av-fc-core/flight_computer/messages"
	"av-fc-core/utils"
)

type scriptedReceiver struct {
	steps  []func() (executive.Datagram, error)
	closed bool
}

func (s *scriptedReceiver) Receive(ctx context.Context) (executive.Datagram, error) {
	if len(s.steps) == 0 {
		return executive.Datagram{}, io.EOF
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step()
}

func (s *scriptedReceiver) Close() error {
	s.closed = true
	return nil
}

func datagramStep(seq uint32, t uint64) func() (executive.Datagram, error) {
	return func() (executive.Datagram, error) {
		d := executive.Datagram{Sequence: seq, Port: executive.DefaultADISPort, Time: t}
		d.Payload = messages.EncodeADIS(messages.ADIS{AccX: messages.G0 + 1, Temp: messages.TempBiasK})
		return d, nil
	}
}

type nullSender struct{ packets int }

func (n *nullSender) Send([]byte) error {
	n.packets++
	return nil
}

func newTestRunner(t *testing.T, rx Receiver) (*Runner, *bytes.Buffer, *nullSender, *bytes.Buffer) {
	t.Helper()
	diag := &bytes.Buffer{}
	log := utils.NewLogger(diag, utils.INFO)
	flight := &bytes.Buffer{}
	records := framing.NewRecordLog(flight)
	sender := &nullSender{}

	r := &Runner{log: log, recv: rx, records: records}
	fc, err := executive.New(executive.DefaultConfig(), log, records, sender, func() uint64 { return r.lastTime })
	require.NoError(t, err)
	r.fc = fc
	return r, flight, sender, diag
}

func TestRunnerProcessesUntilEOF(t *testing.T) {
	short := func() (executive.Datagram, error) {
		_, _, err := messages.SplitSequence([]byte{1})
		return executive.Datagram{}, err
	}
	rx := &scriptedReceiver{steps: []func() (executive.Datagram, error){
		datagramStep(0, 1_000_000_000),
		short,
		datagramStep(1, 2_000_000_000),
	}}
	r, flight, sender, diag := newTestRunner(t, rx)

	require.NoError(t, r.Run(context.Background()))
	r.Close()

	assert.Equal(t, uint64(1), r.short)
	assert.Equal(t, uint64(2), r.fc.Stats().Accepted)
	assert.InDelta(t, 1.0, r.fc.State().VelUp, 0.01)
	assert.Equal(t, 1, sender.packets)
	assert.True(t, rx.closed)
	assert.Contains(t, diag.String(), "accepted=2")

	// Initial SEQN, then one more written by the final flush at t=2s.
	var seqn []messages.Record
	rr := messages.NewRecordReader(bytes.NewReader(flight.Bytes()))
	for {
		rec, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if rec.Tag == messages.TagSEQN {
			seqn = append(seqn, rec)
		}
	}
	require.Len(t, seqn, 2)
	assert.Equal(t, uint64(2_000_000_000), seqn[1].Timestamp)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rx := &scriptedReceiver{steps: []func() (executive.Datagram, error){
		datagramStep(0, 1),
		func() (executive.Datagram, error) {
			cancel()
			return executive.Datagram{}, ctx.Err()
		},
	}}
	r, _, _, _ := newTestRunner(t, rx)

	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
	r.Close()
	assert.Equal(t, uint64(1), r.fc.Stats().Accepted)
}

func TestRunnerReportsReceiveFailure(t *testing.T) {
	rx := &scriptedReceiver{steps: []func() (executive.Datagram, error){
		func() (executive.Datagram, error) { return executive.Datagram{}, errors.New("socket closed") },
	}}
	r, _, _, _ := newTestRunner(t, rx)
	defer r.Close()

	assert.ErrorContains(t, r.Run(context.Background()), "socket closed")
}
