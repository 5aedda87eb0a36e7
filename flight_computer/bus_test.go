package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.einride.tech/can"

	"av-fc-core/flight_computer/messages"
	"av-fc-core/utils"
)

const busMap = `frame_id,frame_name,cycle_ms,dlc,signal_name,start_bit,bit_length,signed,factor,offset,min,max,unit
0x310,FC_STATE_1,20,8,altitude_m,0,16,false,1,0,0,65535,m
0x310,FC_STATE_1,20,8,vel_up_mps,16,16,true,0.1,0,-3000,3000,m/s
0x310,FC_STATE_1,20,8,roll_rate_dps,32,16,true,0.1,0,-3000,3000,deg/s
0x311,FC_STATE_2,100,4,roll_correction,0,16,true,0.5,0,-16000,16000,
0x311,FC_STATE_2,100,4,seq_errors,16,16,false,1,0,0,65535,
`

type fakeCANWriter struct {
	frames []can.Frame
	err    error
	closed bool
}

func (w *fakeCANWriter) WriteFrame(_ context.Context, f can.Frame) error {
	if w.err != nil {
		return w.err
	}
	w.frames = append(w.frames, f)
	return nil
}

func (w *fakeCANWriter) Close() error {
	w.closed = true
	return nil
}

func newTestBus(t *testing.T, w *fakeCANWriter, seqErrs func() uint64) (*StateBus, *utils.CANMap) {
	t.Helper()
	cmap, err := utils.ParseCANMap(strings.NewReader(busMap))
	require.NoError(t, err)
	bus, err := NewStateBus(context.Background(), utils.NewLogger(io.Discard, utils.TRACE), cmap, w,
		[]string{"FC_STATE_1", "FC_STATE_2"}, seqErrs)
	require.NoError(t, err)
	return bus, cmap
}

func TestStateBusEncodesState(t *testing.T) {
	w := &fakeCANWriter{}
	bus, cmap := newTestBus(t, w, func() uint64 { return 3 })

	s := messages.State{Time: 1_000_000, Altitude: 1402, VelUp: 12.3, RollRate: -4.5}
	bus.Observe(s, -20)

	require.Len(t, w.frames, 2)
	v, err := cmap.DecodeFrame(w.frames[0])
	require.NoError(t, err)
	assert.Equal(t, 1402.0, v["altitude_m"])
	assert.InDelta(t, 12.3, v["vel_up_mps"], 1e-9)
	assert.InDelta(t, -4.5, v["roll_rate_dps"], 1e-9)

	v, err = cmap.DecodeFrame(w.frames[1])
	require.NoError(t, err)
	assert.Equal(t, -20.0, v["roll_correction"])
	assert.Equal(t, 3.0, v["seq_errors"])
	assert.Equal(t, uint64(2), bus.Sent())
}

func TestStateBusThrottlesByCycle(t *testing.T) {
	w := &fakeCANWriter{}
	bus, _ := newTestBus(t, w, nil)

	// 10 ms steps for 200 ms: FC_STATE_1 every 20 ms, FC_STATE_2 every 100 ms.
	for i := uint64(0); i < 20; i++ {
		bus.Observe(messages.State{Time: i * 10_000_000}, 0)
	}

	var fast, slow int
	for _, f := range w.frames {
		switch f.ID {
		case 0x310:
			fast++
		case 0x311:
			slow++
		}
	}
	assert.Equal(t, 10, fast)
	assert.Equal(t, 2, slow)
}

func TestStateBusCountsFailures(t *testing.T) {
	w := &fakeCANWriter{err: errors.New("no buffer space available")}
	bus, _ := newTestBus(t, w, nil)

	bus.Observe(messages.State{Time: 1}, 0)
	assert.Equal(t, uint64(2), bus.Failures())
	assert.Zero(t, bus.Sent())

	require.NoError(t, bus.Close())
	assert.True(t, w.closed)
}

func TestNewStateBusUnknownFrame(t *testing.T) {
	cmap, err := utils.ParseCANMap(strings.NewReader(busMap))
	require.NoError(t, err)
	_, err = NewStateBus(context.Background(), utils.NewLogger(io.Discard, utils.INFO), cmap,
		&fakeCANWriter{}, []string{"FC_STATE_9"}, nil)
	assert.Error(t, err)
}
