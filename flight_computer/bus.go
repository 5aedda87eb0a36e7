package main

import (
	"context"
	"fmt"
	"time"

	"av-fc-core/flight_computer/messages"
	"av-fc-core/utils"
)

// StateBus mirrors the state vector onto CAN. Each configured frame is sent
// at most once per its cycle time, measured on the state clock so a replay
// produces the same frames as the live run.
type StateBus struct {
	ctx     context.Context
	log     *utils.Logger
	cmap    *utils.CANMap
	writer  utils.CANWriter
	frames  []*utils.FrameDef
	lastTx  map[uint32]uint64
	seqErrs func() uint64

	sent     uint64
	failures uint64
}

// NewStateBus resolves frames against cmap. seqErrs may be nil.
func NewStateBus(ctx context.Context, log *utils.Logger, cmap *utils.CANMap, writer utils.CANWriter, frames []string, seqErrs func() uint64) (*StateBus, error) {
	b := &StateBus{
		ctx:     ctx,
		log:     log,
		cmap:    cmap,
		writer:  writer,
		lastTx:  make(map[uint32]uint64, len(frames)),
		seqErrs: seqErrs,
	}
	for _, name := range frames {
		fd, err := cmap.FrameByName(name)
		if err != nil {
			return nil, fmt.Errorf("bus frame: %w", err)
		}
		if fd.CycleMS <= 0 {
			return nil, fmt.Errorf("frame %s has invalid cycle_ms %d", fd.Name, fd.CycleMS)
		}
		b.frames = append(b.frames, fd)
	}
	return b, nil
}

// Observe implements executive.Observer.
func (b *StateBus) Observe(s messages.State, correction float64) {
	var values map[string]float64
	for _, fd := range b.frames {
		last, ok := b.lastTx[fd.ID]
		period := uint64(time.Duration(fd.CycleMS) * time.Millisecond)
		if ok && s.Time-last < period {
			continue
		}
		if values == nil {
			values = b.signalValues(s, correction)
		}

		frame, err := b.cmap.EncodeFrame(fd.Name, values)
		if err != nil {
			b.failures++
			b.log.Error("Encode %s: %v", fd.Name, err)
			continue
		}
		b.lastTx[fd.ID] = s.Time
		if err := b.writer.WriteFrame(b.ctx, frame); err != nil {
			b.failures++
			b.log.Error("CAN TX failed: %v", err)
			continue
		}
		b.sent++
		b.log.Trace("TX %s id=0x%X data=% X", fd.Name, frame.ID, frame.Data[:frame.Length])
	}
}

func (b *StateBus) signalValues(s messages.State, correction float64) map[string]float64 {
	v := map[string]float64{
		"altitude_m":      s.Altitude,
		"vel_up_mps":      s.VelUp,
		"acc_up_mps2":     s.AccUp,
		"roll_rate_dps":   s.RollRate,
		"roll_angle_deg":  s.RollAngle,
		"roll_correction": correction,
	}
	if b.seqErrs != nil {
		v["seq_errors"] = float64(b.seqErrs())
	}
	return v
}

func (b *StateBus) Sent() uint64     { return b.sent }
func (b *StateBus) Failures() uint64 { return b.failures }

func (b *StateBus) Close() error {
	return b.writer.Close()
}
