package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"av-fc-core/flight_computer/messages"
	"av-fc-core/utils"
)

// Emitter delivers one datagram.
type Emitter interface {
	Emit(datagram []byte) error
}

type UDPEmitter struct {
	conn *net.UDPConn
}

// NewUDPEmitter binds srcPort locally so the datagrams carry the port the
// flight computer expects ADIS traffic from.
func NewUDPEmitter(target string, srcPort uint16) (*UDPEmitter, error) {
	raddr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", &net.UDPAddr{Port: int(srcPort)}, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s from port %d: %w", target, srcPort, err)
	}
	return &UDPEmitter{conn: conn}, nil
}

func (e *UDPEmitter) Emit(datagram []byte) error {
	_, err := e.conn.Write(datagram)
	return err
}

func (e *UDPEmitter) Close() error {
	return e.conn.Close()
}

// Player steps through a scenario at its sample rate.
type Player struct {
	scen    *Scenario
	out     Emitter
	log     *utils.Logger
	seq     uint32
	sent    uint64
	dropped uint64
}

func NewPlayer(scen *Scenario, out Emitter, log *utils.Logger) *Player {
	return &Player{scen: scen, out: out, log: log}
}

// Run emits every sample of the scenario. In real-time mode samples are
// paced by a ticker; otherwise they go out back to back.
func (p *Player) Run(ctx context.Context) error {
	dt := 1.0 / p.scen.Timing.RateHz
	n := int(p.scen.Timing.DurationS * p.scen.Timing.RateHz)

	p.log.Info("Starting ADIS: scenario=%s samples=%d rate=%.0fHz realtime=%v",
		p.scen.Meta.Name, n, p.scen.Timing.RateHz, p.scen.Timing.RealTimeMode)

	var tick <-chan time.Time
	if p.scen.Timing.RealTimeMode {
		ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
		tick = ticker.C
	}

	for i := 0; i < n; i++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				p.log.Warn("Context canceled; stopping ADIS")
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if err := p.step(float64(i) * dt); err != nil {
			return err
		}
	}
	p.log.Info("Completed ADIS. sent=%d dropped=%d last_seq=%d", p.sent, p.dropped, p.seq)
	return nil
}

func (p *Player) step(t float64) error {
	seq := p.seq
	p.seq++

	datagram := Datagram(seq, p.scen.EvalIMU(t).Reading())
	fault, ok := p.scen.FaultAt(seq)
	if ok {
		p.log.Debug("Injecting %s at seq=%d", fault, seq)
	}

	switch {
	case ok && fault == FaultDrop:
		p.dropped++
		return nil
	case ok && fault == FaultTruncate:
		datagram = datagram[:messages.SequenceSize+messages.ADISMinSize-2]
	}

	if err := p.emit(datagram); err != nil {
		return err
	}
	if ok && fault == FaultRepeat {
		return p.emit(datagram)
	}
	return nil
}

func (p *Player) emit(datagram []byte) error {
	if err := p.out.Emit(datagram); err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	p.sent++
	return nil
}

// Datagram prefixes the encoded reading with its sequence number.
func Datagram(seq uint32, imu messages.ADIS) []byte {
	return append(messages.EncodeSequence(seq), messages.EncodeADIS(imu)...)
}
