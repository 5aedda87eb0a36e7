package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"av-fc-core/flight_computer/executive"
	"av-fc-core/flight_computer/framing"
	"av-fc-core/flight_computer/messages"
	"av-fc-core/utils"
)

type RunnerConfig struct {
	Config     *Config
	ReplayPath string // pcap file; empty listens on the network
}

// Runner owns the flight computer and everything it talks to, and feeds it
// datagrams from one goroutine until the context ends or a replay runs out.
type Runner struct {
	log      *utils.Logger
	fc       *executive.FlightComputer
	recv     Receiver
	records  *framing.RecordLog
	sender   io.Closer
	bus      *StateBus
	lastTime uint64
	short    uint64
}

func NewRunner(ctx context.Context, cfg RunnerConfig, log *utils.Logger) (*Runner, error) {
	c := cfg.Config
	r := &Runner{log: log}

	logFile, err := CreateFlightLog(c.FlightLog.Dir, c.FlightLog.Prefix)
	if err != nil {
		return nil, fmt.Errorf("flight log: %w", err)
	}
	r.records = framing.NewRecordLog(logFile)
	log.Info("Flight log %s", logFile.Name())

	sender, err := NewUDPSender(c.Telemetry)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.sender = sender

	var clock func() uint64
	if cfg.ReplayPath != "" {
		rx, err := OpenPcapReceiver(cfg.ReplayPath, listenPort(c.Listen.Address))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("replay: %w", err)
		}
		r.recv = rx
		clock = func() uint64 { return r.lastTime }
		log.Info("Replaying %s", cfg.ReplayPath)
	} else {
		boot := NewBootClock()
		rx, err := NewUDPReceiver(c.Listen.Address, boot)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.recv = rx
		clock = boot.Nanos
		log.Info("Listening on %s", rx.LocalAddr())
	}

	fc, err := executive.New(c.Executive(), log, r.records, sender, clock)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.fc = fc

	if c.Bus.Enabled {
		if err := r.attachBus(ctx, c.Bus); err != nil {
			r.Close()
			return nil, err
		}
	}

	log.Info("Telemetry to %s limit=%d; ADIS port %d; PID target=%.2f Kp=%.3f Ki=%.3f Kd=%.3f",
		sender.Destination(), c.Telemetry.PacketLimit, c.Ports.ADIS,
		c.Control.Target, c.Control.Kp, c.Control.Ki, c.Control.Kd)
	return r, nil
}

func (r *Runner) attachBus(ctx context.Context, cfg BusConfig) error {
	cmap, err := utils.LoadCANMap(cfg.MapPath)
	if err != nil {
		return fmt.Errorf("load can map: %w", err)
	}
	writer, err := utils.NewSocketCANWriter(ctx, cfg.Interface)
	if err != nil {
		return err
	}
	bus, err := NewStateBus(ctx, r.log, cmap, writer, cfg.Frames, r.sequenceErrors)
	if err != nil {
		writer.Close()
		return err
	}
	r.bus = bus
	r.fc.AddObserver(bus)
	r.log.Info("Mirroring state on %s frames=%v", cfg.Interface, cfg.Frames)
	return nil
}

func (r *Runner) sequenceErrors() uint64 {
	st := r.fc.Stats()
	return st.Stale + st.Gapped
}

// Run receives until ctx is canceled, the replay reaches its end, or the
// receiver fails. A finished replay returns nil.
func (r *Runner) Run(ctx context.Context) error {
	for {
		d, err := r.recv.Receive(ctx)
		switch {
		case err == nil:
			r.lastTime = d.Time
			r.fc.Handle(d)
		case errors.Is(err, messages.ErrTruncatedMessage):
			r.short++
			r.log.Warn("Dropping datagram: %v", err)
		case errors.Is(err, io.EOF):
			r.log.Info("Replay complete")
			return nil
		case ctx.Err() != nil:
			r.log.Warn("Context canceled; stopping RX")
			return ctx.Err()
		default:
			return fmt.Errorf("receive: %w", err)
		}
	}
}

// Close flushes pending telemetry, reports counters and releases every
// resource. It is safe on a partially built runner.
func (r *Runner) Close() {
	if r.fc != nil {
		if err := r.fc.Close(); err != nil {
			r.log.Error("Final telemetry flush: %v", err)
		}
		st := r.fc.Stats()
		r.log.Info("Completed RX. datagrams=%d short=%d accepted=%d stale=%d gapped=%d truncated=%d unknown_port=%d non_monotonic=%d log_failures=%d telemetry_failures=%d",
			st.Datagrams, r.short, st.Accepted, st.Stale, st.Gapped, st.Truncated, st.UnknownPort,
			st.NonMonotonic, st.LogFailures, st.TelemetryFailures)
	}
	if r.bus != nil {
		r.log.Info("CAN mirror frames_sent=%d failures=%d", r.bus.Sent(), r.bus.Failures())
		_ = r.bus.Close()
	}
	if r.recv != nil {
		_ = r.recv.Close()
	}
	if r.sender != nil {
		_ = r.sender.Close()
	}
	if r.records != nil {
		if err := r.records.Close(); err != nil {
			r.log.Error("Closing flight log: %v", err)
		}
	}
}

func listenPort(address string) uint16 {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return 0
	}
	return uint16(addr.Port)
}
