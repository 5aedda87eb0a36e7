// Package executive owns every piece of mutable flight state and pushes each
// received datagram through classify, decode, integrate, control and frame.
//
// A FlightComputer is not safe for concurrent use. Sequence classification
// and integration both depend on strict ordering, so all datagrams must be
// handed to one FlightComputer from a single goroutine.
package executive

import (
	"errors"
	"fmt"

	"av-fc-core/flight_computer/estimator"
	"av-fc-core/flight_computer/framing"
	"av-fc-core/flight_computer/messages"
	control "av-fc-core/flight_computer/roll_control"
	"av-fc-core/flight_computer/sequence"
	"av-fc-core/utils"
)

// DefaultADISPort is the source port ADIS datagrams are sent from.
const DefaultADISPort uint16 = 35020

// Datagram is one received network message with its sequence number split off.
type Datagram struct {
	Sequence uint32
	Port     uint16 // source port; selects the message type
	Time     uint64 // arrival, nanoseconds from boot
	Payload  []byte
}

type Config struct {
	ADISPort       uint16
	LaunchAltitude float64
	PID            control.PIDConfig
	PacketLimit    int
}

func DefaultConfig() Config {
	return Config{
		ADISPort:       DefaultADISPort,
		LaunchAltitude: messages.LaunchSiteAltitude,
		PID:            control.DefaultPIDConfig(),
		PacketLimit:    framing.DefaultPacketLimit,
	}
}

// Observer is told about every new state vector and the correction computed
// for it.
type Observer interface {
	Observe(s messages.State, correction float64)
}

// Stats counts what happened to received datagrams and to output I/O.
type Stats struct {
	Datagrams         uint64
	Accepted          uint64
	Stale             uint64
	Gapped            uint64
	Truncated         uint64
	UnknownPort       uint64
	NonMonotonic      uint64
	LogFailures       uint64
	TelemetryFailures uint64
}

// FlightComputer is the single owner of the state vector, controller,
// sequence counters and telemetry buffer.
type FlightComputer struct {
	cfg       Config
	log       *utils.Logger
	records   *framing.RecordLog
	telemetry *framing.Telemetry
	seq       *sequence.Tracker
	est       *estimator.Estimator
	pid       *control.PIDController
	observers []Observer
	stats     Stats
}

// New wires a flight computer to its log and telemetry collaborators and
// writes the initial SEQN record. clock returns nanoseconds from boot and
// timestamps telemetry flushes.
func New(cfg Config, log *utils.Logger, records *framing.RecordLog, sender framing.Sender, clock func() uint64) (*FlightComputer, error) {
	telemetry, err := framing.NewTelemetry(sender, records, cfg.PacketLimit, clock)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	fc := &FlightComputer{
		cfg:       cfg,
		log:       log,
		records:   records,
		telemetry: telemetry,
		seq:       sequence.NewTracker(),
		est:       estimator.New(cfg.LaunchAltitude),
		pid:       control.NewPIDController(cfg.PID),
	}
	fc.writeLog(messages.TagSEQN, 0, messages.EncodeSequence(telemetry.Sequence()))
	return fc, nil
}

// AddObserver registers o to receive every new state.
func (fc *FlightComputer) AddObserver(o Observer) {
	fc.observers = append(fc.observers, o)
}

// Handle processes one datagram. It never fails: bad input and output I/O
// errors are counted, logged and dropped.
func (fc *FlightComputer) Handle(d Datagram) {
	fc.stats.Datagrams++

	switch d.Port {
	case fc.cfg.ADISPort:
		fc.handleADIS(d)
	default:
		fc.stats.UnknownPort++
		fc.log.Debug("Ignoring %d byte datagram seq=%d from unknown port %d", len(d.Payload), d.Sequence, d.Port)
	}
}

func (fc *FlightComputer) handleADIS(d Datagram) {
	class, seqErr := fc.seq.Check(d.Port, d.Sequence)
	if seqErr != nil {
		switch class {
		case sequence.Stale:
			fc.stats.Stale++
		case sequence.Gapped:
			fc.stats.Gapped++
		}
		fc.log.Warn("Sequence %s on port %d: expected=%d received=%d", class, seqErr.Port, seqErr.Expected, seqErr.Received)
		fc.writeLog(messages.TagSEQE, d.Time, seqErr.Encode())
	}
	if !class.Accept() {
		return
	}

	imu, err := messages.DecodeADIS(d.Payload)
	if err != nil {
		fc.stats.Truncated++
		fc.log.Warn("Dropping ADIS seq=%d: %v", d.Sequence, err)
		return
	}

	raw := d.Payload[:min(len(d.Payload), messages.ADISSize)]
	fc.writeLog(messages.TagADIS, d.Time, raw)
	fc.enqueue(messages.TagADIS, d.Time, raw)

	if err := fc.est.Update(d.Time, imu); err != nil {
		if errors.Is(err, estimator.ErrNonMonotonicTime) {
			fc.stats.NonMonotonic++
		}
		fc.log.Warn("ADIS seq=%d not integrated: %v", d.Sequence, err)
	}
	state := fc.est.State()

	correction := fc.pid.StepState(state)

	stateMsg := state.Encode()
	fc.writeLog(messages.TagState, state.Time, stateMsg)
	fc.enqueue(messages.TagState, state.Time, stateMsg)
	fc.writeLog(messages.TagControl, state.Time, fc.pid.Record(correction).Encode())

	fc.stats.Accepted++
	if fc.log.Enabled(utils.TRACE) {
		fc.log.Trace("ADIS seq=%d t=%d acc=%.3f vel=%.3f alt=%.2f roll_rate=%.2f correction=%.3f",
			d.Sequence, state.Time, state.AccUp, state.VelUp, state.Altitude, state.RollRate, correction)
	}

	for _, o := range fc.observers {
		o.Observe(state, correction)
	}
}

func (fc *FlightComputer) writeLog(tag messages.Tag, ts uint64, payload []byte) {
	if err := fc.records.Write(tag, ts, payload); err != nil {
		fc.log.Error("Flight log write failed: %v", err)
	}
}

func (fc *FlightComputer) enqueue(tag messages.Tag, ts uint64, payload []byte) {
	if err := fc.telemetry.Enqueue(tag, ts, payload); err != nil {
		fc.log.Error("Telemetry: %v", err)
	}
}

// State returns the current state vector.
func (fc *FlightComputer) State() messages.State {
	return fc.est.State()
}

// Stats returns the running counters.
func (fc *FlightComputer) Stats() Stats {
	s := fc.stats
	s.LogFailures = fc.records.Failures()
	s.TelemetryFailures = fc.telemetry.SendFailures()
	return s
}

// ExpectedSequence returns the next sequence number expected from port.
func (fc *FlightComputer) ExpectedSequence(port uint16) uint32 {
	return fc.seq.Expected(port)
}

// Diagnostics returns the controller's internal terms.
func (fc *FlightComputer) Diagnostics() control.PIDDiagnostics {
	return fc.pid.GetDiagnostics()
}

// Close sends whatever telemetry is still queued.
func (fc *FlightComputer) Close() error {
	return fc.telemetry.Flush()
}
