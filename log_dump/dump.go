package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"av-fc-core/flight_computer/messages"
)

// ParseTagFilter turns "ADIS,STAT" into a set. An empty string matches all.
func ParseTagFilter(s string) map[messages.Tag]bool {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	out := make(map[messages.Tag]bool)
	for _, name := range strings.Split(s, ",") {
		var tag messages.Tag
		copy(tag[:], strings.TrimSpace(name))
		out[tag] = true
	}
	return out
}

type Dumper struct {
	w      io.Writer
	filter map[messages.Tag]bool
	count  int
}

func NewDumper(w io.Writer, filter map[messages.Tag]bool) *Dumper {
	return &Dumper{w: w, filter: filter}
}

func (d *Dumper) Count() int { return d.count }

// Dump prints records until r is exhausted. A torn final record is reported
// as an error after everything before it has been printed.
func (d *Dumper) Dump(r io.Reader) error {
	d.count = 0
	rr := messages.NewRecordReader(r)
	for {
		rec, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		d.count++
		if d.filter != nil && !d.filter[rec.Tag] {
			continue
		}
		if _, err := fmt.Fprintf(d.w, "%14.6f %s %s\n", float64(rec.Timestamp)/1e9, rec.Tag, Describe(rec)); err != nil {
			return err
		}
	}
}

// Describe decodes a record's payload for display. Unknown tags and
// undecodable payloads are shown as hex.
func Describe(rec messages.Record) string {
	switch rec.Tag {
	case messages.TagADIS:
		if a, err := messages.DecodeADIS(rec.Payload); err == nil {
			return fmt.Sprintf("vcc=%.3f gyro=[%.2f %.2f %.2f] acc=[%.3f %.3f %.3f] mag=[%.3g %.3g %.3g] temp=%.2f",
				a.VCC, a.GyroX, a.GyroY, a.GyroZ, a.AccX, a.AccY, a.AccZ, a.MagnX, a.MagnY, a.MagnZ, a.Temp)
		}
	case messages.TagState:
		if s, err := messages.DecodeState(rec.Payload); err == nil {
			return fmt.Sprintf("t=%d acc=%.3f vel=%.3f alt=%.2f roll_rate=%.2f roll=%.2f",
				s.Time, s.AccUp, s.VelUp, s.Altitude, s.RollRate, s.RollAngle)
		}
	case messages.TagSEQE:
		if e, err := messages.DecodeSequenceError(rec.Payload); err == nil {
			return fmt.Sprintf("port=%d expected=%d received=%d", e.Port, e.Expected, e.Received)
		}
	case messages.TagSEQN:
		if seq, _, err := messages.SplitSequence(rec.Payload); err == nil {
			return fmt.Sprintf("seq=%d", seq)
		}
	case messages.TagControl:
		if c, err := messages.DecodeControl(rec.Payload); err == nil {
			return fmt.Sprintf("error=%.3f integral=%.3f correction=%.3f", c.Error, c.Integral, c.Correction)
		}
	}
	return fmt.Sprintf("% x", rec.Payload)
}
