package main

import (
	"encoding/json"
	"fmt"
	"os"

	"av-fc-core/flight_computer/messages"
)

// Scenario describes a synthetic flight as piecewise-constant IMU readings
// plus injected link faults.
type Scenario struct {
	Meta     ScenarioMeta      `json:"meta"`
	Timing   ScenarioTiming    `json:"timing"`
	Defaults IMUCmd            `json:"defaults"`
	Segments []ScenarioSegment `json:"segments"`
	Faults   []Fault           `json:"faults,omitempty"`
}

type ScenarioMeta struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	Description string `json:"description"`
}

type ScenarioTiming struct {
	RateHz       float64 `json:"rate_hz"`
	DurationS    float64 `json:"duration_s"`
	RealTimeMode bool    `json:"real_time_mode"`
}

// ScenarioSegment overrides the defaults for t0 <= t < t1. A negative t1
// runs to the end of the scenario.
type ScenarioSegment struct {
	T0          float64 `json:"t0"`
	T1          float64 `json:"t1"`
	AccUpMPS2   float64 `json:"acc_up_mps2"`
	RollRateDPS float64 `json:"roll_rate_dps"`
	Comment     string  `json:"comment,omitempty"`
}

// IMUCmd is the physical reading the sensor should report.
type IMUCmd struct {
	AccUpMPS2   float64 `json:"acc_up_mps2"`
	RollRateDPS float64 `json:"roll_rate_dps"`
	VCC         float64 `json:"vcc_v"`
	TempC       float64 `json:"temp_c"`
}

const celsiusToKelvin = 273.15

type FaultKind string

const (
	FaultDrop     FaultKind = "drop"     // skip the datagram, the receiver sees a gap
	FaultRepeat   FaultKind = "repeat"   // send it twice, the second is stale
	FaultTruncate FaultKind = "truncate" // cut the IMU payload short
)

type Fault struct {
	Seq  uint32    `json:"seq"`
	Kind FaultKind `json:"kind"`
}

func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read file: %w", err)
	}

	var scen Scenario
	if err := json.Unmarshal(data, &scen); err != nil {
		return Scenario{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := scen.Validate(); err != nil {
		return Scenario{}, err
	}
	return scen, nil
}

func (s *Scenario) Validate() error {
	if s.Timing.DurationS <= 0 {
		return fmt.Errorf("invalid duration_s: %f", s.Timing.DurationS)
	}
	if s.Timing.RateHz <= 0 {
		return fmt.Errorf("invalid rate_hz: %f", s.Timing.RateHz)
	}
	for _, f := range s.Faults {
		switch f.Kind {
		case FaultDrop, FaultRepeat, FaultTruncate:
		default:
			return fmt.Errorf("fault at seq %d: unknown kind %q", f.Seq, f.Kind)
		}
	}
	return nil
}

// EvalIMU returns the command active at time t.
func (s *Scenario) EvalIMU(t float64) IMUCmd {
	cmd := s.Defaults
	for _, seg := range s.Segments {
		t1 := seg.T1
		if t1 < 0 {
			t1 = s.Timing.DurationS
		}
		if t >= seg.T0 && t < t1 {
			cmd.AccUpMPS2 = seg.AccUpMPS2
			cmd.RollRateDPS = seg.RollRateDPS
		}
	}
	return cmd
}

// FaultAt returns the fault injected at seq, if any.
func (s *Scenario) FaultAt(seq uint32) (FaultKind, bool) {
	for _, f := range s.Faults {
		if f.Seq == seq {
			return f.Kind, true
		}
	}
	return "", false
}

// Reading converts a command to the sensor's engineering units.
func (c IMUCmd) Reading() messages.ADIS {
	return messages.ADIS{
		VCC:   c.VCC,
		GyroX: c.RollRateDPS,
		AccX:  c.AccUpMPS2 + messages.G0,
		Temp:  c.TempC + celsiusToKelvin,
	}
}
