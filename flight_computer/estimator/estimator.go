// Package estimator integrates IMU samples into the vertical and roll state
// vector.
package estimator

import (
	"errors"
	"fmt"

	"av-fc-core/flight_computer/messages"
)

// ErrNonMonotonicTime is returned when a sample is not newer than the state
// it would update. The sample's acceleration and rate are still applied but
// nothing is integrated.
var ErrNonMonotonicTime = errors.New("non-monotonic sample time")

// Estimator owns the state vector and updates it from IMU samples.
type Estimator struct {
	state       messages.State
	initialized bool
}

// New returns an estimator sitting on the pad at the given altitude.
func New(launchAltitude float64) *Estimator {
	return &Estimator{state: messages.NewState(launchAltitude)}
}

// State returns a copy of the current state vector.
func (e *Estimator) State() messages.State {
	return e.state
}

// Update folds one IMU sample taken at timestamp (ns from boot) into the
// state. Velocity, altitude and roll angle are trapezoidal integrals of
// their rates. The first sample only seeds time and rates.
//
// The accelerometer x axis is taken to be the vehicle's vertical axis, so
// net upward acceleration is AccX less gravity, and roll rate is GyroX.
func (e *Estimator) Update(timestamp uint64, imu messages.ADIS) error {
	s := &e.state

	tLast := s.Time
	aLast := s.AccUp
	vLast := s.VelUp
	rLast := s.RollRate

	s.AccUp = imu.AccX - messages.G0
	s.RollRate = imu.GyroX

	if !e.initialized {
		e.initialized = true
		s.Time = timestamp
		return nil
	}
	if timestamp <= tLast {
		return fmt.Errorf("sample at %d ns, state at %d ns: %w", timestamp, tLast, ErrNonMonotonicTime)
	}
	s.Time = timestamp

	dt := float64(s.Time-tLast) / 1e9

	s.VelUp += dt * (s.AccUp + aLast) / 2
	s.Altitude += dt * (s.VelUp + vLast) / 2
	s.RollAngle += dt * (s.RollRate + rLast) / 2

	return nil
}
