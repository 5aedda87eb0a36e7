package control

import "av-fc-core/flight_computer/messages"

// PIDController implements the roll-rate stabilisation loop.
type PIDController struct {
	cfg PIDConfig

	// State
	integral  float64
	lastError float64
}

// NewPIDController creates a new PID controller with given configuration
func NewPIDController(cfg PIDConfig) *PIDController {
	return &PIDController{cfg: cfg}
}

// Step runs one PID iteration against the measured value and returns the
// correction.
//
// The integral stage multiplies Ki by the integral accumulated over previous
// steps; this step's error is added afterwards. The accumulator is not
// scaled by dt.
func (pid *PIDController) Step(measured float64) float64 {
	// Compute error
	error := pid.cfg.Target - measured

	p := pid.cfg.Kp * error
	i := pid.cfg.Ki * pid.integral
	d := pid.cfg.Kd * (error - pid.lastError)

	correction := p + i + d

	// Update state for next iteration
	pid.lastError = error
	pid.integral = ClampFloat(pid.integral+error, pid.cfg.MinIntegrator, pid.cfg.MaxIntegrator)

	return correction
}

// StepState runs Step on the state vector's roll rate.
func (pid *PIDController) StepState(s messages.State) float64 {
	return pid.Step(s.RollRate)
}

// GetDiagnostics returns current PID state for logging/debugging
func (pid *PIDController) GetDiagnostics() PIDDiagnostics {
	return PIDDiagnostics{
		Error:    pid.lastError,
		Integral: pid.integral,
		P:        pid.cfg.Kp * pid.lastError,
		I:        pid.cfg.Ki * pid.integral,
	}
}

// PIDDiagnostics contains PID internal state for monitoring
type PIDDiagnostics struct {
	Error    float64
	Integral float64
	P        float64
	I        float64
}

// Record returns the loggable control record for the last step.
func (pid *PIDController) Record(correction float64) messages.Control {
	return messages.Control{
		Error:      pid.lastError,
		Integral:   pid.integral,
		Correction: correction,
	}
}

// GetIntegral returns the current integral term value
func (pid *PIDController) GetIntegral() float64 {
	return pid.integral
}

// GetError returns the most recent error
func (pid *PIDController) GetError() float64 {
	return pid.lastError
}
