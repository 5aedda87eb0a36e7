package control

// PIDConfig holds the roll-rate PID parameters. Values are read once at
// startup.
type PIDConfig struct {
	Target        float64 `yaml:"target"` // roll rate setpoint [deg/s]
	Kp            float64 `yaml:"kp"`
	Ki            float64 `yaml:"ki"`
	Kd            float64 `yaml:"kd"`
	MaxIntegrator float64 `yaml:"max_integrator"`
	MinIntegrator float64 `yaml:"min_integrator"`
}

// DefaultPIDConfig returns the flight gains.
func DefaultPIDConfig() PIDConfig {
	return PIDConfig{
		Target:        0.0,
		Kp:            5.0,
		Ki:            0.01,
		Kd:            0.0,
		MaxIntegrator: 10000.0,
		MinIntegrator: -10000.0,
	}
}

// ClampFloat clamps value between min and max
func ClampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
