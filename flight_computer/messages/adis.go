package messages

import (
	"encoding/binary"
	"fmt"
	"math"
)

// G0 is standard gravity [m/s²].
const G0 = 9.80665

// ADIS16405 count conversions.
const (
	VCC2Volts = 0.002418
	Gyro2DegS = 0.05
	Acc2G     = 0.00333
	Mag2Tesla = 5e-8
	Temp2C    = 0.14
	TempBiasK = 299.15
)

const (
	// ADISMinSize is the length of the eleven sensor fields.
	ADISMinSize = 22

	// ADISSize includes the trailing auxiliary ADC field, which is ignored.
	ADISSize = 24
)

// ADIS is one converted IMU reading.
type ADIS struct {
	VCC   float64 // [V]
	GyroX float64 // [deg/s]
	GyroY float64
	GyroZ float64
	AccX  float64 // [m/s²]
	AccY  float64
	AccZ  float64
	MagnX float64 // [T]
	MagnY float64
	MagnZ float64
	Temp  float64 // [K]
}

// DecodeADIS converts the big-endian int16 counts at the front of data into
// SI units. Anything past ADISMinSize bytes is ignored.
func DecodeADIS(data []byte) (ADIS, error) {
	if len(data) < ADISMinSize {
		return ADIS{}, fmt.Errorf("ADIS expects %d bytes, got %d: %w", ADISMinSize, len(data), ErrTruncatedMessage)
	}

	field := func(i int) float64 {
		return float64(int16(binary.BigEndian.Uint16(data[2*i:])))
	}

	return ADIS{
		VCC:   field(0) * VCC2Volts,
		GyroX: field(1) * Gyro2DegS,
		GyroY: field(2) * Gyro2DegS,
		GyroZ: field(3) * Gyro2DegS,
		AccX:  field(4) * Acc2G * G0,
		AccY:  field(5) * Acc2G * G0,
		AccZ:  field(6) * Acc2G * G0,
		MagnX: field(7) * Mag2Tesla,
		MagnY: field(8) * Mag2Tesla,
		MagnZ: field(9) * Mag2Tesla,
		Temp:  field(10)*Temp2C + TempBiasK,
	}, nil
}

// EncodeADIS is the inverse of DecodeADIS. Values are rounded to the nearest
// count and saturated to the int16 range; the aux field is written as zero.
func EncodeADIS(a ADIS) []byte {
	out := make([]byte, ADISSize)
	raw := [11]float64{
		a.VCC / VCC2Volts,
		a.GyroX / Gyro2DegS,
		a.GyroY / Gyro2DegS,
		a.GyroZ / Gyro2DegS,
		a.AccX / (Acc2G * G0),
		a.AccY / (Acc2G * G0),
		a.AccZ / (Acc2G * G0),
		a.MagnX / Mag2Tesla,
		a.MagnY / Mag2Tesla,
		a.MagnZ / Mag2Tesla,
		(a.Temp - TempBiasK) / Temp2C,
	}
	for i, v := range raw {
		binary.BigEndian.PutUint16(out[2*i:], uint16(countFromFloat(v)))
	}
	return out
}

func countFromFloat(v float64) int16 {
	r := math.Round(v)
	switch {
	case math.IsNaN(r):
		return 0
	case r > math.MaxInt16:
		return math.MaxInt16
	case r < math.MinInt16:
		return math.MinInt16
	}
	return int16(r)
}
