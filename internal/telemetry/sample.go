// Package telemetry turns text lines from the finger sensor firmware into
// per-sensor samples and keeps the recent history needed for display.
package telemetry

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// NumSensors is the number of physical sensors on the glove.
const NumSensors = 5

// DefaultWindowSize is the default ring buffer capacity per axis.
const DefaultWindowSize = 800

var sensorNames = [NumSensors]string{"Thumb", "Index", "Middle", "Ring", "Pinky"}

// Sample is one reading from one sensor. Positions are millimetres, force is
// grams.
type Sample struct {
	XMM    float64 `json:"x_mm"`
	YMM    float64 `json:"y_mm"`
	ZMM    float64 `json:"z_mm"`
	ForceG float64 `json:"force_g"`
}

// NewSample builds a sample whose force is the Euclidean norm of the position.
func NewSample(x, y, z float64) Sample {
	return Sample{XMM: x, YMM: y, ZMM: z, ForceG: DeriveForce(x, y, z)}
}

// NewSampleWithForce builds a sample with a force value taken from the wire.
func NewSampleWithForce(x, y, z, force float64) Sample {
	return Sample{XMM: x, YMM: y, ZMM: z, ForceG: force}
}

// DeriveForce returns sqrt(x²+y²+z²), used when the firmware omits the load
// column.
func DeriveForce(x, y, z float64) float64 {
	return floats.Norm([]float64{x, y, z}, 2)
}

// SensorIndex addresses one of the five sensors, 0-based.
type SensorIndex int

// Valid reports whether the index addresses a sensor.
func (i SensorIndex) Valid() bool {
	return i >= 0 && i < NumSensors
}

// Name returns the finger the sensor is mounted on.
func (i SensorIndex) Name() string {
	if !i.Valid() {
		return fmt.Sprintf("sensor(%d)", int(i))
	}
	return sensorNames[i]
}

// Label returns the 1-based label used on the wire, e.g. "Sensor 3".
func (i SensorIndex) Label() string {
	return fmt.Sprintf("Sensor %d", int(i)+1)
}

// ClampWireIndex coerces a 1-based wire index into [1,5] and shifts it to a
// 0-based SensorIndex.
func ClampWireIndex(n int) SensorIndex {
	if n < 1 {
		n = 1
	}
	if n > NumSensors {
		n = NumSensors
	}
	return SensorIndex(n - 1)
}

// ParsedUpdate is one sample addressed to one sensor.
type ParsedUpdate struct {
	Index  SensorIndex `json:"sensor"`
	Sample Sample      `json:"sample"`
}
