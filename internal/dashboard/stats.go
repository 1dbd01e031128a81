package dashboard

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/handsense/internal/telemetry"
)

// AxisStats summarises the retained history of one axis.
type AxisStats struct {
	Samples int     `json:"samples"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stddev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// SensorStats holds per-axis statistics for one sensor.
type SensorStats struct {
	Sensor string    `json:"sensor"`
	Name   string    `json:"name"`
	Count  uint64    `json:"count"`
	X      AxisStats `json:"x"`
	Y      AxisStats `json:"y"`
	Z      AxisStats `json:"z"`
}

// ComputeAxisStats returns mean, sample standard deviation and range of
// values. An empty slice yields zero stats.
func ComputeAxisStats(values []float64) AxisStats {
	if len(values) == 0 {
		return AxisStats{}
	}
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return AxisStats{
		Samples: len(values),
		Mean:    mean,
		StdDev:  std,
		Min:     floats.Min(values),
		Max:     floats.Max(values),
	}
}

// retained trims the zero fill from an ordered read-out, keeping only slots
// that hold real samples.
func retained(ordered []float64, count uint64) []float64 {
	if count >= uint64(len(ordered)) {
		return ordered
	}
	return ordered[len(ordered)-int(count):]
}

// ComputeSensorStats summarises the history of one sensor.
func ComputeSensorStats(series *telemetry.TimeSeriesStore, idx telemetry.SensorIndex) SensorStats {
	xs, ys, zs := series.ReadOrdered(idx)
	n := series.Count(idx)
	return SensorStats{
		Sensor: idx.Label(),
		Name:   idx.Name(),
		Count:  n,
		X:      ComputeAxisStats(retained(xs, n)),
		Y:      ComputeAxisStats(retained(ys, n)),
		Z:      ComputeAxisStats(retained(zs, n)),
	}
}
