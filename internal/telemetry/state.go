package telemetry

import "sync/atomic"

// SensorStateStore caches the latest sample of each sensor. Writes replace the
// whole Sample atomically, so readers never see a half-written value.
type SensorStateStore struct {
	cells [NumSensors]atomic.Pointer[Sample]
}

// NewSensorStateStore returns a store whose cells all read as zero.
func NewSensorStateStore() *SensorStateStore {
	return &SensorStateStore{}
}

// Update replaces the stored sample for a sensor.
func (s *SensorStateStore) Update(idx SensorIndex, sample Sample) {
	if !idx.Valid() {
		return
	}
	s.cells[idx].Store(&sample)
}

// Get returns the latest sample for a sensor, or the zero Sample if none has
// been stored.
func (s *SensorStateStore) Get(idx SensorIndex) Sample {
	if !idx.Valid() {
		return Sample{}
	}
	if p := s.cells[idx].Load(); p != nil {
		return *p
	}
	return Sample{}
}

// Seen reports whether a sensor has received at least one sample.
func (s *SensorStateStore) Seen(idx SensorIndex) bool {
	return idx.Valid() && s.cells[idx].Load() != nil
}

// Snapshot returns the latest sample of every sensor.
func (s *SensorStateStore) Snapshot() [NumSensors]Sample {
	var out [NumSensors]Sample
	for i := range out {
		out[i] = s.Get(SensorIndex(i))
	}
	return out
}
