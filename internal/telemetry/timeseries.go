package telemetry

import "sync"

// Axis selects one position channel of a sample.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists the channels in storage order.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "?"
	}
}

// Value returns the sample's position on the axis.
func (a Axis) Value(s Sample) float64 {
	switch a {
	case AxisY:
		return s.YMM
	case AxisZ:
		return s.ZMM
	default:
		return s.XMM
	}
}

// RingBuffer is a fixed-capacity circular buffer of float64. It starts
// zero-filled, so an ordered read always yields Cap values.
type RingBuffer struct {
	data []float64
}

// NewRingBuffer allocates a zeroed buffer. Capacities below 1 become 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{data: make([]float64, capacity)}
}

// Cap returns the buffer capacity.
func (b *RingBuffer) Cap() int { return len(b.data) }

// Set writes v at a physical slot; the caller owns the cursor.
func (b *RingBuffer) Set(pos int, v float64) {
	b.data[pos] = v
}

// Ordered returns a fresh copy rotated so that index 0 is the slot at
// cursor, i.e. the oldest retained value when cursor is the next write slot.
func (b *RingBuffer) Ordered(cursor int) []float64 {
	out := make([]float64, len(b.data))
	n := copy(out, b.data[cursor:])
	copy(out[n:], b.data[:cursor])
	return out
}

// seriesSlot holds the three axis buffers of one sensor. They share a write
// cursor so one sample occupies the same slot on every axis.
type seriesSlot struct {
	mu     sync.RWMutex
	axes   [3]*RingBuffer
	cursor int
	count  uint64
}

// TimeSeriesStore keeps the last W positions of every sensor, per axis.
type TimeSeriesStore struct {
	window int
	slots  [NumSensors]*seriesSlot
}

// NewTimeSeriesStore allocates all 5×3 buffers up front.
func NewTimeSeriesStore(window int) *TimeSeriesStore {
	if window < 1 {
		window = DefaultWindowSize
	}
	s := &TimeSeriesStore{window: window}
	for i := range s.slots {
		slot := &seriesSlot{}
		for a := range slot.axes {
			slot.axes[a] = NewRingBuffer(window)
		}
		s.slots[i] = slot
	}
	return s
}

// Window returns the per-axis capacity.
func (s *TimeSeriesStore) Window() int { return s.window }

// Append stores one sample for a sensor in O(1). Invalid indices are ignored.
func (s *TimeSeriesStore) Append(idx SensorIndex, sample Sample) {
	if !idx.Valid() {
		return
	}
	slot := s.slots[idx]
	slot.mu.Lock()
	defer slot.mu.Unlock()

	for _, a := range Axes {
		slot.axes[a].Set(slot.cursor, a.Value(sample))
	}
	slot.cursor = (slot.cursor + 1) % s.window
	slot.count++
}

// ReadOrdered returns snapshots of the x, y and z buffers of a sensor, oldest
// first and newest last. Each call allocates new slices.
func (s *TimeSeriesStore) ReadOrdered(idx SensorIndex) (xs, ys, zs []float64) {
	if !idx.Valid() {
		return make([]float64, s.window), make([]float64, s.window), make([]float64, s.window)
	}
	slot := s.slots[idx]
	slot.mu.RLock()
	defer slot.mu.RUnlock()

	return slot.axes[AxisX].Ordered(slot.cursor),
		slot.axes[AxisY].Ordered(slot.cursor),
		slot.axes[AxisZ].Ordered(slot.cursor)
}

// Count returns how many samples have ever been appended for a sensor.
func (s *TimeSeriesStore) Count(idx SensorIndex) uint64 {
	if !idx.Valid() {
		return 0
	}
	slot := s.slots[idx]
	slot.mu.RLock()
	defer slot.mu.RUnlock()
	return slot.count
}
