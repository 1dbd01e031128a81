package serialstream

import (
	"io"
	"time"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.Reader
	io.Closer
}

// TimeoutSerialPorter is implemented by ports whose reads can be bounded.
type TimeoutSerialPorter interface {
	SerialPorter
	// SetReadTimeout sets the read timeout for the serial port.
	SetReadTimeout(timeout time.Duration) error
}

// InputBufferResetter is implemented by ports that can discard bytes the
// device sent before the port was opened.
type InputBufferResetter interface {
	ResetInputBuffer() error
}

// SerialPortFactory opens serial ports. Implementations exist for real
// devices, fixture replay and tests.
type SerialPortFactory interface {
	// Open opens the port described by opts. Options are already normalised.
	Open(opts PortOptions) (SerialPorter, error)
}

// SerialPortOpener adapts a function to SerialPortFactory.
type SerialPortOpener func(opts PortOptions) (SerialPorter, error)

// Open calls f.
func (f SerialPortOpener) Open(opts PortOptions) (SerialPorter, error) {
	return f(opts)
}
