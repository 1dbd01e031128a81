package serialstream

import "go.bug.st/serial"

// RealPortFactory opens hardware serial ports through go.bug.st/serial.
type RealPortFactory struct{}

// NewRealPortFactory returns a factory for hardware ports.
func NewRealPortFactory() RealPortFactory { return RealPortFactory{} }

// Open opens the device with the given line settings. The returned
// serial.Port also satisfies TimeoutSerialPorter and InputBufferResetter.
func (RealPortFactory) Open(opts PortOptions) (SerialPorter, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	return serial.Open(opts.Path, mode)
}

// ListPorts returns the serial devices present on the host.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	if ports == nil {
		ports = []string{}
	}
	return ports, nil
}
