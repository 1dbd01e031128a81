package serialstream

import (
	"testing"
	"time"

	"go.bug.st/serial"
)

func TestPortOptions_Normalize_Defaults(t *testing.T) {
	got, err := PortOptions{}.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	want := PortOptions{
		Path:        DefaultPath,
		BaudRate:    DefaultBaudRate,
		DataBits:    8,
		StopBits:    1,
		Parity:      "N",
		ReadTimeout: DefaultReadTimeout,
	}
	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestPortOptions_Normalize_ExplicitValues(t *testing.T) {
	opts := PortOptions{Path: " /dev/ttyUSB0 ", BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "even", ReadTimeout: time.Second}
	got, err := opts.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.Path != "/dev/ttyUSB0" {
		t.Errorf("Path = %q, want trimmed path", got.Path)
	}
	if got.BaudRate != 9600 || got.DataBits != 7 || got.StopBits != 2 || got.Parity != "E" {
		t.Errorf("Normalize() = %+v", got)
	}
	if got.ReadTimeout != time.Second {
		t.Errorf("ReadTimeout = %v, want 1s", got.ReadTimeout)
	}
	if got.String() != "/dev/ttyUSB0 9600 7E2" {
		t.Errorf("String() = %q", got.String())
	}
}

func TestPortOptions_Normalize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts PortOptions
	}{
		{"data bits too low", PortOptions{DataBits: 4}},
		{"data bits too high", PortOptions{DataBits: 9}},
		{"stop bits", PortOptions{StopBits: 3}},
		{"parity", PortOptions{Parity: "mark"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.opts.Normalize(); err == nil {
				t.Errorf("Normalize(%+v) expected error", tt.opts)
			}
		})
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	tests := []struct {
		opts       PortOptions
		wantParity serial.Parity
		wantStop   serial.StopBits
	}{
		{PortOptions{}, serial.NoParity, serial.OneStopBit},
		{PortOptions{Parity: "O", StopBits: 2}, serial.OddParity, serial.TwoStopBits},
		{PortOptions{Parity: "E"}, serial.EvenParity, serial.OneStopBit},
	}
	for _, tt := range tests {
		mode, err := tt.opts.SerialMode()
		if err != nil {
			t.Fatalf("SerialMode(%+v) error = %v", tt.opts, err)
		}
		if mode.BaudRate != DefaultBaudRate {
			t.Errorf("BaudRate = %d, want %d", mode.BaudRate, DefaultBaudRate)
		}
		if mode.Parity != tt.wantParity {
			t.Errorf("Parity = %v, want %v", mode.Parity, tt.wantParity)
		}
		if mode.StopBits != tt.wantStop {
			t.Errorf("StopBits = %v, want %v", mode.StopBits, tt.wantStop)
		}
	}

	if _, err := (PortOptions{Parity: "?"}).SerialMode(); err == nil {
		t.Error("SerialMode with bad parity expected error")
	}
}

func TestRealPortFactory_Open_InvalidPath(t *testing.T) {
	port, err := NewRealPortFactory().Open(PortOptions{Path: "/dev/nonexistent-serial-port-12345"})
	if err == nil {
		port.Close()
		t.Fatal("expected error when opening non-existent serial port")
	}
}
