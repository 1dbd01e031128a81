package telemetry

import "time"

// StatusKind classifies a status message.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusConnected
	StatusConnectionError
	StatusReadError
	StatusStopped
)

func (k StatusKind) String() string {
	switch k {
	case StatusConnected:
		return "connected"
	case StatusConnectionError:
		return "connection_error"
	case StatusReadError:
		return "read_error"
	case StatusStopped:
		return "stopped"
	default:
		return "info"
	}
}

// IsError reports whether the status ends a session.
func (k StatusKind) IsError() bool {
	return k == StatusConnectionError || k == StatusReadError
}

// Status is a human-readable connection update.
type Status struct {
	Kind    StatusKind `json:"-"`
	Message string     `json:"message"`
	Time    time.Time  `json:"time"`
}

func (s Status) String() string { return s.Message }
