// Package serialstream reads line-oriented sensor output from a serial device
// and hands each complete line to the telemetry pipeline.
package serialstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/handsense/internal/monitoring"
	"github.com/banshee-data/handsense/internal/telemetry"
)

var (
	// ErrConnection wraps failures to open the device.
	ErrConnection = errors.New("serial connection failed")
	// ErrRead wraps I/O failures after the device was opened.
	ErrRead = errors.New("serial read failed")
	// ErrAlreadyRun is returned when Run is called on a reader that has
	// already run. A stopped reader cannot be restarted.
	ErrAlreadyRun = errors.New("stream reader already run")
)

// maxPending caps the unterminated fragment kept between reads.
const maxPending = 64 * 1024

// State is the reader's lifecycle position.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReading
	StateError
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReading:
		return "reading"
	case StateError:
		return "error"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// LineHandler consumes complete, trimmed, non-empty lines.
type LineHandler interface {
	HandleLine(line string) int
}

// LineHandlerFunc adapts a function to LineHandler.
type LineHandlerFunc func(line string) int

// HandleLine calls f.
func (f LineHandlerFunc) HandleLine(line string) int { return f(line) }

// Config holds the reader's collaborators.
type Config struct {
	Factory  SerialPortFactory
	Options  PortOptions
	ReadSize int
	Lines    LineHandler
	// OnStatus receives every status message. It is called from the reader
	// goroutine and must not block.
	OnStatus func(telemetry.Status)
}

// StreamReader owns one serial connection for one session:
// Disconnected -> Connecting -> Reading -> (Error) -> Stopped.
type StreamReader struct {
	factory  SerialPortFactory
	opts     PortOptions
	readSize int
	lines    LineHandler
	onStatus func(telemetry.Status)

	state  atomic.Int32
	status atomic.Pointer[telemetry.Status]
	ran    atomic.Bool

	stopOnce sync.Once
	stopCh   chan struct{}

	portMu    sync.Mutex
	port      SerialPorter
	closeOnce sync.Once
	closeErr  error

	pending []byte
	// set after an overlong fragment is dropped, until its line break arrives
	discarding bool
}

// NewStreamReader validates the port options and returns a reader in the
// Disconnected state.
func NewStreamReader(cfg Config) (*StreamReader, error) {
	if cfg.Factory == nil {
		return nil, errors.New("serialstream: nil port factory")
	}
	if cfg.Lines == nil {
		return nil, errors.New("serialstream: nil line handler")
	}
	opts, err := cfg.Options.Normalize()
	if err != nil {
		return nil, err
	}
	if cfg.ReadSize <= 0 {
		cfg.ReadSize = DefaultReadSize
	}
	return &StreamReader{
		factory:  cfg.Factory,
		opts:     opts,
		readSize: cfg.ReadSize,
		lines:    cfg.Lines,
		onStatus: cfg.OnStatus,
		stopCh:   make(chan struct{}),
	}, nil
}

// State returns the current lifecycle state.
func (r *StreamReader) State() State {
	return State(r.state.Load())
}

// Status returns the most recent status message, if any.
func (r *StreamReader) Status() (telemetry.Status, bool) {
	if s := r.status.Load(); s != nil {
		return *s, true
	}
	return telemetry.Status{}, false
}

// Options returns the normalised port options.
func (r *StreamReader) Options() PortOptions {
	return r.opts
}

// Run opens the device and reads until ctx is done, Stop is called, or the
// device fails. A failure to open returns an error wrapping ErrConnection; a
// failure while reading returns an error wrapping ErrRead. Neither is
// retried. A cooperative stop returns nil.
func (r *StreamReader) Run(ctx context.Context) error {
	if !r.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	defer r.state.Store(int32(StateStopped))

	if r.stopping(ctx) {
		return nil
	}

	r.state.Store(int32(StateConnecting))
	port, err := r.factory.Open(r.opts)
	if err != nil {
		r.emit(telemetry.StatusConnectionError, fmt.Sprintf("ERROR: Could not open %s: %v", r.opts.Path, err))
		return fmt.Errorf("%w: %s: %w", ErrConnection, r.opts.Path, err)
	}

	r.portMu.Lock()
	r.port = port
	r.portMu.Unlock()
	defer r.closePort()

	// a Stop that raced with Open found no port to close
	if r.stopping(ctx) {
		return nil
	}

	if t, ok := port.(TimeoutSerialPorter); ok {
		if err := t.SetReadTimeout(r.opts.ReadTimeout); err != nil {
			monitoring.Logf("serialstream: set read timeout on %s: %v", r.opts.Path, err)
		}
	}
	if rb, ok := port.(InputBufferResetter); ok {
		if err := rb.ResetInputBuffer(); err != nil {
			monitoring.Logf("serialstream: reset input buffer on %s: %v", r.opts.Path, err)
		}
	}

	r.emit(telemetry.StatusConnected, "Connected to "+r.opts.Path)
	r.state.Store(int32(StateReading))

	if err := r.readLoop(ctx, port); err != nil {
		r.state.Store(int32(StateError))
		r.emit(telemetry.StatusReadError, fmt.Sprintf("Serial read error: %v", err))
		return fmt.Errorf("%w: %s: %w", ErrRead, r.opts.Path, err)
	}
	r.emit(telemetry.StatusStopped, "Disconnected from "+r.opts.Path)
	return nil
}

func (r *StreamReader) readLoop(ctx context.Context, port SerialPorter) error {
	buf := make([]byte, r.readSize)
	for {
		if r.stopping(ctx) {
			return nil
		}
		n, err := port.Read(buf)
		if n > 0 {
			r.consume(buf[:n])
		}
		if err != nil {
			// closing the port under a blocked read surfaces as an error
			if r.stopping(ctx) {
				return nil
			}
			return err
		}
	}
}

// consume appends raw bytes and dispatches every complete line. The trailing
// fragment waits for the next read. A fragment over maxPending is dropped
// along with the rest of its line.
func (r *StreamReader) consume(chunk []byte) {
	if r.discarding {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			return
		}
		chunk = chunk[i+1:]
		r.discarding = false
	}
	r.pending = append(r.pending, chunk...)

	start := 0
	for {
		i := bytes.IndexByte(r.pending[start:], '\n')
		if i < 0 {
			break
		}
		line := r.pending[start : start+i]
		start += i + 1

		text := strings.TrimSpace(strings.ToValidUTF8(string(line), ""))
		if text == "" {
			continue
		}
		r.lines.HandleLine(text)
	}

	n := copy(r.pending, r.pending[start:])
	r.pending = r.pending[:n]

	if len(r.pending) > maxPending {
		monitoring.Debugf("serialstream: discarding %d bytes without a line break", len(r.pending))
		r.pending = r.pending[:0]
		r.discarding = true
	}
}

// Stop asks Run to return and releases the device. It is safe to call any
// number of times, from any goroutine, before, during or after Run.
func (r *StreamReader) Stop() error {
	r.stopOnce.Do(func() { close(r.stopCh) })
	if !r.ran.Load() {
		r.state.Store(int32(StateStopped))
	}
	return r.closePort()
}

// closePort closes the device exactly once, whichever path gets here first.
func (r *StreamReader) closePort() error {
	r.portMu.Lock()
	port := r.port
	r.portMu.Unlock()
	if port == nil {
		return nil
	}
	r.closeOnce.Do(func() {
		r.closeErr = port.Close()
		if r.closeErr != nil {
			monitoring.Logf("serialstream: close %s: %v", r.opts.Path, r.closeErr)
		}
	})
	return r.closeErr
}

func (r *StreamReader) stopping(ctx context.Context) bool {
	select {
	case <-r.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (r *StreamReader) emit(kind telemetry.StatusKind, msg string) {
	s := telemetry.Status{Kind: kind, Message: msg, Time: time.Now()}
	r.status.Store(&s)
	monitoring.Logf("%s", msg)
	if r.onStatus != nil {
		r.onStatus(s)
	}
}
