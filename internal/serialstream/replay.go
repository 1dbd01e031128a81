package serialstream

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/banshee-data/handsense/internal/monitoring"
	"github.com/banshee-data/handsense/internal/timeutil"
)

// ErrPortClosed is returned by test and replay ports after Close.
var ErrPortClosed = errors.New("serial port closed")

// ReplayPort plays recorded sensor output back one line per interval, like a
// device that is streaming. Once the recording is exhausted it either starts
// over or goes quiet until closed.
type ReplayPort struct {
	mu       sync.Mutex
	lines    [][]byte
	next     int
	pending  []byte
	interval time.Duration
	loop     bool
	clock    timeutil.Clock
	closed   bool
}

// NewReplayPort splits data into newline-terminated lines for replay.
func NewReplayPort(data []byte, interval time.Duration, loop bool, clock timeutil.Clock) *ReplayPort {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	var lines [][]byte
	for _, l := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(l)) == 0 {
			continue
		}
		l = bytes.TrimRight(l, "\r")
		line := make([]byte, 0, len(l)+1)
		lines = append(lines, append(append(line, l...), '\n'))
	}
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &ReplayPort{lines: lines, interval: interval, loop: loop, clock: clock}
}

// Read returns the rest of the current line, or waits one interval and
// returns the next line. A quiet port returns 0, nil like a read timeout.
func (p *ReplayPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	if len(p.pending) > 0 {
		n := copy(buf, p.pending)
		p.pending = p.pending[n:]
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()

	p.clock.Sleep(p.interval)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPortClosed
	}
	if p.next >= len(p.lines) {
		if !p.loop || len(p.lines) == 0 {
			return 0, nil
		}
		p.next = 0
	}
	line := p.lines[p.next]
	p.next++
	n := copy(buf, line)
	p.pending = line[n:]
	return n, nil
}

// Close stops the replay.
func (p *ReplayPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// ReplayFactory opens a ReplayPort over a fixed recording, standing in for a
// device in dev mode.
type ReplayFactory struct {
	Data     []byte
	Interval time.Duration
	Loop     bool
	Clock    timeutil.Clock
}

// Open returns a fresh ReplayPort over the recording.
func (f ReplayFactory) Open(opts PortOptions) (SerialPorter, error) {
	monitoring.Logf("replaying %d bytes of recorded sensor output in place of %s", len(f.Data), opts.Path)
	return NewReplayPort(f.Data, f.Interval, f.Loop, f.Clock), nil
}
