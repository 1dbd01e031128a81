// Package session assembles one acquisition session: a StreamReader feeding a
// Dispatcher that updates the sensor stores and notifies subscribers.
package session

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/banshee-data/handsense/internal/config"
	"github.com/banshee-data/handsense/internal/monitoring"
	"github.com/banshee-data/handsense/internal/serialstream"
	"github.com/banshee-data/handsense/internal/telemetry"
	"github.com/banshee-data/handsense/internal/timeutil"
)

// Option adjusts how a Session is built.
type Option func(*Session)

// WithClock replaces the clock used by the rate limiter.
func WithClock(c timeutil.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// Session owns the pipeline for one connection. It cannot be restarted; build
// a new Session to reconnect.
type Session struct {
	clock timeutil.Clock

	hub        *telemetry.Hub
	state      *telemetry.SensorStateStore
	series     *telemetry.TimeSeriesStore
	limiter    *telemetry.RateLimiter
	dispatcher *telemetry.Dispatcher
	reader     *serialstream.StreamReader

	ran     atomic.Bool
	status  atomic.Pointer[telemetry.Status]
	started atomic.Pointer[time.Time]
}

// New validates cfg and wires the pipeline around factory. A nil cfg uses
// the defaults.
func New(cfg *config.Config, factory serialstream.SerialPortFactory, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.EmptyConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	policy, err := telemetry.ParseIndexPolicy(cfg.GetIndexPolicy())
	if err != nil {
		return nil, err
	}

	s := &Session{clock: timeutil.RealClock{}}
	for _, o := range opts {
		o(s)
	}

	s.hub = telemetry.NewHub(cfg.GetQueueSize())
	s.state = telemetry.NewSensorStateStore()
	s.series = telemetry.NewTimeSeriesStore(cfg.GetWindowSize())
	s.limiter = telemetry.NewRateLimiter(cfg.GetEmitInterval(), s.clock)
	s.dispatcher = telemetry.NewDispatcher(telemetry.Parser{Policy: policy}, s.limiter, s.state, s.series, s.hub)

	s.reader, err = serialstream.NewStreamReader(serialstream.Config{
		Factory:  factory,
		Options:  PortOptions(cfg),
		ReadSize: cfg.GetReadSize(),
		Lines:    s.dispatcher,
		OnStatus: s.onStatus,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// PortOptions maps the serial settings of cfg onto PortOptions.
func PortOptions(cfg *config.Config) serialstream.PortOptions {
	return serialstream.PortOptions{
		Path:        cfg.GetPort(),
		BaudRate:    cfg.GetBaudRate(),
		DataBits:    cfg.GetDataBits(),
		StopBits:    cfg.GetStopBits(),
		Parity:      cfg.GetParity(),
		ReadTimeout: cfg.GetReadTimeout(),
	}
}

// NewFactory returns the port factory cfg asks for: a looping replay of the
// fixture file when one is set, the hardware device otherwise.
func NewFactory(cfg *config.Config) (serialstream.SerialPortFactory, error) {
	fixture := cfg.GetFixture()
	if fixture == "" {
		return serialstream.NewRealPortFactory(), nil
	}
	data, err := os.ReadFile(fixture)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures file: %w", err)
	}
	return serialstream.ReplayFactory{
		Data:     data,
		Interval: cfg.GetFixtureInterval(),
		Loop:     true,
	}, nil
}

func (s *Session) onStatus(st telemetry.Status) {
	s.status.Store(&st)
	s.hub.PublishStatus(st)
}

// Run reads until ctx is done, Stop is called or the device fails. Every
// subscription is closed when Run returns. Later calls return
// serialstream.ErrAlreadyRun and leave the session untouched.
func (s *Session) Run(ctx context.Context) error {
	if !s.ran.CompareAndSwap(false, true) {
		return serialstream.ErrAlreadyRun
	}
	now := s.clock.Now()
	s.started.Store(&now)
	defer s.hub.Close()

	err := s.reader.Run(ctx)
	st := s.Stats()
	monitoring.Logf("session on %s ended: %d lines, %d forwarded, %d dropped by rate limit",
		s.reader.Options().Path, st.Lines, st.ForwardedLines, st.DroppedLines)
	return err
}

// Stop ends the session. It is safe to call more than once.
func (s *Session) Stop() error {
	return s.reader.Stop()
}

// Status returns the latest status message, if any has been produced.
func (s *Session) Status() (telemetry.Status, bool) {
	if st := s.status.Load(); st != nil {
		return *st, true
	}
	return telemetry.Status{}, false
}

// State returns the reader's lifecycle state.
func (s *Session) State() serialstream.State { return s.reader.State() }

// Stats returns the dispatcher counters.
func (s *Session) Stats() telemetry.Stats { return s.dispatcher.Stats() }

// Started returns when Run was called.
func (s *Session) Started() (time.Time, bool) {
	if t := s.started.Load(); t != nil {
		return *t, true
	}
	return time.Time{}, false
}

// Options returns the normalised port options in use.
func (s *Session) Options() serialstream.PortOptions { return s.reader.Options() }

// Hub returns the notification hub for subscribing to updates.
func (s *Session) Hub() *telemetry.Hub { return s.hub }

// SensorState returns the latest-sample store.
func (s *Session) SensorState() *telemetry.SensorStateStore { return s.state }

// Series returns the per-axis history.
func (s *Session) Series() *telemetry.TimeSeriesStore { return s.series }

// Limiter returns the batch rate limiter.
func (s *Session) Limiter() *telemetry.RateLimiter { return s.limiter }
