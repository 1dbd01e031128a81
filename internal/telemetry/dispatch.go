package telemetry

import (
	"strings"
	"sync/atomic"

	"github.com/banshee-data/handsense/internal/monitoring"
)

// Stats counts what happened to the lines seen by a Dispatcher.
type Stats struct {
	Lines            uint64 `json:"lines"`
	ParsedLines      uint64 `json:"parsed_lines"`
	ForwardedLines   uint64 `json:"forwarded_lines"`
	DroppedLines     uint64 `json:"dropped_lines"`
	ForwardedUpdates uint64 `json:"forwarded_updates"`
	QueueOverflow    uint64 `json:"queue_overflow"`
}

// Dispatcher runs one line through parse, rate limit and fan-out. It is
// called from the reader goroutine only.
type Dispatcher struct {
	parser  Parser
	limiter *RateLimiter
	state   *SensorStateStore
	series  *TimeSeriesStore
	hub     *Hub

	lines            atomic.Uint64
	parsedLines      atomic.Uint64
	forwardedLines   atomic.Uint64
	droppedLines     atomic.Uint64
	forwardedUpdates atomic.Uint64
}

// NewDispatcher wires the pipeline stages together. Any of state, series or
// hub may be nil.
func NewDispatcher(parser Parser, limiter *RateLimiter, state *SensorStateStore, series *TimeSeriesStore, hub *Hub) *Dispatcher {
	return &Dispatcher{
		parser:  parser,
		limiter: limiter,
		state:   state,
		series:  series,
		hub:     hub,
	}
}

// HandleLine parses one complete line and, if the rate limiter allows it,
// forwards every update from that line in order. It reports how many updates
// were forwarded.
func (d *Dispatcher) HandleLine(line string) int {
	text := strings.TrimSpace(line)
	if text == "" {
		return 0
	}
	d.lines.Add(1)

	res := d.parser.Parse(text)
	if len(res.Updates) == 0 {
		monitoring.Debugf("no updates from %s line %q", res.Format, text)
		return 0
	}
	d.parsedLines.Add(1)

	if d.limiter != nil && !d.limiter.Allow() {
		d.droppedLines.Add(1)
		return 0
	}

	for _, u := range res.Updates {
		if d.state != nil {
			d.state.Update(u.Index, u.Sample)
		}
		if d.series != nil {
			d.series.Append(u.Index, u.Sample)
		}
		if d.hub != nil {
			d.hub.Publish(u)
		}
	}
	d.forwardedLines.Add(1)
	d.forwardedUpdates.Add(uint64(len(res.Updates)))
	return len(res.Updates)
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	s := Stats{
		Lines:            d.lines.Load(),
		ParsedLines:      d.parsedLines.Load(),
		ForwardedLines:   d.forwardedLines.Load(),
		DroppedLines:     d.droppedLines.Load(),
		ForwardedUpdates: d.forwardedUpdates.Load(),
	}
	if d.hub != nil {
		s.QueueOverflow = d.hub.Overflow()
	}
	return s
}
