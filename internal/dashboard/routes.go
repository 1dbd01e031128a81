// Package dashboard exposes a running session on the localhost-only debug
// pages: connection status, the latest sample of every sensor, per-axis
// statistics and history charts.
package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gonum.org/v1/plot/vg"
	"tailscale.com/tsweb"

	"github.com/banshee-data/handsense/internal/serialstream"
	"github.com/banshee-data/handsense/internal/telemetry"
)

// Source is the read side of a session.
type Source interface {
	Status() (telemetry.Status, bool)
	State() serialstream.State
	Stats() telemetry.Stats
	Options() serialstream.PortOptions
	SensorState() *telemetry.SensorStateStore
	Series() *telemetry.TimeSeriesStore
}

// SensorView is the JSON form of one sensor's latest sample.
type SensorView struct {
	Sensor string `json:"sensor"`
	Name   string `json:"name"`
	Seen   bool   `json:"seen"`
	telemetry.Sample
	Color string `json:"color"`
}

// StatusView is the JSON form of the connection status.
type StatusView struct {
	Port    string    `json:"port"`
	State   string    `json:"state"`
	Kind    string    `json:"kind,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time,omitzero"`
	Error   bool      `json:"error"`
}

// Sensors returns the latest sample of every sensor in index order.
func Sensors(src Source) []SensorView {
	store := src.SensorState()
	snap := store.Snapshot()
	out := make([]SensorView, telemetry.NumSensors)
	for i := range out {
		idx := telemetry.SensorIndex(i)
		out[i] = SensorView{
			Sensor: idx.Label(),
			Name:   idx.Name(),
			Seen:   store.Seen(idx),
			Sample: snap[i],
			Color:  ForceHex(snap[i].ForceG),
		}
	}
	return out
}

// CurrentStatus summarises the connection.
func CurrentStatus(src Source) StatusView {
	v := StatusView{Port: src.Options().Path, State: src.State().String()}
	if st, ok := src.Status(); ok {
		v.Kind = st.Kind.String()
		v.Message = st.Message
		v.Time = st.Time
		v.Error = st.Kind.IsError()
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

// sensorParam reads the 1-based sensor query parameter. ok is false when
// the parameter is present but not 1..5.
func sensorParam(r *http.Request) (idx telemetry.SensorIndex, set, ok bool) {
	s := r.URL.Query().Get("sensor")
	if s == "" {
		return 0, false, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > telemetry.NumSensors {
		return 0, true, false
	}
	return telemetry.SensorIndex(n - 1), true, true
}

// AttachAdminRoutes mounts the session pages under /debug/ on mux.
func AttachAdminRoutes(mux *http.ServeMux, src Source) {
	debug := tsweb.Debugger(mux)

	debug.KVFunc("Serial port", func() any { return src.Options().String() })
	debug.KVFunc("Reader state", func() any { return src.State().String() })
	debug.KVFunc("Last status", func() any {
		if st, ok := src.Status(); ok {
			return st.Message
		}
		return "(none)"
	})
	debug.KVFunc("Lines read", func() any { return src.Stats().Lines })
	debug.KVFunc("Batches forwarded / dropped", func() any {
		st := src.Stats()
		return fmt.Sprintf("%d / %d", st.ForwardedLines, st.DroppedLines)
	})

	debug.HandleFunc("status", "connection status (JSON)", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, CurrentStatus(src))
	})

	debug.HandleFunc("sensors", "latest sample per sensor (JSON)", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Sensors(src))
	})

	debug.HandleFunc("stats", "pipeline counters and per-axis statistics (JSON)", func(w http.ResponseWriter, r *http.Request) {
		series := src.Series()
		sensors := make([]SensorStats, telemetry.NumSensors)
		for i := range sensors {
			sensors[i] = ComputeSensorStats(series, telemetry.SensorIndex(i))
		}
		writeJSON(w, struct {
			Pipeline telemetry.Stats `json:"pipeline"`
			Window   int             `json:"window"`
			Sensors  []SensorStats   `json:"sensors"`
		}{src.Stats(), series.Window(), sensors})
	})

	debug.HandleFunc("timeseries", "x/y/z history charts; ?sensor=1..5 for one sensor", func(w http.ResponseWriter, r *http.Request) {
		idx, set, ok := sensorParam(r)
		if !ok {
			http.Error(w, "sensor must be 1..5", http.StatusBadRequest)
			return
		}
		sensors := []telemetry.SensorIndex{idx}
		if !set {
			sensors = sensors[:0]
			for i := 0; i < telemetry.NumSensors; i++ {
				sensors = append(sensors, telemetry.SensorIndex(i))
			}
		}

		var buf bytes.Buffer
		if err := RenderTimeSeriesPage(&buf, src.Series(), sensors); err != nil {
			http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})

	debug.HandleSilentFunc("timeseries.png", func(w http.ResponseWriter, r *http.Request) {
		idx, _, ok := sensorParam(r)
		if !ok {
			http.Error(w, "sensor must be 1..5", http.StatusBadRequest)
			return
		}

		var buf bytes.Buffer
		if err := RenderTimeSeriesPNG(&buf, src.Series(), idx, 10*vg.Inch, 4*vg.Inch); err != nil {
			http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(buf.Bytes())
	})
}
