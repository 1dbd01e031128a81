package dashboard

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/handsense/internal/serialstream"
	"github.com/banshee-data/handsense/internal/telemetry"
	"github.com/banshee-data/handsense/internal/testutil"
)

type fakeSource struct {
	status *telemetry.Status
	state  serialstream.State
	stats  telemetry.Stats
	sensor *telemetry.SensorStateStore
	series *telemetry.TimeSeriesStore
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		state:  serialstream.StateReading,
		sensor: telemetry.NewSensorStateStore(),
		series: telemetry.NewTimeSeriesStore(8),
	}
}

func (f *fakeSource) Status() (telemetry.Status, bool) {
	if f.status == nil {
		return telemetry.Status{}, false
	}
	return *f.status, true
}
func (f *fakeSource) State() serialstream.State { return f.state }
func (f *fakeSource) Stats() telemetry.Stats    { return f.stats }
func (f *fakeSource) Options() serialstream.PortOptions {
	return serialstream.PortOptions{Path: "/dev/ttyTEST", BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}
}
func (f *fakeSource) SensorState() *telemetry.SensorStateStore { return f.sensor }
func (f *fakeSource) Series() *telemetry.TimeSeriesStore       { return f.series }

func (f *fakeSource) add(idx telemetry.SensorIndex, s telemetry.Sample) {
	f.sensor.Update(idx, s)
	f.series.Append(idx, s)
}

func serve(t *testing.T, src Source, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	AttachAdminRoutes(mux, src)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.LoopbackRequest(http.MethodGet, path))
	return w
}

func TestForceColor(t *testing.T) {
	tests := []struct {
		force float64
		want  color.RGBA
	}{
		{-10, color.RGBA{R: 0, G: 180, B: 0, A: 0xff}},
		{0, color.RGBA{R: 0, G: 180, B: 0, A: 0xff}},
		{250, color.RGBA{R: 255, G: 200, B: 0, A: 0xff}},
		{500, color.RGBA{R: 230, G: 0, B: 0, A: 0xff}},
		{9000, color.RGBA{R: 230, G: 0, B: 0, A: 0xff}},
		{math.NaN(), color.RGBA{R: 0, G: 180, B: 0, A: 0xff}},
		{math.Inf(1), color.RGBA{R: 230, G: 0, B: 0, A: 0xff}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ForceColor(tt.force), "force %v", tt.force)
	}
	assert.Equal(t, "#00b400", ForceHex(0))
	assert.Equal(t, "#e60000", ForceHex(500))

	// green rises and red falls monotonically through the two halves
	prev := ForceColor(0)
	for f := 10.0; f <= 250; f += 10 {
		c := ForceColor(f)
		assert.GreaterOrEqual(t, c.R, prev.R)
		prev = c
	}
	for f := 260.0; f <= 500; f += 10 {
		c := ForceColor(f)
		assert.LessOrEqual(t, c.G, prev.G)
		prev = c
	}
}

func TestComputeAxisStats(t *testing.T) {
	assert.Equal(t, AxisStats{}, ComputeAxisStats(nil))
	assert.Equal(t, AxisStats{Samples: 1, Mean: 3, Min: 3, Max: 3}, ComputeAxisStats([]float64{3}))

	got := ComputeAxisStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	want := AxisStats{Samples: 8, Mean: 5, StdDev: math.Sqrt(32.0 / 7.0), Min: 2, Max: 9}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("ComputeAxisStats mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeSensorStats_IgnoresZeroFill(t *testing.T) {
	series := telemetry.NewTimeSeriesStore(8)
	series.Append(1, telemetry.NewSample(10, 20, 30))
	series.Append(1, telemetry.NewSample(20, 40, 60))

	got := ComputeSensorStats(series, 1)
	assert.Equal(t, "Sensor 2", got.Sensor)
	assert.Equal(t, "Index", got.Name)
	assert.Equal(t, uint64(2), got.Count)
	assert.Equal(t, 2, got.X.Samples)
	assert.InDelta(t, 15, got.X.Mean, 1e-9)
	assert.InDelta(t, 10, got.X.Min, 1e-9)
	assert.InDelta(t, 60, got.Z.Max, 1e-9)

	// after wrapping, every slot holds a real sample
	for i := 0; i < 10; i++ {
		series.Append(1, telemetry.NewSample(1, 1, 1))
	}
	got = ComputeSensorStats(series, 1)
	assert.Equal(t, 8, got.X.Samples)
	assert.InDelta(t, 1, got.X.Mean, 1e-9)
}

func TestAttachAdminRoutes_Sensors(t *testing.T) {
	src := newFakeSource()
	src.add(0, telemetry.NewSample(3, 4, 0))
	src.add(4, telemetry.NewSampleWithForce(1, 2, 3, 500))

	w := serve(t, src, "/debug/sensors")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, telemetry.NumSensors)

	assert.Equal(t, "Sensor 1", got[0]["sensor"])
	assert.Equal(t, "Thumb", got[0]["name"])
	assert.Equal(t, true, got[0]["seen"])
	assert.Equal(t, 5.0, got[0]["force_g"])
	assert.Equal(t, 3.0, got[0]["x_mm"])

	assert.Equal(t, false, got[1]["seen"])
	assert.Equal(t, "#00b400", got[1]["color"])

	assert.Equal(t, "Pinky", got[4]["name"])
	assert.Equal(t, "#e60000", got[4]["color"])
}

func TestAttachAdminRoutes_Status(t *testing.T) {
	src := newFakeSource()
	w := serve(t, src, "/debug/status")
	require.Equal(t, http.StatusOK, w.Code)

	var got StatusView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, StatusView{Port: "/dev/ttyTEST", State: "reading"}, got)

	src.state = serialstream.StateStopped
	src.status = &telemetry.Status{Kind: telemetry.StatusReadError, Message: "Serial read error: EOF", Time: time.Unix(100, 0).UTC()}
	w = serve(t, src, "/debug/status")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "stopped", got.State)
	assert.Equal(t, "read_error", got.Kind)
	assert.Equal(t, "Serial read error: EOF", got.Message)
	assert.True(t, got.Error)
}

func TestAttachAdminRoutes_Stats(t *testing.T) {
	src := newFakeSource()
	src.stats = telemetry.Stats{Lines: 10, ParsedLines: 8, ForwardedLines: 5, DroppedLines: 3, ForwardedUpdates: 9}
	src.add(2, telemetry.NewSample(1, 2, 3))

	w := serve(t, src, "/debug/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Pipeline telemetry.Stats `json:"pipeline"`
		Window   int             `json:"window"`
		Sensors  []SensorStats   `json:"sensors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, src.stats, got.Pipeline)
	assert.Equal(t, 8, got.Window)
	require.Len(t, got.Sensors, telemetry.NumSensors)
	assert.Equal(t, uint64(1), got.Sensors[2].Count)
	assert.Equal(t, 2.0, got.Sensors[2].Y.Mean)
	assert.Equal(t, 0, got.Sensors[0].X.Samples)
}

func TestAttachAdminRoutes_TimeSeries(t *testing.T) {
	src := newFakeSource()
	src.add(0, telemetry.NewSample(1, 2, 3))

	w := serve(t, src, "/debug/timeseries")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	assert.Contains(t, body, "Sensor 1 (Thumb)")
	assert.Contains(t, body, "Sensor 5 (Pinky)")
	assert.Contains(t, body, "X-axis")

	w = serve(t, src, "/debug/timeseries?sensor=3")
	require.Equal(t, http.StatusOK, w.Code)
	body = w.Body.String()
	assert.Contains(t, body, "Sensor 3 (Middle)")
	assert.False(t, strings.Contains(body, "Sensor 1 (Thumb)"))

	w = serve(t, src, "/debug/timeseries?sensor=6")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttachAdminRoutes_TimeSeriesPNG(t *testing.T) {
	src := newFakeSource()
	for i := 0; i < 8; i++ {
		src.add(1, telemetry.NewSample(float64(i), float64(-i), 0))
	}

	w := serve(t, src, "/debug/timeseries.png?sensor=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)

	w = serve(t, src, "/debug/timeseries.png?sensor=zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRenderTimeSeriesPNG_Size(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTimeSeriesPNG(&buf, telemetry.NewTimeSeriesStore(4), 0, 4*vg.Inch, 2*vg.Inch))
	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Greater(t, cfg.Width, cfg.Height)
}

func TestAttachAdminRoutes_DebugIndex(t *testing.T) {
	src := newFakeSource()
	w := serve(t, src, "/debug/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "/dev/ttyTEST 115200 8N1")
	assert.Contains(t, body, "sensors")
	assert.Contains(t, body, "timeseries")
}

func TestAttachAdminRoutes_RejectsRemote(t *testing.T) {
	mux := http.NewServeMux()
	AttachAdminRoutes(mux, newFakeSource())

	req := httptest.NewRequest(http.MethodGet, "/debug/sensors", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
