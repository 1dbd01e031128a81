package dashboard

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/handsense/internal/telemetry"
)

// displacementRange is the fixed y range of the history charts, in mm.
const displacementRange = 100.0

func chartTitle(idx telemetry.SensorIndex) string {
	return fmt.Sprintf("%s (%s) - X, Y, Z Displacement", idx.Label(), idx.Name())
}

func axisName(a telemetry.Axis) string {
	return strings.ToUpper(a.String()) + "-axis"
}

// timeSeriesChart builds an echarts line chart of one sensor's history,
// oldest sample on the left.
func timeSeriesChart(series *telemetry.TimeSeriesStore, idx telemetry.SensorIndex) *charts.Line {
	xs, ys, zs := series.ReadOrdered(idx)
	values := [3][]float64{xs, ys, zs}

	labels := make([]string, series.Window())
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Sensor time series", Width: "100%", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{Title: chartTitle(idx), Subtitle: fmt.Sprintf("%d samples seen", series.Count(idx))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (samples)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Displacement (mm)", Min: -displacementRange, Max: displacementRange}),
	)
	line.SetXAxis(labels)
	for _, a := range telemetry.Axes {
		data := make([]opts.LineData, len(values[a]))
		for i, v := range values[a] {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(axisName(a), data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: Hex(axisColors[a]), Width: 2}),
		)
	}
	return line
}

// RenderTimeSeriesPage writes an HTML page with one history chart per
// requested sensor.
func RenderTimeSeriesPage(w io.Writer, series *telemetry.TimeSeriesStore, sensors []telemetry.SensorIndex) error {
	page := components.NewPage()
	for _, idx := range sensors {
		page.AddCharts(timeSeriesChart(series, idx))
	}
	return page.Render(w)
}

// RenderTimeSeriesPNG draws one sensor's x, y and z history with gonum/plot
// and writes it as a PNG image.
func RenderTimeSeriesPNG(w io.Writer, series *telemetry.TimeSeriesStore, idx telemetry.SensorIndex, width, height vg.Length) error {
	xs, ys, zs := series.ReadOrdered(idx)
	values := [3][]float64{xs, ys, zs}

	p := plot.New()
	p.Title.Text = chartTitle(idx)
	p.X.Label.Text = "Time (samples)"
	p.Y.Label.Text = "Displacement (mm)"
	p.Y.Min = -displacementRange
	p.Y.Max = displacementRange
	p.Add(plotter.NewGrid())

	for _, a := range telemetry.Axes {
		pts := make(plotter.XYs, len(values[a]))
		for i, v := range values[a] {
			pts[i] = plotter.XY{X: float64(i), Y: v}
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		l.Color = axisColors[a]
		l.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(axisName(a), l)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
