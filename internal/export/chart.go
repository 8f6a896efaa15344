package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to chart")

// ChartOptions sizes the rendered PNG.
type ChartOptions struct {
	Width  int
	Height int
}

// DefaultChartOptions is 1200x500.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 1200, Height: 500}
}

var (
	lcpColor     = drawing.ColorFromHex("2563eb")
	clsColor     = drawing.ColorFromHex("059669")
	releaseColor = drawing.ColorFromHex("d97706")
)

// WriteChart renders one metric over time as a PNG, with release labels
// staggered above their points.
func WriteChart(w io.Writer, records []vitals.Record, m vitals.Metric, opt ChartOptions) error {
	if len(records) == 0 {
		return ErrNoData
	}
	if m != vitals.MetricLCP && m != vitals.MetricCLS {
		return fmt.Errorf("chart needs a single metric (lcp or cls), got %q", m)
	}
	if opt.Width <= 0 || opt.Height <= 0 {
		opt = DefaultChartOptions()
	}

	times := make([]time.Time, len(records))
	ys := make([]float64, len(records))
	maxY := 0.0
	for i, r := range records {
		times[i] = r.Date
		ys[i] = metricValue(r, m)
		maxY = math.Max(maxY, ys[i])
	}
	if maxY == 0 {
		maxY = 1
	}
	// go-chart needs two distinct x values.
	if len(times) == 1 {
		times = append(times, times[0].Add(time.Hour))
		ys = append(ys, ys[0])
	}

	name, unit, color := "LCP", "ms", lcpColor
	if m == vitals.MetricCLS {
		name, unit, color = "CLS", "", clsColor
	}

	releases := vitals.Releases(records)
	layout := AxisLayoutFor(len(records))
	topMargin := TopMargin(len(releases))
	top := maxY * 1.1
	// Pixel offsets are converted to data units so labels may rise into the
	// reserved top margin.
	plotHeight := max(opt.Height-topMargin-layout.Height, 1)
	perPixel := top / float64(plotHeight)

	series := []chart.Series{
		chart.TimeSeries{
			Name:    name,
			XValues: times,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
		},
	}
	if len(releases) > 0 {
		ann := chart.AnnotationSeries{
			Name: "Releases",
			Style: chart.Style{
				StrokeColor: releaseColor,
				FillColor:   drawing.ColorWhite,
				FontColor:   releaseColor,
			},
		}
		for i, r := range releases {
			v := metricValue(r, m)
			ann.Annotations = append(ann.Annotations, chart.Value2{
				XValue: chart.TimeToFloat64(r.Date),
				YValue: v + float64(LabelOffset(i, len(releases)))*perPixel,
				Label:  r.Release,
			})
		}
		series = append(series, ann)
	}

	ch := chart.Chart{
		Title:  fmt.Sprintf("%s over time", name),
		Width:  opt.Width,
		Height: opt.Height,
		Background: chart.Style{Padding: chart.Box{
			Top:    topMargin,
			Left:   20,
			Right:  30,
			Bottom: layout.Height,
		}},
		XAxis: chart.XAxis{
			Name:      "Date",
			Ticks:     dateTicks(records, layout),
			TickStyle: chart.Style{TextRotationDegrees: float64(layout.Angle)},
		},
		YAxis: chart.YAxis{
			Name:  unit,
			Range: &chart.ContinuousRange{Min: 0, Max: top},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// dateTicks labels every (Interval+1)-th record with its display date.
func dateTicks(records []vitals.Record, l AxisLayout) []chart.Tick {
	ticks := make([]chart.Tick, 0, len(records)/(l.Interval+1)+1)
	for i := 0; i < len(records); i += l.Interval + 1 {
		r := records[i]
		ticks = append(ticks, chart.Tick{
			Value: chart.TimeToFloat64(r.Date),
			Label: r.Date.Format("02/01"),
		})
	}
	if len(records) == 1 {
		end := records[0].Date.Add(time.Hour)
		ticks = append(ticks, chart.Tick{Value: chart.TimeToFloat64(end), Label: ""})
	}
	return ticks
}

func metricValue(r vitals.Record, m vitals.Metric) float64 {
	if m == vitals.MetricCLS {
		return r.CLS
	}
	return float64(r.LCP)
}
