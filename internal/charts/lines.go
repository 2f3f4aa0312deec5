package charts

import (
	"fmt"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"learnerdash/domain/markbook"
)

// Scatter plots one question against another, one dot per learner
func Scatter(xName, yName string, xs, ys []float64) ([]byte, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		xs, ys = []float64{0}, []float64{0}
	}
	c := chart.Chart{
		Title:      fmt.Sprintf("%s vs %s", xName, yName),
		TitleStyle: titleStyle(),
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: background(),
		XAxis:      chart.XAxis{Name: xName, Range: valueRange(xs, true)},
		YAxis:      chart.YAxis{Name: yName, Range: valueRange(ys, true)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    yName,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    5,
					DotColor:    colorPrimary,
				},
			},
		},
	}
	return renderChart(c)
}

// Progress draws one line per question through the per-date class means
func Progress(questions []string, points []markbook.ProgressPoint) ([]byte, error) {
	var times []time.Time
	for _, p := range points {
		times = append(times, p.Date)
	}
	if len(times) == 0 {
		times = []time.Time{time.Unix(0, 0).UTC()}
		points = []markbook.ProgressPoint{{Date: times[0], Means: map[string]float64{}}}
	}

	lo, hi := times[0], times[len(times)-1]
	if !hi.After(lo) {
		// a single test date still needs a visible x-range
		lo, hi = lo.Add(-24*time.Hour), hi.Add(24*time.Hour)
	}

	var all []float64
	series := make([]chart.Series, 0, len(questions))
	for i, q := range questions {
		ys := make([]float64, len(points))
		for j, p := range points {
			ys[j] = p.Means[q]
		}
		all = append(all, ys...)
		color := paletteColor(i)
		series = append(series, chart.TimeSeries{
			Name:    q,
			XValues: times,
			YValues: ys,
			Style:   chart.Style{StrokeColor: color, StrokeWidth: 2, DotWidth: 3, DotColor: color},
		})
	}
	if len(series) == 0 {
		series = append(series, chart.TimeSeries{Name: "none", XValues: times, YValues: make([]float64, len(times))})
	}

	c := chart.Chart{
		Title:      "Progress Over Time",
		TitleStyle: titleStyle(),
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           "Test Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01-02"),
			Range:          &chart.ContinuousRange{Min: chart.TimeToFloat64(lo), Max: chart.TimeToFloat64(hi)},
		},
		YAxis:  chart.YAxis{Name: "Average Score", Range: valueRange(all, true)},
		Series: series,
	}
	c.Elements = []chart.Renderable{chart.Legend(&c)}
	return renderChart(c)
}
