package charts

import (
	"fmt"
	"sort"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"learnerdash/domain/markbook"
	"learnerdash/internal/metrics"
)

// Bars renders one bar per label in the given order
func Bars(title, yName string, labels []string, values []float64) ([]byte, error) {
	return bars(title, yName, labels, values, colorPrimary)
}

func bars(title, yName string, labels []string, values []float64, color drawing.Color) ([]byte, error) {
	if len(labels) == 0 {
		labels, values = []string{"No data"}, []float64{0}
	}
	vals := make([]chart.Value, len(labels))
	for i, label := range labels {
		vals[i] = chart.Value{
			Label: label,
			Value: values[i],
			Style: chart.Style{FillColor: color, StrokeColor: color, StrokeWidth: 1},
		}
	}

	barWidth := 40
	if n := len(vals); n > 15 {
		barWidth = 20
	}
	return renderBarChart(chart.BarChart{
		Title:      title,
		TitleStyle: titleStyle(),
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		BarWidth:   barWidth,
		Background: background(),
		XAxis:      chart.Style{FontSize: 8, TextRotationDegrees: 90},
		YAxis: chart.YAxis{
			Name:           yName,
			Range:          valueRange(values, true),
			ValueFormatter: chart.FloatValueFormatter,
		},
		Bars: vals,
	})
}

// LearnerAverages renders each learner's percentage, ascending
func LearnerAverages(learners []markbook.Learner) ([]byte, error) {
	sorted := append([]markbook.Learner(nil), learners...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Percentage < sorted[j].Percentage })

	labels := make([]string, len(sorted))
	values := make([]float64, len(sorted))
	for i, l := range sorted {
		labels[i] = l.Name
		values[i] = l.Percentage
	}
	return bars("Average Marks per Learner", "Percentage", labels, values, colorPrimary)
}

// QuestionMeans renders the class mean of each question in the given order
func QuestionMeans(title string, means []markbook.QuestionMean) ([]byte, error) {
	labels := make([]string, len(means))
	values := make([]float64, len(means))
	for i, qm := range means {
		labels[i] = qm.Question
		values[i] = qm.Mean
	}
	return bars(title, "Average Score", labels, values, colorPrimary)
}

// Histogram renders binned counts of values
func Histogram(title string, values []float64, bins int) ([]byte, error) {
	hist := metrics.Histogram(values, bins)
	labels := make([]string, len(hist))
	counts := make([]float64, len(hist))
	for i, b := range hist {
		labels[i] = fmt.Sprintf("%.1f-%.1f", b.Lower, b.Upper)
		counts[i] = float64(b.Count)
	}
	return bars(title, "Learners", labels, counts, colorMuted)
}

// MarkDistribution renders a pie of how many learners earned each mark
func MarkDistribution(question string, counts []markbook.MarkCount) ([]byte, error) {
	var vals []chart.Value
	for i, mc := range counts {
		if mc.Count <= 0 {
			continue
		}
		c := paletteColor(i)
		vals = append(vals, chart.Value{
			Label: fmt.Sprintf("%g (%d)", mc.Mark, mc.Count),
			Value: float64(mc.Count),
			Style: chart.Style{FillColor: c, StrokeColor: drawing.ColorWhite, StrokeWidth: 1},
		})
	}
	if len(vals) == 0 {
		vals = []chart.Value{{Label: "No marks", Value: 1, Style: chart.Style{FillColor: colorGrid}}}
	}

	return renderPie(chart.PieChart{
		Title:      fmt.Sprintf("Distribution for %s", question),
		TitleStyle: titleStyle(),
		Width:      PieSize,
		Height:     PieSize,
		Background: background(),
		Values:     vals,
	})
}
