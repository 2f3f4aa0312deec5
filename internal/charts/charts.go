// Package charts renders derived markbook data to PNG images with go-chart.
// Renderers are pure: they read their inputs and never modify them.
package charts

import (
	"bytes"
	"fmt"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"learnerdash/internal/errors"
)

// Default image size in pixels
const (
	DefaultWidth  = 900
	DefaultHeight = 420
	PieSize       = 420
)

// Kind names a chart selectable in the custom chart builder
type Kind string

const (
	KindBar       Kind = "bar"
	KindScatter   Kind = "scatter"
	KindHistogram Kind = "histogram"
)

// ParseKind resolves a chart kind name, case-sensitively as sent by the form
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBar, KindScatter, KindHistogram:
		return Kind(s), nil
	case "":
		return KindBar, nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("unknown chart type %q", s))
}

var (
	colorPrimary = drawing.ColorFromHex("003366")
	colorMuted   = drawing.ColorFromHex("9AA5B1")
	colorGrid    = drawing.ColorFromHex("DDE3EA")
	colorText    = drawing.ColorFromHex("333333")

	// palette for series and pie slices, after seaborn's Set2
	palette = []drawing.Color{
		drawing.ColorFromHex("66C2A5"),
		drawing.ColorFromHex("FC8D62"),
		drawing.ColorFromHex("8DA0CB"),
		drawing.ColorFromHex("E78AC3"),
		drawing.ColorFromHex("A6D854"),
		drawing.ColorFromHex("FFD92F"),
		drawing.ColorFromHex("E5C494"),
		drawing.ColorFromHex("B3B3B3"),
	}
)

func paletteColor(i int) drawing.Color {
	return palette[i%len(palette)]
}

// Series is one named sequence of values, aligned with a list of categories
type Series struct {
	Name   string
	Values []float64
}

// valueRange returns a usable axis range over values. Degenerate input
// (nothing, or all values equal at zero) falls back to [0,1].
func valueRange(values []float64, includeZero bool) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	if includeZero {
		lo = math.Min(lo, 0)
		hi = math.Max(hi, 0)
	}
	if hi <= lo {
		if lo == 0 {
			return &chart.ContinuousRange{Min: 0, Max: 1}
		}
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	pad := (hi - lo) * 0.05
	if includeZero && lo == 0 {
		return &chart.ContinuousRange{Min: 0, Max: hi + pad}
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func renderChart(c chart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", c.Title, err)
	}
	return buf.Bytes(), nil
}

func renderBarChart(c chart.BarChart) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", c.Title, err)
	}
	return buf.Bytes(), nil
}

func renderPie(c chart.PieChart) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", c.Title, err)
	}
	return buf.Bytes(), nil
}

func titleStyle() chart.Style {
	return chart.Style{FontColor: colorPrimary, FontSize: 14}
}

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}
}
