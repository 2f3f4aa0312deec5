package charts

import (
	"bytes"
	"fmt"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"learnerdash/domain/markbook"
)

// canvas draws chart types go-chart has no component for (grouped bars,
// radar, box plot) directly on its PNG renderer.
type canvas struct {
	r    chart.Renderer
	w, h int
}

func newCanvas(w, h int) (*canvas, error) {
	r, err := chart.PNG(w, h)
	if err != nil {
		return nil, err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, err
	}
	r.SetDPI(chart.DefaultDPI)
	r.SetFont(font)
	c := &canvas{r: r, w: w, h: h}
	c.rect(0, 0, w, h, drawing.ColorWhite)
	return c, nil
}

func (c *canvas) rect(x0, y0, x1, y1 int, fill drawing.Color) {
	c.r.SetFillColor(fill)
	c.r.SetStrokeColor(fill)
	c.r.SetStrokeWidth(0)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y0)
	c.r.LineTo(x1, y1)
	c.r.LineTo(x0, y1)
	c.r.Close()
	c.r.Fill()
}

func (c *canvas) line(x0, y0, x1, y1 int, color drawing.Color, width float64) {
	c.r.SetStrokeColor(color)
	c.r.SetStrokeWidth(width)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y1)
	c.r.Stroke()
}

func (c *canvas) polygon(xs, ys []int, fill, stroke drawing.Color) {
	if len(xs) == 0 {
		return
	}
	c.r.SetFillColor(fill)
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(2)
	c.r.MoveTo(xs[0], ys[0])
	for i := 1; i < len(xs); i++ {
		c.r.LineTo(xs[i], ys[i])
	}
	c.r.Close()
	c.r.FillStroke()
}

func (c *canvas) text(s string, x, y int, size float64, color drawing.Color) {
	c.r.SetFontSize(size)
	c.r.SetFontColor(color)
	c.r.Text(s, x, y)
}

// centered writes s with its horizontal midpoint at x
func (c *canvas) centered(s string, x, y int, size float64, color drawing.Color) {
	c.r.SetFontSize(size)
	box := c.r.MeasureText(s)
	c.text(s, x-box.Width()/2, y, size, color)
}

func (c *canvas) title(s string) {
	c.centered(s, c.w/2, 24, 14, colorPrimary)
}

func (c *canvas) png() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.r.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// plotArea is the rectangle inside the axes
type plotArea struct {
	left, top, right, bottom int
	lo, hi                   float64
}

func (p plotArea) y(v float64) int {
	frac := (v - p.lo) / (p.hi - p.lo)
	return p.bottom - int(math.Round(frac*float64(p.bottom-p.top)))
}

func (c *canvas) axes(p plotArea, ticks int) {
	for i := 0; i <= ticks; i++ {
		v := p.lo + (p.hi-p.lo)*float64(i)/float64(ticks)
		y := p.y(v)
		c.line(p.left, y, p.right, y, colorGrid, 1)
		c.text(fmt.Sprintf("%.1f", v), 6, y+4, 8, colorText)
	}
	c.line(p.left, p.top, p.left, p.bottom, colorText, 1)
	c.line(p.left, p.bottom, p.right, p.bottom, colorText, 1)
}

func (c *canvas) legend(series []Series, x, y int) {
	for i, s := range series {
		c.rect(x, y+i*16, x+10, y+i*16+10, paletteColor(i))
		c.text(s.Name, x+14, y+i*16+9, 9, colorText)
	}
}

// GroupedBars draws, for every category, one bar per series side by side
func GroupedBars(title string, categories []string, series []Series) ([]byte, error) {
	c, err := newCanvas(DefaultWidth, DefaultHeight)
	if err != nil {
		return nil, fmt.Errorf("grouped bars: %w", err)
	}
	c.title(title)

	var all []float64
	for _, s := range series {
		all = append(all, s.Values...)
	}
	rng := valueRange(all, true)
	p := plotArea{left: 50, top: 50, right: DefaultWidth - 140, bottom: DefaultHeight - 70, lo: rng.Min, hi: rng.Max}
	c.axes(p, 5)

	if len(categories) > 0 && len(series) > 0 {
		slot := float64(p.right-p.left) / float64(len(categories))
		barW := math.Max(1, slot*0.8/float64(len(series)))
		for ci, cat := range categories {
			x0 := float64(p.left) + slot*float64(ci) + slot*0.1
			for si, s := range series {
				if ci >= len(s.Values) {
					continue
				}
				bx := int(x0 + barW*float64(si))
				c.rect(bx, p.y(s.Values[ci]), bx+int(barW)-1, p.y(math.Max(p.lo, 0)), paletteColor(si))
			}
			c.centered(cat, int(x0+slot*0.4), p.bottom+14, 8, colorText)
		}
	}
	c.legend(series, p.right+14, p.top)
	return c.png()
}

// Radar draws each series as a closed polygon over one spoke per axis.
// Values are scaled against maxValue; a non-positive maxValue uses the
// largest value present.
func Radar(title string, axes []string, series []Series, maxValue float64) ([]byte, error) {
	c, err := newCanvas(DefaultHeight+200, DefaultHeight+60)
	if err != nil {
		return nil, fmt.Errorf("radar: %w", err)
	}
	c.title(title)

	if maxValue <= 0 {
		for _, s := range series {
			for _, v := range s.Values {
				maxValue = math.Max(maxValue, v)
			}
		}
	}
	if maxValue <= 0 {
		maxValue = 1
	}

	cx, cy := (DefaultHeight+60)/2, (DefaultHeight+60)/2+15
	radius := float64(DefaultHeight)/2 - 40
	n := len(axes)
	angle := func(i int) float64 { return -math.Pi/2 + 2*math.Pi*float64(i)/float64(n) }
	point := func(i int, v float64) (int, int) {
		r := radius * math.Max(0, math.Min(1, v/maxValue))
		return cx + int(math.Round(r*math.Cos(angle(i)))), cy + int(math.Round(r*math.Sin(angle(i))))
	}

	for ring := 1; ring <= 4; ring++ {
		xs, ys := make([]int, n), make([]int, n)
		for i := 0; i < n; i++ {
			xs[i], ys[i] = point(i, maxValue*float64(ring)/4)
		}
		c.polygon(xs, ys, drawing.ColorTransparent, colorGrid)
	}
	for i, a := range axes {
		x, y := point(i, maxValue)
		c.line(cx, cy, x, y, colorGrid, 1)
		lx, ly := point(i, maxValue*1.12)
		c.centered(a, lx, ly+4, 9, colorText)
	}

	for si, s := range series {
		xs, ys := make([]int, n), make([]int, n)
		for i := 0; i < n; i++ {
			v := 0.0
			if i < len(s.Values) {
				v = s.Values[i]
			}
			xs[i], ys[i] = point(i, v)
		}
		color := paletteColor(si)
		if si == 0 {
			color = colorPrimary
		}
		fill := color
		fill.A = 70
		c.polygon(xs, ys, fill, color)
	}
	c.legend(series, DefaultHeight+70, 60)
	return c.png()
}

// BoxPlot draws min/max whiskers, the quartile box and the median for
// each summarized question.
func BoxPlot(title string, summaries []markbook.QuestionSummary) ([]byte, error) {
	c, err := newCanvas(DefaultWidth, DefaultHeight)
	if err != nil {
		return nil, fmt.Errorf("box plot: %w", err)
	}
	c.title(title)

	var all []float64
	for _, s := range summaries {
		all = append(all, s.Min, s.Max)
	}
	rng := valueRange(all, true)
	p := plotArea{left: 50, top: 50, right: DefaultWidth - 30, bottom: DefaultHeight - 50, lo: rng.Min, hi: rng.Max}
	c.axes(p, 5)

	if len(summaries) > 0 {
		slot := float64(p.right-p.left) / float64(len(summaries))
		half := int(math.Min(60, slot*0.3))
		for i, s := range summaries {
			mid := p.left + int(slot*(float64(i)+0.5))
			c.line(mid, p.y(s.Max), mid, p.y(s.Q75), colorText, 1)
			c.line(mid, p.y(s.Q25), mid, p.y(s.Min), colorText, 1)
			c.line(mid-half/2, p.y(s.Max), mid+half/2, p.y(s.Max), colorText, 1)
			c.line(mid-half/2, p.y(s.Min), mid+half/2, p.y(s.Min), colorText, 1)

			box := colorPrimary
			box.A = 140
			c.rect(mid-half, p.y(s.Q75), mid+half, p.y(s.Q25), box)
			c.line(mid-half, p.y(s.Median), mid+half, p.y(s.Median), drawing.ColorWhite, 2)
			c.centered(s.Question, mid, p.bottom+16, 9, colorText)
		}
	}
	return c.png()
}
