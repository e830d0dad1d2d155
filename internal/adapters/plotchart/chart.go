// Package plotchart draws the visited/not-visited comparison as a grouped
// bar chart with gonum/plot and serves it as SVG.
package plotchart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/csg33k/visits-dashboard/internal/domain"
	"github.com/csg33k/visits-dashboard/internal/ports"
)

// ErrReleased is returned by a chart used after Release.
var ErrReleased = errors.New("chart released")

var palette = []color.Color{
	color.RGBA{R: 22, G: 163, B: 74, A: 255},   // visited
	color.RGBA{R: 220, G: 38, B: 38, A: 255},   // not visited
	color.RGBA{R: 134, G: 239, B: 172, A: 255}, // previous visited
	color.RGBA{R: 252, G: 165, B: 165, A: 255}, // previous not visited
}

// Factory creates SVG bar charts of a fixed size.
type Factory struct {
	Width, Height vg.Length
	BarWidth      vg.Length
}

func NewFactory() *Factory {
	return &Factory{Width: 9 * vg.Inch, Height: 4.5 * vg.Inch, BarWidth: vg.Points(12)}
}

var _ ports.ChartFactory = (*Factory)(nil)

func (f *Factory) NewChart(title string) (ports.Chart, error) {
	return &Chart{title: title, w: f.Width, h: f.Height, bar: f.BarWidth}, nil
}

type Chart struct {
	mu       sync.Mutex
	title    string
	w, h     vg.Length
	bar      vg.Length
	p        *plot.Plot
	released bool
}

// SetSeries replaces the plotted data. Every dataset must have one value per
// label.
func (c *Chart) SetSeries(labels []string, datasets []domain.Dataset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	for _, ds := range datasets {
		if len(ds.Values) != len(labels) {
			return fmt.Errorf("dataset %q has %d values for %d labels", ds.Label, len(ds.Values), len(labels))
		}
	}

	p := plot.New()
	p.Title.Text = c.title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.BackgroundColor = color.White
	p.Legend.Top = true
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	if len(labels) > 0 {
		n := len(datasets)
		for i, ds := range datasets {
			bars, err := plotter.NewBarChart(plotter.Values(ds.Values), c.bar)
			if err != nil {
				return fmt.Errorf("bars %q: %w", ds.Label, err)
			}
			bars.Color = palette[i%len(palette)]
			bars.LineStyle.Width = vg.Length(0)
			bars.Offset = vg.Length(float64(i)-float64(n-1)/2) * c.bar
			p.Add(bars)
			p.Legend.Add(ds.Label, bars)
		}
		p.NominalX(labels...)
		p.X.Tick.Label.XAlign = draw.XCenter
	}
	c.p = p
	return nil
}

// WriteTo renders the chart as SVG.
func (c *Chart) WriteTo(w io.Writer) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return 0, ErrReleased
	}
	if c.p == nil {
		return 0, errors.New("chart has no series")
	}
	wt, err := c.p.WriterTo(c.w, c.h, "svg")
	if err != nil {
		return 0, fmt.Errorf("svg canvas: %w", err)
	}
	return wt.WriteTo(w)
}

// Release drops the plot. The chart cannot be used afterwards.
func (c *Chart) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.p = nil
	c.released = true
}
