package heatmap

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// countsGrid adapts a Matrix to plotter.GridXYZ. Z is log-compressed so a
// single dominant QP bucket does not wash out the rest of the figure.
type countsGrid struct {
	m *Matrix
}

func (g countsGrid) Dims() (c, r int) { return len(g.m.Frames), g.m.QPSpan() }
func (g countsGrid) X(c int) float64  { return float64(g.m.Frames[c]) }
func (g countsGrid) Y(r int) float64  { return float64(g.m.MinQP + r) }
func (g countsGrid) Z(c, r int) float64 {
	return math.Log1p(float64(g.m.Counts[c][r]))
}

// RenderPNG writes the matrix as a PNG heatmap.
func RenderPNG(m *Matrix, path string) error {
	if len(m.Frames) == 0 {
		return fmt.Errorf("no frames to plot")
	}

	p := plot.New()
	p.Title.Text = "QP distribution per frame"
	p.X.Label.Text = "frame"
	p.Y.Label.Text = "qp"

	h := plotter.NewHeatMap(countsGrid{m}, palette.Heat(16, 1))
	p.Add(h)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("saving heatmap: %w", err)
	}
	return nil
}

// viridis ramp, matching the debug charts elsewhere in the toolchain.
var heatColors = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// RenderHTML writes the matrix as a self-contained HTML heatmap.
func RenderHTML(m *Matrix, w io.Writer) error {
	if len(m.Frames) == 0 {
		return fmt.Errorf("no frames to plot")
	}

	xs := make([]string, len(m.Frames))
	for i, f := range m.Frames {
		xs[i] = strconv.Itoa(f)
	}
	span := m.QPSpan()
	ys := make([]string, span)
	for q := 0; q < span; q++ {
		ys[q] = strconv.Itoa(m.MinQP + q)
	}

	data := make([]opts.HeatMapData, 0, len(m.Frames)*span)
	for i := range m.Frames {
		for q := 0; q < span; q++ {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{i, q, m.Counts[i][q]}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "QP distribution", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "QP distribution per frame"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "frame", Data: xs}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "qp", Data: ys}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(m.MaxCount()),
			InRange:    &opts.VisualMapInRange{Color: heatColors},
		}),
	)
	hm.AddSeries("qp", data)

	if err := hm.Render(w); err != nil {
		return fmt.Errorf("rendering heatmap: %w", err)
	}
	return nil
}
