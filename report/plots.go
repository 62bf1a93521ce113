package report

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/sartorproj/goregime/changepoint"
	"github.com/sartorproj/goregime/stats"
	"github.com/sartorproj/goregime/timeseries"
)

var (
	colorPrice  = color.RGBA{B: 200, A: 255}
	colorMean   = color.RGBA{R: 220, A: 255}
	colorStd    = color.RGBA{A: 255}
	colorChange = color.RGBA{R: 220, A: 180}
)

// seriesXYs returns the observed values against Unix time.
func seriesXYs(series *timeseries.Series) plotter.XYs {
	pts := make(plotter.XYs, series.Len())
	for i, v := range series.Values {
		pts[i].X = float64(series.TimeAt(i).Unix())
		pts[i].Y = v
	}
	return pts
}

// nullXYs returns the defined values of a component against Unix time.
func nullXYs(series *timeseries.Series, values []timeseries.NullFloat64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(values))
	for i, v := range values {
		if v.Valid {
			pts = append(pts, plotter.XY{X: float64(series.TimeAt(i).Unix()), Y: v.Float64})
		}
	}
	return pts
}

func newTimePlot(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006"}
	p.Add(plotter.NewGrid())
	return p
}

func addLine(p *plot.Plot, pts plotter.XYs, c color.Color, legend string) error {
	if len(pts) == 0 {
		return nil
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	if legend != "" {
		p.Legend.Add(legend, line)
	}
	return nil
}

// PlotRollingStats saves the series with its rolling mean and standard
// deviation as a PNG.
func PlotRollingStats(path string, series *timeseries.Series, rolling *stats.RollingStats) error {
	p := newTimePlot("Rolling Mean & Standard Deviation", "Price")
	p.Legend.Top = true

	if err := addLine(p, seriesXYs(series), colorPrice, "Original"); err != nil {
		return err
	}
	if err := addLine(p, nullXYs(series, rolling.Mean), colorMean, "Rolling Mean"); err != nil {
		return err
	}
	if err := addLine(p, nullXYs(series, rolling.Std), colorStd, "Rolling Std"); err != nil {
		return err
	}
	return p.Save(12*vg.Inch, 6*vg.Inch, path)
}

// PlotDecomposition saves the observed series and its three components as
// four stacked panels.
func PlotDecomposition(path string, dec *stats.Decomposition) error {
	series, err := timeseries.NewWithTimestamps(dec.Timestamps, dec.Observed)
	if err != nil {
		return err
	}

	panels := []struct {
		title string
		pts   plotter.XYs
	}{
		{"Observed", seriesXYs(series)},
		{"Trend", nullXYs(series, dec.Trend)},
		{"Seasonal", nullXYs(series, dec.Seasonal)},
		{"Residual", nullXYs(series, dec.Residual)},
	}

	plots := make([][]*plot.Plot, len(panels))
	for i, panel := range panels {
		p := newTimePlot("", panel.title)
		if i == 0 {
			p.Title.Text = fmt.Sprintf("%s decomposition, period %d", dec.Model, dec.Period)
		}
		if err := addLine(p, panel.pts, colorPrice, ""); err != nil {
			return err
		}
		plots[i] = []*plot.Plot{p}
	}

	img := vgimg.New(12*vg.Inch, 8*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(panels),
		Cols: 1,
		PadY: vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// PlotChangePoints saves the series with a dashed vertical line at every
// change point.
func PlotChangePoints(path string, series *timeseries.Series, seg *changepoint.Segmentation) error {
	p := newTimePlot("Brent Oil Prices with Detected Change Points", "Price (USD/barrel)")
	p.Legend.Top = true

	if err := addLine(p, seriesXYs(series), colorPrice, "Price"); err != nil {
		return err
	}

	lo, hi := 0.0, 0.0
	if series.Len() > 0 {
		lo, hi = series.Values[0], series.Values[0]
		for _, v := range series.Values {
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	for _, d := range seg.Dates {
		x := float64(d.Unix())
		line, err := plotter.NewLine(plotter.XYs{{X: x, Y: lo}, {X: x, Y: hi}})
		if err != nil {
			return err
		}
		line.Color = colorChange
		line.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
		p.Add(line)
		p.Legend.Add("Change Point: "+d.Format(dateLayout), line)
	}
	return p.Save(14*vg.Inch, 7*vg.Inch, path)
}
