package report

import (
	"image/color"
	"io"

	"github.com/pkg/errors"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/timpalpant/go-mces"
)

// PolicyPNG writes a static PNG of the greedy (and optional smoothed)
// consumption policy, together with the bound consumption = state.
func PolicyPNG(w io.Writer, r *mces.Result, smoothed []float64) error {
	p := gplot.New()
	p.Title.Text = "Consumption policy"
	p.X.Label.Text = "State"
	p.Y.Label.Text = "Consumption"

	pol := r.FeasiblePolicy()
	if err := addLine(p, "greedy", r.StateCenters, pol.Values, color.RGBA{R: 215, G: 48, B: 39, A: 255}, nil); err != nil {
		return err
	}

	dashes := []vg.Length{vg.Points(4), vg.Points(4)}
	if err := addLine(p, "consume all", r.StateCenters, r.StateCenters, color.Gray{Y: 128}, dashes); err != nil {
		return err
	}

	if len(smoothed) > 0 {
		if err := addLine(p, "smoothed", r.StateCenters, smoothed, color.RGBA{R: 69, G: 117, B: 180, A: 255}, nil); err != nil {
			return err
		}
	}

	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return errors.Wrap(err, "rendering policy plot")
	}

	_, err = wt.WriteTo(w)
	return errors.Wrap(err, "writing policy plot")
}

func addLine(p *gplot.Plot, name string, xs, ys []float64, c color.Color, dashes []vg.Length) error {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrapf(err, "creating %s line", name)
	}

	line.Color = c
	line.Width = vg.Points(2)
	line.Dashes = dashes
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}
