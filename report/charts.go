// Package report renders the density bank, Q-table and policies of a
// learning run as interactive HTML charts and static images.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/timpalpant/go-mces"
	"github.com/timpalpant/go-mces/smooth"
)

// Colour scale used for densities and Q-values.
var palette = []string{
	"#313695", "#4575b4", "#74add1", "#abd9e9", "#e0f3f8",
	"#fee090", "#fdae61", "#f46d43", "#d73027", "#a50026",
}

// Densities draws n samples from each action's next-state distribution,
// re-histograms them and shows the result as a 3D bar chart of
// (state, action, density), next to the density estimated by the bank.
func Densities(bank *mces.DensityBank, actions []float64, rng *rand.Rand, n int) (components.Charter, error) {
	var drawn, estimated []opts.Chart3DData
	var maxDensity, width float64
	for a := 0; a < bank.Len(); a++ {
		sampler := bank.Sampler(a)
		draws, err := sampler.SampleValues(rng, n)
		if err != nil {
			return nil, errors.Wrapf(err, "sampling action %d", a)
		}

		centers := sampler.Centers()
		width = sampler.Width()
		drawn = appendBars(drawn, centers, actions[a], sampler.Hist(draws).Density)
		estimated = appendBars(estimated, centers, actions[a], sampler.Density())

		if m := floats.Max(sampler.Density()); m > maxDensity {
			maxDensity = m
		}
	}

	bar := charts.NewBar3D()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "MC-ES", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Next-state densities",
			Subtitle: fmt.Sprintf("%d draws per action, bin width %.3f", n, width),
		}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "State", Type: "value"}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Action", Type: "value"}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "p(state)", Type: "value"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Max:        float32(maxDensity),
			InRange:    &opts.VisualMapInRange{Color: palette},
		}),
	)
	bar.AddSeries("draws", drawn)
	bar.AddSeries("estimated", estimated)
	return bar, nil
}

func appendBars(data []opts.Chart3DData, centers []float64, action float64, density []float64) []opts.Chart3DData {
	for i, d := range density {
		if d == 0 {
			continue
		}

		data = append(data, opts.Chart3DData{
			Value: []interface{}{centers[i], action, d},
		})
	}

	return data
}

// QHeatMap shows the learned Q-values over (state, action).
func QHeatMap(r *mces.Result) components.Charter {
	states := labels(r.StateCenters)
	actions := labels(r.Actions)
	q := r.Table.Dense()

	var data []opts.HeatMapData
	for s := range r.StateCenters {
		for a := range r.Actions {
			if r.Table.Count(s, a) == 0 {
				continue
			}

			data = append(data, opts.HeatMapData{Value: [3]interface{}{s, a, q.At(s, a)}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "MC-ES", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Q(state, action)",
			Subtitle: fmt.Sprintf("run %s, %d iterations", r.RunID, r.Iterations),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "State", Type: "category", Data: states}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Action", Type: "category", Data: actions}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(mat.Min(q)),
			Max:        float32(mat.Max(q)),
			InRange:    &opts.VisualMapInRange{Color: palette},
		}),
	)
	hm.SetXAxis(states)
	hm.AddSeries("Q", data)
	return hm
}

// PolicyLine shows the greedy policy, the optional smoothed policy and
// the feasibility bound consumption = state.
func PolicyLine(r *mces.Result, smoothed []float64) components.Charter {
	pol := r.FeasiblePolicy()
	greedy := make([]opts.LineData, len(pol.Values))
	bound := make([]opts.LineData, len(r.StateCenters))
	for s, u := range pol.Values {
		greedy[s] = opts.LineData{Value: u}
		bound[s] = opts.LineData{Value: r.StateCenters[s]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "MC-ES", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Consumption policy"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "State"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Consumption"}),
	)

	line.SetXAxis(labels(r.StateCenters)).
		AddSeries("greedy", greedy).
		AddSeries("consume all", bound)

	if len(smoothed) > 0 {
		data := make([]opts.LineData, len(smoothed))
		for i, u := range smoothed {
			data[i] = opts.LineData{Value: u}
		}
		line.AddSeries("smoothed", data)
	}

	return line
}

// Surface shows a fitted Q surface evaluated on an n x n grid over
// feasible (state, action) pairs.
func Surface(f *smooth.RBF, r *mces.Result, n int) components.Charter {
	if n < 2 {
		n = 2
	}

	model := r.Params.Model()
	q := r.Table.Dense()
	lo, hi := r.StateEdges[0], r.StateEdges[len(r.StateEdges)-1]
	xs := floats.Span(make([]float64, n), lo, hi)

	var data []opts.Chart3DData
	for _, x := range xs {
		for _, u := range xs {
			z := interface{}("-")
			if model.Feasible(u, x) {
				z = f.At(x, u)
			}
			data = append(data, opts.Chart3DData{Value: []interface{}{x, u, z}})
		}
	}

	surface := charts.NewSurface3D()
	surface.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "MC-ES", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Smoothed Q(state, action)"}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "State", Type: "value"}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Action", Type: "value"}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Q", Type: "value"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(mat.Min(q)),
			Max:        float32(mat.Max(q)),
			InRange:    &opts.VisualMapInRange{Color: palette},
		}),
	)
	surface.AddSeries("Q", data)
	return surface
}

// Render writes all charts to w as a single HTML page.
func Render(w io.Writer, charters ...components.Charter) error {
	page := components.NewPage()
	page.PageTitle = "MC-ES"
	page.AddCharts(charters...)
	return errors.Wrap(page.Render(w), "rendering charts")
}

func labels(v []float64) []string {
	result := make([]string, len(v))
	for i, x := range v {
		result[i] = fmt.Sprintf("%.2f", x)
	}

	return result
}
