package mces

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// StateGrid discretizes [Min, Max] into equal-width bins.
type StateGrid struct {
	Edges   []float64 // N+1 bin edges.
	Centers []float64 // N bin centers.
	Width   float64
}

// NewStateGrid creates a grid of n equal-width bins over [min, max].
func NewStateGrid(min, max float64, n int) (StateGrid, error) {
	if n <= 0 {
		return StateGrid{}, errors.Wrap(configErr("NumStates", n, "must be > 0"), "state grid")
	}

	if !(max > min) {
		return StateGrid{}, errors.Wrap(configErr("StateMax", max, "must be > StateMin"), "state grid")
	}

	edges := floats.Span(make([]float64, n+1), min, max)
	centers := make([]float64, n)
	for i := range centers {
		centers[i] = (edges[i] + edges[i+1]) / 2.0
	}

	return StateGrid{
		Edges:   edges,
		Centers: centers,
		Width:   edges[1] - edges[0],
	}, nil
}

// Len returns the number of bins.
func (g StateGrid) Len() int {
	return len(g.Centers)
}

// NewActions returns m equally spaced actions over [min, max], both ends included.
func NewActions(min, max float64, m int) []float64 {
	switch {
	case m <= 0:
		return nil
	case m == 1:
		return []float64{min}
	}

	return floats.Span(make([]float64, m), min, max)
}
