package smooth

import (
	"math"
)

// DefaultTol is the default interval tolerance of Maximize.
const DefaultTol = 1e-5

var invPhi = (math.Sqrt(5) - 1) / 2

// Maximize finds the maximum of a unimodal function f on [lo, hi] by
// golden-section search, to within tol of the maximizer. The end points
// are also considered so a monotone f returns the best bound.
func Maximize(f func(float64) float64, lo, hi, tol float64) (x, fx float64) {
	if hi <= lo {
		return lo, f(lo)
	}

	if tol <= 0 {
		tol = DefaultTol
	}

	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := f(c), f(d)
	for b-a > tol {
		if fc > fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}

	x = (a + b) / 2
	fx = f(x)
	for _, end := range []float64{lo, hi} {
		if fe := f(end); fe > fx {
			x, fx = end, fe
		}
	}

	return x, fx
}

// SmoothedPolicy returns, for each state, the action in [lo, state]
// maximizing the fitted surface.
func SmoothedPolicy(f *RBF, states []float64, lo float64) []float64 {
	pol := make([]float64, len(states))
	for i, x := range states {
		pol[i], _ = Maximize(func(u float64) float64 { return f.At(x, u) }, lo, x, DefaultTol)
	}

	return pol
}
