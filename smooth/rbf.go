// Package smooth fits a smooth surface to a learned Q-table and extracts
// a continuous policy from it.
package smooth

import (
	"math"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/timpalpant/go-mces"
)

// Kernel is a radial basis function of the scaled distance r/eps.
type Kernel int

const (
	Multiquadric Kernel = iota
	InverseMultiquadric
	Gaussian
)

func (k Kernel) eval(r, eps float64) float64 {
	x := r / eps
	switch k {
	case InverseMultiquadric:
		return 1.0 / math.Sqrt(x*x+1)
	case Gaussian:
		return math.Exp(-x * x)
	default:
		return math.Sqrt(x*x + 1)
	}
}

// RBF is a two-dimensional radial basis function interpolant.
type RBF struct {
	kernel  Kernel
	eps     float64
	xs, ys  []float64
	weights []float64
}

// FitRBF fits an interpolant through the scattered points (xs[i], ys[i], zs[i]).
// If eps <= 0 it is set to the average spacing of the nodes. A positive
// smoothing is added to the diagonal of the interpolation matrix, trading
// exact interpolation for a smoother surface.
func FitRBF(xs, ys, zs []float64, kernel Kernel, eps, smoothing float64) (*RBF, error) {
	n := len(xs)
	if len(ys) != n || len(zs) != n {
		return nil, errors.Errorf("smooth: got %d x, %d y and %d z values", len(xs), len(ys), len(zs))
	}

	if n == 0 {
		return nil, errors.New("smooth: no points to fit")
	}

	if eps <= 0 {
		eps = averageSpacing(xs, ys)
	}

	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, kernel.eval(math.Hypot(xs[i]-xs[j], ys[i]-ys[j]), eps))
		}
		a.Set(i, i, a.At(i, i)+smoothing)
	}

	var w mat.VecDense
	if err := w.SolveVec(a, mat.NewVecDense(n, append([]float64(nil), zs...))); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, errors.Wrap(err, "smooth: solving for RBF weights")
		}

		glog.Warningf("RBF interpolation matrix is ill-conditioned: %v", err)
	}

	return &RBF{
		kernel:  kernel,
		eps:     eps,
		xs:      append([]float64(nil), xs...),
		ys:      append([]float64(nil), ys...),
		weights: w.RawVector().Data,
	}, nil
}

// averageSpacing approximates the average distance between nodes from the
// area of their bounding box.
func averageSpacing(xs, ys []float64) float64 {
	dx := span(xs)
	dy := span(ys)
	var eps float64
	switch {
	case dx > 0 && dy > 0:
		eps = math.Sqrt(dx * dy / float64(len(xs)))
	case dx > 0:
		eps = dx / float64(len(xs))
	case dy > 0:
		eps = dy / float64(len(ys))
	}

	if eps <= 0 {
		return 1
	}

	return eps
}

func span(v []float64) float64 {
	lo, hi := v[0], v[0]
	for _, x := range v[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}

	return hi - lo
}

// At evaluates the interpolant at (x, y).
func (f *RBF) At(x, y float64) float64 {
	var z float64
	for i, w := range f.weights {
		z += w * f.kernel.eval(math.Hypot(x-f.xs[i], y-f.ys[i]), f.eps)
	}

	return z
}

// FitResult fits an RBF surface Q(state, action) through every visited,
// feasible (state, action) pair of a learning result.
func FitResult(r *mces.Result, kernel Kernel, smoothing float64) (*RBF, error) {
	q := r.Table.Dense()
	var xs, ys, zs []float64
	for s, x := range r.StateCenters {
		for _, a := range r.Feasible(s) {
			if r.Table.Count(s, a) == 0 {
				continue
			}

			xs = append(xs, x)
			ys = append(ys, r.Actions[a])
			zs = append(zs, q.At(s, a))
		}
	}

	rbf, err := FitRBF(xs, ys, zs, kernel, 0, smoothing)
	if err != nil {
		return nil, errors.Wrapf(err, "fitting run %s", r.RunID)
	}

	glog.V(1).Infof("Fitted RBF surface through %d state-action pairs", len(xs))
	return rbf, nil
}
