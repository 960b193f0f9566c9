// Package empirical implements a binned empirical distribution that is
// built once from a batch of raw samples and can then be sampled from
// by inverting its cumulative distribution function.
package empirical

import (
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// Relative tolerance used when checking that the bin edges are equally spaced.
const widthTol = 1e-9

// ErrEmpty is returned when sampling from a distribution whose construction
// batch had no samples inside the bin range.
var ErrEmpty = errors.New("empirical: distribution has no mass inside the bin range")

// Sampler is a piecewise-constant density over fixed, equal-width bins.
// It is immutable once constructed and safe for concurrent use as long as each
// goroutine passes its own random source.
type Sampler struct {
	edges   []float64 // N+1 bin edges.
	centers []float64 // N bin centers.
	density []float64 // N density values.
	cdf     []float64 // N+1 cumulative probabilities at each edge.
	width   float64

	// Index of the last bin with non-zero mass, or -1 if the density is empty.
	lastNonEmpty int
}

// Histogram is a density estimate of a sample batch over a Sampler's bins.
type Histogram struct {
	// Left edge of each bin.
	Edges   []float64
	Density []float64
	Width   float64
	// Number of samples that fell inside the bin range.
	Counted int
	// Number of samples that fell outside every bin and were dropped.
	Dropped int
}

// New builds a Sampler from the given raw samples. centers must contain one
// value per bin and edges the len(centers)+1 sorted, equally spaced bin edges.
//
// Each sample is counted in the first bin [edges[i], edges[i+1]) that contains it;
// samples outside of all bins are dropped. The density is normalized by the
// number of counted samples so that it integrates to 1 over the bin range.
func New(samples, centers, edges []float64) (*Sampler, error) {
	width, err := checkBins(centers, edges)
	if err != nil {
		return nil, err
	}

	s := &Sampler{
		edges:   append([]float64(nil), edges...),
		centers: append([]float64(nil), centers...),
		width:   width,
	}

	h := s.Hist(samples)
	s.density = h.Density
	s.cdf = make([]float64, len(edges))
	for i, d := range s.density {
		s.cdf[i+1] = s.cdf[i] + d*width
	}

	s.lastNonEmpty = -1
	for i := len(s.density) - 1; i >= 0; i-- {
		if s.density[i] > 0 {
			s.lastNonEmpty = i
			break
		}
	}

	return s, nil
}

func checkBins(centers, edges []float64) (float64, error) {
	if len(centers) < 1 {
		return 0, errors.Errorf("empirical: need at least one bin, got %d", len(centers))
	}

	if len(edges) != len(centers)+1 {
		return 0, errors.Errorf("empirical: got %d edges for %d bins, expected %d",
			len(edges), len(centers), len(centers)+1)
	}

	width := edges[1] - edges[0]
	if !(width > 0) {
		return 0, errors.Errorf("empirical: degenerate bin width %v", width)
	}

	for i := 1; i < len(edges)-1; i++ {
		w := edges[i+1] - edges[i]
		if !scalar.EqualWithinRel(w, width, widthTol) && !scalar.EqualWithinAbs(w, width, widthTol) {
			return 0, errors.Errorf("empirical: bin %d has width %v, expected %v", i, w, width)
		}
	}

	return width, nil
}

// Width returns the (constant) bin width.
func (s *Sampler) Width() float64 {
	return s.width
}

// Centers returns a copy of the N bin centers.
func (s *Sampler) Centers() []float64 {
	return append([]float64(nil), s.centers...)
}

// Density returns a copy of the N density values.
func (s *Sampler) Density() []float64 {
	return append([]float64(nil), s.density...)
}

// CDF returns a copy of the N+1 cumulative probabilities at each bin edge.
func (s *Sampler) CDF() []float64 {
	return append([]float64(nil), s.cdf...)
}

// Empty reports whether no construction sample fell inside the bin range.
func (s *Sampler) Empty() bool {
	return s.lastNonEmpty < 0
}

// SampleIndex draws one bin index from the distribution.
func (s *Sampler) SampleIndex(rng *rand.Rand) (int, error) {
	if s.Empty() {
		return 0, ErrEmpty
	}

	return s.invert(rng.Float64()), nil
}

// SampleValue draws one bin-center value from the distribution.
func (s *Sampler) SampleValue(rng *rand.Rand) (float64, error) {
	i, err := s.SampleIndex(rng)
	if err != nil {
		return 0, err
	}

	return s.centers[i], nil
}

// SampleIndices draws n bin indices from the distribution.
func (s *Sampler) SampleIndices(rng *rand.Rand, n int) ([]int, error) {
	if s.Empty() {
		return nil, ErrEmpty
	}

	result := make([]int, n)
	for i := range result {
		result[i] = s.invert(rng.Float64())
	}

	return result, nil
}

// SampleValues draws n bin-center values from the distribution.
func (s *Sampler) SampleValues(rng *rand.Rand, n int) ([]float64, error) {
	indices, err := s.SampleIndices(rng, n)
	if err != nil {
		return nil, err
	}

	result := make([]float64, n)
	for i, idx := range indices {
		result[i] = s.centers[idx]
	}

	return result, nil
}

// invert returns the first bin i with cdf[i] <= u < cdf[i+1].
// Since cdf is non-decreasing this is the first i with cdf[i+1] > u.
// If u falls beyond the last populated cdf value (floating point shortfall
// of the running sum) the last bin with non-zero mass is returned.
func (s *Sampler) invert(u float64) int {
	n := len(s.centers)
	i := sort.Search(n, func(i int) bool { return s.cdf[i+1] > u })
	if i >= n {
		return s.lastNonEmpty
	}

	return i
}

// Hist re-histograms the given samples against this Sampler's bins.
// It does not modify the Sampler.
func (s *Sampler) Hist(samples []float64) Histogram {
	n := len(s.centers)
	counts := make([]float64, n)
	var counted, dropped int
	for _, x := range samples {
		i, ok := s.bin(x)
		if !ok {
			dropped++
			continue
		}

		counts[i]++
		counted++
	}

	density := make([]float64, n)
	if counted > 0 {
		floats.ScaleTo(density, 1.0/(float64(counted)*s.width), counts)
	}

	return Histogram{
		Edges:   append([]float64(nil), s.edges[:n]...),
		Density: density,
		Width:   s.width,
		Counted: counted,
		Dropped: dropped,
	}
}

// bin returns the first bin [edges[i], edges[i+1]) containing x.
func (s *Sampler) bin(x float64) (int, bool) {
	n := len(s.centers)
	if !(x >= s.edges[0] && x < s.edges[n]) {
		return 0, false
	}

	// First edge strictly greater than x closes the containing bin.
	i := sort.Search(n+1, func(i int) bool { return s.edges[i] > x }) - 1
	if i < 0 || i >= n {
		return 0, false
	}

	return i, true
}
