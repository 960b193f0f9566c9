package mces

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Model is the optimal growth consumption/savings problem.
//
// The next state is action^Alpha * z for a log-normal income shock z.
// It does not depend on the state the action was taken from, so the
// transition distribution of an action can be estimated once, from a
// nominal state of 0, and reused for every state.
type Model struct {
	Theta    float64
	Alpha    float64
	Discount float64
	StateMin float64

	ShockMu    float64
	ShockSigma float64
}

// Transition returns the raw next-state value for the given shock.
// The state argument is ignored.
func (m Model) Transition(state, action, shock float64) float64 {
	return math.Pow(action, m.Alpha) * shock
}

// Utility is the one-period utility of consuming c units.
func (m Model) Utility(c float64) float64 {
	return 1 - math.Exp(-m.Theta*c)
}

// Reward is the one-step return of consuming state-action and ending up in next.
func (m Model) Reward(state, action, next float64) float64 {
	return m.Utility(state-action) + m.Discount*m.Utility(next)
}

// Feasible reports whether action may be taken in a state with value state.
func (m Model) Feasible(action, state float64) bool {
	return m.StateMin <= action && action <= state
}

// SampleShocks draws n i.i.d. income shocks.
func (m Model) SampleShocks(rng *rand.Rand, n int) []float64 {
	dist := distuv.LogNormal{Mu: m.ShockMu, Sigma: m.ShockSigma, Src: rng}
	shocks := make([]float64, n)
	for i := range shocks {
		shocks[i] = dist.Rand()
	}

	return shocks
}

// SampleTransitions draws n next-state values for the given action,
// taken from the nominal state 0.
func (m Model) SampleTransitions(rng *rand.Rand, action float64, n int) []float64 {
	samples := m.SampleShocks(rng, n)
	for i, z := range samples {
		samples[i] = m.Transition(0, action, z)
	}

	return samples
}
