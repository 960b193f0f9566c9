package mces

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// QTable implements tabular Monte Carlo estimation of action values by
// accumulating observed returns and visit counts for each (state, action) pair.
//
// Q is the sample mean of all returns observed for the pair: Q = Rewards / Counter.
// Unvisited pairs have Q = 0.
type QTable struct {
	NumStates  int
	NumActions int

	// Row-major (state, action) arrays.
	Q       []float64
	Counter []float64
	Rewards []float64
}

// NewQTable creates a zero-initialized QTable.
func NewQTable(nStates, nActions int) *QTable {
	n := nStates * nActions
	return &QTable{
		NumStates:  nStates,
		NumActions: nActions,
		Q:          make([]float64, n),
		Counter:    make([]float64, n),
		Rewards:    make([]float64, n),
	}
}

func (qt *QTable) idx(s, a int) int {
	return s*qt.NumActions + a
}

// Add records one observed return g for (s, a) and updates its mean.
func (qt *QTable) Add(s, a int, g float64) {
	i := qt.idx(s, a)
	qt.Counter[i]++
	qt.Rewards[i] += g
	qt.Q[i] = qt.Rewards[i] / qt.Counter[i]
}

// At returns the current estimate of Q(s, a).
func (qt *QTable) At(s, a int) float64 {
	return qt.Q[qt.idx(s, a)]
}

// Count returns the number of returns observed for (s, a).
func (qt *QTable) Count(s, a int) int {
	return int(qt.Counter[qt.idx(s, a)])
}

// Row returns Q(s, :). The returned slice aliases the table.
func (qt *QTable) Row(s int) []float64 {
	i := qt.idx(s, 0)
	return qt.Q[i : i+qt.NumActions]
}

// Visited counts the feasible pairs (feasible returns the action indices
// of a state) and how many of them have been visited at least once.
func (qt *QTable) Visited(feasible func(s int) []int) (visited, total int) {
	for s := 0; s < qt.NumStates; s++ {
		for _, a := range feasible(s) {
			total++
			if qt.Counter[qt.idx(s, a)] > 0 {
				visited++
			}
		}
	}

	return visited, total
}

// HasNaN reports whether any Q value is NaN or infinite.
func (qt *QTable) HasNaN() bool {
	for _, q := range qt.Q {
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return true
		}
	}

	return false
}

// Dense returns a copy of Q as a (state x action) matrix.
func (qt *QTable) Dense() *mat.Dense {
	return mat.NewDense(qt.NumStates, qt.NumActions, append([]float64(nil), qt.Q...))
}
