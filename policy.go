package mces

import (
	"gonum.org/v1/gonum/floats"
)

// Policy is a deterministic policy: one action per state.
type Policy struct {
	Actions []int     // Action index of each state.
	Values  []float64 // Action value of each state.
}

// GreedyPolicy returns the action maximizing Q(s, :) for each state.
// Ties are broken by the lowest action index, so the result is a pure
// function of the table.
func GreedyPolicy(qt *QTable, actions []float64) Policy {
	pol := Policy{
		Actions: make([]int, qt.NumStates),
		Values:  make([]float64, qt.NumStates),
	}

	for s := 0; s < qt.NumStates; s++ {
		a := floats.MaxIdx(qt.Row(s))
		pol.Actions[s] = a
		pol.Values[s] = actions[a]
	}

	return pol
}

// GreedyFeasiblePolicy is like GreedyPolicy, but only considers the
// actions returned by feasible for each state.
func GreedyFeasiblePolicy(qt *QTable, actions []float64, feasible func(s int) []int) Policy {
	pol := Policy{
		Actions: make([]int, qt.NumStates),
		Values:  make([]float64, qt.NumStates),
	}

	for s := 0; s < qt.NumStates; s++ {
		row := qt.Row(s)
		best := -1
		for _, a := range feasible(s) {
			if best < 0 || row[a] > row[best] {
				best = a
			}
		}

		if best < 0 {
			best = floats.MaxIdx(row)
		}

		pol.Actions[s] = best
		pol.Values[s] = actions[best]
	}

	return pol
}
