package mces

import (
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
)

// Result is the output of a learning run: the final Q-table and the greedy
// policy derived from it, along with the discretization they refer to.
type Result struct {
	RunID  string
	Params Params

	StateCenters []float64
	StateEdges   []float64
	Actions      []float64

	Iterations int
	Table      *QTable
	Policy     Policy
}

// Feasible returns the feasible action indices of state s.
func (r *Result) Feasible(s int) []int {
	return FeasibleActions(r.Params.Model(), r.Actions, r.StateCenters[s])
}

// FeasiblePolicy returns the greedy policy restricted to feasible actions.
func (r *Result) FeasiblePolicy() Policy {
	return GreedyFeasiblePolicy(r.Table, r.Actions, r.Feasible)
}

// MarshalTo writes the result to the given io.Writer.
// It exports a finished run for plotting and reporting; learning cannot
// be resumed from it.
func (r *Result) MarshalTo(w io.Writer) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, "encoding result")
	}

	return nil
}

// LoadResult reads a result written by MarshalTo.
func LoadResult(r io.Reader) (*Result, error) {
	dec := gob.NewDecoder(r)
	var result Result
	if err := dec.Decode(&result); err != nil {
		return nil, errors.Wrap(err, "decoding result")
	}

	if result.Table == nil {
		return nil, errors.New("decoding result: missing Q-table")
	}

	n := result.Table.NumStates * result.Table.NumActions
	if len(result.Table.Q) != n || len(result.StateCenters) != result.Table.NumStates ||
		len(result.Actions) != result.Table.NumActions {
		return nil, errors.Errorf("decoding result: inconsistent shape %dx%d",
			result.Table.NumStates, result.Table.NumActions)
	}

	return &result, nil
}
