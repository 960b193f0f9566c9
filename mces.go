package mces

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// MCES performs Monte Carlo control with exploring starts and ε-greedy
// action selection. Each iteration is a single-transition episode from a
// uniformly random starting state.
//
// MCES is not safe for concurrent use: every iteration reads and writes
// the Q-table that the next iteration's action selection depends on.
type MCES struct {
	params  Params
	model   Model
	grid    StateGrid
	actions []float64
	bank    *DensityBank
	rng     *rand.Rand

	feasible [][]int // state -> feasible action indices.
	table    *QTable
	iter     int

	// Scratch space for the Q-values of the feasible actions.
	qvals []float64
}

// New creates a new MC-ES learner with a zero-initialized Q-table.
func New(params Params, model Model, grid StateGrid, actions []float64, bank *DensityBank, rng *rand.Rand) (*MCES, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if bank == nil {
		return nil, errors.Wrap(configErr("DensityBank", nil, "is required"), "mces")
	}

	if bank.Len() != len(actions) {
		return nil, errors.Wrap(configErr("NumActions", len(actions),
			fmt.Sprintf("density bank has %d actions", bank.Len())), "mces")
	}

	feasible := make([][]int, grid.Len())
	for s, x := range grid.Centers {
		feasible[s] = FeasibleActions(model, actions, x)
		if len(feasible[s]) == 0 {
			return nil, errors.Wrap(configErr("State", x,
				"admits no feasible action, the smallest action must not exceed any state"), "mces")
		}
	}

	for a := 0; a < bank.Len(); a++ {
		if bank.Sampler(a).Empty() {
			return nil, errors.Wrap(configErr("Action", actions[a],
				"has no simulated transitions inside the state range"), "mces")
		}
	}

	return &MCES{
		params:   params,
		model:    model,
		grid:     grid,
		actions:  actions,
		bank:     bank,
		rng:      rng,
		feasible: feasible,
		table:    NewQTable(grid.Len(), len(actions)),
	}, nil
}

// FeasibleActions returns the indices of all actions a with
// StateMin <= actions[a] <= state.
func FeasibleActions(model Model, actions []float64, state float64) []int {
	var result []int
	for a, u := range actions {
		if model.Feasible(u, state) {
			result = append(result, a)
		}
	}

	return result
}

// Feasible returns the feasible action indices of state s.
// The returned slice must not be modified.
func (c *MCES) Feasible(s int) []int {
	return c.feasible[s]
}

// Table returns the learner's Q-table.
func (c *MCES) Table() *QTable {
	return c.table
}

// Iter returns the number of completed iterations.
func (c *MCES) Iter() int {
	return c.iter
}

// Run performs the given number of MC-ES iterations and returns the result.
// The context is checked between progress reports.
func (c *MCES) Run(ctx context.Context, iterations int) (*Result, error) {
	runID := uuid.New().String()
	glog.Infof("[%s] Running MC-ES: %d states, %d actions, %d iterations, epsilon=%.3f",
		runID, c.grid.Len(), len(c.actions), iterations, c.params.Epsilon)

	every := c.params.ProgressEvery
	for i := 0; i < iterations; i++ {
		if every > 0 && i%every == 0 {
			glog.V(1).Infof("[%s] Iter. %d", runID, i)
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrapf(err, "mces: stopped after %d iterations", i)
			}
		}

		c.Step()
	}

	visited, reachable := c.table.Visited(c.Feasible)
	glog.Infof("[%s] Done: visited %d of %d feasible state-action pairs", runID, visited, reachable)

	return c.result(runID), nil
}

// Step performs a single MC-ES iteration.
func (c *MCES) Step() {
	// Exploring start.
	s := c.rng.Intn(c.grid.Len())
	x := c.grid.Centers[s]

	a := c.selectAction(s)
	sampler := c.bank.Sampler(a)

	// The next state is recorded for diagnostics only; the continuation term
	// of the return is estimated from a second, independent draw.
	next, err := sampler.SampleIndex(c.rng)
	if err != nil {
		panic(fmt.Errorf("sampling next state of action %d: %v", a, err))
	}

	cont, err := sampler.SampleValue(c.rng)
	if err != nil {
		panic(fmt.Errorf("sampling continuation of action %d: %v", a, err))
	}

	g := c.model.Reward(x, c.actions[a], cont)
	c.table.Add(s, a, g)
	c.iter++

	if glog.V(2) {
		glog.Infof("iter=%d state=%d action=%d next=%d return=%.4f q=%.4f",
			c.iter, s, a, next, g, c.table.At(s, a))
	}
}

func (c *MCES) selectAction(s int) int {
	poss := c.feasible[s]
	if c.rng.Float64() < c.params.Epsilon {
		return poss[c.rng.Intn(len(poss))]
	}

	c.qvals = c.qvals[:0]
	for _, a := range poss {
		c.qvals = append(c.qvals, c.table.At(s, a))
	}

	a, err := ArgmaxQ(c.rng, poss, c.qvals)
	if err != nil {
		panic(err)
	}

	return a
}

// ArgmaxQ returns the action with the largest Q-value. Ties are broken
// uniformly at random among all maximizing actions.
func ArgmaxQ(rng *rand.Rand, actions []int, qvals []float64) (int, error) {
	if len(actions) != len(qvals) {
		return 0, errors.Errorf("argmax: got %d actions but %d Q-values", len(actions), len(qvals))
	}

	if len(actions) == 0 {
		return 0, errors.New("argmax: no actions")
	}

	maxq := qvals[0]
	for _, q := range qvals[1:] {
		if q > maxq {
			maxq = q
		}
	}

	// Reservoir sample one of the maximizers.
	selected, nMax := -1, 0
	for i, q := range qvals {
		if q == maxq {
			nMax++
			if rng.Intn(nMax) == 0 {
				selected = actions[i]
			}
		}
	}

	if selected < 0 {
		return 0, errors.Errorf("argmax: no comparable Q-value in %v", qvals)
	}

	return selected, nil
}

func (c *MCES) result(runID string) *Result {
	return &Result{
		RunID:        runID,
		Params:       c.params,
		StateCenters: append([]float64(nil), c.grid.Centers...),
		StateEdges:   append([]float64(nil), c.grid.Edges...),
		Actions:      append([]float64(nil), c.actions...),
		Iterations:   c.iter,
		Table:        c.table,
		Policy:       GreedyPolicy(c.table, c.actions),
	}
}
