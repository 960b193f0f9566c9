package mces

import (
	"github.com/pkg/errors"
)

// Params are the configuration options for an MC-ES experiment.
// They are fixed for the duration of a run.
type Params struct {
	Theta    float64 // Risk aversion of the utility function.
	Alpha    float64 // Income elasticity of the transition.
	Discount float64 // Discount factor of the continuation term.

	StateMin float64
	StateMax float64

	NumStates  int // Number of state bins.
	NumActions int // Number of discretized actions.

	// Log-normal income shock: exp(N(ShockMu, ShockSigma^2)).
	NumShocks  int // Shock samples per action used to build the density bank.
	ShockMu    float64
	ShockSigma float64

	Iterations int
	Epsilon    float64 // Probability of exploring a uniformly random feasible action.

	// Iterations between progress log lines, 0 disables progress logging.
	ProgressEvery int
	Seed          uint64
}

// DefaultParams returns the reference configuration of the optimal
// growth consumption/savings problem.
func DefaultParams() Params {
	return Params{
		Theta:         0.5,
		Alpha:         0.8,
		Discount:      0.9,
		StateMin:      0.0,
		StateMax:      8.0,
		NumStates:     30,
		NumActions:    30,
		NumShocks:     100000,
		ShockMu:       0.0,
		ShockSigma:    1.0,
		Iterations:    5000000,
		Epsilon:       0.1,
		ProgressEvery: 1000,
		Seed:          1,
	}
}

// Validate checks the parameters for configuration errors.
func (p Params) Validate() error {
	var err error
	switch {
	case !(p.Theta > 0):
		err = configErr("Theta", p.Theta, "must be > 0")
	case !(p.Alpha > 0 && p.Alpha < 1):
		err = configErr("Alpha", p.Alpha, "must be in (0, 1)")
	case !(p.Discount >= 0 && p.Discount <= 1):
		err = configErr("Discount", p.Discount, "must be in [0, 1]")
	case !(p.StateMax > p.StateMin):
		err = configErr("StateMax", p.StateMax, "must be > StateMin, bins would have zero width")
	case p.NumStates <= 0:
		err = configErr("NumStates", p.NumStates, "must be > 0")
	case p.NumActions <= 0:
		err = configErr("NumActions", p.NumActions, "must be > 0")
	case p.NumShocks <= 0:
		err = configErr("NumShocks", p.NumShocks, "must be > 0")
	case !(p.ShockSigma > 0):
		err = configErr("ShockSigma", p.ShockSigma, "must be > 0")
	case p.Iterations < 0:
		err = configErr("Iterations", p.Iterations, "must be >= 0")
	case !(p.Epsilon >= 0 && p.Epsilon <= 1):
		err = configErr("Epsilon", p.Epsilon, "must be in [0, 1]")
	case p.ProgressEvery < 0:
		err = configErr("ProgressEvery", p.ProgressEvery, "must be >= 0")
	}

	return errors.Wrap(err, "mces")
}

// Model returns the transition and reward model for these parameters.
func (p Params) Model() Model {
	return Model{
		Theta:      p.Theta,
		Alpha:      p.Alpha,
		Discount:   p.Discount,
		StateMin:   p.StateMin,
		ShockMu:    p.ShockMu,
		ShockSigma: p.ShockSigma,
	}
}
