package mces

import (
	"runtime"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/timpalpant/go-mces/empirical"
)

// DensityBank holds one empirical next-state distribution per discretized action.
// It is built once before learning and is read-only afterwards.
type DensityBank struct {
	samplers []*empirical.Sampler
}

// NewDensityBank estimates the next-state distribution of each action from
// nShocks simulated transitions, binned on the given state grid.
//
// Each action gets its own random source seeded from rng in action order,
// so the result is deterministic for a given rng even though the samplers
// are built concurrently.
func NewDensityBank(model Model, grid StateGrid, actions []float64, nShocks int, rng *rand.Rand) (*DensityBank, error) {
	if len(actions) == 0 {
		return nil, errors.Wrap(configErr("NumActions", 0, "must be > 0"), "density bank")
	}

	if nShocks <= 0 {
		return nil, errors.Wrap(configErr("NumShocks", nShocks, "must be > 0"), "density bank")
	}

	seeds := make([]uint64, len(actions))
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}

	samplers := make([]*empirical.Sampler, len(actions))
	errs := make([]error, len(actions))
	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers(len(actions)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range work {
				glog.V(1).Infof("Discretizing action %d (%.4f)", a, actions[a])
				actionRng := rand.New(rand.NewSource(seeds[a]))
				samples := model.SampleTransitions(actionRng, actions[a], nShocks)
				samplers[a], errs[a] = empirical.New(samples, grid.Centers, grid.Edges)
			}
		}()
	}

	for a := range actions {
		work <- a
	}
	close(work)
	wg.Wait()

	for a, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(err, "density bank: action %d", a)
		}
	}

	return &DensityBank{samplers: samplers}, nil
}

func numWorkers(n int) int {
	w := runtime.GOMAXPROCS(0)
	if w > n {
		return n
	}

	return w
}

// Len returns the number of actions in the bank.
func (b *DensityBank) Len() int {
	return len(b.samplers)
}

// Sampler returns the next-state distribution of action a.
func (b *DensityBank) Sampler(a int) *empirical.Sampler {
	return b.samplers[a]
}
