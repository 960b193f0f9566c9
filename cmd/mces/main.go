// Command mces trains a Monte Carlo Exploring Starts agent on the
// stochastic optimal growth problem and renders reports of the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/golang/glog"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/timpalpant/go-mces"
	"github.com/timpalpant/go-mces/report"
	"github.com/timpalpant/go-mces/smooth"
)

func main() {
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.AddCommand(trainCmd, plotCmd)

	err := rootCmd.Execute()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mces",
	Short: "Monte Carlo Exploring Starts for the optimal growth problem",
	Long: `mces learns a consumption policy for the stochastic optimal growth
problem with tabular Monte Carlo Exploring Starts.

The next-state distribution of every discretized action is estimated once
from simulated income shocks, then sampled during learning.`,
	SilenceUsage: true,
}

var (
	params      = mces.DefaultParams()
	outPath     string
	htmlPath    string
	pngPath     string
	smoothing   float64
	noSmooth    bool
	densityDraw int
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run MC-ES and write the learned Q-table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := params.Validate(); err != nil {
			return err
		}

		grid, err := mces.NewStateGrid(params.StateMin, params.StateMax, params.NumStates)
		if err != nil {
			return err
		}

		model := params.Model()
		actions := mces.NewActions(params.StateMin, params.StateMax, params.NumActions)
		rng := rand.New(rand.NewSource(params.Seed))

		glog.Infof("Building density bank from %d shocks per action", params.NumShocks)
		bank, err := mces.NewDensityBank(model, grid, actions, params.NumShocks, rng)
		if err != nil {
			return err
		}

		learner, err := mces.New(params, model, grid, actions, bank, rng)
		if err != nil {
			return err
		}

		result, err := learner.Run(ctx, params.Iterations)
		if err != nil {
			return err
		}

		if outPath != "" {
			if err := saveResult(outPath, result); err != nil {
				return err
			}
		}

		var f *smooth.RBF
		var smoothed []float64
		if !noSmooth {
			f, err = smooth.FitResult(result, smooth.Multiquadric, smoothing)
			if err != nil {
				return err
			}
			smoothed = smooth.SmoothedPolicy(f, result.StateCenters, params.StateMin)
		}

		printSummary(result, smoothed)

		if htmlPath != "" {
			densities, err := report.Densities(bank, actions, rng, densityDraw)
			if err != nil {
				return err
			}

			if err := writeHTML(htmlPath, result, f, smoothed, densities); err != nil {
				return err
			}
		}

		if pngPath != "" {
			return writePNG(pngPath, result, smoothed)
		}

		return nil
	},
}

var plotCmd = &cobra.Command{
	Use:   "plot RESULT",
	Short: "Render reports from a saved result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := loadResult(args[0])
		if err != nil {
			return err
		}

		var f *smooth.RBF
		var smoothed []float64
		if !noSmooth {
			f, err = smooth.FitResult(result, smooth.Multiquadric, smoothing)
			if err != nil {
				return err
			}
			smoothed = smooth.SmoothedPolicy(f, result.StateCenters, result.Params.StateMin)
		}

		printSummary(result, smoothed)

		if htmlPath == "" && pngPath == "" {
			return errors.New("nothing to render: set --html and/or --png")
		}

		if htmlPath != "" {
			if err := writeHTML(htmlPath, result, f, smoothed); err != nil {
				return err
			}
		}

		if pngPath != "" {
			return writePNG(pngPath, result, smoothed)
		}

		return nil
	},
}

func init() {
	fs := trainCmd.Flags()
	fs.Float64Var(&params.Theta, "theta", params.Theta, "Risk aversion of the utility 1-exp(-theta*c)")
	fs.Float64Var(&params.Alpha, "alpha", params.Alpha, "Exponent of the transition action^alpha*shock")
	fs.Float64Var(&params.Discount, "discount", params.Discount, "Discount factor")
	fs.Float64Var(&params.StateMin, "state_min", params.StateMin, "Lower bound of the state grid and of consumption")
	fs.Float64Var(&params.StateMax, "state_max", params.StateMax, "Upper bound of the state grid")
	fs.IntVar(&params.NumStates, "states", params.NumStates, "Number of state bins")
	fs.IntVar(&params.NumActions, "actions", params.NumActions, "Number of discretized actions")
	fs.IntVar(&params.NumShocks, "shocks", params.NumShocks, "Shock samples per action for the density bank")
	fs.Float64Var(&params.ShockMu, "shock_mu", params.ShockMu, "Mean of the log income shock")
	fs.Float64Var(&params.ShockSigma, "shock_sigma", params.ShockSigma, "Standard deviation of the log income shock")
	fs.IntVar(&params.Iterations, "iter", params.Iterations, "Number of MC-ES iterations")
	fs.Float64Var(&params.Epsilon, "epsilon", params.Epsilon, "Exploration probability")
	fs.IntVar(&params.ProgressEvery, "progress_every", params.ProgressEvery, "Iterations between progress logs (-v=1)")
	fs.Uint64Var(&params.Seed, "seed", params.Seed, "Random seed")
	fs.StringVar(&outPath, "out", "", "File to save the result to")
	fs.IntVar(&densityDraw, "density_draws", 10000, "Draws per action for the density chart")

	for _, cmd := range []*cobra.Command{trainCmd, plotCmd} {
		cmd.Flags().StringVar(&htmlPath, "html", "", "File to write the HTML report to")
		cmd.Flags().StringVar(&pngPath, "png", "", "File to write the policy PNG to")
		cmd.Flags().Float64Var(&smoothing, "smooth", 1e-3, "RBF smoothing added to the interpolation diagonal")
		cmd.Flags().BoolVar(&noSmooth, "no_smooth", false, "Skip fitting the smoothed policy")
	}
}

func saveResult(path string, result *mces.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating result file")
	}
	defer f.Close()

	if err := result.MarshalTo(f); err != nil {
		return err
	}

	glog.Infof("Saved result %s to %s", result.RunID, path)
	return f.Close()
}

func loadResult(path string) (*mces.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening result file")
	}
	defer f.Close()

	return mces.LoadResult(f)
}

func writeHTML(path string, result *mces.Result, f *smooth.RBF, smoothed []float64, extra ...components.Charter) error {
	charters := append(extra, report.QHeatMap(result), report.PolicyLine(result, smoothed))
	if f != nil {
		charters = append(charters, report.Surface(f, result, 40))
	}

	out, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating HTML report")
	}
	defer out.Close()

	if err := report.Render(out, charters...); err != nil {
		return err
	}

	glog.Infof("Wrote HTML report to %s", path)
	return out.Close()
}

func writePNG(path string, result *mces.Result, smoothed []float64) error {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating PNG")
	}
	defer out.Close()

	if err := report.PolicyPNG(out, result, smoothed); err != nil {
		return err
	}

	glog.Infof("Wrote policy plot to %s", path)
	return out.Close()
}

func printSummary(result *mces.Result, smoothed []float64) {
	fmt.Printf("Run %s: %d iterations\n", aurora.Bold(result.RunID), result.Iterations)
	fmt.Printf("%8s |%8s |%8s |%8s\n", "state", "greedy", "smoothed", "Q")

	pol := result.FeasiblePolicy()
	for s, x := range result.StateCenters {
		a := pol.Actions[s]
		q := result.Table.At(s, a)
		greedy := aurora.Green(fmt.Sprintf("%8.3f", pol.Values[s]))
		if result.Table.Count(s, a) == 0 {
			greedy = aurora.Red(fmt.Sprintf("%8.3f", pol.Values[s]))
		}

		sm := fmt.Sprintf("%8s", "-")
		if len(smoothed) > 0 {
			sm = fmt.Sprintf("%8.3f", smoothed[s])
		}

		fmt.Printf("%8.3f |%s |%s |%8.4f\n", x, greedy, aurora.Blue(sm), q)
	}
}
