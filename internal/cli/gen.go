package cli

import (
	"fmt"
	"log/slog"

	"github.com/BerenMillidge/inferactively/model"
	"github.com/spf13/cobra"
)

func (c *CLI) newGenCommand() *cobra.Command {
	var statesSpec string
	var outcomesSpec string
	var kind string
	var seed uint64

	cmd := &cobra.Command{
		Use:   "gen [modelfile]",
		Short: "Generate a model file for the given state space",
		Long: `Generate a generative model file. The identity kind maps each hidden
factor one-to-one onto its own observation modality, as in the grid-world
tutorial setup; random draws column-normalized likelihoods from a seed.`,
		Args: cobra.MaximumNArgs(1),
		Example: `  # Identity model over two 4-state factors, written to model.json
  inferactively gen model.json --states 4,4

  # Random model with its own observation space, printed to stdout
  inferactively gen --states 4,4 --outcomes 3,5 --kind random --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := parseIndexList(statesSpec)
			if err != nil {
				return fmt.Errorf("parse --states: %w", err)
			}

			var m *model.Model
			switch kind {
			case "identity":
				if outcomesSpec != "" {
					return fmt.Errorf("--outcomes only applies to --kind uniform or random")
				}
				m = model.Identity(states)
			case "uniform", "random":
				outcomes := states
				if outcomesSpec != "" {
					outcomes, err = parseIndexList(outcomesSpec)
					if err != nil {
						return fmt.Errorf("parse --outcomes: %w", err)
					}
				}
				if kind == "uniform" {
					m = model.Uniform(states, outcomes)
				} else {
					m = model.Random(states, outcomes, seed)
				}
			default:
				return fmt.Errorf("unknown model kind %q", kind)
			}

			if err := m.Validate(); err != nil {
				return err
			}

			if len(args) == 1 {
				if err := model.SaveModel(m, args[0]); err != nil {
					return err
				}
				slog.Info("Model written", "path", args[0], "states", m.StateSpace, "outcomes", m.ObservationSpace)
				return nil
			}
			data, err := model.MarshalModel(m)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&statesSpec, "states", "", "Hidden factor sizes (e.g. 4,4)")
	cmd.Flags().StringVar(&outcomesSpec, "outcomes", "", "Modality outcome counts (defaults to --states)")
	cmd.Flags().StringVar(&kind, "kind", "identity", "Model kind: identity, uniform or random")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for --kind random")
	_ = cmd.MarkFlagRequired("states")
	return cmd
}
