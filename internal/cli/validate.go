package cli

import (
	"fmt"
	"log/slog"

	"github.com/BerenMillidge/inferactively/model"
	"github.com/spf13/cobra"
)

func (c *CLI) newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <modelfile>",
		Short: "Check a model file against the generative model invariants",
		Args:  cobra.ExactArgs(1),
		Example: `  inferactively validate model.json
  inferactively validate model.json -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := model.LoadModel(args[0])
			if err != nil {
				return err
			}
			slog.Debug("Model validated",
				"state_space", m.StateSpace,
				"observation_space", m.ObservationSpace)
			fmt.Printf("%s: OK (%d factors, %d modalities)\n", args[0], m.NumFactors(), m.NumModalities())
			return nil
		},
	}
}
