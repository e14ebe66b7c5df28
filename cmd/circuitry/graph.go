package main

import (
	"fmt"

	"github.com/aretw0/circuitry/internal/cli"
	"github.com/aretw0/circuitry/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph FILE",
	Short: "Export the circuit as a Mermaid diagram",
	Long:  `Loads a circuit description and prints a Mermaid flowchart (graph LR). Circuit instances become sub-graphs.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		sets, _ := cmd.Flags().GetStringArray("set")
		values, _ := cmd.Flags().GetBool("values")

		opts := setupOptions(cmd, args[0])
		opts.Sets = sets
		env, err := cli.Setup(cmd.Context(), opts, logger)
		if err != nil {
			return err
		}
		defer env.Close()

		var overlay *graph.GraphOverlay
		if values {
			overlay = &graph.GraphOverlay{Values: true}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(env.Bench.Graph(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().Bool("values", false, "Color nodes by their settled value")
	graphCmd.Flags().StringArray("set", nil, "Drive an input before exporting: id=true|false (repeatable)")
}
