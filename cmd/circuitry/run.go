package main

import (
	"os"

	"github.com/aretw0/circuitry/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Simulate a circuit file and print the settled state",
	Long: `Loads a circuit description, drives the inputs given with --set, propagates
and prints every input and output.

  circuitry run adder.yaml --set a=1 --set b=1 --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		sets, _ := cmd.Flags().GetStringArray("set")
		format, _ := cmd.Flags().GetString("format")

		opts := setupOptions(cmd, args[0])
		opts.Sets = sets
		env, err := cli.Setup(cmd.Context(), opts, logger)
		if err != nil {
			return err
		}
		defer env.Close()

		return cli.WriteReport(cmd.OutOrStdout(), env.Bench.Graph(), format, isTTY(os.Stdout))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArray("set", nil, "Drive an input: id=true|false (repeatable)")
	runCmd.Flags().StringP("format", "f", cli.FormatText, "Output format: text, markdown or json")
}
