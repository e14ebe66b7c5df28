package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/circuitry/internal/runtime"
	"github.com/aretw0/circuitry/pkg/loader"
	"github.com/spf13/cobra"
)

var errInvalid = errors.New("circuit has errors")

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a circuit file for wiring problems",
	Long:  `Reports loops, unknown operations, dangling wires and doubly driven pins. Exits non-zero when any finding is an error.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loader.Load(args[0])
		if err != nil {
			return err
		}

		findings := runtime.NewEngine().Validate(snap.Graph())
		out := cmd.OutOrStdout()
		for _, f := range findings {
			fmt.Fprintln(out, f.Error())
		}
		if runtime.HasErrors(findings) {
			return errInvalid
		}
		fmt.Fprintln(out, "Circuit is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
