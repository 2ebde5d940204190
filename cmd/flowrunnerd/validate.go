package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowrunner-dev/flowrunner/engine"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow-file]",
	Short: "Validate a flow definition without running it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(_ *cobra.Command, args []string) error {
	flow, err := engine.LoadFlowFile(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("flow %q is valid: %d step(s)\n", flow.Name, len(flow.Steps))
	return nil
}
