package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newToolsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.newApp(cmd, false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, spec := range a.registry.DescribeAll() {
				fmt.Fprintf(out, "%s\n    %s\n", spec.Signature(), spec.Description)
			}
			return nil
		},
	}
}
