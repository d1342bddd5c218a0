package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPromptCmd(c *cli) *cobra.Command {
	var policyID string
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the system prompt composed for an instruction variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.newApp(cmd, false)
			if err != nil {
				return err
			}
			v, err := a.selector.Lookup(policyID)
			if err != nil {
				return err
			}
			text, err := a.composer.Compose(v, a.registry.DescribeAll())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&policyID, "policy", "p", "A", "Instruction variant id")
	return cmd
}
