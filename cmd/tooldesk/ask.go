package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(c *cli) *cobra.Command {
	var policyID string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd, true)
			if err != nil {
				return err
			}
			term := newTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), c.verbose)
			v, err := a.selector.Lookup(policyID)
			if err != nil {
				return err
			}
			out, err := a.orch.Run(cmd.Context(), strings.Join(args, " "), v)
			if err != nil {
				return err
			}
			term.printTranscript(out)
			term.printAnswer(out.Answer)
			return nil
		},
	}
	cmd.Flags().StringVarP(&policyID, "policy", "p", "A", "Instruction variant id")
	return cmd
}
