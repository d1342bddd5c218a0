package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newChatCmd(c *cli) *cobra.Command {
	var policyID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant until you type exit",
		Long: "Chat reads one question per line and prints the assistant's answer. " +
			"Type /policy to choose another instruction variant and exit (or end the input) to quit.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.newApp(cmd, true)
			if err != nil {
				return err
			}
			term := newTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), c.verbose)
			return c.chat(cmd, a, term, policyID)
		},
	}
	cmd.Flags().StringVarP(&policyID, "policy", "p", "", "Instruction variant id (asked interactively when empty)")
	return cmd
}

func (c *cli) chat(cmd *cobra.Command, a *app, term *terminal, policyID string) error {
	v, err := a.variant(policyID, term.selectVariant)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	fmt.Fprintf(term.out, "Using instruction variant %s. Type exit to quit.\n", v.Label())

	for {
		line, err := term.readLine("You: ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(term.out)
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read input")
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "exit"):
			return nil
		case line == "/policy":
			next, err := term.selectVariant(a.selector)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			v = next
			fmt.Fprintf(term.out, "Using instruction variant %s.\n", v.Label())
			continue
		}

		out, err := a.orch.Run(cmd.Context(), line, v)
		if err != nil {
			c.logger.Error().Err(err).Msg("turn failed")
			fmt.Fprintf(term.errOut, "Error: %v\n", err)
			continue
		}
		term.printTranscript(out)
		term.printAnswer(out.Answer)
	}
}
