package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/tcnksm/go-input"

	"github.com/skosovsky/tooldesk/conversation"
	"github.com/skosovsky/tooldesk/policy"
)

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// terminal is the line-oriented user interface of chat and ask.
type terminal struct {
	in      *bufio.Reader
	rawIn   io.Reader
	out     io.Writer
	errOut  io.Writer
	verbose bool
	// markdown renders answers with glamour; set when out is a terminal.
	markdown bool
}

func newTerminal(in io.Reader, out, errOut io.Writer, verbose bool) *terminal {
	return &terminal{
		in:       bufio.NewReader(in),
		rawIn:    in,
		out:      out,
		errOut:   errOut,
		verbose:  verbose,
		markdown: isTerminal(out),
	}
}

// readLine prompts and returns the next line without its line ending. It returns io.EOF when
// input is exhausted.
func (t *terminal) readLine(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// selectVariant asks the user to pick an instruction variant. On a terminal the go-input menu
// is used; otherwise the variant id is read as a line.
func (t *terminal) selectVariant(s *policy.Selector) (policy.Variant, error) {
	variants := s.Variants()
	if isTerminal(t.rawIn) {
		labels := make([]string, len(variants))
		for i, v := range variants {
			labels[i] = v.Label()
		}
		ui := &input.UI{Writer: t.out, Reader: t.rawIn}
		choice, err := ui.Select("Choose an instruction variant", labels, &input.Options{
			Default:  labels[0],
			Loop:     true,
			Required: true,
		})
		if err != nil {
			return policy.Variant{}, errors.Wrap(err, "select policy")
		}
		for i, label := range labels {
			if label == choice {
				return variants[i], nil
			}
		}
		return policy.Variant{}, errors.Errorf("select policy: unexpected choice %q", choice)
	}

	fmt.Fprintln(t.out, "Choose an instruction variant:")
	for _, v := range variants {
		fmt.Fprintf(t.out, "  %s\n", v.Label())
	}
	for {
		line, err := t.readLine(fmt.Sprintf("Variant [%s]: ", strings.Join(s.IDs(), "/")))
		if err != nil {
			return policy.Variant{}, err
		}
		v, err := s.Lookup(line)
		if err == nil {
			return v, nil
		}
		fmt.Fprintln(t.errOut, err)
	}
}

// printAnswer writes the final answer, rendered as markdown on a terminal.
func (t *terminal) printAnswer(answer string) {
	if t.markdown {
		if styled, err := glamour.Render(answer, "dark"); err == nil {
			fmt.Fprintf(t.out, "AI:%s", styled)
			return
		}
	}
	fmt.Fprintf(t.out, "AI: %s\n", answer)
}

// printTranscript writes the tool call and result of a turn when verbose output is on.
func (t *terminal) printTranscript(out *conversation.Outcome) {
	if !t.verbose {
		return
	}
	for _, m := range out.Messages {
		switch {
		case m.ToolCall != nil:
			fmt.Fprintf(t.errOut, "[tool call] %s %s\n", m.ToolCall.Name, m.ToolCall.Arguments)
		case m.Role == conversation.RoleTool:
			fmt.Fprintf(t.errOut, "[tool result] %s\n", m.Content)
		}
	}
	if out.Failure != nil {
		fmt.Fprintf(t.errOut, "[tool error] %v\n", out.Failure)
	}
}
