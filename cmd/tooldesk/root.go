package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/skosovsky/tooldesk/config"
	"github.com/skosovsky/tooldesk/conversation"
)

// cli carries state shared by the subcommands. completer replaces the OpenAI client when set.
type cli struct {
	completer conversation.Completer
	logger    zerolog.Logger
	verbose   bool
}

func newRootCmd(completer conversation.Completer) *cobra.Command {
	c := &cli{completer: completer, logger: zerolog.Nop()}
	root := &cobra.Command{
		Use:          "tooldesk",
		Short:        "tooldesk answers questions using unit, currency and weather tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			format, _ := cmd.Flags().GetString("log-format")
			logger, err := initLogger(cmd.ErrOrStderr(), level, format)
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (json, text)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Print the tool call and result of every turn")
	config.RegisterFlags(flags)

	root.AddCommand(
		newChatCmd(c),
		newAskCmd(c),
		newToolsCmd(c),
		newPromptCmd(c),
	)
	return root
}

// initLogger configures the global zerolog logger and returns it.
func initLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), errors.Wrapf(err, "invalid --log-level %q", level)
	}
	var out io.Writer
	switch format {
	case "text":
		out = zerolog.ConsoleWriter{Out: w, NoColor: w != os.Stderr}
	case "json":
		out = w
	default:
		return zerolog.Nop(), errors.Errorf("invalid --log-format %q (json, text)", format)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger, nil
}
