package cmds

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/itb-chat/pkg/chatrunner"
	"github.com/go-go-golems/itb-chat/pkg/events"
	"github.com/go-go-golems/itb-chat/pkg/ui"
)

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newChatCommand(a *app) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: "Start an interactive chat session. The terminal UI is used when stdin and " +
			"stdout are terminals; otherwise questions are read one per line from stdin.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := chatrunner.RunModeChat
			if plain || !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
				mode = chatrunner.RunModePlain
			}

			closer, err := a.initLogging(mode == chatrunner.RunModeChat)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			client, err := a.newClient()
			if err != nil {
				return err
			}
			bus, err := events.BuildBus(a.settings.Events)
			if err != nil {
				return err
			}
			defer func() {
				if err := bus.Close(); err != nil {
					log.Warn().Err(err).Msg("could not close event bus")
				}
			}()

			cs, err := chatrunner.NewChatBuilder().
				WithContext(cmd.Context()).
				WithClient(client).
				WithBus(bus, a.settings.Events.RedisGroup).
				WithMode(mode).
				WithUIOptions(
					ui.WithMarkdown(a.settings.UI.Markdown, a.settings.UI.Style),
					ui.WithHelp(a.settings.UI.ShowHelp),
				).
				WithInput(cmd.InOrStdin()).
				WithOutputWriter(cmd.OutOrStdout()).
				Build()
			if err != nil {
				return err
			}
			return cs.Run()
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "read questions line by line instead of starting the terminal UI")
	return cmd
}
