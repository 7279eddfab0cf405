package cmds

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/itb-chat/pkg/chatrunner"
)

func newAskCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ask [question...]",
		Short:   "Ask a single question and print the answer",
		Example: `  itb-chat ask "Apa saja fakultas di ITB?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			closer, err := a.initLogging(false)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			client, err := a.newClient()
			if err != nil {
				return err
			}
			cs, err := chatrunner.NewChatBuilder().
				WithContext(cmd.Context()).
				WithClient(client).
				WithMode(chatrunner.RunModeBlocking).
				WithQuestion(strings.Join(args, " ")).
				WithOutputWriter(cmd.OutOrStdout()).
				Build()
			if err != nil {
				return err
			}
			return cs.Run()
		},
	}
}
