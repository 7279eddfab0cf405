package cmds

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/itb-chat/pkg/config"
	"github.com/go-go-golems/itb-chat/pkg/logging"
	"github.com/go-go-golems/itb-chat/pkg/qa"
)

// Version is set at build time with
// -ldflags "-X github.com/go-go-golems/itb-chat/cmd/itb-chat/cmds.Version=v0.1.0".
var Version = "dev"

// app carries the settings resolved by the root command to the subcommands.
type app struct {
	loader   *config.Loader
	settings config.Settings
}

func NewRootCommand() (*cobra.Command, error) {
	a := &app{loader: config.NewLoader()}

	rootCmd := &cobra.Command{
		Use:           "itb-chat",
		Short:         "itb-chat is a terminal client for the ITB information chatbot",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			a.settings, err = a.loader.Load(configFile)
			return err
		},
	}
	if err := a.loader.AddFlags(rootCmd.PersistentFlags()); err != nil {
		return nil, err
	}

	rootCmd.AddCommand(
		newChatCommand(a),
		newAskCommand(a),
		newConfigCommand(a),
	)
	return rootCmd, nil
}

// initLogging configures the global logger; tui drops logs unless a log file
// is configured.
func (a *app) initLogging(tui bool) (io.Closer, error) {
	closer, err := logging.Init(a.settings.Log, tui)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize logging")
	}
	if used := a.loader.ConfigFileUsed(); used != "" {
		log.Debug().Str("config_path", used).Msg("loaded config file")
	}
	return closer, nil
}

func (a *app) newClient() (*qa.HTTPClient, error) {
	c, err := qa.NewHTTPClient(a.settings.Endpoint,
		qa.WithTimeout(a.settings.Timeout),
		qa.WithUserAgent("itb-chat/"+Version),
	)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("endpoint", c.Endpoint()).Dur("timeout", a.settings.Timeout).Msg("question-answering client ready")
	return c, nil
}
