package cmds

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(a.settings)
			if err != nil {
				return errors.Wrap(err, "could not encode settings")
			}
			w := cmd.OutOrStdout()
			if used := a.loader.ConfigFileUsed(); used != "" {
				_, _ = fmt.Fprintf(w, "# config file: %s\n", used)
			}
			_, err = w.Write(out)
			return err
		},
	}
}
