package cli

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/legsim/timing/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and check timing configurations.",
	}

	var output string

	defaultCmd := &cobra.Command{
		Use:   "default",
		Short: "Print the default configuration, or save it with --output.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.DefaultConfig()

			if output != "" {
				return c.SaveConfig(output)
			}

			data, err := json.MarshalIndent(c, "", "  ")
			if err != nil {
				return errors.Wrap(err, "failed to serialize timing config")
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))

			return nil
		},
	}
	defaultCmd.Flags().StringVarP(&output, "output", "o", "", "File to write")

	checkCmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a configuration file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadConfig(args[0]); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])

			return nil
		},
	}

	cmd.AddCommand(defaultCmd, checkCmd)

	return cmd
}
