package main

import (
	"fmt"

	"sheetgenie/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	var sources bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, meta, err := loadConfig(cmd, flags, nil)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if file := meta.File(); file != "" {
				fmt.Fprintf(w, "%s %s\n", gray("# file:"), gray(file))
			} else {
				fmt.Fprintln(w, gray("# file: none (defaults and environment)"))
			}

			render := config.Show
			if sources {
				render = config.Sources
			}
			out, err := render(meta)
			if err != nil {
				return err
			}
			_, err = w.Write(out)
			return err
		},
	}
	show.Flags().BoolVar(&sources, "sources", false, "Show where each value came from instead of the value")
	cmd.AddCommand(show)
	return cmd
}
