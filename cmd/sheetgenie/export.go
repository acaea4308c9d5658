package main

import (
	"fmt"

	"sheetgenie/internal/app"
	"sheetgenie/internal/server"
	"sheetgenie/internal/spreadsheet"

	"github.com/spf13/cobra"
)

func newExportCommand(flags *globalFlags) *cobra.Command {
	var (
		input    inputFlags
		out      string
		insights bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a spreadsheet to .xlsx",
		Long:  "Write the sample table, or a loaded workbook or Google Sheet, to an .xlsx file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := loadConfig(cmd, flags, nil); err != nil {
				return err
			}
			shell := app.NewShell()
			if input.sheetURL != "" {
				container, err := buildRuntime(cmd, flags)
				if err != nil {
					return err
				}
				defer func() { _ = container.Cleanup(cmd.Context()) }()
				shell = container.Shell
			}
			if err := loadInput(cmd.Context(), shell, input.file, input.sheetURL); err != nil {
				return err
			}
			if err := writeExport(shell, out); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, cliSuccess("Saved "+out))
			if insights {
				fmt.Fprintln(w, insightsReport(shell))
			}
			return nil
		},
	}
	input.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", server.ExportFilename, "Output .xlsx path")
	cmd.Flags().BoolVar(&insights, "insights", false, "Also print a data analysis report")
	return cmd
}

func insightsReport(shell *app.Shell) string {
	return spreadsheet.Report(shell.Table())
}
