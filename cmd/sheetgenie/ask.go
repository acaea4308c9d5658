package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type inputFlags struct {
	file     string
	sheetURL string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Workbook to load (.xlsx, .xls, .csv); defaults to the sample table")
	cmd.Flags().StringVar(&f.sheetURL, "sheet-url", "", "Publicly shared Google Sheets link to load")
}

func newAskCommand(flags *globalFlags) *cobra.Command {
	var (
		input inputFlags
		out   string
		show  bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Run one request against a spreadsheet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildRuntime(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = container.Cleanup(cmd.Context()) }()

			ctx := cmd.Context()
			shell := container.Shell
			if err := loadInput(ctx, shell, input.file, input.sheetURL); err != nil {
				return err
			}

			msg, snap, err := shell.Chat(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printReply(w, newRenderer(), msg)
			if show {
				printTable(w, snap.Table, 0)
			}
			if msg.Error != "" {
				return errors.New(msg.Error)
			}
			if out != "" {
				if err := writeExport(shell, out); err != nil {
					return err
				}
				fmt.Fprintln(w, cliSuccess("Saved "+out))
			}
			return nil
		},
	}
	input.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the resulting workbook to this .xlsx path")
	cmd.Flags().BoolVar(&show, "show", false, "Print the resulting table")
	return cmd
}
