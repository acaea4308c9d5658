package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sheetgenie/internal/app"
	"sheetgenie/internal/config"
	"sheetgenie/internal/di"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// isTTY checks if stdout is an interactive terminal.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func cliError(msg string) string {
	return red("✗ " + msg)
}

func cliSuccess(msg string) string {
	return green("✓ " + msg)
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	noColor    bool
}

// globalBindings maps config keys to persistent flags.
var globalBindings = map[string]string{
	"observability.logging.level": "log-level",
	"llm.provider":                "provider",
	"llm.model":                   "model",
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "sheetgenie",
		Short: "Spreadsheet assistant driven by natural language",
		Long: fmt.Sprintf(`%s

Ask questions about a spreadsheet, add or drop columns, build charts and pivots
in plain language. Serve the HTTP API for the web client or work from the
terminal.

%s
  sheetgenie serve --port 8000
  sheetgenie ask --file sales.xlsx "sum of Q1 Sales"
  sheetgenie ask --file sales.csv --out out.xlsx "add a column 10%% higher than Q2"
  sheetgenie chat --file sales.xlsx
  sheetgenie config show --sources`,
			bold("SheetGenie "+version),
			bold("EXAMPLES:")),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor || !isTTY() {
				color.NoColor = true
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Config file (default: ./sheetgenie.yaml or ~/.sheetgenie/sheetgenie.yaml)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("provider", "", "LLM provider")
	pf.StringP("model", "m", "", "LLM model")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newServeCommand(flags))
	rootCmd.AddCommand(newAskCommand(flags))
	rootCmd.AddCommand(newChatCommand(flags))
	rootCmd.AddCommand(newExportCommand(flags))
	rootCmd.AddCommand(newConfigCommand(flags))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

// loadConfig resolves configuration with the global flags and any extra
// command-local bindings applied.
func loadConfig(cmd *cobra.Command, flags *globalFlags, extra map[string]string) (config.Config, config.Metadata, error) {
	bindings := make(map[string]string, len(globalBindings)+len(extra))
	for k, v := range globalBindings {
		bindings[k] = v
	}
	for k, v := range extra {
		bindings[k] = v
	}
	opts := []config.Option{config.WithFlags(cmd.Flags(), bindings)}
	if flags.configPath != "" {
		opts = append(opts, config.WithConfigPath(flags.configPath))
	}
	return config.Load(opts...)
}

// buildRuntime loads config and wires a quiet container for terminal commands.
func buildRuntime(cmd *cobra.Command, flags *globalFlags) (*di.Container, error) {
	cfg, _, err := loadConfig(cmd, flags, nil)
	if err != nil {
		return nil, err
	}
	return di.BuildContainer(cfg, di.WithQuietLogging())
}

// loadInput replaces the shell's table with a local workbook or a Google
// Sheets link. Without either the sample table stays.
func loadInput(ctx context.Context, shell *app.Shell, file, sheetURL string) error {
	switch {
	case file != "" && sheetURL != "":
		return fmt.Errorf("use either --file or --sheet-url, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		_, err = shell.Upload(ctx, filepath.Base(file), data)
		return err
	case sheetURL != "":
		_, _, err := shell.ImportGoogleSheet(ctx, sheetURL)
		return err
	}
	return nil
}

func writeExport(shell *app.Shell, path string) error {
	data, err := shell.Export()
	if err != nil {
		return err
	}
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sheetgenie %s\n", version)
		},
	}
}
