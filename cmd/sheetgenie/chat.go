package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sheetgenie/internal/app"
	"sheetgenie/internal/server"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const replPrompt = "sheetgenie> "

var (
	styleBanner = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)
	styleAssistant = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
)

func newChatCommand(flags *globalFlags) *cobra.Command {
	var input inputFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat over a spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildRuntime(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = container.Cleanup(cmd.Context()) }()

			if err := loadInput(cmd.Context(), container.Shell, input.file, input.sheetURL); err != nil {
				return err
			}
			if container.LLMError != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", yellow("!"), container.LLMError)
			}
			return runREPL(cmd, container.Shell)
		},
	}
	input.register(cmd)
	return cmd
}

func runREPL(cmd *cobra.Command, shell *app.Shell) error {
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".sheetgenie", "chat_history")
		_ = os.MkdirAll(filepath.Dir(historyFile), 0o755)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          blue(replPrompt),
		HistoryFile:     historyFile,
		AutoComplete:    replCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	w := cmd.OutOrStdout()
	renderer := newRenderer()
	snap := shell.Snapshot()
	fmt.Fprintln(w, styleBanner.Render(fmt.Sprintf("%s\n%d rows × %d columns loaded\nType /help for commands, /quit to exit",
		bold("SheetGenie "+version), snap.Rows, snap.Columns)))
	fmt.Fprintln(w)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := handleSlashCommand(w, shell, line); quit {
				return nil
			}
			continue
		}

		msg, _, err := shell.Chat(cmd.Context(), line)
		if err != nil {
			fmt.Fprintln(w, cliError(err.Error()))
			continue
		}
		fmt.Fprintln(w, styleAssistant.Render("SheetGenie"))
		printReply(w, renderer, msg)
		fmt.Fprintln(w)
	}
}

func replCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("/help"),
		readline.PcItem("/show"),
		readline.PcItem("/diff"),
		readline.PcItem("/insights"),
		readline.PcItem("/reset"),
		readline.PcItem("/new"),
		readline.PcItem("/save"),
		readline.PcItem("/quit"),
	)
}

// handleSlashCommand runs a REPL command and reports whether to exit.
func handleSlashCommand(w io.Writer, shell *app.Shell, line string) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case "/quit", "/exit":
		return true
	case "/help":
		printREPLHelp(w)
	case "/show":
		printTable(w, shell.Table(), 20)
	case "/diff":
		d := shell.Diff()
		if d.UnifiedDiff == "" {
			fmt.Fprintln(w, gray("No changes since the previous revision."))
			return false
		}
		fmt.Fprintln(w, d.UnifiedDiff)
		fmt.Fprintln(w, gray(d.FormatSummary()))
	case "/insights":
		fmt.Fprintln(w, newRenderer().Render(insightsReport(shell)))
	case "/reset":
		shell.ResetChat()
		fmt.Fprintln(w, cliSuccess("Chat history cleared"))
	case "/new":
		snap := shell.New()
		fmt.Fprintln(w, cliSuccess(fmt.Sprintf("Loaded the sample table (%d rows)", snap.Rows)))
	case "/save":
		path := server.ExportFilename
		if len(parts) > 1 {
			path = parts[1]
		}
		if err := writeExport(shell, path); err != nil {
			fmt.Fprintln(w, cliError(err.Error()))
			return false
		}
		fmt.Fprintln(w, cliSuccess("Saved "+path))
	default:
		fmt.Fprintln(w, cliError("Unknown command: "+parts[0]))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	fmt.Fprintln(w, bold("Commands:"))
	fmt.Fprintln(w, "  /show            Print the current table")
	fmt.Fprintln(w, "  /diff            Show what the last change did")
	fmt.Fprintln(w, "  /insights        Summarize the data")
	fmt.Fprintln(w, "  /reset           Clear the chat history")
	fmt.Fprintln(w, "  /new             Start over from the sample table")
	fmt.Fprintln(w, "  /save [path]     Write the table to an .xlsx file")
	fmt.Fprintln(w, "  /quit            Exit")
}
