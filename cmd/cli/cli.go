package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/nickyhof/TableDB"
	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/db"
)

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	bannerStyle  = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("6")).
			Border(lipgloss.DoubleBorder()).
			Padding(0, 3)
)

// CLI holds the shell state.
type CLI struct {
	instance *TableDB.Instance
	identity core.Identity
	engine   *db.Engine
	out      io.Writer
}

func NewCLI(instance *TableDB.Instance, identity core.Identity, out io.Writer) *CLI {
	return &CLI{
		instance: instance,
		identity: identity,
		engine:   instance.Engine(identity),
		out:      out,
	}
}

func (cli *CLI) printf(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(cli.out, style.Render(fmt.Sprintf(format, args...)))
}

func (cli *CLI) printError(err error) {
	cli.printf(errorStyle, "✗ Error: %v", err)
}

func (cli *CLI) printBanner() {
	fmt.Fprintln(cli.out, bannerStyle.Render(fmt.Sprintf("TableDB v%s\nTyped tables, git snapshots", Version)))
	fmt.Fprintln(cli.out, "Type .help for commands, .quit to exit")
	fmt.Fprintln(cli.out)
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tabledb_history")
}

// Run is the interactive loop. A request may span several lines; it runs
// once its braces balance.
func (cli *CLI) Run(ctx context.Context) error {
	prompt := promptStyle.Render("tabledb> ")
	continuation := promptStyle.Render("   ...> ")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyPath(),
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cli.out,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	cli.printBanner()

	var buffer strings.Builder
	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			buffer.Reset()
			rl.SetPrompt(prompt)
			continue
		case errors.Is(err, io.EOF):
			cli.printf(successStyle, "Goodbye!")
			return nil
		case err != nil:
			return err
		}

		if buffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(line), ".") {
			if quit := cli.handleCommand(ctx, line); quit {
				return nil
			}
			continue
		}

		buffer.WriteString(line)
		buffer.WriteString("\n")
		text := strings.TrimSpace(buffer.String())
		if text == "" {
			buffer.Reset()
			continue
		}
		if !requestComplete(text) {
			rl.SetPrompt(continuation)
			continue
		}

		buffer.Reset()
		rl.SetPrompt(prompt)
		cli.execute(ctx, text)
	}
}

func (cli *CLI) execute(ctx context.Context, request string) {
	result, err := cli.engine.ExecuteJSON(ctx, []byte(request))
	if err != nil {
		cli.printError(err)
		return
	}
	result.Display(cli.out)
}

// handleCommand runs a dot-command and reports whether the shell should exit.
func (cli *CLI) handleCommand(ctx context.Context, input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return false
	}
	arg := ""
	if len(parts) > 1 {
		arg = strings.Join(parts[1:], " ")
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		cli.printf(successStyle, "Goodbye!")
		return true

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.run(ctx, db.Request{Op: "tables"})

	case ".schema":
		if arg == "" {
			cli.printf(errorStyle, "✗ Usage: .schema <table>")
			break
		}
		cli.run(ctx, db.Request{Op: "describe", Table: arg})

	case ".snapshot":
		if err := cli.snapshot(ctx, arg); err != nil {
			cli.printError(err)
		}

	case ".history":
		cli.run(ctx, db.Request{Op: "history"})

	case ".remote":
		cli.remote(parts[1:])

	case ".push":
		if err := cli.instance.Push(); err != nil {
			cli.printError(err)
			break
		}
		cli.printf(successStyle, "✓ Pushed")

	case ".pull":
		if err := cli.instance.Pull(); err != nil {
			cli.printError(err)
			break
		}
		// The pull replaced the registry.
		cli.engine = cli.instance.Engine(cli.identity)
		cli.printf(successStyle, "✓ Pulled %s", shortID(cli.instance.Persistence.LatestTransaction().ID))

	case ".import":
		if arg == "" {
			cli.printf(errorStyle, "✗ Usage: .import <script.jsonl>")
			break
		}
		if _, err := cli.ImportScript(ctx, arg); err != nil {
			cli.printError(err)
		}

	case ".apply":
		if arg == "" {
			cli.printf(errorStyle, "✗ Usage: .apply <schema.yaml>")
			break
		}
		if err := cli.instance.ApplySchema(ctx, arg); err != nil {
			cli.printError(err)
			break
		}
		cli.printf(successStyle, "✓ Schema applied")

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".version":
		fmt.Fprintf(cli.out, "TableDB version %s\n", Version)

	default:
		cli.printf(errorStyle, "✗ Unknown command: %s (type .help for commands)", parts[0])
	}

	return false
}

func (cli *CLI) run(ctx context.Context, req db.Request) {
	result, err := cli.engine.Execute(ctx, req)
	if err != nil {
		cli.printError(err)
		return
	}
	result.Display(cli.out)
}

func (cli *CLI) snapshot(ctx context.Context, message string) error {
	result, err := cli.engine.Execute(ctx, db.Request{Op: "snapshot", Message: message})
	if err != nil {
		return err
	}
	result.Display(cli.out)
	return nil
}

func (cli *CLI) printHelp() {
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, headingStyle.Render("Special Commands:"))
	fmt.Fprintln(cli.out, "  .help, .h            Show this help message")
	fmt.Fprintln(cli.out, "  .quit, .exit         Exit the shell")
	fmt.Fprintln(cli.out, "  .tables              List tables")
	fmt.Fprintln(cli.out, "  .schema <table>      Describe a table")
	fmt.Fprintln(cli.out, "  .snapshot [message]  Commit a snapshot")
	fmt.Fprintln(cli.out, "  .history             List snapshots")
	fmt.Fprintln(cli.out, "  .remote [add ...]    List or add git remotes")
	fmt.Fprintln(cli.out, "  .push, .pull         Exchange snapshots with the remote")
	fmt.Fprintln(cli.out, "  .import <script>     Execute requests from a file")
	fmt.Fprintln(cli.out, "  .apply <schema>      Create tables from a schema file")
	fmt.Fprintln(cli.out, "  .clear               Clear the screen")
	fmt.Fprintln(cli.out, "  .version             Show version info")
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, headingStyle.Render("Requests:"))
	fmt.Fprintln(cli.out, `  {"op":"create_table","table":"users","schema":{"columns":[{"name":"id","type":"int","primary_key":true}]}}`)
	fmt.Fprintln(cli.out, `  {"op":"insert","table":"users","fields":{"id":1}}`)
	fmt.Fprintln(cli.out, `  {"op":"get"|"delete","table":"users","id":1}`)
	fmt.Fprintln(cli.out, `  {"op":"update","table":"users","id":1,"fields":{...}}`)
	fmt.Fprintln(cli.out, `  {"op":"select"|"count","table":"users","select":[...],"where":[{"column":"id","op":">","value":0}],"order_by":{"column":"id","desc":true}}`)
	fmt.Fprintln(cli.out, `  {"op":"sum"|"avg","table":"orders","column":"amount"}`)
	fmt.Fprintln(cli.out, `  {"op":"join","left":"orders","right":"users","left_column":"user_id","right_column":"id"}`)
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s = != > < >= <=\n", headingStyle.Render("Operators:"))
	fmt.Fprintln(cli.out)
}

// remote lists the configured remotes, or with "add <name> <url>" adds one.
func (cli *CLI) remote(args []string) {
	persistence := cli.instance.Persistence
	switch {
	case len(args) == 0:
		remotes, err := persistence.Remotes()
		if err != nil {
			cli.printError(err)
			return
		}
		if len(remotes) == 0 {
			fmt.Fprintln(cli.out, "No remotes configured")
			return
		}
		for _, name := range slices.Sorted(maps.Keys(remotes)) {
			fmt.Fprintf(cli.out, "%s\t%s\n", name, strings.Join(remotes[name], ", "))
		}
	case len(args) == 3 && strings.EqualFold(args[0], "add"):
		if err := persistence.AddRemote(args[1], args[2]); err != nil {
			cli.printError(err)
			return
		}
		cli.printf(successStyle, "✓ Remote '%s' added", args[1])
	default:
		cli.printf(errorStyle, "✗ Usage: .remote [add <name> <url>]")
	}
}

// ImportSummary counts the outcome of a script.
type ImportSummary struct {
	Succeeded int
	Failed    int
}

func (s ImportSummary) Total() int {
	return s.Succeeded + s.Failed
}

// ImportScript executes every request in the script at path. A failing
// request is reported and the script carries on.
func (cli *CLI) ImportScript(ctx context.Context, path string) (ImportSummary, error) {
	data, err := cli.instance.ReadSource(ctx, path)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("failed to read script: %w", err)
	}

	var summary ImportSummary
	for i, request := range splitRequests(string(data)) {
		result, err := cli.engine.ExecuteJSON(ctx, []byte(request))
		if err != nil {
			cli.printf(errorStyle, "[%d] ✗ %s", i+1, truncate(request, 60))
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			summary.Failed++
			continue
		}
		summary.Succeeded++
		cli.printf(successStyle, "[%d] ✓ %s%s", i+1, truncate(request, 60), describeResult(result))
	}

	cli.printf(successStyle, "\n✓ Import complete: %d succeeded, %d failed", summary.Succeeded, summary.Failed)
	return summary, nil
}

// describeResult is the compact per-request summary of a script run.
func describeResult(result db.Result) string {
	var details []string
	switch r := result.(type) {
	case db.CommitResult:
		if r.TablesCreated > 0 {
			details = append(details, fmt.Sprintf("%d table created", r.TablesCreated))
		}
		if r.RecordsWritten > 0 {
			details = append(details, fmt.Sprintf("%d written", r.RecordsWritten))
		}
		if r.RecordsDeleted > 0 {
			details = append(details, fmt.Sprintf("%d deleted", r.RecordsDeleted))
		}
		if !r.Transaction.IsZero() {
			details = append(details, "snapshot "+shortID(r.Transaction.ID))
		}
	case db.QueryResult:
		details = append(details, fmt.Sprintf("%d rows", r.RecordsRead))
	case db.AggregateResult:
		details = append(details, fmt.Sprintf("%s = %s", r.Op, db.FormatValue(r.Value)))
	}
	if len(details) == 0 {
		return ""
	}
	return " (" + strings.Join(details, ", ") + ")"
}

// splitRequests splits a script into JSON requests. Requests may span lines;
// lines starting with # outside a request are comments.
func splitRequests(content string) []string {
	var requests []string
	var current strings.Builder
	depth := 0
	inString, escaped := false, false

	flush := func() {
		if req := strings.TrimSpace(current.String()); req != "" {
			requests = append(requests, req)
		}
		current.Reset()
	}

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			current.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '#':
			if depth == 0 && strings.TrimSpace(current.String()) == "" {
				for i < len(content) && content[i] != '\n' {
					i++
				}
				continue
			}
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth <= 0 {
				depth = 0
				current.WriteByte(ch)
				flush()
				continue
			}
		case '\n':
			if depth == 0 {
				flush()
				continue
			}
		}
		current.WriteByte(ch)
	}

	flush()
	return requests
}

// requestComplete reports whether s holds no unclosed brace or string.
func requestComplete(s string) bool {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		}
	}
	return depth <= 0 && !inString
}

// truncate shortens a string to maxLen with an ellipsis.
func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
