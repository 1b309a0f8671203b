package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapsparql/internal/cli/config"
	"github.com/spf13/cobra"
)

const (
	replPrompt         = "sparql> "
	replContinuePrompt = "   ...> "
)

// lineReader is the part of *readline.Instance the REPL loop uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// replSession holds the per-session endpoint and format overrides.
type replSession struct {
	cmdCtx   *CommandContext
	out      io.Writer
	errOut   io.Writer
	endpoint string
	format   string
	run      func(ctx context.Context, endpoint, format, query string) error
	// queryContext derives the context of one query. Nil means interruptContext.
	queryContext func(ctx context.Context) (context.Context, context.CancelFunc)
}

// interruptContext returns a context for a single REPL query that ends on the
// next interrupt. It ignores cancellation of ctx, so an interrupt during one
// query does not stop the queries that follow.
func interruptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.WithoutCancel(ctx), os.Interrupt)
}

func runQueryREPL(cmd *cobra.Command, cmdCtx *CommandContext) error {
	historyFile := filepath.Join(filepath.Dir(cmdCtx.Cfg.HistoryPath), "query_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newREPLCompleter(cmdCtx.Cfg),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s := newREPLSession(cmd, cmdCtx)

	name := "(none)"
	if stored, ok := cmdCtx.Cfg.FindEndpoint(cmdCtx.Cfg.Current); ok {
		name = stored
	}
	_, _ = fmt.Fprintf(s.out, "leapsparql REPL (endpoint: %s)\n", name)
	_, _ = fmt.Fprintln(s.out, "End a query with an empty line. Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(s.out)

	return s.loop(cmd.Context(), rl)
}

func newREPLSession(cmd *cobra.Command, cmdCtx *CommandContext) *replSession {
	return &replSession{
		cmdCtx: cmdCtx,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		format: cmdCtx.Cfg.Format,
		run: func(ctx context.Context, endpoint, format, query string) error {
			return runSingleQuery(ctx, cmdCtx, endpoint, format, query)
		},
	}
}

// loop reads lines until EOF or .quit. Lines accumulate into a query that
// runs on the first empty line; a SPARQL ';' cannot end a query since it
// also separates predicate lists.
func (s *replSession) loop(ctx context.Context, rl lineReader) error {
	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			if buf.Len() > 0 {
				s.execute(ctx, buf.String())
			}
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)

		if buf.Len() == 0 && strings.HasPrefix(trimmed, ".") {
			if quit := s.handleDotCommand(trimmed); quit {
				return nil
			}
			continue
		}

		if trimmed == "" {
			if buf.Len() > 0 {
				s.execute(ctx, buf.String())
				buf.Reset()
				rl.SetPrompt(replPrompt)
			}
			continue
		}

		buf.WriteString(line)
		buf.WriteString("\n")
		rl.SetPrompt(replContinuePrompt)
	}
}

func (s *replSession) execute(ctx context.Context, query string) {
	newContext := s.queryContext
	if newContext == nil {
		newContext = interruptContext
	}
	qctx, stop := newContext(ctx)
	defer stop()

	// failures were already printed by the sink
	if err := s.run(qctx, s.endpoint, s.format, query); err != nil && !isReported(err) {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
	_, _ = fmt.Fprintln(s.out)
}

// handleDotCommand runs a dot-command and reports whether the REPL should exit.
func (s *replSession) handleDotCommand(line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	cfg := s.cmdCtx.Cfg

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.out)

	case ".endpoint":
		if len(parts) < 2 {
			name, e, err := cfg.CurrentEndpoint(s.endpoint)
			if err != nil {
				_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
				return false
			}
			_, _ = fmt.Fprintf(s.out, "%s (%s)\n", name, e.URL)
			return false
		}
		stored, ok := cfg.FindEndpoint(parts[1])
		if !ok {
			_, _ = fmt.Fprintf(s.errOut, "Error: endpoint %q not found\n", parts[1])
			return false
		}
		s.endpoint = stored
		_, _ = fmt.Fprintf(s.out, "Using endpoint %s for this session\n", stored)

	case ".endpoints":
		for _, name := range sortedEndpointNames(cfg) {
			marker := " "
			if name == s.currentName() {
				marker = "*"
			}
			_, _ = fmt.Fprintf(s.out, "%s %s\n", marker, name)
		}

	case ".prefixes":
		for _, p := range cfg.Prefixes {
			_, _ = fmt.Fprintf(s.out, "PREFIX %s <%s>\n", p.Prefix, p.URI)
		}

	case ".format":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(s.out, s.format)
			return false
		}
		if !slices.Contains(config.Formats, parts[1]) {
			_, _ = fmt.Fprintf(s.errOut, "Error: unknown format %q (expected one of: %s)\n", parts[1], strings.Join(config.Formats, ", "))
			return false
		}
		s.format = parts[1]

	case ".clear":
		_, _ = fmt.Fprint(s.out, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func (s *replSession) currentName() string {
	name, _, err := s.cmdCtx.Cfg.CurrentEndpoint(s.endpoint)
	if err != nil {
		return ""
	}
	return name
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help             Show this help message
  .endpoint [name]  Show or switch the endpoint for this session
  .endpoints        List configured endpoints
  .prefixes         Show the default prefix table
  .format [name]    Show or set the result format (text, table, csv, markdown, json)
  .clear            Clear the screen
  .quit / .exit     Exit the REPL

Tips:
  - A query runs when you enter an empty line
  - PREFIX declarations in the query are used to abbreviate results
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// newREPLCompleter completes dot-commands and endpoint names.
func newREPLCompleter(cfg *config.Config) *readline.PrefixCompleter {
	endpoints := make([]readline.PrefixCompleterInterface, 0, len(cfg.Endpoints))
	for _, name := range sortedEndpointNames(cfg) {
		endpoints = append(endpoints, readline.PcItem(name))
	}
	formats := make([]readline.PrefixCompleterInterface, 0, len(config.Formats))
	for _, f := range config.Formats {
		formats = append(formats, readline.PcItem(f))
	}

	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".endpoint", endpoints...),
		readline.PcItem(".endpoints"),
		readline.PcItem(".prefixes"),
		readline.PcItem(".format", formats...),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
		readline.PcItem("PREFIX"),
		readline.PcItem("SELECT"),
		readline.PcItem("ASK"),
		readline.PcItem("CONSTRUCT"),
		readline.PcItem("DESCRIBE"),
	)
}
