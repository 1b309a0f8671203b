package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsparql/internal/cli/output"
	"github.com/leapstack-labs/leapsparql/internal/history"
)

// HistoryEntry is the JSON shape of a recorded run.
type HistoryEntry struct {
	ID         string  `json:"id"`
	Endpoint   string  `json:"endpoint"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	StartedAt  string  `json:"started_at"`
	DurationMs int64   `json:"duration_ms"`
	Bytes      int     `json:"result_bytes"`
	Query      string  `json:"query"`
	Completed  *string `json:"completed_at,omitempty"`
}

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit    int
	Endpoint string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently run queries",
		Long: `Show queries run by leapsparql, newest first.

Every query is recorded with its endpoint, status and duration in the
history database (history_path, default ~/.leapsparql/history.db).`,
		Example: `  leapsparql history
  leapsparql history --limit 5 --for dbpedia
  leapsparql history show 0123abcd
  leapsparql history prune --keep 100`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, err := openHistoryStore(cmdCtx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), opts.Endpoint, opts.Limit)
			if err != nil {
				return err
			}
			return renderHistory(cmdCtx.Renderer, runs)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().StringVar(&opts.Endpoint, "for", "", "Only show runs against this endpoint")

	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryPruneCommand())
	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded run, including its query text",
		Long: `Show one recorded run. The id may be abbreviated to any unique prefix,
such as the eight characters printed by 'leapsparql history'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, err := openHistoryStore(cmdCtx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.FindRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderRun(cmdCtx.Renderer, run)
		},
	}
}

func newHistoryPruneCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative, got %d", keep)
			}
			cmdCtx := NewCommandContext(cmd)
			store, err := openHistoryStore(cmdCtx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			removed, err := store.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("Removed %d runs", removed))
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 100, "Number of runs to keep")
	return cmd
}

func openHistoryStore(cmdCtx *CommandContext) (*history.Store, error) {
	if cmdCtx.Cfg.HistoryPath == "" {
		return nil, fmt.Errorf("history is disabled (history_path is empty)")
	}
	store := history.NewStore(cmdCtx.Logger)
	if err := store.Open(cmdCtx.Cfg.HistoryPath); err != nil {
		return nil, err
	}
	return store, nil
}

func renderHistory(r *output.Renderer, runs []*history.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		entries := make([]HistoryEntry, 0, len(runs))
		for _, run := range runs {
			entries = append(entries, historyEntry(run))
		}
		return r.JSON(entries)
	}

	if len(runs) == 0 {
		r.Muted("No queries recorded yet")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Endpoint,
			string(run.Status),
			run.Duration.Round(time.Millisecond).String(),
			summarizeQuery(run.Query, 50),
		})
	}
	r.Table([]string{"ID", "Started", "Endpoint", "Status", "Duration", "Query"}, rows)
	return nil
}

// renderRun writes the details of a single run.
func renderRun(r *output.Renderer, run *history.Run) error {
	details := [][2]string{
		{"Endpoint", run.Endpoint},
		{"Status", string(run.Status)},
		{"Started", run.StartedAt.Local().Format("2006-01-02 15:04:05")},
		{"Duration", run.Duration.Round(time.Millisecond).String()},
		{"Result bytes", fmt.Sprint(run.ResultBytes)},
	}
	if run.Error != "" {
		details = append(details, [2]string{"Error", run.Error})
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(historyEntry(run))
	case output.ModeMarkdown:
		r.Header(2, "Run "+run.ID)
		for _, d := range details {
			r.Println(output.FormatKeyValue(d[0], d[1]))
		}
		r.Println()
		r.Println(output.FormatCodeBlock("sparql", run.Query))
	default:
		s := r.Styles()
		r.StatusLine(s.Endpoint.Render(run.Endpoint), string(run.Status), run.ID)
		for _, d := range details {
			r.Printf("  %s %s\n", s.Bold.Render(d[0]+":"), d[1])
		}
		r.Println()
		r.Println(strings.TrimRight(run.Query, "\n"))
	}
	return nil
}

func historyEntry(run *history.Run) HistoryEntry {
	e := HistoryEntry{
		ID:         run.ID,
		Endpoint:   run.Endpoint,
		Status:     string(run.Status),
		Error:      run.Error,
		StartedAt:  run.StartedAt.Format(time.RFC3339),
		DurationMs: run.Duration.Milliseconds(),
		Bytes:      run.ResultBytes,
		Query:      run.Query,
	}
	if run.CompletedAt != nil {
		c := run.CompletedAt.Format(time.RFC3339)
		e.Completed = &c
	}
	return e
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// summarizeQuery collapses whitespace and truncates to limit runes.
func summarizeQuery(q string, limit int) string {
	q = strings.Join(strings.Fields(q), " ")
	runes := []rune(q)
	if len(runes) <= limit {
		return q
	}
	return string(runes[:limit-1]) + "…"
}
