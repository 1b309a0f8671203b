package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapsparql/internal/cli/output"
	"github.com/leapstack-labs/leapsparql/internal/sparql"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// errStoppedWaiting is recorded for runs whose caller gave up before the result arrived.
var errStoppedWaiting = errors.New("stopped waiting for the result")

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Inputs []string
	Lines  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [QUERY]",
		Short: "Run a query against the current endpoint",
		Long: `Run a SPARQL query against the selected endpoint and print the results.

The query is taken from the arguments, from one or more --input files, or
from stdin. JSON result bindings are rendered as a table with URIs
abbreviated by the configured and declared prefixes.

When invoked without a query on a terminal, enters interactive REPL mode.`,
		Example: `  # Run a query
  leapsparql query "SELECT * WHERE { ?s ?p ?o } LIMIT 10"

  # Run lines 3 to 8 of a file against another endpoint
  leapsparql query --input people.rq --lines 3:8 --endpoint wikidata

  # Run several files concurrently
  leapsparql query -i a.rq -i b.rq

  # Pipe a query and get CSV
  cat q.rq | leapsparql query --format csv

  # Interactive mode
  leapsparql query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Inputs, "input", "i", nil, "Read the query from a file (repeatable)")
	cmd.Flags().StringVarP(&opts.Lines, "lines", "l", "", "Only run lines FROM:TO of the input (1-based, inclusive)")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cmdCtx := NewCommandContext(cmd)

	switch {
	case len(args) > 0:
		query, err := selectLines(strings.Join(args, " "), opts.Lines)
		if err != nil {
			return err
		}
		return runSingleQuery(cmd.Context(), cmdCtx, "", cmdCtx.Cfg.Format, query)

	case len(opts.Inputs) == 1:
		query, err := readQueryFile(opts.Inputs[0], opts.Lines)
		if err != nil {
			return err
		}
		return runSingleQuery(cmd.Context(), cmdCtx, "", cmdCtx.Cfg.Format, query)

	case len(opts.Inputs) > 1:
		return runQueryFiles(cmd.Context(), cmdCtx, opts.Inputs, opts.Lines)

	case !isTerminal(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		query, err := selectLines(string(content), opts.Lines)
		if err != nil {
			return err
		}
		return runSingleQuery(cmd.Context(), cmdCtx, "", cmdCtx.Cfg.Format, query)

	default:
		return runQueryREPL(cmd, cmdCtx)
	}
}

// runSingleQuery runs query against the current endpoint, or endpoint when
// it is non-empty, and delivers the outcome to the renderer.
func runSingleQuery(ctx context.Context, cmdCtx *CommandContext, endpoint, format, query string) error {
	job, err := cmdCtx.Cfg.NewQueryJob(endpoint, query)
	if err != nil {
		return err
	}

	exec, err := cmdCtx.NewExecutor(format)
	if err != nil {
		return err
	}

	store := cmdCtx.OpenHistory()
	if store != nil {
		defer func() { _ = store.Close() }()
	}
	rec := runRecorder{store: store, logger: cmdCtx.Logger}
	runID := rec.start(ctx, job)

	started := time.Now()
	if err := exec.Start(ctx, job); err != nil {
		return err
	}

	r := cmdCtx.Renderer
	spinner := r.NewSpinner(fmt.Sprintf("Querying %s...", job.Name))
	spinner.Start()

	select {
	case <-exec.Done():
	case <-ctx.Done():
		// The request keeps running, but its result will never be shown.
		rec.finish(context.WithoutCancel(ctx), runID, sparql.Outcome{Err: errStoppedWaiting, Duration: time.Since(started)})
		spinner.Fail("Stopped waiting for " + job.Name)
		return errors.Join(output.ErrReported, ctx.Err())
	}

	o, _ := exec.Outcome()
	rec.finish(context.WithoutCancel(ctx), runID, o)

	if o.Succeeded() {
		spinner.Success(fmt.Sprintf("Query on %s succeeded in %s", job.Name, o.Duration.Round(time.Millisecond)))
	} else {
		spinner.Stop()
	}
	return cmdCtx.sink().Deliver(o)
}

// runQueryFiles runs each file as an independent job, concurrently, and
// delivers the outcomes in file order.
func runQueryFiles(ctx context.Context, cmdCtx *CommandContext, paths []string, lines string) error {
	jobs := make([]sparql.QueryJob, 0, len(paths))
	for _, path := range paths {
		query, err := readQueryFile(path, lines)
		if err != nil {
			return err
		}
		job, err := cmdCtx.Cfg.NewQueryJob("", query)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	formatter, err := NewFormatter(cmdCtx.Cfg.Format)
	if err != nil {
		return err
	}
	newExecutor := func() *sparql.Executor {
		return cmdCtx.executorFor(formatter)
	}

	store := cmdCtx.OpenHistory()
	if store != nil {
		defer func() { _ = store.Close() }()
	}
	rec := runRecorder{store: store, logger: cmdCtx.Logger}
	ids := make([]string, len(jobs))
	for i, job := range jobs {
		ids[i] = rec.start(ctx, job)
	}

	r := cmdCtx.Renderer
	spinner := r.NewSpinner(fmt.Sprintf("Running %d queries on %s...", len(jobs), jobs[0].Name))
	spinner.Start()
	outcomes := sparql.RunAll(ctx, jobs, newExecutor, cmdCtx.Cfg.Concurrency)
	spinner.Stop()

	sink := cmdCtx.sink()
	failed := 0
	for i, o := range outcomes {
		rec.finish(context.WithoutCancel(ctx), ids[i], o)
		r.Header(2, paths[i])
		if err := sink.Deliver(o); err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed: %w", failed, len(outcomes), output.ErrReported)
	}
	r.Success(fmt.Sprintf("%d queries on %s succeeded", len(outcomes), jobs[0].Name))
	return nil
}

func readQueryFile(path, lines string) (string, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path is user input by design
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return selectLines(string(content), lines)
}

// selectLines returns the FROM:TO line range of doc (1-based, inclusive).
// Either bound may be omitted and bounds are clamped to the document. No
// selection, or one that is blank, falls back to the whole document.
func selectLines(doc, sel string) (string, error) {
	if sel == "" {
		return doc, nil
	}

	fromStr, toStr, ok := strings.Cut(sel, ":")
	if !ok {
		toStr = fromStr
	}

	lines := strings.Split(doc, "\n")
	from, err := parseLineBound(fromStr, 1)
	if err != nil {
		return "", fmt.Errorf("invalid --lines %q: %w", sel, err)
	}
	to, err := parseLineBound(toStr, len(lines))
	if err != nil {
		return "", fmt.Errorf("invalid --lines %q: %w", sel, err)
	}
	if strings.TrimSpace(fromStr) != "" && strings.TrimSpace(toStr) != "" && from > to {
		return "", fmt.Errorf("invalid --lines %q: start is after end", sel)
	}

	from = max(from, 1)
	to = min(to, len(lines))
	if from > to {
		return doc, nil
	}

	selection := strings.Join(lines[from-1:to], "\n")
	if strings.TrimSpace(selection) == "" {
		return doc, nil
	}
	return selection, nil
}

func parseLineBound(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("line %q is not a number", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("line numbers start at 1, got %d", n)
	}
	return n, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
