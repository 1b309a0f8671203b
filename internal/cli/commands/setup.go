package commands

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsparql/internal/cli/config"
	"github.com/leapstack-labs/leapsparql/internal/cli/output"
	"github.com/leapstack-labs/leapsparql/internal/history"
	"github.com/leapstack-labs/leapsparql/internal/sparql"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	// Sink receives query outcomes. Nil means the Renderer.
	Sink output.Sink
}

func (c *CommandContext) sink() output.Sink {
	if c.Sink != nil {
		return c.Sink
	}
	return c.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeForFormat(cfg.Format)),
	}
}

// getConfig returns the current configuration, or defaults when none was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Format:      config.DefaultFormat,
		HistoryPath: filepath.Join(config.DefaultConfigDir(), config.DefaultHistoryFile),
		Concurrency: config.DefaultConcurrency,
	}
}

// NewExecutor creates an executor using the configured timeout and formatter.
func (c *CommandContext) NewExecutor(format string) (*sparql.Executor, error) {
	formatter, err := NewFormatter(format)
	if err != nil {
		return nil, err
	}
	return c.executorFor(formatter), nil
}

func (c *CommandContext) executorFor(formatter sparql.Formatter) *sparql.Executor {
	return sparql.NewExecutor(sparql.ExecutorConfig{
		Client:    &http.Client{Timeout: c.Cfg.Timeout},
		Formatter: formatter,
		Logger:    c.Logger,
	})
}

// OpenHistory opens the run history. History is optional: on failure the
// error is logged and a nil store is returned, which runRecorder tolerates.
func (c *CommandContext) OpenHistory() *history.Store {
	if c.Cfg.HistoryPath == "" {
		return nil
	}
	store := history.NewStore(c.Logger)
	if err := store.Open(c.Cfg.HistoryPath); err != nil {
		c.Logger.Warn("run history unavailable", slog.String("path", c.Cfg.HistoryPath), slog.Any("error", err))
		return nil
	}
	return store
}

// runRecorder writes run records to an optional history store.
type runRecorder struct {
	store  *history.Store
	logger *slog.Logger
}

func (r runRecorder) start(ctx context.Context, job sparql.QueryJob) string {
	if r.store == nil {
		return ""
	}
	run, err := r.store.StartRun(ctx, job.Name, job.Query)
	if err != nil {
		r.logger.Warn("failed to record run", slog.Any("error", err))
		return ""
	}
	return run.ID
}

func (r runRecorder) finish(ctx context.Context, id string, o sparql.Outcome) {
	if r.store == nil || id == "" {
		return
	}
	if err := r.store.CompleteRun(ctx, id, o.Message(), len(o.Text), o.Duration); err != nil {
		r.logger.Warn("failed to record run outcome", slog.String("run", id), slog.Any("error", err))
	}
}
