package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapsparql/internal/cli/config"
	"github.com/leapstack-labs/leapsparql/internal/cli/output"
	"github.com/spf13/cobra"
)

// EndpointInfo is the JSON shape of a configured endpoint. Passwords are never printed.
type EndpointInfo struct {
	Name       string            `json:"name"`
	URL        string            `json:"url"`
	Username   string            `json:"username,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Current    bool              `json:"current"`
}

// NewEndpointCommand creates the endpoint command group.
func NewEndpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "endpoint",
		Aliases: []string{"endpoints"},
		Short:   "List and select query endpoints",
		Long: `Manage the query endpoints defined in the configuration file.

Endpoints are defined under the "endpoints" key of leapsparql.yaml. The
current endpoint is used by "leapsparql query" unless --endpoint is given.`,
	}

	cmd.AddCommand(newEndpointListCommand())
	cmd.AddCommand(newEndpointUseCommand())
	return cmd
}

func newEndpointListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			return listEndpoints(cmdCtx)
		},
	}
}

func listEndpoints(cmdCtx *CommandContext) error {
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	current, _ := cfg.FindEndpoint(cfg.Current)

	names := sortedEndpointNames(cfg)
	if r.EffectiveMode() == output.ModeJSON {
		infos := make([]EndpointInfo, 0, len(names))
		for _, name := range names {
			e := cfg.Endpoints[name]
			infos = append(infos, EndpointInfo{
				Name:       name,
				URL:        e.URL,
				Username:   e.Username,
				Parameters: e.Parameters,
				Current:    name == current,
			})
		}
		return r.JSON(infos)
	}

	if len(names) == 0 {
		r.Warning("No endpoints configured. Add one under \"endpoints\" in " + config.WritableConfigFile())
		return nil
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		e := cfg.Endpoints[name]
		marker := ""
		if name == current {
			marker = "*"
		}
		rows = append(rows, []string{marker, name, e.URL, e.Username})
	}
	r.Table([]string{"", "Name", "URL", "User"}, rows)
	return nil
}

func newEndpointUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Select the current endpoint",
		Long: `Select the endpoint used by default for queries.

The name is matched case-insensitively and saved as "current" in the
configuration file.`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return sortedEndpointNames(getConfig()), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			return useEndpoint(cmdCtx, args[0], config.WritableConfigFile())
		},
	}
}

func useEndpoint(cmdCtx *CommandContext, name, path string) error {
	cfg := cmdCtx.Cfg
	stored, ok := cfg.FindEndpoint(name)
	if !ok {
		names := sortedEndpointNames(cfg)
		if len(names) == 0 {
			return fmt.Errorf("endpoint %q not found: no endpoints configured", name)
		}
		return fmt.Errorf("endpoint %q not found (available: %s)", name, strings.Join(names, ", "))
	}

	if err := config.SaveCurrent(path, stored); err != nil {
		return err
	}
	cfg.Current = stored

	cmdCtx.Logger.Debug("current endpoint saved", slog.String("endpoint", stored), slog.String("file", path))
	cmdCtx.Renderer.Success(fmt.Sprintf("Current endpoint set to %s", stored))
	return nil
}

func sortedEndpointNames(cfg *config.Config) []string {
	return slices.Sorted(maps.Keys(cfg.Endpoints))
}

func isReported(err error) bool {
	return errors.Is(err, output.ErrReported)
}
