package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/leapsparql/internal/cli/output"
	"github.com/leapstack-labs/leapsparql/internal/sparql"
	"github.com/spf13/cobra"
)

// PrefixInfo is the JSON shape of a prefix table entry.
type PrefixInfo struct {
	Prefix string `json:"prefix"`
	URI    string `json:"uri"`
	Source string `json:"source"`
}

// NewPrefixesCommand creates the prefixes command.
func NewPrefixesCommand() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "prefixes [QUERY]",
		Short: "Show the prefix table used to abbreviate results",
		Long: `Show the prefix table used to abbreviate URIs in results.

Without a query, lists the default prefixes from the configuration. With a
query (argument, --input file or stdin "-"), also lists the PREFIX
declarations found in it, in the order they are matched.`,
		Example: `  leapsparql prefixes
  leapsparql prefixes --input people.rq`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)

			var query string
			switch {
			case len(args) == 1 && args[0] == "-":
				content, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				query = string(content)
			case len(args) > 0:
				query = strings.Join(args, " ")
			case input != "":
				content, err := readQueryFile(input, "")
				if err != nil {
					return err
				}
				query = content
			}
			return showPrefixes(cmdCtx, query)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Read the query from a file")
	return cmd
}

func showPrefixes(cmdCtx *CommandContext, query string) error {
	defaults := cmdCtx.Cfg.Prefixes
	detected := sparql.ParsePrefixes(query)

	infos := make([]PrefixInfo, 0, len(defaults)+len(detected))
	for _, p := range defaults {
		infos = append(infos, PrefixInfo{Prefix: p.Prefix, URI: p.URI, Source: "config"})
	}
	for _, p := range detected {
		infos = append(infos, PrefixInfo{Prefix: p.Prefix, URI: p.URI, Source: "query"})
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	if len(infos) == 0 {
		r.Muted("No prefixes configured")
		return nil
	}

	rows := make([][]string, 0, len(infos))
	for _, p := range infos {
		rows = append(rows, []string{p.Prefix, p.URI, p.Source})
	}
	r.Table([]string{"Prefix", "URI", "Source"}, rows)
	return nil
}
