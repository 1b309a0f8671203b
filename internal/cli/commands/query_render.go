package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapsparql/internal/cli/config"
	"github.com/leapstack-labs/leapsparql/internal/sparql"
)

// NewFormatter returns the result formatter for a format setting.
func NewFormatter(format string) (sparql.Formatter, error) {
	switch format {
	case "", "text":
		return sparql.TextFormatter{}, nil
	case "table":
		return sparql.FormatterFunc(renderTable), nil
	case "csv":
		return sparql.FormatterFunc(renderCSV), nil
	case "md", "markdown":
		return sparql.FormatterFunc(renderMarkdown), nil
	case "json":
		return sparql.FormatterFunc(renderJSON), nil
	}
	return nil, fmt.Errorf("unknown format %q (expected one of: %s)", format, strings.Join(config.Formats, ", "))
}

func renderTable(t *sparql.Table) string {
	var b strings.Builder

	tw := table.NewWriter()
	tw.SetOutputMirror(&b)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(t.Variables))
	for i, v := range t.Variables {
		header[i] = v
	}
	tw.AppendHeader(header)

	for _, row := range t.Rows {
		r := make(table.Row, len(t.Variables))
		for i, v := range t.Variables {
			r[i] = sparql.EscapeCell(row[v])
		}
		tw.AppendRow(r)
	}

	tw.Render()
	fmt.Fprintf(&b, "(%d rows)\n", len(t.Rows))
	return b.String()
}

func renderCSV(t *sparql.Table) string {
	var b strings.Builder

	b.WriteString(strings.Join(escapeCSVRow(t.Variables), ","))
	b.WriteString("\n")

	for _, row := range t.Rows {
		values := make([]string, len(t.Variables))
		for i, v := range t.Variables {
			values[i] = row[v]
		}
		b.WriteString(strings.Join(escapeCSVRow(values), ","))
		b.WriteString("\n")
	}
	return b.String()
}

func escapeCSVRow(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = escapeCSV(v)
	}
	return out
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func renderMarkdown(t *sparql.Table) string {
	var b strings.Builder

	fmt.Fprintf(&b, "| %s |\n", strings.Join(t.Variables, " | "))
	seps := make([]string, len(t.Variables))
	for i := range seps {
		seps[i] = "---"
	}
	fmt.Fprintf(&b, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range t.Rows {
		values := make([]string, len(t.Variables))
		for i, v := range t.Variables {
			values[i] = escapeMarkdownCell(row[v])
		}
		fmt.Fprintf(&b, "| %s |\n", strings.Join(values, " | "))
	}
	return b.String()
}

var markdownCellEscaper = strings.NewReplacer("|", `\|`)

func escapeMarkdownCell(s string) string {
	return markdownCellEscaper.Replace(sparql.EscapeCell(s))
}

// renderJSON writes rows as an array of objects keyed by variable name.
// Unbound variables are present with an empty value.
func renderJSON(t *sparql.Table) string {
	rows := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		obj := make(map[string]string, len(t.Variables))
		for _, v := range t.Variables {
			obj[v] = row[v]
		}
		rows = append(rows, obj)
	}

	out, err := json.MarshalIndent(struct {
		Variables []string            `json:"variables"`
		Rows      []map[string]string `json:"rows"`
	}{append([]string{}, t.Variables...), rows}, "", "  ")
	if err != nil {
		// string maps always marshal
		panic(err)
	}
	return string(out) + "\n"
}
