package sparql

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// columnPadding is the number of spaces between two columns.
const columnPadding = 2

// Formatter renders a result table into the text handed to the sink.
type Formatter interface {
	Format(t *Table) string
}

// FormatterFunc adapts a function to the Formatter interface.
type FormatterFunc func(t *Table) string

// Format calls f(t).
func (f FormatterFunc) Format(t *Table) string { return f(t) }

// TextFormatter renders an aligned, monospace-friendly table:
//
//	s     name
//	----  -----
//	ex:a  Alice
//
// Columns follow the variable order and rows follow the binding order.
type TextFormatter struct{}

var cellEscaper = strings.NewReplacer("\n", `\n`, "\r", `\r`)

// EscapeCell replaces line breaks with their two-character escapes so a
// value always renders on a single line.
func EscapeCell(s string) string {
	return cellEscaper.Replace(s)
}

// Format implements Formatter.
func (TextFormatter) Format(t *Table) string {
	widths := make([]int, len(t.Variables))
	cells := make([][]string, len(t.Rows))

	for i, v := range t.Variables {
		widths[i] = runewidth.StringWidth(v)
	}
	for r, row := range t.Rows {
		cells[r] = make([]string, len(t.Variables))
		for i, v := range t.Variables {
			cell := EscapeCell(row[v])
			cells[r][i] = cell
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder

	writeLine := func(values []string) {
		for i, val := range values {
			if i > 0 {
				sb.WriteString(strings.Repeat(" ", columnPadding))
			}
			sb.WriteString(val)
			sb.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(val)))
		}
		sb.WriteByte('\n')
	}

	writeLine(t.Variables)

	separator := make([]string, len(widths))
	for i, w := range widths {
		separator[i] = strings.Repeat("-", w)
	}
	writeLine(separator)

	for _, row := range cells {
		writeLine(row)
	}

	return sb.String()
}
