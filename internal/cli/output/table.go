package output

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"golang.org/x/term"
)

// MaxCellWidth truncates long cells (descriptions, commands) on terminals.
const MaxCellWidth = 60

// TableFormatter formats output as an aligned, human-readable table.
type TableFormatter struct {
	NoColor bool
	// Wide disables cell truncation.
	Wide bool
	// IsTTY overrides terminal detection; nil checks stdout.
	IsTTY func() bool
}

// Format prints scalars and falls back to Go formatting for other values.
func (f *TableFormatter) Format(data interface{}) (string, error) {
	switch v := data.(type) {
	case nil:
		return "", nil
	case string:
		return v + "\n", nil
	case fmt.Stringer:
		return v.String() + "\n", nil
	default:
		return fmt.Sprintf("%v\n", v), nil
	}
}

// FormatError renders an error with its guidance and recovery hint.
func (f *TableFormatter) FormatError(err StructuredError) (string, error) {
	var buf bytes.Buffer
	prefix := "Error"
	if f.tty() && !f.NoColor {
		prefix = "\x1b[31mError\x1b[0m"
	}

	fmt.Fprintf(&buf, "%s: %s\n", prefix, err.Message)
	if err.Guidance != "" {
		fmt.Fprintf(&buf, "  Hint: %s\n", err.Guidance)
	}
	if err.RecoveryCommand != "" {
		fmt.Fprintf(&buf, "  Try: %s\n", err.RecoveryCommand)
	}
	if err.RequestID != "" {
		fmt.Fprintf(&buf, "  Request ID: %s\n", err.RequestID)
	}
	return buf.String(), nil
}

// FormatTable renders rows under headers with column alignment.
func (f *TableFormatter) FormatTable(headers []string, rows [][]string) (string, error) {
	if len(rows) == 0 {
		return "No results found\n", nil
	}

	truncate := f.tty() && !f.Wide

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	upper := make([]string, len(headers))
	for i, h := range headers {
		upper[i] = strings.ToUpper(h)
	}
	fmt.Fprintln(w, strings.Join(upper, "\t"))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cell = strings.ReplaceAll(cell, "\t", " ")
			cell = strings.ReplaceAll(cell, "\n", " ")
			if truncate {
				cell = truncateCell(cell, MaxCellWidth)
			}
			cells[i] = cell
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}

	if err := w.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (f *TableFormatter) tty() bool {
	if f.IsTTY != nil {
		return f.IsTTY()
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func truncateCell(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}
