package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is aligned plain text (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON.
	FormatJSON OutputFormat = "json"
	// FormatXLSX is an Excel workbook with one sheet per table.
	FormatXLSX OutputFormat = "xlsx"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatXLSX:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q: must be text, json or xlsx", s)
}

// Table is one block of tabular output.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// Tabular is implemented by results that can be shown as tables. Text and
// xlsx output require it; JSON output marshals the result itself.
type Tabular interface {
	Tables() []Table
}

// Formatter writes command results.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextFormatter writes tables aligned with tabwriter and anything else
// with %v.
type TextFormatter struct{}

// FormatTo writes data to w in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	tab, ok := data.(Tabular)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	for i, t := range tab.Tables() {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if t.Name != "" {
			if _, err := fmt.Fprintf(w, "%s\n", t.Name); err != nil {
				return err
			}
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		if len(t.Headers) > 0 {
			fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
		}
		for _, row := range t.Rows {
			cells := make([]string, len(row))
			for j, c := range row {
				cells[j] = fmt.Sprint(c)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// maxSheetName is Excel's limit on worksheet names.
const maxSheetName = 31

// XLSXFormatter writes tables as worksheets of one workbook.
type XLSXFormatter struct{}

// FormatTo writes data to w as an xlsx workbook. data must be Tabular.
func (f *XLSXFormatter) FormatTo(w io.Writer, data any) error {
	tab, ok := data.(Tabular)
	if !ok {
		return fmt.Errorf("xlsx output needs tabular data, got %T", data)
	}

	book := excelize.NewFile()
	defer book.Close()

	header, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	used := make(map[string]bool)
	for i, t := range tab.Tables() {
		name := sheetName(t.Name, i, used)
		if i == 0 {
			if err := book.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := book.NewSheet(name); err != nil {
			return err
		}

		row := 1
		if len(t.Headers) > 0 {
			cells := make([]any, len(t.Headers))
			for j, h := range t.Headers {
				cells[j] = h
			}
			if err := writeRow(book, name, row, cells); err != nil {
				return err
			}
			if err := book.SetRowStyle(name, row, row, header); err != nil {
				return err
			}
			row++
		}
		for _, r := range t.Rows {
			if err := writeRow(book, name, row, r); err != nil {
				return err
			}
			row++
		}
	}

	return book.Write(w)
}

func writeRow(book *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return book.SetSheetRow(sheet, cell, &cells)
}

// sheetName returns a unique worksheet name within Excel's limits.
func sheetName(name string, index int, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	base := name
	for n := 2; used[name]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		if len(base)+len(suffix) > maxSheetName {
			name = base[:maxSheetName-len(suffix)] + suffix
		} else {
			name = base + suffix
		}
	}
	used[name] = true
	return name
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatXLSX:
		return &XLSXFormatter{}
	default:
		return &TextFormatter{}
	}
}
