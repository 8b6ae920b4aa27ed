package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/itemengine/pkg/cli"
	"mercator-hq/itemengine/pkg/item"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check that QTI item documents compile",
	Long: `Parse and validate one or more QTI item documents. Every problem found is
reported with its location and, where possible, a suggested fix.

Exits with status 3 when any item is invalid.`,
	Example: `  itemengine validate items/*.xml
  itemengine validate --format xlsx -o report.xlsx items/*.xml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

type validatedItem struct {
	File       string         `json:"file"`
	Identifier string         `json:"identifier,omitempty"`
	Title      string         `json:"title,omitempty"`
	Valid      bool           `json:"valid"`
	Problems   []problemEntry `json:"problems,omitempty"`
}

type problemEntry struct {
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

type validateResult struct {
	Items []validatedItem `json:"items"`
}

func (r validateResult) Tables() []cli.Table {
	items := cli.Table{Name: "Items", Headers: []string{"File", "Identifier", "Valid", "Errors"}}
	problems := cli.Table{Name: "Errors", Headers: []string{"File", "Line", "Column", "Type", "Message", "Suggestion"}}
	for _, it := range r.Items {
		items.Rows = append(items.Rows, []any{it.File, it.Identifier, it.Valid, len(it.Problems)})
		for _, p := range it.Problems {
			problems.Rows = append(problems.Rows, []any{it.File, p.Line, p.Column, p.Type, p.Message, p.Suggestion})
		}
	}
	if len(problems.Rows) == 0 {
		return []cli.Table{items}
	}
	return []cli.Table{items, problems}
}

func runValidate(cmd *cobra.Command, args []string) error {
	progress := cli.NewProgressReporter(cmd.ErrOrStderr())
	progress.Start(len(args))

	var (
		result   validateResult
		firstErr error
		invalid  int
	)
	for _, path := range args {
		entry := validatedItem{File: path}
		def, err := compileFile(path)
		progress.Done(path, err)
		if err != nil {
			invalid++
			if firstErr == nil {
				firstErr = err
			}
			entry.Problems = problems(err)
			env.logger.Debug("item invalid", "file", path, "problems", len(entry.Problems))
		} else {
			entry.Valid = true
			entry.Identifier = def.Identifier()
			entry.Title = def.Title()
		}
		result.Items = append(result.Items, entry)
	}
	progress.Finish()

	if err := writeResult(cmd, result); err != nil {
		return err
	}
	if invalid > 0 {
		return cli.NewCommandError("validate", fmt.Errorf("%d of %d items invalid: %w", invalid, len(args), firstErr))
	}
	return nil
}

func compileFile(path string, opts ...item.Option) (*item.Definition, error) {
	source, err := readSource(path)
	if err != nil {
		return nil, err
	}
	opts = append(itemOptions(item.WithSourceName(sourceName(path))), opts...)
	return item.Compile(source, opts...)
}

// problems flattens a compile error into report rows.
func problems(err error) []problemEntry {
	var list *qtiErrors.ErrorList
	if errors.As(err, &list) {
		out := make([]problemEntry, 0, len(list.Errors))
		for _, e := range list.Errors {
			out = append(out, problemOf(e))
		}
		return out
	}
	var e *qtiErrors.Error
	if errors.As(err, &e) {
		return []problemEntry{problemOf(e)}
	}
	return []problemEntry{{Type: "io", Message: err.Error()}}
}

func problemOf(e *qtiErrors.Error) problemEntry {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return problemEntry{
		Line:       e.Location.Line,
		Column:     e.Location.Column,
		Type:       string(e.Type),
		Message:    msg,
		Suggestion: e.Suggestion,
	}
}
