package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/itemengine/pkg/cli"
	"mercator-hq/itemengine/pkg/qti/interaction"
)

var interactionsFlags sessionFlags

var interactionsCmd = &cobra.Command{
	Use:   "interactions FILE",
	Short: "List an item's interactions and check candidate responses",
	Long: `List the interactions of an item body in document order, with choices in
the order the session's random source shuffled them.

With --responses, also report progress, whether the responses may be
submitted, and any response that does not fit its interaction.`,
	Example: `  itemengine interactions item.xml
  itemengine interactions --seed 3 -r responses.yaml item.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runInteractions,
}

func init() {
	interactionsFlags.register(interactionsCmd)
	rootCmd.AddCommand(interactionsCmd)
}

type interactionEntry struct {
	interaction.Interaction
	Order []string `json:"order,omitempty"`
}

type interactionsResult struct {
	Identifier   string                        `json:"identifier"`
	Interactions []interactionEntry            `json:"interactions"`
	Progress     interaction.Progress          `json:"progress"`
	CanSubmit    bool                          `json:"canSubmit"`
	Validation   *interaction.ValidationReport `json:"validation,omitempty"`
}

func (r interactionsResult) Tables() []cli.Table {
	list := cli.Table{Name: "Interactions", Headers: []string{"Type", "Response", "MaxChoices", "Shuffle", "Choices"}}
	for _, in := range r.Interactions {
		list.Rows = append(list.Rows, []any{
			string(in.Type), in.ResponseIdentifier, in.MaxChoices, in.Shuffle, strings.Join(in.Order, " "),
		})
	}
	status := cli.Table{
		Name:    "Progress",
		Headers: []string{"Total", "Answered", "Unanswered", "CanSubmit"},
		Rows:    [][]any{{r.Progress.Total, r.Progress.Answered, r.Progress.Unanswered, r.CanSubmit}},
	}
	tables := []cli.Table{list, status}
	if r.Validation != nil && !r.Validation.Valid {
		problems := cli.Table{Name: "Problems", Headers: []string{"Response", "Problem"}}
		ids := make([]string, 0, len(r.Validation.Errors))
		for id := range r.Validation.Errors {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			for _, msg := range r.Validation.Errors[id] {
				problems.Rows = append(problems.Rows, []any{id, msg})
			}
		}
		tables = append(tables, problems)
	}
	return tables
}

func runInteractions(cmd *cobra.Command, args []string) error {
	it, responses, err := interactionsFlags.open(cmd, args[0], false)
	if err != nil {
		return err
	}

	result := interactionsResult{
		Identifier: it.Identifier(),
		Progress:   it.Progress(responses),
		CanSubmit:  it.CanSubmitResponses(responses),
	}
	for _, in := range it.Interactions() {
		entry := interactionEntry{Interaction: in}
		choices := in.Choices
		if in.ResponseIdentifier != "" && in.Shuffle {
			choices = it.ShuffledChoices(in.ResponseIdentifier)
		}
		for _, c := range choices {
			entry.Order = append(entry.Order, c.Identifier)
		}
		result.Interactions = append(result.Interactions, entry)
	}
	if responses != nil {
		report := it.ValidateResponses(responses)
		result.Validation = &report
	}
	return writeResult(cmd, result)
}
