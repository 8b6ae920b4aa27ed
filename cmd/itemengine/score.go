package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/itemengine/pkg/cli"
	"mercator-hq/itemengine/pkg/qti/session"
	"mercator-hq/itemengine/pkg/qti/value"
)

var scoreFlags sessionFlags

var scoreCmd = &cobra.Command{
	Use:   "score FILE",
	Short: "Run response processing without submitting an attempt",
	Long: `Run the item's response processing against the given responses and print
the resulting outcome variables. numAttempts is not changed and completion
is not recorded, so the command can be repeated freely.`,
	Example: `  itemengine score -r responses.yaml item.xml
  itemengine score --format json -r responses.json item.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	scoreFlags.register(scoreCmd)
	rootCmd.AddCommand(scoreCmd)
}

type scoreResult struct {
	Identifier       string         `json:"identifier"`
	CompletionStatus session.Status `json:"completionStatus"`
	RulesExecuted    int            `json:"rulesExecuted"`
	Outcomes         map[string]any `json:"outcomes"`

	outcomes map[string]value.Value
}

func (r scoreResult) Tables() []cli.Table {
	return []cli.Table{{Name: "Outcomes", Headers: variableHeaders, Rows: variableRows(r.outcomes)}}
}

func runScore(cmd *cobra.Command, args []string) error {
	it, _, err := scoreFlags.open(cmd, args[0], true)
	if err != nil {
		return err
	}
	res, err := it.ProcessResponses(env.ctx)
	if err != nil {
		return cli.NewCommandError("score", err)
	}
	return writeResult(cmd, scoreResult{
		Identifier:       it.Identifier(),
		CompletionStatus: res.CompletionStatus,
		RulesExecuted:    res.RulesExecuted,
		Outcomes:         hostValues(res.Outcomes),
		outcomes:         res.Outcomes,
	})
}
