package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/itemengine/pkg/cli"
	"mercator-hq/itemengine/pkg/qti/session"
	"mercator-hq/itemengine/pkg/qti/value"
)

var (
	attemptFlags    sessionFlags
	attemptSave     string
	attemptUncount  bool
	attemptDuration time.Duration
)

var attemptCmd = &cobra.Command{
	Use:   "attempt FILE",
	Short: "Submit an attempt and report the outcome",
	Long: `Submit the given responses as one attempt. numAttempts is incremented
unless --uncounted is set, response processing runs, and the outcome
values, completion status and modal feedback are reported.

Use --save-snapshot to keep the session, and --snapshot to continue it
with a later attempt. A completed session rejects further attempts.`,
	Example: `  itemengine attempt -r responses.yaml --save-snapshot s.json item.xml
  itemengine attempt -r second.yaml --snapshot s.json --save-snapshot s.json item.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runAttempt,
}

func init() {
	attemptFlags.register(attemptCmd)
	attemptCmd.Flags().StringVar(&attemptSave, "save-snapshot", "", "write the session state to this file after the attempt")
	attemptCmd.Flags().BoolVar(&attemptUncount, "uncounted", false, "do not increment numAttempts")
	attemptCmd.Flags().DurationVar(&attemptDuration, "duration", 0, "time the candidate spent on the item")
	rootCmd.AddCommand(attemptCmd)
}

type attemptResult struct {
	Identifier string `json:"identifier"`
	SessionID  string `json:"sessionId"`
	*session.AttemptResult
	Outcomes map[string]any `json:"outcomes"`

	outcomes map[string]value.Value
}

func (r attemptResult) Tables() []cli.Table {
	score := "NULL"
	if r.Score != nil {
		score = fmt.Sprint(*r.Score)
	}
	summary := cli.Table{
		Name:    "Attempt",
		Headers: []string{"Identifier", "Session", "NumAttempts", "Status", "CanContinue", "Score"},
		Rows:    [][]any{{r.Identifier, r.SessionID, r.NumAttempts, string(r.CompletionStatus), r.CanContinue, score}},
	}
	tables := []cli.Table{summary, {Name: "Outcomes", Headers: variableHeaders, Rows: variableRows(r.outcomes)}}
	if len(r.Feedback) > 0 {
		fb := cli.Table{Name: "Feedback", Headers: []string{"Identifier", "Outcome", "Title", "HTML"}}
		for _, f := range r.Feedback {
			fb.Rows = append(fb.Rows, []any{f.Identifier, f.OutcomeIdentifier, f.Title, f.HTML})
		}
		tables = append(tables, fb)
	}
	return tables
}

func runAttempt(cmd *cobra.Command, args []string) error {
	it, _, err := attemptFlags.open(cmd, args[0], true)
	if err != nil {
		return err
	}
	if attemptDuration > 0 {
		it.SetDuration(attemptDuration)
	}

	res, err := it.SubmitAttempt(env.ctx, !attemptUncount)
	if err != nil {
		return cli.NewCommandError("attempt", err)
	}

	if attemptSave != "" {
		if err := saveSnapshot(attemptSave, it.SessionState()); err != nil {
			return err
		}
		env.logger.Debug("snapshot saved", "path", attemptSave, "session_id", it.SessionID())
	}

	return writeResult(cmd, attemptResult{
		Identifier:    it.Identifier(),
		SessionID:     it.SessionID(),
		AttemptResult: res,
		Outcomes:      hostValues(res.Outcomes),
		outcomes:      res.Outcomes,
	})
}
