package main

import (
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/itemengine/pkg/cli"
	"mercator-hq/itemengine/pkg/qti/session"
)

var renderFlags sessionFlags

var renderCmd = &cobra.Command{
	Use:   "render FILE",
	Short: "Render an item body as sanitized HTML",
	Long: `Start a session on an item and print its body as HTML, with template
values substituted and scripts, event handlers and unsafe URLs removed.

Modal feedback visible in the session's current state follows the body.`,
	Example: `  itemengine render item.xml
  itemengine render --seed 7 --snapshot session.json item.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderFlags.register(renderCmd)
	rootCmd.AddCommand(renderCmd)
}

type renderResult struct {
	Identifier string                     `json:"identifier"`
	SessionID  string                     `json:"sessionId"`
	HTML       string                     `json:"html"`
	Feedback   []session.RenderedFeedback `json:"feedback,omitempty"`
}

func (r renderResult) String() string {
	var sb strings.Builder
	sb.WriteString(r.HTML)
	for _, fb := range r.Feedback {
		sb.WriteString("\n<!-- feedback ")
		sb.WriteString(fb.Identifier)
		sb.WriteString(" -->\n")
		sb.WriteString(fb.HTML)
	}
	return sb.String()
}

func (r renderResult) Tables() []cli.Table {
	t := cli.Table{Name: "Content", Headers: []string{"Part", "Identifier", "HTML"}}
	t.Rows = append(t.Rows, []any{"itemBody", r.Identifier, r.HTML})
	for _, fb := range r.Feedback {
		t.Rows = append(t.Rows, []any{"modalFeedback", fb.Identifier, fb.HTML})
	}
	return []cli.Table{t}
}

func runRender(cmd *cobra.Command, args []string) error {
	it, _, err := renderFlags.open(cmd, args[0], true)
	if err != nil {
		return err
	}
	html, err := it.ItemBodyHTMLContext(env.ctx)
	if err != nil {
		return cli.NewCommandError("render", err)
	}

	result := renderResult{
		Identifier: it.Identifier(),
		SessionID:  it.SessionID(),
		HTML:       html,
		Feedback:   it.Feedback(),
	}
	if env.format == cli.FormatText {
		return writeResult(cmd, result.String())
	}
	return writeResult(cmd, result)
}
