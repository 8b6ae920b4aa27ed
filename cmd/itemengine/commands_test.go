package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"mercator-hq/itemengine/internal/qti/testitems"
	"mercator-hq/itemengine/pkg/cli"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
	"mercator-hq/itemengine/pkg/qti/session"
)

// executeCommand runs the root command with args and returns its stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	if err != nil && env.stop != nil {
		_ = teardown(rootCmd, nil)
	}
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// writeFile writes data into the test's temp dir and returns the path.
func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile(%s) failed: %v", name, err)
	}
	return path
}

func writeItem(t *testing.T, name string) string {
	t.Helper()
	return writeFile(t, name, testitems.Bytes(name))
}

func TestValidateCommand(t *testing.T) {
	choice := writeItem(t, testitems.Choice)
	adaptive := writeItem(t, testitems.Adaptive)

	out, err := executeCommand(t, "validate", choice, adaptive)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.HasPrefix(out, "Items\n") {
		t.Errorf("output does not start with the Items table:\n%s", out)
	}
	for _, want := range []string{"choice", "adaptive", "true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Errors\n") {
		t.Errorf("output has an Errors table for valid items:\n%s", out)
	}
}

func TestValidateCommand_Invalid(t *testing.T) {
	good := writeItem(t, testitems.Choice)
	bad := writeFile(t, "broken.xml", []byte(`<assessmentItem identifier="x"><itemBody>`))

	out, err := executeCommand(t, "validate", "--format", "json", good, bad)
	if err == nil {
		t.Fatal("validate succeeded with an invalid item")
	}
	if code := cli.ExitCode(err); code != cli.ExitInvalidItem {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitInvalidItem)
	}

	var result struct {
		Items []struct {
			File     string `json:"file"`
			Valid    bool   `json:"valid"`
			Problems []struct {
				Type string `json:"type"`
			} `json:"problems"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(result.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(result.Items))
	}
	if !result.Items[0].Valid || result.Items[1].Valid {
		t.Errorf("valid = %v, %v, want true, false", result.Items[0].Valid, result.Items[1].Valid)
	}
	if len(result.Items[1].Problems) == 0 || result.Items[1].Problems[0].Type != string(qtiErrors.ErrorTypeSyntax) {
		t.Errorf("problems = %+v, want a syntax error", result.Items[1].Problems)
	}
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, err := executeCommand(t, "validate", filepath.Join(t.TempDir(), "missing.xml"))
	var inputErr *cli.InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("error = %v, want *cli.InputError", err)
	}
	if code := cli.ExitCode(err); code != cli.ExitFailure {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitFailure)
	}
}

func TestValidateCommand_XLSX(t *testing.T) {
	item := writeItem(t, testitems.Choice)
	out := filepath.Join(t.TempDir(), "report.xlsx")

	if _, err := executeCommand(t, "validate", "--format", "xlsx", "-o", out, item); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	book, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("OpenFile() failed: %v", err)
	}
	defer book.Close()

	if sheets := book.GetSheetList(); len(sheets) != 1 || sheets[0] != "Items" {
		t.Fatalf("sheets = %v, want [Items]", sheets)
	}
	got, err := book.GetCellValue("Items", "B2")
	if err != nil {
		t.Fatalf("GetCellValue() failed: %v", err)
	}
	if got != "choice" {
		t.Errorf("B2 = %q, want choice", got)
	}
}

func TestScoreCommand(t *testing.T) {
	item := writeItem(t, testitems.Choice)

	tests := []struct {
		response string
		want     float64
	}{
		{"ChoiceA", 1},
		{"ChoiceC", 0},
	}

	for _, tt := range tests {
		t.Run(tt.response, func(t *testing.T) {
			responses := writeFile(t, "responses.yaml", []byte("RESPONSE: "+tt.response+"\n"))
			out, err := executeCommand(t, "score", "--format", "json", "-r", responses, item)
			if err != nil {
				t.Fatalf("score failed: %v", err)
			}

			var result struct {
				Identifier string         `json:"identifier"`
				Outcomes   map[string]any `json:"outcomes"`
			}
			if err := json.Unmarshal([]byte(out), &result); err != nil {
				t.Fatalf("output is not JSON: %v\n%s", err, out)
			}
			if result.Identifier != "choice" {
				t.Errorf("identifier = %q, want choice", result.Identifier)
			}
			if got := result.Outcomes["SCORE"]; got != tt.want {
				t.Errorf("SCORE = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreCommand_TextTable(t *testing.T) {
	item := writeItem(t, testitems.Choice)
	responses := writeFile(t, "responses.json", []byte(`{"RESPONSE": "ChoiceA"}`))

	out, err := executeCommand(t, "score", "-r", responses, item)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if !strings.HasPrefix(out, "Outcomes\nIdentifier") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "SCORE") {
		t.Errorf("output missing SCORE:\n%s", out)
	}
}

func TestScoreCommand_BadResponses(t *testing.T) {
	item := writeItem(t, testitems.Choice)
	responses := writeFile(t, "responses.yaml", []byte("RESPONS: ChoiceA\n"))

	_, err := executeCommand(t, "score", "-r", responses, item)
	if !qtiErrors.IsValidationError(err) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if code := cli.ExitCode(err); code != cli.ExitFailure {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitFailure)
	}
}

type attemptOutput struct {
	SessionID        string         `json:"sessionId"`
	NumAttempts      int64          `json:"numAttempts"`
	CompletionStatus string         `json:"completionStatus"`
	CanContinue      bool           `json:"canContinue"`
	Outcomes         map[string]any `json:"outcomes"`
}

func runAttemptJSON(t *testing.T, args ...string) attemptOutput {
	t.Helper()
	out, err := executeCommand(t, append([]string{"attempt", "--format", "json"}, args...)...)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	var result attemptOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	return result
}

func TestAttemptCommand_ResumeFromSnapshot(t *testing.T) {
	item := writeItem(t, testitems.Adaptive)
	responses := writeFile(t, "responses.yaml", []byte("RESPONSE: DoorA\n"))
	snap := filepath.Join(t.TempDir(), "session.json")

	first := runAttemptJSON(t, "-r", responses, "--save-snapshot", snap, item)
	if first.NumAttempts != 1 || !first.CanContinue {
		t.Fatalf("first attempt = %+v, want 1 attempt that can continue", first)
	}

	second := runAttemptJSON(t, "-r", responses, "--snapshot", snap, "--save-snapshot", snap, item)
	if second.NumAttempts != 2 || second.CompletionStatus != string(session.StatusCompleted) {
		t.Errorf("second attempt = %+v, want 2 attempts and completed", second)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("session ID changed on resume: %s -> %s", first.SessionID, second.SessionID)
	}

	_, err := executeCommand(t, "attempt", "-r", responses, "--snapshot", snap, item)
	if !errors.Is(err, qtiErrors.ErrAlreadyCompleted) {
		t.Fatalf("third attempt error = %v, want ErrAlreadyCompleted", err)
	}
	if code := cli.ExitCode(err); code != cli.ExitFailure {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitFailure)
	}
}

func TestAttemptCommand_YAMLSnapshot(t *testing.T) {
	item := writeItem(t, testitems.Adaptive)
	responses := writeFile(t, "responses.yaml", []byte("RESPONSE: DoorA\n"))
	snapJSON := filepath.Join(t.TempDir(), "session.json")

	runAttemptJSON(t, "-r", responses, "--save-snapshot", snapJSON, item)

	data, err := os.ReadFile(snapJSON)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("yaml.Unmarshal() failed: %v", err)
	}
	yamlData, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("yaml.Marshal() failed: %v", err)
	}
	snapYAML := writeFile(t, "session.yaml", yamlData)

	second := runAttemptJSON(t, "-r", responses, "--snapshot", snapYAML, item)
	if second.NumAttempts != 2 {
		t.Errorf("NumAttempts = %d after resuming from YAML, want 2", second.NumAttempts)
	}
}

func TestAttemptCommand_Uncounted(t *testing.T) {
	item := writeItem(t, testitems.Adaptive)
	responses := writeFile(t, "responses.yaml", []byte("HINTREQUEST: true\n"))

	result := runAttemptJSON(t, "-r", responses, "--uncounted", "--duration", "45s", item)
	if result.NumAttempts != 0 {
		t.Errorf("NumAttempts = %d for an uncounted attempt, want 0", result.NumAttempts)
	}
	if result.CompletionStatus == string(session.StatusCompleted) {
		t.Error("uncounted attempt completed the session")
	}
}

func TestRenderCommand_Sanitized(t *testing.T) {
	item := writeItem(t, testitems.Hostile)

	out, err := executeCommand(t, "render", item)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(out, "Read the passage.") {
		t.Errorf("output missing body text:\n%s", out)
	}
	lower := strings.ToLower(out)
	for _, bad := range []string{"<script", "onclick", "onerror", "javascript:", "srcdoc", "<noscript"} {
		if strings.Contains(lower, bad) {
			t.Errorf("output contains %q:\n%s", bad, out)
		}
	}
}

func TestRenderCommand_JSON(t *testing.T) {
	item := writeItem(t, testitems.Choice)

	out, err := executeCommand(t, "render", "--format", "json", item)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	var result struct {
		Identifier string `json:"identifier"`
		SessionID  string `json:"sessionId"`
		HTML       string `json:"html"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if result.Identifier != "choice" || result.SessionID == "" {
		t.Errorf("result = %+v", result)
	}
	if !strings.Contains(result.HTML, "Look at the text in the picture.") {
		t.Errorf("html missing body text: %s", result.HTML)
	}
}

type interactionsOutput struct {
	Interactions []struct {
		Type               string   `json:"type"`
		ResponseIdentifier string   `json:"responseIdentifier"`
		Order              []string `json:"order"`
	} `json:"interactions"`
	Progress struct {
		Total    int `json:"total"`
		Answered int `json:"answered"`
	} `json:"progress"`
	CanSubmit  bool `json:"canSubmit"`
	Validation *struct {
		Valid  bool                `json:"valid"`
		Errors map[string][]string `json:"errors"`
	} `json:"validation"`
}

func runInteractionsJSON(t *testing.T, args ...string) interactionsOutput {
	t.Helper()
	out, err := executeCommand(t, append([]string{"interactions", "--format", "json"}, args...)...)
	if err != nil {
		t.Fatalf("interactions failed: %v", err)
	}
	var result interactionsOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	return result
}

func TestInteractionsCommand(t *testing.T) {
	item := writeItem(t, testitems.Choice)

	result := runInteractionsJSON(t, item)
	if len(result.Interactions) != 1 {
		t.Fatalf("got %d interactions, want 1", len(result.Interactions))
	}
	in := result.Interactions[0]
	if in.Type != "choiceInteraction" || in.ResponseIdentifier != "RESPONSE" {
		t.Errorf("interaction = %+v", in)
	}
	if strings.Join(in.Order, ",") != "ChoiceA,ChoiceB,ChoiceC" {
		t.Errorf("order = %v, want document order", in.Order)
	}
	if result.Progress.Total != 1 || result.Progress.Answered != 0 || result.CanSubmit {
		t.Errorf("progress = %+v canSubmit %v, want nothing answered", result.Progress, result.CanSubmit)
	}
	if result.Validation != nil {
		t.Errorf("validation reported without responses: %+v", result.Validation)
	}
}

func TestInteractionsCommand_Responses(t *testing.T) {
	item := writeItem(t, testitems.Choice)

	tests := []struct {
		name      string
		responses string
		valid     bool
		answered  int
	}{
		{"answered", "RESPONSE: ChoiceB\n", true, 1},
		{"undeclared", "RESPONSE: ChoiceB\nOTHER: x\n", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := writeFile(t, "responses.yaml", []byte(tt.responses))
			result := runInteractionsJSON(t, "-r", responses, item)

			if result.Validation == nil || result.Validation.Valid != tt.valid {
				t.Fatalf("validation = %+v, want valid %v", result.Validation, tt.valid)
			}
			if !tt.valid && len(result.Validation.Errors["OTHER"]) == 0 {
				t.Errorf("errors = %v, want an entry for OTHER", result.Validation.Errors)
			}
			if result.Progress.Answered != tt.answered || !result.CanSubmit {
				t.Errorf("progress = %+v canSubmit %v", result.Progress, result.CanSubmit)
			}
		})
	}
}

func TestSanitizeCommand(t *testing.T) {
	fragment := writeFile(t, "fragment.html", []byte(`<p onclick="x()">hi</p><script>bad()</script>`))

	out, err := executeCommand(t, "sanitize", fragment)
	if err != nil {
		t.Fatalf("sanitize failed: %v", err)
	}
	if !strings.Contains(out, "hi") || strings.Contains(out, "script") || strings.Contains(out, "onclick") {
		t.Errorf("unexpected output: %s", out)
	}

	out, err = executeCommand(t, "sanitize", "--format", "json", fragment)
	if err != nil {
		t.Fatalf("sanitize failed: %v", err)
	}
	var result struct {
		Removed struct {
			Scripts       int `json:"scripts"`
			EventHandlers int `json:"eventHandlers"`
		} `json:"removed"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if result.Removed.Scripts != 1 || result.Removed.EventHandlers != 1 {
		t.Errorf("removed = %+v, want one script and one handler", result.Removed)
	}
}

func TestMetricsFlag(t *testing.T) {
	item := writeItem(t, testitems.Choice)
	metricsOut := filepath.Join(t.TempDir(), "metrics.prom")

	if _, err := executeCommand(t, "--metrics", metricsOut, "validate", item); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	data, err := os.ReadFile(metricsOut)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(data), "parses_total") {
		t.Errorf("metrics dump missing parses_total:\n%s", data)
	}
}

func TestConfigErrors(t *testing.T) {
	item := writeItem(t, testitems.Choice)

	tests := []struct {
		name string
		args []string
	}{
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "validate", item}},
		{"unknown format", []string{"--format", "csv", "validate", item}},
		{"bad traceparent", []string{"--traceparent", "not-a-traceparent", "validate", item}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, tt.args...)
			if code := cli.ExitCode(err); code != cli.ExitConfig {
				t.Errorf("ExitCode(%v) = %d, want %d", err, code, cli.ExitConfig)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "itemengine "+Version) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestCompletionCommand(t *testing.T) {
	out, err := executeCommand(t, "completion", "bash")
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	if !strings.Contains(out, "itemengine") {
		t.Error("completion script does not mention itemengine")
	}
}
