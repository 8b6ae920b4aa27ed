package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"mercator-hq/itemengine/pkg/qti/ast"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantParse      bool
		wantEvaluation bool
		wantState      bool
	}{
		{"syntax", New(ErrorTypeSyntax, "bad xml"), true, false, false},
		{"semantic in list", func() error {
			el := NewErrorList()
			el.AddError(ErrorTypeSemantic, "undeclared", ast.Location{Line: 3})
			return el.ToError()
		}(), true, false, false},
		{"evaluation wrapped", fmt.Errorf("processing: %w", Evaluation(ast.Location{}, nil, "bad literal")), false, true, false},
		{"state", AlreadyCompleted(), false, false, true},
		{"plain", stderrors.New("x"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsParseError(tt.err); got != tt.wantParse {
				t.Errorf("IsParseError() = %v, want %v", got, tt.wantParse)
			}
			if got := IsEvaluationError(tt.err); got != tt.wantEvaluation {
				t.Errorf("IsEvaluationError() = %v, want %v", got, tt.wantEvaluation)
			}
			if got := IsStateError(tt.err); got != tt.wantState {
				t.Errorf("IsStateError() = %v, want %v", got, tt.wantState)
			}
		})
	}
}

func TestAlreadyCompletedUnwraps(t *testing.T) {
	if !stderrors.Is(AlreadyCompleted(), ErrAlreadyCompleted) {
		t.Error("AlreadyCompleted() does not wrap ErrAlreadyCompleted")
	}
}

func TestErrorListToError(t *testing.T) {
	el := NewErrorList()
	if el.ToError() != nil {
		t.Error("ToError() on empty list should be nil")
	}
	el.AddErrorWithSuggestion(ErrorTypeStructural, "unknown element", ast.Location{Line: 1, Column: 2}, "Did you mean 'match'?")
	el.AddError(ErrorTypeSemantic, "undeclared variable", ast.Location{})

	if el.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", el.Count())
	}
	if !el.HasErrorType(ErrorTypeSemantic) || el.HasErrorType(ErrorTypeState) {
		t.Error("HasErrorType() returned wrong result")
	}
	if len(el.ByType(ErrorTypeStructural)) != 1 {
		t.Error("ByType(structural) should return one error")
	}
	if msg := el.Error(); !strings.Contains(msg, "Found 2 error(s)") || !strings.Contains(msg, "Did you mean 'match'?") {
		t.Errorf("Error() = %q", msg)
	}
}

func TestSuggestName(t *testing.T) {
	tests := []struct {
		unknown string
		valid   []string
		want    string
	}{
		{"mathc", []string{"match", "member", "sum"}, "Did you mean 'match'?"},
		{"zzzzzzzz", []string{"a", "b"}, "Valid names: a, b"},
		{"x", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.unknown, func(t *testing.T) {
			if got := SuggestName(tt.unknown, tt.valid); got != tt.want {
				t.Errorf("SuggestName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuggestIdentifier(t *testing.T) {
	if got := SuggestIdentifier("RESPONS", []string{"RESPONSE", "SCORE"}); got != "Did you mean 'RESPONSE'?" {
		t.Errorf("SuggestIdentifier() = %q", got)
	}
	if got := SuggestIdentifier("FOO", []string{"RESPONSE"}); got != "" {
		t.Errorf("SuggestIdentifier() = %q, want empty", got)
	}
}

func TestExtractContext(t *testing.T) {
	src := []byte("line one\nline two\nline three\nline four")

	got := ExtractContext(src, 2, 3, 1)
	want := "   1 | line one\n-> 2 | line two\n     |   ^\n   3 | line three\n"
	if got != want {
		t.Errorf("ExtractContext() =\n%q\nwant\n%q", got, want)
	}

	if got := ExtractContext(src, 99, 1, 1); got != "" {
		t.Errorf("ExtractContext() past end = %q, want empty", got)
	}
}
