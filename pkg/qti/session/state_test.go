package session

import (
	"errors"
	"testing"

	"mercator-hq/itemengine/internal/qti/testitems"
	"mercator-hq/itemengine/pkg/qti/ast"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
	"mercator-hq/itemengine/pkg/qti/parser"
	"mercator-hq/itemengine/pkg/qti/value"
)

func parseItem(t *testing.T, name string) *ast.Item {
	t.Helper()
	item, err := parser.NewParser().ParseBytes(testitems.Bytes(name), name)
	if err != nil {
		t.Fatalf("ParseBytes(%s) failed: %v", name, err)
	}
	return item
}

func TestNewState_Defaults(t *testing.T) {
	item := parseItem(t, testitems.Adaptive)
	s := NewState(item.Declarations)

	if got := s.Get("SCORE"); !got.Equal(value.Float(0)) {
		t.Errorf("SCORE = %v, want 0", got)
	}
	if got := s.Get("FEEDBACK"); !got.IsNull() {
		t.Errorf("FEEDBACK = %v, want NULL", got)
	}
	if s.NumAttempts() != 0 {
		t.Errorf("NumAttempts() = %d, want 0", s.NumAttempts())
	}
	if s.Status() != StatusNotAttempted {
		t.Errorf("Status() = %s, want not_attempted", s.Status())
	}
	if got := s.Correct("RESPONSE"); !got.Equal(value.Identifier("DoorB")) {
		t.Errorf("Correct(RESPONSE) = %v, want DoorB", got)
	}
	if _, ok := s.Lookup("MISSING"); ok {
		t.Error("Lookup(MISSING) reported a binding")
	}
}

func TestState_Assign(t *testing.T) {
	item := parseItem(t, testitems.Adaptive)

	tests := []struct {
		name    string
		id      string
		v       value.Value
		wantErr bool
	}{
		{"conforming", "RESPONSE", value.Identifier("DoorA"), false},
		{"string is not an identifier", "RESPONSE", value.String("DoorC"), true},
		{"wrong base type", "HINTREQUEST", value.Identifier("maybe"), true},
		{"wrong cardinality", "RESPONSE", value.NewMultiple(value.BaseTypeIdentifier, value.NewIdentifier("A"), value.NewIdentifier("B")), true},
		{"undeclared", "NOPE", value.Integer(1), true},
		{"NULL", "RESPONSE", value.Null(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(item.Declarations)
			err := s.Assign(tt.id, tt.v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Assign() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.id == "RESPONSE" && s.Get("RESPONSE").IsNull() != tt.v.IsNull() {
				t.Errorf("Assign() stored %v", s.Get("RESPONSE"))
			}
		})
	}
}

func TestState_SetErrors(t *testing.T) {
	s := NewState(parseItem(t, testitems.Adaptive).Declarations)

	if err := s.Set("NOPE", value.Integer(1)); !errors.Is(err, qtiErrors.ErrNotFound) {
		t.Errorf("Set(NOPE) error = %v, want ErrNotFound", err)
	}
	if err := s.SetCorrect("SCORE", value.Float(1)); err == nil {
		t.Error("SetCorrect() on an outcome succeeded")
	}
	if err := s.SetDefault("SCORE", value.Float(2)); err != nil {
		t.Fatalf("SetDefault() failed: %v", err)
	}
	if got := s.Default("SCORE"); !got.Equal(value.Float(2)) {
		t.Errorf("Default(SCORE) = %v, want 2", got)
	}
}

func TestState_ResetOutcomes(t *testing.T) {
	s := NewState(parseItem(t, testitems.Adaptive).Declarations)
	_ = s.Set("SCORE", value.Float(1))
	_ = s.Set("FEEDBACK", value.Identifier("CORRECT"))
	s.setStatus(StatusCompleted)

	s.ResetOutcomes()

	if got := s.Get("SCORE"); !got.Equal(value.Float(0)) {
		t.Errorf("SCORE = %v, want 0", got)
	}
	if got := s.Get("FEEDBACK"); !got.IsNull() {
		t.Errorf("FEEDBACK = %v, want NULL", got)
	}
	if s.Status() != StatusCompleted {
		t.Errorf("Status() = %s, ResetOutcomes must keep completionStatus", s.Status())
	}
}

func TestState_Values(t *testing.T) {
	s := NewState(parseItem(t, testitems.Adaptive).Declarations)
	responses := s.Values(ast.KindResponse)

	for _, id := range []string{"RESPONSE", "HINTREQUEST", ast.NumAttempts, ast.Duration} {
		if _, ok := responses[id]; !ok {
			t.Errorf("Values(response) missing %s", id)
		}
	}
	if _, ok := responses["SCORE"]; ok {
		t.Error("Values(response) includes an outcome")
	}

	responses["RESPONSE"] = value.Identifier("DoorA")
	if !s.Get("RESPONSE").IsNull() {
		t.Error("Values() shares storage with the state")
	}
}

func TestState_Duration(t *testing.T) {
	s := NewState(parseItem(t, testitems.Choice).Declarations)
	s.SetDuration(12.5)
	if s.Duration() != 12.5 {
		t.Errorf("Duration() = %v, want 12.5", s.Duration())
	}
	if got := s.Get(ast.Duration); !got.Equal(value.Float(12.5)) {
		t.Errorf("duration binding = %v", got)
	}
}
