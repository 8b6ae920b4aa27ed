package session

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"mercator-hq/itemengine/internal/qti/testitems"
	"mercator-hq/itemengine/pkg/qti/ast"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
	"mercator-hq/itemengine/pkg/qti/value"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	item := parseItem(t, testitems.Adaptive)
	s := NewState(item.Declarations)
	_ = s.Assign("RESPONSE", value.Identifier("DoorA"))
	_ = s.Set("FEEDBACK", value.Identifier("TRYAGAIN"))
	_ = s.SetDefault("SCORE", value.Float(0.5))
	s.setNumAttempts(1)
	s.setStatus(StatusUnknown)
	s.SetDuration(42)

	snap := s.Snapshot(item.Identifier, "session-1")
	if snap.Version != SnapshotVersion || snap.ItemIdentifier != "adaptive" || snap.SessionID != "session-1" {
		t.Errorf("Snapshot() header = %+v", snap)
	}
	if _, ok := snap.Responses[ast.NumAttempts]; ok {
		t.Error("Snapshot() repeats a built-in in the bindings")
	}
	if len(snap.Correct) != 0 {
		t.Errorf("Snapshot() Correct = %v, want only changed entries", snap.Correct)
	}
	if _, ok := snap.Defaults["SCORE"]; !ok {
		t.Error("Snapshot() lost a changed default")
	}

	data, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatalf("EncodeSnapshot() failed: %v", err)
	}
	decoded, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot() failed: %v\n%s", err, data)
	}

	restored := NewState(item.Declarations)
	if err := restored.Restore(decoded); err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}

	if restored.NumAttempts() != 1 || restored.Status() != StatusUnknown || restored.Duration() != 42 {
		t.Errorf("restored built-ins = %d %s %v", restored.NumAttempts(), restored.Status(), restored.Duration())
	}
	for _, id := range []string{"RESPONSE", "HINTREQUEST", "SCORE", "FEEDBACK"} {
		if !restored.Get(id).Equal(s.Get(id)) {
			t.Errorf("restored %s = %v, want %v", id, restored.Get(id), s.Get(id))
		}
	}
	if !restored.Default("SCORE").Equal(value.Float(0.5)) {
		t.Errorf("restored default = %v, want 0.5", restored.Default("SCORE"))
	}
}

func TestSnapshot_ChoiceOrders(t *testing.T) {
	item := parseItem(t, testitems.Choice)
	s := NewState(item.Declarations)
	if err := s.SetChoiceOrder("RESPONSE", []string{"ChoiceB", "ChoiceA", "ChoiceC"}); err != nil {
		t.Fatalf("SetChoiceOrder() failed: %v", err)
	}
	if err := s.SetChoiceOrder("SCORE", []string{"x"}); err == nil {
		t.Error("SetChoiceOrder(SCORE) succeeded on an outcome")
	}

	data, err := EncodeSnapshot(s.Snapshot(item.Identifier, ""))
	if err != nil {
		t.Fatalf("EncodeSnapshot() failed: %v", err)
	}
	decoded, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot() failed: %v\n%s", err, data)
	}
	restored := NewState(item.Declarations)
	if err := restored.Restore(decoded); err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}

	order, ok := restored.ChoiceOrder("RESPONSE")
	if !ok || strings.Join(order, ",") != "ChoiceB,ChoiceA,ChoiceC" {
		t.Errorf("restored ChoiceOrder() = %v, %v", order, ok)
	}
	order[0] = "changed"
	if again, _ := restored.ChoiceOrder("RESPONSE"); again[0] != "ChoiceB" {
		t.Error("ChoiceOrder() shares storage with the state")
	}
}

func TestSnapshot_YAML(t *testing.T) {
	item := parseItem(t, testitems.Choice)
	s := NewState(item.Declarations)
	_ = s.Assign("RESPONSE", value.Identifier("ChoiceA"))

	data, err := yaml.Marshal(s.Snapshot(item.Identifier, ""))
	if err != nil {
		t.Fatalf("yaml.Marshal() failed: %v", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		t.Fatalf("yaml.Unmarshal() failed: %v", err)
	}

	restored := NewState(item.Declarations)
	if err := restored.Restore(&snap); err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	if !restored.Get("RESPONSE").Equal(value.Identifier("ChoiceA")) {
		t.Errorf("RESPONSE = %v, want ChoiceA", restored.Get("RESPONSE"))
	}
}

func TestSnapshot_DefensiveCopy(t *testing.T) {
	item := parseItem(t, testitems.Choice)
	s := NewState(item.Declarations)
	_ = s.Assign("RESPONSE", value.Identifier("ChoiceA"))

	snap := s.Snapshot(item.Identifier, "")
	snap.Responses["RESPONSE"] = value.Encode(value.Identifier("ChoiceB"))
	snap.NumAttempts = 7

	if !s.Get("RESPONSE").Equal(value.Identifier("ChoiceA")) || s.NumAttempts() != 0 {
		t.Error("mutating a snapshot changed the state")
	}
}

func TestDecodeSnapshot_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing item", `{"version":1,"completionStatus":"unknown","numAttempts":0}`},
		{"bad status", `{"version":1,"itemIdentifier":"x","completionStatus":"done","numAttempts":0}`},
		{"negative attempts", `{"version":1,"itemIdentifier":"x","completionStatus":"unknown","numAttempts":-1}`},
		{"wrong version", `{"version":2,"itemIdentifier":"x","completionStatus":"unknown","numAttempts":0}`},
		{"extra property", `{"version":1,"itemIdentifier":"x","completionStatus":"unknown","numAttempts":0,"score":1}`},
		{"bad value shape", `{"version":1,"itemIdentifier":"x","completionStatus":"unknown","numAttempts":0,"responses":{"R":{"values":"A"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(tt.data))
			if err == nil {
				t.Fatal("DecodeSnapshot() succeeded, want error")
			}
			if !qtiErrors.IsValidationError(err) {
				t.Errorf("DecodeSnapshot() error = %v, want validation error", err)
			}
		})
	}
}

func TestRestore_Rejects(t *testing.T) {
	item := parseItem(t, testitems.Adaptive)

	base := func() *Snapshot {
		return &Snapshot{Version: SnapshotVersion, ItemIdentifier: "adaptive", Status: StatusUnknown, NumAttempts: 1}
	}
	tests := []struct {
		name   string
		mutate func(*Snapshot)
		want   string
	}{
		{"undeclared", func(s *Snapshot) {
			s.Outcomes = map[string]value.Encoded{"NOPE": value.Encode(value.Float(1))}
		}, "undeclared"},
		{"wrong kind", func(s *Snapshot) {
			s.Responses = map[string]value.Encoded{"SCORE": value.Encode(value.Float(1))}
		}, "declared as outcome"},
		{"wrong base type", func(s *Snapshot) {
			s.Outcomes = map[string]value.Encoded{
				"FEEDBACK": value.Encode(value.Identifier("OK")),
				"SCORE":    value.Encode(value.Identifier("high")),
			}
		}, "SCORE"},
		{"built-in binding", func(s *Snapshot) {
			s.Responses = map[string]value.Encoded{ast.NumAttempts: value.Encode(value.Integer(3))}
		}, "undeclared"},
		{"bad status", func(s *Snapshot) { s.Status = "done" }, "completion status"},
		{"choice order on outcome", func(s *Snapshot) {
			s.ChoiceOrders = map[string][]string{"SCORE": {"A", "B"}}
		}, "not a response variable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(item.Declarations)
			_ = s.Set("FEEDBACK", value.Identifier("BEFORE"))

			snap := base()
			tt.mutate(snap)
			err := s.Restore(snap)
			if err == nil {
				t.Fatal("Restore() succeeded, want error")
			}
			if !qtiErrors.IsValidationError(err) || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Restore() error = %v, want validation error mentioning %q", err, tt.want)
			}
			if !s.Get("FEEDBACK").Equal(value.Identifier("BEFORE")) || s.NumAttempts() != 0 {
				t.Error("rejected snapshot modified the state")
			}
		})
	}
}
