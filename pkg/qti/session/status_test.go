package session

import (
	"errors"
	"testing"
)

func TestStatus_Transition(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		want    Status
		wantErr bool
	}{
		{StatusNotAttempted, StatusNotAttempted, StatusNotAttempted, false},
		{StatusNotAttempted, StatusUnknown, StatusUnknown, false},
		{StatusNotAttempted, StatusIncomplete, StatusIncomplete, false},
		{StatusNotAttempted, StatusCompleted, StatusCompleted, false},
		{StatusUnknown, StatusIncomplete, StatusIncomplete, false},
		{StatusIncomplete, StatusUnknown, StatusUnknown, false},
		{StatusUnknown, StatusCompleted, StatusCompleted, false},
		{StatusUnknown, StatusNotAttempted, StatusUnknown, true},
		{StatusIncomplete, StatusNotAttempted, StatusIncomplete, true},
		{StatusCompleted, StatusCompleted, StatusCompleted, false},
		{StatusCompleted, StatusUnknown, StatusCompleted, true},
		{StatusCompleted, StatusNotAttempted, StatusCompleted, true},
		{StatusUnknown, Status("finished"), StatusUnknown, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			got, err := tt.from.Transition(tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Transition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Transition() error = %v, want ErrInvalidTransition", err)
			}
			if got != tt.want {
				t.Errorf("Transition() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"not_attempted", "unknown", "incomplete", "completed"} {
		if got, ok := ParseStatus(s); !ok || string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, %v", s, got, ok)
		}
	}
	if _, ok := ParseStatus("Completed"); ok {
		t.Error("ParseStatus() accepted a differently cased status")
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	if !StatusCompleted.IsTerminal() {
		t.Error("completed is not terminal")
	}
	for _, s := range []Status{StatusNotAttempted, StatusUnknown, StatusIncomplete} {
		if s.IsTerminal() {
			t.Errorf("%s is terminal", s)
		}
	}
}
