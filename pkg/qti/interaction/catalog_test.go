package interaction

import (
	"math/rand/v2"
	"strings"
	"testing"

	"mercator-hq/itemengine/internal/qti/testitems"
	"mercator-hq/itemengine/pkg/qti/ast"
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

func TestEnumerate_AllTypes(t *testing.T) {
	item := parseItem(t, testitems.Interactions)
	got := Enumerate(item.Body)

	want := []struct {
		typ  Type
		resp string
	}{
		{TypeChoice, "CHOICE"},
		{TypeExtendedText, "ESSAY"},
		{TypeTextEntry, "TEXT"},
		{TypeOrder, "ORDER"},
		{TypeMatch, "MATCH"},
		{TypeAssociate, "ASSOCIATE"},
		{TypeGapMatch, "GAPMATCH"},
		{TypeInlineChoice, "INLINE"},
		{TypeHotspot, "HOTSPOT"},
		{TypeGraphicGapMatch, "GRAPHICGAP"},
		{TypeSelectPoint, "POINT"},
		{TypeGraphicOrder, "GRAPHICORDER"},
		{TypeGraphicAssociate, "GRAPHICASSOC"},
		{TypeSlider, "SLIDER"},
		{TypePositionObject, "POSITION"},
		{TypeDrawing, "DRAWING"},
		{TypeUpload, "UPLOAD"},
		{TypeCustom, "CUSTOM"},
		{TypeEndAttempt, "ENDATTEMPT"},
		{TypeMedia, "MEDIA"},
		{TypeHottext, "HOTTEXT"},
	}

	if len(got) != len(want) {
		t.Fatalf("len(Enumerate()) = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Type != w.typ || got[i].ResponseIdentifier != w.resp {
			t.Errorf("interaction %d = %s/%s, want %s/%s", i, got[i].Type, got[i].ResponseIdentifier, w.typ, w.resp)
		}
		if wantBearing := w.typ != TypeEndAttempt; got[i].ResponseBearing != wantBearing {
			t.Errorf("%s ResponseBearing = %v, want %v", w.typ, got[i].ResponseBearing, wantBearing)
		}
	}
}

func TestEnumerate_Config(t *testing.T) {
	item := parseItem(t, testitems.Interactions)
	byType := make(map[Type]Interaction)
	for _, it := range Enumerate(item.Body) {
		byType[it.Type] = it
	}

	choice := byType[TypeChoice]
	if !choice.Shuffle || choice.MaxChoices != 2 || choice.MinChoices != 1 {
		t.Errorf("choice config = shuffle %v max %d min %d", choice.Shuffle, choice.MaxChoices, choice.MinChoices)
	}
	if choice.Prompt != "Pick two primes." {
		t.Errorf("choice Prompt = %q", choice.Prompt)
	}
	if len(choice.Choices) != 3 || choice.Choices[2].Identifier != "C5" || choice.Choices[2].Text != "5" {
		t.Errorf("choice Choices = %+v", choice.Choices)
	}

	if got := byType[TypeExtendedText]; got.ExpectedLength != 200 || got.ExpectedLines != 5 {
		t.Errorf("extendedText = length %d lines %d", got.ExpectedLength, got.ExpectedLines)
	}
	if got := byType[TypeTextEntry]; got.ExpectedLength != 10 || got.PatternMask != "[A-Za-z]+" {
		t.Errorf("textEntry = length %d mask %q", got.ExpectedLength, got.PatternMask)
	}
	if got := byType[TypeMatch]; got.MaxAssociations != 2 || len(got.Choices) != 2 || got.Choices[0].MatchMax != 1 {
		t.Errorf("match = %+v", got)
	}
	if got := byType[TypeGapMatch]; len(got.Choices) != 2 || got.Choices[0].Kind != "gapText" || got.Choices[1].Kind != "gap" {
		t.Errorf("gapMatch Choices = %+v", got.Choices)
	}
	if got := byType[TypeHotspot]; len(got.Choices) != 1 || got.Choices[0].Shape != "circle" || got.Choices[0].Coords != "77,115,8" {
		t.Errorf("hotspot Choices = %+v", got.Choices)
	}
	if got := byType[TypeHottext]; got.MaxChoices != 1 || len(got.Choices) != 1 || got.Choices[0].Text != "who bought" {
		t.Errorf("hottext = %+v", got)
	}

	slider := byType[TypeSlider]
	if slider.LowerBound == nil || *slider.LowerBound != 0 || slider.UpperBound == nil || *slider.UpperBound != 100 || slider.Step == nil || *slider.Step != 5 {
		t.Errorf("slider bounds = %v %v %v", slider.LowerBound, slider.UpperBound, slider.Step)
	}

	if got := byType[TypeMedia]; got.MinPlays != 2 || got.MaxPlays != 3 {
		t.Errorf("media plays = %d..%d, want 2..3", got.MinPlays, got.MaxPlays)
	}
	if got := byType[TypeUpload]; got.Attrs["type"] != "application/pdf" {
		t.Errorf("upload Attrs = %v", got.Attrs)
	}
}

func TestEnumerate_DefaultMaxChoices(t *testing.T) {
	item := parseItem(t, testitems.Choice)
	its := Enumerate(item.Body)
	if len(its) != 1 {
		t.Fatalf("len(Enumerate()) = %d, want 1", len(its))
	}
	if its[0].MaxChoices < 1 {
		t.Errorf("MaxChoices = %d, want >= 1", its[0].MaxChoices)
	}
}

func allAnswered() map[string]value.Value {
	return map[string]value.Value{
		"CHOICE":       value.NewMultiple(value.BaseTypeIdentifier, value.NewIdentifier("C2")),
		"ESSAY":        value.String("essay"),
		"TEXT":         value.String("Paris"),
		"ORDER":        value.NewOrdered(value.BaseTypeIdentifier, value.NewIdentifier("O1"), value.NewIdentifier("O2")),
		"MATCH":        value.NewMultiple(value.BaseTypeDirectedPair, value.NewDirectedPair("M1", "M2")),
		"ASSOCIATE":    value.NewMultiple(value.BaseTypePair, value.NewPair("A1", "A2")),
		"GAPMATCH":     value.NewMultiple(value.BaseTypeDirectedPair, value.NewDirectedPair("W1", "G1")),
		"INLINE":       value.Identifier("Y"),
		"HOTSPOT":      value.Identifier("H1"),
		"GRAPHICGAP":   value.NewMultiple(value.BaseTypeDirectedPair, value.NewDirectedPair("GI1", "AH1")),
		"POINT":        value.NewSingle(value.NewPoint(10, 20)),
		"GRAPHICORDER": value.NewOrdered(value.BaseTypeIdentifier, value.NewIdentifier("GO1")),
		"GRAPHICASSOC": value.NewMultiple(value.BaseTypePair, value.NewPair("GA1", "GA1")),
		"SLIDER":       value.Integer(50),
		"POSITION":     value.NewMultiple(value.BaseTypePoint, value.NewPoint(1, 1)),
		"DRAWING":      value.NewSingle(value.NewFile("drawing.png")),
		"UPLOAD":       value.NewSingle(value.NewFile("essay.pdf")),
		"CUSTOM":       value.String("state"),
		"MEDIA":        value.Integer(2),
		"HOTTEXT":      value.Identifier("HT1"),
	}
}

func TestCatalog_Progress(t *testing.T) {
	c := NewCatalog(parseItem(t, testitems.Interactions).Body)

	tests := []struct {
		name   string
		mutate func(map[string]value.Value)
		want   Progress
	}{
		{"all answered", func(map[string]value.Value) {}, Progress{Total: 20, Answered: 20}},
		{"null response", func(m map[string]value.Value) { delete(m, "TEXT") }, Progress{Total: 20, Answered: 19, Unanswered: 1}},
		{"empty container", func(m map[string]value.Value) {
			m["CHOICE"] = value.NewMultiple(value.BaseTypeIdentifier)
		}, Progress{Total: 20, Answered: 19, Unanswered: 1}},
		{"empty string", func(m map[string]value.Value) { m["ESSAY"] = value.String("") }, Progress{Total: 20, Answered: 19, Unanswered: 1}},
		{"end attempt not counted", func(m map[string]value.Value) { m["ENDATTEMPT"] = value.Boolean(true) }, Progress{Total: 20, Answered: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := allAnswered()
			tt.mutate(responses)
			if got := c.Progress(responses); got != tt.want {
				t.Errorf("Progress() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCatalog_CanSubmit(t *testing.T) {
	c := NewCatalog(parseItem(t, testitems.Interactions).Body)

	tests := []struct {
		name   string
		mutate func(map[string]value.Value)
		want   bool
	}{
		{"all answered", func(map[string]value.Value) {}, true},
		{"missing response", func(m map[string]value.Value) { delete(m, "SLIDER") }, false},
		{"end attempt not required", func(m map[string]value.Value) { delete(m, "ENDATTEMPT") }, true},
		{"media below minPlays", func(m map[string]value.Value) { m["MEDIA"] = value.Integer(1) }, false},
		{"media unplayed", func(m map[string]value.Value) { delete(m, "MEDIA") }, false},
		{"media above minPlays", func(m map[string]value.Value) { m["MEDIA"] = value.Integer(3) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := allAnswered()
			tt.mutate(responses)
			if got := c.CanSubmit(responses); got != tt.want {
				t.Errorf("CanSubmit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCatalog_ResponseIdentifiers(t *testing.T) {
	c := NewCatalog(parseItem(t, testitems.Interactions).Body)
	ids := c.ResponseIdentifiers()
	if len(ids) != 20 {
		t.Fatalf("len(ResponseIdentifiers()) = %d, want 20", len(ids))
	}
	if ids[0] != "CHOICE" || ids[19] != "HOTTEXT" {
		t.Errorf("ResponseIdentifiers() = %v", ids)
	}
	for _, id := range ids {
		if id == "ENDATTEMPT" {
			t.Error("ResponseIdentifiers() includes the end attempt interaction")
		}
	}
	if got := len(c.All()); got != 21 {
		t.Errorf("len(All()) = %d, want 21", got)
	}
}

func TestCatalog_Validate(t *testing.T) {
	item := parseItem(t, testitems.Interactions)
	c := NewCatalog(item.Body)

	tests := []struct {
		name      string
		responses map[string]any
		wantValid bool
		wantIDs   []string
	}{
		{"valid", map[string]any{"CHOICE": []any{"C2", "C5"}, "SLIDER": 50, "TEXT": "Paris"}, true, nil},
		{"too many choices", map[string]any{"CHOICE": []any{"C2", "C4", "C5"}}, false, []string{"CHOICE"}},
		{"too few choices", map[string]any{"CHOICE": []any{}}, false, []string{"CHOICE"}},
		{"wrong base type", map[string]any{"SLIDER": "fifty"}, false, []string{"SLIDER"}},
		{"slider out of range", map[string]any{"SLIDER": 150}, false, []string{"SLIDER"}},
		{"undeclared", map[string]any{"NOPE": "x"}, false, []string{"NOPE"}},
		{"built-in rejected", map[string]any{"numAttempts": 3}, false, []string{"numAttempts"}},
		{"media over maxPlays", map[string]any{"MEDIA": 4}, false, []string{"MEDIA"}},
		{"too many associations", map[string]any{"MATCH": []any{"M1 M2", "M2 M1", "M1 M1"}}, false, []string{"MATCH"}},
		{"null ignored", map[string]any{"CHOICE": nil}, true, nil},
		{"several", map[string]any{"SLIDER": -5, "NOPE": 1}, false, []string{"NOPE", "SLIDER"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := c.Validate(tt.responses, item.Declarations)
			if report.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors %v)", report.Valid, tt.wantValid, report.Errors)
			}
			ids := report.Identifiers()
			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("Identifiers() = %v, want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Errorf("Identifiers()[%d] = %q, want %q", i, ids[i], tt.wantIDs[i])
				}
			}
		})
	}
}

func TestInteraction_ArrangedChoices(t *testing.T) {
	it := Interaction{
		Shuffle: true,
		Choices: []Choice{{Identifier: "A"}, {Identifier: "B", Fixed: true}, {Identifier: "C"}},
	}

	tests := []struct {
		name  string
		order []string
		ok    bool
	}{
		{"document order", []string{"A", "B", "C"}, true},
		{"free choices swapped", []string{"C", "B", "A"}, true},
		{"fixed choice moved", []string{"B", "A", "C"}, false},
		{"duplicate", []string{"A", "B", "A"}, false},
		{"unknown", []string{"A", "B", "Z"}, false},
		{"short", []string{"A", "B"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := it.ArrangedChoices(tt.order)
			if ok != tt.ok {
				t.Fatalf("ArrangedChoices(%v) ok = %v, want %v", tt.order, ok, tt.ok)
			}
			if ok && strings.Join(ChoiceIdentifiers(out), ",") != strings.Join(tt.order, ",") {
				t.Errorf("ArrangedChoices(%v) = %v", tt.order, ChoiceIdentifiers(out))
			}
		})
	}
}

func TestInteraction_ShuffledChoices(t *testing.T) {
	it := Interaction{
		Shuffle: true,
		Choices: []Choice{
			{Identifier: "A"}, {Identifier: "B"}, {Identifier: "C", Fixed: true},
			{Identifier: "D"}, {Identifier: "E"}, {Identifier: "F"},
		},
	}

	out := it.ShuffledChoices(rand.New(rand.NewPCG(1, 2)))
	if len(out) != len(it.Choices) {
		t.Fatalf("len = %d, want %d", len(out), len(it.Choices))
	}
	if out[2].Identifier != "C" {
		t.Errorf("fixed choice moved: %+v", out)
	}
	seen := make(map[string]bool)
	for _, c := range out {
		seen[c.Identifier] = true
	}
	if len(seen) != len(it.Choices) {
		t.Errorf("ShuffledChoices() lost choices: %+v", out)
	}
	if it.Choices[0].Identifier != "A" {
		t.Error("ShuffledChoices() modified the interaction")
	}

	it.Shuffle = false
	out = it.ShuffledChoices(rand.New(rand.NewPCG(1, 2)))
	for i := range out {
		if out[i] != it.Choices[i] {
			t.Fatalf("unshuffled order changed: %+v", out)
		}
	}
}
