package rules

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"mercator-hq/itemengine/pkg/qti/ast"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
	"mercator-hq/itemengine/pkg/qti/value"
)

// memState is an in-memory State for tests.
type memState struct {
	decls    *ast.Declarations
	values   map[string]value.Value
	correct  map[string]value.Value
	defaults map[string]value.Value
}

func newMemState(decls ...*ast.Declaration) *memState {
	s := &memState{
		decls:    ast.NewDeclarations(),
		values:   make(map[string]value.Value),
		correct:  make(map[string]value.Value),
		defaults: make(map[string]value.Value),
	}
	for _, d := range decls {
		if err := s.decls.Add(d); err != nil {
			panic(err)
		}
	}
	for _, d := range s.decls.All() {
		s.values[d.Identifier] = d.Default
		s.defaults[d.Identifier] = d.Default
		s.correct[d.Identifier] = d.Correct
	}
	return s
}

func (s *memState) Lookup(id string) (value.Value, bool) {
	v, ok := s.values[id]
	return v, ok
}

func (s *memState) Declaration(id string) *ast.Declaration { return s.decls.Get(id) }
func (s *memState) Correct(id string) value.Value          { return s.correct[id] }
func (s *memState) Default(id string) value.Value          { return s.defaults[id] }

func (s *memState) Set(id string, v value.Value) error {
	s.values[id] = v
	return nil
}

func (s *memState) SetCorrect(id string, v value.Value) error {
	s.correct[id] = v
	return nil
}

func (s *memState) SetDefault(id string, v value.Value) error {
	s.defaults[id] = v
	return nil
}

func outcome(id string, bt value.BaseType, def value.Value) *ast.Declaration {
	return &ast.Declaration{Identifier: id, Kind: ast.KindOutcome, Cardinality: value.CardinalitySingle, BaseType: bt, Default: def}
}

func response(id string, bt value.BaseType, correct value.Value) *ast.Declaration {
	return &ast.Declaration{Identifier: id, Kind: ast.KindResponse, Cardinality: value.CardinalitySingle, BaseType: bt, Correct: correct}
}

func template(id string, bt value.BaseType, def value.Value) *ast.Declaration {
	return &ast.Declaration{Identifier: id, Kind: ast.KindTemplate, Cardinality: value.CardinalitySingle, BaseType: bt, Default: def}
}

func lit(bt value.BaseType, text string) *ast.Expr {
	return &ast.Expr{Op: ast.OpBaseValue, BaseType: bt, Text: text}
}

func variable(id string) *ast.Expr { return &ast.Expr{Op: ast.OpVariable, Identifier: id} }

func op(o ast.Operator, children ...*ast.Expr) *ast.Expr {
	return &ast.Expr{Op: o, Children: children}
}

func set(typ ast.RuleType, id string, e *ast.Expr) *ast.Rule {
	return &ast.Rule{Type: typ, Identifier: id, Expr: e}
}

func setOutcome(id string, e *ast.Expr) *ast.Rule { return set(ast.RuleSetOutcomeValue, id, e) }

func condition(typ ast.RuleType, elseRules []*ast.Rule, branches ...ast.Branch) *ast.Rule {
	return &ast.Rule{Type: typ, Branches: branches, Else: elseRules, HasElse: elseRules != nil}
}

func branch(cond *ast.Expr, rules ...*ast.Rule) ast.Branch {
	return ast.Branch{Condition: cond, Rules: rules}
}

func TestResponseProcessor_Branches(t *testing.T) {
	rules := []*ast.Rule{
		condition(ast.RuleResponseCondition,
			[]*ast.Rule{setOutcome("SCORE", lit(value.BaseTypeFloat, "0"))},
			branch(op(ast.OpMatch, variable("RESPONSE"), &ast.Expr{Op: ast.OpCorrect, Identifier: "RESPONSE"}),
				setOutcome("SCORE", lit(value.BaseTypeFloat, "1"))),
			branch(op(ast.OpMatch, variable("RESPONSE"), lit(value.BaseTypeIdentifier, "B")),
				setOutcome("SCORE", lit(value.BaseTypeFloat, "0.5"))),
		),
	}

	tests := []struct {
		name     string
		response value.Value
		want     float64
	}{
		{"first branch", value.Identifier("A"), 1},
		{"else-if branch", value.Identifier("B"), 0.5},
		{"else", value.Identifier("C"), 0},
		{"NULL guard is false", value.Null(), 0},
	}

	p := NewResponseProcessor(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemState(
				response("RESPONSE", value.BaseTypeIdentifier, value.Identifier("A")),
				outcome("SCORE", value.BaseTypeFloat, value.Float(-1)),
			)
			s.values["RESPONSE"] = tt.response

			res, err := p.Run(context.Background(), rules, s)
			if err != nil {
				t.Fatalf("Run() failed: %v", err)
			}
			if got := s.values["SCORE"]; !got.Equal(value.Float(tt.want)) {
				t.Errorf("SCORE = %v, want %v", got, tt.want)
			}
			if res.RulesExecuted != 2 || len(res.Writes) != 1 {
				t.Errorf("Result = %+v, want 2 rules and 1 write", res)
			}
		})
	}
}

func TestResponseProcessor_Exit(t *testing.T) {
	s := newMemState(outcome("SCORE", value.BaseTypeFloat, value.Float(0)))
	rules := []*ast.Rule{
		setOutcome("SCORE", lit(value.BaseTypeFloat, "1")),
		{Type: ast.RuleExitResponse},
		setOutcome("SCORE", lit(value.BaseTypeFloat, "2")),
	}

	res, err := NewResponseProcessor(nil, nil).Run(context.Background(), rules, s)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !res.Exited {
		t.Error("Exited = false")
	}
	if got := s.values["SCORE"]; !got.Equal(value.Float(1)) {
		t.Errorf("SCORE = %v, want 1", got)
	}
}

func TestResponseProcessor_Empty(t *testing.T) {
	s := newMemState(outcome("SCORE", value.BaseTypeFloat, value.Float(3)))
	res, err := NewResponseProcessor(nil, nil).Run(context.Background(), nil, s)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res.RulesExecuted != 0 || !s.values["SCORE"].Equal(value.Float(3)) {
		t.Errorf("empty Run() changed state: %+v", res)
	}
}

func TestResponseProcessor_Fragment(t *testing.T) {
	s := newMemState(outcome("SCORE", value.BaseTypeFloat, value.Float(0)))
	rules := []*ast.Rule{{
		Type:  ast.RuleProcessingFragment,
		Rules: []*ast.Rule{setOutcome("SCORE", lit(value.BaseTypeFloat, "4"))},
	}}

	if _, err := NewResponseProcessor(nil, nil).Run(context.Background(), rules, s); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if got := s.values["SCORE"]; !got.Equal(value.Float(4)) {
		t.Errorf("SCORE = %v, want 4", got)
	}
}

func TestResponseProcessor_RuleByRuleCommit(t *testing.T) {
	s := newMemState(
		outcome("SCORE", value.BaseTypeFloat, value.Float(0)),
		outcome("FEEDBACK", value.BaseTypeIdentifier, value.Null()),
		outcome("LATER", value.BaseTypeFloat, value.Float(0)),
	)
	rules := []*ast.Rule{
		setOutcome("SCORE", lit(value.BaseTypeFloat, "1")),
		setOutcome("FEEDBACK", lit(value.BaseTypeFloat, "2.5")),
		setOutcome("LATER", lit(value.BaseTypeFloat, "9")),
	}

	res, err := NewResponseProcessor(nil, nil).Run(context.Background(), rules, s)
	if !qtiErrors.IsEvaluationError(err) {
		t.Fatalf("Run() error = %v, want evaluation error", err)
	}
	if got := s.values["SCORE"]; !got.Equal(value.Float(1)) {
		t.Errorf("SCORE = %v, earlier write should stay", got)
	}
	if got := s.values["FEEDBACK"]; !got.IsNull() {
		t.Errorf("FEEDBACK = %v, rejected write must not be stored", got)
	}
	if got := s.values["LATER"]; !got.Equal(value.Float(0)) {
		t.Errorf("LATER = %v, rules after a failure must not run", got)
	}
	if len(res.Writes) != 1 {
		t.Errorf("len(Writes) = %d, want 1", len(res.Writes))
	}
}

func TestResponseProcessor_IntegerWidensToFloat(t *testing.T) {
	s := newMemState(outcome("SCORE", value.BaseTypeFloat, value.Float(0)))
	rules := []*ast.Rule{setOutcome("SCORE", lit(value.BaseTypeInteger, "2"))}

	if _, err := NewResponseProcessor(nil, nil).Run(context.Background(), rules, s); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if got := s.values["SCORE"]; !got.Equal(value.Float(2)) {
		t.Errorf("SCORE = %v, want float 2", got)
	}
}

func TestResponseProcessor_Errors(t *testing.T) {
	tests := []struct {
		name  string
		rules []*ast.Rule
	}{
		{"undeclared target", []*ast.Rule{setOutcome("NOPE", lit(value.BaseTypeFloat, "1"))}},
		{"template rule in response block", []*ast.Rule{set(ast.RuleSetTemplateValue, "SCORE", lit(value.BaseTypeFloat, "1"))}},
		{"lookup without table", []*ast.Rule{set(ast.RuleLookupOutcomeValue, "SCORE", lit(value.BaseTypeFloat, "1"))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemState(outcome("SCORE", value.BaseTypeFloat, value.Float(0)))
			_, err := NewResponseProcessor(nil, nil).Run(context.Background(), tt.rules, s)
			if !qtiErrors.IsEvaluationError(err) {
				t.Errorf("Run() error = %v, want evaluation error", err)
			}
		})
	}
}

func TestResponseProcessor_CancelledContext(t *testing.T) {
	s := newMemState(outcome("SCORE", value.BaseTypeFloat, value.Float(0)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResponseProcessor(nil, nil).Run(ctx, []*ast.Rule{setOutcome("SCORE", lit(value.BaseTypeFloat, "1"))}, s)
	if !errors.Is(err, ErrContextCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want ErrContextCancelled", err)
	}
	if got := s.values["SCORE"]; !got.Equal(value.Float(0)) {
		t.Errorf("SCORE = %v, want 0", got)
	}
}

func TestLookupTable(t *testing.T) {
	match := &ast.LookupTable{
		Match: []ast.MatchEntry{
			{Source: 1, Target: value.NewIdentifier("ONE")},
			{Source: 2, Target: value.NewIdentifier("TWO")},
		},
		Default: value.Identifier("OTHER"),
	}
	interp := &ast.LookupTable{
		Interpolation: []ast.InterpolationEntry{
			{Source: 90, IncludeBoundary: true, Target: value.NewIdentifier("A")},
			{Source: 50, IncludeBoundary: false, Target: value.NewIdentifier("B")},
		},
		Default: value.Identifier("F"),
	}

	tests := []struct {
		name    string
		table   *ast.LookupTable
		src     value.Value
		want    value.Value
		wantErr bool
	}{
		{"match hit", match, value.Integer(2), value.Identifier("TWO"), false},
		{"match miss", match, value.Integer(5), value.Identifier("OTHER"), false},
		{"match NULL", match, value.Null(), value.Identifier("OTHER"), false},
		{"match float source", match, value.Float(1), value.Null(), true},
		{"interpolation boundary included", interp, value.Float(90), value.Identifier("A"), false},
		{"interpolation above", interp, value.Integer(75), value.Identifier("B"), false},
		{"interpolation boundary excluded", interp, value.Float(50), value.Identifier("F"), false},
		{"interpolation below", interp, value.Float(10), value.Identifier("F"), false},
		{"non-numeric source", interp, value.Identifier("x"), value.Null(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LookupTable(tt.table, tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LookupTable() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("LookupTable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResponseProcessor_LookupOutcomeValue(t *testing.T) {
	grade := outcome("GRADE", value.BaseTypeIdentifier, value.Null())
	grade.Lookup = &ast.LookupTable{
		Interpolation: []ast.InterpolationEntry{{Source: 0.5, IncludeBoundary: true, Target: value.NewIdentifier("PASS")}},
		Default:       value.Identifier("FAIL"),
	}
	s := newMemState(grade, outcome("SCORE", value.BaseTypeFloat, value.Float(0.75)))

	rules := []*ast.Rule{set(ast.RuleLookupOutcomeValue, "GRADE", variable("SCORE"))}
	if _, err := NewResponseProcessor(nil, nil).Run(context.Background(), rules, s); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if got := s.values["GRADE"]; !got.Equal(value.Identifier("PASS")) {
		t.Errorf("GRADE = %v, want PASS", got)
	}
}

func TestTemplateProcessor_Constraint(t *testing.T) {
	// N counts passes; the constraint holds from the third pass on.
	rules := []*ast.Rule{
		set(ast.RuleSetTemplateValue, "N", op(ast.OpSum, variable("N"), lit(value.BaseTypeInteger, "1"))),
		{Type: ast.RuleTemplateConstraint, Expr: op(ast.OpGte, variable("N"), lit(value.BaseTypeInteger, "3"))},
		set(ast.RuleSetTemplateValue, "DONE", lit(value.BaseTypeBoolean, "true")),
	}
	s := newMemState(
		template("N", value.BaseTypeInteger, value.Integer(0)),
		template("DONE", value.BaseTypeBoolean, value.Boolean(false)),
	)

	res, err := NewTemplateProcessor(nil, 10, nil).Run(context.Background(), rules, s, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res.Tries != 3 {
		t.Errorf("Tries = %d, want 3", res.Tries)
	}
	if !s.values["N"].Equal(value.Integer(3)) || !s.values["DONE"].Equal(value.Boolean(true)) {
		t.Errorf("N = %v DONE = %v", s.values["N"], s.values["DONE"])
	}
	if len(res.Writes) != 2 {
		t.Errorf("len(Writes) = %d, want writes of the final pass only", len(res.Writes))
	}
}

func TestTemplateProcessor_RetriesExhausted(t *testing.T) {
	rules := []*ast.Rule{
		set(ast.RuleSetTemplateValue, "N", op(ast.OpSum, variable("N"), lit(value.BaseTypeInteger, "1"))),
		{Type: ast.RuleTemplateConstraint, Expr: &ast.Expr{Op: ast.OpNull}},
		set(ast.RuleSetTemplateValue, "DONE", lit(value.BaseTypeBoolean, "true")),
	}
	s := newMemState(
		template("N", value.BaseTypeInteger, value.Integer(0)),
		template("DONE", value.BaseTypeBoolean, value.Boolean(false)),
	)

	res, err := NewTemplateProcessor(nil, 5, nil).Run(context.Background(), rules, s, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res.Tries != 5 {
		t.Errorf("Tries = %d, want 5", res.Tries)
	}
	if !s.values["N"].Equal(value.Integer(5)) || !s.values["DONE"].Equal(value.Boolean(true)) {
		t.Errorf("final pass not kept: N = %v DONE = %v", s.values["N"], s.values["DONE"])
	}
}

func TestTemplateProcessor_DefaultRetries(t *testing.T) {
	rules := []*ast.Rule{{Type: ast.RuleTemplateConstraint, Expr: lit(value.BaseTypeBoolean, "false")}}
	res, err := NewTemplateProcessor(nil, 0, nil).Run(context.Background(), rules, newMemState(), nil)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res.Tries != DefaultConstraintRetries {
		t.Errorf("Tries = %d, want %d", res.Tries, DefaultConstraintRetries)
	}
}

func TestTemplateProcessor_SettersAndExit(t *testing.T) {
	rules := []*ast.Rule{
		set(ast.RuleSetCorrectResponse, "RESPONSE", lit(value.BaseTypeInteger, "8")),
		set(ast.RuleSetDefaultValue, "SCORE", lit(value.BaseTypeFloat, "0.5")),
		condition(ast.RuleTemplateCondition, nil,
			branch(lit(value.BaseTypeBoolean, "true"), &ast.Rule{Type: ast.RuleExitTemplate})),
		set(ast.RuleSetTemplateValue, "T", lit(value.BaseTypeInteger, "1")),
	}
	s := newMemState(
		response("RESPONSE", value.BaseTypeInteger, value.Null()),
		outcome("SCORE", value.BaseTypeFloat, value.Float(0)),
		template("T", value.BaseTypeInteger, value.Integer(0)),
	)

	res, err := NewTemplateProcessor(nil, 0, nil).Run(context.Background(), rules, s, nil)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !res.Exited {
		t.Error("Exited = false")
	}
	if !s.correct["RESPONSE"].Equal(value.Integer(8)) {
		t.Errorf("correct RESPONSE = %v, want 8", s.correct["RESPONSE"])
	}
	if !s.defaults["SCORE"].Equal(value.Float(0.5)) {
		t.Errorf("default SCORE = %v, want 0.5", s.defaults["SCORE"])
	}
	if !s.values["T"].Equal(value.Integer(0)) {
		t.Errorf("T = %v, rules after exitTemplate must not run", s.values["T"])
	}
}

func TestTemplateProcessor_RandomNeedsRNG(t *testing.T) {
	rules := []*ast.Rule{set(ast.RuleSetTemplateValue, "T", &ast.Expr{
		Op:    ast.OpRandomInteger,
		Attrs: map[string]string{"min": "1", "max": "6"},
	})}
	s := newMemState(template("T", value.BaseTypeInteger, value.Null()))

	if _, err := NewTemplateProcessor(nil, 0, nil).Run(context.Background(), rules, s, nil); !qtiErrors.IsEvaluationError(err) {
		t.Fatalf("Run() without rng error = %v, want evaluation error", err)
	}

	seeded := func() value.Value {
		st := newMemState(template("T", value.BaseTypeInteger, value.Null()))
		if _, err := NewTemplateProcessor(nil, 0, nil).Run(context.Background(), rules, st, rand.New(rand.NewPCG(7, 7))); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		return st.values["T"]
	}
	if a, b := seeded(), seeded(); !a.Equal(b) {
		t.Errorf("same seed gave %v and %v", a, b)
	}
}

func TestTemplateProcessor_ResponseRuleRejected(t *testing.T) {
	s := newMemState(outcome("SCORE", value.BaseTypeFloat, value.Float(0)))
	_, err := NewTemplateProcessor(nil, 0, nil).Run(context.Background(), []*ast.Rule{setOutcome("SCORE", lit(value.BaseTypeFloat, "1"))}, s, nil)
	if !qtiErrors.IsEvaluationError(err) {
		t.Errorf("Run() error = %v, want evaluation error", err)
	}
}
