package session

import (
	"fmt"

	"mercator-hq/itemengine/pkg/qti/ast"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
	"mercator-hq/itemengine/pkg/qti/value"
)

// State holds the variable bindings of one item session. Every value goes in
// and comes out as a copy, so callers never share storage with the session.
//
// State is not safe for concurrent use.
type State struct {
	decls    *ast.Declarations
	values   map[string]value.Value
	correct  map[string]value.Value
	defaults map[string]value.Value
	orders   map[string][]string
}

// NewState creates a state with every variable at its declared default.
func NewState(decls *ast.Declarations) *State {
	s := &State{
		decls:    decls,
		values:   make(map[string]value.Value, decls.Len()),
		correct:  make(map[string]value.Value),
		defaults: make(map[string]value.Value, decls.Len()),
	}
	for _, d := range decls.All() {
		s.defaults[d.Identifier] = d.Default.Clone()
		s.values[d.Identifier] = d.Default.Clone()
		if d.IsResponse() {
			s.correct[d.Identifier] = d.Correct.Clone()
		}
	}
	return s
}

// Declarations returns the declarations the state is bound to.
func (s *State) Declarations() *ast.Declarations { return s.decls }

// Lookup returns a copy of the current value of id.
func (s *State) Lookup(id string) (value.Value, bool) {
	v, ok := s.values[id]
	if !ok {
		return value.Null(), false
	}
	return v.Clone(), true
}

// Get returns a copy of the current value of id, or NULL.
func (s *State) Get(id string) value.Value {
	v, _ := s.Lookup(id)
	return v
}

// Declaration returns the declaration of id, or nil.
func (s *State) Declaration(id string) *ast.Declaration { return s.decls.Get(id) }

// Correct returns a copy of the correct response of id, or NULL.
func (s *State) Correct(id string) value.Value { return s.correct[id].Clone() }

// Default returns a copy of the default value of id, or NULL.
func (s *State) Default(id string) value.Value { return s.defaults[id].Clone() }

// Set stores a copy of v as the value of id. The value must already conform
// to the declaration; use Assign for unchecked input.
func (s *State) Set(id string, v value.Value) error {
	if !s.decls.Has(id) {
		return fmt.Errorf("%w: %q", qtiErrors.ErrNotFound, id)
	}
	s.values[id] = v.Clone()
	return nil
}

// SetCorrect replaces the correct response of a response variable.
func (s *State) SetCorrect(id string, v value.Value) error {
	d := s.decls.Get(id)
	if d == nil {
		return fmt.Errorf("%w: %q", qtiErrors.ErrNotFound, id)
	}
	if !d.IsResponse() {
		return fmt.Errorf("%q is a %s variable, not a response", id, d.Kind)
	}
	s.correct[id] = v.Clone()
	return nil
}

// SetDefault replaces the default value of a variable.
func (s *State) SetDefault(id string, v value.Value) error {
	if !s.decls.Has(id) {
		return fmt.Errorf("%w: %q", qtiErrors.ErrNotFound, id)
	}
	s.defaults[id] = v.Clone()
	return nil
}

// SetChoiceOrder records the delivery order of the choices of the
// interaction bound to response id.
func (s *State) SetChoiceOrder(id string, order []string) error {
	d := s.decls.Get(id)
	if d == nil {
		return fmt.Errorf("%w: %q", qtiErrors.ErrNotFound, id)
	}
	if !d.IsResponse() {
		return fmt.Errorf("%q is a %s variable, not a response", id, d.Kind)
	}
	if s.orders == nil {
		s.orders = make(map[string][]string)
	}
	s.orders[id] = append([]string(nil), order...)
	return nil
}

// ChoiceOrder returns a copy of the choice order recorded for response id.
func (s *State) ChoiceOrder(id string) ([]string, bool) {
	order, ok := s.orders[id]
	if !ok {
		return nil, false
	}
	return append([]string(nil), order...), true
}

// Assign conforms v to the declaration of id and stores it.
func (s *State) Assign(id string, v value.Value) error {
	d := s.decls.Get(id)
	if d == nil {
		return fmt.Errorf("%w: %q", qtiErrors.ErrNotFound, id)
	}
	conformed, err := value.Conform(v, d.Cardinality, d.BaseType)
	if err != nil {
		return err
	}
	s.values[id] = conformed
	return nil
}

// Values returns copies of the current values of every variable of one kind.
func (s *State) Values(kind ast.DeclarationKind) map[string]value.Value {
	out := make(map[string]value.Value)
	for _, d := range s.decls.ByKind(kind) {
		out[d.Identifier] = s.values[d.Identifier].Clone()
	}
	return out
}

// ResetOutcomes returns every declared outcome to its default. The built-in
// completionStatus is left alone.
func (s *State) ResetOutcomes() {
	for _, d := range s.decls.ByKind(ast.KindOutcome) {
		if d.BuiltIn {
			continue
		}
		s.values[d.Identifier] = s.defaults[d.Identifier].Clone()
	}
}

// NumAttempts returns the built-in attempt counter.
func (s *State) NumAttempts() int64 {
	if sc, ok := s.values[ast.NumAttempts].Scalar(); ok {
		return sc.Int()
	}
	return 0
}

func (s *State) setNumAttempts(n int64) { s.values[ast.NumAttempts] = value.Integer(n) }

// Status returns the completion status held in completionStatus. A value
// that is not a known status reads as not_attempted.
func (s *State) Status() Status {
	if sc, ok := s.values[ast.CompletionStatus].Scalar(); ok {
		if st, ok := ParseStatus(sc.Text()); ok {
			return st
		}
	}
	return StatusNotAttempted
}

func (s *State) setStatus(st Status) {
	s.values[ast.CompletionStatus] = value.Identifier(string(st))
}

// SetDuration records the session duration in seconds.
func (s *State) SetDuration(seconds float64) {
	s.values[ast.Duration] = value.Float(seconds)
}

// Duration returns the session duration in seconds.
func (s *State) Duration() float64 {
	if sc, ok := s.values[ast.Duration].Scalar(); ok {
		return sc.Float()
	}
	return 0
}
