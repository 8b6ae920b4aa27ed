package session

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"mercator-hq/itemengine/pkg/qti/ast"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
	"mercator-hq/itemengine/pkg/qti/value"
)

// SnapshotVersion is the version written into every snapshot.
const SnapshotVersion = 1

//go:embed snapshot.schema.json
var snapshotSchemaJSON []byte

var (
	snapshotSchema     *gojsonschema.Schema
	snapshotSchemaErr  error
	snapshotSchemaOnce sync.Once
)

// Snapshot is the serialisable form of a session's state. Built-in variables
// have their own fields and are not repeated in the binding maps.
type Snapshot struct {
	Version        int                      `json:"version" yaml:"version"`
	SessionID      string                   `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`
	ItemIdentifier string                   `json:"itemIdentifier" yaml:"itemIdentifier"`
	Status         Status                   `json:"completionStatus" yaml:"completionStatus"`
	NumAttempts    int64                    `json:"numAttempts" yaml:"numAttempts"`
	Duration       float64                  `json:"duration,omitempty" yaml:"duration,omitempty"`
	Responses      map[string]value.Encoded `json:"responses,omitempty" yaml:"responses,omitempty"`
	Outcomes       map[string]value.Encoded `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
	Templates      map[string]value.Encoded `json:"templates,omitempty" yaml:"templates,omitempty"`
	Correct        map[string]value.Encoded `json:"correct,omitempty" yaml:"correct,omitempty"`
	Defaults       map[string]value.Encoded `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	ChoiceOrders   map[string][]string      `json:"choiceOrders,omitempty" yaml:"choiceOrders,omitempty"`
}

// Snapshot captures the current state. itemID and sessionID label the result.
func (s *State) Snapshot(itemID, sessionID string) *Snapshot {
	snap := &Snapshot{
		Version:        SnapshotVersion,
		SessionID:      sessionID,
		ItemIdentifier: itemID,
		Status:         s.Status(),
		NumAttempts:    s.NumAttempts(),
		Duration:       s.Duration(),
		Responses:      make(map[string]value.Encoded),
		Outcomes:       make(map[string]value.Encoded),
		Templates:      make(map[string]value.Encoded),
		Correct:        make(map[string]value.Encoded),
		Defaults:       make(map[string]value.Encoded),
	}
	for _, d := range s.decls.All() {
		if d.BuiltIn {
			continue
		}
		enc := value.Encode(s.values[d.Identifier])
		switch d.Kind {
		case ast.KindResponse:
			snap.Responses[d.Identifier] = enc
			if !s.correct[d.Identifier].Equal(d.Correct) {
				snap.Correct[d.Identifier] = value.Encode(s.correct[d.Identifier])
			}
		case ast.KindOutcome:
			snap.Outcomes[d.Identifier] = enc
		case ast.KindTemplate:
			snap.Templates[d.Identifier] = enc
		}
		if !s.defaults[d.Identifier].Equal(d.Default) {
			snap.Defaults[d.Identifier] = value.Encode(s.defaults[d.Identifier])
		}
	}
	if len(s.orders) > 0 {
		snap.ChoiceOrders = make(map[string][]string, len(s.orders))
		for id, order := range s.orders {
			snap.ChoiceOrders[id] = append([]string(nil), order...)
		}
	}
	return snap
}

// Restore replaces the state with a snapshot. Every binding is decoded and
// checked against its declaration before anything is written, so a rejected
// snapshot leaves the state untouched.
func (s *State) Restore(snap *Snapshot) error {
	if snap == nil {
		return nil
	}
	if _, ok := ParseStatus(string(snap.Status)); !ok {
		return qtiErrors.New(qtiErrors.ErrorTypeValidation, "snapshot has unknown completion status %q", snap.Status)
	}
	if snap.NumAttempts < 0 {
		return qtiErrors.New(qtiErrors.ErrorTypeValidation, "snapshot has negative numAttempts %d", snap.NumAttempts)
	}

	values := make(map[string]value.Value, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	correct := make(map[string]value.Value, len(s.correct))
	for k, v := range s.correct {
		correct[k] = v
	}
	defaults := make(map[string]value.Value, len(s.defaults))
	for k, v := range s.defaults {
		defaults[k] = v
	}

	groups := []struct {
		kind ast.DeclarationKind
		in   map[string]value.Encoded
		out  map[string]value.Value
	}{
		{ast.KindResponse, snap.Responses, values},
		{ast.KindOutcome, snap.Outcomes, values},
		{ast.KindTemplate, snap.Templates, values},
		{ast.KindResponse, snap.Correct, correct},
		{"", snap.Defaults, defaults},
	}
	for _, g := range groups {
		for id, enc := range g.in {
			v, err := s.decodeBinding(id, g.kind, enc)
			if err != nil {
				return err
			}
			g.out[id] = v
		}
	}

	var orders map[string][]string
	for id, order := range snap.ChoiceOrders {
		d := s.decls.Get(id)
		if d == nil || d.BuiltIn || !d.IsResponse() {
			return qtiErrors.New(qtiErrors.ErrorTypeValidation, "snapshot orders choices of %q, which is not a response variable", id)
		}
		if orders == nil {
			orders = make(map[string][]string, len(snap.ChoiceOrders))
		}
		orders[id] = append([]string(nil), order...)
	}

	s.values, s.correct, s.defaults, s.orders = values, correct, defaults, orders
	s.setNumAttempts(snap.NumAttempts)
	s.setStatus(snap.Status)
	s.SetDuration(snap.Duration)
	return nil
}

func (s *State) decodeBinding(id string, kind ast.DeclarationKind, enc value.Encoded) (value.Value, error) {
	d := s.decls.Get(id)
	if d == nil || d.BuiltIn {
		return value.Null(), qtiErrors.Wrap(qtiErrors.ErrorTypeValidation, qtiErrors.ErrNotFound, "snapshot binds undeclared variable %q", id)
	}
	if kind != "" && d.Kind != kind {
		return value.Null(), qtiErrors.New(qtiErrors.ErrorTypeValidation, "snapshot binds %q as %s, but it is declared as %s", id, kind, d.Kind)
	}
	v, err := value.Decode(enc)
	if err != nil {
		return value.Null(), qtiErrors.Wrap(qtiErrors.ErrorTypeValidation, err, "snapshot value of %q", id)
	}
	conformed, err := value.Conform(v, d.Cardinality, d.BaseType)
	if err != nil {
		return value.Null(), qtiErrors.Wrap(qtiErrors.ErrorTypeValidation, err, "snapshot value of %q", id)
	}
	return conformed, nil
}

func loadSnapshotSchema() (*gojsonschema.Schema, error) {
	snapshotSchemaOnce.Do(func() {
		snapshotSchema, snapshotSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(snapshotSchemaJSON))
	})
	return snapshotSchema, snapshotSchemaErr
}

// DecodeSnapshot validates JSON against the snapshot schema and decodes it.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	schema, err := loadSnapshotSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, qtiErrors.Wrap(qtiErrors.ErrorTypeValidation, err, "snapshot is not valid JSON")
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, qtiErrors.New(qtiErrors.ErrorTypeValidation, "snapshot does not match schema: %s", strings.Join(msgs, "; "))
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, qtiErrors.Wrap(qtiErrors.ErrorTypeValidation, err, "failed to decode snapshot")
	}
	return &snap, nil
}

// EncodeSnapshot renders a snapshot as indented JSON.
func EncodeSnapshot(snap *Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}
