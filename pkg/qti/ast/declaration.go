package ast

import (
	"errors"
	"fmt"
	"sort"

	"mercator-hq/itemengine/pkg/qti/value"
)

// ErrNotFound is returned when an identifier has no declaration.
var ErrNotFound = errors.New("declaration not found")

// Built-in variable identifiers present in every item.
const (
	NumAttempts      = "numAttempts"
	Duration         = "duration"
	CompletionStatus = "completionStatus"
)

// DeclarationKind identifies which family of variables a declaration belongs to.
type DeclarationKind string

const (
	KindResponse DeclarationKind = "response"
	KindOutcome  DeclarationKind = "outcome"
	KindTemplate DeclarationKind = "template"
)

// Declaration describes one response, outcome or template variable.
// Cardinality and base type are fixed for the item's lifetime.
type Declaration struct {
	Identifier  string
	Kind        DeclarationKind
	Cardinality value.Cardinality
	BaseType    value.BaseType // Empty for record cardinality
	Default     value.Value    // NULL when no defaultValue was declared
	Correct     value.Value    // Response declarations only
	Mapping     *Mapping
	AreaMapping *AreaMapping
	Lookup      *LookupTable // Outcome declarations only

	// Outcome metadata, kept for hosts that report on it.
	NormalMinimum *float64
	NormalMaximum *float64
	View          []string

	// Template flags.
	ParamVariable bool
	MathVariable  bool

	BuiltIn  bool
	Location Location
}

// IsResponse returns true for response declarations.
func (d *Declaration) IsResponse() bool { return d.Kind == KindResponse }

// IsOutcome returns true for outcome declarations.
func (d *Declaration) IsOutcome() bool { return d.Kind == KindOutcome }

// IsTemplate returns true for template declarations.
func (d *Declaration) IsTemplate() bool { return d.Kind == KindTemplate }

// MapEntry maps one response value to a score.
type MapEntry struct {
	Key           value.Scalar
	Value         float64
	CaseSensitive bool
}

// Mapping converts a response into a numeric score for mapResponse.
type Mapping struct {
	Entries      []MapEntry // Document order
	DefaultValue float64    // Weight of unmapped values
	LowerBound   *float64
	UpperBound   *float64
}

// Shape is the geometry of an area map entry.
type Shape string

const (
	ShapeCircle  Shape = "circle"
	ShapeRect    Shape = "rect"
	ShapePoly    Shape = "poly"
	ShapeEllipse Shape = "ellipse"
	ShapeDefault Shape = "default"
)

// AreaMapEntry scores points that fall inside a shape.
type AreaMapEntry struct {
	Shape  Shape
	Coords []float64
	Value  float64
}

// AreaMapping converts point responses into a score for mapResponsePoint.
type AreaMapping struct {
	Entries      []AreaMapEntry
	DefaultValue float64
	LowerBound   *float64
	UpperBound   *float64
}

// MatchEntry maps an integer source value to a target value.
type MatchEntry struct {
	Source int64
	Target value.Scalar
}

// InterpolationEntry maps values at or above Source to a target value.
type InterpolationEntry struct {
	Source          float64
	IncludeBoundary bool
	Target          value.Scalar
}

// LookupTable is an outcome's matchTable or interpolationTable.
// Exactly one of Match and Interpolation is populated.
type LookupTable struct {
	Match         []MatchEntry
	Interpolation []InterpolationEntry
	Default       value.Value
}

// Declarations is the ordered, indexed set of an item's variable declarations.
// It always contains the built-in variables.
type Declarations struct {
	list  []*Declaration
	index map[string]*Declaration
}

// NewDeclarations returns a set holding only the built-in declarations.
func NewDeclarations() *Declarations {
	d := &Declarations{index: make(map[string]*Declaration)}
	for _, b := range builtIns() {
		d.list = append(d.list, b)
		d.index[b.Identifier] = b
	}
	return d
}

func builtIns() []*Declaration {
	return []*Declaration{
		{
			Identifier:  NumAttempts,
			Kind:        KindResponse,
			Cardinality: value.CardinalitySingle,
			BaseType:    value.BaseTypeInteger,
			Default:     value.Integer(0),
			BuiltIn:     true,
		},
		{
			Identifier:  Duration,
			Kind:        KindResponse,
			Cardinality: value.CardinalitySingle,
			BaseType:    value.BaseTypeFloat,
			Default:     value.Float(0),
			BuiltIn:     true,
		},
		{
			Identifier:  CompletionStatus,
			Kind:        KindOutcome,
			Cardinality: value.CardinalitySingle,
			BaseType:    value.BaseTypeIdentifier,
			Default:     value.Identifier("not_attempted"),
			BuiltIn:     true,
		},
	}
}

// Add appends a declaration. Identifiers must be unique, built-ins included.
func (d *Declarations) Add(decl *Declaration) error {
	if existing, ok := d.index[decl.Identifier]; ok {
		if existing.BuiltIn {
			return fmt.Errorf("identifier %q is reserved for a built-in variable", decl.Identifier)
		}
		return fmt.Errorf("duplicate declaration of %q (first declared at %s)", decl.Identifier, existing.Location)
	}
	d.list = append(d.list, decl)
	d.index[decl.Identifier] = decl
	return nil
}

// Lookup returns the declaration for id or an error wrapping ErrNotFound.
func (d *Declarations) Lookup(id string) (*Declaration, error) {
	decl, ok := d.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return decl, nil
}

// Get returns the declaration for id, or nil.
func (d *Declarations) Get(id string) *Declaration {
	return d.index[id]
}

// Has returns true if id is declared.
func (d *Declarations) Has(id string) bool {
	_, ok := d.index[id]
	return ok
}

// All returns every declaration in document order, built-ins first.
func (d *Declarations) All() []*Declaration {
	return append([]*Declaration(nil), d.list...)
}

// ByKind returns the declarations of one kind in document order.
func (d *Declarations) ByKind(kind DeclarationKind) []*Declaration {
	var out []*Declaration
	for _, decl := range d.list {
		if decl.Kind == kind {
			out = append(out, decl)
		}
	}
	return out
}

// Identifiers returns every declared identifier, sorted.
func (d *Declarations) Identifiers() []string {
	ids := make([]string, 0, len(d.index))
	for id := range d.index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of declarations including built-ins.
func (d *Declarations) Len() int {
	return len(d.list)
}
