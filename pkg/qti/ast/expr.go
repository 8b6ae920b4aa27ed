package ast

import (
	"sort"

	"mercator-hq/itemengine/pkg/qti/value"
)

// Operator is the closed set of expression operators the evaluator understands.
type Operator int

const (
	OpInvalid Operator = iota

	// Leaves
	OpBaseValue
	OpVariable
	OpCorrect
	OpDefault
	OpMapResponse
	OpMapResponsePoint
	OpNull
	OpRandomInteger
	OpRandomFloat

	// Logic
	OpAnd
	OpOr
	OpNot
	OpAnyN

	// Comparison
	OpMatch
	OpEqual
	OpEqualRounded
	OpGt
	OpGte
	OpLt
	OpLte
	OpIsNull
	OpDurationLT
	OpDurationGTE
	OpInside

	// Arithmetic
	OpSum
	OpSubtract
	OpProduct
	OpDivide
	OpPower
	OpIntegerDivide
	OpIntegerModulus
	OpTruncate
	OpRound
	OpIntegerToFloat
	OpMin
	OpMax
	OpGcd
	OpLcm

	// Containers
	OpMultiple
	OpOrdered
	OpContainerSize
	OpMember
	OpContains
	OpDelete
	OpIndex
	OpRandom
	OpFieldValue

	// Strings
	OpStringMatch
	OpSubstring
	OpPatternMatch
)

var operatorNames = map[Operator]string{
	OpBaseValue:        "baseValue",
	OpVariable:         "variable",
	OpCorrect:          "correct",
	OpDefault:          "default",
	OpMapResponse:      "mapResponse",
	OpMapResponsePoint: "mapResponsePoint",
	OpNull:             "null",
	OpRandomInteger:    "randomInteger",
	OpRandomFloat:      "randomFloat",
	OpAnd:              "and",
	OpOr:               "or",
	OpNot:              "not",
	OpAnyN:             "anyN",
	OpMatch:            "match",
	OpEqual:            "equal",
	OpEqualRounded:     "equalRounded",
	OpGt:               "gt",
	OpGte:              "gte",
	OpLt:               "lt",
	OpLte:              "lte",
	OpIsNull:           "isNull",
	OpDurationLT:       "durationLT",
	OpDurationGTE:      "durationGTE",
	OpInside:           "inside",
	OpSum:              "sum",
	OpSubtract:         "subtract",
	OpProduct:          "product",
	OpDivide:           "divide",
	OpPower:            "power",
	OpIntegerDivide:    "integerDivide",
	OpIntegerModulus:   "integerModulus",
	OpTruncate:         "truncate",
	OpRound:            "round",
	OpIntegerToFloat:   "integerToFloat",
	OpMin:              "min",
	OpMax:              "max",
	OpGcd:              "gcd",
	OpLcm:              "lcm",
	OpMultiple:         "multiple",
	OpOrdered:          "ordered",
	OpContainerSize:    "containerSize",
	OpMember:           "member",
	OpContains:         "contains",
	OpDelete:           "delete",
	OpIndex:            "index",
	OpRandom:           "random",
	OpFieldValue:       "fieldValue",
	OpStringMatch:      "stringMatch",
	OpSubstring:        "substring",
	OpPatternMatch:     "patternMatch",
}

var operatorsByName = func() map[string]Operator {
	m := make(map[string]Operator, len(operatorNames))
	for op, name := range operatorNames {
		m[name] = op
	}
	return m
}()

// String returns the element name of the operator.
func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return "invalid"
}

// LookupOperator returns the operator for a (normalized) element name.
func LookupOperator(name string) (Operator, bool) {
	op, ok := operatorsByName[name]
	return op, ok
}

// OperatorNames returns every operator element name, sorted.
func OperatorNames() []string {
	names := make([]string, 0, len(operatorsByName))
	for name := range operatorsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Arity returns the minimum and maximum number of child expressions the
// operator accepts. A maximum of -1 means unbounded.
func (o Operator) Arity() (min, max int) {
	switch o {
	case OpBaseValue, OpVariable, OpCorrect, OpDefault, OpMapResponse,
		OpMapResponsePoint, OpNull, OpRandomInteger, OpRandomFloat:
		return 0, 0
	case OpNot, OpIsNull, OpTruncate, OpRound, OpIntegerToFloat,
		OpContainerSize, OpRandom, OpFieldValue, OpIndex, OpInside, OpPatternMatch:
		return 1, 1
	case OpMatch, OpEqual, OpEqualRounded, OpGt, OpGte, OpLt, OpLte,
		OpDurationLT, OpDurationGTE, OpSubtract, OpDivide, OpPower,
		OpIntegerDivide, OpIntegerModulus, OpMember, OpContains, OpDelete,
		OpStringMatch, OpSubstring:
		return 2, 2
	case OpAnd, OpOr, OpAnyN, OpSum, OpProduct, OpMin, OpMax, OpGcd, OpLcm:
		return 1, -1
	case OpMultiple, OpOrdered:
		return 0, -1
	}
	return 0, -1
}

// Expr is one node of an expression tree. Trees are built once by the parser
// and never mutated afterwards.
type Expr struct {
	Op         Operator
	Children   []*Expr
	Identifier string            // Referenced variable (variable, correct, default, mapResponse, ...)
	BaseType   value.BaseType    // Literal type (baseValue)
	Text       string            // Raw literal text (baseValue)
	Attrs      map[string]string // Remaining attributes in normalized form
	Location   Location
}

// Attr returns an attribute value and whether it was present.
func (e *Expr) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// AttrOr returns an attribute value, or def when absent.
func (e *Expr) AttrOr(name, def string) string {
	if v, ok := e.Attrs[name]; ok {
		return v
	}
	return def
}

// IsLeaf returns true if the operator takes no child expressions.
func (e *Expr) IsLeaf() bool {
	_, max := e.Op.Arity()
	return max == 0
}

// References returns true if the operator reads a declared variable by identifier.
func (e *Expr) References() bool {
	switch e.Op {
	case OpVariable, OpCorrect, OpDefault, OpMapResponse, OpMapResponsePoint:
		return true
	}
	return false
}
