package value

// BaseType is the primitive type of a scalar value.
type BaseType string

const (
	BaseTypeIdentifier      BaseType = "identifier"
	BaseTypeString          BaseType = "string"
	BaseTypeInteger         BaseType = "integer"
	BaseTypeFloat           BaseType = "float"
	BaseTypeBoolean         BaseType = "boolean"
	BaseTypePoint           BaseType = "point"
	BaseTypePair            BaseType = "pair"
	BaseTypeDirectedPair    BaseType = "directedPair"
	BaseTypeDuration        BaseType = "duration"
	BaseTypeFile            BaseType = "file"
	BaseTypeURI             BaseType = "uri"
	BaseTypeIntOrIdentifier BaseType = "intOrIdentifier"
)

var baseTypes = map[string]BaseType{
	"identifier":      BaseTypeIdentifier,
	"string":          BaseTypeString,
	"integer":         BaseTypeInteger,
	"float":           BaseTypeFloat,
	"boolean":         BaseTypeBoolean,
	"point":           BaseTypePoint,
	"pair":            BaseTypePair,
	"directedPair":    BaseTypeDirectedPair,
	"duration":        BaseTypeDuration,
	"file":            BaseTypeFile,
	"uri":             BaseTypeURI,
	"intOrIdentifier": BaseTypeIntOrIdentifier,
}

// ParseBaseType returns the base type named by s.
func ParseBaseType(s string) (BaseType, bool) {
	bt, ok := baseTypes[s]
	return bt, ok
}

// BaseTypeNames returns every recognised base type name.
func BaseTypeNames() []string {
	names := make([]string, 0, len(baseTypes))
	for name := range baseTypes {
		names = append(names, name)
	}
	return names
}

// IsNumeric reports whether values of this type take part in arithmetic.
func (b BaseType) IsNumeric() bool {
	return b == BaseTypeInteger || b == BaseTypeFloat || b == BaseTypeDuration
}

// isTextual reports whether the scalar payload of this type is plain text.
func (b BaseType) isTextual() bool {
	switch b {
	case BaseTypeIdentifier, BaseTypeString, BaseTypeFile, BaseTypeURI, BaseTypeIntOrIdentifier:
		return true
	}
	return false
}

// Cardinality is the shape of a value.
type Cardinality string

const (
	CardinalitySingle   Cardinality = "single"
	CardinalityMultiple Cardinality = "multiple"
	CardinalityOrdered  Cardinality = "ordered"
	CardinalityRecord   Cardinality = "record"
)

// ParseCardinality returns the cardinality named by s.
func ParseCardinality(s string) (Cardinality, bool) {
	switch Cardinality(s) {
	case CardinalitySingle, CardinalityMultiple, CardinalityOrdered, CardinalityRecord:
		return Cardinality(s), true
	}
	return "", false
}

// IsContainer reports whether the cardinality holds a collection of scalars.
func (c Cardinality) IsContainer() bool {
	return c == CardinalityMultiple || c == CardinalityOrdered
}
